// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package sound generates the buzzer tone and records it to WAV files.
package sound

import (
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	SAMPLE_RATE    = 44100
	BIT_DEPTH      = 16
	TONE_FREQUENCY = 440
	AMPLITUDE      = 0x2000

	WAV_FORMAT_PCM = 1
)

// Tone is a square wave that keeps its phase between calls
type Tone struct {
	Period int
	phase  int
}

func NewTone(sampleRate, frequency int) *Tone {
	period := sampleRate / frequency

	if period < 2 {
		period = 2
	}

	return &Tone{Period: period}
}

// Reports whether the next sample is in the high half of the wave
func (tone *Tone) Next() bool {
	high := tone.phase < tone.Period/2
	tone.phase = (tone.phase + 1) % tone.Period

	return high
}

// Recorder writes one refresh worth of tone or silence per Sample call
type Recorder struct {
	encoder *wav.Encoder
	buffer  *audio.IntBuffer
	tone    *Tone
	err     error

	samplesPerFrame int
}

func NewRecorder(w io.WriteSeeker, refreshPerSecond int) *Recorder {
	if refreshPerSecond <= 0 {
		refreshPerSecond = 60
	}

	samplesPerFrame := SAMPLE_RATE / refreshPerSecond

	return &Recorder{
		encoder: wav.NewEncoder(w, SAMPLE_RATE, BIT_DEPTH, 1, WAV_FORMAT_PCM),
		buffer: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: 1,
				SampleRate:  SAMPLE_RATE,
			},
			Data:           make([]int, samplesPerFrame),
			SourceBitDepth: BIT_DEPTH,
		},
		tone:            NewTone(SAMPLE_RATE, TONE_FREQUENCY),
		samplesPerFrame: samplesPerFrame,
	}
}

func (rec *Recorder) SamplesPerFrame() int {
	return rec.samplesPerFrame
}

// The first encoding error is kept and returned by Close
func (rec *Recorder) Sample(on bool) {
	if rec.err != nil {
		return
	}

	for i := range rec.buffer.Data {
		switch {
		case !on:
			rec.buffer.Data[i] = 0
		case rec.tone.Next():
			rec.buffer.Data[i] = AMPLITUDE
		default:
			rec.buffer.Data[i] = -AMPLITUDE
		}
	}

	if err := rec.encoder.Write(rec.buffer); err != nil {
		rec.err = fmt.Errorf("encoding samples: %w", err)
	}
}

func (rec *Recorder) Close() error {
	if err := rec.encoder.Close(); err != nil && rec.err == nil {
		rec.err = fmt.Errorf("closing wav: %w", err)
	}

	return rec.err
}
