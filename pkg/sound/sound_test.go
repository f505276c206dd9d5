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

package sound_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
	"github.com/lassandro/gochip8/pkg/sound"
	"github.com/retroenv/retrogolib/assert"
)

func TestTone(t *testing.T) {
	tone := &sound.Tone{Period: 4}

	var have []bool
	for i := 0; i < 6; i++ {
		have = append(have, tone.Next())
	}

	assert.Equal(t, []bool{true, true, false, false, true, true}, have)
	assert.Equal(t, sound.SAMPLE_RATE/sound.TONE_FREQUENCY, sound.NewTone(sound.SAMPLE_RATE, sound.TONE_FREQUENCY).Period)
	assert.Equal(t, 2, sound.NewTone(10, 100).Period)
}

func TestRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")

	file, err := os.Create(path)
	assert.NoError(t, err)

	rec := sound.NewRecorder(file, 60)
	rec.Sample(true)
	rec.Sample(false)
	assert.NoError(t, rec.Close())
	assert.NoError(t, file.Close())

	file, err = os.Open(path)
	assert.NoError(t, err)
	defer file.Close()

	decoder := wav.NewDecoder(file)
	assert.True(t, decoder.IsValidFile())

	buffer, err := decoder.FullPCMBuffer()
	assert.NoError(t, err)

	assert.Equal(t, uint32(sound.SAMPLE_RATE), decoder.SampleRate)
	assert.Equal(t, uint16(1), decoder.NumChans)
	assert.Equal(t, uint16(sound.BIT_DEPTH), decoder.BitDepth)
	assert.Equal(t, rec.SamplesPerFrame()*2, len(buffer.Data))

	// Tone first, then silence
	assert.Equal(t, sound.AMPLITUDE, buffer.Data[0])
	assert.Equal(t, -sound.AMPLITUDE, buffer.Data[sound.SAMPLE_RATE/sound.TONE_FREQUENCY/2])
	assert.Equal(t, 0, buffer.Data[rec.SamplesPerFrame()])
}
