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

// Package sdlwindow presents a machine in an SDL window with audio output.
package sdlwindow

import (
	"fmt"

	"github.com/lassandro/gochip8/pkg/machine"
	"github.com/lassandro/gochip8/pkg/sound"
	"github.com/veandco/go-sdl2/sdl"
)

const (
	DEFAULT_SCALE = 10

	AUDIO_SAMPLES = 512

	// Queued audio is topped up below this many bytes
	AUDIO_LOW_WATER = sound.SAMPLE_RATE / 20

	SILENCE   = 0x80
	TONE_HIGH = 0xA0
	TONE_LOW  = 0x60
)

// Scancodes follow the layout of the COSMAC VIP hex keypad
var DefaultKeymap = map[sdl.Scancode]int{
	sdl.SCANCODE_1: 0x1, sdl.SCANCODE_2: 0x2, sdl.SCANCODE_3: 0x3, sdl.SCANCODE_4: 0xC,
	sdl.SCANCODE_Q: 0x4, sdl.SCANCODE_W: 0x5, sdl.SCANCODE_E: 0x6, sdl.SCANCODE_R: 0xD,
	sdl.SCANCODE_A: 0x7, sdl.SCANCODE_S: 0x8, sdl.SCANCODE_D: 0x9, sdl.SCANCODE_F: 0xE,
	sdl.SCANCODE_Z: 0xA, sdl.SCANCODE_X: 0x0, sdl.SCANCODE_C: 0xB, sdl.SCANCODE_V: 0xF,
}

type Window struct {
	Keymap map[sdl.Scancode]int
	Scale  int32

	window   *sdl.Window
	renderer *sdl.Renderer

	audio   sdl.AudioDeviceID
	tone    *sound.Tone
	chunk   []byte
	beeping bool
}

// Must be called from the main OS thread
func New(title string, scale int32) (*Window, error) {
	if scale <= 0 {
		scale = DEFAULT_SCALE
	}

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO); err != nil {
		return nil, fmt.Errorf("initialising sdl: %w", err)
	}

	win := &Window{
		Keymap: DefaultKeymap,
		Scale:  scale,
	}

	var err error

	win.window, err = sdl.CreateWindow(
		title,
		int32(sdl.WINDOWPOS_UNDEFINED),
		int32(sdl.WINDOWPOS_UNDEFINED),
		machine.DISPLAY_WIDTH*scale,
		machine.DISPLAY_HEIGHT*scale,
		uint32(sdl.WINDOW_SHOWN),
	)

	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("creating window: %w", err)
	}

	win.renderer, err = sdl.CreateRenderer(
		win.window, -1, uint32(sdl.RENDERER_ACCELERATED),
	)

	if err != nil {
		win.window.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("creating renderer: %w", err)
	}

	spec := &sdl.AudioSpec{
		Freq:     sound.SAMPLE_RATE,
		Format:   sdl.AUDIO_U8,
		Channels: 1,
		Samples:  AUDIO_SAMPLES,
	}

	var actual sdl.AudioSpec

	win.audio, err = sdl.OpenAudioDevice("", false, spec, &actual, 0)

	if err != nil {
		win.Close()
		return nil, fmt.Errorf("opening audio device: %w", err)
	}

	win.tone = sound.NewTone(int(actual.Freq), sound.TONE_FREQUENCY)
	win.chunk = make([]byte, AUDIO_LOW_WATER)

	sdl.PauseAudioDevice(win.audio, false)

	return win, nil
}

func (win *Window) Render(display *machine.Display) error {
	if err := win.renderer.SetDrawColor(0x00, 0x00, 0x00, 0xFF); err != nil {
		return err
	}

	if err := win.renderer.Clear(); err != nil {
		return err
	}

	if err := win.renderer.SetDrawColor(0xFF, 0xFF, 0xFF, 0xFF); err != nil {
		return err
	}

	for y := range display {
		for x := range display[y] {
			if !display[y][x] {
				continue
			}

			rect := sdl.Rect{
				X: int32(x) * win.Scale,
				Y: int32(y) * win.Scale,
				W: win.Scale,
				H: win.Scale,
			}

			if err := win.renderer.FillRect(&rect); err != nil {
				return err
			}
		}
	}

	win.renderer.Present()

	return nil
}

func (win *Window) PollKeys(keys *[machine.KEY_COUNT]bool) (bool, error) {
	for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
		switch ev := ev.(type) {
		case *sdl.QuitEvent:
			return true, nil

		case *sdl.KeyboardEvent:
			if ev.Keysym.Scancode == sdl.SCANCODE_ESCAPE {
				return true, nil
			}

			key, exists := win.Keymap[ev.Keysym.Scancode]

			if !exists {
				continue
			}

			keys[key] = ev.Type == sdl.KEYDOWN
		}
	}

	return false, nil
}

func (win *Window) Beep(on bool) {
	if !on {
		if win.beeping {
			sdl.ClearQueuedAudio(win.audio)
		}

		win.beeping = false
		return
	}

	win.beeping = true

	if sdl.GetQueuedAudioSize(win.audio) >= AUDIO_LOW_WATER {
		return
	}

	fillTone(win.chunk, win.tone)

	// A failed queue drops one chunk of tone
	_ = sdl.QueueAudio(win.audio, win.chunk)
}

func (win *Window) Close() {
	if win.audio != 0 {
		sdl.CloseAudioDevice(win.audio)
	}

	if win.renderer != nil {
		win.renderer.Destroy()
	}

	if win.window != nil {
		win.window.Destroy()
	}

	sdl.Quit()
}

func fillTone(chunk []byte, tone *sound.Tone) {
	for i := range chunk {
		if tone.Next() {
			chunk[i] = TONE_HIGH
		} else {
			chunk[i] = TONE_LOW
		}
	}
}
