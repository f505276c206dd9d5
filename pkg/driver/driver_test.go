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

package driver_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lassandro/gochip8/pkg/driver"
	"github.com/lassandro/gochip8/pkg/machine"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

type fakeFrontend struct {
	renders  int
	beeps    []bool
	pressed  int
	quitAt   int
	polls    int
	pollErr  error
	lastDraw machine.Display
}

func (f *fakeFrontend) Render(display *machine.Display) error {
	f.renders++
	f.lastDraw = *display
	return nil
}

func (f *fakeFrontend) PollKeys(keys *[machine.KEY_COUNT]bool) (bool, error) {
	f.polls++

	if f.pollErr != nil {
		return false, f.pollErr
	}

	if f.pressed >= 0 {
		keys[f.pressed] = true
	}

	return f.quitAt > 0 && f.polls >= f.quitAt, nil
}

func (f *fakeFrontend) Beep(on bool) {
	f.beeps = append(f.beeps, on)
}

type fakeSound struct {
	samples []bool
}

func (s *fakeSound) Sample(on bool) {
	s.samples = append(s.samples, on)
}

func load(t *testing.T, program ...byte) *machine.Machine {
	t.Helper()

	var mc machine.Machine

	mc.State.Reset()
	assert.NoError(t, mc.State.LoadProgram(program))

	return &mc
}

func TestConfig(t *testing.T) {
	cfg := driver.DefaultConfig()

	assert.Equal(t, 700, cfg.StepsPerSecond)
	assert.Equal(t, 60, cfg.RefreshPerSecond)
	assert.Equal(t, 11, cfg.StepsPerFrame())
	assert.Equal(t, time.Second/60, cfg.FrameDuration())

	assert.Equal(t, 1, driver.Config{StepsPerSecond: 10, RefreshPerSecond: 60}.StepsPerFrame())
	assert.Equal(t, 1, driver.Config{}.StepsPerFrame())
}

func TestFrame(t *testing.T) {
	// LD V0, 3; LD ST, V0; JP 0x204
	mc := load(t, 0x60, 0x03, 0xF0, 0x18, 0x12, 0x04)

	frontend := &fakeFrontend{pressed: 0x7}
	sound := &fakeSound{}

	d := driver.New(mc, frontend, driver.Config{StepsPerSecond: 3, RefreshPerSecond: 1}, log.NewTestLogger(t))
	d.Sound = sound

	quit, err := d.Frame()
	assert.NoError(t, err)
	assert.False(t, quit)

	// Sound timer set to 3 then decremented once by the jump
	assert.Equal(t, uint8(2), mc.State.SoundTimer)
	assert.True(t, mc.State.Keys[0x7])
	assert.Equal(t, 1, frontend.renders)
	assert.Equal(t, []bool{true}, frontend.beeps)
	assert.Equal(t, []bool{true}, sound.samples)
	assert.Equal(t, uint64(1), d.Frames())

	_, err = d.Frame()
	assert.NoError(t, err)
	assert.Equal(t, uint8(0), mc.State.SoundTimer)
	assert.Equal(t, []bool{true, false}, frontend.beeps)
}

func TestFrameQuit(t *testing.T) {
	mc := load(t, 0x12, 0x00)
	frontend := &fakeFrontend{pressed: -1, quitAt: 1}

	d := driver.New(mc, frontend, driver.DefaultConfig(), nil)

	quit, err := d.Frame()
	assert.NoError(t, err)
	assert.True(t, quit)
	assert.Equal(t, 0, frontend.renders)
	assert.Equal(t, uint16(0x200), mc.State.Program)
}

func TestFrameErrors(t *testing.T) {
	// RET with an empty stack
	mc := load(t, 0x00, 0xEE)
	d := driver.New(mc, &fakeFrontend{pressed: -1}, driver.DefaultConfig(), nil)

	_, err := d.Frame()

	var underflow *machine.StackUnderflowError
	assert.True(t, errors.As(err, &underflow))

	pollErr := errors.New("closed")
	d = driver.New(load(t, 0x12, 0x00), &fakeFrontend{pressed: -1, pollErr: pollErr}, driver.DefaultConfig(), nil)

	_, err = d.Frame()
	assert.True(t, errors.Is(err, pollErr))
}

func TestRun(t *testing.T) {
	cfg := driver.Config{StepsPerSecond: 1000, RefreshPerSecond: 1000}

	t.Run("Quit", func(t *testing.T) {
		frontend := &fakeFrontend{pressed: -1, quitAt: 3}
		d := driver.New(load(t, 0x12, 0x00), frontend, cfg, log.NewTestLogger(t))

		assert.NoError(t, d.Run(context.Background()))
		assert.Equal(t, uint64(2), d.Frames())
	})

	t.Run("Cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		d := driver.New(load(t, 0x12, 0x00), &fakeFrontend{pressed: -1}, cfg, nil)

		assert.NoError(t, d.Run(ctx))
	})

	t.Run("Fault", func(t *testing.T) {
		// The fault is logged at error level before it is returned
		d := driver.New(load(t, 0x01, 0x23), &fakeFrontend{pressed: -1}, cfg, log.NewNop())

		var unsupported *machine.UnsupportedInstructionError
		assert.True(t, errors.As(d.Run(context.Background()), &unsupported))
	})
}
