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

// Package driver paces a machine against wall-clock time and connects it to a
// display, keyboard and sound frontend.
package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/lassandro/gochip8/pkg/machine"
	"github.com/retroenv/retrogolib/log"
)

const (
	DEFAULT_STEPS_PER_SECOND   = 700
	DEFAULT_REFRESH_PER_SECOND = 60
)

type Frontend interface {
	Render(display *machine.Display) error

	// PollKeys updates keys in place and reports whether the user asked to
	// quit
	PollKeys(keys *[machine.KEY_COUNT]bool) (quit bool, err error)

	Beep(on bool)
}

type SoundSink interface {
	Sample(on bool)
}

type Config struct {
	StepsPerSecond   int
	RefreshPerSecond int
}

func DefaultConfig() Config {
	return Config{
		StepsPerSecond:   DEFAULT_STEPS_PER_SECOND,
		RefreshPerSecond: DEFAULT_REFRESH_PER_SECOND,
	}
}

// Steps executed between two refreshes, at least one
func (cfg Config) StepsPerFrame() int {
	if cfg.RefreshPerSecond <= 0 {
		return 1
	}

	if steps := cfg.StepsPerSecond / cfg.RefreshPerSecond; steps > 0 {
		return steps
	}

	return 1
}

func (cfg Config) FrameDuration() time.Duration {
	if cfg.RefreshPerSecond <= 0 {
		return time.Second / DEFAULT_REFRESH_PER_SECOND
	}

	return time.Second / time.Duration(cfg.RefreshPerSecond)
}

type Driver struct {
	Machine  *machine.Machine
	Frontend Frontend

	// Sound is optional
	Sound SoundSink

	Config Config
	Logger *log.Logger

	frames uint64
}

func New(mc *machine.Machine, frontend Frontend, cfg Config, logger *log.Logger) *Driver {
	return &Driver{
		Machine:  mc,
		Frontend: frontend,
		Config:   cfg,
		Logger:   logger,
	}
}

func (d *Driver) Frames() uint64 {
	return d.frames
}

// Frame polls input, runs one refresh worth of steps and presents the result
func (d *Driver) Frame() (quit bool, err error) {
	state := &d.Machine.State

	quit, err = d.Frontend.PollKeys(&state.Keys)

	if err != nil {
		return false, fmt.Errorf("polling keys: %w", err)
	}

	if quit {
		return true, nil
	}

	for i := 0; i < d.Config.StepsPerFrame(); i++ {
		if err := d.Machine.Step(); err != nil {
			return false, fmt.Errorf("step: %w", err)
		}
	}

	if err := d.Frontend.Render(&state.Display); err != nil {
		return false, fmt.Errorf("rendering display: %w", err)
	}

	beep := state.SoundTimer > 0

	d.Frontend.Beep(beep)

	if d.Sound != nil {
		d.Sound.Sample(beep)
	}

	d.frames++

	return false, nil
}

// Run calls Frame at the configured refresh rate until the frontend quits,
// the machine faults or ctx is cancelled
func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.Config.FrameDuration())
	defer ticker.Stop()

	if d.Logger != nil {
		d.Logger.Debug(
			"Starting machine",
			log.Int("steps_per_second", d.Config.StepsPerSecond),
			log.Int("refresh_per_second", d.Config.RefreshPerSecond),
		)
	}

	for {
		select {
		case <-ctx.Done():
			d.stopped("cancelled")
			return nil

		case <-ticker.C:
			quit, err := d.Frame()

			if err != nil {
				if d.Logger != nil {
					d.Logger.Error("Machine stopped", err)
				}

				return err
			}

			if quit {
				d.stopped("quit")
				return nil
			}
		}
	}
}

func (d *Driver) stopped(reason string) {
	if d.Logger != nil {
		d.Logger.Debug(
			"Machine stopped",
			log.String("reason", reason),
			log.String("frames", fmt.Sprint(d.frames)),
		)
	}
}
