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

package main

import (
	"bytes"
	"context"
	"encoding/gob"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/lassandro/gochip8/pkg/assembler"
	"github.com/lassandro/gochip8/pkg/debugger"
	"github.com/lassandro/gochip8/pkg/driver"
	"github.com/lassandro/gochip8/pkg/machine"
	"github.com/lassandro/gochip8/pkg/sdlwindow"
	"github.com/lassandro/gochip8/pkg/sound"
	"github.com/lassandro/gochip8/pkg/terminal"
	"github.com/retroenv/retrogolib/buildinfo"
	"github.com/retroenv/retrogolib/log"
)

var (
	version = "0.1.0"
	commit  = ""
	date    = ""
)

var helpvar bool
var debugvar bool
var verbosevar bool
var quietvar bool
var versionvar bool
var sdlvar bool
var statsvar bool
var wavvar string
var scalevar int
var seedvar int64
var speedvar int
var refreshvar int

var shouldexit bool

// Set while the terminal frontend owns stdin
var rawmode *terminal.RawMode
var screen *terminal.Terminal

const usage = "gochip8 [-debug] [-sdl] [-wav file.wav] filename"

func init() {
	// SDL calls must come from the main thread
	runtime.LockOSThread()
}

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(&debugvar, "debug", false, "Runs the machine in a debug CLI")
	flag.BoolVar(&verbosevar, "verbose", false, "Enables debug logging")
	flag.BoolVar(&quietvar, "quiet", false, "Only logs errors")
	flag.BoolVar(&versionvar, "version", false, "Prints the version and exits")
	flag.BoolVar(&sdlvar, "sdl", false, "Opens an SDL window instead of drawing to the terminal")
	flag.BoolVar(
		&statsvar, "stats", false,
		"Serves runtime statistics at http://"+STATS_ADDRESS+STATS_PATH,
	)
	flag.StringVar(&wavvar, "wav", "", "Records the buzzer to a WAV file")
	flag.IntVar(&scalevar, "scale", sdlwindow.DEFAULT_SCALE, "Pixel size of the SDL window")
	flag.Int64Var(&seedvar, "seed", 0, "Seeds the random number generator, 0 picks one from the clock")
	flag.IntVar(&speedvar, "speed", driver.DEFAULT_STEPS_PER_SECOND, "Instructions executed per second")
	flag.IntVar(&refreshvar, "refresh", driver.DEFAULT_REFRESH_PER_SECOND, "Display refreshes and timer ticks per second")
	flag.Parse()
}

func createLogger() *log.Logger {
	cfg := log.DefaultConfig()

	if verbosevar {
		cfg.Level = log.DebugLevel
	} else if quietvar {
		cfg.Level = log.ErrorLevel
	}

	return log.NewWithConfig(cfg)
}

// Lets the debugger quit the session from inside a step
type session struct {
	driver.Frontend
}

func (s session) PollKeys(keys *[machine.KEY_COUNT]bool) (bool, error) {
	if shouldexit {
		return true, nil
	}

	return s.Frontend.PollKeys(keys)
}

// Hands the terminal back to line input while the debugger prompts
func suspendFrontend() {
	if screen != nil {
		screen.Close()
	}

	if rawmode != nil {
		rawmode.Restore()
	}
}

func resumeFrontend() {
	if rawmode != nil {
		if raw, err := terminal.EnterRaw(int(os.Stdin.Fd())); err == nil {
			rawmode = raw
		}
	}

	if screen != nil {
		screen.Start()
	}
}

func loadSymbols(logger *log.Logger, dbg *debugger.Debugger, romfile string) {
	filename := filepath.Join(
		filepath.Dir(romfile),
		strings.TrimSuffix(filepath.Base(romfile), filepath.Ext(romfile))+".c8db",
	)

	file, err := os.Open(filename)

	if err != nil {
		logger.Warn("Error loading symbol file", log.Err(err))
		return
	}

	defer file.Close()

	symtable := assembler.NewSymTable("")

	if err := gob.NewDecoder(file).Decode(symtable); err != nil {
		logger.Warn("Error decoding symbol file", log.String("file", filename), log.Err(err))
		return
	}

	dbg.SymTable = symtable

	if symtable.Source == "" {
		return
	}

	source, err := os.ReadFile(symtable.Source)

	if err != nil {
		logger.Warn("Error loading source file", log.Err(err))
		return
	}

	dbg.Source = bytes.NewReader(source)
}

func gochip8() int {
	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return 0
	}

	if versionvar {
		fmt.Printf("gochip8 version: %s\n", buildinfo.Version(version, commit, date))
		return 0
	}

	args := flag.Args()

	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, usage)
		return 1
	}

	logger := createLogger()

	if statsvar {
		launchStats(logger)
	}

	rom, err := os.ReadFile(args[0])

	if err != nil {
		logger.Error("Error reading program", err)
		return 1
	}

	mc := machine.Machine{Logger: logger}

	if seedvar != 0 {
		mc.Random = rand.New(rand.NewSource(seedvar))
	}

	if err := mc.LoadBin(bytes.NewReader(rom)); err != nil {
		logger.Error("Error loading program", err, log.String("file", args[0]))
		return 1
	}

	ctx := context.Background()

	if debugvar {
		dbg := &debugger.Debugger{
			Binary:      rom,
			HandleBreak: handleBreak,
			HandleRead:  handleRead,
			HandleWrite: handleWrite,
		}

		loadSymbols(logger, dbg, args[0])
		mc.Debugger = dbg

		// Interrupts break into the debugger instead of stopping the machine
		c := make(chan os.Signal, 1)
		defer close(c)

		signal.Notify(c, os.Interrupt)
		defer signal.Stop(c)

		go func() {
			for range c {
				fmt.Println()
				dbg.Break.Store(true)
			}
		}()
	} else {
		var stop context.CancelFunc

		ctx, stop = signal.NotifyContext(ctx, os.Interrupt)
		defer stop()
	}

	var frontend driver.Frontend

	if sdlvar {
		win, err := sdlwindow.New("gochip8 - "+filepath.Base(args[0]), int32(scalevar))

		if err != nil {
			logger.Error("Error opening window", err)
			return 1
		}

		defer win.Close()
		frontend = win
	} else {
		rawmode, err = terminal.EnterRaw(int(os.Stdin.Fd()))

		if err != nil {
			logger.Error("Error entering raw mode", err)
			return 1
		}

		defer func() { rawmode.Restore() }()

		screen = terminal.New(os.Stdin, os.Stdout)
		screen.Start()
		defer screen.Close()

		frontend = screen
	}

	if debugvar {
		debugREPL(mc.Debugger.(*debugger.Debugger), &mc)
	}

	d := driver.New(&mc, session{frontend}, driver.Config{
		StepsPerSecond:   speedvar,
		RefreshPerSecond: refreshvar,
	}, logger)

	var recorder *sound.Recorder

	if wavvar != "" {
		file, err := os.Create(wavvar)

		if err != nil {
			logger.Error("Error creating recording", err)
			return 1
		}

		defer file.Close()

		recorder = sound.NewRecorder(file, d.Config.RefreshPerSecond)
		d.Sound = recorder
	}

	status := 0

	if err := d.Run(ctx); err != nil {
		status = 1
	}

	if recorder != nil {
		if err := recorder.Close(); err != nil {
			logger.Error("Error writing recording", err, log.String("file", wavvar))
			status = 1
		}
	}

	return status
}

func main() {
	os.Exit(gochip8())
}
