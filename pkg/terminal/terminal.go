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

// Package terminal draws the machine display with Unicode half blocks and
// reads the hex keypad from a raw-mode terminal.
package terminal

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/lassandro/gochip8/pkg/machine"
)

const (
	ASCII_ETX = 0x03 // Ctrl-C
	ASCII_ESC = 0x1B
	ASCII_BEL = 0x07
)

// Terminals report key presses but never releases, so a press is held down
// for this many frames
const DEFAULT_HOLD_FRAMES = 6

//	1 2 3 C      1 2 3 4
//	4 5 6 D  ->  Q W E R
//	7 8 9 E      A S D F
//	A 0 B F      Z X C V
var DefaultKeymap = map[byte]int{
	'1': 0x1, '2': 0x2, '3': 0x3, '4': 0xC,
	'q': 0x4, 'w': 0x5, 'e': 0x6, 'r': 0xD,
	'a': 0x7, 's': 0x8, 'd': 0x9, 'f': 0xE,
	'z': 0xA, 'x': 0x0, 'c': 0xB, 'v': 0xF,
}

type Terminal struct {
	In  io.Reader
	Out io.Writer

	Keymap     map[byte]int
	HoldFrames int

	held    [machine.KEY_COUNT]int
	beeping bool
	input   [64]byte
	frame   bytes.Buffer
}

func New(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		In:         in,
		Out:        out,
		Keymap:     DefaultKeymap,
		HoldFrames: DEFAULT_HOLD_FRAMES,
	}
}

// Clears the screen and hides the cursor
func (term *Terminal) Start() error {
	_, err := io.WriteString(term.Out, "\033[2J\033[?25l")
	return err
}

// Shows the cursor again below the display
func (term *Terminal) Close() error {
	_, err := fmt.Fprintf(
		term.Out, "\033[%d;1H\033[?25h\n", machine.DISPLAY_HEIGHT/2+1,
	)
	return err
}

// Each text row holds two display rows: the upper half block draws the top
// pixel, the lower half block the bottom one
func (term *Terminal) Render(display *machine.Display) error {
	term.frame.Reset()
	term.frame.WriteString("\033[H")

	for y := 0; y < machine.DISPLAY_HEIGHT; y += 2 {
		for x := 0; x < machine.DISPLAY_WIDTH; x++ {
			top := display[y][x]
			bottom := y+1 < machine.DISPLAY_HEIGHT && display[y+1][x]

			switch {
			case top && bottom:
				term.frame.WriteRune('█')
			case top:
				term.frame.WriteRune('▀')
			case bottom:
				term.frame.WriteRune('▄')
			default:
				term.frame.WriteByte(' ')
			}
		}

		term.frame.WriteString("\r\n")
	}

	_, err := term.Out.Write(term.frame.Bytes())

	return err
}

func (term *Terminal) PollKeys(keys *[machine.KEY_COUNT]bool) (bool, error) {
	quit := false

	for i := range term.held {
		if term.held[i] > 0 {
			term.held[i]--
		}
	}

	n, err := term.In.Read(term.input[:])

	// A raw terminal with no pending input reads nothing
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}

	input := term.input[:n]

	for i := 0; i < len(input); i++ {
		char := input[i]

		switch char {
		case ASCII_ETX:
			quit = true
			continue

		case ASCII_ESC:
			// Only a lone ESC quits, anything after it is an escape sequence
			if i == len(input)-1 {
				quit = true
			} else {
				i = skipSequence(input, i)
			}
			continue
		}

		if char >= 'A' && char <= 'Z' {
			char += 'a' - 'A'
		}

		if key, exists := term.Keymap[char]; exists {
			term.held[key] = term.HoldFrames
		}
	}

	for i := range keys {
		keys[i] = term.held[i] > 0
	}

	return quit, nil
}

// Returns the index of the last byte of the escape sequence starting at start
func skipSequence(input []byte, start int) int {
	i := start + 1

	// Alt-modified keys are ESC followed by a single byte
	if input[i] != '[' && input[i] != 'O' {
		return i
	}

	// CSI parameter and intermediate bytes run until a final byte
	for i++; i < len(input); i++ {
		if input[i] >= 0x40 && input[i] <= 0x7E {
			return i
		}
	}

	return len(input) - 1
}

// Rings the terminal bell when the tone starts
func (term *Terminal) Beep(on bool) {
	if on && !term.beeping {
		term.Out.Write([]byte{ASCII_BEL})
	}

	term.beeping = on
}
