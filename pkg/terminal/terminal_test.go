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

package terminal_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lassandro/gochip8/pkg/machine"
	"github.com/lassandro/gochip8/pkg/terminal"
	"github.com/retroenv/retrogolib/assert"
)

func TestRender(t *testing.T) {
	var out bytes.Buffer
	var display machine.Display

	term := terminal.New(strings.NewReader(""), &out)

	display[0][0] = true
	display[1][0] = true
	display[0][1] = true
	display[1][2] = true
	display[31][63] = true

	assert.NoError(t, term.Render(&display))

	rows := strings.Split(strings.TrimPrefix(out.String(), "\033[H"), "\r\n")

	// Trailing separator leaves an empty last element
	assert.Equal(t, machine.DISPLAY_HEIGHT/2+1, len(rows))
	assert.Equal(t, "█▀▄"+strings.Repeat(" ", 61), rows[0])
	assert.Equal(t, strings.Repeat(" ", 63)+"▄", rows[15])

	// Rendering again replaces the previous frame
	out.Reset()
	display = machine.Display{}
	assert.NoError(t, term.Render(&display))
	assert.False(t, strings.ContainsAny(out.String(), "█▀▄"))
}

func TestPollKeys(t *testing.T) {
	var keys [machine.KEY_COUNT]bool

	input := new(bytes.Buffer)
	term := terminal.New(input, new(bytes.Buffer))
	term.HoldFrames = 2

	input.WriteString("1V")

	quit, err := term.PollKeys(&keys)
	assert.NoError(t, err)
	assert.False(t, quit)
	assert.True(t, keys[0x1])
	assert.True(t, keys[0xF])
	assert.False(t, keys[0x0])

	// Held for the following frame without new input
	_, err = term.PollKeys(&keys)
	assert.NoError(t, err)
	assert.True(t, keys[0x1])

	_, err = term.PollKeys(&keys)
	assert.NoError(t, err)
	assert.False(t, keys[0x1])
	assert.False(t, keys[0xF])

	input.WriteString("x\033")

	quit, err = term.PollKeys(&keys)
	assert.NoError(t, err)
	assert.True(t, quit)
	assert.True(t, keys[0x0])
}

func TestPollKeysEscapeSequence(t *testing.T) {
	tests := []struct {
		Name  string
		Input string
		Quit  bool
		Keys  []int
	}{
		{"Lone ESC", "\033", true, nil},
		{"Arrow key", "\033[A", false, nil},
		{"Application arrow key", "\033OD", false, nil},
		{"Function key", "\033[15~", false, nil},
		{"Arrow then key", "\033[Bw", false, []int{0x5}},
		{"Alt key", "\033a", false, nil},
		{"Key then lone ESC", "q\033", true, []int{0x4}},
		{"Ctrl-C", "\003", true, nil},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			var keys [machine.KEY_COUNT]bool

			term := terminal.New(strings.NewReader(test.Input), new(bytes.Buffer))

			quit, err := term.PollKeys(&keys)
			assert.NoError(t, err)
			assert.Equal(t, test.Quit, quit)

			want := map[int]bool{}
			for _, key := range test.Keys {
				want[key] = true
			}

			for key, held := range keys {
				assert.Equal(t, want[key], held, test.Input)
			}
		})
	}
}

func TestBeep(t *testing.T) {
	var out bytes.Buffer

	term := terminal.New(strings.NewReader(""), &out)

	term.Beep(true)
	term.Beep(true)
	term.Beep(false)
	term.Beep(true)

	assert.Equal(t, "\a\a", out.String())
}

func TestStartClose(t *testing.T) {
	var out bytes.Buffer

	term := terminal.New(strings.NewReader(""), &out)

	assert.NoError(t, term.Start())
	assert.NoError(t, term.Close())
	assert.Equal(t, "\033[2J\033[?25l\033[17;1H\033[?25h\n", out.String())
}
