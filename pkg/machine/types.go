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

package machine

import (
	"fmt"
	"math/rand"

	"github.com/retroenv/retrogolib/log"
)

// Display is indexed [y][x]
type Display [DISPLAY_HEIGHT][DISPLAY_WIDTH]bool

type MachineState struct {
	Registers    [16]uint8
	Program      uint16
	Index        uint16
	Stack        [STACK_DEPTH]uint16
	StackPointer int
	DelayTimer   uint8
	SoundTimer   uint8
	Display      Display
	Keys         [KEY_COUNT]bool
	Memory       [MEMORY_SIZE]uint8
}

type MachineDebugger interface {
	Step(mc *Machine)
	Read(addr uint16, mc *Machine)
	Write(addr uint16, mc *Machine)
}

type Machine struct {
	State    MachineState
	Debugger MachineDebugger

	// Random backs CXNN. The global source is used when nil.
	Random *rand.Rand

	// Logger receives debug output for ignored opcodes. May be nil.
	Logger *log.Logger
}

type ProgramTooLargeError struct {
	Size  int
	Limit int
}

func (err *ProgramTooLargeError) Error() string {
	return fmt.Sprintf(
		"Program exceeds available memory\n\twant:<=%d bytes\n\thave:%d bytes",
		err.Limit,
		err.Size,
	)
}

type UnsupportedInstructionError struct {
	Opcode  uint16
	Program uint16
}

func (err *UnsupportedInstructionError) Error() string {
	return fmt.Sprintf(
		"[0x%03x] %04X: Unsupported machine language subroutine call",
		err.Program,
		err.Opcode,
	)
}

type StackOverflowError struct {
	Opcode  uint16
	Program uint16
}

func (err *StackOverflowError) Error() string {
	return fmt.Sprintf(
		"[0x%03x] %04X: Call exceeds stack depth of %d",
		err.Program,
		err.Opcode,
		STACK_DEPTH,
	)
}

type StackUnderflowError struct {
	Opcode  uint16
	Program uint16
}

func (err *StackUnderflowError) Error() string {
	return fmt.Sprintf(
		"[0x%03x] %04X: Return with empty stack",
		err.Program,
		err.Opcode,
	)
}
