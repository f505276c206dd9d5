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
	"io"
	"math/rand"

	"github.com/lassandro/gochip8/pkg/encoding"
	"github.com/retroenv/retrogolib/log"
)

func (mc *MachineState) Reset() {
	for i := range mc.Memory {
		mc.Memory[i] = 0x00
	}

	copy(mc.Memory[MEMSPACE_FONT:], Font[:])

	for i := range mc.Registers {
		mc.Registers[i] = 0x00
	}

	for i := range mc.Stack {
		mc.Stack[i] = 0x0000
	}

	for i := range mc.Keys {
		mc.Keys[i] = false
	}

	mc.Program = MEMSPACE_PROGRAM
	mc.Index = 0
	mc.StackPointer = 0
	mc.DelayTimer = 0
	mc.SoundTimer = 0

	mc.ClearDisplay()
}

func (mc *MachineState) LoadProgram(program []byte) error {
	limit := MEMORY_SIZE - int(MEMSPACE_PROGRAM)

	if len(program) > limit {
		return &ProgramTooLargeError{Size: len(program), Limit: limit}
	}

	copy(mc.Memory[MEMSPACE_PROGRAM:], program)

	return nil
}

func (mc *MachineState) ClearDisplay() {
	for y := range mc.Display {
		for x := range mc.Display[y] {
			mc.Display[y][x] = false
		}
	}
}

// Coordinates wrap around both edges of the display
func (mc *MachineState) Pixel(x, y int) bool {
	return mc.Display[wrap(y, DISPLAY_HEIGHT)][wrap(x, DISPLAY_WIDTH)]
}

func (mc *MachineState) SetPixel(x, y int, lit bool) {
	mc.Display[wrap(y, DISPLAY_HEIGHT)][wrap(x, DISPLAY_WIDTH)] = lit
}

func (mc *MachineState) Opcode() uint16 {
	return uint16(mc.Memory[mc.Program&MEMORY_MASK])<<8 |
		uint16(mc.Memory[(mc.Program+1)&MEMORY_MASK])
}

func wrap(value, size int) int {
	value %= size

	if value < 0 {
		value += size
	}

	return value
}

// A rejected program leaves the current state untouched
func (mc *Machine) LoadBin(reader io.Reader) error {
	program, err := io.ReadAll(reader)

	if err != nil {
		return fmt.Errorf("reading program: %w", err)
	}

	if limit := MEMORY_SIZE - int(MEMSPACE_PROGRAM); len(program) > limit {
		return &ProgramTooLargeError{Size: len(program), Limit: limit}
	}

	mc.State.Reset()

	return mc.State.LoadProgram(program)
}

func (mc *Machine) read(addr uint16) uint8 {
	addr &= MEMORY_MASK

	if mc.Debugger != nil {
		mc.Debugger.Read(addr, mc)
	}

	return mc.State.Memory[addr]
}

func (mc *Machine) write(addr uint16, value uint8) {
	addr &= MEMORY_MASK

	mc.State.Memory[addr] = value

	if mc.Debugger != nil {
		mc.Debugger.Write(addr, mc)
	}
}

func (mc *Machine) push(value uint16, opcode uint16, program uint16) error {
	if mc.State.StackPointer >= STACK_DEPTH {
		return &StackOverflowError{Opcode: opcode, Program: program}
	}

	mc.State.Stack[mc.State.StackPointer] = value
	mc.State.StackPointer++

	return nil
}

func (mc *Machine) pop(opcode uint16, program uint16) (uint16, error) {
	if mc.State.StackPointer <= 0 {
		return 0, &StackUnderflowError{Opcode: opcode, Program: program}
	}

	mc.State.StackPointer--

	return mc.State.Stack[mc.State.StackPointer], nil
}

func (mc *Machine) random() uint8 {
	if mc.Random != nil {
		return uint8(mc.Random.Intn(0x100))
	}

	return uint8(rand.Intn(0x100))
}

func (mc *Machine) skipIf(condition bool) {
	if condition {
		mc.State.Program += 2
	}
}

// Sprite rows are drawn MSB first, toggling pixels and raising VF when a lit
// pixel is turned off
func (mc *Machine) draw(vx, vy uint8, rows uint8) {
	mc.State.Registers[REGISTER_FLAG] = 0

	for row := uint8(0); row < rows; row++ {
		sprite := mc.read(mc.State.Index + uint16(row))

		for column := 0; column < 8; column++ {
			if (sprite>>(7-column))&0x1 == 0 {
				continue
			}

			x := int(vx) + column
			y := int(vy) + int(row)

			lit := mc.State.Pixel(x, y)

			if lit {
				mc.State.Registers[REGISTER_FLAG] = 1
			}

			mc.State.SetPixel(x, y, !lit)
		}
	}
}

func (mc *Machine) ignore(opcode uint16, program uint16) {
	if mc.Logger != nil {
		mc.Logger.Debug(
			"Ignoring unknown opcode",
			log.String("opcode", fmt.Sprintf("%04X", opcode)),
			log.String("address", fmt.Sprintf("0x%03X", program)),
		)
	}
}

func (mc *Machine) Step() error {
	program := mc.State.Program

	instruction := uint16(mc.read(program))<<8 | uint16(mc.read(program+1))
	a, b, c, d := encoding.Nibbles(instruction)

	x := b
	y := c
	nnn := instruction & 0x0FFF
	nn := uint8(instruction & 0x00FF)
	n := d

	vx := mc.State.Registers[x]
	vy := mc.State.Registers[y]

	// Jumps, calls and skips work relative to the advanced counter
	mc.State.Program += 2

	if mc.State.DelayTimer > 0 {
		mc.State.DelayTimer--
	}

	if mc.State.SoundTimer > 0 {
		mc.State.SoundTimer--
	}

	switch a {
	// 00E0 CLS           | Clear display
	// 00EE RET           | Return from subroutine
	// 0NNN SYS  addr     | Machine subroutine (unsupported)
	case OP_SYS:
		switch {
		case instruction == 0x00E0:
			mc.State.ClearDisplay()

		case instruction == 0x00EE:
			addr, err := mc.pop(instruction, program)

			if err != nil {
				return err
			}

			mc.State.Program = addr

		default:
			return &UnsupportedInstructionError{
				Opcode:  instruction,
				Program: program,
			}
		}

	// 1NNN JP   addr     | Jump
	case OP_JP:
		mc.State.Program = nnn

	// 2NNN CALL addr     | Call subroutine
	case OP_CALL:
		if err := mc.push(mc.State.Program, instruction, program); err != nil {
			return err
		}

		mc.State.Program = nnn

	// 3XNN SE   Vx, byte | Skip if equal
	case OP_SEI:
		mc.skipIf(vx == nn)

	// 4XNN SNE  Vx, byte | Skip if not equal
	case OP_SNEI:
		mc.skipIf(vx != nn)

	// 5XY0 SE   Vx, Vy   | Skip if registers equal
	case OP_SE:
		if d != 0x0 {
			mc.ignore(instruction, program)
			break
		}

		mc.skipIf(vx == vy)

	// 6XNN LD   Vx, byte | Load immediate
	case OP_LDI:
		mc.State.Registers[x] = nn

	// 7XNN ADD  Vx, byte | Add immediate, no carry
	case OP_ADDI:
		mc.State.Registers[x] = vx + nn

	// 8XY_ ALU operations, VF written last
	case OP_ALU:
		switch d {
		case 0x0:
			mc.State.Registers[x] = vy

		case 0x1:
			mc.State.Registers[x] = vx | vy

		case 0x2:
			mc.State.Registers[x] = vx & vy

		case 0x3:
			mc.State.Registers[x] = vx ^ vy

		case 0x4:
			mc.State.Registers[x] = vx + vy
			mc.State.Registers[REGISTER_FLAG] = flag(uint16(vx)+uint16(vy) > 0xFF)

		case 0x5:
			mc.State.Registers[x] = vx - vy
			mc.State.Registers[REGISTER_FLAG] = flag(vx >= vy)

		case 0x6:
			mc.State.Registers[x] = vy >> 1
			mc.State.Registers[REGISTER_FLAG] = vx & 0x01

		case 0x7:
			mc.State.Registers[x] = vy - vx
			mc.State.Registers[REGISTER_FLAG] = flag(vy >= vx)

		case 0xE:
			mc.State.Registers[x] = vy << 1
			mc.State.Registers[REGISTER_FLAG] = (vx & 0x80) >> 7

		default:
			mc.ignore(instruction, program)
		}

	// 9XY0 SNE  Vx, Vy   | Skip if registers not equal
	case OP_SNE:
		if d != 0x0 {
			mc.ignore(instruction, program)
			break
		}

		mc.skipIf(vx != vy)

	// ANNN LD   I, addr  | Load index
	case OP_LDA:
		mc.State.Index = nnn

	// BNNN JP   V0, addr | Jump with offset
	case OP_JPO:
		mc.State.Program = nnn + uint16(mc.State.Registers[0])

	// CXNN RND  Vx, byte | Random masked byte
	case OP_RND:
		mc.State.Registers[x] = mc.random() & nn

	// DXYN DRW  Vx, Vy, n
	case OP_DRW:
		mc.draw(vx, vy, n)

	// EX9E SKP  Vx       | Skip if key pressed
	// EXA1 SKNP Vx       | Skip if key released
	case OP_KEY:
		key := vx & 0xF

		switch nn {
		case 0x9E:
			mc.skipIf(mc.State.Keys[key])
		case 0xA1:
			mc.skipIf(!mc.State.Keys[key])
		default:
			mc.ignore(instruction, program)
		}

	case OP_MISC:
		switch nn {
		// FX07 LD   Vx, DT
		case 0x07:
			mc.State.Registers[x] = mc.State.DelayTimer

		// FX0A LD   Vx, K    | Stay on this instruction until a key is down
		case 0x0A:
			mc.State.Program -= 2

			for key, pressed := range mc.State.Keys {
				if pressed {
					mc.State.Registers[x] = uint8(key)
					mc.State.Program += 2
					break
				}
			}

		// FX15 LD   DT, Vx
		case 0x15:
			mc.State.DelayTimer = vx

		// FX18 LD   ST, Vx
		case 0x18:
			mc.State.SoundTimer = vx

		// FX1E ADD  I, Vx    | VF untouched
		case 0x1E:
			mc.State.Index += uint16(vx)

		// FX29 LD   F, Vx
		case 0x29:
			mc.State.Index = MEMSPACE_FONT + uint16(vx)*FONT_GLYPH_SIZE

		// FX33 LD   B, Vx
		case 0x33:
			digits := encoding.BCD(vx)

			for i, digit := range digits {
				mc.write(mc.State.Index+uint16(i), digit)
			}

		// FX55 LD   [I], Vx
		case 0x55:
			for r := uint16(0); r <= uint16(x); r++ {
				mc.write(mc.State.Index+r, mc.State.Registers[r])
			}

			mc.State.Index += uint16(x) + 1

		// FX65 LD   Vx, [I]
		case 0x65:
			for r := uint16(0); r <= uint16(x); r++ {
				mc.State.Registers[r] = mc.read(mc.State.Index + r)
			}

			mc.State.Index += uint16(x) + 1

		default:
			mc.ignore(instruction, program)
		}
	}

	if mc.Debugger != nil {
		mc.Debugger.Step(mc)
	}

	return nil
}

func flag(set bool) uint8 {
	if set {
		return 1
	}

	return 0
}
