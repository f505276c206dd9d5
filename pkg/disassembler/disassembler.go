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

// Package disassembler renders CHIP-8 opcodes as source the assembler accepts.
package disassembler

import (
	"fmt"

	"github.com/lassandro/gochip8/pkg/encoding"
	"github.com/lassandro/gochip8/pkg/machine"
)

// Disassemble returns the mnemonic form of opcode. Words the interpreter
// treats as no-ops are returned as a .WORD directive with ok set to false.
func Disassemble(opcode uint16) (text string, ok bool) {
	a, x, y, n := encoding.Nibbles(opcode)

	nnn := opcode & 0x0FFF
	nn := uint8(opcode & 0x00FF)

	switch a {
	case machine.OP_SYS:
		switch opcode {
		case 0x00E0:
			return "CLS", true
		case 0x00EE:
			return "RET", true
		}

		return fmt.Sprintf("SYS $%03X", nnn), true

	case machine.OP_JP:
		return fmt.Sprintf("JP $%03X", nnn), true

	case machine.OP_CALL:
		return fmt.Sprintf("CALL $%03X", nnn), true

	case machine.OP_SEI:
		return fmt.Sprintf("SE V%X, $%02X", x, nn), true

	case machine.OP_SNEI:
		return fmt.Sprintf("SNE V%X, $%02X", x, nn), true

	case machine.OP_SE:
		if n == 0x0 {
			return fmt.Sprintf("SE V%X, V%X", x, y), true
		}

	case machine.OP_LDI:
		return fmt.Sprintf("LD V%X, $%02X", x, nn), true

	case machine.OP_ADDI:
		return fmt.Sprintf("ADD V%X, $%02X", x, nn), true

	case machine.OP_ALU:
		if mnemonic, exists := alu[n]; exists {
			return fmt.Sprintf("%s V%X, V%X", mnemonic, x, y), true
		}

	case machine.OP_SNE:
		if n == 0x0 {
			return fmt.Sprintf("SNE V%X, V%X", x, y), true
		}

	case machine.OP_LDA:
		return fmt.Sprintf("LD I, $%03X", nnn), true

	case machine.OP_JPO:
		return fmt.Sprintf("JP V0, $%03X", nnn), true

	case machine.OP_RND:
		return fmt.Sprintf("RND V%X, $%02X", x, nn), true

	case machine.OP_DRW:
		return fmt.Sprintf("DRW V%X, V%X, $%X", x, y, n), true

	case machine.OP_KEY:
		switch nn {
		case 0x9E:
			return fmt.Sprintf("SKP V%X", x), true
		case 0xA1:
			return fmt.Sprintf("SKNP V%X", x), true
		}

	case machine.OP_MISC:
		if format, exists := misc[nn]; exists {
			return fmt.Sprintf(format, x), true
		}
	}

	return fmt.Sprintf(".WORD $%04X", opcode), false
}

var alu = map[uint8]string{
	0x0: "LD",
	0x1: "OR",
	0x2: "AND",
	0x3: "XOR",
	0x4: "ADD",
	0x5: "SUB",
	0x6: "SHR",
	0x7: "SUBN",
	0xE: "SHL",
}

var misc = map[uint8]string{
	0x07: "LD V%X, DT",
	0x0A: "LD V%X, K",
	0x15: "LD DT, V%X",
	0x18: "LD ST, V%X",
	0x1E: "ADD I, V%X",
	0x29: "LD F, V%X",
	0x33: "LD B, V%X",
	0x55: "LD [I], V%X",
	0x65: "LD V%X, [I]",
}
