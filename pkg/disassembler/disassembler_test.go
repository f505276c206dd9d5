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

package disassembler_test

import (
	"strings"
	"testing"

	"github.com/lassandro/gochip8/pkg/assembler"
	"github.com/lassandro/gochip8/pkg/disassembler"
	"github.com/retroenv/retrogolib/assert"
)

func TestDisassemble(t *testing.T) {
	tests := []struct {
		Opcode uint16
		Text   string
		Ok     bool
	}{
		{0x00E0, "CLS", true},
		{0x00EE, "RET", true},
		{0x0123, "SYS $123", true},
		{0x12A0, "JP $2A0", true},
		{0x2300, "CALL $300", true},
		{0x3142, "SE V1, $42", true},
		{0x4142, "SNE V1, $42", true},
		{0x5120, "SE V1, V2", true},
		{0x5121, ".WORD $5121", false},
		{0x610F, "LD V1, $0F", true},
		{0x7E01, "ADD VE, $01", true},
		{0x8120, "LD V1, V2", true},
		{0x8124, "ADD V1, V2", true},
		{0x8126, "SHR V1, V2", true},
		{0x812E, "SHL V1, V2", true},
		{0x8128, ".WORD $8128", false},
		{0x9120, "SNE V1, V2", true},
		{0x9121, ".WORD $9121", false},
		{0xA250, "LD I, $250", true},
		{0xB300, "JP V0, $300", true},
		{0xC50F, "RND V5, $0F", true},
		{0xD015, "DRW V0, V1, $5", true},
		{0xE59E, "SKP V5", true},
		{0xE5A1, "SKNP V5", true},
		{0xE5FF, ".WORD $E5FF", false},
		{0xF407, "LD V4, DT", true},
		{0xF40A, "LD V4, K", true},
		{0xF415, "LD DT, V4", true},
		{0xF418, "LD ST, V4", true},
		{0xF41E, "ADD I, V4", true},
		{0xF429, "LD F, V4", true},
		{0xF433, "LD B, V4", true},
		{0xF455, "LD [I], V4", true},
		{0xF465, "LD V4, [I]", true},
		{0xF4FF, ".WORD $F4FF", false},
	}

	for _, test := range tests {
		text, ok := disassembler.Disassemble(test.Opcode)
		assert.Equal(t, test.Text, text)
		assert.Equal(t, test.Ok, ok, test.Text)
	}
}

// Every opcode must assemble back to itself
func TestRoundTrip(t *testing.T) {
	const chunk = (assembler.MEMORY_SIZE - assembler.PROGRAM_START) / 2

	for start := 0; start <= 0xFFFF; start += chunk {
		var source strings.Builder
		var want []byte

		for opcode := start; opcode < start+chunk && opcode <= 0xFFFF; opcode++ {
			text, _ := disassembler.Disassemble(uint16(opcode))

			source.WriteString(text)
			source.WriteByte('\n')

			want = append(want, byte(opcode>>8), byte(opcode&0xFF))
		}

		result, errs := assembler.AssembleChip8Source(
			strings.NewReader(source.String()), nil,
		)

		assert.Equal(t, 0, len(errs))

		if len(errs) > 0 {
			t.Fatal(errs[0])
		}

		assert.Equal(t, want, result)
	}
}
