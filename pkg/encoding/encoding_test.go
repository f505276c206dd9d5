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

package encoding_test

import (
	"testing"

	"github.com/lassandro/gochip8/pkg/encoding"
	"github.com/retroenv/retrogolib/assert"
)

func TestDecodeLiteral(t *testing.T) {
	tests := []struct {
		Input string
		Want  uint16
	}{
		{"0x2A", 0x2A},
		{"0X2a", 0x2A},
		{"$FFF", 0xFFF},
		{"x10", 0x10},
		{"#42", 42},
		{"42", 42},
		{"0b1010", 0b1010},
		{"-1", 0xFFFF},
		{"#-128", 0xFF80},
	}

	for _, test := range tests {
		have, err := encoding.DecodeLiteral(test.Input)
		assert.NoError(t, err, test.Input)
		assert.Equal(t, test.Want, have, test.Input)
	}

	for _, input := range []string{"", "$", "0x", "0xZZ", "0b2", "#", "65536", "-32769"} {
		_, err := encoding.DecodeLiteral(input)
		assert.True(t, err != nil, input)
	}
}

func TestDecodeHex(t *testing.T) {
	_, err := encoding.DecodeHex("123")
	assert.Equal(t, encoding.ErrInvalidHex, err)

	_, err = encoding.DecodeBin("1010")
	assert.Equal(t, encoding.ErrInvalidBin, err)
}

func TestNibbles(t *testing.T) {
	a, b, c, d := encoding.Nibbles(0xD12F)

	assert.Equal(t, uint8(0xD), a)
	assert.Equal(t, uint8(0x1), b)
	assert.Equal(t, uint8(0x2), c)
	assert.Equal(t, uint8(0xF), d)
}

func TestBCD(t *testing.T) {
	assert.Equal(t, [3]uint8{2, 5, 5}, encoding.BCD(255))
	assert.Equal(t, [3]uint8{0, 0, 7}, encoding.BCD(7))
	assert.Equal(t, [3]uint8{1, 0, 0}, encoding.BCD(100))
}
