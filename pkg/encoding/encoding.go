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

package encoding

import (
	"errors"
	"strconv"
	"strings"
)

var ErrInvalidHex = errors.New("Invalid hex string")
var ErrInvalidBin = errors.New("Invalid binary string")

// Decodes a hexidecimal string in the formats: 0xFFF, xFFF, $FFF
func DecodeHex(s string) (uint16, error) {
	switch {
	case strings.HasPrefix(s, "$"):
		s = s[1:]
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		s = s[2:]
	case strings.HasPrefix(s, "x"), strings.HasPrefix(s, "X"):
		s = s[1:]
	default:
		return 0, ErrInvalidHex
	}

	if len(s) == 0 {
		return 0, ErrInvalidHex
	}

	result, err := strconv.ParseUint(s, 16, 16)

	if err != nil {
		return 0, err
	}

	return uint16(result), nil
}

// Decodes a base-2 string in the format: 0b1010
func DecodeBin(s string) (uint16, error) {
	if !strings.HasPrefix(s, "0b") && !strings.HasPrefix(s, "0B") {
		return 0, ErrInvalidBin
	}

	result, err := strconv.ParseUint(s[2:], 2, 16)

	if err != nil {
		return 0, err
	}

	return uint16(result), nil
}

// Decodes a base-10 string in the formats: #123, 123
func DecodeInt(s string) (int32, error) {
	if i := strings.Index(s, "#"); i == 0 {
		s = s[1:]
	}

	result, err := strconv.ParseInt(s, 10, 32)

	if err != nil {
		return 0, err
	}

	return int32(result), nil
}

// Decodes any literal accepted by DecodeHex, DecodeBin or DecodeInt.
// Negative decimals are returned in two's complement.
func DecodeLiteral(s string) (uint16, error) {
	switch {
	case strings.HasPrefix(s, "0b"), strings.HasPrefix(s, "0B"):
		return DecodeBin(s)

	case strings.ContainsAny(s, "xX$"):
		return DecodeHex(s)
	}

	result, err := DecodeInt(s)

	if err != nil {
		return 0, err
	}

	if result < -0x8000 || result > 0xFFFF {
		return 0, strconv.ErrRange
	}

	return uint16(result), nil
}

// Splits an opcode into its four nibbles, most significant first
func Nibbles(opcode uint16) (uint8, uint8, uint8, uint8) {
	return uint8((opcode & 0xF000) >> 12),
		uint8((opcode & 0x0F00) >> 8),
		uint8((opcode & 0x00F0) >> 4),
		uint8(opcode & 0x000F)
}

// Hundreds, tens and ones of value
func BCD(value uint8) [3]uint8 {
	return [3]uint8{value / 100, (value / 10) % 10, value % 10}
}
