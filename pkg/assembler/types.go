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

package assembler

import (
	"fmt"
	"strings"
)

type LiteralType uint
type TokenType uint
type OperandType uint
type InstructionType uint
type DirectiveType uint

type Cursor struct {
	Line     int
	Column   int
	Byte     int64
	Size     int64
	LineByte int64
}

type Token struct {
	Type     TokenType
	Position Cursor
	Value    string
}

type Operand struct {
	Type  OperandType
	Value uint16
	Token *Token
}

// SymTable maps assembled addresses back to source for the debugger
type SymTable struct {
	Source  string
	Symbols map[uint16]int64
	Labels  map[uint16]string
}

func NewSymTable(source string) *SymTable {
	return &SymTable{
		Source:  source,
		Symbols: make(map[uint16]int64),
		Labels:  make(map[uint16]string),
	}
}

// Returns the address of label, if known
func (st *SymTable) Lookup(label string) (uint16, bool) {
	for addr, name := range st.Labels {
		if name == label {
			return addr, true
		}
	}

	return 0, false
}

type TokenError interface {
	GetPosition() Cursor
}

// Errors embed the cursor of the token they refer to
func (cursor Cursor) GetPosition() Cursor {
	return cursor
}

func (cursor Cursor) String() string {
	return fmt.Sprintf("%02d:%02d", cursor.Line, cursor.Column)
}

func (tokenType TokenType) String() string {
	switch tokenType {
	case TOKEN_IDENT:
		return "identifier"
	case TOKEN_DIRECTIVE:
		return "directive"
	case TOKEN_LITERAL:
		return "literal"
	case TOKEN_LABEL:
		return "label"
	default:
		return "<invalid>"
	}
}

type InvalidOperandError struct {
	Cursor
	Required []TokenType
	Received TokenType
}

func (err *InvalidOperandError) Error() string {
	names := make([]string, len(err.Required))

	for i, tokenType := range err.Required {
		names[i] = tokenType.String()
	}

	return fmt.Sprintf(
		"%s: Invalid operand\n\twant:%s\n\thave:%s",
		err.Cursor,
		strings.Join(names, " or "),
		err.Received,
	)
}

type UnsupportedOperandsError struct {
	Cursor
	Instruction string
}

func (err *UnsupportedOperandsError) Error() string {
	return fmt.Sprintf(
		"%s: %s has no form taking these operands",
		err.Cursor,
		strings.ToUpper(err.Instruction),
	)
}

type InvalidNumArgumentsError struct {
	Cursor
	Required int
	Received int
}

func (err *InvalidNumArgumentsError) Error() string {
	return fmt.Sprintf(
		"%s: Wrong number of operands\n\twant:%d\n\thave:%d",
		err.Cursor,
		err.Required,
		err.Received,
	)
}

type OversizedLabelError struct {
	Cursor
	Required uint16
	Received uint16
}

func (err *OversizedLabelError) Error() string {
	return fmt.Sprintf(
		"%s: Label lies outside 12-bit address space\n\twant:<=0x%03x\n\thave:0x%03x",
		err.Cursor,
		err.Required,
		err.Received,
	)
}

type InvalidLiteralError struct {
	Cursor
}

func (err *InvalidLiteralError) Error() string {
	return fmt.Sprintf("%s: Malformed numeric literal", err.Cursor)
}

// Required and Received are int16 for negative literals, uint16 otherwise
type OversizedLiteralError struct {
	Cursor
	Required interface{}
	Received interface{}
}

func (err *OversizedLiteralError) Error() string {
	return fmt.Sprintf(
		"%s: Literal out of range for this field\n\twant:%d\n\thave:%d",
		err.Cursor,
		err.Required,
		err.Received,
	)
}

type InvalidRegisterError struct {
	Cursor
}

func (err *InvalidRegisterError) Error() string {
	return fmt.Sprintf("%s: Register not allowed here, only V0", err.Cursor)
}

type UnexpectedCharacterError struct {
	Cursor
	Received rune
}

func (err *UnexpectedCharacterError) Error() string {
	return fmt.Sprintf("%s: Unexpected character '%c'", err.Cursor, err.Received)
}

type OversizedCharacterError struct {
	Cursor
}

func (err *OversizedCharacterError) Error() string {
	return fmt.Sprintf("%s: Non-ASCII character", err.Cursor)
}

type RedeclaredLabelError struct {
	Cursor
	Received string
}

func (err *RedeclaredLabelError) Error() string {
	return fmt.Sprintf("%s: Label '%s' already declared", err.Cursor, err.Received)
}

type ReservedLabelError struct {
	Cursor
	Received string
}

func (err *ReservedLabelError) Error() string {
	return fmt.Sprintf(
		"%s: '%s' is a reserved name and cannot label an address",
		err.Cursor,
		err.Received,
	)
}

type UnknownLabelError struct {
	Cursor
	Received string
}

func (err *UnknownLabelError) Error() string {
	return fmt.Sprintf("%s: Undefined label '%s'", err.Cursor, err.Received)
}

type UnknownIdentifierError struct {
	Cursor
	Received string
}

func (err *UnknownIdentifierError) Error() string {
	return fmt.Sprintf(
		"%s: '%s' is neither an instruction nor a directive",
		err.Cursor,
		err.Received,
	)
}

type InvalidOriginError struct {
	Cursor
	Received uint16
}

func (err *InvalidOriginError) Error() string {
	return fmt.Sprintf(
		"%s: Origin outside program memory\n\twant:0x%03x-0x%03x\n\thave:0x%03x",
		err.Cursor,
		PROGRAM_START,
		MEMORY_SIZE-1,
		err.Received,
	)
}

type OversizedBinaryError struct{}

func (err *OversizedBinaryError) Error() string {
	return "Assembled program does not fit in memory"
}
