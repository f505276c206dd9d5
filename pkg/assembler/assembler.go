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
	"bufio"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/lassandro/gochip8/pkg/encoding"
)

type field uint

const (
	FIELD_NONE field = iota
	FIELD_X
	FIELD_Y
	FIELD_XY // single register used as both X and Y
	FIELD_V0 // register operand that must be V0
	FIELD_NIBBLE
	FIELD_BYTE
	FIELD_ADDR
)

type form struct {
	Operands []OperandType
	Fields   []field
	Opcode   uint16
}

var forms = map[InstructionType][]form{
	INSTRUCTION_CLS: {
		{nil, nil, 0x00E0},
	},
	INSTRUCTION_RET: {
		{nil, nil, 0x00EE},
	},
	INSTRUCTION_SYS: {
		{[]OperandType{OPERAND_LITERAL}, []field{FIELD_ADDR}, 0x0000},
	},
	INSTRUCTION_JP: {
		{[]OperandType{OPERAND_LITERAL}, []field{FIELD_ADDR}, 0x1000},
		{
			[]OperandType{OPERAND_REGISTER, OPERAND_LITERAL},
			[]field{FIELD_V0, FIELD_ADDR},
			0xB000,
		},
	},
	INSTRUCTION_CALL: {
		{[]OperandType{OPERAND_LITERAL}, []field{FIELD_ADDR}, 0x2000},
	},
	INSTRUCTION_SE: {
		{
			[]OperandType{OPERAND_REGISTER, OPERAND_LITERAL},
			[]field{FIELD_X, FIELD_BYTE},
			0x3000,
		},
		{
			[]OperandType{OPERAND_REGISTER, OPERAND_REGISTER},
			[]field{FIELD_X, FIELD_Y},
			0x5000,
		},
	},
	INSTRUCTION_SNE: {
		{
			[]OperandType{OPERAND_REGISTER, OPERAND_LITERAL},
			[]field{FIELD_X, FIELD_BYTE},
			0x4000,
		},
		{
			[]OperandType{OPERAND_REGISTER, OPERAND_REGISTER},
			[]field{FIELD_X, FIELD_Y},
			0x9000,
		},
	},
	INSTRUCTION_LD: {
		{
			[]OperandType{OPERAND_REGISTER, OPERAND_LITERAL},
			[]field{FIELD_X, FIELD_BYTE},
			0x6000,
		},
		{
			[]OperandType{OPERAND_REGISTER, OPERAND_REGISTER},
			[]field{FIELD_X, FIELD_Y},
			0x8000,
		},
		{
			[]OperandType{OPERAND_INDEX, OPERAND_LITERAL},
			[]field{FIELD_NONE, FIELD_ADDR},
			0xA000,
		},
		{
			[]OperandType{OPERAND_REGISTER, OPERAND_DELAY},
			[]field{FIELD_X, FIELD_NONE},
			0xF007,
		},
		{
			[]OperandType{OPERAND_REGISTER, OPERAND_KEY},
			[]field{FIELD_X, FIELD_NONE},
			0xF00A,
		},
		{
			[]OperandType{OPERAND_DELAY, OPERAND_REGISTER},
			[]field{FIELD_NONE, FIELD_X},
			0xF015,
		},
		{
			[]OperandType{OPERAND_SOUND, OPERAND_REGISTER},
			[]field{FIELD_NONE, FIELD_X},
			0xF018,
		},
		{
			[]OperandType{OPERAND_FONT, OPERAND_REGISTER},
			[]field{FIELD_NONE, FIELD_X},
			0xF029,
		},
		{
			[]OperandType{OPERAND_BCD, OPERAND_REGISTER},
			[]field{FIELD_NONE, FIELD_X},
			0xF033,
		},
		{
			[]OperandType{OPERAND_INDIRECT, OPERAND_REGISTER},
			[]field{FIELD_NONE, FIELD_X},
			0xF055,
		},
		{
			[]OperandType{OPERAND_REGISTER, OPERAND_INDIRECT},
			[]field{FIELD_X, FIELD_NONE},
			0xF065,
		},
	},
	INSTRUCTION_ADD: {
		{
			[]OperandType{OPERAND_REGISTER, OPERAND_LITERAL},
			[]field{FIELD_X, FIELD_BYTE},
			0x7000,
		},
		{
			[]OperandType{OPERAND_REGISTER, OPERAND_REGISTER},
			[]field{FIELD_X, FIELD_Y},
			0x8004,
		},
		{
			[]OperandType{OPERAND_INDEX, OPERAND_REGISTER},
			[]field{FIELD_NONE, FIELD_X},
			0xF01E,
		},
	},
	INSTRUCTION_OR:   aluForms(0x8001),
	INSTRUCTION_AND:  aluForms(0x8002),
	INSTRUCTION_XOR:  aluForms(0x8003),
	INSTRUCTION_SUB:  aluForms(0x8005),
	INSTRUCTION_SUBN: aluForms(0x8007),
	INSTRUCTION_SHR:  shiftForms(0x8006),
	INSTRUCTION_SHL:  shiftForms(0x800E),
	INSTRUCTION_RND: {
		{
			[]OperandType{OPERAND_REGISTER, OPERAND_LITERAL},
			[]field{FIELD_X, FIELD_BYTE},
			0xC000,
		},
	},
	INSTRUCTION_DRW: {
		{
			[]OperandType{OPERAND_REGISTER, OPERAND_REGISTER, OPERAND_LITERAL},
			[]field{FIELD_X, FIELD_Y, FIELD_NIBBLE},
			0xD000,
		},
	},
	INSTRUCTION_SKP: {
		{[]OperandType{OPERAND_REGISTER}, []field{FIELD_X}, 0xE09E},
	},
	INSTRUCTION_SKNP: {
		{[]OperandType{OPERAND_REGISTER}, []field{FIELD_X}, 0xE0A1},
	},
}

func aluForms(opcode uint16) []form {
	return []form{
		{
			[]OperandType{OPERAND_REGISTER, OPERAND_REGISTER},
			[]field{FIELD_X, FIELD_Y},
			opcode,
		},
	}
}

// SHR Vx is shorthand for SHR Vx, Vx
func shiftForms(opcode uint16) []form {
	return []form{
		{[]OperandType{OPERAND_REGISTER}, []field{FIELD_XY}, opcode},
		{
			[]OperandType{OPERAND_REGISTER, OPERAND_REGISTER},
			[]field{FIELD_X, FIELD_Y},
			opcode,
		},
	}
}

func parseDirective(ident string) DirectiveType {
	return directives[strings.ToUpper(ident)]
}

func parseInstruction(ident string) InstructionType {
	return instructions[strings.ToUpper(ident)]
}

func parseRegister(token *Token) (uint16, bool) {
	ident := token.Value

	if len(ident) != 2 || (ident[0] != 'V' && ident[0] != 'v') {
		return 0, false
	}

	reg, err := strconv.ParseUint(ident[1:], 16, 8)

	if err != nil {
		return 0, false
	}

	return uint16(reg), true
}

// Negative decimals are accepted down to the signed minimum of the field
func parseLiteral(token *Token, bits LiteralType) (uint16, error) {
	result, err := encoding.DecodeLiteral(token.Value)

	if err != nil {
		return 0, &InvalidLiteralError{token.Position}
	}

	if bits >= 16 {
		return result, nil
	}

	limit := uint16(1) << bits

	if strings.Contains(token.Value, "-") {
		if int16(result) < -int16(limit/2) {
			return 0, &OversizedLiteralError{
				token.Position, -int16(limit / 2), int16(result),
			}
		}

		return result & (limit - 1), nil
	}

	if result >= limit {
		return 0, &OversizedLiteralError{token.Position, limit - 1, result}
	}

	return result, nil
}

func parseOperand(token *Token) (Operand, error) {
	switch token.Type {
	case TOKEN_LITERAL:
		return Operand{Type: OPERAND_LITERAL, Token: token}, nil

	case TOKEN_IDENT:
		if reg, ok := parseRegister(token); ok {
			return Operand{Type: OPERAND_REGISTER, Value: reg, Token: token}, nil
		}

		if special, ok := specialOperands[strings.ToUpper(token.Value)]; ok {
			return Operand{Type: special, Token: token}, nil
		}

		return Operand{Type: OPERAND_LABEL, Token: token}, nil
	}

	return Operand{}, &InvalidOperandError{
		token.Position,
		[]TokenType{TOKEN_IDENT, TOKEN_LITERAL},
		token.Type,
	}
}

// Labels stand in for literals only where an address is expected
func (f *form) matches(operands []Operand) bool {
	if len(operands) != len(f.Operands) {
		return false
	}

	for i, operand := range operands {
		want := f.Operands[i]

		if operand.Type == want {
			continue
		}

		if operand.Type == OPERAND_LABEL && f.Fields[i] == FIELD_ADDR {
			continue
		}

		return false
	}

	return true
}

func tokenize(line string, cursor Cursor) (tokens []Token, errs []error) {
	var builder strings.Builder
	var tokenType TokenType = TOKEN_NONE
	var tokenStart int

	flush := func() {
		if builder.Len() > 0 {
			tokens = append(tokens, Token{
				Type: tokenType,
				Position: Cursor{
					Line:     cursor.Line,
					Column:   tokenStart,
					Byte:     cursor.LineByte + int64(tokenStart-1),
					Size:     int64(builder.Len()),
					LineByte: cursor.LineByte,
				},
				Value: builder.String(),
			})
			builder.Reset()
		}

		tokenType = TOKEN_NONE
	}

	for offset, char := range line {
		position := cursor
		position.Column = offset + 1
		position.Byte = cursor.LineByte + int64(offset)
		position.Size = 1

		if tokenType == TOKEN_NONE {
			tokenStart = position.Column
		}

		switch {
		// Whitespace and operand separators
		case unicode.IsSpace(char), char == ',':
			flush()
			continue

		// Comments
		case char == ';':
			flush()
			return

		// Optional label terminator
		case char == ':':
			if tokenType != TOKEN_IDENT {
				errs = append(errs, &UnexpectedCharacterError{position, char})
			} else {
				tokenType = TOKEN_LABEL
			}

			flush()
			continue

		case char > unicode.MaxASCII:
			errs = append(errs, &OversizedCharacterError{position})
			continue

		// Assembler Directives
		case char == '.':
			if tokenType != TOKEN_NONE {
				errs = append(errs, &UnexpectedCharacterError{position, char})
				continue
			}

			tokenType = TOKEN_DIRECTIVE

		// Literal prefixes (i.e. $2A, #42, -1, #-1)
		case char == '$', char == '#', char == '-':
			if char == '-' && tokenType == TOKEN_LITERAL && builder.String() == "#" {
				break
			}

			if tokenType != TOKEN_NONE {
				errs = append(errs, &UnexpectedCharacterError{position, char})
				continue
			}

			tokenType = TOKEN_LITERAL

		// Numeric Literal
		case unicode.IsDigit(char):
			if tokenType == TOKEN_NONE {
				tokenType = TOKEN_LITERAL
			}

		// Indirect index operand [I]
		case char == '[':
			if tokenType != TOKEN_NONE {
				errs = append(errs, &UnexpectedCharacterError{position, char})
				continue
			}

			tokenType = TOKEN_IDENT

		case char == ']':
			if tokenType != TOKEN_IDENT {
				errs = append(errs, &UnexpectedCharacterError{position, char})
				continue
			}

		// Identifier
		case char == '_', unicode.IsLetter(char):
			if tokenType == TOKEN_NONE {
				tokenType = TOKEN_IDENT
			}

		default:
			errs = append(errs, &UnexpectedCharacterError{position, char})
			continue
		}

		builder.WriteRune(char)
	}

	flush()

	return
}

type labelRef struct {
	Label    string
	Addr     uint16
	Size     LiteralType
	Position Cursor
}

type assembly struct {
	memory    [MEMORY_SIZE]byte
	program   uint32
	end       uint32
	labels    map[string]uint16
	labelRefs []labelRef
	symtable  *SymTable
	errs      []error
}

func (asm *assembly) emit(value byte) {
	if asm.program < MEMORY_SIZE {
		asm.memory[asm.program] = value
	}

	asm.program++

	if asm.program > asm.end {
		asm.end = asm.program
	}
}

func (asm *assembly) emitWord(value uint16) {
	asm.emit(byte(value >> 8))
	asm.emit(byte(value & 0xFF))
}

func (asm *assembly) symbol(cursor Cursor) {
	if asm.symtable != nil && asm.program < MEMORY_SIZE {
		asm.symtable.Symbols[uint16(asm.program)] = cursor.LineByte
	}
}

// Labels may not shadow mnemonics, registers or special operands
func reservedName(name string) bool {
	if parseInstruction(name) != INSTRUCTION_INVALID {
		return true
	}

	token := Token{Type: TOKEN_IDENT, Value: name}

	if _, ok := parseRegister(&token); ok {
		return true
	}

	_, ok := specialOperands[strings.ToUpper(name)]

	return ok
}

// Returns true once .END is reached
func (asm *assembly) assembleLine(tokens []Token, cursor Cursor) bool {
	index := 0

	if tokens[0].Type == TOKEN_LABEL || (tokens[0].Type == TOKEN_IDENT &&
		parseInstruction(tokens[0].Value) == INSTRUCTION_INVALID) {
		label := &tokens[0]

		if reservedName(label.Value) {
			asm.errs = append(
				asm.errs, &ReservedLabelError{label.Position, label.Value},
			)
		} else if _, exists := asm.labels[label.Value]; !exists {
			asm.labels[label.Value] = uint16(asm.program)
		} else {
			asm.errs = append(
				asm.errs, &RedeclaredLabelError{label.Position, label.Value},
			)
		}

		// No need to assemble label-only statements
		if len(tokens) == 1 {
			return false
		}

		index = 1
	}

	keyword := &tokens[index]
	operands := tokens[index+1:]

	switch keyword.Type {
	case TOKEN_DIRECTIVE:
		directive := parseDirective(keyword.Value)

		if directive == DIRECTIVE_INVALID {
			asm.errs = append(
				asm.errs,
				&UnknownIdentifierError{keyword.Position, keyword.Value},
			)

			return false
		}

		return asm.assembleDirective(directive, keyword, operands, cursor)

	case TOKEN_IDENT:
		instruction := parseInstruction(keyword.Value)

		if instruction == INSTRUCTION_INVALID {
			asm.errs = append(
				asm.errs,
				&UnknownIdentifierError{keyword.Position, keyword.Value},
			)

			return false
		}

		asm.assembleInstruction(instruction, keyword, operands, cursor)

	default:
		asm.errs = append(
			asm.errs,
			&InvalidOperandError{
				keyword.Position,
				[]TokenType{TOKEN_IDENT, TOKEN_DIRECTIVE},
				keyword.Type,
			},
		)
	}

	return false
}

func (asm *assembly) assembleInstruction(
	instruction InstructionType,
	keyword *Token,
	tokens []Token,
	cursor Cursor,
) {
	operands := make([]Operand, 0, len(tokens))

	for i := range tokens {
		operand, err := parseOperand(&tokens[i])

		if err != nil {
			asm.errs = append(asm.errs, err)
			return
		}

		operands = append(operands, operand)
	}

	candidates := forms[instruction]

	var match *form
	var arityMatch bool

	for i := range candidates {
		if len(candidates[i].Operands) == len(operands) {
			arityMatch = true
		}

		if candidates[i].matches(operands) {
			match = &candidates[i]
			break
		}
	}

	if match == nil {
		if !arityMatch {
			asm.errs = append(
				asm.errs,
				&InvalidNumArgumentsError{
					keyword.Position,
					len(candidates[0].Operands),
					len(operands),
				},
			)
		} else {
			asm.errs = append(
				asm.errs,
				&UnsupportedOperandsError{keyword.Position, keyword.Value},
			)
		}

		return
	}

	scratch := match.Opcode

	for i, operand := range operands {
		switch match.Fields[i] {
		case FIELD_X:
			scratch |= (operand.Value & 0xF) << 8

		case FIELD_Y:
			scratch |= (operand.Value & 0xF) << 4

		case FIELD_XY:
			scratch |= (operand.Value&0xF)<<8 | (operand.Value&0xF)<<4

		case FIELD_V0:
			if operand.Value != 0 {
				asm.errs = append(
					asm.errs, &InvalidRegisterError{operand.Token.Position},
				)
			}

		case FIELD_NIBBLE, FIELD_BYTE:
			bits := LITERAL_NIBBLE

			if match.Fields[i] == FIELD_BYTE {
				bits = LITERAL_BYTE
			}

			literal, err := parseLiteral(operand.Token, bits)

			if err != nil {
				asm.errs = append(asm.errs, err)
			}

			scratch |= literal

		case FIELD_ADDR:
			if operand.Type == OPERAND_LABEL {
				asm.labelRefs = append(
					asm.labelRefs,
					labelRef{
						operand.Token.Value,
						uint16(asm.program),
						LITERAL_ADDR,
						operand.Token.Position,
					},
				)

				break
			}

			literal, err := parseLiteral(operand.Token, LITERAL_ADDR)

			if err != nil {
				asm.errs = append(asm.errs, err)
			}

			scratch |= literal
		}
	}

	asm.symbol(cursor)
	asm.emitWord(scratch)
}

func (asm *assembly) assembleDirective(
	directive DirectiveType,
	keyword *Token,
	operands []Token,
	cursor Cursor,
) bool {
	requireLiteral := func(token *Token) bool {
		if token.Type != TOKEN_LITERAL {
			asm.errs = append(
				asm.errs,
				&InvalidOperandError{
					token.Position,
					[]TokenType{TOKEN_LITERAL},
					token.Type,
				},
			)

			return false
		}

		return true
	}

	switch directive {
	// .END
	case DIRECTIVE_END:
		if count := len(operands); count != 0 {
			asm.errs = append(
				asm.errs, &InvalidNumArgumentsError{keyword.Position, 0, count},
			)
		}

		return true

	// .ORIG #
	case DIRECTIVE_ORIG:
		if count := len(operands); count != 1 {
			asm.errs = append(
				asm.errs, &InvalidNumArgumentsError{keyword.Position, 1, count},
			)

			break
		}

		if !requireLiteral(&operands[0]) {
			break
		}

		literal, err := parseLiteral(&operands[0], LITERAL_WORD)

		if err != nil {
			asm.errs = append(asm.errs, err)
			break
		}

		if literal < PROGRAM_START || literal >= MEMORY_SIZE {
			asm.errs = append(
				asm.errs, &InvalidOriginError{operands[0].Position, literal},
			)

			break
		}

		asm.program = uint32(literal)

	// .BYTE #[, #...]
	case DIRECTIVE_BYTE:
		if len(operands) == 0 {
			asm.errs = append(
				asm.errs, &InvalidNumArgumentsError{keyword.Position, 1, 0},
			)

			break
		}

		asm.symbol(cursor)

		for i := range operands {
			if !requireLiteral(&operands[i]) {
				asm.emit(0)
				continue
			}

			literal, err := parseLiteral(&operands[i], LITERAL_BYTE)

			if err != nil {
				asm.errs = append(asm.errs, err)
			}

			asm.emit(byte(literal))
		}

	// .WORD #|label
	case DIRECTIVE_WORD:
		if count := len(operands); count != 1 {
			asm.errs = append(
				asm.errs, &InvalidNumArgumentsError{keyword.Position, 1, count},
			)

			break
		}

		asm.symbol(cursor)

		switch operands[0].Type {
		case TOKEN_LITERAL:
			literal, err := parseLiteral(&operands[0], LITERAL_WORD)

			if err != nil {
				asm.errs = append(asm.errs, err)
			}

			asm.emitWord(literal)

		case TOKEN_IDENT:
			asm.labelRefs = append(
				asm.labelRefs,
				labelRef{
					operands[0].Value,
					uint16(asm.program),
					LITERAL_WORD,
					operands[0].Position,
				},
			)

			asm.emitWord(0)

		default:
			asm.errs = append(
				asm.errs,
				&InvalidOperandError{
					operands[0].Position,
					[]TokenType{TOKEN_LITERAL, TOKEN_IDENT},
					operands[0].Type,
				},
			)
		}

	// .BLKB #
	case DIRECTIVE_BLKB:
		if count := len(operands); count != 1 {
			asm.errs = append(
				asm.errs, &InvalidNumArgumentsError{keyword.Position, 1, count},
			)

			break
		}

		if !requireLiteral(&operands[0]) {
			break
		}

		literal, err := parseLiteral(&operands[0], LITERAL_WORD)

		if err != nil {
			asm.errs = append(asm.errs, err)
			break
		}

		asm.program += uint32(literal)

		if asm.program > asm.end {
			asm.end = asm.program
		}
	}

	return false
}

// Patches label references once every label is known
func (asm *assembly) resolve() {
	for _, ref := range asm.labelRefs {
		addr, exists := asm.labels[ref.Label]

		if !exists {
			asm.errs = append(asm.errs, &UnknownLabelError{ref.Position, ref.Label})
			continue
		}

		if int(ref.Addr)+1 >= MEMORY_SIZE {
			continue
		}

		if ref.Size == LITERAL_ADDR {
			if addr >= MEMORY_SIZE {
				asm.errs = append(
					asm.errs,
					&OversizedLabelError{ref.Position, MEMORY_SIZE - 1, addr},
				)

				continue
			}

			asm.memory[ref.Addr] |= byte(addr >> 8)
			asm.memory[ref.Addr+1] |= byte(addr & 0xFF)
		} else {
			asm.memory[ref.Addr] = byte(addr >> 8)
			asm.memory[ref.Addr+1] = byte(addr & 0xFF)
		}
	}

	if asm.symtable != nil {
		for label, addr := range asm.labels {
			asm.symtable.Labels[addr] = label
		}
	}
}

// Assembles CHIP-8 source into a program image loadable at 0x200. Errors are
// collected so that every problem in the source is reported at once.
func AssembleChip8Source(input io.Reader, symtable *SymTable) (result []byte, errs []error) {
	asm := assembly{
		program:  PROGRAM_START,
		end:      PROGRAM_START,
		labels:   make(map[string]uint16),
		symtable: symtable,
		errs:     make([]error, 0),
	}

	var scanner = bufio.NewScanner(input)
	var cursor = Cursor{Line: 1}

	for scanner.Scan() {
		line := scanner.Text()
		lineErrs := len(asm.errs)

		tokens, tokenErrs := tokenize(line, cursor)
		asm.errs = append(asm.errs, tokenErrs...)

		// Pass any potential assembler errors if we already had parser errors
		if len(tokens) > 0 && len(asm.errs) == lineErrs {
			if asm.assembleLine(tokens, cursor) {
				break
			}
		}

		if asm.end > MEMORY_SIZE {
			asm.errs = append(asm.errs, &OversizedBinaryError{})
			return nil, asm.errs
		}

		cursor.Line++
		cursor.LineByte += int64(len(line) + 1)
		cursor.Byte = cursor.LineByte
	}

	if err := scanner.Err(); err != nil {
		asm.errs = append(asm.errs, err)
	}

	asm.resolve()

	return asm.memory[PROGRAM_START:asm.end], asm.errs
}
