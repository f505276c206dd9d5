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

package debugger

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/lassandro/gochip8/pkg/disassembler"
	"github.com/lassandro/gochip8/pkg/machine"
)

func (dbg *Debugger) out() io.Writer {
	if dbg.Out == nil {
		return os.Stdout
	}

	return dbg.Out
}

func (dbg *Debugger) Step(mc *machine.Machine) {
	if dbg.HandleBreak == nil {
		return
	}

	if dbg.Break.Load() {
		dbg.HandleBreak(dbg, mc)
		return
	}

	for _, breakpoint := range dbg.Breakpoints {
		if mc.State.Program == breakpoint.Addr {
			dbg.HandleBreak(dbg, mc)
			break
		}
	}
}

func (dbg *Debugger) Read(addr uint16, mc *machine.Machine) {
	if dbg.HandleRead == nil {
		return
	}

	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Type == WriteWatch {
			continue
		}

		if addr == watchpoint.Addr {
			dbg.HandleRead(addr, dbg, mc)
			break
		}
	}
}

func (dbg *Debugger) Write(addr uint16, mc *machine.Machine) {
	if dbg.HandleWrite == nil {
		return
	}

	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Type == ReadWatch {
			continue
		}

		if addr == watchpoint.Addr {
			dbg.HandleWrite(addr, dbg, mc)
			break
		}
	}
}

// Returns false if the breakpoint already exists
func (dbg *Debugger) AddBreakpoint(addr uint16) bool {
	for _, breakpoint := range dbg.Breakpoints {
		if breakpoint.Addr == addr {
			return false
		}
	}

	dbg.Breakpoints = append(dbg.Breakpoints, Breakpoint{addr})

	return true
}

// Returns false if an identical watchpoint already exists
func (dbg *Debugger) AddWatchpoint(addr uint16, wtype WatchpointType) bool {
	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Addr == addr && watchpoint.Type == wtype {
			return false
		}
	}

	dbg.Watchpoints = append(dbg.Watchpoints, Watchpoint{addr, wtype})

	return true
}

// Reloads the binary the debugger was started with
func (dbg *Debugger) Reset(mc *machine.Machine) error {
	dbg.Break.Store(false)
	return mc.LoadBin(bytes.NewReader(dbg.Binary))
}

// Prints count source lines starting at addr, disassembling from memory when
// no symbol table is loaded
func (dbg *Debugger) PrintSource(mc *machine.MachineState, addr, count uint16) {
	out := dbg.out()

	if dbg.Source == nil || dbg.SymTable == nil {
		dbg.PrintDisassembly(mc, addr, count)
		return
	}

	offset, exists := dbg.SymTable.Symbols[addr]

	if !exists {
		fmt.Fprintf(out, "No instruction found at 0x%03x\n", addr)
		return
	}

	if _, err := dbg.Source.Seek(offset, io.SeekStart); err != nil {
		fmt.Fprintln(out, err)
		return
	}

	scanner := bufio.NewScanner(dbg.Source)
	scanner.Split(bufio.ScanLines)

	for i := uint16(0); i < count; i++ {
		if !scanner.Scan() {
			break
		}

		line := scanner.Text()

		foundaddr := false
		for lineaddr, linebyte := range dbg.SymTable.Symbols {
			if linebyte == offset {
				fmt.Fprintf(out, "\033[1m[0x%03x]\033[0m ", lineaddr)
				foundaddr = true
				break
			}
		}

		if !foundaddr {
			fmt.Fprint(out, "\033[1;30m~~~~~~~~\033[0m ")
		}

		fmt.Fprintln(out, line)

		offset += int64(len(line) + 1)
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintln(out, err)
	}
}

func (dbg *Debugger) PrintDisassembly(mc *machine.MachineState, addr, count uint16) {
	out := dbg.out()

	for i := uint16(0); i < count; i++ {
		at := (addr + i*2) & machine.MEMORY_MASK
		opcode := uint16(mc.Memory[at])<<8 |
			uint16(mc.Memory[(at+1)&machine.MEMORY_MASK])

		text, ok := disassembler.Disassemble(opcode)

		label := ""
		if dbg.SymTable != nil {
			if name, exists := dbg.SymTable.Labels[at]; exists {
				label = name + ":"
			}
		}

		marker := " "
		if at == mc.Program {
			marker = ">"
		}

		// No-op words are dimmed
		if !ok {
			text = "\033[1;30m" + text + "\033[0m"
		}

		fmt.Fprintf(
			out,
			"%s\033[1m[0x%03x]\033[0m %04X  %-8s %s\n",
			marker,
			at,
			opcode,
			label,
			text,
		)
	}
}

func (dbg *Debugger) PrintMem(mc *machine.MachineState, addr, count uint16) {
	out := dbg.out()

	for i := uint16(0); i < count; i++ {
		at := (addr + i) & machine.MEMORY_MASK

		if i == 0 {
			fmt.Fprintf(out, "\033[1m[0x%03x]\033[0m ", at)
		} else if i%8 == 0 {
			fmt.Fprintln(out)
			fmt.Fprintf(out, "\033[1m[0x%03x]\033[0m ", at)
		}

		result := mc.Memory[at]

		if result == 0 {
			fmt.Fprintf(out, "\033[1;30m0x%02x\033[0m ", result)
		} else {
			fmt.Fprintf(out, "0x%02x ", result)
		}
	}

	fmt.Fprintln(out)
}

func (dbg *Debugger) PrintDisplay(mc *machine.MachineState) {
	out := dbg.out()

	for y := range mc.Display {
		for x := range mc.Display[y] {
			if mc.Display[y][x] {
				fmt.Fprint(out, "#")
			} else {
				fmt.Fprint(out, ".")
			}
		}

		fmt.Fprintln(out)
	}
}

func (dbg *Debugger) PrintKeys(mc *machine.MachineState) {
	out := dbg.out()

	for key, pressed := range mc.Keys {
		if pressed {
			fmt.Fprintf(out, "\033[1m%X\033[0m ", key)
		} else {
			fmt.Fprintf(out, "\033[1;30m%X\033[0m ", key)
		}
	}

	fmt.Fprintln(out)
}
