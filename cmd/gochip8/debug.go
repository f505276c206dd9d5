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

package main

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/bradleyjkemp/memviz"
	"github.com/lassandro/gochip8/pkg/debugger"
	"github.com/lassandro/gochip8/pkg/encoding"
	"github.com/lassandro/gochip8/pkg/machine"
)

var lastcmd []string

// Accepts a hex address or, with a symbol table loaded, a label
func debugAddr(dbg *debugger.Debugger, arg string) (uint16, error) {
	if dbg.SymTable != nil {
		if addr, exists := dbg.SymTable.Lookup(arg); exists {
			return addr, nil
		}
	}

	addr, err := encoding.DecodeHex(arg)

	if err != nil {
		return 0, err
	}

	return addr & machine.MEMORY_MASK, nil
}

func indexFormat(count int, suffix string) string {
	digits := math.Floor(math.Log10(float64(count + 1)))
	return fmt.Sprintf("#%%0%dd: %s\n", int64(digits)+1, suffix)
}

func debugBreak(dbg *debugger.Debugger, args []string) {
	if len(args) == 0 {
		args = append(args, "l")
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "a", "add":
		const usage = "break add [0x###|label]"

		if len(args) != 1 {
			fmt.Println(usage)
			return
		}

		addr, err := debugAddr(dbg, args[0])

		if err != nil {
			fmt.Println(err)
			return
		}

		if dbg.AddBreakpoint(addr) {
			fmt.Printf("Breakpoint added [0x%03x]\n", addr)
		}

	case "l", "ls", "list":
		format := indexFormat(len(dbg.Breakpoints), "0x%03x")

		for i, breakpoint := range dbg.Breakpoints {
			fmt.Printf(format, i, breakpoint.Addr)
		}

	case "r", "rm", "remove":
		const usage = "break remove [#]"

		if len(args) != 1 {
			fmt.Println(usage)
			return
		}

		i, err := strconv.Atoi(args[0])

		if err != nil {
			fmt.Println(err)
			return
		}

		if i < 0 || i >= len(dbg.Breakpoints) {
			fmt.Println("Invalid breakpoint number")
			return
		}

		dbg.Breakpoints = append(dbg.Breakpoints[:i], dbg.Breakpoints[i+1:]...)
		fmt.Printf("Breakpoint removed [%d]\n", i)

	case "clear":
		dbg.Breakpoints = nil
		fmt.Println("Breakpoints reset")

	default:
		fmt.Printf("break: '%s' is not a valid command\n", cmd)
	}
}

func debugWatch(dbg *debugger.Debugger, args []string) {
	if len(args) == 0 {
		args = append(args, "l")
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "a", "add":
		const usage = "watch add [0x###|label] [read|write|readwrite]"

		if len(args) != 2 {
			fmt.Println(usage)
			return
		}

		addr, err := debugAddr(dbg, args[0])

		if err != nil {
			fmt.Println(err)
			return
		}

		var wtype debugger.WatchpointType

		switch args[1] {
		case "r", "read":
			wtype = debugger.ReadWatch
		case "w", "write":
			wtype = debugger.WriteWatch
		case "rw", "rwrite", "readwrite":
			wtype = debugger.ReadWriteWatch
		default:
			fmt.Println(usage)
			return
		}

		if dbg.AddWatchpoint(addr, wtype) {
			fmt.Printf("Watchpoint added [0x%03x] (%s)\n", addr, wtype)
		}

	case "l", "ls", "list":
		format := indexFormat(len(dbg.Watchpoints), "0x%03x %s")

		for i, watchpoint := range dbg.Watchpoints {
			fmt.Printf(format, i, watchpoint.Addr, watchpoint.Type)
		}

	case "r", "rm", "remove":
		const usage = "watch remove [#]"

		if len(args) != 1 {
			fmt.Println(usage)
			return
		}

		i, err := strconv.Atoi(args[0])

		if err != nil {
			fmt.Println(err)
			return
		}

		if i < 0 || i >= len(dbg.Watchpoints) {
			fmt.Println("Invalid watchpoint number")
			return
		}

		dbg.Watchpoints = append(dbg.Watchpoints[:i], dbg.Watchpoints[i+1:]...)
		fmt.Printf("Watchpoint removed [%d]\n", i)

	case "clear":
		dbg.Watchpoints = nil
		fmt.Println("Watchpoints reset")

	default:
		fmt.Printf("watch: '%s' is not a valid command\n", cmd)
	}
}

func debugReg(mc *machine.MachineState, args []string) {
	const usage = "register [V#|I|PC|SP|DT|ST] [value]"

	if len(args) == 0 {
		for i, register := range mc.Registers {
			fmt.Printf("\033[1mV%X:\033[0m 0x%02x\t", i, register)

			if i%8 == 7 {
				fmt.Println()
			}
		}

		fmt.Printf(
			"\033[1mI:\033[0m 0x%03x\t\033[1mPC:\033[0m 0x%03x\t"+
				"\033[1mSP:\033[0m %d\t\033[1mDT:\033[0m %d\t\033[1mST:\033[0m %d\n",
			mc.Index,
			mc.Program,
			mc.StackPointer,
			mc.DelayTimer,
			mc.SoundTimer,
		)

		return
	}

	if len(args) != 2 {
		fmt.Println(usage)
		return
	}

	value, err := encoding.DecodeLiteral(args[1])

	if err != nil {
		fmt.Println(err)
		return
	}

	name := strings.ToUpper(args[0])

	switch {
	case name == "I":
		mc.Index = value
	case name == "PC":
		mc.Program = value & machine.MEMORY_MASK
	case name == "SP":
		if value > machine.STACK_DEPTH {
			fmt.Println("Stack pointer out of range")
			return
		}
		mc.StackPointer = int(value)
	case name == "DT":
		mc.DelayTimer = uint8(value)
	case name == "ST":
		mc.SoundTimer = uint8(value)
	case len(name) == 2 && name[0] == 'V':
		index, err := strconv.ParseUint(name[1:], 16, 8)

		if err != nil {
			fmt.Println("Invalid register")
			return
		}

		mc.Registers[index] = uint8(value)
	default:
		fmt.Println("Invalid register")
		return
	}

	fmt.Printf("\033[1m%s:\033[0m %#x\n", name, value)
}

// Parses the optional [addr|count] [count] argument pair shared by source and
// memory
func debugRange(
	dbg *debugger.Debugger,
	mc *machine.MachineState,
	args []string,
	size uint16,
) (uint16, uint16, error) {
	addr := mc.Program

	if len(args) > 0 {
		var err error

		if addr, err = debugAddr(dbg, args[0]); err != nil {
			value, err := strconv.ParseUint(args[0], 10, 16)

			if err != nil {
				return 0, 0, err
			}

			addr = mc.Program
			size = uint16(value)
		}
	}

	if len(args) > 1 {
		value, err := strconv.ParseUint(args[1], 10, 16)

		if err != nil {
			return 0, 0, err
		}

		size = uint16(value)
	}

	return addr, size, nil
}

func debugSource(dbg *debugger.Debugger, mc *machine.MachineState, args []string) {
	const usage = "source [0x###|label] [#]"

	if len(args) > 2 {
		fmt.Println(usage)
		return
	}

	addr, size, err := debugRange(dbg, mc, args, 3)

	if err != nil {
		fmt.Println(err)
		return
	}

	dbg.PrintSource(mc, addr, size)
}

func debugLabels(dbg *debugger.Debugger, args []string) {
	const usage = "labels"

	if len(args) > 0 {
		fmt.Println(usage)
		return
	}

	if dbg.SymTable == nil {
		fmt.Println("No symbol table loaded")
		return
	}

	keys := make([]uint16, 0, len(dbg.SymTable.Labels))
	for addr := range dbg.SymTable.Labels {
		keys = append(keys, addr)
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, addr := range keys {
		fmt.Printf(
			"\033[1m[0x%03x]\033[0m %s\n", addr, dbg.SymTable.Labels[addr],
		)
	}
}

func debugJump(dbg *debugger.Debugger, mc *machine.MachineState, args []string) {
	const usage = "jump [0x###|label]"

	if len(args) != 1 {
		fmt.Println(usage)
		return
	}

	addr, err := debugAddr(dbg, args[0])

	if err != nil {
		fmt.Printf("Unable to find '%s'\n", args[0])
		return
	}

	mc.Program = addr
	fmt.Printf("\033[1mPC:\033[0m 0x%03x\n", addr)
}

func debugMemory(dbg *debugger.Debugger, mc *machine.MachineState, args []string) {
	const usage = "memory [0x###|label|#] [#]"

	if len(args) > 2 {
		fmt.Println(usage)
		return
	}

	addr, size, err := debugRange(dbg, mc, args, 1)

	if err != nil {
		fmt.Println(err)
		return
	}

	dbg.PrintMem(mc, addr, size)
}

func debugSet(dbg *debugger.Debugger, mc *machine.MachineState, args []string) {
	const usage = "set [0x###|label] [value]"

	if len(args) != 2 {
		fmt.Println(usage)
		return
	}

	addr, err := debugAddr(dbg, args[0])

	if err != nil {
		fmt.Println(err)
		return
	}

	value, err := encoding.DecodeLiteral(args[1])

	if err != nil {
		fmt.Println(err)
		return
	}

	if value > 0xFF {
		fmt.Println("Value does not fit in a byte")
		return
	}

	mc.Memory[addr] = uint8(value)
	dbg.PrintMem(mc, addr, 1)
}

// Writes a graphviz description of the machine state
func debugDump(mc *machine.MachineState, args []string) {
	const usage = "dump [file.dot]"

	if len(args) > 1 {
		fmt.Println(usage)
		return
	}

	var out io.Writer = os.Stdout

	if len(args) == 1 {
		file, err := os.Create(args[0])

		if err != nil {
			fmt.Println(err)
			return
		}

		defer file.Close()
		out = file
	}

	memviz.Map(out, mc)

	if len(args) == 1 {
		fmt.Printf("Machine state written to %s\n", args[0])
	}
}

func debugREPL(dbg *debugger.Debugger, mc *machine.Machine) {
	suspendFrontend()
	defer resumeFrontend()

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("\033[1;30m(dbg)\033[0m ")

		if !scanner.Scan() {
			fmt.Println()
			shouldexit = true
			return
		}

		args := strings.Fields(scanner.Text())

		if len(args) == 0 {
			if len(lastcmd) == 0 {
				continue
			}
			args = lastcmd
		} else {
			lastcmd = make([]string, len(args))
			copy(lastcmd, args)
		}

		cmd := args[0]
		args = args[1:]

		switch cmd {
		case "b", "bp", "break", "breakpoint":
			debugBreak(dbg, args)

		case "w", "wp", "watch", "watchpoint":
			debugWatch(dbg, args)

		case "r", "reg", "register", "registers":
			debugReg(&mc.State, args)

		case "s", "src", "source":
			debugSource(dbg, &mc.State, args)

		case "l", "label", "labels":
			debugLabels(dbg, args)

		case "j", "jmp", "jump":
			debugJump(dbg, &mc.State, args)

		case "m", "mem", "memory":
			debugMemory(dbg, &mc.State, args)

		case "set":
			debugSet(dbg, &mc.State, args)

		case "d", "display":
			dbg.PrintDisplay(&mc.State)

		case "k", "keys":
			dbg.PrintKeys(&mc.State)

		case "dump":
			debugDump(&mc.State, args)

		case "c", "continue":
			dbg.Break.Store(false)
			return

		case "n", "next":
			dbg.Break.Store(true)
			return

		case "q", "quit", "exit":
			shouldexit = true
			return

		case "clear":
			fmt.Print("\033[H\033[2J")

		case "reset":
			if err := dbg.Reset(mc); err != nil {
				fmt.Println(err)
			} else {
				fmt.Println("Machine reset")
			}

		default:
			fmt.Printf("error: '%s' is not a valid command\n", cmd)
		}
	}
}

func handleBreak(dbg *debugger.Debugger, mc *machine.Machine) {
	if shouldexit {
		return
	}

	if !dbg.Break.Load() {
		fmt.Println()
		fmt.Println("Program stopped")
	}

	dbg.PrintSource(&mc.State, mc.State.Program, 8)
	debugREPL(dbg, mc)
}

func handleRead(addr uint16, dbg *debugger.Debugger, mc *machine.Machine) {
	handleAccess("read", addr, dbg, mc)
}

func handleWrite(addr uint16, dbg *debugger.Debugger, mc *machine.Machine) {
	handleAccess("write", addr, dbg, mc)
}

func handleAccess(kind string, addr uint16, dbg *debugger.Debugger, mc *machine.Machine) {
	if shouldexit {
		return
	}

	fmt.Println()
	fmt.Printf("Program stopped on %s\n", kind)
	dbg.PrintMem(&mc.State, addr, 1)
	debugREPL(dbg, mc)
}
