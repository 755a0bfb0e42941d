package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/loader"
)

func newEmulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emulate <image>",
		Short: "Run a program image on the non-pipelined reference emulator",
		Args:  cobra.ExactArgs(1),
		RunE:  runEmulation,
	}

	cmd.Flags().String("done-pc", "", "stop when the PC reaches this address")

	return cmd
}

func runEmulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	dump, err := parseDump(mustString(cmd, "dump"))
	if err != nil {
		return err
	}

	prog, err := loader.Load(args[0])
	if err != nil {
		return fmt.Errorf("failed to load program: %w", err)
	}

	memory := emu.NewMemory()
	prog.LoadIntoMemory(memory)

	emulator := emu.NewEmulator(
		emu.WithMemory(memory),
		emu.WithEntry(prog.EntryPoint),
		emu.WithMaxInstructions(cfg.MaxCycles),
	)

	var runErr error
	if donePC := mustString(cmd, "done-pc"); donePC != "" {
		pc, err := parseAddr(donePC)
		if err != nil {
			return err
		}
		runErr = emulator.RunUntil(pc)
	} else {
		runErr = emulator.Run()
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "\nProgram: %s\n", args[0])
	fmt.Fprintf(w, "Instructions executed: %d\n", emulator.InstructionCount())
	fmt.Fprintf(w, "Final PC: 0x%08X\n", emulator.PC())
	printWrites(w, emulator.MemoryWrites())
	printRegisters(w, emulator.RegFile())
	if dump != nil {
		printDump(w, memory, dump)
	}

	return runErr
}
