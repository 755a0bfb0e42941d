package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/loader"
	"github.com/sarchlab/mipsim/timing/config"
	"github.com/sarchlab/mipsim/timing/core"
	"github.com/sarchlab/mipsim/timing/trace"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <image>",
		Short: "Run a program image (hex or ELF) on the pipeline model",
		Long: `Run loads a program image and simulates it cycle by cycle until an ` +
			`instruction that branches to itself retires, or until --done-pc retires.`,
		Args: cobra.ExactArgs(1),
		RunE: runTiming,
	}

	cmd.Flags().String("done-pc", "", "stop once the instruction at this address retires")

	return cmd
}

func runTiming(cmd *cobra.Command, args []string) error {
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
	regFile := &emu.RegFile{}

	c, recorder, caches, err := newTracedCore(cmd, cfg, regFile, memory)
	if err != nil {
		return err
	}
	c.SetPC(prog.EntryPoint)

	var runErr error
	if donePC := mustString(cmd, "done-pc"); donePC != "" {
		pc, err := parseAddr(donePC)
		if err != nil {
			return err
		}
		runErr = c.RunUntil(pc)
	} else {
		runErr = c.Run()
	}

	w := cmd.OutOrStdout()
	printTimingReport(w, args[0], c.Pipeline.Stats())
	printCaches(w, caches)
	printWrites(w, recorder.MemoryWrites())
	printRegisters(w, regFile)
	if dump != nil {
		printDump(w, memory, dump)
	}

	return runErr
}

// newTracedCore builds a core from cfg with an in-memory recorder attached
// and, when a trace database is selected, a SQLite recorder as well.
func newTracedCore(
	cmd *cobra.Command,
	cfg *config.Config,
	regFile *emu.RegFile,
	memory *emu.Memory,
) (*core.Core, *trace.Recorder, config.Caches, error) {
	opts, err := cfg.CoreOptions()
	if err != nil {
		return nil, nil, config.Caches{}, err
	}

	imem, dmem, caches := cfg.AttachCaches(memory, memory)
	c := core.NewCore(regFile, imem, dmem, opts...)
	recorder := trace.NewRecorder()
	c.AcceptHook(recorder)

	path := traceDBPath(cmd)
	if path == "" {
		return c, recorder, caches, nil
	}

	db, err := trace.NewSQLiteRecorder(path)
	if err != nil {
		return nil, nil, caches, err
	}
	c.AcceptHook(db)
	atexit.Register(func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error closing trace database: %v\n", err)
		}
	})

	fmt.Fprintf(cmd.OutOrStdout(), "Trace run ID: %s\n", db.RunID())

	return c, recorder, caches, nil
}

func mustString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}
