package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sarchlab/mipsim/timing/config"
)

// Environment variables that provide flag defaults.
const (
	envConfig    = "MIPSIM_CONFIG"
	envMaxCycles = "MIPSIM_MAX_CYCLES"
	envTraceDB   = "MIPSIM_TRACE_DB"
)

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mipsim",
		Short: "mipsim is a cycle-accurate 5-stage MIPS pipeline simulator.",
		Long: `mipsim runs MIPS programs on a cycle-accurate 5-stage pipeline model ` +
			`with forwarding, hazard detection and a branch target buffer. The ` +
			`same programs can be run on a non-pipelined reference emulator.`,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "path to a JSON core configuration (env "+envConfig+")")
	flags.Uint64("max-cycles", 0, "cycle budget, overrides the configuration (env "+envMaxCycles+")")
	flags.String("trace-db", "", "SQLite database that records writes and retirements (env "+envTraceDB+")")
	flags.String("dump", "", "memory range to print after the run, as addr:words (e.g. 0x100:8)")

	rootCmd.AddCommand(newRunCmd(), newEmulateCmd(), newHammingCmd())

	return rootCmd
}

// loadConfig builds the core configuration from the --config and
// --max-cycles flags, falling back to the environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv(envConfig)
	}

	cfg := config.DefaultConfig()
	if path != "" {
		var err error
		cfg, err = config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("max-cycles") {
		cfg.MaxCycles, _ = cmd.Flags().GetUint64("max-cycles")
	} else if env := os.Getenv(envMaxCycles); env != "" {
		n, err := strconv.ParseUint(env, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", envMaxCycles, err)
		}
		cfg.MaxCycles = n
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// traceDBPath returns the --trace-db flag or its environment default.
func traceDBPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("trace-db")
	if path == "" {
		path = os.Getenv(envTraceDB)
	}
	return path
}

// parseAddr parses a byte address in decimal or 0x-prefixed hex.
func parseAddr(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.ReplaceAll(s, "_", ""), 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return uint32(v), nil
}

// dumpRange is a word-aligned memory range selected with --dump.
type dumpRange struct {
	start uint32
	words int
}

func parseDump(s string) (*dumpRange, error) {
	if s == "" {
		return nil, nil
	}

	addr, count, ok := strings.Cut(s, ":")
	if !ok {
		count = "1"
	}

	start, err := parseAddr(addr)
	if err != nil {
		return nil, err
	}
	if start%4 != 0 {
		return nil, fmt.Errorf("dump address 0x%X is not word aligned", start)
	}

	n, err := strconv.Atoi(count)
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("invalid dump length %q", count)
	}

	return &dumpRange{start: start, words: n}, nil
}
