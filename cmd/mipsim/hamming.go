package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sarchlab/mipsim/benchmarks"
	"github.com/sarchlab/mipsim/emu"
)

func newHammingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hamming [input...]",
		Short: "Run the built-in Hamming(15,11) correction program",
		Long: `Hamming builds the Hamming check-and-correct program for the given ` +
			`15-bit inputs (default: 0x0000 0x0001 0x0017), runs it on the pipeline ` +
			`model and compares the stored status and data words with the expected ones.`,
		RunE: runHamming,
	}
}

func runHamming(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	inputs := benchmarks.DefaultHammingInputs
	if len(args) > 0 {
		inputs, err = parseHammingInputs(args)
		if err != nil {
			return err
		}
	}

	f, err := benchmarks.NewHammingFixture(inputs...)
	if err != nil {
		return err
	}

	memory := emu.NewMemory()
	memory.LoadWords(0, f.Program)
	regFile := &emu.RegFile{}

	c, recorder, caches, err := newTracedCore(cmd, cfg, regFile, memory)
	if err != nil {
		return err
	}

	if err := c.RunUntil(f.DonePC); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	printTimingReport(w, "hamming", c.Pipeline.Stats())
	printCaches(w, caches)

	status := recorder.WritesTo(benchmarks.HammingStatusAddr)
	data := recorder.WritesTo(benchmarks.HammingDataAddr)

	fmt.Fprintf(w, "\nResults:\n")
	mismatches := 0
	for i, in := range inputs {
		wantStatus, wantData := benchmarks.HammingExpected(in)

		gotStatus, gotData := uint32(0), uint32(0)
		if i < len(status) {
			gotStatus = status[i]
		}
		if i < len(data) {
			gotData = data[i]
		}

		mark := "ok"
		if gotStatus != wantStatus || gotData != wantData {
			mark = "MISMATCH"
			mismatches++
		}
		fmt.Fprintf(w, "  input 0x%04X: status %s data 0x%04X  %s\n",
			in, formatStatus(gotStatus), gotData, mark)
	}

	if mismatches > 0 || len(status) != len(inputs) || len(data) != len(inputs) {
		return fmt.Errorf("hamming: %d of %d inputs did not match", mismatches, len(inputs))
	}

	return nil
}

func parseHammingInputs(args []string) ([]uint16, error) {
	inputs := make([]uint16, 0, len(args))
	for _, arg := range args {
		v, err := strconv.ParseUint(arg, 0, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid hamming input %q: %w", arg, err)
		}
		inputs = append(inputs, uint16(v))
	}
	return inputs, nil
}

func formatStatus(status uint32) string {
	if status == benchmarks.HammingStatusRight {
		return "RGHT"
	}
	return fmt.Sprintf("%4d", status)
}
