package main

import (
	"fmt"
	"io"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/timing/cache"
	"github.com/sarchlab/mipsim/timing/config"
	"github.com/sarchlab/mipsim/timing/pipeline"
)

func printTimingReport(w io.Writer, program string, stats pipeline.Statistics) {
	totalCycles := stats.Cycles
	if totalCycles == 0 {
		totalCycles = 1
	}

	percent := func(n uint64) float64 {
		return 100.0 * float64(n) / float64(totalCycles)
	}

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Program: %s\n", program)
	fmt.Fprintf(w, "Total Instructions: %d\n", stats.Instructions)
	fmt.Fprintf(w, "Total Cycles: %d\n", stats.Cycles)
	fmt.Fprintf(w, "CPI: %.2f\n", stats.CPI())
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Breakdown:\n")
	fmt.Fprintf(w, "  Load-use stalls:     %4d cycles (%5.1f%%)\n",
		stats.LoadUseStalls, percent(stats.LoadUseStalls))
	fmt.Fprintf(w, "  Branch stalls:       %4d cycles (%5.1f%%)\n",
		stats.BranchStalls, percent(stats.BranchStalls))
	fmt.Fprintf(w, "  Flush bubbles:       %4d cycles (%5.1f%%)\n",
		stats.Flushes, percent(stats.Flushes))
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Pipeline Events:\n")
	fmt.Fprintf(w, "  Stalls:       %d\n", stats.Stalls)
	fmt.Fprintf(w, "  Flushes:      %d\n", stats.Flushes)
	fmt.Fprintf(w, "  Forwards:     %d\n", stats.DataHazards)
	fmt.Fprintf(w, "  BTB hits:     %d\n", stats.BTBHits)
	fmt.Fprintf(w, "  Branches:     %d (%d correct, %d mispredicted)\n",
		stats.BranchPredictions, stats.BranchCorrect, stats.BranchMispredictions)
}

func printWrites(w io.Writer, writes []emu.MemWrite) {
	fmt.Fprintf(w, "\nMemory writes: %d\n", len(writes))
	for _, wr := range writes {
		fmt.Fprintf(w, "  [0x%08X] <- 0x%08X\n", wr.Addr, wr.Value)
	}
}

func printRegisters(w io.Writer, regFile *emu.RegFile) {
	fmt.Fprintf(w, "\nRegisters (non-zero):\n")
	col := 0
	for reg := uint8(1); reg < emu.NumRegs; reg++ {
		v := regFile.ReadReg(reg)
		if v == 0 {
			continue
		}
		fmt.Fprintf(w, "  r%-2d = 0x%08X", reg, v)
		col++
		if col%4 == 0 {
			fmt.Fprintln(w)
		}
	}
	if col%4 != 0 {
		fmt.Fprintln(w)
	}
}

func printDump(w io.Writer, memory *emu.Memory, r *dumpRange) {
	fmt.Fprintf(w, "\nMemory 0x%08X..0x%08X:\n", r.start, r.start+uint32(r.words*4))
	for i, word := range memory.ReadWords(r.start, r.words) {
		fmt.Fprintf(w, "  0x%08X: 0x%08X\n", r.start+uint32(i*4), word)
	}
}

func printCaches(w io.Writer, caches config.Caches) {
	printCache(w, "I-Cache", caches.ICache)
	printCache(w, "D-Cache", caches.DCache)
}

func printCache(w io.Writer, name string, c *cache.Cache) {
	if c == nil {
		return
	}

	stats := c.Stats()
	fmt.Fprintf(w, "\n%s:\n", name)
	fmt.Fprintf(w, "  Hits:      %d\n", stats.Hits)
	fmt.Fprintf(w, "  Misses:    %d\n", stats.Misses)
	fmt.Fprintf(w, "  Evictions: %d\n", stats.Evictions)
	fmt.Fprintf(w, "  Hit rate:  %.1f%%\n", 100*stats.HitRate())
}
