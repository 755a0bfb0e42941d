// Command benchmark runs the mipsim timing benchmark harness.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-csv         Output results in CSV format (default: human-readable)
//	-json        Output results in JSON format
//	-config      Path to a JSON core configuration
//	-caches      Profile default L1 instruction and data caches
//	-no-verify   Skip the comparison against the reference emulator
//	-cpuprofile  Write a CPU profile of the run to this file
//
// Example:
//
//	# Run all benchmarks with human-readable output
//	go run ./cmd/benchmark
//
//	# Output CSV for spreadsheet comparison
//	go run ./cmd/benchmark -csv > results.csv
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime/pprof"

	"github.com/sarchlab/mipsim/benchmarks"
	"github.com/sarchlab/mipsim/timing/cache"
	"github.com/sarchlab/mipsim/timing/config"
)

func main() {
	// Parse flags
	csvOutput := flag.Bool("csv", false, "Output results in CSV format")
	jsonOutput := flag.Bool("json", false, "Output results in JSON format")
	configPath := flag.String("config", "", "Path to a JSON core configuration")
	withCaches := flag.Bool("caches", false, "Profile default L1 instruction and data caches")
	noVerify := flag.Bool("no-verify", false, "Skip the reference emulator comparison")
	cpuProfile := flag.String("cpuprofile", "", "Write a CPU profile to file")
	flag.Parse()

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	// Configure harness
	harnessConfig := benchmarks.DefaultConfig()
	if *configPath != "" {
		cfg, err := config.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		harnessConfig.Config = cfg
	}
	if *withCaches {
		icache := cache.DefaultL1IConfig()
		dcache := cache.DefaultL1DConfig()
		harnessConfig.Config.ICache = &icache
		harnessConfig.Config.DCache = &dcache
	}
	harnessConfig.Verify = !*noVerify
	harnessConfig.Output = os.Stdout

	// Create harness and add benchmarks
	harness := benchmarks.NewHarness(harnessConfig)
	harness.AddBenchmarks(benchmarks.GetAllBenchmarks())

	human := !*csvOutput && !*jsonOutput
	if human {
		cfg := harnessConfig.Config
		fmt.Println("MIPSim Timing Benchmark Harness")
		fmt.Println("===============================")
		fmt.Printf("Instruction memory: %s\n", cfg.InstructionMemory)
		fmt.Printf("Data memory:        %s\n", cfg.DataMemory)
		fmt.Printf("BTB:                %v (%d entries)\n", cfg.BTBEnabled, cfg.BTBSize)
		fmt.Println("")
	}

	// Run benchmarks
	results := harness.RunAll()

	// Output results
	switch {
	case *jsonOutput:
		if err := harness.PrintJSON(results); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing JSON: %v\n", err)
			os.Exit(1)
		}
	case *csvOutput:
		harness.PrintCSV(results)
	default:
		harness.PrintResults(results)

		summary := benchmarks.Summarize(results)
		fmt.Println("=== Summary ===")
		fmt.Printf("Benchmarks: %d (%d verified)\n", summary.TotalBenchmarks, summary.Verified)
		fmt.Printf("Average CPI: %.3f\n", summary.AverageCPI)
	}

	for _, r := range results {
		if !r.Verified {
			pprof.StopCPUProfile()
			os.Exit(1)
		}
	}
}
