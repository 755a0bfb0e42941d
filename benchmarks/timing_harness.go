// Package benchmarks provides timing benchmark infrastructure for the MIPS
// pipeline model.
package benchmarks

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/timing/config"
	"github.com/sarchlab/mipsim/timing/core"
	"github.com/sarchlab/mipsim/timing/trace"
)

var (
	// ErrReferenceMismatch is reported when the pipeline and the reference
	// emulator end in different architectural states.
	ErrReferenceMismatch = errors.New("pipeline diverged from reference emulator")

	// ErrUnexpectedResult is reported when a benchmark's declared
	// expectations are not met.
	ErrUnexpectedResult = errors.New("unexpected benchmark result")
)

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// SimulatedCycles is the total cycle count from the timing simulator
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsRetired is the number of completed instructions
	InstructionsRetired uint64 `json:"instructions_retired"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	// StallCycles is the number of cycles decode was stalled
	StallCycles uint64 `json:"stall_cycles"`

	// LoadUseStalls is stalls caused by a load feeding the next instruction
	LoadUseStalls uint64 `json:"load_use_stalls"`

	// BranchStalls is stalls caused by branches waiting for an operand
	BranchStalls uint64 `json:"branch_stalls"`

	// DataHazards is the number of cycles execute used a forwarded value
	DataHazards uint64 `json:"data_hazards"`

	// PipelineFlushes is the number of IF/ID flushes
	PipelineFlushes uint64 `json:"pipeline_flushes"`

	// ICacheHits/Misses (if an instruction cache is configured)
	ICacheHits   uint64 `json:"icache_hits,omitempty"`
	ICacheMisses uint64 `json:"icache_misses,omitempty"`

	// DCacheHits/Misses (if a data cache is configured)
	DCacheHits   uint64 `json:"dcache_hits,omitempty"`
	DCacheMisses uint64 `json:"dcache_misses,omitempty"`

	// BTBHits is the number of fetches redirected by the BTB
	BTBHits uint64 `json:"btb_hits,omitempty"`

	// Branch predictor stats
	BranchPredictions     uint64  `json:"branch_predictions,omitempty"`
	BranchCorrect         uint64  `json:"branch_correct,omitempty"`
	BranchMispredictions  uint64  `json:"branch_mispredictions,omitempty"`
	BranchAccuracyPercent float64 `json:"branch_accuracy_percent,omitempty"`

	// Result is the value of ResultReg when the program halted
	Result uint32 `json:"result"`

	// MemoryWrites is every data-memory write in commit order
	MemoryWrites []emu.MemWrite `json:"-"`

	// Registers is the final register file contents
	Registers [emu.NumRegs]uint32 `json:"-"`

	// Verified is true when the run matched the reference emulator and the
	// benchmark's expectations
	Verified bool `json:"verified"`

	// Err is set when the run failed or did not verify
	Err error `json:"-"`

	// Error is Err rendered for reports
	Error string `json:"error,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Setup prepares the initial state (e.g., initialize registers, memory)
	Setup func(regFile *emu.RegFile, memory *emu.Memory)

	// Program is the MIPS machine code to execute, loaded at address 0.
	// It must end in an instruction that branches to itself.
	Program []uint32

	// ExpectedRegs maps registers to their expected final values
	ExpectedRegs map[uint8]uint32

	// ExpectedWrites is the expected data-memory write sequence. Nil means
	// the writes are not checked.
	ExpectedWrites []emu.MemWrite
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Config is the core configuration every benchmark runs with
	Config *config.Config

	// Verify runs each program on the reference emulator as well and
	// compares the final state
	Verify bool

	// Parallelism bounds how many benchmarks run at once (default:
	// GOMAXPROCS)
	Parallelism int

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Verbose enables detailed output
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Config:      config.DefaultConfig(),
		Verify:      true,
		Parallelism: runtime.GOMAXPROCS(0),
		Output:      os.Stdout,
		Verbose:     false,
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark

	outputMu sync.Mutex
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Config == nil {
		config.Config = DefaultConfig().Config
	}
	if config.Parallelism <= 0 {
		config.Parallelism = 1
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results in the order the
// benchmarks were added. Each benchmark runs on its own core and engine.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, len(h.benchmarks))

	var g errgroup.Group
	g.SetLimit(h.config.Parallelism)

	for i, bench := range h.benchmarks {
		g.Go(func() error {
			results[i] = h.runBenchmark(bench)
			h.logResult(results[i])
			return nil
		})
	}

	_ = g.Wait()

	return results
}

func (h *Harness) logResult(r BenchmarkResult) {
	if !h.config.Verbose {
		return
	}

	h.outputMu.Lock()
	defer h.outputMu.Unlock()

	status := "ok"
	if r.Err != nil {
		status = r.Err.Error()
	}
	_, _ = fmt.Fprintf(h.config.Output, "[%s] cycles=%d insts=%d cpi=%.3f %s\n",
		r.Name, r.SimulatedCycles, r.InstructionsRetired, r.CPI, status)
}

// runBenchmark executes a single benchmark.
func (h *Harness) runBenchmark(bench Benchmark) BenchmarkResult {
	result := BenchmarkResult{
		Name:        bench.Name,
		Description: bench.Description,
	}

	// Create fresh state
	regFile := &emu.RegFile{}
	memory := emu.NewMemory()

	if bench.Setup != nil {
		bench.Setup(regFile, memory)
	}
	memory.LoadWords(0, bench.Program)

	opts, err := h.config.Config.CoreOptions()
	if err != nil {
		return result.fail(err)
	}

	ref := emu.NewEmulator(
		emu.WithMemory(memory.Clone()),
		emu.WithMaxInstructions(h.config.Config.MaxCycles),
	)
	ref.RegFile().X = regFile.X

	imem, dmem, caches := h.config.Config.AttachCaches(memory, memory)
	c := core.NewCore(regFile, imem, dmem, opts...)
	recorder := trace.NewRecorder()
	c.AcceptHook(recorder)

	// Run simulation and measure time
	start := time.Now()
	runErr := c.Run()
	result.WallTime = time.Since(start)

	// Collect statistics
	stats := c.Pipeline.Stats()
	result.SimulatedCycles = stats.Cycles
	result.InstructionsRetired = stats.Instructions
	result.CPI = stats.CPI()
	result.StallCycles = stats.Stalls
	result.LoadUseStalls = stats.LoadUseStalls
	result.BranchStalls = stats.BranchStalls
	result.DataHazards = stats.DataHazards
	result.PipelineFlushes = stats.Flushes
	result.BTBHits = stats.BTBHits
	result.BranchPredictions = stats.BranchPredictions
	result.BranchCorrect = stats.BranchCorrect
	result.BranchMispredictions = stats.BranchMispredictions
	if stats.BranchPredictions > 0 {
		result.BranchAccuracyPercent =
			100 * float64(stats.BranchCorrect) / float64(stats.BranchPredictions)
	}

	if caches.ICache != nil {
		result.ICacheHits = caches.ICache.Stats().Hits
		result.ICacheMisses = caches.ICache.Stats().Misses
	}
	if caches.DCache != nil {
		result.DCacheHits = caches.DCache.Stats().Hits
		result.DCacheMisses = caches.DCache.Stats().Misses
	}

	result.Result = regFile.ReadReg(ResultReg)
	result.Registers = regFile.X
	result.MemoryWrites = recorder.MemoryWrites()

	if runErr != nil {
		return result.fail(runErr)
	}

	if h.config.Verify {
		if err := ref.Run(); err != nil {
			return result.fail(fmt.Errorf("reference: %w", err))
		}
		if err := compareWithReference(&result, ref); err != nil {
			return result.fail(err)
		}
	}

	if err := checkExpectations(&result, bench); err != nil {
		return result.fail(err)
	}

	result.Verified = true
	return result
}

func (r BenchmarkResult) fail(err error) BenchmarkResult {
	r.Err = err
	r.Error = err.Error()
	r.Verified = false
	return r
}

func compareWithReference(r *BenchmarkResult, ref *emu.Emulator) error {
	for reg := uint8(0); reg < emu.NumRegs; reg++ {
		want := ref.RegFile().ReadReg(reg)
		if r.Registers[reg] != want {
			return fmt.Errorf("%w: r%d = 0x%08X, reference 0x%08X",
				ErrReferenceMismatch, reg, r.Registers[reg], want)
		}
	}

	return compareWrites(ErrReferenceMismatch, r.MemoryWrites, ref.MemoryWrites())
}

func checkExpectations(r *BenchmarkResult, bench Benchmark) error {
	for reg, want := range bench.ExpectedRegs {
		if got := r.Registers[reg]; got != want {
			return fmt.Errorf("%w: r%d = 0x%08X, expected 0x%08X",
				ErrUnexpectedResult, reg, got, want)
		}
	}

	if bench.ExpectedWrites == nil {
		return nil
	}

	return compareWrites(ErrUnexpectedResult, r.MemoryWrites, bench.ExpectedWrites)
}

func compareWrites(kind error, got, want []emu.MemWrite) error {
	if len(got) != len(want) {
		return fmt.Errorf("%w: %d memory writes, expected %d", kind, len(got), len(want))
	}

	for i := range got {
		if got[i] != want[i] {
			return fmt.Errorf("%w: write %d is [0x%08X]=0x%08X, expected [0x%08X]=0x%08X",
				kind, i, got[i].Addr, got[i].Value, want[i].Addr, want[i].Value)
		}
	}

	return nil
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== MIPSim Timing Benchmark Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(h.config.Output, "  Result (r%d): %d\n", ResultReg, r.Result)
		if r.Err != nil {
			_, _ = fmt.Fprintf(h.config.Output, "  Error: %v\n", r.Err)
		} else {
			_, _ = fmt.Fprintf(h.config.Output, "  Verified: %v\n", r.Verified)
		}
		_, _ = fmt.Fprintln(h.config.Output, "  --- Timing ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(h.config.Output, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(h.config.Output, "  Stall Cycles:         %d\n", r.StallCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Load-Use Stalls:      %d\n", r.LoadUseStalls)
		_, _ = fmt.Fprintf(h.config.Output, "  Branch Stalls:        %d\n", r.BranchStalls)
		_, _ = fmt.Fprintf(h.config.Output, "  Data Hazards:         %d\n", r.DataHazards)
		_, _ = fmt.Fprintf(h.config.Output, "  Pipeline Flushes:     %d\n", r.PipelineFlushes)

		if r.ICacheHits > 0 || r.ICacheMisses > 0 {
			_, _ = fmt.Fprintln(h.config.Output, "  --- I-Cache ---")
			_, _ = fmt.Fprintf(h.config.Output, "  Hits:   %d\n", r.ICacheHits)
			_, _ = fmt.Fprintf(h.config.Output, "  Misses: %d\n", r.ICacheMisses)
		}

		if r.DCacheHits > 0 || r.DCacheMisses > 0 {
			_, _ = fmt.Fprintln(h.config.Output, "  --- D-Cache ---")
			_, _ = fmt.Fprintf(h.config.Output, "  Hits:   %d\n", r.DCacheHits)
			_, _ = fmt.Fprintf(h.config.Output, "  Misses: %d\n", r.DCacheMisses)
		}

		if r.BranchPredictions > 0 {
			_, _ = fmt.Fprintln(h.config.Output, "  --- Branch Predictor ---")
			_, _ = fmt.Fprintf(h.config.Output, "  BTB Hits:        %d\n", r.BTBHits)
			_, _ = fmt.Fprintf(h.config.Output, "  Predictions:     %d\n", r.BranchPredictions)
			_, _ = fmt.Fprintf(h.config.Output, "  Correct:         %d\n", r.BranchCorrect)
			_, _ = fmt.Fprintf(h.config.Output, "  Mispredictions:  %d\n", r.BranchMispredictions)
			_, _ = fmt.Fprintf(h.config.Output, "  Accuracy:        %.1f%%\n", r.BranchAccuracyPercent)
		}

		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,cycles,instructions,cpi,stalls,load_use_stalls,branch_stalls,data_hazards,flushes,btb_hits,mispredictions,result,verified")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%.3f,%d,%d,%d,%d,%d,%d,%d,%d,%v\n",
			r.Name,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.StallCycles,
			r.LoadUseStalls,
			r.BranchStalls,
			r.DataHazards,
			r.PipelineFlushes,
			r.BTBHits,
			r.BranchMispredictions,
			r.Result,
			r.Verified,
		)
	}
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	// Metadata about the benchmark run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual benchmark results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	// Timestamp when the benchmark was run
	Timestamp string `json:"timestamp"`

	// Version of the simulator
	Version string `json:"version"`

	// Config is the core configuration used
	Config *config.Config `json:"config"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	// TotalBenchmarks is the number of benchmarks run
	TotalBenchmarks int `json:"total_benchmarks"`

	// Verified is the number of benchmarks that verified
	Verified int `json:"verified"`

	// TotalCycles is the sum of all simulated cycles
	TotalCycles uint64 `json:"total_cycles"`

	// TotalInstructions is the sum of all instructions retired
	TotalInstructions uint64 `json:"total_instructions"`

	// AverageCPI is the average cycles per instruction
	AverageCPI float64 `json:"average_cpi"`

	// TotalWallTime is the total wall clock time for all benchmarks
	TotalWallTime time.Duration `json:"total_wall_time_ns"`
}

// Version is reported in JSON benchmark reports.
const Version = "0.1.0"

// Summarize computes aggregate statistics over results.
func Summarize(results []BenchmarkResult) ReportSummary {
	summary := ReportSummary{TotalBenchmarks: len(results)}
	for _, r := range results {
		summary.TotalCycles += r.SimulatedCycles
		summary.TotalInstructions += r.InstructionsRetired
		summary.TotalWallTime += r.WallTime
		if r.Verified {
			summary.Verified++
		}
	}

	if summary.TotalInstructions > 0 {
		summary.AverageCPI = float64(summary.TotalCycles) / float64(summary.TotalInstructions)
	}

	return summary
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   Version,
			Config:    h.config.Config,
		},
		Results: results,
		Summary: Summarize(results),
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
