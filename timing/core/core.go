// Package core provides the cycle-accurate CPU core model.
// It wraps the pipeline implementation and drives it from an Akita
// simulation engine.
package core

import (
	"errors"
	"fmt"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
	"github.com/sarchlab/mipsim/timing/pipeline"
)

// Hook positions invoked by the core once per cycle.
var (
	// HookPosCycle fires after every cycle. Item is the
	// pipeline.CycleSignals of the cycle.
	HookPosCycle = &sim.HookPos{Name: "Cycle"}

	// HookPosMemWrite fires when the memory stage writes data memory. Item
	// is the emu.MemWrite, Detail the pipeline.CycleSignals.
	HookPosMemWrite = &sim.HookPos{Name: "MemWrite"}

	// HookPosRetire fires when an instruction leaves write-back. Item is
	// the *insts.Instruction, Detail the pipeline.CycleSignals.
	HookPosRetire = &sim.HookPos{Name: "Retire"}
)

// ErrCycleBudgetExceeded is returned when a run does not finish within the
// configured number of cycles.
var ErrCycleBudgetExceeded = errors.New("cycle budget exceeded")

// DefaultMaxCycles bounds runs of a core created without WithMaxCycles.
const DefaultMaxCycles = 1_000_000

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Stalls is the number of stall cycles.
	Stalls uint64
	// Flushes is the number of pipeline flushes.
	Flushes uint64
	// BranchMispredictions is the number of control instructions that
	// redirected fetch.
	BranchMispredictions uint64
	// BTBHits is the number of fetches redirected by the BTB.
	BTBHits uint64
}

// CPI returns the cycles per instruction.
func (s Stats) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// Option configures a Core.
type Option func(*Core)

// WithName sets the component name.
func WithName(name string) Option {
	return func(c *Core) {
		c.name = name
	}
}

// WithEngine makes the core schedule its ticks on an existing engine.
func WithEngine(engine sim.Engine) Option {
	return func(c *Core) {
		c.engine = engine
	}
}

// WithFrequency sets the core clock.
func WithFrequency(freq sim.Freq) Option {
	return func(c *Core) {
		c.freq = freq
	}
}

// WithMaxCycles bounds each run. A value of 0 means no limit.
func WithMaxCycles(cycles uint64) Option {
	return func(c *Core) {
		c.maxCycles = cycles
	}
}

// WithPipelineOptions passes options through to the pipeline.
func WithPipelineOptions(opts ...pipeline.PipelineOption) Option {
	return func(c *Core) {
		c.pipeOpts = append(c.pipeOpts, opts...)
	}
}

// Core represents a cycle-accurate CPU core model.
// It wraps a 5-stage pipeline and ticks it as an Akita component.
type Core struct {
	*sim.TickingComponent

	// Pipeline is the underlying 5-stage pipeline.
	Pipeline *pipeline.Pipeline

	name      string
	engine    sim.Engine
	freq      sim.Freq
	maxCycles uint64
	pipeOpts  []pipeline.PipelineOption

	// Per-run state
	stop     func(sig pipeline.CycleSignals) bool
	deadline uint64
	done     bool
	err      error
}

// NewCore creates a new Core over the given register file and memories.
func NewCore(
	regFile *emu.RegFile,
	imem, dmem pipeline.Memory,
	opts ...Option,
) *Core {
	c := &Core{
		name:      "Core",
		freq:      100 * sim.MHz,
		maxCycles: DefaultMaxCycles,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.engine == nil {
		c.engine = sim.NewSerialEngine()
	}

	c.TickingComponent = sim.NewTickingComponent(c.name, c.engine, c.freq, c)
	c.Pipeline = pipeline.NewPipeline(regFile, imem, dmem, c.pipeOpts...)

	return c
}

// Engine returns the engine the core ticks on.
func (c *Core) Engine() sim.Engine {
	return c.engine
}

// SetPC sets the program counter.
func (c *Core) SetPC(pc uint32) {
	c.Pipeline.SetPC(pc)
}

// Step executes one pipeline cycle and invokes the hooks.
func (c *Core) Step() pipeline.CycleSignals {
	sig := c.Pipeline.Tick()

	c.InvokeHook(sim.HookCtx{Domain: c, Pos: HookPosCycle, Item: sig})

	if sig.DataWriteEnable {
		write := emu.MemWrite{Addr: sig.DataWriteAddr &^ 3, Value: sig.DataWriteData}
		c.InvokeHook(sim.HookCtx{
			Domain: c,
			Pos:    HookPosMemWrite,
			Item:   write,
			Detail: sig,
		})
	}

	if sig.Retired {
		c.InvokeHook(sim.HookCtx{
			Domain: c,
			Pos:    HookPosRetire,
			Item:   sig.RetiredInst,
			Detail: sig,
		})
	}

	return sig
}

// Tick runs one cycle on behalf of the engine. It returns false once the
// current run has finished.
func (c *Core) Tick() bool {
	if c.done {
		return false
	}

	if c.maxCycles > 0 && c.Pipeline.Stats().Cycles >= c.deadline {
		c.err = fmt.Errorf("%w: %d cycles", ErrCycleBudgetExceeded, c.maxCycles)
		c.done = true
		return false
	}

	sig := c.Step()
	if c.stop != nil && c.stop(sig) {
		c.done = true
		return false
	}

	return true
}

// RunCycles executes the core for the specified number of cycles.
func (c *Core) RunCycles(cycles uint64) {
	for i := uint64(0); i < cycles; i++ {
		c.Step()
	}
}

// Run executes the core until an instruction that branches to itself
// retires.
func (c *Core) Run() error {
	return c.runWith(func(sig pipeline.CycleSignals) bool {
		return sig.Retired && IsSelfLoop(sig.RetiredPC, sig.RetiredInst)
	})
}

// RunUntil executes the core until the instruction at donePC retires.
// Every older instruction has retired by then.
func (c *Core) RunUntil(donePC uint32) error {
	return c.runWith(func(sig pipeline.CycleSignals) bool {
		return sig.Retired && sig.RetiredPC == donePC
	})
}

func (c *Core) runWith(stop func(sig pipeline.CycleSignals) bool) error {
	c.stop = stop
	c.done = false
	c.err = nil
	c.deadline = c.Pipeline.Stats().Cycles + c.maxCycles

	c.TickLater()

	if err := c.engine.Run(); err != nil {
		return fmt.Errorf("failed to run engine: %w", err)
	}

	return c.err
}

// AssertReset holds the reset input for the given number of cycles.
func (c *Core) AssertReset(cycles int) {
	c.Pipeline.SetReset(true)
	for i := 0; i < cycles; i++ {
		c.Step()
	}
	c.Pipeline.SetReset(false)
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	pipeStats := c.Pipeline.Stats()
	return Stats{
		Cycles:               pipeStats.Cycles,
		Instructions:         pipeStats.Instructions,
		Stalls:               pipeStats.Stalls,
		Flushes:              pipeStats.Flushes,
		BranchMispredictions: pipeStats.BranchMispredictions,
		BTBHits:              pipeStats.BTBHits,
	}
}

// Reset clears all core state.
func (c *Core) Reset() {
	c.Pipeline.Reset()
	c.stop = nil
	c.done = false
	c.err = nil
}

// IsSelfLoop reports whether inst at pc always branches back to pc.
func IsSelfLoop(pc uint32, inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}

	switch inst.Op {
	case insts.OpJ:
		return emu.JumpTarget(pc, inst.Addr) == pc
	case insts.OpBEQ:
		return inst.Rs == inst.Rt && emu.BranchTarget(pc, inst.SignedImm()) == pc
	default:
		return false
	}
}
