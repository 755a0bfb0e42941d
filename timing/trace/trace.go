// Package trace records what a core does, cycle by cycle, through Akita
// hooks.
package trace

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
	"github.com/sarchlab/mipsim/timing/core"
	"github.com/sarchlab/mipsim/timing/pipeline"
)

// WriteRecord is one data-memory write.
type WriteRecord struct {
	Cycle uint64
	Addr  uint32
	Value uint32
}

// RetireRecord is one instruction leaving write-back.
type RetireRecord struct {
	Cycle uint64
	PC    uint32
	Word  uint32
	Op    string
}

func writeRecord(ctx sim.HookCtx) WriteRecord {
	write := ctx.Item.(emu.MemWrite)
	sig := ctx.Detail.(pipeline.CycleSignals)

	return WriteRecord{Cycle: sig.Cycle, Addr: write.Addr, Value: write.Value}
}

func retireRecord(ctx sim.HookCtx) RetireRecord {
	sig := ctx.Detail.(pipeline.CycleSignals)
	rec := RetireRecord{Cycle: sig.Cycle, PC: sig.RetiredPC}

	if inst, ok := ctx.Item.(*insts.Instruction); ok && inst != nil {
		rec.Word = inst.Word
		rec.Op = inst.Op.String()
	}

	return rec
}

// Recorder keeps the memory writes and retirements of a core in memory.
type Recorder struct {
	Cycles  uint64
	Writes  []WriteRecord
	Retired []RetireRecord
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Func implements sim.Hook.
func (r *Recorder) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case core.HookPosCycle:
		r.Cycles++
	case core.HookPosMemWrite:
		r.Writes = append(r.Writes, writeRecord(ctx))
	case core.HookPosRetire:
		r.Retired = append(r.Retired, retireRecord(ctx))
	}
}

// MemoryWrites returns the recorded writes without timing.
func (r *Recorder) MemoryWrites() []emu.MemWrite {
	writes := make([]emu.MemWrite, 0, len(r.Writes))
	for _, w := range r.Writes {
		writes = append(writes, emu.MemWrite{Addr: w.Addr, Value: w.Value})
	}
	return writes
}

// WritesTo returns the values written to addr, in order.
func (r *Recorder) WritesTo(addr uint32) []uint32 {
	var values []uint32
	for _, w := range r.Writes {
		if w.Addr == addr&^3 {
			values = append(values, w.Value)
		}
	}
	return values
}

// Reset drops everything recorded so far.
func (r *Recorder) Reset() {
	*r = Recorder{}
}
