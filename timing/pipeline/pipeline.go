package pipeline

import (
	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
)

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Stalls is the number of cycles decode was stalled.
	Stalls uint64
	// LoadUseStalls is the number of stalls caused by a load in ID/EX.
	LoadUseStalls uint64
	// BranchStalls is the number of stalls caused by decode-resolved
	// control instructions waiting for an operand.
	BranchStalls uint64
	// Flushes is the number of IF/ID flushes requested by decode.
	Flushes uint64
	// DataHazards is the number of cycles execute used a forwarded value.
	DataHazards uint64
	// BTBHits is the number of fetches redirected by a taken BTB entry.
	BTBHits uint64
	// BranchPredictions is the number of control instructions resolved.
	BranchPredictions uint64
	// BranchCorrect is the number of control instructions whose fetch-time
	// prediction was correct.
	BranchCorrect uint64
	// BranchMispredictions is the number of control instructions that
	// required a flush.
	BranchMispredictions uint64
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// CycleSignals is the CPU boundary and the global control signals observed
// during one cycle.
type CycleSignals struct {
	Cycle uint64

	// PC is the fetch PC at the start of the cycle.
	PC uint32

	InstrAddr   uint32
	FetchedWord uint32

	DataReadEnable bool
	DataReadAddr   uint32

	DataWriteEnable bool
	DataWriteAddr   uint32
	DataWriteData   uint32

	RegWrite emu.WritePort

	Stall     bool
	Hazard    HazardKind
	Flush     bool
	FlushedTo uint32
	Reset     bool

	Retired     bool
	RetiredPC   uint32
	RetiredInst *insts.Instruction
}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithBTBSize sets the number of BTB entries.
func WithBTBSize(size int) PipelineOption {
	return func(p *Pipeline) {
		p.btbEnabled = true
		p.btbSize = size
	}
}

// WithoutBTB disables branch target prediction. Fetch always predicts PC+4
// and every taken control instruction costs a flush.
func WithoutBTB() PipelineOption {
	return func(p *Pipeline) {
		p.btbEnabled = false
	}
}

// WithInstructionMemoryMode sets the read timing of instruction memory.
func WithInstructionMemoryMode(mode MemoryMode) PipelineOption {
	return func(p *Pipeline) {
		p.imemMode = mode
	}
}

// WithDataMemoryMode sets the read timing of data memory.
func WithDataMemoryMode(mode MemoryMode) PipelineOption {
	return func(p *Pipeline) {
		p.dmemMode = mode
	}
}

// Pipeline implements a 5-stage pipelined MIPS CPU model.
// Stages: Fetch (IF) -> Decode (ID) -> Execute (EX) -> Memory (MEM) -> Writeback (WB)
type Pipeline struct {
	latches Latches

	// Pipeline stages
	fetchStage     *FetchStage
	decodeStage    *DecodeStage
	executeStage   *ExecuteStage
	memoryStage    *MemoryStage
	writebackStage *WritebackStage

	// One unit per operand
	forwardRs *ForwardingUnit
	forwardRt *ForwardingUnit
	hazardRs  *HazardDetectionUnit
	hazardRt  *HazardDetectionUnit

	btb        *BTB
	btbEnabled bool
	btbSize    int

	// Shared resources
	regFile *emu.RegFile
	imem    Memory
	dmem    Memory

	imemMode MemoryMode
	dmemMode MemoryMode

	// dmemReadData is the registered data-memory read output.
	dmemReadData uint32

	pc    uint32
	reset bool

	stats Statistics
}

// NewPipeline creates a new 5-stage pipeline. imem and dmem may be the
// same device.
func NewPipeline(
	regFile *emu.RegFile,
	imem, dmem Memory,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		regFile:    regFile,
		imem:       imem,
		dmem:       dmem,
		btbEnabled: true,
		btbSize:    DefaultBTBSize,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.btbEnabled {
		p.btb = NewBTB(p.btbSize)
	}

	p.fetchStage = NewFetchStage(imem, p.btb, p.imemMode)
	p.decodeStage = NewDecodeStage(regFile)
	p.executeStage = NewExecuteStage()
	p.memoryStage = NewMemoryStage()
	p.writebackStage = NewWritebackStage()
	p.forwardRs = NewForwardingUnit()
	p.forwardRt = NewForwardingUnit()
	p.hazardRs = NewHazardDetectionUnit()
	p.hazardRt = NewHazardDetectionUnit()

	return p
}

// PC returns the current fetch PC.
func (p *Pipeline) PC() uint32 {
	return p.pc
}

// SetPC sets the fetch PC.
func (p *Pipeline) SetPC(pc uint32) {
	p.pc = pc
}

// SetReset drives the reset input. While asserted, each cycle clears all
// latches, forces the PC to 0 and fetches a bubble.
func (p *Pipeline) SetReset(reset bool) {
	p.reset = reset
}

// Latches returns a copy of the current pipeline registers.
func (p *Pipeline) Latches() Latches {
	return p.latches
}

// RegFile returns the register file.
func (p *Pipeline) RegFile() *emu.RegFile {
	return p.regFile
}

// BTB returns the branch target buffer, or nil if it is disabled.
func (p *Pipeline) BTB() *BTB {
	return p.btb
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	return p.stats
}

// Reset clears all pipeline state, the BTB and the statistics. The
// register file and memories are left untouched.
func (p *Pipeline) Reset() {
	p.latches.Clear()
	p.fetchStage.Reset()
	p.dmemReadData = 0
	p.pc = 0
	p.reset = false
	p.stats = Statistics{}
	if p.btb != nil {
		p.btb.Reset()
	}
}

// RunCycles executes the pipeline for the specified number of cycles.
func (p *Pipeline) RunCycles(cycles uint64) {
	for i := uint64(0); i < cycles; i++ {
		p.Tick()
	}
}

// Tick executes one pipeline cycle.
//
// Every stage is evaluated from the latches captured at the start of the
// cycle, in dependency order WB, MEM, EX, ID, IF. The next latch set, the
// register-file write, the data-memory write, the BTB update and the PC are
// then committed together.
//
// Hazard handling:
//   - Forwarding from EX/MEM and MEM/WB into execute, EX/MEM first
//   - Load-use stalls when the instruction in decode reads a load result
//   - Decode-resolved branches and jumps stall until their operands leave
//     EX/MEM, then read them through the transparent register file
//   - A resolved next PC that differs from the fetch prediction flushes
//     IF/ID, costing one bubble with combinational instruction memory
func (p *Pipeline) Tick() CycleSignals {
	p.stats.Cycles++

	sig := CycleSignals{
		Cycle: p.stats.Cycles,
		PC:    p.pc,
	}

	if p.reset {
		return p.tickReset(sig)
	}

	cur := &p.latches
	var next Latches

	// Stage 5: Writeback
	wbPort := p.writebackStage.Writeback(&cur.MEMWB)
	p.regFile.Drive(wbPort)
	sig.RegWrite = wbPort
	if cur.MEMWB.Valid {
		sig.Retired = true
		sig.RetiredPC = cur.MEMWB.PC
		sig.RetiredInst = cur.MEMWB.Inst
	}

	// Stage 4: Memory
	memResult := p.memoryStage.Access(&cur.EXMEM, p.dataReadData(&cur.EXMEM))
	next.MEMWB = MEMWBRegister{
		Valid:     cur.EXMEM.Valid,
		PC:        cur.EXMEM.PC,
		Inst:      cur.EXMEM.Inst,
		ALUResult: cur.EXMEM.ALUResult,
		MemData:   memResult.MemData,
		DestReg:   cur.EXMEM.DestReg,
		RegWrite:  cur.EXMEM.RegWrite,
		MemToReg:  cur.EXMEM.MemToReg,
	}
	sig.DataWriteEnable = memResult.WriteEnable
	sig.DataWriteAddr = memResult.WriteAddr
	sig.DataWriteData = memResult.WriteData

	// Stage 3: Execute
	next.EXMEM = p.execute(cur, &sig)

	// Stage 2: Decode and hazard detection
	dec := p.decodeStage.Decode(&cur.IFID)
	hazard := p.detectHazard(dec, cur)
	stall := hazard != HazardNone
	flush := dec.Valid && dec.FlushRequest && !stall

	if dec.Valid {
		next.IDEX = IDEXRegister{
			Valid:   !stall,
			PC:      cur.IFID.PC,
			Inst:    dec.Inst,
			Rs:      dec.Inst.Rs,
			Rt:      dec.Inst.Rt,
			RsValue: dec.RsValue,
			RtValue: dec.RtValue,
			Imm:     dec.Inst.Imm,
			Shamt:   dec.Inst.Shamt,
			Control: dec.Control,
		}
		if stall {
			next.IDEX.Control = dec.Control.Bubble()
		}
	}

	// Stage 1: Fetch
	fetch := p.fetchStage.Fetch(p.pc, stall, flush, false)
	sig.InstrAddr = fetch.Address
	sig.FetchedWord = fetch.Out.InstructionWord
	if stall {
		next.IFID = cur.IFID
	} else {
		next.IFID = fetch.Out
	}

	nextPC := fetch.NextPC
	switch {
	case stall:
		nextPC = p.pc
	case flush:
		nextPC = dec.NextPC
	}

	// Clock edge
	p.regFile.Commit()
	if memResult.WriteEnable {
		p.dmem.WriteWord(memResult.WriteAddr, memResult.WriteData)
	}
	if p.dmemMode == Registered {
		p.dmemReadData = 0
		if sig.DataReadEnable {
			p.dmemReadData = p.dmem.ReadWord(sig.DataReadAddr)
		}
	}
	if p.btb != nil && dec.Valid && dec.IsControl && !stall {
		p.btb.Update(cur.IFID.PC, dec.Target, dec.Taken)
	}
	p.fetchStage.Commit(p.pc, fetch, stall, flush, false)
	p.latches = next
	p.pc = nextPC

	sig.Stall = stall
	sig.Hazard = hazard
	sig.Flush = flush
	if flush {
		sig.FlushedTo = nextPC
	}
	p.updateStats(&sig, dec, fetch)

	return sig
}

func (p *Pipeline) tickReset(sig CycleSignals) CycleSignals {
	sig.Reset = true

	fetch := p.fetchStage.Fetch(0, false, false, true)
	sig.InstrAddr = fetch.Address

	p.regFile.Drive(emu.WritePort{})
	p.fetchStage.Commit(0, fetch, false, false, true)
	p.latches.Clear()
	p.latches.IFID = fetch.Out
	p.dmemReadData = 0
	p.pc = 0

	return sig
}

// dataReadData returns what the data-memory read port offers to the
// memory stage this cycle.
func (p *Pipeline) dataReadData(exmem *EXMEMRegister) uint32 {
	if !exmem.Valid || !exmem.MemRead {
		return 0
	}

	if p.dmemMode == Registered {
		return p.dmemReadData
	}

	return p.dmem.ReadWord(exmem.ALUResult)
}

func (p *Pipeline) execute(cur *Latches, sig *CycleSignals) EXMEMRegister {
	idex := &cur.IDEX
	if !idex.Valid {
		return EXMEMRegister{}
	}

	snap := NewForwardingSnapshot(&cur.EXMEM, &cur.MEMWB)
	rs, srcRs := p.forwardRs.Select(idex.Rs, idex.RsValue, snap)
	rt, srcRt := p.forwardRt.Select(idex.Rt, idex.RtValue, snap)
	if srcRs != ForwardNone || srcRt != ForwardNone {
		p.stats.DataHazards++
	}

	res := p.executeStage.Execute(idex, rs, rt)
	ctrl := idex.Control

	if ctrl.MemRead {
		sig.DataReadEnable = true
		sig.DataReadAddr = res.ALUResult
	}

	return EXMEMRegister{
		Valid:      true,
		PC:         idex.PC,
		Inst:       idex.Inst,
		ALUResult:  res.ALUResult,
		StoreValue: res.StoreValue,
		DestReg:    ctrl.DestReg,
		MemRead:    ctrl.MemRead,
		MemWrite:   ctrl.MemWrite,
		RegWrite:   ctrl.RegWrite,
		MemToReg:   ctrl.MemToReg,
	}
}

// detectHazard ORs the per-operand hazard units. A load-use hazard is
// reported in preference to a branch-operand hazard.
func (p *Pipeline) detectHazard(dec DecodeResult, cur *Latches) HazardKind {
	if !dec.Valid {
		return HazardNone
	}

	snap := NewHazardSnapshot(&cur.IDEX, &cur.EXMEM)
	kindRs := p.hazardRs.Detect(HazardInput{
		Reg:              dec.Inst.Rs,
		Used:             dec.UsesRs,
		ResolvesInDecode: dec.ResolvesInDecode,
	}, snap)
	kindRt := p.hazardRt.Detect(HazardInput{
		Reg:              dec.Inst.Rt,
		Used:             dec.UsesRt,
		ResolvesInDecode: dec.ResolvesInDecode,
	}, snap)

	switch {
	case kindRs == HazardLoadUse || kindRt == HazardLoadUse:
		return HazardLoadUse
	case kindRs != HazardNone:
		return kindRs
	default:
		return kindRt
	}
}

func (p *Pipeline) updateStats(sig *CycleSignals, dec DecodeResult, fetch FetchResult) {
	if sig.Retired {
		p.stats.Instructions++
	}

	if fetch.BTBHit {
		p.stats.BTBHits++
	}

	switch sig.Hazard {
	case HazardLoadUse:
		p.stats.Stalls++
		p.stats.LoadUseStalls++
	case HazardBranchOperand:
		p.stats.Stalls++
		p.stats.BranchStalls++
	}

	if sig.Flush {
		p.stats.Flushes++
	}

	if dec.Valid && dec.IsControl && !sig.Stall {
		p.stats.BranchPredictions++
		if sig.Flush {
			p.stats.BranchMispredictions++
		} else {
			p.stats.BranchCorrect++
		}
	}
}
