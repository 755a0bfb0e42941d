package emu

import (
	"errors"
	"fmt"

	"github.com/sarchlab/mipsim/insts"
)

// ErrMaxInstructions is returned when the instruction limit is reached before
// the program halts.
var ErrMaxInstructions = errors.New("max instructions reached")

// MemWrite records one data-memory write.
type MemWrite struct {
	Addr  uint32
	Value uint32
}

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	PC     uint32
	NextPC uint32
	Inst   *insts.Instruction

	// Halted is true if the instruction branched to itself.
	Halted bool

	// Err is set if an error occurred during execution.
	Err error
}

// Emulator executes MIPS instructions one at a time with no pipeline. It is
// the architectural reference the timing model is checked against.
type Emulator struct {
	regFile *RegFile
	memory  *Memory
	decoder *insts.Decoder
	alu     *ALU

	pc     uint32
	writes []MemWrite

	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithMemory makes the emulator operate on an existing memory.
func WithMemory(m *Memory) EmulatorOption {
	return func(e *Emulator) {
		e.memory = m
	}
}

// WithEntry sets the initial PC.
func WithEntry(pc uint32) EmulatorOption {
	return func(e *Emulator) {
		e.pc = pc
	}
}

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// NewEmulator creates a new MIPS reference emulator.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile: &RegFile{},
		memory:  NewMemory(),
		decoder: insts.NewDecoder(),
		alu:     NewALU(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// PC returns the address of the next instruction.
func (e *Emulator) PC() uint32 {
	return e.pc
}

// SetPC sets the address of the next instruction.
func (e *Emulator) SetPC(pc uint32) {
	e.pc = pc
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// MemoryWrites returns the data-memory writes performed so far, in order.
func (e *Emulator) MemoryWrites() []MemWrite {
	return e.writes
}

// LoadProgram stores the program words at base and sets the PC to base.
func (e *Emulator) LoadProgram(base uint32, words []uint32) {
	e.memory.LoadWords(base, words)
	e.pc = base
}

// Reset clears registers, write history and counters. Memory is kept.
func (e *Emulator) Reset() {
	e.regFile.Reset()
	e.pc = 0
	e.writes = nil
	e.instructionCount = 0
}

// Step executes a single instruction.
func (e *Emulator) Step() StepResult {
	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{PC: e.pc, NextPC: e.pc, Err: ErrMaxInstructions}
	}

	pc := e.pc
	inst := e.decoder.Decode(e.memory.ReadWord(pc))
	next := e.execute(pc, inst)

	e.pc = next
	e.instructionCount++

	return StepResult{
		PC:     pc,
		NextPC: next,
		Inst:   inst,
		Halted: next == pc,
	}
}

// Run executes instructions until the program halts or an error occurs.
func (e *Emulator) Run() error {
	for {
		result := e.Step()
		if result.Err != nil {
			return fmt.Errorf("failed to run at PC=0x%X: %w", result.PC, result.Err)
		}
		if result.Halted {
			return nil
		}
	}
}

// RunUntil executes instructions until the PC reaches donePC, the program
// halts, or an error occurs.
func (e *Emulator) RunUntil(donePC uint32) error {
	for e.pc != donePC {
		result := e.Step()
		if result.Err != nil {
			return fmt.Errorf("failed to run at PC=0x%X: %w", result.PC, result.Err)
		}
		if result.Halted {
			return nil
		}
	}
	return nil
}

// execute applies inst and returns the next PC. Unknown instructions
// behave as NOP.
func (e *Emulator) execute(pc uint32, inst *insts.Instruction) uint32 {
	rs := e.regFile.ReadReg(inst.Rs)
	rt := e.regFile.ReadReg(inst.Rt)
	next := pc + 4

	switch inst.Op {
	case insts.OpADD:
		e.aluR(inst, ALUAdd, rs, rt)
	case insts.OpSUB:
		e.aluR(inst, ALUSub, rs, rt)
	case insts.OpAND:
		e.aluR(inst, ALUAnd, rs, rt)
	case insts.OpOR:
		e.aluR(inst, ALUOr, rs, rt)
	case insts.OpXOR:
		e.aluR(inst, ALUXor, rs, rt)
	case insts.OpNOR:
		e.aluR(inst, ALUNor, rs, rt)
	case insts.OpSLT:
		e.aluR(inst, ALUSlt, rs, rt)
	case insts.OpSLL:
		e.aluR(inst, ALUSll, rs, rt)
	case insts.OpSRL:
		e.aluR(inst, ALUSrl, rs, rt)
	case insts.OpSRA:
		e.aluR(inst, ALUSra, rs, rt)

	case insts.OpADDI:
		e.aluI(inst, ALUAdd, rs, inst.SignedImm())
	case insts.OpSLTI:
		e.aluI(inst, ALUSlt, rs, inst.SignedImm())
	case insts.OpANDI:
		e.aluI(inst, ALUAnd, rs, inst.ZeroImm())
	case insts.OpORI:
		e.aluI(inst, ALUOr, rs, inst.ZeroImm())
	case insts.OpXORI:
		e.aluI(inst, ALUXor, rs, inst.ZeroImm())
	case insts.OpLUI:
		e.aluI(inst, ALULui, rs, inst.ZeroImm())

	case insts.OpLW:
		e.regFile.WriteReg(inst.Rt, e.memory.ReadWord(rs+inst.SignedImm()))
	case insts.OpSW:
		addr := rs + inst.SignedImm()
		e.memory.WriteWord(addr, rt)
		e.writes = append(e.writes, MemWrite{Addr: addr &^ 3, Value: rt})

	case insts.OpBEQ:
		if rs == rt {
			next = BranchTarget(pc, inst.SignedImm())
		}
	case insts.OpBNE:
		if rs != rt {
			next = BranchTarget(pc, inst.SignedImm())
		}
	case insts.OpJ:
		next = JumpTarget(pc, inst.Addr)
	case insts.OpJAL:
		e.regFile.WriteReg(31, pc+4)
		next = JumpTarget(pc, inst.Addr)
	case insts.OpJR:
		next = rs
	case insts.OpJALR:
		e.regFile.WriteReg(LinkRegister(inst), pc+4)
		next = rs
	}

	return next
}

func (e *Emulator) aluR(inst *insts.Instruction, op ALUOp, rs, rt uint32) {
	e.regFile.WriteReg(inst.Rd, e.alu.Execute(op, rs, rt, inst.Shamt).Value)
}

func (e *Emulator) aluI(inst *insts.Instruction, op ALUOp, rs, imm uint32) {
	e.regFile.WriteReg(inst.Rt, e.alu.Execute(op, rs, imm, 0).Value)
}

// BranchTarget returns the target of a taken BEQ/BNE at pc with the
// sign-extended word offset imm.
func BranchTarget(pc, imm uint32) uint32 {
	return pc + 4 + imm<<2
}

// JumpTarget returns the target of J/JAL at pc with the 26-bit word index.
func JumpTarget(pc, index uint32) uint32 {
	return (pc+4)&0xF0000000 | (index&0x3FFFFFF)<<2
}

// LinkRegister returns the register written by JAL or JALR. JALR with rd 0
// links to r31.
func LinkRegister(inst *insts.Instruction) uint8 {
	if inst.Op == insts.OpJALR && inst.Rd != 0 {
		return inst.Rd
	}
	return 31
}
