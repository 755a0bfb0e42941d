// Package pipeline provides the 5-stage pipeline implementation for timing simulation.
package pipeline

import (
	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
)

// Control is the per-instruction control bundle produced by decode.
type Control struct {
	ALUOp emu.ALUOp

	// ALUSrcImm selects the immediate as operand B.
	ALUSrcImm bool

	// ZeroExtendImm selects zero extension of the immediate. Otherwise the
	// immediate is sign-extended.
	ZeroExtendImm bool

	MemRead  bool
	MemWrite bool
	RegWrite bool
	MemToReg bool

	// Link makes the instruction write PC+4 instead of the ALU result.
	Link bool

	DestReg uint8
}

// Bubble returns the control bundle with all side effects removed.
func (c Control) Bubble() Control {
	c.MemRead = false
	c.MemWrite = false
	c.RegWrite = false
	c.Link = false
	return c
}

// IFIDRegister holds state between Fetch and Decode stages.
type IFIDRegister struct {
	// Valid indicates if this pipeline register contains valid data.
	Valid bool

	// PC is the program counter of the fetched instruction.
	PC uint32

	// InstructionWord is the raw 32-bit instruction word.
	InstructionWord uint32

	// PredictedNextPC is the address fetch continued with.
	PredictedNextPC uint32
}

// Clear resets the IF/ID register to a bubble.
func (r *IFIDRegister) Clear() {
	*r = IFIDRegister{}
}

// IDEXRegister holds state between Decode and Execute stages.
type IDEXRegister struct {
	Valid bool
	PC    uint32
	Inst  *insts.Instruction

	// Register numbers and values read in decode.
	Rs      uint8
	Rt      uint8
	RsValue uint32
	RtValue uint32

	Imm   uint16
	Shamt uint8

	Control Control
}

// Clear resets the ID/EX register to a bubble.
func (r *IDEXRegister) Clear() {
	*r = IDEXRegister{}
}

// EXMEMRegister holds state between Execute and Memory stages.
type EXMEMRegister struct {
	Valid bool
	PC    uint32
	Inst  *insts.Instruction

	// ALUResult is the address for loads and stores, the result otherwise.
	ALUResult uint32

	// StoreValue is the forwarded rt value written by stores.
	StoreValue uint32

	DestReg  uint8
	MemRead  bool
	MemWrite bool
	RegWrite bool
	MemToReg bool
}

// Clear resets the EX/MEM register to a bubble.
func (r *EXMEMRegister) Clear() {
	*r = EXMEMRegister{}
}

// MEMWBRegister holds state between Memory and Writeback stages.
type MEMWBRegister struct {
	Valid bool
	PC    uint32
	Inst  *insts.Instruction

	ALUResult uint32
	MemData   uint32

	DestReg  uint8
	RegWrite bool
	MemToReg bool
}

// Clear resets the MEM/WB register to a bubble.
func (r *MEMWBRegister) Clear() {
	*r = MEMWBRegister{}
}

// WritebackValue returns the value selected for the register write port.
func (r *MEMWBRegister) WritebackValue() uint32 {
	if r.MemToReg {
		return r.MemData
	}
	return r.ALUResult
}

// Latches is the full set of stage-boundary registers. The pipeline keeps
// the current set and builds the next set during a cycle, then swaps.
type Latches struct {
	IFID  IFIDRegister
	IDEX  IDEXRegister
	EXMEM EXMEMRegister
	MEMWB MEMWBRegister
}

// Clear turns every latch into a bubble.
func (l *Latches) Clear() {
	l.IFID.Clear()
	l.IDEX.Clear()
	l.EXMEM.Clear()
	l.MEMWB.Clear()
}
