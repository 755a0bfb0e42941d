package pipeline

import (
	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
)

// FetchStage handles instruction fetch and next-PC prediction.
type FetchStage struct {
	memory Memory
	btb    *BTB
	mode   MemoryMode

	// buffer holds the word returned by a registered memory for the
	// address issued in the previous cycle.
	buffer IFIDRegister
}

// NewFetchStage creates a new fetch stage. btb may be nil, in which case
// fetch always predicts PC+4.
func NewFetchStage(memory Memory, btb *BTB, mode MemoryMode) *FetchStage {
	return &FetchStage{
		memory: memory,
		btb:    btb,
		mode:   mode,
	}
}

// FetchResult holds the result of the fetch stage.
type FetchResult struct {
	// Address is the instruction-memory read address driven this cycle.
	Address uint32

	// Out is the content offered to IF/ID.
	Out IFIDRegister

	// NextPC is the predicted successor of the issued PC.
	NextPC uint32

	// BTBHit is set when the prediction came from a taken BTB entry.
	BTBHit bool
}

// Fetch evaluates the stage for the current PC. A flush or reset replaces
// the offered word with a bubble.
func (s *FetchStage) Fetch(pc uint32, stall, flush, reset bool) FetchResult {
	nextPC, hit := s.predict(pc)

	result := FetchResult{
		Address: pc,
		NextPC:  nextPC,
		BTBHit:  hit,
	}

	switch s.mode {
	case Registered:
		result.Out = s.buffer
		if stall {
			result.Address = s.buffer.PC
		}
	default:
		result.Out = IFIDRegister{
			Valid:           true,
			PC:              pc,
			InstructionWord: s.memory.ReadWord(pc),
			PredictedNextPC: nextPC,
		}
	}

	if flush || reset {
		result.Out.Clear()
	}

	return result
}

// Commit updates the registered-memory fetch buffer at the clock edge.
// A flush kills the in-flight fetch as well as IF/ID.
func (s *FetchStage) Commit(pc uint32, res FetchResult, stall, flush, reset bool) {
	if s.mode != Registered {
		return
	}

	switch {
	case flush || reset:
		s.buffer.Clear()
	case stall:
	default:
		s.buffer = IFIDRegister{
			Valid:           true,
			PC:              pc,
			InstructionWord: s.memory.ReadWord(pc),
			PredictedNextPC: res.NextPC,
		}
	}
}

// Reset clears the fetch buffer.
func (s *FetchStage) Reset() {
	s.buffer.Clear()
}

func (s *FetchStage) predict(pc uint32) (uint32, bool) {
	if s.btb != nil {
		if hit := s.btb.Lookup(pc); hit.Hit && hit.Taken {
			return hit.Target, true
		}
	}
	return pc + 4, false
}

// DecodeStage handles instruction decode, register read and branch
// resolution.
type DecodeStage struct {
	regFile *emu.RegFile
	decoder *insts.Decoder
}

// NewDecodeStage creates a new decode stage.
func NewDecodeStage(regFile *emu.RegFile) *DecodeStage {
	return &DecodeStage{
		regFile: regFile,
		decoder: insts.NewDecoder(),
	}
}

// DecodeResult holds the result of the decode stage.
type DecodeResult struct {
	Valid bool
	Inst  *insts.Instruction

	Control Control

	RsValue uint32
	RtValue uint32

	// Operand usage, consumed by hazard detection.
	UsesRs           bool
	UsesRt           bool
	ResolvesInDecode bool

	// Resolution of control instructions. Other instructions resolve to
	// PC+4 so that a stale prediction is repaired as well.
	IsControl bool
	Taken     bool
	Target    uint32
	NextPC    uint32

	// FlushRequest is raised when NextPC differs from the prediction fetch
	// continued with.
	FlushRequest bool
}

// Decode decodes the IF/ID content and reads register values through the
// register file read ports.
func (s *DecodeStage) Decode(ifid *IFIDRegister) DecodeResult {
	if !ifid.Valid {
		return DecodeResult{}
	}

	inst := s.decoder.Decode(ifid.InstructionWord)
	result := DecodeResult{
		Valid:            true,
		Inst:             inst,
		Control:          GenerateControl(inst),
		RsValue:          s.regFile.ReadPort(inst.Rs),
		RtValue:          s.regFile.ReadPort(inst.Rt),
		UsesRs:           inst.UsesRs(),
		UsesRt:           inst.UsesRt(),
		ResolvesInDecode: inst.ReadsRegistersForControl(),
		IsControl:        inst.IsControl(),
		NextPC:           ifid.PC + 4,
	}

	s.resolve(ifid.PC, inst, &result)
	result.FlushRequest = result.NextPC != ifid.PredictedNextPC

	return result
}

func (s *DecodeStage) resolve(pc uint32, inst *insts.Instruction, result *DecodeResult) {
	switch inst.Op {
	case insts.OpBEQ:
		result.Target = emu.BranchTarget(pc, inst.SignedImm())
		result.Taken = result.RsValue == result.RtValue
	case insts.OpBNE:
		result.Target = emu.BranchTarget(pc, inst.SignedImm())
		result.Taken = result.RsValue != result.RtValue
	case insts.OpJ, insts.OpJAL:
		result.Target = emu.JumpTarget(pc, inst.Addr)
		result.Taken = true
	case insts.OpJR, insts.OpJALR:
		result.Target = result.RsValue
		result.Taken = true
	default:
		return
	}

	if result.Taken {
		result.NextPC = result.Target
	}
}

// GenerateControl produces the control bundle of a decoded instruction.
// Unknown instructions get an all-zero bundle and behave as NOP.
func GenerateControl(inst *insts.Instruction) Control {
	c := Control{}

	switch inst.Op {
	case insts.OpADD:
		c = rType(inst, emu.ALUAdd)
	case insts.OpSUB:
		c = rType(inst, emu.ALUSub)
	case insts.OpAND:
		c = rType(inst, emu.ALUAnd)
	case insts.OpOR:
		c = rType(inst, emu.ALUOr)
	case insts.OpXOR:
		c = rType(inst, emu.ALUXor)
	case insts.OpNOR:
		c = rType(inst, emu.ALUNor)
	case insts.OpSLT:
		c = rType(inst, emu.ALUSlt)
	case insts.OpSLL:
		c = rType(inst, emu.ALUSll)
	case insts.OpSRL:
		c = rType(inst, emu.ALUSrl)
	case insts.OpSRA:
		c = rType(inst, emu.ALUSra)

	case insts.OpADDI:
		c = iType(inst, emu.ALUAdd, false)
	case insts.OpSLTI:
		c = iType(inst, emu.ALUSlt, false)
	case insts.OpANDI:
		c = iType(inst, emu.ALUAnd, true)
	case insts.OpORI:
		c = iType(inst, emu.ALUOr, true)
	case insts.OpXORI:
		c = iType(inst, emu.ALUXor, true)
	case insts.OpLUI:
		c = iType(inst, emu.ALULui, true)

	case insts.OpLW:
		c = iType(inst, emu.ALUAdd, false)
		c.MemRead = true
		c.MemToReg = true
	case insts.OpSW:
		c.ALUOp = emu.ALUAdd
		c.ALUSrcImm = true
		c.MemWrite = true

	case insts.OpBEQ, insts.OpBNE:
		c.ALUOp = emu.ALUSub

	case insts.OpJAL, insts.OpJALR:
		c.Link = true
		c.RegWrite = true
		c.DestReg = emu.LinkRegister(inst)
	}

	return c
}

func rType(inst *insts.Instruction, op emu.ALUOp) Control {
	return Control{
		ALUOp:    op,
		RegWrite: true,
		DestReg:  inst.Rd,
	}
}

func iType(inst *insts.Instruction, op emu.ALUOp, zeroExtend bool) Control {
	return Control{
		ALUOp:         op,
		ALUSrcImm:     true,
		ZeroExtendImm: zeroExtend,
		RegWrite:      true,
		DestReg:       inst.Rt,
	}
}

// ExecuteStage handles ALU operations and address calculation.
type ExecuteStage struct {
	alu *emu.ALU
}

// NewExecuteStage creates a new execute stage.
func NewExecuteStage() *ExecuteStage {
	return &ExecuteStage{alu: emu.NewALU()}
}

// ExecuteResult holds the result of the execute stage.
type ExecuteResult struct {
	ALUResult  uint32
	StoreValue uint32
	Zero       bool
}

// Execute runs the ALU on the forwarded operand values.
func (s *ExecuteStage) Execute(idex *IDEXRegister, rsValue, rtValue uint32) ExecuteResult {
	ctrl := idex.Control

	b := rtValue
	if ctrl.ALUSrcImm {
		b = ExtendImmediate(idex.Imm, ctrl.ZeroExtendImm)
	}

	res := s.alu.Execute(ctrl.ALUOp, rsValue, b, idex.Shamt)
	value := res.Value
	if ctrl.Link {
		value = idex.PC + 4
	}

	return ExecuteResult{
		ALUResult:  value,
		StoreValue: rtValue,
		Zero:       res.Zero,
	}
}

// ExtendImmediate widens a 16-bit immediate to 32 bits.
func ExtendImmediate(imm uint16, zeroExtend bool) uint32 {
	if zeroExtend {
		return uint32(imm)
	}
	return uint32(int32(int16(imm)))
}

// MemoryStage handles data memory access.
type MemoryStage struct{}

// NewMemoryStage creates a new memory stage.
func NewMemoryStage() *MemoryStage {
	return &MemoryStage{}
}

// MemoryResult holds the data-memory port signals of the memory stage.
type MemoryResult struct {
	MemData uint32

	ReadEnable bool
	ReadAddr   uint32

	WriteEnable bool
	WriteAddr   uint32
	WriteData   uint32
}

// Access computes the data-memory port signals for the EX/MEM content.
// readData is what the read port returns for ALUResult. If both read and
// write are asserted, the write wins and no data is loaded.
func (s *MemoryStage) Access(exmem *EXMEMRegister, readData uint32) MemoryResult {
	if !exmem.Valid {
		return MemoryResult{}
	}

	switch {
	case exmem.MemWrite:
		return MemoryResult{
			WriteEnable: true,
			WriteAddr:   exmem.ALUResult,
			WriteData:   exmem.StoreValue,
		}
	case exmem.MemRead:
		return MemoryResult{
			MemData:    readData,
			ReadEnable: true,
			ReadAddr:   exmem.ALUResult,
		}
	default:
		return MemoryResult{}
	}
}

// WritebackStage drives the register file write port.
type WritebackStage struct{}

// NewWritebackStage creates a new writeback stage.
func NewWritebackStage() *WritebackStage {
	return &WritebackStage{}
}

// Writeback selects the write-back value and returns the write port.
func (s *WritebackStage) Writeback(memwb *MEMWBRegister) emu.WritePort {
	if !memwb.Valid || !memwb.RegWrite {
		return emu.WritePort{}
	}

	return emu.WritePort{
		Reg:    memwb.DestReg,
		Value:  memwb.WritebackValue(),
		Enable: true,
	}
}
