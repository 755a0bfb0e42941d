package insts

// Opcode is the 6-bit primary opcode field (bits [31:26]).
type Opcode uint8

// Primary opcodes.
const (
	OpcodeRType Opcode = 0b000000
	OpcodeJ     Opcode = 0b000010
	OpcodeJAL   Opcode = 0b000011
	OpcodeBEQ   Opcode = 0b000100
	OpcodeBNE   Opcode = 0b000101
	OpcodeADDI  Opcode = 0b001000
	OpcodeSLTI  Opcode = 0b001010
	OpcodeANDI  Opcode = 0b001100
	OpcodeORI   Opcode = 0b001101
	OpcodeXORI  Opcode = 0b001110
	OpcodeLUI   Opcode = 0b001111
	OpcodeLB    Opcode = 0b100000
	OpcodeLH    Opcode = 0b100001
	OpcodeLW    Opcode = 0b100011
	OpcodeLBU   Opcode = 0b100100
	OpcodeSB    Opcode = 0b101000
	OpcodeSH    Opcode = 0b101001
	OpcodeSW    Opcode = 0b101011
)

// Funct is the 6-bit secondary selector of R-type instructions (bits [5:0]).
type Funct uint8

// R-type function codes.
const (
	FunctSLL  Funct = 0b000000
	FunctSRL  Funct = 0b000010
	FunctSRA  Funct = 0b000011
	FunctJR   Funct = 0b001000
	FunctJALR Funct = 0b001001
	FunctADD  Funct = 0b100000
	FunctSUB  Funct = 0b100010
	FunctAND  Funct = 0b100100
	FunctOR   Funct = 0b100101
	FunctXOR  Funct = 0b100110
	FunctNOR  Funct = 0b100111
	FunctSLT  Funct = 0b101010
)

// Op identifies a supported operation after decoding.
type Op uint8

// Supported operations.
const (
	OpUnknown Op = iota
	OpADD
	OpSUB
	OpAND
	OpOR
	OpXOR
	OpNOR
	OpSLT
	OpSLL
	OpSRL
	OpSRA
	OpJR
	OpJALR
	OpADDI
	OpANDI
	OpORI
	OpXORI
	OpSLTI
	OpLUI
	OpLW
	OpSW
	OpBEQ
	OpBNE
	OpJ
	OpJAL
)

var opNames = map[Op]string{
	OpUnknown: "UNKNOWN",
	OpADD:     "ADD",
	OpSUB:     "SUB",
	OpAND:     "AND",
	OpOR:      "OR",
	OpXOR:     "XOR",
	OpNOR:     "NOR",
	OpSLT:     "SLT",
	OpSLL:     "SLL",
	OpSRL:     "SRL",
	OpSRA:     "SRA",
	OpJR:      "JR",
	OpJALR:    "JALR",
	OpADDI:    "ADDI",
	OpANDI:    "ANDI",
	OpORI:     "ORI",
	OpXORI:    "XORI",
	OpSLTI:    "SLTI",
	OpLUI:     "LUI",
	OpLW:      "LW",
	OpSW:      "SW",
	OpBEQ:     "BEQ",
	OpBNE:     "BNE",
	OpJ:       "J",
	OpJAL:     "JAL",
}

// String returns the mnemonic of the operation.
func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return "UNKNOWN"
}

// Format represents an instruction encoding format.
type Format uint8

// Instruction formats.
const (
	FormatR Format = iota // opcode:rs:rt:rd:shamt:funct
	FormatI               // opcode:rs:rt:imm16
	FormatJ               // opcode:addr26
)

// NOP is the architectural no-op encoding (SLL $0, $0, 0).
const NOP uint32 = 0

// Instruction represents a decoded MIPS instruction word.
type Instruction struct {
	Word   uint32
	Op     Op
	Format Format

	Opcode Opcode
	Funct  Funct

	Rs    uint8
	Rt    uint8
	Rd    uint8
	Shamt uint8

	// Imm is the raw 16-bit immediate of I-type words.
	Imm uint16

	// Addr is the 26-bit word index of J-type words.
	Addr uint32
}

// SignedImm returns the immediate sign-extended to 32 bits.
func (i *Instruction) SignedImm() uint32 {
	return uint32(int32(int16(i.Imm)))
}

// ZeroImm returns the immediate zero-extended to 32 bits.
func (i *Instruction) ZeroImm() uint32 {
	return uint32(i.Imm)
}

// IsBranch returns true for the conditional branches BEQ and BNE.
func (i *Instruction) IsBranch() bool {
	return i.Op == OpBEQ || i.Op == OpBNE
}

// IsJump returns true for J, JAL, JR and JALR.
func (i *Instruction) IsJump() bool {
	switch i.Op {
	case OpJ, OpJAL, OpJR, OpJALR:
		return true
	}
	return false
}

// IsControl returns true if the instruction may redirect the PC.
func (i *Instruction) IsControl() bool {
	return i.IsBranch() || i.IsJump()
}

// ReadsRegistersForControl returns true if the control decision depends on
// register values (BEQ, BNE, JR, JALR).
func (i *Instruction) ReadsRegistersForControl() bool {
	return i.IsBranch() || i.Op == OpJR || i.Op == OpJALR
}

// UsesRs returns true if the rs field names a source operand.
func (i *Instruction) UsesRs() bool {
	switch i.Op {
	case OpUnknown, OpSLL, OpSRL, OpSRA, OpLUI, OpJ, OpJAL:
		return false
	}
	return true
}

// UsesRt returns true if the rt field names a source operand.
func (i *Instruction) UsesRt() bool {
	switch i.Op {
	case OpADD, OpSUB, OpAND, OpOR, OpXOR, OpNOR, OpSLT,
		OpSLL, OpSRL, OpSRA, OpSW, OpBEQ, OpBNE:
		return true
	}
	return false
}

// Decoder decodes MIPS machine words into instructions.
type Decoder struct{}

// NewDecoder creates a new MIPS instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit MIPS instruction word. Words with an unsupported
// opcode or funct decode to OpUnknown with their fields still extracted.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := &Instruction{
		Word:   word,
		Opcode: Opcode((word >> 26) & 0x3F),
		Rs:     uint8((word >> 21) & 0x1F),
		Rt:     uint8((word >> 16) & 0x1F),
		Rd:     uint8((word >> 11) & 0x1F),
		Shamt:  uint8((word >> 6) & 0x1F),
		Funct:  Funct(word & 0x3F),
		Imm:    uint16(word & 0xFFFF),
		Addr:   word & 0x3FFFFFF,
	}

	switch inst.Opcode {
	case OpcodeRType:
		inst.Format = FormatR
		inst.Op = d.decodeFunct(inst.Funct)
	case OpcodeJ, OpcodeJAL:
		inst.Format = FormatJ
		if inst.Opcode == OpcodeJ {
			inst.Op = OpJ
		} else {
			inst.Op = OpJAL
		}
	default:
		inst.Format = FormatI
		inst.Op = d.decodeIType(inst.Opcode)
	}

	return inst
}

func (d *Decoder) decodeFunct(funct Funct) Op {
	switch funct {
	case FunctADD:
		return OpADD
	case FunctSUB:
		return OpSUB
	case FunctAND:
		return OpAND
	case FunctOR:
		return OpOR
	case FunctXOR:
		return OpXOR
	case FunctNOR:
		return OpNOR
	case FunctSLT:
		return OpSLT
	case FunctSLL:
		return OpSLL
	case FunctSRL:
		return OpSRL
	case FunctSRA:
		return OpSRA
	case FunctJR:
		return OpJR
	case FunctJALR:
		return OpJALR
	default:
		return OpUnknown
	}
}

// decodeIType maps I-type opcodes. Byte and halfword memory operations are
// not supported by the word-addressed memory model and decode as unknown.
func (d *Decoder) decodeIType(opcode Opcode) Op {
	switch opcode {
	case OpcodeADDI:
		return OpADDI
	case OpcodeANDI:
		return OpANDI
	case OpcodeORI:
		return OpORI
	case OpcodeXORI:
		return OpXORI
	case OpcodeSLTI:
		return OpSLTI
	case OpcodeLUI:
		return OpLUI
	case OpcodeLW:
		return OpLW
	case OpcodeSW:
		return OpSW
	case OpcodeBEQ:
		return OpBEQ
	case OpcodeBNE:
		return OpBNE
	default:
		return OpUnknown
	}
}
