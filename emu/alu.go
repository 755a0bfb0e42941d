package emu

// ALUOp selects the ALU function. The encoding is 4 bits wide.
type ALUOp uint8

// ALU operations.
const (
	ALUAdd ALUOp = 0
	ALUSub ALUOp = 1
	ALUAnd ALUOp = 2
	ALUOr  ALUOp = 3
	ALUSlt ALUOp = 4
	ALUSll ALUOp = 5
	ALUSrl ALUOp = 6
	ALUXor ALUOp = 7
	ALUNor ALUOp = 8
	ALUSra ALUOp = 9
	ALULui ALUOp = 10
)

var aluOpNames = [...]string{
	"ADD", "SUB", "AND", "OR", "SLT", "SLL", "SRL", "XOR", "NOR", "SRA", "LUI",
}

func (op ALUOp) String() string {
	if int(op) < len(aluOpNames) {
		return aluOpNames[op]
	}
	return "UNKNOWN"
}

// ALUResult is the output of one ALU evaluation.
type ALUResult struct {
	Value    uint32
	Zero     bool
	Negative bool
}

// ALU is a pure combinational arithmetic, logic and shift unit.
type ALU struct{}

// NewALU creates a new ALU.
func NewALU() *ALU {
	return &ALU{}
}

// Execute evaluates op on operands a and b. Shifts operate on b by shamt.
// Arithmetic wraps modulo 2^32. SLT compares as signed. Unknown ops yield 0.
func (u *ALU) Execute(op ALUOp, a, b uint32, shamt uint8) ALUResult {
	var value uint32
	shift := uint32(shamt & 0x1F)

	switch op {
	case ALUAdd:
		value = a + b
	case ALUSub:
		value = a - b
	case ALUAnd:
		value = a & b
	case ALUOr:
		value = a | b
	case ALUSlt:
		if int32(a) < int32(b) {
			value = 1
		}
	case ALUSll:
		value = b << shift
	case ALUSrl:
		value = b >> shift
	case ALUXor:
		value = a ^ b
	case ALUNor:
		value = ^(a | b)
	case ALUSra:
		value = uint32(int32(b) >> shift)
	case ALULui:
		value = b << 16
	}

	return ALUResult{
		Value:    value,
		Zero:     value == 0,
		Negative: value&0x80000000 != 0,
	}
}
