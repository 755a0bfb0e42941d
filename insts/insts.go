// Package insts provides MIPS instruction definitions and decoding.
//
// This package implements decoding of 32-bit MIPS machine words into
// structured instruction representations. It supports:
//   - R-type ALU operations: ADD, SUB, AND, OR, XOR, NOR, SLT
//   - R-type shifts: SLL, SRL, SRA
//   - I-type operations: ADDI, ANDI, ORI, XORI, SLTI, LUI
//   - Memory operations: LW, SW
//   - Control flow: BEQ, BNE, J, JAL, JR, JALR
//
// The format of a word (R, I or J) is selected solely by its opcode field.
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x20010005) // ADDI $1, $0, 5
//	fmt.Printf("Op: %v, Rt: %d, Imm: %d\n", inst.Op, inst.Rt, inst.SignedImm())
package insts
