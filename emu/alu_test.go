package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/emu"
)

var _ = Describe("ALU", func() {
	var alu *emu.ALU

	BeforeEach(func() {
		alu = emu.NewALU()
	})

	DescribeTable("Execute",
		func(op emu.ALUOp, a, b uint32, shamt uint8, want uint32) {
			Expect(alu.Execute(op, a, b, shamt).Value).To(Equal(want))
		},
		Entry("ADD", emu.ALUAdd, uint32(2), uint32(3), uint8(0), uint32(5)),
		Entry("ADD wraps", emu.ALUAdd, uint32(0xFFFFFFFF), uint32(2), uint8(0), uint32(1)),
		Entry("SUB", emu.ALUSub, uint32(10), uint32(3), uint8(0), uint32(7)),
		Entry("SUB wraps", emu.ALUSub, uint32(0), uint32(1), uint8(0), uint32(0xFFFFFFFF)),
		Entry("AND", emu.ALUAnd, uint32(0xF0F0), uint32(0xFF00), uint8(0), uint32(0xF000)),
		Entry("OR", emu.ALUOr, uint32(0xF0F0), uint32(0x0F00), uint8(0), uint32(0xFFF0)),
		Entry("XOR", emu.ALUXor, uint32(0xFF), uint32(0x0F), uint8(0), uint32(0xF0)),
		Entry("NOR", emu.ALUNor, uint32(0), uint32(0), uint8(0), uint32(0xFFFFFFFF)),
		Entry("SLT signed less", emu.ALUSlt, uint32(0xFFFFFFFF), uint32(1), uint8(0), uint32(1)),
		Entry("SLT not less", emu.ALUSlt, uint32(1), uint32(0xFFFFFFFF), uint8(0), uint32(0)),
		Entry("SLL", emu.ALUSll, uint32(0), uint32(1), uint8(4), uint32(16)),
		Entry("SLL ignores a", emu.ALUSll, uint32(99), uint32(1), uint8(31), uint32(0x80000000)),
		Entry("SRL", emu.ALUSrl, uint32(0), uint32(0x80000000), uint8(31), uint32(1)),
		Entry("SRA", emu.ALUSra, uint32(0), uint32(0x80000000), uint8(4), uint32(0xF8000000)),
		Entry("LUI", emu.ALULui, uint32(0), uint32(0x1234), uint8(0), uint32(0x12340000)),
		Entry("unknown op", emu.ALUOp(15), uint32(1), uint32(2), uint8(0), uint32(0)),
	)

	It("should set the zero flag", func() {
		res := alu.Execute(emu.ALUSub, 5, 5, 0)

		Expect(res.Zero).To(BeTrue())
		Expect(res.Negative).To(BeFalse())
	})

	It("should set the negative flag from bit 31", func() {
		res := alu.Execute(emu.ALUSub, 0, 1, 0)

		Expect(res.Zero).To(BeFalse())
		Expect(res.Negative).To(BeTrue())
	})

	It("should name its operations", func() {
		Expect(emu.ALUSra.String()).To(Equal("SRA"))
		Expect(emu.ALUOp(12).String()).To(Equal("UNKNOWN"))
	})
})
