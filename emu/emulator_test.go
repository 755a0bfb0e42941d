package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
)

var _ = Describe("Emulator", func() {
	var e *emu.Emulator

	load := func(words ...uint32) {
		e.LoadProgram(0, words)
	}

	BeforeEach(func() {
		e = emu.NewEmulator(emu.WithMaxInstructions(1000))
	})

	Describe("NewEmulator", func() {
		It("should create an emulator with initialized components", func() {
			Expect(e.RegFile()).NotTo(BeNil())
			Expect(e.Memory()).NotTo(BeNil())
			Expect(e.PC()).To(BeZero())
		})

		It("should honour WithEntry and WithMemory", func() {
			mem := emu.NewMemory()
			mem.WriteWord(0x40, insts.EncodeJump(0x10))
			e = emu.NewEmulator(emu.WithMemory(mem), emu.WithEntry(0x40))

			Expect(e.Step().Halted).To(BeTrue())
		})
	})

	Describe("Step", func() {
		Context("ALU instructions", func() {
			It("should execute ADDI with a negative immediate", func() {
				load(insts.EncodeADDI(1, 0, -5))
				e.Step()

				Expect(e.RegFile().ReadReg(1)).To(Equal(uint32(0xFFFFFFFB)))
				Expect(e.PC()).To(Equal(uint32(4)))
			})

			It("should zero-extend ORI and ANDI", func() {
				load(
					insts.EncodeORI(1, 0, 0x8000),
					insts.EncodeADDI(2, 0, -1),
					insts.EncodeANDI(3, 2, 0xFFFF),
				)
				e.Step()
				e.Step()
				e.Step()

				Expect(e.RegFile().ReadReg(1)).To(Equal(uint32(0x8000)))
				Expect(e.RegFile().ReadReg(3)).To(Equal(uint32(0xFFFF)))
			})

			It("should combine LUI and ORI into a full constant", func() {
				load(insts.EncodeLUI(23, 0xFFFF), insts.EncodeORI(23, 23, 0x0004))
				e.Step()
				e.Step()

				Expect(e.RegFile().ReadReg(23)).To(Equal(uint32(0xFFFF0004)))
			})

			It("should execute R-type arithmetic and shifts", func() {
				load(
					insts.EncodeADDI(1, 0, 6),
					insts.EncodeADDI(2, 0, 3),
					insts.EncodeSUB(3, 1, 2),
					insts.EncodeSLL(4, 1, 2),
					insts.EncodeSLT(5, 2, 1),
					insts.EncodeNOR(6, 0, 0),
					insts.EncodeSRA(7, 6, 4),
				)
				for i := 0; i < 7; i++ {
					e.Step()
				}

				Expect(e.RegFile().ReadReg(3)).To(Equal(uint32(3)))
				Expect(e.RegFile().ReadReg(4)).To(Equal(uint32(24)))
				Expect(e.RegFile().ReadReg(5)).To(Equal(uint32(1)))
				Expect(e.RegFile().ReadReg(7)).To(Equal(uint32(0xFFFFFFFF)))
			})

			It("should never write register 0", func() {
				load(insts.EncodeADDI(0, 0, 5), insts.EncodeADD(1, 0, 0))
				e.Step()
				e.Step()

				Expect(e.RegFile().ReadReg(0)).To(BeZero())
				Expect(e.RegFile().ReadReg(1)).To(BeZero())
			})
		})

		Context("memory instructions", func() {
			It("should store and load words and record the write", func() {
				load(
					insts.EncodeADDI(1, 0, 0x100),
					insts.EncodeADDI(2, 0, 42),
					insts.EncodeSW(2, 1, 4),
					insts.EncodeLW(3, 1, 4),
				)
				for i := 0; i < 4; i++ {
					e.Step()
				}

				Expect(e.Memory().ReadWord(0x104)).To(Equal(uint32(42)))
				Expect(e.RegFile().ReadReg(3)).To(Equal(uint32(42)))
				Expect(e.MemoryWrites()).To(Equal([]emu.MemWrite{{Addr: 0x104, Value: 42}}))
			})
		})

		Context("control flow", func() {
			It("should take BEQ when equal", func() {
				load(insts.EncodeBEQ(0, 0, 2))
				res := e.Step()

				Expect(res.NextPC).To(Equal(uint32(12)))
			})

			It("should fall through BNE when equal", func() {
				load(insts.EncodeBNE(0, 0, 2))

				Expect(e.Step().NextPC).To(Equal(uint32(4)))
			})

			It("should link JAL to PC+4", func() {
				load(insts.NOP, insts.EncodeJAL(8))
				e.Step()
				res := e.Step()

				Expect(res.NextPC).To(Equal(uint32(32)))
				Expect(e.RegFile().ReadReg(31)).To(Equal(uint32(8)))
			})

			It("should read the JALR source before linking", func() {
				load(insts.EncodeADDI(5, 0, 0x40), insts.EncodeJALR(5, 5))
				e.Step()
				res := e.Step()

				Expect(res.NextPC).To(Equal(uint32(0x40)))
				Expect(e.RegFile().ReadReg(5)).To(Equal(uint32(8)))
			})

			It("should link JALR with rd 0 to r31", func() {
				load(insts.EncodeADDI(5, 0, 0x40), insts.EncodeJALR(0, 5))
				e.Step()
				e.Step()

				Expect(e.RegFile().ReadReg(31)).To(Equal(uint32(8)))
			})

			It("should jump through JR", func() {
				load(insts.EncodeADDI(31, 0, 0x20), insts.EncodeJR(31))
				e.Step()

				Expect(e.Step().NextPC).To(Equal(uint32(0x20)))
			})

			It("should report a self-loop as halted", func() {
				load(insts.EncodeJump(0))

				Expect(e.Step().Halted).To(BeTrue())
			})
		})

		It("should treat unknown instructions as NOP", func() {
			load(insts.EncodeI(insts.OpcodeLB, 0, 1, 4))
			res := e.Step()

			Expect(res.Inst.Op).To(Equal(insts.OpUnknown))
			Expect(res.NextPC).To(Equal(uint32(4)))
			Expect(e.RegFile().ReadReg(1)).To(BeZero())
		})
	})

	Describe("Run", func() {
		It("should run until the program halts", func() {
			load(
				insts.EncodeADDI(1, 0, 3),
				insts.EncodeADDI(1, 1, -1),
				insts.EncodeBNE(1, 0, -2),
				insts.EncodeJump(3),
			)

			Expect(e.Run()).To(Succeed())
			Expect(e.PC()).To(Equal(uint32(12)))
			Expect(e.InstructionCount()).To(Equal(uint64(8)))
		})

		It("should fail when the instruction limit is reached", func() {
			e = emu.NewEmulator(emu.WithMaxInstructions(5))
			e.LoadProgram(0, []uint32{insts.NOP, insts.EncodeJump(0)})

			Expect(e.Run()).To(MatchError(emu.ErrMaxInstructions))
		})

		It("should stop at the done PC", func() {
			load(insts.NOP, insts.NOP, insts.NOP)

			Expect(e.RunUntil(8)).To(Succeed())
			Expect(e.InstructionCount()).To(Equal(uint64(2)))
		})

		It("should clear state on reset but keep memory", func() {
			load(insts.EncodeADDI(1, 0, 3))
			e.Step()
			e.Reset()

			Expect(e.PC()).To(BeZero())
			Expect(e.RegFile().ReadReg(1)).To(BeZero())
			Expect(e.Memory().ReadWord(0)).NotTo(BeZero())
		})
	})
})
