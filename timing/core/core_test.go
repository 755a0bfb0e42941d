package core_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
	"github.com/sarchlab/mipsim/timing/core"
	"github.com/sarchlab/mipsim/timing/pipeline"
)

type recordingHook struct {
	cycles  int
	writes  []emu.MemWrite
	retired []uint32
}

func (h *recordingHook) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case core.HookPosCycle:
		h.cycles++
	case core.HookPosMemWrite:
		h.writes = append(h.writes, ctx.Item.(emu.MemWrite))
	case core.HookPosRetire:
		h.retired = append(h.retired, ctx.Detail.(pipeline.CycleSignals).RetiredPC)
	}
}

var _ = Describe("Core", func() {
	var (
		regFile *emu.RegFile
		memory  *emu.Memory
		c       *core.Core
	)

	// Stores 1..3 at 0x100, 0x104, 0x108, then spins at 0x18.
	program := []uint32{
		insts.EncodeADDI(1, 0, 1),
		insts.EncodeSW(1, 0, 0x100),
		insts.EncodeADDI(1, 1, 1),
		insts.EncodeSW(1, 0, 0x104),
		insts.EncodeADDI(1, 1, 1),
		insts.EncodeSW(1, 0, 0x108),
		insts.EncodeJump(6),
	}

	BeforeEach(func() {
		regFile = &emu.RegFile{}
		memory = emu.NewMemory()
		c = core.NewCore(regFile, memory, memory)
	})

	It("should create a core with pipeline", func() {
		Expect(c).NotTo(BeNil())
		Expect(c.Pipeline).NotTo(BeNil())
		Expect(c.Engine()).NotTo(BeNil())
		Expect(c.Name()).To(Equal("Core"))
	})

	It("should set and get PC", func() {
		c.SetPC(0x1000)
		Expect(c.Pipeline.PC()).To(Equal(uint32(0x1000)))
	})

	It("should execute instructions through step", func() {
		memory.LoadWords(0x1000, []uint32{insts.EncodeADDI(1, 0, 42)})

		c.SetPC(0x1000)
		c.RunCycles(5)

		Expect(regFile.X[1]).To(Equal(uint32(42)))
	})

	It("should return stats", func() {
		memory.LoadWords(0, program)

		c.Step()
		c.Step()

		stats := c.Stats()
		Expect(stats.Cycles).To(Equal(uint64(2)))
		Expect(stats.Instructions).To(BeZero())
		Expect(stats.CPI()).To(BeZero())
	})

	It("should run until a self loop retires", func() {
		memory.LoadWords(0, program)

		Expect(c.Run()).To(Succeed())

		Expect(memory.ReadWord(0x100)).To(Equal(uint32(1)))
		Expect(memory.ReadWord(0x104)).To(Equal(uint32(2)))
		Expect(memory.ReadWord(0x108)).To(Equal(uint32(3)))
		Expect(c.Stats().Instructions).To(Equal(uint64(7)))
		Expect(c.Stats().CPI()).To(BeNumerically(">", 1))
	})

	It("should run until the done PC retires", func() {
		memory.LoadWords(0, program)

		Expect(c.RunUntil(0x0C)).To(Succeed())

		Expect(memory.ReadWord(0x104)).To(Equal(uint32(2)))
		Expect(memory.ReadWord(0x108)).To(BeZero())
		Expect(c.Stats().Instructions).To(Equal(uint64(4)))
	})

	It("should report an exceeded cycle budget", func() {
		c = core.NewCore(regFile, memory, memory, core.WithMaxCycles(50))
		memory.LoadWords(0, program)

		err := c.RunUntil(0x400)

		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, core.ErrCycleBudgetExceeded)).To(BeTrue())
		Expect(c.Stats().Cycles).To(Equal(uint64(50)))
	})

	It("should invoke hooks every cycle", func() {
		hook := &recordingHook{}
		c.AcceptHook(hook)
		memory.LoadWords(0, program)

		Expect(c.Run()).To(Succeed())

		Expect(hook.cycles).To(Equal(int(c.Stats().Cycles)))
		Expect(hook.writes).To(Equal([]emu.MemWrite{
			{Addr: 0x100, Value: 1},
			{Addr: 0x104, Value: 2},
			{Addr: 0x108, Value: 3},
		}))
		Expect(hook.retired).To(Equal([]uint32{0, 4, 8, 12, 16, 20, 24}))
	})

	It("should pass pipeline options through", func() {
		c = core.NewCore(regFile, memory, memory,
			core.WithName("CPU"),
			core.WithFrequency(50*sim.MHz),
			core.WithPipelineOptions(pipeline.WithoutBTB()),
		)

		Expect(c.Name()).To(Equal("CPU"))
		Expect(c.Pipeline.BTB()).To(BeNil())
	})

	It("should share an engine between runs", func() {
		engine := sim.NewSerialEngine()
		c = core.NewCore(regFile, memory, memory, core.WithEngine(engine))
		memory.LoadWords(0, program)

		Expect(c.RunUntil(0x04)).To(Succeed())
		Expect(c.RunUntil(0x14)).To(Succeed())

		Expect(c.Engine()).To(BeIdenticalTo(engine))
		Expect(memory.ReadWord(0x104)).To(Equal(uint32(2)))
	})

	It("should restart from PC 0 after reset", func() {
		memory.LoadWords(0, program)
		c.RunCycles(4)

		c.AssertReset(2)

		Expect(c.Pipeline.PC()).To(BeZero())
		Expect(c.Pipeline.Latches()).To(Equal(pipeline.Latches{}))

		c.Reset()
		Expect(c.Stats()).To(Equal(core.Stats{}))
		Expect(c.Run()).To(Succeed())
		Expect(memory.ReadWord(0x108)).To(Equal(uint32(3)))
	})

	DescribeTable("IsSelfLoop",
		func(pc uint32, word uint32, expected bool) {
			inst := insts.NewDecoder().Decode(word)
			Expect(core.IsSelfLoop(pc, inst)).To(Equal(expected))
		},
		Entry("J to itself", uint32(0x18), insts.EncodeJump(6), true),
		Entry("J elsewhere", uint32(0x18), insts.EncodeJump(5), false),
		Entry("BEQ r0,r0,-1", uint32(0x20), insts.EncodeBEQ(0, 0, -1), true),
		Entry("BEQ on different registers", uint32(0x20), insts.EncodeBEQ(1, 0, -1), false),
		Entry("ADD", uint32(0), insts.EncodeADD(1, 2, 3), false),
	)

	It("should not treat a missing instruction as a self loop", func() {
		Expect(core.IsSelfLoop(0, nil)).To(BeFalse())
	})
})
