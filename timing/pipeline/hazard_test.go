package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/timing/pipeline"
)

var _ = Describe("ForwardingUnit", func() {
	var (
		unit *pipeline.ForwardingUnit
		snap pipeline.ForwardingSnapshot
	)

	BeforeEach(func() {
		unit = pipeline.NewForwardingUnit()
		snap = pipeline.ForwardingSnapshot{
			EXMEMDest:     5,
			EXMEMRegWrite: true,
			EXMEMValue:    100,
			MEMWBDest:     6,
			MEMWBRegWrite: true,
			MEMWBValue:    200,
		}
	})

	It("should forward from EX/MEM", func() {
		v, src := unit.Select(5, 1, snap)

		Expect(v).To(Equal(uint32(100)))
		Expect(src).To(Equal(pipeline.ForwardFromEXMEM))
	})

	It("should forward from MEM/WB", func() {
		v, src := unit.Select(6, 1, snap)

		Expect(v).To(Equal(uint32(200)))
		Expect(src).To(Equal(pipeline.ForwardFromMEMWB))
	})

	It("should prefer EX/MEM when both match", func() {
		snap.MEMWBDest = 5

		v, src := unit.Select(5, 1, snap)
		Expect(v).To(Equal(uint32(100)))
		Expect(src).To(Equal(pipeline.ForwardFromEXMEM))
	})

	It("should skip producers that do not write", func() {
		snap.EXMEMRegWrite = false
		snap.MEMWBDest = 5

		v, src := unit.Select(5, 1, snap)
		Expect(v).To(Equal(uint32(200)))
		Expect(src).To(Equal(pipeline.ForwardFromMEMWB))
	})

	It("should use the fallback when nothing matches", func() {
		v, src := unit.Select(7, 1, snap)

		Expect(v).To(Equal(uint32(1)))
		Expect(src).To(Equal(pipeline.ForwardNone))
	})

	It("should never forward register 0", func() {
		snap.EXMEMDest = 0
		snap.MEMWBDest = 0

		v, src := unit.Select(0, 0, snap)
		Expect(v).To(BeZero())
		Expect(src).To(Equal(pipeline.ForwardNone))
	})

	It("should name its sources", func() {
		Expect(pipeline.ForwardFromEXMEM.String()).To(Equal("EX/MEM"))
		Expect(pipeline.ForwardNone.String()).To(Equal("none"))
	})

	It("should build a snapshot from latches", func() {
		exmem := pipeline.EXMEMRegister{Valid: true, RegWrite: true, DestReg: 3, ALUResult: 9}
		memwb := pipeline.MEMWBRegister{
			Valid: true, RegWrite: true, MemToReg: true, DestReg: 4, ALUResult: 1, MemData: 8,
		}

		s := pipeline.NewForwardingSnapshot(&exmem, &memwb)
		Expect(s).To(Equal(pipeline.ForwardingSnapshot{
			EXMEMDest: 3, EXMEMRegWrite: true, EXMEMValue: 9,
			MEMWBDest: 4, MEMWBRegWrite: true, MEMWBValue: 8,
		}))
	})

	It("should not treat bubbles as producers", func() {
		exmem := pipeline.EXMEMRegister{RegWrite: true, DestReg: 3}
		memwb := pipeline.MEMWBRegister{RegWrite: true, DestReg: 4}

		s := pipeline.NewForwardingSnapshot(&exmem, &memwb)
		Expect(s.EXMEMRegWrite).To(BeFalse())
		Expect(s.MEMWBRegWrite).To(BeFalse())
	})
})

var _ = Describe("HazardDetectionUnit", func() {
	var unit *pipeline.HazardDetectionUnit

	BeforeEach(func() {
		unit = pipeline.NewHazardDetectionUnit()
	})

	Context("load-use", func() {
		snap := pipeline.HazardSnapshot{IDEXMemRead: true, IDEXRegWrite: true, IDEXDest: 1}

		It("should stall when a used operand is the load destination", func() {
			Expect(unit.Detect(pipeline.HazardInput{Reg: 1, Used: true}, snap)).
				To(Equal(pipeline.HazardLoadUse))
		})

		It("should not stall for an unused operand", func() {
			Expect(unit.Detect(pipeline.HazardInput{Reg: 1}, snap)).
				To(Equal(pipeline.HazardNone))
		})

		It("should not stall for a different register", func() {
			Expect(unit.Detect(pipeline.HazardInput{Reg: 2, Used: true}, snap)).
				To(Equal(pipeline.HazardNone))
		})

		It("should ignore register 0", func() {
			zero := pipeline.HazardSnapshot{IDEXMemRead: true, IDEXRegWrite: true}

			Expect(unit.Detect(pipeline.HazardInput{Reg: 0, Used: true}, zero)).
				To(Equal(pipeline.HazardNone))
		})
	})

	Context("branch operand", func() {
		branch := func(reg uint8) pipeline.HazardInput {
			return pipeline.HazardInput{Reg: reg, Used: true, ResolvesInDecode: true}
		}

		It("should stall on a producer in ID/EX", func() {
			snap := pipeline.HazardSnapshot{IDEXRegWrite: true, IDEXDest: 4}

			Expect(unit.Detect(branch(4), snap)).To(Equal(pipeline.HazardBranchOperand))
		})

		It("should stall on a producer in EX/MEM", func() {
			snap := pipeline.HazardSnapshot{EXMEMRegWrite: true, EXMEMDest: 4}

			Expect(unit.Detect(branch(4), snap)).To(Equal(pipeline.HazardBranchOperand))
		})

		It("should not stall a non-branch on an ALU producer", func() {
			snap := pipeline.HazardSnapshot{IDEXRegWrite: true, IDEXDest: 4}

			Expect(unit.Detect(pipeline.HazardInput{Reg: 4, Used: true}, snap)).
				To(Equal(pipeline.HazardNone))
		})

		It("should report a load feeding a branch as load-use", func() {
			snap := pipeline.HazardSnapshot{IDEXMemRead: true, IDEXRegWrite: true, IDEXDest: 4}

			Expect(unit.Detect(branch(4), snap)).To(Equal(pipeline.HazardLoadUse))
		})
	})

	It("should ignore bubbles when building a snapshot", func() {
		idex := pipeline.IDEXRegister{Control: pipeline.Control{MemRead: true, RegWrite: true, DestReg: 2}}
		exmem := pipeline.EXMEMRegister{RegWrite: true, DestReg: 3}

		snap := pipeline.NewHazardSnapshot(&idex, &exmem)
		Expect(snap.IDEXMemRead).To(BeFalse())
		Expect(snap.IDEXRegWrite).To(BeFalse())
		Expect(snap.EXMEMRegWrite).To(BeFalse())
	})

	It("should name hazard kinds", func() {
		Expect(pipeline.HazardLoadUse.String()).To(Equal("load-use"))
		Expect(pipeline.HazardBranchOperand.String()).To(Equal("branch-operand"))
	})
})
