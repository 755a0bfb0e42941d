package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/timing/pipeline"
)

var _ = Describe("BTB", func() {
	var btb *pipeline.BTB

	BeforeEach(func() {
		btb = pipeline.NewBTB(2)
	})

	It("should use the default size for non-positive sizes", func() {
		Expect(pipeline.NewBTB(0).Size()).To(Equal(pipeline.DefaultBTBSize))
	})

	It("should miss when empty", func() {
		Expect(btb.Lookup(0x40)).To(Equal(pipeline.BTBLookup{}))
		Expect(btb.Stats().Lookups).To(Equal(uint64(1)))
		Expect(btb.Stats().Hits).To(BeZero())
	})

	It("should allocate a taken branch and hit on it", func() {
		btb.Update(0x40, 0x80, true)

		Expect(btb.Lookup(0x40)).To(Equal(pipeline.BTBLookup{
			Hit: true, Target: 0x80, Taken: true,
		}))
		Expect(btb.Lookup(0x44).Hit).To(BeFalse())
	})

	It("should tag by word-aligned PC", func() {
		btb.Update(0x43, 0x80, true)

		Expect(btb.Lookup(0x40).Hit).To(BeTrue())
	})

	It("should not allocate a not-taken branch", func() {
		btb.Update(0x40, 0x80, false)

		Expect(btb.Entries()).To(BeEmpty())
		Expect(btb.Lookup(0x40).Hit).To(BeFalse())
	})

	It("should overwrite an existing entry in place", func() {
		btb.Update(0x40, 0x80, true)
		btb.Update(0x40, 0x90, false)

		Expect(btb.Lookup(0x40)).To(Equal(pipeline.BTBLookup{
			Hit: true, Target: 0x90, Taken: false,
		}))
		Expect(btb.Entries()).To(HaveLen(1))
		Expect(btb.Stats().Evictions).To(BeZero())
	})

	It("should replace entries round-robin regardless of hits", func() {
		btb.Update(0x10, 0x100, true)
		btb.Update(0x20, 0x200, true)

		// Hits do not refresh an entry.
		btb.Lookup(0x10)
		btb.Lookup(0x10)

		btb.Update(0x30, 0x300, true)
		Expect(btb.Lookup(0x10).Hit).To(BeFalse())
		Expect(btb.Lookup(0x20).Hit).To(BeTrue())
		Expect(btb.Lookup(0x30).Hit).To(BeTrue())

		btb.Update(0x40, 0x400, true)
		Expect(btb.Lookup(0x20).Hit).To(BeFalse())
		Expect(btb.Lookup(0x30).Hit).To(BeTrue())
		Expect(btb.Lookup(0x40).Hit).To(BeTrue())

		Expect(btb.Stats().Evictions).To(Equal(uint64(2)))
	})

	It("should list valid entries", func() {
		btb.Update(0x10, 0x100, true)

		Expect(btb.Entries()).To(ConsistOf(pipeline.BTBEntry{
			PC: 0x10, Target: 0x100, Taken: true,
		}))
	})

	It("should forget everything on reset", func() {
		btb.Update(0x10, 0x100, true)
		btb.Lookup(0x10)
		btb.Reset()

		Expect(btb.Entries()).To(BeEmpty())
		Expect(btb.Stats()).To(Equal(pipeline.BTBStats{}))
	})

	It("should report the hit rate", func() {
		Expect(pipeline.BTBStats{}.HitRate()).To(BeZero())
		Expect(pipeline.BTBStats{Lookups: 4, Hits: 1}.HitRate()).To(Equal(25.0))
	})
})
