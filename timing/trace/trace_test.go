package trace_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
	"github.com/sarchlab/mipsim/timing/core"
	"github.com/sarchlab/mipsim/timing/trace"
)

// Writes 7 and then 9 to 0x80 and spins at 0x14.
var program = []uint32{
	insts.EncodeADDI(1, 0, 7),
	insts.EncodeSW(1, 0, 0x80),
	insts.EncodeADDI(1, 1, 2),
	insts.EncodeSW(1, 0, 0x80),
	insts.NOP,
	insts.EncodeJump(5),
}

func newCore() *core.Core {
	memory := emu.NewMemory()
	memory.LoadWords(0, program)
	return core.NewCore(&emu.RegFile{}, memory, memory)
}

var _ = Describe("Recorder", func() {
	It("should record writes and retirements", func() {
		c := newCore()
		rec := trace.NewRecorder()
		c.AcceptHook(rec)

		Expect(c.Run()).To(Succeed())

		Expect(rec.Cycles).To(Equal(c.Stats().Cycles))
		Expect(rec.MemoryWrites()).To(Equal([]emu.MemWrite{
			{Addr: 0x80, Value: 7},
			{Addr: 0x80, Value: 9},
		}))
		Expect(rec.WritesTo(0x82)).To(Equal([]uint32{7, 9}))
		Expect(rec.WritesTo(0x84)).To(BeEmpty())

		Expect(rec.Retired).To(HaveLen(6))
		Expect(rec.Retired[1].PC).To(Equal(uint32(4)))
		Expect(rec.Retired[1].Op).To(Equal("SW"))
		Expect(rec.Retired[1].Word).To(Equal(program[1]))
		Expect(rec.Writes[0].Cycle).To(BeNumerically("<", rec.Writes[1].Cycle))
	})

	It("should forget everything on reset", func() {
		c := newCore()
		rec := trace.NewRecorder()
		c.AcceptHook(rec)
		c.RunCycles(10)

		rec.Reset()

		Expect(rec.Cycles).To(BeZero())
		Expect(rec.Writes).To(BeEmpty())
		Expect(rec.Retired).To(BeEmpty())
	})
})

var _ = Describe("SQLiteRecorder", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "trace-test")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	It("should persist the memory writes of a run", func() {
		rec, err := trace.NewSQLiteRecorder(filepath.Join(tempDir, "trace.sqlite3"))
		Expect(err).NotTo(HaveOccurred())
		defer rec.Close()

		c := newCore()
		c.AcceptHook(rec)
		Expect(c.Run()).To(Succeed())
		Expect(rec.Flush()).To(Succeed())
		Expect(rec.Err()).NotTo(HaveOccurred())

		writes, err := rec.Writes()
		Expect(err).NotTo(HaveOccurred())
		Expect(writes).To(HaveLen(2))
		Expect(writes[0].Addr).To(Equal(uint32(0x80)))
		Expect(writes[0].Value).To(Equal(uint32(7)))
		Expect(writes[1].Value).To(Equal(uint32(9)))

		n, err := rec.RetiredCount()
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(6))
	})

	It("should keep runs apart in a shared database", func() {
		path := filepath.Join(tempDir, "shared.sqlite3")

		first, err := trace.NewSQLiteRecorder(path)
		Expect(err).NotTo(HaveOccurred())
		c := newCore()
		c.AcceptHook(first)
		Expect(c.Run()).To(Succeed())
		Expect(first.Close()).To(Succeed())

		second, err := trace.NewSQLiteRecorder(path)
		Expect(err).NotTo(HaveOccurred())
		defer second.Close()

		Expect(second.RunID()).NotTo(Equal(first.RunID()))

		writes, err := second.Writes()
		Expect(err).NotTo(HaveOccurred())
		Expect(writes).To(BeEmpty())
	})

	It("should fail on an unwritable path", func() {
		_, err := trace.NewSQLiteRecorder(filepath.Join(tempDir, "missing", "dir", "t.sqlite3"))
		Expect(err).To(HaveOccurred())
	})
})
