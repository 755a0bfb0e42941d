package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
	"github.com/sarchlab/mipsim/timing/cache"
	"github.com/sarchlab/mipsim/timing/config"
	"github.com/sarchlab/mipsim/timing/core"
	"github.com/sarchlab/mipsim/timing/pipeline"
)

var _ = Describe("Config", func() {
	Describe("Default Config", func() {
		It("should create valid default config", func() {
			c := config.DefaultConfig()
			Expect(c.Validate()).To(Succeed())
			Expect(c.BTBEnabled).To(BeTrue())
			Expect(c.BTBSize).To(Equal(16))
			Expect(c.InstructionMemory).To(Equal("combinational"))
		})

		It("should run at 100 MHz", func() {
			Expect(config.DefaultConfig().Frequency()).To(Equal(100 * sim.MHz))
		})
	})

	Describe("Validation", func() {
		It("should reject an unknown instruction memory mode", func() {
			c := config.DefaultConfig()
			c.InstructionMemory = "dual-port"
			Expect(c.Validate()).To(HaveOccurred())
		})

		It("should reject an unknown data memory mode", func() {
			c := config.DefaultConfig()
			c.DataMemory = "async"
			Expect(c.Validate()).To(HaveOccurred())
		})

		It("should reject an empty enabled BTB", func() {
			c := config.DefaultConfig()
			c.BTBSize = 0
			Expect(c.Validate()).To(HaveOccurred())
		})

		It("should accept an empty disabled BTB", func() {
			c := config.DefaultConfig()
			c.BTBEnabled = false
			c.BTBSize = 0
			Expect(c.Validate()).To(Succeed())
		})

		It("should reject zero max cycles", func() {
			c := config.DefaultConfig()
			c.MaxCycles = 0
			Expect(c.Validate()).To(HaveOccurred())
		})

		It("should reject a non-positive frequency", func() {
			c := config.DefaultConfig()
			c.FrequencyMHz = 0
			Expect(c.Validate()).To(HaveOccurred())
		})
	})

	Describe("Clone", func() {
		It("should create independent copy", func() {
			original := config.DefaultConfig()
			clone := original.Clone()

			clone.BTBSize = 4

			Expect(original.BTBSize).To(Equal(16))
			Expect(clone.BTBSize).To(Equal(4))
		})

		It("should copy cache configurations", func() {
			original := config.DefaultConfig()
			icache := cache.DefaultL1IConfig()
			original.ICache = &icache

			clone := original.Clone()
			clone.ICache.Size = 4096

			Expect(original.ICache.Size).To(Equal(1024))
		})
	})

	Describe("Caches", func() {
		It("should reject an invalid cache geometry", func() {
			c := config.DefaultConfig()
			c.DCache = &cache.Config{Size: 100, Associativity: 4, BlockSize: 16}

			Expect(c.Validate()).To(HaveOccurred())
		})

		It("should leave memories alone without caches", func() {
			memory := emu.NewMemory()

			imem, dmem, caches := config.DefaultConfig().AttachCaches(memory, memory)

			Expect(imem).To(BeIdenticalTo(memory))
			Expect(dmem).To(BeIdenticalTo(memory))
			Expect(caches.ICache).To(BeNil())
			Expect(caches.DCache).To(BeNil())
		})

		It("should count accesses without changing results", func() {
			c := config.DefaultConfig()
			icache := cache.DefaultL1IConfig()
			dcache := cache.DefaultL1DConfig()
			c.ICache = &icache
			c.DCache = &dcache

			memory := emu.NewMemory()
			memory.LoadWords(0, []uint32{
				insts.EncodeADDI(1, 0, 7),
				insts.EncodeSW(1, 0, 0x100),
				insts.EncodeLW(2, 0, 0x100),
				insts.EncodeJump(3),
			})

			imem, dmem, caches := c.AttachCaches(memory, memory)
			opts, err := c.CoreOptions()
			Expect(err).NotTo(HaveOccurred())

			regFile := &emu.RegFile{}
			cpu := core.NewCore(regFile, imem, dmem, opts...)
			Expect(cpu.Run()).To(Succeed())

			Expect(regFile.ReadReg(2)).To(Equal(uint32(7)))
			Expect(memory.ReadWord(0x100)).To(Equal(uint32(7)))
			Expect(caches.ICache.Stats().Hits).To(BeNumerically(">", 0))
			Expect(caches.DCache.Stats().Writes).To(Equal(uint64(1)))
			Expect(caches.DCache.Stats().Reads).To(Equal(uint64(1)))
			Expect(caches.DCache.Stats().Hits).To(Equal(uint64(1)))
		})
	})

	Describe("Options", func() {
		It("should configure the pipeline", func() {
			c := config.DefaultConfig()
			c.DataMemory = "registered"
			c.BTBSize = 8

			opts, err := c.PipelineOptions()
			Expect(err).NotTo(HaveOccurred())

			memory := emu.NewMemory()
			p := pipeline.NewPipeline(&emu.RegFile{}, memory, memory, opts...)
			Expect(p.BTB().Size()).To(Equal(8))
		})

		It("should disable the BTB", func() {
			c := config.DefaultConfig()
			c.BTBEnabled = false

			opts, err := c.PipelineOptions()
			Expect(err).NotTo(HaveOccurred())

			memory := emu.NewMemory()
			p := pipeline.NewPipeline(&emu.RegFile{}, memory, memory, opts...)
			Expect(p.BTB()).To(BeNil())
		})

		It("should configure the core", func() {
			c := config.DefaultConfig()
			c.MaxCycles = 20

			opts, err := c.CoreOptions()
			Expect(err).NotTo(HaveOccurred())

			memory := emu.NewMemory()
			cpu := core.NewCore(&emu.RegFile{}, memory, memory, opts...)
			Expect(cpu.RunUntil(0x1000)).To(MatchError(core.ErrCycleBudgetExceeded))
			Expect(cpu.Stats().Cycles).To(Equal(uint64(20)))
		})

		It("should refuse to build options from an invalid config", func() {
			c := config.DefaultConfig()
			c.InstructionMemory = "bogus"

			_, err := c.CoreOptions()
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("File Operations", func() {
		var tempDir string

		BeforeEach(func() {
			var err error
			tempDir, err = os.MkdirTemp("", "config-test")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			_ = os.RemoveAll(tempDir)
		})

		It("should save and load config", func() {
			original := config.DefaultConfig()
			original.DataMemory = "registered"
			original.BTBSize = 32

			path := filepath.Join(tempDir, "mipsim.json")
			Expect(original.SaveConfig(path)).To(Succeed())

			loaded, err := config.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(original))
		})

		It("should keep defaults for missing fields", func() {
			path := filepath.Join(tempDir, "partial.json")
			err := os.WriteFile(path, []byte(`{"btb_size": 4}`), 0644)
			Expect(err).NotTo(HaveOccurred())

			loaded, err := config.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.BTBSize).To(Equal(4))
			Expect(loaded.MaxCycles).To(Equal(uint64(1_000_000)))
		})

		It("should load cache sections", func() {
			path := filepath.Join(tempDir, "caches.json")
			data := `{"icache": {"size": 512, "associativity": 2, "block_size": 16}}`
			Expect(os.WriteFile(path, []byte(data), 0644)).To(Succeed())

			loaded, err := config.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.ICache).To(Equal(&cache.Config{Size: 512, Associativity: 2, BlockSize: 16}))
			Expect(loaded.DCache).To(BeNil())
		})

		It("should return error for non-existent file", func() {
			_, err := config.LoadConfig("/nonexistent/path/mipsim.json")
			Expect(err).To(HaveOccurred())
		})

		It("should return error for invalid JSON", func() {
			path := filepath.Join(tempDir, "invalid.json")
			err := os.WriteFile(path, []byte("not valid json"), 0644)
			Expect(err).NotTo(HaveOccurred())

			_, err = config.LoadConfig(path)
			Expect(err).To(HaveOccurred())
		})

		It("should return error for an invalid value", func() {
			path := filepath.Join(tempDir, "bad.json")
			err := os.WriteFile(path, []byte(`{"max_cycles": 0}`), 0644)
			Expect(err).NotTo(HaveOccurred())

			_, err = config.LoadConfig(path)
			Expect(err).To(HaveOccurred())
		})
	})
})
