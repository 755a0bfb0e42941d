package benchmarks

import (
	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
)

// ResultReg is the register microbenchmarks leave their result in.
const ResultReg = 2

// GetMicrobenchmarks returns the standard set of microbenchmarks. Each one
// targets a specific pipeline characteristic.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		memorySequential(),
		functionCalls(),
		branchTaken(),
		loadUseChain(),
		loopSimulation(),
	}
}

// GetCoreBenchmarks returns a minimal set of benchmarks for quick
// validation: a loop, calls, and the Hamming program.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		loopSimulation(),
		functionCalls(),
		hamming(),
	}
}

// GetAllBenchmarks returns the microbenchmarks followed by the Hamming
// program.
func GetAllBenchmarks() []Benchmark {
	return append(GetMicrobenchmarks(), hamming())
}

// halt appends the final self loop.
func halt(b *ProgramBuilder) []uint32 {
	return b.Label("halt").J("halt").MustBuild()
}

// 1. Arithmetic Sequential - independent ADDIs, no forwarding needed
func arithmeticSequential() Benchmark {
	b := NewProgramBuilder(0)
	for i := 0; i < 20; i++ {
		reg := uint8(2 + i%5)
		b.Emit(insts.EncodeADDI(reg, reg, 1))
	}

	return Benchmark{
		Name:         "arithmetic_sequential",
		Description:  "20 ADDIs over 5 registers - measures ALU throughput",
		Program:      halt(b),
		ExpectedRegs: map[uint8]uint32{ResultReg: 4, 6: 4},
	}
}

// 2. Dependency Chain - every instruction reads the previous result
func dependencyChain() Benchmark {
	b := NewProgramBuilder(0)
	for i := 0; i < 20; i++ {
		b.Emit(insts.EncodeADDI(ResultReg, ResultReg, 1))
	}

	return Benchmark{
		Name:         "dependency_chain",
		Description:  "20 dependent ADDIs (r2 = r2 + 1) - measures forwarding",
		Program:      halt(b),
		ExpectedRegs: map[uint8]uint32{ResultReg: 20},
	}
}

// 3. Memory Sequential - store/load pairs to consecutive words
func memorySequential() Benchmark {
	b := NewProgramBuilder(0)
	for i := 0; i < 10; i++ {
		off := int16(4 * i)
		b.Emit(
			insts.EncodeSW(ResultReg, 1, off),
			insts.EncodeLW(ResultReg, 1, off),
		)
	}

	writes := make([]emu.MemWrite, 0, 10)
	for i := 0; i < 10; i++ {
		writes = append(writes, emu.MemWrite{Addr: 0x8000 + uint32(4*i), Value: 42})
	}

	return Benchmark{
		Name:        "memory_sequential",
		Description: "10 store/load pairs to sequential addresses - measures memory forwarding",
		Setup: func(regFile *emu.RegFile, memory *emu.Memory) {
			regFile.WriteReg(1, 0x8000)
			regFile.WriteReg(ResultReg, 42)
		},
		Program:        halt(b),
		ExpectedRegs:   map[uint8]uint32{ResultReg: 42},
		ExpectedWrites: writes,
	}
}

// 4. Function Calls - JAL/JR pairs
func functionCalls() Benchmark {
	b := NewProgramBuilder(0)
	for i := 0; i < 5; i++ {
		b.JAL("add_one")
	}
	b.Label("done").J("done")
	b.Label("add_one").Emit(
		insts.EncodeADDI(ResultReg, ResultReg, 1),
		insts.EncodeJR(31),
	)

	return Benchmark{
		Name:         "function_calls",
		Description:  "5 function calls (JAL + JR pairs) - measures call overhead",
		Program:      b.MustBuild(),
		ExpectedRegs: map[uint8]uint32{ResultReg: 5, 31: 20},
	}
}

// 5. Branch Taken - forward jumps over dead instructions
func branchTaken() Benchmark {
	b := NewProgramBuilder(0)
	for i := 0; i < 5; i++ {
		label := string(rune('a' + i))
		b.J(label).
			Emit(insts.EncodeADDI(3, 3, 99)).
			Label(label).
			Emit(insts.EncodeADDI(ResultReg, ResultReg, 1))
	}

	return Benchmark{
		Name:         "branch_taken",
		Description:  "5 forward jumps - measures jump overhead",
		Program:      halt(b),
		ExpectedRegs: map[uint8]uint32{ResultReg: 5, 3: 0},
	}
}

// 6. Load-Use Chain - every load result is consumed immediately
func loadUseChain() Benchmark {
	b := NewProgramBuilder(0)
	for i := 0; i < 5; i++ {
		b.Emit(
			insts.EncodeLW(3, 1, int16(4*i)),
			insts.EncodeADD(ResultReg, ResultReg, 3),
		)
	}

	return Benchmark{
		Name:        "load_use_chain",
		Description: "5 loads each followed by a dependent ADD - measures load-use stalls",
		Setup: func(regFile *emu.RegFile, memory *emu.Memory) {
			regFile.WriteReg(1, 0x9000)
			memory.LoadWords(0x9000, []uint32{1, 2, 3, 4, 5})
		},
		Program:      halt(b),
		ExpectedRegs: map[uint8]uint32{ResultReg: 15},
	}
}

// 7. Loop Simulation - a counted BNE loop
func loopSimulation() Benchmark {
	b := NewProgramBuilder(0)
	b.Emit(insts.EncodeADDI(10, 0, 10))
	b.Label("loop").Emit(
		insts.EncodeADDI(ResultReg, ResultReg, 3),
		insts.EncodeADDI(10, 10, -1),
	).BNE(10, 0, "loop")

	return Benchmark{
		Name:         "loop_simulation",
		Description:  "10-iteration counted loop - measures branch prediction",
		Program:      halt(b),
		ExpectedRegs: map[uint8]uint32{ResultReg: 30, 10: 0},
	}
}
