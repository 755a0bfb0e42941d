package benchmarks

import (
	"fmt"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
)

// Memory-mapped locations written by the Hamming program.
const (
	HammingIOBase     uint32 = 0xFFFF0000
	HammingStatusAddr        = HammingIOBase + 4
	HammingDataAddr          = HammingIOBase + 8

	// HammingStatusRight is "RGHT", stored when the input has no error.
	HammingStatusRight uint32 = 0x52474854
)

// DefaultHammingInputs are the words checked by the default Hamming
// program: a valid codeword, a flipped parity bit and a flipped data bit.
var DefaultHammingInputs = []uint16{0x0000, 0x0001, 0x0017}

// Each parity round ANDs the input with mask and folds the parity into
// syndrome bit shift.
var hammingRounds = []struct {
	mask  uint16
	shift uint8
}{
	{0x5555, 0},
	{0x6666, 1},
	{0x7878, 2},
	{0x7F80, 3},
}

// HammingFixture is a Hamming(15,11) check-and-correct program with its
// expected output.
type HammingFixture struct {
	Inputs  []uint16
	Program []uint32

	// DonePC is the address of the final self loop.
	DonePC uint32

	// ExpectedWrites is the status/data pair stored for every input.
	ExpectedWrites []emu.MemWrite
}

// HammingSyndrome returns the 4-bit syndrome of a 15-bit codeword. Bit k
// of the word is covered by parity bit i when bit i of k+1 is set.
func HammingSyndrome(word uint16) uint32 {
	var syndrome uint32
	for _, r := range hammingRounds {
		v := word & r.mask
		parity := uint32(0)
		for i := 0; i < 16; i++ {
			parity ^= uint32(v>>i) & 1
		}
		syndrome |= parity << r.shift
	}
	return syndrome
}

// HammingExpected returns the status and data words the program stores for
// input.
func HammingExpected(input uint16) (status, data uint32) {
	syndrome := HammingSyndrome(input)
	if syndrome == 0 {
		return HammingStatusRight, uint32(input)
	}
	return syndrome, uint32(input) ^ 1<<(syndrome-1)
}

// NewHammingFixture builds the Hamming program for the given inputs.
func NewHammingFixture(inputs ...uint16) (*HammingFixture, error) {
	b := NewProgramBuilder(0)

	b.Label("main").Emit(
		insts.EncodeADDI(23, 0, -1),
		insts.EncodeSLL(23, 23, 16),
	)
	for _, in := range inputs {
		b.Emit(loadInput(in)).JAL("run_test")
	}
	b.Label("end_loop").J("end_loop")

	b.Label("run_test").Emit(
		insts.EncodeADD(20, 31, 0),
		insts.EncodeADD(17, 0, 0),
		insts.EncodeADD(16, 4, 0),
	)

	for i, r := range hammingRounds {
		loop := fmt.Sprintf("parity%d_loop", i)
		done := fmt.Sprintf("parity%d_done", i)

		b.Emit(
			insts.EncodeORI(8, 0, r.mask),
			insts.EncodeAND(9, 16, 8),
			insts.EncodeADD(2, 0, 0),
			insts.EncodeADDI(10, 0, 16),
		)
		b.Label(loop).BEQ(10, 0, done).Emit(
			insts.EncodeANDI(11, 9, 1),
			insts.EncodeADD(2, 2, 11),
			insts.EncodeSRL(9, 9, 1),
			insts.EncodeADDI(10, 10, -1),
		).J(loop)
		b.Label(done).Emit(insts.EncodeANDI(2, 2, 1))
		if r.shift > 0 {
			b.Emit(insts.EncodeSLL(2, 2, r.shift))
		}
		b.Emit(insts.EncodeOR(17, 17, 2))
	}

	b.BEQ(17, 0, "is_right")

	b.Emit(
		insts.EncodeSW(17, 23, 4),
		insts.EncodeADDI(10, 17, -1),
		insts.EncodeADDI(11, 0, 1),
		insts.EncodeADD(12, 0, 0),
	)
	b.Label("fix_shift").BEQ(12, 10, "fix_now").Emit(
		insts.EncodeSLL(11, 11, 1),
		insts.EncodeADDI(12, 12, 1),
	).J("fix_shift")
	b.Label("fix_now").Emit(
		insts.EncodeOR(13, 16, 11),
		insts.EncodeAND(14, 16, 11),
		insts.EncodeADDI(15, 0, -1),
		insts.EncodeSUB(14, 15, 14),
		insts.EncodeAND(16, 13, 14),
		insts.EncodeSW(16, 23, 8),
	).J("test_done")

	b.Label("is_right").Emit(
		insts.EncodeORI(9, 0, uint16(HammingStatusRight>>16)),
		insts.EncodeSLL(9, 9, 16),
		insts.EncodeORI(10, 0, uint16(HammingStatusRight&0xFFFF)),
		insts.EncodeOR(9, 9, 10),
		insts.EncodeSW(9, 23, 4),
		insts.EncodeSW(16, 23, 8),
	)

	b.Label("test_done").Emit(
		insts.EncodeADD(31, 20, 0),
		insts.EncodeJR(31),
	)

	words, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build hamming program: %w", err)
	}

	donePC, err := b.Addr("end_loop")
	if err != nil {
		return nil, err
	}

	f := &HammingFixture{
		Inputs:  append([]uint16(nil), inputs...),
		Program: words,
		DonePC:  donePC,
	}

	for _, in := range inputs {
		status, data := HammingExpected(in)
		f.ExpectedWrites = append(f.ExpectedWrites,
			emu.MemWrite{Addr: HammingStatusAddr, Value: status},
			emu.MemWrite{Addr: HammingDataAddr, Value: data},
		)
	}

	return f, nil
}

// loadInput returns the instruction placing in into r4.
func loadInput(in uint16) uint32 {
	switch in {
	case 0:
		return insts.EncodeADD(4, 0, 0)
	case 1:
		return insts.EncodeADDI(4, 0, 1)
	default:
		return insts.EncodeORI(4, 0, in)
	}
}

// Benchmark returns the fixture as a harness benchmark.
func (f *HammingFixture) Benchmark() Benchmark {
	return Benchmark{
		Name:           "hamming",
		Description:    "Hamming(15,11) syndrome and single-bit correction",
		Program:        f.Program,
		ExpectedWrites: f.ExpectedWrites,
	}
}

func hamming() Benchmark {
	f, err := NewHammingFixture(DefaultHammingInputs...)
	if err != nil {
		panic(err)
	}
	return f.Benchmark()
}
