// Package loader reads MIPS program images: 32-bit MIPS ELF executables and
// plain hex word images.
package loader

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/sarchlab/mipsim/emu"
)

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// Segment represents a contiguous block of the image.
type Segment struct {
	// VirtAddr is the byte address where this segment should be loaded.
	VirtAddr uint32
	// Data contains the segment contents from the file.
	Data []byte
	// MemSize is the size in memory (may be larger than len(Data) for BSS).
	MemSize uint32
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// Program represents a loaded image ready for execution.
type Program struct {
	// EntryPoint is the address where execution should begin.
	EntryPoint uint32
	// Segments contains all loadable segments.
	Segments []Segment
	// ByteOrder is the order of the bytes of each word in Data.
	ByteOrder binary.ByteOrder
}

// Words returns the contents of a segment as instruction words. A trailing
// partial word is zero padded.
func (p *Program) Words(seg Segment) []uint32 {
	n := (len(seg.Data) + 3) / 4
	words := make([]uint32, n)

	buf := make([]byte, 4)
	for i := 0; i < n; i++ {
		for j := range buf {
			buf[j] = 0
		}
		copy(buf, seg.Data[i*4:])
		words[i] = p.ByteOrder.Uint32(buf)
	}

	return words
}

// LoadIntoMemory writes every segment into m. BSS is left at zero.
func (p *Program) LoadIntoMemory(m *emu.Memory) {
	for _, seg := range p.Segments {
		m.LoadWords(seg.VirtAddr, p.Words(seg))
	}
}

var elfMagic = []byte{0x7f, 'E', 'L', 'F'}

// Load reads an image, choosing the format from its first bytes.
func Load(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open program: %w", err)
	}

	magic := make([]byte, len(elfMagic))
	n, _ := f.Read(magic)
	_ = f.Close()

	if n == len(elfMagic) && bytes.Equal(magic, elfMagic) {
		return LoadELF(path)
	}

	return LoadHex(path)
}
