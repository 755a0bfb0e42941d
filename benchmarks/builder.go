package benchmarks

import (
	"fmt"

	"github.com/sarchlab/mipsim/insts"
)

// ProgramBuilder assembles instruction words with symbolic branch and jump
// targets. Labels may be used before they are defined.
type ProgramBuilder struct {
	base   uint32
	words  []uint32
	fixups []fixup
	labels map[string]int
	err    error
}

type fixupKind int

const (
	fixupBranch fixupKind = iota
	fixupJump
)

type fixup struct {
	index int
	label string
	kind  fixupKind
}

// NewProgramBuilder creates a builder for a program loaded at base.
func NewProgramBuilder(base uint32) *ProgramBuilder {
	return &ProgramBuilder{
		base:   base,
		labels: make(map[string]int),
	}
}

// Label binds name to the address of the next instruction.
func (b *ProgramBuilder) Label(name string) *ProgramBuilder {
	if _, dup := b.labels[name]; dup && b.err == nil {
		b.err = fmt.Errorf("duplicate label %q", name)
	}
	b.labels[name] = len(b.words)
	return b
}

// Emit appends already encoded instruction words.
func (b *ProgramBuilder) Emit(words ...uint32) *ProgramBuilder {
	b.words = append(b.words, words...)
	return b
}

// BEQ appends a BEQ to label.
func (b *ProgramBuilder) BEQ(rs, rt uint8, label string) *ProgramBuilder {
	return b.branch(insts.EncodeBEQ(rs, rt, 0), label)
}

// BNE appends a BNE to label.
func (b *ProgramBuilder) BNE(rs, rt uint8, label string) *ProgramBuilder {
	return b.branch(insts.EncodeBNE(rs, rt, 0), label)
}

// J appends a jump to label.
func (b *ProgramBuilder) J(label string) *ProgramBuilder {
	return b.jump(insts.EncodeJump(0), label)
}

// JAL appends a call to label.
func (b *ProgramBuilder) JAL(label string) *ProgramBuilder {
	return b.jump(insts.EncodeJAL(0), label)
}

func (b *ProgramBuilder) branch(word uint32, label string) *ProgramBuilder {
	b.fixups = append(b.fixups, fixup{index: len(b.words), label: label, kind: fixupBranch})
	return b.Emit(word)
}

func (b *ProgramBuilder) jump(word uint32, label string) *ProgramBuilder {
	b.fixups = append(b.fixups, fixup{index: len(b.words), label: label, kind: fixupJump})
	return b.Emit(word)
}

// Len returns the number of instructions emitted so far.
func (b *ProgramBuilder) Len() int {
	return len(b.words)
}

// Addr returns the byte address of a defined label.
func (b *ProgramBuilder) Addr(label string) (uint32, error) {
	idx, ok := b.labels[label]
	if !ok {
		return 0, fmt.Errorf("undefined label %q", label)
	}
	return b.base + uint32(idx)*4, nil
}

// Build resolves all labels and returns the program words.
//
// Branch offsets are counted in words from the instruction after the
// branch. Jump targets are absolute word indices.
func (b *ProgramBuilder) Build() ([]uint32, error) {
	if b.err != nil {
		return nil, b.err
	}

	words := make([]uint32, len(b.words))
	copy(words, b.words)

	for _, f := range b.fixups {
		target, ok := b.labels[f.label]
		if !ok {
			return nil, fmt.Errorf("undefined label %q", f.label)
		}

		switch f.kind {
		case fixupBranch:
			offset := target - (f.index + 1)
			if offset < -32768 || offset > 32767 {
				return nil, fmt.Errorf("branch to %q out of range: %d words", f.label, offset)
			}
			words[f.index] = words[f.index]&^0xFFFF | uint32(uint16(int16(offset)))
		case fixupJump:
			addr := b.base + uint32(target)*4
			words[f.index] = words[f.index]&^0x3FFFFFF | (addr>>2)&0x3FFFFFF
		}
	}

	return words, nil
}

// MustBuild is like Build but panics on error. It is meant for fixed
// fixtures whose labels are known to be valid.
func (b *ProgramBuilder) MustBuild() []uint32 {
	words, err := b.Build()
	if err != nil {
		panic(err)
	}
	return words
}
