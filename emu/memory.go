package emu

import "sort"

// Memory is a sparse word-addressed memory. Byte addresses are accepted and
// their two low bits are dropped. Unwritten words read as zero.
type Memory struct {
	words map[uint32]uint32
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{words: make(map[uint32]uint32)}
}

// ReadWord returns the word containing the byte address addr.
func (m *Memory) ReadWord(addr uint32) uint32 {
	return m.words[addr>>2]
}

// WriteWord stores value at the word containing the byte address addr.
func (m *Memory) WriteWord(addr, value uint32) {
	if value == 0 {
		delete(m.words, addr>>2)
		return
	}
	m.words[addr>>2] = value
}

// LoadWords stores consecutive words starting at byte address base.
func (m *Memory) LoadWords(base uint32, words []uint32) {
	for i, w := range words {
		m.WriteWord(base+uint32(i)*4, w)
	}
}

// ReadWords returns n consecutive words starting at byte address base.
func (m *Memory) ReadWords(base uint32, n int) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = m.ReadWord(base + uint32(i)*4)
	}
	return out
}

// Snapshot returns the non-zero contents keyed by byte address.
func (m *Memory) Snapshot() map[uint32]uint32 {
	snap := make(map[uint32]uint32, len(m.words))
	for idx, w := range m.words {
		snap[idx<<2] = w
	}
	return snap
}

// Addresses returns the byte addresses of all non-zero words in order.
func (m *Memory) Addresses() []uint32 {
	addrs := make([]uint32, 0, len(m.words))
	for idx := range m.words {
		addrs = append(addrs, idx<<2)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

// Clone returns a deep copy of the memory.
func (m *Memory) Clone() *Memory {
	c := NewMemory()
	for idx, w := range m.words {
		c.words[idx] = w
	}
	return c
}

// Reset clears the memory.
func (m *Memory) Reset() {
	m.words = make(map[uint32]uint32)
}
