package pipeline

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// DefaultBTBSize is the number of BTB entries used when none is configured.
const DefaultBTBSize = 16

// BTBLookup is the combinational result of a BTB probe.
type BTBLookup struct {
	Hit    bool
	Target uint32
	Taken  bool
}

// BTBEntry is a valid BTB slot as seen from outside.
type BTBEntry struct {
	PC     uint32
	Target uint32
	Taken  bool
}

// BTBStats holds statistics for the branch target buffer.
type BTBStats struct {
	Lookups   uint64
	Hits      uint64
	Updates   uint64
	Evictions uint64
}

// HitRate returns the BTB hit rate as a percentage.
func (s BTBStats) HitRate() float64 {
	if s.Lookups == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Lookups) * 100
}

// BTB is a fully-associative branch target buffer.
//
// Tags live in an Akita cache directory with a single set. The directory's
// LRU queue is only touched when a slot is allocated, so the victim order
// is the allocation order and replacement is round-robin.
type BTB struct {
	size      int
	directory *akitacache.DirectoryImpl

	// Payload indexed by way.
	targets []uint32
	taken   []bool

	stats BTBStats
}

// NewBTB creates a BTB with the given number of entries.
func NewBTB(size int) *BTB {
	if size <= 0 {
		size = DefaultBTBSize
	}

	return &BTB{
		size: size,
		directory: akitacache.NewDirectory(
			1,
			size,
			4,
			akitacache.NewLRUVictimFinder(),
		),
		targets: make([]uint32, size),
		taken:   make([]bool, size),
	}
}

// Size returns the number of entries.
func (b *BTB) Size() int {
	return b.size
}

// Lookup probes the BTB with a fetch PC.
func (b *BTB) Lookup(pc uint32) BTBLookup {
	b.stats.Lookups++

	block := b.directory.Lookup(0, uint64(pc&^3))
	if block == nil || !block.IsValid {
		return BTBLookup{}
	}

	b.stats.Hits++

	return BTBLookup{
		Hit:    true,
		Target: b.targets[block.WayID],
		Taken:  b.taken[block.WayID],
	}
}

// Update records a resolved control instruction. A present entry is
// overwritten. An absent entry is allocated only for a taken outcome,
// evicting the oldest allocation when the buffer is full.
func (b *BTB) Update(pc, target uint32, taken bool) {
	tag := uint64(pc &^ 3)

	block := b.directory.Lookup(0, tag)
	if block != nil && block.IsValid {
		b.stats.Updates++
		b.targets[block.WayID] = target
		b.taken[block.WayID] = taken
		return
	}

	if !taken {
		return
	}

	victim := b.directory.FindVictim(tag)
	if victim == nil {
		return
	}

	if victim.IsValid {
		b.stats.Evictions++
	}

	b.stats.Updates++
	victim.Tag = tag
	victim.IsValid = true
	b.targets[victim.WayID] = target
	b.taken[victim.WayID] = taken

	b.directory.Visit(victim)
}

// Entries returns the valid entries in way order.
func (b *BTB) Entries() []BTBEntry {
	var entries []BTBEntry

	for _, set := range b.directory.GetSets() {
		for _, block := range set.Blocks {
			if !block.IsValid {
				continue
			}
			entries = append(entries, BTBEntry{
				PC:     uint32(block.Tag),
				Target: b.targets[block.WayID],
				Taken:  b.taken[block.WayID],
			})
		}
	}

	return entries
}

// Stats returns BTB statistics.
func (b *BTB) Stats() BTBStats {
	return b.stats
}

// Reset invalidates all entries and clears statistics.
func (b *BTB) Reset() {
	b.directory.Reset()
	for i := range b.targets {
		b.targets[i] = 0
		b.taken[i] = false
	}
	b.stats = BTBStats{}
}
