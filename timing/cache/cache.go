// Package cache provides word-granular cache models built on Akita cache
// components. A Cache sits in front of a pipeline memory and counts hits and
// misses. It is write-through and adds no latency; the pipeline's memory
// timing is fixed by its memory mode.
package cache

import (
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/mipsim/timing/pipeline"
)

// Config holds cache configuration parameters.
type Config struct {
	// Size in bytes
	Size int `json:"size"`
	// Associativity (number of ways)
	Associativity int `json:"associativity"`
	// BlockSize in bytes (cache line size)
	BlockSize int `json:"block_size"`
}

// DefaultL1IConfig returns the default instruction cache: 1KB, 2-way,
// 16B lines.
func DefaultL1IConfig() Config {
	return Config{
		Size:          1024,
		Associativity: 2,
		BlockSize:     16,
	}
}

// DefaultL1DConfig returns the default data cache: 1KB, 4-way, 16B lines.
func DefaultL1DConfig() Config {
	return Config{
		Size:          1024,
		Associativity: 4,
		BlockSize:     16,
	}
}

// Validate checks that the geometry describes at least one whole set of
// word-multiple blocks.
func (c Config) Validate() error {
	if c.BlockSize < 4 || c.BlockSize%4 != 0 {
		return fmt.Errorf("block_size must be a positive multiple of 4, got %d", c.BlockSize)
	}
	if c.Associativity <= 0 {
		return fmt.Errorf("associativity must be > 0, got %d", c.Associativity)
	}
	setBytes := c.Associativity * c.BlockSize
	if c.Size < setBytes || c.Size%setBytes != 0 {
		return fmt.Errorf("size %d is not a multiple of associativity*block_size (%d)",
			c.Size, setBytes)
	}
	return nil
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads     uint64
	Writes    uint64
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// HitRate returns hits over all accesses, or 0 before the first access.
func (s Statistics) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache is a write-through, write-allocate cache using an Akita directory
// for tag and LRU state.
type Cache struct {
	config Config

	directory *akitacache.DirectoryImpl

	// Data storage - indexed by (setID * associativity + wayID)
	dataStore [][]uint32

	stats Statistics

	backing pipeline.Memory
}

// New creates a new cache with the given configuration. The configuration
// must be valid.
func New(config Config, backing pipeline.Memory) *Cache {
	numSets := config.Size / (config.Associativity * config.BlockSize)
	totalBlocks := numSets * config.Associativity

	dataStore := make([][]uint32, totalBlocks)
	for i := range dataStore {
		dataStore[i] = make([]uint32, config.BlockSize/4)
	}

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		dataStore: dataStore,
		backing:   backing,
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats clears cache statistics.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

func (c *Cache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.config.Associativity + block.WayID
}

func (c *Cache) blockAddr(addr uint32) uint64 {
	size := uint64(c.config.BlockSize)
	return uint64(addr) / size * size
}

func (c *Cache) wordOffset(addr uint32) int {
	return int(addr%uint32(c.config.BlockSize)) / 4
}

// ReadWord reads the word containing addr, filling the line on a miss.
func (c *Cache) ReadWord(addr uint32) uint32 {
	c.stats.Reads++

	block := c.directory.Lookup(0, c.blockAddr(addr))
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)
		return c.dataStore[c.blockIndex(block)][c.wordOffset(addr)]
	}

	c.stats.Misses++
	line := c.fill(addr)
	return line[c.wordOffset(addr)]
}

// WriteWord writes through to the backing memory and updates or allocates
// the line.
func (c *Cache) WriteWord(addr, value uint32) {
	c.stats.Writes++
	c.backing.WriteWord(addr, value)

	block := c.directory.Lookup(0, c.blockAddr(addr))
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)
		c.dataStore[c.blockIndex(block)][c.wordOffset(addr)] = value
		return
	}

	c.stats.Misses++
	c.fill(addr)
}

// fill brings the line holding addr in from the backing memory.
func (c *Cache) fill(addr uint32) []uint32 {
	blockAddr := c.blockAddr(addr)

	victim := c.directory.FindVictim(blockAddr)
	if victim.IsValid {
		c.stats.Evictions++
	}

	line := c.dataStore[c.blockIndex(victim)]
	for i := range line {
		line[i] = c.backing.ReadWord(uint32(blockAddr) + uint32(i*4))
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	c.directory.Visit(victim)

	return line
}

// Invalidate marks the line holding addr as invalid.
func (c *Cache) Invalidate(addr uint32) {
	block := c.directory.Lookup(0, c.blockAddr(addr))
	if block != nil && block.IsValid {
		block.IsValid = false
	}
}

// Reset invalidates all lines and clears the statistics.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}
