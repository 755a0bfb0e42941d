// Package config holds the JSON configuration of a simulated core.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/mipsim/timing/cache"
	"github.com/sarchlab/mipsim/timing/core"
	"github.com/sarchlab/mipsim/timing/pipeline"
)

// Config holds the parameters of the pipeline model and its simulation
// driver.
type Config struct {
	// InstructionMemory is the read timing of instruction memory,
	// "combinational" or "registered". Default: combinational.
	InstructionMemory string `json:"instruction_memory"`

	// DataMemory is the read timing of data memory. Default: combinational.
	DataMemory string `json:"data_memory"`

	// BTBEnabled turns the branch target buffer on. Default: true.
	BTBEnabled bool `json:"btb_enabled"`

	// BTBSize is the number of BTB entries. Default: 16.
	BTBSize int `json:"btb_size"`

	// MaxCycles bounds a run. Default: 1000000 cycles.
	MaxCycles uint64 `json:"max_cycles"`

	// FrequencyMHz is the core clock used by the simulation engine.
	// Default: 100 MHz.
	FrequencyMHz float64 `json:"frequency_mhz"`

	// ICache and DCache, when set, place a hit/miss counting cache in
	// front of instruction and data memory. Default: none.
	ICache *cache.Config `json:"icache,omitempty"`
	DCache *cache.Config `json:"dcache,omitempty"`
}

// Caches holds the caches built by AttachCaches. Either may be nil.
type Caches struct {
	ICache *cache.Cache
	DCache *cache.Cache
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		InstructionMemory: pipeline.Combinational.String(),
		DataMemory:        pipeline.Combinational.String(),
		BTBEnabled:        true,
		BTBSize:           pipeline.DefaultBTBSize,
		MaxCycles:         1_000_000,
		FrequencyMHz:      100,
	}
}

// LoadConfig loads a Config from a JSON file. Fields missing from the file
// keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that all values are usable.
func (c *Config) Validate() error {
	if _, err := pipeline.ParseMemoryMode(c.InstructionMemory); err != nil {
		return fmt.Errorf("instruction_memory: %w", err)
	}
	if _, err := pipeline.ParseMemoryMode(c.DataMemory); err != nil {
		return fmt.Errorf("data_memory: %w", err)
	}
	if c.BTBEnabled && c.BTBSize <= 0 {
		return fmt.Errorf("btb_size must be > 0 when the BTB is enabled")
	}
	if c.MaxCycles == 0 {
		return fmt.Errorf("max_cycles must be > 0")
	}
	if c.FrequencyMHz <= 0 {
		return fmt.Errorf("frequency_mhz must be > 0")
	}
	if c.ICache != nil {
		if err := c.ICache.Validate(); err != nil {
			return fmt.Errorf("icache: %w", err)
		}
	}
	if c.DCache != nil {
		if err := c.DCache.Validate(); err != nil {
			return fmt.Errorf("dcache: %w", err)
		}
	}
	return nil
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	if c.ICache != nil {
		icache := *c.ICache
		clone.ICache = &icache
	}
	if c.DCache != nil {
		dcache := *c.DCache
		clone.DCache = &dcache
	}
	return &clone
}

// AttachCaches wraps imem and dmem in the configured caches and returns
// the memories the pipeline should use.
func (c *Config) AttachCaches(
	imem, dmem pipeline.Memory,
) (pipeline.Memory, pipeline.Memory, Caches) {
	var caches Caches

	if c.ICache != nil {
		caches.ICache = cache.New(*c.ICache, imem)
		imem = caches.ICache
	}
	if c.DCache != nil {
		caches.DCache = cache.New(*c.DCache, dmem)
		dmem = caches.DCache
	}

	return imem, dmem, caches
}

// Frequency returns the core clock.
func (c *Config) Frequency() sim.Freq {
	return sim.Freq(c.FrequencyMHz) * sim.MHz
}

// PipelineOptions translates the configuration into pipeline options.
func (c *Config) PipelineOptions() ([]pipeline.PipelineOption, error) {
	imem, err := pipeline.ParseMemoryMode(c.InstructionMemory)
	if err != nil {
		return nil, fmt.Errorf("instruction_memory: %w", err)
	}

	dmem, err := pipeline.ParseMemoryMode(c.DataMemory)
	if err != nil {
		return nil, fmt.Errorf("data_memory: %w", err)
	}

	opts := []pipeline.PipelineOption{
		pipeline.WithInstructionMemoryMode(imem),
		pipeline.WithDataMemoryMode(dmem),
	}

	if c.BTBEnabled {
		opts = append(opts, pipeline.WithBTBSize(c.BTBSize))
	} else {
		opts = append(opts, pipeline.WithoutBTB())
	}

	return opts, nil
}

// CoreOptions translates the configuration into core options.
func (c *Config) CoreOptions() ([]core.Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	pipeOpts, err := c.PipelineOptions()
	if err != nil {
		return nil, err
	}

	return []core.Option{
		core.WithFrequency(c.Frequency()),
		core.WithMaxCycles(c.MaxCycles),
		core.WithPipelineOptions(pipeOpts...),
	}, nil
}
