package pipeline

import "fmt"

// Memory is a word-addressed memory device port. The two low bits of
// byte addresses are ignored.
type Memory interface {
	ReadWord(addr uint32) uint32
	WriteWord(addr, value uint32)
}

// MemoryMode selects the read timing of a memory device.
type MemoryMode int

const (
	// Combinational memories return read data in the same cycle.
	Combinational MemoryMode = iota
	// Registered memories return read data one cycle after the address.
	Registered
)

func (m MemoryMode) String() string {
	switch m {
	case Combinational:
		return "combinational"
	case Registered:
		return "registered"
	default:
		return fmt.Sprintf("MemoryMode(%d)", int(m))
	}
}

// ParseMemoryMode converts a mode name into a MemoryMode.
func ParseMemoryMode(s string) (MemoryMode, error) {
	switch s {
	case "", "combinational", "comb":
		return Combinational, nil
	case "registered", "sync":
		return Registered, nil
	default:
		return Combinational, fmt.Errorf("unknown memory mode %q", s)
	}
}
