// Package emu provides the architectural building blocks of the MIPS model:
// the register file, the ALU, a word-addressed memory and a non-pipelined
// reference emulator.
package emu

// NumRegs is the number of general-purpose registers.
const NumRegs = 32

// WritePort is the single register-file write port driven by write-back.
type WritePort struct {
	Reg    uint8
	Value  uint32
	Enable bool
}

// RegFile represents the MIPS register file.
//
// The file has two read ports and one write port. The write port is driven
// during a cycle with Drive and takes effect at Commit. Reads through
// ReadPort are transparent: a value driven on the write port in the same
// cycle is returned for a matching non-zero register.
type RegFile struct {
	// X holds the general-purpose registers. X[0] is always zero.
	X [NumRegs]uint32

	port WritePort
}

// ReadReg reads a register value. Register 0 and out-of-range indices
// return 0.
func (r *RegFile) ReadReg(reg uint8) uint32 {
	if reg == 0 || reg >= NumRegs {
		return 0
	}
	return r.X[reg]
}

// WriteReg writes a value to a register. Writes to register 0 are ignored.
func (r *RegFile) WriteReg(reg uint8, value uint32) {
	if reg == 0 || reg >= NumRegs {
		return
	}
	r.X[reg] = value
}

// Drive sets the write port for the current cycle.
func (r *RegFile) Drive(port WritePort) {
	r.port = port
}

// ReadPort returns the value seen by a read port in the current cycle.
func (r *RegFile) ReadPort(reg uint8) uint32 {
	if reg == 0 || reg >= NumRegs {
		return 0
	}

	if r.port.Enable && r.port.Reg == reg {
		return r.port.Value
	}

	return r.X[reg]
}

// Commit applies the driven write and releases the port.
func (r *RegFile) Commit() {
	if r.port.Enable {
		r.WriteReg(r.port.Reg, r.port.Value)
	}
	r.port = WritePort{}
}

// Reset clears all registers and the write port.
func (r *RegFile) Reset() {
	*r = RegFile{}
}
