package pipeline

// ForwardSource indicates where a forwarded value comes from.
type ForwardSource int

const (
	// ForwardNone means no forwarding is needed; use the ID/EX value.
	ForwardNone ForwardSource = iota
	// ForwardFromEXMEM means forward from the EX/MEM pipeline register.
	ForwardFromEXMEM
	// ForwardFromMEMWB means forward from the MEM/WB pipeline register.
	ForwardFromMEMWB
)

func (s ForwardSource) String() string {
	switch s {
	case ForwardFromEXMEM:
		return "EX/MEM"
	case ForwardFromMEMWB:
		return "MEM/WB"
	default:
		return "none"
	}
}

// ForwardingSnapshot captures the in-flight producers visible to execute.
type ForwardingSnapshot struct {
	EXMEMDest     uint8
	EXMEMRegWrite bool
	EXMEMValue    uint32

	MEMWBDest     uint8
	MEMWBRegWrite bool
	MEMWBValue    uint32
}

// NewForwardingSnapshot builds the snapshot from the start-of-cycle latches.
func NewForwardingSnapshot(exmem *EXMEMRegister, memwb *MEMWBRegister) ForwardingSnapshot {
	return ForwardingSnapshot{
		EXMEMDest:     exmem.DestReg,
		EXMEMRegWrite: exmem.Valid && exmem.RegWrite,
		EXMEMValue:    exmem.ALUResult,
		MEMWBDest:     memwb.DestReg,
		MEMWBRegWrite: memwb.Valid && memwb.RegWrite,
		MEMWBValue:    memwb.WritebackValue(),
	}
}

// ForwardingUnit selects the freshest value of one execute operand.
type ForwardingUnit struct{}

// NewForwardingUnit creates a new forwarding unit.
func NewForwardingUnit() *ForwardingUnit {
	return &ForwardingUnit{}
}

// Select returns the value to use for reg. EX/MEM has precedence over
// MEM/WB. Register 0 is never forwarded.
func (u *ForwardingUnit) Select(
	reg uint8,
	fallback uint32,
	snap ForwardingSnapshot,
) (uint32, ForwardSource) {
	if reg == 0 {
		return fallback, ForwardNone
	}

	if snap.EXMEMRegWrite && snap.EXMEMDest == reg {
		return snap.EXMEMValue, ForwardFromEXMEM
	}

	if snap.MEMWBRegWrite && snap.MEMWBDest == reg {
		return snap.MEMWBValue, ForwardFromMEMWB
	}

	return fallback, ForwardNone
}

// HazardKind classifies a decode stall.
type HazardKind int

const (
	// HazardNone means decode may proceed.
	HazardNone HazardKind = iota
	// HazardLoadUse means a load in ID/EX produces the operand.
	HazardLoadUse
	// HazardBranchOperand means a control instruction resolving in decode
	// reads a register still being produced in ID/EX or EX/MEM.
	HazardBranchOperand
)

func (k HazardKind) String() string {
	switch k {
	case HazardLoadUse:
		return "load-use"
	case HazardBranchOperand:
		return "branch-operand"
	default:
		return "none"
	}
}

// HazardInput describes one operand of the instruction being decoded.
type HazardInput struct {
	Reg  uint8
	Used bool

	// ResolvesInDecode is set for BEQ, BNE, JR and JALR.
	ResolvesInDecode bool
}

// HazardSnapshot captures the producers in ID/EX and EX/MEM.
type HazardSnapshot struct {
	IDEXMemRead  bool
	IDEXRegWrite bool
	IDEXDest     uint8

	EXMEMRegWrite bool
	EXMEMDest     uint8
}

// NewHazardSnapshot builds the snapshot from the start-of-cycle latches.
func NewHazardSnapshot(idex *IDEXRegister, exmem *EXMEMRegister) HazardSnapshot {
	return HazardSnapshot{
		IDEXMemRead:   idex.Valid && idex.Control.MemRead,
		IDEXRegWrite:  idex.Valid && idex.Control.RegWrite,
		IDEXDest:      idex.Control.DestReg,
		EXMEMRegWrite: exmem.Valid && exmem.RegWrite,
		EXMEMDest:     exmem.DestReg,
	}
}

// HazardDetectionUnit decides whether one decode operand must stall.
type HazardDetectionUnit struct{}

// NewHazardDetectionUnit creates a new hazard detection unit.
func NewHazardDetectionUnit() *HazardDetectionUnit {
	return &HazardDetectionUnit{}
}

// Detect returns the hazard affecting the operand, if any.
func (u *HazardDetectionUnit) Detect(in HazardInput, snap HazardSnapshot) HazardKind {
	if !in.Used || in.Reg == 0 {
		return HazardNone
	}

	if snap.IDEXMemRead && snap.IDEXDest == in.Reg {
		return HazardLoadUse
	}

	if !in.ResolvesInDecode {
		return HazardNone
	}

	// Forwarding reaches execute only, so decode-time readers wait until
	// the producer is in MEM/WB where the register file read is transparent.
	if snap.IDEXRegWrite && snap.IDEXDest == in.Reg {
		return HazardBranchOperand
	}

	if snap.EXMEMRegWrite && snap.EXMEMDest == in.Reg {
		return HazardBranchOperand
	}

	return HazardNone
}
