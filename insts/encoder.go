package insts

// EncodeR builds an R-type word: opcode:rs:rt:rd:shamt:funct.
func EncodeR(opcode Opcode, rs, rt, rd, shamt uint8, funct Funct) uint32 {
	return uint32(opcode&0x3F)<<26 |
		uint32(rs&0x1F)<<21 |
		uint32(rt&0x1F)<<16 |
		uint32(rd&0x1F)<<11 |
		uint32(shamt&0x1F)<<6 |
		uint32(funct&0x3F)
}

// EncodeI builds an I-type word: opcode:rs:rt:imm16.
func EncodeI(opcode Opcode, rs, rt uint8, imm uint16) uint32 {
	return uint32(opcode&0x3F)<<26 |
		uint32(rs&0x1F)<<21 |
		uint32(rt&0x1F)<<16 |
		uint32(imm)
}

// EncodeJ builds a J-type word. addr is a word index, not a byte address.
func EncodeJ(opcode Opcode, addr uint32) uint32 {
	return uint32(opcode&0x3F)<<26 | addr&0x3FFFFFF
}

// EncodeADD encodes ADD rd, rs, rt.
func EncodeADD(rd, rs, rt uint8) uint32 {
	return EncodeR(OpcodeRType, rs, rt, rd, 0, FunctADD)
}

// EncodeSUB encodes SUB rd, rs, rt.
func EncodeSUB(rd, rs, rt uint8) uint32 {
	return EncodeR(OpcodeRType, rs, rt, rd, 0, FunctSUB)
}

// EncodeAND encodes AND rd, rs, rt.
func EncodeAND(rd, rs, rt uint8) uint32 {
	return EncodeR(OpcodeRType, rs, rt, rd, 0, FunctAND)
}

// EncodeOR encodes OR rd, rs, rt.
func EncodeOR(rd, rs, rt uint8) uint32 {
	return EncodeR(OpcodeRType, rs, rt, rd, 0, FunctOR)
}

// EncodeXOR encodes XOR rd, rs, rt.
func EncodeXOR(rd, rs, rt uint8) uint32 {
	return EncodeR(OpcodeRType, rs, rt, rd, 0, FunctXOR)
}

// EncodeNOR encodes NOR rd, rs, rt.
func EncodeNOR(rd, rs, rt uint8) uint32 {
	return EncodeR(OpcodeRType, rs, rt, rd, 0, FunctNOR)
}

// EncodeSLT encodes SLT rd, rs, rt.
func EncodeSLT(rd, rs, rt uint8) uint32 {
	return EncodeR(OpcodeRType, rs, rt, rd, 0, FunctSLT)
}

// EncodeSLL encodes SLL rd, rt, shamt.
func EncodeSLL(rd, rt, shamt uint8) uint32 {
	return EncodeR(OpcodeRType, 0, rt, rd, shamt, FunctSLL)
}

// EncodeSRL encodes SRL rd, rt, shamt.
func EncodeSRL(rd, rt, shamt uint8) uint32 {
	return EncodeR(OpcodeRType, 0, rt, rd, shamt, FunctSRL)
}

// EncodeSRA encodes SRA rd, rt, shamt.
func EncodeSRA(rd, rt, shamt uint8) uint32 {
	return EncodeR(OpcodeRType, 0, rt, rd, shamt, FunctSRA)
}

// EncodeJR encodes JR rs.
func EncodeJR(rs uint8) uint32 {
	return EncodeR(OpcodeRType, rs, 0, 0, 0, FunctJR)
}

// EncodeJALR encodes JALR rd, rs.
func EncodeJALR(rd, rs uint8) uint32 {
	return EncodeR(OpcodeRType, rs, 0, rd, 0, FunctJALR)
}

// EncodeADDI encodes ADDI rt, rs, imm.
func EncodeADDI(rt, rs uint8, imm int16) uint32 {
	return EncodeI(OpcodeADDI, rs, rt, uint16(imm))
}

// EncodeSLTI encodes SLTI rt, rs, imm.
func EncodeSLTI(rt, rs uint8, imm int16) uint32 {
	return EncodeI(OpcodeSLTI, rs, rt, uint16(imm))
}

// EncodeANDI encodes ANDI rt, rs, imm.
func EncodeANDI(rt, rs uint8, imm uint16) uint32 {
	return EncodeI(OpcodeANDI, rs, rt, imm)
}

// EncodeORI encodes ORI rt, rs, imm.
func EncodeORI(rt, rs uint8, imm uint16) uint32 {
	return EncodeI(OpcodeORI, rs, rt, imm)
}

// EncodeXORI encodes XORI rt, rs, imm.
func EncodeXORI(rt, rs uint8, imm uint16) uint32 {
	return EncodeI(OpcodeXORI, rs, rt, imm)
}

// EncodeLUI encodes LUI rt, imm.
func EncodeLUI(rt uint8, imm uint16) uint32 {
	return EncodeI(OpcodeLUI, 0, rt, imm)
}

// EncodeLW encodes LW rt, offset(base).
func EncodeLW(rt, base uint8, offset int16) uint32 {
	return EncodeI(OpcodeLW, base, rt, uint16(offset))
}

// EncodeSW encodes SW rt, offset(base).
func EncodeSW(rt, base uint8, offset int16) uint32 {
	return EncodeI(OpcodeSW, base, rt, uint16(offset))
}

// EncodeBEQ encodes BEQ rs, rt, offset. The offset counts words from PC+4.
func EncodeBEQ(rs, rt uint8, offset int16) uint32 {
	return EncodeI(OpcodeBEQ, rs, rt, uint16(offset))
}

// EncodeBNE encodes BNE rs, rt, offset. The offset counts words from PC+4.
func EncodeBNE(rs, rt uint8, offset int16) uint32 {
	return EncodeI(OpcodeBNE, rs, rt, uint16(offset))
}

// EncodeJump encodes J to the given word index.
func EncodeJump(index uint32) uint32 {
	return EncodeJ(OpcodeJ, index)
}

// EncodeJAL encodes JAL to the given word index.
func EncodeJAL(index uint32) uint32 {
	return EncodeJ(OpcodeJAL, index)
}
