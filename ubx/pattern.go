package ubx

import "encoding/binary"

// PATTERN_POOL layout: [count u32][PatternIndexEntry...][program bytes blob].
// ProgOffset in each index entry is relative to the start of the program
// blob, not the section.

// Op is one decoded instruction: an opcode plus its operand, if any.
// FindLit's operand is a StrRef into STRPOOL; HostAnchor carries no operand
// (the anchor hash lives in the owning PatternIndexEntry).
type Op struct {
	Code    PatternOp
	Literal StrRef
}

// EncodeProgram serializes a sequence of opcodes into bytecode. Layout per
// instruction: opcode (u8) followed by, for OpFindLit only, an 8-byte StrRef.
func EncodeProgram(ops []Op) []byte {
	var buf []byte
	for _, op := range ops {
		buf = append(buf, byte(op.Code))
		if op.Code == OpFindLit {
			var b [8]byte
			binary.LittleEndian.PutUint32(b[0:4], op.Literal.Offset)
			binary.LittleEndian.PutUint32(b[4:8], op.Literal.Length)
			buf = append(buf, b[:]...)
		}
	}
	return buf
}

// DecodeProgram decodes bytecode back into opcodes (used by tests and the
// matcher's verifier, which actually walks prog directly rather than
// allocating an Op slice on the hot path, see match/pattern.go).
func DecodeProgram(prog []byte) []Op {
	var ops []Op
	i := 0
	for i < len(prog) {
		code := PatternOp(prog[i])
		i++
		op := Op{Code: code}
		if code == OpFindLit {
			op.Literal = StrRef{
				Offset: binary.LittleEndian.Uint32(prog[i : i+4]),
				Length: binary.LittleEndian.Uint32(prog[i+4 : i+8]),
			}
			i += 8
		}
		ops = append(ops, op)
	}
	return ops
}

// PatternPoolBuilder assembles compiled patterns into the PATTERN_POOL
// section.
type PatternPoolBuilder struct {
	entries []PatternIndexEntry
	progs   []byte
}

// NewPatternPoolBuilder creates an empty builder.
func NewPatternPoolBuilder() *PatternPoolBuilder {
	return &PatternPoolBuilder{}
}

// Add compiles ops into bytecode, appends it to the program blob, and
// returns the new pattern's id (its index in the pool).
func (b *PatternPoolBuilder) Add(ops []Op, anchor PatternAnchorType, caseSensitive bool, hostHash Hash64) uint32 {
	prog := EncodeProgram(ops)
	id := uint32(len(b.entries))

	b.entries = append(b.entries, PatternIndexEntry{
		ProgOffset:    uint32(len(b.progs)),
		ProgLength:    uint16(len(prog)),
		AnchorType:    anchor,
		CaseSensitive: caseSensitive,
		HostHash:      hostHash,
	})
	b.progs = append(b.progs, prog...)

	return id
}

// Bytes assembles the PATTERN_POOL section.
func (b *PatternPoolBuilder) Bytes() []byte {
	buf := make([]byte, 4+len(b.entries)*PatternIndexEntrySize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(b.entries)))
	for i, e := range b.entries {
		off := 4 + i*PatternIndexEntrySize
		PutPatternIndexEntry(buf[off:off+PatternIndexEntrySize], e)
	}
	return append(buf, b.progs...)
}

// PatternPoolView is a read-only, zero-copy view over PATTERN_POOL.
type PatternPoolView struct {
	count   uint32
	entries []byte
	progs   []byte
}

// NewPatternPoolView wraps buf without copying it.
func NewPatternPoolView(buf []byte) PatternPoolView {
	count := binary.LittleEndian.Uint32(buf[0:4])
	entriesEnd := 4 + int(count)*PatternIndexEntrySize
	return PatternPoolView{
		count:   count,
		entries: buf[4:entriesEnd],
		progs:   buf[entriesEnd:],
	}
}

// Len returns the number of compiled patterns.
func (v PatternPoolView) Len() int { return int(v.count) }

// Entry decodes the index entry for pattern id.
func (v PatternPoolView) Entry(id uint32) PatternIndexEntry {
	off := int(id) * PatternIndexEntrySize
	return ParsePatternIndexEntry(v.entries[off : off+PatternIndexEntrySize])
}

// Program returns the raw bytecode for pattern id, a direct slice of the
// section's bytes.
func (v PatternPoolView) Program(id uint32) []byte {
	e := v.Entry(id)
	return v.progs[e.ProgOffset : e.ProgOffset+uint32(e.ProgLength)]
}
