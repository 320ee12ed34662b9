// Package ubx implements the UBX snapshot binary format: the fixed header,
// section directory, and per-section record layouts produced by the compiler
// and consumed zero-copy by the matcher.
//
// Every offset and constant here is bit-exact and part of the on-disk
// contract; changing one without bumping Version breaks every snapshot ever
// written.
package ubx

import (
	"encoding/binary"

	"github.com/AdguardTeam/ubxfilter/internal/fasthash"
)

// Hash64 is the 64-bit composite domain/hostname key. See
// internal/fasthash.Hash64 for the algorithm.
type Hash64 = fasthash.Hash64

// Magic is the four-byte snapshot signature, "UBX1".
var Magic = [4]byte{'U', 'B', 'X', '1'}

// Version is the snapshot format's major version.
const Version uint16 = 1

// HeaderSize is the fixed size, in bytes, of the snapshot header.
const HeaderSize = 64

// SectionEntrySize is the fixed size, in bytes, of one section directory
// entry.
const SectionEntrySize = 24

// HeaderFlag bits.
const (
	// FlagHasCRC32 indicates the header's CRC32 field holds a valid
	// whole-file checksum (computed with the field itself zeroed).
	FlagHasCRC32 uint16 = 1 << 0
)

// SectionFlag bits, stored in a section directory entry's flags field.
const (
	// SectionFlagCompressed indicates the section's stored bytes are
	// zstd-compressed; UncompressedLength holds the decoded size.
	SectionFlagCompressed uint16 = 1 << 0
)

// SectionID identifies one of the sixteen UBX section kinds.
type SectionID uint16

// Section IDs, stable across format versions. Unknown IDs encountered while
// loading are ignored for forward compatibility.
const (
	SectionStrPool              SectionID = 0x0001
	SectionPSLSets              SectionID = 0x0002
	SectionDomainSets           SectionID = 0x0003
	SectionTokenDict            SectionID = 0x0004
	SectionTokenPostings        SectionID = 0x0005
	SectionPatternPool          SectionID = 0x0006
	SectionRules                SectionID = 0x0007
	SectionDomainConstraintPool SectionID = 0x0008
	SectionRedirectResources    SectionID = 0x0009
	SectionRemoveparamSpecs     SectionID = 0x000A
	SectionCSPSpecs             SectionID = 0x000B
	SectionHeaderSpecs          SectionID = 0x000C
	SectionResponseHeaderRules  SectionID = 0x000D
	SectionCosmeticRules        SectionID = 0x000E
	SectionProceduralRules      SectionID = 0x000F
	SectionScriptletRules       SectionID = 0x0010
)

// String is used only for diagnostics (stats, error messages).
func (id SectionID) String() string {
	switch id {
	case SectionStrPool:
		return "STRPOOL"
	case SectionPSLSets:
		return "PSL_SETS"
	case SectionDomainSets:
		return "DOMAIN_SETS"
	case SectionTokenDict:
		return "TOKEN_DICT"
	case SectionTokenPostings:
		return "TOKEN_POSTINGS"
	case SectionPatternPool:
		return "PATTERN_POOL"
	case SectionRules:
		return "RULES"
	case SectionDomainConstraintPool:
		return "DOMAIN_CONSTRAINT_POOL"
	case SectionRedirectResources:
		return "REDIRECT_RESOURCES"
	case SectionRemoveparamSpecs:
		return "REMOVEPARAM_SPECS"
	case SectionCSPSpecs:
		return "CSP_SPECS"
	case SectionHeaderSpecs:
		return "HEADER_SPECS"
	case SectionResponseHeaderRules:
		return "RESPONSEHEADER_RULES"
	case SectionCosmeticRules:
		return "COSMETIC_RULES"
	case SectionProceduralRules:
		return "PROCEDURAL_RULES"
	case SectionScriptletRules:
		return "SCRIPTLET_RULES"
	default:
		return "UNKNOWN"
	}
}

// AllSectionIDs lists every section in a stable emission order.
var AllSectionIDs = []SectionID{
	SectionStrPool,
	SectionPSLSets,
	SectionDomainSets,
	SectionTokenDict,
	SectionTokenPostings,
	SectionPatternPool,
	SectionRules,
	SectionDomainConstraintPool,
	SectionRedirectResources,
	SectionRemoveparamSpecs,
	SectionCSPSpecs,
	SectionHeaderSpecs,
	SectionResponseHeaderRules,
	SectionCosmeticRules,
	SectionProceduralRules,
	SectionScriptletRules,
}

// Header is the decoded form of the 64-byte snapshot header.
type Header struct {
	Version          uint16
	Flags            uint16
	HeaderBytes      uint32
	SectionCount     uint32
	SectionDirOffset uint32
	SectionDirBytes  uint32
	BuildID          uint32
	CRC32            uint32
}

// PutHeader encodes h into a HeaderSize-byte buffer.
func PutHeader(buf []byte, h Header) {
	copy(buf[0:4], Magic[:])
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	binary.LittleEndian.PutUint16(buf[6:8], h.Flags)
	binary.LittleEndian.PutUint32(buf[8:12], h.HeaderBytes)
	binary.LittleEndian.PutUint32(buf[12:16], h.SectionCount)
	binary.LittleEndian.PutUint32(buf[16:20], h.SectionDirOffset)
	binary.LittleEndian.PutUint32(buf[20:24], h.SectionDirBytes)
	binary.LittleEndian.PutUint32(buf[24:28], h.BuildID)
	binary.LittleEndian.PutUint32(buf[28:32], h.CRC32)
	// buf[32:64] is reserved and left zeroed.
}

// ParseHeader decodes a HeaderSize-byte buffer. The caller is responsible for
// validating the magic separately.
func ParseHeader(buf []byte) Header {
	return Header{
		Version:          binary.LittleEndian.Uint16(buf[4:6]),
		Flags:            binary.LittleEndian.Uint16(buf[6:8]),
		HeaderBytes:      binary.LittleEndian.Uint32(buf[8:12]),
		SectionCount:     binary.LittleEndian.Uint32(buf[12:16]),
		SectionDirOffset: binary.LittleEndian.Uint32(buf[16:20]),
		SectionDirBytes:  binary.LittleEndian.Uint32(buf[20:24]),
		BuildID:          binary.LittleEndian.Uint32(buf[24:28]),
		CRC32:            binary.LittleEndian.Uint32(buf[28:32]),
	}
}

// SectionEntry is the decoded form of one 24-byte section directory entry.
type SectionEntry struct {
	ID                 SectionID
	Flags              uint16
	Offset             uint32
	Length             uint32
	UncompressedLength uint32
	CRC32              uint32
}

// PutSectionEntry encodes e into a SectionEntrySize-byte buffer.
func PutSectionEntry(buf []byte, e SectionEntry) {
	binary.LittleEndian.PutUint16(buf[0:2], uint16(e.ID))
	binary.LittleEndian.PutUint16(buf[2:4], e.Flags)
	binary.LittleEndian.PutUint32(buf[4:8], e.Offset)
	binary.LittleEndian.PutUint32(buf[8:12], e.Length)
	binary.LittleEndian.PutUint32(buf[12:16], e.UncompressedLength)
	binary.LittleEndian.PutUint32(buf[16:20], e.CRC32)
	// buf[20:24] is reserved.
}

// ParseSectionEntry decodes a SectionEntrySize-byte buffer.
func ParseSectionEntry(buf []byte) SectionEntry {
	return SectionEntry{
		ID:                 SectionID(binary.LittleEndian.Uint16(buf[0:2])),
		Flags:              binary.LittleEndian.Uint16(buf[2:4]),
		Offset:             binary.LittleEndian.Uint32(buf[4:8]),
		Length:             binary.LittleEndian.Uint32(buf[8:12]),
		UncompressedLength: binary.LittleEndian.Uint32(buf[12:16]),
		CRC32:              binary.LittleEndian.Uint32(buf[16:20]),
	}
}

// Sentinel values used throughout the rule/pattern/constraint pools.
const (
	// NoPattern marks a rule with no compiled pattern (hostname-anchor-
	// only or fallback-bucket rules).
	NoPattern uint32 = 0xFFFFFFFF

	// NoConstraint marks a rule with no $domain= constraint.
	NoConstraint uint32 = 0xFFFFFFFF

	// FallbackTokenHash is the reserved TOKEN_DICT/TOKEN_POSTINGS key for
	// rules with no viable rarest-token candidate (pure regex rules, and
	// basic patterns too short or too generic to yield one). The matcher
	// always probes this bucket in addition to a request's derived tokens.
	// fasthash.TokenHash only remaps a zero hash, so a real token hashing to
	// this value shares the bucket; its rules are still verified per request.
	FallbackTokenHash uint32 = 0xFFFFFFFF
)

// PatternAnchorType classifies how a compiled pattern is anchored.
type PatternAnchorType uint8

const (
	AnchorNone     PatternAnchorType = 0
	AnchorLeft     PatternAnchorType = 1
	AnchorHostname PatternAnchorType = 2
	AnchorRegex    PatternAnchorType = 3
)

// PatternOp is one opcode in a compiled pattern program.
type PatternOp uint8

const (
	OpFindLit        PatternOp = 0x01
	OpAssertStart    PatternOp = 0x02
	OpAssertEnd      PatternOp = 0x03
	OpAssertBoundary PatternOp = 0x04
	OpSkipAny        PatternOp = 0x05
	OpHostAnchor     PatternOp = 0x06
	OpDone           PatternOp = 0x07
)

// PatternIndexEntrySize is the fixed size, in bytes, of one entry in the
// pattern pool's index table (as opposed to the variable-length bytecode
// program bytes it points into).
const PatternIndexEntrySize = 24

// PatternIndexEntry describes one compiled pattern.
type PatternIndexEntry struct {
	ProgOffset    uint32
	ProgLength    uint16
	AnchorType    PatternAnchorType
	CaseSensitive bool
	HostHash      Hash64
}

// PutPatternIndexEntry encodes e into a PatternIndexEntrySize-byte buffer.
func PutPatternIndexEntry(buf []byte, e PatternIndexEntry) {
	binary.LittleEndian.PutUint32(buf[0:4], e.ProgOffset)
	binary.LittleEndian.PutUint16(buf[4:6], e.ProgLength)
	buf[6] = byte(e.AnchorType)
	if e.CaseSensitive {
		buf[7] = 1
	} else {
		buf[7] = 0
	}
	binary.LittleEndian.PutUint32(buf[8:12], e.HostHash.Lo)
	binary.LittleEndian.PutUint32(buf[12:16], e.HostHash.Hi)
	// buf[16:24] is reserved.
}

// ParsePatternIndexEntry decodes a PatternIndexEntrySize-byte buffer.
func ParsePatternIndexEntry(buf []byte) PatternIndexEntry {
	return PatternIndexEntry{
		ProgOffset:    binary.LittleEndian.Uint32(buf[0:4]),
		ProgLength:    binary.LittleEndian.Uint16(buf[4:6]),
		AnchorType:    PatternAnchorType(buf[6]),
		CaseSensitive: buf[7] != 0,
		HostHash: Hash64{
			Lo: binary.LittleEndian.Uint32(buf[8:12]),
			Hi: binary.LittleEndian.Uint32(buf[12:16]),
		},
	}
}
