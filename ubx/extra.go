package ubx

import "encoding/binary"

// This file defines the fixed-record layouts for the smaller UBX sections:
// domain constraints, redirect resources, removeparam/CSP/header specs,
// response-header rules, and the three cosmetic-family tables. They're all
// simple append-only arrays of fixed-size records (no hashing needed, since
// the matcher scans them linearly against a suffix-walk or a rule-id lookup),
// following the same zero-copy-view discipline as RulesView.

// --- DOMAIN_CONSTRAINT_POOL ---
//
// A variable-length record per rule with a $domain= constraint:
// [include-count u16][exclude-count u16][include Hash64...][exclude Hash64...]

// PutDomainConstraint appends one constraint record to dst and returns the
// offset it was written at (the value to store in RuleRecord.DomainConstraintOffset)
// along with the extended buffer.
func PutDomainConstraint(dst []byte, include, exclude []Hash64) (offset uint32, out []byte) {
	offset = uint32(len(dst))

	header := make([]byte, 4)
	binary.LittleEndian.PutUint16(header[0:2], uint16(len(include)))
	binary.LittleEndian.PutUint16(header[2:4], uint16(len(exclude)))
	dst = append(dst, header...)

	for _, h := range include {
		dst = appendHash64(dst, h)
	}
	for _, h := range exclude {
		dst = appendHash64(dst, h)
	}

	return offset, dst
}

func appendHash64(dst []byte, h Hash64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint32(b[0:4], h.Lo)
	binary.LittleEndian.PutUint32(b[4:8], h.Hi)
	return append(dst, b[:]...)
}

// DomainConstraint is the decoded form of one constraint record.
type DomainConstraint struct {
	Include []Hash64
	Exclude []Hash64
}

// ReadDomainConstraint decodes the record at offset within pool.
func ReadDomainConstraint(pool []byte, offset uint32) DomainConstraint {
	includeCount := binary.LittleEndian.Uint16(pool[offset : offset+2])
	excludeCount := binary.LittleEndian.Uint16(pool[offset+2 : offset+4])

	pos := offset + 4
	include := make([]Hash64, includeCount)
	for i := range include {
		include[i] = Hash64{
			Lo: binary.LittleEndian.Uint32(pool[pos : pos+4]),
			Hi: binary.LittleEndian.Uint32(pool[pos+4 : pos+8]),
		}
		pos += 8
	}

	exclude := make([]Hash64, excludeCount)
	for i := range exclude {
		exclude[i] = Hash64{
			Lo: binary.LittleEndian.Uint32(pool[pos : pos+4]),
			Hi: binary.LittleEndian.Uint32(pool[pos+4 : pos+8]),
		}
		pos += 8
	}

	return DomainConstraint{Include: include, Exclude: exclude}
}

// --- REDIRECT_RESOURCES ---
//
// [count u32][entry...], entry = token StrRef(8) + path StrRef(8) + mimeKind u16 + pad u16 = 20 bytes.

const RedirectResourceEntrySize = 20

// RedirectResource is one (token, path, mime) surrogate catalog entry.
type RedirectResource struct {
	Token    StrRef
	Path     StrRef
	MimeKind uint16
}

// BuildRedirectResources serializes the catalog.
func BuildRedirectResources(entries []RedirectResource) []byte {
	buf := make([]byte, 4+len(entries)*RedirectResourceEntrySize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(entries)))
	for i, e := range entries {
		off := 4 + i*RedirectResourceEntrySize
		rec := buf[off : off+RedirectResourceEntrySize]
		binary.LittleEndian.PutUint32(rec[0:4], e.Token.Offset)
		binary.LittleEndian.PutUint32(rec[4:8], e.Token.Length)
		binary.LittleEndian.PutUint32(rec[8:12], e.Path.Offset)
		binary.LittleEndian.PutUint32(rec[12:16], e.Path.Length)
		binary.LittleEndian.PutUint16(rec[16:18], e.MimeKind)
	}
	return buf
}

// RedirectResourcesView is a read-only, zero-copy view over REDIRECT_RESOURCES.
type RedirectResourcesView struct {
	buf []byte
}

// NewRedirectResourcesView wraps buf without copying it.
func NewRedirectResourcesView(buf []byte) RedirectResourcesView {
	return RedirectResourcesView{buf: buf}
}

// Len returns the number of catalog entries.
func (v RedirectResourcesView) Len() int {
	if len(v.buf) < 4 {
		return 0
	}
	return int(binary.LittleEndian.Uint32(v.buf[0:4]))
}

// Get decodes the entry at index i.
func (v RedirectResourcesView) Get(i int) RedirectResource {
	off := 4 + i*RedirectResourceEntrySize
	rec := v.buf[off : off+RedirectResourceEntrySize]
	return RedirectResource{
		Token: StrRef{
			Offset: binary.LittleEndian.Uint32(rec[0:4]),
			Length: binary.LittleEndian.Uint32(rec[4:8]),
		},
		Path: StrRef{
			Offset: binary.LittleEndian.Uint32(rec[8:12]),
			Length: binary.LittleEndian.Uint32(rec[12:16]),
		},
		MimeKind: binary.LittleEndian.Uint16(rec[16:18]),
	}
}

// --- NameValueSpec family (REMOVEPARAM_SPECS, CSP_SPECS, HEADER_SPECS) ---
//
// entry = Name StrRef(8) + Value StrRef(8) + Flags u8 + pad3 = 20 bytes.
// REMOVEPARAM_SPECS uses Name as the parameter key and Flags bit 0 as "is
// regex"; CSP_SPECS uses Value as the directive text and Flags bit 0 as
// "is exception" (empty Value means "disable all injections for scope");
// HEADER_SPECS uses Name/Value as the header name/value to match and Flags
// bit 0 as "Value is a regex" (HEADER_MATCH_BLOCK vs HEADER_MATCH_ALLOW is
// carried by the owning rule's Action, not by Flags).

const NameValueSpecEntrySize = 20

const SpecFlagIsRegex = 1 << 0
const SpecFlagIsException = 1 << 0

// NameValueSpec is one removeparam/CSP/header spec record.
type NameValueSpec struct {
	Name  StrRef
	Value StrRef
	Flags uint8
}

// BuildNameValueSpecs serializes a spec table.
func BuildNameValueSpecs(entries []NameValueSpec) []byte {
	buf := make([]byte, len(entries)*NameValueSpecEntrySize)
	for i, e := range entries {
		off := i * NameValueSpecEntrySize
		rec := buf[off : off+NameValueSpecEntrySize]
		binary.LittleEndian.PutUint32(rec[0:4], e.Name.Offset)
		binary.LittleEndian.PutUint32(rec[4:8], e.Name.Length)
		binary.LittleEndian.PutUint32(rec[8:12], e.Value.Offset)
		binary.LittleEndian.PutUint32(rec[12:16], e.Value.Length)
		rec[16] = e.Flags
	}
	return buf
}

// NameValueSpecsView is a read-only, zero-copy view over a spec table.
type NameValueSpecsView struct {
	buf []byte
}

// NewNameValueSpecsView wraps buf without copying it.
func NewNameValueSpecsView(buf []byte) NameValueSpecsView {
	return NameValueSpecsView{buf: buf}
}

// Len returns the number of entries.
func (v NameValueSpecsView) Len() int {
	return len(v.buf) / NameValueSpecEntrySize
}

// Get decodes the entry at index i.
func (v NameValueSpecsView) Get(i int) NameValueSpec {
	off := i * NameValueSpecEntrySize
	rec := v.buf[off : off+NameValueSpecEntrySize]
	return NameValueSpec{
		Name: StrRef{
			Offset: binary.LittleEndian.Uint32(rec[0:4]),
			Length: binary.LittleEndian.Uint32(rec[4:8]),
		},
		Value: StrRef{
			Offset: binary.LittleEndian.Uint32(rec[8:12]),
			Length: binary.LittleEndian.Uint32(rec[12:16]),
		},
		Flags: rec[16],
	}
}

// --- RESPONSEHEADER_RULES ---
//
// entry = RuleID u32 + HeaderName StrRef(8) = 12 bytes.

const ResponseHeaderRuleEntrySize = 12

// ResponseHeaderRule pairs a rule id with the response header name it
// removes.
type ResponseHeaderRule struct {
	RuleID     uint32
	HeaderName StrRef
}

// BuildResponseHeaderRules serializes the table.
func BuildResponseHeaderRules(entries []ResponseHeaderRule) []byte {
	buf := make([]byte, len(entries)*ResponseHeaderRuleEntrySize)
	for i, e := range entries {
		off := i * ResponseHeaderRuleEntrySize
		rec := buf[off : off+ResponseHeaderRuleEntrySize]
		binary.LittleEndian.PutUint32(rec[0:4], e.RuleID)
		binary.LittleEndian.PutUint32(rec[4:8], e.HeaderName.Offset)
		binary.LittleEndian.PutUint32(rec[8:12], e.HeaderName.Length)
	}
	return buf
}

// ResponseHeaderRulesView is a read-only, zero-copy view.
type ResponseHeaderRulesView struct{ buf []byte }

// NewResponseHeaderRulesView wraps buf without copying it.
func NewResponseHeaderRulesView(buf []byte) ResponseHeaderRulesView {
	return ResponseHeaderRulesView{buf: buf}
}

// Len returns the number of entries.
func (v ResponseHeaderRulesView) Len() int { return len(v.buf) / ResponseHeaderRuleEntrySize }

// Get decodes the entry at index i.
func (v ResponseHeaderRulesView) Get(i int) ResponseHeaderRule {
	off := i * ResponseHeaderRuleEntrySize
	rec := v.buf[off : off+ResponseHeaderRuleEntrySize]
	return ResponseHeaderRule{
		RuleID: binary.LittleEndian.Uint32(rec[0:4]),
		HeaderName: StrRef{
			Offset: binary.LittleEndian.Uint32(rec[4:8]),
			Length: binary.LittleEndian.Uint32(rec[8:12]),
		},
	}
}

// --- COSMETIC_RULES / PROCEDURAL_RULES / SCRIPTLET_RULES ---
//
// All three share a family shape: a DomainHash of 0 means "generic" (applies
// everywhere unless generichide is active); entries are matched by linear
// scan against a document's suffix-walk, since cosmetic resolution is not a
// per-request hot path the way network matching is.

const CosmeticRecordSize = 24

// CosmeticFlag bits.
const (
	CosmeticFlagException CosmeticFlag = 1 << 0
)

// CosmeticFlag marks a cosmetic record as a hide rule or an exception to one.
type CosmeticFlag uint8

// CosmeticRecord is one element-hiding selector scoped to a domain (or
// generic).
type CosmeticRecord struct {
	DomainHash Hash64
	Selector   StrRef
	Flags      CosmeticFlag
}

// BuildCosmeticRecords serializes the COSMETIC_RULES section.
func BuildCosmeticRecords(entries []CosmeticRecord) []byte {
	buf := make([]byte, len(entries)*CosmeticRecordSize)
	for i, e := range entries {
		off := i * CosmeticRecordSize
		rec := buf[off : off+CosmeticRecordSize]
		binary.LittleEndian.PutUint32(rec[0:4], e.DomainHash.Lo)
		binary.LittleEndian.PutUint32(rec[4:8], e.DomainHash.Hi)
		binary.LittleEndian.PutUint32(rec[8:12], e.Selector.Offset)
		binary.LittleEndian.PutUint32(rec[12:16], e.Selector.Length)
		rec[16] = byte(e.Flags)
	}
	return buf
}

// CosmeticRecordsView is a read-only, zero-copy view.
type CosmeticRecordsView struct{ buf []byte }

// NewCosmeticRecordsView wraps buf without copying it.
func NewCosmeticRecordsView(buf []byte) CosmeticRecordsView {
	return CosmeticRecordsView{buf: buf}
}

// Len returns the number of records.
func (v CosmeticRecordsView) Len() int { return len(v.buf) / CosmeticRecordSize }

// Get decodes the record at index i.
func (v CosmeticRecordsView) Get(i int) CosmeticRecord {
	off := i * CosmeticRecordSize
	rec := v.buf[off : off+CosmeticRecordSize]
	return CosmeticRecord{
		DomainHash: Hash64{
			Lo: binary.LittleEndian.Uint32(rec[0:4]),
			Hi: binary.LittleEndian.Uint32(rec[4:8]),
		},
		Selector: StrRef{
			Offset: binary.LittleEndian.Uint32(rec[8:12]),
			Length: binary.LittleEndian.Uint32(rec[12:16]),
		},
		Flags: CosmeticFlag(rec[16]),
	}
}

// ProceduralRecordSize mirrors CosmeticRecord but the "Selector" field holds
// a serialized procedural program spec (a small JSON/DSL string interpreted
// by the host's procedural cosmetic filter).
const ProceduralRecordSize = CosmeticRecordSize

// ProceduralRecord is one procedural cosmetic program scoped to a domain.
type ProceduralRecord = CosmeticRecord

// BuildProceduralRecords serializes the PROCEDURAL_RULES section.
func BuildProceduralRecords(entries []ProceduralRecord) []byte {
	return BuildCosmeticRecords(entries)
}

// NewProceduralRecordsView wraps buf without copying it.
func NewProceduralRecordsView(buf []byte) CosmeticRecordsView {
	return NewCosmeticRecordsView(buf)
}

// ScriptletRecordSize: DomainHash(8) + Name StrRef(8) + Args StrRef(8) + Flags(1) + pad = 32.
const ScriptletRecordSize = 32

// ScriptletRecord is one scriptlet invocation scoped to a domain.
type ScriptletRecord struct {
	DomainHash Hash64
	Name       StrRef
	Args       StrRef
	Flags      CosmeticFlag
}

// BuildScriptletRecords serializes the SCRIPTLET_RULES section.
func BuildScriptletRecords(entries []ScriptletRecord) []byte {
	buf := make([]byte, len(entries)*ScriptletRecordSize)
	for i, e := range entries {
		off := i * ScriptletRecordSize
		rec := buf[off : off+ScriptletRecordSize]
		binary.LittleEndian.PutUint32(rec[0:4], e.DomainHash.Lo)
		binary.LittleEndian.PutUint32(rec[4:8], e.DomainHash.Hi)
		binary.LittleEndian.PutUint32(rec[8:12], e.Name.Offset)
		binary.LittleEndian.PutUint32(rec[12:16], e.Name.Length)
		binary.LittleEndian.PutUint32(rec[16:20], e.Args.Offset)
		binary.LittleEndian.PutUint32(rec[20:24], e.Args.Length)
		rec[24] = byte(e.Flags)
	}
	return buf
}

// ScriptletRecordsView is a read-only, zero-copy view.
type ScriptletRecordsView struct{ buf []byte }

// NewScriptletRecordsView wraps buf without copying it.
func NewScriptletRecordsView(buf []byte) ScriptletRecordsView {
	return ScriptletRecordsView{buf: buf}
}

// Len returns the number of records.
func (v ScriptletRecordsView) Len() int { return len(v.buf) / ScriptletRecordSize }

// Get decodes the record at index i.
func (v ScriptletRecordsView) Get(i int) ScriptletRecord {
	off := i * ScriptletRecordSize
	rec := v.buf[off : off+ScriptletRecordSize]
	return ScriptletRecord{
		DomainHash: Hash64{
			Lo: binary.LittleEndian.Uint32(rec[0:4]),
			Hi: binary.LittleEndian.Uint32(rec[4:8]),
		},
		Name: StrRef{
			Offset: binary.LittleEndian.Uint32(rec[8:12]),
			Length: binary.LittleEndian.Uint32(rec[12:16]),
		},
		Args: StrRef{
			Offset: binary.LittleEndian.Uint32(rec[16:20]),
			Length: binary.LittleEndian.Uint32(rec[20:24]),
		},
		Flags: CosmeticFlag(rec[24]),
	}
}
