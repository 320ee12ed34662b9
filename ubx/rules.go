package ubx

import "encoding/binary"

// RuleAction is the effect a matching rule has.
type RuleAction uint8

const (
	ActionAllow                RuleAction = 0
	ActionBlock                RuleAction = 1
	ActionRedirectDirective    RuleAction = 2
	ActionRemoveparam          RuleAction = 3
	ActionCSPInject            RuleAction = 4
	ActionHeaderMatchBlock     RuleAction = 5
	ActionHeaderMatchAllow     RuleAction = 6
	ActionResponseHeaderRemove RuleAction = 7
)

// RuleFlags is the bitset carried by every rule record.
type RuleFlags uint16

const (
	FlagImportant             RuleFlags = 1 << 0
	FlagIsRegex               RuleFlags = 1 << 1
	FlagMatchCase             RuleFlags = 1 << 2
	FlagHasRightAnchor        RuleFlags = 1 << 3
	FlagHasHostnameAnchor     RuleFlags = 1 << 4
	FlagHasLeftAnchor         RuleFlags = 1 << 5
	FlagCSPException          RuleFlags = 1 << 6
	FlagRedirectRuleException RuleFlags = 1 << 7
	FlagElemhide              RuleFlags = 1 << 8
	FlagGenerichide           RuleFlags = 1 << 9
	FlagFromRedirect          RuleFlags = 1 << 10
	FlagRemoveparamException  RuleFlags = 1 << 11
)

// Has reports whether all bits in mask are set in f.
func (f RuleFlags) Has(mask RuleFlags) bool { return f&mask == mask }

// PartyMask bits.
type PartyMask uint8

const (
	PartyFirst PartyMask = 1 << 0
	PartyThird PartyMask = 1 << 1
	PartyAll   PartyMask = PartyFirst | PartyThird
)

// SchemeMask bits.
type SchemeMask uint8

const (
	SchemeHTTP  SchemeMask = 1 << 0
	SchemeHTTPS SchemeMask = 1 << 1
	SchemeWS    SchemeMask = 1 << 2
	SchemeWSS   SchemeMask = 1 << 3
	SchemeData  SchemeMask = 1 << 4
	SchemeFTP   SchemeMask = 1 << 5
	SchemeAll   SchemeMask = 0xFF
)

// RequestTypeMask bits. "unrestricted" is represented as 0 (no bits set)
// rather than RequestTypeAll, so that a rule with no type option at all is
// distinguishable... in practice both 0 and All behave the same at match
// time, since the compiler always normalizes a full mask down to 0.
type RequestTypeMask uint16

const (
	TypeMainFrame  RequestTypeMask = 1 << 0
	TypeSubFrame   RequestTypeMask = 1 << 1
	TypeScript     RequestTypeMask = 1 << 2
	TypeImage      RequestTypeMask = 1 << 3
	TypeStylesheet RequestTypeMask = 1 << 4
	TypeXHR        RequestTypeMask = 1 << 5
	TypeFont       RequestTypeMask = 1 << 6
	TypeMedia      RequestTypeMask = 1 << 7
	TypePing       RequestTypeMask = 1 << 8
	TypeWebsocket  RequestTypeMask = 1 << 9
	TypeObject     RequestTypeMask = 1 << 10
	TypeOther      RequestTypeMask = 1 << 11

	TypeDocument RequestTypeMask = TypeMainFrame | TypeSubFrame
	TypeAll      RequestTypeMask = 0x0FFF
)

// RuleRecordSize is the fixed size, in bytes, of one entry in the RULES
// section's struct-of-arrays-friendly fixed layout.
const RuleRecordSize = 32

// RuleRecord is the decoded, fixed-width form of one compiled rule.
type RuleRecord struct {
	Action                 RuleAction
	Flags                  RuleFlags
	TypeMask               RequestTypeMask
	PartyMask              PartyMask
	SchemeMask             SchemeMask
	PatternID              uint32
	DomainConstraintOffset uint32
	OptionID               uint32
	Priority               int16
	ListID                 uint16
}

// PutRuleRecord encodes r into a RuleRecordSize-byte buffer.
func PutRuleRecord(buf []byte, r RuleRecord) {
	buf[0] = byte(r.Action)
	buf[1] = 0
	binary.LittleEndian.PutUint16(buf[2:4], uint16(r.Flags))
	binary.LittleEndian.PutUint16(buf[4:6], uint16(r.TypeMask))
	buf[6] = byte(r.PartyMask)
	buf[7] = byte(r.SchemeMask)
	binary.LittleEndian.PutUint32(buf[8:12], r.PatternID)
	binary.LittleEndian.PutUint32(buf[12:16], r.DomainConstraintOffset)
	binary.LittleEndian.PutUint32(buf[16:20], r.OptionID)
	binary.LittleEndian.PutUint16(buf[20:22], uint16(r.Priority))
	binary.LittleEndian.PutUint16(buf[22:24], r.ListID)
	// buf[24:32] is reserved.
}

// ParseRuleRecord decodes a RuleRecordSize-byte buffer.
func ParseRuleRecord(buf []byte) RuleRecord {
	return RuleRecord{
		Action:                 RuleAction(buf[0]),
		Flags:                  RuleFlags(binary.LittleEndian.Uint16(buf[2:4])),
		TypeMask:               RequestTypeMask(binary.LittleEndian.Uint16(buf[4:6])),
		PartyMask:              PartyMask(buf[6]),
		SchemeMask:             SchemeMask(buf[7]),
		PatternID:              binary.LittleEndian.Uint32(buf[8:12]),
		DomainConstraintOffset: binary.LittleEndian.Uint32(buf[12:16]),
		OptionID:               binary.LittleEndian.Uint32(buf[16:20]),
		Priority:               int16(binary.LittleEndian.Uint16(buf[20:22])),
		ListID:                 binary.LittleEndian.Uint16(buf[22:24]),
	}
}

// RulesView is a read-only, zero-copy view over the RULES section.
type RulesView struct {
	buf []byte
}

// NewRulesView wraps buf without copying it.
func NewRulesView(buf []byte) RulesView {
	return RulesView{buf: buf}
}

// Len returns the number of rule records, i.e. the dense rule-id range
// [0, Len()).
func (v RulesView) Len() int {
	return len(v.buf) / RuleRecordSize
}

// Get decodes the rule record at index i.
func (v RulesView) Get(i int) RuleRecord {
	off := i * RuleRecordSize
	return ParseRuleRecord(v.buf[off : off+RuleRecordSize])
}

// BuildRules serializes a slice of rule records into a RULES section.
func BuildRules(records []RuleRecord) []byte {
	buf := make([]byte, len(records)*RuleRecordSize)
	for i, r := range records {
		PutRuleRecord(buf[i*RuleRecordSize:(i+1)*RuleRecordSize], r)
	}
	return buf
}
