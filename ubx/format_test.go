package ubx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		Version:          Version,
		Flags:            FlagHasCRC32,
		HeaderBytes:      HeaderSize,
		SectionCount:     3,
		SectionDirOffset: 128,
		SectionDirBytes:  72,
		BuildID:          0xdeadbeef,
		CRC32:            0x12345678,
	}

	buf := make([]byte, HeaderSize)
	PutHeader(buf, h)
	copy(buf[0:4], Magic[:])

	got := ParseHeader(buf)
	assert.Equal(t, h, got)
	assert.Equal(t, Magic[:], buf[0:4])
}

func TestSectionEntryRoundTrip(t *testing.T) {
	e := SectionEntry{
		ID:                 SectionTokenPostings,
		Flags:              SectionFlagCompressed,
		Offset:             1024,
		Length:             256,
		UncompressedLength: 4096,
		CRC32:              0xabcdef01,
	}

	buf := make([]byte, SectionEntrySize)
	PutSectionEntry(buf, e)

	assert.Equal(t, e, ParseSectionEntry(buf))
}

func TestPatternIndexEntryRoundTrip(t *testing.T) {
	e := PatternIndexEntry{
		ProgOffset:    42,
		ProgLength:    17,
		AnchorType:    AnchorHostname,
		CaseSensitive: true,
		HostHash:      Hash64{Lo: 11, Hi: 22},
	}

	buf := make([]byte, PatternIndexEntrySize)
	PutPatternIndexEntry(buf, e)

	assert.Equal(t, e, ParsePatternIndexEntry(buf))
}

func TestSectionIDStringCoversEveryKnownSection(t *testing.T) {
	for _, id := range AllSectionIDs {
		assert.NotEqual(t, "UNKNOWN", id.String(), "section %d has no name", id)
	}
	assert.Equal(t, "UNKNOWN", SectionID(0x9999).String())
}
