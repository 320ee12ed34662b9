package ubx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestSnapshot(t *testing.T, withCRC bool) []byte {
	t.Helper()

	w := NewWriter(0x1234, withCRC)
	w.AddSection(SectionStrPool, []byte("example.com\x00ads.test\x00"))
	w.AddSection(SectionRules, []byte{1, 2, 3, 4, 5, 6, 7, 8})

	buf, err := w.Write()
	require.NoError(t, err)

	return buf
}

func TestLoadAcceptsWellFormedSnapshot(t *testing.T) {
	buf := buildTestSnapshot(t, true)

	s, err := Load(buf)
	require.NoError(t, err)

	assert.Equal(t, uint32(0x1234), s.BuildID())
	assert.True(t, s.HasCRC32())
	assert.Equal(t, len(buf), s.Size())

	rules, ok := s.Section(SectionRules)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, rules)
}

func TestLoadAcceptsSnapshotWithoutCRC32(t *testing.T) {
	buf := buildTestSnapshot(t, false)

	s, err := Load(buf)
	require.NoError(t, err)
	assert.False(t, s.HasCRC32())
}

func TestLoadDecodesCompressedStrPool(t *testing.T) {
	text := []byte("example.com\x00" + strings.Repeat("ads.test.subdomain.example\x00", 64))

	w := NewWriter(0x5678, true)
	require.NoError(t, w.AddCompressedSection(SectionStrPool, text))
	w.AddSection(SectionRules, []byte{1, 2, 3, 4})

	buf, err := w.Write()
	require.NoError(t, err)

	s, err := Load(buf)
	require.NoError(t, err)

	got, ok := s.Section(SectionStrPool)
	require.True(t, ok)
	assert.Equal(t, text, got)
}

func TestLoadRejectsTruncatedHeader(t *testing.T) {
	_, err := Load(make([]byte, HeaderSize-1))
	assert.ErrorContains(t, err, "truncated header")
}

func TestLoadRejectsBadMagic(t *testing.T) {
	buf := buildTestSnapshot(t, true)
	buf[0] = 'X'

	_, err := Load(buf)
	assert.ErrorContains(t, err, "bad magic")
}

func TestLoadRejectsUnsupportedVersion(t *testing.T) {
	buf := buildTestSnapshot(t, true)
	h := ParseHeader(buf)
	h.Version = Version + 1
	PutHeader(buf[0:HeaderSize], h)
	copy(buf[0:4], Magic[:])

	_, err := Load(buf)
	assert.ErrorContains(t, err, "unsupported version")
}

func TestLoadRejectsSectionDirectoryOutOfBounds(t *testing.T) {
	buf := buildTestSnapshot(t, true)
	h := ParseHeader(buf)
	h.SectionDirOffset = uint32(len(buf)) + 64
	PutHeader(buf[0:HeaderSize], h)
	copy(buf[0:4], Magic[:])

	_, err := Load(buf)
	assert.ErrorContains(t, err, "section directory out of bounds")
}

func TestLoadRejectsSectionDirectorySizeMismatch(t *testing.T) {
	buf := buildTestSnapshot(t, true)
	h := ParseHeader(buf)
	h.SectionCount++
	PutHeader(buf[0:HeaderSize], h)
	copy(buf[0:4], Magic[:])

	_, err := Load(buf)
	assert.ErrorContains(t, err, "section directory size mismatch")
}

func TestLoadRejectsSectionCRCMismatch(t *testing.T) {
	buf := buildTestSnapshot(t, false)

	// Flip a byte inside the section data region, past the header and
	// directory, without touching any offset/length field.
	buf[len(buf)-1] ^= 0xff

	_, err := Load(buf)
	assert.ErrorContains(t, err, "CRC mismatch")
}

func TestLoadRejectsWholeFileCRCMismatch(t *testing.T) {
	buf := buildTestSnapshot(t, true)
	h := ParseHeader(buf)
	h.BuildID++ // changes header bytes covered by the whole-file CRC without recomputing it
	PutHeader(buf[0:HeaderSize], h)
	copy(buf[0:4], Magic[:])

	_, err := Load(buf)
	assert.ErrorContains(t, err, "whole-file CRC mismatch")
}

func TestLoadRejectsInvalidUTF8StringPool(t *testing.T) {
	w := NewWriter(1, false)
	w.AddSection(SectionStrPool, []byte{0xff, 0xfe, 0xfd})
	buf, err := w.Write()
	require.NoError(t, err)

	_, err = Load(buf)
	assert.ErrorContains(t, err, "not valid UTF-8")
}

func TestSectionReturnsFalseForMissingSection(t *testing.T) {
	buf := buildTestSnapshot(t, true)
	s, err := Load(buf)
	require.NoError(t, err)

	_, ok := s.Section(SectionCosmeticRules)
	assert.False(t, ok)
}

func TestStringAtResolvesOffsetAndLength(t *testing.T) {
	buf := buildTestSnapshot(t, true)
	s, err := Load(buf)
	require.NoError(t, err)

	str, err := s.StringAt(0, uint32(len("example.com")))
	require.NoError(t, err)
	assert.Equal(t, "example.com", str)
}

func TestStringAtRejectsOutOfBoundsReference(t *testing.T) {
	buf := buildTestSnapshot(t, true)
	s, err := Load(buf)
	require.NoError(t, err)

	_, err = s.StringAt(0, 1<<20)
	assert.ErrorContains(t, err, "out of bounds")
}
