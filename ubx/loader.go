package ubx

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"unicode/utf8"

	"github.com/klauspost/compress/zstd"
)

// Snapshot is a validated, zero-copy view over a UBX snapshot's bytes. All
// accessors return typed views over sub-slices of raw; nothing is copied
// except for sections stored compressed, which must be materialized once on
// load (see Section).
type Snapshot struct {
	raw      []byte
	header   Header
	sections map[SectionID]SectionEntry
	decoded  map[SectionID][]byte
}

// Load validates buf and builds a Snapshot over it. Load never retains a
// partial or inconsistent view: on any validation failure it returns a
// non-nil error and a nil Snapshot.
func Load(buf []byte) (*Snapshot, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("ubx: truncated header: %d bytes", len(buf))
	}

	if !bytes.Equal(buf[0:4], Magic[:]) {
		return nil, fmt.Errorf("ubx: bad magic %x", buf[0:4])
	}

	h := ParseHeader(buf)
	if h.Version != Version {
		return nil, fmt.Errorf("ubx: unsupported version %d", h.Version)
	}

	if h.HeaderBytes != HeaderSize {
		return nil, fmt.Errorf("ubx: unexpected header size %d", h.HeaderBytes)
	}

	dirEnd := int64(h.SectionDirOffset) + int64(h.SectionDirBytes)
	if h.SectionDirOffset < HeaderSize || dirEnd > int64(len(buf)) {
		return nil, fmt.Errorf("ubx: section directory out of bounds")
	}

	if int64(h.SectionDirBytes) != int64(h.SectionCount)*SectionEntrySize {
		return nil, fmt.Errorf("ubx: section directory size mismatch")
	}

	sections := make(map[SectionID]SectionEntry, h.SectionCount)
	dir := buf[h.SectionDirOffset:dirEnd]
	for i := uint32(0); i < h.SectionCount; i++ {
		off := int(i) * SectionEntrySize
		e := ParseSectionEntry(dir[off : off+SectionEntrySize])

		end := int64(e.Offset) + int64(e.Length)
		if int64(e.Offset) < 0 || end > int64(len(buf)) {
			return nil, fmt.Errorf("ubx: section %s out of bounds", e.ID)
		}

		data := buf[e.Offset:end]
		if crc32.ChecksumIEEE(data) != e.CRC32 {
			return nil, fmt.Errorf("ubx: section %s CRC mismatch", e.ID)
		}

		sections[e.ID] = e
	}

	if h.Flags&FlagHasCRC32 != 0 {
		check := make([]byte, len(buf))
		copy(check, buf)
		PutHeader(check[0:HeaderSize], Header{
			Version:          h.Version,
			Flags:            h.Flags,
			HeaderBytes:      h.HeaderBytes,
			SectionCount:     h.SectionCount,
			SectionDirOffset: h.SectionDirOffset,
			SectionDirBytes:  h.SectionDirBytes,
			BuildID:          h.BuildID,
			CRC32:            0,
		})
		if crc32.ChecksumIEEE(check) != h.CRC32 {
			return nil, fmt.Errorf("ubx: whole-file CRC mismatch")
		}
	}

	s := &Snapshot{
		raw:      buf,
		header:   h,
		sections: sections,
		decoded:  make(map[SectionID][]byte),
	}

	if _, ok := sections[SectionStrPool]; ok {
		strpool, ok := s.Section(SectionStrPool)
		if !ok {
			return nil, fmt.Errorf("ubx: STRPOOL could not be decoded")
		}
		if !utf8.Valid(strpool) {
			return nil, fmt.Errorf("ubx: STRPOOL is not valid UTF-8")
		}
	}

	return s, nil
}

func (s *Snapshot) sectionBytes(e SectionEntry) []byte {
	return s.raw[e.Offset : e.Offset+e.Length]
}

// Section returns the decoded bytes of section id, or (nil, false) if the
// snapshot doesn't contain it. Compressed sections are decompressed once and
// cached; uncompressed sections are returned as a direct, zero-copy slice of
// the original buffer.
func (s *Snapshot) Section(id SectionID) ([]byte, bool) {
	e, ok := s.sections[id]
	if !ok {
		return nil, false
	}

	if e.Flags&SectionFlagCompressed == 0 {
		return s.sectionBytes(e), true
	}

	if cached, ok := s.decoded[id]; ok {
		return cached, true
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, false
	}
	defer dec.Close()

	out, err := dec.DecodeAll(s.sectionBytes(e), make([]byte, 0, e.UncompressedLength))
	if err != nil {
		return nil, false
	}

	s.decoded[id] = out
	return out, true
}

// BuildID returns the compiler-chosen opaque build identifier recorded in
// the header.
func (s *Snapshot) BuildID() uint32 {
	return s.header.BuildID
}

// HasCRC32 reports whether the snapshot carries a whole-file CRC32.
func (s *Snapshot) HasCRC32() bool {
	return s.header.Flags&FlagHasCRC32 != 0
}

// Size returns the total byte length of the snapshot.
func (s *Snapshot) Size() int {
	return len(s.raw)
}

// StringAt resolves a (offset, length) reference into the STRPOOL section.
func (s *Snapshot) StringAt(offset, length uint32) (string, error) {
	pool, ok := s.Section(SectionStrPool)
	if !ok {
		return "", fmt.Errorf("ubx: no STRPOOL section")
	}

	end := int64(offset) + int64(length)
	if end > int64(len(pool)) {
		return "", fmt.Errorf("ubx: string reference out of bounds")
	}

	return string(pool[offset:end]), nil
}
