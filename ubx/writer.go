package ubx

import (
	"bytes"
	"hash/crc32"

	"github.com/klauspost/compress/zstd"
)

// sectionAlign is the byte boundary every section is padded to, so that any
// typed view built over a section's bytes (uint32/uint64 fields) is safe
// regardless of the host's alignment requirements.
const sectionAlign = 8

// Writer assembles section byte slices produced by the compiler into a
// single UBX snapshot.
type Writer struct {
	buildID  uint32
	withCRC  bool
	sections []writerSection
}

type writerSection struct {
	id         SectionID
	data       []byte
	compressed bool
	rawLen     uint32
}

// NewWriter creates a Writer. buildID is an opaque, compiler-chosen value
// (e.g. a content hash of the input lists) recorded in the header for
// diagnostics; withCRC controls whether FlagHasCRC32 is set and the CRC32
// fields are populated.
func NewWriter(buildID uint32, withCRC bool) *Writer {
	return &Writer{buildID: buildID, withCRC: withCRC}
}

// AddSection registers a section's raw bytes, in their final uncompressed
// form. Sections are emitted in ubx.AllSectionIDs order regardless of the
// order they're added in; omitted sections are simply not written.
func (w *Writer) AddSection(id SectionID, data []byte) {
	w.sections = append(w.sections, writerSection{id: id, data: data})
}

// AddCompressedSection registers a section to be stored zstd-compressed.
// This is an optional, snapshot-local size optimization (SPEC_FULL.md Domain
// Stack); the loader decompresses transparently.
func (w *Writer) AddCompressedSection(id SectionID, data []byte) error {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return err
	}
	defer enc.Close()

	compressed := enc.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		// Not worth it; store uncompressed.
		w.AddSection(id, data)
		return nil
	}

	w.sections = append(w.sections, writerSection{
		id:         id,
		data:       compressed,
		compressed: true,
		rawLen:     uint32(len(data)),
	})

	return nil
}

// Write serializes the registered sections into a complete snapshot.
func (w *Writer) Write() ([]byte, error) {
	ordered := w.orderedSections()

	var body bytes.Buffer
	entries := make([]SectionEntry, 0, len(ordered))

	dirOffset := uint32(HeaderSize)
	dirBytes := uint32(len(ordered) * SectionEntrySize)
	dataStart := align(dirOffset+dirBytes, sectionAlign)

	offset := dataStart
	for _, s := range ordered {
		pad := int(align(offset, sectionAlign) - offset)
		body.Write(make([]byte, pad))
		offset += uint32(pad)

		crc := crc32.ChecksumIEEE(s.data)

		flags := uint16(0)
		uncompressedLen := uint32(0)
		if s.compressed {
			flags |= SectionFlagCompressed
			uncompressedLen = s.rawLen
		}

		entries = append(entries, SectionEntry{
			ID:                 s.id,
			Flags:              flags,
			Offset:             offset,
			Length:             uint32(len(s.data)),
			UncompressedLength: uncompressedLen,
			CRC32:              crc,
		})

		body.Write(s.data)
		offset += uint32(len(s.data))
	}

	out := make([]byte, dataStart)
	for i, e := range entries {
		off := int(dirOffset) + i*SectionEntrySize
		PutSectionEntry(out[off:off+SectionEntrySize], e)
	}
	out = append(out, body.Bytes()...)

	flags := uint16(0)
	if w.withCRC {
		flags |= FlagHasCRC32
	}

	h := Header{
		Version:          Version,
		Flags:            flags,
		HeaderBytes:      HeaderSize,
		SectionCount:     uint32(len(ordered)),
		SectionDirOffset: dirOffset,
		SectionDirBytes:  dirBytes,
		BuildID:          w.buildID,
	}
	PutHeader(out[0:HeaderSize], h)

	if w.withCRC {
		h.CRC32 = crc32.ChecksumIEEE(out)
		PutHeader(out[0:HeaderSize], h)
	}

	return out, nil
}

func (w *Writer) orderedSections() []writerSection {
	byID := make(map[SectionID]writerSection, len(w.sections))
	for _, s := range w.sections {
		byID[s.id] = s
	}

	ordered := make([]writerSection, 0, len(byID))
	for _, id := range AllSectionIDs {
		if s, ok := byID[id]; ok {
			ordered = append(ordered, s)
		}
	}

	return ordered
}

func align(offset, to uint32) uint32 {
	rem := offset % to
	if rem == 0 {
		return offset
	}
	return offset + (to - rem)
}
