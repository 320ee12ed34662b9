package ubx

import "github.com/zeebo/xxh3"

// StrRef is a (offset, length) reference into the STRPOOL section.
type StrRef struct {
	Offset uint32
	Length uint32
}

// internEntry is one bucket slot in StrPoolBuilder.offsets: the interned
// string alongside its StrRef, kept so a hash collision can be resolved by
// an exact comparison rather than trusted blindly.
type internEntry struct {
	s   string
	ref StrRef
}

// StrPoolBuilder interns strings into a single UTF-8 blob, deduplicating
// identical strings so that the RULES, PATTERN_POOL, and resource sections
// can share one copy of any repeated literal (redirect tokens, CSS
// selectors, domain labels). Lookups are bucketed by xxh3 hash rather than
// keyed directly by string value: a filter-list compile interns selectors
// and patterns that can run to hundreds of bytes, where xxh3 outruns Go's
// built-in map hashing.
type StrPoolBuilder struct {
	buf     []byte
	offsets map[uint64][]internEntry
}

// NewStrPoolBuilder creates an empty builder.
func NewStrPoolBuilder() *StrPoolBuilder {
	return &StrPoolBuilder{offsets: make(map[uint64][]internEntry)}
}

// Intern returns a StrRef for s, appending it to the pool only if it hasn't
// been seen before.
func (b *StrPoolBuilder) Intern(s string) StrRef {
	h := xxh3.HashString(s)
	bucket := b.offsets[h]
	for _, e := range bucket {
		if e.s == s {
			return e.ref
		}
	}

	ref := StrRef{Offset: uint32(len(b.buf)), Length: uint32(len(s))}
	b.buf = append(b.buf, s...)
	b.offsets[h] = append(bucket, internEntry{s: s, ref: ref})

	return ref
}

// Bytes returns the assembled STRPOOL section bytes.
func (b *StrPoolBuilder) Bytes() []byte {
	return b.buf
}
