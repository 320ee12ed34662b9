package ubx

import "encoding/binary"

// tableHeaderSize is the fixed size, in bytes, of the header shared by every
// open-addressed table kind below: capacity, count, and three reserved words
// kept for forward compatibility (e.g. a future seed or checksum).
const tableHeaderSize = 20

func putTableHeader(buf []byte, capacity, count uint32) {
	binary.LittleEndian.PutUint32(buf[0:4], capacity)
	binary.LittleEndian.PutUint32(buf[4:8], count)
	binary.LittleEndian.PutUint32(buf[8:12], 0)
	binary.LittleEndian.PutUint32(buf[12:16], 0)
	binary.LittleEndian.PutUint32(buf[16:20], 0)
}

func parseTableHeader(buf []byte) (capacity, count uint32) {
	return binary.LittleEndian.Uint32(buf[0:4]), binary.LittleEndian.Uint32(buf[4:8])
}

// nextPowerOfTwo returns the smallest power of two >= n, with a floor of 1.
func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}

	p := 1
	for p < n {
		p <<= 1
	}

	return p
}

// HashSet64EntrySize is the fixed size, in bytes, of one HashSet64 slot.
const HashSet64EntrySize = 8

// BuildHashSet64 serializes hashes into an open-addressed set with capacity a
// power of two >= 2*len(hashes), using linear probing on Hash64.Lo. The zero
// value (0,0) marks an empty slot; callers must never pass a zero Hash64
// (internal/fasthash guarantees this for real domain/hostname input).
func BuildHashSet64(hashes []Hash64) []byte {
	capacity := nextPowerOfTwo(len(hashes) * 2)
	if capacity < 1 {
		capacity = 1
	}

	buf := make([]byte, tableHeaderSize+capacity*HashSet64EntrySize)
	putTableHeader(buf, uint32(capacity), uint32(len(hashes)))

	mask := uint64(capacity - 1)
	body := buf[tableHeaderSize:]
	for _, h := range hashes {
		idx := h.ToUint64() & mask
		for {
			off := int(idx) * HashSet64EntrySize
			slot := body[off : off+HashSet64EntrySize]
			cur := Hash64{
				Lo: binary.LittleEndian.Uint32(slot[0:4]),
				Hi: binary.LittleEndian.Uint32(slot[4:8]),
			}
			if cur.IsZero() {
				binary.LittleEndian.PutUint32(slot[0:4], h.Lo)
				binary.LittleEndian.PutUint32(slot[4:8], h.Hi)
				break
			}
			idx = (idx + 1) & mask
		}
	}

	return buf
}

// HashSet64View is a read-only, zero-copy view over a serialized HashSet64.
type HashSet64View struct {
	capacity uint32
	body     []byte
}

// NewHashSet64View wraps buf, which must be the byte range of a HashSet64
// section (header plus body), without copying it.
func NewHashSet64View(buf []byte) HashSet64View {
	capacity, _ := parseTableHeader(buf)
	return HashSet64View{capacity: capacity, body: buf[tableHeaderSize:]}
}

// Contains reports whether h is a member of the set.
func (v HashSet64View) Contains(h Hash64) bool {
	if v.capacity == 0 || h.IsZero() {
		return false
	}

	mask := uint64(v.capacity - 1)
	idx := h.ToUint64() & mask
	for i := uint32(0); i < v.capacity; i++ {
		off := int(idx) * HashSet64EntrySize
		slot := v.body[off : off+HashSet64EntrySize]
		cur := Hash64{
			Lo: binary.LittleEndian.Uint32(slot[0:4]),
			Hi: binary.LittleEndian.Uint32(slot[4:8]),
		}
		if cur.IsZero() {
			return false
		}
		if cur == h {
			return true
		}
		idx = (idx + 1) & mask
	}

	return false
}

// HashMap64EntrySize is the fixed size, in bytes, of one HashMap64 slot:
// an 8-byte Hash64 key plus a 4-byte uint32 value.
const HashMap64EntrySize = 12

// BuildHashMap64 serializes keys/values (parallel slices) into an
// open-addressed map, linear-probed on Hash64.Lo.
func BuildHashMap64(keys []Hash64, values []uint32) []byte {
	capacity := nextPowerOfTwo(len(keys) * 2)
	if capacity < 1 {
		capacity = 1
	}

	buf := make([]byte, tableHeaderSize+capacity*HashMap64EntrySize)
	putTableHeader(buf, uint32(capacity), uint32(len(keys)))

	mask := uint64(capacity - 1)
	body := buf[tableHeaderSize:]
	for i, k := range keys {
		idx := k.ToUint64() & mask
		for {
			off := int(idx) * HashMap64EntrySize
			slot := body[off : off+HashMap64EntrySize]
			cur := Hash64{
				Lo: binary.LittleEndian.Uint32(slot[0:4]),
				Hi: binary.LittleEndian.Uint32(slot[4:8]),
			}
			if cur.IsZero() {
				binary.LittleEndian.PutUint32(slot[0:4], k.Lo)
				binary.LittleEndian.PutUint32(slot[4:8], k.Hi)
				binary.LittleEndian.PutUint32(slot[8:12], values[i])
				break
			}
			idx = (idx + 1) & mask
		}
	}

	return buf
}

// HashMap64View is a read-only, zero-copy view over a serialized HashMap64.
type HashMap64View struct {
	capacity uint32
	body     []byte
}

// NewHashMap64View wraps buf without copying it.
func NewHashMap64View(buf []byte) HashMap64View {
	capacity, _ := parseTableHeader(buf)
	return HashMap64View{capacity: capacity, body: buf[tableHeaderSize:]}
}

// Get looks up key and reports whether it was found.
func (v HashMap64View) Get(key Hash64) (value uint32, ok bool) {
	if v.capacity == 0 || key.IsZero() {
		return 0, false
	}

	mask := uint64(v.capacity - 1)
	idx := key.ToUint64() & mask
	for i := uint32(0); i < v.capacity; i++ {
		off := int(idx) * HashMap64EntrySize
		slot := v.body[off : off+HashMap64EntrySize]
		cur := Hash64{
			Lo: binary.LittleEndian.Uint32(slot[0:4]),
			Hi: binary.LittleEndian.Uint32(slot[4:8]),
		}
		if cur.IsZero() {
			return 0, false
		}
		if cur == key {
			return binary.LittleEndian.Uint32(slot[8:12]), true
		}
		idx = (idx + 1) & mask
	}

	return 0, false
}

// DomainPostingEntrySize is the fixed size, in bytes, of one DomainPostingMap
// slot: an 8-byte Hash64 key, a 4-byte postings offset, and a 4-byte rule
// count.
const DomainPostingEntrySize = 16

// DomainPosting pairs a domain Hash64 with its posting-list location.
type DomainPosting struct {
	Hash           Hash64
	PostingsOffset uint32
	RuleCount      uint32
}

// BuildDomainPostingMap serializes entries into an open-addressed map from
// domain Hash64 to (postings offset, rule count) in the TOKEN_POSTINGS blob.
// Used for both the ALLOW-class and BLOCK-class DOMAIN_SETS tables.
func BuildDomainPostingMap(entries []DomainPosting) []byte {
	capacity := nextPowerOfTwo(len(entries) * 2)
	if capacity < 1 {
		capacity = 1
	}

	buf := make([]byte, tableHeaderSize+capacity*DomainPostingEntrySize)
	putTableHeader(buf, uint32(capacity), uint32(len(entries)))

	mask := uint64(capacity - 1)
	body := buf[tableHeaderSize:]
	for _, e := range entries {
		idx := e.Hash.ToUint64() & mask
		for {
			off := int(idx) * DomainPostingEntrySize
			slot := body[off : off+DomainPostingEntrySize]
			cur := Hash64{
				Lo: binary.LittleEndian.Uint32(slot[0:4]),
				Hi: binary.LittleEndian.Uint32(slot[4:8]),
			}
			if cur.IsZero() {
				binary.LittleEndian.PutUint32(slot[0:4], e.Hash.Lo)
				binary.LittleEndian.PutUint32(slot[4:8], e.Hash.Hi)
				binary.LittleEndian.PutUint32(slot[8:12], e.PostingsOffset)
				binary.LittleEndian.PutUint32(slot[12:16], e.RuleCount)
				break
			}
			idx = (idx + 1) & mask
		}
	}

	return buf
}

// DomainPostingMapView is a read-only, zero-copy view over a serialized
// DomainPostingMap.
type DomainPostingMapView struct {
	capacity uint32
	body     []byte
}

// NewDomainPostingMapView wraps buf without copying it.
func NewDomainPostingMapView(buf []byte) DomainPostingMapView {
	capacity, _ := parseTableHeader(buf)
	return DomainPostingMapView{capacity: capacity, body: buf[tableHeaderSize:]}
}

// Get looks up the posting-list location for a domain hash.
func (v DomainPostingMapView) Get(key Hash64) (DomainPosting, bool) {
	if v.capacity == 0 || key.IsZero() {
		return DomainPosting{}, false
	}

	mask := uint64(v.capacity - 1)
	idx := key.ToUint64() & mask
	for i := uint32(0); i < v.capacity; i++ {
		off := int(idx) * DomainPostingEntrySize
		slot := v.body[off : off+DomainPostingEntrySize]
		cur := Hash64{
			Lo: binary.LittleEndian.Uint32(slot[0:4]),
			Hi: binary.LittleEndian.Uint32(slot[4:8]),
		}
		if cur.IsZero() {
			return DomainPosting{}, false
		}
		if cur == key {
			return DomainPosting{
				Hash:           cur,
				PostingsOffset: binary.LittleEndian.Uint32(slot[8:12]),
				RuleCount:      binary.LittleEndian.Uint32(slot[12:16]),
			}, true
		}
		idx = (idx + 1) & mask
	}

	return DomainPosting{}, false
}

// TokenDictHeaderSize is the fixed size, in bytes, of the TOKEN_DICT header.
const TokenDictHeaderSize = 16

// TokenDictEntrySize is the fixed size, in bytes, of one TOKEN_DICT slot:
// tokenHash (u32 @0), postingsOffset (u32 @4), ruleCount (u32 @8).
const TokenDictEntrySize = 12

// TokenPosting pairs a token hash with its posting-list location.
type TokenPosting struct {
	TokenHash      uint32
	PostingsOffset uint32
	RuleCount      uint32
}

// BuildTokenDict serializes entries into an open-addressed map from
// TokenHash to (postings offset, rule count).
func BuildTokenDict(entries []TokenPosting) []byte {
	capacity := nextPowerOfTwo(len(entries) * 2)
	if capacity < 1 {
		capacity = 1
	}

	buf := make([]byte, TokenDictHeaderSize+capacity*TokenDictEntrySize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(capacity))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(entries)))

	mask := uint32(capacity - 1)
	body := buf[TokenDictHeaderSize:]
	for _, e := range entries {
		idx := e.TokenHash & mask
		for {
			off := int(idx) * TokenDictEntrySize
			slot := body[off : off+TokenDictEntrySize]
			cur := binary.LittleEndian.Uint32(slot[0:4])
			if cur == 0 {
				binary.LittleEndian.PutUint32(slot[0:4], e.TokenHash)
				binary.LittleEndian.PutUint32(slot[4:8], e.PostingsOffset)
				binary.LittleEndian.PutUint32(slot[8:12], e.RuleCount)
				break
			}
			idx = (idx + 1) & mask
		}
	}

	return buf
}

// TokenDictView is a read-only, zero-copy view over a serialized TokenDict.
type TokenDictView struct {
	capacity uint32
	body     []byte
}

// NewTokenDictView wraps buf without copying it.
func NewTokenDictView(buf []byte) TokenDictView {
	capacity := binary.LittleEndian.Uint32(buf[0:4])
	return TokenDictView{capacity: capacity, body: buf[TokenDictHeaderSize:]}
}

// Get looks up the posting-list location for a token hash.
func (v TokenDictView) Get(tokenHash uint32) (TokenPosting, bool) {
	if v.capacity == 0 || tokenHash == 0 {
		return TokenPosting{}, false
	}

	mask := v.capacity - 1
	idx := tokenHash & mask
	for i := uint32(0); i < v.capacity; i++ {
		off := int(idx) * TokenDictEntrySize
		slot := v.body[off : off+TokenDictEntrySize]
		cur := binary.LittleEndian.Uint32(slot[0:4])
		if cur == 0 {
			return TokenPosting{}, false
		}
		if cur == tokenHash {
			return TokenPosting{
				TokenHash:      cur,
				PostingsOffset: binary.LittleEndian.Uint32(slot[4:8]),
				RuleCount:      binary.LittleEndian.Uint32(slot[8:12]),
			}, true
		}
		idx = (idx + 1) & mask
	}

	return TokenPosting{}, false
}
