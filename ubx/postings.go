package ubx

// EncodePostings delta-encodes a sorted, ascending slice of rule IDs as
// unsigned LEB128, appending to dst and returning the extended slice. ids
// must already be sorted ascending; callers (the compiler) are responsible
// for sorting before interning.
func EncodePostings(dst []byte, ids []uint32) []byte {
	var prev uint32
	for _, id := range ids {
		delta := id - prev
		dst = appendVarint(dst, delta)
		prev = id
	}

	return dst
}

func appendVarint(dst []byte, v uint32) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}

	return append(dst, byte(v))
}

// DecodePostings decodes count delta-encoded rule IDs starting at offset
// within postings, appending them to dst (which may be a reused scratch
// buffer) and returning the extended slice.
func DecodePostings(dst []uint32, postings []byte, offset uint32, count uint32) []uint32 {
	off := int(offset)
	var prev uint32
	for i := uint32(0); i < count; i++ {
		delta, n := readVarint(postings[off:])
		off += n
		prev += delta
		dst = append(dst, prev)
	}

	return dst
}

func readVarint(buf []byte) (value uint32, n int) {
	var shift uint
	for {
		b := buf[n]
		n++
		value |= uint32(b&0x7f) << shift
		if b < 0x80 {
			break
		}
		shift += 7
	}

	return value, n
}
