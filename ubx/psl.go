package ubx

import "encoding/binary"

// PSL_SETS layout: three consecutive HashSet64 blobs (exact, wildcard,
// exception order), each self-describing its own length via its header's
// capacity field.

// BuildPSLSection concatenates the three PSL hash sets into one section.
func BuildPSLSection(exact, wildcard, exception []Hash64) []byte {
	var buf []byte
	buf = append(buf, BuildHashSet64(exact)...)
	buf = append(buf, BuildHashSet64(wildcard)...)
	buf = append(buf, BuildHashSet64(exception)...)
	return buf
}

// ParsePSLSection splits a PSL_SETS section into its three views.
func ParsePSLSection(buf []byte) (exact, wildcard, exception HashSet64View) {
	exact, rest := readHashSet64(buf)
	wildcard, rest = readHashSet64(rest)
	exception, _ = readHashSet64(rest)
	return exact, wildcard, exception
}

func readHashSet64(buf []byte) (HashSet64View, []byte) {
	capacity := binary.LittleEndian.Uint32(buf[0:4])
	size := tableHeaderSize + int(capacity)*HashSet64EntrySize
	return NewHashSet64View(buf[:size]), buf[size:]
}
