package match

import (
	"encoding/binary"
	"regexp"

	"github.com/AdguardTeam/ubxfilter/internal/fasthash"
	"github.com/AdguardTeam/ubxfilter/ubx"
)

// verifyPattern re-checks a candidate rule's compiled pattern against the
// actual request URL: candidate gathering (domain index, rarest token,
// fallback bucket) only narrows the search space, it never guarantees a
// match. patternID == ubx.NoPattern means the candidate came from the
// domain index on a hostname-only rule, which the index lookup itself
// already confirmed.
func (st *snapshotState) verifyPattern(patternID uint32, rawURL string, parts urlParts, suffixes []string) bool {
	if patternID == ubx.NoPattern {
		return true
	}

	entry := st.patterns.Entry(patternID)
	if entry.AnchorType == ubx.AnchorRegex {
		return st.verifyRegex(patternID, entry, rawURL)
	}

	prog := st.patterns.Program(patternID)
	cursor := 0

	for i := 0; i < len(prog); {
		op := ubx.PatternOp(prog[i])
		i++

		switch op {
		case ubx.OpFindLit:
			offset := binary.LittleEndian.Uint32(prog[i : i+4])
			length := binary.LittleEndian.Uint32(prog[i+4 : i+8])
			i += 8

			lit := st.str(ubx.StrRef{Offset: offset, Length: length})
			idx := findLit(rawURL, cursor, lit, entry.CaseSensitive)
			if idx < 0 {
				return false
			}
			cursor = idx + len(lit)

		case ubx.OpAssertStart:
			if cursor != 0 {
				return false
			}

		case ubx.OpAssertEnd:
			if cursor != len(rawURL) {
				return false
			}

		case ubx.OpAssertBoundary:
			if cursor < len(rawURL) && !isSeparator(rawURL[cursor]) {
				return false
			}

		case ubx.OpSkipAny:
			// No-op: the next FIND_LIT simply searches forward from
			// wherever the cursor currently sits.

		case ubx.OpHostAnchor:
			if !suffixesContain(suffixes, entry.HostHash) {
				return false
			}
			cursor = parts.hostStart

		case ubx.OpDone:
			return true
		}
	}

	return true
}

// verifyRegex lazily compiles and caches the regexp.Regexp for an
// AnchorRegex pattern, then matches it against the raw URL. Compiled
// regexes are cached per snapshot (keyed by pattern id) since compilation
// cost is significant and the same pattern is re-evaluated across requests.
func (st *snapshotState) verifyRegex(patternID uint32, entry ubx.PatternIndexEntry, rawURL string) bool {
	re, ok := st.regexCache.Load(patternID)
	if !ok {
		prog := st.patterns.Program(patternID)
		op, _ := decodeFirstFindLit(prog)
		source := st.str(op)
		if !entry.CaseSensitive {
			source = "(?i)" + source
		}

		compiled, err := regexp.Compile(source)
		if err != nil {
			// An unsafe/invalid regex never matches anything rather than
			// panicking the hot path.
			compiled = nil
		}
		re, _ = st.regexCache.LoadOrStore(patternID, compiled)
	}

	compiled, _ := re.(*regexp.Regexp)
	if compiled == nil {
		return false
	}

	return compiled.MatchString(rawURL)
}

func decodeFirstFindLit(prog []byte) (ubx.StrRef, bool) {
	if len(prog) == 0 || ubx.PatternOp(prog[0]) != ubx.OpFindLit {
		return ubx.StrRef{}, false
	}
	return ubx.StrRef{
		Offset: binary.LittleEndian.Uint32(prog[1:5]),
		Length: binary.LittleEndian.Uint32(prog[5:9]),
	}, true
}

// findLit returns the index of lit's first occurrence in s at or after
// start, case-folding the comparison byte-by-byte when caseSensitive is
// false. It never lowercases s itself: only the literal-sized comparison
// window is folded.
func findLit(s string, start int, lit string, caseSensitive bool) int {
	n := len(lit)
	if n == 0 {
		return start
	}

	for i := start; i+n <= len(s); i++ {
		if matchAt(s, i, lit, caseSensitive) {
			return i
		}
	}

	return -1
}

func matchAt(s string, pos int, lit string, caseSensitive bool) bool {
	for j := 0; j < len(lit); j++ {
		a, b := s[pos+j], lit[j]
		if caseSensitive {
			if a != b {
				return false
			}
			continue
		}
		if foldByte(a) != foldByte(b) {
			return false
		}
	}
	return true
}

func foldByte(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 32
	}
	return c
}

// isSeparator reports whether c is an ABP/uBO "^" separator character: not a
// letter, digit, or "%" (EOS is handled by the caller's cursor bound, not
// here).
func isSeparator(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return false
	case c == '%':
		return false
	default:
		return true
	}
}

// suffixesContain reports whether any suffix in a hostname's suffix-walk
// hashes to h.
func suffixesContain(suffixes []string, h ubx.Hash64) bool {
	for _, s := range suffixes {
		if fasthash.HashDomain(s) == h {
			return true
		}
	}
	return false
}
