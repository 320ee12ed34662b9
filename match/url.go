package match

import (
	"strings"

	"github.com/AdguardTeam/ubxfilter/internal/fasthash"
	"github.com/AdguardTeam/ubxfilter/ubx"
)

// maxTokens bounds how many candidate tokens tokenizeHashes extracts from one
// URL, so a pathologically long query string can't blow up candidate
// gathering.
const maxTokens = 32

// urlParts locates the pieces of a raw URL the matcher needs without
// allocating a copy of the string: the scheme, and the byte range (within
// the original string) occupied by the host.
type urlParts struct {
	scheme             string
	hostStart, hostEnd int
	host               string
}

// parseURL scans rawURL for its scheme, userinfo-skipped host start, and
// host end (first of '/', '?', '#', or ':'). It never returns an error: a
// URL with no recognizable scheme/host simply yields an empty host, which
// every downstream lookup treats as "no match."
func parseURL(rawURL string) urlParts {
	start := 0
	if i := strings.Index(rawURL, "://"); i >= 0 {
		start = i + 3
	} else if i := strings.IndexByte(rawURL, ':'); i >= 0 && i+1 < len(rawURL) && rawURL[i+1] != '/' {
		// Non-hierarchical scheme (e.g. "data:", "javascript:"): no
		// authority/host at all.
		return urlParts{scheme: strings.ToLower(rawURL[:i])}
	}

	authorityEnd := len(rawURL)
	if i := strings.IndexAny(rawURL[start:], "/?#"); i >= 0 {
		authorityEnd = start + i
	}

	hostStart := start
	if at := strings.LastIndexByte(rawURL[start:authorityEnd], '@'); at >= 0 {
		hostStart = start + at + 1
	}

	hostEnd := len(rawURL)
	for i := hostStart; i < len(rawURL); i++ {
		switch rawURL[i] {
		case '/', '?', '#', ':':
			hostEnd = i
		default:
			continue
		}
		break
	}

	scheme := ""
	if start > 0 {
		scheme = strings.ToLower(rawURL[:start-3])
	}

	return urlParts{
		scheme:    scheme,
		hostStart: hostStart,
		hostEnd:   hostEnd,
		host:      strings.ToLower(rawURL[hostStart:hostEnd]),
	}
}

// schemeMask converts a parsed scheme string to its SchemeMask bit, or 0 if
// the scheme isn't one of the recognized set (an unrecognized scheme matches
// no $scheme-derived rule, but isn't an error).
func (p urlParts) schemeMask() ubx.SchemeMask {
	switch p.scheme {
	case "http":
		return ubx.SchemeHTTP
	case "https":
		return ubx.SchemeHTTPS
	case "ws":
		return ubx.SchemeWS
	case "wss":
		return ubx.SchemeWSS
	case "ftp":
		return ubx.SchemeFTP
	case "data":
		return ubx.SchemeData
	default:
		return 0
	}
}

// tokenizeHashes extracts up to maxTokens lowercase alphanumeric runs of
// length >= 3 from rawURL's body (the scheme itself is skipped, since it
// never distinguishes one rule's pattern from another's), the same
// candidate shape compiler/pattern.go's extractTokenCandidates produces at
// compile time, so that fasthash.TokenHash(rarestToken) looked up against
// TOKEN_DICT at compile time reliably recurs as a URL substring at match
// time, and hashes each one directly out of a stack buffer. dst is a
// caller-owned scratch slice, reused across calls; no token is ever
// materialized as a string, since nothing downstream needs the text, only
// its hash.
func tokenizeHashes(rawURL string, dst []uint32) []uint32 {
	dst = dst[:0]

	start := 0
	if i := strings.Index(rawURL, "://"); i >= 0 {
		start = i + 3
	}

	var b [64]byte
	n := 0
	flush := func() {
		if n >= 3 {
			dst = append(dst, fasthash.TokenHashBytes(b[:n]))
		}
		n = 0
	}

	for i := start; i < len(rawURL) && len(dst) < maxTokens; i++ {
		c := rawURL[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			if n < len(b) {
				b[n] = c
				n++
			}
		case c >= 'A' && c <= 'Z':
			if n < len(b) {
				b[n] = c + 32
				n++
			}
		default:
			flush()
		}
	}
	flush()

	return dst
}
