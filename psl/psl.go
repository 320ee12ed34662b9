// Package psl computes effective top-level domain + 1 (eTLD+1) from a set of
// public-suffix hashes embedded in a UBX snapshot's PSL_SETS section.
//
// A Set is a plain value owned by whoever needs it (typically a
// match.Engine) rather than a process-wide singleton.
package psl

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/AdguardTeam/ubxfilter/internal/fasthash"
	"github.com/AdguardTeam/ubxfilter/ubx"
)

// commonTwoPartTLDs is the fallback table consulted when a hostname's
// effective suffix isn't found in any of the three embedded sets (e.g. a
// stale or trimmed-down snapshot). Grounded on
// _examples/original_source/crates/bb-core/src/psl.rs's fallback_etld1.
var commonTwoPartTLDs = map[string]bool{
	"co.uk": true, "org.uk": true, "ac.uk": true, "gov.uk": true,
	"com.au": true, "net.au": true, "org.au": true,
	"co.jp": true, "ne.jp": true,
	"com.br": true, "com.cn": true, "com.mx": true,
	"co.nz": true, "co.za": true, "co.in": true,
}

// Set holds the three PSL hash sets (exact, wildcard, exception) loaded from
// a snapshot, plus a bounded cache for eTLD+1 results.
type Set struct {
	exact     ubx.HashSet64View
	wildcard  ubx.HashSet64View
	exception ubx.HashSet64View
	cache     *lru.Cache[string, string]
}

// etld1CacheSize mirrors the reference implementation's 4096-entry global
// cache, but scoped per Set instead of process-wide.
const etld1CacheSize = 4096

// NewSet builds a Set over the three hash-set views decoded from a
// snapshot's PSL_SETS section.
func NewSet(exact, wildcard, exception ubx.HashSet64View) *Set {
	cache, _ := lru.New[string, string](etld1CacheSize)
	return &Set{exact: exact, wildcard: wildcard, exception: exception, cache: cache}
}

// NewSetFromSnapshot is a convenience constructor for the common case of
// reading PSL_SETS straight out of a loaded snapshot.
func NewSetFromSnapshot(s *ubx.Snapshot) (*Set, bool) {
	buf, ok := s.Section(ubx.SectionPSLSets)
	if !ok {
		return nil, false
	}

	exact, wildcard, exception := ubx.ParsePSLSection(buf)
	return NewSet(exact, wildcard, exception), true
}

func (s *Set) isExact(label string) bool {
	return s.exact.Contains(fasthash.HashDomain(label))
}

func (s *Set) isWildcard(label string) bool {
	return s.wildcard.Contains(fasthash.HashDomain(label))
}

func (s *Set) isException(label string) bool {
	return s.exception.Contains(fasthash.HashDomain(label))
}

// ETLD1 computes the effective top-level domain plus one label for host.
// Idempotent: ETLD1(ETLD1(h)) == ETLD1(h).
func (s *Set) ETLD1(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" {
		return ""
	}

	if v, ok := s.cache.Get(host); ok {
		return v
	}

	result := s.computeETLD1(host)
	s.cache.Add(host, result)

	return result
}

func (s *Set) computeETLD1(host string) string {
	labels := strings.Split(host, ".")

	for i := 0; i < len(labels); i++ {
		suffix := strings.Join(labels[i:], ".")

		if s.isException(suffix) {
			if i+1 >= len(labels) {
				return suffix
			}
			return strings.Join(labels[i:], ".")
		}

		if s.isExact(suffix) {
			if i == 0 {
				return suffix
			}
			return strings.Join(labels[i-1:], ".")
		}

		if i+1 < len(labels) {
			parent := strings.Join(labels[i+1:], ".")
			if s.isWildcard(parent) {
				return strings.Join(labels[i:], ".")
			}
		}
	}

	return s.fallbackETLD1(labels)
}

// fallbackETLD1 is used when no PSL entry matches at all: the last two
// labels, or the last three when they form a known two-part TLD like
// "co.uk".
func (s *Set) fallbackETLD1(labels []string) string {
	n := len(labels)
	if n <= 2 {
		return strings.Join(labels, ".")
	}

	lastTwo := strings.Join(labels[n-2:], ".")
	if commonTwoPartTLDs[lastTwo] && n >= 3 {
		return strings.Join(labels[n-3:], ".")
	}

	return lastTwo
}

// SuffixWalk returns host's suffixes from most specific (the full host) down
// to, and including, its eTLD+1, the order domain-index and
// domain-constraint lookups require.
func SuffixWalk(host, etld1 string) []string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" {
		return nil
	}

	etld1Labels := strings.Count(etld1, ".") + 1

	labels := strings.Split(host, ".")
	var walk []string
	for i := 0; i < len(labels); i++ {
		suffix := strings.Join(labels[i:], ".")
		walk = append(walk, suffix)
		if len(labels)-i <= etld1Labels {
			break
		}
	}

	return walk
}
