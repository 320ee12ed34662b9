package psl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdguardTeam/ubxfilter/internal/fasthash"
	"github.com/AdguardTeam/ubxfilter/ubx"
)

func newTestSet(t *testing.T, exact, wildcard, exception []string) *Set {
	t.Helper()

	toHashes := func(labels []string) []ubx.Hash64 {
		out := make([]ubx.Hash64, len(labels))
		for i, l := range labels {
			out[i] = fasthash.HashDomain(l)
		}
		return out
	}

	section := ubx.BuildPSLSection(toHashes(exact), toHashes(wildcard), toHashes(exception))
	e, w, ex := ubx.ParsePSLSection(section)
	return NewSet(e, w, ex)
}

func TestETLD1ExactSuffixMatch(t *testing.T) {
	s := newTestSet(t, []string{"com", "co.uk"}, nil, nil)

	assert.Equal(t, "example.com", s.ETLD1("www.ads.example.com"))
	assert.Equal(t, "example.co.uk", s.ETLD1("www.example.co.uk"))
}

func TestETLD1WildcardSuffixMatch(t *testing.T) {
	s := newTestSet(t, nil, []string{"bd"}, nil)

	assert.Equal(t, "example.bd", s.ETLD1("www.example.bd"))
}

func TestETLD1ExceptionOverridesWildcard(t *testing.T) {
	s := newTestSet(t, nil, []string{"bd"}, []string{"city.bd"})

	assert.Equal(t, "city.bd", s.ETLD1("www.city.bd"))
}

func TestETLD1FallsBackWithoutPSLData(t *testing.T) {
	s := newTestSet(t, nil, nil, nil)

	assert.Equal(t, "example.com", s.ETLD1("www.example.com"))
	assert.Equal(t, "example.co.uk", s.ETLD1("www.example.co.uk"))
}

func TestETLD1IsIdempotent(t *testing.T) {
	s := newTestSet(t, []string{"com"}, nil, nil)

	first := s.ETLD1("a.b.c.example.com")
	require.NotEmpty(t, first)
	assert.Equal(t, first, s.ETLD1(first))
}

func TestETLD1EmptyHostIsEmpty(t *testing.T) {
	s := newTestSet(t, []string{"com"}, nil, nil)

	assert.Equal(t, "", s.ETLD1(""))
}

func TestSuffixWalkOrderedMostToLeastSpecific(t *testing.T) {
	walk := SuffixWalk("a.b.example.com", "example.com")

	assert.Equal(t, []string{"a.b.example.com", "b.example.com", "example.com"}, walk)
}

func TestSuffixWalkSingleLabelHost(t *testing.T) {
	walk := SuffixWalk("example.com", "example.com")

	assert.Equal(t, []string{"example.com"}, walk)
}
