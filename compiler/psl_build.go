package compiler

import (
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/AdguardTeam/ubxfilter/internal/fasthash"
	"github.com/AdguardTeam/ubxfilter/ubx"
)

// pslBuilder builds a sparse PSL_SETS section covering only the public
// suffixes that actually govern hostnames referenced by the compiled
// ruleset (hostname-anchor hosts, $domain= constraint domains, cosmetic
// scoping domains), rather than the full public suffix list.
// golang.org/x/net/publicsuffix exposes no enumeration API, only the
// point lookup publicsuffix.PublicSuffix(host), so there is no way to
// build the complete set short of shipping and parsing the PSL data file
// ourselves. Wildcard and
// exception PSL entries are consequently always empty: the public API
// doesn't distinguish them from plain suffixes either.
type pslBuilder struct {
	seen   map[string]bool
	hashes []ubx.Hash64
}

func newPSLBuilder() *pslBuilder {
	return &pslBuilder{seen: map[string]bool{}}
}

// observeHost records the public suffix governing host, if any.
func (p *pslBuilder) observeHost(host string) {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" {
		return
	}

	suffix, icann := publicsuffix.PublicSuffix(host)
	if suffix == "" || !icann && suffix == host {
		return
	}

	if p.seen[suffix] {
		return
	}
	p.seen[suffix] = true

	p.hashes = append(p.hashes, fasthash.HashDomain(suffix))
}

func (p *pslBuilder) build() []byte {
	return ubx.BuildPSLSection(p.hashes, nil, nil)
}
