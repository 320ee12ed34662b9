package match

import (
	"github.com/AdguardTeam/ubxfilter/internal/fasthash"
	"github.com/AdguardTeam/ubxfilter/ubx"
)

// scratch holds per-call working buffers that gatherCandidates and its
// callers reuse across requests instead of allocating fresh ones each time.
// An Engine keeps a sync.Pool of these; nothing in scratch is safe for
// concurrent use by two in-flight matches.
type scratch struct {
	tokens      []uint32
	postingIDs  []uint32
	seen        map[uint32]struct{}
	rawIDs      []uint32
	candidates  []uint32
	reqSuffixes []string
	docSuffixes []string
	reqHashes   []ubx.Hash64
	docHashes   []ubx.Hash64
}

func newScratch() *scratch {
	return &scratch{seen: make(map[uint32]struct{}, 64)}
}

func (sc *scratch) reset() {
	sc.rawIDs = sc.rawIDs[:0]
	sc.candidates = sc.candidates[:0]
	for k := range sc.seen {
		delete(sc.seen, k)
	}
}

// suffixHashes hashes each suffix in walk into dst, reusing dst's backing
// array.
func suffixHashes(dst []ubx.Hash64, walk []string) []ubx.Hash64 {
	dst = dst[:0]
	for _, s := range walk {
		dst = append(dst, fasthash.HashDomain(s))
	}
	return dst
}

// addCandidate records ruleID in sc.rawIDs if it hasn't been seen yet this
// call.
func (sc *scratch) addCandidate(ruleID uint32) {
	if _, ok := sc.seen[ruleID]; ok {
		return
	}
	sc.seen[ruleID] = struct{}{}
	sc.rawIDs = append(sc.rawIDs, ruleID)
}

// collectPostings decodes the posting list at (offset, count) and records
// every rule id as a candidate.
func (st *snapshotState) collectPostings(sc *scratch, offset, count uint32) {
	sc.postingIDs = ubx.DecodePostings(sc.postingIDs[:0], st.postings, offset, count)
	for _, id := range sc.postingIDs {
		sc.addCandidate(id)
	}
}

// gatherCandidates narrows the full rule set down to every rule that could
// plausibly apply to one request: hostname-only rules reachable by the
// request host's suffix-walk through DOMAIN_SETS, plus rules whose single
// indexed (rarest) token occurs in the URL, plus every rule in the fallback
// bucket, both looked up through TOKEN_DICT. Every candidate
// is then verified for real: type/party/scheme, $domain= constraint against
// the document's suffix-walk, and (for token-bucket rules) the compiled
// pattern program against the actual URL. The returned slice is owned by
// sc and invalidated by the next call.
func (st *snapshotState) gatherCandidates(
	sc *scratch,
	rawURL string,
	parts urlParts,
	reqSuffixHashes, docSuffixHashes []ubx.Hash64,
	typeMask ubx.RequestTypeMask,
	party ubx.PartyMask,
	scheme ubx.SchemeMask,
) []uint32 {
	sc.reset()

	for _, h := range reqSuffixHashes {
		if dp, ok := st.domainSets.Get(h); ok {
			st.collectPostings(sc, dp.PostingsOffset, dp.RuleCount)
		}
	}

	sc.tokens = tokenizeHashes(rawURL, sc.tokens)

	rarestFound := false
	var rarest ubx.TokenPosting
	for _, tokenHash := range sc.tokens {
		tp, ok := st.tokenDict.Get(tokenHash)
		if !ok {
			continue
		}
		if !rarestFound || tp.RuleCount < rarest.RuleCount {
			rarest = tp
			rarestFound = true
		}
	}
	if rarestFound {
		st.collectPostings(sc, rarest.PostingsOffset, rarest.RuleCount)
	}

	if tp, ok := st.tokenDict.Get(ubx.FallbackTokenHash); ok {
		st.collectPostings(sc, tp.PostingsOffset, tp.RuleCount)
	}

	for _, ruleID := range sc.rawIDs {
		if int(ruleID) >= st.rules.Len() {
			continue
		}
		rec := st.rules.Get(int(ruleID))

		if !typeMatches(rec.TypeMask, typeMask) {
			continue
		}
		if rec.PartyMask&party == 0 {
			continue
		}
		if scheme != 0 && rec.SchemeMask&scheme == 0 {
			continue
		}
		if !st.domainConstraintOK(rec.DomainConstraintOffset, docSuffixHashes) {
			continue
		}
		if !st.verifyPattern(rec.PatternID, rawURL, parts, sc.reqSuffixes) {
			continue
		}

		sc.candidates = append(sc.candidates, ruleID)
	}

	return sc.candidates
}

func typeMatches(ruleMask, reqMask ubx.RequestTypeMask) bool {
	return ruleMask == 0 || ruleMask&reqMask != 0
}

func (st *snapshotState) domainConstraintOK(offset uint32, docSuffixHashes []ubx.Hash64) bool {
	if offset == ubx.NoConstraint {
		return true
	}

	c := ubx.ReadDomainConstraint(st.domainConstraintPool, offset)

	for _, h := range c.Exclude {
		if hashesContain(docSuffixHashes, h) {
			return false
		}
	}

	if len(c.Include) > 0 {
		found := false
		for _, h := range c.Include {
			if hashesContain(docSuffixHashes, h) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

func hashesContain(hs []ubx.Hash64, target ubx.Hash64) bool {
	for _, h := range hs {
		if h == target {
			return true
		}
	}
	return false
}
