package match

import (
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/AdguardTeam/ubxfilter/ubx"
)

// decisionCacheKey identifies one MatchRequest outcome for caching: the
// document and request eTLD+1s, the request's type/party/scheme, and a
// fingerprint of the full URL. All fields are plain comparable values, so
// the key itself can serve as a generic lru.Cache key with no further
// hashing.
type decisionCacheKey struct {
	docETLD1 string
	reqETLD1 string
	typ      RequestType
	party    Party
	scheme   ubx.SchemeMask
	urlFP    uint64
}

func urlFingerprint(rawURL string) uint64 {
	return xxhash.Sum64String(rawURL)
}

func newDecisionCacheKey(docETLD1, reqETLD1 string, typ RequestType, party Party, scheme ubx.SchemeMask, rawURL string) decisionCacheKey {
	return decisionCacheKey{
		docETLD1: docETLD1,
		reqETLD1: reqETLD1,
		typ:      typ,
		party:    party,
		scheme:   scheme,
		urlFP:    urlFingerprint(rawURL),
	}
}

// newDecisionCache builds a bounded LRU keyed by decisionCacheKey. It is
// purged wholesale on every snapshot swap: a stale entry from an old
// snapshot must never outlive that snapshot.
func newDecisionCache(size int) *lru.Cache[decisionCacheKey, MatchResult] {
	if size <= 0 {
		size = 4096
	}
	c, _ := lru.New[decisionCacheKey, MatchResult](size)
	return c
}

// removeparamGuardKey scopes the redirect-loop guard to one tab/frame/URL
// triple.
type removeparamGuardKey struct {
	tabID, frameID int
	urlFP          uint64
}

func newRemoveparamGuardKey(tabID, frameID int, rawURL string) removeparamGuardKey {
	return removeparamGuardKey{tabID: tabID, frameID: frameID, urlFP: urlFingerprint(rawURL)}
}

// newRemoveparamGuard builds a TTL-bounded set: a key present in it means
// this engine already resolved (and presumably the host already applied) a
// removeparam sanitization for that exact original URL within the TTL, so a
// second MatchRequest for the same triple should not re-trigger removeparam
// and risk a redirect loop.
func newRemoveparamGuard(size int, ttl time.Duration) *expirable.LRU[removeparamGuardKey, struct{}] {
	if size <= 0 {
		size = 1024
	}
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return expirable.NewLRU[removeparamGuardKey, struct{}](size, nil, ttl)
}
