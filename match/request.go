package match

import (
	"log/slog"

	"github.com/AdguardTeam/ubxfilter/psl"
	"github.com/AdguardTeam/ubxfilter/ubx"
)

// MatchRequest resolves the static (and, if configured, dynamic) filtering
// decision for one network request: trusted-site bypass, dynamic filter,
// decision cache, candidate gathering, precedence resolution, then, only on
// a static Block, redirect resolution, and, only when the outcome so far is
// Allow, removeparam resolution. Any internal error or panic fails open to Allow: blocking is a
// privilege this engine must earn, never a side effect of its own bugs.
func (e *Engine) MatchRequest(req Request) (result MatchResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("match: MatchRequest panicked, failing open", "error", r, "url", req.URL)
			result = MatchResult{Decision: Allow}
		}
	}()

	st := e.state.Load()
	if st == nil {
		return MatchResult{Decision: Allow}
	}

	docParts := parseURL(req.DocumentURL)
	docETLD1 := st.psl.ETLD1(docParts.host)

	if e.isTrusted(docETLD1) {
		return MatchResult{Decision: Allow}
	}

	if df := e.dynamicFilter(); df != nil {
		switch df.Evaluate(req) {
		case DynamicAllow:
			return MatchResult{Decision: Allow}
		case DynamicBlock:
			return MatchResult{Decision: Block}
		}
	}

	reqParts := parseURL(req.URL)
	reqETLD1 := st.psl.ETLD1(reqParts.host)
	party := requestParty(docParts.host, reqParts.host)
	scheme := reqParts.schemeMask()
	typeMask := req.Type.toMask()

	key := newDecisionCacheKey(docETLD1, reqETLD1, req.Type, party, scheme, req.URL)
	if cached, ok := e.cache.Get(key); ok {
		return cached
	}

	sc := e.getScratch()
	defer e.putScratch(sc)

	reqSuffixes := psl.SuffixWalk(reqParts.host, reqETLD1)
	docSuffixes := psl.SuffixWalk(docParts.host, docETLD1)
	sc.reqSuffixes = reqSuffixes
	sc.docSuffixes = docSuffixes
	sc.reqHashes = suffixHashes(sc.reqHashes, reqSuffixes)
	sc.docHashes = suffixHashes(sc.docHashes, docSuffixes)

	candidates := st.gatherCandidates(sc, req.URL, reqParts, sc.reqHashes, sc.docHashes, typeMask, party.toMask(), scheme)

	outcome := st.resolveNetworkOutcome(st.rules, candidates)

	result = MatchResult{Decision: Allow}

	switch {
	case outcome.matched && outcome.action == ubx.ActionBlock:
		result.HasMatchedRule = true
		result.MatchedRuleID = outcome.ruleID
		result.ListID = outcome.record.ListID
		result.Decision = Block

		if path, ok := st.resolveRedirect(candidates, outcome); ok {
			result.Decision = Redirect
			result.RedirectURL = path
		}

	case outcome.matched && outcome.action == ubx.ActionAllow:
		result.HasMatchedRule = true
		result.MatchedRuleID = outcome.ruleID
		result.ListID = outcome.record.ListID
		result.Decision = Allow
	}

	removeparamURLChanged := false
	if result.Decision == Allow {
		plan := st.resolveRemoveparamPlan(candidates)
		if sanitized, changed := plan.sanitize(req.URL); changed {
			removeparamURLChanged = true
			guardKey := newRemoveparamGuardKey(req.TabID, req.FrameID, req.URL)
			if _, seen := e.removeparamGuard.Get(guardKey); !seen {
				e.removeparamGuard.Add(guardKey, struct{}{})
				result.Decision = Removeparam
				result.SanitizedURL = sanitized
			}
		}
	}

	// Never cache a result this URL's removeparam plan touched, whether or
	// not the guard ended up suppressing it this call. Caching the
	// guard-suppressed Allow here would be wrong too: decisionCacheKey
	// carries no tab/frame, so a later first-time request for the same URL
	// from a different tab, or the same tab after the guard's TTL lapses,
	// would read that Allow straight back out and never see its
	// sanitization again.
	if result.Decision != Removeparam && !removeparamURLChanged {
		e.cache.Add(key, result)
	}

	return result
}

// requestParty compares the request's and document's hostnames directly
// (not eTLD+1s): third-party means "request host != document host," which
// is stricter than an eTLD+1 comparison and matches uBO's own notion of
// party.
func requestParty(docHost, reqHost string) Party {
	if docHost != "" && docHost == reqHost {
		return PartyFirst
	}
	return PartyThird
}
