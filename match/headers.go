package match

import (
	"regexp"
	"strings"

	"github.com/AdguardTeam/ubxfilter/psl"
	"github.com/AdguardTeam/ubxfilter/ubx"
)

// cspHeaderName is excluded from RemoveHeaders even when a $removeheader
// rule names it: CSP handling always goes through CSPDirectives instead.
const cspHeaderName = "content-security-policy"

// removableHeaders is the safe allowlist $removeheader is restricted to:
// headers whose removal can only loosen a page's own response-level
// protections, never actively introduce a new capability.
// content-security-policy is deliberately absent; it's handled exclusively
// through CSPDirectives above.
var removableHeaders = map[string]struct{}{
	"location":                     {},
	"refresh":                      {},
	"report-to":                    {},
	"set-cookie":                   {},
	"strict-transport-security":    {},
	"x-frame-options":              {},
	"x-content-type-options":       {},
	"x-xss-protection":             {},
	"x-powered-by":                 {},
	"cross-origin-opener-policy":   {},
	"cross-origin-resource-policy": {},
	"cross-origin-embedder-policy": {},
	"nel":                          {},
	"permissions-policy":           {},
}

func isRemovableHeader(name string) bool {
	_, ok := removableHeaders[strings.ToLower(name)]
	return ok
}

// MatchResponseHeaders resolves $header=, $csp=, and response-header-removal
// directives once a response's actual headers are known. Only document and
// subdocument loads are eligible; every other request type returns the zero
// ResponseHeaderResult unconditionally.
func (e *Engine) MatchResponseHeaders(req Request, headers []HeaderPair) (result ResponseHeaderResult) {
	defer func() {
		if r := recover(); r != nil {
			result = ResponseHeaderResult{Decision: Allow}
		}
	}()

	result.Decision = Allow

	if !req.Type.isDocument() {
		return result
	}

	st := e.state.Load()
	if st == nil {
		return result
	}

	docParts := parseURL(req.DocumentURL)
	docETLD1 := st.psl.ETLD1(docParts.host)
	if e.isTrusted(docETLD1) {
		return result
	}

	reqParts := parseURL(req.URL)
	reqETLD1 := st.psl.ETLD1(reqParts.host)
	party := requestParty(docParts.host, reqParts.host)

	sc := e.getScratch()
	defer e.putScratch(sc)

	reqSuffixes := psl.SuffixWalk(reqParts.host, reqETLD1)
	docSuffixes := psl.SuffixWalk(docParts.host, docETLD1)
	sc.reqSuffixes = reqSuffixes
	sc.docSuffixes = docSuffixes
	sc.reqHashes = suffixHashes(sc.reqHashes, reqSuffixes)
	sc.docHashes = suffixHashes(sc.docHashes, docSuffixes)

	candidates := st.gatherCandidates(sc, req.URL, reqParts, sc.reqHashes, sc.docHashes, req.Type.toMask(), party.toMask(), reqParts.schemeMask())

	result.Decision = st.resolveHeaderMatch(candidates, headers)
	result.RemoveHeaders = st.resolveHeaderRemoval(candidates)
	result.CSPDirectives = st.resolveCSP(candidates)

	return result
}

// resolveHeaderMatch applies the same IMPORTANT-BLOCK > ALLOW > BLOCK ladder
// as resolveNetworkOutcome, but only over header-match candidates whose
// condition the actual response headers satisfy.
func (st *snapshotState) resolveHeaderMatch(candidates []uint32, headers []HeaderPair) Decision {
	var importantBlock, allow, block best

	for _, id := range candidates {
		rec := st.rules.Get(int(id))
		if rec.Action != ubx.ActionHeaderMatchBlock && rec.Action != ubx.ActionHeaderMatchAllow {
			continue
		}
		if int(rec.OptionID) >= st.headerSpecs.Len() {
			continue
		}
		spec := st.headerSpecs.Get(int(rec.OptionID))
		if !headerConditionMet(headers, st.str(spec.Name), st.str(spec.Value), spec.Flags&ubx.SpecFlagIsRegex != 0) {
			continue
		}

		if rec.Action == ubx.ActionHeaderMatchBlock {
			if rec.Flags.Has(ubx.FlagImportant) {
				importantBlock.consider(id, rec)
			} else {
				block.consider(id, rec)
			}
		} else {
			allow.consider(id, rec)
		}
	}

	switch {
	case importantBlock.present:
		return Block
	case allow.present:
		return Allow
	case block.present:
		return Block
	default:
		return Allow
	}
}

// headerConditionMet reports whether headers contains one named name whose
// value satisfies want: an exact case-insensitive match, or a regex match
// when isRegex is set. An empty want matches the header's mere presence.
func headerConditionMet(headers []HeaderPair, name, want string, isRegex bool) bool {
	for _, h := range headers {
		if !strings.EqualFold(h.Name, name) {
			continue
		}
		switch {
		case want == "":
			return true
		case isRegex:
			re, err := regexp.Compile(strings.Trim(want, "/"))
			if err != nil {
				return false
			}
			if re.MatchString(h.Value) {
				return true
			}
		default:
			if strings.EqualFold(h.Value, want) {
				return true
			}
		}
	}
	return false
}

// resolveHeaderRemoval collects the distinct response header names every
// surviving ActionResponseHeaderRemove candidate names, excluding CSP (which
// is always handled via resolveCSP instead).
func (st *snapshotState) resolveHeaderRemoval(candidates []uint32) []string {
	seen := map[string]struct{}{}
	var out []string

	for _, id := range candidates {
		rec := st.rules.Get(int(id))
		if rec.Action != ubx.ActionResponseHeaderRemove {
			continue
		}
		ref, ok := st.responseHeaderByRule[id]
		if !ok {
			continue
		}
		name := st.str(ref)
		if name == "" || strings.EqualFold(name, cspHeaderName) || !isRemovableHeader(name) {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}

	return out
}

// resolveCSP collects the directive strings to inject, honoring whitelist
// $csp= exceptions: an empty-value exception cancels every injection for
// this request; a specific-value exception cancels only that directive.
func (st *snapshotState) resolveCSP(candidates []uint32) []string {
	var directives []string
	exceptAll := false
	exceptValues := map[string]struct{}{}

	for _, id := range candidates {
		rec := st.rules.Get(int(id))
		if rec.Action != ubx.ActionCSPInject {
			continue
		}
		if int(rec.OptionID) >= st.cspSpecs.Len() {
			continue
		}
		spec := st.cspSpecs.Get(int(rec.OptionID))
		value := st.str(spec.Value)

		if spec.Flags&ubx.SpecFlagIsException != 0 {
			if value == "" {
				exceptAll = true
			} else {
				exceptValues[value] = struct{}{}
			}
			continue
		}

		directives = append(directives, value)
	}

	if exceptAll {
		return nil
	}
	if len(exceptValues) == 0 {
		return directives
	}

	kept := directives[:0]
	for _, d := range directives {
		if _, excluded := exceptValues[d]; !excluded {
			kept = append(kept, d)
		}
	}
	return kept
}
