package match

import (
	"sort"

	"github.com/AdguardTeam/ubxfilter/internal/fasthash"
	"github.com/AdguardTeam/ubxfilter/psl"
	"github.com/AdguardTeam/ubxfilter/ubx"
)

// genericHideSelector is the literal cosmetic-exception content AdGuard/uBO
// lists use to disable generic cosmetics for one scope without a network
// $generichide modifier ("example.com#@#generichide"). It names no real
// selector, so it's intercepted here rather than added to
// ElementHideSelectors.
const genericHideSelector = "generichide"

// MatchCosmetics resolves the element-hiding, procedural, and scriptlet
// payloads to inject into documentURL: union(hide) minus union(exception)
// across the document's suffix-walk, honoring $elemhide/$generichide network
// exceptions and the cosmetic-exception "generichide" special case.
func (e *Engine) MatchCosmetics(documentURL string) (result CosmeticResult) {
	defer func() {
		if r := recover(); r != nil {
			result = CosmeticResult{}
		}
	}()

	st := e.state.Load()
	if st == nil {
		return CosmeticResult{}
	}

	parts := parseURL(documentURL)
	etld1 := st.psl.ETLD1(parts.host)
	if e.isTrusted(etld1) {
		return CosmeticResult{}
	}

	suffixes := psl.SuffixWalk(parts.host, etld1)
	suffixHashSet := make(map[ubx.Hash64]struct{}, len(suffixes))
	for _, s := range suffixes {
		suffixHashSet[fasthash.HashDomain(s)] = struct{}{}
	}

	elemhideDisabled, genericDisabled := st.documentCosmeticFlags(documentURL, parts)

	// Resolve genericDisabled fully before emitting any generic selector: the
	// cosmetic-exception record that sets it (scope-specific "generichide")
	// need not precede the generic records it suppresses, since the
	// compiler serializes cosmetic records in input order, not exception-
	// before-generic order (compiler/build.go).
	for i := 0; i < st.cosmetic.Len(); i++ {
		rec := st.cosmetic.Get(i)
		if rec.Flags&ubx.CosmeticFlagException == 0 || rec.DomainHash.IsZero() {
			continue
		}
		if !recordInScope(rec.DomainHash, suffixHashSet) {
			continue
		}
		if st.str(rec.Selector) == genericHideSelector {
			genericDisabled = true
			break
		}
	}

	hideSelectors := map[string]struct{}{}
	exceptSelectors := map[string]struct{}{}

	for i := 0; i < st.cosmetic.Len(); i++ {
		rec := st.cosmetic.Get(i)
		if !recordInScope(rec.DomainHash, suffixHashSet) {
			continue
		}

		text := st.str(rec.Selector)

		if rec.Flags&ubx.CosmeticFlagException != 0 {
			if text == genericHideSelector && !rec.DomainHash.IsZero() {
				continue
			}
			exceptSelectors[text] = struct{}{}
			continue
		}

		if rec.DomainHash.IsZero() && genericDisabled {
			continue
		}
		hideSelectors[text] = struct{}{}
	}

	if !elemhideDisabled {
		for sel := range exceptSelectors {
			delete(hideSelectors, sel)
		}
		for sel := range hideSelectors {
			result.ElementHideSelectors = append(result.ElementHideSelectors, sel)
		}
		sort.Strings(result.ElementHideSelectors)
	}

	if !elemhideDisabled {
		result.ProceduralPrograms = st.resolveProceduralPrograms(suffixHashSet, genericDisabled)
		result.Scriptlets = st.resolveScriptlets(suffixHashSet, genericDisabled)
	}

	result.GenericDisabled = genericDisabled
	result.ElemhideDisabled = elemhideDisabled

	return result
}

// documentCosmeticFlags determines whether $elemhide/$generichide network
// exceptions apply to documentURL, by resolving the same precedence ladder
// MatchRequest uses but over TypeDocument candidates, looking only at the
// winning ActionAllow record's flags.
func (st *snapshotState) documentCosmeticFlags(documentURL string, parts urlParts) (elemhideDisabled, genericDisabled bool) {
	etld1 := st.psl.ETLD1(parts.host)
	suffixes := psl.SuffixWalk(parts.host, etld1)
	hashes := suffixHashes(nil, suffixes)

	sc := newScratch()
	sc.reqSuffixes = suffixes
	candidates := st.gatherCandidates(sc, documentURL, parts, hashes, hashes, ubx.TypeMainFrame, ubx.PartyAll, parts.schemeMask())

	outcome := st.resolveNetworkOutcome(st.rules, candidates)
	if !outcome.matched || outcome.action != ubx.ActionAllow {
		return false, false
	}

	if outcome.record.Flags.Has(ubx.FlagElemhide) {
		return true, true
	}
	if outcome.record.Flags.Has(ubx.FlagGenerichide) {
		return false, true
	}

	return false, false
}

// recordInScope reports whether rec (generic, DomainHash zero, or scoped to
// one of docHashes) applies to the current document.
func recordInScope(domainHash ubx.Hash64, docHashes map[ubx.Hash64]struct{}) bool {
	if domainHash.IsZero() {
		return true
	}
	_, ok := docHashes[domainHash]
	return ok
}

func (st *snapshotState) resolveProceduralPrograms(docHashes map[ubx.Hash64]struct{}, genericDisabled bool) []string {
	except := map[string]struct{}{}
	var out []string

	for i := 0; i < st.procedural.Len(); i++ {
		rec := st.procedural.Get(i)
		if !recordInScope(rec.DomainHash, docHashes) {
			continue
		}
		text := st.str(rec.Selector)
		if rec.Flags&ubx.CosmeticFlagException != 0 {
			except[text] = struct{}{}
			continue
		}
		if rec.DomainHash.IsZero() && genericDisabled {
			continue
		}
		out = append(out, text)
	}

	if len(except) == 0 {
		return out
	}

	kept := out[:0]
	for _, p := range out {
		if _, excluded := except[p]; !excluded {
			kept = append(kept, p)
		}
	}
	return kept
}

func (st *snapshotState) resolveScriptlets(docHashes map[ubx.Hash64]struct{}, genericDisabled bool) []ScriptletInvocation {
	type key struct{ name, args string }
	except := map[key]struct{}{}
	var out []ScriptletInvocation

	for i := 0; i < st.scriptlet.Len(); i++ {
		rec := st.scriptlet.Get(i)
		if !recordInScope(rec.DomainHash, docHashes) {
			continue
		}
		name, args := st.str(rec.Name), st.str(rec.Args)
		if rec.Flags&ubx.CosmeticFlagException != 0 {
			except[key{name, args}] = struct{}{}
			continue
		}
		if rec.DomainHash.IsZero() && genericDisabled {
			continue
		}
		out = append(out, ScriptletInvocation{Name: name, Args: args})
	}

	if len(except) == 0 {
		return out
	}

	kept := out[:0]
	for _, s := range out {
		if _, excluded := except[key{s.Name, s.Args}]; !excluded {
			kept = append(kept, s)
		}
	}
	return kept
}
