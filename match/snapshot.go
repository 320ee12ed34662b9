package match

import (
	"fmt"
	"sync"

	"github.com/AdguardTeam/ubxfilter/psl"
	"github.com/AdguardTeam/ubxfilter/ubx"
)

// snapshotState is the immutable, fully-decoded form of one loaded UBX
// snapshot: the views every match operation reads, plus a lazily-populated
// regex cache keyed by pattern id. An Engine swaps this pointer atomically on
// Init; nothing in here is ever mutated after buildState returns it (the
// regexCache's sync.Map is safe for concurrent lazy fills, not for
// invalidation, which a snapshot swap makes moot by discarding the whole
// state).
type snapshotState struct {
	snap *ubx.Snapshot
	psl  *psl.Set

	rules      ubx.RulesView
	patterns   ubx.PatternPoolView
	domainSets ubx.DomainPostingMapView
	tokenDict  ubx.TokenDictView
	postings   []byte

	domainConstraintPool []byte
	redirectResources    ubx.RedirectResourcesView
	removeparamSpecs     ubx.NameValueSpecsView
	cspSpecs             ubx.NameValueSpecsView
	headerSpecs          ubx.NameValueSpecsView
	responseHeaderRules  ubx.ResponseHeaderRulesView
	// responseHeaderByRule maps a rule id carrying ActionResponseHeaderRemove
	// to its header name StrRef, built once here since RESPONSEHEADER_RULES
	// is otherwise only linearly scannable.
	responseHeaderByRule map[uint32]ubx.StrRef

	cosmetic   ubx.CosmeticRecordsView
	procedural ubx.CosmeticRecordsView
	scriptlet  ubx.ScriptletRecordsView

	regexCache sync.Map // pattern id (uint32) -> *regexp.Regexp
}

// buildState decodes every section of snap into typed, zero-copy views.
// A missing PSL_SETS section is an error. Any other missing section
// (forward/backward compatibility, or a snapshot produced by a trimmed-down
// compiler) falls back to a zero-value view, which every accessor above
// treats as "empty" rather than panicking.
func buildState(snap *ubx.Snapshot) (*snapshotState, error) {
	pslSet, ok := psl.NewSetFromSnapshot(snap)
	if !ok {
		return nil, fmt.Errorf("match: snapshot missing PSL_SETS section")
	}

	st := &snapshotState{
		snap:                 snap,
		psl:                  pslSet,
		rules:                ubx.NewRulesView(sectionOrNil(snap, ubx.SectionRules)),
		domainConstraintPool: sectionOrNil(snap, ubx.SectionDomainConstraintPool),
		postings:             sectionOrNil(snap, ubx.SectionTokenPostings),
		redirectResources:    ubx.NewRedirectResourcesView(sectionOrNil(snap, ubx.SectionRedirectResources)),
		removeparamSpecs:     ubx.NewNameValueSpecsView(sectionOrNil(snap, ubx.SectionRemoveparamSpecs)),
		cspSpecs:             ubx.NewNameValueSpecsView(sectionOrNil(snap, ubx.SectionCSPSpecs)),
		headerSpecs:          ubx.NewNameValueSpecsView(sectionOrNil(snap, ubx.SectionHeaderSpecs)),
		responseHeaderRules:  ubx.NewResponseHeaderRulesView(sectionOrNil(snap, ubx.SectionResponseHeaderRules)),
		cosmetic:             ubx.NewCosmeticRecordsView(sectionOrNil(snap, ubx.SectionCosmeticRules)),
		procedural:           ubx.NewProceduralRecordsView(sectionOrNil(snap, ubx.SectionProceduralRules)),
		scriptlet:            ubx.NewScriptletRecordsView(sectionOrNil(snap, ubx.SectionScriptletRules)),
	}

	if buf := sectionOrNil(snap, ubx.SectionPatternPool); len(buf) >= 4 {
		st.patterns = ubx.NewPatternPoolView(buf)
	}
	if buf := sectionOrNil(snap, ubx.SectionDomainSets); len(buf) >= 20 {
		st.domainSets = ubx.NewDomainPostingMapView(buf)
	}
	if buf := sectionOrNil(snap, ubx.SectionTokenDict); len(buf) >= ubx.TokenDictHeaderSize {
		st.tokenDict = ubx.NewTokenDictView(buf)
	}

	st.responseHeaderByRule = make(map[uint32]ubx.StrRef, st.responseHeaderRules.Len())
	for i := 0; i < st.responseHeaderRules.Len(); i++ {
		e := st.responseHeaderRules.Get(i)
		st.responseHeaderByRule[e.RuleID] = e.HeaderName
	}

	return st, nil
}

// sectionOrNil returns a section's bytes, or nil if the snapshot doesn't
// carry it. Every view constructor above either tolerates a nil/short buffer
// explicitly or is gated behind a length check, so a missing section behaves
// as "empty," never a panic.
func sectionOrNil(snap *ubx.Snapshot, id ubx.SectionID) []byte {
	buf, ok := snap.Section(id)
	if !ok {
		return nil
	}
	return buf
}

// str resolves a StrRef against the snapshot's string pool, returning "" on
// any error (out-of-bounds refs never happen against a snapshot this engine
// itself validated, but MatchRequest must never panic on a malformed one).
func (st *snapshotState) str(ref ubx.StrRef) string {
	s, err := st.snap.StringAt(ref.Offset, ref.Length)
	if err != nil {
		return ""
	}
	return s
}
