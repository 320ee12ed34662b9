package compiler

import (
	"strings"

	"golang.org/x/exp/slices"

	"github.com/AdguardTeam/ubxfilter/internal/fasthash"
	"github.com/AdguardTeam/ubxfilter/rules"
	"github.com/AdguardTeam/ubxfilter/ubx"
)

// pendingToken is a network rule whose final token bucket can't be decided
// until every rule in the corpus has been observed (two-pass rarest-token
// selection).
type pendingToken struct {
	ruleID     uint32
	candidates []string
}

// builder assembles one UBX snapshot from a stream of parsed rules. It
// stages index assignment until emit() so that rarest-token selection sees
// the whole corpus before any rule is bucketed.
type builder struct {
	cfg Config

	strpool  *ubx.StrPoolBuilder
	patterns *ubx.PatternPoolBuilder
	psl      *pslBuilder
	redirect *redirectCatalog

	rules                []ubx.RuleRecord
	domainConstraintPool []byte

	domainBuckets map[ubx.Hash64][]uint32
	tokenBuckets  map[uint32][]uint32

	tokenSel *tokenSelector
	pending  []pendingToken

	removeparamSpecs    []ubx.NameValueSpec
	removeparamIndex    map[string]uint32
	cspSpecs            []ubx.NameValueSpec
	cspIndex            map[string]uint32
	headerSpecs         []ubx.NameValueSpec
	headerIndex         map[string]uint32
	responseheaderRules []ubx.ResponseHeaderRule

	cosmetic   []ubx.CosmeticRecord
	procedural []ubx.ProceduralRecord
	scriptlet  []ubx.ScriptletRecord
}

func newBuilder(cfg Config) *builder {
	strpool := ubx.NewStrPoolBuilder()

	return &builder{
		cfg:              cfg,
		strpool:          strpool,
		patterns:         ubx.NewPatternPoolBuilder(),
		psl:              newPSLBuilder(),
		redirect:         newRedirectCatalog(strpool),
		domainBuckets:    map[ubx.Hash64][]uint32{},
		tokenBuckets:     map[uint32][]uint32{},
		tokenSel:         newTokenSelector(),
		removeparamIndex: map[string]uint32{},
		cspIndex:         map[string]uint32{},
		headerIndex:      map[string]uint32{},
	}
}

func (b *builder) ruleCount() int {
	return len(b.rules)
}

// addNetworkRule compiles nr's pattern, resolves its action-specific option
// (redirect/removeparam/csp/header/responseheader), appends its RuleRecord,
// and routes it into the domain-set path (hostname-anchor-only patterns),
// the rarest-token pipeline (deferred to emit), or the fallback bucket
// (patterns with no viable token candidate).
func (b *builder) addNetworkRule(nr *rules.NetworkRule) {
	matchCase := nr.IsOptionEnabled(rules.OptionMatchCase)

	var cp compiledPattern
	if nr.IsRegexRule() {
		cp = compileRegexPattern(nr.Pattern(), matchCase)
	} else {
		cp = compileBasicPattern(nr.Pattern(), matchCase)
	}

	action, optionID := b.resolveAction(nr)

	ruleID := uint32(len(b.rules))

	b.rules = append(b.rules, ubx.RuleRecord{
		Action:                 action,
		Flags:                  ruleFlags(nr, cp),
		TypeMask:               convertTypeMask(nr),
		PartyMask:              partyMask(nr),
		SchemeMask:             schemeMaskFromPattern(nr.Pattern()),
		PatternID:              ubx.NoPattern,
		DomainConstraintOffset: buildDomainConstraint(&b.domainConstraintPool, nr),
		OptionID:               optionID,
		Priority:               computePriority(nr),
		ListID:                 uint16(nr.GetFilterListID()),
	})

	if action == ubx.ActionResponseHeaderRemove {
		if name, ok := nr.ResponseheaderOption(); ok {
			b.responseheaderRules = append(b.responseheaderRules, ubx.ResponseHeaderRule{
				RuleID:     ruleID,
				HeaderName: b.strpool.Intern(name),
			})
		}
	}

	if action == ubx.ActionRedirectDirective && nr.RedirectOption() != "" {
		// $redirect= forces its own block+redirect outcome whenever this
		// rule wins precedence; $redirect-rule= (FlagFromRedirect unset)
		// only resolves when some other rule independently produced a
		// static BLOCK.
		b.rules[ruleID].Flags |= ubx.FlagFromRedirect
	}

	for _, d := range nr.GetPermittedDomains() {
		b.psl.observeHost(d)
	}
	for _, d := range nr.RestrictedDomains() {
		b.psl.observeHost(d)
	}

	if cp.hostnameOnly != "" {
		b.rules[ruleID].PatternID = ubx.NoPattern
		b.psl.observeHost(cp.hostnameOnly)
		hash := fasthash.HashDomain(cp.hostnameOnly)
		b.domainBuckets[hash] = append(b.domainBuckets[hash], ruleID)
		return
	}

	b.rules[ruleID].PatternID = b.patterns.Add(internOps(b.strpool, cp.ops), cp.anchor, cp.caseSensitive, cp.hostHash)

	if len(cp.candidates) == 0 {
		b.tokenBuckets[ubx.FallbackTokenHash] = append(b.tokenBuckets[ubx.FallbackTokenHash], ruleID)
		return
	}

	b.tokenSel.observe(cp.candidates)
	b.pending = append(b.pending, pendingToken{ruleID: ruleID, candidates: cp.candidates})
}

// internOps converts compiler-local patOp literals into pool-backed ubx.Op
// values, interning each literal exactly once.
func internOps(strpool *ubx.StrPoolBuilder, ops []patOp) []ubx.Op {
	out := make([]ubx.Op, len(ops))
	for i, op := range ops {
		o := ubx.Op{Code: op.code}
		if op.code == ubx.OpFindLit {
			o.Literal = strpool.Intern(op.literal)
		}
		out[i] = o
	}
	return out
}

// resolveAction picks nr's RuleRecord.Action and the OptionID pointing into
// whichever action-specific spec table applies, in the precedence order
// redirect > removeparam > csp > header > responseheader > plain
// allow/block. A rule carries at most one of these in practice; the order
// only matters for the pathological case of a rule specifying more than
// one.
func (b *builder) resolveAction(nr *rules.NetworkRule) (ubx.RuleAction, uint32) {
	if token := redirectToken(nr); token != "" {
		if idx, ok := b.redirect.resolve(token); ok {
			return ubx.ActionRedirectDirective, idx
		}
		// Resource unknown at compile time: an unresolved redirect falls
		// back to cancel (i.e. treat the rule as a plain block/allow) at
		// match time when the static outcome would have applied redirect;
		// here, since no match-time fallback machinery exists for an action
		// that was never recorded, fall through to plain allow/block
		// directly.
	}

	if value, ok := nr.RemoveparamOption(); ok {
		return ubx.ActionRemoveparam, b.registerRemoveparamSpec(value)
	}

	if value, ok := nr.CSPOption(); ok {
		return ubx.ActionCSPInject, b.registerCSPSpec(value, nr.Whitelist)
	}

	if value, ok := nr.HeaderOption(); ok {
		action := ubx.ActionHeaderMatchBlock
		if nr.Whitelist {
			action = ubx.ActionHeaderMatchAllow
		}
		return action, b.registerHeaderSpec(value)
	}

	if _, ok := nr.ResponseheaderOption(); ok {
		return ubx.ActionResponseHeaderRemove, 0
	}

	if nr.Whitelist {
		return ubx.ActionAllow, 0
	}
	return ubx.ActionBlock, 0
}

// redirectToken returns the $redirect=/$redirect-rule= value, if any. A
// whitelist $redirect-rule with no value is a pure exception (handled via
// FlagRedirectRuleException, see ruleFlags) and never resolves to a
// directive of its own.
func redirectToken(nr *rules.NetworkRule) string {
	if v := nr.RedirectOption(); v != "" {
		return v
	}
	if v := nr.RedirectRuleOption(); v != "" {
		return v
	}
	return ""
}

func (b *builder) registerRemoveparamSpec(value string) uint32 {
	if idx, ok := b.removeparamIndex[value]; ok {
		return idx
	}

	flags := uint8(0)
	if strings.HasPrefix(value, "/") && strings.HasSuffix(value, "/") && len(value) > 1 {
		flags |= ubx.SpecFlagIsRegex
	}

	idx := uint32(len(b.removeparamSpecs))
	b.removeparamSpecs = append(b.removeparamSpecs, ubx.NameValueSpec{
		Name:  b.strpool.Intern(value),
		Flags: flags,
	})
	b.removeparamIndex[value] = idx

	return idx
}

func (b *builder) registerCSPSpec(value string, exception bool) uint32 {
	key := value
	if exception {
		key = "!" + value
	}
	if idx, ok := b.cspIndex[key]; ok {
		return idx
	}

	flags := uint8(0)
	if exception {
		flags |= ubx.SpecFlagIsException
	}

	idx := uint32(len(b.cspSpecs))
	b.cspSpecs = append(b.cspSpecs, ubx.NameValueSpec{
		Value: b.strpool.Intern(value),
		Flags: flags,
	})
	b.cspIndex[key] = idx

	return idx
}

func (b *builder) registerHeaderSpec(value string) uint32 {
	if idx, ok := b.headerIndex[value]; ok {
		return idx
	}

	name, val, _ := strings.Cut(value, "=")

	flags := uint8(0)
	if strings.HasPrefix(val, "/") && strings.HasSuffix(val, "/") && len(val) > 1 {
		flags |= ubx.SpecFlagIsRegex
	}

	idx := uint32(len(b.headerSpecs))
	b.headerSpecs = append(b.headerSpecs, ubx.NameValueSpec{
		Name:  b.strpool.Intern(name),
		Value: b.strpool.Intern(val),
		Flags: flags,
	})
	b.headerIndex[value] = idx

	return idx
}

// emit resolves the deferred rarest-token bucketing (pass 2), assembles
// every section, and writes the snapshot.
func (b *builder) emit() ([]byte, error) {
	for _, p := range b.pending {
		token, ok := b.tokenSel.choose(p.candidates)
		if !ok {
			b.tokenBuckets[ubx.FallbackTokenHash] = append(b.tokenBuckets[ubx.FallbackTokenHash], p.ruleID)
			continue
		}

		hash := fasthash.TokenHash(token)
		b.tokenBuckets[hash] = append(b.tokenBuckets[hash], p.ruleID)
	}

	postings := make([]byte, 0, 4096)

	domainKeys := make([]ubx.Hash64, 0, len(b.domainBuckets))
	for k := range b.domainBuckets {
		domainKeys = append(domainKeys, k)
	}
	slices.SortFunc(domainKeys, func(a, c ubx.Hash64) bool {
		if a.Hi != c.Hi {
			return a.Hi < c.Hi
		}
		return a.Lo < c.Lo
	})

	domainPostings := make([]ubx.DomainPosting, 0, len(domainKeys))
	for _, k := range domainKeys {
		ids := b.domainBuckets[k]
		offset := uint32(len(postings))
		postings = ubx.EncodePostings(postings, ids)
		domainPostings = append(domainPostings, ubx.DomainPosting{
			Hash:           k,
			PostingsOffset: offset,
			RuleCount:      uint32(len(ids)),
		})
	}

	tokenKeys := make([]uint32, 0, len(b.tokenBuckets))
	for k := range b.tokenBuckets {
		tokenKeys = append(tokenKeys, k)
	}
	slices.SortFunc(tokenKeys, func(a, c uint32) bool { return a < c })

	tokenPostings := make([]ubx.TokenPosting, 0, len(tokenKeys))
	for _, k := range tokenKeys {
		ids := b.tokenBuckets[k]
		offset := uint32(len(postings))
		postings = ubx.EncodePostings(postings, ids)
		tokenPostings = append(tokenPostings, ubx.TokenPosting{
			TokenHash:      k,
			PostingsOffset: offset,
			RuleCount:      uint32(len(ids)),
		})
	}

	w := ubx.NewWriter(1, b.cfg.WithCRC32)

	// STRPOOL and PATTERN_POOL are the two sections most likely to carry long
	// runs of repeated text (CSS selectors, redirect tokens, URL literals)
	// and are worth the zstd encode pass; the writer falls back to plain
	// storage on its own if compression doesn't actually shrink the section.
	if err := w.AddCompressedSection(ubx.SectionStrPool, b.strpool.Bytes()); err != nil {
		return nil, err
	}
	w.AddSection(ubx.SectionPSLSets, b.psl.build())
	w.AddSection(ubx.SectionDomainSets, ubx.BuildDomainPostingMap(domainPostings))
	w.AddSection(ubx.SectionTokenDict, ubx.BuildTokenDict(tokenPostings))
	w.AddSection(ubx.SectionTokenPostings, postings)
	if err := w.AddCompressedSection(ubx.SectionPatternPool, b.patterns.Bytes()); err != nil {
		return nil, err
	}
	w.AddSection(ubx.SectionRules, ubx.BuildRules(b.rules))
	w.AddSection(ubx.SectionDomainConstraintPool, b.domainConstraintPool)
	w.AddSection(ubx.SectionRedirectResources, b.redirect.build())
	w.AddSection(ubx.SectionRemoveparamSpecs, ubx.BuildNameValueSpecs(b.removeparamSpecs))
	w.AddSection(ubx.SectionCSPSpecs, ubx.BuildNameValueSpecs(b.cspSpecs))
	w.AddSection(ubx.SectionHeaderSpecs, ubx.BuildNameValueSpecs(b.headerSpecs))
	w.AddSection(ubx.SectionResponseHeaderRules, ubx.BuildResponseHeaderRules(b.responseheaderRules))
	w.AddSection(ubx.SectionCosmeticRules, ubx.BuildCosmeticRecords(b.cosmetic))
	w.AddSection(ubx.SectionProceduralRules, ubx.BuildProceduralRecords(b.procedural))
	w.AddSection(ubx.SectionScriptletRules, ubx.BuildScriptletRecords(b.scriptlet))

	return w.Write()
}
