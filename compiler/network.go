package compiler

import (
	"strings"

	"github.com/AdguardTeam/ubxfilter/internal/fasthash"
	"github.com/AdguardTeam/ubxfilter/rules"
	"github.com/AdguardTeam/ubxfilter/ubx"
)

// toUBXTypeMask translates a rules.RequestType bitset into the snapshot
// format's RequestTypeMask. The two enums use different bit positions, so
// this is an explicit per-bit table, not a numeric cast.
func toUBXTypeMask(t rules.RequestType) ubx.RequestTypeMask {
	var m ubx.RequestTypeMask

	add := func(present bool, bit ubx.RequestTypeMask) {
		if present {
			m |= bit
		}
	}

	add(t&rules.TypeDocument != 0, ubx.TypeMainFrame)
	add(t&rules.TypeSubdocument != 0, ubx.TypeSubFrame)
	add(t&rules.TypeScript != 0, ubx.TypeScript)
	add(t&rules.TypeStylesheet != 0, ubx.TypeStylesheet)
	add(t&rules.TypeObject != 0, ubx.TypeObject)
	add(t&rules.TypeImage != 0, ubx.TypeImage)
	add(t&rules.TypeXmlhttprequest != 0, ubx.TypeXHR)
	add(t&rules.TypeMedia != 0, ubx.TypeMedia)
	add(t&rules.TypeFont != 0, ubx.TypeFont)
	add(t&rules.TypeWebsocket != 0, ubx.TypeWebsocket)
	add(t&rules.TypePing != 0, ubx.TypePing)
	add(t&rules.TypeOther != 0, ubx.TypeOther)

	return m
}

// convertTypeMask normalizes a rule's permitted/restricted type bitsets down
// to the single mask a RuleRecord carries: permitted wins when present,
// narrowed by any overlapping restriction; a rule with neither normalizes to
// 0 ("unrestricted"), and so does one whose effective mask is every type.
func convertTypeMask(nr *rules.NetworkRule) ubx.RequestTypeMask {
	permitted := toUBXTypeMask(nr.PermittedRequestTypes())
	restricted := toUBXTypeMask(nr.RestrictedRequestTypes())

	var mask ubx.RequestTypeMask
	switch {
	case permitted != 0:
		mask = permitted &^ restricted
	case restricted != 0:
		mask = ubx.TypeAll &^ restricted
	default:
		mask = 0
	}

	if mask == ubx.TypeAll {
		mask = 0
	}

	return mask
}

// partyMask translates the $third-party / $~third-party state into
// PartyMask; a rule that mentions neither applies to both.
func partyMask(nr *rules.NetworkRule) ubx.PartyMask {
	switch {
	case nr.IsOptionEnabled(rules.OptionThirdParty):
		return ubx.PartyThird
	case nr.IsOptionDisabled(rules.OptionThirdParty):
		return ubx.PartyFirst
	default:
		return ubx.PartyAll
	}
}

// schemeMaskFromPattern reads a leading scheme literal off the pattern text
// (e.g. "|https://", "ws://"); ABP/uBO has no dedicated scheme modifier, so
// this is the only signal available short of full regex evaluation.
func schemeMaskFromPattern(pattern string) ubx.SchemeMask {
	p := strings.ToLower(strings.TrimPrefix(pattern, "|"))

	switch {
	case strings.HasPrefix(p, "https://"):
		return ubx.SchemeHTTPS
	case strings.HasPrefix(p, "http://"):
		return ubx.SchemeHTTP
	case strings.HasPrefix(p, "wss://"):
		return ubx.SchemeWSS
	case strings.HasPrefix(p, "ws://"):
		return ubx.SchemeWS
	case strings.HasPrefix(p, "ftp://"):
		return ubx.SchemeFTP
	case strings.HasPrefix(p, "data:"):
		return ubx.SchemeData
	default:
		return ubx.SchemeAll
	}
}

// computePriority scores a rule for the precedence ladder's tie-break. The
// components mirror NetworkRule.IsHigherPriority's ordering (whitelist+
// important > important > whitelist > specificity) folded into a single
// comparable number instead of a pairwise comparator, since a RuleRecord has
// no reference to any other rule at match time.
func computePriority(nr *rules.NetworkRule) int16 {
	p := 0

	if nr.Whitelist {
		p += 10_000
	}
	if nr.IsOptionEnabled(rules.OptionImportant) {
		p += 20_000
	}
	if nr.RedirectOption() != "" || nr.RedirectRuleOption() != "" {
		p += 50
	}

	specificity := nr.PermittedRequestTypes().Count() + nr.RestrictedRequestTypes().Count()
	if len(nr.RestrictedDomains()) > 0 {
		specificity += 5
	}
	if !nr.IsGeneric() {
		specificity += 10
	}

	p += specificity

	if p > 32767 {
		p = 32767
	}

	return int16(p)
}

// domainHashes converts a list of domain strings (from $domain= or cosmetic
// rule scoping) into Hash64 keys. Wildcard-TLD entries ("google.*") can't be
// expressed as a single exact hash; they're skipped here and handled, if at
// all, by the plain suffix-walk matching the hashed labels actually present
// (a documented simplification versus NetworkRule's own runtime
// isDomainOrSubdomainOfAny).
func domainHashes(domains []string) []ubx.Hash64 {
	var out []ubx.Hash64
	for _, d := range domains {
		if strings.HasSuffix(d, ".*") {
			continue
		}
		out = append(out, fasthash.HashDomain(d))
	}
	return out
}

// buildDomainConstraint appends a $domain= constraint record to pool and
// returns its offset, or ubx.NoConstraint if the rule has none.
func buildDomainConstraint(pool *[]byte, nr *rules.NetworkRule) uint32 {
	include := domainHashes(nr.GetPermittedDomains())
	exclude := domainHashes(nr.RestrictedDomains())

	if len(include) == 0 && len(exclude) == 0 {
		return ubx.NoConstraint
	}

	offset, out := ubx.PutDomainConstraint(*pool, include, exclude)
	*pool = out

	return offset
}

// ruleFlags collects the RuleFlags bitset from a rule's parsed state.
func ruleFlags(nr *rules.NetworkRule, cp compiledPattern) ubx.RuleFlags {
	var f ubx.RuleFlags

	if nr.IsOptionEnabled(rules.OptionImportant) {
		f |= ubx.FlagImportant
	}
	if nr.IsRegexRule() {
		f |= ubx.FlagIsRegex
	}
	if cp.caseSensitive {
		f |= ubx.FlagMatchCase
	}

	switch cp.anchor {
	case ubx.AnchorHostname:
		f |= ubx.FlagHasHostnameAnchor
	case ubx.AnchorLeft:
		f |= ubx.FlagHasLeftAnchor
	}

	for _, op := range cp.ops {
		if op.code == ubx.OpAssertEnd {
			f |= ubx.FlagHasRightAnchor
		}
	}

	if nr.Whitelist {
		if _, ok := nr.RemoveparamOption(); ok {
			// A whitelist "$@@removeparam" rule marks an exception rather
			// than its own stripping directive; ActionRemoveparam doesn't
			// distinguish the two, so the precedence resolver checks this
			// flag instead.
			f |= ubx.FlagRemoveparamException
		}
		if nr.IsOptionEnabled(rules.OptionElemhide) {
			f |= ubx.FlagElemhide
		}
		if nr.IsOptionEnabled(rules.OptionGenerichide) {
			f |= ubx.FlagGenerichide
		}
		if _, ok := nr.CSPOption(); ok {
			// Both empty-content ("disable everything") and specific-content
			// ("disable one directive") whitelist $csp rules set this flag;
			// CSP_SPECS.Value's emptiness is what distinguishes the two at
			// match time.
			f |= ubx.FlagCSPException
		}
		if nr.RedirectRuleOption() == "" && strings.Contains(nr.Text(), "redirect-rule") {
			// A whitelist "$redirect-rule" with no value is a pure
			// exception: skip redirect resolution, keep whatever static
			// BLOCK outcome applies.
			f |= ubx.FlagRedirectRuleException
		}
	}

	return f
}
