package compiler

import (
	"strings"

	"github.com/AdguardTeam/ubxfilter/internal/fasthash"
	"github.com/AdguardTeam/ubxfilter/rules"
	"github.com/AdguardTeam/ubxfilter/ubx"
)

// proceduralMarkers are the uBO/ExtCSS procedural-operator tokens that route
// an otherwise plain-looking "##selector" rule into PROCEDURAL_RULES instead
// of COSMETIC_RULES.
var proceduralMarkers = []string{
	":has(", ":has-text(", ":matches-css(", ":matches-css-before(",
	":matches-css-after(", ":xpath(", ":nth-ancestor(", ":upward(",
	":remove(", ":matches-attr(", ":matches-property(", ":if(", ":if-not(",
}

func isProceduralSelector(content string) bool {
	for _, m := range proceduralMarkers {
		if strings.Contains(content, m) {
			return true
		}
	}
	return false
}

// addCosmeticRule routes a parsed cosmetic rule into COSMETIC_RULES,
// PROCEDURAL_RULES, or SCRIPTLET_RULES depending on its type and content,
// emitting one record per scoping domain (or a single generic record when
// the rule carries none). Domain-restricted-only rules ("~x.com##sel", no
// permitted domain) have no way to express "everywhere except x.com" in
// this per-domain table, so they're folded to a single generic record that
// also applies on the excluded domains.
func (b *builder) addCosmeticRule(cr *rules.CosmeticRule) {
	switch cr.Type {
	case rules.CosmeticJS:
		b.addScriptletRule(cr)
		return
	case rules.CosmeticHTML, rules.CosmeticCSS:
		// HTML filters and CSS injections don't carry a plain CSS selector;
		// PROCEDURAL_RULES' selector field holds a host-interpreted payload
		// instead of COSMETIC_RULES' bare selector string.
		b.addProceduralRule(cr, cr.Content)
		return
	}

	content := cr.Content
	if cr.Type == rules.CosmeticElementHiding && isProceduralSelector(content) {
		b.addProceduralRule(cr, content)
		return
	}

	flags := ubx.CosmeticFlag(0)
	if cr.Whitelist {
		flags |= ubx.CosmeticFlagException
	}

	sel := b.strpool.Intern(content)

	for _, hash := range b.cosmeticDomainHashes(cr) {
		b.cosmetic = append(b.cosmetic, ubx.CosmeticRecord{
			DomainHash: hash,
			Selector:   sel,
			Flags:      flags,
		})
	}
}

func (b *builder) addProceduralRule(cr *rules.CosmeticRule, content string) {
	flags := ubx.CosmeticFlag(0)
	if cr.Whitelist {
		flags |= ubx.CosmeticFlagException
	}

	sel := b.strpool.Intern(content)

	for _, hash := range b.cosmeticDomainHashes(cr) {
		b.procedural = append(b.procedural, ubx.ProceduralRecord{
			DomainHash: hash,
			Selector:   sel,
			Flags:      flags,
		})
	}
}

// addScriptletRule splits a scriptlet call's content into a name and its
// comma-separated arguments: AdGuard's "scriptletname, arg1, arg2" and
// uBO's "scriptletname.js, arg1, arg2" forms both reduce to the same shape.
func (b *builder) addScriptletRule(cr *rules.CosmeticRule) {
	content := strings.TrimSpace(cr.Content)
	content = strings.TrimPrefix(content, "//scriptlet(")
	content = strings.TrimSuffix(content, ")")

	parts := strings.SplitN(content, ",", 2)
	name := unquoteArg(strings.TrimSpace(parts[0]))
	args := ""
	if len(parts) > 1 {
		args = strings.TrimSpace(parts[1])
	}

	flags := ubx.CosmeticFlag(0)
	if cr.Whitelist {
		flags |= ubx.CosmeticFlagException
	}

	nameRef := b.strpool.Intern(name)
	argsRef := b.strpool.Intern(args)

	for _, hash := range b.cosmeticDomainHashes(cr) {
		b.scriptlet = append(b.scriptlet, ubx.ScriptletRecord{
			DomainHash: hash,
			Name:       nameRef,
			Args:       argsRef,
			Flags:      flags,
		})
	}
}

func unquoteArg(s string) string {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// cosmeticDomainHashes returns the Hash64 scoping keys for cr: one per
// permitted domain, or a single zero (generic) hash if cr has none.
func (b *builder) cosmeticDomainHashes(cr *rules.CosmeticRule) []ubx.Hash64 {
	domains := cr.PermittedDomains()
	if len(domains) == 0 {
		return []ubx.Hash64{{}}
	}

	out := make([]ubx.Hash64, 0, len(domains))
	for _, d := range domains {
		b.psl.observeHost(d)
		if strings.HasSuffix(d, ".*") {
			continue
		}
		out = append(out, fasthash.HashDomain(d))
	}

	if len(out) == 0 {
		return []ubx.Hash64{{}}
	}

	return out
}
