package rules

// This file exposes the accessors the compiler package needs to translate a
// parsed NetworkRule into a UBX rule record and pattern program. NetworkRule
// itself still owns ABP/uBO text parsing (loadOptions, loadDomains, the
// shortcut/anchor detection below); the compiler owns everything downstream
// of "here is a parsed rule" (bytecode compilation, token selection, index
// building, see compiler/network.go).

// Pattern returns the rule's basic pattern (options and leading "@@"
// already stripped), ready for the compiler's anchor/opcode dispatch.
func (f *NetworkRule) Pattern() string {
	return f.pattern
}

// EnabledOptions returns the full set of enabled NetworkRuleOption bits.
func (f *NetworkRule) EnabledOptions() NetworkRuleOption {
	return f.enabledOptions
}

// DisabledOptions returns the full set of disabled (negated, "~opt") bits.
func (f *NetworkRule) DisabledOptions() NetworkRuleOption {
	return f.disabledOptions
}

// PermittedRequestTypes returns the permitted-type mask (0 means "all").
func (f *NetworkRule) PermittedRequestTypes() RequestType {
	return f.permittedRequestTypes
}

// RestrictedRequestTypes returns the restricted-type mask.
func (f *NetworkRule) RestrictedRequestTypes() RequestType {
	return f.restrictedRequestTypes
}

// RestrictedDomains returns the $domain=~x entries.
func (f *NetworkRule) RestrictedDomains() []string {
	return f.restrictedDomains
}

// NegatesBadfilter reports whether the receiver, which must itself carry the
// $badfilter option, cancels out r. The canonical-key comparison is
// expressed pairwise rather than via a precomputed key, since NetworkRule
// already carries every field the comparison needs.
func (f *NetworkRule) NegatesBadfilter(r *NetworkRule) bool {
	return f.negatesBadfilter(r)
}

// RedirectOption returns the raw value passed to $redirect=, or "" if the
// rule doesn't carry that option. $redirect and $redirect-rule are tracked
// as two distinct option values per SPEC_FULL.md (unlike the option bitset
// above, the token string itself doesn't fit in NetworkRuleOption).
func (f *NetworkRule) RedirectOption() string {
	return f.redirectOption
}

// RedirectRuleOption returns the raw value passed to $redirect-rule=.
func (f *NetworkRule) RedirectRuleOption() string {
	return f.redirectRuleOption
}

// RemoveparamOption returns the raw value passed to $removeparam= (may be
// empty, meaning "strip every query parameter").
func (f *NetworkRule) RemoveparamOption() (value string, ok bool) {
	return f.removeparamOption, f.hasRemoveparam
}

// CSPOption returns the raw value passed to $csp=.
func (f *NetworkRule) CSPOption() (value string, ok bool) {
	return f.cspOption, f.cspOption != "" || f.IsOptionEnabled(OptionCsp)
}

// HeaderOption returns the raw value passed to $header=, formatted
// "name[=value-or-/regex/]", or "" if the rule doesn't carry that option.
func (f *NetworkRule) HeaderOption() (value string, ok bool) {
	return f.headerOption, f.headerOption != ""
}

// ResponseheaderOption returns the response header name passed to
// $responseheader=.
func (f *NetworkRule) ResponseheaderOption() (value string, ok bool) {
	return f.responseheaderOption, f.responseheaderOption != ""
}

// PermittedDomains returns the rule's permitted domain scope (the left side
// of "domain.com##selector"), letting the compiler build per-domain records
// without reaching into CosmeticRule's unexported fields.
func (f *CosmeticRule) PermittedDomains() []string {
	return f.permittedDomains
}

// RestrictedDomainsCosmetic returns the rule's restricted ("~domain.com")
// domain scope.
func (f *CosmeticRule) RestrictedDomainsCosmetic() []string {
	return f.restrictedDomains
}
