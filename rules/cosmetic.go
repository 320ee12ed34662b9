package rules

import (
	"fmt"
	"sort"
	"strings"
)

// cosmeticRulesMarkers lists every recognized cosmetic rule marker. Order
// matters only until init() sorts it by descending length, so that
// findRuleMarker never matches a short marker ("#@#") before a longer one
// that starts with the same bytes ("#@$#").
var cosmeticRulesMarkers = []string{
	// HTML filtering
	"$$", "$@$",
	// Script rules
	"#%#", "#@%#",
	// Element hiding rules
	"##", "#@#",
	// CSS injection
	"#$#", "#@$#",
	// ExtCSS hiding rules
	"#?#", "#@?#",
	// ExtCSS injection rules
	"#$?#", "#@$?#",
}

func init() {
	sort.Sort(sort.Reverse(byLength(cosmeticRulesMarkers)))
}

// isCosmetic checks if this is a cosmetic filtering rule.
func isCosmetic(line string) bool {
	return findRuleMarker(line, cosmeticRulesMarkers, '#') != "" ||
		findRuleMarker(line, cosmeticRulesMarkers, '$') != ""
}

// findRuleMarker looks for a cosmetic rule marker in the rule text and
// returns the marker found or an empty string if nothing found. markers must
// be sorted by length descending.
func findRuleMarker(ruleText string, markers []string, firstMarkerChar byte) string {
	startIndex := strings.IndexByte(ruleText, firstMarkerChar)
	if startIndex == -1 {
		return ""
	}

	for _, marker := range markers {
		if startsAtIndexWith(ruleText, startIndex, marker) {
			return marker
		}
	}

	return ""
}

// startsAtIndexWith checks if str starts with substr at the specified index.
func startsAtIndexWith(str string, startIndex int, substr string) bool {
	if len(str)-startIndex < len(substr) {
		return false
	}

	for i := 0; i < len(substr); i++ {
		if str[startIndex+i] != substr[i] {
			return false
		}
	}

	return true
}

// CosmeticRuleType is the kind of cosmetic/procedural rule recorded in the
// COSMETIC_RULES section.
type CosmeticRuleType int

const (
	// CosmeticElementHiding is a plain "##selector" / "#@#selector" rule.
	CosmeticElementHiding CosmeticRuleType = iota
	// CosmeticCSS is a CSS injection rule ("#$#"/"#@$#").
	CosmeticCSS
	// CosmeticJS is a scriptlet/JS injection rule ("#%#"/"#@%#").
	CosmeticJS
	// CosmeticHTML is an HTML filtering rule ("$$"/"$@$").
	CosmeticHTML
)

// markerInfo binds a marker string to the rule type and polarity it selects.
type markerInfo struct {
	ruleType    CosmeticRuleType
	whitelist   bool
	extendedCSS bool
}

var markerTypes = map[string]markerInfo{
	"##":    {CosmeticElementHiding, false, false},
	"#@#":   {CosmeticElementHiding, true, false},
	"#?#":   {CosmeticElementHiding, false, true},
	"#@?#":  {CosmeticElementHiding, true, true},
	"#$#":   {CosmeticCSS, false, false},
	"#@$#":  {CosmeticCSS, true, false},
	"#$?#":  {CosmeticCSS, false, true},
	"#@$?#": {CosmeticCSS, true, true},
	"#%#":   {CosmeticJS, false, false},
	"#@%#":  {CosmeticJS, true, false},
	"$$":    {CosmeticHTML, false, false},
	"$@$":   {CosmeticHTML, true, false},
}

// CosmeticRule is a parsed cosmetic/procedural filtering rule: an
// element-hiding selector, a CSS injection, a scriptlet call, or an HTML
// filter, scoped to an optional set of permitted/restricted domains.
type CosmeticRule struct {
	RuleText     string
	FilterListID int

	Type        CosmeticRuleType
	Whitelist   bool
	ExtendedCSS bool

	// Content is the rule's payload: the selector, CSS body, scriptlet
	// call, or HTML rule text following the marker.
	Content string

	permittedDomains  []string
	restrictedDomains []string
}

// NewCosmeticRule parses ruleText into a CosmeticRule. ruleText must already
// be known to contain a cosmetic marker; see isCosmetic.
func NewCosmeticRule(ruleText string, filterListID int) (*CosmeticRule, error) {
	marker := findRuleMarker(ruleText, cosmeticRulesMarkers, '#')
	if marker == "" {
		marker = findRuleMarker(ruleText, cosmeticRulesMarkers, '$')
	}
	if marker == "" {
		return nil, &RuleSyntaxError{msg: "not a cosmetic rule", ruleText: ruleText}
	}

	markerIndex := strings.Index(ruleText, marker)
	domains := ruleText[:markerIndex]
	content := strings.TrimSpace(ruleText[markerIndex+len(marker):])

	if content == "" {
		return nil, &RuleSyntaxError{msg: "empty cosmetic rule content", ruleText: ruleText}
	}

	info := markerTypes[marker]

	f := &CosmeticRule{
		RuleText:     ruleText,
		FilterListID: filterListID,
		Type:         info.ruleType,
		Whitelist:    info.whitelist,
		ExtendedCSS:  info.extendedCSS,
		Content:      content,
	}

	if domains != "" {
		permitted, restricted, err := loadDomains(domains, ",")
		if err != nil {
			return nil, fmt.Errorf("cosmetic rule domains: %w", err)
		}
		f.permittedDomains = permitted
		f.restrictedDomains = restricted
	}

	if f.Whitelist && len(f.permittedDomains) == 0 && len(f.restrictedDomains) == 0 {
		return nil, &RuleSyntaxError{
			msg:      "whitelist cosmetic rule must specify at least one domain",
			ruleText: ruleText,
		}
	}

	return f, nil
}

// Text returns the original rule text.
func (f *CosmeticRule) Text() string {
	return f.RuleText
}

// GetFilterListID returns the ID of the filter list this rule belongs to.
func (f *CosmeticRule) GetFilterListID() int {
	return f.FilterListID
}

// Match reports whether the rule applies to the given hostname, honoring
// restricted domains (which always take priority over permitted ones) and
// wildcard-TLD domain patterns such as "example.*".
func (f *CosmeticRule) Match(hostname string) bool {
	if len(f.restrictedDomains) > 0 && isDomainOrSubdomainOfAny(hostname, f.restrictedDomains) {
		return false
	}

	if len(f.permittedDomains) == 0 {
		return true
	}

	return isDomainOrSubdomainOfAny(hostname, f.permittedDomains)
}
