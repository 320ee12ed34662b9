package compiler

import (
	"github.com/AdguardTeam/ubxfilter/filterutil"
	"github.com/AdguardTeam/ubxfilter/rules"
)

// foldBadfilters applies $badfilter canonical-key folding: every rule
// carrying $badfilter cancels every other rule in the corpus whose
// action/pattern/options-minus-badfilter/domain-set match, per
// NetworkRule.NegatesBadfilter. Exact duplicate rules (identical rule text)
// are also deduped here, since both passes need the same full-corpus
// comparison. Duplicates are bucketed by filterutil.FastHash first, so a
// large list's dedup pass compares full rule text only among rules that
// already share a hash.
func foldBadfilters(in []*rules.NetworkRule) (survivors []*rules.NetworkRule, badfilterRules, badfilteredRules, deduped int) {
	var badfilters []*rules.NetworkRule
	var candidates []*rules.NetworkRule

	for _, r := range in {
		if r.IsOptionEnabled(rules.OptionBadfilter) {
			badfilters = append(badfilters, r)
			continue
		}

		candidates = append(candidates, r)
	}

	badfilterRules = len(badfilters)

	negated := make([]bool, len(candidates))
	for _, bf := range badfilters {
		for i, r := range candidates {
			if negated[i] {
				continue
			}
			if bf.NegatesBadfilter(r) {
				negated[i] = true
				badfilteredRules++
			}
		}
	}

	seen := make(map[uint32][]string, len(candidates))
	for i, r := range candidates {
		if negated[i] {
			continue
		}

		h := filterutil.FastHash(r.RuleText)
		bucket := seen[h]
		dup := false
		for _, t := range bucket {
			if t == r.RuleText {
				dup = true
				break
			}
		}
		if dup {
			deduped++
			continue
		}
		seen[h] = append(bucket, r.RuleText)

		survivors = append(survivors, r)
	}

	return survivors, badfilterRules, badfilteredRules, deduped
}
