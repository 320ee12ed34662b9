package compiler

// tokenSelector implements the "rarest token" pick: a rule's chosen token is
// whichever of its candidate substrings occurs in the fewest other rules
// across the whole corpus, ties broken by longest candidate then first
// occurrence in the pattern. Grounded on rules/network_rule.go's
// loadShortcut/findShortcut ("longest literal"), generalized from longest to
// corpus-rarest.
type tokenSelector struct {
	freq map[string]int
}

// newTokenSelector creates an empty selector.
func newTokenSelector() *tokenSelector {
	return &tokenSelector{freq: map[string]int{}}
}

// observe records one rule's candidate set (pass 1). Each distinct candidate
// is counted at most once per rule, so freq reflects "number of rules
// containing this token," not total occurrences.
func (s *tokenSelector) observe(candidates []string) {
	if len(candidates) == 0 {
		return
	}

	seen := make(map[string]bool, len(candidates))
	for _, t := range candidates {
		if seen[t] {
			continue
		}
		seen[t] = true
		s.freq[t]++
	}
}

// choose picks the rarest candidate (pass 2).
func (s *tokenSelector) choose(candidates []string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}

	best := candidates[0]
	bestFreq := s.freq[best]

	for _, t := range candidates[1:] {
		f := s.freq[t]
		if f < bestFreq || (f == bestFreq && len(t) > len(best)) {
			best = t
			bestFreq = f
		}
	}

	return best, true
}
