package match

import (
	"regexp"
	"strings"

	"github.com/AdguardTeam/ubxfilter/ubx"
)

// removeparamPlan is the resolved set of $removeparam directives applicable
// to one request: either strip every query parameter, or strip only the
// named/regex-matched ones, minus whatever a $@@removeparam exception
// exempted.
type removeparamPlan struct {
	stripAll     bool
	names        map[string]struct{}
	regexes      []*regexp.Regexp
	exceptNames  map[string]struct{}
	hasDirective bool
}

// resolveRemoveparamPlan scans candidates for ActionRemoveparam records,
// separating stripping directives from $@@removeparam exceptions (carried
// via FlagRemoveparamException, since ActionRemoveparam itself doesn't
// distinguish them, see compiler/network.go's ruleFlags).
func (st *snapshotState) resolveRemoveparamPlan(candidates []uint32) removeparamPlan {
	plan := removeparamPlan{names: map[string]struct{}{}, exceptNames: map[string]struct{}{}}

	for _, id := range candidates {
		rec := st.rules.Get(int(id))
		if rec.Action != ubx.ActionRemoveparam {
			continue
		}
		if int(rec.OptionID) >= st.removeparamSpecs.Len() {
			continue
		}
		spec := st.removeparamSpecs.Get(int(rec.OptionID))
		name := st.str(spec.Name)

		if rec.Flags.Has(ubx.FlagRemoveparamException) {
			if name == "" {
				// A bare "$@@removeparam" exempts everything.
				return removeparamPlan{}
			}
			plan.exceptNames[name] = struct{}{}
			continue
		}

		plan.hasDirective = true
		switch {
		case name == "":
			plan.stripAll = true
		case spec.Flags&ubx.SpecFlagIsRegex != 0:
			if re, err := regexp.Compile(strings.Trim(name, "/")); err == nil {
				plan.regexes = append(plan.regexes, re)
			}
		default:
			plan.names[name] = struct{}{}
		}
	}

	return plan
}

func (plan removeparamPlan) strips(key string) bool {
	if !plan.hasDirective {
		return false
	}
	if _, exempt := plan.exceptNames[key]; exempt {
		return false
	}
	if plan.stripAll {
		return true
	}
	if _, ok := plan.names[key]; ok {
		return true
	}
	for _, re := range plan.regexes {
		if re.MatchString(key) {
			return true
		}
	}
	return false
}

// sanitize applies plan to rawURL's query string, returning the modified URL
// and whether anything actually changed. The path, scheme, host, and
// fragment are passed through untouched.
func (plan removeparamPlan) sanitize(rawURL string) (string, bool) {
	if !plan.hasDirective {
		return rawURL, false
	}

	qIdx := strings.IndexByte(rawURL, '?')
	if qIdx < 0 {
		return rawURL, false
	}

	fragIdx := strings.IndexByte(rawURL[qIdx:], '#')
	query := rawURL[qIdx+1:]
	fragment := ""
	if fragIdx >= 0 {
		query = rawURL[qIdx+1 : qIdx+fragIdx]
		fragment = rawURL[qIdx+fragIdx:]
	}

	if query == "" {
		return rawURL, false
	}

	parts := strings.Split(query, "&")
	kept := parts[:0:0]
	changed := false
	for _, p := range parts {
		key := p
		if eq := strings.IndexByte(p, '='); eq >= 0 {
			key = p[:eq]
		}
		if plan.strips(key) {
			changed = true
			continue
		}
		kept = append(kept, p)
	}

	if !changed {
		return rawURL, false
	}

	base := rawURL[:qIdx]
	if len(kept) == 0 {
		return base + fragment, true
	}

	return base + "?" + strings.Join(kept, "&") + fragment, true
}
