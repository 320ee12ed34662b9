package match

import "github.com/AdguardTeam/ubxfilter/ubx"

// resolveRedirect picks the packaged-resource path to substitute for a
// request whose static outcome is already Block. The winning block record
// itself may already be a $redirect= directive (it competed for and won the
// block ladder directly, see precedence.go); otherwise the highest-priority
// $redirect-rule= candidate applies, unless a higher-or-equal-priority
// redirect-rule exception is present, in which case the block stands but
// without a redirect substitution.
func (st *snapshotState) resolveRedirect(candidates []uint32, outcome networkOutcome) (resourcePath string, ok bool) {
	if outcome.record.Action == ubx.ActionRedirectDirective {
		return st.redirectPath(outcome.record.OptionID)
	}

	var redirectRule, exception best
	for _, id := range candidates {
		rec := st.rules.Get(int(id))

		switch {
		case rec.Action == ubx.ActionRedirectDirective && !rec.Flags.Has(ubx.FlagFromRedirect):
			redirectRule.consider(id, rec)
		case rec.Action == ubx.ActionAllow && rec.Flags.Has(ubx.FlagRedirectRuleException):
			exception.consider(id, rec)
		}
	}

	if !redirectRule.present {
		return "", false
	}
	if exception.present && exception.record.Priority >= redirectRule.record.Priority {
		return "", false
	}

	return st.redirectPath(redirectRule.record.OptionID)
}

// redirectPath resolves an OptionID into REDIRECT_RESOURCES to its packaged
// path. ok is false for an out-of-range index, which falls back to a plain
// cancel.
func (st *snapshotState) redirectPath(idx uint32) (string, bool) {
	if int(idx) >= st.redirectResources.Len() {
		return "", false
	}
	e := st.redirectResources.Get(int(idx))
	return st.str(e.Path), true
}
