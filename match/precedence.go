package match

import "github.com/AdguardTeam/ubxfilter/ubx"

// networkOutcome is the result of resolving the uBO precedence ladder over a
// request's surviving network candidates.
type networkOutcome struct {
	action  ubx.RuleAction
	ruleID  uint32
	record  ubx.RuleRecord
	matched bool
}

// best tracks the winning candidate within one precedence bucket: highest
// Priority, ties broken by the lower rule id.
type best struct {
	ruleID  uint32
	record  ubx.RuleRecord
	present bool
}

func (b *best) consider(ruleID uint32, rec ubx.RuleRecord) {
	if !b.present {
		*b = best{ruleID: ruleID, record: rec, present: true}
		return
	}
	if rec.Priority > b.record.Priority {
		*b = best{ruleID: ruleID, record: rec, present: true}
		return
	}
	if rec.Priority == b.record.Priority && ruleID < b.ruleID {
		*b = best{ruleID: ruleID, record: rec, present: true}
	}
}

// resolveNetworkOutcome applies the precedence ladder IMPORTANT BLOCK >
// ALLOW > BLOCK > default ALLOW across candidates' ActionAllow/ActionBlock
// records. Non-network actions (redirect/removeparam/csp/header/response-
// header) are ignored here; callers gather those separately by Action.
func (st *snapshotState) resolveNetworkOutcome(rules ubx.RulesView, candidates []uint32) networkOutcome {
	var importantBlock, allow, block best

	for _, id := range candidates {
		rec := rules.Get(int(id))

		switch {
		case rec.Action == ubx.ActionBlock:
			if rec.Flags.Has(ubx.FlagImportant) {
				importantBlock.consider(id, rec)
			} else {
				block.consider(id, rec)
			}
		case rec.Action == ubx.ActionRedirectDirective && rec.Flags.Has(ubx.FlagFromRedirect):
			// $redirect= (as opposed to the conditional $redirect-rule=)
			// forces its own block outcome whenever it wins precedence,
			// competing in the ladder exactly like a plain block rule.
			if rec.Flags.Has(ubx.FlagImportant) {
				importantBlock.consider(id, rec)
			} else {
				block.consider(id, rec)
			}
		case rec.Action == ubx.ActionAllow:
			allow.consider(id, rec)
		}
	}

	switch {
	case importantBlock.present:
		return networkOutcome{action: ubx.ActionBlock, ruleID: importantBlock.ruleID, record: importantBlock.record, matched: true}
	case allow.present:
		return networkOutcome{action: ubx.ActionAllow, ruleID: allow.ruleID, record: allow.record, matched: true}
	case block.present:
		return networkOutcome{action: ubx.ActionBlock, ruleID: block.ruleID, record: block.record, matched: true}
	default:
		return networkOutcome{action: ubx.ActionAllow, matched: false}
	}
}
