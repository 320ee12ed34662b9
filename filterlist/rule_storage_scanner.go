package filterlist

import "github.com/AdguardTeam/ubxfilter/rules"

// RuleStorageScanner scans multiple [RuleScanner] instances in sequence,
// producing a single combined index space: the rule index is the list ID in
// the high 32 bits and the rule's byte offset within that list in the low 32
// bits (see ruleListIdxToStorageIdx).
type RuleStorageScanner struct {
	// Scanners is the list of per-list scanners backing this combined
	// scanner, consulted in order.
	Scanners []*RuleScanner

	currentScanner    *RuleScanner
	currentScannerIdx int
}

// Scan advances to the next rule across all scanners, switching to the next
// scanner in Scanners once the current one is exhausted.
func (s *RuleStorageScanner) Scan() bool {
	if len(s.Scanners) == 0 {
		return false
	}

	if s.currentScanner == nil {
		s.currentScannerIdx = 0
		s.currentScanner = s.Scanners[s.currentScannerIdx]
	}

	for {
		if s.currentScanner.Scan() {
			return true
		}

		if s.currentScannerIdx == len(s.Scanners)-1 {
			return false
		}

		s.currentScannerIdx++
		s.currentScanner = s.Scanners[s.currentScannerIdx]
	}
}

// Rule returns the rule found by the most recent call to Scan, along with
// its combined storage index.
func (s *RuleStorageScanner) Rule() (rules.Rule, int64) {
	if s.currentScanner == nil {
		return nil, 0
	}

	r, idx := s.currentScanner.Rule()
	if r == nil {
		return nil, 0
	}

	return r, ruleListIdxToStorageIdx(r.GetFilterListID(), idx)
}

// ruleListIdxToStorageIdx packs a list ID and a rule's byte offset within
// that list into a single int64 storage index.
func ruleListIdxToStorageIdx(listID int, ruleIdx int) int64 {
	return int64(listID)<<32 | int64(ruleIdx)&0xFFFFFFFF
}

// storageIdxToRuleListIdx unpacks a storage index built by
// ruleListIdxToStorageIdx.
func storageIdxToRuleListIdx(storageIdx int64) (listID int, ruleIdx int) {
	return int(storageIdx >> 32), int(storageIdx)
}
