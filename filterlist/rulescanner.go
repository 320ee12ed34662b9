package filterlist

import (
	"bufio"
	"io"
	"strings"

	"github.com/AdguardTeam/ubxfilter/rules"
)

// RuleScanner reads filtering rules line by line from an io.Reader, skipping
// empty lines and comments, and optionally cosmetic rules. It tracks the byte
// offset of each returned rule within the underlying reader so that the
// offset can be used later as a [RuleList.RetrieveRule] index.
type RuleScanner struct {
	scanner *bufio.Scanner

	listID         int
	ignoreCosmetic bool

	pos int // byte offset of the start of the next unread line
	off int // byte offset of the rule returned by the last Scan
	r   rules.Rule
}

// NewRuleScanner creates a new RuleScanner that reads lines from r and
// classifies them as rules belonging to listID. When ignoreCosmetic is true,
// cosmetic rules are skipped, not returned.
func NewRuleScanner(r io.Reader, listID int, ignoreCosmetic bool) *RuleScanner {
	return &RuleScanner{
		scanner:        bufio.NewScanner(r),
		listID:         listID,
		ignoreCosmetic: ignoreCosmetic,
	}
}

// Scan reads the next rule, skipping blank lines, comments, rules rejected by
// [rules.NewRule], and (when ignoreCosmetic is set) cosmetic rules. It
// returns false once the underlying reader is exhausted.
func (s *RuleScanner) Scan() bool {
	for s.scanner.Scan() {
		line := s.scanner.Text()
		lineStart := s.pos
		// +1 for the newline byte consumed by bufio.Scanner's default
		// split function, which ScanLines strips from Text().
		s.pos += len(line) + 1

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		r, err := rules.NewRule(trimmed, s.listID)
		if err != nil || r == nil {
			continue
		}

		if s.ignoreCosmetic {
			if _, ok := r.(*rules.CosmeticRule); ok {
				continue
			}
		}

		s.r = r
		s.off = lineStart
		return true
	}

	return false
}

// Rule returns the rule found by the most recent call to Scan, along with
// the byte offset at which its line started.
func (s *RuleScanner) Rule() (rules.Rule, int) {
	if s.r == nil {
		return nil, 0
	}

	return s.r, s.off
}
