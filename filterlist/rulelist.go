package filterlist

import (
	"fmt"
	"os"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/ubxfilter/rules"
)

// ErrRuleRetrieval is returned by [RuleList.RetrieveRule] when idx does not
// point at the start of a valid rule line.
const ErrRuleRetrieval errors.Error = "cannot retrieve rule: invalid index"

// RuleList represents a set of filtering rules coming from a single source
// (a string buffer, a file, ...).
type RuleList interface {
	// GetID returns the rule list identifier.
	GetID() int

	// NewScanner creates a new scanner that reads the list's contents from
	// the beginning.
	NewScanner() *RuleScanner

	// RetrieveRule finds and parses a rule by the byte offset its line
	// starts at, as previously reported by a [RuleScanner].
	RetrieveRule(ruleIdx int) (rules.Rule, error)

	// Close releases any resources held by the list (e.g. an open file).
	Close() error
}

// StringRuleList is a rule list whose contents are held entirely in memory.
type StringRuleList struct {
	// ID is the rule list identifier.
	ID int

	// RulesText is the filter list contents, one rule per line.
	RulesText string

	// IgnoreCosmetic makes the list's scanners skip cosmetic rules;
	// RetrieveRule still returns a cosmetic rule at a given index.
	IgnoreCosmetic bool
}

// GetID implements the [RuleList] interface for *StringRuleList.
func (l *StringRuleList) GetID() int {
	return l.ID
}

// NewScanner implements the [RuleList] interface for *StringRuleList.
func (l *StringRuleList) NewScanner() *RuleScanner {
	return NewRuleScanner(strings.NewReader(l.RulesText), l.ID, l.IgnoreCosmetic)
}

// RetrieveRule implements the [RuleList] interface for *StringRuleList.
func (l *StringRuleList) RetrieveRule(ruleIdx int) (rules.Rule, error) {
	if ruleIdx < 0 || ruleIdx >= len(l.RulesText) {
		return nil, ErrRuleRetrieval
	}

	endOfLine := strings.IndexByte(l.RulesText[ruleIdx:], '\n')
	if endOfLine == -1 {
		endOfLine = len(l.RulesText)
	} else {
		endOfLine += ruleIdx
	}

	line := strings.TrimSpace(l.RulesText[ruleIdx:endOfLine])
	if line == "" {
		return nil, ErrRuleRetrieval
	}

	r, err := rules.NewRule(line, l.ID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrRuleRetrieval
	}

	return r, nil
}

// Close implements the [RuleList] interface for *StringRuleList. It is a
// no-op, since the list holds no external resources.
func (l *StringRuleList) Close() error {
	return nil
}

// FileRuleList is a rule list backed by a file on disk. The whole file is
// read into memory once, up front, so that [RetrieveRule] can reuse the same
// byte-offset scheme as [StringRuleList].
type FileRuleList struct {
	inner *StringRuleList
	file  *os.File
}

// NewFileRuleList creates a rule list reading from the file at path.
func NewFileRuleList(id int, path string, ignoreCosmetic bool) (*FileRuleList, error) {
	// nolint: gosec
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening rule list file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		_ = file.Close()

		return nil, fmt.Errorf("reading rule list file: %w", err)
	}

	return &FileRuleList{
		inner: &StringRuleList{
			ID:             id,
			RulesText:      string(data),
			IgnoreCosmetic: ignoreCosmetic,
		},
		file: file,
	}, nil
}

// GetID implements the [RuleList] interface for *FileRuleList.
func (l *FileRuleList) GetID() int {
	return l.inner.GetID()
}

// NewScanner implements the [RuleList] interface for *FileRuleList.
func (l *FileRuleList) NewScanner() *RuleScanner {
	return l.inner.NewScanner()
}

// RetrieveRule implements the [RuleList] interface for *FileRuleList.
func (l *FileRuleList) RetrieveRule(ruleIdx int) (rules.Rule, error) {
	return l.inner.RetrieveRule(ruleIdx)
}

// Close implements the [RuleList] interface for *FileRuleList, closing the
// underlying file handle.
func (l *FileRuleList) Close() error {
	return l.file.Close()
}
