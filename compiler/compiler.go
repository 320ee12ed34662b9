// Package compiler implements the ahead-of-time compiler that turns
// ABP/uBO filter-list text into a UBX snapshot: lexing and classification,
// network/cosmetic rule parsing, badfilter folding, pattern bytecode
// compilation, index building, and snapshot emission.
//
// Compile is deterministic: identical inputs in the same order, with the
// same compiler and PSL data, always produce byte-identical snapshots.
package compiler

import (
	"log/slog"
	"os"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/shirou/gopsutil/v3/process"
)

// ErrNoSurvivingRules is returned when every rule in the input was skipped
// and the resulting snapshot would be empty: the compile never fails for any
// other reason as long as at least one rule survives.
var ErrNoSurvivingRules errors.Error = "compiler: no surviving rules"

// Config tunes compiler safety limits and snapshot output options. There is
// no package-level default; callers build one explicitly.
type Config struct {
	// WithCRC32 enables the snapshot's whole-file CRC32 (header flag bit 0).
	WithCRC32 bool

	// MaxRulesPerList caps the number of rules accepted from a single list
	// text; 0 means unlimited.
	MaxRulesPerList int

	// MaxBytesPerList caps the byte length of a single list text; 0 means
	// unlimited. Enforcement of fetch-time limits belongs to the host's
	// fetch layer; this is a compile-time backstop.
	MaxBytesPerList int

	// MaxRegexLength caps the length of a `/regex/` pattern; rules with a
	// longer regex are skipped (reason "regex_too_long").
	MaxRegexLength int

	// TrackResourceUsage enables gopsutil-based RSS/CPU sampling once the
	// compile has finished, surfaced as Stats.ResourceUsage.
	TrackResourceUsage bool
}

// DefaultConfig returns reasonable production defaults.
func DefaultConfig() Config {
	return Config{
		WithCRC32:          true,
		MaxRulesPerList:    2_000_000,
		MaxBytesPerList:    256 << 20,
		MaxRegexLength:     2048,
		TrackResourceUsage: true,
	}
}

// Compiler compiles filter-list texts into UBX snapshots.
type Compiler struct {
	cfg Config
}

// New creates a Compiler with the given configuration.
func New(cfg Config) *Compiler {
	return &Compiler{cfg: cfg}
}

// ResourceUsage records process resource consumption sampled once, right
// after a compile finishes, via gopsutil/process (SPEC_FULL.md Domain Stack).
// PeakRSSBytes holds the RSS at that moment, not a maximum tracked over the
// compile; CPUTimeSeconds is the process's total user+system CPU time.
type ResourceUsage struct {
	PeakRSSBytes   uint64
	CPUTimeSeconds float64
}

// ListStats records per-list lexing/normalization counters.
type ListStats struct {
	ListID                   int
	TotalLines               int
	RulesBeforeNormalization int
	RulesAfterNormalization  int
	SkippedByReason          map[string]int
}

// Stats is the structured statistics object returned alongside a successful
// compile.
type Stats struct {
	RulesBefore      int
	RulesAfter       int
	RulesDeduped     int
	BadfilterRules   int
	BadfilteredRules int
	PerList          []ListStats
	ResourceUsage    ResourceUsage
	Duration         time.Duration
}

// Compile parses texts (one filter list per element, list id = its index)
// and produces a UBX snapshot. It never returns both a non-nil snapshot and
// a non-nil error.
func (c *Compiler) Compile(texts []string) (snapshot []byte, stats Stats, err error) {
	start := time.Now()

	var proc *process.Process
	if c.cfg.TrackResourceUsage {
		proc, _ = process.NewProcess(int32(os.Getpid()))
	}

	parsed, perList := c.parseAll(texts)
	stats.PerList = perList
	for _, ls := range perList {
		stats.RulesBefore += ls.RulesBeforeNormalization
	}

	survivors, badfilterRules, badfilteredRules, deduped := foldBadfilters(parsed.network)
	stats.BadfilterRules = badfilterRules
	stats.BadfilteredRules = badfilteredRules
	stats.RulesDeduped = deduped

	if len(survivors) == 0 && len(parsed.cosmetic) == 0 {
		return nil, stats, ErrNoSurvivingRules
	}

	b := newBuilder(c.cfg)
	for _, nr := range survivors {
		b.addNetworkRule(nr)
	}
	for _, cr := range parsed.cosmetic {
		b.addCosmeticRule(cr)
	}

	snapshot, err = b.emit()
	if err != nil {
		return nil, stats, errors.Annotate(err, "compiler: emitting snapshot: %w")
	}

	stats.RulesAfter = b.ruleCount()

	if proc != nil {
		if mem, merr := proc.MemoryInfo(); merr == nil && mem != nil {
			stats.ResourceUsage.PeakRSSBytes = mem.RSS
		}
		if cpu, cerr := proc.Times(); cerr == nil && cpu != nil {
			stats.ResourceUsage.CPUTimeSeconds = cpu.User + cpu.System
		}
	}

	stats.Duration = time.Since(start)

	slog.Debug("compiler: compile finished",
		"rules_before", stats.RulesBefore,
		"rules_after", stats.RulesAfter,
		"badfilter_rules", stats.BadfilterRules,
		"badfiltered_rules", stats.BadfilteredRules,
	)

	return snapshot, stats, nil
}
