package match

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/AdguardTeam/ubxfilter/ubx"
)

// Config tunes an Engine's cache sizes. There is no package-level default;
// callers build one explicitly.
type Config struct {
	// DecisionCacheSize bounds the number of cached MatchRequest outcomes.
	DecisionCacheSize int

	// RemoveparamGuardSize bounds the number of tracked
	// (tab, frame, url)-> recently-sanitized entries.
	RemoveparamGuardSize int

	// RemoveparamGuardTTL is how long a removeparam guard entry suppresses
	// re-sanitizing the same (tab, frame, url) triple.
	RemoveparamGuardTTL time.Duration
}

// DefaultConfig returns reasonable production defaults.
func DefaultConfig() Config {
	return Config{
		DecisionCacheSize:    8192,
		RemoveparamGuardSize: 2048,
		RemoveparamGuardTTL:  5 * time.Second,
	}
}

// SnapshotInfo summarizes the Engine's currently active snapshot.
type SnapshotInfo struct {
	BuildID  uint32
	Size     int
	HasCRC32 bool
}

// Engine is the runtime content-filtering decision engine: it owns exactly
// one active snapshot (swapped atomically by Init), its own decision cache,
// removeparam guard, trusted-site set, and an optional host-provided
// DynamicFilter. There is no global/package-level engine instance; every
// caller constructs and owns its own.
type Engine struct {
	cfg Config

	state atomic.Pointer[snapshotState]

	cache            *lru.Cache[decisionCacheKey, MatchResult]
	removeparamGuard *expirable.LRU[removeparamGuardKey, struct{}]

	scratchPool sync.Pool

	trustedMu sync.RWMutex
	trusted   map[string]struct{}

	dynamicMu sync.RWMutex
	dynamic   DynamicFilter
}

// New creates an Engine with no snapshot installed; MatchRequest and its
// siblings fail open (Allow) until Init succeeds.
func New(cfg Config) *Engine {
	e := &Engine{
		cfg:              cfg,
		cache:            newDecisionCache(cfg.DecisionCacheSize),
		removeparamGuard: newRemoveparamGuard(cfg.RemoveparamGuardSize, cfg.RemoveparamGuardTTL),
		trusted:          map[string]struct{}{},
	}
	e.scratchPool.New = func() any { return newScratch() }
	return e
}

// Init validates and installs a new UBX snapshot, atomically swapping it in
// for the active one and clearing the decision cache. On validation failure
// the previously active snapshot (if any) is left untouched: Init never
// tears down a working engine over a bad update.
func (e *Engine) Init(snapshotBytes []byte) error {
	snap, err := ubx.Load(snapshotBytes)
	if err != nil {
		return fmt.Errorf("match: loading snapshot: %w", err)
	}

	st, err := buildState(snap)
	if err != nil {
		return fmt.Errorf("match: building snapshot state: %w", err)
	}

	e.state.Store(st)
	e.cache.Purge()

	slog.Info("match: snapshot installed",
		"build_id", snap.BuildID(),
		"size_bytes", snap.Size(),
		"has_crc32", snap.HasCRC32(),
	)

	return nil
}

// IsInitialized reports whether a snapshot is currently active.
func (e *Engine) IsInitialized() bool {
	return e.state.Load() != nil
}

// GetSnapshotInfo returns metadata about the active snapshot, or
// (SnapshotInfo{}, false) if none is installed.
func (e *Engine) GetSnapshotInfo() (SnapshotInfo, bool) {
	st := e.state.Load()
	if st == nil {
		return SnapshotInfo{}, false
	}
	return SnapshotInfo{
		BuildID:  st.snap.BuildID(),
		Size:     st.snap.Size(),
		HasCRC32: st.snap.HasCRC32(),
	}, true
}

// GetETLD1 computes host's effective top-level-domain-plus-one using the
// active snapshot's PSL data, or "" if no snapshot is installed.
func (e *Engine) GetETLD1(host string) string {
	st := e.state.Load()
	if st == nil {
		return ""
	}
	return st.psl.ETLD1(host)
}

// SetDynamicFilter installs (or clears, with nil) a host-provided dynamic-
// filtering matrix consulted ahead of static filtering on every
// MatchRequest.
func (e *Engine) SetDynamicFilter(f DynamicFilter) {
	e.dynamicMu.Lock()
	e.dynamic = f
	e.dynamicMu.Unlock()
}

func (e *Engine) dynamicFilter() DynamicFilter {
	e.dynamicMu.RLock()
	defer e.dynamicMu.RUnlock()
	return e.dynamic
}

// AddTrustedSite marks etld1 (and every subdomain of it) as trusted: every
// MatchRequest whose document belongs to it short-circuits to Allow before
// any static filtering runs.
func (e *Engine) AddTrustedSite(etld1 string) {
	e.trustedMu.Lock()
	e.trusted[etld1] = struct{}{}
	e.trustedMu.Unlock()
}

// RemoveTrustedSite undoes AddTrustedSite.
func (e *Engine) RemoveTrustedSite(etld1 string) {
	e.trustedMu.Lock()
	delete(e.trusted, etld1)
	e.trustedMu.Unlock()
}

func (e *Engine) isTrusted(etld1 string) bool {
	if etld1 == "" {
		return false
	}
	e.trustedMu.RLock()
	defer e.trustedMu.RUnlock()
	_, ok := e.trusted[etld1]
	return ok
}

func (e *Engine) getScratch() *scratch {
	return e.scratchPool.Get().(*scratch)
}

func (e *Engine) putScratch(sc *scratch) {
	e.scratchPool.Put(sc)
}
