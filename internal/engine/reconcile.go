package engine

import (
	"context"
	"log"
	"time"

	"tendril/internal/sessions"
	"tendril/internal/thread"
)

// Source labels reported on list responses so callers can observe which
// reconciliation path served them.
const (
	SourceRemote   = "remote"
	SourceSessions = "sessions+cache"
	SourceCache    = "cache"
	SourceNone     = "none"
)

// DefaultSessionDepth is how many recently closed session records the
// reconciler aggregates when the remote store is down.
const DefaultSessionDepth = 10

// RemoteSource is the authoritative thread store. A nil RemoteSource
// means "not configured" and the reconciler goes straight to fallback.
type RemoteSource interface {
	List(ctx context.Context, project, status string) ([]thread.Thread, error)
	Create(ctx context.Context, t thread.Thread) error
	Update(ctx context.Context, t thread.Thread) error
}

// SessionSource provides historical session records with embedded
// thread snapshots.
type SessionSource interface {
	RecentClosed(project string, limit int) ([]sessions.Record, error)
}

// CacheStore is the local file cache of threads.
type CacheStore interface {
	Load() ([]thread.Thread, error)
	Save(threads []thread.Thread) error
	Upsert(t thread.Thread) error
}

// Reconciler merges thread state from the remote store, legacy
// session-embedded records, and the local cache into one consistent
// view. Each source is attempted in priority order exactly once per
// request; exhausting every source yields an empty result, not an error.
type Reconciler struct {
	remote       RemoteSource
	sessionStore SessionSource
	cache        CacheStore
	depth        int
	logger       *log.Logger
	timeNow      func() time.Time
}

// NewReconciler wires the three sources. remote and sessionStore may be
// nil; the cache is required.
func NewReconciler(remote RemoteSource, sessionStore SessionSource, cacheStore CacheStore, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = log.Default()
	}
	return &Reconciler{
		remote:       remote,
		sessionStore: sessionStore,
		cache:        cacheStore,
		depth:        DefaultSessionDepth,
		timeNow:      time.Now,
		logger:       logger,
	}
}

// ListOpen returns the reconciled open set for a project, plus the
// source label of the path that served it.
func (r *Reconciler) ListOpen(ctx context.Context, project string) ([]thread.Thread, string) {
	threads, source := r.list(ctx, project, string(thread.StatusOpen))
	return filterStatus(threads, thread.StatusOpen), source
}

// ListStatus returns the reconciled view restricted to one persisted
// status. The filter is applied server-side on the remote path and
// locally on the fallback paths, whose sources mix statuses.
func (r *Reconciler) ListStatus(ctx context.Context, project, status string) ([]thread.Thread, string) {
	threads, source := r.list(ctx, project, status)
	return filterStatus(threads, thread.Status(status)), source
}

// ListAll returns the reconciled view across open and resolved threads.
// Archived threads are excluded from listings; they are retrievable only
// through the store layers directly.
func (r *Reconciler) ListAll(ctx context.Context, project string) ([]thread.Thread, string) {
	threads, source := r.list(ctx, project, "")
	out := threads[:0:0]
	for _, t := range threads {
		if t.Status != thread.StatusArchived {
			out = append(out, t)
		}
	}
	return out, source
}

func (r *Reconciler) list(ctx context.Context, project, status string) ([]thread.Thread, string) {
	// Source 1: the remote store, with the status filter applied
	// server-side. Its result is internally consistent and used as-is.
	if r.remote != nil {
		threads, err := r.remote.List(ctx, project, status)
		if err == nil {
			return threads, SourceRemote
		}
		r.logger.Printf("reconcile: remote list failed, falling back: %v", err)
	}

	// Source 2: thread lists embedded in recently closed sessions,
	// normalized and merged with the cache.
	if r.sessionStore != nil {
		records, err := r.sessionStore.RecentClosed(project, r.depth)
		if err == nil {
			aggregate := r.aggregateSessions(records)
			current, cacheErr := r.cache.Load()
			if cacheErr != nil {
				r.logger.Printf("reconcile: cache load failed, merging sessions alone: %v", cacheErr)
				current = nil
			}
			return Merge(aggregate, current), SourceSessions
		}
		r.logger.Printf("reconcile: session aggregation failed, falling back: %v", err)
	}

	// Source 3: the local cache alone.
	threads, err := r.cache.Load()
	if err != nil {
		r.logger.Printf("reconcile: cache load failed, returning empty view: %v", err)
		return nil, SourceNone
	}
	return DedupeByText(threads), SourceCache
}

// aggregateSessions normalizes the embedded thread lists of compliant
// session records and deduplicates them by normalized text across
// session boundaries — the earliest-seen copy wins. Records arrive
// newest first, so "earliest seen" is the most recent close.
func (r *Reconciler) aggregateSessions(records []sessions.Record) []thread.Thread {
	seen := make(map[string]bool)
	var out []thread.Thread
	now := r.timeNow()

	for _, rec := range records {
		// Sessions closed without going through the close protocol
		// carry unreliable snapshots; skip them entirely.
		if !rec.CloseCompliance {
			continue
		}
		for _, t := range thread.NormalizeLegacy(rec.Threads, rec.ID, now) {
			key := thread.NormalizeText(t.Text)
			if key != "" && seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, t)
		}
	}
	return out
}

func filterStatus(threads []thread.Thread, status thread.Status) []thread.Thread {
	out := threads[:0:0]
	for _, t := range threads {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}
