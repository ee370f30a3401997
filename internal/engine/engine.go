// Package engine is the thread lifecycle and reconciliation engine: it
// scores open work items, gates creation through dedup, reconciles
// thread state across the remote store / legacy session records / local
// cache, and performs the idempotent open→resolved transition.
//
// All operations are request/response and I/O-bound. The remote write in
// a mutation is attempted first (best-effort, logged, never retried) and
// the local cache write always follows regardless of remote outcome, so
// every mutation is at least locally durable.
package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"tendril/internal/dedup"
	"tendril/internal/embedding"
	"tendril/internal/sessions"
	"tendril/internal/thread"
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// SessionRecorder persists closed-session records with embedded thread
// snapshots.
type SessionRecorder interface {
	RecordClose(p sessions.CloseParams) error
}

// Engine exposes the thread operations called by the tool dispatch
// layer.
type Engine struct {
	remote     RemoteSource
	cache      CacheStore
	recorder   SessionRecorder
	embedder   embedding.Provider
	reconciler *Reconciler
	reporter   *Reporter
	classifier *thread.Classifier
	bg         *background
	logger     *log.Logger
}

// Options configures an Engine. Remote, Sessions, Recorder, and Embedder
// are optional; their absence degrades the corresponding behavior
// (fallback sources, dedup precision) without failing any call.
type Options struct {
	Remote       RemoteSource
	Sessions     SessionSource
	Recorder     SessionRecorder
	Cache        CacheStore
	Embedder     embedding.Provider
	HalfLives    map[string]float64
	SessionDepth int
	Logger       *log.Logger
}

// New creates the engine and its reconciler.
func New(opts Options) (*Engine, error) {
	if opts.Cache == nil {
		return nil, fmt.Errorf("engine: cache store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	classifier := thread.NewClassifier()
	if len(opts.HalfLives) > 0 {
		for class, days := range opts.HalfLives {
			classifier.HalfLives[class] = days
		}
	}

	rec := NewReconciler(opts.Remote, opts.Sessions, opts.Cache, logger)
	if opts.SessionDepth > 0 {
		rec.depth = opts.SessionDepth
	}

	return &Engine{
		remote:     opts.Remote,
		cache:      opts.Cache,
		recorder:   opts.Recorder,
		embedder:   opts.Embedder,
		reconciler: rec,
		reporter:   NewReporter(classifier),
		classifier: classifier,
		bg:         newBackground(logger),
		logger:     logger,
	}, nil
}

// Close drains in-flight background syncs.
func (e *Engine) Close() {
	e.bg.Wait()
}

// Classify derives the lifecycle state of a thread as of now. Display
// helper for the tool layer.
func (e *Engine) Classify(t thread.Thread) thread.Classification {
	return e.classifier.Classify(t, timeNow())
}

// ─── Create ─────────────────────────────────────────────────────────────────

// CreateParams is the input for CreateThread.
type CreateParams struct {
	Text        string
	LinearIssue string
	Project     string
	SessionID   string
}

// CreateResult reports the created (or touched) thread and how the
// dedup decision was made.
type CreateResult struct {
	Thread          thread.Thread `json:"thread"`
	Deduplicated    bool          `json:"deduplicated"`
	DedupMethod     string        `json:"dedup_method"`
	DedupSimilarity float64       `json:"dedup_similarity,omitempty"`
	MatchedThreadID string        `json:"matched_thread_id,omitempty"`
}

// CreateThread embeds the text (best-effort), checks the open set for a
// semantic duplicate, and either touches the existing match or persists
// a new thread. There is no distributed lock around the check: two
// concurrent creates for the same text may both pass the gate, and the
// text-dedup merge pass collapses the copies on a later read.
func (e *Engine) CreateThread(ctx context.Context, p CreateParams) (CreateResult, error) {
	if p.Text == "" {
		return CreateResult{}, fmt.Errorf("engine: thread text is required")
	}
	now := timeNow()

	var vec []float64
	if e.embedder != nil {
		var err error
		if vec, err = e.embedder.Embed(ctx, p.Text); err != nil {
			// Dedup falls back to text normalization; creation proceeds.
			e.logger.Printf("create: embedding unavailable: %v", err)
			vec = nil
		}
	}

	open, _ := e.reconciler.ListOpen(ctx, p.Project)
	check := dedup.Check(p.Text, vec, open)
	if check.IsDuplicate {
		for _, existing := range open {
			if existing.ID != check.MatchedID {
				continue
			}
			touched := existing.Touch(now)
			e.persistTouch(touched)
			return CreateResult{
				Thread:          touched,
				Deduplicated:    true,
				DedupMethod:     check.Method,
				DedupSimilarity: check.Similarity,
				MatchedThreadID: check.MatchedID,
			}, nil
		}
	}

	t := thread.New(p.Text, p.Project, now)
	t.SourceSession = p.SessionID
	t.LinearIssue = p.LinearIssue
	t.Embedding = vec

	if e.remote != nil {
		if err := e.remote.Create(ctx, t); err != nil {
			e.logger.Printf("create: remote write failed (cached locally): %v", err)
		}
	}
	if err := e.cache.Upsert(t); err != nil {
		return CreateResult{}, fmt.Errorf("engine: cache thread: %w", err)
	}

	return CreateResult{Thread: t, DedupMethod: check.Method, DedupSimilarity: check.Similarity}, nil
}

// persistTouch records updated touch bookkeeping: the remote sync is
// fire-and-forget, the cache write is synchronous.
func (e *Engine) persistTouch(t thread.Thread) {
	if e.remote != nil {
		e.bg.Go("touch sync", func() error {
			return e.remote.Update(context.Background(), t)
		})
	}
	if err := e.cache.Upsert(t); err != nil {
		e.logger.Printf("touch: cache write failed: %v", err)
	}
}

// ─── List ───────────────────────────────────────────────────────────────────

// ListParams is the input for ListThreads. Status and IncludeResolved
// compose: a non-empty Status restricts the view to that persisted
// status exactly, making IncludeResolved irrelevant.
type ListParams struct {
	Project         string
	Status          thread.Status
	IncludeResolved bool
}

// ListResult is the reconciled thread view plus counts and the source
// label of the path that served it.
type ListResult struct {
	Threads       []thread.Thread `json:"threads"`
	TotalOpen     int             `json:"total_open"`
	TotalResolved int             `json:"total_resolved"`
	Source        string          `json:"source"`
}

// ListThreads builds the merged view across all sources. A Status
// filter narrows the view to exactly that persisted status — the only
// way to see archived threads, which the default view always hides.
func (e *Engine) ListThreads(ctx context.Context, p ListParams) (ListResult, error) {
	if p.Status != "" {
		threads, source := e.reconciler.ListStatus(ctx, p.Project, string(p.Status))
		result := ListResult{Threads: threads, Source: source}
		for _, t := range threads {
			switch t.Status {
			case thread.StatusOpen:
				result.TotalOpen++
			case thread.StatusResolved:
				result.TotalResolved++
			}
		}
		return result, nil
	}

	all, source := e.reconciler.ListAll(ctx, p.Project)

	result := ListResult{Source: source}
	for _, t := range all {
		switch t.Status {
		case thread.StatusOpen:
			result.TotalOpen++
			result.Threads = append(result.Threads, t)
		case thread.StatusResolved:
			result.TotalResolved++
			if p.IncludeResolved {
				result.Threads = append(result.Threads, t)
			}
		}
	}
	return result, nil
}

// ─── Resolve ────────────────────────────────────────────────────────────────

// ResolveThread locates one thread by id or fuzzy text and performs the
// idempotent open→resolved transition. A nil result means no match —
// not an error. Only the matched thread is ever written back, whatever
// the resolution note says.
func (e *Engine) ResolveThread(ctx context.Context, project string, req ResolveRequest) (*thread.Thread, error) {
	all, _ := e.reconciler.ListAll(ctx, project)

	resolved, found, changed := Resolve(all, req, timeNow())
	if !found {
		return nil, nil
	}
	if !changed {
		return &resolved, nil
	}

	if e.remote != nil {
		if err := e.remote.Update(ctx, resolved); err != nil {
			e.logger.Printf("resolve: remote write failed (cached locally): %v", err)
		}
	}
	if err := e.cache.Upsert(resolved); err != nil {
		return nil, fmt.Errorf("engine: cache resolved thread: %w", err)
	}
	return &resolved, nil
}

// ─── Cleanup ────────────────────────────────────────────────────────────────

// CleanupParams is the input for CleanupThreads.
type CleanupParams struct {
	Project     string
	AutoArchive bool
}

// CleanupResult carries the triage buckets and, in auto-archive mode,
// what got archived.
type CleanupResult struct {
	Report        TriageReport `json:"report"`
	ArchivedCount int          `json:"archived_count"`
	ArchivedIDs   []string     `json:"archived_ids,omitempty"`
	Source        string       `json:"source"`
}

// CleanupThreads buckets all open items by lifecycle state for review.
// In auto-archive mode it first bulk-transitions every thread dormant
// for 30+ days to persisted archived status, then triages the rest.
func (e *Engine) CleanupThreads(ctx context.Context, p CleanupParams) (CleanupResult, error) {
	now := timeNow()
	open, source := e.reconciler.ListOpen(ctx, p.Project)
	result := CleanupResult{Source: source}

	if p.AutoArchive {
		archived, remaining := e.reporter.AutoArchive(open, now)
		for _, t := range archived {
			t := t
			if e.remote != nil {
				e.bg.Go("archive sync", func() error {
					return e.remote.Update(context.Background(), t)
				})
			}
			if err := e.cache.Upsert(t); err != nil {
				e.logger.Printf("cleanup: cache archive failed: %v", err)
			}
			result.ArchivedIDs = append(result.ArchivedIDs, t.ID)
		}
		result.ArchivedCount = len(archived)
		open = remaining
	}

	result.Report = e.reporter.Triage(open, now)
	for _, t := range result.Report.Updated {
		// Dormancy anchors are bookkeeping, not content: persist them
		// quietly so the archival timer has something to measure from.
		if err := e.cache.Upsert(t); err != nil {
			e.logger.Printf("cleanup: cache bookkeeping failed: %v", err)
		}
	}
	return result, nil
}

// ─── Sessions ───────────────────────────────────────────────────────────────

// CloseSessionParams is the input for CloseSession.
type CloseSessionParams struct {
	SessionID       string
	Project         string
	Summary         string
	CloseCompliance bool
}

// CloseSession records a closed session with a snapshot of the current
// open set embedded, which later serves as reconciliation source #2.
func (e *Engine) CloseSession(ctx context.Context, p CloseSessionParams) (int, error) {
	if e.recorder == nil {
		return 0, fmt.Errorf("engine: session store not configured")
	}
	if p.SessionID == "" {
		return 0, fmt.Errorf("engine: session id is required")
	}

	open, _ := e.reconciler.ListOpen(ctx, p.Project)
	err := e.recorder.RecordClose(sessions.CloseParams{
		ID:              p.SessionID,
		Project:         p.Project,
		Summary:         p.Summary,
		CloseCompliance: p.CloseCompliance,
		Threads:         open,
	})
	if err != nil {
		return 0, fmt.Errorf("engine: record session close: %w", err)
	}
	return len(open), nil
}
