package engine

import (
	"context"
	"errors"
	"io"
	"log"
	"path/filepath"
	"testing"

	"tendril/internal/cache"
	"tendril/internal/sessions"
	"tendril/internal/thread"
)

// ─── Fakes ──────────────────────────────────────────────────────────────────

type fakeRemote struct {
	threads []thread.Thread
	down    bool
	created []thread.Thread
	updated []thread.Thread
}

func (f *fakeRemote) List(ctx context.Context, project, status string) ([]thread.Thread, error) {
	if f.down {
		return nil, errors.New("remote: store unavailable")
	}
	var out []thread.Thread
	for _, t := range f.threads {
		if project != "" && t.Project != project {
			continue
		}
		if status != "" && string(t.Status) != status {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeRemote) Create(ctx context.Context, t thread.Thread) error {
	if f.down {
		return errors.New("remote: store unavailable")
	}
	f.created = append(f.created, t)
	f.threads = append(f.threads, t)
	return nil
}

func (f *fakeRemote) Update(ctx context.Context, t thread.Thread) error {
	if f.down {
		return errors.New("remote: store unavailable")
	}
	f.updated = append(f.updated, t)
	return nil
}

type fakeSessions struct {
	records []sessions.Record
	err     error
}

func (f *fakeSessions) RecentClosed(project string, limit int) ([]sessions.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.records) {
		return f.records[:limit], nil
	}
	return f.records, nil
}

type failingCache struct{}

func (failingCache) Load() ([]thread.Thread, error)      { return nil, errors.New("cache: corrupt") }
func (failingCache) Save([]thread.Thread) error          { return errors.New("cache: corrupt") }
func (failingCache) Upsert(thread.Thread) error          { return errors.New("cache: corrupt") }

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	return cache.New(filepath.Join(t.TempDir(), "threads.json"))
}

// ─── Source priority ────────────────────────────────────────────────────────

func TestListOpen_RemoteWins(t *testing.T) {
	remote := &fakeRemote{threads: []thread.Thread{openAt("t-remote", "from remote")}}
	c := newTestCache(t)
	_ = c.Upsert(openAt("t-cached", "from cache"))

	r := NewReconciler(remote, &fakeSessions{}, c, quietLogger())
	threads, source := r.ListOpen(context.Background(), "")

	if source != SourceRemote {
		t.Errorf("source = %q, want remote", source)
	}
	if len(threads) != 1 || threads[0].ID != "t-remote" {
		t.Errorf("threads = %+v, remote result should be used as-is", threads)
	}
}

func TestListOpen_RemoteDownFallsBackToSessions(t *testing.T) {
	sess := &fakeSessions{records: []sessions.Record{{
		ID:              "sess-1",
		CloseCompliance: true,
		Threads:         []any{`{"id":"t-legacy01","text":"from session","status":"open"}`},
	}}}
	c := newTestCache(t)
	_ = c.Upsert(openAt("t-cached", "from cache"))

	r := NewReconciler(&fakeRemote{down: true}, sess, c, quietLogger())
	threads, source := r.ListOpen(context.Background(), "")

	if source != SourceSessions {
		t.Errorf("source = %q, want sessions+cache", source)
	}
	ids := map[string]bool{}
	for _, th := range threads {
		ids[th.ID] = true
	}
	if !ids["t-legacy01"] || !ids["t-cached"] {
		t.Errorf("threads = %+v, want session and cache merged", threads)
	}
}

func TestListOpen_SessionsFailFallsBackToCache(t *testing.T) {
	c := newTestCache(t)
	_ = c.Upsert(openAt("t-cached", "from cache"))

	r := NewReconciler(&fakeRemote{down: true}, &fakeSessions{err: errors.New("db locked")}, c, quietLogger())
	threads, source := r.ListOpen(context.Background(), "")

	if source != SourceCache {
		t.Errorf("source = %q, want cache", source)
	}
	if len(threads) != 1 || threads[0].ID != "t-cached" {
		t.Errorf("threads = %+v", threads)
	}
}

func TestListStatus_FallbackFiltersLocally(t *testing.T) {
	// The cache mixes statuses; with the remote down the status filter
	// has to be applied after the fallback load.
	c := newTestCache(t)
	_ = c.Upsert(openAt("t-open", "still going"))
	_ = c.Upsert(resolvedAt("t-done", "wrapped up"))

	r := NewReconciler(&fakeRemote{down: true}, &fakeSessions{}, c, quietLogger())
	threads, source := r.ListStatus(context.Background(), "", string(thread.StatusResolved))

	if source != SourceSessions {
		t.Errorf("source = %q, want sessions+cache", source)
	}
	if len(threads) != 1 || threads[0].ID != "t-done" {
		t.Errorf("threads = %+v, want only the resolved thread", threads)
	}
}

func TestListOpen_EverySourceExhaustedIsEmptyNotError(t *testing.T) {
	r := NewReconciler(&fakeRemote{down: true}, &fakeSessions{err: errors.New("gone")}, failingCache{}, quietLogger())
	threads, source := r.ListOpen(context.Background(), "")

	if source != SourceNone {
		t.Errorf("source = %q, want none", source)
	}
	if len(threads) != 0 {
		t.Errorf("threads = %+v, want empty", threads)
	}
}

func TestListOpen_NoRemoteConfiguredSkipsToSessions(t *testing.T) {
	sess := &fakeSessions{records: []sessions.Record{{
		ID:              "sess-1",
		CloseCompliance: true,
		Threads:         []any{"free-form item"},
	}}}
	r := NewReconciler(nil, sess, newTestCache(t), quietLogger())

	threads, source := r.ListOpen(context.Background(), "")
	if source != SourceSessions {
		t.Errorf("source = %q", source)
	}
	if len(threads) != 1 || threads[0].Text != "free-form item" {
		t.Errorf("threads = %+v", threads)
	}
}

// ─── Session aggregation ────────────────────────────────────────────────────

func TestAggregate_IgnoresNonCompliantSessions(t *testing.T) {
	sess := &fakeSessions{records: []sessions.Record{
		{
			ID:              "sess-sloppy",
			CloseCompliance: false,
			Threads:         []any{"should be ignored"},
		},
		{
			ID:              "sess-good",
			CloseCompliance: true,
			Threads:         []any{"should survive"},
		},
	}}
	r := NewReconciler(nil, sess, newTestCache(t), quietLogger())

	threads, _ := r.ListOpen(context.Background(), "")
	if len(threads) != 1 {
		t.Fatalf("got %d threads, want 1", len(threads))
	}
	if threads[0].Text != "should survive" {
		t.Errorf("text = %q", threads[0].Text)
	}
}

func TestAggregate_DedupesAcrossSessionBoundaries(t *testing.T) {
	sess := &fakeSessions{records: []sessions.Record{
		{
			ID:              "sess-newest",
			CloseCompliance: true,
			Threads:         []any{`{"id":"t-first001","text":"Fix auth timeout","status":"open"}`},
		},
		{
			ID:              "sess-older",
			CloseCompliance: true,
			Threads:         []any{`{"id":"t-second02","text":"fix auth timeout!","status":"open"}`},
		},
	}}
	r := NewReconciler(nil, sess, newTestCache(t), quietLogger())

	threads, _ := r.ListOpen(context.Background(), "")
	if len(threads) != 1 {
		t.Fatalf("got %d threads, want the duplicate collapsed", len(threads))
	}
	if threads[0].ID != "t-first001" {
		t.Errorf("ID = %s, want the earliest-seen copy", threads[0].ID)
	}
}

func TestAggregate_NoteWrapperNeverLeaksJSON(t *testing.T) {
	sess := &fakeSessions{records: []sessions.Record{{
		ID:              "sess-1",
		CloseCompliance: true,
		Threads:         []any{`{"id":"t-05a7ecb6","status":"open","note":"Phase 2 release pending"}`},
	}}}
	r := NewReconciler(nil, sess, newTestCache(t), quietLogger())

	threads, _ := r.ListOpen(context.Background(), "")
	if len(threads) != 1 {
		t.Fatal("expected one thread")
	}
	if threads[0].Text != "Phase 2 release pending" {
		t.Errorf("text = %q, raw JSON must not leak into the view", threads[0].Text)
	}
}

// ─── Merge with cache ───────────────────────────────────────────────────────

func TestListOpen_SessionResolvedRatchetsCachedOpen(t *testing.T) {
	c := newTestCache(t)
	_ = c.Upsert(openAt("t-x", "ship feature"))

	sess := &fakeSessions{records: []sessions.Record{{
		ID:              "sess-1",
		CloseCompliance: true,
		Threads:         []any{`{"id":"t-x","text":"ship feature","status":"resolved","resolved_at":"2026-03-01T00:00:00Z"}`},
	}}}
	r := NewReconciler(nil, sess, c, quietLogger())

	open, _ := r.ListOpen(context.Background(), "")
	if len(open) != 0 {
		t.Errorf("open = %+v, the session's resolved copy should win", open)
	}
	all, _ := r.ListAll(context.Background(), "")
	if len(all) != 1 || all[0].Status != thread.StatusResolved {
		t.Errorf("all = %+v", all)
	}
}

func TestListAll_ExcludesArchived(t *testing.T) {
	archived := openAt("t-gone", "old stuff")
	archived.Status = thread.StatusArchived
	remote := &fakeRemote{threads: []thread.Thread{archived, openAt("t-live", "current")}}

	r := NewReconciler(remote, nil, newTestCache(t), quietLogger())
	all, _ := r.ListAll(context.Background(), "")
	if len(all) != 1 || all[0].ID != "t-live" {
		t.Errorf("all = %+v, archived threads should not list", all)
	}
}

func TestListOpen_CorruptCacheStillServesSessions(t *testing.T) {
	sess := &fakeSessions{records: []sessions.Record{{
		ID:              "sess-1",
		CloseCompliance: true,
		Threads:         []any{"survivor"},
	}}}
	r := NewReconciler(nil, sess, failingCache{}, quietLogger())

	threads, source := r.ListOpen(context.Background(), "")
	if source != SourceSessions {
		t.Errorf("source = %q", source)
	}
	if len(threads) != 1 || threads[0].Text != "survivor" {
		t.Errorf("threads = %+v", threads)
	}
}
