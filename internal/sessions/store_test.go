package sessions

import (
	"testing"
	"time"

	"tendril/internal/thread"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNew_IdempotentReopen(t *testing.T) {
	dir := t.TempDir()
	s1, err := New(Config{DataDir: dir})
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := s1.Start("sess-1", "proj"); err != nil {
		t.Fatalf("start session: %v", err)
	}
	s1.Close()

	s2, err := New(Config{DataDir: dir})
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s2.Close()
}

func TestRecordClose_RoundTripsThreads(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	th := thread.New("fix auth timeout", "myproj", now)

	err := s.RecordClose(CloseParams{
		ID:              "sess-1",
		Project:         "myproj",
		Summary:         "worked on auth",
		CloseCompliance: true,
		Threads:         []thread.Thread{th},
	})
	if err != nil {
		t.Fatalf("RecordClose error: %v", err)
	}

	records, err := s.RecentClosed("myproj", 5)
	if err != nil {
		t.Fatalf("RecentClosed error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	rec := records[0]
	if !rec.CloseCompliance {
		t.Error("CloseCompliance should round-trip")
	}
	if rec.Summary != "worked on auth" {
		t.Errorf("Summary = %q", rec.Summary)
	}
	if rec.EndedAt == nil {
		t.Error("EndedAt should be set")
	}
	if len(rec.Threads) != 1 {
		t.Fatalf("got %d embedded threads, want 1", len(rec.Threads))
	}
	// The blob comes back as decoded JSON; normalization recovers it.
	got := thread.NormalizeLegacy(rec.Threads, rec.ID, now)
	if len(got) != 1 || got[0].Text != "fix auth timeout" {
		t.Errorf("normalized threads = %+v", got)
	}
}

func TestRecordClose_LegacyStringShapesSurvive(t *testing.T) {
	s := newTestStore(t)

	err := s.RecordClose(CloseParams{
		ID:              "sess-legacy",
		CloseCompliance: true,
		Threads: []any{
			`{"id":"t-05a7ecb6","status":"open","note":"Phase 2 release pending"}`,
			"plain follow-up item",
		},
	})
	if err != nil {
		t.Fatalf("RecordClose error: %v", err)
	}

	records, err := s.RecentClosed("", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || len(records[0].Threads) != 2 {
		t.Fatalf("records = %+v", records)
	}
	if _, ok := records[0].Threads[0].(string); !ok {
		t.Error("legacy string entries must come back as strings")
	}
}

func TestRecordClose_WithoutStartStillLands(t *testing.T) {
	s := newTestStore(t)
	if err := s.RecordClose(CloseParams{ID: "never-started", Project: "p"}); err != nil {
		t.Fatalf("RecordClose error: %v", err)
	}
	records, _ := s.RecentClosed("p", 5)
	if len(records) != 1 {
		t.Errorf("got %d records, want 1", len(records))
	}
}

func TestRecentClosed_ExcludesOpenSessions(t *testing.T) {
	s := newTestStore(t)
	if err := s.Start("still-open", "p"); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordClose(CloseParams{ID: "closed", Project: "p"}); err != nil {
		t.Fatal(err)
	}

	records, err := s.RecentClosed("p", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].ID != "closed" {
		t.Errorf("records = %+v, want only the closed session", records)
	}
}

func TestRecentClosed_RespectsLimitAndProject(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"a", "b", "c"} {
		if err := s.RecordClose(CloseParams{ID: id, Project: "p1"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.RecordClose(CloseParams{ID: "other", Project: "p2"}); err != nil {
		t.Fatal(err)
	}

	records, err := s.RecentClosed("p1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Errorf("got %d records, want limit 2", len(records))
	}
	for _, rec := range records {
		if rec.Project != "p1" {
			t.Errorf("project = %q, want p1", rec.Project)
		}
	}
}

func TestRecordClose_NonCompliantFlagPersists(t *testing.T) {
	s := newTestStore(t)
	if err := s.RecordClose(CloseParams{
		ID:              "sloppy",
		CloseCompliance: false,
		Threads:         []any{"orphaned item"},
	}); err != nil {
		t.Fatal(err)
	}

	records, _ := s.RecentClosed("", 5)
	if len(records) != 1 {
		t.Fatal("record missing")
	}
	if records[0].CloseCompliance {
		t.Error("CloseCompliance should be false")
	}
}
