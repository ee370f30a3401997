package engine

import (
	"testing"
	"time"

	"tendril/internal/thread"
)

var mergeNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func openAt(id, text string) thread.Thread {
	return thread.Thread{
		ID:            id,
		Text:          text,
		Status:        thread.StatusOpen,
		Class:         thread.DefaultClass,
		CreatedAt:     mergeNow.Add(-48 * time.Hour),
		LastTouchedAt: mergeNow.Add(-48 * time.Hour),
		TouchCount:    1,
	}
}

func resolvedAt(id, text string) thread.Thread {
	t := openAt(id, text)
	t.Status = thread.StatusResolved
	r := mergeNow.Add(-time.Hour)
	t.ResolvedAt = &r
	t.ResolutionNote = "done"
	return t
}

// ─── Id-based ratchet ───────────────────────────────────────────────────────

func TestMerge_IncomingResolvedOverwritesOpen(t *testing.T) {
	got := Merge(
		[]thread.Thread{resolvedAt("t-x", "ship feature")},
		[]thread.Thread{openAt("t-x", "ship feature")},
	)
	if len(got) != 1 {
		t.Fatalf("got %d threads, want 1", len(got))
	}
	if got[0].Status != thread.StatusResolved {
		t.Errorf("status = %s, want resolved (ratchet forward)", got[0].Status)
	}
	if got[0].ResolutionNote != "done" {
		t.Error("resolved copy's metadata should survive")
	}
}

func TestMerge_IncomingOpenNeverReopensResolved(t *testing.T) {
	got := Merge(
		[]thread.Thread{openAt("t-x", "ship feature")},
		[]thread.Thread{resolvedAt("t-x", "ship feature")},
	)
	if len(got) != 1 {
		t.Fatalf("got %d threads, want 1", len(got))
	}
	if got[0].Status != thread.StatusResolved {
		t.Errorf("status = %s, the ratchet must never reverse", got[0].Status)
	}
}

func TestMerge_NewIdsAppended(t *testing.T) {
	got := Merge(
		[]thread.Thread{openAt("t-new", "new item")},
		[]thread.Thread{openAt("t-old", "old item")},
	)
	if len(got) != 2 {
		t.Fatalf("got %d threads, want 2", len(got))
	}
	if got[0].ID != "t-old" || got[1].ID != "t-new" {
		t.Errorf("order = %s, %s; current side should come first", got[0].ID, got[1].ID)
	}
}

func TestMerge_IncomingOpenDoesNotClobberOpen(t *testing.T) {
	current := openAt("t-x", "current text")
	current.TouchCount = 7
	got := Merge([]thread.Thread{openAt("t-x", "current text")}, []thread.Thread{current})
	if got[0].TouchCount != 7 {
		t.Error("open-over-open must keep the current copy")
	}
}

// ─── Text-based collapse ────────────────────────────────────────────────────

func TestMerge_CollapsesSameTextDifferentIds(t *testing.T) {
	got := Merge(
		[]thread.Thread{openAt("t-incoming", "Fix auth timeout")},
		[]thread.Thread{openAt("t-current", "fix auth timeout!")},
	)
	if len(got) != 1 {
		t.Fatalf("got %d threads, want 1", len(got))
	}
	if got[0].ID != "t-current" {
		t.Errorf("ID = %s, want the current-side id kept", got[0].ID)
	}
}

func TestDedupeByText_PrefersResolvedCopy(t *testing.T) {
	got := DedupeByText([]thread.Thread{
		openAt("t-a", "rotate keys"),
		resolvedAt("t-b", "Rotate Keys"),
	})
	if len(got) != 1 {
		t.Fatalf("got %d threads, want 1", len(got))
	}
	if got[0].ID != "t-a" {
		t.Errorf("ID = %s, want first-seen id", got[0].ID)
	}
	if got[0].Status != thread.StatusResolved {
		t.Errorf("status = %s, want the resolved copy's content", got[0].Status)
	}
}

func TestDedupeByText_PrefersMoreCompleteMetadata(t *testing.T) {
	rich := openAt("t-b", "audit licenses")
	rich.LinearIssue = "ENG-42"
	rich.SourceSession = "sess-1"

	got := DedupeByText([]thread.Thread{openAt("t-a", "audit licenses"), rich})
	if len(got) != 1 {
		t.Fatalf("got %d threads, want 1", len(got))
	}
	if got[0].LinearIssue != "ENG-42" {
		t.Error("the richer copy's metadata should win")
	}
	if got[0].ID != "t-a" {
		t.Errorf("ID = %s, want first-seen id", got[0].ID)
	}
}

func TestDedupeByText_EmptyTextNeverCollapses(t *testing.T) {
	got := DedupeByText([]thread.Thread{openAt("t-a", "?!"), openAt("t-b", "...")})
	if len(got) != 2 {
		t.Errorf("got %d threads, want 2 (punctuation-only text is not a key)", len(got))
	}
}

func TestMerge_EmptyInputs(t *testing.T) {
	if got := Merge(nil, nil); len(got) != 0 {
		t.Errorf("Merge(nil, nil) = %v", got)
	}
	one := []thread.Thread{openAt("t-a", "x")}
	if got := Merge(one, nil); len(got) != 1 {
		t.Errorf("incoming only: got %d", len(got))
	}
	if got := Merge(nil, one); len(got) != 1 {
		t.Errorf("current only: got %d", len(got))
	}
}
