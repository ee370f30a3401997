package engine

import (
	"strings"
	"time"

	"tendril/internal/thread"
)

// ResolveRequest locates one thread and asks for its open→resolved
// transition.
type ResolveRequest struct {
	ThreadID  string
	TextMatch string
	SessionID string
	Note      string
}

// Resolve finds a thread by exact id or, failing that, by
// case-insensitive substring match on text (first match wins), and
// returns a resolved copy.
//
// Returns found=false when nothing matches — a normal result, not an
// error. An already-terminal thread comes back unchanged with
// changed=false: resolution is idempotent and resolved_at /
// resolution_note are never overwritten.
//
// Cascade safety is structural: Resolve operates on the single matched
// value and never inspects the note for references to other threads, so
// a note like "duplicate of t-xxxx" cannot mutate t-xxxx whether it
// exists, doesn't, or is already resolved.
func Resolve(threads []thread.Thread, req ResolveRequest, now time.Time) (resolved thread.Thread, found, changed bool) {
	i, ok := findThread(threads, req.ThreadID, req.TextMatch)
	if !ok {
		return thread.Thread{}, false, false
	}

	t := threads[i]
	if t.Status.Terminal() {
		return t, true, false
	}

	t.Status = thread.StatusResolved
	resolvedAt := now
	t.ResolvedAt = &resolvedAt
	if req.Note != "" {
		t.ResolutionNote = req.Note
	}
	if req.SessionID != "" {
		t.ResolvedBySession = req.SessionID
	}
	return t, true, true
}

// findThread returns the index of the target thread. Exact id match
// takes priority over fuzzy text match.
func findThread(threads []thread.Thread, id, textMatch string) (int, bool) {
	if id != "" {
		for i := range threads {
			if threads[i].ID == id {
				return i, true
			}
		}
	}
	if textMatch != "" {
		needle := strings.ToLower(textMatch)
		for i := range threads {
			if strings.Contains(strings.ToLower(threads[i].Text), needle) {
				return i, true
			}
		}
	}
	return 0, false
}
