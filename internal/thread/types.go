// Package thread defines the core thread model: open work items tracked
// across AI coding sessions, with lifecycle scoring and dedup semantics.
//
// Threads are value types. Mutating helpers (Touch, WithStatus) return a
// modified copy; callers persist the copy through the store layer. This
// keeps looked-up records immutable snapshots and prevents aliasing bugs
// across concurrent callers.
package thread

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Status is the persisted, coarse-grained state of a thread.
// It is monotonic: open → resolved or open → archived, never backward.
type Status string

const (
	StatusOpen     Status = "open"
	StatusResolved Status = "resolved"
	StatusArchived Status = "archived"
)

// Terminal reports whether the status can never change again.
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusArchived
}

// Lifecycle is the derived classification shown to users, distinct from
// the persisted Status. Emerging/active/cooling/dormant are all
// sub-classifications of persisted status = open.
type Lifecycle string

const (
	LifecycleEmerging Lifecycle = "emerging"
	LifecycleActive   Lifecycle = "active"
	LifecycleCooling  Lifecycle = "cooling"
	LifecycleDormant  Lifecycle = "dormant"
	LifecycleArchived Lifecycle = "archived"
	LifecycleResolved Lifecycle = "resolved"
)

// DefaultClass is the thread class assumed when none is recorded.
const DefaultClass = "backlog"

// Thread is a tracked open work item.
type Thread struct {
	ID                string     `json:"id"`
	Text              string     `json:"text"`
	Status            Status     `json:"status"`
	Class             string     `json:"thread_class,omitempty"`
	Project           string     `json:"project,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	LastTouchedAt     time.Time  `json:"last_touched_at"`
	TouchCount        int        `json:"touch_count"`
	DormantSince      *time.Time `json:"dormant_since,omitempty"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`
	ResolutionNote    string     `json:"resolution_note,omitempty"`
	ResolvedBySession string     `json:"resolved_by_session,omitempty"`
	SourceSession     string     `json:"source_session,omitempty"`
	LinearIssue       string     `json:"linear_issue,omitempty"`
	Embedding         []float64  `json:"embedding,omitempty"`
}

// NewID generates a fresh thread identifier ("t-" + 8 hex chars).
// IDs are opaque, generated once at creation, never reused.
func NewID() string {
	return "t-" + uuid.NewString()[:8]
}

// New creates an open thread with bookkeeping initialized.
func New(text, project string, now time.Time) Thread {
	return Thread{
		ID:            NewID(),
		Text:          text,
		Status:        StatusOpen,
		Class:         DefaultClass,
		Project:       project,
		CreatedAt:     now,
		LastTouchedAt: now,
		TouchCount:    1,
	}
}

// Touch returns a copy with recency/frequency bookkeeping updated.
// A touch that revives a dormant item clears the archival timer anchor.
func (t Thread) Touch(now time.Time) Thread {
	t.LastTouchedAt = now
	t.TouchCount++
	t.DormantSince = nil
	return t
}

// Completeness counts populated optional metadata fields. The merge logic
// uses it to prefer the more complete copy of a semantic item.
func (t Thread) Completeness() int {
	n := 0
	if t.ResolvedAt != nil {
		n++
	}
	for _, s := range []string{t.ResolutionNote, t.ResolvedBySession, t.SourceSession, t.LinearIssue, t.Project, t.Class} {
		if s != "" {
			n++
		}
	}
	if t.DormantSince != nil {
		n++
	}
	if len(t.Embedding) > 0 {
		n++
	}
	return n
}

// NormalizeText canonicalizes text for dedup comparison: case-fold,
// strip punctuation, collapse whitespace.
func NormalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
