package engine

import (
	"time"

	"tendril/internal/thread"
)

// TriageEntry pairs a thread with its computed vitality for review.
type TriageEntry struct {
	Thread   thread.Thread `json:"thread"`
	Vitality float64       `json:"vitality"`
}

// TriageReport buckets every non-terminal thread by lifecycle state.
type TriageReport struct {
	Emerging []TriageEntry `json:"emerging"`
	Active   []TriageEntry `json:"active"`
	Cooling  []TriageEntry `json:"cooling"`
	Dormant  []TriageEntry `json:"dormant"`

	// Updated carries threads whose dormancy bookkeeping changed during
	// classification (dormant_since set or cleared) and should be
	// persisted by the caller.
	Updated []thread.Thread `json:"-"`
}

// Reporter buckets threads for human/agent review and drives bulk
// archival of long-dormant items.
type Reporter struct {
	classifier *thread.Classifier
}

// NewReporter creates a Reporter using the given classifier.
func NewReporter(classifier *thread.Classifier) *Reporter {
	if classifier == nil {
		classifier = thread.NewClassifier()
	}
	return &Reporter{classifier: classifier}
}

// Triage classifies every non-terminal thread and groups it by
// lifecycle state. Threads whose classifier output is archived land in
// the dormant bucket here — promoting them to persisted archived status
// is AutoArchive's job, and plain triage must not hide them.
func (r *Reporter) Triage(threads []thread.Thread, now time.Time) TriageReport {
	var report TriageReport
	for _, t := range threads {
		if t.Status.Terminal() {
			continue
		}
		cls := r.classifier.Classify(t, now)
		if updated, changed := applyBookkeeping(t, cls, now); changed {
			report.Updated = append(report.Updated, updated)
			t = updated
		}

		entry := TriageEntry{Thread: t, Vitality: cls.Vitality}
		switch cls.Status {
		case thread.LifecycleEmerging:
			report.Emerging = append(report.Emerging, entry)
		case thread.LifecycleActive:
			report.Active = append(report.Active, entry)
		case thread.LifecycleCooling:
			report.Cooling = append(report.Cooling, entry)
		default:
			report.Dormant = append(report.Dormant, entry)
		}
	}
	return report
}

// AutoArchive transitions every thread whose classification is archived
// (dormant for 30+ days) to persisted archived status. It returns the
// archived copies and the surviving set; the caller persists both and
// runs Triage over the survivors.
func (r *Reporter) AutoArchive(threads []thread.Thread, now time.Time) (archived, remaining []thread.Thread) {
	for _, t := range threads {
		if t.Status.Terminal() {
			remaining = append(remaining, t)
			continue
		}
		if cls := r.classifier.Classify(t, now); cls.Status == thread.LifecycleArchived {
			t.Status = thread.StatusArchived
			archived = append(archived, t)
			continue
		}
		remaining = append(remaining, t)
	}
	return archived, remaining
}

// applyBookkeeping folds the classifier's dormancy signals into a copy
// of the thread.
func applyBookkeeping(t thread.Thread, cls thread.Classification, now time.Time) (thread.Thread, bool) {
	switch {
	case cls.MarkDormant:
		since := now
		t.DormantSince = &since
		return t, true
	case cls.ClearDormant:
		t.DormantSince = nil
		return t, true
	}
	return t, false
}
