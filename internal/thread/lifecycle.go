package thread

import "time"

// Lifecycle classification windows.
const (
	// EmergingWindow protects newly created threads from vitality
	// scoring. The cut is exactly 24h: 23h59m old is still emerging,
	// 24h old is not.
	EmergingWindow = 24 * time.Hour

	// ArchiveAfter is how long a thread must sit dormant (anchored at
	// DormantSince) before the classifier recommends archival.
	ArchiveAfter = 30 * 24 * time.Hour
)

// Classification is the output of Classifier.Classify. It never mutates
// the thread; MarkDormant and ClearDormant tell the caller which
// bookkeeping updates to persist.
type Classification struct {
	Status   Lifecycle
	Vitality float64

	// MarkDormant signals that DormantSince should be set to now: the
	// thread just crossed into the dormant band for the first time.
	MarkDormant bool

	// ClearDormant signals that a touch revived the thread back into
	// the active band and DormantSince should be cleared.
	ClearDormant bool
}

// Classifier maps threads to lifecycle states using per-class decay
// half-lives.
type Classifier struct {
	// HalfLives maps thread class → decay half-life in days. Classes
	// not present use the backlog default.
	HalfLives map[string]float64
}

// NewClassifier returns a Classifier with the default half-life table.
func NewClassifier() *Classifier {
	return &Classifier{HalfLives: DefaultHalfLives()}
}

// halfLifeFor resolves the decay half-life for a thread class.
func (c *Classifier) halfLifeFor(class string) float64 {
	if c.HalfLives != nil {
		if hl, ok := c.HalfLives[class]; ok && hl > 0 {
			return hl
		}
	}
	return DefaultHalfLifeDays
}

// Classify derives the lifecycle state of a thread at the given instant.
//
// Terminal persisted statuses short-circuit: resolved and archived
// threads classify as themselves with vitality 0, regardless of what the
// scorer would say. Threads younger than EmergingWindow are emerging
// regardless of score. Otherwise the vitality bands apply, with the
// archival timer promoting long-dormant threads to an archived
// recommendation (the caller decides whether to act on it by mutating
// persisted status).
func (c *Classifier) Classify(t Thread, now time.Time) Classification {
	switch t.Status {
	case StatusResolved:
		return Classification{Status: LifecycleResolved}
	case StatusArchived:
		return Classification{Status: LifecycleArchived}
	}

	if now.Sub(t.CreatedAt) < EmergingWindow {
		return Classification{Status: LifecycleEmerging, Vitality: c.score(t, now)}
	}

	score := c.score(t, now)
	switch {
	case score >= ActiveThreshold:
		return Classification{
			Status:       LifecycleActive,
			Vitality:     score,
			ClearDormant: t.DormantSince != nil,
		}
	case score >= CoolingThreshold:
		return Classification{Status: LifecycleCooling, Vitality: score}
	default:
		// Missing DormantSince never triggers archival on its own,
		// however long the item has actually been dormant.
		if t.DormantSince != nil && now.Sub(*t.DormantSince) >= ArchiveAfter {
			return Classification{Status: LifecycleArchived, Vitality: score}
		}
		return Classification{
			Status:      LifecycleDormant,
			Vitality:    score,
			MarkDormant: t.DormantSince == nil,
		}
	}
}

func (c *Classifier) score(t Thread, now time.Time) float64 {
	return Vitality(c.halfLifeFor(t.Class), DaysSince(t.LastTouchedAt, now), t.TouchCount)
}
