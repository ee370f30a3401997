package thread

import (
	"testing"
	"time"
)

// ─── Vitality bands ─────────────────────────────────────────────────────────

func TestVitality_TouchedTodayIsActive(t *testing.T) {
	score := Vitality(DefaultHalfLifeDays, 0, 1)
	if score <= ActiveThreshold {
		t.Errorf("score = %.3f, want > %.2f (active band)", score, ActiveThreshold)
	}
}

func TestVitality_ThreeWeeksOldIsCooling(t *testing.T) {
	score := Vitality(DefaultHalfLifeDays, 21, 1)
	if score < CoolingThreshold || score > ActiveThreshold {
		t.Errorf("score = %.3f, want in [%.2f, %.2f] (cooling band)", score, CoolingThreshold, ActiveThreshold)
	}
}

func TestVitality_TwoMonthsOldIsDormant(t *testing.T) {
	score := Vitality(DefaultHalfLifeDays, 60, 1)
	if score >= CoolingThreshold {
		t.Errorf("score = %.3f, want < %.2f (dormant band)", score, CoolingThreshold)
	}
}

func TestVitality_OldBurstCannotStayActive(t *testing.T) {
	// A huge touch count from months ago must not keep the item in the
	// active band: frequency saturates, recency dominates.
	score := Vitality(DefaultHalfLifeDays, 60, 500)
	if score >= ActiveThreshold {
		t.Errorf("score = %.3f, want < %.2f despite 500 touches", score, ActiveThreshold)
	}
}

func TestVitality_FrequencySaturates(t *testing.T) {
	at10 := Vitality(DefaultHalfLifeDays, 10, 10)
	at100 := Vitality(DefaultHalfLifeDays, 10, 100)
	if gain := at100 - at10; gain > 0.05 {
		t.Errorf("going 10 → 100 touches gained %.3f, want diminishing returns", gain)
	}
}

func TestVitality_Bounds(t *testing.T) {
	tests := []struct {
		name     string
		halfLife float64
		days     float64
		touches  int
	}{
		{"fresh heavy", 21, 0, 1000},
		{"ancient", 21, 10000, 0},
		{"negative days", 21, -5, 1},
		{"zero half-life falls back", 0, 10, 1},
		{"negative touches", 21, 10, -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := Vitality(tt.halfLife, tt.days, tt.touches)
			if score < 0 || score > 1 {
				t.Errorf("score = %.3f, want in [0,1]", score)
			}
		})
	}
}

func TestVitality_Deterministic(t *testing.T) {
	a := Vitality(21, 14, 3)
	b := Vitality(21, 14, 3)
	if a != b {
		t.Errorf("same inputs gave %.6f and %.6f", a, b)
	}
}

func TestVitality_MonotonicInRecency(t *testing.T) {
	prev := 2.0
	for days := 0.0; days <= 90; days += 7 {
		score := Vitality(DefaultHalfLifeDays, days, 1)
		if score >= prev {
			t.Errorf("score at %v days = %.3f, not decreasing (prev %.3f)", days, score, prev)
		}
		prev = score
	}
}

// ─── Half-life table ────────────────────────────────────────────────────────

func TestDefaultHalfLives_IncludesBacklog(t *testing.T) {
	hl := DefaultHalfLives()
	if hl["backlog"] != DefaultHalfLifeDays {
		t.Errorf("backlog half-life = %v, want %v", hl["backlog"], DefaultHalfLifeDays)
	}
}

func TestVitality_ShorterHalfLifeDecaysFaster(t *testing.T) {
	incident := Vitality(7, 14, 1)
	backlog := Vitality(21, 14, 1)
	if incident >= backlog {
		t.Errorf("incident score %.3f >= backlog score %.3f at 14 days", incident, backlog)
	}
}

func TestDaysSince(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	then := now.Add(-36 * time.Hour)
	if got := DaysSince(then, now); got != 1.5 {
		t.Errorf("DaysSince = %v, want 1.5", got)
	}
}
