package thread

import (
	"math"
	"time"
)

// Vitality band boundaries. These are contract constants: the triage
// surface and its tests assert against them exactly.
const (
	ActiveThreshold  = 0.5
	CoolingThreshold = 0.2
)

// Scoring weights. Recency dominates; frequency rewards repeated
// engagement but saturates after ~5 touches so a single old burst of
// activity cannot keep an item in the active band forever.
const (
	recencyWeight       = 0.8
	frequencyWeight     = 0.2
	frequencySaturation = 5.0
)

// DefaultHalfLifeDays is the decay half-life for the default ("backlog")
// thread class.
const DefaultHalfLifeDays = 21.0

// DefaultHalfLives maps thread classes to decay half-lives in days.
// Unknown classes fall back to the backlog curve.
func DefaultHalfLives() map[string]float64 {
	return map[string]float64{
		"backlog":  DefaultHalfLifeDays,
		"incident": 7,
		"research": 45,
	}
}

// Vitality scores how alive a thread is, in [0,1].
//
// recency decays exponentially with the class half-life:
// 2^(-days/halfLife). frequency is 1 - 2^(-touches/saturation).
// Computed in Go rather than SQL because modernc.org/sqlite lacks pow().
// Pure function: no I/O, deterministic given inputs.
func Vitality(halfLifeDays, daysSinceTouch float64, touchCount int) float64 {
	if halfLifeDays <= 0 {
		halfLifeDays = DefaultHalfLifeDays
	}
	if daysSinceTouch < 0 {
		daysSinceTouch = 0
	}
	if touchCount < 0 {
		touchCount = 0
	}

	recency := math.Exp2(-daysSinceTouch / halfLifeDays)
	frequency := 1 - math.Exp2(-float64(touchCount)/frequencySaturation)

	score := recencyWeight*recency + frequencyWeight*frequency
	return math.Min(1, math.Max(0, score))
}

// DaysSince returns the elapsed time from t to now in fractional days.
func DaysSince(t, now time.Time) float64 {
	return now.Sub(t).Hours() / 24
}
