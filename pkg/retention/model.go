// Package retention implements the forgetting-curve model that decides how
// important a memory remains over time.
//
// The model combines two decay terms in the spirit of the Ebbinghaus curve:
// an access-recency term R(t) = e^(-t/S) whose strength S grows with every
// retrieval, and a linear age term that erodes 1% per day of existence down
// to a hard 10% floor. Scoring is pure: given the same record state and
// clock, the result is always the same.
package retention

import (
	"math"
	"time"
)

const (
	// defaultStrengthPerAccess is how much each retrieval slows decay.
	defaultStrengthPerAccess = 0.5

	// defaultAgeDecayPerDay is the linear decay applied per day of age.
	defaultAgeDecayPerDay = 0.01

	// defaultAgeDecayFloor is the minimum age multiplier. Even a very old
	// memory keeps 10% of its access-based importance.
	defaultAgeDecayFloor = 0.1

	// MaxImportance is the upper bound on any importance value.
	MaxImportance = 2.0
)

// Model computes importance scores for memory records.
//
// The zero value is not usable; construct with NewModel.
type Model struct {
	strengthPerAccess float64
	ageDecayPerDay    float64
	ageDecayFloor     float64
}

// NewModel creates a retention model with the standard curve parameters:
// strength grows by 0.5 per access, age erodes importance by 1% per day
// with a 10% floor.
func NewModel() *Model {
	return &Model{
		strengthPerAccess: defaultStrengthPerAccess,
		ageDecayPerDay:    defaultAgeDecayPerDay,
		ageDecayFloor:     defaultAgeDecayFloor,
	}
}

// Score computes a record's current importance.
//
// The computation, with all times truncated to whole days:
//
//	S = 1 + 0.5 * accessCount
//	R = 1.0 if daysSinceAccess == 0, else e^(-daysSinceAccess / S)
//	age = max(0.1, 1 - 0.01 * daysSinceCreation)
//	score = clamp(baseImportance * R * age, 0.0, 2.0)
//
// Score is monotonically non-increasing in time since last access when the
// other inputs are held fixed.
//
// Malformed bookkeeping (a zero createdAt or lastAccessedAt) returns
// baseImportance unchanged: a decay sweep skips the record rather than
// failing the whole pass.
func (m *Model) Score(createdAt, lastAccessedAt time.Time, accessCount int, baseImportance float64, now time.Time) float64 {
	if createdAt.IsZero() || lastAccessedAt.IsZero() {
		return baseImportance
	}

	daysSinceCreation := wholeDays(now.Sub(createdAt))
	daysSinceAccess := wholeDays(now.Sub(lastAccessedAt))

	strength := 1 + m.strengthPerAccess*float64(accessCount)

	retention := 1.0
	if daysSinceAccess != 0 {
		retention = math.Exp(-float64(daysSinceAccess) / strength)
	}

	importance := baseImportance * retention

	ageDecay := math.Max(m.ageDecayFloor, 1-m.ageDecayPerDay*float64(daysSinceCreation))

	return clamp(importance*ageDecay, 0, MaxImportance)
}

// wholeDays truncates to whole days. Negative durations (a timestamp ahead
// of now under clock skew) count as day zero so retention never exceeds 1.
func wholeDays(d time.Duration) int {
	if d < 0 {
		return 0
	}
	return int(d.Hours() / 24)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
