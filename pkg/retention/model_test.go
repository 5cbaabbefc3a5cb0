package retention_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/memorybank/memorybank-go/pkg/retention"
)

func TestScoreSameDayKeepsFullRetention(t *testing.T) {
	m := retention.NewModel()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	// Accessed today: retention term is exactly 1.0, age term is 1.0.
	score := m.Score(now, now, 0, 1.0, now)
	assert.Equal(t, 1.0, score)

	// A few hours is still day zero.
	earlier := now.Add(-6 * time.Hour)
	score = m.Score(earlier, earlier, 0, 1.0, now)
	assert.Equal(t, 1.0, score)
}

func TestScoreDecaysWithDaysSinceAccess(t *testing.T) {
	m := retention.NewModel()
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	created := now.Add(-5 * 24 * time.Hour)
	accessed := now.Add(-3 * 24 * time.Hour)

	// strength = 1 + 0.5*2 = 2, retention = e^(-3/2), age = 1 - 0.05
	want := 1.0 * math.Exp(-3.0/2.0) * 0.95
	got := m.Score(created, accessed, 2, 1.0, now)
	assert.InDelta(t, want, got, 1e-12)
}

func TestScoreAccessCountSlowsDecay(t *testing.T) {
	m := retention.NewModel()
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	created := now.Add(-10 * 24 * time.Hour)
	accessed := now.Add(-5 * 24 * time.Hour)

	cold := m.Score(created, accessed, 0, 1.0, now)
	warm := m.Score(created, accessed, 10, 1.0, now)
	assert.Greater(t, warm, cold)
}

func TestScoreAgeDecayFloor(t *testing.T) {
	m := retention.NewModel()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	// 200 days old would give 1 - 2.0 = -1.0 without the floor.
	created := now.Add(-200 * 24 * time.Hour)

	// Accessed today, so only the age term applies.
	got := m.Score(created, now, 0, 1.0, now)
	assert.InDelta(t, 0.1, got, 1e-12)
}

func TestScoreOldUntouchedMemoryApproachesZero(t *testing.T) {
	m := retention.NewModel()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	created := now.Add(-100 * 24 * time.Hour)

	got := m.Score(created, created, 0, 1.0, now)
	assert.Less(t, got, 0.001)
	assert.GreaterOrEqual(t, got, 0.0)
}

func TestScoreMonotoneInTimeSinceAccess(t *testing.T) {
	m := retention.NewModel()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	accessed := created

	prev := math.Inf(1)
	for days := 0; days <= 60; days += 5 {
		now := accessed.Add(time.Duration(days) * 24 * time.Hour)
		score := m.Score(created, accessed, 3, 1.5, now)
		assert.LessOrEqual(t, score, prev, "score rose between day %d and the previous sample", days)
		prev = score
	}
}

func TestScoreClampsToMaxImportance(t *testing.T) {
	m := retention.NewModel()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	// Base above the cap, accessed today: nothing shrinks it, so the
	// clamp must.
	got := m.Score(now, now, 0, 5.0, now)
	assert.Equal(t, retention.MaxImportance, got)
}

func TestScoreFutureTimestampsCountAsDayZero(t *testing.T) {
	m := retention.NewModel()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	// A last-access timestamp ahead of now (clock skew between backends)
	// behaves like an access today: retention stays 1.0, never above.
	future := now.Add(30 * time.Hour)
	assert.Equal(t, 1.0, m.Score(now, future, 0, 1.0, now))

	// Both timestamps in the future reduce to the base importance.
	assert.Equal(t, 0.8, m.Score(future, future, 0, 0.8, now))
}

func TestScoreZeroTimestampsReturnBase(t *testing.T) {
	m := retention.NewModel()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0.7, m.Score(time.Time{}, now, 3, 0.7, now))
	assert.Equal(t, 0.7, m.Score(now, time.Time{}, 3, 0.7, now))
	// Even an out-of-range base passes through untouched.
	assert.Equal(t, 5.0, m.Score(time.Time{}, time.Time{}, 0, 5.0, now))
}
