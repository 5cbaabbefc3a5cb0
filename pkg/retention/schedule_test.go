package retention_test

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/memorybank/memorybank-go/pkg/retention"
)

func TestProjectScheduleDefaultsAndProjection(t *testing.T) {
	m := retention.NewModel()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	records := []retention.RecordState{
		{ID: 1, Content: "fresh", CreatedAt: now, LastAccessedAt: now, AccessCount: 0, Importance: 1.0},
	}

	schedule := m.ProjectSchedule(records, nil, now)
	assert.Len(t, schedule, 1)

	p := schedule[0]
	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, 1.0, p.CurrentImportance)
	assert.Len(t, p.Projected, 3)

	// Fresh record scores 1.0 now; each horizon applies e^(-days/30),
	// rounded to three decimals.
	for _, days := range []int{1, 7, 30} {
		want := math.Round(math.Exp(-float64(days)/30.0)*1000) / 1000
		assert.Equal(t, want, p.Projected[days], "horizon %d", days)
	}
}

func TestProjectScheduleOrdersSoonestForgottenFirst(t *testing.T) {
	m := retention.NewModel()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	old := now.Add(-40 * 24 * time.Hour)

	records := []retention.RecordState{
		{ID: 1, Content: "fresh", CreatedAt: now, LastAccessedAt: now, Importance: 1.0},
		{ID: 2, Content: "stale", CreatedAt: old, LastAccessedAt: old, Importance: 1.0},
	}

	schedule := m.ProjectSchedule(records, nil, now)
	assert.Len(t, schedule, 2)
	assert.Equal(t, int64(2), schedule[0].ID, "the stale record should be projected to vanish first")
	assert.Equal(t, int64(1), schedule[1].ID)
	assert.LessOrEqual(t, schedule[0].Projected[7], schedule[1].Projected[7])
}

func TestProjectScheduleCustomHorizonsSortByFirst(t *testing.T) {
	m := retention.NewModel()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	old := now.Add(-20 * 24 * time.Hour)

	records := []retention.RecordState{
		{ID: 1, Content: "a", CreatedAt: now, LastAccessedAt: now, Importance: 1.0},
		{ID: 2, Content: "b", CreatedAt: old, LastAccessedAt: old, Importance: 1.0},
	}

	schedule := m.ProjectSchedule(records, []int{3, 14}, now)
	assert.Len(t, schedule, 2)
	for _, p := range schedule {
		assert.Len(t, p.Projected, 2)
		assert.Contains(t, p.Projected, 3)
		assert.Contains(t, p.Projected, 14)
	}
	assert.LessOrEqual(t, schedule[0].Projected[3], schedule[1].Projected[3])
}

func TestProjectSchedulePreviewTruncation(t *testing.T) {
	m := retention.NewModel()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	long := strings.Repeat("x", 150)
	records := []retention.RecordState{
		{ID: 1, Content: long, CreatedAt: now, LastAccessedAt: now, Importance: 1.0},
		{ID: 2, Content: "short", CreatedAt: now, LastAccessedAt: now, Importance: 1.0},
	}

	schedule := m.ProjectSchedule(records, nil, now)
	for _, p := range schedule {
		switch p.ID {
		case 1:
			assert.Equal(t, strings.Repeat("x", 100)+"...", p.ContentPreview)
		case 2:
			assert.Equal(t, "short", p.ContentPreview)
		}
	}
}

func TestProjectScheduleEmpty(t *testing.T) {
	m := retention.NewModel()
	schedule := m.ProjectSchedule(nil, nil, time.Now())
	assert.Empty(t, schedule)
}
