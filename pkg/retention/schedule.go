package retention

import (
	"math"
	"sort"
	"time"
)

// projectionDecayDays is the time constant of the extra exponential applied
// to projections. This is deliberately a different, coarser curve than the
// one used by decay sweeps: projections are an advisory "likely to be
// forgotten" preview, not a prediction of what a sweep will compute.
const projectionDecayDays = 30.0

// previewLen is the maximum number of characters in a content preview.
const previewLen = 100

// DefaultHorizons are the projection horizons, in days, used when the caller
// does not specify any.
var DefaultHorizons = []int{1, 7, 30}

// RecordState is the snapshot of a record's bookkeeping that projections are
// computed from.
type RecordState struct {
	ID             int64
	Content        string
	CreatedAt      time.Time
	LastAccessedAt time.Time
	AccessCount    int
	Importance     float64
}

// Projection is the projected importance of one record at a set of future
// horizons.
type Projection struct {
	// ID is the record's identifier.
	ID int64

	// ContentPreview is the first 100 characters of the record's content,
	// with "..." appended when truncated.
	ContentPreview string

	// CurrentImportance is the record's stored importance, rounded to
	// three decimals.
	CurrentImportance float64

	// Projected maps horizon days to the projected importance at that
	// horizon, rounded to three decimals.
	Projected map[int]float64

	// CreatedAt, LastAccessedAt and AccessCount echo the record state the
	// projection was computed from.
	CreatedAt      time.Time
	LastAccessedAt time.Time
	AccessCount    int
}

// ProjectSchedule computes projected importance for every record at the
// given horizons, ordered soonest-to-be-forgotten first (ascending by the
// 7-day projection, falling back to the first horizon when 7 is absent).
//
// Each projection is the record's current Score multiplied by an additional
// e^(-days/30) factor per horizon.
func (m *Model) ProjectSchedule(records []RecordState, horizons []int, now time.Time) []Projection {
	if len(horizons) == 0 {
		horizons = DefaultHorizons
	}

	sortKey := horizons[0]
	for _, h := range horizons {
		if h == 7 {
			sortKey = 7
			break
		}
	}

	schedule := make([]Projection, 0, len(records))
	for _, rec := range records {
		base := m.Score(rec.CreatedAt, rec.LastAccessedAt, rec.AccessCount, rec.Importance, now)

		projected := make(map[int]float64, len(horizons))
		for _, days := range horizons {
			projected[days] = round3(base * math.Exp(-float64(days)/projectionDecayDays))
		}

		schedule = append(schedule, Projection{
			ID:                rec.ID,
			ContentPreview:    preview(rec.Content),
			CurrentImportance: round3(rec.Importance),
			Projected:         projected,
			CreatedAt:         rec.CreatedAt,
			LastAccessedAt:    rec.LastAccessedAt,
			AccessCount:       rec.AccessCount,
		})
	}

	sort.SliceStable(schedule, func(i, j int) bool {
		return schedule[i].Projected[sortKey] < schedule[j].Projected[sortKey]
	})

	return schedule
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLen {
		return content
	}
	return string(runes[:previewLen]) + "..."
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
