package rates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msviridov/ddu-penalty-bot/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTimeline_Lookup(t *testing.T) {
	tl := NewTimeline([]models.RateRecord{
		{Date: date(2025, time.January, 1), Rate: 0.21, Moratorium: false},
		{Date: date(2025, time.March, 10), Rate: 0.20, Moratorium: true},
	})

	tests := []struct {
		name      string
		query     time.Time
		wantRate  float64
		wantMorat bool
		wantOK    bool
	}{
		{
			name:     "точное совпадение даты",
			query:    date(2025, time.January, 1),
			wantRate: 0.21,
			wantOK:   true,
		},
		{
			name:     "дата между записями берет предыдущую",
			query:    date(2025, time.February, 15),
			wantRate: 0.21,
			wantOK:   true,
		},
		{
			name:      "дата после последней записи",
			query:     date(2025, time.December, 31),
			wantRate:  0.20,
			wantMorat: true,
			wantOK:    true,
		},
		{
			name:   "дата раньше всех записей",
			query:  date(2024, time.December, 31),
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := tl.Lookup(tt.query)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantRate, rec.Rate)
				assert.Equal(t, tt.wantMorat, rec.Moratorium)
			}
		})
	}
}

func TestTimeline_LookupDeterministic(t *testing.T) {
	tl := NewTimeline([]models.RateRecord{
		{Date: date(2025, time.January, 1), Rate: 0.21},
	})

	first, ok := tl.Lookup(date(2025, time.May, 20))
	require.True(t, ok)
	for i := 0; i < 10; i++ {
		rec, ok := tl.Lookup(date(2025, time.May, 20))
		require.True(t, ok)
		assert.Equal(t, first, rec)
	}
}

func TestTimeline_NormalizesTimestamps(t *testing.T) {
	// Запись с временем внутри дня должна находиться по календарной дате
	tl := NewTimeline([]models.RateRecord{
		{Date: time.Date(2025, time.January, 1, 15, 30, 0, 0, time.UTC), Rate: 0.16},
	})

	rec, ok := tl.Lookup(time.Date(2025, time.January, 1, 23, 59, 59, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, 0.16, rec.Rate)
}

func TestTimeline_Empty(t *testing.T) {
	tl := NewTimeline(nil)

	assert.Equal(t, 0, tl.Len())
	_, ok := tl.Lookup(date(2025, time.June, 1))
	assert.False(t, ok)
}
