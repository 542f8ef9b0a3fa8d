package app

import (
	"testing"
	"time"

	"github.com/csmblade/panfm-go-rewrite/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestScheduleDueFirstRunIsAlwaysDue(t *testing.T) {
	sc := models.ScheduledScan{Trigger: models.ScanTrigger{Kind: models.TriggerInterval, IntervalSec: 3600}}
	assert.True(t, scheduleDue(sc, time.Now()))
}

func TestScheduleDueIntervalRespectsElapsedTime(t *testing.T) {
	last := time.Now().Add(-30 * time.Minute)
	sc := models.ScheduledScan{
		Trigger:   models.ScanTrigger{Kind: models.TriggerInterval, IntervalSec: 3600},
		LastRunAt: &last,
	}
	assert.False(t, scheduleDue(sc, time.Now()))

	longAgo := time.Now().Add(-2 * time.Hour)
	sc.LastRunAt = &longAgo
	assert.True(t, scheduleDue(sc, time.Now()))
}

func TestScheduleDueDailyMatchesTimeOfDayOnce(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC)
	last := now.Add(-24 * time.Hour)
	sc := models.ScheduledScan{
		Trigger:   models.ScanTrigger{Kind: models.TriggerDaily, DailyAt: "09:30"},
		LastRunAt: &last,
	}
	assert.True(t, scheduleDue(sc, now))
}

func TestScheduleDueDailyDoesNotDoubleFireSameMinute(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC)
	sc := models.ScheduledScan{
		Trigger:   models.ScanTrigger{Kind: models.TriggerDaily, DailyAt: "09:30"},
		LastRunAt: &now,
	}
	assert.False(t, scheduleDue(sc, now))
}

func TestScheduleDueWeeklyRequiresMatchingWeekday(t *testing.T) {
	// 2026-08-03 is a Monday.
	monday := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)
	last := monday.Add(-7 * 24 * time.Hour)
	sc := models.ScheduledScan{
		Trigger:   models.ScanTrigger{Kind: models.TriggerWeekly, WeeklyDOW: time.Monday, WeeklyAt: "09:00"},
		LastRunAt: &last,
	}
	assert.True(t, scheduleDue(sc, monday))

	tuesday := monday.Add(24 * time.Hour)
	assert.False(t, scheduleDue(sc, tuesday))
}

func TestMatchesTimeOfDayInvalidFormatIsFalse(t *testing.T) {
	assert.False(t, matchesTimeOfDay("not-a-time", time.Now()))
}
