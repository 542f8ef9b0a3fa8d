package alerts

import (
	"testing"
	"time"

	"github.com/csmblade/panfm-go-rewrite/internal/models"
	"github.com/stretchr/testify/assert"
)

func window(recurrence models.Recurrence, start, end time.Time) models.MaintenanceWindow {
	return models.MaintenanceWindow{Start: start, End: end, Recurrence: recurrence, Enabled: true}
}

func TestInMaintenanceWindowOnce(t *testing.T) {
	start := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	w := window(models.RecurrenceOnce, start, end)

	assert.True(t, InMaintenanceWindow([]models.MaintenanceWindow{w}, start.Add(30*time.Minute)))
	assert.False(t, InMaintenanceWindow([]models.MaintenanceWindow{w}, end.Add(time.Minute)))
}

func TestInMaintenanceWindowDaily(t *testing.T) {
	start := time.Date(2000, 1, 1, 22, 0, 0, 0, time.UTC)
	end := time.Date(2000, 1, 1, 23, 0, 0, 0, time.UTC)
	w := window(models.RecurrenceDaily, start, end)

	inside := time.Date(2026, 8, 5, 22, 30, 0, 0, time.UTC)
	outside := time.Date(2026, 8, 5, 12, 0, 0, 0, time.UTC)
	assert.True(t, InMaintenanceWindow([]models.MaintenanceWindow{w}, inside))
	assert.False(t, InMaintenanceWindow([]models.MaintenanceWindow{w}, outside))
}

func TestInMaintenanceWindowDailySpanningMidnightNeverMatchesPastMidnight(t *testing.T) {
	start := time.Date(2000, 1, 1, 23, 0, 0, 0, time.UTC)
	end := time.Date(2000, 1, 1, 1, 0, 0, 0, time.UTC)
	w := window(models.RecurrenceDaily, start, end)

	afterMidnight := time.Date(2026, 8, 5, 0, 30, 0, 0, time.UTC)
	assert.False(t, InMaintenanceWindow([]models.MaintenanceWindow{w}, afterMidnight))
}

func TestInMaintenanceWindowWeeklyRequiresMatchingWeekday(t *testing.T) {
	// 2026-08-03 is a Monday.
	start := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)
	w := window(models.RecurrenceWeekly, start, end)

	sameWeekdayNextWeek := time.Date(2026, 8, 10, 9, 30, 0, 0, time.UTC)
	differentWeekday := time.Date(2026, 8, 11, 9, 30, 0, 0, time.UTC)
	assert.True(t, InMaintenanceWindow([]models.MaintenanceWindow{w}, sameWeekdayNextWeek))
	assert.False(t, InMaintenanceWindow([]models.MaintenanceWindow{w}, differentWeekday))
}

func TestInMaintenanceWindowDisabledNeverMatches(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 1, 23, 59, 0, 0, time.UTC)
	w := window(models.RecurrenceOnce, start, end)
	w.Enabled = false
	assert.False(t, InMaintenanceWindow([]models.MaintenanceWindow{w}, start.Add(time.Hour)))
}
