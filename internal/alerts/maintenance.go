package alerts

import (
	"time"

	"github.com/csmblade/panfm-go-rewrite/internal/models"
)

// InMaintenanceWindow reports whether now falls inside any of the given
// windows, honoring each window's recurrence rule:
//   - once: now is between Start and End.
//   - daily: now's time-of-day is between Start and End's time-of-day.
//   - weekly: now's weekday equals Start's weekday, and the time-of-day
//     check above also holds.
//
// Daily/weekly windows compare only time-of-day, so a window spanning
// midnight (e.g. 23:00-01:00) never matches; operators should split such
// windows into two entries.
func InMaintenanceWindow(windows []models.MaintenanceWindow, now time.Time) bool {
	for _, w := range windows {
		if !w.Enabled {
			continue
		}
		switch w.Recurrence {
		case models.RecurrenceOnce:
			if !now.Before(w.Start) && !now.After(w.End) {
				return true
			}
		case models.RecurrenceDaily:
			if timeOfDayBetween(now, w.Start, w.End) {
				return true
			}
		case models.RecurrenceWeekly:
			if now.Weekday() == w.Start.Weekday() && timeOfDayBetween(now, w.Start, w.End) {
				return true
			}
		}
	}
	return false
}

func timeOfDayBetween(now, start, end time.Time) bool {
	toSeconds := func(t time.Time) int {
		return t.Hour()*3600 + t.Minute()*60 + t.Second()
	}
	n, s, e := toSeconds(now), toSeconds(start), toSeconds(end)
	return n >= s && n <= e
}
