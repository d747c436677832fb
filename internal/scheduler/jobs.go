package scheduler

import (
	"context"

	"campusweb/internal/calendar"
	appLog "campusweb/internal/log"
)

// ReloadJob reloads the calendar table from src.
func ReloadJob(svc *calendar.Service, src calendar.Source) Job {
	return func(ctx context.Context) error {
		return svc.Reload(ctx, src)
	}
}

// StalenessJob warns when the calendar has not been updated within the
// configured threshold.
func StalenessJob(svc *calendar.Service) Job {
	return func(context.Context) error {
		t := svc.Table()
		if t == nil {
			appLog.Warn("calendar: no data loaded")
			return nil
		}
		if svc.Stale() {
			appLog.Warn("calendar: data is stale",
				"last_updated", t.LastUpdated.String(),
				"days_old", svc.Today().DaysSince(t.LastUpdated),
				"threshold_days", svc.StaleAfterDays(),
			)
		}
		return nil
	}
}

// Sweeper is a store that can drop expired entries.
type Sweeper interface {
	Sweep() int
	Len() int
}

// SweepJob removes expired sessions from an in-memory store.
func SweepJob(store Sweeper) Job {
	return func(context.Context) error {
		if n := store.Sweep(); n > 0 {
			appLog.Debug("sessions: expired entries removed", "count", n, "remaining", store.Len())
		}
		return nil
	}
}
