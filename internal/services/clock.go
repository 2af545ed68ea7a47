package services

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Clock abstracts "now" so the same-day rule is deterministic in tests and
// the timezone policy is explicit configuration instead of ambient state.
type Clock interface {
	Now() time.Time
}

type systemClock struct {
	loc *time.Location
}

func (c *systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// NewSystemClock returns a Clock in the named timezone. An empty or invalid
// name falls back to server local time, matching the historical behavior.
func NewSystemClock(tz string) Clock {
	loc := time.Local
	if tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			logrus.Warnf("Unknown timezone %q, falling back to server local time", tz)
		} else {
			loc = parsed
		}
	}
	return &systemClock{loc: loc}
}

// StartOfDay truncates t to midnight in its own location
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
