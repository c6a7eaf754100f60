// internal/admission/quiethours.go
package admission

import (
	"fmt"
	"time"
)

// InQuietHours reports whether now falls inside the [start, end) local-time
// window. A wrapped window (start > end, e.g. 22:00-06:00) covers two arcs:
// now >= start OR now < end. Times are "15:04" wall-clock strings in the
// recipient's timezone.
func InQuietHours(now time.Time, loc *time.Location, start, end string) (bool, error) {
	if start == "" || end == "" {
		return false, nil
	}

	startMin, err := parseClock(start)
	if err != nil {
		return false, fmt.Errorf("quiet hours start: %w", err)
	}
	endMin, err := parseClock(end)
	if err != nil {
		return false, fmt.Errorf("quiet hours end: %w", err)
	}

	local := now.In(loc)
	nowMin := local.Hour()*60 + local.Minute()

	if startMin == endMin {
		return false, nil
	}
	if startMin < endMin {
		return nowMin >= startMin && nowMin < endMin, nil
	}
	// Wraparound across midnight.
	return nowMin >= startMin || nowMin < endMin, nil
}

// RecipientLocation resolves an IANA zone name, defaulting to UTC when the
// name is empty or unknown.
func RecipientLocation(timezone string) *time.Location {
	if timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
