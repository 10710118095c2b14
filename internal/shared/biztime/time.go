// Package biztime centralises wall-clock access so persisted timestamps are always UTC.
package biztime

import "time"

// NowUTC returns current time in UTC.
func NowUTC() time.Time {
	return time.Now().UTC()
}
