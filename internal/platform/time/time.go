// Package time contains time related helpers
package time

import (
	"math"
	"time"
)

// mjdEpoch is MJD 0, 1858-11-17T00:00:00Z
var mjdEpoch = time.Date(1858, time.November, 17, 0, 0, 0, 0, time.UTC)

const dayNanos = float64(24 * time.Hour)

// Ptr returns a pointer to t or nil if t is zero
func Ptr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// FromMJD converts a modified Julian date to UTC, rounded to the microsecond
// Leap seconds are ignored
func FromMJD(mjd float64) time.Time {
	days := math.Floor(mjd)
	frac := mjd - days
	t := mjdEpoch.AddDate(0, 0, int(days))
	return t.Add(time.Duration(math.Round(frac*dayNanos/1e3)) * time.Microsecond)
}

// ToMJD converts a time to a modified Julian date
func ToMJD(t time.Time) float64 {
	return float64(t.Sub(mjdEpoch)) / dayNanos
}

// ISO renders t as an ISO-8601 UTC timestamp with milliseconds
func ISO(t time.Time) string { return t.UTC().Format("2006-01-02T15:04:05.000Z") }

// Stamp renders t to the second, the form used for generation timestamps
func Stamp(t time.Time) string { return t.UTC().Format("2006-01-02T15:04:05") }
