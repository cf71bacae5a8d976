package sql

import (
	"time"

	"github.com/syssam/velite"
)

// TimeLayout is the fixed UTC text form of timestamps stored as text.
const TimeLayout = "2006-01-02T15:04:05.0000000Z"

// Ticks count 100ns intervals since 0001-01-01T00:00:00Z.
const (
	ticksPerSecond = int64(time.Second / 100)
	unixEpochSecs  = int64(62135596800) // seconds from 0001-01-01 to 1970-01-01
)

// TimeToTicks converts t, normalized to UTC, into ticks.
func TimeToTicks(t time.Time) int64 {
	t = t.UTC()
	return (t.Unix()+unixEpochSecs)*ticksPerSecond + int64(t.Nanosecond())/100
}

// TicksToTime converts ticks into a UTC time.
func TicksToTime(ticks int64) time.Time {
	secs := ticks / ticksPerSecond
	rem := ticks % ticksPerSecond
	if rem < 0 {
		secs--
		rem += ticksPerSecond
	}
	return time.Unix(secs-unixEpochSecs, rem*100).UTC()
}

// DurationToTicks converts d into ticks, truncating below 100ns.
func DurationToTicks(d time.Duration) int64 { return int64(d / 100) }

// TicksToDuration converts ticks into a duration.
func TicksToDuration(ticks int64) time.Duration { return time.Duration(ticks) * 100 }

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string { return t.UTC().Format(TimeLayout) }

// textLayouts are the accepted text forms of timestamps, tried in order.
var textLayouts = []string{
	TimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// ParseTime parses a timestamp stored as text. Texts without a zone are
// taken as UTC.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range textLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, velite.NewUnsupportedTypeError("read", "time.Time", "cannot parse "+s)
}
