// Package timefmt renders stage durations and timestamps.
//
// Two duration formatters exist on purpose: Duration is used for completed
// stages and rounds the seconds remainder to a whole number past one minute,
// LiveDuration backs the running counter and keeps one decimal there.
package timefmt

import (
	"fmt"
	"math"
	"time"
)

// Duration formats a completed stage's duration. Non-positive input yields "".
func Duration(seconds float64) string {
	if math.IsNaN(seconds) || seconds <= 0 {
		return ""
	}
	if seconds < 1 {
		return fmt.Sprintf("%dms", int64(math.Round(seconds*1000)))
	}
	if seconds < 60 {
		return fmt.Sprintf("%.1fs", seconds)
	}
	mins := int64(math.Floor(seconds / 60))
	secs := int64(math.Round(math.Mod(seconds, 60)))
	return fmt.Sprintf("%dm %ds", mins, secs)
}

// LiveDuration formats the running elapsed counter. Non-positive input yields "0.0s".
func LiveDuration(seconds float64) string {
	if math.IsNaN(seconds) || seconds <= 0 {
		return "0.0s"
	}
	if seconds < 1 {
		return fmt.Sprintf("%.0fms", seconds*1000)
	}
	if seconds < 60 {
		return fmt.Sprintf("%.1fs", seconds)
	}
	mins := int64(math.Floor(seconds / 60))
	return fmt.Sprintf("%dm %.1fs", mins, math.Mod(seconds, 60))
}

// Timestamp renders epoch seconds as local wall-clock HH:MM:SS.d.
func Timestamp(epoch float64) (string, bool) {
	return TimestampIn(epoch, time.Local)
}

// TimestampIn is Timestamp for an explicit location. Zero or NaN input reports false.
func TimestampIn(epoch float64, loc *time.Location) (string, bool) {
	if epoch == 0 || math.IsNaN(epoch) || math.IsInf(epoch, 0) {
		return "", false
	}
	if loc == nil {
		loc = time.Local
	}
	t := time.UnixMilli(int64(math.Floor(epoch * 1000))).In(loc)
	tenths := t.Nanosecond() / int(time.Millisecond) / 100
	return fmt.Sprintf("%s.%d", t.Format("15:04:05"), tenths), true
}

// Seconds converts a time.Time into fractional epoch seconds.
func Seconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
