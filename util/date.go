package util

import (
	"fmt"
	"time"
)

// TimeFormat is the datetime layout used in command params and schedules.
const TimeFormat = "2006-01-02 15:04:05"

func FormatTime(t time.Time) string {
	return t.Format(TimeFormat)
}

func ParseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimeFormat, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q, expect %s", s, TimeFormat)
	}
	return t, nil
}

// DaysBetween lists the calendar days from start to end inclusive, each
// truncated to midnight. End before start gives an empty list.
func DaysBetween(start, end time.Time) []time.Time {
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	last := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location())
	days := make([]time.Time, 0)
	for !day.After(last) {
		days = append(days, day)
		day = day.AddDate(0, 0, 1)
	}
	return days
}
