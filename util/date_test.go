package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	parsed, err := ParseTime("2024-01-01 13:30:00")
	require.NoError(t, err)
	require.Equal(t, "2024-01-01 13:30:00", FormatTime(parsed))

	_, err = ParseTime("2024/01/01")
	require.Error(t, err)
}

func TestDaysBetween(t *testing.T) {
	start, _ := ParseTime("2024-01-01 10:00:00")
	end, _ := ParseTime("2024-01-05 02:00:00")

	days := DaysBetween(start, end)
	require.Len(t, days, 5)
	require.Equal(t, "2024-01-01 00:00:00", FormatTime(days[0]))
	require.Equal(t, "2024-01-05 00:00:00", FormatTime(days[4]))

	require.Len(t, DaysBetween(start, start), 1)
	require.Empty(t, DaysBetween(end, start))
}

func TestDaysBetweenMonthBoundary(t *testing.T) {
	start, _ := ParseTime("2024-02-27 00:00:00")
	end, _ := ParseTime("2024-03-01 00:00:00")

	days := DaysBetween(start, end)
	// 2024 is a leap year
	require.Len(t, days, 4)
	require.Equal(t, "2024-02-29 00:00:00", FormatTime(days[2]))
}

func TestNowRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	parsed, err := ParseTime(FormatTime(now))
	require.NoError(t, err)
	require.True(t, parsed.Equal(now))
}
