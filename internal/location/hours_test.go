package location_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/carefinder/carefinder/internal/location"
)

// monday returns 2024-01-15 (a Monday) at hh:mm UTC.
func monday(hh, mm int) time.Time {
	return time.Date(2024, time.January, 15, hh, mm, 0, 0, time.UTC)
}

func TestWeekdayKey(t *testing.T) {
	assert.Equal(t, "sun", location.WeekdayKey(time.Sunday))
	assert.Equal(t, "mon", location.WeekdayKey(time.Monday))
	assert.Equal(t, "sat", location.WeekdayKey(time.Saturday))
}

func TestIsOpenNow(t *testing.T) {
	tests := []struct {
		name     string
		schedule location.HoursSchedule
		at       time.Time
		expected bool
	}{
		{
			name:     "nil schedule is closed",
			schedule: nil,
			at:       monday(12, 0),
			expected: false,
		},
		{
			name:     "no entry for weekday is closed",
			schedule: location.HoursSchedule{"tue": {{"00:00", "12:00"}}},
			at:       monday(10, 0),
			expected: false,
		},
		{
			name:     "empty day is closed",
			schedule: location.HoursSchedule{"mon": {}},
			at:       monday(10, 0),
			expected: false,
		},
		{
			name:     "opening minute is inclusive",
			schedule: location.HoursSchedule{"mon": {{"09:00", "17:00"}}},
			at:       monday(9, 0),
			expected: true,
		},
		{
			name:     "last minute before close",
			schedule: location.HoursSchedule{"mon": {{"09:00", "17:00"}}},
			at:       monday(16, 59),
			expected: true,
		},
		{
			name:     "closing minute is exclusive",
			schedule: location.HoursSchedule{"mon": {{"09:00", "17:00"}}},
			at:       monday(17, 0),
			expected: false,
		},
		{
			name:     "overnight before midnight",
			schedule: location.HoursSchedule{"mon": {{"22:00", "02:00"}}},
			at:       monday(23, 30),
			expected: true,
		},
		{
			name:     "overnight after midnight",
			schedule: location.HoursSchedule{"mon": {{"22:00", "02:00"}}},
			at:       monday(1, 30),
			expected: true,
		},
		{
			name:     "overnight at noon",
			schedule: location.HoursSchedule{"mon": {{"22:00", "02:00"}}},
			at:       monday(12, 0),
			expected: false,
		},
		{
			name:     "second interval matches",
			schedule: location.HoursSchedule{"mon": {{"08:00", "10:00"}, {"17:00", "19:00"}}},
			at:       monday(18, 15),
			expected: true,
		},
		{
			name:     "between intervals",
			schedule: location.HoursSchedule{"mon": {{"08:00", "10:00"}, {"17:00", "19:00"}}},
			at:       monday(12, 0),
			expected: false,
		},
		{
			name:     "missing minute defaults to zero",
			schedule: location.HoursSchedule{"mon": {{"9", "17"}}},
			at:       monday(9, 0),
			expected: true,
		},
		{
			name:     "trailing text after the hour is ignored",
			schedule: location.HoursSchedule{"mon": {{"9am", "17h30"}}},
			at:       monday(10, 30),
			expected: true,
		},
		{
			name:     "trailing text after the minute is ignored",
			schedule: location.HoursSchedule{"mon": {{"09:00", "17:30pm"}}},
			at:       monday(17, 15),
			expected: true,
		},
		{
			name:     "non-numeric minute counts as zero",
			schedule: location.HoursSchedule{"mon": {{"09:xx", "10:00"}}},
			at:       monday(9, 0),
			expected: true,
		},
		{
			name:     "non-numeric interval never matches",
			schedule: location.HoursSchedule{"mon": {{"noon", "late"}}},
			at:       monday(12, 0),
			expected: false,
		},
		{
			name:     "malformed interval does not hide a valid one",
			schedule: location.HoursSchedule{"mon": {{"xx", "17:00"}, {"09:00", "17:00"}}},
			at:       monday(12, 0),
			expected: true,
		},
		{
			name:     "24:00 wraps to midnight",
			schedule: location.HoursSchedule{"mon": {{"20:00", "24:00"}}},
			at:       monday(21, 0),
			expected: true,
		},
		{
			name:     "overflowing hour wraps modulo a day",
			schedule: location.HoursSchedule{"mon": {{"33:00", "35:00"}}},
			at:       monday(9, 30),
			expected: true,
		},
		{
			name:     "negative hour wraps modulo a day",
			schedule: location.HoursSchedule{"mon": {{"-2:00", "23:00"}}},
			at:       monday(22, 30),
			expected: true,
		},
		{
			name:     "zero-length interval is closed",
			schedule: location.HoursSchedule{"mon": {{"10:00", "10:00"}}},
			at:       monday(10, 0),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, location.IsOpenNow(tt.schedule, tt.at))
		})
	}
}

func TestIsOpenNow_UsesCalendarDayOfTimeZone(t *testing.T) {
	toronto, err := time.LoadLocation("America/Toronto")
	if err != nil {
		t.Skip("tzdata not available")
	}

	// 02:00 UTC on Tuesday is 21:00 Monday in Toronto.
	at := time.Date(2024, time.January, 16, 2, 0, 0, 0, time.UTC)
	schedule := location.HoursSchedule{"mon": {{"20:00", "22:00"}}}

	assert.False(t, location.IsOpenNow(schedule, at))
	assert.True(t, location.IsOpenNow(schedule, at.In(toronto)))
}
