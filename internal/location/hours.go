package location

import (
	"strconv"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// weekdayKeys is indexed by time.Weekday (Sunday = 0).
var weekdayKeys = [7]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// WeekdayKey returns the schedule key for d.
func WeekdayKey(d time.Weekday) string {
	return weekdayKeys[d]
}

// IsOpenNow reports whether schedule has an interval on now's calendar day
// that contains now's minute of day. A nil schedule, a missing day or an
// unparsable interval all count as closed. The day is taken in now's own
// location, so callers should convert now to the locations' time zone.
func IsOpenNow(schedule HoursSchedule, now time.Time) bool {
	if schedule == nil {
		return false
	}

	intervals := schedule[WeekdayKey(now.Weekday())]
	if len(intervals) == 0 {
		return false
	}

	current := now.Hour()*60 + now.Minute()
	for _, iv := range intervals {
		start, ok := clockMinutes(iv[0])
		if !ok {
			continue
		}
		end, ok := clockMinutes(iv[1])
		if !ok {
			continue
		}
		if intervalContains(start, end, current) {
			return true
		}
	}
	return false
}

// intervalContains treats [start, end) as half-open; start > end wraps past midnight.
func intervalContains(start, end, current int) bool {
	if start <= end {
		return current >= start && current < end
	}
	return current >= start || current < end
}

// clockMinutes converts "HH:MM" to minutes since midnight, wrapped into
// [0, 1440). Each part is read up to its first non-digit, so "9am" is hour 9.
// A missing or non-numeric minute part counts as 0; an hour with no leading
// digits makes the value unusable.
func clockMinutes(s string) (int, bool) {
	hourPart, minutePart, _ := strings.Cut(strings.TrimSpace(s), ":")
	hour, ok := leadingInt(hourPart)
	if !ok {
		return 0, false
	}

	minute, ok := leadingInt(minutePart)
	if !ok {
		minute = 0
	}

	total := (hour*60 + minute) % minutesPerDay
	if total < 0 {
		total += minutesPerDay
	}
	return total, true
}

// leadingInt parses an optionally signed run of digits at the start of s.
func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
