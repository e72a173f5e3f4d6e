package ledger

import "time"

// All window arithmetic is calendar-day based, computed in UTC. A counter
// entry's Day is normalized to midnight UTC before comparison, so the sums
// and distances below are independent of entry order and of the time-of-day
// component of "now".

// DayUTC truncates t to its calendar day at midnight UTC.
func DayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from a to b (positive when
// b is later).
func DaysBetween(a, b time.Time) int {
	return int(DayUTC(b).Sub(DayUTC(a)).Hours() / 24)
}

// countsByDay folds a series into per-day counts. Duplicate days keep the
// max count; entries below 1 are treated as absent.
func countsByDay(entries []CounterEntry) map[time.Time]int {
	byDay := make(map[time.Time]int, len(entries))
	for _, e := range entries {
		if e.Count < 1 {
			continue
		}
		day := DayUTC(e.Day)
		if e.Count > byDay[day] {
			byDay[day] = e.Count
		}
	}
	return byDay
}

// RollingSum sums the daily counts whose day falls in the inclusive window
// [now − days, now].
func RollingSum(entries []CounterEntry, now time.Time, days int) int {
	sum := 0
	for day, count := range countsByDay(entries) {
		d := DaysBetween(day, now)
		if d >= 0 && d <= days {
			sum += count
		}
	}
	return sum
}

// LastActive returns the most recent day with a counted entry.
func LastActive(entries []CounterEntry) (time.Time, bool) {
	var last time.Time
	found := false
	for day := range countsByDay(entries) {
		if !found || day.After(last) {
			last = day
			found = true
		}
	}
	return last, found
}

// DaysSinceLast returns the calendar days since the most recent counted
// entry. ok is false when the series has no counted entries.
func DaysSinceLast(entries []CounterEntry, now time.Time) (int, bool) {
	last, ok := LastActive(entries)
	if !ok {
		return 0, false
	}
	return DaysBetween(last, now), true
}

// HoursSinceLast returns the hours elapsed from midnight UTC of the most
// recent counted entry's day to now.
func HoursSinceLast(entries []CounterEntry, now time.Time) (float64, bool) {
	last, ok := LastActive(entries)
	if !ok {
		return 0, false
	}
	return now.UTC().Sub(last).Hours(), true
}

// StreakLength counts the backward-consecutive run of counted days starting
// at two days before now. Today and yesterday are excluded on purpose:
// yesterday being empty is the broken-streak trigger, not part of the streak.
func StreakLength(entries []CounterEntry, now time.Time) int {
	byDay := countsByDay(entries)
	streak := 0
	for day := DayUTC(now).AddDate(0, 0, -2); ; day = day.AddDate(0, 0, -1) {
		if _, ok := byDay[day]; !ok {
			break
		}
		streak++
	}
	return streak
}

// HasEntryOn reports whether the series has a counted entry on the calendar
// day offset days from now (offset 0 = today, -1 = yesterday).
func HasEntryOn(entries []CounterEntry, now time.Time, offset int) bool {
	_, ok := countsByDay(entries)[DayUTC(now).AddDate(0, 0, offset)]
	return ok
}
