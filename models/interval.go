package models

import "time"

// Overlaps reports whether two half-open intervals [aStart, aEnd) and
// [bStart, bEnd) overlap. Touching edges (aEnd == bStart) do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// TimeSlot represents a bookable time window
type TimeSlot struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// Overlaps checks this slot against another half-open interval
func (s TimeSlot) Overlaps(start, end time.Time) bool {
	return Overlaps(s.StartTime, s.EndTime, start, end)
}

// WeekdayIndex converts a time to the practice weekday convention (0=Monday ... 6=Sunday)
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// DayStart returns midnight of t's day in the given location
func DayStart(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// CombineDayTime places an "HH:MM" clock string onto a specific day in loc.
// Invalid clock strings yield the day start.
func CombineDayTime(day time.Time, clock string, loc *time.Location) time.Time {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return DayStart(day, loc)
	}
	local := day.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), parsed.Hour(), parsed.Minute(), 0, 0, loc)
}
