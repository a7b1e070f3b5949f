package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOverlaps(t *testing.T) {
	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	m := func(minutes int) time.Time { return base.Add(time.Duration(minutes) * time.Minute) }

	t.Run("PartialOverlap", func(t *testing.T) {
		assert.True(t, Overlaps(m(0), m(30), m(15), m(45)))
		assert.True(t, Overlaps(m(15), m(45), m(0), m(30)))
	})

	t.Run("Containment", func(t *testing.T) {
		assert.True(t, Overlaps(m(0), m(60), m(15), m(30)))
		assert.True(t, Overlaps(m(15), m(30), m(0), m(60)))
	})

	t.Run("EdgeTouchDoesNotOverlap", func(t *testing.T) {
		assert.False(t, Overlaps(m(0), m(30), m(30), m(60)))
		assert.False(t, Overlaps(m(30), m(60), m(0), m(30)))
	})

	t.Run("Disjoint", func(t *testing.T) {
		assert.False(t, Overlaps(m(0), m(30), m(45), m(60)))
	})
}

func TestWeekdayIndex(t *testing.T) {
	// 2025-06-02 is a Monday
	monday := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		assert.Equal(t, i, WeekdayIndex(monday.AddDate(0, 0, i)))
	}
}

func TestCombineDayTime(t *testing.T) {
	day := time.Date(2025, 6, 2, 15, 30, 0, 0, time.UTC)

	t.Run("PlacesClockOnDay", func(t *testing.T) {
		got := CombineDayTime(day, "08:45", time.UTC)
		assert.Equal(t, time.Date(2025, 6, 2, 8, 45, 0, 0, time.UTC), got)
	})

	t.Run("InvalidClockFallsBackToMidnight", func(t *testing.T) {
		got := CombineDayTime(day, "bogus", time.UTC)
		assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), got)
	})
}

func TestPracticeHoursCovers(t *testing.T) {
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	window := PracticeHours{Weekday: 0, StartTime: "08:00", EndTime: "12:00", IsActive: true}

	at := func(hour, minute int) time.Time {
		return time.Date(2025, 6, 2, hour, minute, 0, 0, time.UTC)
	}

	t.Run("FullContainment", func(t *testing.T) {
		assert.True(t, window.Covers(day, at(8, 0), at(12, 0), time.UTC))
		assert.True(t, window.Covers(day, at(9, 0), at(9, 30), time.UTC))
	})

	t.Run("IntersectionIsNotCoverage", func(t *testing.T) {
		assert.False(t, window.Covers(day, at(11, 30), at(12, 30), time.UTC))
		assert.False(t, window.Covers(day, at(7, 30), at(8, 30), time.UTC))
	})

	t.Run("FullyOutside", func(t *testing.T) {
		assert.False(t, window.Covers(day, at(13, 0), at(14, 0), time.UTC))
	})
}
