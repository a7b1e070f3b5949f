package models

import (
	"time"
)

// PracticeHours represents a practice-wide opening window on a weekday.
// Weekday uses the practice convention: 0=Monday ... 6=Sunday.
type PracticeHours struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Weekday   int    `gorm:"not null;index" json:"weekday"`
	StartTime string `gorm:"size:5;not null" json:"start_time"` // "08:00"
	EndTime   string `gorm:"size:5;not null" json:"end_time"`   // "18:00"
	IsActive  bool   `gorm:"default:true;index" json:"is_active"`
}

// TableName specifies the table name for PracticeHours model
func (PracticeHours) TableName() string {
	return "practice_hours"
}

// WindowOn materializes the window on a concrete day in the given location
func (ph *PracticeHours) WindowOn(day time.Time, loc *time.Location) (time.Time, time.Time) {
	return CombineDayTime(day, ph.StartTime, loc), CombineDayTime(day, ph.EndTime, loc)
}

// Covers reports whether the window fully contains [start, end] on its day
func (ph *PracticeHours) Covers(day time.Time, start, end time.Time, loc *time.Location) bool {
	ws, we := ph.WindowOn(day, loc)
	return !ws.After(start) && !we.Before(end)
}
