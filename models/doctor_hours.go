package models

import (
	"time"
)

// DoctorHours represents a doctor's working window on a weekday.
// Weekday uses the practice convention: 0=Monday ... 6=Sunday.
// (doctor, weekday, start, end, active) is unique.
type DoctorHours struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	DoctorID  uint   `gorm:"not null;index;uniqueIndex:idx_doctor_hours_window" json:"doctor_id"`
	Weekday   int    `gorm:"not null;uniqueIndex:idx_doctor_hours_window" json:"weekday"`
	StartTime string `gorm:"size:5;not null;uniqueIndex:idx_doctor_hours_window" json:"start_time"`
	EndTime   string `gorm:"size:5;not null;uniqueIndex:idx_doctor_hours_window" json:"end_time"`
	IsActive  bool   `gorm:"default:true;uniqueIndex:idx_doctor_hours_window" json:"is_active"`

	// Relationships
	Doctor Clinician `gorm:"foreignKey:DoctorID" json:"-"`
}

// TableName specifies the table name for DoctorHours model
func (DoctorHours) TableName() string {
	return "doctor_hours"
}

// WindowOn materializes the window on a concrete day in the given location
func (dh *DoctorHours) WindowOn(day time.Time, loc *time.Location) (time.Time, time.Time) {
	return CombineDayTime(day, dh.StartTime, loc), CombineDayTime(day, dh.EndTime, loc)
}

// Covers reports whether the window fully contains [start, end] on its day
func (dh *DoctorHours) Covers(day time.Time, start, end time.Time, loc *time.Location) bool {
	ws, we := dh.WindowOn(day, loc)
	return !ws.After(start) && !we.Before(end)
}
