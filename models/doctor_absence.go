package models

import (
	"time"
)

// Absence reason constants
const (
	AbsenceReasonVacation = "VACATION"
	AbsenceReasonSick     = "SICK"
	AbsenceReasonTraining = "TRAINING"
	AbsenceReasonOther    = "OTHER"
)

// DoctorAbsence represents a date range when a doctor is away.
// StartDate and EndDate are inclusive calendar dates.
type DoctorAbsence struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	DoctorID  uint      `gorm:"not null;index" json:"doctor_id"`
	StartDate time.Time `gorm:"type:date;not null;index" json:"start_date"`
	EndDate   time.Time `gorm:"type:date;not null;index" json:"end_date"`
	Reason    string    `gorm:"size:20;default:'OTHER'" json:"reason"`
	IsActive  bool      `gorm:"default:true;index" json:"is_active"`

	// Relationships
	Doctor Clinician `gorm:"foreignKey:DoctorID" json:"-"`
}

// TableName specifies the table name for DoctorAbsence model
func (DoctorAbsence) TableName() string {
	return "doctor_absences"
}

// CoversDate checks if the absence covers a calendar day
func (a *DoctorAbsence) CoversDate(day time.Time) bool {
	d := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	s := time.Date(a.StartDate.Year(), a.StartDate.Month(), a.StartDate.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(a.EndDate.Year(), a.EndDate.Month(), a.EndDate.Day(), 0, 0, 0, 0, time.UTC)
	return !d.Before(s) && !d.After(e)
}

// WorkdaysCount returns the number of Mon-Fri days in the absence range
func (a *DoctorAbsence) WorkdaysCount() int {
	count := 0
	s := time.Date(a.StartDate.Year(), a.StartDate.Month(), a.StartDate.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(a.EndDate.Year(), a.EndDate.Month(), a.EndDate.Day(), 0, 0, 0, 0, time.UTC)
	for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			count++
		}
	}
	return count
}

// ReturnDate returns the next workday after the absence ends
func (a *DoctorAbsence) ReturnDate() time.Time {
	d := time.Date(a.EndDate.Year(), a.EndDate.Month(), a.EndDate.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// IsVacation reports whether the absence counts against the vacation allocation
func (a *DoctorAbsence) IsVacation() bool {
	return a.Reason == AbsenceReasonVacation
}
