package models

import (
	"time"
)

// DoctorBreak represents a same-day break. A break with no doctor is
// practice-wide and applies to every doctor on its date.
type DoctorBreak struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	DoctorID  *uint     `gorm:"index" json:"doctor_id,omitempty"` // nil = practice-wide
	Date      time.Time `gorm:"type:date;not null;index" json:"date"`
	StartTime string    `gorm:"size:5;not null" json:"start_time"` // "12:00"
	EndTime   string    `gorm:"size:5;not null" json:"end_time"`   // "13:00"
	Reason    string    `gorm:"size:200" json:"reason"`
	IsActive  bool      `gorm:"default:true;index" json:"is_active"`

	// Relationships
	Doctor *Clinician `gorm:"foreignKey:DoctorID" json:"-"`
}

// TableName specifies the table name for DoctorBreak model
func (DoctorBreak) TableName() string {
	return "doctor_breaks"
}

// IsPracticeWide reports whether the break affects every doctor
func (b *DoctorBreak) IsPracticeWide() bool {
	return b.DoctorID == nil
}

// AppliesTo checks whether the break affects the given doctor
func (b *DoctorBreak) AppliesTo(doctorID uint) bool {
	return b.DoctorID == nil || *b.DoctorID == doctorID
}

// Interval materializes the break as a concrete interval in the given location
func (b *DoctorBreak) Interval(loc *time.Location) (time.Time, time.Time) {
	return CombineDayTime(b.Date, b.StartTime, loc), CombineDayTime(b.Date, b.EndTime, loc)
}

// Blocks checks if the break overlaps a half-open interval
func (b *DoctorBreak) Blocks(start, end time.Time, loc *time.Location) bool {
	bs, be := b.Interval(loc)
	return Overlaps(bs, be, start, end)
}
