package models

import (
	"time"

	"gorm.io/gorm"
)

// AppointmentType represents a configurable appointment type
type AppointmentType struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name            string `gorm:"size:100;not null" json:"name"` // "Checkup", "Follow-up"
	DurationMinutes *int   `json:"duration_minutes,omitempty"`    // Default slot length, nullable
	Color           string `gorm:"size:7;default:'#3B82F6'" json:"color"`
	IsActive        bool   `gorm:"default:true;index" json:"is_active"`

	// Relationships
	Appointments []Appointment `gorm:"foreignKey:TypeID" json:"appointments,omitempty"`
}

// TableName specifies the table name
func (AppointmentType) TableName() string {
	return "appointment_types"
}

// Default appointment types for a new practice
var DefaultAppointmentTypes = []struct {
	Name            string
	DurationMinutes int
	Color           string
}{
	{"Checkup", 30, "#3B82F6"},
	{"Follow-up", 15, "#10B981"},
	{"Consultation", 45, "#8B5CF6"},
	{"Vaccination", 10, "#F59E0B"},
}

// CreateDefaultAppointmentTypes creates the default types for a practice
func CreateDefaultAppointmentTypes(db *gorm.DB) error {
	for _, t := range DefaultAppointmentTypes {
		duration := t.DurationMinutes
		apt := &AppointmentType{
			Name:            t.Name,
			DurationMinutes: &duration,
			Color:           t.Color,
			IsActive:        true,
		}
		if err := db.Create(apt).Error; err != nil {
			return err
		}
	}
	return nil
}
