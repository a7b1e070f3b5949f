package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Appointment status constants
const (
	AppointmentStatusScheduled = "SCHEDULED"
	AppointmentStatusConfirmed = "CONFIRMED"
	AppointmentStatusCancelled = "CANCELLED"
	AppointmentStatusCompleted = "COMPLETED"
)

// Appointment represents a scheduled appointment between a doctor and a patient.
// The patient lives in an external master-data store and is referenced by id.
type Appointment struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PatientID uint `gorm:"not null;index" json:"patient_id"`

	// Appointment Type
	TypeID *uint            `gorm:"index" json:"type_id,omitempty"`
	Type   *AppointmentType `gorm:"foreignKey:TypeID" json:"type,omitempty"`

	// Doctor relationship
	DoctorID uint      `gorm:"not null;index" json:"doctor_id"`
	Doctor   Clinician `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`

	// Schedule (stored UTC, half-open [StartTime, EndTime))
	StartTime time.Time `gorm:"not null;index" json:"start_time"`
	EndTime   time.Time `gorm:"not null;index" json:"end_time"`

	// Status
	Status   string `gorm:"size:20;default:'SCHEDULED';index" json:"status"`
	IsNoShow bool   `gorm:"default:false" json:"is_no_show"`

	// Public access token (for reschedule/cancel via link)
	BookingToken string `gorm:"type:uuid;uniqueIndex;not null" json:"booking_token"`

	Notes *string `gorm:"type:text" json:"notes,omitempty"`

	// Relationships
	Resources []Resource `gorm:"many2many:appointment_resources;" json:"resources,omitempty"`
}

// BeforeCreate hook to generate the booking token
func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.BookingToken == "" {
		a.BookingToken = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for Appointment model
func (Appointment) TableName() string {
	return "appointments"
}

// IsValidAppointmentStatus checks if the status is valid
func IsValidAppointmentStatus(status string) bool {
	switch status {
	case AppointmentStatusScheduled, AppointmentStatusConfirmed,
		AppointmentStatusCancelled, AppointmentStatusCompleted:
		return true
	}
	return false
}

// Blocks reports whether the appointment occupies its interval for
// conflict purposes. Cancelled and no-show appointments never block.
func (a *Appointment) Blocks() bool {
	return a.Status != AppointmentStatusCancelled && !a.IsNoShow
}

// IsCancellable checks if the appointment can be cancelled
func (a *Appointment) IsCancellable() bool {
	return a.Status == AppointmentStatusScheduled || a.Status == AppointmentStatusConfirmed
}

// IsEditable checks if the appointment can be modified
func (a *Appointment) IsEditable() bool {
	return a.Status == AppointmentStatusScheduled || a.Status == AppointmentStatusConfirmed
}

// Duration returns the duration of the appointment in minutes
func (a *Appointment) Duration() int {
	return int(a.EndTime.Sub(a.StartTime).Minutes())
}

// AppointmentResource is the join row linking an appointment to a booked
// resource. The pair is unique; a resource attaches at most once.
type AppointmentResource struct {
	AppointmentID uint `gorm:"primarykey" json:"appointment_id"`
	ResourceID    uint `gorm:"primarykey" json:"resource_id"`
}

// TableName specifies the table name for AppointmentResource model
func (AppointmentResource) TableName() string {
	return "appointment_resources"
}
