package models

import (
	"time"
)

// Operation status constants
const (
	OperationStatusPlanned   = "PLANNED"
	OperationStatusConfirmed = "CONFIRMED"
	OperationStatusRunning   = "RUNNING"
	OperationStatusDone      = "DONE"
	OperationStatusCancelled = "CANCELLED"
)

// Operation represents a surgical procedure with a team, a room, and devices.
// EndTime is always derived from StartTime plus the operation type's phase
// durations, never user-provided.
type Operation struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PatientID uint `gorm:"not null;index" json:"patient_id"`

	// Team
	PrimarySurgeonID uint       `gorm:"not null;index" json:"primary_surgeon_id"`
	PrimarySurgeon   Clinician  `gorm:"foreignKey:PrimarySurgeonID" json:"primary_surgeon,omitempty"`
	AssistantID      *uint      `gorm:"index" json:"assistant_id,omitempty"`
	Assistant        *Clinician `gorm:"foreignKey:AssistantID" json:"assistant,omitempty"`
	AnesthesistID    *uint      `gorm:"index" json:"anesthesist_id,omitempty"`
	Anesthesist      *Clinician `gorm:"foreignKey:AnesthesistID" json:"anesthesist,omitempty"`

	// Location and type
	OpRoomID uint          `gorm:"not null;index" json:"op_room_id"`
	OpRoom   Resource      `gorm:"foreignKey:OpRoomID" json:"op_room,omitempty"`
	OpTypeID uint          `gorm:"not null;index" json:"op_type_id"`
	OpType   OperationType `gorm:"foreignKey:OpTypeID" json:"op_type,omitempty"`

	// Schedule (stored UTC, half-open [StartTime, EndTime))
	StartTime time.Time `gorm:"not null;index" json:"start_time"`
	EndTime   time.Time `gorm:"not null;index" json:"end_time"`

	Status string  `gorm:"size:20;default:'PLANNED';index" json:"status"`
	Notes  *string `gorm:"type:text" json:"notes,omitempty"`

	// Relationships
	Devices []Resource `gorm:"many2many:operation_devices;" json:"devices,omitempty"`
}

// TableName specifies the table name for Operation model
func (Operation) TableName() string {
	return "operations"
}

// IsValidOperationStatus checks if the status is valid
func IsValidOperationStatus(status string) bool {
	switch status {
	case OperationStatusPlanned, OperationStatusConfirmed, OperationStatusRunning,
		OperationStatusDone, OperationStatusCancelled:
		return true
	}
	return false
}

// Blocks reports whether the operation occupies its interval for conflict
// purposes. Cancelled operations never block.
func (o *Operation) Blocks() bool {
	return o.Status != OperationStatusCancelled
}

// TeamMemberIDs returns the ids of all assigned team members
func (o *Operation) TeamMemberIDs() []uint {
	ids := []uint{o.PrimarySurgeonID}
	if o.AssistantID != nil {
		ids = append(ids, *o.AssistantID)
	}
	if o.AnesthesistID != nil {
		ids = append(ids, *o.AnesthesistID)
	}
	return ids
}

// HasTeamMember checks if the clinician appears in any team role
func (o *Operation) HasTeamMember(clinicianID uint) bool {
	for _, id := range o.TeamMemberIDs() {
		if id == clinicianID {
			return true
		}
	}
	return false
}

// CanTransition validates a status transition at the given time.
// planned -> confirmed -> running -> done; cancelled from anywhere;
// confirmed -> running only once the start time is reached.
func (o *Operation) CanTransition(to string, now time.Time) bool {
	if to == OperationStatusCancelled {
		return true
	}
	switch o.Status {
	case OperationStatusPlanned:
		return to == OperationStatusConfirmed
	case OperationStatusConfirmed:
		return to == OperationStatusRunning && !now.Before(o.StartTime)
	case OperationStatusRunning:
		return to == OperationStatusDone
	}
	return false
}

// Progress returns the completion ratio for a running operation, clamped
// to [0, 1]. All other states report 0.
func (o *Operation) Progress(now time.Time) float64 {
	if o.Status != OperationStatusRunning {
		return 0
	}
	total := o.EndTime.Sub(o.StartTime)
	if total <= 0 {
		return 0
	}
	ratio := float64(now.Sub(o.StartTime)) / float64(total)
	if ratio < 0 {
		return 0
	}
	if ratio > 1 {
		return 1
	}
	return ratio
}

// OperationDevice is the join row linking an operation to a booked device.
// The pair is unique; the resource must have type DEVICE.
type OperationDevice struct {
	OperationID uint `gorm:"primarykey" json:"operation_id"`
	ResourceID  uint `gorm:"primarykey" json:"resource_id"`
}

// TableName specifies the table name for OperationDevice model
func (OperationDevice) TableName() string {
	return "operation_devices"
}
