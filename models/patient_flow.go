package models

import (
	"time"
)

// PatientFlow status constants, in lifecycle order
const (
	FlowStatusRegistered    = "REGISTERED"
	FlowStatusWaiting       = "WAITING"
	FlowStatusPreparing     = "PREPARING"
	FlowStatusInTreatment   = "IN_TREATMENT"
	FlowStatusPostTreatment = "POST_TREATMENT"
	FlowStatusDone          = "DONE"
)

var flowStatusOrder = map[string]int{
	FlowStatusRegistered:    0,
	FlowStatusWaiting:       1,
	FlowStatusPreparing:     2,
	FlowStatusInTreatment:   3,
	FlowStatusPostTreatment: 4,
	FlowStatusDone:          5,
}

// PatientFlow tracks a patient's progress through a visit. It references
// exactly one of appointment or operation.
type PatientFlow struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	AppointmentID *uint        `gorm:"index" json:"appointment_id,omitempty"`
	Appointment   *Appointment `gorm:"foreignKey:AppointmentID" json:"appointment,omitempty"`
	OperationID   *uint        `gorm:"index" json:"operation_id,omitempty"`
	Operation     *Operation   `gorm:"foreignKey:OperationID" json:"operation,omitempty"`

	Status          string     `gorm:"size:20;default:'REGISTERED';index" json:"status"`
	ArrivalTime     *time.Time `json:"arrival_time,omitempty"`
	StatusChangedAt time.Time  `gorm:"not null" json:"status_changed_at"`
}

// TableName specifies the table name for PatientFlow model
func (PatientFlow) TableName() string {
	return "patient_flows"
}

// IsValidFlowStatus checks if the status is valid
func IsValidFlowStatus(status string) bool {
	_, ok := flowStatusOrder[status]
	return ok
}

// IsValidLink checks the exactly-one-of invariant
func (f *PatientFlow) IsValidLink() bool {
	return (f.AppointmentID != nil) != (f.OperationID != nil)
}

// CanTransition validates a flow transition. Movement is strictly forward;
// DONE is terminal.
func (f *PatientFlow) CanTransition(to string) bool {
	fromRank, ok := flowStatusOrder[f.Status]
	if !ok {
		return false
	}
	toRank, ok := flowStatusOrder[to]
	if !ok {
		return false
	}
	if f.Status == FlowStatusDone {
		return false
	}
	return toRank > fromRank
}
