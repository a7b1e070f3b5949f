package services

import (
	"clinic_flow_app_go/models"
	"errors"
	"time"

	"gorm.io/gorm"
)

// PatientFlowInput links a new flow to exactly one booking
type PatientFlowInput struct {
	AppointmentID *uint
	OperationID   *uint
	ArrivalTime   *time.Time
}

// CreatePatientFlow registers a patient's visit against an appointment or
// an operation. The flow starts in REGISTERED.
func CreatePatientFlow(db *gorm.DB, actor *models.Clinician, input PatientFlowInput, now time.Time) (*models.PatientFlow, error) {
	flow := models.PatientFlow{
		AppointmentID:   input.AppointmentID,
		OperationID:     input.OperationID,
		Status:          models.FlowStatusRegistered,
		ArrivalTime:     input.ArrivalTime,
		StatusChangedAt: now,
	}
	if !flow.IsValidLink() {
		return nil, &InvalidDataError{Field: "appointment_id", Message: "exactly one of appointment_id or operation_id is required"}
	}

	if flow.AppointmentID != nil {
		var apt models.Appointment
		if err := db.First(&apt, "id = ?", *flow.AppointmentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, &NotFoundError{Model: "Appointment", ID: *flow.AppointmentID}
			}
			return nil, err
		}
	} else {
		var op models.Operation
		if err := db.First(&op, "id = ?", *flow.OperationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, &NotFoundError{Model: "Operation", ID: *flow.OperationID}
			}
			return nil, err
		}
	}

	if err := AuthorizePatientFlowAccess(db, actor, &flow, VerbWrite); err != nil {
		return nil, err
	}

	if err := db.Create(&flow).Error; err != nil {
		return nil, err
	}
	return &flow, nil
}

// UpdatePatientFlowStatus moves a flow forward. Backwards movement is
// rejected and DONE is terminal. Every accepted transition stamps
// status_changed_at and emits an audit event.
func UpdatePatientFlowStatus(db *gorm.DB, actor *models.Clinician, id uint, toStatus string, now time.Time) (*models.PatientFlow, error) {
	if !models.IsValidFlowStatus(toStatus) {
		return nil, &InvalidDataError{Field: "status", Message: "unknown status"}
	}

	var flow models.PatientFlow
	if err := db.First(&flow, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Model: "PatientFlow", ID: id}
		}
		return nil, err
	}
	if err := AuthorizePatientFlowAccess(db, actor, &flow, VerbWrite); err != nil {
		return nil, err
	}

	if !flow.CanTransition(toStatus) {
		return nil, &InvalidTransitionError{From: flow.Status, To: toStatus}
	}

	updates := map[string]interface{}{
		"status":            toStatus,
		"status_changed_at": now,
	}
	// First forward movement past REGISTERED marks the arrival.
	if flow.ArrivalTime == nil && toStatus != models.FlowStatusRegistered {
		updates["arrival_time"] = now
	}
	if err := db.Model(&flow).Updates(updates).Error; err != nil {
		return nil, err
	}

	patientID := flowPatientID(db, &flow)
	auditActor(db, actor, models.AuditPatientFlowStatusUpdate, patientID, map[string]interface{}{
		"patient_flow_id": flow.ID,
		"from":            flow.Status,
		"to":              toStatus,
	})

	flow.Status = toStatus
	flow.StatusChangedAt = now
	return &flow, nil
}

// flowPatientID resolves the patient behind the linked booking, best-effort
func flowPatientID(db *gorm.DB, flow *models.PatientFlow) *uint {
	if flow.AppointmentID != nil {
		var apt models.Appointment
		if err := db.First(&apt, "id = ?", *flow.AppointmentID).Error; err == nil {
			return &apt.PatientID
		}
	} else if flow.OperationID != nil {
		var op models.Operation
		if err := db.First(&op, "id = ?", *flow.OperationID).Error; err == nil {
			return &op.PatientID
		}
	}
	return nil
}

// GetPatientFlow fetches one flow with its linked booking
func GetPatientFlow(db *gorm.DB, actor *models.Clinician, id uint) (*models.PatientFlow, error) {
	var flow models.PatientFlow
	err := db.Preload("Appointment").Preload("Operation").First(&flow, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Model: "PatientFlow", ID: id}
		}
		return nil, err
	}
	if err := AuthorizePatientFlowAccess(db, actor, &flow, VerbRead); err != nil {
		return nil, err
	}
	return &flow, nil
}

// ListActivePatientFlows returns flows that have not reached DONE, oldest
// change first, so the board shows who has been waiting longest.
func ListActivePatientFlows(db *gorm.DB, actor *models.Clinician) ([]models.PatientFlow, error) {
	if err := Authorize(actor, DomainPatientFlow, VerbRead); err != nil {
		return nil, err
	}

	var flows []models.PatientFlow
	err := db.Preload("Appointment").Preload("Operation").
		Where("status != ?", models.FlowStatusDone).
		Order("status_changed_at, id").
		Find(&flows).Error
	if err != nil {
		return nil, err
	}

	if ScopeIsAll(actor, DomainPatientFlow, VerbRead) {
		return flows, nil
	}
	owned := flows[:0]
	for i := range flows {
		if AuthorizePatientFlowAccess(db, actor, &flows[i], VerbRead) == nil {
			owned = append(owned, flows[i])
		}
	}
	return owned, nil
}
