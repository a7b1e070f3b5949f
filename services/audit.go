package services

import (
	"clinic_flow_app_go/models"
	"encoding/json"
	"log"
	"time"

	"gorm.io/gorm"
)

// EmitAudit appends an event to the audit trail. Writing is best-effort:
// failures are logged and never propagated, so an audit problem can never
// turn a successful operation into a failure. On the success path callers
// emit after their transaction has committed.
func EmitAudit(db *gorm.DB, actorID *uint, roleName, action string, patientID *uint, meta map[string]interface{}) {
	var metaJSON string
	if len(meta) > 0 {
		if bytes, err := json.Marshal(meta); err == nil {
			metaJSON = string(bytes)
		}
	}

	event := models.AuditEvent{
		ActorID:   actorID,
		RoleName:  roleName,
		Action:    action,
		PatientID: patientID,
		Meta:      metaJSON,
	}

	if err := db.Create(&event).Error; err != nil {
		log.Printf("[AUDIT] Failed to write audit event %s: %v", action, err)
	}
}

// auditActor emits an event attributed to a clinician
func auditActor(db *gorm.DB, actor *models.Clinician, action string, patientID *uint, meta map[string]interface{}) {
	if actor == nil {
		EmitAudit(db, nil, string(models.RoleUnknown), action, patientID, meta)
		return
	}
	EmitAudit(db, &actor.ID, actor.Role, action, patientID, meta)
}

// auditResourceBookingConflicts emits one resource_booking_conflict event
// per resource-kind conflict before a SchedulingConflictError is returned.
func auditResourceBookingConflicts(db *gorm.DB, actor *models.Clinician, patientID uint, conflicts []Conflict) {
	for _, conflict := range conflicts {
		if conflict.Kind != ConflictKindRoom && conflict.Kind != ConflictKindDevice {
			continue
		}
		meta := map[string]interface{}{
			"reason": conflict.Kind,
		}
		if conflict.ResourceID != nil {
			meta["resource_id"] = *conflict.ResourceID
		}
		switch conflict.Model {
		case ConflictModelAppointment:
			meta["appointment_id"] = conflict.ID
		case ConflictModelOperation:
			meta["operation_id"] = conflict.ID
		}
		auditActor(db, actor, models.AuditResourceBookingConflict, &patientID, meta)
	}
}

// AuditEventFilters contains filter options for audit queries
type AuditEventFilters struct {
	ActorID   *uint
	Action    string
	PatientID *uint
	DateFrom  time.Time
	DateTo    time.Time
}

// GetAuditEvents retrieves paginated audit events, newest first
func GetAuditEvents(db *gorm.DB, filters AuditEventFilters, page, pageSize int) ([]models.AuditEvent, int64, error) {
	query := db.Model(&models.AuditEvent{})

	if filters.ActorID != nil {
		query = query.Where("actor_id = ?", *filters.ActorID)
	}
	if filters.Action != "" {
		query = query.Where("action = ?", filters.Action)
	}
	if filters.PatientID != nil {
		query = query.Where("patient_id = ?", *filters.PatientID)
	}
	if !filters.DateFrom.IsZero() {
		query = query.Where("created_at >= ?", filters.DateFrom)
	}
	if !filters.DateTo.IsZero() {
		query = query.Where("created_at <= ?", filters.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var events []models.AuditEvent
	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&events).Error

	return events, total, err
}
