package services

import (
	"clinic_flow_app_go/config"
	"clinic_flow_app_go/models"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// OperationInput is the request payload for planning an operation. The end
// time is always derived from the operation type, never supplied.
type OperationInput struct {
	PatientID        uint
	PrimarySurgeonID uint
	AssistantID      *uint
	AnesthesistID    *uint
	OpRoomID         uint
	OpTypeID         uint
	StartTime        time.Time
	OpDeviceIDs      []uint
	Status           string
	Notes            *string
}

// OperationPatch carries partial updates; nil fields are left untouched
type OperationPatch struct {
	PatientID        *uint
	PrimarySurgeonID *uint
	AssistantID      *uint
	ClearAssistant   bool
	AnesthesistID    *uint
	ClearAnesthesist bool
	OpRoomID         *uint
	OpTypeID         *uint
	StartTime        *time.Time
	OpDeviceIDs      *[]uint
	Notes            *string
}

func validateOperationInput(input *OperationInput) error {
	if input.PatientID == 0 {
		return &InvalidDataError{Field: "patient_id", Message: "must be a positive integer"}
	}
	if input.PrimarySurgeonID == 0 {
		return &InvalidDataError{Field: "primary_surgeon_id", Message: "is required"}
	}
	if input.OpRoomID == 0 {
		return &InvalidDataError{Field: "op_room_id", Message: "is required"}
	}
	if input.OpTypeID == 0 {
		return &InvalidDataError{Field: "op_type_id", Message: "is required"}
	}
	if input.StartTime.IsZero() {
		return &InvalidDataError{Field: "start_time", Message: "is required"}
	}
	if input.Status == "" {
		input.Status = models.OperationStatusPlanned
	}
	if !models.IsValidOperationStatus(input.Status) {
		return &InvalidDataError{Field: "status", Message: "unknown status"}
	}
	return nil
}

// resolveOpRoom verifies the room reference is an active room resource
func resolveOpRoom(db *gorm.DB, roomID uint) (*models.Resource, error) {
	var room models.Resource
	if err := db.First(&room, "id = ?", roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &RoomInvalidError{ResourceID: roomID}
		}
		return nil, err
	}
	if !room.IsActive || !room.IsRoom() {
		return nil, &RoomInvalidError{ResourceID: roomID}
	}
	return &room, nil
}

// resolveOpDevices deduplicates and verifies each device reference
func resolveOpDevices(db *gorm.DB, deviceIDs []uint) ([]models.Resource, error) {
	seen := make(map[uint]bool, len(deviceIDs))
	devices := make([]models.Resource, 0, len(deviceIDs))
	for _, id := range deviceIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		var device models.Resource
		if err := db.First(&device, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, &DeviceInvalidError{ResourceID: id}
			}
			return nil, err
		}
		if !device.IsActive || !device.IsDevice() {
			return nil, &DeviceInvalidError{ResourceID: id}
		}
		devices = append(devices, device)
	}
	return devices, nil
}

// resolveTeam verifies every provided team member is an active doctor and
// returns the ids in role order: surgeon, assistant, anesthesist.
func resolveTeam(db *gorm.DB, surgeonID uint, assistantID, anesthesistID *uint) ([]uint, error) {
	teamIDs := []uint{surgeonID}
	if _, err := resolveActiveDoctor(db, surgeonID); err != nil {
		return nil, err
	}
	if assistantID != nil {
		if _, err := resolveActiveDoctor(db, *assistantID); err != nil {
			return nil, err
		}
		teamIDs = append(teamIDs, *assistantID)
	}
	if anesthesistID != nil {
		if _, err := resolveActiveDoctor(db, *anesthesistID); err != nil {
			return nil, err
		}
		teamIDs = append(teamIDs, *anesthesistID)
	}
	return teamIDs, nil
}

// checkOperationAvailability runs the oracle for the whole team. Working
// hours are enforced for the primary surgeon only; assistant and
// anesthesist are checked for absences and breaks.
func checkOperationAvailability(db *gorm.DB, cfg config.CoreConfig, teamIDs []uint, start, end time.Time) error {
	for i, memberID := range teamIDs {
		if err := checkDoctorAvailability(db, cfg, memberID, start, end, i == 0); err != nil {
			return err
		}
	}
	return nil
}

// PlanOperation runs the admission pipeline for a new operation inside one
// transaction. The end time is derived as start + prep + op + post.
func PlanOperation(ctx context.Context, db *gorm.DB, cfg config.CoreConfig, actor *models.Clinician, input OperationInput) (*models.Operation, error) {
	if err := validateOperationInput(&input); err != nil {
		return nil, err
	}
	if err := Authorize(actor, DomainOperations, VerbWrite); err != nil {
		return nil, err
	}

	var created models.Operation
	var conflictList []Conflict

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var opType models.OperationType
		if err := tx.First(&opType, "id = ? AND is_active = ?", input.OpTypeID, true).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Model: "OperationType", ID: input.OpTypeID}
			}
			return err
		}
		if opType.TotalMinutes() <= 0 {
			return &InvalidDataError{Field: "op_type_id", Message: "total duration must be positive"}
		}
		end := input.StartTime.Add(opType.TotalDuration())

		teamIDs, err := resolveTeam(tx, input.PrimarySurgeonID, input.AssistantID, input.AnesthesistID)
		if err != nil {
			return err
		}
		room, err := resolveOpRoom(tx, input.OpRoomID)
		if err != nil {
			return err
		}
		devices, err := resolveOpDevices(tx, input.OpDeviceIDs)
		if err != nil {
			return err
		}

		if err := checkOperationAvailability(tx, cfg, teamIDs, input.StartTime, end); err != nil {
			return err
		}

		conflicts, err := OperationConflicts(tx, input.PatientID, teamIDs, *room, devices, input.StartTime, end, 0)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			conflictList = conflicts
			return &SchedulingConflictError{Conflicts: conflicts}
		}

		created = models.Operation{
			PatientID:        input.PatientID,
			PrimarySurgeonID: input.PrimarySurgeonID,
			AssistantID:      input.AssistantID,
			AnesthesistID:    input.AnesthesistID,
			OpRoomID:         input.OpRoomID,
			OpTypeID:         input.OpTypeID,
			StartTime:        input.StartTime.UTC(),
			EndTime:          end.UTC(),
			Status:           input.Status,
			Notes:            sanitizeText(input.Notes),
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}

		if len(devices) > 0 {
			links := make([]models.OperationDevice, 0, len(devices))
			for _, d := range devices {
				links = append(links, models.OperationDevice{OperationID: created.ID, ResourceID: d.ID})
			}
			if err := tx.Create(&links).Error; err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		if ctx.Err() != nil {
			return nil, &CancelledError{}
		}
		if len(conflictList) > 0 {
			auditResourceBookingConflicts(db, actor, input.PatientID, conflictList)
		}
		return nil, err
	}

	auditActor(db, actor, models.AuditOperationCreate, &created.PatientID, map[string]interface{}{
		"operation_id": created.ID,
	})
	return &created, nil
}

// UpdateOperation re-runs the admission pipeline for a changed operation,
// excluding the operation itself from conflict checks. The end time is
// re-derived whenever start or type changes.
func UpdateOperation(ctx context.Context, db *gorm.DB, cfg config.CoreConfig, actor *models.Clinician, id uint, patch OperationPatch) (*models.Operation, error) {
	if err := Authorize(actor, DomainOperations, VerbWrite); err != nil {
		return nil, err
	}

	var existing models.Operation
	if err := db.First(&existing, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Model: "Operation", ID: id}
		}
		return nil, err
	}

	updated := existing
	if patch.PatientID != nil {
		updated.PatientID = *patch.PatientID
	}
	if patch.PrimarySurgeonID != nil {
		updated.PrimarySurgeonID = *patch.PrimarySurgeonID
	}
	if patch.ClearAssistant {
		updated.AssistantID = nil
	} else if patch.AssistantID != nil {
		updated.AssistantID = patch.AssistantID
	}
	if patch.ClearAnesthesist {
		updated.AnesthesistID = nil
	} else if patch.AnesthesistID != nil {
		updated.AnesthesistID = patch.AnesthesistID
	}
	if patch.OpRoomID != nil {
		updated.OpRoomID = *patch.OpRoomID
	}
	if patch.OpTypeID != nil {
		updated.OpTypeID = *patch.OpTypeID
	}
	if patch.StartTime != nil {
		updated.StartTime = patch.StartTime.UTC()
	}
	if patch.Notes != nil {
		updated.Notes = sanitizeText(patch.Notes)
	}
	if updated.PatientID == 0 {
		return nil, &InvalidDataError{Field: "patient_id", Message: "must be a positive integer"}
	}

	var conflictList []Conflict

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var opType models.OperationType
		if err := tx.First(&opType, "id = ?", updated.OpTypeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Model: "OperationType", ID: updated.OpTypeID}
			}
			return err
		}
		if opType.TotalMinutes() <= 0 {
			return &InvalidDataError{Field: "op_type_id", Message: "total duration must be positive"}
		}
		updated.EndTime = updated.StartTime.Add(opType.TotalDuration()).UTC()

		teamIDs, err := resolveTeam(tx, updated.PrimarySurgeonID, updated.AssistantID, updated.AnesthesistID)
		if err != nil {
			return err
		}
		room, err := resolveOpRoom(tx, updated.OpRoomID)
		if err != nil {
			return err
		}

		var devices []models.Resource
		if patch.OpDeviceIDs != nil {
			devices, err = resolveOpDevices(tx, *patch.OpDeviceIDs)
		} else {
			err = tx.Model(&existing).Association("Devices").Find(&devices)
		}
		if err != nil {
			return err
		}

		if err := checkOperationAvailability(tx, cfg, teamIDs, updated.StartTime, updated.EndTime); err != nil {
			return err
		}

		conflicts, err := OperationConflicts(tx, updated.PatientID, teamIDs, *room, devices, updated.StartTime, updated.EndTime, existing.ID)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			conflictList = conflicts
			return &SchedulingConflictError{Conflicts: conflicts}
		}

		if err := tx.Model(&models.Operation{}).Where("id = ?", existing.ID).
			Updates(map[string]interface{}{
				"patient_id":         updated.PatientID,
				"primary_surgeon_id": updated.PrimarySurgeonID,
				"assistant_id":       updated.AssistantID,
				"anesthesist_id":     updated.AnesthesistID,
				"op_room_id":         updated.OpRoomID,
				"op_type_id":         updated.OpTypeID,
				"start_time":         updated.StartTime,
				"end_time":           updated.EndTime,
				"notes":              updated.Notes,
			}).Error; err != nil {
			return err
		}

		if patch.OpDeviceIDs != nil {
			if err := tx.Where("operation_id = ?", existing.ID).Delete(&models.OperationDevice{}).Error; err != nil {
				return err
			}
			if len(devices) > 0 {
				links := make([]models.OperationDevice, 0, len(devices))
				for _, d := range devices {
					links = append(links, models.OperationDevice{OperationID: existing.ID, ResourceID: d.ID})
				}
				if err := tx.Create(&links).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})

	if err != nil {
		if ctx.Err() != nil {
			return nil, &CancelledError{}
		}
		if len(conflictList) > 0 {
			auditResourceBookingConflicts(db, actor, updated.PatientID, conflictList)
		}
		return nil, err
	}

	auditActor(db, actor, models.AuditOperationUpdate, &updated.PatientID, map[string]interface{}{
		"operation_id": existing.ID,
	})

	var reloaded models.Operation
	if err := db.Preload("Devices").First(&reloaded, "id = ?", existing.ID).Error; err != nil {
		return nil, err
	}
	return &reloaded, nil
}

// UpdateOperationStatus applies a lifecycle transition. Every attempt,
// accepted or rejected, emits an audit event with {from, to, ok, detail}.
func UpdateOperationStatus(db *gorm.DB, actor *models.Clinician, id uint, toStatus string, now time.Time) (*models.Operation, error) {
	if err := Authorize(actor, DomainOperationStatus, VerbWrite); err != nil {
		return nil, err
	}
	if !models.IsValidOperationStatus(toStatus) {
		return nil, &InvalidDataError{Field: "status", Message: "unknown status"}
	}

	var op models.Operation
	if err := db.First(&op, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Model: "Operation", ID: id}
		}
		return nil, err
	}

	emit := func(ok bool, detail string) {
		meta := map[string]interface{}{
			"operation_id": op.ID,
			"from":         op.Status,
			"to":           toStatus,
			"ok":           ok,
		}
		if detail != "" {
			meta["detail"] = detail
		}
		auditActor(db, actor, models.AuditOperationStatusUpdate, &op.PatientID, meta)
	}

	if !op.CanTransition(toStatus, now) {
		detail := ""
		switch {
		case toStatus == models.OperationStatusRunning && op.Status == models.OperationStatusConfirmed && now.Before(op.StartTime):
			detail = TransitionStartNotReached
		case toStatus == models.OperationStatusDone && op.Status != models.OperationStatusRunning:
			detail = TransitionDoneRequiresRunning
		}
		emit(false, detail)
		return nil, &InvalidTransitionError{From: op.Status, To: toStatus, Detail: detail}
	}

	if err := db.Model(&models.Operation{}).Where("id = ?", op.ID).
		Update("status", toStatus).Error; err != nil {
		return nil, err
	}
	emit(true, "")
	op.Status = toStatus
	return &op, nil
}

// GetOperation fetches one operation with visibility filtering
func GetOperation(db *gorm.DB, actor *models.Clinician, id uint) (*models.Operation, error) {
	var op models.Operation
	err := db.Preload("PrimarySurgeon").Preload("Assistant").Preload("Anesthesist").
		Preload("OpRoom").Preload("OpType").Preload("Devices").
		First(&op, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Model: "Operation", ID: id}
		}
		return nil, err
	}
	if err := AuthorizeOperationAccess(actor, &op, VerbRead); err != nil {
		return nil, err
	}
	return &op, nil
}

// ListOperations fetches operations in a range, filtered to the actor's
// visibility: doctors see only operations where they are on the team.
func ListOperations(db *gorm.DB, actor *models.Clinician, startDate, endDate time.Time) ([]models.Operation, error) {
	if err := Authorize(actor, DomainOperations, VerbRead); err != nil {
		return nil, err
	}

	query := db.Preload("PrimarySurgeon").Preload("OpRoom").Preload("OpType").Preload("Devices").
		Where("start_time < ? AND end_time > ?", endDate, startDate).
		Order("start_time, id")
	if !ScopeIsAll(actor, DomainOperations, VerbRead) {
		query = query.Where("primary_surgeon_id = ? OR assistant_id = ? OR anesthesist_id = ?",
			actor.ID, actor.ID, actor.ID)
	}

	var operations []models.Operation
	if err := query.Find(&operations).Error; err != nil {
		return nil, err
	}
	return operations, nil
}

// DeleteOperation removes an operation and its device links
func DeleteOperation(db *gorm.DB, actor *models.Clinician, id uint) error {
	if err := Authorize(actor, DomainOperations, VerbWrite); err != nil {
		return err
	}

	var op models.Operation
	if err := db.First(&op, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Model: "Operation", ID: id}
		}
		return err
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("operation_id = ?", op.ID).Delete(&models.OperationDevice{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Operation{}, "id = ?", op.ID).Error
	})
	if err != nil {
		return err
	}

	auditActor(db, actor, models.AuditOperationDelete, &op.PatientID, map[string]interface{}{
		"operation_id": op.ID,
	})
	return nil
}
