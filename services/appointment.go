package services

import (
	"clinic_flow_app_go/config"
	"clinic_flow_app_go/models"
	"context"
	"errors"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

// notesPolicy strips all markup from free-text fields before persistence
var notesPolicy = bluemonday.StrictPolicy()

func sanitizeText(s *string) *string {
	if s == nil {
		return nil
	}
	clean := notesPolicy.Sanitize(*s)
	return &clean
}

// AppointmentInput is the request payload for planning an appointment
type AppointmentInput struct {
	PatientID   uint
	DoctorID    uint
	StartTime   time.Time
	EndTime     time.Time
	TypeID      *uint
	ResourceIDs []uint
	Status      string
	Notes       *string
}

// AppointmentPatch carries partial updates; nil fields are left untouched
type AppointmentPatch struct {
	PatientID   *uint
	DoctorID    *uint
	StartTime   *time.Time
	EndTime     *time.Time
	TypeID      *uint
	ResourceIDs *[]uint
	Status      *string
	Notes       *string
}

// resolveActiveDoctor loads a clinician and verifies role=doctor and active
func resolveActiveDoctor(db *gorm.DB, doctorID uint) (*models.Clinician, error) {
	var doctor models.Clinician
	if err := db.First(&doctor, "id = ?", doctorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Model: "Clinician", ID: doctorID}
		}
		return nil, err
	}
	if !doctor.IsActive {
		return nil, &NotFoundError{Model: "Clinician", ID: doctorID}
	}
	if !doctor.IsDoctor() {
		return nil, &InvalidDataError{Field: "doctor_id", Message: "clinician is not a doctor"}
	}
	return &doctor, nil
}

// resolveResources deduplicates resource ids preserving input order and
// resolves each to an active Resource.
func resolveResources(db *gorm.DB, resourceIDs []uint) ([]models.Resource, error) {
	seen := make(map[uint]bool, len(resourceIDs))
	resources := make([]models.Resource, 0, len(resourceIDs))
	for _, id := range resourceIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		var resource models.Resource
		if err := db.First(&resource, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, &NotFoundError{Model: "Resource", ID: id}
			}
			return nil, err
		}
		if !resource.IsActive {
			return nil, &NotFoundError{Model: "Resource", ID: id}
		}
		resources = append(resources, resource)
	}
	return resources, nil
}

func validateAppointmentInput(input *AppointmentInput) error {
	if input.PatientID == 0 {
		return &InvalidDataError{Field: "patient_id", Message: "must be a positive integer"}
	}
	if input.DoctorID == 0 {
		return &InvalidDataError{Field: "doctor_id", Message: "is required"}
	}
	if input.StartTime.IsZero() || input.EndTime.IsZero() {
		return &InvalidDataError{Field: "start_time", Message: "start and end are required"}
	}
	if !input.EndTime.After(input.StartTime) {
		return &InvalidDataError{Field: "end_time", Message: "must be after start_time"}
	}
	if input.Status == "" {
		input.Status = models.AppointmentStatusScheduled
	}
	if !models.IsValidAppointmentStatus(input.Status) {
		return &InvalidDataError{Field: "status", Message: "unknown status"}
	}
	return nil
}

// resolveAppointmentType verifies an optional type reference points at an
// active appointment type.
func resolveAppointmentType(tx *gorm.DB, typeID *uint) error {
	if typeID == nil {
		return nil
	}
	var aptType models.AppointmentType
	if err := tx.First(&aptType, "id = ? AND is_active = ?", *typeID, true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Model: "AppointmentType", ID: *typeID}
		}
		return err
	}
	return nil
}

// gateAppointmentWrite applies the C7 matrix before the pipeline runs:
// doctors may only book themselves.
func gateAppointmentWrite(actor *models.Clinician, doctorID uint) error {
	if err := Authorize(actor, DomainAppointments, VerbWrite); err != nil {
		return err
	}
	if !ScopeIsAll(actor, DomainAppointments, VerbWrite) && actor.ID != doctorID {
		return &NotAuthorizedError{Rule: ruleKey(actor.RoleEnum(), DomainAppointments, VerbWrite) + ":own_only"}
	}
	return nil
}

// PlanAppointment runs the full admission pipeline for a new appointment
// inside one transaction: structural validation, role check, resource
// resolution, working hours, absence, break, conflicts, persistence. Any
// failure rolls the transaction back; the audit event for success is
// emitted after the commit.
func PlanAppointment(ctx context.Context, db *gorm.DB, cfg config.CoreConfig, actor *models.Clinician, input AppointmentInput) (*models.Appointment, error) {
	if err := validateAppointmentInput(&input); err != nil {
		return nil, err
	}
	if err := gateAppointmentWrite(actor, input.DoctorID); err != nil {
		return nil, err
	}

	var created models.Appointment
	var conflictList []Conflict

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := resolveActiveDoctor(tx, input.DoctorID); err != nil {
			return err
		}
		if err := resolveAppointmentType(tx, input.TypeID); err != nil {
			return err
		}

		resources, err := resolveResources(tx, input.ResourceIDs)
		if err != nil {
			return err
		}

		if err := checkDoctorAvailability(tx, cfg, input.DoctorID, input.StartTime, input.EndTime, true); err != nil {
			return err
		}

		conflicts, err := AppointmentConflicts(tx, input.PatientID, input.DoctorID, resources, input.StartTime, input.EndTime, 0)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			conflictList = conflicts
			return &SchedulingConflictError{Conflicts: conflicts}
		}

		created = models.Appointment{
			PatientID: input.PatientID,
			TypeID:    input.TypeID,
			DoctorID:  input.DoctorID,
			StartTime: input.StartTime.UTC(),
			EndTime:   input.EndTime.UTC(),
			Status:    input.Status,
			Notes:     sanitizeText(input.Notes),
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}

		if len(resources) > 0 {
			links := make([]models.AppointmentResource, 0, len(resources))
			for _, r := range resources {
				links = append(links, models.AppointmentResource{AppointmentID: created.ID, ResourceID: r.ID})
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
		var hoursErr *WorkingHoursViolationError
		if errors.As(err, &hoursErr) {
			hoursErr.Alternatives = suggestAlternativeDoctors(db, cfg, input.DoctorID, input.StartTime, int(input.EndTime.Sub(input.StartTime).Minutes()))
		}
		return nil, err
	}

	auditActor(db, actor, models.AuditAppointmentCreate, &created.PatientID, map[string]interface{}{
		"appointment_id": created.ID,
	})
	return &created, nil
}

// UpdateAppointment re-runs the admission pipeline for a changed
// appointment, excluding the appointment itself from conflict checks.
func UpdateAppointment(ctx context.Context, db *gorm.DB, cfg config.CoreConfig, actor *models.Clinician, id uint, patch AppointmentPatch) (*models.Appointment, error) {
	var existing models.Appointment
	if err := db.First(&existing, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Model: "Appointment", ID: id}
		}
		return nil, err
	}
	if err := AuthorizeAppointmentAccess(actor, &existing, VerbWrite); err != nil {
		return nil, err
	}
	if patch.DoctorID != nil {
		if err := gateAppointmentWrite(actor, *patch.DoctorID); err != nil {
			return nil, err
		}
	}

	updated := existing
	if patch.PatientID != nil {
		updated.PatientID = *patch.PatientID
	}
	if patch.DoctorID != nil {
		updated.DoctorID = *patch.DoctorID
	}
	if patch.StartTime != nil {
		updated.StartTime = patch.StartTime.UTC()
	}
	if patch.EndTime != nil {
		updated.EndTime = patch.EndTime.UTC()
	}
	if patch.TypeID != nil {
		updated.TypeID = patch.TypeID
	}
	if patch.Status != nil {
		updated.Status = *patch.Status
	}
	if patch.Notes != nil {
		updated.Notes = sanitizeText(patch.Notes)
	}

	if updated.PatientID == 0 {
		return nil, &InvalidDataError{Field: "patient_id", Message: "must be a positive integer"}
	}
	if !updated.EndTime.After(updated.StartTime) {
		return nil, &InvalidDataError{Field: "end_time", Message: "must be after start_time"}
	}
	if !models.IsValidAppointmentStatus(updated.Status) {
		return nil, &InvalidDataError{Field: "status", Message: "unknown status"}
	}

	var conflictList []Conflict

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := resolveActiveDoctor(tx, updated.DoctorID); err != nil {
			return err
		}
		if err := resolveAppointmentType(tx, patch.TypeID); err != nil {
			return err
		}

		var resources []models.Resource
		var err error
		if patch.ResourceIDs != nil {
			resources, err = resolveResources(tx, *patch.ResourceIDs)
		} else {
			err = tx.Model(&existing).Association("Resources").Find(&resources)
		}
		if err != nil {
			return err
		}

		// Cancelled appointments release their slot; nothing to re-check.
		if updated.Status != models.AppointmentStatusCancelled {
			if err := checkDoctorAvailability(tx, cfg, updated.DoctorID, updated.StartTime, updated.EndTime, true); err != nil {
				return err
			}

			conflicts, err := AppointmentConflicts(tx, updated.PatientID, updated.DoctorID, resources, updated.StartTime, updated.EndTime, existing.ID)
			if err != nil {
				return err
			}
			if len(conflicts) > 0 {
				conflictList = conflicts
				return &SchedulingConflictError{Conflicts: conflicts}
			}
		}

		if err := tx.Model(&models.Appointment{}).Where("id = ?", existing.ID).
			Updates(map[string]interface{}{
				"patient_id": updated.PatientID,
				"doctor_id":  updated.DoctorID,
				"start_time": updated.StartTime,
				"end_time":   updated.EndTime,
				"type_id":    updated.TypeID,
				"status":     updated.Status,
				"notes":      updated.Notes,
			}).Error; err != nil {
			return err
		}

		if patch.ResourceIDs != nil {
			if err := tx.Where("appointment_id = ?", existing.ID).Delete(&models.AppointmentResource{}).Error; err != nil {
				return err
			}
			if len(resources) > 0 {
				links := make([]models.AppointmentResource, 0, len(resources))
				for _, r := range resources {
					links = append(links, models.AppointmentResource{AppointmentID: existing.ID, ResourceID: r.ID})
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

	auditActor(db, actor, models.AuditAppointmentUpdate, &updated.PatientID, map[string]interface{}{
		"appointment_id": existing.ID,
	})

	var reloaded models.Appointment
	if err := db.Preload("Resources").First(&reloaded, "id = ?", existing.ID).Error; err != nil {
		return nil, err
	}
	return &reloaded, nil
}

// MarkNoShow flags a past appointment as missed. The flag is immutable
// once set.
func MarkNoShow(db *gorm.DB, actor *models.Clinician, id uint, now time.Time) (*models.Appointment, error) {
	var apt models.Appointment
	if err := db.First(&apt, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Model: "Appointment", ID: id}
		}
		return nil, err
	}
	if err := AuthorizeAppointmentAccess(actor, &apt, VerbWrite); err != nil {
		return nil, err
	}
	if apt.IsNoShow {
		return nil, &InvalidStateError{Message: "appointment is already marked as no-show"}
	}
	if apt.Status != models.AppointmentStatusScheduled && apt.Status != models.AppointmentStatusConfirmed {
		return nil, &InvalidStateError{Message: "only scheduled or confirmed appointments can be marked as no-show"}
	}
	if !apt.StartTime.Before(now) {
		return nil, &InvalidStateError{Message: "appointment has not started yet"}
	}

	if err := db.Model(&models.Appointment{}).Where("id = ?", apt.ID).
		Update("is_no_show", true).Error; err != nil {
		return nil, err
	}
	apt.IsNoShow = true

	auditActor(db, actor, models.AuditAppointmentMarkNoShow, &apt.PatientID, map[string]interface{}{
		"appointment_id": apt.ID,
	})
	return &apt, nil
}

// GetAppointment fetches one appointment with visibility filtering
func GetAppointment(db *gorm.DB, actor *models.Clinician, id uint) (*models.Appointment, error) {
	var apt models.Appointment
	err := db.Preload("Doctor").Preload("Type").Preload("Resources").
		First(&apt, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Model: "Appointment", ID: id}
		}
		return nil, err
	}
	if err := AuthorizeAppointmentAccess(actor, &apt, VerbRead); err != nil {
		return nil, err
	}
	auditActor(db, actor, models.AuditAppointmentView, &apt.PatientID, map[string]interface{}{
		"appointment_id": apt.ID,
	})
	return &apt, nil
}

// ListAppointments fetches appointments in a range, filtered to the
// actor's visibility: doctors see only their own.
func ListAppointments(db *gorm.DB, actor *models.Clinician, startDate, endDate time.Time) ([]models.Appointment, error) {
	if err := Authorize(actor, DomainAppointments, VerbRead); err != nil {
		return nil, err
	}

	query := db.Preload("Doctor").Preload("Type").Preload("Resources").
		Where("start_time < ? AND end_time > ?", endDate, startDate).
		Order("start_time, id")
	if !ScopeIsAll(actor, DomainAppointments, VerbRead) {
		query = query.Where("doctor_id = ?", actor.ID)
	}

	var appointments []models.Appointment
	if err := query.Find(&appointments).Error; err != nil {
		return nil, err
	}
	auditActor(db, actor, models.AuditAppointmentList, nil, map[string]interface{}{
		"count": len(appointments),
	})
	return appointments, nil
}

// DeleteAppointment removes an appointment and its resource links
func DeleteAppointment(db *gorm.DB, actor *models.Clinician, id uint) error {
	var apt models.Appointment
	if err := db.First(&apt, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Model: "Appointment", ID: id}
		}
		return err
	}
	if err := AuthorizeAppointmentAccess(actor, &apt, VerbWrite); err != nil {
		return err
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("appointment_id = ?", apt.ID).Delete(&models.AppointmentResource{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Appointment{}, "id = ?", apt.ID).Error
	})
	if err != nil {
		return err
	}

	auditActor(db, actor, models.AuditAppointmentDelete, &apt.PatientID, map[string]interface{}{
		"appointment_id": apt.ID,
	})
	return nil
}
