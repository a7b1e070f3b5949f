package services

import (
	"clinic_flow_app_go/models"
	"sort"
	"time"

	"gorm.io/gorm"
)

// Conflict kinds
const (
	ConflictKindDoctor  = "doctor_conflict"
	ConflictKindRoom    = "room_conflict"
	ConflictKindDevice  = "device_conflict"
	ConflictKindPatient = "patient_conflict"
)

// Conflict models
const (
	ConflictModelAppointment = "Appointment"
	ConflictModelOperation   = "Operation"
)

// Conflict describes one detected booking collision
type Conflict struct {
	Kind       string            `json:"kind"`
	Model      string            `json:"model"`
	ID         uint              `json:"id"`
	ResourceID *uint             `json:"resource_id,omitempty"`
	Meta       map[string]string `json:"meta,omitempty"`
}

// sortConflicts orders conflicts deterministically by (model, id), then by
// kind and resource for stable output when one booking collides several ways.
func sortConflicts(conflicts []Conflict) {
	sort.Slice(conflicts, func(i, j int) bool {
		a, b := conflicts[i], conflicts[j]
		if a.Model != b.Model {
			return a.Model < b.Model
		}
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		ar, br := uint(0), uint(0)
		if a.ResourceID != nil {
			ar = *a.ResourceID
		}
		if b.ResourceID != nil {
			br = *b.ResourceID
		}
		return ar < br
	})
}

// dedupeConflicts drops exact duplicates after sorting
func dedupeConflicts(conflicts []Conflict) []Conflict {
	out := conflicts[:0]
	var last *Conflict
	for i := range conflicts {
		c := conflicts[i]
		if last != nil && last.Kind == c.Kind && last.Model == c.Model && last.ID == c.ID &&
			(last.ResourceID == nil) == (c.ResourceID == nil) &&
			(last.ResourceID == nil || *last.ResourceID == *c.ResourceID) {
			continue
		}
		out = append(out, c)
		last = &out[len(out)-1]
	}
	return out
}

func resourceKind(r models.Resource) string {
	if r.IsRoom() {
		return ConflictKindRoom
	}
	return ConflictKindDevice
}

func uintPtr(v uint) *uint { return &v }

// blockingAppointments returns appointments overlapping [start, end) that
// still occupy their interval. Cancelled and no-show rows never conflict.
func blockingAppointments(db *gorm.DB, start, end time.Time, excludeID uint) *gorm.DB {
	q := db.Model(&models.Appointment{}).
		Where("status != ?", models.AppointmentStatusCancelled).
		Where("is_no_show = ?", false).
		Where("start_time < ? AND end_time > ?", end, start)
	if excludeID != 0 {
		q = q.Where("id != ?", excludeID)
	}
	return q
}

// blockingOperations returns operations overlapping [start, end) that are
// not cancelled.
func blockingOperations(db *gorm.DB, start, end time.Time, excludeID uint) *gorm.DB {
	q := db.Model(&models.Operation{}).
		Where("status != ?", models.OperationStatusCancelled).
		Where("start_time < ? AND end_time > ?", end, start)
	if excludeID != 0 {
		q = q.Where("id != ?", excludeID)
	}
	return q
}

// doctorConflicts finds bookings that occupy the doctor in [start, end):
// their own appointments plus operations where they fill any team role.
func doctorConflicts(db *gorm.DB, doctorID uint, start, end time.Time, excludeAppointmentID, excludeOperationID uint) ([]Conflict, error) {
	var conflicts []Conflict

	var appointments []models.Appointment
	err := blockingAppointments(db, start, end, excludeAppointmentID).
		Where("doctor_id = ?", doctorID).
		Order("id").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	for _, apt := range appointments {
		conflicts = append(conflicts, Conflict{
			Kind:  ConflictKindDoctor,
			Model: ConflictModelAppointment,
			ID:    apt.ID,
		})
	}

	var operations []models.Operation
	err = blockingOperations(db, start, end, excludeOperationID).
		Where("primary_surgeon_id = ? OR assistant_id = ? OR anesthesist_id = ?", doctorID, doctorID, doctorID).
		Order("id").
		Find(&operations).Error
	if err != nil {
		return nil, err
	}
	for _, op := range operations {
		conflicts = append(conflicts, Conflict{
			Kind:  ConflictKindDoctor,
			Model: ConflictModelOperation,
			ID:    op.ID,
		})
	}

	return conflicts, nil
}

// resourceConflicts finds bookings that occupy any of the given resources in
// [start, end): appointments via resource links, operations via op_room
// (rooms) and device links (devices).
func resourceConflicts(db *gorm.DB, resources []models.Resource, start, end time.Time, excludeAppointmentID, excludeOperationID uint) ([]Conflict, error) {
	if len(resources) == 0 {
		return nil, nil
	}

	var conflicts []Conflict
	byID := make(map[uint]models.Resource, len(resources))
	allIDs := make([]uint, 0, len(resources))
	var roomIDs, deviceIDs []uint
	for _, r := range resources {
		byID[r.ID] = r
		allIDs = append(allIDs, r.ID)
		if r.IsRoom() {
			roomIDs = append(roomIDs, r.ID)
		} else {
			deviceIDs = append(deviceIDs, r.ID)
		}
	}

	// Appointments holding any of the resources
	var aptLinks []struct {
		AppointmentID uint
		ResourceID    uint
	}
	err := blockingAppointments(db, start, end, excludeAppointmentID).
		Select("appointments.id AS appointment_id, appointment_resources.resource_id").
		Joins("JOIN appointment_resources ON appointment_resources.appointment_id = appointments.id").
		Where("appointment_resources.resource_id IN ?", allIDs).
		Order("appointments.id").
		Scan(&aptLinks).Error
	if err != nil {
		return nil, err
	}
	for _, link := range aptLinks {
		conflicts = append(conflicts, Conflict{
			Kind:       resourceKind(byID[link.ResourceID]),
			Model:      ConflictModelAppointment,
			ID:         link.AppointmentID,
			ResourceID: uintPtr(link.ResourceID),
		})
	}

	// Operations using a requested room as op_room
	if len(roomIDs) > 0 {
		var operations []models.Operation
		err = blockingOperations(db, start, end, excludeOperationID).
			Where("op_room_id IN ?", roomIDs).
			Order("id").
			Find(&operations).Error
		if err != nil {
			return nil, err
		}
		for _, op := range operations {
			conflicts = append(conflicts, Conflict{
				Kind:       ConflictKindRoom,
				Model:      ConflictModelOperation,
				ID:         op.ID,
				ResourceID: uintPtr(op.OpRoomID),
			})
		}
	}

	// Operations holding a requested device
	if len(deviceIDs) > 0 {
		var opLinks []struct {
			OperationID uint
			ResourceID  uint
		}
		err = blockingOperations(db, start, end, excludeOperationID).
			Select("operations.id AS operation_id, operation_devices.resource_id").
			Joins("JOIN operation_devices ON operation_devices.operation_id = operations.id").
			Where("operation_devices.resource_id IN ?", deviceIDs).
			Order("operations.id").
			Scan(&opLinks).Error
		if err != nil {
			return nil, err
		}
		for _, link := range opLinks {
			conflicts = append(conflicts, Conflict{
				Kind:       ConflictKindDevice,
				Model:      ConflictModelOperation,
				ID:         link.OperationID,
				ResourceID: uintPtr(link.ResourceID),
			})
		}
	}

	return conflicts, nil
}

// patientConflicts finds other bookings of the same patient in [start, end)
func patientConflicts(db *gorm.DB, patientID uint, start, end time.Time, excludeAppointmentID, excludeOperationID uint) ([]Conflict, error) {
	var conflicts []Conflict

	var appointments []models.Appointment
	err := blockingAppointments(db, start, end, excludeAppointmentID).
		Where("patient_id = ?", patientID).
		Order("id").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	for _, apt := range appointments {
		conflicts = append(conflicts, Conflict{
			Kind:  ConflictKindPatient,
			Model: ConflictModelAppointment,
			ID:    apt.ID,
		})
	}

	var operations []models.Operation
	err = blockingOperations(db, start, end, excludeOperationID).
		Where("patient_id = ?", patientID).
		Order("id").
		Find(&operations).Error
	if err != nil {
		return nil, err
	}
	for _, op := range operations {
		conflicts = append(conflicts, Conflict{
			Kind:  ConflictKindPatient,
			Model: ConflictModelOperation,
			ID:    op.ID,
		})
	}

	return conflicts, nil
}

// AppointmentConflicts checks a proposed appointment window against the
// doctor's bookings, the requested resources, and the patient's other
// bookings. Results are sorted by (model, id). Edge-touching intervals
// never conflict.
func AppointmentConflicts(db *gorm.DB, patientID, doctorID uint, resources []models.Resource, start, end time.Time, excludeAppointmentID uint) ([]Conflict, error) {
	conflicts, err := doctorConflicts(db, doctorID, start, end, excludeAppointmentID, 0)
	if err != nil {
		return nil, err
	}

	resourceHits, err := resourceConflicts(db, resources, start, end, excludeAppointmentID, 0)
	if err != nil {
		return nil, err
	}
	conflicts = append(conflicts, resourceHits...)

	patientHits, err := patientConflicts(db, patientID, start, end, excludeAppointmentID, 0)
	if err != nil {
		return nil, err
	}
	conflicts = append(conflicts, patientHits...)

	sortConflicts(conflicts)
	return dedupeConflicts(conflicts), nil
}

// OperationConflicts checks a proposed operation window for every provided
// team member, the op room, the devices, and the patient. Results are
// sorted by (model, id).
func OperationConflicts(db *gorm.DB, patientID uint, teamIDs []uint, room models.Resource, devices []models.Resource, start, end time.Time, excludeOperationID uint) ([]Conflict, error) {
	var conflicts []Conflict

	for _, memberID := range teamIDs {
		hits, err := doctorConflicts(db, memberID, start, end, 0, excludeOperationID)
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, hits...)
	}

	resources := append([]models.Resource{room}, devices...)
	resourceHits, err := resourceConflicts(db, resources, start, end, 0, excludeOperationID)
	if err != nil {
		return nil, err
	}
	conflicts = append(conflicts, resourceHits...)

	patientHits, err := patientConflicts(db, patientID, start, end, 0, excludeOperationID)
	if err != nil {
		return nil, err
	}
	conflicts = append(conflicts, patientHits...)

	sortConflicts(conflicts)
	return dedupeConflicts(conflicts), nil
}
