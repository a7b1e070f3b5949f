package services

import (
	"clinic_flow_app_go/config"
	"clinic_flow_app_go/models"
	"errors"
	"time"

	"gorm.io/gorm"
)

const defaultSuggestionLimit = 10

// Suggestion is one proposed free slot
type Suggestion struct {
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	TypeID      *uint     `json:"type_id,omitempty"`
	Colors      []string  `json:"colors,omitempty"`
	ResourceIDs []uint    `json:"resource_ids,omitempty"`
}

// DoctorSuggestions groups suggestions under one doctor, used for
// substitution fallback and working-hours alternatives.
type DoctorSuggestions struct {
	DoctorID    uint         `json:"doctor_id"`
	DoctorName  string       `json:"doctor_name"`
	Color       string       `json:"color"`
	Suggestions []Suggestion `json:"suggestions"`
}

// SuggestResult is the outcome of a suggestion scan. Fallbacks are only
// populated when the primary doctor yields no slots.
type SuggestResult struct {
	PrimaryDoctorID     uint                `json:"primary_doctor_id"`
	PrimarySuggestions  []Suggestion        `json:"primary_suggestions"`
	FallbackSuggestions []DoctorSuggestions `json:"fallback_suggestions,omitempty"`
}

// SuggestParams configures an appointment slot scan. Either TypeID (with a
// default duration) or DurationMinutes must be provided.
type SuggestParams struct {
	DoctorID        uint
	StartDate       time.Time
	DurationMinutes int
	TypeID          *uint
	ResourceIDs     []uint
	Limit           int
	EndDate         *time.Time
	Now             time.Time
	MaxDays         int
}

// interval is a half-open busy span used during day scans
type interval struct {
	start time.Time
	end   time.Time
}

func overlapsAny(busy []interval, start, end time.Time) bool {
	for _, iv := range busy {
		if models.Overlaps(iv.start, iv.end, start, end) {
			return true
		}
	}
	return false
}

// ceilToStep rounds t up to the next step boundary
func ceilToStep(t time.Time, step time.Duration) time.Time {
	truncated := t.Truncate(step)
	if truncated.Before(t) {
		return truncated.Add(step)
	}
	return truncated
}

// dayWindows returns the intersections of active practice windows and the
// doctor's windows for the given local day, in (practice start, doctor
// start) order. An empty result means the day yields no suggestions.
func dayWindows(db *gorm.DB, cfg config.CoreConfig, doctorID uint, day time.Time) ([]interval, error) {
	weekday := models.WeekdayIndex(day)

	var practiceWindows []models.PracticeHours
	err := db.Where("weekday = ? AND is_active = ?", weekday, true).
		Order("start_time, id").
		Find(&practiceWindows).Error
	if err != nil {
		return nil, err
	}
	if len(practiceWindows) == 0 {
		return nil, nil
	}

	var doctorWindows []models.DoctorHours
	err = db.Where("doctor_id = ? AND weekday = ? AND is_active = ?", doctorID, weekday, true).
		Order("start_time, id").
		Find(&doctorWindows).Error
	if err != nil {
		return nil, err
	}

	var windows []interval
	for _, practice := range practiceWindows {
		ps, pe := practice.WindowOn(day, cfg.Location)
		for _, doctor := range doctorWindows {
			ds, de := doctor.WindowOn(day, cfg.Location)
			start, end := ps, pe
			if ds.After(start) {
				start = ds
			}
			if de.Before(end) {
				end = de
			}
			if start.Before(end) {
				windows = append(windows, interval{start: start, end: end})
			}
		}
	}
	return windows, nil
}

// dayBusyIntervals loads every interval that blocks the doctor or any of
// the requested resources during [dayStart, dayEnd). Loaded once per day
// and reused across all windows of that day.
func dayBusyIntervals(db *gorm.DB, cfg config.CoreConfig, doctorID uint, resources []models.Resource, dayStart, dayEnd time.Time) ([]interval, error) {
	var busy []interval

	var appointments []models.Appointment
	err := blockingAppointments(db, dayStart, dayEnd, 0).
		Where("doctor_id = ?", doctorID).
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	for _, apt := range appointments {
		busy = append(busy, interval{start: apt.StartTime, end: apt.EndTime})
	}

	var operations []models.Operation
	err = blockingOperations(db, dayStart, dayEnd, 0).
		Where("primary_surgeon_id = ? OR assistant_id = ? OR anesthesist_id = ?", doctorID, doctorID, doctorID).
		Find(&operations).Error
	if err != nil {
		return nil, err
	}
	for _, op := range operations {
		busy = append(busy, interval{start: op.StartTime, end: op.EndTime})
	}

	firstDay := dateOnly(dayStart, cfg.Location)
	var breaks []models.DoctorBreak
	err = db.Where("is_active = ?", true).
		Where("doctor_id IS NULL OR doctor_id = ?", doctorID).
		Where("date = ?", firstDay).
		Find(&breaks).Error
	if err != nil {
		return nil, err
	}
	for i := range breaks {
		bs, be := breaks[i].Interval(cfg.Location)
		busy = append(busy, interval{start: bs, end: be})
	}

	if len(resources) > 0 {
		var roomIDs, deviceIDs, allIDs []uint
		for _, r := range resources {
			allIDs = append(allIDs, r.ID)
			if r.IsRoom() {
				roomIDs = append(roomIDs, r.ID)
			} else {
				deviceIDs = append(deviceIDs, r.ID)
			}
		}

		var boundAppointments []models.Appointment
		err = blockingAppointments(db, dayStart, dayEnd, 0).
			Joins("JOIN appointment_resources ON appointment_resources.appointment_id = appointments.id").
			Where("appointment_resources.resource_id IN ?", allIDs).
			Find(&boundAppointments).Error
		if err != nil {
			return nil, err
		}
		for _, apt := range boundAppointments {
			busy = append(busy, interval{start: apt.StartTime, end: apt.EndTime})
		}

		if len(roomIDs) > 0 {
			var roomOps []models.Operation
			err = blockingOperations(db, dayStart, dayEnd, 0).
				Where("op_room_id IN ?", roomIDs).
				Find(&roomOps).Error
			if err != nil {
				return nil, err
			}
			for _, op := range roomOps {
				busy = append(busy, interval{start: op.StartTime, end: op.EndTime})
			}
		}
		if len(deviceIDs) > 0 {
			var deviceOps []models.Operation
			err = blockingOperations(db, dayStart, dayEnd, 0).
				Joins("JOIN operation_devices ON operation_devices.operation_id = operations.id").
				Where("operation_devices.resource_id IN ?", deviceIDs).
				Find(&deviceOps).Error
			if err != nil {
				return nil, err
			}
			for _, op := range deviceOps {
				busy = append(busy, interval{start: op.StartTime, end: op.EndTime})
			}
		}
	}

	return busy, nil
}

// scanDoctorDay collects at most one slot per practice-window/doctor-window
// intersection for a single local day, stepping candidates forward by the
// configured slot step. Days covered by an absence yield nothing.
func scanDoctorDay(db *gorm.DB, cfg config.CoreConfig, doctor *models.Clinician, day time.Time, duration time.Duration, resources []models.Resource, now time.Time, colors []string, typeID *uint, resourceIDs []uint, limit int) ([]Suggestion, error) {
	dayStart := models.DayStart(day, cfg.Location)
	dayEnd := dayStart.AddDate(0, 0, 1)

	absence, err := FindAbsence(db, cfg, doctor.ID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	if absence != nil {
		return nil, nil
	}

	windows, err := dayWindows(db, cfg, doctor.ID, dayStart)
	if err != nil || len(windows) == 0 {
		return nil, err
	}

	busy, err := dayBusyIntervals(db, cfg, doctor.ID, resources, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	step := time.Duration(cfg.SlotStepMinutes) * time.Minute
	var suggestions []Suggestion
	for _, window := range windows {
		// Windows are half-open, so one ending exactly at now is already over.
		if !now.Before(window.end) {
			continue
		}
		candidate := window.start
		// Never propose a slot in the past on the current day.
		if now.After(candidate) {
			candidate = ceilToStep(now, step)
		}

		for !candidate.Add(duration).After(window.end) {
			end := candidate.Add(duration)
			if !overlapsAny(busy, candidate, end) {
				suggestions = append(suggestions, Suggestion{
					StartTime:   candidate.UTC(),
					EndTime:     end.UTC(),
					TypeID:      typeID,
					Colors:      colors,
					ResourceIDs: resourceIDs,
				})
				break
			}
			candidate = candidate.Add(step)
		}
		if limit > 0 && len(suggestions) >= limit {
			return suggestions[:limit], nil
		}
	}
	return suggestions, nil
}

// suggestForDoctor runs the multi-day scan for one doctor
func suggestForDoctor(db *gorm.DB, cfg config.CoreConfig, doctor *models.Clinician, params SuggestParams, duration time.Duration, resources []models.Resource, colors []string) ([]Suggestion, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = defaultSuggestionLimit
	}
	maxDays := params.MaxDays
	if maxDays <= 0 {
		maxDays = cfg.MaxSuggestionDays
	}

	resourceIDs := make([]uint, 0, len(resources))
	for _, r := range resources {
		resourceIDs = append(resourceIDs, r.ID)
	}

	var suggestions []Suggestion
	day := models.DayStart(params.StartDate, cfg.Location)
	for scanned := 0; scanned < maxDays; scanned++ {
		if params.EndDate != nil && day.After(models.DayStart(*params.EndDate, cfg.Location)) {
			break
		}

		daySlots, err := scanDoctorDay(db, cfg, doctor, day, duration, resources, params.Now, colors, params.TypeID, resourceIDs, limit-len(suggestions))
		if err != nil {
			return nil, err
		}
		suggestions = append(suggestions, daySlots...)
		if len(suggestions) >= limit {
			return suggestions[:limit], nil
		}
		day = day.AddDate(0, 0, 1)
	}
	return suggestions, nil
}

// resolveSuggestDuration determines the slot length from an explicit
// duration or the appointment type's default.
func resolveSuggestDuration(db *gorm.DB, params *SuggestParams) (time.Duration, *models.AppointmentType, error) {
	if params.TypeID != nil {
		var aptType models.AppointmentType
		if err := db.First(&aptType, "id = ?", *params.TypeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, nil, &NotFoundError{Model: "AppointmentType", ID: *params.TypeID}
			}
			return 0, nil, err
		}
		if params.DurationMinutes <= 0 {
			if aptType.DurationMinutes == nil || *aptType.DurationMinutes <= 0 {
				return 0, nil, &InvalidDataError{Field: "duration_min", Message: "type has no default duration"}
			}
			params.DurationMinutes = *aptType.DurationMinutes
		}
		return time.Duration(params.DurationMinutes) * time.Minute, &aptType, nil
	}
	if params.DurationMinutes <= 0 {
		return 0, nil, &InvalidDataError{Field: "duration_min", Message: "must be a positive integer"}
	}
	return time.Duration(params.DurationMinutes) * time.Minute, nil, nil
}

// otherActiveDoctors lists active doctors excluding the given one, by id
func otherActiveDoctors(db *gorm.DB, excludeID uint) ([]models.Clinician, error) {
	var doctors []models.Clinician
	err := db.Where("role = ? AND is_active = ?", string(models.RoleDoctor), true).
		Where("id != ?", excludeID).
		Order("id").
		Find(&doctors).Error
	return doctors, err
}

// substitutionScan computes same-day suggestions for every other active
// doctor, grouped per doctor and sorted by the first slot's start. Doctors
// without a free slot are dropped.
func substitutionScan(db *gorm.DB, cfg config.CoreConfig, excludeDoctorID uint, params SuggestParams, duration time.Duration, resources []models.Resource) ([]DoctorSuggestions, error) {
	doctors, err := otherActiveDoctors(db, excludeDoctorID)
	if err != nil {
		return nil, err
	}

	var groups []DoctorSuggestions
	for i := range doctors {
		doctor := &doctors[i]
		dayParams := params
		dayParams.MaxDays = 1
		colors := []string{doctor.Color}
		slots, err := suggestForDoctor(db, cfg, doctor, dayParams, duration, resources, colors)
		if err != nil {
			return nil, err
		}
		if len(slots) == 0 {
			continue
		}
		groups = append(groups, DoctorSuggestions{
			DoctorID:    doctor.ID,
			DoctorName:  doctor.Name,
			Color:       doctor.Color,
			Suggestions: slots,
		})
	}

	// Stable insertion sort by the first slot; group lists are short.
	for i := 1; i < len(groups); i++ {
		for j := i; j > 0 && groups[j].Suggestions[0].StartTime.Before(groups[j-1].Suggestions[0].StartTime); j-- {
			groups[j], groups[j-1] = groups[j-1], groups[j]
		}
	}
	return groups, nil
}

// SuggestAppointmentSlots scans forward from start_date and proposes the
// earliest free slots for the doctor, honoring practice and doctor hours,
// absences, breaks, existing bookings, and requested resources. When the
// primary doctor yields nothing, same-day suggestions for other active
// doctors are returned as fallback groups.
func SuggestAppointmentSlots(db *gorm.DB, cfg config.CoreConfig, actor *models.Clinician, params SuggestParams) (*SuggestResult, error) {
	if err := Authorize(actor, DomainAppointmentSuggest, VerbRead); err != nil {
		return nil, err
	}
	if !ScopeIsAll(actor, DomainAppointmentSuggest, VerbRead) && (actor == nil || actor.ID != params.DoctorID) {
		return nil, &NotAuthorizedError{Rule: ruleKey(actor.RoleEnum(), DomainAppointmentSuggest, VerbRead) + ":own_only"}
	}
	if params.DoctorID == 0 {
		return nil, &InvalidDataError{Field: "doctor_id", Message: "is required"}
	}
	if params.StartDate.IsZero() {
		return nil, &InvalidDataError{Field: "start_date", Message: "is required"}
	}
	if params.Now.IsZero() {
		params.Now = time.Now()
	}

	doctor, err := resolveActiveDoctor(db, params.DoctorID)
	if err != nil {
		return nil, err
	}
	duration, aptType, err := resolveSuggestDuration(db, &params)
	if err != nil {
		return nil, err
	}
	resources, err := resolveResources(db, params.ResourceIDs)
	if err != nil {
		return nil, err
	}

	colors := []string{doctor.Color}
	if aptType != nil {
		colors = append(colors, aptType.Color)
	}

	result := &SuggestResult{PrimaryDoctorID: doctor.ID}
	result.PrimarySuggestions, err = suggestForDoctor(db, cfg, doctor, params, duration, resources, colors)
	if err != nil {
		return nil, err
	}

	auditActor(db, actor, models.AuditAppointmentSuggest, nil, map[string]interface{}{
		"doctor_id":    doctor.ID,
		"duration_min": params.DurationMinutes,
		"count":        len(result.PrimarySuggestions),
	})

	if len(result.PrimarySuggestions) == 0 {
		result.FallbackSuggestions, err = substitutionScan(db, cfg, doctor.ID, params, duration, resources)
		if err != nil {
			return nil, err
		}
		auditActor(db, actor, models.AuditDoctorSubstitution, nil, map[string]interface{}{
			"doctor_id":   doctor.ID,
			"group_count": len(result.FallbackSuggestions),
		})
	}

	return result, nil
}

// OperationSuggestParams configures an operation slot scan. The slot
// length is always derived from the operation type.
type OperationSuggestParams struct {
	PatientID        uint
	PrimarySurgeonID uint
	AssistantID      *uint
	AnesthesistID    *uint
	OpRoomID         uint
	OpTypeID         uint
	OpDeviceIDs      []uint
	StartDate        time.Time
	Limit            int
	EndDate          *time.Time
	Now              time.Time
	MaxDays          int
}

// SuggestOperationSlots scans practice and primary-surgeon windows for
// candidate start times whose derived operation interval is free for the
// whole team, the room, the devices, and the patient.
func SuggestOperationSlots(db *gorm.DB, cfg config.CoreConfig, actor *models.Clinician, params OperationSuggestParams) ([]Suggestion, error) {
	if err := Authorize(actor, DomainOperationSuggest, VerbRead); err != nil {
		return nil, err
	}
	if !ScopeIsAll(actor, DomainOperationSuggest, VerbRead) && (actor == nil || actor.ID != params.PrimarySurgeonID) {
		return nil, &NotAuthorizedError{Rule: ruleKey(actor.RoleEnum(), DomainOperationSuggest, VerbRead) + ":own_only"}
	}
	if params.StartDate.IsZero() {
		return nil, &InvalidDataError{Field: "start_date", Message: "is required"}
	}
	if params.Now.IsZero() {
		params.Now = time.Now()
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultSuggestionLimit
	}
	maxDays := params.MaxDays
	if maxDays <= 0 {
		maxDays = cfg.MaxSuggestionDays
	}

	var opType models.OperationType
	if err := db.First(&opType, "id = ? AND is_active = ?", params.OpTypeID, true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Model: "OperationType", ID: params.OpTypeID}
		}
		return nil, err
	}
	if opType.TotalMinutes() <= 0 {
		return nil, &InvalidDataError{Field: "op_type_id", Message: "total duration must be positive"}
	}
	duration := opType.TotalDuration()

	surgeon, err := resolveActiveDoctor(db, params.PrimarySurgeonID)
	if err != nil {
		return nil, err
	}
	teamIDs, err := resolveTeam(db, params.PrimarySurgeonID, params.AssistantID, params.AnesthesistID)
	if err != nil {
		return nil, err
	}
	room, err := resolveOpRoom(db, params.OpRoomID)
	if err != nil {
		return nil, err
	}
	devices, err := resolveOpDevices(db, params.OpDeviceIDs)
	if err != nil {
		return nil, err
	}

	resourceIDs := make([]uint, 0, len(devices)+1)
	resourceIDs = append(resourceIDs, room.ID)
	for _, d := range devices {
		resourceIDs = append(resourceIDs, d.ID)
	}

	step := time.Duration(cfg.SlotStepMinutes) * time.Minute
	var suggestions []Suggestion

	day := models.DayStart(params.StartDate, cfg.Location)
	for scanned := 0; scanned < maxDays && len(suggestions) < limit; scanned++ {
		if params.EndDate != nil && day.After(models.DayStart(*params.EndDate, cfg.Location)) {
			break
		}

		windows, err := dayWindows(db, cfg, surgeon.ID, day)
		if err != nil {
			return nil, err
		}

		for _, window := range windows {
			candidate := window.start
			if params.Now.After(candidate) && params.Now.Before(window.end) {
				candidate = ceilToStep(params.Now, step)
			} else if params.Now.After(window.end) {
				continue
			}

			for !candidate.Add(duration).After(window.end) {
				end := candidate.Add(duration)
				free, err := operationSlotFree(db, cfg, params.PatientID, teamIDs, *room, devices, candidate, end)
				if err != nil {
					return nil, err
				}
				if free {
					suggestions = append(suggestions, Suggestion{
						StartTime:   candidate.UTC(),
						EndTime:     end.UTC(),
						Colors:      []string{surgeon.Color},
						ResourceIDs: resourceIDs,
					})
					break
				}
				candidate = candidate.Add(step)
			}
			if len(suggestions) >= limit {
				break
			}
		}
		day = day.AddDate(0, 0, 1)
	}

	auditActor(db, actor, models.AuditOperationSuggest, nil, map[string]interface{}{
		"primary_surgeon_id": surgeon.ID,
		"op_type_id":         opType.ID,
		"count":              len(suggestions),
	})
	return suggestions, nil
}

// operationSlotFree reports whether the candidate interval passes the
// team's availability checks and the full conflict detector.
func operationSlotFree(db *gorm.DB, cfg config.CoreConfig, patientID uint, teamIDs []uint, room models.Resource, devices []models.Resource, start, end time.Time) (bool, error) {
	for _, memberID := range teamIDs {
		if err := checkDoctorAvailability(db, cfg, memberID, start, end, false); err != nil {
			var absent *DoctorAbsentError
			var brk *DoctorBreakConflictError
			if errors.As(err, &absent) || errors.As(err, &brk) {
				return false, nil
			}
			return false, err
		}
	}
	conflicts, err := OperationConflicts(db, patientID, teamIDs, room, devices, start, end, 0)
	if err != nil {
		return false, err
	}
	return len(conflicts) == 0, nil
}

// suggestAlternativeDoctors computes best-effort same-day slots with other
// doctors, attached to WorkingHoursViolation errors so callers can offer a
// way out. Failures are swallowed; an error can do without alternatives.
func suggestAlternativeDoctors(db *gorm.DB, cfg config.CoreConfig, doctorID uint, start time.Time, durationMinutes int) []DoctorSuggestions {
	if durationMinutes <= 0 {
		return nil
	}
	params := SuggestParams{
		DoctorID:        doctorID,
		StartDate:       start,
		DurationMinutes: durationMinutes,
		Limit:           3,
		Now:             start,
		MaxDays:         1,
	}
	groups, err := substitutionScan(db, cfg, doctorID, params, time.Duration(durationMinutes)*time.Minute, nil)
	if err != nil {
		return nil
	}
	return groups
}
