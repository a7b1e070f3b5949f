package services

import (
	"clinic_flow_app_go/config"
	"clinic_flow_app_go/models"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Calendar view scopes
const (
	CalendarScopeDay   = "day"
	CalendarScopeWeek  = "week"
	CalendarScopeMonth = "month"
)

// CalendarFilters restricts the view to one doctor or resource
type CalendarFilters struct {
	DoctorID   *uint
	ResourceID *uint
}

// CalendarEvent is a render-ready calendar entry. Appointments and
// operations map to the same shape so the frontend draws them alike.
type CalendarEvent struct {
	ID    uint      `json:"id"`
	Model string    `json:"model"` // Appointment | Operation
	Title string    `json:"title"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Color string    `json:"color"`

	Status    string `json:"status"`
	PatientID uint   `json:"patient_id"`
	DoctorID  uint   `json:"doctor_id"`
}

// DoctorDaySummary reports whether a doctor is reachable on the view's
// first day and why not.
type DoctorDaySummary struct {
	DoctorID   uint   `json:"doctor_id"`
	DoctorName string `json:"doctor_name"`
	Color      string `json:"color"`
	Available  bool   `json:"available"`
	Reason     string `json:"reason,omitempty"` // absent | no_hours
}

// CalendarViewResult bundles everything one calendar render needs
type CalendarViewResult struct {
	Scope     string                 `json:"scope"`
	RangeFrom time.Time              `json:"range_from"`
	RangeTo   time.Time              `json:"range_to"`
	Events    []CalendarEvent        `json:"events"`
	Absences  []models.DoctorAbsence `json:"absences"`
	Breaks    []models.DoctorBreak   `json:"breaks"`
	Resources []models.Resource      `json:"resources"`
	Doctors   []DoctorDaySummary     `json:"doctors"`
}

// calendarRange resolves a scope and anchor date into [from, to)
func calendarRange(scope string, anchor time.Time, loc *time.Location) (time.Time, time.Time, error) {
	day := models.DayStart(anchor, loc)
	switch scope {
	case CalendarScopeDay:
		return day, day.AddDate(0, 0, 1), nil
	case CalendarScopeWeek:
		weekStart := day.AddDate(0, 0, -models.WeekdayIndex(day))
		return weekStart, weekStart.AddDate(0, 0, 7), nil
	case CalendarScopeMonth:
		local := day.In(loc)
		monthStart := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
		return monthStart, monthStart.AddDate(0, 1, 0), nil
	}
	return time.Time{}, time.Time{}, &InvalidDataError{Field: "scope", Message: "must be day, week or month"}
}

// CalendarView collects bookings, absences, breaks, resources, and a
// per-doctor availability summary for one day, week, or month. Doctors see
// only their own bookings; the surrounding schedule data is shared.
func CalendarView(db *gorm.DB, cfg config.CoreConfig, actor *models.Clinician, scope string, anchor time.Time, filters CalendarFilters) (*CalendarViewResult, error) {
	if err := Authorize(actor, DomainAppointments, VerbRead); err != nil {
		return nil, err
	}
	from, to, err := calendarRange(scope, anchor, cfg.Location)
	if err != nil {
		return nil, err
	}

	result := &CalendarViewResult{Scope: scope, RangeFrom: from, RangeTo: to}

	appointments, err := ListAppointments(db, actor, from, to)
	if err != nil {
		return nil, err
	}
	operations, err := ListOperations(db, actor, from, to)
	if err != nil {
		return nil, err
	}

	for i := range appointments {
		apt := &appointments[i]
		if filters.DoctorID != nil && apt.DoctorID != *filters.DoctorID {
			continue
		}
		if filters.ResourceID != nil && !appointmentUsesResource(apt, *filters.ResourceID) {
			continue
		}
		result.Events = append(result.Events, appointmentEvent(apt))
	}
	for i := range operations {
		op := &operations[i]
		if filters.DoctorID != nil && !op.HasTeamMember(*filters.DoctorID) {
			continue
		}
		if filters.ResourceID != nil && !operationUsesResource(op, *filters.ResourceID) {
			continue
		}
		result.Events = append(result.Events, operationEvent(op))
	}

	firstDay := dateOnly(from, cfg.Location)
	lastDay := dateOnly(to.Add(-time.Nanosecond), cfg.Location)

	err = db.Where("is_active = ?", true).
		Where("start_date <= ? AND end_date >= ?", lastDay, firstDay).
		Order("start_date, id").
		Find(&result.Absences).Error
	if err != nil {
		return nil, err
	}
	err = db.Where("is_active = ?", true).
		Where("date >= ? AND date <= ?", firstDay, lastDay).
		Order("date, start_time, id").
		Find(&result.Breaks).Error
	if err != nil {
		return nil, err
	}
	err = db.Where("is_active = ?", true).Order("type, name, id").Find(&result.Resources).Error
	if err != nil {
		return nil, err
	}

	result.Doctors, err = doctorDaySummaries(db, cfg, from)
	if err != nil {
		return nil, err
	}

	action := models.AuditResourceCalendarView
	if filters.ResourceID == nil {
		action = models.AuditOpDashboardView
	}
	auditActor(db, actor, action, nil, map[string]interface{}{
		"scope": scope,
		"from":  from.Format("2006-01-02"),
	})
	return result, nil
}

func appointmentUsesResource(apt *models.Appointment, resourceID uint) bool {
	for _, r := range apt.Resources {
		if r.ID == resourceID {
			return true
		}
	}
	return false
}

func operationUsesResource(op *models.Operation, resourceID uint) bool {
	if op.OpRoomID == resourceID {
		return true
	}
	for _, d := range op.Devices {
		if d.ID == resourceID {
			return true
		}
	}
	return false
}

func appointmentEvent(apt *models.Appointment) CalendarEvent {
	color := apt.Doctor.Color
	title := "Appointment"
	if apt.Type != nil {
		title = apt.Type.Name
		if apt.Type.Color != "" {
			color = apt.Type.Color
		}
	}
	return CalendarEvent{
		ID:        apt.ID,
		Model:     ConflictModelAppointment,
		Title:     fmt.Sprintf("%s - patient %d", title, apt.PatientID),
		Start:     apt.StartTime,
		End:       apt.EndTime,
		Color:     color,
		Status:    apt.Status,
		PatientID: apt.PatientID,
		DoctorID:  apt.DoctorID,
	}
}

func operationEvent(op *models.Operation) CalendarEvent {
	return CalendarEvent{
		ID:        op.ID,
		Model:     ConflictModelOperation,
		Title:     fmt.Sprintf("%s - patient %d", op.OpType.Name, op.PatientID),
		Start:     op.StartTime,
		End:       op.EndTime,
		Color:     op.PrimarySurgeon.Color,
		Status:    op.Status,
		PatientID: op.PatientID,
		DoctorID:  op.PrimarySurgeonID,
	}
}

// doctorDaySummaries reports each active doctor's reachability on one day
func doctorDaySummaries(db *gorm.DB, cfg config.CoreConfig, day time.Time) ([]DoctorDaySummary, error) {
	var doctors []models.Clinician
	err := db.Where("role = ? AND is_active = ?", string(models.RoleDoctor), true).
		Order("id").
		Find(&doctors).Error
	if err != nil {
		return nil, err
	}

	dayStart := models.DayStart(day, cfg.Location)
	dayEnd := dayStart.AddDate(0, 0, 1)

	summaries := make([]DoctorDaySummary, 0, len(doctors))
	for i := range doctors {
		doctor := &doctors[i]
		summary := DoctorDaySummary{
			DoctorID:   doctor.ID,
			DoctorName: doctor.Name,
			Color:      doctor.Color,
			Available:  true,
		}

		absence, err := FindAbsence(db, cfg, doctor.ID, dayStart, dayEnd)
		if err != nil {
			return nil, err
		}
		if absence != nil {
			summary.Available = false
			summary.Reason = "absent"
		} else {
			windows, err := dayWindows(db, cfg, doctor.ID, dayStart)
			if err != nil {
				return nil, err
			}
			if len(windows) == 0 {
				summary.Available = false
				summary.Reason = "no_hours"
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// GenerateAppointmentICS renders an appointment as an ICS calendar file.
// Times are emitted in UTC.
func GenerateAppointmentICS(apt *models.Appointment, practiceName, practiceEmail string) ([]byte, error) {
	dateFormat := "20060102T150405Z"
	dtStamp := time.Now().UTC().Format(dateFormat)
	dtStart := apt.StartTime.UTC().Format(dateFormat)
	dtEnd := apt.EndTime.UTC().Format(dateFormat)

	summary := fmt.Sprintf("Appointment: %s", practiceName)
	if apt.Type != nil {
		summary = fmt.Sprintf("%s: %s", apt.Type.Name, practiceName)
	}
	description := fmt.Sprintf("Appointment with %s at %s.", apt.Doctor.Name, practiceName)
	if apt.Notes != nil && *apt.Notes != "" {
		description += fmt.Sprintf("\\nNotes: %s", *apt.Notes)
	}

	const icsTemplate = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//ClinicFlow//Appointment//EN
CALSCALE:GREGORIAN
METHOD:REQUEST
BEGIN:VEVENT
UID:%s
DTSTAMP:%s
DTSTART:%s
DTEND:%s
SUMMARY:%s
DESCRIPTION:%s
ORGANIZER;CN="%s":mailto:%s
STATUS:CONFIRMED
END:VEVENT
END:VCALENDAR`

	icsContent := fmt.Sprintf(icsTemplate,
		apt.BookingToken,
		dtStamp,
		dtStart,
		dtEnd,
		summary,
		description,
		practiceName,
		practiceEmail,
	)
	return []byte(icsContent), nil
}

// OperationStats aggregates operation counts for a date range
type OperationStats struct {
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"by_status"`
	TotalHours float64          `json:"total_hours"`
}

// GetOperationStats counts operations per status in [from, to)
func GetOperationStats(db *gorm.DB, actor *models.Clinician, from, to time.Time) (*OperationStats, error) {
	if err := Authorize(actor, DomainOperations, VerbRead); err != nil {
		return nil, err
	}

	query := db.Model(&models.Operation{}).
		Where("start_time < ? AND end_time > ?", to, from)
	if !ScopeIsAll(actor, DomainOperations, VerbRead) {
		query = query.Where("primary_surgeon_id = ? OR assistant_id = ? OR anesthesist_id = ?",
			actor.ID, actor.ID, actor.ID)
	}

	var rows []struct {
		Status  string
		Count   int64
		Minutes float64
	}
	err := query.
		Select("status, COUNT(*) AS count, SUM((julianday(end_time) - julianday(start_time)) * 24 * 60) AS minutes").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &OperationStats{ByStatus: make(map[string]int64)}
	for _, row := range rows {
		stats.Total += row.Count
		stats.ByStatus[row.Status] = row.Count
		stats.TotalHours += row.Minutes / 60
	}

	auditActor(db, actor, models.AuditOpStatsView, nil, map[string]interface{}{
		"from": from.Format("2006-01-02"),
		"to":   to.Format("2006-01-02"),
	})
	return stats, nil
}

// OperationTimelineEntry is one operation with its live progress
type OperationTimelineEntry struct {
	Operation models.Operation `json:"operation"`
	Progress  float64          `json:"progress"`
}

// GetOperationTimeline lists a day's operations with progress computed
// against the given clock.
func GetOperationTimeline(db *gorm.DB, cfg config.CoreConfig, actor *models.Clinician, day, now time.Time) ([]OperationTimelineEntry, error) {
	dayStart := models.DayStart(day, cfg.Location)
	operations, err := ListOperations(db, actor, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	entries := make([]OperationTimelineEntry, 0, len(operations))
	for i := range operations {
		entries = append(entries, OperationTimelineEntry{
			Operation: operations[i],
			Progress:  operations[i].Progress(now),
		})
	}

	auditActor(db, actor, models.AuditOpTimelineView, nil, map[string]interface{}{
		"day": dayStart.Format("2006-01-02"),
	})
	return entries, nil
}
