package services

import (
	"clinic_flow_app_go/config"
	"clinic_flow_app_go/models"
	"errors"
	"time"

	"gorm.io/gorm"
)

// validClock reports whether s parses as "HH:MM"
func validClock(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil
}

func validateWindow(weekday int, startTime, endTime string) error {
	if weekday < 0 || weekday > 6 {
		return &InvalidDataError{Field: "weekday", Message: "must be between 0 (Monday) and 6 (Sunday)"}
	}
	if !validClock(startTime) {
		return &InvalidDataError{Field: "start_time", Message: "must be HH:MM"}
	}
	if !validClock(endTime) {
		return &InvalidDataError{Field: "end_time", Message: "must be HH:MM"}
	}
	if startTime >= endTime {
		return &InvalidDataError{Field: "start_time", Message: "must be before end_time"}
	}
	return nil
}

// --- Practice hours ---

// CreatePracticeHours adds a practice-wide opening window
func CreatePracticeHours(db *gorm.DB, actor *models.Clinician, weekday int, startTime, endTime string) (*models.PracticeHours, error) {
	if err := Authorize(actor, DomainPracticeHours, VerbWrite); err != nil {
		return nil, err
	}
	if err := validateWindow(weekday, startTime, endTime); err != nil {
		return nil, err
	}

	window := models.PracticeHours{
		Weekday:   weekday,
		StartTime: startTime,
		EndTime:   endTime,
		IsActive:  true,
	}
	if err := db.Create(&window).Error; err != nil {
		return nil, err
	}
	return &window, nil
}

// ListPracticeHours returns all active windows ordered by weekday and start
func ListPracticeHours(db *gorm.DB, actor *models.Clinician) ([]models.PracticeHours, error) {
	if err := Authorize(actor, DomainPracticeHours, VerbRead); err != nil {
		return nil, err
	}
	var windows []models.PracticeHours
	err := db.Where("is_active = ?", true).
		Order("weekday, start_time, id").
		Find(&windows).Error
	return windows, err
}

// DeactivatePracticeHours retires a window without losing history
func DeactivatePracticeHours(db *gorm.DB, actor *models.Clinician, id uint) error {
	if err := Authorize(actor, DomainPracticeHours, VerbWrite); err != nil {
		return err
	}
	result := db.Model(&models.PracticeHours{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &NotFoundError{Model: "PracticeHours", ID: id}
	}
	return nil
}

// --- Doctor hours ---

// CreateDoctorHours adds a working window for one doctor. The (doctor,
// weekday, start, end, active) combination is unique; duplicates are
// rejected before hitting the index.
func CreateDoctorHours(db *gorm.DB, actor *models.Clinician, doctorID uint, weekday int, startTime, endTime string) (*models.DoctorHours, error) {
	if err := Authorize(actor, DomainDoctorHours, VerbWrite); err != nil {
		return nil, err
	}
	if err := validateWindow(weekday, startTime, endTime); err != nil {
		return nil, err
	}
	if _, err := resolveActiveDoctor(db, doctorID); err != nil {
		return nil, err
	}

	var count int64
	err := db.Model(&models.DoctorHours{}).
		Where("doctor_id = ? AND weekday = ? AND start_time = ? AND end_time = ? AND is_active = ?",
			doctorID, weekday, startTime, endTime, true).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, &InvalidDataError{Field: "start_time", Message: "identical active window already exists"}
	}

	window := models.DoctorHours{
		DoctorID:  doctorID,
		Weekday:   weekday,
		StartTime: startTime,
		EndTime:   endTime,
		IsActive:  true,
	}
	if err := db.Create(&window).Error; err != nil {
		return nil, err
	}
	return &window, nil
}

// ListDoctorHours returns the doctor's active windows. Doctors may only
// read their own.
func ListDoctorHours(db *gorm.DB, actor *models.Clinician, doctorID uint) ([]models.DoctorHours, error) {
	if err := AuthorizeDoctorScoped(actor, DomainDoctorHours, VerbRead, &doctorID); err != nil {
		return nil, err
	}
	var windows []models.DoctorHours
	err := db.Where("doctor_id = ? AND is_active = ?", doctorID, true).
		Order("weekday, start_time, id").
		Find(&windows).Error
	return windows, err
}

// DeactivateDoctorHours retires a doctor window
func DeactivateDoctorHours(db *gorm.DB, actor *models.Clinician, id uint) error {
	if err := Authorize(actor, DomainDoctorHours, VerbWrite); err != nil {
		return err
	}
	result := db.Model(&models.DoctorHours{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &NotFoundError{Model: "DoctorHours", ID: id}
	}
	return nil
}

// --- Absences ---

// AbsenceInput is the request payload for recording an absence
type AbsenceInput struct {
	DoctorID  uint
	StartDate time.Time
	EndDate   time.Time
	Reason    string
}

// AbsenceSummary decorates an absence with its derived values
type AbsenceSummary struct {
	models.DoctorAbsence
	WorkdaysCount     int       `json:"workdays_count"`
	ReturnDate        time.Time `json:"return_date"`
	RemainingVacation *int      `json:"remaining_vacation,omitempty"`
}

func validateAbsenceInput(input *AbsenceInput) error {
	if input.DoctorID == 0 {
		return &InvalidDataError{Field: "doctor_id", Message: "is required"}
	}
	if input.StartDate.IsZero() || input.EndDate.IsZero() {
		return &InvalidDataError{Field: "start_date", Message: "start and end dates are required"}
	}
	if input.EndDate.Before(input.StartDate) {
		return &InvalidDataError{Field: "end_date", Message: "must not be before start_date"}
	}
	if input.Reason == "" {
		input.Reason = models.AbsenceReasonOther
	}
	switch input.Reason {
	case models.AbsenceReasonVacation, models.AbsenceReasonSick, models.AbsenceReasonTraining, models.AbsenceReasonOther:
	default:
		return &InvalidDataError{Field: "reason", Message: "unknown reason"}
	}
	return nil
}

// CreateAbsence records a doctor absence. Doctors may record their own;
// admins and assistants may record anyone's.
func CreateAbsence(db *gorm.DB, cfg config.CoreConfig, actor *models.Clinician, input AbsenceInput) (*AbsenceSummary, error) {
	if err := AuthorizeDoctorScoped(actor, DomainAbsences, VerbWrite, &input.DoctorID); err != nil {
		return nil, err
	}
	if err := validateAbsenceInput(&input); err != nil {
		return nil, err
	}
	if _, err := resolveActiveDoctor(db, input.DoctorID); err != nil {
		return nil, err
	}

	absence := models.DoctorAbsence{
		DoctorID:  input.DoctorID,
		StartDate: dateOnly(input.StartDate, time.UTC),
		EndDate:   dateOnly(input.EndDate, time.UTC),
		Reason:    input.Reason,
		IsActive:  true,
	}
	if err := db.Create(&absence).Error; err != nil {
		return nil, err
	}
	return summarizeAbsence(db, cfg, &absence)
}

// summarizeAbsence computes the derived fields for one absence
func summarizeAbsence(db *gorm.DB, cfg config.CoreConfig, absence *models.DoctorAbsence) (*AbsenceSummary, error) {
	summary := &AbsenceSummary{
		DoctorAbsence: *absence,
		WorkdaysCount: absence.WorkdaysCount(),
		ReturnDate:    absence.ReturnDate(),
	}
	if absence.IsVacation() {
		remaining, err := RemainingVacation(db, cfg, absence.DoctorID, absence.StartDate.Year())
		if err != nil {
			return nil, err
		}
		summary.RemainingVacation = &remaining
	}
	return summary, nil
}

// RemainingVacation computes the annual allocation minus the vacation
// workdays already booked in the calendar year. Computed on demand; never
// cached across writes.
func RemainingVacation(db *gorm.DB, cfg config.CoreConfig, doctorID uint, year int) (int, error) {
	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	var absences []models.DoctorAbsence
	err := db.Where("doctor_id = ? AND is_active = ? AND reason = ?", doctorID, true, models.AbsenceReasonVacation).
		Where("start_date <= ? AND end_date >= ?", yearEnd, yearStart).
		Find(&absences).Error
	if err != nil {
		return 0, err
	}

	used := 0
	for i := range absences {
		// Clamp ranges straddling the year boundary to this year's days.
		clipped := absences[i]
		if clipped.StartDate.Before(yearStart) {
			clipped.StartDate = yearStart
		}
		if clipped.EndDate.After(yearEnd) {
			clipped.EndDate = yearEnd
		}
		used += clipped.WorkdaysCount()
	}
	return cfg.VacationDaysPerYear - used, nil
}

// ListAbsences returns the doctor's active absences with derived values
func ListAbsences(db *gorm.DB, cfg config.CoreConfig, actor *models.Clinician, doctorID uint) ([]AbsenceSummary, error) {
	if err := AuthorizeDoctorScoped(actor, DomainAbsences, VerbRead, &doctorID); err != nil {
		return nil, err
	}

	var absences []models.DoctorAbsence
	err := db.Where("doctor_id = ? AND is_active = ?", doctorID, true).
		Order("start_date, id").
		Find(&absences).Error
	if err != nil {
		return nil, err
	}

	summaries := make([]AbsenceSummary, 0, len(absences))
	for i := range absences {
		summary, err := summarizeAbsence(db, cfg, &absences[i])
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *summary)
	}
	return summaries, nil
}

// DeleteAbsence deactivates an absence
func DeleteAbsence(db *gorm.DB, actor *models.Clinician, id uint) error {
	var absence models.DoctorAbsence
	if err := db.First(&absence, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Model: "DoctorAbsence", ID: id}
		}
		return err
	}
	if err := AuthorizeDoctorScoped(actor, DomainAbsences, VerbWrite, &absence.DoctorID); err != nil {
		return err
	}
	return db.Model(&absence).Update("is_active", false).Error
}

// --- Breaks ---

// BreakInput is the request payload for recording a break. A nil DoctorID
// creates a practice-wide break.
type BreakInput struct {
	DoctorID  *uint
	Date      time.Time
	StartTime string
	EndTime   string
	Reason    string
}

func validateBreakInput(input *BreakInput) error {
	if input.Date.IsZero() {
		return &InvalidDataError{Field: "date", Message: "is required"}
	}
	if !validClock(input.StartTime) {
		return &InvalidDataError{Field: "start_time", Message: "must be HH:MM"}
	}
	if !validClock(input.EndTime) {
		return &InvalidDataError{Field: "end_time", Message: "must be HH:MM"}
	}
	if input.StartTime >= input.EndTime {
		return &InvalidDataError{Field: "start_time", Message: "must be before end_time"}
	}
	return nil
}

// CreateBreak records a break. Practice-wide breaks require all-scope
// write access; doctors may only record breaks for themselves.
func CreateBreak(db *gorm.DB, actor *models.Clinician, input BreakInput) (*models.DoctorBreak, error) {
	if input.DoctorID == nil {
		if err := Authorize(actor, DomainBreaks, VerbWrite); err != nil {
			return nil, err
		}
		if !ScopeIsAll(actor, DomainBreaks, VerbWrite) {
			return nil, &NotAuthorizedError{Rule: ruleKey(actor.RoleEnum(), DomainBreaks, VerbWrite) + ":practice_wide"}
		}
	} else {
		if err := AuthorizeDoctorScoped(actor, DomainBreaks, VerbWrite, input.DoctorID); err != nil {
			return nil, err
		}
		if _, err := resolveActiveDoctor(db, *input.DoctorID); err != nil {
			return nil, err
		}
	}
	if err := validateBreakInput(&input); err != nil {
		return nil, err
	}

	brk := models.DoctorBreak{
		DoctorID:  input.DoctorID,
		Date:      dateOnly(input.Date, time.UTC),
		StartTime: input.StartTime,
		EndTime:   input.EndTime,
		Reason:    input.Reason,
		IsActive:  true,
	}
	if err := db.Create(&brk).Error; err != nil {
		return nil, err
	}
	return &brk, nil
}

// ListBreaks returns active breaks affecting the doctor in a date range,
// practice-wide ones included.
func ListBreaks(db *gorm.DB, actor *models.Clinician, doctorID uint, from, to time.Time) ([]models.DoctorBreak, error) {
	if err := AuthorizeDoctorScoped(actor, DomainBreaks, VerbRead, &doctorID); err != nil {
		return nil, err
	}

	query := db.Where("is_active = ?", true).
		Where("doctor_id IS NULL OR doctor_id = ?", doctorID).
		Order("date, start_time, id")
	if !from.IsZero() {
		query = query.Where("date >= ?", dateOnly(from, time.UTC))
	}
	if !to.IsZero() {
		query = query.Where("date <= ?", dateOnly(to, time.UTC))
	}

	var breaks []models.DoctorBreak
	err := query.Find(&breaks).Error
	return breaks, err
}

// DeleteBreak deactivates a break
func DeleteBreak(db *gorm.DB, actor *models.Clinician, id uint) error {
	var brk models.DoctorBreak
	if err := db.First(&brk, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Model: "DoctorBreak", ID: id}
		}
		return err
	}
	if brk.DoctorID == nil {
		if err := Authorize(actor, DomainBreaks, VerbWrite); err != nil {
			return err
		}
		if !ScopeIsAll(actor, DomainBreaks, VerbWrite) {
			return &NotAuthorizedError{Rule: ruleKey(actor.RoleEnum(), DomainBreaks, VerbWrite) + ":practice_wide"}
		}
	} else if err := AuthorizeDoctorScoped(actor, DomainBreaks, VerbWrite, brk.DoctorID); err != nil {
		return err
	}
	return db.Model(&brk).Update("is_active", false).Error
}
