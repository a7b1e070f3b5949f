package services

import (
	"clinic_flow_app_go/config"
	"clinic_flow_app_go/models"
	"time"

	"gorm.io/gorm"
)

// dateOnly returns the calendar day of t in loc, normalized to midnight UTC.
// Dates are stored this way so date-range queries compare cleanly.
func dateOnly(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// eachLocalDay invokes fn for every local day intersecting [start, end),
// passing the day start and the clipped segment. Iteration stops early when
// fn returns false.
func eachLocalDay(start, end time.Time, loc *time.Location, fn func(day, segStart, segEnd time.Time) bool) {
	for day := models.DayStart(start, loc); day.Before(end); day = day.AddDate(0, 0, 1) {
		nextDay := day.AddDate(0, 0, 1)
		segStart := start
		if day.After(segStart) {
			segStart = day
		}
		segEnd := end
		if nextDay.Before(segEnd) {
			segEnd = nextDay
		}
		if !fn(day, segStart, segEnd) {
			return
		}
	}
}

// HoursCover checks that every local day-segment of [start, end) is fully
// contained within at least one active practice window and one active
// doctor window for that weekday. It returns one of the HoursReason
// constants on failure and "" when covered. The weekday is derived from
// the practice-local day, not from UTC.
func HoursCover(db *gorm.DB, cfg config.CoreConfig, doctorID uint, start, end time.Time) (string, error) {
	reason := ""
	var queryErr error

	eachLocalDay(start, end, cfg.Location, func(day, segStart, segEnd time.Time) bool {
		weekday := models.WeekdayIndex(day)

		var practiceWindows []models.PracticeHours
		queryErr = db.Where("weekday = ? AND is_active = ?", weekday, true).
			Order("start_time, id").
			Find(&practiceWindows).Error
		if queryErr != nil {
			return false
		}
		if len(practiceWindows) == 0 {
			reason = HoursReasonNoPracticeHours
			return false
		}
		covered := false
		for _, window := range practiceWindows {
			if window.Covers(day, segStart, segEnd, cfg.Location) {
				covered = true
				break
			}
		}
		if !covered {
			reason = HoursReasonOutsidePracticeHours
			return false
		}

		var doctorWindows []models.DoctorHours
		queryErr = db.Where("doctor_id = ? AND weekday = ? AND is_active = ?", doctorID, weekday, true).
			Order("start_time, id").
			Find(&doctorWindows).Error
		if queryErr != nil {
			return false
		}
		if len(doctorWindows) == 0 {
			reason = HoursReasonNoDoctorHours
			return false
		}
		covered = false
		for _, window := range doctorWindows {
			if window.Covers(day, segStart, segEnd, cfg.Location) {
				covered = true
				break
			}
		}
		if !covered {
			reason = HoursReasonOutsideDoctorHours
			return false
		}
		return true
	})

	if queryErr != nil {
		return "", queryErr
	}
	return reason, nil
}

// FindAbsence returns the first active absence of the doctor whose date
// range overlaps [start, end), in (start_date, id) order, or nil.
func FindAbsence(db *gorm.DB, cfg config.CoreConfig, doctorID uint, start, end time.Time) (*models.DoctorAbsence, error) {
	firstDay := dateOnly(start, cfg.Location)
	// end is exclusive, so a window ending exactly at midnight does not
	// touch the following day.
	lastDay := dateOnly(end.Add(-time.Nanosecond), cfg.Location)

	var absence models.DoctorAbsence
	err := db.Where("doctor_id = ? AND is_active = ?", doctorID, true).
		Where("start_date <= ? AND end_date >= ?", lastDay, firstDay).
		Order("start_date, id").
		First(&absence).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &absence, nil
}

// FindBreakConflict returns the first active break (practice-wide or owned
// by the doctor) that time-overlaps [start, end), in (date, start_time, id)
// order, or nil.
func FindBreakConflict(db *gorm.DB, cfg config.CoreConfig, doctorID uint, start, end time.Time) (*models.DoctorBreak, error) {
	firstDay := dateOnly(start, cfg.Location)
	lastDay := dateOnly(end.Add(-time.Nanosecond), cfg.Location)

	var breaks []models.DoctorBreak
	err := db.Where("is_active = ?", true).
		Where("doctor_id IS NULL OR doctor_id = ?", doctorID).
		Where("date >= ? AND date <= ?", firstDay, lastDay).
		Order("date, start_time, id").
		Find(&breaks).Error
	if err != nil {
		return nil, err
	}

	for i := range breaks {
		if breaks[i].Blocks(start, end, cfg.Location) {
			return &breaks[i], nil
		}
	}
	return nil, nil
}

// checkDoctorAvailability bundles the oracle checks the admission pipelines
// share: hours coverage (optional), absence, break. The first violation is
// returned as its typed error.
func checkDoctorAvailability(db *gorm.DB, cfg config.CoreConfig, doctorID uint, start, end time.Time, enforceHours bool) error {
	if enforceHours {
		reason, err := HoursCover(db, cfg, doctorID, start, end)
		if err != nil {
			return err
		}
		if reason != "" {
			return &WorkingHoursViolationError{
				DoctorID: doctorID,
				Date:     dateOnly(start, cfg.Location),
				Start:    start,
				End:      end,
				Reason:   reason,
			}
		}
	}

	absence, err := FindAbsence(db, cfg, doctorID, start, end)
	if err != nil {
		return err
	}
	if absence != nil {
		return &DoctorAbsentError{
			DoctorID:  doctorID,
			Date:      dateOnly(start, cfg.Location),
			AbsenceID: absence.ID,
			Reason:    absence.Reason,
		}
	}

	brk, err := FindBreakConflict(db, cfg, doctorID, start, end)
	if err != nil {
		return err
	}
	if brk != nil {
		bs, be := brk.Interval(cfg.Location)
		return &DoctorBreakConflictError{
			DoctorID:   brk.DoctorID,
			Date:       dateOnly(start, cfg.Location),
			BreakID:    brk.ID,
			BreakStart: bs,
			BreakEnd:   be,
		}
	}

	return nil
}
