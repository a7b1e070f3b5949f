package services

import (
	"fmt"
	"time"
)

// Working-hours violation reasons
const (
	HoursReasonNoPracticeHours      = "no_practice_hours"
	HoursReasonOutsidePracticeHours = "outside_practice_hours"
	HoursReasonNoDoctorHours        = "no_doctor_hours"
	HoursReasonOutsideDoctorHours   = "outside_doctor_hours"
)

// InvalidDataError reports a structural input problem. Not retryable.
type InvalidDataError struct {
	Field   string
	Message string
}

func (e *InvalidDataError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NotAuthorizedError reports a gate rejection with the violated rule key
type NotAuthorizedError struct {
	Rule string
}

func (e *NotAuthorizedError) Error() string {
	return fmt.Sprintf("not authorized: %s", e.Rule)
}

// NotFoundError reports a missing or inactive referenced entity
type NotFoundError struct {
	Model string
	ID    uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Model, e.ID)
}

// WorkingHoursViolationError reports a booking outside practice or doctor hours
type WorkingHoursViolationError struct {
	DoctorID     uint
	Date         time.Time
	Start        time.Time
	End          time.Time
	Reason       string
	Alternatives []DoctorSuggestions // Best-effort slots with other doctors
}

func (e *WorkingHoursViolationError) Error() string {
	return fmt.Sprintf("working hours violation for doctor %d on %s: %s",
		e.DoctorID, e.Date.Format("2006-01-02"), e.Reason)
}

// DoctorAbsentError reports an overlap with an active absence
type DoctorAbsentError struct {
	DoctorID  uint
	Date      time.Time
	AbsenceID uint
	Reason    string
}

func (e *DoctorAbsentError) Error() string {
	return fmt.Sprintf("doctor %d is absent on %s (absence %d)",
		e.DoctorID, e.Date.Format("2006-01-02"), e.AbsenceID)
}

// DoctorBreakConflictError reports an overlap with an active break
type DoctorBreakConflictError struct {
	DoctorID   *uint // nil for a practice-wide break
	Date       time.Time
	BreakID    uint
	BreakStart time.Time
	BreakEnd   time.Time
}

func (e *DoctorBreakConflictError) Error() string {
	return fmt.Sprintf("break %d conflicts on %s", e.BreakID, e.Date.Format("2006-01-02"))
}

// SchedulingConflictError carries the full, sorted list of detected conflicts
type SchedulingConflictError struct {
	Conflicts []Conflict
}

func (e *SchedulingConflictError) Error() string {
	return fmt.Sprintf("scheduling conflict: %d conflicting bookings", len(e.Conflicts))
}

// RoomInvalidError reports an op room that is not an active room resource
type RoomInvalidError struct {
	ResourceID uint
}

func (e *RoomInvalidError) Error() string {
	return fmt.Sprintf("resource %d is not a valid operation room", e.ResourceID)
}

// DeviceInvalidError reports a device link target that is not an active device
type DeviceInvalidError struct {
	ResourceID uint
}

func (e *DeviceInvalidError) Error() string {
	return fmt.Sprintf("resource %d is not a valid device", e.ResourceID)
}

// InvalidTransitionError reports a rejected lifecycle transition
type InvalidTransitionError struct {
	From   string
	To     string
	Detail string
}

func (e *InvalidTransitionError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("invalid transition %s -> %s: %s", e.From, e.To, e.Detail)
	}
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}

// Transition rejection details
const (
	TransitionStartNotReached     = "start_not_reached"
	TransitionDoneRequiresRunning = "done_requires_running"
)

// InvalidStateError reports an operation on an entity in the wrong state
type InvalidStateError struct {
	Message string
}

func (e *InvalidStateError) Error() string {
	return e.Message
}

// CancelledError reports a deadline exceeded or client cancellation.
// No effect was persisted.
type CancelledError struct{}

func (e *CancelledError) Error() string {
	return "operation cancelled"
}
