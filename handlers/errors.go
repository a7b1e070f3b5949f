package handlers

import (
	"clinic_flow_app_go/services"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// errorBody is the uniform failure payload: a machine-readable kind, a
// human message, and kind-specific details.
type errorBody struct {
	Kind    string      `json:"kind"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// httpError translates a typed service error into an HTTP response.
// Unknown errors become opaque 500s so internals never leak.
func httpError(err error) error {
	var invalidData *services.InvalidDataError
	if errors.As(err, &invalidData) {
		return echo.NewHTTPError(http.StatusBadRequest, errorBody{
			Kind:    "invalid_data",
			Message: err.Error(),
			Details: map[string]string{"field": invalidData.Field},
		})
	}

	var notAuthorized *services.NotAuthorizedError
	if errors.As(err, &notAuthorized) {
		return echo.NewHTTPError(http.StatusForbidden, errorBody{
			Kind:    "not_authorized",
			Message: err.Error(),
			Details: map[string]string{"rule": notAuthorized.Rule},
		})
	}

	var notFound *services.NotFoundError
	if errors.As(err, &notFound) {
		return echo.NewHTTPError(http.StatusNotFound, errorBody{
			Kind:    "not_found",
			Message: err.Error(),
		})
	}

	var hours *services.WorkingHoursViolationError
	if errors.As(err, &hours) {
		return echo.NewHTTPError(http.StatusConflict, errorBody{
			Kind:    "working_hours_violation",
			Message: err.Error(),
			Details: map[string]interface{}{
				"doctor_id":    hours.DoctorID,
				"date":         hours.Date.Format("2006-01-02"),
				"reason":       hours.Reason,
				"alternatives": hours.Alternatives,
			},
		})
	}

	var absent *services.DoctorAbsentError
	if errors.As(err, &absent) {
		return echo.NewHTTPError(http.StatusConflict, errorBody{
			Kind:    "doctor_absent",
			Message: err.Error(),
			Details: map[string]interface{}{
				"doctor_id":  absent.DoctorID,
				"date":       absent.Date.Format("2006-01-02"),
				"absence_id": absent.AbsenceID,
				"reason":     absent.Reason,
			},
		})
	}

	var brk *services.DoctorBreakConflictError
	if errors.As(err, &brk) {
		return echo.NewHTTPError(http.StatusConflict, errorBody{
			Kind:    "doctor_break_conflict",
			Message: err.Error(),
			Details: map[string]interface{}{
				"break_id":    brk.BreakID,
				"date":        brk.Date.Format("2006-01-02"),
				"break_start": brk.BreakStart,
				"break_end":   brk.BreakEnd,
			},
		})
	}

	var conflict *services.SchedulingConflictError
	if errors.As(err, &conflict) {
		return echo.NewHTTPError(http.StatusConflict, errorBody{
			Kind:    "scheduling_conflict",
			Message: err.Error(),
			Details: map[string]interface{}{"conflicts": conflict.Conflicts},
		})
	}

	var roomInvalid *services.RoomInvalidError
	if errors.As(err, &roomInvalid) {
		return echo.NewHTTPError(http.StatusBadRequest, errorBody{
			Kind:    "room_invalid",
			Message: err.Error(),
			Details: map[string]uint{"resource_id": roomInvalid.ResourceID},
		})
	}

	var deviceInvalid *services.DeviceInvalidError
	if errors.As(err, &deviceInvalid) {
		return echo.NewHTTPError(http.StatusBadRequest, errorBody{
			Kind:    "device_invalid",
			Message: err.Error(),
			Details: map[string]uint{"resource_id": deviceInvalid.ResourceID},
		})
	}

	var transition *services.InvalidTransitionError
	if errors.As(err, &transition) {
		return echo.NewHTTPError(http.StatusConflict, errorBody{
			Kind:    "invalid_transition",
			Message: err.Error(),
			Details: map[string]string{
				"from":   transition.From,
				"to":     transition.To,
				"detail": transition.Detail,
			},
		})
	}

	var invalidState *services.InvalidStateError
	if errors.As(err, &invalidState) {
		return echo.NewHTTPError(http.StatusConflict, errorBody{
			Kind:    "invalid_state",
			Message: err.Error(),
		})
	}

	var cancelled *services.CancelledError
	if errors.As(err, &cancelled) {
		return echo.NewHTTPError(http.StatusRequestTimeout, errorBody{
			Kind:    "cancelled",
			Message: err.Error(),
		})
	}

	return echo.NewHTTPError(http.StatusInternalServerError, errorBody{
		Kind:    "internal",
		Message: "Internal server error",
	})
}
