package handlers

import (
	"clinic_flow_app_go/db"
	"clinic_flow_app_go/middleware"
	"clinic_flow_app_go/services"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type appointmentRequest struct {
	PatientID   uint      `json:"patient_id"`
	DoctorID    uint      `json:"doctor_id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	TypeID      *uint     `json:"type_id,omitempty"`
	ResourceIDs []uint    `json:"resource_ids,omitempty"`
	Status      string    `json:"status,omitempty"`
	Notes       *string   `json:"notes,omitempty"`
}

// CreateAppointmentHandler plans a new appointment
func CreateAppointmentHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)

	var req appointmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	apt, err := services.PlanAppointment(c.Request().Context(), db.DB, coreConfig(c), actor, services.AppointmentInput{
		PatientID:   req.PatientID,
		DoctorID:    req.DoctorID,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		TypeID:      req.TypeID,
		ResourceIDs: req.ResourceIDs,
		Status:      req.Status,
		Notes:       req.Notes,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, apt)
}

type appointmentPatchRequest struct {
	PatientID   *uint      `json:"patient_id,omitempty"`
	DoctorID    *uint      `json:"doctor_id,omitempty"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	TypeID      *uint      `json:"type_id,omitempty"`
	ResourceIDs *[]uint    `json:"resource_ids,omitempty"`
	Status      *string    `json:"status,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
}

// UpdateAppointmentHandler applies a partial update and re-runs the checks
func UpdateAppointmentHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}

	var req appointmentPatchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	apt, err := services.UpdateAppointment(c.Request().Context(), db.DB, coreConfig(c), actor, id, services.AppointmentPatch{
		PatientID:   req.PatientID,
		DoctorID:    req.DoctorID,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		TypeID:      req.TypeID,
		ResourceIDs: req.ResourceIDs,
		Status:      req.Status,
		Notes:       req.Notes,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, apt)
}

// GetAppointmentHandler returns one appointment
func GetAppointmentHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}

	apt, err := services.GetAppointment(db.DB, actor, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, apt)
}

// ListAppointmentsHandler returns appointments in a date range
func ListAppointmentsHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)
	start, end, err := dateRange(c)
	if err != nil {
		return err
	}

	appointments, err := services.ListAppointments(db.DB, actor, start, end)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, appointments)
}

// DeleteAppointmentHandler removes an appointment
func DeleteAppointmentHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}

	if err := services.DeleteAppointment(db.DB, actor, id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// MarkNoShowHandler flags a past appointment as missed
func MarkNoShowHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}

	apt, err := services.MarkNoShow(db.DB, actor, id, time.Now())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, apt)
}

// AppointmentICSHandler exports an appointment as an ICS calendar file
func AppointmentICSHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}

	apt, err := services.GetAppointment(db.DB, actor, id)
	if err != nil {
		return httpError(err)
	}

	ics, err := services.GenerateAppointmentICS(apt, "Clinic Flow", "reception@clinic-flow.example")
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate calendar file")
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="appointment.ics"`)
	return c.Blob(http.StatusOK, "text/calendar", ics)
}
