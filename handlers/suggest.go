package handlers

import (
	"clinic_flow_app_go/db"
	"clinic_flow_app_go/middleware"
	"clinic_flow_app_go/services"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type suggestRequest struct {
	DoctorID        uint       `json:"doctor_id"`
	StartDate       time.Time  `json:"start_date"`
	DurationMinutes int        `json:"duration_min,omitempty"`
	TypeID          *uint      `json:"type_id,omitempty"`
	ResourceIDs     []uint     `json:"resource_ids,omitempty"`
	Limit           int        `json:"limit,omitempty"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	MaxDays         int        `json:"max_days,omitempty"`
}

// SuggestAppointmentSlotsHandler proposes free appointment slots
func SuggestAppointmentSlotsHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)

	var req suggestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	result, err := services.SuggestAppointmentSlots(db.DB, coreConfig(c), actor, services.SuggestParams{
		DoctorID:        req.DoctorID,
		StartDate:       req.StartDate,
		DurationMinutes: req.DurationMinutes,
		TypeID:          req.TypeID,
		ResourceIDs:     req.ResourceIDs,
		Limit:           req.Limit,
		EndDate:         req.EndDate,
		Now:             time.Now(),
		MaxDays:         req.MaxDays,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, result)
}

type operationSuggestRequest struct {
	PatientID        uint       `json:"patient_id,omitempty"`
	PrimarySurgeonID uint       `json:"primary_surgeon_id"`
	AssistantID      *uint      `json:"assistant_id,omitempty"`
	AnesthesistID    *uint      `json:"anesthesist_id,omitempty"`
	OpRoomID         uint       `json:"op_room_id"`
	OpTypeID         uint       `json:"op_type_id"`
	OpDeviceIDs      []uint     `json:"op_device_ids,omitempty"`
	StartDate        time.Time  `json:"start_date"`
	Limit            int        `json:"limit,omitempty"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	MaxDays          int        `json:"max_days,omitempty"`
}

// SuggestOperationSlotsHandler proposes free operation start times
func SuggestOperationSlotsHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)

	var req operationSuggestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	suggestions, err := services.SuggestOperationSlots(db.DB, coreConfig(c), actor, services.OperationSuggestParams{
		PatientID:        req.PatientID,
		PrimarySurgeonID: req.PrimarySurgeonID,
		AssistantID:      req.AssistantID,
		AnesthesistID:    req.AnesthesistID,
		OpRoomID:         req.OpRoomID,
		OpTypeID:         req.OpTypeID,
		OpDeviceIDs:      req.OpDeviceIDs,
		StartDate:        req.StartDate,
		Limit:            req.Limit,
		EndDate:          req.EndDate,
		Now:              time.Now(),
		MaxDays:          req.MaxDays,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, suggestions)
}
