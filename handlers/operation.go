package handlers

import (
	"clinic_flow_app_go/db"
	"clinic_flow_app_go/middleware"
	"clinic_flow_app_go/services"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type operationRequest struct {
	PatientID        uint      `json:"patient_id"`
	PrimarySurgeonID uint      `json:"primary_surgeon_id"`
	AssistantID      *uint     `json:"assistant_id,omitempty"`
	AnesthesistID    *uint     `json:"anesthesist_id,omitempty"`
	OpRoomID         uint      `json:"op_room_id"`
	OpTypeID         uint      `json:"op_type_id"`
	StartTime        time.Time `json:"start_time"`
	OpDeviceIDs      []uint    `json:"op_device_ids,omitempty"`
	Status           string    `json:"status,omitempty"`
	Notes            *string   `json:"notes,omitempty"`
}

// CreateOperationHandler plans a new operation; the end time is derived
// from the operation type.
func CreateOperationHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)

	var req operationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	op, err := services.PlanOperation(c.Request().Context(), db.DB, coreConfig(c), actor, services.OperationInput{
		PatientID:        req.PatientID,
		PrimarySurgeonID: req.PrimarySurgeonID,
		AssistantID:      req.AssistantID,
		AnesthesistID:    req.AnesthesistID,
		OpRoomID:         req.OpRoomID,
		OpTypeID:         req.OpTypeID,
		StartTime:        req.StartTime,
		OpDeviceIDs:      req.OpDeviceIDs,
		Status:           req.Status,
		Notes:            req.Notes,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, op)
}

type operationPatchRequest struct {
	PatientID        *uint      `json:"patient_id,omitempty"`
	PrimarySurgeonID *uint      `json:"primary_surgeon_id,omitempty"`
	AssistantID      *uint      `json:"assistant_id,omitempty"`
	ClearAssistant   bool       `json:"clear_assistant,omitempty"`
	AnesthesistID    *uint      `json:"anesthesist_id,omitempty"`
	ClearAnesthesist bool       `json:"clear_anesthesist,omitempty"`
	OpRoomID         *uint      `json:"op_room_id,omitempty"`
	OpTypeID         *uint      `json:"op_type_id,omitempty"`
	StartTime        *time.Time `json:"start_time,omitempty"`
	OpDeviceIDs      *[]uint    `json:"op_device_ids,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
}

// UpdateOperationHandler applies a partial update and re-runs the checks
func UpdateOperationHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}

	var req operationPatchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	op, err := services.UpdateOperation(c.Request().Context(), db.DB, coreConfig(c), actor, id, services.OperationPatch{
		PatientID:        req.PatientID,
		PrimarySurgeonID: req.PrimarySurgeonID,
		AssistantID:      req.AssistantID,
		ClearAssistant:   req.ClearAssistant,
		AnesthesistID:    req.AnesthesistID,
		ClearAnesthesist: req.ClearAnesthesist,
		OpRoomID:         req.OpRoomID,
		OpTypeID:         req.OpTypeID,
		StartTime:        req.StartTime,
		OpDeviceIDs:      req.OpDeviceIDs,
		Notes:            req.Notes,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, op)
}

type operationStatusRequest struct {
	Status string `json:"status"`
}

// UpdateOperationStatusHandler applies a lifecycle transition
func UpdateOperationStatusHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}

	var req operationStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	op, err := services.UpdateOperationStatus(db.DB, actor, id, req.Status, time.Now())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, op)
}

// GetOperationHandler returns one operation
func GetOperationHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}

	op, err := services.GetOperation(db.DB, actor, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, op)
}

// ListOperationsHandler returns operations in a date range
func ListOperationsHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)
	start, end, err := dateRange(c)
	if err != nil {
		return err
	}

	operations, err := services.ListOperations(db.DB, actor, start, end)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, operations)
}

// DeleteOperationHandler removes an operation
func DeleteOperationHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}

	if err := services.DeleteOperation(db.DB, actor, id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// OperationStatsHandler aggregates operation counts for a date range
func OperationStatsHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)
	start, end, err := dateRange(c)
	if err != nil {
		return err
	}

	stats, err := services.GetOperationStats(db.DB, actor, start, end)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

// OperationTimelineHandler lists a day's operations with live progress
func OperationTimelineHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)
	day, err := queryDate(c, "day")
	if err != nil {
		return err
	}
	if day.IsZero() {
		day = time.Now()
	}

	entries, err := services.GetOperationTimeline(db.DB, coreConfig(c), actor, day, time.Now())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, entries)
}
