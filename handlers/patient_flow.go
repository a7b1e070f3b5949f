package handlers

import (
	"clinic_flow_app_go/db"
	"clinic_flow_app_go/middleware"
	"clinic_flow_app_go/services"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type patientFlowRequest struct {
	AppointmentID *uint      `json:"appointment_id,omitempty"`
	OperationID   *uint      `json:"operation_id,omitempty"`
	ArrivalTime   *time.Time `json:"arrival_time,omitempty"`
}

// CreatePatientFlowHandler registers a patient against a booking
func CreatePatientFlowHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)

	var req patientFlowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	flow, err := services.CreatePatientFlow(db.DB, actor, services.PatientFlowInput{
		AppointmentID: req.AppointmentID,
		OperationID:   req.OperationID,
		ArrivalTime:   req.ArrivalTime,
	}, time.Now())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, flow)
}

type patientFlowStatusRequest struct {
	Status string `json:"status"`
}

// UpdatePatientFlowStatusHandler moves a flow forward
func UpdatePatientFlowStatusHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}

	var req patientFlowStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	flow, err := services.UpdatePatientFlowStatus(db.DB, actor, id, req.Status, time.Now())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, flow)
}

// GetPatientFlowHandler returns one flow with its linked booking
func GetPatientFlowHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}

	flow, err := services.GetPatientFlow(db.DB, actor, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, flow)
}

// ListActivePatientFlowsHandler returns the live waiting board
func ListActivePatientFlowsHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)

	flows, err := services.ListActivePatientFlows(db.DB, actor)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, flows)
}
