package handlers

import (
	"clinic_flow_app_go/db"
	"clinic_flow_app_go/middleware"
	"clinic_flow_app_go/services"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ListAuditEventsHandler returns paginated audit events, newest first.
// Admin only.
func ListAuditEventsHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)
	if err := services.Authorize(actor, services.DomainAuditLog, services.VerbRead); err != nil {
		return httpError(err)
	}

	var filters services.AuditEventFilters
	if actorID, err := queryUint(c, "actor_id"); err != nil {
		return err
	} else if actorID != 0 {
		filters.ActorID = &actorID
	}
	if patientID, err := queryUint(c, "patient_id"); err != nil {
		return err
	} else if patientID != 0 {
		filters.PatientID = &patientID
	}
	filters.Action = c.QueryParam("action")

	var err error
	if filters.DateFrom, err = queryDate(c, "from"); err != nil {
		return err
	}
	if filters.DateTo, err = queryDate(c, "to"); err != nil {
		return err
	}

	page, err := queryInt(c, "page", 1)
	if err != nil {
		return err
	}
	pageSize, err := queryInt(c, "page_size", 50)
	if err != nil {
		return err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}

	events, total, err := services.GetAuditEvents(db.DB, filters, page, pageSize)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"events":    events,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}
