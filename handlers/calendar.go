package handlers

import (
	"clinic_flow_app_go/db"
	"clinic_flow_app_go/middleware"
	"clinic_flow_app_go/services"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// CalendarViewHandler returns the calendar payload for a day, week, or month
func CalendarViewHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)

	scope := c.QueryParam("scope")
	if scope == "" {
		scope = services.CalendarScopeWeek
	}
	anchor, err := queryDate(c, "date")
	if err != nil {
		return err
	}
	if anchor.IsZero() {
		anchor = time.Now()
	}

	var filters services.CalendarFilters
	if doctorID, err := queryUint(c, "doctor_id"); err != nil {
		return err
	} else if doctorID != 0 {
		filters.DoctorID = &doctorID
	}
	if resourceID, err := queryUint(c, "resource_id"); err != nil {
		return err
	} else if resourceID != 0 {
		filters.ResourceID = &resourceID
	}

	view, err := services.CalendarView(db.DB, coreConfig(c), actor, scope, anchor, filters)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view)
}
