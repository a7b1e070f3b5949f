package handlers

import (
	"clinic_flow_app_go/db"
	"clinic_flow_app_go/middleware"
	"clinic_flow_app_go/services"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// --- Practice hours ---

type hoursRequest struct {
	DoctorID  uint   `json:"doctor_id,omitempty"`
	Weekday   int    `json:"weekday"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// CreatePracticeHoursHandler adds a practice opening window
func CreatePracticeHoursHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)

	var req hoursRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	window, err := services.CreatePracticeHours(db.DB, actor, req.Weekday, req.StartTime, req.EndTime)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, window)
}

// ListPracticeHoursHandler returns all active practice windows
func ListPracticeHoursHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)

	windows, err := services.ListPracticeHours(db.DB, actor)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, windows)
}

// DeletePracticeHoursHandler deactivates a practice window
func DeletePracticeHoursHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}

	if err := services.DeactivatePracticeHours(db.DB, actor, id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// --- Doctor hours ---

// CreateDoctorHoursHandler adds a working window for a doctor
func CreateDoctorHoursHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)

	var req hoursRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	window, err := services.CreateDoctorHours(db.DB, actor, req.DoctorID, req.Weekday, req.StartTime, req.EndTime)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, window)
}

// ListDoctorHoursHandler returns a doctor's active windows
func ListDoctorHoursHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)
	doctorID, err := paramUint(c, "doctor_id")
	if err != nil {
		return err
	}

	windows, err := services.ListDoctorHours(db.DB, actor, doctorID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, windows)
}

// DeleteDoctorHoursHandler deactivates a doctor window
func DeleteDoctorHoursHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}

	if err := services.DeactivateDoctorHours(db.DB, actor, id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// --- Absences ---

type absenceRequest struct {
	DoctorID  uint   `json:"doctor_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason,omitempty"`
}

// CreateAbsenceHandler records a doctor absence
func CreateAbsenceHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)

	var req absenceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid start_date (use YYYY-MM-DD)")
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid end_date (use YYYY-MM-DD)")
	}

	absence, err := services.CreateAbsence(db.DB, coreConfig(c), actor, services.AbsenceInput{
		DoctorID:  req.DoctorID,
		StartDate: startDate,
		EndDate:   endDate,
		Reason:    req.Reason,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, absence)
}

// ListAbsencesHandler returns a doctor's absences with derived values
func ListAbsencesHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)
	doctorID, err := paramUint(c, "doctor_id")
	if err != nil {
		return err
	}

	absences, err := services.ListAbsences(db.DB, coreConfig(c), actor, doctorID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, absences)
}

// DeleteAbsenceHandler deactivates an absence
func DeleteAbsenceHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}

	if err := services.DeleteAbsence(db.DB, actor, id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// RemainingVacationHandler reports the vacation days left in a year
func RemainingVacationHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)
	doctorID, err := paramUint(c, "doctor_id")
	if err != nil {
		return err
	}
	if err := services.AuthorizeDoctorScoped(actor, services.DomainAbsences, services.VerbRead, &doctorID); err != nil {
		return httpError(err)
	}

	year, err := queryInt(c, "year", time.Now().Year())
	if err != nil {
		return err
	}

	remaining, err := services.RemainingVacation(db.DB, coreConfig(c), doctorID, year)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"doctor_id": doctorID,
		"year":      year,
		"remaining": remaining,
	})
}

// --- Breaks ---

type breakRequest struct {
	DoctorID  *uint  `json:"doctor_id,omitempty"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Reason    string `json:"reason,omitempty"`
}

// CreateBreakHandler records a doctor or practice-wide break
func CreateBreakHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)

	var req breakRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)")
	}

	brk, err := services.CreateBreak(db.DB, actor, services.BreakInput{
		DoctorID:  req.DoctorID,
		Date:      date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Reason:    req.Reason,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, brk)
}

// ListBreaksHandler returns breaks affecting a doctor in a date range
func ListBreaksHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)
	doctorID, err := paramUint(c, "doctor_id")
	if err != nil {
		return err
	}
	from, err := queryDate(c, "from")
	if err != nil {
		return err
	}
	to, err := queryDate(c, "to")
	if err != nil {
		return err
	}

	breaks, err := services.ListBreaks(db.DB, actor, doctorID, from, to)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, breaks)
}

// DeleteBreakHandler deactivates a break
func DeleteBreakHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}

	if err := services.DeleteBreak(db.DB, actor, id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
