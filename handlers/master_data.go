package handlers

import (
	"clinic_flow_app_go/db"
	"clinic_flow_app_go/middleware"
	"clinic_flow_app_go/services"
	"net/http"

	"github.com/labstack/echo/v4"
)

// --- Appointment types ---

type appointmentTypeRequest struct {
	Name            string `json:"name"`
	DurationMinutes *int   `json:"duration_minutes,omitempty"`
	Color           string `json:"color,omitempty"`
}

// CreateAppointmentTypeHandler adds a bookable visit type
func CreateAppointmentTypeHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)

	var req appointmentTypeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	aptType, err := services.CreateAppointmentType(db.DB, actor, req.Name, req.DurationMinutes, req.Color)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, aptType)
}

// ListAppointmentTypesHandler returns active visit types
func ListAppointmentTypesHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)

	types, err := services.ListAppointmentTypes(db.DB, actor)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, types)
}

// DeleteAppointmentTypeHandler deactivates a visit type
func DeleteAppointmentTypeHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}

	if err := services.DeactivateAppointmentType(db.DB, actor, id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// --- Resources ---

type resourceRequest struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Color string `json:"color,omitempty"`
}

// CreateResourceHandler adds a room or device
func CreateResourceHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)

	var req resourceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	resource, err := services.CreateResource(db.DB, actor, req.Name, req.Type, req.Color)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, resource)
}

// ListResourcesHandler returns active resources, optionally one type
func ListResourcesHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)

	resources, err := services.ListResources(db.DB, actor, c.QueryParam("type"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, resources)
}

// DeleteResourceHandler deactivates a resource
func DeleteResourceHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}

	if err := services.DeactivateResource(db.DB, actor, id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// --- Operation types ---

type operationTypeRequest struct {
	Name        string `json:"name"`
	PrepMinutes int    `json:"prep_minutes"`
	OpMinutes   int    `json:"op_minutes"`
	PostMinutes int    `json:"post_minutes"`
}

// CreateOperationTypeHandler adds an operation type
func CreateOperationTypeHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)

	var req operationTypeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	opType, err := services.CreateOperationType(db.DB, actor, req.Name, req.PrepMinutes, req.OpMinutes, req.PostMinutes)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, opType)
}

// ListOperationTypesHandler returns active operation types
func ListOperationTypesHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)

	types, err := services.ListOperationTypes(db.DB, actor)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, types)
}

// --- Clinicians ---

type clinicianRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Color    string `json:"color,omitempty"`
}

// CreateClinicianHandler provisions a staff account (admin only)
func CreateClinicianHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)

	var req clinicianRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	clinician, err := services.CreateClinician(db.DB, actor, services.ClinicianInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		Color:    req.Color,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, clinician)
}

// ListDoctorsHandler returns active doctors for pickers
func ListDoctorsHandler(c echo.Context) error {
	doctors, err := services.ListDoctors(db.DB)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, doctors)
}

// DeactivateClinicianHandler disables a staff account (admin only)
func DeactivateClinicianHandler(c echo.Context) error {
	actor := middleware.GetCurrentClinician(c)
	id, err := paramUint(c, "id")
	if err != nil {
		return err
	}

	if err := services.DeactivateClinician(db.DB, actor, id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
