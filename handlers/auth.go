package handlers

import (
	"clinic_flow_app_go/db"
	"clinic_flow_app_go/middleware"
	"clinic_flow_app_go/models"
	"clinic_flow_app_go/services"
	"net/http"

	"github.com/labstack/echo/v4"
)

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// LoginHandler authenticates a clinician and opens a session
func LoginHandler(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Email and password are required")
	}

	session, clinician, err := services.Login(db.DB, req.Email, req.Password, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		// A uniform message for every failed login
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}

	middleware.SetSessionCookie(c, session.Token, int(services.DefaultSessionDuration.Seconds()))
	return c.JSON(http.StatusOK, map[string]interface{}{
		"token":     session.Token,
		"clinician": clinician,
	})
}

// LogoutHandler closes the current session
func LogoutHandler(c echo.Context) error {
	clinician := middleware.GetCurrentClinician(c)
	if session, ok := c.Get(middleware.ContextKeySession).(*models.Session); ok {
		_ = services.Logout(db.DB, clinician, session.Token)
	} else if cookie, err := c.Cookie(middleware.SessionCookieName); err == nil {
		_ = services.Logout(db.DB, clinician, cookie.Value)
	}

	middleware.SetSessionCookie(c, "", -1)
	return c.JSON(http.StatusOK, map[string]string{"status": "logged_out"})
}

// MeHandler returns the authenticated clinician
func MeHandler(c echo.Context) error {
	clinician := middleware.GetCurrentClinician(c)
	if clinician == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	}
	return c.JSON(http.StatusOK, clinician)
}
