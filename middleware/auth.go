package middleware

import (
	"clinic_flow_app_go/config"
	"clinic_flow_app_go/db"
	"clinic_flow_app_go/models"
	"clinic_flow_app_go/services"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	// SessionCookieName is the name of the session cookie
	SessionCookieName = "clinic_flow_session"
	// ContextKeyClinician is the context key for the authenticated clinician
	ContextKeyClinician = "clinician"
	// ContextKeySession is the context key for the session
	ContextKeySession = "session"
)

// sessionToken extracts the token from the cookie or, for API clients,
// from a bearer Authorization header.
func sessionToken(c echo.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// RequireAuth is middleware that requires authentication
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := sessionToken(c)
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
			}

			session, err := services.ValidateSession(db.DB, token)
			if err != nil {
				clearSessionCookie(c)
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired session")
			}

			if !session.Clinician.IsActive {
				clearSessionCookie(c)
				return echo.NewHTTPError(http.StatusUnauthorized, "Account disabled")
			}

			c.Set(ContextKeyClinician, &session.Clinician)
			c.Set(ContextKeySession, session)

			return next(c)
		}
	}
}

// RequireRole is middleware that requires specific roles
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			clinician := GetCurrentClinician(c)
			if clinician == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
			}

			hasRole := false
			for _, role := range roles {
				if clinician.Role == role {
					hasRole = true
					break
				}
			}
			if !hasRole {
				return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
			}

			return next(c)
		}
	}
}

// GetCurrentClinician retrieves the current clinician from context
func GetCurrentClinician(c echo.Context) *models.Clinician {
	clinician, ok := c.Get(ContextKeyClinician).(*models.Clinician)
	if !ok {
		return nil
	}
	return clinician
}

// clearSessionCookie clears the session cookie
func clearSessionCookie(c echo.Context) {
	var isProduction bool
	if cfg, ok := c.Get("config").(*config.Config); ok {
		isProduction = cfg.Environment == "production"
	}

	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
	}
	c.SetCookie(cookie)
}

// SetSessionCookie stores the session token on the client
func SetSessionCookie(c echo.Context, token string, maxAge int) {
	var isProduction bool
	if cfg, ok := c.Get("config").(*config.Config); ok {
		isProduction = cfg.Environment == "production"
	}

	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
	}
	c.SetCookie(cookie)
}
