package handlers

import (
	"clinic_flow_app_go/config"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// coreConfig pulls the scheduling configuration injected by the server
func coreConfig(c echo.Context) config.CoreConfig {
	if cfg, ok := c.Get("config").(*config.Config); ok {
		return cfg.Core()
	}
	return config.DefaultCore()
}

// paramUint parses a positive integer path parameter
func paramUint(c echo.Context, name string) (uint, error) {
	raw := c.Param(name)
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return uint(value), nil
}

// queryUint parses an optional positive integer query parameter; 0 means absent
func queryUint(c echo.Context, name string) (uint, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return uint(value), nil
}

// queryInt parses an optional integer query parameter with a default
func queryInt(c echo.Context, name string, fallback int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return value, nil
}

// parseDateTime accepts RFC3339 or a plain date
func parseDateTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

// queryDate parses an optional date-or-datetime query parameter
func queryDate(c echo.Context, name string) (time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := parseDateTime(raw)
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name+" (use YYYY-MM-DD or RFC3339)")
	}
	return t, nil
}

// dateRange reads start/end query params with defaults around today
func dateRange(c echo.Context) (time.Time, time.Time, error) {
	start, err := queryDate(c, "start")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := queryDate(c, "end")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	if start.IsZero() {
		now := time.Now()
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	}
	if end.IsZero() {
		end = start.AddDate(0, 2, 0)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "end must be after start")
	}
	return start, end, nil
}
