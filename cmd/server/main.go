package main

import (
	"clinic_flow_app_go/config"
	"clinic_flow_app_go/db"
	"clinic_flow_app_go/handlers"
	"clinic_flow_app_go/middleware"
	"clinic_flow_app_go/models"
	"clinic_flow_app_go/services"
	"log"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	if err := db.Initialize(cfg.DBPath, cfg.Environment); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(
		&models.Clinician{},
		&models.Session{},
		&models.AppointmentType{},
		&models.Resource{},
		&models.OperationType{},
		&models.PracticeHours{},
		&models.DoctorHours{},
		&models.DoctorAbsence{},
		&models.DoctorBreak{},
		&models.Appointment{},
		&models.AppointmentResource{},
		&models.Operation{},
		&models.OperationDevice{},
		&models.PatientFlow{},
		&models.AuditEvent{},
	); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Seed opening hours and default appointment types on first start
	if err := services.SeedDefaults(db.DB); err != nil {
		log.Fatalf("Failed to seed defaults: %v", err)
	}

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
	}))

	// Make config available to handlers
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("config", cfg)
			return next(c)
		}
	})

	// Public routes (no authentication required)
	e.POST("/api/login", handlers.LoginHandler, middleware.LoginRateLimiter.Middleware())

	// Protected routes
	api := e.Group("/api")
	api.Use(middleware.RequireAuth())
	{
		api.POST("/logout", handlers.LogoutHandler)
		api.GET("/me", handlers.MeHandler)

		// Appointments
		api.POST("/appointments", handlers.CreateAppointmentHandler)
		api.GET("/appointments", handlers.ListAppointmentsHandler)
		api.GET("/appointments/:id", handlers.GetAppointmentHandler)
		api.PUT("/appointments/:id", handlers.UpdateAppointmentHandler)
		api.DELETE("/appointments/:id", handlers.DeleteAppointmentHandler)
		api.POST("/appointments/:id/no-show", handlers.MarkNoShowHandler)
		api.GET("/appointments/:id/ics", handlers.AppointmentICSHandler)
		api.POST("/appointments/suggest", handlers.SuggestAppointmentSlotsHandler)

		// Operations
		api.POST("/operations", handlers.CreateOperationHandler)
		api.GET("/operations", handlers.ListOperationsHandler)
		api.GET("/operations/stats", handlers.OperationStatsHandler)
		api.GET("/operations/timeline", handlers.OperationTimelineHandler)
		api.GET("/operations/:id", handlers.GetOperationHandler)
		api.PUT("/operations/:id", handlers.UpdateOperationHandler)
		api.PUT("/operations/:id/status", handlers.UpdateOperationStatusHandler)
		api.DELETE("/operations/:id", handlers.DeleteOperationHandler)
		api.POST("/operations/suggest", handlers.SuggestOperationSlotsHandler)

		// Patient flow
		api.POST("/patient-flows", handlers.CreatePatientFlowHandler)
		api.GET("/patient-flows", handlers.ListActivePatientFlowsHandler)
		api.GET("/patient-flows/:id", handlers.GetPatientFlowHandler)
		api.PUT("/patient-flows/:id/status", handlers.UpdatePatientFlowStatusHandler)

		// Calendar
		api.GET("/calendar", handlers.CalendarViewHandler)

		// Schedule data
		api.POST("/practice-hours", handlers.CreatePracticeHoursHandler)
		api.GET("/practice-hours", handlers.ListPracticeHoursHandler)
		api.DELETE("/practice-hours/:id", handlers.DeletePracticeHoursHandler)
		api.POST("/doctor-hours", handlers.CreateDoctorHoursHandler)
		api.GET("/doctors/:doctor_id/hours", handlers.ListDoctorHoursHandler)
		api.DELETE("/doctor-hours/:id", handlers.DeleteDoctorHoursHandler)
		api.POST("/absences", handlers.CreateAbsenceHandler)
		api.GET("/doctors/:doctor_id/absences", handlers.ListAbsencesHandler)
		api.GET("/doctors/:doctor_id/vacation", handlers.RemainingVacationHandler)
		api.DELETE("/absences/:id", handlers.DeleteAbsenceHandler)
		api.POST("/breaks", handlers.CreateBreakHandler)
		api.GET("/doctors/:doctor_id/breaks", handlers.ListBreaksHandler)
		api.DELETE("/breaks/:id", handlers.DeleteBreakHandler)

		// Master data
		api.GET("/appointment-types", handlers.ListAppointmentTypesHandler)
		api.GET("/resources", handlers.ListResourcesHandler)
		api.POST("/resources", handlers.CreateResourceHandler)
		api.DELETE("/resources/:id", handlers.DeleteResourceHandler)
		api.GET("/operation-types", handlers.ListOperationTypesHandler)
		api.POST("/operation-types", handlers.CreateOperationTypeHandler)
		api.GET("/doctors", handlers.ListDoctorsHandler)

		// Admin-only routes
		adminRoutes := api.Group("")
		adminRoutes.Use(middleware.RequireRole(string(models.RoleAdmin)))
		{
			adminRoutes.POST("/appointment-types", handlers.CreateAppointmentTypeHandler)
			adminRoutes.DELETE("/appointment-types/:id", handlers.DeleteAppointmentTypeHandler)
			adminRoutes.POST("/clinicians", handlers.CreateClinicianHandler)
			adminRoutes.DELETE("/clinicians/:id", handlers.DeactivateClinicianHandler)
			adminRoutes.GET("/audit-events", handlers.ListAuditEventsHandler)
		}
	}

	// Start background cleanup jobs (runs every hour)
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			if err := services.CleanupExpiredSessions(db.DB); err != nil {
				log.Printf("Error cleaning up expired sessions: %v", err)
			}
		}
	}()

	// Start server
	log.Printf("Server starting on port %s", cfg.ServerPort)
	if err := e.Start(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
