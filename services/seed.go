package services

import (
	"clinic_flow_app_go/models"
	"log"

	"gorm.io/gorm"
)

// defaultPracticeWindows are the opening hours seeded into an empty
// database: Monday to Friday, morning and afternoon blocks.
var defaultPracticeWindows = []models.PracticeHours{
	{Weekday: 0, StartTime: "08:00", EndTime: "12:00", IsActive: true},
	{Weekday: 0, StartTime: "14:00", EndTime: "18:00", IsActive: true},
	{Weekday: 1, StartTime: "08:00", EndTime: "12:00", IsActive: true},
	{Weekday: 1, StartTime: "14:00", EndTime: "18:00", IsActive: true},
	{Weekday: 2, StartTime: "08:00", EndTime: "12:00", IsActive: true},
	{Weekday: 2, StartTime: "14:00", EndTime: "18:00", IsActive: true},
	{Weekday: 3, StartTime: "08:00", EndTime: "12:00", IsActive: true},
	{Weekday: 3, StartTime: "14:00", EndTime: "18:00", IsActive: true},
	{Weekday: 4, StartTime: "08:00", EndTime: "12:00", IsActive: true},
	{Weekday: 4, StartTime: "14:00", EndTime: "18:00", IsActive: true},
}

// SeedPracticeHours inserts the default opening windows when none exist yet
func SeedPracticeHours(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.PracticeHours{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	windows := make([]models.PracticeHours, len(defaultPracticeWindows))
	copy(windows, defaultPracticeWindows)
	if err := db.Create(&windows).Error; err != nil {
		return err
	}
	log.Printf("Seeded %d practice hour windows", len(windows))
	return nil
}

// SeedDoctorHours gives a freshly provisioned doctor the practice's default
// windows so they are bookable without manual setup. Skipped when the
// doctor already has any window.
func SeedDoctorHours(db *gorm.DB, doctorID uint) error {
	var count int64
	if err := db.Model(&models.DoctorHours{}).Where("doctor_id = ?", doctorID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	windows := make([]models.DoctorHours, 0, len(defaultPracticeWindows))
	for _, w := range defaultPracticeWindows {
		windows = append(windows, models.DoctorHours{
			DoctorID:  doctorID,
			Weekday:   w.Weekday,
			StartTime: w.StartTime,
			EndTime:   w.EndTime,
			IsActive:  true,
		})
	}
	return db.Create(&windows).Error
}

// SeedAppointmentTypes inserts the default appointment types when none
// exist yet. The count guard keeps restarts from duplicating them.
func SeedAppointmentTypes(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.AppointmentType{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if err := models.CreateDefaultAppointmentTypes(db); err != nil {
		return err
	}
	log.Printf("Seeded %d appointment types", len(models.DefaultAppointmentTypes))
	return nil
}

// SeedDefaults prepares an empty database: opening hours and the default
// appointment types. Safe to call on every startup.
func SeedDefaults(db *gorm.DB) error {
	if err := SeedPracticeHours(db); err != nil {
		return err
	}
	return SeedAppointmentTypes(db)
}
