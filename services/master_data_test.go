package services

import (
	"clinic_flow_app_go/models"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppointmentTypeManagement(t *testing.T) {
	db := setupSchedulingTestDB()
	admin := createAdmin(db)
	assistant := createClinician(db, "Assi", "assi@clinic.test", string(models.RoleAssistant))

	t.Run("AdminCreates", func(t *testing.T) {
		duration := 30
		aptType, err := CreateAppointmentType(db, admin, "Checkup", &duration, "#10B981")
		assert.NoError(t, err)
		assert.Equal(t, 30, *aptType.DurationMinutes)
	})

	t.Run("AssistantCannotCreate", func(t *testing.T) {
		_, err := CreateAppointmentType(db, assistant, "Vaccination", nil, "")
		assert.IsType(t, &NotAuthorizedError{}, err)
	})

	t.Run("AssistantCanList", func(t *testing.T) {
		types, err := ListAppointmentTypes(db, assistant)
		assert.NoError(t, err)
		assert.Len(t, types, 1)
	})

	t.Run("DeactivatedTypeHidden", func(t *testing.T) {
		duration := 15
		aptType, err := CreateAppointmentType(db, admin, "Quick consult", &duration, "")
		assert.NoError(t, err)
		assert.NoError(t, DeactivateAppointmentType(db, admin, aptType.ID))

		types, err := ListAppointmentTypes(db, admin)
		assert.NoError(t, err)
		assert.Len(t, types, 1)
	})
}

func TestResourceManagement(t *testing.T) {
	db := setupSchedulingTestDB()
	admin := createAdmin(db)

	t.Run("CreateRoomAndDevice", func(t *testing.T) {
		room, err := CreateResource(db, admin, "OP 1", models.ResourceTypeRoom, "")
		assert.NoError(t, err)
		assert.True(t, room.IsRoom())

		device, err := CreateResource(db, admin, "X-Ray", models.ResourceTypeDevice, "")
		assert.NoError(t, err)
		assert.True(t, device.IsDevice())
	})

	t.Run("UnknownTypeRejected", func(t *testing.T) {
		_, err := CreateResource(db, admin, "Mystery", "CLOSET", "")
		assert.IsType(t, &InvalidDataError{}, err)
	})

	t.Run("ListFiltersByType", func(t *testing.T) {
		rooms, err := ListResources(db, admin, models.ResourceTypeRoom)
		assert.NoError(t, err)
		assert.Len(t, rooms, 1)

		all, err := ListResources(db, admin, "")
		assert.NoError(t, err)
		assert.Len(t, all, 2)
	})
}

func TestCreateOperationType(t *testing.T) {
	db := setupSchedulingTestDB()
	admin := createAdmin(db)

	t.Run("PhaseDurationsSum", func(t *testing.T) {
		opType, err := CreateOperationType(db, admin, "Arthroscopy", 15, 30, 15)
		assert.NoError(t, err)
		assert.Equal(t, 60, opType.TotalMinutes())
	})

	t.Run("NegativePhaseRejected", func(t *testing.T) {
		_, err := CreateOperationType(db, admin, "Broken", -5, 30, 15)
		assert.IsType(t, &InvalidDataError{}, err)
	})

	t.Run("ZeroTotalRejected", func(t *testing.T) {
		_, err := CreateOperationType(db, admin, "Empty", 0, 0, 0)
		assert.IsType(t, &InvalidDataError{}, err)
	})
}

func TestCreateClinician(t *testing.T) {
	db := setupSchedulingTestDB()
	admin := createAdmin(db)
	assistant := createClinician(db, "Assi", "assi@clinic.test", string(models.RoleAssistant))

	t.Run("AdminProvisions", func(t *testing.T) {
		clinician, err := CreateClinician(db, admin, ClinicianInput{
			Name:     "Dr. New",
			Email:    "New@Clinic.Test",
			Password: "long-enough-pass",
			Role:     string(models.RoleDoctor),
		})
		assert.NoError(t, err)
		assert.Equal(t, "new@clinic.test", clinician.Email)
		assert.True(t, CheckPassword("long-enough-pass", clinician.PasswordHash))

		// New doctors start with the practice's default windows
		var windows int64
		db.Model(&models.DoctorHours{}).Where("doctor_id = ?", clinician.ID).Count(&windows)
		assert.Equal(t, int64(10), windows)
	})

	t.Run("NonAdminRejected", func(t *testing.T) {
		_, err := CreateClinician(db, assistant, ClinicianInput{
			Name: "X", Email: "x@clinic.test", Password: "long-enough-pass", Role: string(models.RoleDoctor),
		})
		assert.IsType(t, &NotAuthorizedError{}, err)
	})

	t.Run("NilActorBootstrap", func(t *testing.T) {
		_, err := CreateClinician(db, nil, ClinicianInput{
			Name: "Boot", Email: "boot@clinic.test", Password: "long-enough-pass", Role: string(models.RoleAdmin),
		})
		assert.NoError(t, err)
	})

	t.Run("DuplicateEmailRejected", func(t *testing.T) {
		_, err := CreateClinician(db, admin, ClinicianInput{
			Name: "Again", Email: "new@clinic.test", Password: "long-enough-pass", Role: string(models.RoleDoctor),
		})
		assert.IsType(t, &InvalidDataError{}, err)
	})

	t.Run("ShortPasswordRejected", func(t *testing.T) {
		_, err := CreateClinician(db, admin, ClinicianInput{
			Name: "Short", Email: "short@clinic.test", Password: "tiny", Role: string(models.RoleDoctor),
		})
		assert.IsType(t, &InvalidDataError{}, err)
	})

	t.Run("UnknownRoleRejected", func(t *testing.T) {
		_, err := CreateClinician(db, admin, ClinicianInput{
			Name: "Odd", Email: "odd@clinic.test", Password: "long-enough-pass", Role: "janitor",
		})
		assert.IsType(t, &InvalidDataError{}, err)
	})
}
