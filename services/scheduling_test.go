package services

import (
	"clinic_flow_app_go/config"
	"clinic_flow_app_go/models"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSchedulingTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}
	db.AutoMigrate(
		&models.Clinician{},
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
	)
	return db
}

func testCore() config.CoreConfig {
	return config.DefaultCore()
}

// monday is a fixed Monday used across the scheduling tests
var monday = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC)
}

func createClinician(db *gorm.DB, name, email, role string) *models.Clinician {
	clinician := &models.Clinician{
		Name:         name,
		Email:        email,
		PasswordHash: "x",
		Role:         role,
		IsActive:     true,
	}
	db.Create(clinician)
	return clinician
}

func createDoctor(db *gorm.DB, name, email string) *models.Clinician {
	return createClinician(db, name, email, string(models.RoleDoctor))
}

func createAdmin(db *gorm.DB) *models.Clinician {
	return createClinician(db, "Admin", "admin@clinic.test", string(models.RoleAdmin))
}

// seedFullWeekHours opens the practice and the doctor Monday to Friday
func seedFullWeekHours(db *gorm.DB, doctorID uint) {
	for weekday := 0; weekday < 5; weekday++ {
		db.Create(&models.PracticeHours{Weekday: weekday, StartTime: "08:00", EndTime: "18:00", IsActive: true})
		db.Create(&models.DoctorHours{DoctorID: doctorID, Weekday: weekday, StartTime: "08:00", EndTime: "18:00", IsActive: true})
	}
}

func createRoom(db *gorm.DB, name string) *models.Resource {
	room := &models.Resource{Name: name, Type: models.ResourceTypeRoom, IsActive: true}
	db.Create(room)
	return room
}

func createDevice(db *gorm.DB, name string) *models.Resource {
	device := &models.Resource{Name: name, Type: models.ResourceTypeDevice, IsActive: true}
	db.Create(device)
	return device
}

func createOpType(db *gorm.DB, name string, prep, op, post int) *models.OperationType {
	opType := &models.OperationType{Name: name, PrepMinutes: prep, OpMinutes: op, PostMinutes: post, IsActive: true}
	db.Create(opType)
	return opType
}

func auditCount(db *gorm.DB, action string) int64 {
	var count int64
	db.Model(&models.AuditEvent{}).Where("action = ?", action).Count(&count)
	return count
}

func TestPlanAppointmentConflicts(t *testing.T) {
	db := setupSchedulingTestDB()
	admin := createAdmin(db)
	doctor := createDoctor(db, "Dr. A", "a@clinic.test")
	seedFullWeekHours(db, doctor.ID)
	ctx := context.Background()

	first, err := PlanAppointment(ctx, db, testCore(), admin, AppointmentInput{
		PatientID: 1,
		DoctorID:  doctor.ID,
		StartTime: at(monday, 10, 0),
		EndTime:   at(monday, 10, 30),
	})
	assert.NoError(t, err)
	assert.NotNil(t, first)
	assert.Equal(t, models.AppointmentStatusScheduled, first.Status)

	t.Run("DirectOverlapRejected", func(t *testing.T) {
		_, err := PlanAppointment(ctx, db, testCore(), admin, AppointmentInput{
			PatientID: 2,
			DoctorID:  doctor.ID,
			StartTime: at(monday, 10, 15),
			EndTime:   at(monday, 10, 45),
		})
		assert.Error(t, err)

		conflictErr, ok := err.(*SchedulingConflictError)
		assert.True(t, ok)
		assert.Len(t, conflictErr.Conflicts, 1)
		assert.Equal(t, ConflictKindDoctor, conflictErr.Conflicts[0].Kind)
		assert.Equal(t, ConflictModelAppointment, conflictErr.Conflicts[0].Model)
		assert.Equal(t, first.ID, conflictErr.Conflicts[0].ID)
	})

	t.Run("EdgeTouchAccepted", func(t *testing.T) {
		second, err := PlanAppointment(ctx, db, testCore(), admin, AppointmentInput{
			PatientID: 2,
			DoctorID:  doctor.ID,
			StartTime: at(monday, 10, 30),
			EndTime:   at(monday, 11, 0),
		})
		assert.NoError(t, err)
		assert.NotNil(t, second)
	})

	t.Run("PatientConflictAcrossDoctors", func(t *testing.T) {
		other := createDoctor(db, "Dr. B", "b@clinic.test")
		seedFullWeekHours(db, other.ID)

		_, err := PlanAppointment(ctx, db, testCore(), admin, AppointmentInput{
			PatientID: 1,
			DoctorID:  other.ID,
			StartTime: at(monday, 10, 0),
			EndTime:   at(monday, 10, 30),
		})
		assert.Error(t, err)

		conflictErr, ok := err.(*SchedulingConflictError)
		assert.True(t, ok)
		assert.Equal(t, ConflictKindPatient, conflictErr.Conflicts[0].Kind)
	})

	t.Run("CancelledAppointmentDoesNotBlock", func(t *testing.T) {
		db.Model(&models.Appointment{}).Where("id = ?", first.ID).
			Update("status", models.AppointmentStatusCancelled)

		replacement, err := PlanAppointment(ctx, db, testCore(), admin, AppointmentInput{
			PatientID: 3,
			DoctorID:  doctor.ID,
			StartTime: at(monday, 10, 0),
			EndTime:   at(monday, 10, 30),
		})
		assert.NoError(t, err)
		assert.NotNil(t, replacement)
	})
}

func TestPlanAppointmentWorkingHours(t *testing.T) {
	db := setupSchedulingTestDB()
	admin := createAdmin(db)
	doctor := createDoctor(db, "Dr. A", "a@clinic.test")
	// Practice Monday 08:00-16:00, doctor Monday 09:00-12:00
	db.Create(&models.PracticeHours{Weekday: 0, StartTime: "08:00", EndTime: "16:00", IsActive: true})
	db.Create(&models.DoctorHours{DoctorID: doctor.ID, Weekday: 0, StartTime: "09:00", EndTime: "12:00", IsActive: true})
	ctx := context.Background()

	t.Run("OutsidePracticeHours", func(t *testing.T) {
		_, err := PlanAppointment(ctx, db, testCore(), admin, AppointmentInput{
			PatientID: 1,
			DoctorID:  doctor.ID,
			StartTime: at(monday, 7, 0),
			EndTime:   at(monday, 8, 0),
		})
		hoursErr, ok := err.(*WorkingHoursViolationError)
		assert.True(t, ok)
		assert.Equal(t, HoursReasonOutsidePracticeHours, hoursErr.Reason)
	})

	t.Run("OutsideDoctorHours", func(t *testing.T) {
		_, err := PlanAppointment(ctx, db, testCore(), admin, AppointmentInput{
			PatientID: 1,
			DoctorID:  doctor.ID,
			StartTime: at(monday, 13, 0),
			EndTime:   at(monday, 14, 0),
		})
		hoursErr, ok := err.(*WorkingHoursViolationError)
		assert.True(t, ok)
		assert.Equal(t, HoursReasonOutsideDoctorHours, hoursErr.Reason)
	})

	t.Run("NoPracticeHoursOnSunday", func(t *testing.T) {
		sunday := monday.AddDate(0, 0, 6)
		_, err := PlanAppointment(ctx, db, testCore(), admin, AppointmentInput{
			PatientID: 1,
			DoctorID:  doctor.ID,
			StartTime: at(sunday, 10, 0),
			EndTime:   at(sunday, 10, 30),
		})
		hoursErr, ok := err.(*WorkingHoursViolationError)
		assert.True(t, ok)
		assert.Equal(t, HoursReasonNoPracticeHours, hoursErr.Reason)
	})

	t.Run("InsideBothWindows", func(t *testing.T) {
		apt, err := PlanAppointment(ctx, db, testCore(), admin, AppointmentInput{
			PatientID: 1,
			DoctorID:  doctor.ID,
			StartTime: at(monday, 9, 0),
			EndTime:   at(monday, 9, 30),
		})
		assert.NoError(t, err)
		assert.NotNil(t, apt)
	})

	t.Run("AlternativesAttached", func(t *testing.T) {
		substitute := createDoctor(db, "Dr. Sub", "sub@clinic.test")
		db.Create(&models.DoctorHours{DoctorID: substitute.ID, Weekday: 0, StartTime: "08:00", EndTime: "16:00", IsActive: true})

		_, err := PlanAppointment(ctx, db, testCore(), admin, AppointmentInput{
			PatientID: 1,
			DoctorID:  doctor.ID,
			StartTime: at(monday, 13, 0),
			EndTime:   at(monday, 13, 30),
		})
		hoursErr, ok := err.(*WorkingHoursViolationError)
		assert.True(t, ok)
		assert.NotEmpty(t, hoursErr.Alternatives)
		assert.Equal(t, substitute.ID, hoursErr.Alternatives[0].DoctorID)
	})
}

func TestPlanAppointmentAbsenceAndBreak(t *testing.T) {
	db := setupSchedulingTestDB()
	admin := createAdmin(db)
	doctor := createDoctor(db, "Dr. A", "a@clinic.test")
	seedFullWeekHours(db, doctor.ID)
	ctx := context.Background()

	t.Run("AbsenceBlocks", func(t *testing.T) {
		absence := models.DoctorAbsence{
			DoctorID:  doctor.ID,
			StartDate: monday,
			EndDate:   monday,
			Reason:    models.AbsenceReasonSick,
			IsActive:  true,
		}
		db.Create(&absence)

		_, err := PlanAppointment(ctx, db, testCore(), admin, AppointmentInput{
			PatientID: 1,
			DoctorID:  doctor.ID,
			StartTime: at(monday, 10, 0),
			EndTime:   at(monday, 10, 30),
		})
		absentErr, ok := err.(*DoctorAbsentError)
		assert.True(t, ok)
		assert.Equal(t, absence.ID, absentErr.AbsenceID)

		db.Model(&absence).Update("is_active", false)
	})

	t.Run("PracticeWideBreakBlocks", func(t *testing.T) {
		brk := models.DoctorBreak{
			Date:      monday,
			StartTime: "12:00",
			EndTime:   "13:00",
			Reason:    "lunch",
			IsActive:  true,
		}
		db.Create(&brk)

		_, err := PlanAppointment(ctx, db, testCore(), admin, AppointmentInput{
			PatientID: 1,
			DoctorID:  doctor.ID,
			StartTime: at(monday, 12, 30),
			EndTime:   at(monday, 13, 0),
		})
		breakErr, ok := err.(*DoctorBreakConflictError)
		assert.True(t, ok)
		assert.Equal(t, brk.ID, breakErr.BreakID)

		// Edge-touching the break is fine
		apt, err := PlanAppointment(ctx, db, testCore(), admin, AppointmentInput{
			PatientID: 1,
			DoctorID:  doctor.ID,
			StartTime: at(monday, 13, 0),
			EndTime:   at(monday, 13, 30),
		})
		assert.NoError(t, err)
		assert.NotNil(t, apt)
	})
}

func TestAppointmentResourceConflictWithOperation(t *testing.T) {
	db := setupSchedulingTestDB()
	admin := createAdmin(db)
	doctor := createDoctor(db, "Dr. A", "a@clinic.test")
	surgeon := createDoctor(db, "Dr. S", "s@clinic.test")
	seedFullWeekHours(db, doctor.ID)
	seedFullWeekHours(db, surgeon.ID)
	room := createRoom(db, "OP 1")
	opType := createOpType(db, "Arthroscopy", 15, 30, 15)
	ctx := context.Background()

	op, err := PlanOperation(ctx, db, testCore(), admin, OperationInput{
		PatientID:        1,
		PrimarySurgeonID: surgeon.ID,
		OpRoomID:         room.ID,
		OpTypeID:         opType.ID,
		StartTime:        at(monday, 10, 0),
	})
	assert.NoError(t, err)
	assert.Equal(t, at(monday, 11, 0), op.EndTime)

	_, err = PlanAppointment(ctx, db, testCore(), admin, AppointmentInput{
		PatientID:   2,
		DoctorID:    doctor.ID,
		StartTime:   at(monday, 10, 15),
		EndTime:     at(monday, 10, 45),
		ResourceIDs: []uint{room.ID},
	})
	conflictErr, ok := err.(*SchedulingConflictError)
	assert.True(t, ok)
	assert.Equal(t, ConflictKindRoom, conflictErr.Conflicts[0].Kind)
	assert.Equal(t, ConflictModelOperation, conflictErr.Conflicts[0].Model)
	assert.Equal(t, op.ID, conflictErr.Conflicts[0].ID)

	// The rejected write leaves a resource_booking_conflict audit trail
	assert.Equal(t, int64(1), auditCount(db, models.AuditResourceBookingConflict))
}

func TestMarkNoShow(t *testing.T) {
	db := setupSchedulingTestDB()
	admin := createAdmin(db)
	doctor := createDoctor(db, "Dr. A", "a@clinic.test")
	seedFullWeekHours(db, doctor.ID)
	ctx := context.Background()

	apt, err := PlanAppointment(ctx, db, testCore(), admin, AppointmentInput{
		PatientID: 1,
		DoctorID:  doctor.ID,
		StartTime: at(monday, 10, 0),
		EndTime:   at(monday, 10, 30),
	})
	assert.NoError(t, err)

	t.Run("BeforeStartRejected", func(t *testing.T) {
		_, err := MarkNoShow(db, admin, apt.ID, at(monday, 9, 0))
		assert.IsType(t, &InvalidStateError{}, err)
	})

	t.Run("AfterStartAccepted", func(t *testing.T) {
		marked, err := MarkNoShow(db, admin, apt.ID, at(monday, 10, 5))
		assert.NoError(t, err)
		assert.True(t, marked.IsNoShow)
		assert.Equal(t, int64(1), auditCount(db, models.AuditAppointmentMarkNoShow))
	})

	t.Run("FlagIsImmutable", func(t *testing.T) {
		_, err := MarkNoShow(db, admin, apt.ID, at(monday, 11, 0))
		assert.IsType(t, &InvalidStateError{}, err)
	})

	t.Run("NoShowReleasesSlot", func(t *testing.T) {
		replacement, err := PlanAppointment(ctx, db, testCore(), admin, AppointmentInput{
			PatientID: 2,
			DoctorID:  doctor.ID,
			StartTime: at(monday, 10, 0),
			EndTime:   at(monday, 10, 30),
		})
		assert.NoError(t, err)
		assert.NotNil(t, replacement)
	})
}

func TestAppointmentRoleGate(t *testing.T) {
	db := setupSchedulingTestDB()
	doctor := createDoctor(db, "Dr. A", "a@clinic.test")
	other := createDoctor(db, "Dr. B", "b@clinic.test")
	billing := createClinician(db, "Bill", "bill@clinic.test", string(models.RoleBilling))
	seedFullWeekHours(db, doctor.ID)
	seedFullWeekHours(db, other.ID)
	ctx := context.Background()

	t.Run("DoctorBooksSelf", func(t *testing.T) {
		apt, err := PlanAppointment(ctx, db, testCore(), doctor, AppointmentInput{
			PatientID: 1,
			DoctorID:  doctor.ID,
			StartTime: at(monday, 9, 0),
			EndTime:   at(monday, 9, 30),
		})
		assert.NoError(t, err)
		assert.NotNil(t, apt)
	})

	t.Run("DoctorCannotBookColleague", func(t *testing.T) {
		_, err := PlanAppointment(ctx, db, testCore(), doctor, AppointmentInput{
			PatientID: 1,
			DoctorID:  other.ID,
			StartTime: at(monday, 9, 0),
			EndTime:   at(monday, 9, 30),
		})
		assert.IsType(t, &NotAuthorizedError{}, err)
	})

	t.Run("BillingCannotWrite", func(t *testing.T) {
		_, err := PlanAppointment(ctx, db, testCore(), billing, AppointmentInput{
			PatientID: 1,
			DoctorID:  doctor.ID,
			StartTime: at(monday, 11, 0),
			EndTime:   at(monday, 11, 30),
		})
		assert.IsType(t, &NotAuthorizedError{}, err)
	})

	t.Run("DoctorSeesOnlyOwnAppointments", func(t *testing.T) {
		admin := createAdmin(db)
		_, err := PlanAppointment(ctx, db, testCore(), admin, AppointmentInput{
			PatientID: 2,
			DoctorID:  other.ID,
			StartTime: at(monday, 9, 0),
			EndTime:   at(monday, 9, 30),
		})
		assert.NoError(t, err)

		mine, err := ListAppointments(db, doctor, monday, monday.AddDate(0, 0, 1))
		assert.NoError(t, err)
		assert.Len(t, mine, 1)
		assert.Equal(t, doctor.ID, mine[0].DoctorID)

		all, err := ListAppointments(db, admin, monday, monday.AddDate(0, 0, 1))
		assert.NoError(t, err)
		assert.Len(t, all, 2)
	})
}

func TestUpdateAppointmentExcludesSelf(t *testing.T) {
	db := setupSchedulingTestDB()
	admin := createAdmin(db)
	doctor := createDoctor(db, "Dr. A", "a@clinic.test")
	seedFullWeekHours(db, doctor.ID)
	ctx := context.Background()

	apt, err := PlanAppointment(ctx, db, testCore(), admin, AppointmentInput{
		PatientID: 1,
		DoctorID:  doctor.ID,
		StartTime: at(monday, 10, 0),
		EndTime:   at(monday, 10, 30),
	})
	assert.NoError(t, err)

	// Stretching the same appointment must not collide with itself
	newEnd := at(monday, 11, 0)
	updated, err := UpdateAppointment(ctx, db, testCore(), admin, apt.ID, AppointmentPatch{
		EndTime: &newEnd,
	})
	assert.NoError(t, err)
	assert.Equal(t, newEnd, updated.EndTime.UTC())

	// But it still collides with a neighbor
	neighbor, err := PlanAppointment(ctx, db, testCore(), admin, AppointmentInput{
		PatientID: 2,
		DoctorID:  doctor.ID,
		StartTime: at(monday, 11, 0),
		EndTime:   at(monday, 11, 30),
	})
	assert.NoError(t, err)

	badEnd := at(monday, 11, 15)
	_, err = UpdateAppointment(ctx, db, testCore(), admin, apt.ID, AppointmentPatch{
		EndTime: &badEnd,
	})
	conflictErr, ok := err.(*SchedulingConflictError)
	assert.True(t, ok)
	assert.Equal(t, neighbor.ID, conflictErr.Conflicts[0].ID)
}

func TestUpdateAppointmentValidatesType(t *testing.T) {
	db := setupSchedulingTestDB()
	admin := createAdmin(db)
	doctor := createDoctor(db, "Dr. A", "a@clinic.test")
	seedFullWeekHours(db, doctor.ID)
	ctx := context.Background()

	duration := 30
	checkup := models.AppointmentType{Name: "Checkup", DurationMinutes: &duration, Color: "#3B82F6", IsActive: true}
	db.Create(&checkup)

	apt, err := PlanAppointment(ctx, db, testCore(), admin, AppointmentInput{
		PatientID: 1,
		DoctorID:  doctor.ID,
		TypeID:    &checkup.ID,
		StartTime: at(monday, 10, 0),
		EndTime:   at(monday, 10, 30),
	})
	assert.NoError(t, err)

	t.Run("UnknownTypeRejected", func(t *testing.T) {
		missing := uint(9999)
		_, err := UpdateAppointment(ctx, db, testCore(), admin, apt.ID, AppointmentPatch{
			TypeID: &missing,
		})
		notFound, ok := err.(*NotFoundError)
		assert.True(t, ok)
		assert.Equal(t, "AppointmentType", notFound.Model)

		// The stored row keeps its original type
		var stored models.Appointment
		db.First(&stored, "id = ?", apt.ID)
		assert.Equal(t, checkup.ID, *stored.TypeID)
	})

	t.Run("InactiveTypeRejected", func(t *testing.T) {
		followUp := models.AppointmentType{Name: "Follow-up", IsActive: true}
		db.Create(&followUp)
		// Force IsActive to false because of the GORM default:true tag
		db.Model(&followUp).Update("is_active", false)

		_, err := UpdateAppointment(ctx, db, testCore(), admin, apt.ID, AppointmentPatch{
			TypeID: &followUp.ID,
		})
		assert.IsType(t, &NotFoundError{}, err)
	})

	t.Run("ActiveTypeAccepted", func(t *testing.T) {
		consult := models.AppointmentType{Name: "Consultation", IsActive: true}
		db.Create(&consult)

		updated, err := UpdateAppointment(ctx, db, testCore(), admin, apt.ID, AppointmentPatch{
			TypeID: &consult.ID,
		})
		assert.NoError(t, err)
		assert.Equal(t, consult.ID, *updated.TypeID)
	})
}
