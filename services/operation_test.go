package services

import (
	"clinic_flow_app_go/models"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanOperationValidation(t *testing.T) {
	db := setupSchedulingTestDB()
	admin := createAdmin(db)
	surgeon := createDoctor(db, "Dr. S", "s@clinic.test")
	seedFullWeekHours(db, surgeon.ID)
	room := createRoom(db, "OP 1")
	device := createDevice(db, "C-Arm")
	opType := createOpType(db, "Arthroscopy", 15, 30, 15)
	ctx := context.Background()

	t.Run("DeviceAsRoomRejected", func(t *testing.T) {
		_, err := PlanOperation(ctx, db, testCore(), admin, OperationInput{
			PatientID:        1,
			PrimarySurgeonID: surgeon.ID,
			OpRoomID:         device.ID,
			OpTypeID:         opType.ID,
			StartTime:        at(monday, 10, 0),
		})
		roomErr, ok := err.(*RoomInvalidError)
		assert.True(t, ok)
		assert.Equal(t, device.ID, roomErr.ResourceID)
	})

	t.Run("RoomAsDeviceRejected", func(t *testing.T) {
		_, err := PlanOperation(ctx, db, testCore(), admin, OperationInput{
			PatientID:        1,
			PrimarySurgeonID: surgeon.ID,
			OpRoomID:         room.ID,
			OpTypeID:         opType.ID,
			StartTime:        at(monday, 10, 0),
			OpDeviceIDs:      []uint{room.ID},
		})
		deviceErr, ok := err.(*DeviceInvalidError)
		assert.True(t, ok)
		assert.Equal(t, room.ID, deviceErr.ResourceID)
	})

	t.Run("InactiveRoomRejected", func(t *testing.T) {
		closed := createRoom(db, "OP 2")
		// Force IsActive to false because of the GORM default:true tag
		db.Model(closed).Update("is_active", false)

		_, err := PlanOperation(ctx, db, testCore(), admin, OperationInput{
			PatientID:        1,
			PrimarySurgeonID: surgeon.ID,
			OpRoomID:         closed.ID,
			OpTypeID:         opType.ID,
			StartTime:        at(monday, 10, 0),
		})
		assert.IsType(t, &RoomInvalidError{}, err)
	})

	t.Run("ZeroDurationTypeRejected", func(t *testing.T) {
		empty := createOpType(db, "Empty", 0, 0, 0)
		_, err := PlanOperation(ctx, db, testCore(), admin, OperationInput{
			PatientID:        1,
			PrimarySurgeonID: surgeon.ID,
			OpRoomID:         room.ID,
			OpTypeID:         empty.ID,
			StartTime:        at(monday, 10, 0),
		})
		assert.IsType(t, &InvalidDataError{}, err)
	})

	t.Run("EndTimeDerivedFromType", func(t *testing.T) {
		op, err := PlanOperation(ctx, db, testCore(), admin, OperationInput{
			PatientID:        1,
			PrimarySurgeonID: surgeon.ID,
			OpRoomID:         room.ID,
			OpTypeID:         opType.ID,
			StartTime:        at(monday, 10, 0),
			OpDeviceIDs:      []uint{device.ID, device.ID}, // duplicates collapse
		})
		assert.NoError(t, err)
		assert.Equal(t, at(monday, 11, 0), op.EndTime)
		assert.Equal(t, models.OperationStatusPlanned, op.Status)

		var links []models.OperationDevice
		db.Where("operation_id = ?", op.ID).Find(&links)
		assert.Len(t, links, 1)
	})
}

func TestPlanOperationTeamChecks(t *testing.T) {
	db := setupSchedulingTestDB()
	admin := createAdmin(db)
	surgeon := createDoctor(db, "Dr. S", "s@clinic.test")
	assistant := createDoctor(db, "Dr. A", "assist@clinic.test")
	seedFullWeekHours(db, surgeon.ID)
	room := createRoom(db, "OP 1")
	opType := createOpType(db, "Arthroscopy", 15, 30, 15)
	ctx := context.Background()

	t.Run("AssistantWithoutHoursAllowed", func(t *testing.T) {
		// Working hours bind the primary surgeon only
		op, err := PlanOperation(ctx, db, testCore(), admin, OperationInput{
			PatientID:        1,
			PrimarySurgeonID: surgeon.ID,
			AssistantID:      &assistant.ID,
			OpRoomID:         room.ID,
			OpTypeID:         opType.ID,
			StartTime:        at(monday, 8, 0),
		})
		assert.NoError(t, err)
		assert.NotNil(t, op)
	})

	t.Run("AbsentAssistantBlocks", func(t *testing.T) {
		db.Create(&models.DoctorAbsence{
			DoctorID:  assistant.ID,
			StartDate: monday.AddDate(0, 0, 1),
			EndDate:   monday.AddDate(0, 0, 1),
			Reason:    models.AbsenceReasonSick,
			IsActive:  true,
		})

		_, err := PlanOperation(ctx, db, testCore(), admin, OperationInput{
			PatientID:        2,
			PrimarySurgeonID: surgeon.ID,
			AssistantID:      &assistant.ID,
			OpRoomID:         room.ID,
			OpTypeID:         opType.ID,
			StartTime:        at(monday.AddDate(0, 0, 1), 10, 0),
		})
		absentErr, ok := err.(*DoctorAbsentError)
		assert.True(t, ok)
		assert.Equal(t, assistant.ID, absentErr.DoctorID)
	})

	t.Run("BusyAssistantConflicts", func(t *testing.T) {
		db.Create(&models.DoctorHours{DoctorID: assistant.ID, Weekday: 2, StartTime: "08:00", EndTime: "18:00", IsActive: true})
		wednesday := monday.AddDate(0, 0, 2)
		apt := models.Appointment{
			PatientID: 7,
			DoctorID:  assistant.ID,
			StartTime: at(wednesday, 10, 0),
			EndTime:   at(wednesday, 10, 30),
			Status:    models.AppointmentStatusScheduled,
		}
		db.Create(&apt)

		_, err := PlanOperation(ctx, db, testCore(), admin, OperationInput{
			PatientID:        2,
			PrimarySurgeonID: surgeon.ID,
			AssistantID:      &assistant.ID,
			OpRoomID:         room.ID,
			OpTypeID:         opType.ID,
			StartTime:        at(wednesday, 10, 0),
		})
		conflictErr, ok := err.(*SchedulingConflictError)
		assert.True(t, ok)
		assert.Equal(t, ConflictKindDoctor, conflictErr.Conflicts[0].Kind)
		assert.Equal(t, apt.ID, conflictErr.Conflicts[0].ID)
	})
}

func TestOperationStatusLifecycle(t *testing.T) {
	db := setupSchedulingTestDB()
	admin := createAdmin(db)
	surgeon := createDoctor(db, "Dr. S", "s@clinic.test")
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

	t.Run("PlannedToRunningRejected", func(t *testing.T) {
		_, err := UpdateOperationStatus(db, admin, op.ID, models.OperationStatusRunning, at(monday, 10, 0))
		assert.IsType(t, &InvalidTransitionError{}, err)
	})

	t.Run("PlannedToConfirmed", func(t *testing.T) {
		updated, err := UpdateOperationStatus(db, admin, op.ID, models.OperationStatusConfirmed, at(monday, 9, 0))
		assert.NoError(t, err)
		assert.Equal(t, models.OperationStatusConfirmed, updated.Status)
	})

	t.Run("RunningBeforeStartRejected", func(t *testing.T) {
		_, err := UpdateOperationStatus(db, admin, op.ID, models.OperationStatusRunning, at(monday, 9, 59))
		transErr, ok := err.(*InvalidTransitionError)
		assert.True(t, ok)
		assert.Equal(t, TransitionStartNotReached, transErr.Detail)
	})

	t.Run("DoneRequiresRunning", func(t *testing.T) {
		_, err := UpdateOperationStatus(db, admin, op.ID, models.OperationStatusDone, at(monday, 12, 0))
		transErr, ok := err.(*InvalidTransitionError)
		assert.True(t, ok)
		assert.Equal(t, TransitionDoneRequiresRunning, transErr.Detail)
	})

	t.Run("RunningAtStartAccepted", func(t *testing.T) {
		updated, err := UpdateOperationStatus(db, admin, op.ID, models.OperationStatusRunning, at(monday, 10, 0))
		assert.NoError(t, err)
		assert.Equal(t, models.OperationStatusRunning, updated.Status)
	})

	t.Run("RunningToDone", func(t *testing.T) {
		updated, err := UpdateOperationStatus(db, admin, op.ID, models.OperationStatusDone, at(monday, 11, 0))
		assert.NoError(t, err)
		assert.Equal(t, models.OperationStatusDone, updated.Status)
	})

	t.Run("DoneIsTerminalExceptCancel", func(t *testing.T) {
		_, err := UpdateOperationStatus(db, admin, op.ID, models.OperationStatusRunning, at(monday, 11, 0))
		assert.IsType(t, &InvalidTransitionError{}, err)

		updated, err := UpdateOperationStatus(db, admin, op.ID, models.OperationStatusCancelled, at(monday, 11, 0))
		assert.NoError(t, err)
		assert.Equal(t, models.OperationStatusCancelled, updated.Status)
	})

	t.Run("EveryAttemptAudited", func(t *testing.T) {
		var events []models.AuditEvent
		db.Where("action = ?", models.AuditOperationStatusUpdate).Order("id").Find(&events)
		// 8 attempts above: 4 accepted, 4 rejected
		assert.Len(t, events, 8)

		first := events[0].MetaMap()
		assert.Equal(t, models.OperationStatusPlanned, first["from"])
		assert.Equal(t, models.OperationStatusRunning, first["to"])
		assert.Equal(t, false, first["ok"])

		rejected := events[2].MetaMap()
		assert.Equal(t, false, rejected["ok"])
		assert.Equal(t, TransitionStartNotReached, rejected["detail"])
	})
}

func TestUpdateOperationRederivesEnd(t *testing.T) {
	db := setupSchedulingTestDB()
	admin := createAdmin(db)
	surgeon := createDoctor(db, "Dr. S", "s@clinic.test")
	seedFullWeekHours(db, surgeon.ID)
	room := createRoom(db, "OP 1")
	short := createOpType(db, "Short", 5, 20, 5)
	long := createOpType(db, "Long", 15, 60, 15)
	ctx := context.Background()

	op, err := PlanOperation(ctx, db, testCore(), admin, OperationInput{
		PatientID:        1,
		PrimarySurgeonID: surgeon.ID,
		OpRoomID:         room.ID,
		OpTypeID:         short.ID,
		StartTime:        at(monday, 10, 0),
	})
	assert.NoError(t, err)
	assert.Equal(t, at(monday, 10, 30), op.EndTime)

	updated, err := UpdateOperation(ctx, db, testCore(), admin, op.ID, OperationPatch{
		OpTypeID: &long.ID,
	})
	assert.NoError(t, err)
	assert.Equal(t, at(monday, 11, 30), updated.EndTime.UTC())
}

func TestOperationVisibility(t *testing.T) {
	db := setupSchedulingTestDB()
	admin := createAdmin(db)
	surgeon := createDoctor(db, "Dr. S", "s@clinic.test")
	outsider := createDoctor(db, "Dr. O", "o@clinic.test")
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

	t.Run("TeamMemberReads", func(t *testing.T) {
		got, err := GetOperation(db, surgeon, op.ID)
		assert.NoError(t, err)
		assert.Equal(t, op.ID, got.ID)
	})

	t.Run("OutsiderDenied", func(t *testing.T) {
		_, err := GetOperation(db, outsider, op.ID)
		assert.IsType(t, &NotAuthorizedError{}, err)
	})

	t.Run("ListFiltersByTeam", func(t *testing.T) {
		mine, err := ListOperations(db, surgeon, monday, monday.AddDate(0, 0, 1))
		assert.NoError(t, err)
		assert.Len(t, mine, 1)

		none, err := ListOperations(db, outsider, monday, monday.AddDate(0, 0, 1))
		assert.NoError(t, err)
		assert.Empty(t, none)
	})
}
