package services

import (
	"clinic_flow_app_go/models"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func seedFlowAppointment(t *testing.T, db *gorm.DB, admin, doctor *models.Clinician) *models.Appointment {
	t.Helper()
	apt, err := PlanAppointment(context.Background(), db, testCore(), admin, AppointmentInput{
		PatientID: 1,
		DoctorID:  doctor.ID,
		StartTime: at(monday, 10, 0),
		EndTime:   at(monday, 10, 30),
	})
	assert.NoError(t, err)
	return apt
}

func TestCreatePatientFlow(t *testing.T) {
	db := setupSchedulingTestDB()
	admin := createAdmin(db)
	doctor := createDoctor(db, "Dr. A", "a@clinic.test")
	seedFullWeekHours(db, doctor.ID)
	apt := seedFlowAppointment(t, db, admin, doctor)

	t.Run("LinkedToAppointment", func(t *testing.T) {
		flow, err := CreatePatientFlow(db, admin, PatientFlowInput{AppointmentID: &apt.ID}, at(monday, 9, 50))
		assert.NoError(t, err)
		assert.Equal(t, models.FlowStatusRegistered, flow.Status)
		assert.Nil(t, flow.ArrivalTime)
	})

	t.Run("BothLinksRejected", func(t *testing.T) {
		opID := uint(1)
		_, err := CreatePatientFlow(db, admin, PatientFlowInput{AppointmentID: &apt.ID, OperationID: &opID}, at(monday, 9, 50))
		assert.IsType(t, &InvalidDataError{}, err)
	})

	t.Run("NoLinkRejected", func(t *testing.T) {
		_, err := CreatePatientFlow(db, admin, PatientFlowInput{}, at(monday, 9, 50))
		assert.IsType(t, &InvalidDataError{}, err)
	})

	t.Run("MissingBookingRejected", func(t *testing.T) {
		missing := uint(9999)
		_, err := CreatePatientFlow(db, admin, PatientFlowInput{AppointmentID: &missing}, at(monday, 9, 50))
		assert.IsType(t, &NotFoundError{}, err)
	})
}

func TestPatientFlowTransitions(t *testing.T) {
	db := setupSchedulingTestDB()
	admin := createAdmin(db)
	doctor := createDoctor(db, "Dr. A", "a@clinic.test")
	seedFullWeekHours(db, doctor.ID)
	apt := seedFlowAppointment(t, db, admin, doctor)

	flow, err := CreatePatientFlow(db, admin, PatientFlowInput{AppointmentID: &apt.ID}, at(monday, 9, 50))
	assert.NoError(t, err)

	t.Run("ForwardMoveStampsArrival", func(t *testing.T) {
		updated, err := UpdatePatientFlowStatus(db, admin, flow.ID, models.FlowStatusWaiting, at(monday, 9, 55))
		assert.NoError(t, err)
		assert.Equal(t, models.FlowStatusWaiting, updated.Status)

		var stored models.PatientFlow
		db.First(&stored, "id = ?", flow.ID)
		assert.NotNil(t, stored.ArrivalTime)
		assert.Equal(t, at(monday, 9, 55), stored.ArrivalTime.UTC())
		assert.Equal(t, at(monday, 9, 55), stored.StatusChangedAt.UTC())
	})

	t.Run("SkippingStagesAllowed", func(t *testing.T) {
		updated, err := UpdatePatientFlowStatus(db, admin, flow.ID, models.FlowStatusInTreatment, at(monday, 10, 5))
		assert.NoError(t, err)
		assert.Equal(t, models.FlowStatusInTreatment, updated.Status)
	})

	t.Run("BackwardMoveRejected", func(t *testing.T) {
		_, err := UpdatePatientFlowStatus(db, admin, flow.ID, models.FlowStatusWaiting, at(monday, 10, 10))
		assert.IsType(t, &InvalidTransitionError{}, err)
	})

	t.Run("DoneIsTerminal", func(t *testing.T) {
		_, err := UpdatePatientFlowStatus(db, admin, flow.ID, models.FlowStatusDone, at(monday, 10, 40))
		assert.NoError(t, err)

		_, err = UpdatePatientFlowStatus(db, admin, flow.ID, models.FlowStatusDone, at(monday, 10, 45))
		assert.IsType(t, &InvalidTransitionError{}, err)
	})

	t.Run("TransitionsAudited", func(t *testing.T) {
		assert.Equal(t, int64(3), auditCount(db, models.AuditPatientFlowStatusUpdate))
	})
}

func TestListActivePatientFlows(t *testing.T) {
	db := setupSchedulingTestDB()
	admin := createAdmin(db)
	doctor := createDoctor(db, "Dr. A", "a@clinic.test")
	other := createDoctor(db, "Dr. B", "b@clinic.test")
	seedFullWeekHours(db, doctor.ID)
	seedFullWeekHours(db, other.ID)
	ctx := context.Background()

	aptA, err := PlanAppointment(ctx, db, testCore(), admin, AppointmentInput{
		PatientID: 1, DoctorID: doctor.ID, StartTime: at(monday, 10, 0), EndTime: at(monday, 10, 30),
	})
	assert.NoError(t, err)
	aptB, err := PlanAppointment(ctx, db, testCore(), admin, AppointmentInput{
		PatientID: 2, DoctorID: other.ID, StartTime: at(monday, 10, 0), EndTime: at(monday, 10, 30),
	})
	assert.NoError(t, err)

	flowA, err := CreatePatientFlow(db, admin, PatientFlowInput{AppointmentID: &aptA.ID}, at(monday, 9, 40))
	assert.NoError(t, err)
	flowB, err := CreatePatientFlow(db, admin, PatientFlowInput{AppointmentID: &aptB.ID}, at(monday, 9, 45))
	assert.NoError(t, err)

	t.Run("DoneFlowsHidden", func(t *testing.T) {
		_, err := UpdatePatientFlowStatus(db, admin, flowB.ID, models.FlowStatusDone, at(monday, 11, 0))
		assert.NoError(t, err)

		flows, err := ListActivePatientFlows(db, admin)
		assert.NoError(t, err)
		assert.Len(t, flows, 1)
		assert.Equal(t, flowA.ID, flows[0].ID)
	})

	t.Run("DoctorSeesOwnOnly", func(t *testing.T) {
		flows, err := ListActivePatientFlows(db, doctor)
		assert.NoError(t, err)
		assert.Len(t, flows, 1)

		flows, err = ListActivePatientFlows(db, other)
		assert.NoError(t, err)
		assert.Empty(t, flows)
	})
}
