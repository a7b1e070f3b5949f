package services

import (
	"clinic_flow_app_go/models"
	"fmt"

	"gorm.io/gorm"
)

// Authorization domains
const (
	DomainAppointments       = "appointments"
	DomainAppointmentTypes   = "appointment_types"
	DomainPracticeHours      = "practice_hours"
	DomainResources          = "resources"
	DomainDoctorHours        = "doctor_hours"
	DomainAbsences           = "absences"
	DomainBreaks             = "breaks"
	DomainOperations         = "operations"
	DomainOperationStatus    = "operation_status"
	DomainOperationSuggest   = "operation_suggest"
	DomainAppointmentSuggest = "appointment_suggest"
	DomainPatientFlow        = "patient_flow"
	DomainAuditLog           = "audit_log"
)

// Authorization verbs
const (
	VerbRead  = "read"
	VerbWrite = "write"
)

// access scope granted by the matrix
type access int

const (
	accessNone access = iota
	accessOwn         // only objects owned by the actor
	accessAll
)

// matrixAccess encodes the role/domain/verb matrix. Unknown roles get
// nothing; nurses get read-only visibility on clinical traffic.
func matrixAccess(role models.Role, domain, verb string) access {
	switch role {
	case models.RoleAdmin, models.RoleAssistant:
		// Full read/write on everything except the audit log, which only
		// admins may query.
		if domain == DomainAuditLog && role != models.RoleAdmin {
			return accessNone
		}
		if domain == DomainAppointmentTypes && verb == VerbWrite && role != models.RoleAdmin {
			return accessNone
		}
		return accessAll

	case models.RoleDoctor:
		switch domain {
		case DomainAppointments, DomainPatientFlow, DomainAppointmentSuggest, DomainOperationSuggest:
			return accessOwn
		case DomainAppointmentTypes, DomainPracticeHours, DomainResources, DomainOperationStatus:
			if verb == VerbRead {
				return accessAll
			}
			return accessNone
		case DomainDoctorHours:
			if verb == VerbRead {
				return accessOwn
			}
			return accessNone
		case DomainAbsences, DomainBreaks:
			return accessOwn
		case DomainOperations:
			if verb == VerbRead {
				return accessOwn
			}
			return accessNone
		}
		return accessNone

	case models.RoleBilling:
		if verb != VerbRead {
			return accessNone
		}
		switch domain {
		case DomainAppointments, DomainAppointmentTypes, DomainPracticeHours, DomainResources,
			DomainDoctorHours, DomainAbsences, DomainBreaks, DomainOperations,
			DomainOperationStatus, DomainOperationSuggest, DomainPatientFlow:
			return accessAll
		}
		return accessNone

	case models.RoleNurse:
		// Nurses are not in the written matrix; they see clinical traffic
		// read-only and touch nothing.
		if verb != VerbRead {
			return accessNone
		}
		switch domain {
		case DomainAppointments, DomainOperations, DomainPatientFlow, DomainAppointmentTypes, DomainResources:
			return accessAll
		}
		return accessNone
	}

	return accessNone
}

// ruleKey names the violated rule for NotAuthorizedError
func ruleKey(role models.Role, domain, verb string) string {
	return fmt.Sprintf("%s:%s:%s", role, domain, verb)
}

// Authorize rejects actors whose role grants no access at all for the
// domain/verb. Ownership restrictions are enforced by the per-object
// helpers below.
func Authorize(actor *models.Clinician, domain, verb string) error {
	role := models.RoleUnknown
	if actor != nil {
		role = actor.RoleEnum()
	}
	if matrixAccess(role, domain, verb) == accessNone {
		return &NotAuthorizedError{Rule: ruleKey(role, domain, verb)}
	}
	return nil
}

// ScopeIsAll reports whether the actor sees all objects in the domain, as
// opposed to own-only visibility.
func ScopeIsAll(actor *models.Clinician, domain, verb string) bool {
	if actor == nil {
		return false
	}
	return matrixAccess(actor.RoleEnum(), domain, verb) == accessAll
}

// OwnsAppointment reports whether the appointment belongs to the actor
func OwnsAppointment(actor *models.Clinician, apt *models.Appointment) bool {
	return actor != nil && apt.DoctorID == actor.ID
}

// OnOperationTeam reports whether the actor fills any team role
func OnOperationTeam(actor *models.Clinician, op *models.Operation) bool {
	return actor != nil && op.HasTeamMember(actor.ID)
}

// AuthorizeAppointmentAccess applies the matrix plus the own-only filter
// for a concrete appointment.
func AuthorizeAppointmentAccess(actor *models.Clinician, apt *models.Appointment, verb string) error {
	if err := Authorize(actor, DomainAppointments, verb); err != nil {
		return err
	}
	if !ScopeIsAll(actor, DomainAppointments, verb) && !OwnsAppointment(actor, apt) {
		return &NotAuthorizedError{Rule: ruleKey(actor.RoleEnum(), DomainAppointments, verb) + ":own_only"}
	}
	return nil
}

// AuthorizeOperationAccess applies the matrix plus the in-team filter for
// a concrete operation.
func AuthorizeOperationAccess(actor *models.Clinician, op *models.Operation, verb string) error {
	if err := Authorize(actor, DomainOperations, verb); err != nil {
		return err
	}
	if !ScopeIsAll(actor, DomainOperations, verb) && !OnOperationTeam(actor, op) {
		return &NotAuthorizedError{Rule: ruleKey(actor.RoleEnum(), DomainOperations, verb) + ":own_only"}
	}
	return nil
}

// AuthorizePatientFlowAccess resolves the linked booking and applies the
// matching ownership rule.
func AuthorizePatientFlowAccess(db *gorm.DB, actor *models.Clinician, flow *models.PatientFlow, verb string) error {
	if err := Authorize(actor, DomainPatientFlow, verb); err != nil {
		return err
	}
	if ScopeIsAll(actor, DomainPatientFlow, verb) {
		return nil
	}

	owned := false
	if flow.AppointmentID != nil {
		var apt models.Appointment
		if err := db.First(&apt, "id = ?", *flow.AppointmentID).Error; err != nil {
			return err
		}
		owned = OwnsAppointment(actor, &apt)
	} else if flow.OperationID != nil {
		var op models.Operation
		if err := db.First(&op, "id = ?", *flow.OperationID).Error; err != nil {
			return err
		}
		owned = OnOperationTeam(actor, &op)
	}

	if !owned {
		return &NotAuthorizedError{Rule: ruleKey(actor.RoleEnum(), DomainPatientFlow, verb) + ":own_only"}
	}
	return nil
}

// AuthorizeDoctorScoped guards doctor-scoped schedule data (hours,
// absences, breaks): admins and assistants touch anyone's, doctors only
// their own.
func AuthorizeDoctorScoped(actor *models.Clinician, domain, verb string, doctorID *uint) error {
	if err := Authorize(actor, domain, verb); err != nil {
		return err
	}
	if ScopeIsAll(actor, domain, verb) {
		return nil
	}
	if doctorID == nil || actor == nil || *doctorID != actor.ID {
		return &NotAuthorizedError{Rule: ruleKey(actor.RoleEnum(), domain, verb) + ":own_only"}
	}
	return nil
}
