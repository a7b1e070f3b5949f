package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Audit action vocabulary. Actions form a closed set; anything else is a bug.
const (
	AuditAppointmentCreate       = "appointment_create"
	AuditAppointmentView         = "appointment_view"
	AuditAppointmentList         = "appointment_list"
	AuditAppointmentUpdate       = "appointment_update"
	AuditAppointmentDelete       = "appointment_delete"
	AuditAppointmentMarkNoShow   = "appointment_mark_no_show"
	AuditAppointmentSuggest      = "appointment_suggest"
	AuditDoctorSubstitution      = "doctor_substitution_suggest"
	AuditOperationCreate         = "operation_create"
	AuditOperationUpdate         = "operation_update"
	AuditOperationDelete         = "operation_delete"
	AuditOperationStatusUpdate   = "operation_status_update"
	AuditOperationSuggest        = "operation_suggest"
	AuditPatientFlowStatusUpdate = "patient_flow_status_update"
	AuditResourceBookingConflict = "resource_booking_conflict"
	AuditOpStatsView             = "op_stats_view"
	AuditOpDashboardView         = "op_dashboard_view"
	AuditOpTimelineView          = "op_timeline_view"
	AuditResourceCalendarView    = "resource_calendar_view"
	AuditLogin                   = "login"
	AuditLogout                  = "logout"
)

// AuditEvent is an immutable, append-only record of an action or decision
type AuditEvent struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index:idx_audit_created_at" json:"created_at"`

	// Actor identification (denormalized for historical accuracy)
	ActorID  *uint  `gorm:"index:idx_audit_actor" json:"actor_id,omitempty"`
	RoleName string `gorm:"size:20;not null" json:"role_name"`

	Action    string `gorm:"size:50;not null;index:idx_audit_action" json:"action"`
	PatientID *uint  `gorm:"index:idx_audit_patient" json:"patient_id,omitempty"`

	// Meta is a JSON encoded key->value map with action-specific detail
	Meta string `gorm:"type:text" json:"meta,omitempty"`
}

// MetaMap decodes the Meta payload
func (e *AuditEvent) MetaMap() map[string]interface{} {
	m := make(map[string]interface{})
	if e.Meta != "" {
		_ = json.Unmarshal([]byte(e.Meta), &m)
	}
	return m
}

// BeforeUpdate prevents modification of audit events (immutability)
func (e *AuditEvent) BeforeUpdate(tx *gorm.DB) error {
	return gorm.ErrRecordNotFound
}

// BeforeDelete prevents deletion of audit events (immutability)
func (e *AuditEvent) BeforeDelete(tx *gorm.DB) error {
	return gorm.ErrRecordNotFound
}

// TableName specifies the table name
func (AuditEvent) TableName() string {
	return "audit_events"
}
