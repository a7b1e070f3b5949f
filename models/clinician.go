package models

import (
	"time"
)

// Role is the runtime-typed clinic role of a clinician
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleAssistant Role = "assistant"
	RoleDoctor    Role = "doctor"
	RoleBilling   Role = "billing"
	RoleNurse     Role = "nurse"
	RoleUnknown   Role = "unknown"
)

// ParseRole maps a stored role string onto the enumeration.
// Anything unrecognized becomes RoleUnknown so gate checks never
// compare raw strings.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin, RoleAssistant, RoleDoctor, RoleBilling, RoleNurse:
		return Role(s)
	}
	return RoleUnknown
}

// Clinician represents a member of the practice staff
type Clinician struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name         string `gorm:"size:200;not null" json:"name"`
	Email        string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
	Role         string `gorm:"size:20;not null;index" json:"role"`
	Color        string `gorm:"size:7;default:'#3B82F6'" json:"color"` // Calendar display color
	IsActive     bool   `gorm:"default:true;index" json:"is_active"`
}

// TableName specifies the table name for Clinician model
func (Clinician) TableName() string {
	return "clinicians"
}

// RoleEnum returns the typed role of the clinician
func (c *Clinician) RoleEnum() Role {
	return ParseRole(c.Role)
}

// IsDoctor reports whether the clinician participates in clinical scheduling
func (c *Clinician) IsDoctor() bool {
	return c.RoleEnum() == RoleDoctor
}
