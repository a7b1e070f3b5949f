package models

import (
	"time"
)

// Resource type constants
const (
	ResourceTypeRoom   = "ROOM"
	ResourceTypeDevice = "DEVICE"
)

// Resource represents a schedulable physical entity, either a room or a device
type Resource struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name     string `gorm:"size:100;not null" json:"name"`
	Type     string `gorm:"size:20;not null;index" json:"type"` // ROOM or DEVICE
	Color    string `gorm:"size:7;default:'#6B7280'" json:"color"`
	IsActive bool   `gorm:"default:true;index" json:"is_active"`
}

// TableName specifies the table name for Resource model
func (Resource) TableName() string {
	return "resources"
}

// IsValidResourceType checks if the type is valid
func IsValidResourceType(t string) bool {
	return t == ResourceTypeRoom || t == ResourceTypeDevice
}

// IsRoom reports whether the resource is a room
func (r *Resource) IsRoom() bool {
	return r.Type == ResourceTypeRoom
}

// IsDevice reports whether the resource is a device
func (r *Resource) IsDevice() bool {
	return r.Type == ResourceTypeDevice
}
