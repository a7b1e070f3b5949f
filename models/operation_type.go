package models

import (
	"time"
)

// OperationType defines the three ordered phase durations of an operation
type OperationType struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string `gorm:"size:100;not null" json:"name"`
	PrepMinutes int    `gorm:"not null;default:0" json:"prep_minutes"`
	OpMinutes   int    `gorm:"not null;default:0" json:"op_minutes"`
	PostMinutes int    `gorm:"not null;default:0" json:"post_minutes"`
	IsActive    bool   `gorm:"default:true;index" json:"is_active"`
}

// TableName specifies the table name for OperationType model
func (OperationType) TableName() string {
	return "operation_types"
}

// TotalMinutes returns the combined prep+op+post duration
func (ot *OperationType) TotalMinutes() int {
	return ot.PrepMinutes + ot.OpMinutes + ot.PostMinutes
}

// TotalDuration returns the combined duration as a time.Duration
func (ot *OperationType) TotalDuration() time.Duration {
	return time.Duration(ot.TotalMinutes()) * time.Minute
}
