package models

import (
	"time"
)

type Task struct {
	ID             uint64    `gorm:"primarykey" json:"id"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name"`
	Description    *string   `gorm:"type:text" json:"description"`
	DueDate        time.Time `gorm:"not null" json:"due_date"`
	Done           bool      `gorm:"not null;default:false" json:"done"`
	OrganizationID uint64    `gorm:"not null;index" json:"organization_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Mutable columns accepted by partial updates
const (
	TaskColumnName        = "name"
	TaskColumnDescription = "description"
	TaskColumnDueDate     = "due_date"
	TaskColumnDone        = "done"
)
