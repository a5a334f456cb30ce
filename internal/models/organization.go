package models

import (
	"time"
)

// Organization is the tenant every task belongs to
type Organization struct {
	ID         uint64    `gorm:"primarykey" json:"id"`
	Name       string    `gorm:"type:varchar(255);not null" json:"name"`
	InviteCode string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Relations
	Members []OrganizationMember `gorm:"foreignKey:OrganizationID" json:"-"`
	Tasks   []Task               `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE" json:"-"`
}
