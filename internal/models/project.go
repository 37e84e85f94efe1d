package models

import (
	"time"
)

// Project is the unit of subscription. Only its identity and membership
// matter to the stream; everything else belongs to the project service.
type Project struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Members []ProjectMember `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"members,omitempty"`
}

// ProjectMember grants a user access to a project's updates
type ProjectMember struct {
	ProjectID string    `gorm:"primaryKey;type:varchar(64)" json:"projectId"`
	UserID    string    `gorm:"primaryKey;type:varchar(64)" json:"userId"`
	Role      string    `gorm:"type:varchar(20);default:member" json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}
