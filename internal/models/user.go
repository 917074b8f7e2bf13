package models

import (
	"time"

	"gorm.io/datatypes"
)

// User represents a student account on the platform.
type User struct {
	ID             uint                        `gorm:"primaryKey" json:"id"`
	Name           string                      `gorm:"size:100;not null" json:"name"`
	Email          string                      `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Course         string                      `gorm:"size:100;not null" json:"course"`
	Period         string                      `gorm:"size:20;not null" json:"period"`
	Interests      datatypes.JSONSlice[string] `json:"interests"`
	Avatar         string                      `gorm:"size:32" json:"avatar"`
	PhotoURL       string                      `gorm:"size:512" json:"photo_url"`
	PasswordHash   string                      `gorm:"size:255;not null" json:"-"`
	EmailConfirmed bool                        `gorm:"not null;default:false" json:"email_confirmed"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
}
