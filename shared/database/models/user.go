package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Email         string    `json:"email" gorm:"uniqueIndex;not null"`
	Password      string    `json:"-" gorm:"not null"`
	FirstName     string    `json:"first_name" gorm:"size:100"`
	LastName      string    `json:"last_name" gorm:"size:100"`
	DisplayName   string    `json:"display_name" gorm:"size:200"`
	SignupType    string    `json:"signup_type" gorm:"size:50;default:'individual'"`
	Status        string    `json:"status" gorm:"default:'ACTIVE'"`
	EmailVerified bool      `json:"email_verified" gorm:"default:false"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FullName returns the display name, falling back to first+last
func (u *User) FullName() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Email
	}
	return name
}
