package models

import (
	"time"

	"github.com/google/uuid"
)

// Invitation statuses
const (
	InvitationStatusPending   = "pending"
	InvitationStatusAccepted  = "accepted"
	InvitationStatusCompleted = "completed"
	InvitationStatusCancelled = "cancelled"
	InvitationStatusExpired   = "expired"
)

// Roles an invitation may carry
var AllowedInvitationRoles = []string{"client", "patient", "doctor", "nutritionist"}

type Invitation struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrganizationID uuid.UUID  `json:"organization_id" gorm:"type:uuid;not null;index"`
	Email          string     `json:"email" gorm:"size:255;not null;index"`
	Role           string     `json:"role" gorm:"size:50;not null"`
	Token          string     `json:"-" gorm:"size:128;uniqueIndex;not null"`
	Message        string     `json:"message" gorm:"type:text"`
	Status         string     `json:"status" gorm:"size:50;default:'pending';index"`
	InvitedBy      uuid.UUID  `json:"invited_by" gorm:"type:uuid;not null"`
	ExpiresAt      time.Time  `json:"expires_at"`
	AcceptedAt     *time.Time `json:"accepted_at"`
	AcceptedBy     *uuid.UUID `json:"accepted_by" gorm:"type:uuid"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Relations
	Enterprise Enterprise `json:"enterprise,omitempty" gorm:"foreignKey:OrganizationID"`
}

func (Invitation) TableName() string {
	return "invitations"
}

// IsExpired reports whether the invitation is past its expiry time
func (i *Invitation) IsExpired() bool {
	return !i.ExpiresAt.IsZero() && time.Now().After(i.ExpiresAt)
}
