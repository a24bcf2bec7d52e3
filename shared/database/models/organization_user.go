package models

import (
	"time"

	"github.com/google/uuid"
)

// OrganizationUser is a membership row. Owners are not members; ownership
// lives on Enterprise.CreatedBy.
type OrganizationUser struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrganizationID uuid.UUID `json:"organization_id" gorm:"type:uuid;not null;index:idx_org_user,unique"`
	UserID         uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index:idx_org_user,unique"`
	Role           string    `json:"role" gorm:"size:50;not null"`
	Status         string    `json:"status" gorm:"size:50;default:'active'"`
	Notes          string    `json:"notes" gorm:"type:text"`
	Metadata       JSONMap   `json:"metadata" gorm:"type:jsonb"`
	JoinedAt       time.Time `json:"joined_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Relations
	Enterprise Enterprise `json:"enterprise,omitempty" gorm:"foreignKey:OrganizationID"`
	User       User       `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (OrganizationUser) TableName() string {
	return "organization_users"
}

// DeletionLog records a full account purge for auditing
type DeletionLog struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID         uuid.UUID `json:"user_id" gorm:"type:uuid;not null"`
	UserEmail      string    `json:"user_email" gorm:"size:255"`
	OrganizationID uuid.UUID `json:"organization_id" gorm:"type:uuid;not null"`
	DeletedBy      uuid.UUID `json:"deleted_by" gorm:"type:uuid;not null"`
	Details        JSONMap   `json:"details" gorm:"type:jsonb"`
	CreatedAt      time.Time `json:"created_at"`
}

func (DeletionLog) TableName() string {
	return "deletion_logs"
}
