package models

import (
	"time"

	"github.com/google/uuid"
)

// Enterprise is an organization account. The creator owns it and is never
// stored as a row in organization_users.
type Enterprise struct {
	ID               uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name             string    `json:"name" gorm:"size:200;not null"`
	OrganizationType string    `json:"organization_type" gorm:"size:100"`
	Email            string    `json:"email" gorm:"size:255"`
	Phone            string    `json:"phone" gorm:"size:50"`
	Address          string    `json:"address"`
	Website          string    `json:"website" gorm:"size:255"`
	Description      string    `json:"description"`
	MaxUsers         int       `json:"max_users" gorm:"default:100"`
	CreatedBy        uuid.UUID `json:"created_by" gorm:"type:uuid;not null;index"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (Enterprise) TableName() string {
	return "enterprises"
}

// OrganizationTimeRestriction limits when members of an enterprise may use
// the service. A missing row means no restriction.
type OrganizationTimeRestriction struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrganizationID uuid.UUID `json:"organization_id" gorm:"type:uuid;not null;uniqueIndex"`
	Enabled        bool      `json:"enabled" gorm:"default:false"`
	StartTime      string    `json:"start_time" gorm:"size:8"`
	EndTime        string    `json:"end_time" gorm:"size:8"`
	Timezone       string    `json:"timezone" gorm:"size:64;default:'UTC'"`
	DaysOfWeek     JSONStringSlice `json:"days_of_week" gorm:"type:jsonb"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (OrganizationTimeRestriction) TableName() string {
	return "organization_time_restrictions"
}
