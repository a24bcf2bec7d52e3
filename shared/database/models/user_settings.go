package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultSettingsType is what callers get when they omit settings_type.
const DefaultSettingsType = "health_profile"

// TrackedSettingsFields are the profile fields whose changes are recorded
// in the settings history.
var TrackedSettingsFields = []string{
	"hasSickness", "sicknessType", "age", "gender", "height",
	"weight", "waist", "activityLevel", "goal", "location",
}

type UserSettings struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID       uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_user_settings_type"`
	SettingsType string    `json:"settings_type" gorm:"size:50;default:'health_profile';uniqueIndex:idx_user_settings_type"`
	SettingsData JSONMap   `json:"settings_data" gorm:"type:jsonb"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (UserSettings) TableName() string {
	return "user_settings"
}

// UserSettingsHistory is an append-only record of settings changes
type UserSettingsHistory struct {
	ID                   uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID               uuid.UUID       `json:"user_id" gorm:"type:uuid;not null;index"`
	SettingsType         string          `json:"settings_type" gorm:"size:50;default:'health_profile'"`
	SettingsData         JSONMap         `json:"settings_data" gorm:"type:jsonb"`
	PreviousSettingsData JSONMap         `json:"previous_settings_data" gorm:"type:jsonb"`
	ChangedFields        JSONStringSlice `json:"changed_fields" gorm:"type:jsonb"`
	CreatedAt            time.Time       `json:"created_at"`
}

func (UserSettingsHistory) TableName() string {
	return "user_settings_history"
}
