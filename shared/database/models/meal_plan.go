package models

import (
	"time"

	"github.com/google/uuid"
)

// MealPlan covers a stretch of meals for a user. Plans created by an
// organization admin start unapproved and stay hidden from the user until
// approved; plans created by the user themselves are approved immediately.
type MealPlan struct {
	ID               uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID           uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	Name             string     `json:"name" gorm:"size:255"`
	StartDate        string     `json:"start_date" gorm:"type:date"`
	EndDate          string     `json:"end_date" gorm:"type:date"`
	MealPlanData     JSONMap    `json:"meal_plan" gorm:"column:meal_plan;type:jsonb"`
	HasSickness      bool       `json:"has_sickness" gorm:"default:false"`
	SicknessType     string     `json:"sickness_type" gorm:"size:100"`
	HealthAssessment JSONMap    `json:"health_assessment" gorm:"type:jsonb"`
	UserInfo         JSONMap    `json:"user_info" gorm:"type:jsonb"`
	IsApproved       bool       `json:"is_approved" gorm:"default:false"`
	ApprovedBy       *uuid.UUID `json:"approved_by" gorm:"type:uuid"`
	ApprovedAt       *time.Time `json:"approved_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (MealPlan) TableName() string {
	return "meal_plan_management"
}
