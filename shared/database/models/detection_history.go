package models

import (
	"time"

	"github.com/google/uuid"
)

// Recipe types recorded in detection history
const (
	RecipeTypeFoodDetection       = "food_detection"
	RecipeTypeIngredientDetection = "ingredient_detection"
)

// DetectionHistory records one food-detection run and the uploaded image
// stored in object storage.
type DetectionHistory struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID        uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	RecipeType    string    `json:"recipe_type" gorm:"size:50;not null;default:'food_detection'"`
	Suggestion    string    `json:"suggestion" gorm:"type:text"`
	Instructions  string    `json:"instructions" gorm:"type:text"`
	Ingredients   string    `json:"ingredients" gorm:"type:text"`
	DetectedFoods JSONMap   `json:"detected_foods" gorm:"type:jsonb"`
	Analysis      JSONMap   `json:"analysis" gorm:"type:jsonb"`
	ImagePath     string    `json:"image_path" gorm:"size:512"`
	ImageURL      string    `json:"image_url" gorm:"size:1024"`
	CreatedAt     time.Time `json:"created_at"`
}

func (DetectionHistory) TableName() string {
	return "detection_history"
}
