package services

import (
	"context"
	"errors"
	"log"
	"reflect"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"meallens-backend/shared/database"
	"meallens-backend/shared/database/models"
)

// SettingsService manages user profile settings and their change history
type SettingsService struct {
	db *gorm.DB
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{db: db}
}

// NormalizeSettingsType fills in the default type for empty input
func NormalizeSettingsType(settingsType string) string {
	if settingsType == "" {
		return models.DefaultSettingsType
	}
	return settingsType
}

// ChangedTrackedFields returns the tracked fields whose values differ
// between two settings payloads, in a stable order.
func ChangedTrackedFields(previous, next models.JSONMap) []string {
	changed := []string{}
	for _, field := range models.TrackedSettingsFields {
		oldValue, hadOld := previous[field]
		newValue, hasNew := next[field]

		if !hadOld && !hasNew {
			continue
		}
		if hadOld != hasNew || !reflect.DeepEqual(oldValue, newValue) {
			changed = append(changed, field)
		}
	}
	return changed
}

// SaveSettings upserts a user's settings and, when tracked fields changed,
// appends a history row with the old and new payloads.
func (s *SettingsService) SaveSettings(ctx context.Context, userID uuid.UUID, settingsType string, data models.JSONMap) (*models.UserSettings, []string, error) {
	settingsType = NormalizeSettingsType(settingsType)

	var existing models.UserSettings
	var previousData models.JSONMap
	found := false

	err := database.WithRetry(ctx, "load user settings", func() error {
		err := s.db.Where("user_id = ? AND settings_type = ?", userID, settingsType).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err == nil {
			found = true
		}
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	if found {
		previousData = existing.SettingsData
	} else {
		previousData = models.JSONMap{}
	}

	changedFields := ChangedTrackedFields(previousData, data)

	var settings *models.UserSettings
	err = database.WithRetry(ctx, "save user settings", func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			if found {
				existing.SettingsData = data
				existing.UpdatedAt = time.Now().UTC()
				if err := tx.Save(&existing).Error; err != nil {
					return err
				}
				settings = &existing
			} else {
				created := models.UserSettings{
					UserID:       userID,
					SettingsType: settingsType,
					SettingsData: data,
				}
				if err := tx.Create(&created).Error; err != nil {
					return err
				}
				settings = &created
			}

			if len(changedFields) > 0 {
				history := models.UserSettingsHistory{
					UserID:               userID,
					SettingsType:         settingsType,
					SettingsData:         data,
					PreviousSettingsData: previousData,
					ChangedFields:        changedFields,
				}
				if err := tx.Create(&history).Error; err != nil {
					return err
				}
			}

			return nil
		})
	})
	if err != nil {
		return nil, nil, err
	}

	return settings, changedFields, nil
}

// GetSettings loads a user's settings. A missing row is not an error; the
// caller receives nil.
func (s *SettingsService) GetSettings(ctx context.Context, userID uuid.UUID, settingsType string) (*models.UserSettings, error) {
	settingsType = NormalizeSettingsType(settingsType)

	var settings models.UserSettings
	err := database.WithRetry(ctx, "load user settings", func() error {
		return s.db.Where("user_id = ? AND settings_type = ?", userID, settingsType).First(&settings).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &settings, nil
}

// GetSettingsHistory returns a user's settings changes, newest first.
// Transient database trouble yields an empty list instead of an error so
// profile pages keep rendering.
func (s *SettingsService) GetSettingsHistory(ctx context.Context, userID uuid.UUID, settingsType string, limit int) ([]models.UserSettingsHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	settingsType = NormalizeSettingsType(settingsType)

	var history []models.UserSettingsHistory
	err := database.WithRetry(ctx, "load settings history", func() error {
		return s.db.Where("user_id = ? AND settings_type = ?", userID, settingsType).
			Order("created_at DESC").
			Limit(limit).
			Find(&history).Error
	})
	if err != nil {
		if database.IsTransientError(err) {
			log.Printf("Settings history unavailable for user %s, returning empty list: %v", userID, err)
			return []models.UserSettingsHistory{}, nil
		}
		return nil, err
	}

	return history, nil
}

// DeleteHistoryRecord removes one history row, owner only
func (s *SettingsService) DeleteHistoryRecord(ctx context.Context, userID, recordID uuid.UUID) error {
	return database.WithRetry(ctx, "delete settings history record", func() error {
		result := s.db.Where("id = ? AND user_id = ?", recordID, userID).Delete(&models.UserSettingsHistory{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// DeleteSettings removes a user's settings and history rows for one type
func (s *SettingsService) DeleteSettings(ctx context.Context, userID uuid.UUID, settingsType string) error {
	settingsType = NormalizeSettingsType(settingsType)

	return database.WithRetry(ctx, "delete user settings", func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("user_id = ? AND settings_type = ?", userID, settingsType).
				Delete(&models.UserSettingsHistory{}).Error; err != nil {
				return err
			}
			return tx.Where("user_id = ? AND settings_type = ?", userID, settingsType).
				Delete(&models.UserSettings{}).Error
		})
	})
}
