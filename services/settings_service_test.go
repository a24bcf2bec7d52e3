package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"meallens-backend/shared/database/models"
)

func TestChangedTrackedFields(t *testing.T) {
	t.Run("detects a changed value", func(t *testing.T) {
		previous := models.JSONMap{"age": 30.0, "weight": 72.5}
		next := models.JSONMap{"age": 31.0, "weight": 72.5}

		assert.Equal(t, []string{"age"}, ChangedTrackedFields(previous, next))
	})

	t.Run("detects added and removed fields", func(t *testing.T) {
		previous := models.JSONMap{"age": 30.0}
		next := models.JSONMap{"age": 30.0, "goal": "lose_weight"}

		assert.Equal(t, []string{"goal"}, ChangedTrackedFields(previous, next))

		assert.Equal(t, []string{"age"}, ChangedTrackedFields(next, models.JSONMap{"goal": "lose_weight"}))
	})

	t.Run("ignores untracked fields", func(t *testing.T) {
		previous := models.JSONMap{"theme": "dark"}
		next := models.JSONMap{"theme": "light"}

		assert.Empty(t, ChangedTrackedFields(previous, next))
	})

	t.Run("first save records populated tracked fields", func(t *testing.T) {
		next := models.JSONMap{
			"age":    25.0,
			"gender": "female",
			"height": 168.0,
			"theme":  "dark",
		}

		changed := ChangedTrackedFields(models.JSONMap{}, next)
		assert.ElementsMatch(t, []string{"age", "gender", "height"}, changed)
	})

	t.Run("identical payloads change nothing", func(t *testing.T) {
		data := models.JSONMap{"age": 30.0, "goal": "maintain"}
		assert.Empty(t, ChangedTrackedFields(data, data))
	})

	t.Run("keeps the tracked-field order", func(t *testing.T) {
		previous := models.JSONMap{}
		next := models.JSONMap{
			"location":    "Accra",
			"hasSickness": true,
			"weight":      80.0,
		}

		assert.Equal(t, []string{"hasSickness", "weight", "location"}, ChangedTrackedFields(previous, next))
	})
}

func TestNormalizeSettingsType(t *testing.T) {
	assert.Equal(t, "health_profile", NormalizeSettingsType(""))
	assert.Equal(t, "preferences", NormalizeSettingsType("preferences"))
}
