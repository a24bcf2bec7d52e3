package handlers

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"meallens-backend/services"
	"meallens-backend/shared/database"
	"meallens-backend/shared/database/models"
	"meallens-backend/shared/utils/permission"
)

// SaveSettingsRequest represents request body for saving settings
type SaveSettingsRequest struct {
	SettingsType string         `json:"settings_type"`
	SettingsData models.JSONMap `json:"settings_data"`
}

// Array-diff artifacts like "0 (removed)" carry no meaning for reviewers
var removedArtifactPattern = regexp.MustCompile(`^\d+\s*\(removed\)$`)

func settingsService() *services.SettingsService {
	return services.NewSettingsService(database.DB)
}

// SaveSettings upserts the caller's settings and records changed fields
// @Summary Save my settings
// @Tags settings
// @Accept json
// @Produce json
// @Param settings body SaveSettingsRequest true "Settings payload"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Empty settings data"
// @Router /settings [post]
func SaveSettings(ctx *gin.Context) {
	userID := ctx.MustGet("userID").(uuid.UUID)

	var req SaveSettingsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Settings data is required",
		})
		return
	}
	if len(req.SettingsData) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Settings data cannot be empty",
		})
		return
	}

	settings, _, err := settingsService().SaveSettings(ctx.Request.Context(), userID, req.SettingsType, req.SettingsData)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": fmt.Sprintf("Failed to save settings: %v", err),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status":        "success",
		"message":       "Settings saved successfully",
		"settings":      settings.SettingsData,
		"settings_type": settings.SettingsType,
		"updated_at":    settings.UpdatedAt,
	})
}

// GetSettings returns the caller's settings. Missing rows and transient
// database trouble both come back as empty settings, not errors.
// @Summary Get my settings
// @Tags settings
// @Produce json
// @Param settings_type query string false "Settings type" default(health_profile)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /settings [get]
func GetSettings(ctx *gin.Context) {
	userID := ctx.MustGet("userID").(uuid.UUID)
	settingsType := ctx.Query("settings_type")

	settings, err := settingsService().GetSettings(ctx.Request.Context(), userID, settingsType)
	if err != nil {
		if database.IsTransientError(err) {
			ctx.JSON(http.StatusOK, gin.H{
				"status":   "success",
				"settings": models.JSONMap{},
				"message":  "No settings found",
			})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": fmt.Sprintf("Failed to get settings: %v", err),
		})
		return
	}

	if settings == nil {
		ctx.JSON(http.StatusOK, gin.H{
			"status":   "success",
			"settings": models.JSONMap{},
			"message":  "No settings found",
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status":        "success",
		"settings":      settings.SettingsData,
		"settings_type": settings.SettingsType,
		"updated_at":    settings.UpdatedAt,
	})
}

// DeleteSettings removes the caller's settings and their history
// @Summary Delete my settings
// @Tags settings
// @Produce json
// @Param settings_type query string false "Settings type" default(health_profile)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /settings [delete]
func DeleteSettings(ctx *gin.Context) {
	userID := ctx.MustGet("userID").(uuid.UUID)
	settingsType := ctx.Query("settings_type")

	if err := settingsService().DeleteSettings(ctx.Request.Context(), userID, settingsType); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": fmt.Sprintf("Failed to delete settings: %v", err),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Settings deleted successfully",
	})
}

// GetSettingsHistory lists the caller's settings changes, newest first.
// Connection trouble degrades to an empty list so the page still renders.
// @Summary Get my settings history
// @Tags settings
// @Produce json
// @Param settings_type query string false "Settings type" default(health_profile)
// @Param limit query int false "Max records" default(50)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /settings/history [get]
func GetSettingsHistory(ctx *gin.Context) {
	userID := ctx.MustGet("userID").(uuid.UUID)
	settingsType := ctx.Query("settings_type")

	limit := 50
	if raw := ctx.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	history, err := settingsService().GetSettingsHistory(ctx.Request.Context(), userID, settingsType, limit)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "Internal server error",
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"history": history,
		"count":   len(history),
	})
}

// DeleteSettingsHistoryRecord removes one of the caller's history rows
// @Summary Delete a settings history record
// @Tags settings
// @Produce json
// @Param recordId path string true "History record ID" format(uuid)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Record not found"
// @Router /settings/history/{recordId} [delete]
func DeleteSettingsHistoryRecord(ctx *gin.Context) {
	userID := ctx.MustGet("userID").(uuid.UUID)

	recordID, err := uuid.Parse(ctx.Param("recordId"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Invalid record ID format",
		})
		return
	}

	if err := settingsService().DeleteHistoryRecord(ctx.Request.Context(), userID, recordID); err != nil {
		if err == gorm.ErrRecordNotFound {
			ctx.JSON(http.StatusNotFound, gin.H{
				"status":  "error",
				"message": "Settings history record not found",
			})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "Internal server error",
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Settings history record deleted successfully.",
	})
}

// GetEnterpriseSettingsHistory returns recent health-profile changes across
// every member of the enterprise
// @Summary Get settings history across enterprise members
// @Tags settings
// @Produce json
// @Param id path string true "Enterprise ID" format(uuid)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Not an organization admin"
// @Router /enterprise/{id}/settings-history [get]
func GetEnterpriseSettingsHistory(ctx *gin.Context) {
	userID := ctx.MustGet("userID").(uuid.UUID)

	enterpriseID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid enterprise ID format"})
		return
	}

	if isAdmin, reason := permission.CheckOrgAdmin(ctx, userID, enterpriseID); !isAdmin {
		ctx.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Access denied: %s", reason),
		})
		return
	}

	db := database.DB

	var memberships []models.OrganizationUser
	if err := db.Preload("User").Where("organization_id = ?", enterpriseID).Find(&memberships).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Failed to fetch settings history: %v", err),
		})
		return
	}
	if len(memberships) == 0 {
		ctx.JSON(http.StatusOK, gin.H{"success": true, "history": []gin.H{}})
		return
	}

	memberIDs := make([]uuid.UUID, 0, len(memberships))
	membersByID := make(map[uuid.UUID]*models.User, len(memberships))
	for i := range memberships {
		memberIDs = append(memberIDs, memberships[i].UserID)
		membersByID[memberships[i].UserID] = &memberships[i].User
	}

	var records []models.UserSettingsHistory
	if err := db.Where("user_id IN ? AND settings_type = ?", memberIDs, models.DefaultSettingsType).
		Order("created_at DESC").
		Limit(100).
		Find(&records).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Failed to fetch settings history: %v", err),
		})
		return
	}

	history := make([]gin.H, 0, len(records))
	for _, record := range records {
		userName := "Unknown"
		userEmail := "Unknown"
		if member, ok := membersByID[record.UserID]; ok {
			userName = member.FullName()
			userEmail = member.Email
		}

		meaningful := make([]string, 0, len(record.ChangedFields))
		for _, field := range record.ChangedFields {
			if !removedArtifactPattern.MatchString(field) {
				meaningful = append(meaningful, field)
			}
		}

		history = append(history, gin.H{
			"id":                     record.ID,
			"user_id":                record.UserID,
			"user_name":              userName,
			"user_email":             userEmail,
			"settings_type":          record.SettingsType,
			"settings_data":          record.SettingsData,
			"previous_settings_data": record.PreviousSettingsData,
			"changed_fields":         meaningful,
			"created_at":             record.CreatedAt,
		})
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"history": history,
	})
}

// GetMemberSettings returns one member's health profile, with identity
// @Summary Get a member's settings
// @Tags settings
// @Produce json
// @Param id path string true "Enterprise ID" format(uuid)
// @Param userId path string true "Member user ID" format(uuid)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Not an organization admin"
// @Failure 404 {object} map[string]string "User not in organization"
// @Router /enterprise/{id}/user/{userId}/settings [get]
func GetMemberSettings(ctx *gin.Context) {
	adminID := ctx.MustGet("userID").(uuid.UUID)

	enterpriseID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid enterprise ID format"})
		return
	}
	targetUserID, err := uuid.Parse(ctx.Param("userId"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid user ID format"})
		return
	}

	if isAdmin, reason := permission.CheckOrgAdmin(ctx, adminID, enterpriseID); !isAdmin {
		ctx.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Access denied: %s", reason),
		})
		return
	}
	if !requireOrgMember(ctx, enterpriseID, targetUserID, http.StatusNotFound) {
		return
	}

	var member models.User
	userName := "Unknown"
	userEmail := "Unknown"
	if err := database.DB.Where("id = ?", targetUserID).First(&member).Error; err == nil {
		userName = member.FullName()
		userEmail = member.Email
	}

	settings, err := settingsService().GetSettings(ctx.Request.Context(), targetUserID, models.DefaultSettingsType)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Failed to fetch user settings: %v", err),
		})
		return
	}

	response := gin.H{
		"success":    true,
		"user_id":    targetUserID,
		"user_name":  userName,
		"user_email": userEmail,
		"settings":   models.JSONMap{},
		"updated_at": nil,
	}
	if settings != nil {
		response["settings"] = settings.SettingsData
		response["updated_at"] = settings.UpdatedAt
	}

	ctx.JSON(http.StatusOK, response)
}

// UpdateMemberSettings saves settings on behalf of a member, recording
// history the same way the member's own saves do
// @Summary Update a member's settings
// @Tags settings
// @Accept json
// @Produce json
// @Param id path string true "Enterprise ID" format(uuid)
// @Param userId path string true "Member user ID" format(uuid)
// @Param settings body SaveSettingsRequest true "Settings payload"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Not an organization admin"
// @Failure 404 {object} map[string]string "User not in organization"
// @Router /enterprise/{id}/user/{userId}/settings [put]
func UpdateMemberSettings(ctx *gin.Context) {
	adminID := ctx.MustGet("userID").(uuid.UUID)

	enterpriseID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid enterprise ID format"})
		return
	}
	targetUserID, err := uuid.Parse(ctx.Param("userId"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid user ID format"})
		return
	}

	if isAdmin, reason := permission.CheckOrgAdmin(ctx, adminID, enterpriseID); !isAdmin {
		ctx.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Access denied: %s", reason),
		})
		return
	}
	if !requireOrgMember(ctx, enterpriseID, targetUserID, http.StatusNotFound) {
		return
	}

	var req SaveSettingsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || len(req.SettingsData) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "settings_data is required",
		})
		return
	}

	if _, _, err := settingsService().SaveSettings(ctx.Request.Context(), targetUserID, req.SettingsType, req.SettingsData); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Failed to update user settings: %v", err),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User settings updated successfully",
	})
}

// DeleteMemberSettings removes a member's settings and history
// @Summary Delete a member's settings
// @Tags settings
// @Produce json
// @Param id path string true "Enterprise ID" format(uuid)
// @Param userId path string true "Member user ID" format(uuid)
// @Param settings_type query string false "Settings type" default(health_profile)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Not an organization admin"
// @Failure 404 {object} map[string]string "User not in organization"
// @Router /enterprise/{id}/user/{userId}/settings [delete]
func DeleteMemberSettings(ctx *gin.Context) {
	adminID := ctx.MustGet("userID").(uuid.UUID)

	enterpriseID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid enterprise ID format"})
		return
	}
	targetUserID, err := uuid.Parse(ctx.Param("userId"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid user ID format"})
		return
	}

	if isAdmin, reason := permission.CheckOrgAdmin(ctx, adminID, enterpriseID); !isAdmin {
		ctx.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Access denied: %s", reason),
		})
		return
	}
	if !requireOrgMember(ctx, enterpriseID, targetUserID, http.StatusNotFound) {
		return
	}

	if err := settingsService().DeleteSettings(ctx.Request.Context(), targetUserID, ctx.Query("settings_type")); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Failed to delete settings: %v", err),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User settings deleted successfully",
	})
}

// GetMemberHealthHistory returns every settings change of one member
// @Summary Get a member's health history
// @Tags settings
// @Produce json
// @Param id path string true "Enterprise ID" format(uuid)
// @Param userId path string true "Member user ID" format(uuid)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Not an organization admin"
// @Failure 404 {object} map[string]string "User not in organization"
// @Router /enterprise/{id}/user/{userId}/health-history [get]
func GetMemberHealthHistory(ctx *gin.Context) {
	adminID := ctx.MustGet("userID").(uuid.UUID)

	enterpriseID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid enterprise ID format"})
		return
	}
	targetUserID, err := uuid.Parse(ctx.Param("userId"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid user ID format"})
		return
	}

	if isAdmin, reason := permission.CheckOrgAdmin(ctx, adminID, enterpriseID); !isAdmin {
		ctx.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Access denied: %s", reason),
		})
		return
	}
	if !requireOrgMember(ctx, enterpriseID, targetUserID, http.StatusNotFound) {
		return
	}

	var history []models.UserSettingsHistory
	if err := database.DB.Where("user_id = ?", targetUserID).
		Order("created_at DESC").
		Find(&history).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Failed to fetch health history: %v", err),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":        true,
		"health_history": history,
		"total_count":    len(history),
	})
}
