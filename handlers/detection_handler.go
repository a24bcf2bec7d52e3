package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"meallens-backend/services"
	"meallens-backend/shared/database"
	"meallens-backend/shared/database/models"
	"meallens-backend/shared/utils/detection"
	"meallens-backend/shared/utils/permission"
	"meallens-backend/shared/utils/query"
)

// DetectionRecordRequest represents request body for saving a detection run
type DetectionRecordRequest struct {
	RecipeType    string         `json:"recipe_type"`
	Suggestion    string         `json:"suggestion"`
	Instructions  string         `json:"instructions"`
	Ingredients   string         `json:"ingredients"`
	DetectedFoods models.JSONMap `json:"detected_foods"`
	Analysis      models.JSONMap `json:"analysis"`
	ImagePath     string         `json:"image_path"`
}

const presignedURLExpiry = 24 * time.Hour

// UploadDetectionImage stores a food image and opens a detection record
// @Summary Upload a detection image
// @Description Accepts a multipart image, stores it in object storage and creates a detection history record with a temporary download URL.
// @Tags detection
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "Food image"
// @Param recipe_type formData string false "food_detection or ingredient_detection"
// @Security BearerAuth
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Missing or invalid image"
// @Failure 500 {object} map[string]string "Storage unavailable"
// @Router /detection/upload [post]
func UploadDetectionImage(ctx *gin.Context) {
	userID := ctx.MustGet("userID").(uuid.UUID)

	fileHeader, err := ctx.FormFile("image")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Image file is required",
		})
		return
	}

	if err := detection.ValidateUploadedImage(fileHeader); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	recipeType := ctx.PostForm("recipe_type")
	if recipeType == "" {
		recipeType = models.RecipeTypeFoodDetection
	}

	file, err := fileHeader.Open()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to read uploaded file",
		})
		return
	}
	defer file.Close()

	storage, err := services.GetStorageService()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Storage service unavailable",
			"message": err.Error(),
		})
		return
	}

	contentType := detection.ImageContentType(fileHeader.Filename)
	objectKey, err := storage.UploadDetectionImage(ctx.Request.Context(), userID.String(), file, fileHeader.Filename, contentType, fileHeader.Size)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Failed to store image: %v", err),
		})
		return
	}

	imageURL, err := storage.PresignedImageURL(ctx.Request.Context(), objectKey, presignedURLExpiry)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Failed to generate image URL: %v", err),
		})
		return
	}

	record := models.DetectionHistory{
		UserID:     userID,
		RecipeType: recipeType,
		ImagePath:  objectKey,
		ImageURL:   imageURL,
	}
	if err := database.DB.Create(&record).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Failed to save detection record: %v", err),
		})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"message":    "Image uploaded successfully",
		"record_id":  record.ID,
		"image_path": objectKey,
		"image_url":  imageURL,
	})
}

// SaveDetectionRecord stores detection results without an image upload
// @Summary Save a detection record
// @Tags detection
// @Accept json
// @Produce json
// @Param record body DetectionRecordRequest true "Detection results"
// @Security BearerAuth
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Missing recipe type"
// @Router /detection/history [post]
func SaveDetectionRecord(ctx *gin.Context) {
	userID := ctx.MustGet("userID").(uuid.UUID)

	var req DetectionRecordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body",
			"message": err.Error(),
		})
		return
	}
	if req.RecipeType == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "recipe_type is required",
		})
		return
	}

	record := models.DetectionHistory{
		UserID:        userID,
		RecipeType:    req.RecipeType,
		Suggestion:    req.Suggestion,
		Instructions:  req.Instructions,
		Ingredients:   req.Ingredients,
		DetectedFoods: req.DetectedFoods,
		Analysis:      req.Analysis,
		ImagePath:     req.ImagePath,
	}
	if err := database.DB.Create(&record).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Failed to save detection record: %v", err),
		})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Detection history saved",
		"record":  record,
	})
}

// GetDetectionHistory lists the caller's detection runs, newest first
// @Summary Get my detection history
// @Tags detection
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /detection/history [get]
func GetDetectionHistory(ctx *gin.Context) {
	userID := ctx.MustGet("userID").(uuid.UUID)

	params := query.ParseListParams(ctx, "created_at")
	base := database.DB.Model(&models.DetectionHistory{}).Where("user_id = ?", userID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Failed to fetch detection history: %v", err),
		})
		return
	}

	var records []models.DetectionHistory
	listQuery := query.ApplySort(base, params, map[string]string{"created_at": "created_at"})
	if err := query.ApplyPagination(listQuery, params).Find(&records).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Failed to fetch detection history: %v", err),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":           true,
		"detection_history": records,
		"total_count":       total,
		"pagination":        query.BuildPagination(params, total),
	})
}

// DeleteDetectionRecord removes one of the caller's detection runs along
// with its stored image
// @Summary Delete a detection record
// @Tags detection
// @Produce json
// @Param recordId path string true "Record ID" format(uuid)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Record not found"
// @Router /detection/history/{recordId} [delete]
func DeleteDetectionRecord(ctx *gin.Context) {
	userID := ctx.MustGet("userID").(uuid.UUID)

	recordID, err := uuid.Parse(ctx.Param("recordId"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid record ID format",
		})
		return
	}

	db := database.DB

	var record models.DetectionHistory
	if err := db.Where("id = ? AND user_id = ?", recordID, userID).First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			ctx.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   "Detection record not found",
			})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Failed to delete detection record: %v", err),
		})
		return
	}

	if err := db.Delete(&record).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Failed to delete detection record: %v", err),
		})
		return
	}

	// Stored image cleanup is best effort
	if record.ImagePath != "" {
		if storage, err := services.GetStorageService(); err == nil {
			_ = storage.RemoveImage(ctx.Request.Context(), record.ImagePath)
		}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Detection record deleted successfully",
	})
}

// GetMemberDetectionHistory lets an organization admin review a member's
// detection runs
// @Summary Get a member's detection history
// @Tags detection
// @Produce json
// @Param id path string true "Enterprise ID" format(uuid)
// @Param userId path string true "Member user ID" format(uuid)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Not an organization admin"
// @Failure 404 {object} map[string]string "User not in organization"
// @Router /enterprise/{id}/user/{userId}/detection-history [get]
func GetMemberDetectionHistory(ctx *gin.Context) {
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

	var records []models.DetectionHistory
	if err := database.DB.Where("user_id = ?", targetUserID).
		Order("created_at DESC").
		Find(&records).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Failed to fetch detection history: %v", err),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":           true,
		"detection_history": records,
		"total_count":       len(records),
	})
}
