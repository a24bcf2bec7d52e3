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
	"meallens-backend/shared/utils/permission"
)

// MealPlanRequest represents request body for creating or updating a plan
type MealPlanRequest struct {
	Name             string         `json:"name"`
	StartDate        string         `json:"start_date"`
	EndDate          string         `json:"end_date"`
	MealPlan         models.JSONMap `json:"meal_plan"`
	HasSickness      bool           `json:"has_sickness"`
	SicknessType     string         `json:"sickness_type"`
	HealthAssessment models.JSONMap `json:"health_assessment"`
	UserInfo         models.JSONMap `json:"user_info"`
}

// MealPlanUpdateRequest carries optional fields; only present ones change
type MealPlanUpdateRequest struct {
	Name         *string         `json:"name"`
	StartDate    *string         `json:"start_date"`
	EndDate      *string         `json:"end_date"`
	MealPlan     *models.JSONMap `json:"meal_plan"`
	HasSickness  *bool           `json:"has_sickness"`
	SicknessType *string         `json:"sickness_type"`
}

func mealPlanResponse(plan *models.MealPlan) gin.H {
	return gin.H{
		"id":                plan.ID,
		"name":              plan.Name,
		"start_date":        plan.StartDate,
		"end_date":          plan.EndDate,
		"meal_plan":         plan.MealPlanData,
		"has_sickness":      plan.HasSickness,
		"sickness_type":     plan.SicknessType,
		"health_assessment": plan.HealthAssessment,
		"user_info":         plan.UserInfo,
		"is_approved":       plan.IsApproved,
		"created_at":        plan.CreatedAt,
		"updated_at":        plan.UpdatedAt,
	}
}

// requireOrgMember verifies the target user belongs to the enterprise.
// Writes the response itself when the check fails.
func requireOrgMember(ctx *gin.Context, enterpriseID, targetUserID uuid.UUID, status int) bool {
	var count int64
	if err := database.DB.Model(&models.OrganizationUser{}).
		Where("organization_id = ? AND user_id = ?", enterpriseID, targetUserID).
		Count(&count).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to verify membership",
			"message": err.Error(),
		})
		return false
	}
	if count == 0 {
		ctx.JSON(status, gin.H{
			"success": false,
			"error":   "User is not a member of this organization",
		})
		return false
	}
	return true
}

// GetUserMealPlans lists every plan of one member, approved or not
// @Summary List a member's meal plans
// @Tags meal-plans
// @Produce json
// @Param id path string true "Enterprise ID" format(uuid)
// @Param userId path string true "Member user ID" format(uuid)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Not an organization admin"
// @Failure 404 {object} map[string]string "User not in organization"
// @Router /enterprise/{id}/user/{userId}/meal-plans [get]
func GetUserMealPlans(ctx *gin.Context) {
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

	var plans []models.MealPlan
	if err := database.DB.Where("user_id = ?", targetUserID).
		Order("updated_at DESC").
		Find(&plans).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Failed to fetch meal plans: %v", err),
		})
		return
	}

	responses := make([]gin.H, 0, len(plans))
	for i := range plans {
		row := mealPlanResponse(&plans[i])
		if creator, ok := plans[i].UserInfo["creator_email"]; ok {
			row["creator_email"] = creator
		}
		if createdByUser, ok := plans[i].UserInfo["is_created_by_user"]; ok {
			row["is_created_by_user"] = createdByUser
		} else {
			row["is_created_by_user"] = true
		}
		responses = append(responses, row)
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":     true,
		"meal_plans":  responses,
		"total_count": len(responses),
	})
}

// CreateUserMealPlan creates a plan on behalf of a member. The plan stays
// hidden from the member until approved.
// @Summary Create a meal plan for a member
// @Tags meal-plans
// @Accept json
// @Produce json
// @Param id path string true "Enterprise ID" format(uuid)
// @Param userId path string true "Member user ID" format(uuid)
// @Param plan body MealPlanRequest true "Meal plan"
// @Security BearerAuth
// @Success 201 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Not an organization admin"
// @Failure 404 {object} map[string]string "User not in organization"
// @Router /enterprise/{id}/user/{userId}/meal-plans [post]
func CreateUserMealPlan(ctx *gin.Context) {
	adminID := ctx.MustGet("userID").(uuid.UUID)
	adminEmail, _ := ctx.Get("userEmail")

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

	var req MealPlanRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body",
			"message": err.Error(),
		})
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

	userInfo := req.UserInfo
	if userInfo == nil {
		userInfo = models.JSONMap{}
	}
	userInfo["creator_email"] = adminEmail
	userInfo["is_created_by_user"] = false

	plan := models.MealPlan{
		UserID:           targetUserID,
		Name:             req.Name,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		MealPlanData:     req.MealPlan,
		HasSickness:      req.HasSickness,
		SicknessType:     req.SicknessType,
		HealthAssessment: req.HealthAssessment,
		UserInfo:         userInfo,
		IsApproved:       false,
	}

	if err := database.DB.Create(&plan).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Failed to create meal plan: %v", err),
		})
		return
	}

	services.GetWebSocketManager().NotifyUser(targetUserID.String(),
		services.EventMealPlanCreated,
		"New meal plan",
		"A meal plan has been prepared for you and is awaiting approval",
		map[string]interface{}{"plan_id": plan.ID.String()})

	ctx.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"message":   "Meal plan created. Click Approve to send it to the user.",
		"meal_plan": mealPlanResponse(&plan),
	})
}

// ApproveMealPlan makes a pending plan visible to its user
// @Summary Approve a meal plan
// @Tags meal-plans
// @Produce json
// @Param id path string true "Enterprise ID" format(uuid)
// @Param planId path string true "Meal plan ID" format(uuid)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Not an organization admin or user not in organization"
// @Failure 404 {object} map[string]string "Meal plan not found"
// @Router /enterprise/{id}/meal-plan/{planId}/approve [post]
func ApproveMealPlan(ctx *gin.Context) {
	adminID := ctx.MustGet("userID").(uuid.UUID)

	enterpriseID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid enterprise ID format"})
		return
	}
	planID, err := uuid.Parse(ctx.Param("planId"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid meal plan ID format"})
		return
	}

	if isAdmin, reason := permission.CheckOrgAdmin(ctx, adminID, enterpriseID); !isAdmin {
		ctx.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Access denied: %s", reason),
		})
		return
	}

	db := database.DB

	var plan models.MealPlan
	if err := db.Where("id = ?", planID).First(&plan).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			ctx.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Meal plan not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Failed to approve meal plan: %v", err),
		})
		return
	}

	if !requireOrgMember(ctx, enterpriseID, plan.UserID, http.StatusForbidden) {
		return
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"is_approved": true,
		"approved_by": adminID,
		"approved_at": now,
		"updated_at":  now,
	}
	if err := db.Model(&plan).Updates(updates).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Failed to approve meal plan: %v", err),
		})
		return
	}

	services.GetWebSocketManager().NotifyUser(plan.UserID.String(),
		services.EventMealPlanApproved,
		"Meal plan approved",
		"Your meal plan is ready",
		map[string]interface{}{"plan_id": plan.ID.String()})

	ctx.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Meal plan approved! User can now see this plan.",
		"meal_plan": mealPlanResponse(&plan),
	})
}

// RejectMealPlan deletes a plan before the user ever sees it
// @Summary Reject a meal plan
// @Tags meal-plans
// @Produce json
// @Param id path string true "Enterprise ID" format(uuid)
// @Param planId path string true "Meal plan ID" format(uuid)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Not an organization admin or user not in organization"
// @Failure 404 {object} map[string]string "Meal plan not found"
// @Router /enterprise/{id}/meal-plan/{planId}/reject [post]
func RejectMealPlan(ctx *gin.Context) {
	adminID := ctx.MustGet("userID").(uuid.UUID)

	enterpriseID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid enterprise ID format"})
		return
	}
	planID, err := uuid.Parse(ctx.Param("planId"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid meal plan ID format"})
		return
	}

	if isAdmin, reason := permission.CheckOrgAdmin(ctx, adminID, enterpriseID); !isAdmin {
		ctx.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Access denied: %s", reason),
		})
		return
	}

	db := database.DB

	var plan models.MealPlan
	if err := db.Where("id = ?", planID).First(&plan).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			ctx.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Meal plan not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Failed to reject meal plan: %v", err),
		})
		return
	}

	if !requireOrgMember(ctx, enterpriseID, plan.UserID, http.StatusForbidden) {
		return
	}

	if err := db.Delete(&plan).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Failed to reject meal plan: %v", err),
		})
		return
	}

	services.GetWebSocketManager().NotifyUser(plan.UserID.String(),
		services.EventMealPlanRejected,
		"Meal plan withdrawn",
		"A pending meal plan was withdrawn",
		map[string]interface{}{"plan_id": plan.ID.String()})

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Meal plan rejected and deleted. User will not see this plan.",
	})
}

// UpdateUserMealPlan updates provided fields on a member's plan
// @Summary Update a member's meal plan
// @Tags meal-plans
// @Accept json
// @Produce json
// @Param id path string true "Enterprise ID" format(uuid)
// @Param planId path string true "Meal plan ID" format(uuid)
// @Param plan body MealPlanUpdateRequest true "Fields to update"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Not an organization admin or user not in organization"
// @Failure 404 {object} map[string]string "Meal plan not found"
// @Router /enterprise/{id}/meal-plan/{planId} [put]
func UpdateUserMealPlan(ctx *gin.Context) {
	adminID := ctx.MustGet("userID").(uuid.UUID)

	enterpriseID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid enterprise ID format"})
		return
	}
	planID, err := uuid.Parse(ctx.Param("planId"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid meal plan ID format"})
		return
	}

	var req MealPlanUpdateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body",
			"message": err.Error(),
		})
		return
	}

	if isAdmin, reason := permission.CheckOrgAdmin(ctx, adminID, enterpriseID); !isAdmin {
		ctx.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Access denied: %s", reason),
		})
		return
	}

	db := database.DB

	var plan models.MealPlan
	if err := db.Where("id = ?", planID).First(&plan).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			ctx.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Meal plan not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Failed to update meal plan: %v", err),
		})
		return
	}

	if !requireOrgMember(ctx, enterpriseID, plan.UserID, http.StatusForbidden) {
		return
	}

	updates := map[string]interface{}{"updated_at": time.Now().UTC()}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.StartDate != nil {
		updates["start_date"] = *req.StartDate
	}
	if req.EndDate != nil {
		updates["end_date"] = *req.EndDate
	}
	if req.MealPlan != nil {
		updates["meal_plan"] = *req.MealPlan
	}
	if req.HasSickness != nil {
		updates["has_sickness"] = *req.HasSickness
	}
	if req.SicknessType != nil {
		updates["sickness_type"] = *req.SicknessType
	}

	if err := db.Model(&plan).Updates(updates).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Failed to update meal plan: %v", err),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Meal plan updated successfully",
		"meal_plan": mealPlanResponse(&plan),
	})
}

// DeleteUserMealPlan deletes a member's plan
// @Summary Delete a member's meal plan
// @Tags meal-plans
// @Produce json
// @Param id path string true "Enterprise ID" format(uuid)
// @Param planId path string true "Meal plan ID" format(uuid)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Not an organization admin or user not in organization"
// @Failure 404 {object} map[string]string "Meal plan not found"
// @Router /enterprise/{id}/meal-plan/{planId} [delete]
func DeleteUserMealPlan(ctx *gin.Context) {
	adminID := ctx.MustGet("userID").(uuid.UUID)

	enterpriseID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid enterprise ID format"})
		return
	}
	planID, err := uuid.Parse(ctx.Param("planId"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid meal plan ID format"})
		return
	}

	if isAdmin, reason := permission.CheckOrgAdmin(ctx, adminID, enterpriseID); !isAdmin {
		ctx.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Access denied: %s", reason),
		})
		return
	}

	db := database.DB

	var plan models.MealPlan
	if err := db.Where("id = ?", planID).First(&plan).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			ctx.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Meal plan not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Failed to delete meal plan: %v", err),
		})
		return
	}

	if !requireOrgMember(ctx, enterpriseID, plan.UserID, http.StatusForbidden) {
		return
	}

	if err := db.Delete(&plan).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Failed to delete meal plan: %v", err),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Meal plan deleted successfully",
	})
}

// GetMyMealPlans lists the caller's approved plans, newest first
// @Summary List my meal plans
// @Tags meal-plans
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /meal-plans [get]
func GetMyMealPlans(ctx *gin.Context) {
	userID := ctx.MustGet("userID").(uuid.UUID)

	var plans []models.MealPlan
	if err := database.DB.Where("user_id = ? AND is_approved = ?", userID, true).
		Order("updated_at DESC").
		Find(&plans).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Failed to fetch meal plans: %v", err),
		})
		return
	}

	responses := make([]gin.H, 0, len(plans))
	for i := range plans {
		responses = append(responses, mealPlanResponse(&plans[i]))
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":     true,
		"meal_plans":  responses,
		"total_count": len(responses),
	})
}

// CreateMyMealPlan creates a plan for the caller, approved immediately
// @Summary Create my meal plan
// @Tags meal-plans
// @Accept json
// @Produce json
// @Param plan body MealPlanRequest true "Meal plan"
// @Security BearerAuth
// @Success 201 {object} map[string]interface{}
// @Router /meal-plans [post]
func CreateMyMealPlan(ctx *gin.Context) {
	userID := ctx.MustGet("userID").(uuid.UUID)
	userEmail, _ := ctx.Get("userEmail")

	var req MealPlanRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body",
			"message": err.Error(),
		})
		return
	}

	userInfo := req.UserInfo
	if userInfo == nil {
		userInfo = models.JSONMap{}
	}
	userInfo["creator_email"] = userEmail
	userInfo["is_created_by_user"] = true

	now := time.Now().UTC()
	plan := models.MealPlan{
		UserID:           userID,
		Name:             req.Name,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		MealPlanData:     req.MealPlan,
		HasSickness:      req.HasSickness,
		SicknessType:     req.SicknessType,
		HealthAssessment: req.HealthAssessment,
		UserInfo:         userInfo,
		IsApproved:       true,
		ApprovedBy:       &userID,
		ApprovedAt:       &now,
	}

	if err := database.DB.Create(&plan).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Failed to create meal plan: %v", err),
		})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"message":   "Meal plan created successfully",
		"meal_plan": mealPlanResponse(&plan),
	})
}
