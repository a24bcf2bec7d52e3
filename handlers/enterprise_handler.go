package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"meallens-backend/services"
	"meallens-backend/shared/config"
	"meallens-backend/shared/database"
	"meallens-backend/shared/database/models"
	"meallens-backend/shared/utils/permission"
)

// RegisterEnterpriseRequest represents request body for creating an enterprise
type RegisterEnterpriseRequest struct {
	Name             string `json:"name" binding:"required"`
	Email            string `json:"email" binding:"required,email"`
	OrganizationType string `json:"organization_type" binding:"required"`
	Phone            string `json:"phone"`
	Address          string `json:"address"`
	Website          string `json:"website"`
	Description      string `json:"description"`
}

// UpdateEnterpriseRequest represents request body for updating an enterprise
type UpdateEnterpriseRequest struct {
	Name             *string `json:"name"`
	Email            *string `json:"email"`
	Phone            *string `json:"phone"`
	Address          *string `json:"address"`
	OrganizationType *string `json:"organization_type"`
	Website          *string `json:"website"`
	Description      *string `json:"description"`
	MaxUsers         *int    `json:"max_users"`
}

// TimeRestrictionRequest represents request body for time restriction updates
type TimeRestrictionRequest struct {
	Enabled    bool     `json:"enabled"`
	StartTime  string   `json:"start_time"`
	EndTime    string   `json:"end_time"`
	Timezone   string   `json:"timezone"`
	DaysOfWeek []string `json:"days_of_week"`
}

// EnterpriseStats summarizes one enterprise for its owner dashboard
type EnterpriseStats struct {
	TotalMembers       int64            `json:"total_members"`
	MaxUsers           int              `json:"max_users"`
	MembersByRole      map[string]int64 `json:"members_by_role"`
	PendingInvitations int64            `json:"pending_invitations"`
	MealPlansPending   int64            `json:"meal_plans_pending_approval"`
}

// RegisterEnterprise creates a new enterprise owned by the caller
// @Summary Register a new enterprise
// @Description Create an organization account. Organization members cannot create organizations.
// @Tags enterprises
// @Accept json
// @Produce json
// @Param enterprise body RegisterEnterpriseRequest true "Enterprise information"
// @Security BearerAuth
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Invalid request data or duplicate email"
// @Failure 403 {object} map[string]string "User cannot create organizations"
// @Failure 500 {object} map[string]string "Server error"
// @Router /enterprise/register [post]
func RegisterEnterprise(ctx *gin.Context) {
	userID := ctx.MustGet("userID").(uuid.UUID)

	var req RegisterEnterpriseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body",
			"message": err.Error(),
		})
		return
	}

	canCreate, reason, err := permission.CanCreateOrganization(userID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to verify permissions. Please try again later.",
		})
		return
	}
	if !canCreate {
		ctx.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   reason,
		})
		return
	}

	db := database.DB
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var existing models.Enterprise
	if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "An organization with this email already exists",
		})
		return
	}

	enterprise := models.Enterprise{
		Name:             req.Name,
		Email:            email,
		Phone:            req.Phone,
		Address:          req.Address,
		OrganizationType: req.OrganizationType,
		Website:          req.Website,
		Description:      req.Description,
		MaxUsers:         config.GetConfig().GetDefaultMaxUsers(),
		CreatedBy:        userID,
	}

	if err := db.Create(&enterprise).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to create organization. Please try again later.",
			"message": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"message":    "Enterprise registered successfully",
		"enterprise": enterprise,
	})
}

// CanCreateOrganization reports whether the caller may create enterprises
// @Summary Check organization creation permission
// @Tags enterprises
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]string "Server error"
// @Router /enterprise/can-create [get]
func CanCreateOrganization(ctx *gin.Context) {
	userID := ctx.MustGet("userID").(uuid.UUID)

	canCreate, reason, err := permission.CanCreateOrganization(userID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to check permissions",
			"message": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":    true,
		"can_create": canCreate,
		"reason":     reason,
	})
}

// GetMyEnterprises lists enterprises owned by the caller
// @Summary Get my enterprises
// @Tags enterprises
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]string "Server error"
// @Router /enterprise/my-enterprises [get]
func GetMyEnterprises(ctx *gin.Context) {
	userID := ctx.MustGet("userID").(uuid.UUID)

	var enterprises []models.Enterprise
	err := database.WithRetry(ctx.Request.Context(), "load owned enterprises", func() error {
		return database.DB.Where("created_by = ?", userID).Find(&enterprises).Error
	})
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to fetch enterprises",
			"message": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":     true,
		"enterprises": enterprises,
	})
}

// GetEnterprise returns one owned enterprise with dashboard statistics
// @Summary Get enterprise details
// @Tags enterprises
// @Produce json
// @Param id path string true "Enterprise ID" format(uuid)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Enterprise not found or access denied"
// @Failure 500 {object} map[string]string "Server error"
// @Router /enterprise/{id} [get]
func GetEnterprise(ctx *gin.Context) {
	userID := ctx.MustGet("userID").(uuid.UUID)

	enterpriseID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid enterprise ID format",
		})
		return
	}

	db := database.DB

	var enterprise models.Enterprise
	if err := db.Where("id = ? AND created_by = ?", enterpriseID, userID).First(&enterprise).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			ctx.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   "Enterprise not found or access denied",
			})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to fetch enterprise",
			"message": err.Error(),
		})
		return
	}

	stats, err := buildEnterpriseStats(db, &enterprise)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to compute enterprise statistics",
			"message": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":    true,
		"enterprise": enterprise,
		"stats":      stats,
	})
}

func buildEnterpriseStats(db *gorm.DB, enterprise *models.Enterprise) (*EnterpriseStats, error) {
	stats := &EnterpriseStats{
		MaxUsers:      enterprise.MaxUsers,
		MembersByRole: map[string]int64{},
	}

	if err := db.Model(&models.OrganizationUser{}).
		Where("organization_id = ?", enterprise.ID).
		Count(&stats.TotalMembers).Error; err != nil {
		return nil, err
	}

	type roleCount struct {
		Role  string
		Count int64
	}
	var roleCounts []roleCount
	if err := db.Model(&models.OrganizationUser{}).
		Select("role, count(*) as count").
		Where("organization_id = ?", enterprise.ID).
		Group("role").
		Scan(&roleCounts).Error; err != nil {
		return nil, err
	}
	for _, rc := range roleCounts {
		stats.MembersByRole[rc.Role] = rc.Count
	}

	if err := db.Model(&models.Invitation{}).
		Where("organization_id = ? AND status = ?", enterprise.ID, models.InvitationStatusPending).
		Count(&stats.PendingInvitations).Error; err != nil {
		return nil, err
	}

	memberIDs := db.Model(&models.OrganizationUser{}).
		Select("user_id").
		Where("organization_id = ?", enterprise.ID)
	if err := db.Model(&models.MealPlan{}).
		Where("user_id IN (?) AND is_approved = ?", memberIDs, false).
		Count(&stats.MealPlansPending).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

// GetEnterpriseStatistics returns a detailed statistics breakdown
// @Summary Get enterprise statistics
// @Description Member and invitation counts grouped by role and status. Admins and the owner may call this.
// @Tags enterprises
// @Produce json
// @Param id path string true "Enterprise ID" format(uuid)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Not an organization admin"
// @Failure 404 {object} map[string]string "Enterprise not found"
// @Router /enterprise/{id}/statistics [get]
func GetEnterpriseStatistics(ctx *gin.Context) {
	userID := ctx.MustGet("userID").(uuid.UUID)

	enterpriseID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid enterprise ID format",
		})
		return
	}

	if isAdmin, reason := permission.CheckOrgAdmin(ctx, userID, enterpriseID); !isAdmin {
		status := http.StatusForbidden
		if reason == permission.ReasonOrgNotFound {
			status = http.StatusNotFound
		}
		ctx.JSON(status, gin.H{
			"success": false,
			"error":   "Access denied: " + reason,
		})
		return
	}

	db := database.DB

	var enterprise models.Enterprise
	if err := db.Where("id = ?", enterpriseID).First(&enterprise).Error; err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "Enterprise not found",
		})
		return
	}

	stats, err := buildEnterpriseStats(db, &enterprise)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to compute enterprise statistics",
			"message": err.Error(),
		})
		return
	}

	type statusCount struct {
		Status string
		Count  int64
	}

	membersByStatus := map[string]int64{}
	var memberStatuses []statusCount
	if err := db.Model(&models.OrganizationUser{}).
		Select("status, count(*) as count").
		Where("organization_id = ?", enterprise.ID).
		Group("status").
		Scan(&memberStatuses).Error; err == nil {
		for _, sc := range memberStatuses {
			membersByStatus[sc.Status] = sc.Count
		}
	}

	invitationsByStatus := map[string]int64{}
	var invitationStatuses []statusCount
	if err := db.Model(&models.Invitation{}).
		Select("status, count(*) as count").
		Where("organization_id = ?", enterprise.ID).
		Group("status").
		Scan(&invitationStatuses).Error; err == nil {
		for _, sc := range invitationStatuses {
			invitationsByStatus[sc.Status] = sc.Count
		}
	}

	// Members with an open websocket right now
	onlineMembers := 0
	var memberUserIDs []uuid.UUID
	if err := db.Model(&models.OrganizationUser{}).
		Where("organization_id = ?", enterprise.ID).
		Pluck("user_id", &memberUserIDs).Error; err == nil {
		connected := map[string]bool{}
		for _, id := range services.GetWebSocketManager().GetConnectedUsers() {
			connected[id] = true
		}
		for _, id := range memberUserIDs {
			if connected[id.String()] {
				onlineMembers++
			}
		}
	}

	capacityUsed := 0.0
	if enterprise.MaxUsers > 0 {
		capacityUsed = float64(stats.TotalMembers) / float64(enterprise.MaxUsers) * 100
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"statistics": gin.H{
			"total_members":               stats.TotalMembers,
			"max_users":                   stats.MaxUsers,
			"capacity_used_percent":       capacityUsed,
			"members_by_role":             stats.MembersByRole,
			"members_by_status":           membersByStatus,
			"online_members":              onlineMembers,
			"pending_invitations":         stats.PendingInvitations,
			"invitations_by_status":       invitationsByStatus,
			"meal_plans_pending_approval": stats.MealPlansPending,
			"owner_id":                    enterprise.CreatedBy,
		},
	})
}

// UpdateEnterprise updates an owned enterprise
// @Summary Update enterprise
// @Tags enterprises
// @Accept json
// @Produce json
// @Param id path string true "Enterprise ID" format(uuid)
// @Param enterprise body UpdateEnterpriseRequest true "Fields to update"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Enterprise not found or access denied"
// @Failure 500 {object} map[string]string "Server error"
// @Router /enterprise/{id} [put]
func UpdateEnterprise(ctx *gin.Context) {
	userID := ctx.MustGet("userID").(uuid.UUID)

	enterpriseID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid enterprise ID format",
		})
		return
	}

	var req UpdateEnterpriseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body",
			"message": err.Error(),
		})
		return
	}

	db := database.DB

	var enterprise models.Enterprise
	if err := db.Where("id = ? AND created_by = ?", enterpriseID, userID).First(&enterprise).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			ctx.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   "Enterprise not found or access denied",
			})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to fetch enterprise",
			"message": err.Error(),
		})
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Email != nil {
		updates["email"] = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.OrganizationType != nil {
		updates["organization_type"] = *req.OrganizationType
	}
	if req.Website != nil {
		updates["website"] = *req.Website
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.MaxUsers != nil && *req.MaxUsers > 0 {
		updates["max_users"] = *req.MaxUsers
	}

	if len(updates) > 0 {
		if err := db.Model(&enterprise).Updates(updates).Error; err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "Failed to update enterprise",
				"message": err.Error(),
			})
			return
		}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Enterprise updated successfully",
		"enterprise": enterprise,
	})
}

// GetTimeRestrictions returns the usage window configured for an enterprise
// @Summary Get time restrictions
// @Tags enterprises
// @Produce json
// @Param id path string true "Enterprise ID" format(uuid)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Not an organization admin"
// @Router /enterprise/{id}/time-restrictions [get]
func GetTimeRestrictions(ctx *gin.Context) {
	userID := ctx.MustGet("userID").(uuid.UUID)

	enterpriseID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid enterprise ID format",
		})
		return
	}

	if isAdmin, reason := permission.CheckOrgAdmin(ctx, userID, enterpriseID); !isAdmin {
		ctx.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   reason,
		})
		return
	}

	var restriction models.OrganizationTimeRestriction
	err = database.DB.Where("organization_id = ?", enterpriseID).First(&restriction).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			ctx.JSON(http.StatusOK, gin.H{
				"success":     true,
				"restriction": nil,
			})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to fetch time restrictions",
			"message": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":     true,
		"restriction": restriction,
	})
}

// UpdateTimeRestrictions creates or updates the usage window for an enterprise
// @Summary Update time restrictions
// @Tags enterprises
// @Accept json
// @Produce json
// @Param id path string true "Enterprise ID" format(uuid)
// @Param restriction body TimeRestrictionRequest true "Restriction settings"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Not an organization admin"
// @Router /enterprise/{id}/time-restrictions [put]
func UpdateTimeRestrictions(ctx *gin.Context) {
	userID := ctx.MustGet("userID").(uuid.UUID)

	enterpriseID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid enterprise ID format",
		})
		return
	}

	var req TimeRestrictionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body",
			"message": err.Error(),
		})
		return
	}

	if isAdmin, reason := permission.CheckOrgAdmin(ctx, userID, enterpriseID); !isAdmin {
		ctx.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   reason,
		})
		return
	}

	db := database.DB
	timezone := req.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	var restriction models.OrganizationTimeRestriction
	err = db.Where("organization_id = ?", enterpriseID).First(&restriction).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to fetch time restrictions",
			"message": err.Error(),
		})
		return
	}

	if err == gorm.ErrRecordNotFound {
		restriction = models.OrganizationTimeRestriction{
			OrganizationID: enterpriseID,
			Enabled:        req.Enabled,
			StartTime:      req.StartTime,
			EndTime:        req.EndTime,
			Timezone:       timezone,
			DaysOfWeek:     req.DaysOfWeek,
		}
		if err := db.Create(&restriction).Error; err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "Failed to save time restrictions",
				"message": err.Error(),
			})
			return
		}
	} else {
		restriction.Enabled = req.Enabled
		restriction.StartTime = req.StartTime
		restriction.EndTime = req.EndTime
		restriction.Timezone = timezone
		restriction.DaysOfWeek = req.DaysOfWeek
		if err := db.Save(&restriction).Error; err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "Failed to save time restrictions",
				"message": err.Error(),
			})
			return
		}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "Time restrictions updated successfully",
		"restriction": restriction,
	})
}
