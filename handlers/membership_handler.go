package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"meallens-backend/services"
	"meallens-backend/shared/config"
	"meallens-backend/shared/database"
	"meallens-backend/shared/database/models"
	utils "meallens-backend/shared/utils/auth"
	"meallens-backend/shared/utils/cache"
	"meallens-backend/shared/utils/permission"
)

// OrganizationUserResponse is one row of the member list. The enterprise
// owner never appears here; ownership is not a membership.
type OrganizationUserResponse struct {
	ID                    uuid.UUID              `json:"id"`
	UserID                uuid.UUID              `json:"user_id"`
	FirstName             string                 `json:"first_name"`
	LastName              string                 `json:"last_name"`
	Email                 string                 `json:"email"`
	Role                  string                 `json:"role"`
	Status                string                 `json:"status"`
	JoinedAt              time.Time              `json:"joined_at"`
	AcceptedInvitation    map[string]interface{} `json:"accepted_invitation"`
	HasAcceptedInvitation bool                   `json:"has_accepted_invitation"`
}

// UpdateOrganizationUserRequest represents request body for membership updates
type UpdateOrganizationUserRequest struct {
	Role     *string         `json:"role"`
	Status   *string         `json:"status"`
	Notes    *string         `json:"notes"`
	Metadata *models.JSONMap `json:"metadata"`
}

// CreateOrganizationUserRequest represents request body for creating a member account
type CreateOrganizationUserRequest struct {
	EnterpriseID uuid.UUID `json:"enterprise_id" binding:"required"`
	FirstName    string    `json:"first_name" binding:"required"`
	LastName     string    `json:"last_name" binding:"required"`
	Email        string    `json:"email" binding:"required,email"`
	Password     string    `json:"password" binding:"required,min=8"`
	Role         string    `json:"role" binding:"required"`
}

// GetEnterpriseUsers lists an enterprise's members with invitation context
// @Summary Get enterprise members
// @Description List members with their accepted invitation, if any. The owner is not a member and is excluded.
// @Tags memberships
// @Produce json
// @Param id path string true "Enterprise ID" format(uuid)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Not an organization admin"
// @Failure 500 {object} map[string]string "Server error"
// @Router /enterprise/{id}/users [get]
func GetEnterpriseUsers(ctx *gin.Context) {
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
			"error":   fmt.Sprintf("Access denied: %s", reason),
		})
		return
	}

	db := database.DB

	var memberships []models.OrganizationUser
	if err := db.Preload("User").Where("organization_id = ?", enterpriseID).Find(&memberships).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to fetch users",
			"message": err.Error(),
		})
		return
	}

	// Link members back to the invitation they accepted
	var acceptedInvitations []models.Invitation
	if err := db.Where("organization_id = ? AND status IN ?", enterpriseID,
		[]string{models.InvitationStatusAccepted, models.InvitationStatusCompleted}).
		Find(&acceptedInvitations).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to fetch invitations",
			"message": err.Error(),
		})
		return
	}

	byUserID := map[uuid.UUID]*models.Invitation{}
	byEmail := map[string]*models.Invitation{}
	for i := range acceptedInvitations {
		inv := &acceptedInvitations[i]
		if inv.AcceptedBy != nil {
			byUserID[*inv.AcceptedBy] = inv
		}
		byEmail[inv.Email] = inv
	}

	users := make([]OrganizationUserResponse, 0, len(memberships))
	for _, membership := range memberships {
		row := OrganizationUserResponse{
			ID:        membership.ID,
			UserID:    membership.UserID,
			FirstName: membership.User.FirstName,
			LastName:  membership.User.LastName,
			Email:     membership.User.Email,
			Role:      membership.Role,
			Status:    membership.Status,
			JoinedAt:  membership.JoinedAt,
		}

		invitation := byUserID[membership.UserID]
		if invitation == nil {
			invitation = byEmail[membership.User.Email]
		}
		if invitation != nil {
			row.HasAcceptedInvitation = true
			row.AcceptedInvitation = map[string]interface{}{
				"id":          invitation.ID,
				"accepted_at": invitation.AcceptedAt,
				"invited_by":  invitation.InvitedBy,
			}
		}

		users = append(users, row)
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":     true,
		"users":       users,
		"total_count": len(users),
	})
}

// CreateOrganizationUser creates a full member account on behalf of an admin
// @Summary Create an organization member account
// @Description Create a user account, add it to the organization and send a welcome email.
// @Tags memberships
// @Accept json
// @Produce json
// @Param user body CreateOrganizationUserRequest true "New member details"
// @Security BearerAuth
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Validation failure or duplicate email"
// @Failure 403 {object} map[string]string "Not an organization admin"
// @Failure 404 {object} map[string]string "Organization not found"
// @Router /enterprise/create-user [post]
func CreateOrganizationUser(ctx *gin.Context) {
	adminID := ctx.MustGet("userID").(uuid.UUID)

	var req CreateOrganizationUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body",
			"message": err.Error(),
		})
		return
	}

	if isAdmin, reason := permission.CheckOrgAdmin(ctx, adminID, req.EnterpriseID); !isAdmin {
		ctx.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Access denied: %s", reason),
		})
		return
	}

	db := database.DB

	var enterprise models.Enterprise
	if err := db.Where("id = ?", req.EnterpriseID).First(&enterprise).Error; err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "Organization not found",
		})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var existing models.User
	if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success":    false,
			"error":      "User with this email already exists",
			"error_code": "USER_ALREADY_EXISTS",
		})
		return
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Could not hash password",
		})
		return
	}

	user := models.User{
		Email:         email,
		Password:      hashedPassword,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		DisplayName:   strings.TrimSpace(req.FirstName + " " + req.LastName),
		SignupType:    "individual",
		Status:        "ACTIVE",
		EmailVerified: true,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		membership := models.OrganizationUser{
			OrganizationID: req.EnterpriseID,
			UserID:         user.ID,
			Role:           req.Role,
			Status:         "active",
			JoinedAt:       time.Now().UTC(),
		}
		return tx.Create(&membership).Error
	})
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to create user account",
			"message": err.Error(),
		})
		return
	}

	// Welcome email is fire-and-forget
	loginLink := fmt.Sprintf("%s/login", config.GetConfig().FrontendURL)
	_ = services.GetMailDispatcher().Enqueue(
		services.NewWelcomeEmail(email, user.FullName(), enterprise.Name, loginLink))

	ctx.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "User created and added to organization successfully",
		"user": gin.H{
			"id":              user.ID,
			"email":           user.Email,
			"first_name":      user.FirstName,
			"last_name":       user.LastName,
			"role":            req.Role,
			"enterprise_id":   req.EnterpriseID,
			"enterprise_name": enterprise.Name,
		},
	})
}

// UpdateOrganizationUser updates a member's role or status
// @Summary Update organization member
// @Tags memberships
// @Accept json
// @Produce json
// @Param id path string true "Enterprise ID" format(uuid)
// @Param relationId path string true "Membership ID" format(uuid)
// @Param update body UpdateOrganizationUserRequest true "Fields to update"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Not an organization admin"
// @Failure 404 {object} map[string]string "Membership not found"
// @Router /enterprise/{id}/user/{relationId} [put]
func UpdateOrganizationUser(ctx *gin.Context) {
	userID := ctx.MustGet("userID").(uuid.UUID)

	enterpriseID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid enterprise ID format",
		})
		return
	}

	relationID, err := uuid.Parse(ctx.Param("relationId"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid membership ID format",
		})
		return
	}

	var req UpdateOrganizationUserRequest
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
			"error":   fmt.Sprintf("Access denied: %s", reason),
		})
		return
	}

	db := database.DB

	var membership models.OrganizationUser
	if err := db.Where("id = ? AND organization_id = ?", relationID, enterpriseID).First(&membership).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			ctx.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   "User not found in organization",
			})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to load membership",
			"message": err.Error(),
		})
		return
	}

	updates := map[string]interface{}{}
	if req.Role != nil {
		updates["role"] = *req.Role
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.Metadata != nil {
		updates["metadata"] = *req.Metadata
	}

	if len(updates) > 0 {
		if err := db.Model(&membership).Updates(updates).Error; err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "Failed to update user",
				"message": err.Error(),
			})
			return
		}

		// Role changes invalidate cached admin checks
		if cm := cache.GetCacheManager(); cm != nil {
			_ = cm.InvalidateOrgAdmin(membership.UserID, enterpriseID)
		}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User updated successfully",
	})
}

// RemoveOrganizationUser removes a member from one enterprise
// @Summary Remove organization member
// @Tags memberships
// @Produce json
// @Param id path string true "Enterprise ID" format(uuid)
// @Param relationId path string true "Membership ID" format(uuid)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Not an organization admin"
// @Router /enterprise/{id}/user/{relationId} [delete]
func RemoveOrganizationUser(ctx *gin.Context) {
	userID := ctx.MustGet("userID").(uuid.UUID)

	enterpriseID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid enterprise ID format",
		})
		return
	}

	relationID, err := uuid.Parse(ctx.Param("relationId"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid membership ID format",
		})
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

	var membership models.OrganizationUser
	if err := db.Where("id = ? AND organization_id = ?", relationID, enterpriseID).First(&membership).Error; err == nil {
		if cm := cache.GetCacheManager(); cm != nil {
			_ = cm.InvalidateOrgAdmin(membership.UserID, enterpriseID)
		}
	}

	if err := db.Where("id = ? AND organization_id = ?", relationID, enterpriseID).
		Delete(&models.OrganizationUser{}).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to remove user",
			"message": err.Error(),
		})
		return
	}

	notifyMemberRemoved(membership.UserID, enterpriseID)

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User removed successfully",
	})
}

func notifyMemberRemoved(memberID uuid.UUID, enterpriseID uuid.UUID) {
	services.GetWebSocketManager().NotifyUser(memberID.String(),
		services.EventMemberRemoved,
		"Organization membership ended",
		"You have been removed from an organization",
		map[string]interface{}{"enterprise_id": enterpriseID.String()})
}

// PurgeOrganizationUser deletes a member and every trace of their data
// @Summary Completely delete an organization member
// @Description Owner-only. Removes the member's settings, history, detections, meal plans, memberships, invitations, stored images and account, recording a deletion log.
// @Tags memberships
// @Produce json
// @Param relationId path string true "Membership ID" format(uuid)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Caller does not own the enterprise"
// @Failure 404 {object} map[string]string "Membership not found"
// @Router /enterprise/user/{relationId} [delete]
func PurgeOrganizationUser(ctx *gin.Context) {
	callerID := ctx.MustGet("userID").(uuid.UUID)

	relationID, err := uuid.Parse(ctx.Param("relationId"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid membership ID format",
		})
		return
	}

	db := database.DB

	var membership models.OrganizationUser
	if err := db.Preload("User").Where("id = ?", relationID).First(&membership).Error; err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "User not found in organization",
		})
		return
	}

	var enterprise models.Enterprise
	if err := db.Where("id = ?", membership.OrganizationID).First(&enterprise).Error; err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "Enterprise not found",
		})
		return
	}

	// Full deletion is reserved for the owner
	if enterprise.CreatedBy != callerID {
		ctx.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   "Access denied. You can only delete users from your own organization.",
		})
		return
	}

	targetID := membership.UserID
	targetEmail := membership.User.Email
	targetName := membership.User.FullName()

	deletionLog := []string{}
	appendResult := func(table string, tx *gorm.DB) {
		if tx.Error != nil {
			deletionLog = append(deletionLog, fmt.Sprintf("Error deleting %s: %v", table, tx.Error))
			return
		}
		deletionLog = append(deletionLog, fmt.Sprintf("Deleted %d %s records", tx.RowsAffected, table))
	}

	appendResult("user_settings_history", db.Where("user_id = ?", targetID).Delete(&models.UserSettingsHistory{}))
	appendResult("user_settings", db.Where("user_id = ?", targetID).Delete(&models.UserSettings{}))
	appendResult("detection_history", db.Where("user_id = ?", targetID).Delete(&models.DetectionHistory{}))
	appendResult("meal_plan_management", db.Where("user_id = ?", targetID).Delete(&models.MealPlan{}))
	appendResult("organization_users", db.Where("user_id = ?", targetID).Delete(&models.OrganizationUser{}))
	appendResult("invitations", db.Where("email = ?", targetEmail).Delete(&models.Invitation{}))

	// Stored detection images go too, best effort
	if storage, err := services.GetStorageService(); err == nil {
		if err := storage.RemoveUserImages(ctx.Request.Context(), targetID.String()); err != nil {
			deletionLog = append(deletionLog, fmt.Sprintf("Error deleting stored images: %v", err))
		} else {
			deletionLog = append(deletionLog, "Deleted stored detection images")
		}
	}

	if err := db.Where("id = ?", targetID).Delete(&models.User{}).Error; err != nil {
		deletionLog = append(deletionLog, fmt.Sprintf("Error deleting user account: %v", err))
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success":      false,
			"error":        "User data deleted but the account could not be removed",
			"deletion_log": deletionLog,
		})
		return
	}
	deletionLog = append(deletionLog, "Deleted user account")

	logDetails := models.JSONMap{"steps": deletionLog}
	auditRow := models.DeletionLog{
		UserID:         targetID,
		UserEmail:      targetEmail,
		OrganizationID: membership.OrganizationID,
		DeletedBy:      callerID,
		Details:        logDetails,
	}
	if err := db.Create(&auditRow).Error; err != nil {
		deletionLog = append(deletionLog, fmt.Sprintf("Error writing deletion log: %v", err))
	}

	if cm := cache.GetCacheManager(); cm != nil {
		_ = cm.InvalidateOrgMembers(membership.OrganizationID)
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("User %s (%s) has been completely deleted from the system. They can now be re-invited or register again.", targetName, targetEmail),
		"deleted_user": gin.H{
			"id":      relationID,
			"user_id": targetID,
			"name":    targetName,
			"email":   targetEmail,
		},
		"deletion_log": deletionLog,
	})
}
