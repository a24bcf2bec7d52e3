package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"meallens-backend/middleware"
	"meallens-backend/services"
	"meallens-backend/shared/config"
	"meallens-backend/shared/database"
	"meallens-backend/shared/database/models"
	utils "meallens-backend/shared/utils/auth"
	"meallens-backend/shared/utils/cache"
	"meallens-backend/shared/utils/permission"
	"meallens-backend/shared/utils/query"
)

// InviteUserRequest represents request body for inviting a user
type InviteUserRequest struct {
	Email   string `json:"email" binding:"required"`
	Role    string `json:"role"`
	Message string `json:"message"`
}

// AcceptInvitationRequest represents request body for accepting an invitation
type AcceptInvitationRequest struct {
	Token string `json:"token" binding:"required"`
}

// CompleteInvitationRequest represents request body for completing an invitation
type CompleteInvitationRequest struct {
	InvitationID uuid.UUID `json:"invitation_id" binding:"required"`
}

// InviteUser creates an invitation and emails the recipient
// @Summary Invite a user to an enterprise
// @Description Create a pending invitation. The caller waits a bounded time for the email result; the invitation exists either way.
// @Tags invitations
// @Accept json
// @Produce json
// @Param id path string true "Enterprise ID" format(uuid)
// @Param invitation body InviteUserRequest true "Invitation details"
// @Security BearerAuth
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Validation failure, user limit, or duplicate"
// @Failure 403 {object} map[string]string "Not an organization admin"
// @Failure 404 {object} map[string]string "Organization not found"
// @Failure 500 {object} map[string]string "Server error"
// @Router /enterprise/{id}/invite [post]
func InviteUser(ctx *gin.Context) {
	userID := ctx.MustGet("userID").(uuid.UUID)

	enterpriseID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success":    false,
			"error":      "No organization selected. Please select an organization first.",
			"error_code": "INVALID_ENTERPRISE_ID",
		})
		return
	}

	var req InviteUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success":    false,
			"error":      "Email address is required",
			"error_code": "MISSING_EMAIL",
		})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := utils.ValidateEmail(email); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success":    false,
			"error":      err.Error(),
			"error_code": "MISSING_EMAIL",
		})
		return
	}

	role := utils.NormalizeInvitationRole(req.Role)
	if role == "" {
		role = "patient"
	}
	roleValid := false
	for _, allowed := range models.AllowedInvitationRoles {
		if role == allowed {
			roleValid = true
			break
		}
	}
	if !roleValid {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Invalid role. Must be one of: %s", strings.Join(models.AllowedInvitationRoles, ", ")),
		})
		return
	}

	db := database.DB

	var enterprise models.Enterprise
	if err := db.Where("id = ?", enterpriseID).First(&enterprise).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			ctx.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   "Organization not found",
			})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to load organization",
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

	// Enforce the membership cap before inviting
	var memberCount int64
	if err := db.Model(&models.OrganizationUser{}).Where("organization_id = ?", enterpriseID).Count(&memberCount).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to check user limit",
			"message": err.Error(),
		})
		return
	}
	if memberCount >= int64(enterprise.MaxUsers) {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Maximum user limit (%d) reached", enterprise.MaxUsers),
		})
		return
	}

	// Users who already hold an account cannot be invited
	var existingUser models.User
	if err := db.Where("email = ?", email).First(&existingUser).Error; err == nil {
		var existingMember models.OrganizationUser
		if err := db.Where("organization_id = ? AND user_id = ?", enterpriseID, existingUser.ID).First(&existingMember).Error; err == nil {
			ctx.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "User is already a member of this organization",
			})
			return
		}

		ctx.JSON(http.StatusBadRequest, gin.H{
			"success":    false,
			"error":      "This user already has an account with MealLens AI. They cannot be invited.",
			"error_code": "USER_ALREADY_EXISTS",
		})
		return
	}

	var existingInvitation models.Invitation
	if err := db.Where("organization_id = ? AND email = ? AND status = ?",
		enterpriseID, email, models.InvitationStatusPending).First(&existingInvitation).Error; err == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "User already has a pending invitation",
		})
		return
	}

	token, err := utils.GenerateInvitationToken()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to create invitation",
		})
		return
	}

	invitation := models.Invitation{
		OrganizationID: enterpriseID,
		Email:          email,
		Role:           role,
		Token:          token,
		Message:        strings.TrimSpace(req.Message),
		Status:         models.InvitationStatusPending,
		InvitedBy:      userID,
		ExpiresAt:      time.Now().UTC().Add(config.GetConfig().GetInvitationExpireDuration()),
	}

	if err := db.Create(&invitation).Error; err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate") {
			ctx.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "An invitation for this email already exists",
			})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to create invitation",
			"message": err.Error(),
		})
		return
	}

	invitationLink := services.BuildInviteLink(token)

	// Queue the email and wait a bounded time for the result. A timeout or
	// send failure does not undo the invitation.
	emailSent := false
	var emailError string

	dispatchErr := services.GetMailDispatcher().EnqueueWait(
		services.NewInvitationEmail(email, enterprise.Name, role, invitationLink, invitation.Message, invitation.ExpiresAt),
		config.GetConfig().GetEmailSendWait())

	switch dispatchErr {
	case nil:
		emailSent = true
	case services.ErrDispatchTimeout:
		emailError = "Email sending timed out. The invitation was created - you can share the link manually."
	default:
		emailError = "Failed to send email. The invitation was created - you can share the link manually."
	}

	response := gin.H{
		"success":         true,
		"message":         "Invitation created successfully",
		"invitation":      invitation,
		"invitation_link": invitationLink,
		"email_sent":      emailSent,
	}
	if emailError != "" {
		response["email_error"] = emailError
	}

	ctx.JSON(http.StatusCreated, response)
}

// GetInvitations lists an enterprise's invitations, newest first.
// Supports ?status=pending plus search over email and pagination.
// @Summary Get enterprise invitations
// @Tags invitations
// @Produce json
// @Param id path string true "Enterprise ID" format(uuid)
// @Param status query string false "Filter by status"
// @Param search query string false "Search by email"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Not an organization admin"
// @Router /enterprise/{id}/invitations [get]
func GetInvitations(ctx *gin.Context) {
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

	params := query.ParseListParams(ctx, "created_at")

	base := database.DB.Model(&models.Invitation{}).Where("organization_id = ?", enterpriseID)
	base = query.ApplyStatusFilter(base, params.Status)
	base = query.ApplySearch(base, params.Search, []string{"email"})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to fetch invitations",
			"message": err.Error(),
		})
		return
	}

	var invitations []models.Invitation
	listQuery := query.ApplySort(base, params, map[string]string{
		"created_at": "created_at",
		"expires_at": "expires_at",
		"email":      "email",
	})
	if err := query.ApplyPagination(listQuery, params).Find(&invitations).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to fetch invitations",
			"message": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":     true,
		"invitations": invitations,
		"pagination":  query.BuildPagination(params, total),
	})
}

// CancelInvitation cancels a pending invitation
// @Summary Cancel invitation
// @Tags invitations
// @Produce json
// @Param id path string true "Invitation ID" format(uuid)
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Invitation is not pending"
// @Failure 403 {object} map[string]string "Not an organization admin"
// @Failure 404 {object} map[string]string "Invitation not found"
// @Router /invitations/{id}/cancel [post]
func CancelInvitation(ctx *gin.Context) {
	userID := ctx.MustGet("userID").(uuid.UUID)

	invitationID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid invitation ID format",
		})
		return
	}

	db := database.DB

	var invitation models.Invitation
	if err := db.Where("id = ?", invitationID).First(&invitation).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			ctx.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   "Invitation not found",
			})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to load invitation",
			"message": err.Error(),
		})
		return
	}

	if isAdmin, reason := permission.CheckOrgAdmin(ctx, userID, invitation.OrganizationID); !isAdmin {
		ctx.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Access denied: %s", reason),
		})
		return
	}

	if invitation.Status != models.InvitationStatusPending {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Cannot cancel invitation with status '%s'", invitation.Status),
		})
		return
	}

	if err := db.Model(&invitation).Update("status", models.InvitationStatusCancelled).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to cancel invitation",
			"message": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Invitation cancelled successfully",
	})
}

// VerifyInvitation validates a token and returns invitation details (public)
// @Summary Verify invitation token
// @Tags invitations
// @Produce json
// @Param token path string true "Invitation token"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Invitation not pending or expired"
// @Failure 404 {object} map[string]string "Invalid invitation token"
// @Router /enterprise/invitation/verify/{token} [get]
func VerifyInvitation(ctx *gin.Context) {
	token := strings.TrimSpace(ctx.Param("token"))
	if token == "" {
		token = strings.TrimSpace(ctx.Query("token"))
	}
	if token == "" {
		ctx.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "Invalid invitation token",
		})
		return
	}

	var invitation models.Invitation
	err := database.DB.Preload("Enterprise").Where("token = ?", token).First(&invitation).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			ctx.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   "Invalid invitation token",
			})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to verify invitation",
			"message": err.Error(),
		})
		return
	}

	if invitation.Status != models.InvitationStatusPending {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Invitation is %s", invitation.Status),
		})
		return
	}

	if invitation.IsExpired() {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invitation has expired",
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"invitation": gin.H{
			"id":      invitation.ID,
			"email":   invitation.Email,
			"role":    invitation.Role,
			"message": invitation.Message,
			"enterprise": gin.H{
				"id":                invitation.Enterprise.ID,
				"name":              invitation.Enterprise.Name,
				"organization_type": invitation.Enterprise.OrganizationType,
			},
			"enterprise_name":   invitation.Enterprise.Name,
			"organization_type": invitation.Enterprise.OrganizationType,
		},
	})
}

// AcceptInvitation accepts an invitation for both logged-in and anonymous users
// @Summary Accept invitation
// @Description Authenticated callers join immediately; anonymous callers are told to register first.
// @Tags invitations
// @Accept json
// @Produce json
// @Param acceptance body AcceptInvitationRequest true "Invitation token"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Invalid, used or expired invitation"
// @Failure 500 {object} map[string]string "Server error"
// @Router /enterprise/invitation/accept [post]
func AcceptInvitation(ctx *gin.Context) {
	var req AcceptInvitationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invitation token is required",
		})
		return
	}

	db := database.DB

	var invitation models.Invitation
	err := db.Preload("Enterprise").Where("token = ?", req.Token).First(&invitation).Error
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid or expired invitation",
		})
		return
	}

	if invitation.Status != models.InvitationStatusPending {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invitation has already been used or expired",
		})
		return
	}

	if invitation.IsExpired() {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invitation has expired",
		})
		return
	}

	userID, authenticated := middleware.GetUserID(ctx)

	if !authenticated {
		// Anonymous caller: hand back the details needed to register first
		ctx.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Please create an account to accept this invitation",
			"invitation": gin.H{
				"id":              invitation.ID,
				"email":           invitation.Email,
				"enterprise_id":   invitation.OrganizationID,
				"enterprise_name": invitation.Enterprise.Name,
				"role":            invitation.Role,
			},
			"requires_registration": true,
		})
		return
	}

	var existingMembership models.OrganizationUser
	if err := db.Where("organization_id = ? AND user_id = ?", invitation.OrganizationID, userID).
		First(&existingMembership).Error; err == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "You are already a member of this organization",
		})
		return
	}

	membership := models.OrganizationUser{
		OrganizationID: invitation.OrganizationID,
		UserID:         userID,
		Role:           invitation.Role,
		Status:         "active",
		JoinedAt:       time.Now().UTC(),
	}
	if err := db.Create(&membership).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to add user to organization",
			"message": err.Error(),
		})
		return
	}

	invitationService := services.NewInvitationService(db, services.GetMailDispatcher())
	if err := invitationService.MarkAccepted(&invitation, userID); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to update invitation",
			"message": err.Error(),
		})
		return
	}

	userEmail, _ := ctx.Get("userEmail")
	email, _ := userEmail.(string)
	invitationService.NotifyOwnerAccepted(&invitation, userID, email)

	if cm := cache.GetCacheManager(); cm != nil {
		_ = cm.InvalidateOrgMembers(invitation.OrganizationID)
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":               true,
		"message":               "Invitation accepted successfully",
		"enterprise_id":         invitation.OrganizationID,
		"enterprise_name":       invitation.Enterprise.Name,
		"requires_registration": false,
	})
}

// CompleteInvitation finishes an invitation after the recipient registered
// @Summary Complete invitation
// @Tags invitations
// @Accept json
// @Produce json
// @Param completion body CompleteInvitationRequest true "Invitation ID"
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Invalid invitation or already a member"
// @Failure 500 {object} map[string]string "Server error"
// @Router /enterprise/invitation/complete [post]
func CompleteInvitation(ctx *gin.Context) {
	userID := ctx.MustGet("userID").(uuid.UUID)

	var req CompleteInvitationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invitation ID is required",
		})
		return
	}

	db := database.DB

	var invitation models.Invitation
	if err := db.Preload("Enterprise").Where("id = ?", req.InvitationID).First(&invitation).Error; err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid invitation ID",
		})
		return
	}

	// Pending invitations and ones accepted pre-registration can both finish here
	if invitation.Status != models.InvitationStatusPending && invitation.Status != models.InvitationStatusAccepted {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invitation has already been used or expired",
		})
		return
	}

	var existingMembership models.OrganizationUser
	if err := db.Where("organization_id = ? AND user_id = ?", invitation.OrganizationID, userID).
		First(&existingMembership).Error; err == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "You are already a member of this organization",
		})
		return
	}

	membership := models.OrganizationUser{
		OrganizationID: invitation.OrganizationID,
		UserID:         userID,
		Role:           invitation.Role,
		Status:         "active",
		JoinedAt:       time.Now().UTC(),
	}
	if err := db.Create(&membership).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to add user to organization",
			"message": err.Error(),
		})
		return
	}

	invitationService := services.NewInvitationService(db, services.GetMailDispatcher())
	if err := invitationService.MarkAccepted(&invitation, userID); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to update invitation",
			"message": err.Error(),
		})
		return
	}

	userEmail, _ := ctx.Get("userEmail")
	email, _ := userEmail.(string)
	invitationService.NotifyOwnerAccepted(&invitation, userID, email)

	if cm := cache.GetCacheManager(); cm != nil {
		_ = cm.InvalidateOrgMembers(invitation.OrganizationID)
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":         true,
		"message":         "Invitation accepted successfully",
		"enterprise_id":   invitation.OrganizationID,
		"enterprise_name": invitation.Enterprise.Name,
	})
}
