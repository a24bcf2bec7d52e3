package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"meallens-backend/services"
	"meallens-backend/shared/database"
	"meallens-backend/shared/database/models"
	utils "meallens-backend/shared/utils/auth"
)

// RegisterRequest represents request body for user registration
type RegisterRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	SignupType string `json:"signup_type"`
}

// LoginRequest represents request body for user login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents tokens and user info returned after auth
type AuthResponse struct {
	Success      bool        `json:"success"`
	Token        string      `json:"token"`
	RefreshToken string      `json:"refresh_token"`
	User         models.User `json:"user"`
}

// Register creates a new user account
// @Summary Register a new user
// @Description Create a user account and auto-accept any pending organization invitations for the email
// @Tags auth
// @Accept json
// @Produce json
// @Param registration body RegisterRequest true "Registration information"
// @Success 201 {object} handlers.AuthResponse
// @Failure 400 {object} map[string]string "Invalid request data"
// @Failure 409 {object} map[string]string "Email already registered"
// @Failure 500 {object} map[string]string "Server error"
// @Router /auth/register [post]
func Register(ctx *gin.Context) {
	var req RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body",
			"message": err.Error(),
		})
		return
	}

	db := database.DB
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var existing models.User
	if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
		ctx.JSON(http.StatusConflict, gin.H{
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

	signupType := req.SignupType
	if signupType == "" {
		signupType = "individual"
	}

	user := models.User{
		Email:       email,
		Password:    hashedPassword,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DisplayName: strings.TrimSpace(req.FirstName + " " + req.LastName),
		SignupType:  signupType,
		Status:      "ACTIVE",
	}

	if err := db.Create(&user).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to create user",
			"message": err.Error(),
		})
		return
	}

	// Join organizations that already invited this email
	invitationService := services.NewInvitationService(db, services.GetMailDispatcher())
	invitationService.AutoAcceptPendingInvitations(user.ID, user.Email)

	token, err := utils.GenerateJWT(user.ID, user.Email)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to generate token",
		})
		return
	}

	refreshToken, err := utils.GenerateRefreshJWT(user.ID, user.Email)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to generate refresh token",
		})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"success":       true,
		"token":         token,
		"refresh_token": refreshToken,
		"user":          user,
	})
}

// Login authenticates a user
// @Summary Login
// @Description Authenticate with email and password, auto-accepting any pending organization invitations
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Login credentials"
// @Success 200 {object} handlers.AuthResponse
// @Failure 400 {object} map[string]string "Invalid request data"
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Failure 500 {object} map[string]string "Server error"
// @Router /auth/login [post]
func Login(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body",
			"message": err.Error(),
		})
		return
	}

	db := database.DB
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "Invalid email or password",
		})
		return
	}

	if !utils.CheckPasswordHash(req.Password, user.Password) {
		ctx.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "Invalid email or password",
		})
		return
	}

	// Join organizations that invited this email while the user was away
	invitationService := services.NewInvitationService(db, services.GetMailDispatcher())
	invitationService.AutoAcceptPendingInvitations(user.ID, user.Email)

	token, err := utils.GenerateJWT(user.ID, user.Email)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to generate token",
		})
		return
	}

	refreshToken, err := utils.GenerateRefreshJWT(user.ID, user.Email)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to generate refresh token",
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":       true,
		"token":         token,
		"refresh_token": refreshToken,
		"user":          user,
	})
}

// Me returns the authenticated user's profile with organization context
// @Summary Get current user
// @Description Get profile, memberships and owned organizations for the authenticated user
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "User not found"
// @Router /auth/me [get]
func Me(ctx *gin.Context) {
	userID := ctx.MustGet("userID").(uuid.UUID)

	db := database.DB

	var user models.User
	if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			ctx.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   "User not found",
			})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to load user",
			"message": err.Error(),
		})
		return
	}

	var memberships []models.OrganizationUser
	if err := db.Preload("Enterprise").Where("user_id = ?", userID).Find(&memberships).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to load memberships",
			"message": err.Error(),
		})
		return
	}

	var ownedEnterprises []models.Enterprise
	if err := db.Where("created_by = ?", userID).Find(&ownedEnterprises).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to load enterprises",
			"message": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"user":              user,
			"memberships":       memberships,
			"owned_enterprises": ownedEnterprises,
		},
	})
}
