package database

import (
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"meallens-backend/shared/config"
	"meallens-backend/shared/database/models"
	utils "meallens-backend/shared/utils/auth"
)

// SeedDatabase seeds the database with a demo organization owner, an
// enterprise and a couple of member accounts for local development.
func SeedDatabase() error {
	log.Println("🌱 Checking database seed data...")

	owner, ownerCreated, err := seedUser("owner@meallensai.com", "owner123", "Demo", "Owner", "organization")
	if err != nil {
		return err
	}

	enterprise, enterpriseCreated, err := seedEnterprise(owner)
	if err != nil {
		return err
	}

	membersCreated := 0
	memberSeeds := []struct {
		email, password, first, last, role string
	}{
		{"doctor@meallensai.com", "doctor123", "Demo", "Doctor", "doctor"},
		{"patient@meallensai.com", "patient123", "Demo", "Patient", "patient"},
	}
	var patient *models.User
	for _, seed := range memberSeeds {
		user, _, err := seedUser(seed.email, seed.password, seed.first, seed.last, "individual")
		if err != nil {
			return err
		}
		created, err := seedMembership(enterprise, user, seed.role)
		if err != nil {
			return err
		}
		if created {
			membersCreated++
		}
		if seed.role == "patient" {
			patient = user
		}
	}

	if err := seedInvitation(enterprise, owner); err != nil {
		return err
	}
	if patient != nil {
		if err := seedSettings(patient); err != nil {
			return err
		}
	}

	if ownerCreated || enterpriseCreated || membersCreated > 0 {
		log.Printf("✅ Database seeding completed (%d memberships created)", membersCreated)
	} else {
		log.Println("✅ Database seed data is up to date")
	}

	return nil
}

func seedUser(email, password, firstName, lastName, signupType string) (*models.User, bool, error) {
	var existing models.User
	err := DB.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return nil, false, err
	}

	user := models.User{
		Email:         email,
		Password:      hashed,
		FirstName:     firstName,
		LastName:      lastName,
		DisplayName:   firstName + " " + lastName,
		SignupType:    signupType,
		Status:        "ACTIVE",
		EmailVerified: true,
	}
	if err := DB.Create(&user).Error; err != nil {
		return nil, false, err
	}

	log.Printf("👤 Seed user created: %s", email)
	return &user, true, nil
}

func seedEnterprise(owner *models.User) (*models.Enterprise, bool, error) {
	var existing models.Enterprise
	err := DB.Where("created_by = ?", owner.ID).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	enterprise := models.Enterprise{
		Name:             "Demo Clinic",
		OrganizationType: "clinic",
		Email:            owner.Email,
		MaxUsers:         config.GetConfig().GetDefaultMaxUsers(),
		CreatedBy:        owner.ID,
	}
	if err := DB.Create(&enterprise).Error; err != nil {
		return nil, false, err
	}

	log.Printf("🏢 Seed enterprise created: %s", enterprise.Name)
	return &enterprise, true, nil
}

func seedMembership(enterprise *models.Enterprise, user *models.User, role string) (bool, error) {
	var existing models.OrganizationUser
	err := DB.Where("organization_id = ? AND user_id = ?", enterprise.ID, user.ID).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	membership := models.OrganizationUser{
		OrganizationID: enterprise.ID,
		UserID:         user.ID,
		Role:           role,
		Status:         "active",
		JoinedAt:       time.Now().UTC(),
	}
	if err := DB.Create(&membership).Error; err != nil {
		return false, err
	}
	return true, nil
}

func seedInvitation(enterprise *models.Enterprise, owner *models.User) error {
	email := "invitee@meallensai.com"

	var existing models.Invitation
	err := DB.Where("organization_id = ? AND email = ?", enterprise.ID, email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	token, err := utils.GenerateInvitationToken()
	if err != nil {
		return err
	}

	invitation := models.Invitation{
		OrganizationID: enterprise.ID,
		Email:          email,
		Role:           "patient",
		Token:          token,
		Message:        "Join our demo clinic to try MealLens AI",
		Status:         models.InvitationStatusPending,
		InvitedBy:      owner.ID,
		ExpiresAt:      time.Now().UTC().Add(config.GetConfig().GetInvitationExpireDuration()),
	}
	if err := DB.Create(&invitation).Error; err != nil {
		return err
	}

	log.Printf("✉️ Seed invitation created for %s", email)
	return nil
}

func seedSettings(user *models.User) error {
	var existing models.UserSettings
	err := DB.Where("user_id = ? AND settings_type = ?", user.ID, models.DefaultSettingsType).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	settings := models.UserSettings{
		UserID:       user.ID,
		SettingsType: models.DefaultSettingsType,
		SettingsData: models.JSONMap{
			"age":           34,
			"gender":        "female",
			"height":        168,
			"weight":        62,
			"activityLevel": "moderate",
			"goal":          "maintain",
		},
	}
	if err := DB.Create(&settings).Error; err != nil {
		return err
	}

	log.Printf("⚙️ Seed settings created for %s", user.Email)
	return nil
}
