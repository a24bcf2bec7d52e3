package permission

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"meallens-backend/shared/database"
	"meallens-backend/shared/database/models"
	"meallens-backend/shared/utils/cache"
)

// Admin-check reason strings returned alongside the boolean result
const (
	ReasonOwner       = "owner"
	ReasonAdmin       = "admin"
	ReasonOrgNotFound = "Organization not found"
	ReasonNotMember   = "User is not a member of this organization"
)

// AdminCheckResult holds one admin-check outcome
type AdminCheckResult struct {
	IsAdmin bool
	Reason  string
}

func memoKey(userID, orgID uuid.UUID) string {
	return fmt.Sprintf("org_admin_check:%s:%s", userID, orgID)
}

// CheckOrgAdmin reports whether a user may manage an organization. The
// enterprise owner always may; members may only with the admin role.
// Results are memoized on the request context and positive results are
// additionally cached in Redis.
func CheckOrgAdmin(c *gin.Context, userID, orgID uuid.UUID) (bool, string) {
	if c != nil {
		if memo, exists := c.Get(memoKey(userID, orgID)); exists {
			if result, ok := memo.(AdminCheckResult); ok {
				return result.IsAdmin, result.Reason
			}
		}
	}

	if cm := cache.GetCacheManager(); cm != nil {
		if data, found := cm.GetOrgAdminCache(userID, orgID); found {
			memoize(c, userID, orgID, data.IsAdmin, data.Reason)
			return data.IsAdmin, data.Reason
		}
	}

	isAdmin, reason := checkOrgAdminDB(userID, orgID)

	memoize(c, userID, orgID, isAdmin, reason)
	if isAdmin {
		if cm := cache.GetCacheManager(); cm != nil {
			_ = cm.SetOrgAdminCache(userID, orgID, &cache.OrgAdminCacheData{
				IsAdmin: isAdmin,
				Reason:  reason,
				UserID:  userID.String(),
				OrgID:   orgID.String(),
			})
		}
	}

	return isAdmin, reason
}

func memoize(c *gin.Context, userID, orgID uuid.UUID, isAdmin bool, reason string) {
	if c != nil {
		c.Set(memoKey(userID, orgID), AdminCheckResult{IsAdmin: isAdmin, Reason: reason})
	}
}

func checkOrgAdminDB(userID, orgID uuid.UUID) (bool, string) {
	db := database.GetDB()

	var enterprise models.Enterprise
	if err := db.Where("id = ?", orgID).First(&enterprise).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ReasonOrgNotFound
		}
		return false, fmt.Sprintf("Error checking organization: %v", err)
	}

	// Owners manage their organization without a membership row
	if enterprise.CreatedBy == userID {
		return true, ReasonOwner
	}

	var membership models.OrganizationUser
	err := db.Where("organization_id = ? AND user_id = ?", orgID, userID).First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ReasonNotMember
		}
		return false, fmt.Sprintf("Error checking membership: %v", err)
	}

	if membership.Role == "admin" {
		return true, ReasonAdmin
	}

	return false, fmt.Sprintf("User role '%s' does not have permission to manage users", membership.Role)
}

// CanCreateOrganization reports whether a user may create a new enterprise.
// Members of any organization may not; existing owners and users who signed
// up as an organization may.
func CanCreateOrganization(userID uuid.UUID) (bool, string, error) {
	db := database.GetDB()

	var membershipCount int64
	if err := db.Model(&models.OrganizationUser{}).Where("user_id = ?", userID).Count(&membershipCount).Error; err != nil {
		return false, "", err
	}
	if membershipCount > 0 {
		return false, "Organization members cannot create organizations", nil
	}

	var ownedCount int64
	if err := db.Model(&models.Enterprise{}).Where("created_by = ?", userID).Count(&ownedCount).Error; err != nil {
		return false, "", err
	}
	if ownedCount > 0 {
		return true, "owner", nil
	}

	var user models.User
	if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, "User not found", nil
		}
		return false, "", err
	}

	if user.SignupType == "organization" {
		return true, "organization signup", nil
	}

	return false, "Individual accounts cannot create organizations", nil
}
