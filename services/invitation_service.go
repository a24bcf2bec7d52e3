package services

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"meallens-backend/shared/config"
	"meallens-backend/shared/database/models"
)

// InvitationService holds invitation flows shared between the auth and
// invitation endpoints.
type InvitationService struct {
	db         *gorm.DB
	dispatcher *MailDispatcher
}

func NewInvitationService(db *gorm.DB, dispatcher *MailDispatcher) *InvitationService {
	return &InvitationService{db: db, dispatcher: dispatcher}
}

// AutoAcceptPendingInvitations joins a user to every organization that has a
// pending, unexpired invitation for their email. Runs after registration and
// login. Returns the IDs of the invitations that were accepted.
func (s *InvitationService) AutoAcceptPendingInvitations(userID uuid.UUID, userEmail string) []uuid.UUID {
	accepted := []uuid.UUID{}

	var invitations []models.Invitation
	err := s.db.Preload("Enterprise").
		Where("email = ? AND status = ?", userEmail, models.InvitationStatusPending).
		Find(&invitations).Error
	if err != nil {
		log.Printf("❌ Failed to load pending invitations for %s: %v", userEmail, err)
		return accepted
	}

	if len(invitations) == 0 {
		return accepted
	}

	log.Printf("Found %d pending invitation(s) for %s", len(invitations), userEmail)

	for _, invitation := range invitations {
		if invitation.IsExpired() {
			log.Printf("Invitation %s has expired, skipping", invitation.ID)
			continue
		}

		var existing models.OrganizationUser
		alreadyMember := s.db.Where("organization_id = ? AND user_id = ?", invitation.OrganizationID, userID).
			First(&existing).Error == nil

		if !alreadyMember {
			membership := models.OrganizationUser{
				OrganizationID: invitation.OrganizationID,
				UserID:         userID,
				Role:           invitation.Role,
				Status:         "active",
				JoinedAt:       time.Now().UTC(),
			}
			if err := s.db.Create(&membership).Error; err != nil {
				log.Printf("❌ Failed to create membership for invitation %s: %v", invitation.ID, err)
				continue
			}
		}

		if err := s.MarkAccepted(&invitation, userID); err != nil {
			log.Printf("❌ Failed to update invitation %s: %v", invitation.ID, err)
			continue
		}
		accepted = append(accepted, invitation.ID)

		if !alreadyMember {
			s.NotifyOwnerAccepted(&invitation, userID, userEmail)
		}
	}

	return accepted
}

// MarkAccepted flips an invitation to accepted and records who accepted it
func (s *InvitationService) MarkAccepted(invitation *models.Invitation, userID uuid.UUID) error {
	now := time.Now().UTC()
	return s.db.Model(&models.Invitation{}).
		Where("id = ?", invitation.ID).
		Updates(map[string]interface{}{
			"status":      models.InvitationStatusAccepted,
			"accepted_at": now,
			"accepted_by": userID,
		}).Error
}

// NotifyOwnerAccepted queues an email telling the enterprise owner that an
// invitation was accepted. Delivery happens on the mail worker.
func (s *InvitationService) NotifyOwnerAccepted(invitation *models.Invitation, userID uuid.UUID, userEmail string) {
	var owner models.User
	if err := s.db.Where("id = ?", invitation.Enterprise.CreatedBy).First(&owner).Error; err != nil {
		log.Printf("Could not load enterprise owner for invitation %s: %v", invitation.ID, err)
		return
	}

	var member models.User
	memberName := userEmail
	if err := s.db.Where("id = ?", userID).First(&member).Error; err == nil {
		memberName = member.FullName()
	}

	err := s.dispatcher.Enqueue(NewInvitationAcceptedEmail(owner.Email, memberName, userEmail, invitation.Enterprise.Name))
	if err != nil {
		log.Printf("Could not queue acceptance notification for %s: %v", owner.Email, err)
	}

	GetWebSocketManager().NotifyUser(owner.ID.String(),
		EventInvitationAccepted,
		"Invitation accepted",
		fmt.Sprintf("%s joined %s", memberName, invitation.Enterprise.Name),
		map[string]interface{}{
			"invitation_id":   invitation.ID.String(),
			"organization_id": invitation.OrganizationID.String(),
			"member_email":    userEmail,
		})
}

// BuildInviteLink returns the frontend URL a recipient follows to accept
func BuildInviteLink(token string) string {
	return fmt.Sprintf("%s/accept-invitation?token=%s", config.GetConfig().FrontendURL, token)
}
