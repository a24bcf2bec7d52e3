package utils

import (
	"errors"
	"net/mail"
	"strings"
)

func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email is required")
	}

	_, err := mail.ParseAddress(email)
	if err != nil {
		return errors.New("invalid email format")
	}

	return nil
}

// NormalizeInvitationRole maps loose role spellings onto the canonical set
func NormalizeInvitationRole(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "doctors" {
		return "doctor"
	}
	return role
}
