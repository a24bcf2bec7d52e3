package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	t.Run("accepts valid addresses", func(t *testing.T) {
		assert.NoError(t, ValidateEmail("doctor@clinic.example"))
		assert.NoError(t, ValidateEmail("  padded@clinic.example  "))
	})

	t.Run("rejects empty and malformed addresses", func(t *testing.T) {
		assert.Error(t, ValidateEmail(""))
		assert.Error(t, ValidateEmail("   "))
		assert.Error(t, ValidateEmail("not-an-email"))
	})
}

func TestNormalizeInvitationRole(t *testing.T) {
	cases := map[string]string{
		"doctor":       "doctor",
		"Doctors":      "doctor",
		"DOCTORS":      "doctor",
		"  Patient  ":  "patient",
		"nutritionist": "nutritionist",
		"CLIENT":       "client",
		"receptionist": "receptionist",
	}

	for input, want := range cases {
		assert.Equal(t, want, NormalizeInvitationRole(input), "input %q", input)
	}
}
