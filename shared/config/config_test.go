package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetDetectionMaxFileSize(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected int64
	}{
		{"megabytes", "10MB", 10 * 1024 * 1024},
		{"kilobytes", "512KB", 512 * 1024},
		{"plain bytes", "2048", 2048},
		{"lowercase suffix", "5mb", 5 * 1024 * 1024},
		{"garbage falls back", "huge", 10 * 1024 * 1024},
		{"empty falls back", "", 10 * 1024 * 1024},
		{"negative falls back", "-1MB", 10 * 1024 * 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{DetectionMaxFileSize: tt.value}
			assert.Equal(t, tt.expected, c.GetDetectionMaxFileSize())
		})
	}
}
