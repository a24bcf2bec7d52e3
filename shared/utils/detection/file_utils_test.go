package detection

import (
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUploadedImage(t *testing.T) {
	t.Run("accepts a normal image", func(t *testing.T) {
		header := &multipart.FileHeader{Filename: "lunch.jpg", Size: 1024 * 1024}
		assert.NoError(t, ValidateUploadedImage(header))
	})

	t.Run("rejects empty file", func(t *testing.T) {
		header := &multipart.FileHeader{Filename: "lunch.jpg", Size: 0}
		require.Error(t, ValidateUploadedImage(header))
	})

	t.Run("rejects file over the configured limit", func(t *testing.T) {
		header := &multipart.FileHeader{Filename: "feast.png", Size: 11 * 1024 * 1024}
		err := ValidateUploadedImage(header)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "limit")
	})

	t.Run("rejects unsupported extension", func(t *testing.T) {
		header := &multipart.FileHeader{Filename: "notes.pdf", Size: 1024}
		err := ValidateUploadedImage(header)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ".pdf")
	})
}

func TestImageContentType(t *testing.T) {
	assert.Equal(t, "image/png", ImageContentType("salad.PNG"))
	assert.Equal(t, "image/webp", ImageContentType("soup.webp"))
	assert.Equal(t, "image/heic", ImageContentType("dinner.heic"))
	assert.Equal(t, "image/jpeg", ImageContentType("plate.jpg"))
	assert.Equal(t, "image/jpeg", ImageContentType("unknown.bin"))
}
