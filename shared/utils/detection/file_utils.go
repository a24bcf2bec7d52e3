package detection

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"meallens-backend/shared/config"
)

var allowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".heic": true,
}

// ValidateUploadedImage validates an uploaded detection image
func ValidateUploadedImage(header *multipart.FileHeader) error {
	if header.Size == 0 {
		return fmt.Errorf("file is empty")
	}

	maxSize := config.GetConfig().GetDetectionMaxFileSize()
	if header.Size > maxSize {
		return fmt.Errorf("file size exceeds %dMB limit", maxSize/(1024*1024))
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedImageExtensions[ext] {
		return fmt.Errorf("unsupported image type '%s'", ext)
	}

	return nil
}

// ImageContentType maps a filename to the content type stored with it
func ImageContentType(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".heic":
		return "image/heic"
	default:
		return "image/jpeg"
	}
}
