package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"sync"
	"time"

	"meallens-backend/shared/config"
	utils "meallens-backend/shared/utils/auth"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// StorageService stores detection images in a MinIO bucket
type StorageService struct {
	client     *minio.Client
	bucketName string
}

var (
	storageInstance *StorageService
	storageOnce     sync.Once
	storageInitErr  error
)

// GetStorageService returns the shared storage client, connecting on first use
func GetStorageService() (*StorageService, error) {
	storageOnce.Do(func() {
		storageInstance, storageInitErr = NewStorageService()
	})
	return storageInstance, storageInitErr
}

func NewStorageService() (*StorageService, error) {
	cfg := config.GetConfig()

	// Parse endpoint URL to get host
	parsedURL, err := url.Parse(cfg.MinIOServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid MinIO endpoint: %v", err)
	}

	endpoint := parsedURL.Host
	useSSL := cfg.MinIOUseSSL

	log.Printf("🔗 Connecting to MinIO: %s (SSL: %v)", endpoint, useSSL)

	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIORootUser, cfg.MinIORootPassword, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %v", err)
	}

	service := &StorageService{
		client:     minioClient,
		bucketName: cfg.MinIOBucketName,
	}

	// Test connection and create bucket if needed
	if err := service.initializeBucket(); err != nil {
		return nil, err
	}

	return service, nil
}

func (s *StorageService) initializeBucket() error {
	ctx := context.Background()

	log.Printf("🪣 Checking bucket: %s", s.bucketName)

	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %v", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %v", err)
		}
		log.Printf("✅ MinIO bucket '%s' created successfully", s.bucketName)
	} else {
		log.Printf("✅ MinIO bucket '%s' already exists", s.bucketName)
	}

	return nil
}

// TestConnection verifies MinIO is reachable
func (s *StorageService) TestConnection() error {
	ctx := context.Background()

	buckets, err := s.client.ListBuckets(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to MinIO: %v", err)
	}

	log.Printf("✅ MinIO connection successful. Found %d buckets", len(buckets))
	return nil
}

// GetBucketName returns the bucket name
func (s *StorageService) GetBucketName() string {
	return s.bucketName
}

// UploadDetectionImage stores an uploaded image under the user's prefix and
// returns the object key.
func (s *StorageService) UploadDetectionImage(ctx context.Context, userID string, file io.Reader, fileName, contentType string, fileSize int64) (string, error) {
	// Random prefix keeps same-named uploads from colliding
	suffix, err := utils.GenerateRandomToken(8)
	if err != nil {
		return "", fmt.Errorf("failed to generate object key: %v", err)
	}
	objectKey := fmt.Sprintf("detections/%s/%s_%s", userID, suffix, fileName)

	_, err = s.client.PutObject(ctx, s.bucketName, objectKey, file, fileSize, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %v", err)
	}

	log.Printf("✅ Detection image uploaded: %s", objectKey)
	return objectKey, nil
}

// PresignedImageURL returns a temporary download URL for a stored image
func (s *StorageService) PresignedImageURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	presignedURL, err := s.client.PresignedGetObject(ctx, s.bucketName, objectKey, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %v", err)
	}
	return presignedURL.String(), nil
}

// DownloadImage fetches a stored image
func (s *StorageService) DownloadImage(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	object, err := s.client.GetObject(ctx, s.bucketName, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to download object: %v", err)
	}
	return object, nil
}

// RemoveImage deletes a stored image
func (s *StorageService) RemoveImage(ctx context.Context, objectKey string) error {
	err := s.client.RemoveObject(ctx, s.bucketName, objectKey, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to remove object: %v", err)
	}

	log.Printf("🗑️  Detection image removed: %s", objectKey)
	return nil
}

// RemoveUserImages deletes every stored image under a user's prefix. Used by
// the account purge flow.
func (s *StorageService) RemoveUserImages(ctx context.Context, userID string) error {
	prefix := fmt.Sprintf("detections/%s/", userID)

	objectCh := s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	removed := 0
	for object := range objectCh {
		if object.Err != nil {
			return fmt.Errorf("failed to list objects: %v", object.Err)
		}
		if err := s.client.RemoveObject(ctx, s.bucketName, object.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("failed to remove object %s: %v", object.Key, err)
		}
		removed++
	}

	if removed > 0 {
		log.Printf("🗑️  Removed %d stored images for user %s", removed, userID)
	}
	return nil
}
