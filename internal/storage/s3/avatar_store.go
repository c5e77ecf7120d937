package s3

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/gyanoda/user-service/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// AvatarStore keeps user avatars in a MinIO bucket. Upload returns the
// object key and public URL; Delete removes a previous avatar when it is
// replaced or its owner is removed.
type AvatarStore struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

func NewAvatarStore(cfg config.StorageConfig, logger *zap.Logger) (*AvatarStore, error) {
	log := logger.Named("AvatarStore")

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for endpoint %s: %w", cfg.Endpoint, err)
	}

	err = client.MakeBucket(context.Background(), cfg.Bucket, minio.MakeBucketOptions{})
	if err != nil {
		exists, errBucketExists := client.BucketExists(context.Background(), cfg.Bucket)
		if errBucketExists != nil || !exists {
			return nil, fmt.Errorf("failed to make/verify bucket %s: %w", cfg.Bucket, err)
		}
		log.Info("Bucket already exists", zap.String("bucket", cfg.Bucket))
	}

	return &AvatarStore{
		client: client,
		bucket: cfg.Bucket,
		logger: log,
	}, nil
}

func (s *AvatarStore) Upload(ctx context.Context, originalFileName, contentType string, data []byte) (string, string, error) {
	ext := filepath.Ext(originalFileName)
	objectKey := fmt.Sprintf("avatars/%s%s", uuid.New().String(), ext)

	_, err := s.client.PutObject(ctx, s.bucket, objectKey, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		s.logger.Error("PutObject failed", zap.String("key", objectKey), zap.Error(err))
		return "", "", fmt.Errorf("failed to upload object %s: %w", objectKey, err)
	}

	fileURL := fmt.Sprintf("%s/%s/%s", s.client.EndpointURL().String(), s.bucket, objectKey)
	s.logger.Info("Avatar uploaded", zap.String("key", objectKey), zap.Int("size_bytes", len(data)))
	return objectKey, fileURL, nil
}

func (s *AvatarStore) Delete(ctx context.Context, objectKey string) error {
	if objectKey == "" {
		return nil
	}
	if err := s.client.RemoveObject(ctx, s.bucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		s.logger.Warn("Failed to remove avatar object", zap.String("key", objectKey), zap.Error(err))
		return err
	}
	return nil
}
