package service

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/nrenier/ICorNet-sub000/config"
)

// MinioSaver archives downloaded reports in an S3-compatible bucket.
type MinioSaver struct {
	client *minio.Client
	bucket string
	config *config.MinioConfig

	mu          sync.Mutex
	bucketReady bool
}

func NewMinioSaver(cfg *config.MinioConfig) (*MinioSaver, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioSaver{
		client: client,
		bucket: cfg.Bucket,
		config: cfg,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *MinioSaver) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// ObjectName returns the key a report file is archived under.
func (s *MinioSaver) ObjectName(fileName string) string {
	return path.Join(s.config.Prefix, path.Base(fileName))
}

// ensureBucketReady runs EnsureBucket until it succeeds once.
func (s *MinioSaver) ensureBucketReady(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bucketReady {
		return nil
	}
	if err := s.EnsureBucket(ctx); err != nil {
		return err
	}
	s.bucketReady = true
	return nil
}

// Save uploads data and returns the object URL. A failed bucket check is
// retried by the next Save.
func (s *MinioSaver) Save(ctx context.Context, fileName string, data []byte) (string, error) {
	if err := s.ensureBucketReady(ctx); err != nil {
		return "", err
	}

	objectName := s.ObjectName(fileName)
	_, err := s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/pdf",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload report: %w", err)
	}
	return s.PublicURL(objectName), nil
}

// LinkTTL is how long presigned links stay valid.
func (s *MinioSaver) LinkTTL() time.Duration {
	if s.config.LinkHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(s.config.LinkHours) * time.Hour
}

// Link returns a time-limited link to the archived copy of fileName.
func (s *MinioSaver) Link(ctx context.Context, fileName string) (string, error) {
	return s.PresignedURL(ctx, s.ObjectName(fileName))
}

// PresignedURL generates a time-limited link to an archived report
func (s *MinioSaver) PresignedURL(ctx context.Context, objectName string) (string, error) {
	expiry := s.LinkTTL()
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return u.String(), nil
}

// PublicURL returns the plain object URL (readable if bucket policy allows)
func (s *MinioSaver) PublicURL(objectName string) string {
	protocol := "http"
	if s.config.UseSSL {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", protocol, s.config.Endpoint, s.bucket, objectName)
}
