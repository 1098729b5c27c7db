package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ArchiveService stores the raw XML snapshot of every fetched catalog in
// object storage, keyed by sync id, for audit and replay. Archive failures
// never affect the run outcome; callers log and continue.
type ArchiveService struct {
	client *minio.Client
	bucket string
}

func NewArchiveService(endpoint, accessKey, secretKey string, useSSL bool, bucket string) (*ArchiveService, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create MinIO client: %w", err)
	}
	return &ArchiveService{client: client, bucket: bucket}, nil
}

// EnsureBucket creates the archive bucket if it does not exist yet.
func (s *ArchiveService) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	log.Printf("Created archive bucket %s", s.bucket)
	return nil
}

// StoreSnapshot uploads one raw feed body and returns the object key.
func (s *ArchiveService) StoreSnapshot(ctx context.Context, syncID uuid.UUID, body string) (string, error) {
	key := fmt.Sprintf("syncs/%s.xml", syncID)
	reader := strings.NewReader(body)

	_, err := s.client.PutObject(ctx, s.bucket, key, reader, int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/xml",
	})
	if err != nil {
		return "", fmt.Errorf("store snapshot %s: %w", key, err)
	}
	return key, nil
}

// Ping probes storage connectivity for the health endpoint.
func (s *ArchiveService) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}
