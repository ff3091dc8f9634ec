// Package storage archives published videos to object storage before the
// local copy is released.
package storage

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/vidgate/vidgate/internal/domain/repository"
)

// minioClient defines the MinIO operations the archiver needs.
// This abstraction allows for easier unit testing with mocks.
type minioClient interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// ClientConfig holds configuration for the archive client.
type ClientConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Client implements repository.Archiver backed by a MinIO/S3 bucket.
type Client struct {
	client minioClient
	bucket string
}

// Compile-time verification that Client implements repository.Archiver.
var _ repository.Archiver = (*Client)(nil)

// NewClient creates an archive client and verifies the bucket exists so a
// misconfigured archive fails at startup rather than after a publish.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return newClientWithMinio(ctx, mc, cfg.Bucket)
}

// newClientWithMinio creates a Client with a given minioClient.
// This is used for dependency injection in tests.
func newClientWithMinio(ctx context.Context, mc minioClient, bucket string) (*Client, error) {
	exists, err := mc.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist", bucket)
	}

	return &Client{
		client: mc,
		bucket: bucket,
	}, nil
}

// Archive uploads localPath under key in the archive bucket.
func (c *Client) Archive(ctx context.Context, localPath, key string) error {
	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := c.client.FPutObject(ctx, c.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to archive %s: %w", key, err)
	}
	return nil
}
