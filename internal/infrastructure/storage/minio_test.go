package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
)

// mockMinioClient implements minioClient for testing.
type mockMinioClient struct {
	bucketExistsFunc func(ctx context.Context, bucketName string) (bool, error)
	fPutObjectFunc   func(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

func (m *mockMinioClient) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	if m.bucketExistsFunc != nil {
		return m.bucketExistsFunc(ctx, bucketName)
	}
	return true, nil
}

func (m *mockMinioClient) FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if m.fPutObjectFunc != nil {
		return m.fPutObjectFunc(ctx, bucketName, objectName, filePath, opts)
	}
	return minio.UploadInfo{}, nil
}

func TestNewClientWithMinio(t *testing.T) {
	tests := []struct {
		name        string
		mock        *mockMinioClient
		wantErr     bool
		errContains string
	}{
		{
			name:    "bucket exists",
			mock:    &mockMinioClient{},
			wantErr: false,
		},
		{
			name: "bucket missing",
			mock: &mockMinioClient{
				bucketExistsFunc: func(ctx context.Context, bucketName string) (bool, error) {
					return false, nil
				},
			},
			wantErr:     true,
			errContains: "does not exist",
		},
		{
			name: "bucket check fails",
			mock: &mockMinioClient{
				bucketExistsFunc: func(ctx context.Context, bucketName string) (bool, error) {
					return false, errors.New("connection refused")
				},
			},
			wantErr:     true,
			errContains: "failed to check bucket",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newClientWithMinio(context.Background(), tt.mock, "archive")
			if (err != nil) != tt.wantErr {
				t.Fatalf("newClientWithMinio() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("error = %v, should contain %q", err, tt.errContains)
			}
		})
	}
}

func TestClient_Archive(t *testing.T) {
	var gotBucket, gotKey, gotPath, gotContentType string

	mock := &mockMinioClient{
		fPutObjectFunc: func(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
			gotBucket = bucketName
			gotKey = objectName
			gotPath = filePath
			gotContentType = opts.ContentType
			return minio.UploadInfo{}, nil
		},
	}

	client, err := newClientWithMinio(context.Background(), mock, "archive")
	if err != nil {
		t.Fatalf("newClientWithMinio failed: %v", err)
	}

	if err := client.Archive(context.Background(), "/spool/clip.mp4", "published/vid-1/clip.mp4"); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}

	if gotBucket != "archive" {
		t.Errorf("bucket = %q, want archive", gotBucket)
	}
	if gotKey != "published/vid-1/clip.mp4" {
		t.Errorf("key = %q", gotKey)
	}
	if gotPath != "/spool/clip.mp4" {
		t.Errorf("path = %q", gotPath)
	}
	if gotContentType != "video/mp4" {
		t.Errorf("content type = %q, want video/mp4", gotContentType)
	}
}

func TestClient_Archive_Error(t *testing.T) {
	mock := &mockMinioClient{
		fPutObjectFunc: func(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
			return minio.UploadInfo{}, errors.New("network down")
		},
	}

	client, err := newClientWithMinio(context.Background(), mock, "archive")
	if err != nil {
		t.Fatalf("newClientWithMinio failed: %v", err)
	}

	err = client.Archive(context.Background(), "/spool/clip.mp4", "published/vid-1/clip.mp4")
	if err == nil || !strings.Contains(err.Error(), "failed to archive") {
		t.Errorf("expected archive error, got %v", err)
	}
}
