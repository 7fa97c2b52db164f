package storage

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var _ Provider = (*MinioProvider)(nil)

type MinioProvider struct {
	client *minio.Client
}

// NewMinioProvider initializes the client. useSSL is true for real S3/cloud.
func NewMinioProvider(endpoint, accessKeyID, secretAccessKey string, useSSL bool) (Provider, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioProvider{client: client}, nil
}

// GenerateUploadURL builds a POST policy so the browser uploads directly to
// the bucket; the API never proxies image bytes.
func (m *MinioProvider) GenerateUploadURL(ctx context.Context, cfg UploadConfig) (string, map[string]string, error) {
	policy := minio.NewPostPolicy()

	if err := policy.SetBucket(string(cfg.Bucket)); err != nil {
		return "", nil, fmt.Errorf("failed to set bucket: %w", err)
	}
	if err := policy.SetKey(cfg.Key); err != nil {
		return "", nil, fmt.Errorf("failed to set key: %w", err)
	}
	if err := policy.SetExpires(time.Now().Add(cfg.Expiry).UTC()); err != nil {
		return "", nil, fmt.Errorf("failed to set expiry: %w", err)
	}

	// Lower bound blocks empty-file spam, upper bound storage exhaustion.
	if err := policy.SetContentLengthRange(1, cfg.MaxFileSize); err != nil {
		return "", nil, fmt.Errorf("failed to set size limit: %w", err)
	}

	// The upload must match this type exactly, no MIME spoofing.
	if err := policy.SetContentType(cfg.ContentType); err != nil {
		return "", nil, fmt.Errorf("failed to set content type: %w", err)
	}

	url, formData, err := m.client.PresignedPostPolicy(ctx, policy)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate post policy: %w", err)
	}

	return url.String(), formData, nil
}

func (m *MinioProvider) Delete(ctx context.Context, bucket Bucket, key string) error {
	err := m.client.RemoveObject(ctx, string(bucket), key, minio.RemoveObjectOptions{})
	if err != nil {
		return mapMinioError(err)
	}
	return nil
}

// mapMinioError translates SDK errors into our domain errors.
func mapMinioError(err error) error {
	if err == nil {
		return nil
	}

	errResp := minio.ToErrorResponse(err)
	switch errResp.Code {
	case "NoSuchKey":
		return ErrNotFound
	case "AccessDenied":
		return ErrAccessDenied
	}
	if errResp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if errResp.StatusCode == http.StatusForbidden {
		return ErrAccessDenied
	}

	return fmt.Errorf("storage provider error: %w", err)
}
