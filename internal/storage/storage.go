package storage

import (
	"context"
	"errors"
	"time"
)

// Bucket is a logical storage zone; a named type stops random strings
// reaching the SDK.
type Bucket string

var (
	ErrNotFound     = errors.New("storage: object not found")
	ErrAccessDenied = errors.New("storage: access denied")
)

type UploadConfig struct {
	Bucket      Bucket
	Key         string
	ContentType string
	MaxFileSize int64
	Expiry      time.Duration
}

// Provider abstracts MinIO, S3 or anything speaking the same protocol.
type Provider interface {
	// GenerateUploadURL returns a presigned POST policy URL plus the form
	// fields the browser must submit with it.
	GenerateUploadURL(ctx context.Context, cfg UploadConfig) (string, map[string]string, error)

	// Delete removes an object. Missing objects map to ErrNotFound.
	Delete(ctx context.Context, bucket Bucket, key string) error
}
