package images

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"marketplace/internal/errors"
	"marketplace/internal/storage"
)

type PresignRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

type PresignResponse struct {
	UploadURL string            `json:"uploadUrl"`
	FormData  map[string]string `json:"fields"`
	Key       string            `json:"key"`
	// PublicURL is what the caller puts into the product's image field once
	// the upload finishes.
	PublicURL string `json:"publicUrl"`
}

const (
	maxImageSize = 5 * 1024 * 1024
	uploadExpiry = 15 * time.Minute
)

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

type service struct {
	storage   storage.Provider
	bucket    storage.Bucket
	publicURL string
}

func NewImageService(provider storage.Provider, bucket storage.Bucket, publicURL string) *service {
	return &service{
		storage:   provider,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// PresignUpload hands the browser a short-lived POST policy so image bytes
// never pass through the API.
func (s *service) PresignUpload(ctx context.Context, req PresignRequest) (*PresignResponse, error) {
	if !slices.Contains(allowedImageTypes, req.ContentType) {
		return nil, errors.New(errors.ErrInvalidInput,
			fmt.Sprintf("Content type '%s' is not allowed for image uploads", req.ContentType), nil)
	}

	ext := strings.ToLower(filepath.Ext(req.Filename))
	if ext == "" {
		return nil, errors.New(errors.ErrInvalidInput, "Filename must have an extension", nil)
	}

	key := generateStorageKey(ext)

	url, formData, err := s.storage.GenerateUploadURL(ctx, storage.UploadConfig{
		Bucket:      s.bucket,
		Key:         key,
		ContentType: req.ContentType,
		MaxFileSize: maxImageSize,
		Expiry:      uploadExpiry,
	})
	if err != nil {
		return nil, errors.New(errors.ErrInternal, "Failed to generate upload signature", err)
	}

	return &PresignResponse{
		UploadURL: url,
		FormData:  formData,
		Key:       key,
		PublicURL: s.publicURL + "/" + key,
	}, nil
}

// generateStorageKey produces images/YYYY/MM/DD/<uuid>.<ext>. A random name
// keeps uploads from clobbering each other and hides the original filename.
func generateStorageKey(ext string) string {
	now := time.Now()
	datePrefix := fmt.Sprintf("%d/%02d/%02d", now.Year(), now.Month(), now.Day())
	return path.Join("images", datePrefix, uuid.NewString()+ext)
}
