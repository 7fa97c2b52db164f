package images

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/errors"
	"marketplace/internal/storage"
)

type stubProvider struct {
	lastConfig storage.UploadConfig
}

func (p *stubProvider) GenerateUploadURL(ctx context.Context, cfg storage.UploadConfig) (string, map[string]string, error) {
	p.lastConfig = cfg
	return "https://s3.example/upload", map[string]string{"policy": "signed"}, nil
}

func (p *stubProvider) Delete(ctx context.Context, bucket storage.Bucket, key string) error {
	return nil
}

func TestPresignUpload_Success(t *testing.T) {
	provider := &stubProvider{}
	svc := NewImageService(provider, "product-images", "http://localhost:9000/product-images/")

	resp, err := svc.PresignUpload(context.Background(), PresignRequest{
		Filename:    "lamp.JPG",
		ContentType: "image/jpeg",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://s3.example/upload", resp.UploadURL)
	assert.Equal(t, map[string]string{"policy": "signed"}, resp.FormData)
	assert.True(t, strings.HasPrefix(resp.Key, "images/"))
	assert.True(t, strings.HasSuffix(resp.Key, ".jpg"), "extension is lowercased: %s", resp.Key)
	assert.Equal(t, "http://localhost:9000/product-images/"+resp.Key, resp.PublicURL)

	assert.Equal(t, storage.Bucket("product-images"), provider.lastConfig.Bucket)
	assert.Equal(t, "image/jpeg", provider.lastConfig.ContentType)
	assert.Equal(t, int64(maxImageSize), provider.lastConfig.MaxFileSize)
}

func TestPresignUpload_RejectsNonImageContentType(t *testing.T) {
	svc := NewImageService(&stubProvider{}, "product-images", "http://localhost:9000/product-images")

	_, err := svc.PresignUpload(context.Background(), PresignRequest{
		Filename:    "model.stl",
		ContentType: "application/octet-stream",
	})
	require.Error(t, err)

	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrInvalidInput, appErr.Code)
}

func TestPresignUpload_RequiresExtension(t *testing.T) {
	svc := NewImageService(&stubProvider{}, "product-images", "http://localhost:9000/product-images")

	_, err := svc.PresignUpload(context.Background(), PresignRequest{
		Filename:    "noextension",
		ContentType: "image/png",
	})
	require.Error(t, err)

	appErr, ok := err.(*errors.AppError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrInvalidInput, appErr.Code)
}
