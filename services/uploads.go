package services

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rpupo63/inkwell-backend/errs"
	"github.com/rpupo63/inkwell-backend/storage"
	"github.com/rs/zerolog"
)

const (
	MaxProfileImageBytes = 5 << 20
	MaxCoverImageBytes   = 10 << 20

	EntityProfiles   = "profiles"
	EntityBlogCovers = "blog-covers"
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Image is an uploaded file as read from a multipart form.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ValidateImage checks the file type and size. An absent or generic declared type
// is replaced by the sniffed one.
func ValidateImage(img *Image, maxBytes int) error {
	if img == nil || img.Filename == "" || len(img.Data) == 0 {
		return errs.NewMissingRequiredFieldError("file")
	}

	contentType := strings.ToLower(strings.TrimSpace(strings.Split(img.ContentType, ";")[0]))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(img.Data)
	}
	if !allowedImageTypes[contentType] {
		return errs.NewInvalidFieldError("file", fmt.Sprintf("file type %s not allowed", contentType))
	}
	img.ContentType = contentType

	if len(img.Data) > maxBytes {
		return errs.NewInvalidFieldError("file", fmt.Sprintf("file size must be less than %dMB", maxBytes>>20))
	}
	return nil
}

// ObjectPath names a new object: {entityType}/{entityID}/{uuid}{ext}. The extension
// comes from the filename and defaults to .jpg.
func ObjectPath(entityType string, entityID uuid.UUID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" || ext == "." {
		ext = ".jpg"
	}
	return fmt.Sprintf("%s/%s/%s%s", entityType, entityID, uuid.New(), ext)
}

// replaceImage uploads img and then deletes the object behind oldURL. The delete is
// best-effort: a leftover object is logged, never returned.
func replaceImage(ctx context.Context, objects storage.ObjectStore, logger zerolog.Logger, oldURL *string, path string, img *Image) (string, error) {
	if objects == nil {
		return "", errs.NewApiErr(http.StatusServiceUnavailable, "image storage is not configured")
	}
	url, err := objects.Upload(ctx, path, img.Data, img.ContentType)
	if err != nil {
		return "", errs.NewStorageError("upload image", err)
	}
	if oldURL != nil {
		removeImage(ctx, objects, logger, *oldURL)
	}
	return url, nil
}

// removeImage deletes the object behind url and reports whether it did.
func removeImage(ctx context.Context, objects storage.ObjectStore, logger zerolog.Logger, url string) bool {
	if objects == nil {
		return false
	}
	path, ok := objects.PathFromURL(url)
	if !ok {
		logger.Warn().Str("url", url).Msg("image url is not served by the object store, leaving it")
		return false
	}
	if err := objects.Delete(ctx, path); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("failed to delete old image")
		return false
	}
	return true
}
