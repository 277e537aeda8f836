package usecase

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"nearbuy/internal/domain/service"
	"nearbuy/pkg/errors"
	"nearbuy/pkg/logger"
)

var imageContentTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
}

type UploadUseCase struct {
	store   service.FileUploadService
	maxSize int64
	now     func() time.Time
}

func NewUploadUseCase(store service.FileUploadService, maxSize int64) *UploadUseCase {
	return &UploadUseCase{
		store:   store,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// UploadImage decodes a base64 image (optionally a data URI) and stores it as
// listing_<unix ms>.<ext>.
func (uc *UploadUseCase) UploadImage(ctx context.Context, userID, encoded, filename string) (string, error) {
	if i := strings.Index(encoded, ","); strings.HasPrefix(encoded, "data:") && i >= 0 {
		encoded = encoded[i+1:]
	}
	if encoded == "" {
		return "", errors.Validation("Image data required")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", errors.BadRequest("Invalid base64 image data", err)
	}
	return uc.StoreImage(ctx, userID, data, filename)
}

// StoreImage stores raw image bytes, named after the extension of filename.
func (uc *UploadUseCase) StoreImage(ctx context.Context, userID string, data []byte, filename string) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	contentType, ok := imageContentTypes[ext]
	if !ok {
		return "", errors.Validation("Invalid file type, allowed: png, jpg, jpeg, gif")
	}
	if len(data) == 0 {
		return "", errors.Validation("Image data required")
	}
	if uc.maxSize > 0 && int64(len(data)) > uc.maxSize {
		return "", errors.BadRequest(fmt.Sprintf("Image exceeds %d bytes", uc.maxSize), nil)
	}

	objectName := fmt.Sprintf("listing_%d.%s", uc.now().UnixMilli(), ext)
	url, err := uc.store.UploadFile(ctx, bytes.NewReader(data), contentType, objectName)
	if err != nil {
		return "", errors.Internal("Failed to store image", err)
	}

	logger.Info("User %s uploaded %s", userID, objectName)
	return url, nil
}

// MaxSize is the largest accepted image in bytes, zero meaning unlimited.
func (uc *UploadUseCase) MaxSize() int64 {
	return uc.maxSize
}
