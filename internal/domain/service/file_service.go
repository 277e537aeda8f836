package service

import (
	"context"
	"io"
)

// FileUploadService stores user uploaded images and returns their public URL.
type FileUploadService interface {
	UploadFile(ctx context.Context, file io.Reader, contentType, objectName string) (string, error)
	DeleteFile(ctx context.Context, fileURL string) error
	Close() error
}
