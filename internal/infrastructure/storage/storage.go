package storage

import (
	"context"
	"fmt"

	"google.golang.org/api/option"

	"nearbuy/internal/domain/service"
	"nearbuy/pkg/config"
)

// New builds the file store selected by STORAGE_DRIVER.
func New(ctx context.Context, cfg *config.Config, gcsOpts ...option.ClientOption) (service.FileUploadService, error) {
	switch cfg.StorageDriver {
	case "local", "":
		return NewLocalStore(cfg.UploadDir, cfg.UploadBaseURL)
	case "gcs":
		return NewCloudStorageClient(ctx, cfg.GCSBucket, gcsOpts...)
	case "s3":
		return NewS3Client(ctx, S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.AWSAccessKey,
			SecretKey: cfg.AWSSecretKey,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
