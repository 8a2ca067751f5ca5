// Package storage uploads user files to object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rpupo63/showcase-backend/config"
)

// ObjectStore is the object storage backend.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, bucket, key string) error
	PublicURL(bucket, key string) string
}

// Open builds the store named by STORAGE_DRIVER (s3 or minio).
func Open(ctx context.Context, c map[string]string) (ObjectStore, error) {
	switch driver := config.GetString(c, "STORAGE_DRIVER", "s3"); driver {
	case "s3":
		return NewS3Store(ctx, S3Config{
			Region:        config.GetString(c, "S3_REGION", "us-east-1"),
			Endpoint:      config.GetString(c, "S3_ENDPOINT", ""),
			PublicBaseURL: config.GetString(c, "STORAGE_PUBLIC_BASE_URL", ""),
		})
	case "minio":
		return NewMinIOStore(MinIOConfig{
			Endpoint:      config.GetString(c, "MINIO_ENDPOINT", "localhost:9000"),
			AccessKey:     config.GetString(c, "MINIO_ACCESS_KEY", ""),
			SecretKey:     config.GetString(c, "MINIO_SECRET_KEY", ""),
			UseSSL:        config.GetBool(c, "MINIO_USE_SSL", false),
			PublicBaseURL: config.GetString(c, "STORAGE_PUBLIC_BASE_URL", ""),
		})
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", driver)
	}
}

// joinURL builds base/bucket/key without doubled slashes.
func joinURL(base, bucket, key string) string {
	return strings.TrimRight(base, "/") + "/" + bucket + "/" + strings.TrimLeft(key, "/")
}
