package export

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/rpggio/rollcall/internal/config"
)

// MinIOArchive uploads exports to an S3-compatible bucket.
type MinIOArchive struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinIOArchive creates a client for cfg. No request is made until use.
func NewMinIOArchive(cfg config.MinIOConfig) (*MinIOArchive, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinIOArchive{client: client, bucket: cfg.Bucket, prefix: "exports"}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (a *MinIOArchive) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
	}
	return nil
}

// ObjectKey returns the object key for an export file name.
func (a *MinIOArchive) ObjectKey(name string) string {
	return path.Join(a.prefix, name)
}

// Archive uploads data under the export prefix.
func (a *MinIOArchive) Archive(ctx context.Context, name string, data []byte, contentType string) error {
	if err := a.EnsureBucket(ctx); err != nil {
		return err
	}
	key := a.ObjectKey(name)
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}
