// Package storage moves database snapshots to remote object storage.
package storage

import (
	"context"
	"time"
)

type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified *time.Time
}

// UploadOptions names the destination of a single upload.
type UploadOptions struct {
	Bucket      string
	Key         string
	ContentType string
}

// Service stores snapshot files and manages their retention.
type Service interface {
	UploadFile(ctx context.Context, localPath string, opts UploadOptions) (string, error)
	ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
	DeleteObjects(ctx context.Context, bucket string, keys []string) error
}
