// Package storage is the object-storage boundary of the archiver: a narrow,
// S3-compatible uploader for finished artifacts. There is no download path;
// the archiver never reads back what it uploads.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1
// and the implementation will buffer/chunk as supported by the backend.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about an uploaded object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

// Storage is the durable object-storage client used for artifact uploads.
// Put does not retry; retry policy belongs to the scheduler invoking the
// archiver.
type Storage interface {
	// Put uploads an object under the given key.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Delete removes an object by key.
	Delete(ctx context.Context, key string) error
	// Ping verifies the transport is reachable and the target bucket exists.
	// The orchestrator calls it before any packing work starts.
	Ping(ctx context.Context) error
}

// UploadFile streams a local artifact file to storage under key. The object
// key keeps the artifact's basename so the remote copy is addressable by
// (namespace, basename).
func UploadFile(ctx context.Context, st Storage, path, key string) (ObjectInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("stat artifact: %w", err)
	}

	info, err := st.Put(ctx, key, f, PutObjectOptions{
		Size:        fi.Size(),
		ContentType: "application/octet-stream",
		Metadata: map[string]string{
			"artifact-filename": filepath.Base(path),
		},
	})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("upload artifact: %w", err)
	}
	return info, nil
}
