package storage

import (
	"context"
	"errors"
	"io"
)

// ErrTransferFailed wraps any network or storage failure mid-upload. It is
// surfaced per file and never aborts sibling uploads.
var ErrTransferFailed = errors.New("transfer failed")

// ProgressFunc receives transfer progress as a percentage 0-100.
type ProgressFunc func(percent int)

// ObjectStore is the upload transport contract: accept a destination key,
// raw bytes and a content type, report progress, return the stored object's
// URL. The core never knows the backend's actual wire protocol.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, size int64, body io.Reader, progress ProgressFunc) (string, error)
	Delete(ctx context.Context, key string) error
	ObjectURL(key string) string
}
