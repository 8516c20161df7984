// Package storage abstracts where uploaded files live. Refs handed out by a
// FileStore are opaque; callers persist them verbatim and hand them back for
// deletion.
package storage

import "context"

// Upload carries the raw bytes of an incoming file.
type Upload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// FileStore saves uploads and deletes previously stored files.
//
// Delete is idempotent: deleting a ref that no longer exists is not an error.
type FileStore interface {
	Save(ctx context.Context, up *Upload) (string, error)
	Delete(ctx context.Context, ref string) error
}
