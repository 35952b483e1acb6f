// Package storage moves dataset files through the object store. Raw CSV
// drops land under datasets/raw/, normalized Parquet snapshots under
// datasets/archive/, and the loader fetches either back by key.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

// ObjectStore is the surface the dataset tooling needs: stage a raw CSV,
// archive a Parquet snapshot, and read an object back. Key layout and
// content types are the store's business, not the caller's.
type ObjectStore interface {
	PutRawDataset(ctx context.Context, name string, body io.Reader, size int64) (ObjectInfo, error)
	PutArchive(ctx context.Context, table string, loadedAt time.Time, body io.Reader, size int64) (ObjectInfo, error)
	Fetch(ctx context.Context, key string) (io.ReadCloser, error)
}
