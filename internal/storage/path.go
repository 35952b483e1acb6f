package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// RawDatasetKey places an uploaded source file under the raw dataset layout,
// datasets/raw/<name>. The name must be a single safe path component.
func RawDatasetKey(name string) (string, error) {
	if err := validatePathComponent(name, "dataset name"); err != nil {
		return "", err
	}
	return path.Join("datasets", "raw", name), nil
}

// ArchiveKey names a normalized Parquet snapshot of a loaded table,
// datasets/archive/<table>_<timestamp>.parquet.
func ArchiveKey(table string, loadedAt time.Time) (string, error) {
	if err := validatePathComponent(table, "table name"); err != nil {
		return "", err
	}
	ts := loadedAt.UTC().Format("20060102T150405Z")
	return path.Join("datasets", "archive", fmt.Sprintf("%s_%s.parquet", table, ts)), nil
}

// ParseS3Ref splits an s3://bucket/key reference. The key may span multiple
// path segments; bucket and key must both be present.
func ParseS3Ref(ref string) (bucket, key string, err error) {
	const scheme = "s3://"
	if !strings.HasPrefix(ref, scheme) {
		return "", "", fmt.Errorf("not an s3 reference: %q", ref)
	}
	rest := strings.TrimPrefix(ref, scheme)
	bucket, key, found := strings.Cut(rest, "/")
	if !found || bucket == "" || strings.TrimSpace(key) == "" {
		return "", "", fmt.Errorf("invalid s3 reference %q: expected s3://bucket/key", ref)
	}
	return bucket, key, nil
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
