package storage

import (
	"testing"
	"time"
)

func TestRawDatasetKey(t *testing.T) {
	key, err := RawDatasetKey("uber_data.csv")
	if err != nil {
		t.Fatalf("RawDatasetKey() error = %v", err)
	}
	if key != "datasets/raw/uber_data.csv" {
		t.Fatalf("RawDatasetKey() = %q", key)
	}
}

func TestRawDatasetKeyRejectsInvalidComponent(t *testing.T) {
	for _, name := range []string{"../oops", "a/b.csv", "", "-leading-dash"} {
		if _, err := RawDatasetKey(name); err == nil {
			t.Fatalf("RawDatasetKey(%q) expected error", name)
		}
	}
}

func TestArchiveKey(t *testing.T) {
	ts := time.Date(2026, time.February, 19, 4, 5, 6, 0, time.FixedZone("x", -5*3600))
	key, err := ArchiveKey("uber_trips", ts)
	if err != nil {
		t.Fatalf("ArchiveKey() error = %v", err)
	}
	want := "datasets/archive/uber_trips_20260219T090506Z.parquet"
	if key != want {
		t.Fatalf("ArchiveKey() = %q, want %q", key, want)
	}
}

func TestParseS3Ref(t *testing.T) {
	bucket, key, err := ParseS3Ref("s3://tripchat/datasets/raw/uber_data.csv")
	if err != nil {
		t.Fatalf("ParseS3Ref() error = %v", err)
	}
	if bucket != "tripchat" || key != "datasets/raw/uber_data.csv" {
		t.Fatalf("ParseS3Ref() = %q, %q", bucket, key)
	}
}

func TestParseS3RefRejectsMalformedRefs(t *testing.T) {
	for _, ref := range []string{"http://x/y", "s3://", "s3://bucket", "s3://bucket/"} {
		if _, _, err := ParseS3Ref(ref); err == nil {
			t.Fatalf("ParseS3Ref(%q) expected error", ref)
		}
	}
}
