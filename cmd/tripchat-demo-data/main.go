package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tripchat/tripchat/internal/config"
	"github.com/tripchat/tripchat/internal/demo/generator"
	s3store "github.com/tripchat/tripchat/internal/storage/s3"
)

func main() {
	rows := flag.Int("rows", 10000, "number of synthetic trips to generate")
	seed := flag.Int64("seed", time.Now().UTC().UnixNano(), "random seed; fix it for reproducible fixtures")
	out := flag.String("out", "uber_data.csv", "output file path, or - for stdout")
	upload := flag.Bool("upload", false, "upload to the object store raw layout instead of writing a file")
	flag.Parse()

	gen := generator.New(generator.Config{Seed: *seed})

	if *upload {
		if err := uploadCSV(gen, *rows, *out); err != nil {
			fmt.Fprintf(os.Stderr, "upload failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *out == "-" {
		if err := gen.WriteCSV(os.Stdout, *rows); err != nil {
			fmt.Fprintf(os.Stderr, "generate failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	file, err := os.Create(*out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create %s: %v\n", *out, err)
		os.Exit(1)
	}
	if err := gen.WriteCSV(file, *rows); err != nil {
		_ = file.Close()
		fmt.Fprintf(os.Stderr, "generate failed: %v\n", err)
		os.Exit(1)
	}
	if err := file.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close %s: %v\n", *out, err)
		os.Exit(1)
	}
	fmt.Printf("wrote %d synthetic trips to %s (seed %d)\n", *rows, *out, *seed)
}

func uploadCSV(gen *generator.Generator, rows int, name string) error {
	cfg, err := config.Load("tripchat-demo-data")
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	var buf bytes.Buffer
	if err := gen.WriteCSV(&buf, rows); err != nil {
		return err
	}

	base := strings.TrimSuffix(name, "/")
	if base == "-" || base == "" {
		base = "uber_data.csv"
	}

	ctx := context.Background()
	store, err := s3store.New(ctx, s3store.Config{
		Endpoint:         cfg.ObjectStore.Endpoint,
		Region:           cfg.ObjectStore.Region,
		Bucket:           cfg.ObjectStore.Bucket,
		AccessKeyID:      cfg.ObjectStore.AccessKeyID,
		SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
		UseSSL:           cfg.ObjectStore.UseSSL,
		Prefix:           cfg.ObjectStore.Prefix,
		AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
	})
	if err != nil {
		return err
	}

	info, err := store.PutRawDataset(ctx, base, bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		return err
	}
	fmt.Printf("uploaded %d synthetic trips to s3://%s/%s (%d bytes)\n",
		rows, cfg.ObjectStore.Bucket, info.Key, info.Size)
	return nil
}
