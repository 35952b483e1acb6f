package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/tripchat/tripchat/internal/config"
	"github.com/tripchat/tripchat/internal/dataset"
	"github.com/tripchat/tripchat/internal/observability"
	"github.com/tripchat/tripchat/internal/sqlguard"
	"github.com/tripchat/tripchat/internal/storage"
	s3store "github.com/tripchat/tripchat/internal/storage/s3"
	"github.com/tripchat/tripchat/internal/trips"
)

func main() {
	input := flag.String("input", "", "CSV source: local path or s3://bucket/key")
	batchSize := flag.Int("batch-size", 1000, "rows per insert transaction")
	verify := flag.Bool("verify", false, "print dataset statistics and exit")
	archive := flag.Bool("archive", false, "write a normalized Parquet snapshot to the object store after loading")
	flag.Parse()

	cfg, err := config.Load("tripchat-loader")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stderr)

	ctx := context.Background()
	policy := sqlguard.NewPolicy(sqlguard.DefaultPolicy().DeniedTokens(), cfg.Trips.Table)
	store, err := trips.Open(ctx, trips.Config{
		Path:   cfg.Trips.Path,
		Table:  cfg.Trips.Table,
		RowCap: cfg.Trips.RowCap,
	}, policy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open trip store: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	if *verify {
		stats, err := store.Stats(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dataset stats: %v\n", err)
			os.Exit(1)
		}
		printStats(os.Stdout, stats)
		return
	}

	if strings.TrimSpace(*input) == "" {
		fmt.Fprintln(os.Stderr, "-input is required (or use -verify)")
		os.Exit(1)
	}

	if err := store.EnsureSchema(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "ensure trips schema: %v\n", err)
		os.Exit(1)
	}

	source, err := openSource(ctx, cfg, *input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open source: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = source.Close() }()

	inserter := dataset.Inserter(store)
	var captured *capturingInserter
	if *archive {
		captured = &capturingInserter{next: store}
		inserter = captured
	}

	loader := dataset.NewLoader(logger, inserter, dataset.LoaderConfig{BatchSize: *batchSize})
	started := time.Now()
	summary, err := loader.Load(ctx, source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load failed after %d inserted rows: %v\n", summary.Inserted, err)
		os.Exit(1)
	}
	fmt.Printf("loaded %s in %s: inserted=%d skipped=%d total=%d\n",
		*input, time.Since(started).Round(time.Millisecond),
		summary.Inserted, summary.Skipped, summary.Total)

	if *archive {
		if err := writeArchive(ctx, cfg, logger, captured.records); err != nil {
			fmt.Fprintf(os.Stderr, "archive failed: %v\n", err)
			os.Exit(1)
		}
	}
}

// capturingInserter tees loaded records so the archive step does not re-read
// the table it just wrote.
type capturingInserter struct {
	next    dataset.Inserter
	records []trips.TripRecord
}

func (c *capturingInserter) InsertBatch(ctx context.Context, records []trips.TripRecord) error {
	if err := c.next.InsertBatch(ctx, records); err != nil {
		return err
	}
	c.records = append(c.records, records...)
	return nil
}

func openSource(ctx context.Context, cfg config.Config, ref string) (io.ReadCloser, error) {
	if !strings.HasPrefix(ref, "s3://") {
		return os.Open(ref)
	}

	bucket, key, err := storage.ParseS3Ref(ref)
	if err != nil {
		return nil, err
	}
	if bucket != cfg.ObjectStore.Bucket {
		return nil, fmt.Errorf("bucket %q does not match configured S3_BUCKET %q", bucket, cfg.ObjectStore.Bucket)
	}
	objectStore, err := newObjectStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return objectStore.Fetch(ctx, key)
}

func writeArchive(ctx context.Context, cfg config.Config, logger *slog.Logger, records []trips.TripRecord) error {
	encoded, err := dataset.EncodeTripsParquet(records)
	if err != nil {
		return err
	}
	objectStore, err := newObjectStore(ctx, cfg)
	if err != nil {
		return err
	}
	info, err := objectStore.PutArchive(ctx, cfg.Trips.Table, time.Now(),
		bytes.NewReader(encoded.Data), int64(len(encoded.Data)))
	if err != nil {
		return err
	}
	logger.Info("archived snapshot",
		slog.String("key", info.Key),
		slog.Int64("records", encoded.RecordCount),
		slog.Int64("bytes", info.Size))
	return nil
}

func newObjectStore(ctx context.Context, cfg config.Config) (storage.ObjectStore, error) {
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
		return nil, err
	}
	return store, nil
}

func printStats(w io.Writer, stats trips.DatasetStats) {
	fmt.Fprintf(w, "Total trips: %d\n", stats.TotalTrips)
	if stats.TotalTrips == 0 {
		fmt.Fprintln(w, "No data loaded. Run tripchat-loader -input <csv> first.")
		return
	}

	fmt.Fprintln(w, "\nBooking status breakdown:")
	printBreakdown(w, stats.StatusBreakdown, stats.TotalTrips)
	fmt.Fprintln(w, "\nVehicle type breakdown:")
	printBreakdown(w, stats.VehicleBreakdown, stats.TotalTrips)
	fmt.Fprintln(w, "\nPayment method breakdown:")
	printBreakdown(w, stats.PaymentBreakdown, stats.TotalTrips)

	if stats.DateRange != nil {
		fmt.Fprintf(w, "\nDate range: %s to %s\n",
			stats.DateRange.Earliest.Format("2006-01-02"),
			stats.DateRange.Latest.Format("2006-01-02"))
	}
	if stats.Revenue != nil {
		fmt.Fprintf(w, "\nRevenue: total=%.2f average=%.2f paid_trips=%d\n",
			stats.Revenue.Total, stats.Revenue.Average, stats.Revenue.PaidTrips)
	}
	if stats.Distance != nil {
		fmt.Fprintf(w, "Distance (km): avg=%.1f max=%.0f min=%.0f\n",
			stats.Distance.Average, stats.Distance.Max, stats.Distance.Min)
	}
}

func printBreakdown(w io.Writer, breakdown []trips.CategoryCount, total int64) {
	for _, entry := range breakdown {
		percentage := float64(entry.Count) / float64(total) * 100
		fmt.Fprintf(w, "  %s: %d (%.1f%%)\n", entry.Value, entry.Count, percentage)
	}
}
