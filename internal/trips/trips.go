// Package trips owns the DuckDB store holding the uber_trips table: schema
// management, batch loading, introspection for prompt context, and guarded
// execution of model-generated SQL.
package trips

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/tripchat/tripchat/internal/sqlguard"
)

// TripRecord is one historical ride booking. Immutable once loaded; nullable
// source fields are pointers so the loader can carry NULLs through.
type TripRecord struct {
	Date                    *time.Time
	Time                    string
	BookingID               string
	CustomerID              string
	BookingStatus           *string
	VehicleType             *string
	PickupLocation          *string
	DropLocation            *string
	VTAT                    *int
	CTAT                    *int
	CanceledRidesByCustomer *string
	CanceledRidesByDriver   *string
	IncompleteRides         *string
	IncompleteRidesReason   *string
	BookingValue            *float64
	PaymentMethod           *string
	RideDistance            *int
	DriverRatings           *float64
	CustomerRating          *float64
}

type Config struct {
	// Path of the DuckDB file; empty opens an in-memory database.
	Path   string
	Table  string
	RowCap int
}

type Store struct {
	db     *sql.DB
	table  string
	rowCap int
	policy sqlguard.Policy
}

func Open(ctx context.Context, cfg Config, policy sqlguard.Policy) (*Store, error) {
	if cfg.Table == "" {
		return nil, fmt.Errorf("trips table name is required")
	}
	if cfg.RowCap <= 0 {
		return nil, fmt.Errorf("row cap must be positive, got %d", cfg.RowCap)
	}

	if cfg.Path != "" {
		if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create trips db directory: %w", err)
			}
		}
	}

	db, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}

	return &Store{db: db, table: cfg.Table, rowCap: cfg.RowCap, policy: policy}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Table() string {
	return s.table
}

// EnsureSchema creates the trip table and its id sequence when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	seq := quoteIdent(s.table + "_id_seq")
	ddl := []string{
		fmt.Sprintf(`CREATE SEQUENCE IF NOT EXISTS %s`, seq),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGINT PRIMARY KEY DEFAULT nextval('%s'),
			date TIMESTAMP,
			time VARCHAR,
			booking_id VARCHAR NOT NULL UNIQUE,
			customer_id VARCHAR,
			booking_status VARCHAR,
			vehicle_type VARCHAR,
			pickup_location VARCHAR,
			drop_location VARCHAR,
			v_tat INTEGER,
			c_tat INTEGER,
			canceled_rides_by_customer VARCHAR,
			canceled_rides_by_driver VARCHAR,
			incomplete_rides VARCHAR,
			incomplete_rides_reason VARCHAR,
			booking_value DOUBLE,
			payment_method VARCHAR,
			ride_distance INTEGER,
			driver_ratings DOUBLE,
			customer_rating DOUBLE,
			created_at TIMESTAMP DEFAULT current_timestamp
		)`, quoteIdent(s.table), s.table+"_id_seq"),
	}
	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure trips schema: %w", err)
		}
	}
	return nil
}

// InsertBatch writes records in one transaction. The caller decides batch
// sizing; a failure rolls the whole batch back.
func (s *Store) InsertBatch(ctx context.Context, records []TripRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin trips batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s (
		date, time, booking_id, customer_id, booking_status, vehicle_type,
		pickup_location, drop_location, v_tat, c_tat,
		canceled_rides_by_customer, canceled_rides_by_driver,
		incomplete_rides, incomplete_rides_reason,
		booking_value, payment_method, ride_distance,
		driver_ratings, customer_rating
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, quoteIdent(s.table)))
	if err != nil {
		return fmt.Errorf("prepare trips insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.Date, r.Time, r.BookingID, r.CustomerID, r.BookingStatus, r.VehicleType,
			r.PickupLocation, r.DropLocation, r.VTAT, r.CTAT,
			r.CanceledRidesByCustomer, r.CanceledRidesByDriver,
			r.IncompleteRides, r.IncompleteRidesReason,
			r.BookingValue, r.PaymentMethod, r.RideDistance,
			r.DriverRatings, r.CustomerRating,
		); err != nil {
			return fmt.Errorf("insert trip %q: %w", r.BookingID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit trips batch: %w", err)
	}
	return nil
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
