// Package dataset loads the trip CSV export into the trip store and encodes
// normalized Parquet snapshots for archival.
package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/tripchat/tripchat/internal/trips"
)

// maxReportedRowErrors bounds per-row error logging on messy exports.
const maxReportedRowErrors = 10

// Inserter is the trip-store surface the loader needs.
type Inserter interface {
	InsertBatch(ctx context.Context, records []trips.TripRecord) error
}

type LoadSummary struct {
	Inserted int
	Skipped  int
	Total    int
}

type LoaderConfig struct {
	// BatchSize is the number of rows per insert transaction; defaults to 1000.
	BatchSize int
}

type Loader struct {
	inserter  Inserter
	batchSize int
	logger    *slog.Logger
}

func NewLoader(logger *slog.Logger, inserter Inserter, cfg LoaderConfig) *Loader {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{inserter: inserter, batchSize: batchSize, logger: logger}
}

// Load streams a CSV export into the trip store. Column order is taken from
// the header row; unknown and unnamed columns are ignored. Malformed rows are
// skipped, never fatal; a batch insert failure aborts the load.
func (l *Loader) Load(ctx context.Context, r io.Reader) (LoadSummary, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return LoadSummary{}, fmt.Errorf("read csv header: %w", err)
	}
	columns, err := mapHeader(header)
	if err != nil {
		return LoadSummary{}, err
	}

	var summary LoadSummary
	batch := make([]trips.TripRecord, 0, l.batchSize)
	reportedErrors := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := l.inserter.InsertBatch(ctx, batch); err != nil {
			return fmt.Errorf("insert batch ending at row %d: %w", summary.Total, err)
		}
		summary.Inserted += len(batch)
		batch = batch[:0]
		return nil
	}

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return summary, fmt.Errorf("read csv row %d: %w", summary.Total+1, err)
		}
		summary.Total++

		record, err := parseRow(columns, row)
		if err != nil {
			summary.Skipped++
			if reportedErrors < maxReportedRowErrors {
				reportedErrors++
				l.logger.Warn("skipping row",
					slog.Int("row", summary.Total),
					slog.String("error", err.Error()))
			}
			continue
		}

		batch = append(batch, record)
		if len(batch) >= l.batchSize {
			if err := flush(); err != nil {
				return summary, err
			}
			l.logger.Info("load progress",
				slog.Int("inserted", summary.Inserted),
				slog.Int("skipped", summary.Skipped))
		}
	}

	if err := flush(); err != nil {
		return summary, err
	}
	return summary, nil
}

// headerIndex maps the export's column names to their positions. Missing
// optional columns stay at -1 and parse to NULL.
type headerIndex map[string]int

var expectedColumns = []string{
	"Date", "Time", "Booking_ID", "Customer_ID", "Booking_Status",
	"Vehicle_Type", "Pickup_Location", "Drop_Location", "V_TAT", "C_TAT",
	"Canceled_Rides_by_Customer", "Canceled_Rides_by_Driver",
	"Incomplete_Rides", "Incomplete_Rides_Reason", "Booking_Value",
	"Payment_Method", "Ride_Distance", "Driver_Ratings", "Customer_Rating",
}

func mapHeader(header []string) (headerIndex, error) {
	index := make(headerIndex, len(expectedColumns))
	for _, name := range expectedColumns {
		index[name] = -1
	}
	for i, raw := range header {
		name := strings.TrimSpace(raw)
		if name == "" || strings.HasPrefix(name, "Unnamed") {
			continue
		}
		if _, known := index[name]; known {
			index[name] = i
		}
	}
	if index["Booking_ID"] < 0 {
		return nil, fmt.Errorf("csv header is missing Booking_ID (got %v)", header)
	}
	if index["Date"] < 0 {
		return nil, fmt.Errorf("csv header is missing Date (got %v)", header)
	}
	return index, nil
}

func (h headerIndex) value(row []string, column string) string {
	i := h[column]
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func parseRow(columns headerIndex, row []string) (trips.TripRecord, error) {
	bookingID, ok := cleanValue(columns.value(row, "Booking_ID"))
	if !ok {
		return trips.TripRecord{}, fmt.Errorf("missing booking id")
	}

	date, err := parseDate(columns.value(row, "Date"))
	if err != nil {
		return trips.TripRecord{}, fmt.Errorf("booking %s: %w", bookingID, err)
	}
	vTAT, err := parseNullableInt(columns.value(row, "V_TAT"))
	if err != nil {
		return trips.TripRecord{}, fmt.Errorf("booking %s: v_tat: %w", bookingID, err)
	}
	cTAT, err := parseNullableInt(columns.value(row, "C_TAT"))
	if err != nil {
		return trips.TripRecord{}, fmt.Errorf("booking %s: c_tat: %w", bookingID, err)
	}
	bookingValue, err := parseNullableFloat(columns.value(row, "Booking_Value"))
	if err != nil {
		return trips.TripRecord{}, fmt.Errorf("booking %s: booking_value: %w", bookingID, err)
	}
	rideDistance, err := parseNullableInt(columns.value(row, "Ride_Distance"))
	if err != nil {
		return trips.TripRecord{}, fmt.Errorf("booking %s: ride_distance: %w", bookingID, err)
	}
	driverRatings, err := parseNullableFloat(columns.value(row, "Driver_Ratings"))
	if err != nil {
		return trips.TripRecord{}, fmt.Errorf("booking %s: driver_ratings: %w", bookingID, err)
	}
	customerRating, err := parseNullableFloat(columns.value(row, "Customer_Rating"))
	if err != nil {
		return trips.TripRecord{}, fmt.Errorf("booking %s: customer_rating: %w", bookingID, err)
	}

	customerID, _ := cleanValue(columns.value(row, "Customer_ID"))
	return trips.TripRecord{
		Date:                    date,
		Time:                    strings.TrimSpace(columns.value(row, "Time")),
		BookingID:               bookingID,
		CustomerID:              customerID,
		BookingStatus:           nullableString(columns.value(row, "Booking_Status")),
		VehicleType:             nullableString(columns.value(row, "Vehicle_Type")),
		PickupLocation:          nullableString(columns.value(row, "Pickup_Location")),
		DropLocation:            nullableString(columns.value(row, "Drop_Location")),
		VTAT:                    vTAT,
		CTAT:                    cTAT,
		CanceledRidesByCustomer: nullableString(columns.value(row, "Canceled_Rides_by_Customer")),
		CanceledRidesByDriver:   nullableString(columns.value(row, "Canceled_Rides_by_Driver")),
		IncompleteRides:         nullableString(columns.value(row, "Incomplete_Rides")),
		IncompleteRidesReason:   nullableString(columns.value(row, "Incomplete_Rides_Reason")),
		BookingValue:            bookingValue,
		PaymentMethod:           nullableString(columns.value(row, "Payment_Method")),
		RideDistance:            rideDistance,
		DriverRatings:           driverRatings,
		CustomerRating:          customerRating,
	}, nil
}

// cleanValue normalizes source cells: empty, whitespace-only, and any casing
// of "null" all read as NULL.
func cleanValue(raw string) (string, bool) {
	value := strings.TrimSpace(raw)
	if value == "" || strings.EqualFold(value, "null") {
		return "", false
	}
	return value, true
}

func nullableString(raw string) *string {
	value, ok := cleanValue(raw)
	if !ok {
		return nil
	}
	return &value
}

var dateLayouts = []string{"2006-01-02 15:04:05", "2006-01-02"}

func parseDate(raw string) (*time.Time, error) {
	value, ok := cleanValue(raw)
	if !ok {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return &parsed, nil
		}
	}
	return nil, fmt.Errorf("unparseable date %q", value)
}

// parseNullableInt accepts integral floats ("24.0") since the export renders
// integer columns that way when rows carry NULLs elsewhere.
func parseNullableInt(raw string) (*int, error) {
	value, ok := cleanValue(raw)
	if !ok {
		return nil, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid integer %q", value)
	}
	n := int(parsed)
	return &n, nil
}

func parseNullableFloat(raw string) (*float64, error) {
	value, ok := cleanValue(raw)
	if !ok {
		return nil, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", value)
	}
	return &parsed, nil
}
