package dataset

import (
	"bytes"
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/tripchat/tripchat/internal/trips"
)

type ParquetEncodeResult struct {
	Data        []byte
	RecordCount int64
	MinDate     *time.Time
	MaxDate     *time.Time
}

type parquetTrip struct {
	BookingID               string   `parquet:"booking_id"`
	CustomerID              string   `parquet:"customer_id"`
	DateUnixMs              *int64   `parquet:"date_unix_ms,optional"`
	Time                    string   `parquet:"time"`
	BookingStatus           *string  `parquet:"booking_status,optional"`
	VehicleType             *string  `parquet:"vehicle_type,optional"`
	PickupLocation          *string  `parquet:"pickup_location,optional"`
	DropLocation            *string  `parquet:"drop_location,optional"`
	VTAT                    *int64   `parquet:"v_tat,optional"`
	CTAT                    *int64   `parquet:"c_tat,optional"`
	CanceledRidesByCustomer *string  `parquet:"canceled_rides_by_customer,optional"`
	CanceledRidesByDriver   *string  `parquet:"canceled_rides_by_driver,optional"`
	IncompleteRides         *string  `parquet:"incomplete_rides,optional"`
	IncompleteRidesReason   *string  `parquet:"incomplete_rides_reason,optional"`
	BookingValue            *float64 `parquet:"booking_value,optional"`
	PaymentMethod           *string  `parquet:"payment_method,optional"`
	RideDistance            *int64   `parquet:"ride_distance,optional"`
	DriverRatings           *float64 `parquet:"driver_ratings,optional"`
	CustomerRating          *float64 `parquet:"customer_rating,optional"`
}

// EncodeTripsParquet renders normalized records as a Parquet payload for the
// archive layout, tracking the covered date range for the snapshot name.
func EncodeTripsParquet(records []trips.TripRecord) (ParquetEncodeResult, error) {
	if len(records) == 0 {
		return ParquetEncodeResult{}, fmt.Errorf("records are required")
	}

	rows := make([]parquetTrip, 0, len(records))
	var minDate *time.Time
	var maxDate *time.Time

	for _, record := range records {
		row := parquetTrip{
			BookingID:               record.BookingID,
			CustomerID:              record.CustomerID,
			Time:                    record.Time,
			BookingStatus:           record.BookingStatus,
			VehicleType:             record.VehicleType,
			PickupLocation:          record.PickupLocation,
			DropLocation:            record.DropLocation,
			VTAT:                    intPtr64(record.VTAT),
			CTAT:                    intPtr64(record.CTAT),
			CanceledRidesByCustomer: record.CanceledRidesByCustomer,
			CanceledRidesByDriver:   record.CanceledRidesByDriver,
			IncompleteRides:         record.IncompleteRides,
			IncompleteRidesReason:   record.IncompleteRidesReason,
			BookingValue:            record.BookingValue,
			PaymentMethod:           record.PaymentMethod,
			RideDistance:            intPtr64(record.RideDistance),
			DriverRatings:           record.DriverRatings,
			CustomerRating:          record.CustomerRating,
		}
		if record.Date != nil {
			ms := record.Date.UTC().UnixMilli()
			row.DateUnixMs = &ms

			date := record.Date.UTC()
			if minDate == nil || date.Before(*minDate) {
				copied := date
				minDate = &copied
			}
			if maxDate == nil || date.After(*maxDate) {
				copied := date
				maxDate = &copied
			}
		}
		rows = append(rows, row)
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[parquetTrip](buf)
	if _, err := writer.Write(rows); err != nil {
		return ParquetEncodeResult{}, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return ParquetEncodeResult{}, fmt.Errorf("close parquet writer: %w", err)
	}

	return ParquetEncodeResult{
		Data:        buf.Bytes(),
		RecordCount: int64(len(rows)),
		MinDate:     minDate,
		MaxDate:     maxDate,
	}, nil
}

func intPtr64(v *int) *int64 {
	if v == nil {
		return nil
	}
	converted := int64(*v)
	return &converted
}
