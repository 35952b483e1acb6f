// Package generator produces synthetic trip CSV exports for local
// development; the real export is not redistributable.
package generator

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand"
	"time"
)

// Header matches the column layout the loader expects from the real export.
var Header = []string{
	"Date", "Time", "Booking_ID", "Customer_ID", "Booking_Status",
	"Vehicle_Type", "Pickup_Location", "Drop_Location", "V_TAT", "C_TAT",
	"Canceled_Rides_by_Customer", "Canceled_Rides_by_Driver",
	"Incomplete_Rides", "Incomplete_Rides_Reason", "Booking_Value",
	"Payment_Method", "Ride_Distance", "Driver_Ratings", "Customer_Rating",
}

const (
	statusSuccess            = "Success"
	statusCanceledByDriver   = "Canceled by Driver"
	statusCanceledByCustomer = "Canceled by Customer"
	statusDriverNotFound     = "Driver Not Found"
)

var (
	vehicleTypes = []string{"Prime Sedan", "Bike", "Prime SUV", "eBike", "Mini", "Auto", "Prime Plus"}
	locations    = []string{
		"Palam Vihar", "Jhilmil", "Shastri Nagar", "Gurgaon Sector 56",
		"Khandsa", "Malviya Nagar", "Central Secretariat", "Inderlok",
		"Punjabi Bagh", "Pragati Vihar", "Karol Bagh", "Mayur Vihar",
	}
	paymentMethods = []string{"Cash", "UPI", "Credit Card", "Debit Card"}

	customerCancelReasons = []string{
		"Driver is not moving towards pickup location",
		"Driver asked to cancel",
		"Change of plans",
		"Wrong Address",
	}
	driverCancelReasons = []string{
		"Personal & Car related issue",
		"Customer related issue",
		"Customer was coughing/sick",
		"More than permitted people in there",
	}
	incompleteReasons = []string{"Vehicle Breakdown", "Other Issue", "Customer Demand"}
)

type Config struct {
	// Seed makes output reproducible; required so fixtures are stable.
	Seed int64
	// StartDate is the first bookable day; Days is the window length.
	StartDate time.Time
	Days      int
	// CustomerCardinality bounds distinct customer ids.
	CustomerCardinality int
}

type Generator struct {
	rnd       *rand.Rand
	start     time.Time
	days      int
	customers int
	sequence  int64
}

func New(cfg Config) *Generator {
	start := cfg.StartDate
	if start.IsZero() {
		start = time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)
	}
	days := cfg.Days
	if days <= 0 {
		days = 30
	}
	customers := cfg.CustomerCardinality
	if customers <= 0 {
		customers = 5000
	}
	return &Generator{
		rnd:       rand.New(rand.NewSource(cfg.Seed)),
		start:     start.UTC().Truncate(24 * time.Hour),
		days:      days,
		customers: customers,
	}
}

// WriteCSV emits the header and rows synthetic trips. NULL cells are written
// as the literal "null", matching the real export's rendering.
func (g *Generator) WriteCSV(w io.Writer, rows int) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i := 0; i < rows; i++ {
		if err := writer.Write(g.nextRow()); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func (g *Generator) nextRow() []string {
	g.sequence++

	bookedAt := g.start.
		AddDate(0, 0, g.rnd.Intn(g.days)).
		Add(time.Duration(g.rnd.Intn(24*3600)) * time.Second)
	status := g.pickStatus()

	row := map[string]string{
		"Date":            bookedAt.Format("2006-01-02 15:04:05"),
		"Time":            bookedAt.Format("15:04:05"),
		"Booking_ID":      fmt.Sprintf("CNR%010d", g.sequence),
		"Customer_ID":     fmt.Sprintf("CID%07d", g.rnd.Intn(g.customers)+1),
		"Booking_Status":  status,
		"Vehicle_Type":    pickOne(g.rnd, vehicleTypes),
		"Pickup_Location": pickOne(g.rnd, locations),
		"Drop_Location":   pickOne(g.rnd, locations),
	}

	switch status {
	case statusSuccess:
		row["V_TAT"] = fmt.Sprintf("%d", 2+g.rnd.Intn(18))
		row["C_TAT"] = fmt.Sprintf("%d", 1+g.rnd.Intn(10))
		row["Booking_Value"] = fmt.Sprintf("%.1f", round2(50+g.rnd.Float64()*950))
		row["Payment_Method"] = pickOne(g.rnd, paymentMethods)
		row["Ride_Distance"] = fmt.Sprintf("%d", 1+g.rnd.Intn(45))
		row["Driver_Ratings"] = fmt.Sprintf("%.1f", 3+g.rnd.Float64()*2)
		row["Customer_Rating"] = fmt.Sprintf("%.1f", 3+g.rnd.Float64()*2)
		if g.rnd.Intn(100) < 4 {
			row["Incomplete_Rides"] = "Yes"
			row["Incomplete_Rides_Reason"] = pickOne(g.rnd, incompleteReasons)
		} else {
			row["Incomplete_Rides"] = "No"
		}
	case statusCanceledByCustomer:
		row["Canceled_Rides_by_Customer"] = pickOne(g.rnd, customerCancelReasons)
		row["Ride_Distance"] = "0"
	case statusCanceledByDriver:
		row["Canceled_Rides_by_Driver"] = pickOne(g.rnd, driverCancelReasons)
		row["Ride_Distance"] = "0"
	default: // Driver Not Found
		row["Ride_Distance"] = "0"
	}

	out := make([]string, len(Header))
	for i, column := range Header {
		value, ok := row[column]
		if !ok {
			value = "null"
		}
		out[i] = value
	}
	return out
}

func (g *Generator) pickStatus() string {
	p := g.rnd.Intn(100)
	switch {
	case p < 62:
		return statusSuccess
	case p < 80:
		return statusCanceledByDriver
	case p < 90:
		return statusCanceledByCustomer
	default:
		return statusDriverNotFound
	}
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}
