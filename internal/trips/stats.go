package trips

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CategoryCount is one group in a breakdown, ordered most frequent first.
type CategoryCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

type DateRange struct {
	Earliest time.Time `json:"earliest"`
	Latest   time.Time `json:"latest"`
}

type RevenueStats struct {
	Total     float64 `json:"total"`
	Average   float64 `json:"average"`
	PaidTrips int64   `json:"paid_trips"`
}

type DistanceStats struct {
	Average float64 `json:"average"`
	Max     float64 `json:"max"`
	Min     float64 `json:"min"`
}

// DatasetStats summarizes the loaded trip data. Sections that need at least
// one qualifying row (date range, revenue, distance) are nil when the table
// holds none.
type DatasetStats struct {
	TotalTrips       int64           `json:"total_trips"`
	StatusBreakdown  []CategoryCount `json:"status_breakdown"`
	VehicleBreakdown []CategoryCount `json:"vehicle_breakdown"`
	PaymentBreakdown []CategoryCount `json:"payment_breakdown"`
	DateRange        *DateRange      `json:"date_range,omitempty"`
	Revenue          *RevenueStats   `json:"revenue,omitempty"`
	Distance         *DistanceStats  `json:"distance,omitempty"`
}

func (s *Store) Stats(ctx context.Context) (DatasetStats, error) {
	var stats DatasetStats

	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, quoteIdent(s.table))).Scan(&stats.TotalTrips); err != nil {
		return DatasetStats{}, fmt.Errorf("count trips: %w", err)
	}

	var err error
	if stats.StatusBreakdown, err = s.breakdown(ctx, "booking_status"); err != nil {
		return DatasetStats{}, err
	}
	if stats.VehicleBreakdown, err = s.breakdown(ctx, "vehicle_type"); err != nil {
		return DatasetStats{}, err
	}
	if stats.PaymentBreakdown, err = s.breakdown(ctx, "payment_method"); err != nil {
		return DatasetStats{}, err
	}

	var earliest, latest sql.NullTime
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT MIN(date), MAX(date) FROM %s`, quoteIdent(s.table))).Scan(&earliest, &latest); err != nil {
		return DatasetStats{}, fmt.Errorf("date range: %w", err)
	}
	if earliest.Valid && latest.Valid {
		stats.DateRange = &DateRange{Earliest: earliest.Time, Latest: latest.Time}
	}

	var total, average sql.NullFloat64
	var paid int64
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT SUM(booking_value), AVG(booking_value), COUNT(*) FROM %s WHERE booking_value IS NOT NULL`,
		quoteIdent(s.table))).Scan(&total, &average, &paid); err != nil {
		return DatasetStats{}, fmt.Errorf("revenue stats: %w", err)
	}
	if total.Valid && average.Valid {
		stats.Revenue = &RevenueStats{Total: total.Float64, Average: average.Float64, PaidTrips: paid}
	}

	var avgDist, maxDist, minDist sql.NullFloat64
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT AVG(ride_distance), MAX(ride_distance), MIN(ride_distance) FROM %s WHERE ride_distance IS NOT NULL AND ride_distance > 0`,
		quoteIdent(s.table))).Scan(&avgDist, &maxDist, &minDist); err != nil {
		return DatasetStats{}, fmt.Errorf("distance stats: %w", err)
	}
	if avgDist.Valid {
		stats.Distance = &DistanceStats{Average: avgDist.Float64, Max: maxDist.Float64, Min: minDist.Float64}
	}

	return stats, nil
}

func (s *Store) breakdown(ctx context.Context, column string) ([]CategoryCount, error) {
	stmt := fmt.Sprintf(`SELECT %s, COUNT(*) FROM %s WHERE %s IS NOT NULL GROUP BY %s ORDER BY COUNT(*) DESC, %s`,
		quoteIdent(column), quoteIdent(s.table), quoteIdent(column), quoteIdent(column), quoteIdent(column))
	rows, err := s.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("breakdown %s: %w", column, err)
	}
	defer func() { _ = rows.Close() }()

	var out []CategoryCount
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Value, &c.Count); err != nil {
			return nil, fmt.Errorf("scan %s breakdown: %w", column, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("breakdown %s: %w", column, err)
	}
	return out, nil
}
