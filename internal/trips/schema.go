package trips

import (
	"context"
	"fmt"

	"github.com/tripchat/tripchat/internal/query"
)

const tableDescription = "Uber trip booking and cancellation data"

// SchemaSummary introspects the trip table and gathers the sample values the
// prompt builder needs to ground model output in real column contents.
func (s *Store) SchemaSummary(ctx context.Context) (query.SchemaSummary, error) {
	summary := query.SchemaSummary{
		TableName:   s.table,
		Description: tableDescription,
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_name = ?
		ORDER BY ordinal_position`, s.table)
	if err != nil {
		return query.SchemaSummary{}, fmt.Errorf("introspect columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return query.SchemaSummary{}, fmt.Errorf("scan column metadata: %w", err)
		}
		summary.Columns = append(summary.Columns, query.Column{
			Name:     name,
			Type:     dataType,
			Nullable: nullable == "YES",
		})
	}
	if err := rows.Err(); err != nil {
		return query.SchemaSummary{}, fmt.Errorf("introspect columns: %w", err)
	}
	if len(summary.Columns) == 0 {
		return query.SchemaSummary{}, fmt.Errorf("table %q has no columns; run migrations or the loader first", s.table)
	}

	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, quoteIdent(s.table))).Scan(&summary.TotalRows); err != nil {
		return query.SchemaSummary{}, fmt.Errorf("count trips: %w", err)
	}

	samples := []struct {
		column string
		dest   *[]string
	}{
		{"booking_status", &summary.SampleValues.BookingStatus},
		{"vehicle_type", &summary.SampleValues.VehicleTypes},
		{"payment_method", &summary.SampleValues.PaymentMethods},
	}
	for _, sample := range samples {
		values, err := s.distinctValues(ctx, sample.column)
		if err != nil {
			return query.SchemaSummary{}, err
		}
		*sample.dest = values
	}

	return summary, nil
}

func (s *Store) distinctValues(ctx context.Context, column string) ([]string, error) {
	stmt := fmt.Sprintf(`SELECT DISTINCT %s FROM %s WHERE %s IS NOT NULL ORDER BY 1`,
		quoteIdent(column), quoteIdent(s.table), quoteIdent(column))
	rows, err := s.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", column, err)
	}
	defer func() { _ = rows.Close() }()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan %s sample: %w", column, err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sample %s: %w", column, err)
	}
	return values, nil
}
