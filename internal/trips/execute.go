package trips

import (
	"context"
	"fmt"
	"strings"

	"github.com/tripchat/tripchat/internal/query"
)

// Execute runs model-generated SQL against the trip table. The statement is
// validated before it touches the database; a rejection comes back as a
// *sqlguard.RejectionError and nothing is executed. Queries without an
// explicit LIMIT get one appended at the configured row cap, and the scan
// stops at the cap even when the statement carries a larger limit of its own.
func (s *Store) Execute(ctx context.Context, sqlText string) (query.Result, error) {
	if err := s.policy.Validate(sqlText); err != nil {
		return query.Result{}, err
	}

	stmt := stripTrailingSemicolons(sqlText)
	if !strings.Contains(strings.ToUpper(stmt), "LIMIT") {
		stmt = fmt.Sprintf("%s LIMIT %d", stmt, s.rowCap)
	}

	rows, err := s.db.QueryContext(ctx, stmt)
	if err != nil {
		return query.Result{}, fmt.Errorf("SQL execution failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return query.Result{}, fmt.Errorf("SQL execution failed: %w", err)
	}

	result := query.Result{Columns: columns}
	values := make([]any, len(columns))
	scanTargets := make([]any, len(columns))
	for i := range values {
		scanTargets[i] = &values[i]
	}

	for rows.Next() {
		if result.RowCount >= s.rowCap {
			break
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return query.Result{}, fmt.Errorf("SQL execution failed: %w", err)
		}
		row := make([]any, len(columns))
		copy(row, values)
		normalizeValues(row)
		result.Rows = append(result.Rows, row)
		result.RowCount++
	}
	if err := rows.Err(); err != nil {
		return query.Result{}, fmt.Errorf("SQL execution failed: %w", err)
	}

	return result, nil
}

// normalizeValues converts driver byte slices to strings so results are
// stable for templating and JSON encoding.
func normalizeValues(values []any) {
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			values[i] = string(b)
		}
	}
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
