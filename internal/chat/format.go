package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/tripchat/tripchat/internal/query"
)

const defaultMaxDisplayRows = 20

// RenderResult turns a query result into the plain-text block the answer
// prompt consumes. The same rendering is sent to the model on the failure
// path, where the zero-value result yields the no-results line.
func RenderResult(res query.Result, maxRows int) string {
	if res.RowCount == 0 {
		return "No results found."
	}
	if maxRows <= 0 {
		maxRows = defaultMaxDisplayRows
	}

	lines := []string{
		fmt.Sprintf("Query returned %d rows.", res.RowCount),
		"Columns: " + strings.Join(res.Columns, ", "),
		"",
	}

	shown := res.Rows
	if len(shown) > maxRows {
		shown = shown[:maxRows]
	}
	for i, row := range shown {
		lines = append(lines, fmt.Sprintf("Row %d:", i+1))
		for j, col := range res.Columns {
			lines = append(lines, fmt.Sprintf("  %s: %s", col, renderValue(row[j])))
		}
		lines = append(lines, "")
	}

	if res.RowCount > maxRows {
		lines = append(lines, fmt.Sprintf("... and %d more rows", res.RowCount-maxRows))
	}

	return strings.Join(lines, "\n")
}

func renderValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return t.Format("2006-01-02 15:04:05")
	case []byte:
		return string(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
