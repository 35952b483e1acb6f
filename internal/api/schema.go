package api

import (
	"net/http"
)

type schemaColumn struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

type schemaSampleValues struct {
	BookingStatus  []string `json:"booking_status"`
	VehicleTypes   []string `json:"vehicle_type"`
	PaymentMethods []string `json:"payment_method"`
}

type schemaResponse struct {
	TableName    string             `json:"table_name"`
	Description  string             `json:"description"`
	TotalRows    int64              `json:"total_rows"`
	Columns      []schemaColumn     `json:"columns"`
	SampleValues schemaSampleValues `json:"sample_values"`
}

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Schema == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "trip store is not configured", false, nil)
		return
	}

	summary, err := deps.Schema.SchemaSummary(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "SCHEMA_ERROR", "failed to introspect schema", true, map[string]any{"details": err.Error()})
		return
	}

	columns := make([]schemaColumn, 0, len(summary.Columns))
	for _, col := range summary.Columns {
		columns = append(columns, schemaColumn{Name: col.Name, Type: col.Type, Nullable: col.Nullable})
	}
	writeJSON(w, http.StatusOK, schemaResponse{
		TableName:   summary.TableName,
		Description: summary.Description,
		TotalRows:   summary.TotalRows,
		Columns:     columns,
		SampleValues: schemaSampleValues{
			BookingStatus:  summary.SampleValues.BookingStatus,
			VehicleTypes:   summary.SampleValues.VehicleTypes,
			PaymentMethods: summary.SampleValues.PaymentMethods,
		},
	})
}
