// Package query holds the engine-neutral types the chat pipeline passes
// between the trip store, the prompt builders, and the orchestrator.
package query

import "context"

// Column is one introspected column of the queryable table.
type Column struct {
	Name     string
	Type     string
	Nullable bool
}

// SampleValues carries the distinct values sampled for the three categorical
// columns the prompt builder names explicitly.
type SampleValues struct {
	BookingStatus  []string
	VehicleTypes   []string
	PaymentMethods []string
}

// SchemaSummary is a derived view of the queryable table: recomputed on every
// request, never cached.
type SchemaSummary struct {
	TableName    string
	Description  string
	Columns      []Column
	TotalRows    int64
	SampleValues SampleValues
}

// Result is the outcome of executing one validated query. RowCount equals
// len(Rows) by construction; the zero value is the failed/empty shape.
type Result struct {
	Columns  []string
	Rows     [][]any
	RowCount int
}

// Executor runs model-generated SQL with the safety policy and the row cap
// applied. Validation rejections and engine errors surface as the same error
// kind to callers; the underlying rejection stays reachable via errors.As.
type Executor interface {
	Execute(ctx context.Context, sql string) (Result, error)
}

// SchemaProvider recomputes the schema summary for prompt context.
type SchemaProvider interface {
	SchemaSummary(ctx context.Context) (SchemaSummary, error)
}
