package store

import "context"

// Tables of the remote analytics store. The schema is a fixed external
// contract owned by the backend.
const (
	TablePageViews          = "page_views"
	TableEvents             = "analytics_events"
	TableSessions           = "session_summaries"
	TablePerformanceMetrics = "performance_metrics"
	TableErrors             = "analytics_errors"
	TableRealTimeVisitors   = "real_time_visitors"
)

// Filter maps a column to a PostgREST-style operator expression, e.g.
// {"session_id": "eq.session_17..."}.
type Filter map[string]string

// Eq builds an equality filter expression.
func Eq(value string) string {
	return "eq." + value
}

// Gte builds a greater-or-equal filter expression.
func Gte(value string) string {
	return "gte." + value
}

// Store is the narrow CRUD/RPC surface the tracker and the dashboard
// require of the remote analytics store.
type Store interface {
	// Insert bulk-inserts records (a slice, or a single record) into table.
	Insert(ctx context.Context, table string, records any) error

	// Upsert inserts records, merging with existing rows on conflictKey.
	Upsert(ctx context.Context, table string, records any, conflictKey string) error

	// Delete removes the rows matching filter from table.
	Delete(ctx context.Context, table string, filter Filter) error

	// Query reads the rows matching filter into dest (a pointer to a slice).
	Query(ctx context.Context, table string, filter Filter, dest any) error

	// RPC calls a named server-side function and decodes the rows into dest.
	RPC(ctx context.Context, name string, params any, dest any) error
}
