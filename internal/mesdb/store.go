// Package mesdb provides read-only access to the MES (manufacturing execution
// system) SQLite database: validated ad-hoc queries, schema lookups, and a
// compact production context snapshot used to ground analysis prompts.
package mesdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// maxMeetingRows caps result size so a runaway query cannot stall a meeting.
const maxMeetingRows = 1000

// Store wraps the MES database. The database is externally owned; the
// connection is opened read-only and never migrated.
type Store struct {
	db *sql.DB

	mu             sync.Mutex
	schemaCache    map[string]TableSchema
	schemaCachedAt time.Time
}

// Open opens the MES database at path for reading.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening MES database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging MES database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Connection-level write protection on top of query validation.
	if _, err := db.Exec("PRAGMA query_only = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting query_only: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// QueryResult is the outcome of one validated query. Error-shaped results
// (Success false) are values, not Go errors, so callers can hand them to the
// recovery layer intact.
type QueryResult struct {
	Success         bool             `json:"success"`
	Query           string           `json:"query"`
	Columns         []string         `json:"columns,omitempty"`
	Rows            []map[string]any `json:"rows,omitempty"`
	RowCount        int              `json:"row_count"`
	ExecutionTimeMS int64            `json:"execution_time_ms"`
	Error           string           `json:"error,omitempty"`
}

// ExecuteQuery validates and runs a read-only query. Queries without an
// explicit LIMIT get one appended so meetings never wait on huge result sets.
func (s *Store) ExecuteQuery(ctx context.Context, query string) QueryResult {
	start := time.Now()

	if err := ValidateQuery(query); err != nil {
		return QueryResult{Query: query, Error: err.Error()}
	}

	if !strings.Contains(strings.ToUpper(query), "LIMIT") {
		query = fmt.Sprintf("%s LIMIT %d", strings.TrimRight(strings.TrimSpace(query), ";"), maxMeetingRows)
	}

	slog.Debug("executing MES query", "query", truncate(query, 100))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return QueryResult{
			Query:           query,
			Error:           err.Error(),
			ExecutionTimeMS: time.Since(start).Milliseconds(),
		}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return QueryResult{Query: query, Error: err.Error(), ExecutionTimeMS: time.Since(start).Milliseconds()}
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return QueryResult{Query: query, Error: err.Error(), ExecutionTimeMS: time.Since(start).Milliseconds()}
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				row[c] = string(b)
			} else {
				row[c] = values[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return QueryResult{Query: query, Error: err.Error(), ExecutionTimeMS: time.Since(start).Milliseconds()}
	}

	return QueryResult{
		Success:         true,
		Query:           query,
		Columns:         cols,
		Rows:            out,
		RowCount:        len(out),
		ExecutionTimeMS: time.Since(start).Milliseconds(),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
