package mesdb

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// schemaCacheTTL bounds how long a cached schema is served before re-reading
// sqlite_master.
const schemaCacheTTL = 5 * time.Minute

// ColumnInfo describes one column of a MES table.
type ColumnInfo struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	NotNull bool   `json:"not_null"`
	PK      bool   `json:"primary_key"`
}

// TableSchema describes one MES table.
type TableSchema struct {
	Name    string       `json:"name"`
	Columns []ColumnInfo `json:"columns"`
}

// SchemaInfo is a schema lookup result.
type SchemaInfo struct {
	Tables   []TableSchema `json:"tables"`
	CachedAt time.Time     `json:"cached_at"`
}

// Schema returns the schema for one table, or for every table when name is
// empty. Results are cached for a few minutes since meeting sessions tend to
// ask repeatedly.
func (s *Store) Schema(ctx context.Context, table string) (SchemaInfo, error) {
	tables, cachedAt, err := s.cachedSchema(ctx)
	if err != nil {
		return SchemaInfo{}, err
	}

	if table == "" {
		all := make([]TableSchema, 0, len(tables))
		for _, t := range sortedNames(tables) {
			all = append(all, tables[t])
		}
		return SchemaInfo{Tables: all, CachedAt: cachedAt}, nil
	}

	ts, ok := tables[table]
	if !ok {
		return SchemaInfo{}, fmt.Errorf("table %q not found; available: %s", table, strings.Join(sortedNames(tables), ", "))
	}
	return SchemaInfo{Tables: []TableSchema{ts}, CachedAt: cachedAt}, nil
}

func (s *Store) cachedSchema(ctx context.Context) (map[string]TableSchema, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schemaCache != nil && time.Since(s.schemaCachedAt) < schemaCacheTTL {
		return s.schemaCache, s.schemaCachedAt, nil
	}

	tables, err := s.readSchema(ctx)
	if err != nil {
		return nil, time.Time{}, err
	}
	s.schemaCache = tables
	s.schemaCachedAt = time.Now()
	slog.Debug("MES schema cached", "tables", len(tables))
	return s.schemaCache, s.schemaCachedAt, nil
}

func (s *Store) readSchema(ctx context.Context) (map[string]TableSchema, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tables := make(map[string]TableSchema, len(names))
	for _, name := range names {
		cols, err := s.tableColumns(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("reading columns for %s: %w", name, err)
		}
		tables[name] = TableSchema{Name: name, Columns: cols}
	}
	return tables, nil
}

func (s *Store) tableColumns(ctx context.Context, table string) ([]ColumnInfo, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []ColumnInfo
	for rows.Next() {
		var (
			cid, notnull, pk int
			name, typ        string
			dflt             any
		)
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, ColumnInfo{Name: name, Type: typ, NotNull: notnull != 0, PK: pk != 0})
	}
	return cols, rows.Err()
}

// ProductionContext builds a compact textual snapshot of the MES data used to
// ground analysis prompts: which tables exist, how many rows they hold, and
// the time window the meeting cares about.
func (s *Store) ProductionContext(ctx context.Context, meetingType string) (string, error) {
	tables, _, err := s.cachedSchema(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Production data snapshot (%s meeting, generated %s)\n",
		meetingType, time.Now().Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Review window: %s\n", reviewWindow(meetingType))

	for _, name := range sortedNames(tables) {
		var count int
		if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %q", name)).Scan(&count); err != nil {
			slog.Warn("counting rows failed", "table", name, "error", err)
			continue
		}
		colNames := make([]string, len(tables[name].Columns))
		for i, c := range tables[name].Columns {
			colNames[i] = c.Name
		}
		fmt.Fprintf(&b, "- %s: %d rows (%s)\n", name, count, strings.Join(colNames, ", "))
	}
	return b.String(), nil
}

func reviewWindow(meetingType string) string {
	now := time.Now()
	switch meetingType {
	case "weekly":
		return fmt.Sprintf("%s to %s", now.AddDate(0, 0, -7).Format("2006-01-02"), now.Format("2006-01-02"))
	case "monthly":
		return fmt.Sprintf("%s to %s", now.AddDate(0, -1, 0).Format("2006-01-02"), now.Format("2006-01-02"))
	}
	return fmt.Sprintf("%s to %s", now.AddDate(0, 0, -1).Format("2006-01-02"), now.Format("2006-01-02"))
}

func sortedNames(tables map[string]TableSchema) []string {
	names := make([]string, 0, len(tables))
	for n := range tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
