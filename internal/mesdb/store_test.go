package mesdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

func fixtureDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mes.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("opening fixture db: %v", err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE work_orders (id INTEGER PRIMARY KEY, product TEXT NOT NULL, quantity INTEGER, status TEXT, date TEXT)`,
		`CREATE TABLE quality_checks (id INTEGER PRIMARY KEY, work_order_id INTEGER, defects INTEGER, yield REAL)`,
		`INSERT INTO work_orders (product, quantity, status, date) VALUES
			('widget-a', 100, 'completed', '2026-08-27'),
			('widget-b', 50, 'in_progress', '2026-08-28'),
			('widget-c', 75, 'completed', '2026-08-28')`,
		`INSERT INTO quality_checks (work_order_id, defects, yield) VALUES (1, 2, 0.98), (3, 0, 1.0)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seeding fixture: %v", err)
		}
	}
	return path
}

func openFixture(t *testing.T) *Store {
	t.Helper()
	s, err := Open(fixtureDB(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestValidateQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr bool
	}{
		{"plain select", "SELECT * FROM work_orders", false},
		{"cte", "WITH recent AS (SELECT * FROM work_orders) SELECT * FROM recent", false},
		{"empty", "   ", true},
		{"drop", "DROP TABLE work_orders", true},
		{"delete", "DELETE FROM work_orders", true},
		{"insert", "INSERT INTO work_orders VALUES (1)", true},
		{"update", "UPDATE work_orders SET status = 'done'", true},
		{"truncate", "TRUNCATE TABLE work_orders", true},
		{"alter", "ALTER TABLE work_orders ADD COLUMN x", true},
		{"create", "CREATE TABLE evil (id INTEGER)", true},
		{"mixed case", "DeLeTe FROM work_orders", true},
		{"keyword inside identifier ok", "SELECT updated_at FROM work_orders", false},
		{"not a select", "PRAGMA table_info(work_orders)", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuery(tt.query)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateQuery(%q) error = %v, wantErr %v", tt.query, err, tt.wantErr)
			}
		})
	}
}

func TestExecuteQuery(t *testing.T) {
	s := openFixture(t)
	ctx := context.Background()

	res := s.ExecuteQuery(ctx, "SELECT product, quantity FROM work_orders WHERE status = 'completed' ORDER BY product")
	if !res.Success {
		t.Fatalf("query failed: %s", res.Error)
	}
	if res.RowCount != 2 {
		t.Errorf("RowCount = %d, want 2", res.RowCount)
	}
	if len(res.Columns) != 2 || res.Columns[0] != "product" {
		t.Errorf("Columns = %v", res.Columns)
	}
	if res.Rows[0]["product"] != "widget-a" {
		t.Errorf("rows[0] = %v", res.Rows[0])
	}
}

func TestExecuteQueryAppendsLimit(t *testing.T) {
	s := openFixture(t)

	res := s.ExecuteQuery(context.Background(), "SELECT * FROM work_orders")
	if !res.Success {
		t.Fatalf("query failed: %s", res.Error)
	}
	if !strings.Contains(res.Query, "LIMIT 1000") {
		t.Errorf("Query = %q, want appended LIMIT 1000", res.Query)
	}

	res = s.ExecuteQuery(context.Background(), "SELECT * FROM work_orders LIMIT 1")
	if strings.Count(strings.ToUpper(res.Query), "LIMIT") != 1 {
		t.Errorf("Query = %q, existing LIMIT must be kept as-is", res.Query)
	}
	if res.RowCount != 1 {
		t.Errorf("RowCount = %d, want 1", res.RowCount)
	}
}

func TestExecuteQueryRejectsWrites(t *testing.T) {
	s := openFixture(t)

	res := s.ExecuteQuery(context.Background(), "DELETE FROM work_orders")
	if res.Success {
		t.Fatal("modifying query succeeded")
	}
	if !strings.Contains(res.Error, "not allowed") {
		t.Errorf("Error = %q", res.Error)
	}

	// The fixture data must be untouched.
	check := s.ExecuteQuery(context.Background(), "SELECT COUNT(*) AS n FROM work_orders")
	if !check.Success || len(check.Rows) != 1 {
		t.Fatalf("check query failed: %+v", check)
	}
	if n, ok := check.Rows[0]["n"].(int64); !ok || n != 3 {
		t.Errorf("work_orders count = %v, want 3", check.Rows[0]["n"])
	}
}

func TestExecuteQuerySQLErrorIsValue(t *testing.T) {
	s := openFixture(t)
	res := s.ExecuteQuery(context.Background(), "SELECT * FROM missing_table")
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Error, "no such table") {
		t.Errorf("Error = %q", res.Error)
	}
}

func TestSchema(t *testing.T) {
	s := openFixture(t)
	ctx := context.Background()

	all, err := s.Schema(ctx, "")
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}
	if len(all.Tables) != 2 {
		t.Fatalf("tables = %d, want 2", len(all.Tables))
	}

	one, err := s.Schema(ctx, "work_orders")
	if err != nil {
		t.Fatalf("Schema(work_orders): %v", err)
	}
	if len(one.Tables) != 1 || one.Tables[0].Name != "work_orders" {
		t.Fatalf("Tables = %+v", one.Tables)
	}
	cols := one.Tables[0].Columns
	if len(cols) != 5 {
		t.Errorf("columns = %d, want 5", len(cols))
	}
	if cols[0].Name != "id" || !cols[0].PK {
		t.Errorf("first column = %+v, want id primary key", cols[0])
	}

	if _, err := s.Schema(ctx, "nope"); err == nil {
		t.Error("Schema(nope): expected error")
	} else if !strings.Contains(err.Error(), "work_orders") {
		t.Errorf("error should list available tables, got %v", err)
	}
}

func TestSchemaCached(t *testing.T) {
	s := openFixture(t)
	ctx := context.Background()

	first, err := s.Schema(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Schema(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if !first.CachedAt.Equal(second.CachedAt) {
		t.Error("second lookup re-read the schema within the TTL")
	}
}

func TestProductionContext(t *testing.T) {
	s := openFixture(t)

	got, err := s.ProductionContext(context.Background(), "daily")
	if err != nil {
		t.Fatalf("ProductionContext: %v", err)
	}
	for _, want := range []string{"work_orders: 3 rows", "quality_checks: 2 rows", "daily meeting"} {
		if !strings.Contains(got, want) {
			t.Errorf("snapshot missing %q:\n%s", want, got)
		}
	}
}
