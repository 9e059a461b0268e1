package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kalambet/shiftbrief/internal/cache"
	"github.com/kalambet/shiftbrief/internal/mesdb"
	"github.com/kalambet/shiftbrief/internal/orchestrator"
)

func newTestHandler(t *testing.T, deps Deps) http.Handler {
	t.Helper()
	if deps.Orchestrator == nil {
		deps.Orchestrator = &mockOrchestrator{synthesis: "# Meeting Analysis\n\nfindings"}
	}
	if deps.Cache == nil {
		cm, err := cache.NewManager(t.TempDir(), 30)
		if err != nil {
			t.Fatal(err)
		}
		deps.Cache = cm
	}
	return NewHandler(deps)
}

func doJSON(t *testing.T, h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t, Deps{})
	rec := doJSON(t, h, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestQuery(t *testing.T) {
	mo := &mockOrchestrator{synthesis: "production is steady"}
	h := newTestHandler(t, Deps{Orchestrator: mo})

	rec := doJSON(t, h, http.MethodPost, "/query", `{"text":"how is production?"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if mo.gotQuery != "how is production?" {
		t.Errorf("query = %q", mo.gotQuery)
	}

	var res orchestrator.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	if res.Synthesis != "production is steady" {
		t.Errorf("synthesis = %q", res.Synthesis)
	}
}

func TestQueryValidation(t *testing.T) {
	h := newTestHandler(t, Deps{})

	for name, body := range map[string]string{
		"empty text":   `{"text":""}`,
		"invalid json": `{not json`,
	} {
		rec := doJSON(t, h, http.MethodPost, "/query", body, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", name, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "invalid_request_error") {
			t.Errorf("%s: body = %s", name, rec.Body.String())
		}
	}
}

func TestBriefingServedFromCache(t *testing.T) {
	cm, err := cache.NewManager(t.TempDir(), 30)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	today := now.Format("2006-01-02")
	err = cm.Save(cache.Entry{
		GeneratedAt:  now.Format(time.RFC3339),
		AnalysisDate: today,
		Analyses:     map[string]cache.Analysis{"executive_summary": {Analysis: "cached briefing"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	mo := &mockOrchestrator{synthesis: "live briefing"}
	h := newTestHandler(t, Deps{Orchestrator: mo, Cache: cm})

	rec := doJSON(t, h, http.MethodGet, "/briefing", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"cache"`) || !strings.Contains(rec.Body.String(), "cached briefing") {
		t.Fatalf("expected cached entry, got: %s", rec.Body.String())
	}
	if mo.gotDate != "" {
		t.Error("live briefing ran despite fresh cache")
	}
}

func TestBriefingFallsBackToLive(t *testing.T) {
	mo := &mockOrchestrator{synthesis: "live briefing"}
	h := newTestHandler(t, Deps{Orchestrator: mo})

	rec := doJSON(t, h, http.MethodGet, "/briefing?date=2026-01-15", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"live"`) {
		t.Fatalf("expected live result, got: %s", rec.Body.String())
	}
	if mo.gotDate != "2026-01-15" {
		t.Errorf("date = %q", mo.gotDate)
	}
}

func TestStatusEndpoint(t *testing.T) {
	mo := &mockOrchestrator{status: orchestrator.AgentStatus{Initialized: true}}
	h := newTestHandler(t, Deps{Orchestrator: mo})

	rec := doJSON(t, h, http.MethodGet, "/status", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"initialized":true`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestSuggestionsEndpoint(t *testing.T) {
	mo := &mockOrchestrator{suggestions: []string{"Check OEE trends"}}
	h := newTestHandler(t, Deps{Orchestrator: mo})

	rec := doJSON(t, h, http.MethodGet, "/suggestions?history=production+output", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Check OEE trends") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestContextRequiresAuth(t *testing.T) {
	h := newTestHandler(t, Deps{Token: "sesame"})

	body := `{"meeting_type":"weekly","phase":"briefing","time_remaining_minutes":12,"focus_areas":["quality"]}`

	rec := doJSON(t, h, http.MethodPost, "/context", body, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/context", body, map[string]string{
		"Authorization": "Bearer sesame",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"weekly"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestContextRejectsUnknownFocusArea(t *testing.T) {
	h := newTestHandler(t, Deps{})

	rec := doJSON(t, h, http.MethodPost, "/context", `{"focus_areas":["finance"]}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "finance") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestCacheEndpoints(t *testing.T) {
	cm, err := cache.NewManager(t.TempDir(), 30)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	today := now.Format("2006-01-02")
	err = cm.Save(cache.Entry{
		GeneratedAt:  now.Format(time.RFC3339),
		AnalysisDate: today,
		Analyses:     map[string]cache.Analysis{"production_summary": {Analysis: "on target"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	h := newTestHandler(t, Deps{Cache: cm})

	rec := doJSON(t, h, http.MethodGet, "/cache/latest", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("latest status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/cache/"+today, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("by-date status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/cache/2020-01-01", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing date status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/cache/latest?max_age_hours=bogus", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad max_age_hours status = %d", rec.Code)
	}
}

func chartFixtureStore(t *testing.T) *mesdb.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mes.db")

	seed, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	stmts := []string{
		`CREATE TABLE daily_output (work_center TEXT, units INTEGER)`,
		`INSERT INTO daily_output VALUES ('frame_welding', 42), ('wheel_assembly', 35)`,
	}
	for _, stmt := range stmts {
		if _, err := seed.Exec(stmt); err != nil {
			t.Fatal(err)
		}
	}
	seed.Close()

	store, err := mesdb.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestChart(t *testing.T) {
	h := newTestHandler(t, Deps{Store: chartFixtureStore(t)})

	rec := doJSON(t, h, http.MethodPost, "/chart",
		`{"sql":"SELECT work_center, units FROM daily_output","intent":"compare output by work center"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"bar"`) {
		t.Fatalf("expected bar chart, got: %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "frame_welding") {
		t.Fatalf("labels missing: %s", rec.Body.String())
	}
}

func TestChartRejectsModifyingSQL(t *testing.T) {
	h := newTestHandler(t, Deps{Store: chartFixtureStore(t)})

	rec := doJSON(t, h, http.MethodPost, "/chart",
		`{"sql":"DELETE FROM daily_output","intent":"anything"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}
