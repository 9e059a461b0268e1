// Package api exposes the meeting assistant over HTTP (chi) and MCP.
// Error responses use the JSON envelope {"error": {"type", "message"}}.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/shiftbrief/internal/cache"
	"github.com/kalambet/shiftbrief/internal/chartspec"
	"github.com/kalambet/shiftbrief/internal/meeting"
	"github.com/kalambet/shiftbrief/internal/mesdb"
	"github.com/kalambet/shiftbrief/internal/orchestrator"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Orchestrator is the slice of the orchestrator the HTTP layer needs.
type Orchestrator interface {
	Run(ctx context.Context, query string) *orchestrator.Result
	DailyBriefing(ctx context.Context, date string) *orchestrator.Result
	Status() orchestrator.AgentStatus
	SetMeetingContext(meetingType string, phase meeting.Phase, timeRemaining *int, focus []meeting.Domain, participants []string)
	Suggestions(history []string) []string
}

// Deps holds the handler dependencies.
type Deps struct {
	Orchestrator Orchestrator
	Cache        *cache.Manager
	Store        *mesdb.Store

	// Token guards the management routes; empty disables auth.
	Token string
	// Freshness bounds how old a cached briefing may be before the briefing
	// endpoint falls back to a live run.
	Freshness time.Duration
}

// NewHandler returns the HTTP API. Query and status routes are open; context,
// cache, and chart management sit behind bearer auth when a token is set.
func NewHandler(deps Deps) http.Handler {
	if deps.Freshness <= 0 {
		deps.Freshness = cache.DefaultFreshness
	}

	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Post("/query", handleQuery(deps))
	r.Get("/briefing", handleBriefing(deps))
	r.Get("/status", handleStatus(deps))
	r.Get("/suggestions", handleSuggestions(deps))

	r.Group(func(r chi.Router) {
		if deps.Token != "" {
			r.Use(BearerAuth(deps.Token))
		}
		r.Post("/context", handleContext(deps))
		r.Get("/cache/latest", handleCacheLatest(deps))
		r.Get("/cache/{date}", handleCacheDate(deps))
		r.Post("/chart", handleChart(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleQuery(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Text == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "text is required and must not be empty")
			return
		}

		writeJSON(w, deps.Orchestrator.Run(r.Context(), req.Text))
	}
}

func handleBriefing(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := r.URL.Query().Get("date")

		// Today's briefing is served from cache when a fresh entry exists.
		today := time.Now().Format("2006-01-02")
		if date == "" || date == today {
			if deps.Cache != nil && deps.Cache.IsFresh(deps.Freshness) {
				if entry := deps.Cache.Load(today); entry != nil {
					writeJSON(w, map[string]any{"source": "cache", "entry": entry})
					return
				}
			}
		} else if deps.Cache != nil {
			if entry := deps.Cache.Load(date); entry != nil {
				writeJSON(w, map[string]any{"source": "cache", "entry": entry})
				return
			}
		}

		res := deps.Orchestrator.DailyBriefing(r.Context(), date)
		writeJSON(w, map[string]any{"source": "live", "result": res})
	}
}

func handleStatus(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, deps.Orchestrator.Status())
	}
}

func handleSuggestions(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		history := r.URL.Query()["history"]
		writeJSON(w, map[string]any{
			"suggestions": deps.Orchestrator.Suggestions(history),
		})
	}
}

func handleContext(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req struct {
			MeetingType   string   `json:"meeting_type"`
			Phase         string   `json:"phase"`
			TimeRemaining *int     `json:"time_remaining_minutes"`
			FocusAreas    []string `json:"focus_areas"`
			Participants  []string `json:"participants"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		focus := make([]meeting.Domain, 0, len(req.FocusAreas))
		for _, f := range req.FocusAreas {
			d := meeting.Domain(f)
			if !d.Valid() {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown focus area %q", f)
				return
			}
			focus = append(focus, d)
		}

		deps.Orchestrator.SetMeetingContext(
			req.MeetingType, meeting.Phase(req.Phase), req.TimeRemaining, focus, req.Participants)
		writeJSON(w, deps.Orchestrator.Status().MeetingContext)
	}
}

func handleCacheLatest(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		maxAge := deps.Freshness
		if raw := r.URL.Query().Get("max_age_hours"); raw != "" {
			hours, err := strconv.Atoi(raw)
			if err != nil || hours <= 0 {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid max_age_hours: %q", raw)
				return
			}
			maxAge = time.Duration(hours) * time.Hour
		}

		entry := deps.Cache.Latest(maxAge)
		if entry == nil {
			httpError(w, http.StatusNotFound, "not_found_error", "no cached analysis within %s", maxAge)
			return
		}
		writeJSON(w, entry)
	}
}

func handleCacheDate(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := chi.URLParam(r, "date")
		entry := deps.Cache.Load(date)
		if entry == nil {
			httpError(w, http.StatusNotFound, "not_found_error", "no cached analysis for %s", date)
			return
		}
		writeJSON(w, entry)
	}
}

func handleChart(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req struct {
			SQL    string `json:"sql"`
			Intent string `json:"intent"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		result := deps.Store.ExecuteQuery(r.Context(), req.SQL)
		if !result.Success {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "query failed: %s", result.Error)
			return
		}

		spec, err := chartspec.Build(result, req.Intent)
		if err != nil {
			httpError(w, http.StatusUnprocessableEntity, "invalid_request_error", "cannot build chart: %v", err)
			return
		}
		writeJSON(w, spec)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
