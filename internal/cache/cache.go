// Package cache persists daily analysis bundles as one JSON file per date so
// meetings read precomputed results instead of waiting on live analysis.
package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	// DefaultFreshness is how long a day's bundle counts as fresh.
	DefaultFreshness = 6 * time.Hour
	// DefaultRetentionDays is how long old bundles are kept on disk.
	DefaultRetentionDays = 30
	// latestLookbackDays bounds how far back Latest searches.
	latestLookbackDays = 7

	dateLayout = "2006-01-02"
	filePrefix = "daily_analysis_"
)

// Analysis is one named analysis inside a daily bundle. Either Analysis or
// Error is set, never both.
type Analysis struct {
	Analysis         string   `json:"analysis,omitempty"`
	ExecutionTime    float64  `json:"execution_time,omitempty"`
	CapabilitiesUsed []string `json:"capabilities_used,omitempty"`
	Error            string   `json:"error,omitempty"`
	GeneratedAt      string   `json:"generated_at"`
}

// Entry is a full day's analysis bundle. Entries are immutable once written;
// Save replaces the whole file.
type Entry struct {
	GeneratedAt        string              `json:"generated_at"`
	AnalysisDate       string              `json:"analysis_date"`
	Analyses           map[string]Analysis `json:"analyses"`
	TotalExecutionTime float64             `json:"total_execution_time"`
	CompletedAt        string              `json:"completed_at"`
}

// DateSummary is a lightweight listing of one cached date.
type DateSummary struct {
	Date        string `json:"date"`
	Analyses    int    `json:"analyses"`
	Failed      int    `json:"failed"`
	GeneratedAt string `json:"generated_at"`
}

// Status summarizes the cache directory.
type Status struct {
	Dir        string `json:"dir"`
	FileCount  int    `json:"file_count"`
	LatestDate string `json:"latest_date,omitempty"`
	TotalBytes int64  `json:"total_bytes"`
}

// Manager owns one cache directory. It is the single writer; concurrent
// readers are fine because writes replace whole files.
type Manager struct {
	dir           string
	retentionDays int
	now           func() time.Time
}

// NewManager creates the cache directory if needed. retentionDays <= 0 uses
// the default.
func NewManager(dir string, retentionDays int) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return &Manager{dir: dir, retentionDays: retentionDays, now: time.Now}, nil
}

// Dir returns the cache directory path.
func (m *Manager) Dir() string { return m.dir }

// LogDir returns the scheduler log directory that sits under the cache
// directory. Log files there follow the daily_analysis_<date>.log naming and
// are pruned on the same retention pass as the cached bundles.
func LogDir(cacheDir string) string { return filepath.Join(cacheDir, "logs") }

func (m *Manager) path(date string) string {
	return filepath.Join(m.dir, filePrefix+date+".json")
}

// Save writes the entry for its analysis date, replacing any existing file,
// then prunes entries older than the retention window.
func (m *Manager) Save(e Entry) error {
	if _, err := time.Parse(dateLayout, e.AnalysisDate); err != nil {
		return fmt.Errorf("invalid analysis date %q: %w", e.AnalysisDate, err)
	}

	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	if err := os.WriteFile(m.path(e.AnalysisDate), data, 0o644); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	slog.Info("daily analysis cached", "date", e.AnalysisDate, "analyses", len(e.Analyses))

	if removed, err := m.Cleanup(); err != nil {
		slog.Warn("cache cleanup failed", "error", err)
	} else if removed > 0 {
		slog.Info("old cache entries removed", "count", removed)
	}
	return nil
}

// Load returns the entry for a date, or nil when it is absent or unreadable.
// A corrupt file must never block a meeting, so it reads as a miss.
func (m *Manager) Load(date string) *Entry {
	data, err := os.ReadFile(m.path(date))
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("cache read failed", "date", date, "error", err)
		}
		return nil
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		slog.Warn("cache entry corrupt", "date", date, "error", err)
		return nil
	}
	return &e
}

// Latest walks back from today up to a week and returns the first entry
// generated within maxAge. nil means no usable cache, which is not an error.
func (m *Manager) Latest(maxAge time.Duration) *Entry {
	if maxAge <= 0 {
		maxAge = DefaultFreshness
	}
	now := m.now()
	for i := 0; i <= latestLookbackDays; i++ {
		date := now.AddDate(0, 0, -i).Format(dateLayout)
		e := m.Load(date)
		if e == nil {
			continue
		}
		generated, err := time.Parse(time.RFC3339, e.GeneratedAt)
		if err != nil {
			slog.Warn("cache entry has bad timestamp", "date", date, "error", err)
			continue
		}
		if now.Sub(generated) <= maxAge {
			return e
		}
	}
	return nil
}

// IsFresh reports whether today's entry exists and was generated within
// maxAge (the default freshness window when maxAge <= 0).
func (m *Manager) IsFresh(maxAge time.Duration) bool {
	if maxAge <= 0 {
		maxAge = DefaultFreshness
	}
	e := m.Load(m.now().Format(dateLayout))
	if e == nil {
		return false
	}
	generated, err := time.Parse(time.RFC3339, e.GeneratedAt)
	if err != nil {
		return false
	}
	return m.now().Sub(generated) <= maxAge
}

// ListDates summarizes the cached entries for the last daysBack days, newest
// first.
func (m *Manager) ListDates(daysBack int) []DateSummary {
	if daysBack <= 0 {
		daysBack = m.retentionDays
	}
	var out []DateSummary
	now := m.now()
	for i := 0; i < daysBack; i++ {
		date := now.AddDate(0, 0, -i).Format(dateLayout)
		e := m.Load(date)
		if e == nil {
			continue
		}
		s := DateSummary{Date: date, GeneratedAt: e.GeneratedAt}
		for _, a := range e.Analyses {
			if a.Error != "" {
				s.Failed++
			} else {
				s.Analyses++
			}
		}
		out = append(out, s)
	}
	return out
}

// Cleanup removes entries and scheduler logs older than the retention window
// and returns how many files were deleted.
func (m *Manager) Cleanup() (int, error) {
	cutoff := m.now().AddDate(0, 0, -m.retentionDays)

	if _, err := os.ReadDir(m.dir); err != nil {
		return 0, fmt.Errorf("reading cache directory: %w", err)
	}

	removed := m.pruneDir(m.dir, ".json", cutoff)
	removed += m.pruneDir(LogDir(m.dir), ".log", cutoff)
	return removed, nil
}

// pruneDir deletes date-stamped files in dir older than cutoff. A missing
// directory removes nothing.
func (m *Manager) pruneDir(dir, ext string, cutoff time.Time) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	removed := 0
	for _, entry := range entries {
		date, ok := dateFromFilename(entry.Name(), ext)
		if !ok {
			continue
		}
		day, err := time.Parse(dateLayout, date)
		if err != nil {
			continue
		}
		if day.Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
				slog.Warn("removing old cache file failed", "file", entry.Name(), "error", err)
				continue
			}
			removed++
		}
	}
	return removed
}

// CacheStatus reports the current state of the cache directory.
func (m *Manager) CacheStatus() (Status, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return Status{}, fmt.Errorf("reading cache directory: %w", err)
	}

	st := Status{Dir: m.dir}
	var dates []string
	for _, entry := range entries {
		date, ok := dateFromFilename(entry.Name(), ".json")
		if !ok {
			continue
		}
		st.FileCount++
		dates = append(dates, date)
		if info, err := entry.Info(); err == nil {
			st.TotalBytes += info.Size()
		}
	}
	if len(dates) > 0 {
		sort.Strings(dates)
		st.LatestDate = dates[len(dates)-1]
	}
	return st, nil
}

func dateFromFilename(name, ext string) (string, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ext) {
		return "", false
	}
	date := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), ext)
	if _, err := time.Parse(dateLayout, date); err != nil {
		return "", false
	}
	return date, true
}
