// Package chartspec turns query results into renderable chart specifications.
// It only decides what to draw; drawing is left to whatever dashboard consumes
// the spec.
package chartspec

import (
	"fmt"
	"strings"

	"github.com/kalambet/shiftbrief/internal/mesdb"
)

// ChartType is the kind of chart a spec describes.
type ChartType string

const (
	ChartBar     ChartType = "bar"
	ChartLine    ChartType = "line"
	ChartPie     ChartType = "pie"
	ChartScatter ChartType = "scatter"
)

// Spec is a renderable chart description.
type Spec struct {
	Type   ChartType `json:"type"`
	Title  string    `json:"title"`
	X      string    `json:"x"`
	Y      string    `json:"y"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// Build derives a chart spec from a query result and the user's intent text.
// The intent picks the chart type; columns are chosen by role: the first
// text-like column becomes the label axis and the first numeric column the
// value axis.
func Build(result mesdb.QueryResult, intent string) (Spec, error) {
	if !result.Success {
		return Spec{}, fmt.Errorf("cannot chart a failed query: %s", result.Error)
	}
	if result.RowCount == 0 {
		return Spec{}, fmt.Errorf("cannot chart an empty result set")
	}

	x, y, err := pickAxes(result)
	if err != nil {
		return Spec{}, err
	}

	spec := Spec{
		Type:  chartTypeFor(intent),
		Title: titleFor(intent, y),
		X:     x,
		Y:     y,
	}

	for _, row := range result.Rows {
		spec.Labels = append(spec.Labels, fmt.Sprintf("%v", row[x]))
		v, _ := toFloat(row[y])
		spec.Values = append(spec.Values, v)
	}
	return spec, nil
}

func chartTypeFor(intent string) ChartType {
	lower := strings.ToLower(intent)
	switch {
	case containsAny(lower, "trend", "over time", "history", "daily", "weekly"):
		return ChartLine
	case containsAny(lower, "share", "distribution", "proportion", "percentage", "breakdown"):
		return ChartPie
	case containsAny(lower, "relationship", "correlation", "versus", " vs "):
		return ChartScatter
	}
	return ChartBar
}

func titleFor(intent, y string) string {
	intent = strings.TrimSpace(intent)
	if intent != "" {
		return strings.ToUpper(intent[:1]) + intent[1:]
	}
	return strings.ReplaceAll(y, "_", " ")
}

func pickAxes(result mesdb.QueryResult) (x, y string, err error) {
	first := result.Rows[0]
	for _, col := range result.Columns {
		if _, ok := toFloat(first[col]); ok {
			if y == "" {
				y = col
			}
		} else if x == "" {
			x = col
		}
	}
	if y == "" {
		return "", "", fmt.Errorf("no numeric column to chart")
	}
	if x == "" {
		// All-numeric results chart the first column against the second.
		x = result.Columns[0]
		if len(result.Columns) > 1 && y == x {
			y = result.Columns[1]
		}
	}
	if x == y {
		return "", "", fmt.Errorf("need at least two columns to chart")
	}
	return x, y, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
