package models

import (
	"time"

	"github.com/soltixdb/chamberview/internal/cache"
	"github.com/soltixdb/chamberview/internal/downsampling"
)

// TimeFormat is the layout of instants in responses
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string       `json:"status"`
	Timestamp string       `json:"timestamp"`
	Version   string       `json:"version"`
	Cache     *cache.Stats `json:"cache,omitempty"`
}

// PrecisionResponse reports the tier selected for a window
type PrecisionResponse struct {
	From            string  `json:"from"`
	To              string  `json:"to"`
	Tier            string  `json:"tier"`
	Points          int     `json:"points"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// SeriesResult is the aggregated form of one requested series
type SeriesResult struct {
	Label          string     `json:"label"`
	Unit           string     `json:"unit,omitempty"`
	Times          []string   `json:"times"`
	Values         []*float64 `json:"values"` // null marks a gap
	LastValidValue *float64   `json:"last_valid_value"`
	Ceiling        *float64   `json:"ceiling,omitempty"`
	Dropped        int        `json:"dropped"`
	Cached         bool       `json:"cached"`
}

// AggregateResponse represents an aggregation response
type AggregateResponse struct {
	From     string         `json:"from,omitempty"`
	To       string         `json:"to,omitempty"`
	Tier     string         `json:"tier,omitempty"`
	Points   int            `json:"points,omitempty"` // points per series, fixed-count only
	Strategy string         `json:"strategy"`
	Fallback bool           `json:"fallback"`
	Series   []SeriesResult `json:"series"`
}

// NewSeriesResult flattens an engine result into parallel times and values,
// formatting instants in loc.
func NewSeriesResult(label, unit string, res downsampling.AggregationResult, loc *time.Location) SeriesResult {
	if loc == nil {
		loc = time.UTC
	}
	out := SeriesResult{
		Label:          label,
		Unit:           unit,
		Times:          make([]string, len(res.Points)),
		Values:         make([]*float64, len(res.Points)),
		LastValidValue: res.LastValidValue,
		Dropped:        res.Dropped,
	}
	for i, p := range res.Points {
		out.Times[i] = p.Instant.In(loc).Format(TimeFormat)
		out.Values[i] = p.Value
	}
	return out
}

// ErrorResponse represents error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Path    string                 `json:"path,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}
