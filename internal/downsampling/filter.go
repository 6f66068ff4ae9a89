package downsampling

import (
	"fmt"
	"strings"
)

// FilterStage controls where the requested window is applied
type FilterStage string

const (
	// FilterBefore restricts samples to the window before bucketing
	FilterBefore FilterStage = "before"
	// FilterAfter bucketizes the whole series extent, then restricts points
	FilterAfter FilterStage = "after"
	// FilterNone ignores the window and bucketizes the series extent
	FilterNone FilterStage = "none"
)

// ParseFilterStage parses a filter stage name
func ParseFilterStage(s string) (FilterStage, error) {
	switch FilterStage(strings.ToLower(strings.TrimSpace(s))) {
	case FilterBefore:
		return FilterBefore, nil
	case FilterAfter:
		return FilterAfter, nil
	case FilterNone:
		return FilterNone, nil
	default:
		return "", fmt.Errorf("unknown filter stage: %q", s)
	}
}

// FilterSamples returns a copy of series holding only samples inside w (inclusive)
func FilterSamples(series Series, w Window) Series {
	out := Series{Label: series.Label, Unit: series.Unit}
	for _, s := range series.Samples {
		if w.Contains(s.Instant) {
			out.Samples = append(out.Samples, s)
		}
	}
	return out
}

// FilterPoints returns the points whose instant lies inside w (inclusive)
func FilterPoints(points []AggregatedPoint, w Window) []AggregatedPoint {
	out := make([]AggregatedPoint, 0, len(points))
	for _, p := range points {
		if w.Contains(p.Instant) {
			out = append(out, p)
		}
	}
	return out
}

// SeriesExtent returns the window spanning the earliest and latest sample.
// ok is false for an empty series.
func SeriesExtent(series Series) (w Window, ok bool) {
	for i, s := range series.Samples {
		if i == 0 {
			w = Window{From: s.Instant, To: s.Instant}
			continue
		}
		if s.Instant.Before(w.From) {
			w.From = s.Instant
		}
		if s.Instant.After(w.To) {
			w.To = s.Instant
		}
	}
	return w, len(series.Samples) > 0
}
