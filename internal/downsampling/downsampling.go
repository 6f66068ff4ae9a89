// Package downsampling reduces high resolution sensor series to a bounded
// number of chart points for a time window.
//
// A request flows through the instant parser, the precision selector, the
// range filter, a bucketizer and the aggregator. The last valid reading of
// the series is reported alongside the points and does not depend on the
// window.
package downsampling

import (
	"sort"
	"time"

	"github.com/soltixdb/chamberview/internal/logging"
)

// Options tunes a single aggregation. Zero values are resolved by the engine.
type Options struct {
	// Strategy defaults to fixed-count
	Strategy Strategy
	// Tier overrides the selected precision tier
	Tier Tier
	// Points overrides the tier's point count (fixed-count only)
	Points int
	// Ceiling clamps values before averaging; nil disables clamping
	Ceiling *float64
	// IndexMode defaults to legacy
	IndexMode IndexMode
	// Filter defaults to before for fixed-count and after for calendar-aligned
	Filter FilterStage
	// Location is used for calendar keys and zone-less text; defaults to the engine location
	Location *time.Location
}

// Engine runs aggregations. It holds no per-call state and is safe for
// concurrent use.
type Engine struct {
	logger   *logging.Logger
	location *time.Location
}

// NewEngine creates an engine. A nil location means UTC.
func NewEngine(logger *logging.Logger, location *time.Location) *Engine {
	if logger == nil {
		logger = logging.Global()
	}
	if location == nil {
		location = time.UTC
	}
	return &Engine{
		logger:   logger,
		location: location,
	}
}

// Location returns the engine location
func (e *Engine) Location() *time.Location {
	return e.location
}

// Resolve fills the zero fields of opts for window w
func (e *Engine) Resolve(opts Options, w Window) Options {
	if opts.Strategy == "" {
		opts.Strategy = StrategyFixedCount
	}
	if !opts.Tier.IsValid() {
		opts.Tier = SelectPrecision(w).Tier
	}
	if opts.Points <= 0 {
		opts.Points = opts.Tier.Points()
	}
	if opts.IndexMode == "" {
		opts.IndexMode = IndexLegacy
	}
	if opts.Filter == "" {
		if opts.Strategy == StrategyCalendar {
			opts.Filter = FilterAfter
		} else {
			opts.Filter = FilterBefore
		}
	}
	if opts.Location == nil {
		opts.Location = e.location
	}
	return opts
}

// Aggregate downsamples a parsed series over w
func (e *Engine) Aggregate(series Series, w Window, opts Options) AggregationResult {
	opts = e.Resolve(opts, w)

	sorted := Series{
		Label:   series.Label,
		Unit:    series.Unit,
		Samples: sortedSamples(series.Samples),
	}

	// A zero-length window always yields one point at its instant,
	// whatever the strategy or filter stage.
	if w.IsDegenerate() {
		points := Reduce([]Bucket{instantBucket(sorted, w.From, opts.Ceiling)})
		return AggregationResult{
			Points:         points,
			LastValidValue: LastValid(series),
			Strategy:       opts.Strategy,
			Tier:           opts.Tier,
			PointCount:     len(points),
		}
	}

	bucketWindow := w
	if opts.Filter != FilterBefore {
		if extent, ok := SeriesExtent(sorted); ok {
			bucketWindow = extent
		}
	}

	buckets := NewBucketizer(opts.Strategy).Bucketize(sorted, bucketWindow, opts)
	points := Reduce(buckets)
	if opts.Filter == FilterAfter {
		points = FilterPoints(points, w)
	}

	return AggregationResult{
		Points:         points,
		LastValidValue: LastValid(series),
		Strategy:       opts.Strategy,
		Tier:           opts.Tier,
		PointCount:     len(points),
	}
}

// AggregateRaw parses the window and samples, then aggregates. It never
// fails: samples with unreadable instants are dropped and counted, and an
// unreadable or inverted window yields the unbucketed series with Fallback set.
func (e *Engine) AggregateRaw(raw RawSeries, from, to interface{}, opts Options) AggregationResult {
	loc := opts.Location
	if loc == nil {
		loc = e.location
	}

	series, errs := NormalizeSeries(raw, loc)
	if len(errs) > 0 {
		e.logger.Debug("Dropped samples with unreadable instants",
			"series", raw.Label,
			"dropped", len(errs),
			"first_error", errs[0].Error())
	}

	w, err := ParseWindow(from, to, loc)
	if err != nil {
		e.logger.Warn("Window unusable, returning unbucketed series",
			"series", raw.Label,
			"error", err)
		result := Unbucketed(series)
		result.Strategy = opts.Strategy
		result.Dropped = len(errs)
		return result
	}

	result := e.Aggregate(series, w, opts)
	result.Dropped = len(errs)
	return result
}

// Unbucketed returns every sample as its own point in chronological order,
// invalid samples as nil values.
func Unbucketed(series Series) AggregationResult {
	samples := make([]Sample, len(series.Samples))
	copy(samples, series.Samples)
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Instant.Before(samples[j].Instant)
	})

	points := make([]AggregatedPoint, len(samples))
	for i, s := range samples {
		points[i].Instant = s.Instant
		if s.IsValid() {
			v := s.Value
			points[i].Value = &v
		}
	}

	return AggregationResult{
		Points:         points,
		LastValidValue: LastValid(series),
		PointCount:     len(points),
		Fallback:       true,
	}
}
