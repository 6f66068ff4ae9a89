package downsampling

import (
	"sort"
	"time"

	"github.com/soltixdb/chamberview/internal/utils"
)

// Sample is a single sensor reading.
// Valid is false for missing, non-numeric and NaN readings; such samples are
// never treated as zero.
type Sample struct {
	Instant time.Time
	Value   float64
	Valid   bool
}

// NewSample creates a sample, marking non-finite values invalid.
func NewSample(t time.Time, v float64) Sample {
	return Sample{Instant: t, Value: v, Valid: utils.IsFinite(v)}
}

// InvalidSample creates a sample that carries an instant but no usable value.
func InvalidSample(t time.Time) Sample {
	return Sample{Instant: t}
}

// IsValid reports whether the sample holds a finite value.
func (s Sample) IsValid() bool {
	return s.Valid && utils.IsFinite(s.Value)
}

// Series is one sensor's readings. Samples need not be sorted.
type Series struct {
	Label   string
	Unit    string
	Samples []Sample
}

// RawSample is a reading as received from a collaborator, before parsing.
// Instant may be a time.Time, epoch milliseconds or text; Value may be any
// numeric, a numeric string or nil.
type RawSample struct {
	Instant interface{}
	Value   interface{}
}

// RawSeries is the unparsed form of Series.
type RawSeries struct {
	Label   string
	Unit    string
	Samples []RawSample
}

// Window is an inclusive time range with From <= To.
type Window struct {
	From time.Time
	To   time.Time
}

// Duration returns To - From.
func (w Window) Duration() time.Duration {
	return w.To.Sub(w.From)
}

// IsDegenerate reports whether the window has zero length.
func (w Window) IsDegenerate() bool {
	return !w.To.After(w.From)
}

// Contains reports whether t lies in [From, To].
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}

// AggregatedPoint is one output point. A nil Value marks a bucket in which no
// valid sample landed.
type AggregatedPoint struct {
	Instant time.Time `json:"time"`
	Value   *float64  `json:"value"`
}

// AggregationResult is the engine output for one series.
type AggregationResult struct {
	Points         []AggregatedPoint `json:"points"`
	LastValidValue *float64          `json:"last_valid_value"`

	Strategy   Strategy `json:"strategy"`
	Tier       Tier     `json:"tier,omitempty"`
	PointCount int      `json:"point_count"`
	Fallback   bool     `json:"fallback,omitempty"`
	Dropped    int      `json:"dropped,omitempty"`
}

// sortedSamples returns samples ordered by instant. The input is returned as
// is when already sorted, otherwise a sorted copy is made.
func sortedSamples(samples []Sample) []Sample {
	less := func(a, b Sample) bool { return a.Instant.Before(b.Instant) }
	if sort.SliceIsSorted(samples, func(i, j int) bool { return less(samples[i], samples[j]) }) {
		return samples
	}
	out := make([]Sample, len(samples))
	copy(out, samples)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
