package downsampling

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Strategy selects how buckets are laid out
type Strategy string

const (
	// StrategyFixedCount divides the window into a fixed number of equal slots
	StrategyFixedCount Strategy = "fixed-count"
	// StrategyCalendar groups samples by calendar unit of the tier
	StrategyCalendar Strategy = "calendar-aligned"
)

// ValidStrategies returns all bucketing strategies
func ValidStrategies() []Strategy {
	return []Strategy{StrategyFixedCount, StrategyCalendar}
}

// ParseStrategy parses a strategy name. "fixed" and "calendar" are accepted as short forms.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fixed-count", "fixed":
		return StrategyFixedCount, nil
	case "calendar-aligned", "calendar":
		return StrategyCalendar, nil
	default:
		return "", fmt.Errorf("unknown bucketing strategy: %q", s)
	}
}

// IndexMode selects the fixed-count slot formula
type IndexMode string

const (
	// IndexLegacy spaces N slots over N-1 intervals; the last slot only
	// receives samples at the window end. Charts built against it expect this.
	IndexLegacy IndexMode = "legacy"
	// IndexUniform spaces N slots over N equal intervals
	IndexUniform IndexMode = "uniform"
)

// ParseIndexMode parses an index mode name
func ParseIndexMode(s string) (IndexMode, error) {
	switch IndexMode(strings.ToLower(strings.TrimSpace(s))) {
	case IndexLegacy:
		return IndexLegacy, nil
	case IndexUniform:
		return IndexUniform, nil
	default:
		return "", fmt.Errorf("unknown index mode: %q", s)
	}
}

// Bucket accumulates the samples of one output slot
type Bucket struct {
	Start time.Time
	End   time.Time
	Key   string

	Sum             float64
	ValidCount      int
	SampledInstants []time.Time
}

// Bucketizer partitions a series into buckets over a window.
// Samples outside [w.From, w.To] are discarded.
type Bucketizer interface {
	Bucketize(series Series, w Window, opts Options) []Bucket
}

// NewBucketizer returns the bucketizer for a strategy, defaulting to fixed-count
func NewBucketizer(strategy Strategy) Bucketizer {
	if strategy == StrategyCalendar {
		return CalendarBucketizer{}
	}
	return FixedCountBucketizer{}
}

// FixedCountBucketizer produces exactly opts.Points buckets
type FixedCountBucketizer struct{}

// Bucketize implements Bucketizer
func (FixedCountBucketizer) Bucketize(series Series, w Window, opts Options) []Bucket {
	if w.IsDegenerate() {
		return []Bucket{instantBucket(series, w.From, opts.Ceiling)}
	}

	n := opts.Points
	if n < 1 {
		n = 1
	}
	span := float64(w.Duration())

	// Legacy slots are spaced by span/(N-1); with a single slot every start is From.
	divisor := float64(n)
	if opts.IndexMode != IndexUniform {
		divisor = float64(n - 1)
	}

	buckets := make([]Bucket, n)
	for i := range buckets {
		var offset time.Duration
		if divisor > 0 {
			offset = time.Duration(span * float64(i) / divisor)
		}
		buckets[i].Start = w.From.Add(offset)
		buckets[i].Key = strconv.Itoa(i)
	}
	for i := 0; i < n-1; i++ {
		buckets[i].End = buckets[i+1].Start
	}
	buckets[n-1].End = w.To

	for _, s := range series.Samples {
		if !w.Contains(s.Instant) {
			continue
		}
		// Multiply before dividing so slot boundaries land on exact integers
		idx := int(math.Floor(float64(s.Instant.Sub(w.From)) * divisor / span))
		if idx < 0 {
			idx = 0
		}
		if idx > n-1 {
			idx = n - 1
		}
		buckets[idx].Add(s, opts.Ceiling)
	}

	return buckets
}

// instantBucket collects the samples sitting exactly at t
func instantBucket(series Series, t time.Time, ceiling *float64) Bucket {
	b := Bucket{Start: t, End: t, Key: "0"}
	for _, s := range series.Samples {
		if s.Instant.Equal(t) {
			b.Add(s, ceiling)
		}
	}
	return b
}

// CalendarBucketizer groups samples by the calendar unit of opts.Tier in
// opts.Location. Only units that received at least one sample produce a bucket.
type CalendarBucketizer struct{}

// Bucketize implements Bucketizer
func (CalendarBucketizer) Bucketize(series Series, w Window, opts Options) []Bucket {
	tier := opts.Tier
	if !tier.IsValid() {
		tier = SelectPrecision(w).Tier
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	index := make(map[string]int)
	var buckets []Bucket

	for _, s := range series.Samples {
		if !w.Contains(s.Instant) {
			continue
		}
		start := tier.Truncate(s.Instant, loc)
		key := start.Format(tier.KeyLayout())

		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, Bucket{Start: start, End: tier.Next(start), Key: key})
		}
		buckets[i].Add(s, opts.Ceiling)
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Start.Before(buckets[j].Start)
	})
	return buckets
}
