package downsampling

import (
	"sort"
	"time"
)

// Add accumulates a sample into the bucket. Invalid samples are ignored and
// valid values above ceiling are clamped to it. Reports whether the sample counted.
func (b *Bucket) Add(s Sample, ceiling *float64) bool {
	if !s.IsValid() {
		return false
	}
	v := s.Value
	if ceiling != nil && v > *ceiling {
		v = *ceiling
	}
	b.Sum += v
	b.ValidCount++
	b.SampledInstants = append(b.SampledInstants, s.Instant)
	return true
}

// Mean returns the average of the accumulated values, or nil for an empty bucket
func (b *Bucket) Mean() *float64 {
	if b.ValidCount == 0 {
		return nil
	}
	mean := b.Sum / float64(b.ValidCount)
	return &mean
}

// RepresentativeInstant returns the middle valid instant (upper middle for an
// even count), or Start when the bucket has no valid samples.
func (b *Bucket) RepresentativeInstant() time.Time {
	n := len(b.SampledInstants)
	if n == 0 {
		return b.Start
	}
	instants := b.SampledInstants
	if !sort.SliceIsSorted(instants, func(i, j int) bool { return instants[i].Before(instants[j]) }) {
		instants = make([]time.Time, n)
		copy(instants, b.SampledInstants)
		sort.Slice(instants, func(i, j int) bool { return instants[i].Before(instants[j]) })
	}
	return instants[n/2]
}

// Reduce turns buckets into output points, one per bucket, in bucket order
func Reduce(buckets []Bucket) []AggregatedPoint {
	points := make([]AggregatedPoint, len(buckets))
	for i := range buckets {
		points[i] = AggregatedPoint{
			Instant: buckets[i].RepresentativeInstant(),
			Value:   buckets[i].Mean(),
		}
	}
	return points
}
