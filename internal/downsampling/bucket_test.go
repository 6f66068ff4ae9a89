package downsampling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func minutes(n int) time.Time {
	return t0.Add(time.Duration(n) * time.Minute)
}

func seriesOf(samples ...Sample) Series {
	return Series{Label: "test", Samples: samples}
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("fixed")
	require.NoError(t, err)
	assert.Equal(t, StrategyFixedCount, s)

	s, err = ParseStrategy("Calendar-Aligned")
	require.NoError(t, err)
	assert.Equal(t, StrategyCalendar, s)

	_, err = ParseStrategy("lttb")
	assert.Error(t, err)
}

func TestParseIndexMode(t *testing.T) {
	m, err := ParseIndexMode("uniform")
	require.NoError(t, err)
	assert.Equal(t, IndexUniform, m)

	_, err = ParseIndexMode("")
	assert.Error(t, err)
}

func TestFixedCount_LegacyIndex(t *testing.T) {
	w := Window{From: t0, To: minutes(60)}
	series := seriesOf(
		NewSample(minutes(0), 1),
		NewSample(minutes(29), 2),
		NewSample(minutes(30), 3),
		NewSample(minutes(59), 4),
		NewSample(minutes(60), 5),
	)

	buckets := FixedCountBucketizer{}.Bucketize(series, w, Options{Points: 3, IndexMode: IndexLegacy})
	require.Len(t, buckets, 3)

	// Legacy spacing puts slot starts at from, from+span/2 and to
	assert.Equal(t, minutes(0), buckets[0].Start)
	assert.Equal(t, minutes(30), buckets[1].Start)
	assert.Equal(t, minutes(60), buckets[2].Start)

	assert.Equal(t, 2, buckets[0].ValidCount)
	assert.Equal(t, 2, buckets[1].ValidCount)
	assert.Equal(t, 1, buckets[2].ValidCount)
	assert.Equal(t, 5.0, buckets[2].Sum)
}

func TestFixedCount_UniformIndex(t *testing.T) {
	w := Window{From: t0, To: minutes(60)}
	series := seriesOf(
		NewSample(minutes(0), 1),
		NewSample(minutes(25), 2),
		NewSample(minutes(45), 3),
		NewSample(minutes(60), 4),
	)

	buckets := FixedCountBucketizer{}.Bucketize(series, w, Options{Points: 3, IndexMode: IndexUniform})
	require.Len(t, buckets, 3)

	assert.Equal(t, minutes(20), buckets[1].Start)
	assert.Equal(t, minutes(40), buckets[2].Start)
	assert.Equal(t, 1, buckets[0].ValidCount)
	assert.Equal(t, 1, buckets[1].ValidCount)
	assert.Equal(t, 2, buckets[2].ValidCount)
}

func TestFixedCount_DiscardsOutsideWindow(t *testing.T) {
	w := Window{From: minutes(10), To: minutes(20)}
	series := seriesOf(
		NewSample(minutes(5), 100),
		NewSample(minutes(15), 1),
		NewSample(minutes(25), 100),
	)

	buckets := FixedCountBucketizer{}.Bucketize(series, w, Options{Points: 2})
	total := 0
	for _, b := range buckets {
		total += b.ValidCount
	}
	assert.Equal(t, 1, total)
}

func TestFixedCount_SinglePointAndDegenerate(t *testing.T) {
	series := seriesOf(NewSample(minutes(0), 1), NewSample(minutes(10), 3))

	buckets := FixedCountBucketizer{}.Bucketize(series, Window{From: t0, To: minutes(10)}, Options{Points: 1})
	require.Len(t, buckets, 1)
	assert.Equal(t, 2, buckets[0].ValidCount)

	buckets = FixedCountBucketizer{}.Bucketize(series, Window{From: t0, To: minutes(10)}, Options{Points: 0})
	require.Len(t, buckets, 1)

	buckets = FixedCountBucketizer{}.Bucketize(series, Window{From: t0, To: t0}, Options{Points: 60})
	require.Len(t, buckets, 1)
	assert.Equal(t, t0, buckets[0].Start)
	assert.Equal(t, 1, buckets[0].ValidCount)
}

func TestCalendar_GroupsByTier(t *testing.T) {
	w := Window{From: t0, To: t0.Add(72 * time.Hour)}
	series := seriesOf(
		NewSample(t0.Add(1*time.Hour), 10),
		NewSample(t0.Add(2*time.Hour), 20),
		InvalidSample(t0.Add(30*time.Hour)),
		NewSample(t0.Add(50*time.Hour), 30),
	)

	buckets := CalendarBucketizer{}.Bucketize(series, w, Options{Tier: TierDay, Location: time.UTC})
	require.Len(t, buckets, 3)

	assert.Equal(t, "2024-01-01", buckets[0].Key)
	assert.Equal(t, 2, buckets[0].ValidCount)

	// A unit holding only invalid samples still yields a bucket
	assert.Equal(t, "2024-01-02", buckets[1].Key)
	assert.Equal(t, 0, buckets[1].ValidCount)

	assert.Equal(t, "2024-01-03", buckets[2].Key)
	assert.Equal(t, t0.Add(48*time.Hour), buckets[2].Start)
	assert.Equal(t, t0.Add(72*time.Hour), buckets[2].End)
}

func TestCalendar_UnsortedInputIsChronological(t *testing.T) {
	w := Window{From: t0, To: t0.Add(5 * time.Hour)}
	series := seriesOf(
		NewSample(t0.Add(4*time.Hour), 4),
		NewSample(t0.Add(1*time.Hour), 1),
		NewSample(t0.Add(3*time.Hour), 3),
	)

	buckets := CalendarBucketizer{}.Bucketize(series, w, Options{Tier: TierHour})
	require.Len(t, buckets, 3)
	assert.Equal(t, "2024-01-01 01:00", buckets[0].Key)
	assert.Equal(t, "2024-01-01 03:00", buckets[1].Key)
	assert.Equal(t, "2024-01-01 04:00", buckets[2].Key)
}

func TestNewBucketizer(t *testing.T) {
	assert.IsType(t, CalendarBucketizer{}, NewBucketizer(StrategyCalendar))
	assert.IsType(t, FixedCountBucketizer{}, NewBucketizer(StrategyFixedCount))
	assert.IsType(t, FixedCountBucketizer{}, NewBucketizer(""))
}

func TestBucketAdd(t *testing.T) {
	var b Bucket
	ceiling := 500.0

	assert.True(t, b.Add(NewSample(t0, 10), &ceiling))
	assert.False(t, b.Add(InvalidSample(minutes(1)), &ceiling))
	assert.True(t, b.Add(NewSample(minutes(2), 30), &ceiling))
	assert.True(t, b.Add(NewSample(minutes(3), 900), &ceiling))

	assert.Equal(t, 3, b.ValidCount)
	assert.Equal(t, 540.0, b.Sum)
	require.NotNil(t, b.Mean())
	assert.Equal(t, 180.0, *b.Mean())
}

func TestBucket_MeanSkipsInvalid(t *testing.T) {
	var b Bucket
	b.Add(NewSample(t0, 10), nil)
	b.Add(InvalidSample(minutes(1)), nil)
	b.Add(NewSample(minutes(2), 30), nil)

	require.NotNil(t, b.Mean())
	assert.Equal(t, 20.0, *b.Mean())
	assert.Equal(t, 2, b.ValidCount)
}

func TestBucket_RepresentativeInstant(t *testing.T) {
	b := Bucket{Start: t0}
	assert.Equal(t, t0, b.RepresentativeInstant())
	assert.Nil(t, b.Mean())

	b.SampledInstants = []time.Time{minutes(9), minutes(1), minutes(5)}
	assert.Equal(t, minutes(5), b.RepresentativeInstant())

	b.SampledInstants = []time.Time{minutes(1), minutes(2)}
	assert.Equal(t, minutes(2), b.RepresentativeInstant())
}

func TestReduce(t *testing.T) {
	full := Bucket{Start: t0}
	full.Add(NewSample(minutes(1), 4), nil)
	empty := Bucket{Start: minutes(30)}

	points := Reduce([]Bucket{full, empty})
	require.Len(t, points, 2)
	require.NotNil(t, points[0].Value)
	assert.Equal(t, 4.0, *points[0].Value)
	assert.Equal(t, minutes(1), points[0].Instant)
	assert.Nil(t, points[1].Value)
	assert.Equal(t, minutes(30), points[1].Instant)
}
