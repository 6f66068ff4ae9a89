package downsampling

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/soltixdb/chamberview/internal/utils"
)

// Accepted instants are those whose UnixNano fits in an int64 (1677-09-21
// through 2262-04-11). Cache keys and slot math are nanosecond based.
var (
	minInstant = time.Unix(0, math.MinInt64).UTC()
	maxInstant = time.Unix(0, math.MaxInt64).UTC()
)

// maxEpochMillis is the largest magnitude accepted for epoch milliseconds
const maxEpochMillis = float64(math.MaxInt64 / int64(time.Millisecond))

// offsetLayouts carry their own zone; localLayouts are read in the engine location.
var (
	offsetLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
	}
	localLayouts = []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04",
		"2006-01-02",
	}
)

// ParseInstant normalizes an instant-like value, reading zone-less text as UTC.
func ParseInstant(v interface{}) (time.Time, error) {
	return ParseInstantIn(v, time.UTC)
}

// ParseInstantIn normalizes an instant-like value into a time.Time.
// Accepted forms: time.Time, *time.Time, integer or float epoch milliseconds,
// json.Number, and text in RFC3339 or one of the common date layouts.
// Numbers are always milliseconds, never seconds.
func ParseInstantIn(v interface{}, loc *time.Location) (time.Time, error) {
	t, err := parseInstant(v, loc)
	if err != nil {
		return time.Time{}, err
	}
	if t.Before(minInstant) || t.After(maxInstant) {
		return time.Time{}, &ParseError{Input: v, Reason: "out of range"}
	}
	return t, nil
}

func parseInstant(v interface{}, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}

	switch val := v.(type) {
	case nil:
		return time.Time{}, &ParseError{Input: v, Reason: "missing"}
	case time.Time:
		if val.IsZero() {
			return time.Time{}, &ParseError{Input: v, Reason: "zero time"}
		}
		return val, nil
	case *time.Time:
		if val == nil || val.IsZero() {
			return time.Time{}, &ParseError{Input: v, Reason: "zero time"}
		}
		return *val, nil
	case int:
		return fromEpochMillis(float64(val), v)
	case int32:
		return fromEpochMillis(float64(val), v)
	case int64:
		return fromEpochMillis(float64(val), v)
	case uint32:
		return fromEpochMillis(float64(val), v)
	case uint64:
		return fromEpochMillis(float64(val), v)
	case float32:
		return fromEpochMillis(float64(val), v)
	case float64:
		return fromEpochMillis(val, v)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return fromEpochMillis(float64(i), v)
		}
		f, err := val.Float64()
		if err != nil {
			return time.Time{}, &ParseError{Input: v, Reason: "not a number"}
		}
		return fromEpochMillis(f, v)
	case string:
		return parseText(val, loc)
	default:
		return time.Time{}, &ParseError{Input: v, Reason: "unsupported type"}
	}
}

func fromEpochMillis(ms float64, input interface{}) (time.Time, error) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) {
		return time.Time{}, &ParseError{Input: input, Reason: "not a finite number"}
	}
	if math.Abs(ms) > maxEpochMillis {
		return time.Time{}, &ParseError{Input: input, Reason: "epoch milliseconds out of range"}
	}
	whole := math.Trunc(ms)
	frac := ms - whole
	return time.UnixMilli(int64(whole)).Add(time.Duration(frac * float64(time.Millisecond))).UTC(), nil
}

func parseText(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &ParseError{Input: s, Reason: "empty"}
	}

	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, &ParseError{Input: s, Reason: "unrecognized format"}
}

// ParseWindow parses both window bounds. Any failure, including from > to,
// is reported as a *WindowError.
func ParseWindow(from, to interface{}, loc *time.Location) (Window, error) {
	start, err := ParseInstantIn(from, loc)
	if err != nil {
		return Window{}, &WindowError{Bound: "from", Err: err}
	}
	end, err := ParseInstantIn(to, loc)
	if err != nil {
		return Window{}, &WindowError{Bound: "to", Err: err}
	}
	if start.After(end) {
		return Window{}, &WindowError{Err: ErrInvertedWindow}
	}
	// Sub saturates past ~292 years
	if d := end.Sub(start); !start.Add(d).Equal(end) {
		return Window{}, &WindowError{Err: ErrWindowTooLong}
	}
	return Window{From: start, To: end}, nil
}

// NormalizeSeries parses every raw sample. Samples whose instant cannot be
// read are dropped and reported; unreadable values become invalid samples.
func NormalizeSeries(raw RawSeries, loc *time.Location) (Series, []error) {
	series := Series{
		Label:   raw.Label,
		Unit:    raw.Unit,
		Samples: make([]Sample, 0, len(raw.Samples)),
	}

	var errs []error
	for i, rs := range raw.Samples {
		t, err := ParseInstantIn(rs.Instant, loc)
		if err != nil {
			errs = append(errs, &SampleError{Index: i, Err: err})
			continue
		}
		series.Samples = append(series.Samples, sampleFromRaw(t, rs.Value))
	}

	return series, errs
}

func sampleFromRaw(t time.Time, v interface{}) Sample {
	f, ok := utils.ToFloat64(v)
	if !ok {
		return InvalidSample(t)
	}
	return Sample{Instant: t, Value: f, Valid: true}
}
