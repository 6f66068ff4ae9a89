package models

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/soltixdb/chamberview/internal/downsampling"
	"github.com/soltixdb/chamberview/internal/utils"
)

// SeriesInput is one sensor series as charts send it: parallel times and values
type SeriesInput struct {
	Label  string        `json:"label"`
	Unit   string        `json:"unit,omitempty"`
	Type   string        `json:"type,omitempty"` // sensor type, selects the configured ceiling
	Times  []interface{} `json:"times"`          // RFC3339 text or epoch milliseconds
	Values []interface{} `json:"values"`         // numbers, numeric strings or null
}

// AggregateRequest represents an aggregation request body.
// From and To are not validated here; an unusable window produces a fallback result.
type AggregateRequest struct {
	From       interface{}   `json:"from"`
	To         interface{}   `json:"to"`
	Precision  string        `json:"precision,omitempty"`   // minute, hour, quarter-day, day, two-day, week, month
	Points     int           `json:"points,omitempty"`      // overrides the tier point count
	Strategy   string        `json:"strategy,omitempty"`    // fixed-count, calendar-aligned
	Filter     string        `json:"filter,omitempty"`      // before, after, none
	IndexMode  string        `json:"index_mode,omitempty"`  // legacy, uniform
	SensorType string        `json:"sensor_type,omitempty"` // default sensor type for all series
	Ceiling    *float64      `json:"ceiling,omitempty"`     // overrides configured ceilings
	Series     []SeriesInput `json:"series"`

	TierParsed      downsampling.Tier        `json:"-"`
	StrategyParsed  downsampling.Strategy    `json:"-"`
	FilterParsed    downsampling.FilterStage `json:"-"`
	IndexModeParsed downsampling.IndexMode   `json:"-"`
}

// Validate checks the request against the given limits and parses the
// enumerated options into their Parsed fields.
func (r *AggregateRequest) Validate(maxSeries, maxPoints int) error {
	if len(r.Series) == 0 {
		return badRequest("series is required")
	}
	if maxSeries > 0 && len(r.Series) > maxSeries {
		return badRequest(fmt.Sprintf("at most %d series are allowed per request", maxSeries))
	}

	for i, s := range r.Series {
		if len(s.Times) != len(s.Values) {
			return badRequest(fmt.Sprintf("series[%d]: times and values must have the same length (%d != %d)",
				i, len(s.Times), len(s.Values)))
		}
	}

	if r.Points < 0 {
		return badRequest("points must be a non-negative integer")
	}
	if maxPoints > 0 && r.Points > maxPoints {
		return badRequest(fmt.Sprintf("points cannot exceed %d", maxPoints))
	}

	if r.Ceiling != nil && !utils.IsFinite(*r.Ceiling) {
		return badRequest("ceiling must be a finite number")
	}

	if r.Precision != "" {
		tier, err := downsampling.ParseTier(r.Precision)
		if err != nil {
			return badRequest("precision must be one of: minute, hour, quarter-day, day, two-day, week, month")
		}
		r.TierParsed = tier
	}

	if r.Strategy != "" {
		strategy, err := downsampling.ParseStrategy(r.Strategy)
		if err != nil {
			return badRequest("strategy must be one of: fixed-count, calendar-aligned")
		}
		r.StrategyParsed = strategy
	}

	if r.Filter != "" {
		filter, err := downsampling.ParseFilterStage(r.Filter)
		if err != nil {
			return badRequest("filter must be one of: before, after, none")
		}
		r.FilterParsed = filter
	}

	if r.IndexMode != "" {
		mode, err := downsampling.ParseIndexMode(r.IndexMode)
		if err != nil {
			return badRequest("index_mode must be one of: legacy, uniform")
		}
		r.IndexModeParsed = mode
	}

	return nil
}

// RawSeries converts the input to the engine's unparsed series form
func (s SeriesInput) RawSeries() downsampling.RawSeries {
	raw := downsampling.RawSeries{
		Label:   s.Label,
		Unit:    s.Unit,
		Samples: make([]downsampling.RawSample, len(s.Times)),
	}
	for i := range s.Times {
		raw.Samples[i] = downsampling.RawSample{Instant: s.Times[i]}
		if i < len(s.Values) {
			raw.Samples[i].Value = s.Values[i]
		}
	}
	return raw
}

func badRequest(msg string) *fiber.Error {
	return &fiber.Error{
		Code:    fiber.StatusBadRequest,
		Message: msg,
	}
}
