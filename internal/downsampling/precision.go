package downsampling

import (
	"fmt"
	"strings"
	"time"
)

// Tier is a named chart granularity
type Tier string

const (
	TierMinute     Tier = "minute"
	TierHour       Tier = "hour"
	TierQuarterDay Tier = "quarter-day"
	TierDay        Tier = "day"
	TierTwoDay     Tier = "two-day"
	TierWeek       Tier = "week"
	TierMonth      Tier = "month"
)

const day = 24 * time.Hour

// tierSpec holds the canonical fixed-count point count and the calendar key layout
type tierSpec struct {
	points int
	layout string
}

var tierSpecs = map[Tier]tierSpec{
	TierMinute:     {points: 60, layout: "2006-01-02 15:04"},
	TierHour:       {points: 24, layout: "2006-01-02 15:00"},
	TierQuarterDay: {points: 28, layout: "2006-01-02 15:00"},
	TierDay:        {points: 30, layout: "2006-01-02"},
	TierTwoDay:     {points: 45, layout: "2006-01-02"},
	TierWeek:       {points: 52, layout: "2006-01-02"},
	TierMonth:      {points: 12, layout: "2006-01"},
}

// ValidTiers returns all tiers from finest to coarsest
func ValidTiers() []Tier {
	return []Tier{TierMinute, TierHour, TierQuarterDay, TierDay, TierTwoDay, TierWeek, TierMonth}
}

// ParseTier parses a tier name. "two-days" is accepted for older dashboards.
func ParseTier(s string) (Tier, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "two-days" {
		name = string(TierTwoDay)
	}
	t := Tier(name)
	if _, ok := tierSpecs[t]; !ok {
		return "", fmt.Errorf("unknown precision tier: %q", s)
	}
	return t, nil
}

// IsValid reports whether t is a known tier
func (t Tier) IsValid() bool {
	_, ok := tierSpecs[t]
	return ok
}

// Points returns the canonical output point count for fixed-count bucketing
func (t Tier) Points() int {
	if spec, ok := tierSpecs[t]; ok {
		return spec.points
	}
	return tierSpecs[TierHour].points
}

// KeyLayout returns the time layout used for calendar bucket keys
func (t Tier) KeyLayout() string {
	if spec, ok := tierSpecs[t]; ok {
		return spec.layout
	}
	return tierSpecs[TierMinute].layout
}

// Truncate rounds ts down to the start of its calendar unit in loc.
// Weeks start on Monday; two-day units start on even days counted from 1970-01-01.
func (t Tier) Truncate(ts time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	ts = ts.In(loc)
	y, m, d := ts.Date()

	switch t {
	case TierHour:
		return time.Date(y, m, d, ts.Hour(), 0, 0, 0, loc)
	case TierQuarterDay:
		return time.Date(y, m, d, ts.Hour()-ts.Hour()%6, 0, 0, 0, loc)
	case TierDay:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	case TierTwoDay:
		if civilDay(y, m, d)%2 != 0 {
			d--
		}
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	case TierWeek:
		offset := (int(ts.Weekday()) + 6) % 7
		return time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
	case TierMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(y, m, d, ts.Hour(), ts.Minute(), 0, 0, loc)
	}
}

// Next returns the start of the calendar unit following start
func (t Tier) Next(start time.Time) time.Time {
	y, m, d := start.Date()
	h, mi, loc := start.Hour(), start.Minute(), start.Location()

	switch t {
	case TierHour:
		return time.Date(y, m, d, h+1, 0, 0, 0, loc)
	case TierQuarterDay:
		return time.Date(y, m, d, h+6, 0, 0, 0, loc)
	case TierDay:
		return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	case TierTwoDay:
		return time.Date(y, m, d+2, 0, 0, 0, 0, loc)
	case TierWeek:
		return time.Date(y, m, d+7, 0, 0, 0, 0, loc)
	case TierMonth:
		return time.Date(y, m+1, 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(y, m, d, h, mi+1, 0, 0, loc)
	}
}

// Key returns the calendar bucket key of ts
func (t Tier) Key(ts time.Time, loc *time.Location) string {
	return t.Truncate(ts, loc).Format(t.KeyLayout())
}

// civilDay counts days since 1970-01-01 for a calendar date, independent of zone
func civilDay(y int, m time.Month, d int) int64 {
	secs := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix()
	days := secs / 86400
	if secs%86400 != 0 && secs < 0 {
		days--
	}
	return days
}

// Precision is a tier plus the number of points to produce
type Precision struct {
	Tier   Tier `json:"tier"`
	Points int  `json:"points"`
}

// selectorTable is evaluated in order; the first row whose bound covers the
// window duration wins.
var selectorTable = []struct {
	maxDuration time.Duration
	tier        Tier
}{
	{time.Hour, TierMinute},
	{day, TierHour},
	{7 * day, TierQuarterDay},
	{30 * day, TierDay},
	{90 * day, TierTwoDay},
}

// SelectPrecision maps a window's duration to a tier and target point count
func SelectPrecision(w Window) Precision {
	d := w.Duration()
	for _, row := range selectorTable {
		if d <= row.maxDuration {
			return Precision{Tier: row.tier, Points: row.tier.Points()}
		}
	}
	return Precision{Tier: TierWeek, Points: TierWeek.Points()}
}
