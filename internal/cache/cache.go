// Package cache memoizes aggregation results keyed by series fingerprint and
// the resolved aggregation options.
package cache

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/soltixdb/chamberview/internal/downsampling"
)

// Cache stores aggregation results. Implementations are safe for concurrent use.
type Cache interface {
	// Get returns the cached result for key; ok is false on a miss
	Get(ctx context.Context, key Key) (res downsampling.AggregationResult, ok bool, err error)
	// Set stores a result under key
	Set(ctx context.Context, key Key, res downsampling.AggregationResult) error
	// Stats returns hit and miss counters
	Stats() Stats
	// Close releases background resources
	Close() error
}

// Stats reports cache usage
type Stats struct {
	Type    string `json:"type"`
	Entries int    `json:"entries"` // -1 when the backend cannot tell
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
}

// counters is embedded by backends to track hits and misses
type counters struct {
	hits   atomic.Uint64
	misses atomic.Uint64
}

func (c *counters) record(hit bool) {
	if hit {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
}

// Key identifies one aggregation. Every field that changes the output is part of it.
type Key struct {
	Series    uint64
	From      int64 // Unix nanoseconds
	To        int64
	Tier      downsampling.Tier
	Strategy  downsampling.Strategy
	Points    int
	Ceiling   *float64
	IndexMode downsampling.IndexMode
	Filter    downsampling.FilterStage
	Location  string
}

// NewKey builds a key from a series, its window and fully resolved options
func NewKey(series downsampling.Series, w downsampling.Window, opts downsampling.Options) Key {
	k := Key{
		Series:    Fingerprint(series),
		From:      w.From.UnixNano(),
		To:        w.To.UnixNano(),
		Tier:      opts.Tier,
		Strategy:  opts.Strategy,
		Points:    opts.Points,
		Ceiling:   opts.Ceiling,
		IndexMode: opts.IndexMode,
		Filter:    opts.Filter,
	}
	if opts.Location != nil {
		k.Location = opts.Location.String()
	}
	return k
}

// String renders the key in a stable form usable as a storage key
func (k Key) String() string {
	ceiling := "none"
	if k.Ceiling != nil {
		ceiling = strconv.FormatFloat(*k.Ceiling, 'g', -1, 64)
	}
	return fmt.Sprintf("%016x:%d:%d:%s:%s:%d:%s:%s:%s:%s",
		k.Series, k.From, k.To, k.Tier, k.Strategy, k.Points, ceiling, k.IndexMode, k.Filter, k.Location)
}

// Fingerprint hashes a series' label, unit and samples in order
func Fingerprint(series downsampling.Series) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(series.Label)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(series.Unit)
	_, _ = d.Write([]byte{0})

	var buf [17]byte
	for _, s := range series.Samples {
		binary.LittleEndian.PutUint64(buf[0:8], uint64(s.Instant.UnixNano()))
		binary.LittleEndian.PutUint64(buf[8:16], math.Float64bits(s.Value))
		buf[16] = 0
		if s.IsValid() {
			buf[16] = 1
		}
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}
