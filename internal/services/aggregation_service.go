package services

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/soltixdb/chamberview/internal/cache"
	"github.com/soltixdb/chamberview/internal/config"
	"github.com/soltixdb/chamberview/internal/downsampling"
	"github.com/soltixdb/chamberview/internal/logging"
	"github.com/soltixdb/chamberview/internal/models"
	"github.com/soltixdb/chamberview/internal/utils"
)

// AggregationService runs aggregation requests against the engine
type AggregationService struct {
	logger  *logging.Logger
	engine  *downsampling.Engine
	cache   cache.Cache
	engCfg  config.EngineConfig
	sensors map[string]config.SensorConfig
}

// NewAggregationService creates a new AggregationService. A nil cache disables memoization.
func NewAggregationService(
	logger *logging.Logger,
	engine *downsampling.Engine,
	memo cache.Cache,
	engCfg config.EngineConfig,
	sensors map[string]config.SensorConfig,
) *AggregationService {
	if memo == nil {
		memo = &cache.NoopCache{}
	}
	if engCfg.MaxWorkers < 1 {
		engCfg.MaxWorkers = utils.DefaultMaxWorkers
	}
	if engCfg.MaxPoints < 1 {
		engCfg.MaxPoints = utils.DefaultMaxPoints
	}
	return &AggregationService{
		logger:  logger,
		engine:  engine,
		cache:   memo,
		engCfg:  engCfg,
		sensors: sensors,
	}
}

// CacheStats returns memo cache counters
func (s *AggregationService) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// SelectPrecision parses a window and reports the selected tier
func (s *AggregationService) SelectPrecision(from, to interface{}) (*models.PrecisionResponse, error) {
	w, err := downsampling.ParseWindow(from, to, s.engine.Location())
	if err != nil {
		return nil, NewServiceErrorWithDetails(CodeInvalidRequest, "from and to must form a valid window",
			map[string]interface{}{"error": err.Error()})
	}

	p := downsampling.SelectPrecision(w)
	return &models.PrecisionResponse{
		From:            w.From.In(s.engine.Location()).Format(models.TimeFormat),
		To:              w.To.In(s.engine.Location()).Format(models.TimeFormat),
		Tier:            string(p.Tier),
		Points:          p.Points,
		DurationSeconds: w.Duration().Seconds(),
	}, nil
}

// Execute aggregates every series of a validated request. Results keep request order.
func (s *AggregationService) Execute(ctx context.Context, req *models.AggregateRequest) (*models.AggregateResponse, error) {
	startTime := time.Now()
	loc := s.engine.Location()

	base := s.baseOptions(req)

	w, windowErr := downsampling.ParseWindow(req.From, req.To, loc)
	fallback := windowErr != nil
	if fallback {
		s.logger.Warn("Window unusable, returning unbucketed series",
			"error", windowErr,
			"series", len(req.Series))
	} else {
		base = s.engine.Resolve(base, w)
	}

	results := make([]models.SeriesResult, len(req.Series))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.engCfg.MaxWorkers)

	for i := range req.Series {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			input := req.Series[i]
			opts := base
			opts.Ceiling = s.resolveCeiling(req, input)

			var (
				res    downsampling.AggregationResult
				cached bool
			)
			if fallback {
				res = s.engine.AggregateRaw(input.RawSeries(), req.From, req.To, opts)
			} else {
				res, cached = s.aggregate(gctx, input, w, opts)
			}

			out := models.NewSeriesResult(input.Label, input.Unit, res, loc)
			out.Ceiling = opts.Ceiling
			out.Cached = cached
			results[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, NewServiceErrorWithDetails(CodeCanceled, "Aggregation canceled",
				map[string]interface{}{"error": err.Error()})
		}
		return nil, NewServiceErrorWithDetails(CodeAggregationFailed, "Failed to aggregate series",
			map[string]interface{}{"error": err.Error()})
	}

	resp := &models.AggregateResponse{
		Strategy: string(base.Strategy),
		Fallback: fallback,
		Series:   results,
	}
	if resp.Strategy == "" {
		resp.Strategy = string(downsampling.StrategyFixedCount)
	}
	if !fallback {
		resp.From = w.From.In(loc).Format(models.TimeFormat)
		resp.To = w.To.In(loc).Format(models.TimeFormat)
		resp.Tier = string(base.Tier)
		// Calendar-aligned counts depend on the data of each series
		switch {
		case w.IsDegenerate():
			resp.Points = 1
		case base.Strategy != downsampling.StrategyCalendar:
			resp.Points = base.Points
		}
	}

	s.logger.Info("Aggregation completed",
		"series", len(results),
		"tier", resp.Tier,
		"strategy", resp.Strategy,
		"fallback", fallback,
		"latency_ms", time.Since(startTime).Milliseconds())

	return resp, nil
}

// aggregate parses one series and serves it from the memo cache when possible
func (s *AggregationService) aggregate(ctx context.Context, input models.SeriesInput, w downsampling.Window, opts downsampling.Options) (downsampling.AggregationResult, bool) {
	series, errs := downsampling.NormalizeSeries(input.RawSeries(), opts.Location)
	if len(errs) > 0 {
		s.logger.Debug("Dropped samples with unreadable instants",
			"series", input.Label,
			"dropped", len(errs),
			"first_error", errs[0].Error())
	}

	key := cache.NewKey(series, w, opts)
	if res, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("Cache lookup failed", "series", input.Label, "error", err)
	} else if ok {
		res.Dropped = len(errs)
		return res, true
	}

	res := s.engine.Aggregate(series, w, opts)
	res.Dropped = len(errs)

	if err := s.cache.Set(ctx, key, res); err != nil {
		s.logger.Warn("Cache store failed", "series", input.Label, "error", err)
	}
	return res, false
}

// baseOptions merges request options over configured defaults
func (s *AggregationService) baseOptions(req *models.AggregateRequest) downsampling.Options {
	opts := downsampling.Options{
		Strategy:  req.StrategyParsed,
		Tier:      req.TierParsed,
		Points:    req.Points,
		IndexMode: req.IndexModeParsed,
		Filter:    req.FilterParsed,
		Location:  s.engine.Location(),
	}
	if opts.Strategy == "" {
		opts.Strategy = downsampling.Strategy(s.engCfg.DefaultStrategy)
	}
	if opts.IndexMode == "" {
		opts.IndexMode = downsampling.IndexMode(s.engCfg.IndexMode)
	}
	if opts.Points > s.engCfg.MaxPoints {
		opts.Points = s.engCfg.MaxPoints
	}
	return opts
}

// resolveCeiling picks the request ceiling, then the series sensor type, then the request sensor type
func (s *AggregationService) resolveCeiling(req *models.AggregateRequest, input models.SeriesInput) *float64 {
	if req.Ceiling != nil {
		return req.Ceiling
	}
	for _, sensorType := range []string{input.Type, req.SensorType} {
		if sensorType == "" {
			continue
		}
		if sensor, ok := s.sensors[sensorType]; ok && sensor.Ceiling != nil {
			return sensor.Ceiling
		}
	}
	return nil
}
