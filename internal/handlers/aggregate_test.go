package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltixdb/chamberview/internal/cache"
	"github.com/soltixdb/chamberview/internal/config"
	"github.com/soltixdb/chamberview/internal/downsampling"
	"github.com/soltixdb/chamberview/internal/logging"
	"github.com/soltixdb/chamberview/internal/models"
	"github.com/soltixdb/chamberview/internal/services"
)

// newTestHandler wires a handler over the default configuration and a memory cache
func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Engine.MaxSeries = 4

	logger := logging.NewNop()
	memo := cache.NewMemoryCache(time.Minute, time.Minute)
	t.Cleanup(func() { _ = memo.Close() })

	engine := downsampling.NewEngine(logger, cfg.Engine.GetLocation())
	svc := services.NewAggregationService(logger, engine, memo, cfg.Engine, cfg.Sensors)
	return New(logger, svc, cfg.Engine)
}

func newTestApp(t *testing.T) *fiber.App {
	h := newTestHandler(t)
	app := fiber.New()
	app.Get("/v1/precision", h.Precision)
	app.Get("/v1/tiers", h.Tiers)
	app.Post("/v1/aggregate", h.Aggregate)
	return app
}

func postJSON(t *testing.T, app *fiber.App, body interface{}) *http.Response {
	t.Helper()
	var payload []byte
	switch b := body.(type) {
	case string:
		payload = []byte(b)
	default:
		var err error
		payload, err = json.Marshal(b)
		require.NoError(t, err)
	}
	req := httptest.NewRequest("POST", "/v1/aggregate", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out
}

func chamberSeries() map[string]interface{} {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	times := make([]interface{}, 0, 48)
	values := make([]interface{}, 0, 48)
	for i := 0; i < 48; i++ {
		at := start.Add(time.Duration(i) * time.Hour)
		if i%2 == 0 {
			times = append(times, at.Format(time.RFC3339))
		} else {
			times = append(times, at.UnixMilli())
		}
		if i == 47 {
			values = append(values, nil)
		} else {
			values = append(values, 20+float64(i%5))
		}
	}
	return map[string]interface{}{
		"label":  "chamber-a/temperature",
		"unit":   "°C",
		"type":   "temperature",
		"times":  times,
		"values": values,
	}
}

func TestHandler_Aggregate(t *testing.T) {
	app := newTestApp(t)

	resp := postJSON(t, app, map[string]interface{}{
		"from":   "2024-03-01T00:00:00Z",
		"to":     "2024-03-03T00:00:00Z",
		"series": []interface{}{chamberSeries()},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	out := decode[models.AggregateResponse](t, resp)
	assert.Equal(t, "quarter-day", out.Tier)
	assert.Equal(t, 28, out.Points)
	assert.Equal(t, "fixed-count", out.Strategy)
	assert.False(t, out.Fallback)
	require.Len(t, out.Series, 1)

	s := out.Series[0]
	assert.Equal(t, "chamber-a/temperature", s.Label)
	assert.Equal(t, "°C", s.Unit)
	assert.Len(t, s.Times, 28)
	assert.Len(t, s.Values, 28)
	// the first bucket holds hours 0 and 1, the later one is the median instant
	assert.Equal(t, "2024-03-01T01:00:00.000Z", s.Times[0])
	require.NotNil(t, s.LastValidValue)
	assert.Equal(t, 21.0, *s.LastValidValue, "hour 46 holds the last valid reading")
	require.NotNil(t, s.Ceiling)
	assert.Equal(t, 500.0, *s.Ceiling)
}

func TestHandler_Aggregate_CalendarAligned(t *testing.T) {
	app := newTestApp(t)

	resp := postJSON(t, app, map[string]interface{}{
		"from":      "2024-03-01T00:00:00Z",
		"to":        "2024-03-03T00:00:00Z",
		"strategy":  "calendar-aligned",
		"precision": "quarter-day",
		"series":    []interface{}{chamberSeries()},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	out := decode[models.AggregateResponse](t, resp)
	assert.Equal(t, "quarter-day", out.Tier)
	assert.Equal(t, "calendar-aligned", out.Strategy)
	assert.Zero(t, out.Points)
	require.Len(t, out.Series[0].Times, 8)
	// hours 6 through 11, represented by the median valid instant
	assert.Equal(t, "2024-03-01T09:00:00.000Z", out.Series[0].Times[1])
}

func TestHandler_Aggregate_Fallback(t *testing.T) {
	app := newTestApp(t)

	resp := postJSON(t, app, map[string]interface{}{
		"from":   "yesterday",
		"to":     "2024-03-03T00:00:00Z",
		"series": []interface{}{chamberSeries()},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	out := decode[models.AggregateResponse](t, resp)
	assert.True(t, out.Fallback)
	assert.Len(t, out.Series[0].Values, 48)
	assert.Nil(t, out.Series[0].Values[47])
}

func TestHandler_Aggregate_Errors(t *testing.T) {
	app := newTestApp(t)
	series := chamberSeries()

	tests := []struct {
		name         string
		body         interface{}
		expectedCode string
	}{
		{"malformed json", `{"series": [`, "INVALID_JSON"},
		{"no series", map[string]interface{}{"from": "2024-03-01T00:00:00Z", "to": "2024-03-02T00:00:00Z"}, services.CodeInvalidRequest},
		{"unknown precision", map[string]interface{}{"precision": "fortnight", "series": []interface{}{series}}, services.CodeInvalidRequest},
		{"too many series", map[string]interface{}{"series": []interface{}{series, series, series, series, series}}, services.CodeInvalidRequest},
		{"too many points", map[string]interface{}{"points": 100000, "series": []interface{}{series}}, services.CodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, app, tt.body)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			errResp := decode[models.ErrorResponse](t, resp)
			assert.Equal(t, tt.expectedCode, errResp.Error.Code)
			assert.NotEmpty(t, errResp.Error.Message)
		})
	}
}

func TestHandler_Precision(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		query          string
		expectedStatus int
		expectedTier   string
		expectedPoints int
	}{
		{"?from=2024-03-01T00:00:00Z&to=2024-03-01T00:30:00Z", fiber.StatusOK, "minute", 60},
		{"?from=2024-03-01T00:00:00Z&to=2024-03-01T12:00:00Z", fiber.StatusOK, "hour", 24},
		{"?from=2024-03-01T00:00:00Z&to=2024-03-05T00:00:00Z", fiber.StatusOK, "quarter-day", 28},
		{"?from=1709251200000&to=1717200000000", fiber.StatusOK, "week", 52},
		{"?from=2024-03-05T00:00:00Z&to=2024-03-01T00:00:00Z", fiber.StatusBadRequest, "", 0},
		{"?from=2024-03-01T00:00:00Z", fiber.StatusBadRequest, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", "/v1/precision"+tt.query, nil))
			require.NoError(t, err)
			require.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedStatus != fiber.StatusOK {
				assert.Equal(t, services.CodeInvalidRequest, decode[models.ErrorResponse](t, resp).Error.Code)
				return
			}
			out := decode[models.PrecisionResponse](t, resp)
			assert.Equal(t, tt.expectedTier, out.Tier)
			assert.Equal(t, tt.expectedPoints, out.Points)
		})
	}
}

func TestHandler_Tiers(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/tiers", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	out := decode[struct {
		Tiers      []TierInfo `json:"tiers"`
		Strategies []string   `json:"strategies"`
	}](t, resp)
	require.Len(t, out.Tiers, 7)
	assert.Equal(t, TierInfo{Tier: "minute", Points: 60, Layout: out.Tiers[0].Layout}, out.Tiers[0])
	assert.Equal(t, []string{"fixed-count", "calendar-aligned"}, out.Strategies)
}
