package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/chamberview/internal/downsampling"
	"github.com/soltixdb/chamberview/internal/models"
	"github.com/soltixdb/chamberview/internal/services"
)

// Precision reports the tier selected for a window
// GET /v1/precision?from=xxx&to=xxx
func (h *Handler) Precision(c *fiber.Ctx) error {
	from := c.Query("from")
	to := c.Query("to")
	if from == "" || to == "" {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    services.CodeInvalidRequest,
				Message: "from and to query parameters are required",
			},
		})
	}

	resp, err := h.aggregationService.SelectPrecision(queryInstant(from), queryInstant(to))
	if err != nil {
		return h.serviceFailure(c, err)
	}
	return c.JSON(resp)
}

// queryInstant reads all-digit query values as epoch milliseconds
func queryInstant(s string) interface{} {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms
	}
	return s
}

// TierInfo describes one precision tier
type TierInfo struct {
	Tier   string `json:"tier"`
	Points int    `json:"points"`
	Layout string `json:"key_layout"`
}

// Tiers lists the precision tiers and their default point counts
// GET /v1/tiers
func (h *Handler) Tiers(c *fiber.Ctx) error {
	tiers := downsampling.ValidTiers()
	out := make([]TierInfo, len(tiers))
	for i, t := range tiers {
		out[i] = TierInfo{Tier: string(t), Points: t.Points(), Layout: t.KeyLayout()}
	}
	return c.JSON(fiber.Map{
		"tiers":      out,
		"strategies": downsampling.ValidStrategies(),
	})
}
