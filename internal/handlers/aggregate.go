package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/chamberview/internal/models"
)

// Aggregate downsamples the series of a dashboard request
// POST /v1/aggregate
func (h *Handler) Aggregate(c *fiber.Ctx) error {
	var req models.AggregateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_JSON",
				Message: "Failed to parse JSON body",
				Details: map[string]interface{}{"error": err.Error()},
			},
		})
	}

	if err := req.Validate(h.maxSeries, h.maxPoints); err != nil {
		return invalidRequest(c, err)
	}

	resp, err := h.aggregationService.Execute(c.UserContext(), &req)
	if err != nil {
		return h.serviceFailure(c, err)
	}
	return c.JSON(resp)
}
