package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/chamberview/internal/config"
	"github.com/soltixdb/chamberview/internal/logging"
	"github.com/soltixdb/chamberview/internal/models"
	"github.com/soltixdb/chamberview/internal/services"
)

// Handler contains all HTTP handlers
type Handler struct {
	logger             *logging.Logger
	aggregationService *services.AggregationService
	maxSeries          int
	maxPoints          int
}

// New creates a new handler instance
func New(logger *logging.Logger, aggregationService *services.AggregationService, engCfg config.EngineConfig) *Handler {
	return &Handler{
		logger:             logger,
		aggregationService: aggregationService,
		maxSeries:          engCfg.MaxSeries,
		maxPoints:          engCfg.MaxPoints,
	}
}

// statusForCode maps service error codes to HTTP statuses
func statusForCode(code string) int {
	switch code {
	case services.CodeInvalidRequest:
		return fiber.StatusBadRequest
	case services.CodeCanceled:
		return fiber.StatusRequestTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

// invalidRequest renders a model validation error
func invalidRequest(c *fiber.Ctx, err error) error {
	status := fiber.StatusBadRequest
	message := err.Error()
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		status = fiberErr.Code
		message = fiberErr.Message
	}
	return c.Status(status).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    services.CodeInvalidRequest,
			Message: message,
		},
	})
}

// serviceFailure renders an error returned by the service layer
func (h *Handler) serviceFailure(c *fiber.Ctx, err error) error {
	var svcErr *services.ServiceError
	if errors.As(err, &svcErr) {
		return c.Status(statusForCode(svcErr.Code)).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    svcErr.Code,
				Message: svcErr.Message,
				Details: svcErr.Details,
			},
		})
	}

	logging.FromContext(c.UserContext()).Error("Unexpected service error", "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    services.CodeAggregationFailed,
			Message: err.Error(),
		},
	})
}
