package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/chamberview/internal/logging"
	"github.com/soltixdb/chamberview/internal/models"
)

func errorApp(handler fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(logging.NewNop()),
		BodyLimit:    64,
	})
	app.Use(logging.FiberMiddleware(logging.NewNop()))
	app.All("/v1/aggregate", handler)
	return app
}

func decodeError(t *testing.T, body io.Reader) models.ErrorResponse {
	t.Helper()
	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	var errResp models.ErrorResponse
	if err := json.Unmarshal(data, &errResp); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	return errResp
}

func bytesOf(n int) io.Reader {
	return strings.NewReader("{\"series\":\"" + strings.Repeat("x", n) + "\"}")
}

func TestErrorHandler_FiberError(t *testing.T) {
	tests := []struct {
		name           string
		fiberError     error
		expectedStatus int
		expectedCode   string
		expectedMsg    string
	}{
		{"bad request", fiber.ErrBadRequest, fiber.StatusBadRequest, "BAD_REQUEST", "Bad Request"},
		{"unauthorized", fiber.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized"},
		{"timeout", fiber.ErrRequestTimeout, fiber.StatusRequestTimeout, "REQUEST_TIMEOUT", "Request Timeout"},
		{"unavailable", fiber.ErrServiceUnavailable, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Service Unavailable"},
		{"unnamed status", fiber.NewError(fiber.StatusTeapot, "I'm a teapot"), fiber.StatusTeapot, "ERROR", "I'm a teapot"},
		{"wrapped", fmt.Errorf("decode: %w", fiber.ErrUnprocessableEntity), fiber.StatusUnprocessableEntity, "ERROR", "Unprocessable Entity"},
		{"plain error", errors.New("something went wrong"), fiber.StatusInternalServerError, "ERROR", "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := errorApp(func(c *fiber.Ctx) error { return tt.fiberError })

			resp, err := app.Test(httptest.NewRequest("GET", "/v1/aggregate", nil))
			if err != nil {
				t.Fatalf("Failed to test request: %v", err)
			}
			defer func() { _ = resp.Body.Close() }()

			if resp.StatusCode != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, resp.StatusCode)
			}
			errResp := decodeError(t, resp.Body)
			if errResp.Error.Code != tt.expectedCode {
				t.Errorf("Expected code %q, got %q", tt.expectedCode, errResp.Error.Code)
			}
			if errResp.Error.Message != tt.expectedMsg {
				t.Errorf("Expected message %q, got %q", tt.expectedMsg, errResp.Error.Message)
			}
			if errResp.Error.Path != "/v1/aggregate" {
				t.Errorf("Expected path /v1/aggregate, got %q", errResp.Error.Path)
			}
		})
	}
}

func TestErrorHandler_BodyLimit(t *testing.T) {
	app := errorApp(func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	req := httptest.NewRequest("POST", "/v1/aggregate", bytesOf(1024))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to test request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != fiber.StatusRequestEntityTooLarge {
		t.Fatalf("Expected status 413, got %d", resp.StatusCode)
	}
	if code := decodeError(t, resp.Body).Error.Code; code != "BODY_TOO_LARGE" {
		t.Errorf("Expected BODY_TOO_LARGE, got %q", code)
	}
}

func TestErrorCode(t *testing.T) {
	if ErrorCode(fiber.StatusNotFound) != "NOT_FOUND" {
		t.Error("404 should map to NOT_FOUND")
	}
	if ErrorCode(599) != "ERROR" {
		t.Error("unknown statuses should map to ERROR")
	}
}
