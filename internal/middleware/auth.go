package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/chamberview/internal/logging"
	"github.com/soltixdb/chamberview/internal/models"
)

// MinAPIKeyLength is the minimum required length for API keys
const MinAPIKeyLength = 32

// ValidateAPIKey checks if an API key meets the security requirements
func ValidateAPIKey(key string) bool {
	// Key must be at least MinAPIKeyLength characters
	if len(key) < MinAPIKeyLength {
		return false
	}
	// Key must not contain only whitespace
	return strings.TrimSpace(key) != ""
}

// keySet holds the accepted dashboard keys
type keySet [][]byte

// newKeySet keeps the configured keys that pass ValidateAPIKey
func newKeySet(logger *logging.Logger, apiKeys []string) keySet {
	keys := make(keySet, 0, len(apiKeys))
	for _, key := range apiKeys {
		if key == "" {
			continue
		}
		// Weak keys are skipped, never accepted
		if !ValidateAPIKey(key) {
			logger.Warn("API key does not meet security requirements",
				"key_length", len(key),
				"min_required", MinAPIKeyLength,
				"key_prefix", maskAPIKey(key),
			)
			continue
		}
		keys = append(keys, []byte(key))
	}
	return keys
}

// contains compares against every key in constant time per key
func (ks keySet) contains(candidate string) bool {
	found := 0
	for _, key := range ks {
		found |= subtle.ConstantTimeCompare(key, []byte(candidate))
	}
	return found == 1
}

// extractAPIKey reads X-API-Key, then Authorization with or without a Bearer prefix
func extractAPIKey(c *fiber.Ctx) string {
	// Support multiple header formats:
	// 1. X-API-Key: your-api-key
	// 2. Authorization: Bearer your-api-key
	// 3. Authorization: your-api-key
	if key := c.Get("X-API-Key"); key != "" {
		return key
	}
	authHeader := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if after, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return authHeader
}

// APIKeyAuth creates an API key authentication middleware
func APIKeyAuth(logger *logging.Logger, apiKeys []string, enabled bool) fiber.Handler {
	// If auth is disabled, allow all requests
	if !enabled {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	// Build the key set with validation
	keys := newKeySet(logger, apiKeys)

	// Warn if no valid API keys configured
	if len(keys) == 0 {
		logger.Error("No valid API keys configured, every protected request will be rejected",
			"total_keys", len(apiKeys),
			"min_required_length", MinAPIKeyLength,
		)
	}

	return func(c *fiber.Ctx) error {
		// Request-scoped logger carries the request id
		reqLogger := logging.FromContext(c.UserContext())
		apiKey := extractAPIKey(c)

		// Check if API key is present and valid
		if apiKey == "" {
			reqLogger.Warn("API key missing",
				"path", c.Path(),
				"method", c.Method(),
				"ip", c.IP(),
			)
			return unauthorized(c, "API key is required. Provide it via X-API-Key header or Authorization header.")
		}

		if !keys.contains(apiKey) {
			reqLogger.Warn("Invalid API key",
				"path", c.Path(),
				"method", c.Method(),
				"ip", c.IP(),
				"api_key_prefix", maskAPIKey(apiKey),
			)
			return unauthorized(c, "Invalid API key.")
		}

		// Log successful authentication
		reqLogger.Debug("API key authenticated", "path", c.Path())
		return c.Next()
	}
}

// unauthorized writes the 401 error body
func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "UNAUTHORIZED",
			Message: message,
			Path:    c.Path(),
		},
	})
}

// maskAPIKey masks API key for logging (show only first 4 chars)
func maskAPIKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return key[:4] + "****"
}
