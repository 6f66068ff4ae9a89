package config

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"time"
)

var offsetPattern = regexp.MustCompile(`^([+-])(\d{2}):(\d{2})$`)

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Logging.Level == "debug" && c.Logging.Format == "console"
}

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.HTTPPort))
}

// Sensor returns the configuration of a sensor type
func (c *Config) Sensor(sensorType string) (SensorConfig, bool) {
	s, ok := c.Sensors[sensorType]
	return s, ok
}

// GetLocation returns the configured calendar zone.
// Returns UTC if not configured or invalid.
// Supports formats:
//   - IANA timezone names: "Asia/Tokyo", "America/New_York", "UTC"
//   - Offset format: "+09:00", "-05:00", "+00:00"
func (c *EngineConfig) GetLocation() *time.Location {
	loc, err := c.location()
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *EngineConfig) location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}

	// Try parsing as IANA timezone name first
	if loc, err := time.LoadLocation(c.Timezone); err == nil {
		return loc, nil
	}

	// Try parsing as offset format (+09:00, -05:00, etc.)
	loc, err := parseOffsetTimezone(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("engine.timezone %q is neither an IANA name nor an offset", c.Timezone)
	}
	return loc, nil
}

// parseOffsetTimezone parses timezone offset format like "+09:00", "-05:00"
func parseOffsetTimezone(offset string) (*time.Location, error) {
	matches := offsetPattern.FindStringSubmatch(offset)
	if len(matches) != 4 {
		return nil, fmt.Errorf("invalid offset format: %s", offset)
	}

	sign := 1
	if matches[1] == "-" {
		sign = -1
	}

	hours, _ := strconv.Atoi(matches[2])
	minutes, _ := strconv.Atoi(matches[3])
	if hours > 14 || minutes > 59 {
		return nil, fmt.Errorf("offset out of range: %s", offset)
	}

	return time.FixedZone(offset, sign*(hours*3600+minutes*60)), nil
}
