package config

import (
	"os"
	"strconv"
	"time"
)

// GatewayConfig holds WhatsApp gateway configuration
type GatewayConfig struct {
	BaseURL string
	Session string
	APIKey  string
	Timeout time.Duration
}

// GetGatewayConfig returns gateway configuration from environment variables
func GetGatewayConfig() *GatewayConfig {
	timeoutSec, _ := strconv.Atoi(getEnv("WA_GATEWAY_TIMEOUT_SECONDS", "30"))

	return &GatewayConfig{
		BaseURL: getEnv("WA_GATEWAY_URL", "http://localhost:3000"),
		Session: getEnv("WA_GATEWAY_SESSION", "default"),
		APIKey:  getEnv("WA_GATEWAY_API_KEY", ""),
		Timeout: time.Duration(timeoutSec) * time.Second,
	}
}

// DispatchConfig holds send pipeline configuration
type DispatchConfig struct {
	// Workers bounds the fanout pool. 1 reproduces the historical
	// sequential loop.
	Workers int
	// StrictEligibility filters blocked (group, article) pairs unless the
	// caller forces. False keeps the historical unconditional fanout.
	StrictEligibility bool
	// DayBoundaryTZ is the timezone used to truncate "today" for the
	// same-day rule. Empty means server local time.
	DayBoundaryTZ string
}

// GetDispatchConfig returns dispatch configuration from environment variables
func GetDispatchConfig() *DispatchConfig {
	workers, _ := strconv.Atoi(getEnv("DISPATCH_WORKERS", "1"))
	if workers < 1 {
		workers = 1
	}

	return &DispatchConfig{
		Workers:           workers,
		StrictEligibility: getEnv("DISPATCH_STRICT_ELIGIBILITY", "false") == "true",
		DayBoundaryTZ:     getEnv("DAY_BOUNDARY_TZ", ""),
	}
}

// AuthConfig holds bearer token verification configuration. Token issuance
// is owned by the auth service, this backend only verifies.
type AuthConfig struct {
	JWTSecret string
}

// GetAuthConfig returns auth configuration from environment variables
func GetAuthConfig() *AuthConfig {
	return &AuthConfig{
		JWTSecret: getEnv("JWT_SECRET", ""),
	}
}

// getEnv gets environment variable with fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
