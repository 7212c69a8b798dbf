package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// VoteTTL expires check-off votes that were never resolved
	VoteTTL time.Duration

	// InviteTTL bounds how long a signup invite stays redeemable
	InviteTTL time.Duration

	// TokenTTL expires reconnect tokens; zero keeps them forever
	TokenTTL time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		VoteTTL:      5 * time.Minute,
		InviteTTL:    7 * 24 * time.Hour,
		TokenTTL:     30 * 24 * time.Hour,
	}
}
