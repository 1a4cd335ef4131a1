package config

import (
	"strings"
	"time"
)

// RateLimitConfig configures the Redis token bucket.  Two buckets exist: the
// general API bucket and a much smaller one guarding the public voucher
// validation endpoint, which would otherwise allow code/PIN guessing.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool

	ValidateCapacity       int
	ValidateRefillInterval time.Duration
}

func LoadRateLimitConfig() RateLimitConfig {
	c := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "pp:rl"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),

		ValidateCapacity:       envInt("RATE_LIMIT_VALIDATE_CAPACITY", 5),
		ValidateRefillInterval: envDur("RATE_LIMIT_VALIDATE_REFILL_INTERVAL", 12*time.Second),
	}
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if c.ValidateCapacity < 1 {
		c.ValidateCapacity = 1
	}
	if c.ValidateRefillInterval <= 0 {
		c.ValidateRefillInterval = time.Minute
	}
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
	if minTTL := 5 * c.ValidateRefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
	return c
}

// ValidateBucket derives the config of the voucher validation bucket.
func (c RateLimitConfig) ValidateBucket() RateLimitConfig {
	v := c
	v.Capacity = c.ValidateCapacity
	v.RefillTokens = 1
	v.RefillInterval = c.ValidateRefillInterval
	v.KeyStrategy = "ip_route"
	v.Prefix = strings.TrimSuffix(c.Prefix, ":") + ":validate"
	return v
}
