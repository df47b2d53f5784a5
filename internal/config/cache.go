package config

import (
	"strconv"
	"time"
)

// CacheConfig defines settings for the capacity-view response cache.  The
// cache only ever fronts the read-only query endpoints: capacity views are
// advisory UI data with an explicit staleness allowance, while the
// allocation path must always see live counts.  When Enabled is false or
// no Redis client is available, caching is disabled and requests pass
// through.
type CacheConfig struct {
	Enabled      bool          // master switch
	TTL          time.Duration // entry lifetime; seconds, not minutes
	Prefix       string        // key namespace
	MaxBodyBytes int           // largest response body worth caching
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults are used when variables are not set.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		TTL:          envDur("CACHE_TTL", 15*time.Second),
		Prefix:       envStr("CACHE_PREFIX", "capview"),
		MaxBodyBytes: atoi(envStr("CACHE_MAX_BODY_BYTES", "1048576")),
	}
}

func atoi(s string) int {
	i, _ := strconv.Atoi(s)
	return i
}
