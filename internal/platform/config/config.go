package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration so main stays lean.
type Server struct {
	Addr          string
	JWTSigningKey string
	PostgresDSN   string
	Redis         RedisConfig

	// AggregationRowCap bounds join fan-out inside secure aggregation
	// functions; a single request can never pull more candidate rows.
	AggregationRowCap int

	// TagLimits are per-field cardinality caps. They bound rendering cost,
	// not domain truth, so they stay configuration.
	TagLimits TagLimits
}

// RedisConfig holds connection settings for the vocabulary cache. An empty
// URL disables the cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// TagLimits caps tag-array length per governed field.
type TagLimits struct {
	Industry      int
	BusinessModel int
	Keywords      int
	CoInvestors   int
}

// DefaultTagLimits returns the stock cardinality caps.
func DefaultTagLimits() TagLimits {
	return TagLimits{
		Industry:      10,
		BusinessModel: 5,
		Keywords:      20,
		CoInvestors:   15,
	}
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("PITCHFUND_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default; must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	limits := DefaultTagLimits()
	limits.Industry = envInt("TAG_LIMIT_INDUSTRY", limits.Industry)
	limits.BusinessModel = envInt("TAG_LIMIT_BUSINESS_MODEL", limits.BusinessModel)
	limits.Keywords = envInt("TAG_LIMIT_KEYWORDS", limits.Keywords)
	limits.CoInvestors = envInt("TAG_LIMIT_CO_INVESTORS", limits.CoInvestors)

	return Server{
		Addr:          addr,
		JWTSigningKey: jwtSigningKey,
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		AggregationRowCap: envInt("AGGREGATION_ROW_CAP", 10000),
		TagLimits:         limits,
	}
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
