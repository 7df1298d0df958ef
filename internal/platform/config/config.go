package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr          string
	DatabaseURL   string
	CacheTTL      time.Duration
	CacheCapacity uint64
	CORSOrigins   []string
	SeedOnStart   bool
}

// FromEnv builds a Server config from environment variables so main stays lean.
// An empty DatabaseURL means the in-memory store; that is a development mode,
// not a production setup.
func FromEnv() Server {
	addr := os.Getenv("DOMAINCONFIG_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	ttl := time.Hour
	if raw := os.Getenv("CACHE_TTL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			ttl = parsed
		}
	}

	capacity := uint64(1000)
	if raw := os.Getenv("CACHE_CAPACITY"); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil && parsed > 0 {
			capacity = parsed
		}
	}

	origins := []string{"*"}
	if raw := os.Getenv("CORS_ALLOWED_ORIGINS"); raw != "" {
		origins = origins[:0]
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	return Server{
		Addr:          addr,
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		CacheTTL:      ttl,
		CacheCapacity: capacity,
		CORSOrigins:   origins,
		SeedOnStart:   os.Getenv("SEED_ON_START") != "false",
	}
}
