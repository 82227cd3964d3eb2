package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MrSnakeDoc/linkdeck/internal/domain"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request timeout for non-import routes (ex: 5s)

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	TaxonomyFile    string        // optional YAML file with sections to seed at startup
	RefreshInterval time.Duration // interval to refresh the in-memory catalog from redis (default: 10m)

	// Import pipeline
	DedupScope          domain.DedupScope // "section" | "catalog"
	ExtractTimeout      time.Duration     // timeout for one extraction call (default: 90s)
	CommitTimeout       time.Duration     // timeout for one commit (default: 30s)
	ExtractMaxChars     int               // raw text longer than this is truncated before extraction
	MaxUploadBytes      int64             // max size of a single uploaded file
	ImportRetryAttempts int               // attempts per candidate on transient storage errors
	SessionTTL          time.Duration     // how long a saved review session survives in redis
	ExtractRateBurst    int               // extraction requests allowed in a burst per client
	ExtractRatePerMin   int               // extraction requests refilled per minute per client

	// Extraction service (OpenAI compatible)
	OpenAIAPIKey     string // required
	OpenAIBaseURL    string // optional, empty = provider default
	OpenAIModel      string // ex: "gpt-4o-mini"
	OpenAIMaxRetries int    // SDK transport retries

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedHosts []string // optional, restrict admin access to specific Host headers
	AllowedCIDRS []string // optional, restrict admin access to specific IPs/CIDRs
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
	CORSOrigins  []string // optional, origins allowed to read the public catalog API
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("LINKDECK_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("LINKDECK_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("LINKDECK_REQUEST_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("LINKDECK_LOG_LEVEL", "info"),
		PrettyLog: mustBool("LINKDECK_PRETTY_LOG", true),

		// Catalog
		TaxonomyFile:    getenv("LINKDECK_TAXONOMY_FILE", ""), // Optional, empty = no seeding
		RefreshInterval: mustDuration("LINKDECK_REFRESH_INTERVAL", 10*time.Minute),

		// Import pipeline
		DedupScope:          parseDedupScope(getenv("LINKDECK_DEDUP_SCOPE", string(domain.DedupScopeSection))),
		ExtractTimeout:      mustDuration("LINKDECK_EXTRACT_TIMEOUT", 90*time.Second),
		CommitTimeout:       mustDuration("LINKDECK_COMMIT_TIMEOUT", 30*time.Second),
		ExtractMaxChars:     getenvInt("LINKDECK_EXTRACT_MAX_CHARS", 60000),
		MaxUploadBytes:      int64(getenvInt("LINKDECK_MAX_UPLOAD_BYTES", 5<<20)),
		ImportRetryAttempts: getenvInt("LINKDECK_IMPORT_RETRY_ATTEMPTS", 3),
		SessionTTL:          mustDuration("LINKDECK_SESSION_TTL", 24*time.Hour),
		ExtractRateBurst:    getenvInt("LINKDECK_EXTRACT_RATE_BURST", 5),
		ExtractRatePerMin:   getenvInt("LINKDECK_EXTRACT_RATE_PER_MIN", 10),

		// Extraction service
		OpenAIAPIKey:     requireEnv("LINKDECK_OPENAI_API_KEY"),
		OpenAIBaseURL:    getenv("LINKDECK_OPENAI_BASE_URL", ""),
		OpenAIModel:      getenv("LINKDECK_OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIMaxRetries: getenvInt("LINKDECK_OPENAI_MAX_RETRIES", 2),

		// Redis settings
		RedisAddr:             requireEnv("LINKDECK_REDIS_ADDR"),
		RedisUser:             getenv("LINKDECK_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("LINKDECK_REDIS_PASSWORD_REQUIRED", true),
		RedisPassword:         getenv("LINKDECK_REDIS_PASSWORD", ""),
		RedisDB:               requireEnvInt("LINKDECK_REDIS_DB"),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("LINKDECK_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("LINKDECK_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("LINKDECK_TRUST_PROXY", true),
		CORSOrigins:  splitAndTrim(getenv("LINKDECK_CORS_ORIGINS", "")),
	}

	// Validate Redis password configuration
	if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: LINKDECK_REDIS_PASSWORD is required when LINKDECK_REDIS_PASSWORD_REQUIRED=true")
	}

	if cfg.ImportRetryAttempts < 1 {
		cfg.ImportRetryAttempts = 1
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg
}

// Redacted returns a copy of the config safe to print.
func (c *Config) Redacted() Config {
	cp := *c
	cp.RedisPassword = "***REDACTED***"
	if c.RedisUser != "" {
		cp.RedisUser = "***REDACTED***"
	}
	if c.OpenAIAPIKey != "" {
		cp.OpenAIAPIKey = "***REDACTED***"
	}
	return cp
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func requireEnvInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: Invalid integer value for %s: %s", key, v))
	}
	return i
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// parseDedupScope panics on unknown values: a typo here would silently
// change which links count as duplicates.
func parseDedupScope(v string) domain.DedupScope {
	switch scope := domain.DedupScope(strings.ToLower(strings.TrimSpace(v))); scope {
	case domain.DedupScopeSection, domain.DedupScopeCatalog:
		return scope
	default:
		panic(fmt.Sprintf("❌ FATAL: Invalid LINKDECK_DEDUP_SCOPE %q (want %q or %q)",
			v, domain.DedupScopeSection, domain.DedupScopeCatalog))
	}
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
