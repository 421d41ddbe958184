package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/johnrirwin/devicedeck/internal/models"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Cache    CacheConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Auth     AuthConfig
	Crypto   CryptoConfig
	Catalog  CatalogConfig
	Offers   OffersConfig
	Chat     ChatConfig
}

// ServerConfig holds HTTP/MCP server configuration
type ServerConfig struct {
	HTTPAddr       string
	MCPMode        bool
	RateLimitDur   time.Duration
	AllowedOrigins []string
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	Backend       string // "memory" or "redis"
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	// URL overrides the individual fields when set
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret          string
	JWTIssuer          string
	JWTAudience        string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	// FrontendURL receives the browser after the Google redirect flow
	FrontendURL string
}

// CryptoConfig holds the key used to seal profile phone numbers.
// Empty means phones are stored as entered.
type CryptoConfig struct {
	ProfileKey string
}

// CatalogConfig selects where device listings come from
type CatalogConfig struct {
	Source       string // "static", "postgres" or "feed"
	FacetsPath   string
	FeedMerchant string
	FeedURLs     map[models.Category]string
	SeedOnStart  bool
}

// OffersConfig controls the background vendor price refresh
type OffersConfig struct {
	// RefreshInterval of zero disables the refresher
	RefreshInterval time.Duration
	FetchTimeout    time.Duration
}

// ChatConfig controls the shopping assistant
type ChatConfig struct {
	HistoryTTL     time.Duration
	RateLimit      time.Duration
	MaxMessageSize int
}

// Load parses flags and environment variables to build configuration
func Load() *Config {
	cfg := &Config{}

	httpAddr := flag.String("http", ":8080", "HTTP server address")
	mcpMode := flag.Bool("mcp", false, "Run in MCP stdio mode")
	cacheTTL := flag.Duration("cache-ttl", 10*time.Minute, "Cache TTL for category listings")
	cacheBackend := flag.String("cache-backend", "memory", "Cache backend: memory or redis")
	redisAddr := flag.String("redis-addr", "localhost:6379", "Redis server address")
	rateLimitDur := flag.Duration("rate-limit", 2*time.Second, "Minimum delay between requests to the same retailer")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	dbHost := flag.String("db-host", "localhost", "PostgreSQL host")
	dbPort := flag.Int("db-port", 5432, "PostgreSQL port")
	dbUser := flag.String("db-user", "postgres", "PostgreSQL user")
	dbPassword := flag.String("db-password", "postgres", "PostgreSQL password")
	dbName := flag.String("db-name", "devicedeck", "PostgreSQL database name")
	dbSSLMode := flag.String("db-sslmode", "disable", "PostgreSQL SSL mode")
	catalogSource := flag.String("catalog-source", "static", "Catalog source: static, postgres or feed")
	offerRefresh := flag.Duration("offer-refresh", 0, "Vendor price refresh interval (0 disables)")

	flag.Parse()

	applyEnvOverrides(httpAddr, mcpMode, cacheTTL, cacheBackend, redisAddr, rateLimitDur, logLevel,
		dbHost, dbPort, dbUser, dbPassword, dbName, dbSSLMode, catalogSource, offerRefresh)

	cfg.Server = ServerConfig{
		HTTPAddr:       *httpAddr,
		MCPMode:        *mcpMode,
		RateLimitDur:   *rateLimitDur,
		AllowedOrigins: splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
	}

	cfg.Cache = CacheConfig{
		Backend:       *cacheBackend,
		TTL:           *cacheTTL,
		RedisAddr:     *redisAddr,
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
	}

	cfg.Database = DatabaseConfig{
		URL:      os.Getenv("DATABASE_URL"),
		Host:     *dbHost,
		Port:     *dbPort,
		User:     *dbUser,
		Password: *dbPassword,
		Database: *dbName,
		SSLMode:  *dbSSLMode,
	}

	cfg.Logging = LoggingConfig{
		Level: *logLevel,
	}

	cfg.Auth = loadAuthConfig()
	cfg.Crypto = CryptoConfig{ProfileKey: os.Getenv("PROFILE_ENCRYPTION_KEY")}
	cfg.Catalog = loadCatalogConfig(*catalogSource)

	cfg.Offers = OffersConfig{
		RefreshInterval: *offerRefresh,
		FetchTimeout:    getEnvDuration("OFFER_FETCH_TIMEOUT", 20*time.Second),
	}

	cfg.Chat = ChatConfig{
		HistoryTTL:     getEnvDuration("CHAT_HISTORY_TTL", 24*time.Hour),
		RateLimit:      getEnvDuration("CHAT_RATE_LIMIT", time.Second),
		MaxMessageSize: getEnvInt("CHAT_MAX_MESSAGE_SIZE", 1000),
	}

	return cfg
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret:          getEnvOrDefault("AUTH_JWT_SECRET", "change-me-in-production"),
		JWTIssuer:          getEnvOrDefault("AUTH_JWT_ISSUER", "devicedeck"),
		JWTAudience:        getEnvOrDefault("AUTH_JWT_AUDIENCE", "devicedeck-shoppers"),
		AccessTokenTTL:     getEnvDuration("AUTH_ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:    getEnvDuration("AUTH_REFRESH_TOKEN_TTL", 30*24*time.Hour),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURI:  getEnvOrDefault("GOOGLE_REDIRECT_URI", "http://localhost:8080/api/auth/google/callback"),
		FrontendURL:        getEnvOrDefault("AUTH_FRONTEND_URL", "http://localhost:3000"),
	}
}

// loadCatalogConfig reads CATALOG_FEED_<CATEGORY> for each category
func loadCatalogConfig(source string) CatalogConfig {
	feeds := make(map[models.Category]string)
	for _, category := range models.AllCategories {
		if v := os.Getenv("CATALOG_FEED_" + strings.ToUpper(string(category))); v != "" {
			feeds[category] = v
		}
	}

	return CatalogConfig{
		Source:       strings.ToLower(strings.TrimSpace(source)),
		FacetsPath:   os.Getenv("CATALOG_CONFIG_PATH"),
		FeedMerchant: getEnvOrDefault("CATALOG_FEED_MERCHANT", "Merchant"),
		FeedURLs:     feeds,
		SeedOnStart:  getEnvBool("CATALOG_SEED", true),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			return d
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func applyEnvOverrides(
	httpAddr *string,
	mcpMode *bool,
	cacheTTL *time.Duration,
	cacheBackend *string,
	redisAddr *string,
	rateLimitDur *time.Duration,
	logLevel *string,
	dbHost *string,
	dbPort *int,
	dbUser *string,
	dbPassword *string,
	dbName *string,
	dbSSLMode *string,
	catalogSource *string,
	offerRefresh *time.Duration,
) {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		*httpAddr = v
	}
	if v := os.Getenv("MCP_MODE"); v == "true" || v == "1" {
		*mcpMode = true
	}
	*cacheTTL = getEnvDuration("CACHE_TTL", *cacheTTL)
	*cacheBackend = getEnvOrDefault("CACHE_BACKEND", *cacheBackend)
	*redisAddr = getEnvOrDefault("REDIS_ADDR", *redisAddr)
	*rateLimitDur = getEnvDuration("RATE_LIMIT", *rateLimitDur)
	*logLevel = getEnvOrDefault("LOG_LEVEL", *logLevel)
	*dbHost = getEnvOrDefault("DB_HOST", *dbHost)
	*dbPort = getEnvInt("DB_PORT", *dbPort)
	*dbUser = getEnvOrDefault("DB_USER", *dbUser)
	*dbPassword = getEnvOrDefault("DB_PASSWORD", *dbPassword)
	*dbName = getEnvOrDefault("DB_NAME", *dbName)
	*dbSSLMode = getEnvOrDefault("DB_SSLMODE", *dbSSLMode)
	*catalogSource = getEnvOrDefault("CATALOG_SOURCE", *catalogSource)
	*offerRefresh = getEnvDuration("OFFER_REFRESH_INTERVAL", *offerRefresh)
}
