// shared/config/config.go
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends selectable with STORE_BACKEND.
const (
	StoreBackendMongo  = "mongo"
	StoreBackendMemory = "memory"
)

// Auth modes selectable with AUTH_MODE.
const (
	AuthModeJWT = "jwt" // Bearer tokens signed with AUTH_JWT_SECRET
	AuthModeDev = "dev" // X-User-Id header, local development only
)

// CommonConfig holds configuration fields that are shared across multiple services.
type CommonConfig struct {
	Environment             string        // "production" or "development", selects the log encoder
	RedisAddrs              []string      // Redis server addresses; more than one selects cluster mode
	RedisPassword           string        // Redis password for authentication
	HeartbeatInterval       time.Duration // How often to send a heartbeat to the registry
	HeartbeatTTL            time.Duration // How long an instance is considered alive without a heartbeat
	RegistryCleanupInterval time.Duration // How often the registry actively cleans stale entries
	ServiceIP               string        // The IP address this service advertises for registration
	ServicePort             int           // The port this service listens on, used for registration
}

// PlayerServiceConfig holds configuration specific to the player-service.
type PlayerServiceConfig struct {
	CommonConfig
	ListenAddr string

	StoreBackend             string // mongo or memory
	MongoDBConnStr           string
	MongoDBDatabase          string
	MongoDBPlayersCollection string
	MongoDBStreaksCollection string
	MongoDBMetaCollection    string
	ProfileCacheTTL          time.Duration // TTL of cached profiles in Redis
	PlayerLockTTL            time.Duration // TTL of the per-player lock
	WebhookEventRetention    time.Duration // How long processed webhook event ids are remembered
	RequestTimeout           time.Duration // Per-request budget for store and gateway calls

	AuthMode      string
	AuthJWTSecret string

	StripeSecretKey     string
	StripeWebhookSecret string
	StripePriceIDs      map[string]string // tier -> Stripe price id
	FrontendURL         string
	AllowedOrigins      []string

	PrizeTimeZone      string
	PrizeResetCron     string
	QueueDrainInterval time.Duration
	BracketSize        int
}

// LoadCommonConfig loads common configuration from environment variables.
// A .env file in the working directory is read first when present.
func LoadCommonConfig() (CommonConfig, error) {
	_ = godotenv.Load()

	cfg := CommonConfig{}
	var err error

	cfg.Environment = os.Getenv("APP_ENV")
	if cfg.Environment == "" {
		cfg.Environment = "production"
	}

	redisAddrsStr := os.Getenv("REDIS_ADDRS")
	if redisAddrsStr == "" {
		cfg.RedisAddrs = []string{"localhost:6379"}
	} else {
		for _, addr := range strings.Split(redisAddrsStr, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				cfg.RedisAddrs = append(cfg.RedisAddrs, addr)
			}
		}
	}
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	cfg.HeartbeatInterval, err = getDuration("SERVICE_HEARTBEAT_INTERVAL", 5*time.Second)
	if err != nil {
		return cfg, err
	}
	cfg.HeartbeatTTL, err = getDuration("SERVICE_HEARTBEAT_TTL", 15*time.Second)
	if err != nil {
		return cfg, err
	}
	cfg.RegistryCleanupInterval, err = getDuration("SERVICE_REGISTRY_CLEANUP_INTERVAL", 30*time.Second)
	if err != nil {
		return cfg, err
	}

	cfg.ServiceIP = os.Getenv("POD_IP")
	if cfg.ServiceIP == "" {
		cfg.ServiceIP = "0.0.0.0"
	}

	return cfg, nil
}

// Helper function to parse duration from environment variable
func getDuration(envKey string, defaultVal time.Duration) (time.Duration, error) {
	valStr := os.Getenv(envKey)
	if valStr == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(valStr)
	if err != nil {
		return 0, fmt.Errorf("invalid duration format for %s: %w", envKey, err)
	}
	return d, nil
}

// Helper function to parse int from environment variable
func getInt(envKey string, defaultVal int) (int, error) {
	valStr := os.Getenv(envKey)
	if valStr == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("invalid integer format for %s: %w", envKey, err)
	}
	return i, nil
}

func getString(envKey, defaultVal string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return defaultVal
}

func getList(envKey string, defaultVal []string) []string {
	raw := os.Getenv(envKey)
	if raw == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// extractPort extracts the numeric port from a listen address (e.g., ":8082" -> 8082, "0.0.0.0:8082" -> 8082)
func extractPort(listenAddr string) (int, error) {
	_, portStr, err := net.SplitHostPort(listenAddr)
	if err != nil {
		if strings.HasPrefix(listenAddr, ":") {
			portStr = strings.TrimPrefix(listenAddr, ":")
		} else {
			return 0, fmt.Errorf("invalid ListenAddr format for port extraction: %w", err)
		}
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("invalid port number '%s': %w", portStr, err)
	}
	return port, nil
}

// LoadPlayerServiceConfig loads configuration for the player-service.
func LoadPlayerServiceConfig() (*PlayerServiceConfig, error) {
	common, err := LoadCommonConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load common config for player-service: %w", err)
	}

	cfg := &PlayerServiceConfig{
		CommonConfig:             common,
		ListenAddr:               os.Getenv("PLAYER_SERVICE_LISTEN_ADDR"),
		StoreBackend:             getString("STORE_BACKEND", StoreBackendMongo),
		MongoDBConnStr:           getString("MONGODB_CONN_STR", "mongodb://localhost:27017"),
		MongoDBDatabase:          getString("MONGODB_DATABASE", "rps64"),
		MongoDBPlayersCollection: getString("MONGODB_PLAYERS_COLLECTION", "players"),
		MongoDBStreaksCollection: getString("MONGODB_STREAKS_COLLECTION", "weeklyStreaks"),
		MongoDBMetaCollection:    getString("MONGODB_META_COLLECTION", "meta"),
		AuthMode:                 getString("AUTH_MODE", AuthModeJWT),
		AuthJWTSecret:            os.Getenv("AUTH_JWT_SECRET"),
		StripeSecretKey:          os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret:      os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripePriceIDs: map[string]string{
			"rookie": os.Getenv("STRIPE_PRICE_ROOKIE"),
			"pro":    os.Getenv("STRIPE_PRICE_PRO"),
			"elite":  os.Getenv("STRIPE_PRICE_ELITE"),
		},
		FrontendURL:    getString("FRONTEND_URL", "http://localhost:5173"),
		AllowedOrigins: getList("ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:4173"}),
		PrizeTimeZone:  getString("PRIZE_TIMEZONE", "America/Chicago"),
		PrizeResetCron: getString("PRIZE_RESET_CRON", "0 20 * * 0"),
	}

	if cfg.ListenAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			cfg.ListenAddr = ":" + port
		} else {
			cfg.ListenAddr = ":10000"
		}
	}

	cfg.ServicePort, err = extractPort(cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to extract port from PLAYER_SERVICE_LISTEN_ADDR '%s': %w", cfg.ListenAddr, err)
	}

	if cfg.ProfileCacheTTL, err = getDuration("PROFILE_CACHE_TTL", 6*time.Hour); err != nil {
		return nil, err
	}
	if cfg.PlayerLockTTL, err = getDuration("PLAYER_LOCK_TTL", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.WebhookEventRetention, err = getDuration("WEBHOOK_EVENT_RETENTION", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.QueueDrainInterval, err = getDuration("QUEUE_DRAIN_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.BracketSize, err = getInt("BRACKET_SIZE", 64); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *PlayerServiceConfig) validate() error {
	switch cfg.StoreBackend {
	case StoreBackendMongo, StoreBackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q (got %q)", StoreBackendMongo, StoreBackendMemory, cfg.StoreBackend)
	}
	switch cfg.AuthMode {
	case AuthModeJWT:
		if cfg.AuthJWTSecret == "" {
			return fmt.Errorf("AUTH_JWT_SECRET is required when AUTH_MODE is %q", AuthModeJWT)
		}
	case AuthModeDev:
	default:
		return fmt.Errorf("AUTH_MODE must be %q or %q (got %q)", AuthModeJWT, AuthModeDev, cfg.AuthMode)
	}
	if cfg.BracketSize <= 0 {
		return fmt.Errorf("BRACKET_SIZE must be a positive integer (got %d)", cfg.BracketSize)
	}
	if cfg.PlayerLockTTL <= 0 {
		return fmt.Errorf("PLAYER_LOCK_TTL must be positive (got %s)", cfg.PlayerLockTTL)
	}
	return nil
}
