package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPlayerServiceConfigDefaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "s3cret")

	cfg, err := LoadPlayerServiceConfig()
	require.NoError(t, err)

	assert.Equal(t, ":10000", cfg.ListenAddr)
	assert.Equal(t, 10000, cfg.ServicePort)
	assert.Equal(t, StoreBackendMongo, cfg.StoreBackend)
	assert.Equal(t, "players", cfg.MongoDBPlayersCollection)
	assert.Equal(t, "weeklyStreaks", cfg.MongoDBStreaksCollection)
	assert.Equal(t, "meta", cfg.MongoDBMetaCollection)
	assert.Equal(t, 5*time.Second, cfg.PlayerLockTTL)
	assert.Equal(t, "America/Chicago", cfg.PrizeTimeZone)
	assert.Equal(t, "0 20 * * 0", cfg.PrizeResetCron)
	assert.Equal(t, 64, cfg.BracketSize)
	assert.Equal(t, []string{"localhost:6379"}, cfg.RedisAddrs)
}

func TestLoadPlayerServiceConfigOverrides(t *testing.T) {
	t.Setenv("AUTH_MODE", AuthModeDev)
	t.Setenv("PORT", "8081")
	t.Setenv("STORE_BACKEND", StoreBackendMemory)
	t.Setenv("REDIS_ADDRS", "redis-a:6379, redis-b:6379")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("PLAYER_LOCK_TTL", "2s")
	t.Setenv("STRIPE_PRICE_PRO", "price_pro")

	cfg, err := LoadPlayerServiceConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.ListenAddr)
	assert.Equal(t, StoreBackendMemory, cfg.StoreBackend)
	assert.Equal(t, []string{"redis-a:6379", "redis-b:6379"}, cfg.RedisAddrs)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 2*time.Second, cfg.PlayerLockTTL)
	assert.Equal(t, "price_pro", cfg.StripePriceIDs["pro"])
}

func TestLoadPlayerServiceConfigValidation(t *testing.T) {
	cases := map[string]map[string]string{
		"jwt without secret": {"AUTH_MODE": AuthModeJWT},
		"unknown backend":    {"AUTH_MODE": AuthModeDev, "STORE_BACKEND": "firestore"},
		"unknown auth mode":  {"AUTH_MODE": "none"},
		"bad duration":       {"AUTH_MODE": AuthModeDev, "PLAYER_LOCK_TTL": "soon"},
		"bad bracket size":   {"AUTH_MODE": AuthModeDev, "BRACKET_SIZE": "0"},
		"bad listen addr":    {"AUTH_MODE": AuthModeDev, "PLAYER_SERVICE_LISTEN_ADDR": "nowhere"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadPlayerServiceConfig()
			assert.Error(t, err)
		})
	}
}

func TestExtractPort(t *testing.T) {
	port, err := extractPort("0.0.0.0:8082")
	require.NoError(t, err)
	assert.Equal(t, 8082, port)

	port, err = extractPort(":9000")
	require.NoError(t, err)
	assert.Equal(t, 9000, port)

	_, err = extractPort(":abc")
	assert.Error(t, err)
}
