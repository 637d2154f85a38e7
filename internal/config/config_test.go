package config

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"APP_ENV":                "test",
		"APP_PORT":               "8080",
		"DB_USER":                "cinema",
		"DB_HOST":                "127.0.0.1",
		"DB_PORT":                "3306",
		"DB_NAME":                "cinema",
		"JWT_SECRET":             "s3cret",
		"ACCESS_TOKEN_TTL_MIN":   "15",
		"REFRESH_TOKEN_TTL_DAYS": "7",
		"BCRYPT_COST":            "4",
	} {
		t.Setenv(k, v)
	}
}

func TestLoad(t *testing.T) {
	setRequired(t)
	t.Setenv("DB_MIGRATE", "true")
	t.Setenv("AMQP_URL", "amqp://u:p@mq:5672/")
	t.Setenv("BOOKING_LOCK_TTL", "3s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.DBMigrate)
	assert.Equal(t, "amqp://u:p@mq:5672/", cfg.AMQPURL)
	assert.True(t, cfg.EventsEnabled)
	assert.Equal(t, "logs/booking.log", cfg.BookingLogPath)
	assert.Equal(t, 3*time.Second, cfg.BookingLockTTL)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL())
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_RabbitURLWins(t *testing.T) {
	setRequired(t)
	t.Setenv("AMQP_URL", "amqp://fallback/")
	t.Setenv("RABBITMQ_URL", "amqp://primary/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "amqp://primary/", cfg.AMQPURL)
}

func TestLoad_ReportsEveryProblem(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("BCRYPT_COST", "ten")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required env var: JWT_SECRET")
	assert.Contains(t, err.Error(), `invalid int for BCRYPT_COST: "ten"`)
}

func TestLoadRateLimitConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "10")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	t.Setenv("RATE_LIMIT_ENABLED", "off")

	c := LoadRateLimitConfig()
	assert.False(t, c.Enabled)
	assert.Equal(t, 10, c.Capacity)
	assert.Equal(t, 10*time.Second, c.TTL)
	assert.Equal(t, "ip_user_route", c.KeyStrategy)
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head,")
	t.Setenv("CACHE_TTL", "bogus")

	c := LoadCacheConfig()
	assert.True(t, c.Enabled)
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, c.Methods)
	assert.Equal(t, 30*time.Second, c.TTL)
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_ADDR", "ignored:1")
	host, port, _ := net.SplitHostPort(mr.Addr())
	t.Setenv("REDIS_HOST", host)
	t.Setenv("REDIS_PORT", port)

	c := LoadRedisConfig()
	assert.Equal(t, mr.Addr(), c.Addr)

	client, err := NewRedisClient(context.Background(), c)
	require.NoError(t, err)
	defer client.Close()

	mr.Close()
	_, err = NewRedisClient(context.Background(), c)
	assert.Error(t, err)
}
