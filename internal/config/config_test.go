package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_MemoryDriverDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "Memory")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("MOCK_EMAIL", "yes")

	cfg := Load()

	assert.Equal(t, DriverMemory, cfg.DBDriver)
	assert.Empty(t, cfg.DBHost)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, 720*time.Hour, cfg.EmailTokenTTL)
	assert.Equal(t, 168*time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, 672*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, "var/mailbox.log", cfg.MailboxPath)
	assert.Equal(t, 720*time.Hour, cfg.UnverifiedUserThreshold)
	assert.Equal(t, "59 23 * * *", cfg.SweepSchedule)
	assert.True(t, cfg.MockEmail)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
}

func TestLoad_MySQLDriver(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "mentorship")
	t.Setenv("RABBITMQ_URL", "amqp://mq/")
	t.Setenv("UNVERIFIED_USER_THRESHOLD", "48h")

	cfg := Load()

	assert.Equal(t, DriverMySQL, cfg.DBDriver)
	assert.Equal(t, "db", cfg.DBHost)
	assert.Equal(t, "amqp://mq/", cfg.RabbitMQURL)
	assert.Equal(t, 48*time.Hour, cfg.UnverifiedUserThreshold)
}

func TestEnvHelpersFallBack(t *testing.T) {
	t.Setenv("X_INT", "nope")
	t.Setenv("X_BOOL", "maybe")
	t.Setenv("X_DUR", "soon")

	assert.Equal(t, 3, envInt("X_INT", 3))
	assert.True(t, envBool("X_BOOL", true))
	assert.Equal(t, time.Minute, envDur("X_DUR", time.Minute))
}

func TestRateLimitConfig_Normalize(t *testing.T) {
	rl := RateLimitConfig{Capacity: 0, RefillTokens: -1, RefillInterval: 0, TTL: time.Second}.normalize()

	assert.Equal(t, 1, rl.Capacity)
	assert.Equal(t, 1, rl.RefillTokens)
	assert.Equal(t, time.Second, rl.RefillInterval)
	assert.Equal(t, 5*time.Second, rl.TTL)
}

func TestNewRedisClient_Disabled(t *testing.T) {
	assert.Nil(t, NewRedisClient(RedisConfig{Enabled: false}))
}
