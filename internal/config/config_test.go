package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.PacingInterval)
	assert.Equal(t, 100, cfg.DispatchBatchLimit)
	assert.Equal(t, []int{60, 1440}, cfg.ReminderOffsetsMinutes)
	assert.Equal(t, 30, cfg.OrphanRetentionDays)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PACING_INTERVAL", "10s")
	t.Setenv("REMINDER_OFFSETS_MINUTES", "30, 120, 2880")
	t.Setenv("DISPATCH_BATCH_LIMIT", "25")
	t.Setenv("REDIS_TLS", "true")

	cfg := Load()

	assert.Equal(t, 10*time.Second, cfg.PacingInterval)
	assert.Equal(t, []int{30, 120, 2880}, cfg.ReminderOffsetsMinutes)
	assert.Equal(t, 25, cfg.DispatchBatchLimit)
	assert.True(t, cfg.RedisTLS)
}

func TestLoadMalformedOffsetsFallBack(t *testing.T) {
	t.Setenv("REMINDER_OFFSETS_MINUTES", "60,abc")

	cfg := Load()
	assert.Equal(t, []int{60, 1440}, cfg.ReminderOffsetsMinutes)
}

func TestLoadMalformedDurationFallsBack(t *testing.T) {
	t.Setenv("PACING_INTERVAL", "not-a-duration")

	cfg := Load()
	assert.Equal(t, 5*time.Second, cfg.PacingInterval)
}
