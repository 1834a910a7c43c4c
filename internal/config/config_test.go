package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 500, cfg.ShippingFlatCents)
	assert.Equal(t, 700, cfg.TaxRateBps)
	assert.Equal(t, 15*time.Minute, cfg.ReservationTTL)
	assert.Empty(t, cfg.CronSecret)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("TAX_RATE_BPS", "825")
	t.Setenv("RESERVATION_TTL", "30m")
	t.Setenv("CRON_SECRET", "s3cret")

	cfg := Load()
	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 825, cfg.TaxRateBps)
	assert.Equal(t, 30*time.Minute, cfg.ReservationTTL)
	assert.Equal(t, "s3cret", cfg.CronSecret)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("TAX_RATE_BPS", "seven percent")
	t.Setenv("RESERVATION_TTL", "soon")

	cfg := Load()
	assert.Equal(t, 700, cfg.TaxRateBps)
	assert.Equal(t, 15*time.Minute, cfg.ReservationTTL)
}
