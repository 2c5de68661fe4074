package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"DB_HOST", "PORT", "MAX_IMAGE_BYTES", "IMAGE_FETCH_TIMEOUT", "SUBMIT_RATE_PER_MINUTE"} {
		t.Setenv(k, "")
	}
	c := Load()
	if c.DBHost != "localhost" || c.Port != "8080" {
		t.Errorf("expected defaults, got host %q port %q", c.DBHost, c.Port)
	}
	if c.MaxImageBytes != 10<<20 {
		t.Errorf("expected 10 MiB image limit, got %d", c.MaxImageBytes)
	}
	if c.ImageFetchTimeout != 10*time.Second {
		t.Errorf("expected 10s fetch timeout, got %v", c.ImageFetchTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("MAX_IMAGE_BYTES", "1024")
	t.Setenv("IMAGE_FETCH_TIMEOUT", "250ms")
	t.Setenv("SUBMIT_RATE_PER_MINUTE", "1.5")
	t.Setenv("SUBMIT_BURST", "not-a-number")
	t.Setenv("AMQP_USER", "u")
	t.Setenv("AMQP_PASSWORD", "p")
	t.Setenv("AMQP_HOST", "mq")
	t.Setenv("AMQP_PORT", "5673")

	c := Load()
	if c.DBHost != "db.internal" {
		t.Errorf("expected DB_HOST override, got %q", c.DBHost)
	}
	if c.MaxImageBytes != 1024 {
		t.Errorf("expected 1024, got %d", c.MaxImageBytes)
	}
	if c.ImageFetchTimeout != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", c.ImageFetchTimeout)
	}
	if c.SubmitRatePerMinute != 1.5 {
		t.Errorf("expected 1.5, got %v", c.SubmitRatePerMinute)
	}
	if c.SubmitBurst != 5 {
		t.Errorf("expected default burst on parse failure, got %d", c.SubmitBurst)
	}
	if got := c.AMQPURL(); got != "amqp://u:p@mq:5673" {
		t.Errorf("unexpected amqp url %q", got)
	}
}
