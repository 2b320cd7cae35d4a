package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(body), 0o600))
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CREDVAULT_CONFIG_PATH", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.AccessTokenTTLMinutes)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL())
	assert.Equal(t, 1000, cfg.APIListLimitMax)
	assert.Equal(t, "default", cfg.Source("access_token_ttl_minutes"))
	assert.Equal(t, "default", cfg.Source("unknown"))
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileThenEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CREDVAULT_CONFIG_PATH", dir)
	writeConfig(t, dir, `
access_token_ttl_minutes: 30
api_list_limit_max: 50
smtp_host: mail.example.com
smtp_from: vault@example.com
trusted_proxies: [10.0.0.0/8]
`)
	t.Setenv("CREDVAULT_API_LIST_LIMIT_MAX", "75")
	t.Setenv("CREDVAULT_THROTTLE_RATE", "2.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.AccessTokenTTLMinutes)
	assert.Equal(t, "file", cfg.Source("access_token_ttl_minutes"))
	assert.Equal(t, 75, cfg.APIListLimitMax)
	assert.Equal(t, "environment", cfg.Source("api_list_limit_max"))
	assert.Equal(t, 2.5, cfg.ThrottleRate)
	assert.Equal(t, "mail.example.com", cfg.SMTPHost)
	assert.Equal(t, filepath.Join(dir, ConfigFileName), cfg.ConfigFilePath())
	assert.True(t, cfg.IsTrustedProxy("10.1.2.3"))
	assert.False(t, cfg.IsTrustedProxy("192.168.0.1"))
}

func TestLoadRejectsBadYAML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CREDVAULT_CONFIG_PATH", dir)
	writeConfig(t, dir, "access_token_ttl_minutes: [not, an, int]")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad proxy", func(c *Config) { c.TrustedProxies = []string{"not-an-ip"} }},
		{"zero ttl", func(c *Config) { c.AccessTokenTTLMinutes = 0 }},
		{"default above max", func(c *Config) { c.APIListLimitDefault = c.APIListLimitMax + 1 }},
		{"no throttle", func(c *Config) { c.ThrottleRate = 0 }},
		{"no workers", func(c *Config) { c.NotifyWorkers = 0 }},
		{"smtp without from", func(c *Config) { c.SMTPHost = "mail" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newDefault()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestClampLimit(t *testing.T) {
	cfg := newDefault()
	assert.Equal(t, 100, cfg.ClampLimit(0))
	assert.Equal(t, 100, cfg.ClampLimit(-5))
	assert.Equal(t, 20, cfg.ClampLimit(20))
	assert.Equal(t, 1000, cfg.ClampLimit(5000))
}

func TestSecretsComeFromEnvironment(t *testing.T) {
	t.Setenv(SecretKeyEnv, "s3cret")
	t.Setenv(SMTPPasswordEnv, "mailpw")

	cfg := newDefault()
	assert.Equal(t, "s3cret", cfg.SecretKey())
	assert.Equal(t, "mailpw", cfg.SMTPPassword())
}

func TestFormat(t *testing.T) {
	t.Setenv("CREDVAULT_CONFIG_PATH", t.TempDir())
	cfg, err := Load()
	require.NoError(t, err)

	text := cfg.FormatText()
	assert.Contains(t, text, "access_token_ttl_minutes")
	assert.Contains(t, text, "(not set)")

	js, err := cfg.FormatJSON()
	require.NoError(t, err)
	assert.Contains(t, js, `"config_file"`)
	assert.Contains(t, js, `"notify_workers"`)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CREDVAULT_CONFIG_PATH", dir)
	writeConfig(t, dir, "throttle_rate: 5\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, filepath.Join(dir, ConfigFileName), func(c *Config) {
			select {
			case changes <- c:
			default:
			}
		})
	}()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeConfig(t, dir, "throttle_rate: 9\n")

	// A single write can surface as several events; wait for the final content.
	deadline := time.After(5 * time.Second)
	for seen := false; !seen; {
		select {
		case cfg := <-changes:
			seen = cfg.ThrottleRate == 9
		case <-deadline:
			t.Fatal("config change not observed")
		}
	}

	cancel()
	assert.NoError(t, <-done)
}
