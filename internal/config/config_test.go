package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "formwizard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, time.Minute, cfg.Session.SweepInterval)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownGrace)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	path := writeFile(t, `
server:
  addr: ":9000"
  read_timeout: 5s
session:
  ttl: 45m
log:
  format: json
theme:
  name: clinic
  tokens:
    brand: "#0b7285"
`)

	cfg, err := Load(path, env(map[string]string{
		"FORMWIZARD_SERVER_ADDR":   "127.0.0.1:7000",
		"FORMWIZARD_LOG_LEVEL":     "debug",
		"FORMWIZARD_SESSION_TTL":   "1h",
		"FORMWIZARD_FORMS_DIR":     "/etc/formwizard/forms",
		"FORMWIZARD_THEME_VARIANT": "dark",
	}))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7000", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "/etc/formwizard/forms", cfg.Forms.Dir)
	assert.Equal(t, "clinic", cfg.Theme.Name)
	assert.Equal(t, "dark", cfg.Theme.Variant)
	assert.Equal(t, map[string]string{"brand": "#0b7285"}, cfg.Theme.Tokens)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), env(nil))
	assert.ErrorContains(t, err, "config: read")

	_, err = Load(writeFile(t, "server: [unclosed"), env(nil))
	assert.ErrorContains(t, err, "config: parse")

	_, err = Load(writeFile(t, "server:\n  port: 80\n"), env(nil))
	assert.ErrorContains(t, err, "port")

	_, err = Load("", env(map[string]string{"FORMWIZARD_SESSION_TTL": "soon"}))
	assert.ErrorContains(t, err, "config: decode")

	_, err = Load("", env(map[string]string{
		"FORMWIZARD_LOG_LEVEL":  "loud",
		"FORMWIZARD_LOG_FORMAT": "xml",
	}))
	assert.ErrorContains(t, err, "log.level")
	assert.ErrorContains(t, err, "log.format")
}
