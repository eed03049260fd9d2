package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the default search paths at empty directories.
func isolate(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 15*time.Second, cfg.HTTP.RequestTimeout)
	assert.InDelta(t, 0.3, cfg.Engine.Prior, 1e-12)
	assert.InDelta(t, 0.95, cfg.Engine.Threshold, 1e-12)
	assert.Equal(t, 2*time.Second, cfg.Engine.StorageTimeout)
	assert.InDelta(t, 0.2, cfg.BKT.PGuess, 1e-12)
	assert.Equal(t, "flat", cfg.BKT.Curve.Kind)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFile(t *testing.T) {
	isolate(t)
	path := writeFile(t, "custom.yaml", `
database:
  driver: postgres
  dsn: postgres://localhost/mp
http:
  addr: 127.0.0.1:9000
  cors_origins: [https://a.example, https://b.example]
engine:
  threshold: 0.9
bkt:
  curve:
    kind: linear
    slip_gain: 0.1
    guess_gain: 0.1
cache:
  url: redis://localhost:6379/0
  ttl: 30s
log:
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSOrigins)
	assert.InDelta(t, 0.9, cfg.Engine.Threshold, 1e-12)
	assert.InDelta(t, 0.3, cfg.Engine.Prior, 1e-12, "unset keys keep defaults")
	assert.Equal(t, "linear", cfg.BKT.Curve.Kind)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "json", cfg.Log.Format)

	curve, err := cfg.BKT.NewCurve()
	require.NoError(t, err)
	assert.NotNil(t, curve)
}

func TestLoadSearchesWorkingDirectory(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile("masterypath.yaml", []byte("http:\n  addr: :7000\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.HTTP.Addr)
}

func TestEnvOverridesFile(t *testing.T) {
	isolate(t)
	path := writeFile(t, "c.yaml", "http:\n  addr: :7000\nengine:\n  prior: 0.4\n")
	t.Setenv("MASTERYPATH_HTTP_ADDR", ":6000")
	t.Setenv("MASTERYPATH_ENGINE_STORAGE_TIMEOUT", "750ms")
	t.Setenv("MASTERYPATH_HTTP_CORS_ORIGINS", "https://x.example,https://y.example")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":6000", cfg.HTTP.Addr)
	assert.InDelta(t, 0.4, cfg.Engine.Prior, 1e-12)
	assert.Equal(t, 750*time.Millisecond, cfg.Engine.StorageTimeout)
	assert.Equal(t, []string{"https://x.example", "https://y.example"}, cfg.HTTP.CORSOrigins)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedFile(t *testing.T) {
	isolate(t)
	_, err := Load(writeFile(t, "bad.yaml", "http: [unclosed"))
	assert.Error(t, err)
}

func TestValidateCollectsErrors(t *testing.T) {
	isolate(t)
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Database.Driver = "postgres"
	cfg.Engine.Prior = 1
	cfg.BKT.PSlip = 0.6
	cfg.BKT.PGuess = 0.6
	cfg.BKT.Curve.Kind = "cubic"
	cfg.Cache.URL = "memcached://x"
	cfg.Log.Level = "loud"
	cfg.Log.Format = "xml"

	err = cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"database.dsn", "engine.prior", "bkt:", "bkt.curve", "cache.url", "log.level", "log.format",
	} {
		assert.Contains(t, err.Error(), want)
	}
	assert.NotContains(t, err.Error(), "http.addr")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	Log{Level: "warn", Format: "json"}.NewLogger(&buf).Info("hidden")
	assert.Empty(t, buf.String())

	Log{Level: "debug", Format: "json"}.NewLogger(&buf).Debug("shown", "k", 1)
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	Log{Level: "info", Format: "text"}.NewLogger(&buf).Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")
}
