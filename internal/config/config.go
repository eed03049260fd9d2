// Package config loads service settings. MASTERYPATH_* environment
// variables override the YAML file, which overrides the defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/abhisek/masterypath/internal/bkt"
	"github.com/abhisek/masterypath/internal/engine"
	"github.com/abhisek/masterypath/internal/knowledge"
	"github.com/abhisek/masterypath/internal/store"
)

// EnvPrefix is prepended to every environment override, e.g.
// MASTERYPATH_HTTP_ADDR for http.addr.
const EnvPrefix = "MASTERYPATH"

type Config struct {
	Database Database `mapstructure:"database"`
	HTTP     HTTP     `mapstructure:"http"`
	Engine   Engine   `mapstructure:"engine"`
	BKT      BKT      `mapstructure:"bkt"`
	Cache    Cache    `mapstructure:"cache"`
	Catalog  Catalog  `mapstructure:"catalog"`
	Log      Log      `mapstructure:"log"`
}

type Database struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"` // empty means the default sqlite path
}

type HTTP struct {
	Addr           string        `mapstructure:"addr"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type Engine struct {
	Prior          float64       `mapstructure:"prior"`
	Threshold      float64       `mapstructure:"threshold"`
	StorageTimeout time.Duration `mapstructure:"storage_timeout"`
}

type BKT struct {
	PTransit float64 `mapstructure:"p_transit"`
	PSlip    float64 `mapstructure:"p_slip"`
	PGuess   float64 `mapstructure:"p_guess"`
	Curve    Curve   `mapstructure:"curve"`
}

type Curve struct {
	Kind      string  `mapstructure:"kind"`
	SlipGain  float64 `mapstructure:"slip_gain"`
	GuessGain float64 `mapstructure:"guess_gain"`
}

type Cache struct {
	URL string        `mapstructure:"url"` // redis:// URL; empty uses the in-process cache
	TTL time.Duration `mapstructure:"ttl"`
}

// Catalog points at a file loaded into the store on serve start. Empty
// serves whatever the store already holds.
type Catalog struct {
	Path string `mapstructure:"path"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", store.DriverSQLite)
	v.SetDefault("database.dsn", "")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.cors_origins", []string{})
	v.SetDefault("http.request_timeout", 15*time.Second)
	v.SetDefault("engine.prior", knowledge.DefaultPrior)
	v.SetDefault("engine.threshold", 0.95)
	v.SetDefault("engine.storage_timeout", engine.DefaultStorageTimeout)
	v.SetDefault("bkt.p_transit", bkt.DefaultPTransit)
	v.SetDefault("bkt.p_slip", bkt.DefaultPSlip)
	v.SetDefault("bkt.p_guess", bkt.DefaultPGuess)
	v.SetDefault("bkt.curve.kind", bkt.CurveFlat)
	v.SetDefault("bkt.curve.slip_gain", 0.0)
	v.SetDefault("bkt.curve.guess_gain", 0.0)
	v.SetDefault("cache.url", "")
	v.SetDefault("cache.ttl", engine.DefaultProgressTTL)
	v.SetDefault("catalog.path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads path, or masterypath.yaml from the working directory and
// $XDG_CONFIG_HOME/masterypath when path is empty. A missing default file is
// not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("masterypath")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir := configDir(); dir != "" {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	// AutomaticEnv does not split lists.
	if len(cfg.HTTP.CORSOrigins) == 1 && strings.Contains(cfg.HTTP.CORSOrigins[0], ",") {
		cfg.HTTP.CORSOrigins = strings.Split(cfg.HTTP.CORSOrigins[0], ",")
	}
	return &cfg, nil
}

func configDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "masterypath")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "masterypath")
	}
	return ""
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch c.Database.Driver {
	case store.DriverSQLite, store.DriverPostgres:
	default:
		add("database.driver: unsupported driver %q", c.Database.Driver)
	}
	if c.Database.Driver == store.DriverPostgres && c.Database.DSN == "" {
		add("database.dsn: required for postgres")
	}
	if c.HTTP.Addr == "" {
		add("http.addr: must not be empty")
	}
	if c.HTTP.RequestTimeout <= 0 {
		add("http.request_timeout: must be positive")
	}
	if p := c.Engine.Prior; p <= 0 || p >= 1 {
		add("engine.prior: %g not in (0, 1)", p)
	}
	if th := c.Engine.Threshold; th <= 0 || th > 1 {
		add("engine.threshold: %g not in (0, 1]", th)
	}
	if c.Engine.StorageTimeout <= 0 {
		add("engine.storage_timeout: must be positive")
	}
	if err := c.BKT.Params().Validate(); err != nil {
		add("bkt: %w", err)
	}
	if _, err := c.BKT.NewCurve(); err != nil {
		add("bkt.curve: %w", err)
	}
	if c.Cache.TTL < 0 {
		add("cache.ttl: must not be negative")
	}
	if c.Cache.URL != "" && !strings.HasPrefix(c.Cache.URL, "redis://") && !strings.HasPrefix(c.Cache.URL, "rediss://") {
		add("cache.url: want redis:// or rediss://, got %q", c.Cache.URL)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		add("log.level: %w", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		add("log.format: want text or json, got %q", c.Log.Format)
	}

	return errors.Join(errs...)
}

// Params returns the BKT parameters.
func (b BKT) Params() bkt.Params {
	return bkt.Params{PTransit: b.PTransit, PSlip: b.PSlip, PGuess: b.PGuess}
}

// NewCurve builds the configured difficulty curve.
func (b BKT) NewCurve() (bkt.DifficultyCurve, error) {
	return bkt.NewCurve(b.Curve.Kind, b.Curve.SlipGain, b.Curve.GuessGain)
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown level %q", s)
	}
	return l, nil
}

// NewLogger builds the process logger described by c.
func (c Log) NewLogger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
