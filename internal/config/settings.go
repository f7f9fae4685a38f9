package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	logx "boomyouup/pkg/logx"

	"github.com/robfig/cron/v3"
)

const (
	DefaultSettingsPath = "boomyouup.yaml"
	DefaultSchedulePath = "config.yaml"
	DefaultPruneSpec    = "@daily"
	DefaultMetricsAddr  = "127.0.0.1:9464"
)

// LoadSettings reads, defaults and validates the settings file at path. A
// missing file yields the defaults.
func LoadSettings(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg := &Config{}
		cfg.ApplyDefaults()
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	cfg, err := ParseSettings(path, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseSettings strictly decodes data; the format follows path's extension.
// Unknown keys and trailing data are rejected.
func ParseSettings(path string, data []byte) (*Config, error) {
	jb, err := toJSON(path, data)
	if err != nil {
		return nil, err
	}
	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, errors.New("invalid config: trailing data")
		}
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills zero fields with their documented defaults.
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Console == nil {
		c.Logging.Console = boolPtr(true)
	}
	if strings.TrimSpace(c.Schedule.Path) == "" {
		c.Schedule.Path = DefaultSchedulePath
	}
	if c.Schedule.NormalizeFile == nil {
		c.Schedule.NormalizeFile = boolPtr(true)
	}
	if c.Notifier.Desktop.Enabled == nil {
		c.Notifier.Desktop.Enabled = boolPtr(true)
	}
	if strings.TrimSpace(c.Storage.PruneSpec) == "" {
		c.Storage.PruneSpec = DefaultPruneSpec
	}
	if strings.TrimSpace(c.Metrics.Addr) == "" {
		c.Metrics.Addr = DefaultMetricsAddr
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var v ValidationError
	if !logx.ValidLevel(c.Logging.Level) {
		v.Addf("logging.level", "unknown level %q", c.Logging.Level)
	}
	v.check(ParseDurationField("schedule.resync", c.Schedule.Resync))
	v.check(ParseSignedDurationField("notifier.desktop.timeout", c.Notifier.Desktop.Timeout))
	if c.Notifier.RatePerSec < 0 {
		v.Addf("notifier.rate_per_sec", "must be >= 0")
	}
	if tg := c.Notifier.Telegram; tg.Enabled {
		if strings.TrimSpace(tg.Token) == "" {
			v.Addf("notifier.telegram.token", "required when telegram is enabled")
		}
		if tg.ChatID == 0 {
			v.Addf("notifier.telegram.chat_id", "required when telegram is enabled")
		}
	}

	switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
	case "", "none":
	case "file", "sqlite", "sqlite3":
		if strings.TrimSpace(c.Storage.Path) == "" {
			v.Addf("storage.path", "required for driver %q", c.Storage.Driver)
		}
	default:
		v.Addf("storage.driver", "unknown driver %q", c.Storage.Driver)
	}
	v.check(ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout))
	v.check(ParseDurationField("storage.retention", c.Storage.Retention))
	if _, err := cron.ParseStandard(c.Storage.PruneSpec); err != nil {
		v.Addf("storage.prune_spec", "%v", err)
	}
	return v.OrNil()
}

func boolPtr(b bool) *bool { return &b }

// Bool dereferences an optional flag.
func Bool(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
