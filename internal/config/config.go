// Package config loads and stores CLI configuration in the XDG config dir.
// Values come from config.json when present and are overridden by CASTLINE_*
// environment variables; defaults are declared on the struct tags.
// Only non-secret settings are written back; the REST key stays in the environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	cerrors "castline/cli/internal/errors"
	"castline/cli/internal/xdg"
)

// Config holds non-sensitive CLI settings.
type Config struct {
	LogLevel string       `json:"log_level" env:"CASTLINE_LOG_LEVEL" env-default:"info"`
	API      APIConfig    `json:"api"`
	Tables   TablesConfig `json:"tables"`
	Cache    CacheConfig  `json:"cache"`
	Query    QueryConfig  `json:"query"`
}

// APIConfig describes the two-tier HTTP backend.
type APIConfig struct {
	DefaultURL     string   `json:"default_url" env:"CASTLINE_API_URL" env-default:"https://api.castline.chat"`
	PrivilegedURL  string   `json:"privileged_url" env:"CASTLINE_PRIVILEGED_API_URL" env-default:"https://plus.castline.chat"`
	RequestTimeout Duration `json:"request_timeout" env:"CASTLINE_REQUEST_TIMEOUT" env-default:"5s"`
}

// TablesConfig selects the remote table service. DSN wins over RESTURL.
type TablesConfig struct {
	DSN     string `json:"dsn" env:"CASTLINE_DSN"`
	Schema  string `json:"schema" env:"CASTLINE_SCHEMA" env-default:"public"`
	RESTURL string `json:"rest_url" env:"CASTLINE_REST_URL"`
	RESTKey string `json:"-" env:"CASTLINE_REST_KEY"`
}

// CacheConfig controls the query response cache. With no path and Persist
// off, responses are kept in memory for the life of the process.
type CacheConfig struct {
	Path    string `json:"path" env:"CASTLINE_CACHE_PATH"`
	Persist bool   `json:"persist" env:"CASTLINE_CACHE_PERSIST"`
}

// ResolvePath returns the SQLite file to cache into, or "" for memory.
// Persist without an explicit path uses the XDG cache directory.
func (c CacheConfig) ResolvePath() (string, error) {
	if c.Path != "" || !c.Persist {
		return c.Path, nil
	}
	dir, err := xdg.CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "queries.db"), nil
}

// QueryConfig holds query composer tuning.
type QueryConfig struct {
	PageSize int `json:"page_size" env:"CASTLINE_PAGE_SIZE" env-default:"10"`
}

// Duration is a time.Duration that reads "5s"-style strings from JSON and env.
type Duration time.Duration

// SetValue implements cleanenv.Setter.
func (d *Duration) SetValue(s string) error {
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return d.SetValue(s)
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Path returns the path to the config file.
func Path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads configuration; missing file returns defaults plus env overrides.
func Load() (Config, error) {
	p, err := Path()
	if err != nil {
		return Config{}, err
	}
	return LoadFile(p)
}

// LoadFile reads configuration from p. A missing file is not an error.
func LoadFile(p string) (Config, error) {
	var c Config
	if _, err := os.Stat(p); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return c, err
		}
		if err := cleanenv.ReadEnv(&c); err != nil {
			return c, cerrors.Wrap(cerrors.Config, "read environment", err)
		}
		return c, c.Validate()
	}
	if err := cleanenv.ReadConfig(p, &c); err != nil {
		return c, cerrors.Wrap(cerrors.Config, "read "+p, err)
	}
	return c, c.Validate()
}

// Validate checks the values the data layer cannot run without.
func (c Config) Validate() error {
	for name, raw := range map[string]string{
		"api.default_url":    c.API.DefaultURL,
		"api.privileged_url": c.API.PrivilegedURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return cerrors.New(cerrors.Config, fmt.Sprintf("%s must be an absolute URL, got %q", name, raw))
		}
	}
	if c.API.RequestTimeout <= 0 {
		return cerrors.New(cerrors.Config, "api.request_timeout must be positive")
	}
	if c.Query.PageSize <= 0 {
		return cerrors.New(cerrors.Config, "query.page_size must be positive")
	}
	return nil
}

// Save writes configuration with 0600 permissions.
func Save(c Config) error {
	p, err := Path()
	if err != nil {
		return err
	}
	return SaveFile(p, c)
}

// SaveFile writes c to p with 0600 permissions.
func SaveFile(p string, c Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}
