package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the dashboard settings. Secrets (master key, school keys)
// only ever come from the config file or the environment.
type Config struct {
	HTTPAddr string       `yaml:"http_addr"`
	API      APIConfig    `yaml:"api"`
	Access   AccessConfig `yaml:"access"`
	Cache    CacheConfig  `yaml:"cache"`
	Report   ReportConfig `yaml:"report"`
}

// APIConfig describes the remote exam-results API.
type APIConfig struct {
	BaseURL        string        `yaml:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"` // 0 keeps the HTTP client default (no timeout)
}

// AccessConfig is the static key-to-school configuration.
type AccessConfig struct {
	MasterKey  string            `yaml:"master_key"`
	Schools    []string          `yaml:"schools"`
	SchoolKeys map[string]string `yaml:"school_keys"` // api key -> school id
}

// CacheConfig selects the fetch cache backend. Empty RedisAddr keeps the
// cache in process memory.
type CacheConfig struct {
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"` // 0 = entries never expire
}

// ReportConfig bounds the in-process store of generated reports.
type ReportConfig struct {
	Capacity int `yaml:"capacity"`
}

// Default returns the built-in defaults. No keys are configured.
func Default() Config {
	return Config{
		HTTPAddr: ":8080",
		API: APIConfig{
			BaseURL: "https://flask-api-render-0vqx.onrender.com/api",
		},
		Access: AccessConfig{
			Schools:    []string{"MedSchoolA", "MedSchoolB", "MedSchoolC", "MedSchoolD"},
			SchoolKeys: map[string]string{},
		},
		Report: ReportConfig{Capacity: 32},
	}
}

// Load reads defaults, then the YAML file at path (when non-empty), then
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("DASHBOARD_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return cfg, err
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	c.HTTPAddr = getenv("HTTP_ADDR", c.HTTPAddr)
	c.API.BaseURL = getenv("API_BASE_URL", c.API.BaseURL)
	c.API.RequestTimeout = getenvDuration("REQUEST_TIMEOUT", c.API.RequestTimeout)
	c.Access.MasterKey = getenv("MASTER_API_KEY", c.Access.MasterKey)
	if val := os.Getenv("SCHOOLS"); val != "" {
		c.Access.Schools = splitList(val)
	}
	if val := os.Getenv("SCHOOL_KEYS"); val != "" {
		keys, err := parseSchoolKeys(val)
		if err != nil {
			return err
		}
		c.Access.SchoolKeys = keys
	}
	c.Cache.RedisAddr = getenv("REDIS_ADDR", c.Cache.RedisAddr)
	c.Cache.RedisPassword = getenv("REDIS_PASSWORD", c.Cache.RedisPassword)
	c.Cache.RedisDB = getenvInt("REDIS_DB", c.Cache.RedisDB)
	c.Cache.TTL = getenvDuration("CACHE_TTL", c.Cache.TTL)
	c.Report.Capacity = getenvInt("REPORT_CAPACITY", c.Report.Capacity)
	return nil
}

// Validate checks that the configuration can drive the dashboard.
func (c Config) Validate() error {
	var errs []error
	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	}
	if c.Access.MasterKey == "" {
		errs = append(errs, errors.New("access.master_key is required"))
	}
	if len(c.Access.Schools) == 0 {
		errs = append(errs, errors.New("access.schools must not be empty"))
	}
	known := make(map[string]bool, len(c.Access.Schools))
	for _, s := range c.Access.Schools {
		known[s] = true
	}
	for key, school := range c.Access.SchoolKeys {
		if !known[school] {
			errs = append(errs, fmt.Errorf("school key ...%s maps to unknown school %q", tail(key), school))
		}
	}
	if c.Report.Capacity <= 0 {
		errs = append(errs, errors.New("report.capacity must be positive"))
	}
	return errors.Join(errs...)
}

// parseSchoolKeys parses "key=School,key=School".
func parseSchoolKeys(val string) (map[string]string, error) {
	keys := make(map[string]string)
	for _, pair := range splitList(val) {
		key, school, ok := strings.Cut(pair, "=")
		key, school = strings.TrimSpace(key), strings.TrimSpace(school)
		if !ok || key == "" || school == "" {
			return nil, fmt.Errorf("SCHOOL_KEYS: malformed entry %q", pair)
		}
		keys[key] = school
	}
	return keys, nil
}

func splitList(val string) []string {
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func tail(key string) string {
	if len(key) <= 4 {
		return key
	}
	return key[len(key)-4:]
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
