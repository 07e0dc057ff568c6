package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type Config struct {
	Port string

	// Auth; empty disables it.
	APIKey string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// Tag policy
	OptionalTags     []string
	DropStrayClosing bool

	// File walking
	Exclude []string
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("MDXPREP_API_KEY"),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 10485760), // 10MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		OptionalTags:     envList("OPTIONAL_TAGS"),
		DropStrayClosing: envBool("DROP_STRAY_CLOSING", false),

		Exclude: envList("EXCLUDE"),
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.WorkerCount <= 0 {
		c.WorkerCount = 4
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = 100
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 10485760
	}
	if c.JobTTL <= 0 {
		c.JobTTL = 1 * time.Hour
	}
}

// fileConfig mirrors Config in a TOML file. Keys left out keep the values
// already loaded from the environment.
type fileConfig struct {
	Port             string   `toml:"port"`
	APIKey           string   `toml:"api_key"`
	WorkerCount      int      `toml:"worker_count"`
	MaxQueueSize     int      `toml:"max_queue_size"`
	MaxUploadBytes   int64    `toml:"max_upload_bytes"`
	JobTTL           string   `toml:"job_ttl"`
	OptionalTags     []string `toml:"optional_tags"`
	DropStrayClosing bool     `toml:"drop_stray_closing"`
	Exclude          []string `toml:"exclude"`
}

// LoadFile overlays the settings of a TOML file on cfg.
func LoadFile(path string, cfg *Config) error {
	var fc fileConfig
	meta, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("port") {
		cfg.Port = fc.Port
	}
	if meta.IsDefined("api_key") {
		cfg.APIKey = fc.APIKey
	}
	if meta.IsDefined("worker_count") {
		cfg.WorkerCount = fc.WorkerCount
	}
	if meta.IsDefined("max_queue_size") {
		cfg.MaxQueueSize = fc.MaxQueueSize
	}
	if meta.IsDefined("max_upload_bytes") {
		cfg.MaxUploadBytes = fc.MaxUploadBytes
	}
	if meta.IsDefined("job_ttl") {
		d, err := time.ParseDuration(fc.JobTTL)
		if err != nil {
			return fmt.Errorf("%s: job_ttl: %w", path, err)
		}
		cfg.JobTTL = d
	}
	if meta.IsDefined("optional_tags") {
		cfg.OptionalTags = fc.OptionalTags
	}
	if meta.IsDefined("drop_stray_closing") {
		cfg.DropStrayClosing = fc.DropStrayClosing
	}
	if meta.IsDefined("exclude") {
		cfg.Exclude = fc.Exclude
	}
	return nil
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Port, validation.Required, validation.By(func(value any) error {
			n, err := strconv.Atoi(value.(string))
			if err != nil || n <= 0 || n > 65535 {
				return validation.NewError("config.port_invalid", "must be a TCP port number")
			}
			return nil
		})),
		validation.Field(&c.WorkerCount, validation.Min(1)),
		validation.Field(&c.MaxQueueSize, validation.Min(1)),
		validation.Field(&c.MaxUploadBytes, validation.Min(int64(1))),
		validation.Field(&c.JobTTL, validation.Min(time.Second)),
		validation.Field(&c.OptionalTags, validation.Each(validation.By(func(value any) error {
			if strings.TrimSpace(value.(string)) == "" {
				return validation.NewError("config.tag_empty", "tag name must not be empty")
			}
			return nil
		}))),
		validation.Field(&c.Exclude, validation.Each(validation.By(func(value any) error {
			if _, err := filepath.Match(value.(string), ""); err != nil {
				return validation.NewError("config.exclude_invalid", "invalid glob pattern")
			}
			return nil
		}))),
	)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envList splits a comma-separated variable, dropping empty items.
func envList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
