package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "WORKER_COUNT", "MAX_QUEUE_SIZE", "MAX_UPLOAD_BYTES", "JOB_TTL", "OPTIONAL_TAGS", "DROP_STRAY_CLOSING", "EXCLUDE"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Port != "8090" {
		t.Errorf("expected port 8090, got %q", cfg.Port)
	}
	if cfg.WorkerCount != 4 || cfg.MaxQueueSize != 100 {
		t.Errorf("unexpected pool defaults: %d workers, queue %d", cfg.WorkerCount, cfg.MaxQueueSize)
	}
	if cfg.JobTTL != time.Hour {
		t.Errorf("expected 1h TTL, got %s", cfg.JobTTL)
	}
	if len(cfg.OptionalTags) != 0 {
		t.Errorf("expected no optional tags, got %v", cfg.OptionalTags)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("WORKER_COUNT", "-3")
	t.Setenv("OPTIONAL_TAGS", "br, em ,,strong")
	t.Setenv("DROP_STRAY_CLOSING", "true")
	t.Setenv("JOB_TTL", "30m")

	cfg := Load()
	if cfg.Port != "9000" {
		t.Errorf("expected port 9000, got %q", cfg.Port)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("expected non-positive worker count to fall back to 4, got %d", cfg.WorkerCount)
	}
	want := []string{"br", "em", "strong"}
	if len(cfg.OptionalTags) != len(want) {
		t.Fatalf("expected %v, got %v", want, cfg.OptionalTags)
	}
	for i := range want {
		if cfg.OptionalTags[i] != want[i] {
			t.Errorf("tag %d: expected %q, got %q", i, want[i], cfg.OptionalTags[i])
		}
	}
	if !cfg.DropStrayClosing {
		t.Error("expected DropStrayClosing")
	}
	if cfg.JobTTL != 30*time.Minute {
		t.Errorf("expected 30m TTL, got %s", cfg.JobTTL)
	}
}

func TestLoadFile_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mdxprep.toml")
	body := `optional_tags = ["br", "img"]
worker_count = 8
job_ttl = "5m"
exclude = ["drafts/*"]
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Config{Port: "8090", WorkerCount: 4, MaxQueueSize: 100, MaxUploadBytes: 1, JobTTL: time.Hour}
	if err := LoadFile(path, &cfg); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.WorkerCount != 8 {
		t.Errorf("expected 8 workers, got %d", cfg.WorkerCount)
	}
	if cfg.MaxQueueSize != 100 {
		t.Errorf("expected untouched queue size, got %d", cfg.MaxQueueSize)
	}
	if cfg.JobTTL != 5*time.Minute {
		t.Errorf("expected 5m TTL, got %s", cfg.JobTTL)
	}
	if len(cfg.OptionalTags) != 2 || cfg.OptionalTags[1] != "img" {
		t.Errorf("unexpected tags %v", cfg.OptionalTags)
	}
	if len(cfg.Exclude) != 1 || cfg.Exclude[0] != "drafts/*" {
		t.Errorf("unexpected excludes %v", cfg.Exclude)
	}
}

func TestLoadFile_UnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mdxprep.toml")
	if err := os.WriteFile(path, []byte("optional = [\"br\"]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var cfg Config
	if err := LoadFile(path, &cfg); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestValidate(t *testing.T) {
	base := Config{Port: "8090", WorkerCount: 1, MaxQueueSize: 1, MaxUploadBytes: 1, JobTTL: time.Minute}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Port = "http" }},
		{"no workers", func(c *Config) { c.WorkerCount = 0 }},
		{"short ttl", func(c *Config) { c.JobTTL = time.Millisecond }},
		{"empty tag", func(c *Config) { c.OptionalTags = []string{"br", " "} }},
		{"bad glob", func(c *Config) { c.Exclude = []string{"["} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
