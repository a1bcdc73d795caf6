package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
story:
  temperature: 1.5
video:
  poll_interval: 5s
  max_polls: 3
paths:
  images: imgs
`
	if err := os.WriteFile(path, []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Story.Temperature != 1.5 {
		t.Errorf("Story.Temperature = %v, want 1.5", cfg.Story.Temperature)
	}
	if cfg.Story.RegenerateTemperature != 1.3 {
		t.Errorf("RegenerateTemperature default lost: %v", cfg.Story.RegenerateTemperature)
	}
	if cfg.Video.PollInterval != 5*time.Second || cfg.Video.MaxPolls != 3 {
		t.Errorf("video poll = %v/%d", cfg.Video.PollInterval, cfg.Video.MaxPolls)
	}
	if cfg.Paths.Images != "imgs" || cfg.Paths.Videos != "generated_videos" {
		t.Errorf("paths = %+v", cfg.Paths)
	}
	if cfg.Summarize.ChunkSize != 2000 || cfg.Summarize.ChunkOverlap != 200 {
		t.Errorf("chunking = %d/%d", cfg.Summarize.ChunkSize, cfg.Summarize.ChunkOverlap)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "GOOGLE_API_KEY") {
		t.Fatalf("Validate() = %v, want missing GOOGLE_API_KEY", err)
	}

	cfg.Secrets.GoogleAPIKey = "g"
	cfg.Secrets.NebiusAPIKey = "n"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	cfg.Store.Backend = "redis"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected REDIS_ADDR to be required for redis backend")
	}

	cfg.Store.Backend = "file"
	cfg.Summarize.ChunkOverlap = cfg.Summarize.ChunkSize
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected overlap >= size to be rejected")
	}
}
