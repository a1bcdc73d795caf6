package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Summarize SummarizeConfig `yaml:"summarize"`
	Story     StoryConfig     `yaml:"story"`
	Images    ImagesConfig    `yaml:"images"`
	Video     VideoConfig     `yaml:"video"`
	Voiceover VoiceoverConfig `yaml:"voiceover"`
	Assemble  AssembleConfig  `yaml:"assemble"`
	Publish   PublishConfig   `yaml:"publish"`
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Log       LogConfig       `yaml:"log"`
	Paths     PathsConfig     `yaml:"paths"`

	// Secrets come from the environment only.
	Secrets Secrets `yaml:"-"`
}

type SummarizeConfig struct {
	Model        string  `yaml:"model"`
	Temperature  float64 `yaml:"temperature"`
	ChunkSize    int     `yaml:"chunk_size"`
	ChunkOverlap int     `yaml:"chunk_overlap"`
	Language     string  `yaml:"language"`
}

type StoryConfig struct {
	Model                 string  `yaml:"model"`
	Temperature           float64 `yaml:"temperature"`
	RegenerateTemperature float64 `yaml:"regenerate_temperature"`
	MinScenes             int     `yaml:"min_scenes"`
	MaxScenes             int     `yaml:"max_scenes"`
}

type ImagesConfig struct {
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	Concurrency int    `yaml:"concurrency"`
}

type VideoConfig struct {
	Model           string        `yaml:"model"`
	DurationSeconds int           `yaml:"duration_seconds"`
	AspectRatio     string        `yaml:"aspect_ratio"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	MaxPolls        int           `yaml:"max_polls"`
	Concurrency     int           `yaml:"concurrency"`
}

type VoiceoverConfig struct {
	Voice       string `yaml:"voice"`
	Attempts    int    `yaml:"attempts"`
	Concurrency int    `yaml:"concurrency"`
}

type AssembleConfig struct {
	Width       int     `yaml:"width"`
	Height      int     `yaml:"height"`
	FPS         int     `yaml:"fps"`
	MusicVolume float64 `yaml:"music_volume"`
	MusicPath   string  `yaml:"music_path"`
}

type PublishConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Visibility        string `yaml:"visibility"`
	CategoryID        string `yaml:"category_id"`
	DefaultLanguage   string `yaml:"default_language"`
	NotifySubscribers bool   `yaml:"notify_subscribers"`
	MadeForKids       bool   `yaml:"made_for_kids"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type StoreConfig struct {
	// Backend is "file" or "redis".
	Backend   string        `yaml:"backend"`
	Dir       string        `yaml:"dir"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type PathsConfig struct {
	Images     string `yaml:"images"`
	Videos     string `yaml:"videos"`
	Voiceovers string `yaml:"voiceovers"`
	Output     string `yaml:"output"`
	OutputFile string `yaml:"output_file"`
}

type Secrets struct {
	GoogleAPIKey        string
	NebiusAPIKey        string
	YouTubeAPIKey       string
	YouTubeClientID     string
	YouTubeClientSecret string
	YouTubeRefreshToken string
	TTSCommand          string
	RedisAddr           string
	RedisPassword       string
}

// Default returns the configuration used when a key is absent from config.yaml
func Default() *Config {
	return &Config{
		Summarize: SummarizeConfig{
			Model:        "gemini-2.5-flash",
			Temperature:  0.7,
			ChunkSize:    2000,
			ChunkOverlap: 200,
			Language:     "en",
		},
		Story: StoryConfig{
			Model:                 "gemini-2.5-flash",
			Temperature:           1.2,
			RegenerateTemperature: 1.3,
			MinScenes:             5,
			MaxScenes:             10,
		},
		Images: ImagesConfig{
			BaseURL:     "https://api.studio.nebius.com/v1/",
			Model:       "black-forest-labs/flux-dev",
			Concurrency: 3,
		},
		Video: VideoConfig{
			Model:           "veo-3.1-generate-preview",
			DurationSeconds: 4,
			AspectRatio:     "16:9",
			PollInterval:    10 * time.Second,
			MaxPolls:        60,
			Concurrency:     2,
		},
		Voiceover: VoiceoverConfig{
			Voice:       "en-US-GuyNeural",
			Attempts:    3,
			Concurrency: 4,
		},
		Assemble: AssembleConfig{
			Width:       1920,
			Height:      1080,
			FPS:         24,
			MusicVolume: 0.25,
		},
		Publish: PublishConfig{
			Visibility:      "private",
			CategoryID:      "24",
			DefaultLanguage: "en",
		},
		Server: ServerConfig{Addr: ":8000"},
		Store: StoreConfig{
			Backend:   "file",
			Dir:       "runs",
			KeyPrefix: "aivg:run:",
			TTL:       7 * 24 * time.Hour,
		},
		Log: LogConfig{Level: "info"},
		Paths: PathsConfig{
			Images:     "generated_images",
			Videos:     "generated_videos",
			Voiceovers: "voice_overs",
			Output:     "output",
			OutputFile: "final_ai_video.mp4",
		},
	}
}

// Load reads config.yaml over the defaults and then pulls secrets from the environment
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Secrets = SecretsFromEnv()
	return cfg, nil
}

func SecretsFromEnv() Secrets {
	return Secrets{
		GoogleAPIKey:        os.Getenv("GOOGLE_API_KEY"),
		NebiusAPIKey:        os.Getenv("NEBIUS_API_KEY"),
		YouTubeAPIKey:       os.Getenv("YOUTUBE_API_KEY"),
		YouTubeClientID:     os.Getenv("YOUTUBE_CLIENT_ID"),
		YouTubeClientSecret: os.Getenv("YOUTUBE_CLIENT_SECRET"),
		YouTubeRefreshToken: os.Getenv("YOUTUBE_REFRESH_TOKEN"),
		TTSCommand:          os.Getenv("TTS_COMMAND"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
	}
}

// Validate reports configuration the pipeline cannot start without.
func (c *Config) Validate() error {
	var missing []string
	if c.Secrets.GoogleAPIKey == "" {
		missing = append(missing, "GOOGLE_API_KEY")
	}
	if c.Secrets.NebiusAPIKey == "" {
		missing = append(missing, "NEBIUS_API_KEY")
	}
	if c.Store.Backend == "redis" && c.Secrets.RedisAddr == "" {
		missing = append(missing, "REDIS_ADDR")
	}
	if c.Publish.Enabled && (c.Secrets.YouTubeClientID == "" || c.Secrets.YouTubeClientSecret == "" || c.Secrets.YouTubeRefreshToken == "") {
		missing = append(missing, "YOUTUBE_CLIENT_ID/YOUTUBE_CLIENT_SECRET/YOUTUBE_REFRESH_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.Story.MinScenes <= 0 || c.Story.MaxScenes < c.Story.MinScenes {
		return fmt.Errorf("story scene bounds invalid: min=%d max=%d", c.Story.MinScenes, c.Story.MaxScenes)
	}
	if c.Summarize.ChunkOverlap >= c.Summarize.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)", c.Summarize.ChunkOverlap, c.Summarize.ChunkSize)
	}
	return nil
}
