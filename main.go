package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	summarize "ai-video-generator/01_summarize"
	story "ai-video-generator/02_story"
	images "ai-video-generator/03_images"
	video "ai-video-generator/04_video"
	voiceover "ai-video-generator/05_voiceover"
	assemble "ai-video-generator/06_assemble"
	publish "ai-video-generator/07_publish"
	"ai-video-generator/api"
	"ai-video-generator/config"
	"ai-video-generator/llm"
	"ai-video-generator/logger"
	"ai-video-generator/pipeline"
	"ai-video-generator/regenerate"
	"ai-video-generator/store"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const usage = `usage:
  ai-video-generator run -video <youtube id> [-out final.mp4]
  ai-video-generator serve [-addr :8000]
  ai-video-generator status <run id>`

func main() {
	// Load .env for local dev; in deployment the variables are set directly
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "run":
		err = runCmd(ctx, cfg, log, os.Args[2:])
	case "serve":
		err = serveCmd(ctx, cfg, log, os.Args[2:])
	case "status":
		err = statusCmd(ctx, cfg, log, os.Args[2:])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Error("command failed", zap.String("command", os.Args[1]), zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
}

func runCmd(ctx context.Context, cfg *config.Config, log *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	videoID := fs.String("video", "", "YouTube video id")
	out := fs.String("out", cfg.Paths.OutputFile, "final video file name")
	fs.Parse(args)
	if *videoID == "" {
		return fmt.Errorf("-video is required")
	}

	app, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.close()

	state, err := app.pipeline.Run(ctx, *videoID, *out)
	if err != nil {
		log.Error("❌ pipeline failed", zap.String("run_id", state.RunID), zap.String("error", state.Error))
		return err
	}
	log.Info("✅ pipeline complete",
		zap.String("run_id", state.RunID),
		zap.String("video", state.FinalVideo),
		zap.String("youtube_url", state.YouTubeURL))
	return nil
}

func serveCmd(ctx context.Context, cfg *config.Config, log *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", cfg.Server.Addr, "listen address")
	fs.Parse(args)

	app, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.close()

	hub := api.NewHub(cfg.Server.AllowedOrigins, log)
	app.pipeline.SetNotifier(hub)

	srv := api.NewServer(api.Services{
		Summarizer:  app.stages.Summarizer,
		Story:       app.stages.Story,
		Images:      app.stages.Images,
		Videos:      app.stages.Videos,
		Voiceovers:  app.stages.Voiceovers,
		Assembler:   app.stages.Assembler,
		Pipeline:    app.pipeline,
		Regenerator: app.regenerator,
		Store:       app.store,
	}, hub, cfg, log)
	return srv.Run(ctx, *addr)
}

// statusCmd prints a saved run without touching any generation service.
func statusCmd(ctx context.Context, cfg *config.Config, log *zap.Logger, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("status needs exactly one run id")
	}
	st, err := store.New(ctx, cfg.Store, cfg.Secrets, log)
	if err != nil {
		return err
	}
	if c, ok := st.(io.Closer); ok {
		defer c.Close()
	}

	state, err := st.Load(ctx, args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(state)
}

type app struct {
	stages      pipeline.Stages
	pipeline    *pipeline.Pipeline
	regenerator *regenerate.Regenerator
	store       store.Store
	closers     []io.Closer
}

func (a *app) close() {
	for _, c := range a.closers {
		c.Close()
	}
}

// build wires every stage from config. Publishing is only wired when enabled.
func build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &app{}

	genaiClient, err := llm.NewClient(ctx, cfg.Secrets.GoogleAPIKey)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	summaryModel := llm.NewGemini(genaiClient, cfg.Summarize.Model, log)
	storyModel := llm.NewGemini(genaiClient, cfg.Story.Model, log)

	ytKey := cfg.Secrets.YouTubeAPIKey
	if ytKey == "" {
		ytKey = cfg.Secrets.GoogleAPIKey
	}
	source, err := summarize.NewYouTubeSource(ctx, ytKey, cfg.Summarize.Language)
	if err != nil {
		return nil, fmt.Errorf("youtube client: %w", err)
	}

	tts, err := voiceover.NewCommandSynthesizer(cfg.Secrets.TTSCommand, cfg.Voiceover.Voice, cfg.Voiceover.Attempts, log)
	if err != nil {
		return nil, err
	}

	storyGen := story.New(storyModel, cfg.Story, log)
	imageGen := images.New(images.NewNebiusClient(cfg.Secrets.NebiusAPIKey, cfg.Images.BaseURL, cfg.Images.Model), cfg.Images.Concurrency, log)
	videoGen := video.New(video.NewVeo(genaiClient, cfg.Video.Model), cfg.Video, log)
	voiceGen := voiceover.New(tts, cfg.Voiceover.Concurrency, log)

	a.stages = pipeline.Stages{
		Summarizer: summarize.New(source, summaryModel, cfg.Summarize, log),
		Story:      storyGen,
		Images:     imageGen,
		Videos:     videoGen,
		Voiceovers: voiceGen,
		Assembler:  assemble.New(assemble.ExecRunner{}, cfg.Assemble, log),
	}

	if cfg.Publish.Enabled {
		uploader, err := publish.NewUploader(publish.Credentials{
			ClientID:     cfg.Secrets.YouTubeClientID,
			ClientSecret: cfg.Secrets.YouTubeClientSecret,
			RefreshToken: cfg.Secrets.YouTubeRefreshToken,
		}, cfg.Publish, log)
		if err != nil {
			return nil, err
		}
		a.stages.Publisher = publish.NewPublisher(publish.NewMetadataGenerator(storyModel, cfg.Publish, log), uploader)
	}

	a.store, err = store.New(ctx, cfg.Store, cfg.Secrets, log)
	if err != nil {
		return nil, err
	}
	if c, ok := a.store.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	a.pipeline = pipeline.New(a.stages, cfg, a.store, log)
	a.regenerator = regenerate.New(regenerate.Stages{
		Story:      storyGen,
		Images:     imageGen,
		Videos:     videoGen,
		Voiceovers: voiceGen,
	}, storyModel, cfg.Images.Concurrency, log)

	log.Info("🎬 pipeline ready",
		zap.String("store", cfg.Store.Backend),
		zap.Bool("publish", cfg.Publish.Enabled))
	return a, nil
}
