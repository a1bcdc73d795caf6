package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"ai-video-generator/config"
	"ai-video-generator/pipeline"
	"ai-video-generator/regenerate"
	"ai-video-generator/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Services are the components the HTTP layer drives. All are built in main.
type Services struct {
	Summarizer  pipeline.Summarizer
	Story       pipeline.StoryWriter
	Images      pipeline.SceneStage
	Videos      pipeline.SceneStage
	Voiceovers  pipeline.SceneStage
	Assembler   pipeline.Assembler
	Pipeline    *pipeline.Pipeline
	Regenerator *regenerate.Regenerator
	Store       store.Store
}

// Server exposes the stages and the regeneration operations over HTTP.
type Server struct {
	svc    Services
	hub    *Hub
	paths  config.PathsConfig
	music  string
	log    *zap.Logger
	engine *gin.Engine

	// background runs started with "async": true
	bg     context.Context
	cancel context.CancelFunc
	runs   sync.WaitGroup
}

func NewServer(svc Services, hub *Hub, cfg *config.Config, log *zap.Logger) *Server {
	bg, cancel := context.WithCancel(context.Background())
	s := &Server{
		svc:    svc,
		hub:    hub,
		paths:  cfg.Paths,
		music:  cfg.Assemble.MusicPath,
		log:    log.Named("api"),
		bg:     bg,
		cancel: cancel,
	}
	s.engine = s.setupRouter()
	return s
}

// Handler returns the configured gin engine.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) setupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), corsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		respondOK(c, "ok", gin.H{"clients": s.hub.Clients()})
	})

	v1 := r.Group("/api/v1")
	{
		v1.POST("/transcript", s.handleTranscript)
		v1.POST("/story", s.handleStory)
		v1.POST("/images", s.handleImages)
		v1.POST("/videos", s.handleVideos)
		v1.POST("/voiceovers", s.handleVoiceovers)
		v1.POST("/assemble", s.handleAssemble)

		v1.POST("/pipeline", s.handlePipeline)
		v1.POST("/pipeline/story", s.handlePipelineFromStory)
		v1.GET("/runs/:id", s.handleGetRun)

		regen := v1.Group("/regenerate")
		{
			regen.POST("/story", s.handleRegenerateStory)
			regen.POST("/scenes", s.handleRegenerateScenes)
			regen.POST("/image", s.handleRegenerateImage)
			regen.POST("/video", s.handleRegenerateVideo)
			regen.POST("/voiceover", s.handleRegenerateVoiceover)
			regen.POST("/images", s.handleRegenerateImages)
			regen.POST("/videos", s.handleRegenerateVideos)
			regen.PUT("/scene", s.handleUpdateScene)
		}

		modify := v1.Group("/modify")
		{
			modify.POST("/scene", s.handleModifyScene)
			modify.POST("/image-prompt", s.handleModifyImagePrompt)
		}

		v1.GET("/ws", s.hub.Serve)
	}
	return r
}

// Run serves on addr until ctx is done, then shuts down and waits for background runs.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.cancel()
	s.runs.Wait()
	return err
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
