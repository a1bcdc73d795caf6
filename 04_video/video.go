package video

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ai-video-generator/apperrors"
	"ai-video-generator/batch"
	"ai-video-generator/config"
	"ai-video-generator/types"

	"go.uber.org/zap"
)

// Generator renders one clip per scene and waits for each remote job to finish
type Generator struct {
	svc Service
	cfg config.VideoConfig
	log *zap.Logger
}

// New creates a video Generator
func New(svc Service, cfg config.VideoConfig, log *zap.Logger) *Generator {
	return &Generator{svc: svc, cfg: cfg, log: log.Named("video")}
}

// Run returns a copy of scenes with VideoPath set where a clip was produced.
// Only a batch where every scene failed is an error.
func (g *Generator) Run(ctx context.Context, scenes []types.Scene, outputDir string) ([]types.Scene, error) {
	g.log.Info("generating clips", zap.Int("scenes", len(scenes)), zap.Int("concurrency", g.cfg.Concurrency))

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create video dir: %w", err)
	}

	out := make([]types.Scene, len(scenes))
	for i := range scenes {
		out[i] = scenes[i].Clone()
		out[i].VideoPath = ""
	}

	res := batch.Run(ctx, len(out), g.cfg.Concurrency, func(ctx context.Context, i int) error {
		scene := &out[i]
		outFile := filepath.Join(outputDir, fmt.Sprintf("%d_%s_%s.mp4", i+1, scene.FileKey(), types.UniqueSuffix()))

		if err := g.render(ctx, *scene, outFile); err != nil {
			g.log.Warn("scene clip failed", zap.Int("scene", i+1), zap.String("title", scene.Title), zap.Error(err))
			return err
		}
		scene.VideoPath = outFile
		g.log.Info("scene clip saved", zap.Int("scene", i+1), zap.String("path", outFile))
		return nil
	})

	if res.AllFailed() {
		return nil, apperrors.NewFatalStage("no videos generated", res.Summary())
	}
	g.log.Info("clips done", zap.Int("ok", res.Succeeded()), zap.Int("failed", res.Failed()))
	return out, nil
}

// Single regenerates the clip for one scene under a fresh file name.
func (g *Generator) Single(ctx context.Context, scene types.Scene, outputDir string) (types.Scene, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return types.Scene{}, fmt.Errorf("create video dir: %w", err)
	}
	out := scene.Clone()
	outFile := filepath.Join(outputDir, fmt.Sprintf("%s_%s.mp4", scene.FileKey(), types.UniqueSuffix()))

	if err := g.render(ctx, out, outFile); err != nil {
		return types.Scene{}, apperrors.NewFatalStage(fmt.Sprintf("video regeneration failed for %q", scene.Title), err)
	}
	out.VideoPath = outFile
	return out, nil
}

func (g *Generator) render(ctx context.Context, scene types.Scene, outFile string) error {
	ref, err := g.loadReference(scene)
	if err != nil {
		return err
	}

	job, err := g.svc.Start(ctx, JobRequest{
		Prompt:          promptFor(scene),
		Reference:       ref,
		DurationSeconds: g.cfg.DurationSeconds,
		AspectRatio:     g.cfg.AspectRatio,
	})
	if err != nil {
		return err
	}

	job, err = g.wait(ctx, job)
	if err != nil {
		return err
	}
	return g.svc.Download(ctx, job, outFile)
}

// loadReference reads the scene image the clip starts from. Without one on
// disk the clip is generated from text only.
func (g *Generator) loadReference(scene types.Scene) (*Reference, error) {
	if scene.ImagePath == "" {
		return nil, nil
	}
	data, err := os.ReadFile(scene.ImagePath)
	if errors.Is(err, fs.ErrNotExist) {
		g.log.Debug("reference image not on disk, generating from text only", zap.String("path", scene.ImagePath))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read reference image: %w", err)
	}
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(scene.ImagePath)))
	if mimeType == "" {
		mimeType = "image/png"
	}
	return &Reference{LocalPath: scene.ImagePath, MIMEType: mimeType, Data: data}, nil
}

// wait polls until the job is done, at most MaxPolls times.
func (g *Generator) wait(ctx context.Context, job *Job) (*Job, error) {
	for polls := 0; !job.Done; polls++ {
		if polls >= g.cfg.MaxPolls {
			return nil, fmt.Errorf("video job %s not done after %d polls", job.Name, polls)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(g.cfg.PollInterval):
		}

		next, err := g.svc.Poll(ctx, job)
		if err != nil {
			return nil, err
		}
		job = next
		g.log.Debug("polled", zap.String("job", job.Name), zap.Int("poll", polls+1), zap.Bool("done", job.Done))
	}
	if job.Err != nil {
		return nil, job.Err
	}
	return job, nil
}

func promptFor(scene types.Scene) string {
	if strings.TrimSpace(scene.VisualDescription) != "" {
		return scene.VisualDescription
	}
	p, _ := scene.FirstPrompt()
	return p
}
