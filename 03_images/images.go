package images

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"ai-video-generator/apperrors"
	"ai-video-generator/batch"
	"ai-video-generator/types"

	"go.uber.org/zap"
)

// Generator renders one reference image per scene
type Generator struct {
	client      ImageClient
	httpClient  *http.Client
	concurrency int
	log         *zap.Logger
}

// New creates an image Generator
func New(client ImageClient, concurrency int, log *zap.Logger) *Generator {
	return &Generator{
		client:      client,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		concurrency: concurrency,
		log:         log.Named("images"),
	}
}

// Run returns a copy of scenes, same length and order, with ImagePath set on
// every scene that succeeded. Only a batch where every scene failed is an error.
func (g *Generator) Run(ctx context.Context, scenes []types.Scene, outputDir string) ([]types.Scene, error) {
	g.log.Info("generating images", zap.Int("scenes", len(scenes)), zap.String("dir", outputDir))

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}

	out := make([]types.Scene, len(scenes))
	for i := range scenes {
		out[i] = scenes[i].Clone()
		out[i].ImagePath = ""
	}

	res := batch.Run(ctx, len(out), g.concurrency, func(ctx context.Context, i int) error {
		scene := &out[i]
		outFile := filepath.Join(outputDir, fmt.Sprintf("%d_%s.png", i+1, scene.FileKey()))

		g.log.Info("scene image", zap.Int("scene", i+1), zap.Int("of", len(out)), zap.String("title", scene.Title))
		if err := g.render(ctx, *scene, outFile); err != nil {
			g.log.Warn("scene image failed", zap.Int("scene", i+1), zap.String("title", scene.Title), zap.Error(err))
			return err
		}
		scene.ImagePath = outFile
		return nil
	})

	if res.AllFailed() {
		return nil, apperrors.NewFatalStage("no images generated", res.Summary())
	}
	g.log.Info("images done", zap.Int("ok", res.Succeeded()), zap.Int("failed", res.Failed()))
	return out, nil
}

// Single regenerates the image for one scene under a fresh file name.
func (g *Generator) Single(ctx context.Context, scene types.Scene, outputDir string) (types.Scene, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return types.Scene{}, fmt.Errorf("create image dir: %w", err)
	}
	out := scene.Clone()
	outFile := filepath.Join(outputDir, fmt.Sprintf("%s_%s.png", scene.FileKey(), types.UniqueSuffix()))

	if err := g.render(ctx, out, outFile); err != nil {
		return types.Scene{}, apperrors.NewFatalStage(fmt.Sprintf("image regeneration failed for %q", scene.Title), err)
	}
	out.ImagePath = outFile
	g.log.Info("image regenerated", zap.String("title", scene.Title), zap.String("path", outFile))
	return out, nil
}

func (g *Generator) render(ctx context.Context, scene types.Scene, outFile string) error {
	prompt, ok := scene.FirstPrompt()
	if !ok {
		return fmt.Errorf("scene %q has no image prompt", scene.Title)
	}

	img, err := g.client.Generate(ctx, prompt)
	if err != nil {
		return err
	}
	if len(img.Data) > 0 {
		return writeImage(img.Data, outFile)
	}
	if img.URL == "" {
		return fmt.Errorf("no image URL returned")
	}
	return g.downloadImage(ctx, img.URL, outFile)
}

func (g *Generator) downloadImage(ctx context.Context, imageURL, outFile string) error {
	req, err := http.NewRequestWithContext(ctx, "GET", imageURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; AIVideoGenerator/1.0)")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d downloading image", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return writeImage(data, outFile)
}

func writeImage(data []byte, outFile string) error {
	// Anything this small is an error page, not an image.
	if len(data) < 100 {
		return fmt.Errorf("image too small (%d bytes), likely an error", len(data))
	}
	return os.WriteFile(outFile, data, 0644)
}
