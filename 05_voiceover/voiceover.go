package voiceover

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ai-video-generator/apperrors"
	"ai-video-generator/batch"
	"ai-video-generator/types"

	"go.uber.org/zap"
)

// Generator handles narration audio for every scene
type Generator struct {
	tts         Synthesizer
	concurrency int
	log         *zap.Logger
}

// New creates a voiceover Generator
func New(tts Synthesizer, concurrency int, log *zap.Logger) *Generator {
	return &Generator{tts: tts, concurrency: concurrency, log: log.Named("voiceover")}
}

// Run returns a copy of scenes with VoiceoverPath set where audio was produced.
// Only a batch where every scene failed is an error.
func (g *Generator) Run(ctx context.Context, scenes []types.Scene, outputDir string) ([]types.Scene, error) {
	g.log.Info("generating voiceovers", zap.Int("scenes", len(scenes)))

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}

	out := make([]types.Scene, len(scenes))
	for i := range scenes {
		out[i] = scenes[i].Clone()
		out[i].VoiceoverPath = ""
	}

	res := batch.Run(ctx, len(out), g.concurrency, func(ctx context.Context, i int) error {
		scene := &out[i]
		outFile := filepath.Join(outputDir, fmt.Sprintf("%d_%s.mp3", i+1, scene.FileKey()))

		if err := g.synthesize(ctx, *scene, outFile); err != nil {
			g.log.Warn("scene voiceover failed", zap.Int("scene", i+1), zap.String("title", scene.Title), zap.Error(err))
			return err
		}
		scene.VoiceoverPath = outFile
		g.log.Info("scene voiceover saved", zap.Int("scene", i+1), zap.String("path", outFile))
		return nil
	})

	if res.AllFailed() {
		return nil, apperrors.NewFatalStage("no voiceovers generated", res.Summary())
	}
	return out, nil
}

// Single regenerates narration audio for one scene under a fresh file name.
func (g *Generator) Single(ctx context.Context, scene types.Scene, outputDir string) (types.Scene, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return types.Scene{}, fmt.Errorf("create audio dir: %w", err)
	}
	out := scene.Clone()
	outFile := filepath.Join(outputDir, fmt.Sprintf("%s_%s.mp3", scene.FileKey(), types.UniqueSuffix()))

	if err := g.synthesize(ctx, out, outFile); err != nil {
		return types.Scene{}, apperrors.NewFatalStage(fmt.Sprintf("voiceover regeneration failed for %q", scene.Title), err)
	}
	out.VoiceoverPath = outFile
	return out, nil
}

func (g *Generator) synthesize(ctx context.Context, scene types.Scene, outFile string) error {
	if strings.TrimSpace(scene.Narration) == "" {
		return fmt.Errorf("scene %q has no narration", scene.Title)
	}
	if err := g.tts.Synthesize(ctx, scene.Narration, outFile); err != nil {
		return err
	}
	if fi, err := os.Stat(outFile); err != nil || fi.Size() == 0 {
		return fmt.Errorf("TTS produced no audio at %s", outFile)
	}
	return nil
}
