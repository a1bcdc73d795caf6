// Package regenerate re-runs single stages for chosen scenes of an existing
// story and splices the results back by index. Inputs are never mutated.
package regenerate

import (
	"context"
	"fmt"
	"strings"

	story "ai-video-generator/02_story"
	"ai-video-generator/apperrors"
	"ai-video-generator/batch"
	"ai-video-generator/llm"
	"ai-video-generator/types"

	"go.uber.org/zap"
)

// StoryGenerator is the part of the story stage regeneration needs.
type StoryGenerator interface {
	Generate(ctx context.Context, summary, extra string, temperature float64) (types.Story, error)
	GenerateScene(ctx context.Context, prompt string, temperature float64) (types.Scene, error)
	Temperature() float64
	RegenerateTemperature() float64
}

// SingleStage regenerates one artifact for one scene under a fresh file name.
type SingleStage interface {
	Single(ctx context.Context, scene types.Scene, outputDir string) (types.Scene, error)
}

// Stages groups the generators a Regenerator drives.
type Stages struct {
	Story      StoryGenerator
	Images     SingleStage
	Videos     SingleStage
	Voiceovers SingleStage
}

// Regenerator runs the regeneration and user-edit operations.
type Regenerator struct {
	stages      Stages
	model       llm.TextModel
	concurrency int
	log         *zap.Logger
}

func New(stages Stages, model llm.TextModel, concurrency int, log *zap.Logger) *Regenerator {
	return &Regenerator{stages: stages, model: model, concurrency: concurrency, log: log.Named("regenerate")}
}

// ScenesResult is a story with some scenes replaced.
type ScenesResult struct {
	Story       types.Story          `json:"story"`
	Regenerated []int                `json:"regenerated"`
	Failed      []types.SkippedScene `json:"failed,omitempty"`
	Skipped     []types.SkippedScene `json:"skipped,omitempty"`
}

// Story generates a whole new story. Modifications take precedence over the
// existing story digest.
func (r *Regenerator) Story(ctx context.Context, summary, modifications string, existing *types.Story) (types.Story, error) {
	var extra string
	switch {
	case strings.TrimSpace(modifications) != "":
		extra = story.ModificationBlock(modifications)
	case existing != nil && len(existing.Scenes) > 0:
		extra = story.ExistingDigest(*existing)
	}
	r.log.Info("regenerating story", zap.Bool("modifications", strings.TrimSpace(modifications) != ""), zap.Bool("existing", existing != nil))
	return r.stages.Story.Generate(ctx, summary, extra, r.stages.Story.Temperature())
}

// Scenes regenerates the scenes at indices and keeps every other scene as is.
// Out-of-range indices are reported in Skipped. A model or parse error fails the whole call.
func (r *Regenerator) Scenes(ctx context.Context, in types.Story, indices []int, summary string) (*ScenesResult, error) {
	res := &ScenesResult{Story: in.Clone()}
	valid, skipped := r.partition(in, indices)
	res.Skipped = skipped

	temp := r.stages.Story.RegenerateTemperature()
	for _, idx := range valid {
		old := res.Story.Scenes[idx]
		scene, err := r.stages.Story.GenerateScene(ctx, story.ScenePrompt(summary, old), temp)
		if err != nil {
			return nil, apperrors.NewFatalStage(fmt.Sprintf("regenerate scene %d (%q)", idx, old.Title), err)
		}
		res.Story.Scenes[idx] = scene
		res.Regenerated = append(res.Regenerated, idx)
		r.log.Info("scene regenerated", zap.Int("index", idx), zap.String("old", old.Title), zap.String("new", scene.Title))
	}
	return res, nil
}

func (r *Regenerator) Image(ctx context.Context, scene types.Scene, outputDir string) (types.Scene, error) {
	return r.stages.Images.Single(ctx, scene, outputDir)
}

func (r *Regenerator) Video(ctx context.Context, scene types.Scene, outputDir string) (types.Scene, error) {
	return r.stages.Videos.Single(ctx, scene, outputDir)
}

func (r *Regenerator) Voiceover(ctx context.Context, scene types.Scene, outputDir string) (types.Scene, error) {
	return r.stages.Voiceovers.Single(ctx, scene, outputDir)
}

// Images regenerates the image of each indexed scene.
func (r *Regenerator) Images(ctx context.Context, in types.Story, indices []int, outputDir string) (*ScenesResult, error) {
	return r.batchSingle(ctx, "images", r.stages.Images, in, indices, outputDir)
}

// Videos regenerates the clip of each indexed scene.
func (r *Regenerator) Videos(ctx context.Context, in types.Story, indices []int, outputDir string) (*ScenesResult, error) {
	return r.batchSingle(ctx, "videos", r.stages.Videos, in, indices, outputDir)
}

func (r *Regenerator) batchSingle(ctx context.Context, what string, stage SingleStage, in types.Story, indices []int, outputDir string) (*ScenesResult, error) {
	res := &ScenesResult{Story: in.Clone()}
	valid, skipped := r.partition(in, indices)
	res.Skipped = skipped
	if len(valid) == 0 {
		return res, nil
	}

	results := make([]types.Scene, len(valid))
	out := batch.Run(ctx, len(valid), r.concurrency, func(ctx context.Context, i int) error {
		scene, err := stage.Single(ctx, res.Story.Scenes[valid[i]], outputDir)
		if err != nil {
			return err
		}
		results[i] = scene
		return nil
	})
	if out.AllFailed() {
		return nil, apperrors.NewFatalStage(fmt.Sprintf("no %s regenerated", what), out.Summary())
	}

	for i, idx := range valid {
		if err := out.Err(i); err != nil {
			r.log.Warn("scene regeneration failed", zap.String("stage", what), zap.Int("index", idx), zap.Error(err))
			res.Failed = append(res.Failed, types.SkippedScene{Index: idx, Title: in.Scenes[idx].Title, Reason: err.Error()})
			continue
		}
		res.Story.Scenes[idx] = results[i]
		res.Regenerated = append(res.Regenerated, idx)
	}
	r.log.Info("batch regeneration done", zap.String("stage", what), zap.Ints("regenerated", res.Regenerated))
	return res, nil
}

// MergeScene folds free-text feedback into a scene. It never fails: on any
// error, or with blank input, the scene comes back unchanged.
func (r *Regenerator) MergeScene(ctx context.Context, scene types.Scene, userInput, summary string) types.Scene {
	if strings.TrimSpace(userInput) == "" {
		return scene
	}
	merged, err := r.stages.Story.GenerateScene(ctx, mergeScenePrompt(scene, userInput, summary), r.stages.Story.Temperature())
	if err != nil {
		r.log.Warn("scene merge failed, keeping original", zap.String("title", scene.Title), zap.Error(err))
		return scene
	}
	merged.ImagePath = scene.ImagePath
	merged.VideoPath = scene.VideoPath
	merged.VoiceoverPath = scene.VoiceoverPath
	return merged
}

// MergeImagePrompt folds feedback into the scene's first image prompt and
// renders a new image. Blank input re-renders the current prompt unchanged.
func (r *Regenerator) MergeImagePrompt(ctx context.Context, scene types.Scene, userInput, outputDir string) (types.Scene, error) {
	out := scene.Clone()
	current, _ := out.FirstPrompt()
	if current == "" {
		current = out.VisualDescription
	}

	prompt := current
	if strings.TrimSpace(userInput) != "" {
		text, err := r.model.Generate(ctx, llm.Request{Prompt: mergeImagePromptPrompt(current, userInput), Temperature: 0.7})
		if err != nil {
			return types.Scene{}, apperrors.NewFatalStage("image prompt merge failed", err)
		}
		prompt = cleanPlainText(text)
		if prompt == "" {
			return types.Scene{}, apperrors.NewFatalStage("image prompt merge returned no text", nil)
		}
	}

	if len(out.ImagePrompts) == 0 {
		out.ImagePrompts = []string{prompt}
	} else {
		out.ImagePrompts[0] = prompt
	}
	return r.Image(ctx, out, outputDir)
}

// UpdateScene replaces the scene at index with a user-edited one.
func UpdateScene(in types.Story, index int, scene types.Scene) (types.Story, error) {
	if index < 0 || index >= len(in.Scenes) {
		return types.Story{}, apperrors.NewValidation(
			fmt.Sprintf("Invalid scene index. Must be between 0 and %d", len(in.Scenes)-1), nil)
	}
	if err := scene.Validate(); err != nil {
		return types.Story{}, apperrors.NewValidation("invalid scene", err)
	}
	out := in.Clone()
	out.Scenes[index] = scene.Clone()
	return out, nil
}

// partition splits indices into in-range ones (deduplicated, in request order) and skipped ones.
func (r *Regenerator) partition(in types.Story, indices []int) ([]int, []types.SkippedScene) {
	var valid []int
	var skipped []types.SkippedScene
	seen := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(in.Scenes) {
			r.log.Warn("scene index out of range", zap.Int("index", idx), zap.Int("scenes", len(in.Scenes)))
			skipped = append(skipped, types.SkippedScene{Index: idx, Reason: fmt.Sprintf("index out of range [0, %d)", len(in.Scenes))})
			continue
		}
		if seen[idx] {
			continue
		}
		seen[idx] = true
		valid = append(valid, idx)
	}
	return valid, skipped
}
