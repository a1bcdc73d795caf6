package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	assemble "ai-video-generator/06_assemble"
	"ai-video-generator/apperrors"
	"ai-video-generator/config"
	"ai-video-generator/store"
	"ai-video-generator/types"

	"go.uber.org/zap"
)

type Summarizer interface {
	Run(ctx context.Context, videoID string) types.SummaryResult
}

type StoryWriter interface {
	Run(ctx context.Context, summary string) (types.Story, error)
}

// SceneStage fills one per-scene artifact and returns the scenes in input order.
type SceneStage interface {
	Run(ctx context.Context, scenes []types.Scene, outputDir string) ([]types.Scene, error)
}

type Assembler interface {
	Run(ctx context.Context, scenes []types.Scene, outputFile, musicPath string) (*assemble.Result, error)
}

type Publisher interface {
	Publish(ctx context.Context, story types.Story, videoFile string) (string, error)
}

// Notifier receives every stage transition. The websocket hub implements it.
type Notifier interface {
	Notify(event types.ProgressEvent)
}

// Stages are the per-step generators, built once in main.
// Publisher may be nil.
type Stages struct {
	Summarizer Summarizer
	Story      StoryWriter
	Images     SceneStage
	Videos     SceneStage
	Voiceovers SceneStage
	Assembler  Assembler
	Publisher  Publisher
}

// Pipeline runs a video id through every stage and records the run state.
type Pipeline struct {
	stages Stages
	paths  config.PathsConfig
	music  string
	store  store.Store
	notify Notifier
	log    *zap.Logger
}

func New(stages Stages, cfg *config.Config, st store.Store, log *zap.Logger) *Pipeline {
	return &Pipeline{
		stages: stages,
		paths:  cfg.Paths,
		music:  cfg.Assemble.MusicPath,
		store:  st,
		log:    log.Named("pipeline"),
	}
}

// SetNotifier attaches a progress listener.
func (p *Pipeline) SetNotifier(n Notifier) {
	p.notify = n
}

// NewRun creates the state for a fresh run.
func (p *Pipeline) NewRun(videoID string) *types.PipelineState {
	return &types.PipelineState{
		RunID:     types.UniqueSuffix(),
		VideoID:   videoID,
		Stage:     types.StageStart,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// Run executes the complete pipeline for a YouTube video id.
func (p *Pipeline) Run(ctx context.Context, videoID, outputName string) (*types.PipelineState, error) {
	state := p.NewRun(videoID)
	return state, p.Execute(ctx, state, outputName)
}

// Execute drives state from START to DONE or FAILED. The state is saved after every stage.
func (p *Pipeline) Execute(ctx context.Context, state *types.PipelineState, outputName string) error {
	p.transition(ctx, state, types.StageStart, "pipeline starting for video "+state.VideoID, 0)

	// ─────────────────────────────────────────────
	// STAGE 1: Summarize
	// ─────────────────────────────────────────────
	p.transition(ctx, state, types.StageSummarize, "fetching transcript", 0)
	summary := p.stages.Summarizer.Run(ctx, state.VideoID)
	if !summary.Success {
		return p.fail(ctx, state, apperrors.NewUnavailable(summary.Message))
	}
	state.Summary = summary.Summary

	// ─────────────────────────────────────────────
	// STAGE 2: Story
	// ─────────────────────────────────────────────
	p.transition(ctx, state, types.StageStory, "writing story", 0)
	story, err := p.stages.Story.Run(ctx, state.Summary)
	if err != nil {
		return p.fail(ctx, state, err)
	}
	state.Story = &story

	return p.RunFromStory(ctx, state, outputName)
}

// RunFromStory continues a run whose story is already set, from images to the final video.
func (p *Pipeline) RunFromStory(ctx context.Context, state *types.PipelineState, outputName string) error {
	if state.Story == nil || len(state.Story.Scenes) == 0 {
		return p.fail(ctx, state, apperrors.NewValidation("story has no scenes", nil))
	}
	if outputName == "" {
		outputName = p.paths.OutputFile
	}

	// ─────────────────────────────────────────────
	// STAGE 3: Reference images
	// ─────────────────────────────────────────────
	if err := p.sceneStage(ctx, state, types.StageImages, "images", p.stages.Images, p.paths.Images,
		func(s types.Scene) bool { return s.ImagePath != "" }); err != nil {
		return err
	}

	// ─────────────────────────────────────────────
	// STAGE 4: Video clips
	// ─────────────────────────────────────────────
	if err := p.sceneStage(ctx, state, types.StageVideos, "videos", p.stages.Videos, p.paths.Videos,
		func(s types.Scene) bool { return s.VideoPath != "" }); err != nil {
		return err
	}

	// ─────────────────────────────────────────────
	// STAGE 5: Voiceovers
	// ─────────────────────────────────────────────
	if err := p.sceneStage(ctx, state, types.StageVoiceovers, "voiceovers", p.stages.Voiceovers, p.paths.Voiceovers,
		func(s types.Scene) bool { return s.VoiceoverPath != "" }); err != nil {
		return err
	}

	// ─────────────────────────────────────────────
	// STAGE 6: Assembly
	// ─────────────────────────────────────────────
	p.transition(ctx, state, types.StageAssemble, "assembling final video", len(state.Story.Scenes))
	outputFile := filepath.Join(p.paths.Output, outputName)
	res, err := p.stages.Assembler.Run(ctx, state.Story.Scenes, outputFile, p.music)
	if err != nil {
		return p.fail(ctx, state, err)
	}
	if res == nil || res.Path == "" {
		return p.fail(ctx, state, apperrors.NewFatalStage("pipeline failed to create video", nil))
	}
	state.FinalVideo = res.Path
	state.Skipped = res.Skipped

	state.CompletedAt = time.Now().UTC().Format(time.RFC3339)
	p.transition(ctx, state, types.StageDone, res.Path, len(res.Segments))
	p.log.Info("pipeline complete", zap.String("run_id", state.RunID), zap.String("video", res.Path))

	// ─────────────────────────────────────────────
	// Optional: YouTube upload
	// ─────────────────────────────────────────────
	if p.stages.Publisher != nil {
		url, err := p.stages.Publisher.Publish(ctx, *state.Story, res.Path)
		if err != nil {
			p.log.Warn("upload failed, video kept locally", zap.String("run_id", state.RunID), zap.Error(err))
		} else {
			state.YouTubeURL = url
			p.save(ctx, state)
		}
	}
	return nil
}

func (p *Pipeline) sceneStage(ctx context.Context, state *types.PipelineState, stage types.Stage, what string,
	gen SceneStage, dir string, produced func(types.Scene) bool) error {

	p.transition(ctx, state, stage, "generating "+what, len(state.Story.Scenes))
	scenes, err := gen.Run(ctx, state.Story.Scenes, dir)
	if err != nil {
		return p.fail(ctx, state, err)
	}
	n := 0
	for _, s := range scenes {
		if produced(s) {
			n++
		}
	}
	if n == 0 {
		return p.fail(ctx, state, apperrors.NewFatalStage(fmt.Sprintf("no %s generated", what), nil))
	}
	state.Story = &types.Story{Scenes: scenes}
	p.log.Info("stage complete", zap.String("run_id", state.RunID), zap.String("stage", string(stage)),
		zap.Int("produced", n), zap.Int("scenes", len(scenes)))
	return nil
}

func (p *Pipeline) transition(ctx context.Context, state *types.PipelineState, stage types.Stage, msg string, count int) {
	p.log.Info("stage", zap.String("run_id", state.RunID), zap.String("stage", string(stage)), zap.String("message", msg))
	state.Stage = stage
	p.save(ctx, state)
	if p.notify != nil {
		p.notify.Notify(types.ProgressEvent{RunID: state.RunID, Stage: stage, Message: msg, Count: count})
	}
}

// fail records err on the run and returns it typed; untyped stage errors become internal.
func (p *Pipeline) fail(ctx context.Context, state *types.PipelineState, err error) error {
	stage := state.Stage
	state.Error = fmt.Sprintf("%s: %v", stage, err)
	state.CompletedAt = time.Now().UTC().Format(time.RFC3339)
	p.log.Error("pipeline failed", zap.String("run_id", state.RunID), zap.String("stage", string(stage)), zap.Error(err))
	p.transition(ctx, state, types.StageFailed, err.Error(), 0)
	return apperrors.Wrap(err, "pipeline failed at "+string(stage))
}

func (p *Pipeline) save(ctx context.Context, state *types.PipelineState) {
	if p.store == nil {
		return
	}
	if err := p.store.Save(context.WithoutCancel(ctx), state); err != nil {
		p.log.Warn("could not save run state", zap.String("run_id", state.RunID), zap.Error(err))
	}
}
