package assemble

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ai-video-generator/apperrors"
	"ai-video-generator/config"
	"ai-video-generator/types"

	"go.uber.org/zap"
)

// Segment is one scene's place on the final timeline
type Segment struct {
	Index    int     `json:"index"`
	Title    string  `json:"title"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// Result describes an assembled video
type Result struct {
	Path     string               `json:"path"`
	Duration float64              `json:"duration"`
	Segments []Segment            `json:"segments"`
	Skipped  []types.SkippedScene `json:"skipped,omitempty"`
}

// Assembler builds the final video from scene clips and narration
type Assembler struct {
	ff     *FFmpeg
	volume float64
	log    *zap.Logger
}

// New creates an Assembler
func New(runner Runner, cfg config.AssembleConfig, log *zap.Logger) *Assembler {
	return &Assembler{
		ff:     NewFFmpeg(runner, Canvas{Width: cfg.Width, Height: cfg.Height, FPS: cfg.FPS}),
		volume: cfg.MusicVolume,
		log:    log.Named("assemble"),
	}
}

// Run assembles every scene that has both a clip and a voiceover on disk, in order.
// Scenes that cannot be used are reported in Result.Skipped.
func (a *Assembler) Run(ctx context.Context, scenes []types.Scene, outputFile, musicPath string) (*Result, error) {
	a.log.Info("assembling final video", zap.Int("scenes", len(scenes)), zap.String("output", outputFile))

	if dir := filepath.Dir(outputFile); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	workDir, err := os.MkdirTemp(filepath.Dir(outputFile), ".assemble-*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)
	// ffmpeg resolves concat entries against the list file's directory
	if workDir, err = filepath.Abs(workDir); err != nil {
		return nil, fmt.Errorf("resolve work dir: %w", err)
	}

	res := &Result{Path: outputFile}
	skip := func(i int, title, reason string) {
		a.log.Warn("skipping scene", zap.Int("scene", i+1), zap.String("title", title), zap.String("reason", reason))
		res.Skipped = append(res.Skipped, types.SkippedScene{Index: i, Title: title, Reason: reason})
	}

	var segFiles []string
	for i, scene := range scenes {
		if reason := missingInput(scene); reason != "" {
			skip(i, scene.Title, reason)
			continue
		}

		dur, err := a.ff.Duration(ctx, scene.VoiceoverPath)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			skip(i, scene.Title, fmt.Sprintf("read narration duration: %v", err))
			continue
		}

		segFile := filepath.Join(workDir, fmt.Sprintf("segment_%03d.mp4", i))
		if err := a.ff.Segment(ctx, scene.VideoPath, scene.VoiceoverPath, dur, segFile); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			skip(i, scene.Title, err.Error())
			continue
		}

		a.log.Info("scene segment ready", zap.Int("scene", i+1), zap.String("title", scene.Title), zap.Float64("duration", dur))
		res.Segments = append(res.Segments, Segment{Index: i, Title: scene.Title, Start: res.Duration, Duration: dur})
		res.Duration += dur
		segFiles = append(segFiles, segFile)
	}

	if len(segFiles) == 0 {
		titles := make([]string, len(res.Skipped))
		for i, s := range res.Skipped {
			titles[i] = s.Title
		}
		return nil, apperrors.NewFatalStage(
			fmt.Sprintf("no valid video clips to assemble (skipped: %s)", strings.Join(titles, ", ")), nil)
	}

	listFile := filepath.Join(workDir, "segments.txt")
	if err := os.WriteFile(listFile, []byte(concatList(segFiles)), 0644); err != nil {
		return nil, err
	}
	joined := filepath.Join(workDir, "joined.mp4")
	if err := a.ff.Concat(ctx, listFile, joined); err != nil {
		return nil, apperrors.NewFatalStage("concatenate segments", err)
	}

	music := ""
	if musicPath != "" {
		if _, err := os.Stat(musicPath); err == nil {
			music = musicPath
			a.log.Info("adding background music", zap.String("path", musicPath), zap.Float64("volume", a.volume))
		} else {
			a.log.Warn("background music not found, exporting narration only", zap.String("path", musicPath))
		}
	}

	if err := a.ff.Export(ctx, joined, music, a.volume, outputFile); err != nil {
		return nil, apperrors.NewFatalStage("export final video", err)
	}

	a.log.Info("final video ready",
		zap.String("path", outputFile),
		zap.Int("segments", len(res.Segments)),
		zap.Float64("duration", res.Duration))
	return res, nil
}

func missingInput(scene types.Scene) string {
	if scene.VideoPath == "" || !exists(scene.VideoPath) {
		return fmt.Sprintf("missing video clip %q", scene.VideoPath)
	}
	if scene.VoiceoverPath == "" || !exists(scene.VoiceoverPath) {
		return fmt.Sprintf("no voiceover for scene %q", scene.Title)
	}
	return ""
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
