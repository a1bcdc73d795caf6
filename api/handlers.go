package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"ai-video-generator/apperrors"
	"ai-video-generator/pipeline"
	"ai-video-generator/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type transcriptRequest struct {
	VideoID string `json:"videoId"`
}

type storyRequest struct {
	Summary string `json:"summary"`
}

type scenesRequest struct {
	StoryData json.RawMessage `json:"story_data"`
	ImageData json.RawMessage `json:"image_data"`
	VideoData json.RawMessage `json:"video_data"`
	OutputDir string          `json:"output_dir"`
}

type assembleRequest struct {
	Scenes     json.RawMessage `json:"scenes_with_voiceovers"`
	MusicPath  string          `json:"bg_music_path"`
	OutputFile string          `json:"output_file"`
}

type pipelineRequest struct {
	VideoID    string `json:"videoId"`
	OutputName string `json:"output_video_name"`
	Async      bool   `json:"async"`
}

type pipelineStoryRequest struct {
	StoryData  json.RawMessage `json:"story_data"`
	Summary    string          `json:"summary"`
	OutputName string          `json:"output_video_name"`
	Async      bool            `json:"async"`
}

func (s *Server) handleTranscript(c *gin.Context) {
	var req transcriptRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.VideoID) == "" {
		badRequest(c, "videoId is required")
		return
	}

	result := s.svc.Summarizer.Run(c.Request.Context(), req.VideoID)
	if !result.Success {
		respondError(c, http.StatusNotFound, result.Message)
		return
	}
	respondOK(c, "Transcript summarized successfully", result)
}

func (s *Server) handleStory(c *gin.Context) {
	var req storyRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Summary) == "" {
		badRequest(c, "summary is required")
		return
	}

	story, err := s.svc.Story.Run(c.Request.Context(), req.Summary)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, fmt.Sprintf("Story generated with %d scenes", len(story.Scenes)), story)
}

func (s *Server) handleImages(c *gin.Context) {
	s.sceneStage(c, "images", s.svc.Images, s.paths.Images, func(r scenesRequest) json.RawMessage { return r.StoryData })
}

func (s *Server) handleVideos(c *gin.Context) {
	s.sceneStage(c, "videos", s.svc.Videos, s.paths.Videos, func(r scenesRequest) json.RawMessage { return r.ImageData })
}

func (s *Server) handleVoiceovers(c *gin.Context) {
	s.sceneStage(c, "voiceovers", s.svc.Voiceovers, s.paths.Voiceovers, func(r scenesRequest) json.RawMessage { return r.VideoData })
}

// sceneStage runs one per-scene stage over the scenes found in the field pick selects.
func (s *Server) sceneStage(c *gin.Context, what string, stage pipeline.SceneStage, defaultDir string, pick func(scenesRequest) json.RawMessage) {
	var req scenesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	scenes, err := decodeScenes(pick(req))
	if err != nil {
		respondErr(c, err)
		return
	}
	dir, err := safeDir(req.OutputDir, defaultDir)
	if err != nil {
		respondErr(c, err)
		return
	}

	out, err := stage.Run(c.Request.Context(), scenes, dir)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, fmt.Sprintf("Generated %s for %d scenes", what, len(out)), out)
}

func (s *Server) handleAssemble(c *gin.Context) {
	var req assembleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	scenes, err := decodeScenes(req.Scenes)
	if err != nil {
		respondErr(c, err)
		return
	}
	name, err := safeName(req.OutputFile, s.paths.OutputFile)
	if err != nil {
		respondErr(c, err)
		return
	}
	music := req.MusicPath
	if music == "" {
		music = s.music
	}

	result, err := s.svc.Assembler.Run(c.Request.Context(), scenes, filepath.Join(s.paths.Output, name), music)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, "Video assembled successfully", result)
}

func (s *Server) handlePipeline(c *gin.Context) {
	var req pipelineRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.VideoID) == "" {
		badRequest(c, "videoId is required")
		return
	}
	name, err := safeName(req.OutputName, "")
	if err != nil {
		respondErr(c, err)
		return
	}

	state := s.svc.Pipeline.NewRun(req.VideoID)
	s.execute(c, state, req.Async, func(ctx context.Context) error {
		return s.svc.Pipeline.Execute(ctx, state, name)
	})
}

func (s *Server) handlePipelineFromStory(c *gin.Context) {
	var req pipelineStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	scenes, err := decodeScenes(req.StoryData)
	if err != nil {
		respondErr(c, err)
		return
	}
	name, err := safeName(req.OutputName, "")
	if err != nil {
		respondErr(c, err)
		return
	}

	state := s.svc.Pipeline.NewRun("")
	state.Summary = req.Summary
	state.Story = &types.Story{Scenes: scenes}
	s.execute(c, state, req.Async, func(ctx context.Context) error {
		return s.svc.Pipeline.RunFromStory(ctx, state, name)
	})
}

func (s *Server) handleGetRun(c *gin.Context) {
	state, err := s.svc.Store.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, "Run "+string(state.Stage), state)
}

// execute runs fn in the request or, when async, in the background and
// answers 202 with the run id so clients can follow it over /ws or /runs/:id.
func (s *Server) execute(c *gin.Context, state *types.PipelineState, async bool, fn func(context.Context) error) {
	if async {
		s.runs.Add(1)
		go func() {
			defer s.runs.Done()
			if err := fn(s.bg); err != nil {
				s.log.Warn("background run failed", zap.String("run_id", state.RunID), zap.Error(err))
			}
		}()
		c.JSON(http.StatusAccepted, Response{
			Success:    true,
			Message:    "Pipeline started",
			Data:       gin.H{"run_id": state.RunID},
			StatusCode: http.StatusAccepted,
		})
		return
	}

	if err := fn(c.Request.Context()); err != nil {
		status := statusFor(err)
		c.AbortWithStatusJSON(status, Response{Success: false, Message: err.Error(), Data: state, StatusCode: status})
		return
	}
	respondOK(c, "Pipeline completed successfully", state)
}

// decodeScenes parses a story payload and requires at least one scene.
func decodeScenes(raw json.RawMessage) ([]types.Scene, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, apperrors.NewValidation("no scenes provided", nil)
	}
	scenes, err := types.DecodeScenes(raw)
	if err != nil {
		return nil, apperrors.NewValidation("invalid scene data", err)
	}
	if len(scenes) == 0 {
		return nil, apperrors.NewValidation("no scenes provided", nil)
	}
	return scenes, nil
}

func decodeScene(raw json.RawMessage, field string) (types.Scene, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return types.Scene{}, apperrors.NewValidation(field+" is required", nil)
	}
	scene, err := types.DecodeScene(raw)
	if err != nil {
		return types.Scene{}, apperrors.NewValidation("invalid "+field, err)
	}
	return scene, nil
}

// safeDir keeps client supplied output directories relative and inside the working tree.
func safeDir(dir, def string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return def, nil
	}
	clean := filepath.Clean(dir)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", apperrors.NewValidation(fmt.Sprintf("output_dir %q must be a relative path", dir), nil)
	}
	return clean, nil
}

// safeName accepts a bare file name only.
func safeName(name, def string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return def, nil
	}
	if filepath.Base(name) != name || name == "." || name == ".." {
		return "", apperrors.NewValidation(fmt.Sprintf("output file %q must be a plain file name", name), nil)
	}
	return name, nil
}
