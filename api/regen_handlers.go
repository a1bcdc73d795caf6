package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ai-video-generator/regenerate"
	"ai-video-generator/types"

	"github.com/gin-gonic/gin"
)

type regenerateStoryRequest struct {
	Summary       string          `json:"summary"`
	Modifications string          `json:"modifications"`
	ExistingStory json.RawMessage `json:"existing_story"`
}

type regenerateScenesRequest struct {
	SceneIndices  []int           `json:"scene_indices"`
	ExistingStory json.RawMessage `json:"existing_story"`
	Summary       string          `json:"summary"`
}

type singleRequest struct {
	SceneData      json.RawMessage `json:"scene_data"`
	ImageSceneData json.RawMessage `json:"image_scene_data"`
	OutputDir      string          `json:"output_dir"`
}

type batchRequest struct {
	StoryData    json.RawMessage `json:"story_data"`
	ImageData    json.RawMessage `json:"image_data"`
	SceneIndices []int           `json:"scene_indices"`
	OutputDir    string          `json:"output_dir"`
}

type updateSceneRequest struct {
	StoryData    json.RawMessage `json:"story_data"`
	SceneIndex   *int            `json:"scene_index"`
	UpdatedScene json.RawMessage `json:"updated_scene"`
}

type modifyRequest struct {
	SceneData json.RawMessage `json:"scene_data"`
	UserInput string          `json:"user_input"`
	Summary   string          `json:"summary"`
	OutputDir string          `json:"output_dir"`
}

func (s *Server) handleRegenerateStory(c *gin.Context) {
	var req regenerateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Summary) == "" {
		badRequest(c, "summary is required")
		return
	}

	var existing *types.Story
	if len(req.ExistingStory) > 0 && string(req.ExistingStory) != "null" {
		scenes, err := decodeScenes(req.ExistingStory)
		if err != nil {
			respondErr(c, err)
			return
		}
		existing = &types.Story{Scenes: scenes}
	}

	story, err := s.svc.Regenerator.Story(c.Request.Context(), req.Summary, req.Modifications, existing)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, fmt.Sprintf("Story regenerated with %d scenes", len(story.Scenes)), story)
}

func (s *Server) handleRegenerateScenes(c *gin.Context) {
	var req regenerateScenesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	if len(req.SceneIndices) == 0 {
		badRequest(c, "scene_indices is required")
		return
	}
	scenes, err := decodeScenes(req.ExistingStory)
	if err != nil {
		respondErr(c, err)
		return
	}

	res, err := s.svc.Regenerator.Scenes(c.Request.Context(), types.Story{Scenes: scenes}, req.SceneIndices, req.Summary)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, fmt.Sprintf("Regenerated %d scenes", len(res.Regenerated)), res)
}

type singleFunc func(ctx context.Context, scene types.Scene, outputDir string) (types.Scene, error)

func (s *Server) handleRegenerateImage(c *gin.Context) {
	s.single(c, "image", s.paths.Images, s.svc.Regenerator.Image)
}

func (s *Server) handleRegenerateVideo(c *gin.Context) {
	s.single(c, "video", s.paths.Videos, s.svc.Regenerator.Video)
}

func (s *Server) handleRegenerateVoiceover(c *gin.Context) {
	s.single(c, "voiceover", s.paths.Voiceovers, s.svc.Regenerator.Voiceover)
}

func (s *Server) single(c *gin.Context, what, defaultDir string, fn singleFunc) {
	var req singleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	raw, field := req.SceneData, "scene_data"
	if len(raw) == 0 {
		raw, field = req.ImageSceneData, "image_scene_data"
	}
	scene, err := decodeScene(raw, field)
	if err != nil {
		respondErr(c, err)
		return
	}
	dir, err := safeDir(req.OutputDir, defaultDir)
	if err != nil {
		respondErr(c, err)
		return
	}

	out, err := fn(c.Request.Context(), scene, dir)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, fmt.Sprintf("Regenerated %s for scene %q", what, out.Title), out)
}

type batchFunc func(ctx context.Context, in types.Story, indices []int, outputDir string) (*regenerate.ScenesResult, error)

func (s *Server) handleRegenerateImages(c *gin.Context) {
	s.batch(c, "images", s.paths.Images, s.svc.Regenerator.Images)
}

func (s *Server) handleRegenerateVideos(c *gin.Context) {
	s.batch(c, "videos", s.paths.Videos, s.svc.Regenerator.Videos)
}

// batch regenerates the indexed scenes, or all of them when no indices are given.
func (s *Server) batch(c *gin.Context, what, defaultDir string, fn batchFunc) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	raw := req.StoryData
	if len(raw) == 0 {
		raw = req.ImageData
	}
	scenes, err := decodeScenes(raw)
	if err != nil {
		respondErr(c, err)
		return
	}
	dir, err := safeDir(req.OutputDir, defaultDir)
	if err != nil {
		respondErr(c, err)
		return
	}

	indices := req.SceneIndices
	if len(indices) == 0 {
		indices = make([]int, len(scenes))
		for i := range indices {
			indices[i] = i
		}
	}

	res, err := fn(c.Request.Context(), types.Story{Scenes: scenes}, indices, dir)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, fmt.Sprintf("Regenerated %s for %d scenes", what, len(res.Regenerated)), res)
}

func (s *Server) handleUpdateScene(c *gin.Context) {
	var req updateSceneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.SceneIndex == nil {
		badRequest(c, "scene_index is required")
		return
	}
	scenes, err := decodeScenes(req.StoryData)
	if err != nil {
		respondErr(c, err)
		return
	}
	scene, err := decodeScene(req.UpdatedScene, "updated_scene")
	if err != nil {
		respondErr(c, err)
		return
	}

	story, err := regenerate.UpdateScene(types.Story{Scenes: scenes}, *req.SceneIndex, scene)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, fmt.Sprintf("Scene %d updated", *req.SceneIndex), story)
}

func (s *Server) handleModifyScene(c *gin.Context) {
	var req modifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	scene, err := decodeScene(req.SceneData, "scene_data")
	if err != nil {
		respondErr(c, err)
		return
	}

	merged := s.svc.Regenerator.MergeScene(c.Request.Context(), scene, req.UserInput, req.Summary)
	respondOK(c, "Scene modified", merged)
}

func (s *Server) handleModifyImagePrompt(c *gin.Context) {
	var req modifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	scene, err := decodeScene(req.SceneData, "scene_data")
	if err != nil {
		respondErr(c, err)
		return
	}
	dir, err := safeDir(req.OutputDir, s.paths.Images)
	if err != nil {
		respondErr(c, err)
		return
	}

	out, err := s.svc.Regenerator.MergeImagePrompt(c.Request.Context(), scene, req.UserInput, dir)
	if err != nil {
		respondErr(c, err)
		return
	}
	respondOK(c, "Image prompt modified and image regenerated", out)
}
