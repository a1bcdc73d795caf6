package story

import (
	"context"
	"encoding/json"
	"fmt"

	"ai-video-generator/apperrors"
	"ai-video-generator/config"
	"ai-video-generator/llm"
	"ai-video-generator/types"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Generator expands a summary into scenes via the text model
type Generator struct {
	model llm.TextModel
	cfg   config.StoryConfig
	log   *zap.Logger
}

// New creates a story Generator
func New(model llm.TextModel, cfg config.StoryConfig, log *zap.Logger) *Generator {
	return &Generator{model: model, cfg: cfg, log: log.Named("story")}
}

func (g *Generator) Temperature() float64           { return g.cfg.Temperature }
func (g *Generator) RegenerateTemperature() float64 { return g.cfg.RegenerateTemperature }

// Run generates a story from a summary with the base prompt.
func (g *Generator) Run(ctx context.Context, summary string) (types.Story, error) {
	return g.Generate(ctx, summary, "", g.cfg.Temperature)
}

// Generate appends extra to the base prompt. Any parse or schema violation is
// fatal for the call; no partial story is returned.
func (g *Generator) Generate(ctx context.Context, summary, extra string, temperature float64) (types.Story, error) {
	g.log.Info("generating story", zap.Int("summary_chars", len(summary)), zap.Float64("temperature", temperature))

	prompt := BuildPrompt(summary, g.cfg.MinScenes, g.cfg.MaxScenes) + extra
	content, err := g.model.Generate(ctx, llm.Request{
		Prompt:      prompt,
		Temperature: temperature,
		Schema:      StorySchema(g.cfg.MinScenes, g.cfg.MaxScenes),
	})
	if err != nil {
		return types.Story{}, apperrors.NewFatalStage("story generation failed", err)
	}

	story, err := ParseStory(content, g.cfg.MinScenes, g.cfg.MaxScenes)
	if err != nil {
		return types.Story{}, apperrors.NewFatalStage("story generation failed", err)
	}
	g.log.Info("story ready", zap.Int("scenes", len(story.Scenes)))
	return story, nil
}

// GenerateScene sends a single-scene prompt and parses the reply.
func (g *Generator) GenerateScene(ctx context.Context, prompt string, temperature float64) (types.Scene, error) {
	content, err := g.model.Generate(ctx, llm.Request{
		Prompt:      prompt,
		Temperature: temperature,
		Schema:      SceneSchema(),
	})
	if err != nil {
		return types.Scene{}, err
	}
	return ParseScene(content)
}

// ParseStory validates model output against the scene schema and count bounds.
func ParseStory(content string, minScenes, maxScenes int) (types.Story, error) {
	content = llm.CleanJSON(content)
	story, err := types.DecodeStory(json.RawMessage(content))
	if err != nil {
		return types.Story{}, fmt.Errorf("parse story JSON: %w\nraw content: %s", err, llm.Snippet(content, 200))
	}
	if n := len(story.Scenes); n < minScenes || n > maxScenes {
		return types.Story{}, fmt.Errorf("story has %d scenes, want %d-%d", n, minScenes, maxScenes)
	}
	for i, s := range story.Scenes {
		if _, ok := s.FirstPrompt(); !ok {
			return types.Story{}, fmt.Errorf("scene %d (%q) has no image prompt", i, s.Title)
		}
	}
	return story, nil
}

// ParseScene parses one scene object; a one-element array is also accepted.
func ParseScene(content string) (types.Scene, error) {
	content = llm.CleanJSON(content)
	raw := json.RawMessage(content)
	if len(content) > 0 && content[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil || len(items) != 1 {
			return types.Scene{}, fmt.Errorf("parse scene JSON: expected one object\nraw content: %s", llm.Snippet(content, 200))
		}
		raw = items[0]
	}
	scene, err := types.DecodeScene(raw)
	if err != nil {
		return types.Scene{}, fmt.Errorf("parse scene JSON: %w\nraw content: %s", err, llm.Snippet(content, 200))
	}
	if _, ok := scene.FirstPrompt(); !ok {
		return types.Scene{}, fmt.Errorf("scene %q has no image prompt", scene.Title)
	}
	return scene, nil
}

// SceneSchema is the response schema for one scene object.
func SceneSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"scene":       {Type: genai.TypeString, Description: "Short cinematic scene title"},
			"narration":   {Type: genai.TypeString, Description: "Voiceover text for this scene"},
			"visual_cues": {Type: genai.TypeString, Description: "Detailed description of what the camera sees"},
			"prompts": {
				Type:     genai.TypeArray,
				Items:    &genai.Schema{Type: genai.TypeString},
				MinItems: genai.Ptr[int64](1),
			},
		},
		Required:         []string{"scene", "narration", "visual_cues", "prompts"},
		PropertyOrdering: []string{"scene", "narration", "visual_cues", "prompts"},
	}
}

// StorySchema is an array of SceneSchema with the scene count bounded.
func StorySchema(minScenes, maxScenes int) *genai.Schema {
	return &genai.Schema{
		Type:     genai.TypeArray,
		Items:    SceneSchema(),
		MinItems: genai.Ptr(int64(minScenes)),
		MaxItems: genai.Ptr(int64(maxScenes)),
	}
}
