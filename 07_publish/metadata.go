package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ai-video-generator/config"
	"ai-video-generator/llm"
	"ai-video-generator/types"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	titleMaxChars = 100
	maxTags       = 15
)

const metadataPrompt = `You are an expert YouTube SEO strategist.
Generate compelling YouTube metadata for a short AI-generated story video.

Respond with ONLY valid JSON with exactly these fields:
- "title": string (max 70 chars, a hook that is honest about the content)
- "description": string (150-300 words: a two sentence hook, what the story covers, a subscribe CTA and one question to drive comments)
- "tags": array of 10-15 strings (mix of broad and specific tags)

`

// MetadataGenerator writes upload metadata for a story with the text model
type MetadataGenerator struct {
	model llm.TextModel
	cfg   config.PublishConfig
	log   *zap.Logger
}

func NewMetadataGenerator(model llm.TextModel, cfg config.PublishConfig, log *zap.Logger) *MetadataGenerator {
	return &MetadataGenerator{model: model, cfg: cfg, log: log.Named("metadata")}
}

type metadataJSON struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Metadata generates title, description and tags for the story.
func (g *MetadataGenerator) Metadata(ctx context.Context, story types.Story) (*types.VideoMetadata, error) {
	g.log.Info("generating YouTube metadata", zap.Int("scenes", len(story.Scenes)))

	content, err := g.model.Generate(ctx, llm.Request{
		Prompt:      buildMetadataPrompt(story),
		Temperature: 0.8,
		Schema:      metadataSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("metadata generation: %w", err)
	}

	content = llm.CleanJSON(content)
	var raw metadataJSON
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("parse metadata JSON: %w\ncontent: %s", err, llm.Snippet(content, 300))
	}
	if strings.TrimSpace(raw.Title) == "" {
		return nil, fmt.Errorf("metadata has no title")
	}

	md := &types.VideoMetadata{
		Title:       truncate(strings.TrimSpace(raw.Title), titleMaxChars),
		Description: raw.Description,
		Tags:        raw.Tags[:min(maxTags, len(raw.Tags))],
		CategoryID:  g.cfg.CategoryID,
		Visibility:  g.cfg.Visibility,
	}
	g.log.Info("metadata ready", zap.String("title", md.Title), zap.Int("tags", len(md.Tags)))
	return md, nil
}

func buildMetadataPrompt(story types.Story) string {
	var sb strings.Builder
	sb.WriteString(metadataPrompt)
	sb.WriteString("STORY SCENES:\n")
	for _, s := range story.Scenes {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", s.Title, truncate(s.Narration, 100)))
	}
	sb.WriteString("\nRespond ONLY with valid JSON.")
	return sb.String()
}

func metadataSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":       {Type: genai.TypeString},
			"description": {Type: genai.TypeString},
			"tags":        {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		},
		Required:         []string{"title", "description", "tags"},
		PropertyOrdering: []string{"title", "description", "tags"},
	}
}

// truncate cuts s to at most n runes, ending in "..." when shortened.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
