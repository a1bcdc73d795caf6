package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// sceneWire accepts both the canonical keys and the older ones ("image", "voiceover")
// that earlier clients sent back when echoing stage results.
type sceneWire struct {
	Title             string   `json:"scene"`
	Narration         string   `json:"narration"`
	VisualDescription string   `json:"visual_cues"`
	ImagePrompts      []string `json:"prompts"`
	ImagePath         *string  `json:"image_path"`
	VideoPath         *string  `json:"video_path"`
	VoiceoverPath     *string  `json:"voiceover_path"`
	Image             *string  `json:"image"`
	Voiceover         *string  `json:"voiceover"`
}

// DecodeScene converts an inbound JSON object into a Scene, rejecting
// records that lack the required content fields.
func DecodeScene(raw json.RawMessage) (Scene, error) {
	var w sceneWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return Scene{}, fmt.Errorf("decode scene: %w", err)
	}
	s := Scene{
		Title:             strings.TrimSpace(w.Title),
		Narration:         w.Narration,
		VisualDescription: w.VisualDescription,
		ImagePrompts:      w.ImagePrompts,
		ImagePath:         firstSet(w.ImagePath, w.Image),
		VideoPath:         firstSet(w.VideoPath),
		VoiceoverPath:     firstSet(w.VoiceoverPath, w.Voiceover),
	}
	if err := s.Validate(); err != nil {
		return Scene{}, err
	}
	return s, nil
}

// Validate checks the fields every stage relies on.
func (s Scene) Validate() error {
	var missing []string
	if s.Title == "" {
		missing = append(missing, "scene")
	}
	if strings.TrimSpace(s.Narration) == "" {
		missing = append(missing, "narration")
	}
	if strings.TrimSpace(s.VisualDescription) == "" {
		missing = append(missing, "visual_cues")
	}
	if len(missing) > 0 {
		return fmt.Errorf("scene %q missing required fields: %s", s.Title, strings.Join(missing, ", "))
	}
	return nil
}

// DecodeStory accepts either {"scenes": [...]} or a bare array of scenes.
func DecodeStory(raw json.RawMessage) (Story, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Story{}, fmt.Errorf("decode story: empty body")
	}

	var items []json.RawMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return Story{}, fmt.Errorf("decode story: %w", err)
		}
	} else {
		var wrapper struct {
			Scenes []json.RawMessage `json:"scenes"`
		}
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return Story{}, fmt.Errorf("decode story: %w", err)
		}
		items = wrapper.Scenes
	}

	story := Story{Scenes: make([]Scene, 0, len(items))}
	for i, item := range items {
		s, err := DecodeScene(item)
		if err != nil {
			return Story{}, fmt.Errorf("scene %d: %w", i, err)
		}
		story.Scenes = append(story.Scenes, s)
	}
	return story, nil
}

// DecodeScenes is DecodeStory for callers that only need the slice.
func DecodeScenes(raw json.RawMessage) ([]Scene, error) {
	story, err := DecodeStory(raw)
	if err != nil {
		return nil, err
	}
	return story.Scenes, nil
}

// UniqueSuffix returns a short random token for file names that must not
// collide with artifacts from earlier runs.
func UniqueSuffix() string {
	return uuid.NewString()[:8]
}

func firstSet(vals ...*string) string {
	for _, v := range vals {
		if v != nil && *v != "" {
			return *v
		}
	}
	return ""
}
