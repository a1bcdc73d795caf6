package story

import (
	"fmt"
	"strings"

	"ai-video-generator/types"
)

const storytellerPrompt = `You are a cinematic storyteller, film director and AI visual prompt designer.

Turn the video summary below into an emotionally immersive storytelling script split into %d-%d animation-ready scenes.
Each scene becomes a voiceover, an AI image, and a short animated clip that are merged into one final video.

Keep the facts, meaning and emotional direction of the summary. You may invent narrative framing,
rhythm and pacing that fit its genre, but never contradict it.

Each scene must have:
- "scene": a short cinematic title (2-5 words)
- "narration": natural, human voiceover text for one moment, about 8-10 seconds when spoken
- "visual_cues": a long cinematic paragraph describing exactly what the camera sees during the narration:
  setting, lighting, characters, motion, camera work and atmosphere
- "prompts": an array with exactly one ultra-detailed image prompt that condenses visual_cues into one line

Build a slow rise, tension, climax and resolution across the scenes. Avoid repeated phrasing.

Return ONLY a JSON array of scene objects. No markdown, no explanation.

Summary to process:
%s`

// BuildPrompt returns the base storyteller prompt for a summary.
func BuildPrompt(summary string, minScenes, maxScenes int) string {
	return fmt.Sprintf(storytellerPrompt, minScenes, maxScenes, summary)
}

// ModificationBlock appends user instructions to the base prompt.
func ModificationBlock(modifications string) string {
	return "\n\nIMPORTANT MODIFICATIONS REQUESTED BY USER:\n" + strings.TrimSpace(modifications) +
		"\n\nPlease incorporate these modifications while maintaining the overall structure and format."
}

// ExistingDigest condenses a previous story so the model can avoid repeating it.
func ExistingDigest(existing types.Story) string {
	var sb strings.Builder
	sb.WriteString("\n\nExisting scenes for reference:\n")
	for _, s := range existing.Scenes {
		sb.WriteString(fmt.Sprintf("- %s: %s...\n", s.Title, truncateRunes(s.Narration, 100)))
	}
	sb.WriteString("\nPlease create a fresh version with improvements.")
	return sb.String()
}

// ScenePrompt asks for a fresh version of one scene of an existing story.
func ScenePrompt(summary string, old types.Scene) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Based on the video summary below, regenerate the scene titled %q.\n\n", old.Title))
	sb.WriteString("Video Summary:\n")
	sb.WriteString(summary)
	sb.WriteString("\n\nCurrent scene that needs improvement:\n")
	sb.WriteString("- Scene: " + old.Title + "\n")
	sb.WriteString("- Narration: " + old.Narration + "\n")
	sb.WriteString("- Visual Cues: " + old.VisualDescription + "\n\n")
	sb.WriteString("Provide a FRESH and IMPROVED version of this scene with a compelling narration, detailed visual cues and AI-ready image prompts.\n")
	sb.WriteString(`Return ONLY a JSON object: {"scene": "...", "narration": "...", "visual_cues": "...", "prompts": ["..."]}`)
	return sb.String()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
