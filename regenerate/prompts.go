package regenerate

import (
	"fmt"
	"strings"

	"ai-video-generator/types"
)

func mergeScenePrompt(scene types.Scene, userInput, summary string) string {
	var sb strings.Builder
	sb.WriteString("You are editing one scene of an animated story video.\n\n")
	if strings.TrimSpace(summary) != "" {
		sb.WriteString("Video Summary:\n" + summary + "\n\n")
	}
	sb.WriteString("Current scene:\n")
	sb.WriteString("- Scene: " + scene.Title + "\n")
	sb.WriteString("- Narration: " + scene.Narration + "\n")
	sb.WriteString("- Visual Cues: " + scene.VisualDescription + "\n")
	sb.WriteString("- Prompts: " + strings.Join(scene.ImagePrompts, " | ") + "\n\n")
	sb.WriteString("Changes requested by the user:\n" + strings.TrimSpace(userInput) + "\n\n")
	sb.WriteString("MERGE the requested changes into the current scene. Keep everything the user did not ask to change, ")
	sb.WriteString("including the tone and length of the narration. Do not write a new scene from scratch.\n")
	sb.WriteString(`Return ONLY a JSON object: {"scene": "...", "narration": "...", "visual_cues": "...", "prompts": ["..."]}`)
	return sb.String()
}

func mergeImagePromptPrompt(current, userInput string) string {
	return fmt.Sprintf(`You refine prompts for an AI image generator.

Current image prompt:
%s

Changes requested by the user:
%s

Rewrite the prompt so it includes the requested changes while keeping the rest of the composition, style and detail.
Return ONLY the new prompt as a single line of plain text, without quotes or explanation.`, current, strings.TrimSpace(userInput))
}

// cleanPlainText strips wrapping quotes and fences from a one-line model answer.
func cleanPlainText(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	return strings.Join(strings.Fields(s), " ")
}
