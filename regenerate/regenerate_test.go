package regenerate

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	story "ai-video-generator/02_story"
	"ai-video-generator/apperrors"
	"ai-video-generator/config"
	"ai-video-generator/llm"
	"ai-video-generator/llm/llmtest"
	"ai-video-generator/types"

	"go.uber.org/zap/zaptest"
)

func fiveScenes() types.Story {
	var s types.Story
	for i := 0; i < 5; i++ {
		s.Scenes = append(s.Scenes, types.Scene{
			Title:             fmt.Sprintf("Scene %d", i),
			Narration:         fmt.Sprintf("narration %d", i),
			VisualDescription: fmt.Sprintf("visual %d", i),
			ImagePrompts:      []string{fmt.Sprintf("prompt %d", i)},
			ImagePath:         fmt.Sprintf("img/%d.png", i),
		})
	}
	return s
}

func sceneJSON(title string) string {
	return fmt.Sprintf(`{"scene":%q,"narration":"new narration","visual_cues":"new visual","prompts":["new prompt"]}`, title)
}

// fakeSingle appends a marker to the path field it owns.
type fakeSingle struct {
	mu      sync.Mutex
	fail    map[string]bool
	prompts []string
}

func (f *fakeSingle) Single(ctx context.Context, scene types.Scene, outputDir string) (types.Scene, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[scene.Title] {
		return types.Scene{}, errors.New("service down")
	}
	p, _ := scene.FirstPrompt()
	f.prompts = append(f.prompts, p)
	out := scene.Clone()
	out.ImagePath = filepath.Join(outputDir, scene.FileKey()+"_new.png")
	out.VideoPath = filepath.Join(outputDir, scene.FileKey()+"_new.mp4")
	return out, nil
}

func newRegenerator(t *testing.T, model *llmtest.Model, single *fakeSingle) *Regenerator {
	gen := story.New(model, config.Default().Story, zaptest.NewLogger(t))
	return New(Stages{Story: gen, Images: single, Videos: single, Voiceovers: single}, model, 2, zaptest.NewLogger(t))
}

func TestScenesLeavesOthersUntouched(t *testing.T) {
	model := &llmtest.Model{Responses: []string{sceneJSON("Fresh Zero"), sceneJSON("Fresh Two")}}
	r := newRegenerator(t, model, &fakeSingle{})

	in := fiveScenes()
	before := in.Clone()
	res, err := r.Scenes(context.Background(), in, []int{0, 2, 7, -1}, "summary text")
	if err != nil {
		t.Fatalf("Scenes: %v", err)
	}

	if !reflect.DeepEqual(in, before) {
		t.Fatal("input story was mutated")
	}
	for _, i := range []int{1, 3, 4} {
		if !reflect.DeepEqual(res.Story.Scenes[i], before.Scenes[i]) {
			t.Errorf("scene %d changed: %+v", i, res.Story.Scenes[i])
		}
	}
	if res.Story.Scenes[0].Title != "Fresh Zero" || res.Story.Scenes[2].Title != "Fresh Two" {
		t.Fatalf("scenes not replaced: %v", res.Story.Titles())
	}
	if !reflect.DeepEqual(res.Regenerated, []int{0, 2}) {
		t.Fatalf("regenerated = %v", res.Regenerated)
	}
	if len(res.Skipped) != 2 || res.Skipped[0].Index != 7 || res.Skipped[1].Index != -1 {
		t.Fatalf("skipped = %+v", res.Skipped)
	}

	req := model.Requests[0]
	if req.Temperature != 1.3 || !strings.Contains(req.Prompt, `regenerate the scene titled "Scene 0"`) || req.Schema == nil {
		t.Fatalf("request = %+v", req)
	}
}

func TestScenesModelErrorIsFatal(t *testing.T) {
	model := &llmtest.Model{Responses: []string{"not json"}}
	r := newRegenerator(t, model, &fakeSingle{})

	in := fiveScenes()
	before := in.Clone()
	if _, err := r.Scenes(context.Background(), in, []int{1}, "s"); !apperrors.IsFatalStage(err) {
		t.Fatalf("err = %v", err)
	}
	if !reflect.DeepEqual(in, before) {
		t.Fatal("input mutated on failure")
	}
}

func TestStoryPromptVariants(t *testing.T) {
	full := `[` + strings.Join([]string{sceneJSON("A"), sceneJSON("B"), sceneJSON("C"), sceneJSON("D"), sceneJSON("E")}, ",") + `]`
	existing := fiveScenes()

	cases := []struct {
		name     string
		mods     string
		existing *types.Story
		want     string
		notWant  string
	}{
		{"modifications", "make it darker", &existing, "IMPORTANT MODIFICATIONS REQUESTED BY USER:\nmake it darker", "Existing scenes for reference"},
		{"existing", "", &existing, "- Scene 0: narration 0...", "IMPORTANT MODIFICATIONS"},
		{"plain", "  ", nil, "Summary to process:\nthe summary", "Existing scenes"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			model := &llmtest.Model{Responses: []string{full}}
			r := newRegenerator(t, model, &fakeSingle{})
			got, err := r.Story(context.Background(), "the summary", c.mods, c.existing)
			if err != nil {
				t.Fatal(err)
			}
			if len(got.Scenes) != 5 {
				t.Fatalf("scenes = %d", len(got.Scenes))
			}
			p := model.Requests[0].Prompt
			if !strings.Contains(p, c.want) || strings.Contains(p, c.notWant) {
				t.Fatalf("prompt tail: %s", p[max(0, len(p)-300):])
			}
			if model.Requests[0].Temperature != 1.2 {
				t.Fatalf("temperature = %v", model.Requests[0].Temperature)
			}
		})
	}
}

func TestMergeSceneFailSoft(t *testing.T) {
	orig := fiveScenes().Scenes[1]

	model := &llmtest.Model{Err: errors.New("model unavailable")}
	r := newRegenerator(t, model, &fakeSingle{})
	if got := r.MergeScene(context.Background(), orig, "make it rain", ""); !reflect.DeepEqual(got, orig) {
		t.Fatalf("got %+v, want original", got)
	}

	model = &llmtest.Model{Responses: []string{`{"scene":"Half"`}}
	r = newRegenerator(t, model, &fakeSingle{})
	if got := r.MergeScene(context.Background(), orig, "make it rain", ""); !reflect.DeepEqual(got, orig) {
		t.Fatalf("malformed output should keep original, got %+v", got)
	}
}

func TestMergeSceneEmptyInputIsNoop(t *testing.T) {
	model := &llmtest.Model{}
	r := newRegenerator(t, model, &fakeSingle{})
	orig := fiveScenes().Scenes[0]

	once := r.MergeScene(context.Background(), orig, "", "")
	twice := r.MergeScene(context.Background(), once, "   ", "")
	if !reflect.DeepEqual(twice, orig) || model.Calls() != 0 {
		t.Fatalf("got %+v after %d calls", twice, model.Calls())
	}
}

func TestMergeSceneKeepsArtifacts(t *testing.T) {
	model := &llmtest.Model{Responses: []string{sceneJSON("Rainy Street")}}
	r := newRegenerator(t, model, &fakeSingle{})
	orig := fiveScenes().Scenes[3]

	got := r.MergeScene(context.Background(), orig, "make it rain", "a robot story")
	if got.Title != "Rainy Street" || got.ImagePath != orig.ImagePath {
		t.Fatalf("got %+v", got)
	}
	if p := model.Requests[0].Prompt; !strings.Contains(p, "make it rain") || !strings.Contains(p, "MERGE") || !strings.Contains(p, "a robot story") {
		t.Fatalf("prompt = %s", p)
	}
}

func TestMergeImagePrompt(t *testing.T) {
	model := &llmtest.Model{Responses: []string{"\"prompt 0, at night in heavy rain\"\n"}}
	single := &fakeSingle{}
	r := newRegenerator(t, model, single)
	orig := fiveScenes().Scenes[0]

	got, err := r.MergeImagePrompt(context.Background(), orig, "make it night and rainy", "out")
	if err != nil {
		t.Fatal(err)
	}
	if got.ImagePrompts[0] != "prompt 0, at night in heavy rain" || orig.ImagePrompts[0] != "prompt 0" {
		t.Fatalf("prompts = %v (orig %v)", got.ImagePrompts, orig.ImagePrompts)
	}
	if single.prompts[0] != "prompt 0, at night in heavy rain" || got.ImagePath != filepath.Join("out", "Scene_0_new.png") {
		t.Fatalf("image not rendered from merged prompt: %v %s", single.prompts, got.ImagePath)
	}
	if model.Requests[0].Schema != nil {
		t.Fatal("image prompt merge should ask for plain text")
	}
}

func TestMergeImagePromptEmptyInputIsIdempotent(t *testing.T) {
	model := &llmtest.Model{}
	r := newRegenerator(t, model, &fakeSingle{})
	orig := fiveScenes().Scenes[2]

	first, err := r.MergeImagePrompt(context.Background(), orig, "", "out")
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.MergeImagePrompt(context.Background(), first, "", "out")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(second.ImagePrompts, orig.ImagePrompts) || model.Calls() != 0 {
		t.Fatalf("prompts grew: %v", second.ImagePrompts)
	}
}

func TestMergeImagePromptModelError(t *testing.T) {
	model := &llmtest.Model{Func: func(llm.Request) (string, error) { return "  ", nil }}
	r := newRegenerator(t, model, &fakeSingle{})
	if _, err := r.MergeImagePrompt(context.Background(), fiveScenes().Scenes[0], "x", "out"); !apperrors.IsFatalStage(err) {
		t.Fatalf("err = %v", err)
	}
}

func TestBatchImages(t *testing.T) {
	single := &fakeSingle{fail: map[string]bool{"Scene 3": true}}
	r := newRegenerator(t, &llmtest.Model{}, single)
	in := fiveScenes()

	res, err := r.Images(context.Background(), in, []int{1, 3, 9, 1}, "out")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.Regenerated, []int{1}) {
		t.Fatalf("regenerated = %v", res.Regenerated)
	}
	if len(res.Failed) != 1 || res.Failed[0].Index != 3 || len(res.Skipped) != 1 || res.Skipped[0].Index != 9 {
		t.Fatalf("failed = %+v skipped = %+v", res.Failed, res.Skipped)
	}
	if res.Story.Scenes[1].ImagePath != filepath.Join("out", "Scene_1_new.png") || res.Story.Scenes[3].ImagePath != "img/3.png" {
		t.Fatalf("scenes = %+v", res.Story.Scenes)
	}
	if in.Scenes[1].ImagePath != "img/1.png" {
		t.Fatal("input mutated")
	}

	if _, err := r.Videos(context.Background(), in, []int{3}, "out"); !apperrors.IsFatalStage(err) {
		t.Fatalf("all-failed batch err = %v", err)
	}
}

func TestUpdateScene(t *testing.T) {
	in := fiveScenes()
	edited := types.Scene{Title: "Edited", Narration: "n", VisualDescription: "v", ImagePrompts: []string{"p"}}

	out, err := UpdateScene(in, 4, edited)
	if err != nil {
		t.Fatal(err)
	}
	if out.Scenes[4].Title != "Edited" || in.Scenes[4].Title != "Scene 4" {
		t.Fatalf("out = %v in = %v", out.Titles(), in.Titles())
	}

	for _, idx := range []int{-1, 5} {
		if _, err := UpdateScene(in, idx, edited); !apperrors.IsValidation(err) {
			t.Errorf("index %d: err = %v", idx, err)
		}
	}
	if _, err := UpdateScene(in, 0, types.Scene{Title: "x"}); !apperrors.IsValidation(err) {
		t.Errorf("invalid scene accepted: %v", err)
	}
}
