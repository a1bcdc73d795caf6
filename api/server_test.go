package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	story "ai-video-generator/02_story"
	assemble "ai-video-generator/06_assemble"
	"ai-video-generator/apperrors"
	"ai-video-generator/config"
	"ai-video-generator/llm/llmtest"
	"ai-video-generator/pipeline"
	"ai-video-generator/regenerate"
	"ai-video-generator/store"
	"ai-video-generator/types"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"
)

type fakeSummarizer struct{ result types.SummaryResult }

func (f fakeSummarizer) Run(ctx context.Context, videoID string) types.SummaryResult { return f.result }

type fakeStory struct{ story types.Story }

func (f fakeStory) Run(ctx context.Context, summary string) (types.Story, error) { return f.story, nil }

// fakeStage marks every scene's image path under outputDir.
type fakeStage struct {
	gotDir string
	err    error
}

func (f *fakeStage) Run(ctx context.Context, scenes []types.Scene, outputDir string) ([]types.Scene, error) {
	f.gotDir = outputDir
	if f.err != nil {
		return nil, f.err
	}
	out := types.Story{Scenes: scenes}.Clone().Scenes
	for i := range out {
		out[i].ImagePath = filepath.Join(outputDir, out[i].FileKey()+".png")
		out[i].VideoPath = filepath.Join(outputDir, out[i].FileKey()+".mp4")
		out[i].VoiceoverPath = filepath.Join(outputDir, out[i].FileKey()+".mp3")
	}
	return out, nil
}

func (f *fakeStage) Single(ctx context.Context, scene types.Scene, outputDir string) (types.Scene, error) {
	f.gotDir = outputDir
	out := scene.Clone()
	out.ImagePath = filepath.Join(outputDir, scene.FileKey()+"_x.png")
	return out, nil
}

type fakeAssembler struct{ output, music string }

func (f *fakeAssembler) Run(ctx context.Context, scenes []types.Scene, outputFile, musicPath string) (*assemble.Result, error) {
	f.output, f.music = outputFile, musicPath
	return &assemble.Result{Path: outputFile, Segments: make([]assemble.Segment, len(scenes))}, nil
}

type testServer struct {
	srv       *Server
	stage     *fakeStage
	assembler *fakeAssembler
	model     *llmtest.Model
	store     store.Store
	hub       *Hub
}

func twoScenes() types.Story {
	return types.Story{Scenes: []types.Scene{
		{Title: "Awakening", Narration: "A robot wakes.", VisualDescription: "lab", ImagePrompts: []string{"robot in lab"}},
		{Title: "First Act", Narration: "It helps.", VisualDescription: "street", ImagePrompts: []string{"robot on street"}},
	}}
}

func newTestServer(t *testing.T, summary types.SummaryResult) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zaptest.NewLogger(t)

	cfg := config.Default()
	cfg.Paths.Images = "out"
	cfg.Paths.Output = "final"
	cfg.Assemble.MusicPath = "music/bg.mp3"

	st, err := store.NewFileStore(t.TempDir(), log)
	if err != nil {
		t.Fatal(err)
	}
	ts := &testServer{stage: &fakeStage{}, assembler: &fakeAssembler{}, model: &llmtest.Model{}, store: st}
	ts.hub = NewHub(nil, log)

	stages := pipeline.Stages{
		Summarizer: fakeSummarizer{summary},
		Story:      fakeStory{twoScenes()},
		Images:     ts.stage,
		Videos:     ts.stage,
		Voiceovers: ts.stage,
		Assembler:  ts.assembler,
	}
	p := pipeline.New(stages, cfg, st, log)
	p.SetNotifier(ts.hub)

	gen := story.New(ts.model, cfg.Story, log)
	regen := regenerate.New(regenerate.Stages{Story: gen, Images: ts.stage, Videos: ts.stage, Voiceovers: ts.stage}, ts.model, 2, log)

	ts.srv = NewServer(Services{
		Summarizer:  stages.Summarizer,
		Story:       stages.Story,
		Images:      ts.stage,
		Videos:      ts.stage,
		Voiceovers:  ts.stage,
		Assembler:   ts.assembler,
		Pipeline:    p,
		Regenerator: regen,
		Store:       st,
	}, ts.hub, cfg, log)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) (int, Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(w, req)

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	if resp.StatusCode != w.Code {
		t.Fatalf("envelope status %d != http status %d", resp.StatusCode, w.Code)
	}
	return w.Code, resp
}

// data re-decodes the envelope payload into v.
func data(t *testing.T, resp Response, v any) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func storyJSON(s types.Story) json.RawMessage {
	raw, _ := json.Marshal(s.Scenes)
	return raw
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperrors.NewUnavailable(types.MsgNoTranscript), http.StatusNotFound},
		{apperrors.NewNotFound("run x not found"), http.StatusNotFound},
		{apperrors.NewValidation("bad", nil), http.StatusBadRequest},
		{apperrors.NewFatalStage("no videos generated", nil), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", apperrors.NewValidation("bad", nil)), http.StatusBadRequest},
	}
	for _, c := range cases {
		if got := statusFor(c.err); got != c.want {
			t.Errorf("statusFor(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestTranscript(t *testing.T) {
	ts := newTestServer(t, types.SummaryOf("A robot learns kindness."))
	code, resp := ts.do(t, http.MethodPost, "/api/v1/transcript", transcriptRequest{VideoID: "abc"})
	if code != http.StatusOK || !resp.Success {
		t.Fatalf("code = %d resp = %+v", code, resp)
	}
	var got types.SummaryResult
	data(t, resp, &got)
	if got.Summary != "A robot learns kindness." {
		t.Fatalf("summary = %q", got.Summary)
	}

	code, _ = ts.do(t, http.MethodPost, "/api/v1/transcript", `{}`)
	if code != http.StatusBadRequest {
		t.Fatalf("missing videoId: code = %d", code)
	}
}

func TestTranscriptUnavailable(t *testing.T) {
	ts := newTestServer(t, types.NoTranscript())
	code, resp := ts.do(t, http.MethodPost, "/api/v1/transcript", transcriptRequest{VideoID: "abc"})
	if code != http.StatusNotFound || resp.Success || resp.Message != types.MsgNoTranscript {
		t.Fatalf("code = %d resp = %+v", code, resp)
	}
}

func TestImagesStage(t *testing.T) {
	ts := newTestServer(t, types.SummaryOf("s"))

	code, resp := ts.do(t, http.MethodPost, "/api/v1/images", scenesRequest{StoryData: storyJSON(twoScenes())})
	if code != http.StatusOK {
		t.Fatalf("code = %d resp = %+v", code, resp)
	}
	var scenes []types.Scene
	data(t, resp, &scenes)
	if len(scenes) != 2 || scenes[0].ImagePath != filepath.Join("out", "Awakening.png") {
		t.Fatalf("scenes = %+v", scenes)
	}

	code, _ = ts.do(t, http.MethodPost, "/api/v1/images", scenesRequest{StoryData: storyJSON(twoScenes()), OutputDir: "../etc"})
	if code != http.StatusBadRequest {
		t.Fatalf("escaping output_dir: code = %d", code)
	}

	code, _ = ts.do(t, http.MethodPost, "/api/v1/images", `{"story_data":[{"scene":"x"}]}`)
	if code != http.StatusBadRequest {
		t.Fatalf("invalid scene: code = %d", code)
	}
}

func TestStageFatalIs500(t *testing.T) {
	ts := newTestServer(t, types.SummaryOf("s"))
	ts.stage.err = apperrors.NewFatalStage("no images generated", nil)

	code, resp := ts.do(t, http.MethodPost, "/api/v1/images", scenesRequest{StoryData: storyJSON(twoScenes())})
	if code != http.StatusInternalServerError || !strings.Contains(resp.Message, "no images generated") {
		t.Fatalf("code = %d resp = %+v", code, resp)
	}
}

func TestAssembleDefaults(t *testing.T) {
	ts := newTestServer(t, types.SummaryOf("s"))
	code, _ := ts.do(t, http.MethodPost, "/api/v1/assemble", assembleRequest{Scenes: storyJSON(twoScenes()), OutputFile: "robot.mp4"})
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	if ts.assembler.output != filepath.Join("final", "robot.mp4") || ts.assembler.music != "music/bg.mp3" {
		t.Fatalf("output = %q music = %q", ts.assembler.output, ts.assembler.music)
	}

	code, _ = ts.do(t, http.MethodPost, "/api/v1/assemble", assembleRequest{Scenes: storyJSON(twoScenes()), OutputFile: "../x.mp4"})
	if code != http.StatusBadRequest {
		t.Fatalf("path in output_file: code = %d", code)
	}
}

func TestPipelineAndRunLookup(t *testing.T) {
	ts := newTestServer(t, types.SummaryOf("A robot learns kindness."))

	code, resp := ts.do(t, http.MethodPost, "/api/v1/pipeline", pipelineRequest{VideoID: "vid123", OutputName: "robot.mp4"})
	if code != http.StatusOK {
		t.Fatalf("code = %d resp = %+v", code, resp)
	}
	var state types.PipelineState
	data(t, resp, &state)
	if state.Stage != types.StageDone || state.FinalVideo != filepath.Join("final", "robot.mp4") {
		t.Fatalf("state = %+v", state)
	}

	code, resp = ts.do(t, http.MethodGet, "/api/v1/runs/"+state.RunID, nil)
	if code != http.StatusOK {
		t.Fatalf("lookup code = %d", code)
	}
	var saved types.PipelineState
	data(t, resp, &saved)
	if saved.RunID != state.RunID || saved.Stage != types.StageDone {
		t.Fatalf("saved = %+v", saved)
	}

	if code, _ = ts.do(t, http.MethodGet, "/api/v1/runs/missing", nil); code != http.StatusNotFound {
		t.Fatalf("missing run: code = %d", code)
	}
}

func TestPipelineSummaryFailure(t *testing.T) {
	ts := newTestServer(t, types.VideoUnavailable())
	code, resp := ts.do(t, http.MethodPost, "/api/v1/pipeline", pipelineRequest{VideoID: "gone"})
	if code != http.StatusNotFound || !strings.Contains(resp.Message, types.MsgVideoUnavailable) {
		t.Fatalf("code = %d resp = %+v", code, resp)
	}
	var state types.PipelineState
	data(t, resp, &state)
	if state.Stage != types.StageFailed {
		t.Fatalf("state = %+v", state)
	}
}

func TestRegenerateScenes(t *testing.T) {
	ts := newTestServer(t, types.SummaryOf("s"))
	ts.model.Responses = []string{`{"scene":"Fresh","narration":"n","visual_cues":"v","prompts":["p"]}`}

	code, resp := ts.do(t, http.MethodPost, "/api/v1/regenerate/scenes", regenerateScenesRequest{
		SceneIndices:  []int{1, 5},
		ExistingStory: storyJSON(twoScenes()),
		Summary:       "s",
	})
	if code != http.StatusOK {
		t.Fatalf("code = %d resp = %+v", code, resp)
	}
	var res regenerate.ScenesResult
	data(t, resp, &res)
	if res.Story.Scenes[0].Title != "Awakening" || res.Story.Scenes[1].Title != "Fresh" {
		t.Fatalf("titles = %v", res.Story.Titles())
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Index != 5 {
		t.Fatalf("skipped = %+v", res.Skipped)
	}
}

func TestRegenerateImagesDefaultsToAllScenes(t *testing.T) {
	ts := newTestServer(t, types.SummaryOf("s"))
	code, resp := ts.do(t, http.MethodPost, "/api/v1/regenerate/images", batchRequest{StoryData: storyJSON(twoScenes()), OutputDir: "redo"})
	if code != http.StatusOK {
		t.Fatalf("code = %d resp = %+v", code, resp)
	}
	var res regenerate.ScenesResult
	data(t, resp, &res)
	if len(res.Regenerated) != 2 || ts.stage.gotDir != "redo" {
		t.Fatalf("regenerated = %v dir = %q", res.Regenerated, ts.stage.gotDir)
	}
}

func TestUpdateSceneValidation(t *testing.T) {
	ts := newTestServer(t, types.SummaryOf("s"))
	edited := json.RawMessage(`{"scene":"Edited","narration":"n","visual_cues":"v","prompts":["p"]}`)

	idx := 1
	code, resp := ts.do(t, http.MethodPut, "/api/v1/regenerate/scene", updateSceneRequest{StoryData: storyJSON(twoScenes()), SceneIndex: &idx, UpdatedScene: edited})
	if code != http.StatusOK {
		t.Fatalf("code = %d resp = %+v", code, resp)
	}
	var got types.Story
	data(t, resp, &got)
	if got.Scenes[1].Title != "Edited" {
		t.Fatalf("titles = %v", got.Titles())
	}

	idx = 2
	code, resp = ts.do(t, http.MethodPut, "/api/v1/regenerate/scene", updateSceneRequest{StoryData: storyJSON(twoScenes()), SceneIndex: &idx, UpdatedScene: edited})
	if code != http.StatusBadRequest || !strings.Contains(resp.Message, "Must be between 0 and 1") {
		t.Fatalf("code = %d resp = %+v", code, resp)
	}

	code, _ = ts.do(t, http.MethodPut, "/api/v1/regenerate/scene", updateSceneRequest{StoryData: storyJSON(twoScenes()), UpdatedScene: edited})
	if code != http.StatusBadRequest {
		t.Fatalf("missing index: code = %d", code)
	}
}

func TestModifySceneFailSoft(t *testing.T) {
	ts := newTestServer(t, types.SummaryOf("s"))
	ts.model.Err = errors.New("model down")

	scene, _ := json.Marshal(twoScenes().Scenes[0])
	code, resp := ts.do(t, http.MethodPost, "/api/v1/modify/scene", modifyRequest{SceneData: scene, UserInput: "make it rain"})
	if code != http.StatusOK {
		t.Fatalf("code = %d resp = %+v", code, resp)
	}
	var got types.Scene
	data(t, resp, &got)
	if got.Title != "Awakening" || got.Narration != "A robot wakes." {
		t.Fatalf("scene = %+v", got)
	}
}

func TestHubDeliversRunEvents(t *testing.T) {
	ts := newTestServer(t, types.SummaryOf("s"))
	httpSrv := httptest.NewServer(ts.srv.Handler())
	defer httpSrv.Close()

	url := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/api/v1/ws?run_id=run-1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for ts.hub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	ts.hub.Notify(types.ProgressEvent{RunID: "other", Stage: types.StageImages})
	ts.hub.Notify(types.ProgressEvent{RunID: "run-1", Stage: types.StageVideos, Count: 3})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event types.ProgressEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read: %v", err)
	}
	if event.RunID != "run-1" || event.Stage != types.StageVideos || event.Count != 3 {
		t.Fatalf("event = %+v", event)
	}
}
