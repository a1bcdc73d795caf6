package voiceover

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"ai-video-generator/apperrors"
	"ai-video-generator/types"

	"go.uber.org/zap/zaptest"
)

type fakeTTS struct {
	fail map[string]bool
}

func (f fakeTTS) Synthesize(ctx context.Context, text, outFile string) error {
	if f.fail[text] {
		return errors.New("tts crashed")
	}
	return os.WriteFile(outFile, []byte("ID3"+text), 0644)
}

func scene(title, narration string) types.Scene {
	return types.Scene{Title: title, Narration: narration, VisualDescription: "v", ImagePrompts: []string{"p"}}
}

func TestRunWritesOneFilePerScene(t *testing.T) {
	dir := t.TempDir()
	g := New(fakeTTS{}, 2, zaptest.NewLogger(t))

	out, err := g.Run(context.Background(), []types.Scene{scene("Awakening", "a"), scene("Awakening", "b")}, dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out[0].VoiceoverPath != filepath.Join(dir, "1_Awakening.mp3") || out[1].VoiceoverPath != filepath.Join(dir, "2_Awakening.mp3") {
		t.Fatalf("paths = %q, %q", out[0].VoiceoverPath, out[1].VoiceoverPath)
	}
	data, _ := os.ReadFile(out[1].VoiceoverPath)
	if string(data) != "ID3b" {
		t.Fatalf("scene 2 audio = %q", data)
	}
}

func TestRunSoftAndFatalFailures(t *testing.T) {
	g := New(fakeTTS{fail: map[string]bool{"bad": true}}, 1, zaptest.NewLogger(t))

	out, err := g.Run(context.Background(), []types.Scene{scene("A", "bad"), scene("B", "good"), scene("C", " ")}, t.TempDir())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out[0].VoiceoverPath != "" || out[1].VoiceoverPath == "" || out[2].VoiceoverPath != "" {
		t.Fatalf("unexpected paths: %+v", out)
	}

	_, err = g.Run(context.Background(), []types.Scene{scene("A", "bad")}, t.TempDir())
	if !apperrors.IsFatalStage(err) {
		t.Fatalf("err = %v", err)
	}
}

func TestSingleAddsSuffix(t *testing.T) {
	g := New(fakeTTS{}, 1, zaptest.NewLogger(t))
	s, err := g.Single(context.Background(), scene("Final Act", "x"), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	base := filepath.Base(s.VoiceoverPath)
	if !strings.HasPrefix(base, "Final_Act_") || len(base) != len("Final_Act_")+8+len(".mp3") {
		t.Fatalf("name = %q", base)
	}
}

func TestCommandArgs(t *testing.T) {
	cases := []struct {
		command  string
		wantName string
		wantArgs []string
	}{
		{"edge-tts", "edge-tts", []string{"--voice", "en-US-GuyNeural", "--text", "hi", "--write-media", "o.mp3"}},
		{"tts.py", "python3", []string{"tts.py", "--text", "hi", "--output", "o.mp3"}},
		{"/usr/bin/say-it", "/usr/bin/say-it", []string{"--text", "hi", "--output", "o.mp3"}},
	}
	for _, c := range cases {
		s := &CommandSynthesizer{command: c.command, voice: "en-US-GuyNeural"}
		name, args := s.args("hi", "o.mp3")
		if name != c.wantName || !reflect.DeepEqual(args, c.wantArgs) {
			t.Errorf("%s: got %s %v", c.command, name, args)
		}
	}
}

func TestCommandSynthesizerRetries(t *testing.T) {
	if _, err := os.Stat("/bin/false"); err != nil {
		t.Skip("/bin/false not available")
	}
	s, err := NewCommandSynthesizer("/bin/false", "v", 2, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	s.backoff = 0
	if err := s.Synthesize(context.Background(), "hello", filepath.Join(t.TempDir(), "o.mp3")); err == nil {
		t.Fatal("expected failure from /bin/false")
	}
}
