package voiceover

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Synthesizer writes spoken audio for text to outFile
type Synthesizer interface {
	Synthesize(ctx context.Context, text, outFile string) error
}

// CommandSynthesizer shells out to a TTS binary.
// TTS_COMMAND may name a binary or a .py script that accepts:
//
//	--text "..." --output path/to/file.mp3
//
// Without it, edge-tts (free Microsoft TTS) is used if it is on PATH.
type CommandSynthesizer struct {
	command  string
	voice    string
	attempts int
	backoff  time.Duration
	log      *zap.Logger
}

// NewCommandSynthesizer resolves the TTS engine once at startup.
func NewCommandSynthesizer(ttsCommand, voice string, attempts int, log *zap.Logger) (*CommandSynthesizer, error) {
	cmd := strings.TrimSpace(ttsCommand)
	if cmd == "" {
		if _, err := exec.LookPath("edge-tts"); err != nil {
			return nil, fmt.Errorf("no TTS engine found. Set TTS_COMMAND or install edge-tts: pip install edge-tts")
		}
		cmd = "edge-tts"
	}
	if attempts < 1 {
		attempts = 1
	}
	log = log.Named("tts")
	log.Info("TTS engine selected", zap.String("command", cmd), zap.String("voice", voice))
	return &CommandSynthesizer{command: cmd, voice: voice, attempts: attempts, backoff: 2 * time.Second, log: log}, nil
}

func (c *CommandSynthesizer) Synthesize(ctx context.Context, text, outFile string) error {
	var err error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		cmd := c.buildCommand(ctx, text, outFile)
		var out []byte
		out, err = cmd.CombinedOutput()
		if err == nil {
			return nil
		}
		err = fmt.Errorf("%s: %w: %s", c.command, err, strings.TrimSpace(string(out)))
		c.log.Warn("TTS attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		if attempt == c.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * c.backoff):
		}
	}
	return err
}

func (c *CommandSynthesizer) buildCommand(ctx context.Context, text, outFile string) *exec.Cmd {
	name, args := c.args(text, outFile)
	return exec.CommandContext(ctx, name, args...)
}

func (c *CommandSynthesizer) args(text, outFile string) (string, []string) {
	switch {
	case c.command == "edge-tts":
		return "edge-tts", []string{"--voice", c.voice, "--text", text, "--write-media", outFile}
	case strings.HasSuffix(c.command, ".py"):
		return "python3", []string{c.command, "--text", text, "--output", outFile}
	default:
		return c.command, []string{"--text", text, "--output", outFile}
	}
}
