package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ai-video-generator/config"
	"ai-video-generator/llm"
	"ai-video-generator/types"

	"go.uber.org/zap"
)

const summaryInstructions = `You are an expert summarizer and narrative enhancer. You receive a video transcript one chunk at a time.
Produce a structured, enriched summary that keeps every fact, name and event in its original order,
while letting the storytelling flow match the natural genre of the content (documentary, horror, romance, sci-fi, and so on).

Rules:
- Merge the previous summary with the current chunk into one updated summary.
- Keep chronological and logical order. Do not repeat sentences unless continuity needs it.
- Do not invent events or change the genre. Make it vivid but faithful, it will become a cinematic script.
- Plain prose only. No Markdown, no headings.`

// Summarizer folds a transcript through the text model into one running summary
type Summarizer struct {
	source      TranscriptSource
	model       llm.TextModel
	splitter    Splitter
	temperature float64
	log         *zap.Logger
}

// New creates a Summarizer
func New(source TranscriptSource, model llm.TextModel, cfg config.SummarizeConfig, log *zap.Logger) *Summarizer {
	return &Summarizer{
		source:      source,
		model:       model,
		splitter:    NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		temperature: cfg.Temperature,
		log:         log.Named("summarize"),
	}
}

// Run never returns an error: every failure is folded into the result's status.
func (s *Summarizer) Run(ctx context.Context, videoID string) types.SummaryResult {
	s.log.Info("fetching transcript", zap.String("video_id", videoID))

	transcript, err := s.source.Fetch(ctx, videoID)
	if err != nil {
		if errors.Is(err, ErrTranscriptDisabled) {
			s.log.Warn("no transcript", zap.String("video_id", videoID), zap.Error(err))
			return types.NoTranscript()
		}
		s.log.Warn("video unavailable", zap.String("video_id", videoID), zap.Error(err))
		return types.VideoUnavailable()
	}
	if strings.TrimSpace(transcript) == "" {
		return types.NoTranscript()
	}

	summary, err := s.Summarize(ctx, transcript)
	if err != nil {
		s.log.Error("summarization failed", zap.String("video_id", videoID), zap.Error(err))
		return types.VideoUnavailable()
	}
	return types.SummaryOf(summary)
}

// Summarize folds each chunk into the running summary; the last fold is the result.
func (s *Summarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	chunks := s.splitter.Split(transcript)
	if len(chunks) == 0 {
		return "", fmt.Errorf("transcript is empty")
	}

	running := ""
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		out, err := s.model.Generate(ctx, llm.Request{
			Prompt:      buildSummaryPrompt(chunk, running),
			Temperature: s.temperature,
		})
		if err != nil {
			return "", fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		running = strings.TrimSpace(out)
		s.log.Debug("chunk folded", zap.Int("chunk", i+1), zap.Int("of", len(chunks)), zap.Int("summary_chars", len(running)))
	}
	s.log.Info("summary ready", zap.Int("chunks", len(chunks)), zap.Int("chars", len(running)))
	return running, nil
}

func buildSummaryPrompt(chunk, previous string) string {
	var sb strings.Builder
	sb.WriteString(summaryInstructions)
	sb.WriteString("\n\nPrevious Summary:\n")
	sb.WriteString(previous)
	sb.WriteString("\n\nCurrent Transcript Chunk:\n")
	sb.WriteString(chunk)
	sb.WriteString("\n\nUpdated, context-aware comprehensive summary:\n")
	return sb.String()
}
