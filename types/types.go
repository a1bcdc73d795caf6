package types

import "strings"

// Scene is one narrative beat of a story and the unit of work for every stage
type Scene struct {
	Title             string   `json:"scene"`
	Narration         string   `json:"narration"`
	VisualDescription string   `json:"visual_cues"`
	ImagePrompts      []string `json:"prompts"`
	ImagePath         string   `json:"image_path,omitempty"`
	VideoPath         string   `json:"video_path,omitempty"`
	VoiceoverPath     string   `json:"voiceover_path,omitempty"`
}

// FileKey returns the title in a form usable inside file names.
func (s Scene) FileKey() string {
	key := strings.ReplaceAll(s.Title, " ", "_")
	key = strings.NewReplacer(":", "", "/", "", "\\", "").Replace(key)
	if key == "" {
		return "scene"
	}
	return key
}

// Clone returns a copy that shares no slices with s.
func (s Scene) Clone() Scene {
	c := s
	if s.ImagePrompts != nil {
		c.ImagePrompts = append([]string(nil), s.ImagePrompts...)
	}
	return c
}

// FirstPrompt returns the first non-blank image prompt.
func (s Scene) FirstPrompt() (string, bool) {
	for _, p := range s.ImagePrompts {
		if strings.TrimSpace(p) != "" {
			return p, true
		}
	}
	return "", false
}

// Story is the ordered list of scenes produced by the story generator
type Story struct {
	Scenes []Scene `json:"scenes"`
}

// Clone deep-copies the story so callers can splice scenes without aliasing.
func (s Story) Clone() Story {
	out := Story{Scenes: make([]Scene, len(s.Scenes))}
	for i, sc := range s.Scenes {
		out.Scenes[i] = sc.Clone()
	}
	return out
}

// Titles lists scene titles in order.
func (s Story) Titles() []string {
	titles := make([]string, len(s.Scenes))
	for i, sc := range s.Scenes {
		titles[i] = sc.Title
	}
	return titles
}

// SummaryStatus classifies the outcome of a summarization
type SummaryStatus string

const (
	SummaryOK           SummaryStatus = "ok"
	SummaryNoTranscript SummaryStatus = "no_transcript"
	SummaryUnavailable  SummaryStatus = "unavailable"
)

const (
	MsgNoTranscript     = "NO CONTENT FOUND OR NO TRANSCRIPT FOUND"
	MsgVideoUnavailable = "Video is Not Available"
)

// SummaryResult is either a summary or a typed reason why none could be made.
// Callers must check Success before using Summary.
type SummaryResult struct {
	Success bool          `json:"success"`
	Summary string        `json:"summary,omitempty"`
	Message string        `json:"message,omitempty"`
	Status  SummaryStatus `json:"status"`
}

func SummaryOf(text string) SummaryResult {
	return SummaryResult{Success: true, Summary: text, Status: SummaryOK}
}

func NoTranscript() SummaryResult {
	return SummaryResult{Success: false, Message: MsgNoTranscript, Status: SummaryNoTranscript}
}

func VideoUnavailable() SummaryResult {
	return SummaryResult{Success: false, Message: MsgVideoUnavailable, Status: SummaryUnavailable}
}

// SkippedScene records a scene left out of a stage, by position and title
type SkippedScene struct {
	Index  int    `json:"index"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// Stage names the orchestrator state
type Stage string

const (
	StageStart      Stage = "START"
	StageSummarize  Stage = "SUMMARIZE"
	StageStory      Stage = "STORY"
	StageImages     Stage = "IMAGES"
	StageVideos     Stage = "VIDEOS"
	StageVoiceovers Stage = "VOICEOVERS"
	StageAssemble   Stage = "ASSEMBLE"
	StageDone       Stage = "DONE"
	StageFailed     Stage = "FAILED"
)

// PipelineState tracks the full state of one pipeline run
type PipelineState struct {
	RunID       string         `json:"run_id"`
	VideoID     string         `json:"video_id,omitempty"`
	Stage       Stage          `json:"stage"`
	Summary     string         `json:"summary,omitempty"`
	Story       *Story         `json:"story,omitempty"`
	FinalVideo  string         `json:"final_video,omitempty"`
	Skipped     []SkippedScene `json:"skipped,omitempty"`
	YouTubeURL  string         `json:"youtube_url,omitempty"`
	StartedAt   string         `json:"started_at"`
	CompletedAt string         `json:"completed_at,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// ProgressEvent is pushed to listeners on every stage transition
type ProgressEvent struct {
	RunID   string `json:"run_id"`
	Stage   Stage  `json:"stage"`
	Message string `json:"message,omitempty"`
	Count   int    `json:"count,omitempty"`
}

// VideoMetadata holds YouTube upload metadata
type VideoMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	CategoryID  string   `json:"category_id"`
	Visibility  string   `json:"visibility"`
}
