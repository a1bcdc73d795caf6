package summarize

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

var (
	ErrTranscriptDisabled = errors.New("transcripts disabled for video")
	ErrVideoUnavailable   = errors.New("video unavailable")
)

// TranscriptSource returns the full caption text of a video
type TranscriptSource interface {
	Fetch(ctx context.Context, videoID string) (string, error)
}

const defaultTimedTextURL = "https://www.youtube.com/api/timedtext"

// YouTubeSource checks the video through the Data API and then reads the
// public caption track.
type YouTubeSource struct {
	videos       *youtube.Service
	httpClient   *http.Client
	lang         string
	timedTextURL string
}

// NewYouTubeSource builds a source. With an empty apiKey the metadata check is
// skipped and availability is inferred from the caption track alone.
func NewYouTubeSource(ctx context.Context, apiKey, lang string, opts ...option.ClientOption) (*YouTubeSource, error) {
	s := &YouTubeSource{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		lang:         lang,
		timedTextURL: defaultTimedTextURL,
	}
	if apiKey != "" {
		svc, err := youtube.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
		if err != nil {
			return nil, fmt.Errorf("youtube service: %w", err)
		}
		s.videos = svc
	}
	return s, nil
}

// WithTimedTextURL points caption fetches somewhere else.
func (s *YouTubeSource) WithTimedTextURL(u string) *YouTubeSource {
	s.timedTextURL = u
	return s
}

// Fetch reads the uploaded caption track and falls back to the automatic
// (ASR) track. The video counts as disabled only when both are empty.
func (s *YouTubeSource) Fetch(ctx context.Context, videoID string) (string, error) {
	if strings.TrimSpace(videoID) == "" {
		return "", ErrVideoUnavailable
	}
	manual := true
	if s.videos != nil {
		var err error
		if manual, err = s.hasManualCaptions(ctx, videoID); err != nil {
			return "", err
		}
	}
	if manual {
		text, err := s.fetchTrack(ctx, videoID, "")
		if !errors.Is(err, ErrTranscriptDisabled) {
			return text, err
		}
	}
	return s.fetchTrack(ctx, videoID, "asr")
}

// hasManualCaptions reports the Data API caption flag, which only covers
// uploaded tracks and says nothing about automatic ones.
func (s *YouTubeSource) hasManualCaptions(ctx context.Context, videoID string) (bool, error) {
	resp, err := s.videos.Videos.List([]string{"contentDetails"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("videos.list %s: %w", videoID, err)
	}
	if len(resp.Items) == 0 {
		return false, ErrVideoUnavailable
	}
	details := resp.Items[0].ContentDetails
	return details != nil && details.Caption == "true", nil
}

type timedText struct {
	Texts []struct {
		Body string `xml:",chardata"`
	} `xml:"text"`
}

func (s *YouTubeSource) fetchTrack(ctx context.Context, videoID, kind string) (string, error) {
	q := url.Values{}
	q.Set("v", videoID)
	q.Set("lang", s.lang)
	if kind != "" {
		q.Set("kind", kind)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", s.timedTextURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; AIVideoGenerator/1.0)")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("timedtext request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", ErrVideoUnavailable
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("HTTP %d from timedtext", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return "", ErrTranscriptDisabled
	}

	var track timedText
	if err := xml.Unmarshal(data, &track); err != nil {
		return "", fmt.Errorf("parse timedtext: %w", err)
	}

	parts := make([]string, 0, len(track.Texts))
	for _, t := range track.Texts {
		line := strings.Join(strings.Fields(html.UnescapeString(t.Body)), " ")
		if line != "" {
			parts = append(parts, line)
		}
	}
	if len(parts) == 0 {
		return "", ErrTranscriptDisabled
	}
	return strings.Join(parts, " "), nil
}
