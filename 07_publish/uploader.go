package publish

import (
	"context"
	"fmt"
	"os"
	"time"

	"ai-video-generator/config"
	"ai-video-generator/types"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Credentials authorize uploads to one channel
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

func (c Credentials) validate() error {
	if c.ClientID == "" || c.ClientSecret == "" || c.RefreshToken == "" {
		return fmt.Errorf("YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET, or YOUTUBE_REFRESH_TOKEN not set")
	}
	return nil
}

// Uploader handles YouTube video upload via Data API v3
type Uploader struct {
	creds Credentials
	cfg   config.PublishConfig
	opts  []option.ClientOption
	log   *zap.Logger
}

// NewUploader creates an Uploader. Extra client options are appended to the OAuth client.
func NewUploader(creds Credentials, cfg config.PublishConfig, log *zap.Logger, opts ...option.ClientOption) (*Uploader, error) {
	if err := creds.validate(); err != nil {
		return nil, err
	}
	return &Uploader{creds: creds, cfg: cfg, opts: opts, log: log.Named("upload")}, nil
}

// Upload sends videoFile with its metadata and returns the watch URL.
func (u *Uploader) Upload(ctx context.Context, videoFile string, md *types.VideoMetadata) (string, error) {
	u.log.Info("authenticating with YouTube API")

	opts := append([]option.ClientOption{option.WithTokenSource(u.tokenSource(ctx))}, u.opts...)
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("youtube service: %w", err)
	}

	f, err := os.Open(videoFile)
	if err != nil {
		return "", fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	if fi, err := f.Stat(); err == nil {
		u.log.Info("uploading", zap.String("title", md.Title), zap.Float64("size_mb", float64(fi.Size())/1024/1024))
	}

	// resumable upload, required for files > 5MB
	uploaded, err := svc.Videos.Insert([]string{"snippet", "status"}, u.buildVideo(md)).Media(f).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("youtube upload: %w", err)
	}

	url := fmt.Sprintf("https://www.youtube.com/watch?v=%s", uploaded.Id)
	u.log.Info("uploaded", zap.String("video_id", uploaded.Id), zap.String("url", url))
	return url, nil
}

func (u *Uploader) buildVideo(md *types.VideoMetadata) *youtube.Video {
	visibility := md.Visibility
	if visibility == "" {
		visibility = u.cfg.Visibility
	}
	category := md.CategoryID
	if category == "" {
		category = u.cfg.CategoryID
	}
	return &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:                md.Title,
			Description:          md.Description,
			Tags:                 md.Tags,
			CategoryId:           category,
			DefaultLanguage:      u.cfg.DefaultLanguage,
			DefaultAudioLanguage: u.cfg.DefaultLanguage,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           visibility,
			SelfDeclaredMadeForKids: u.cfg.MadeForKids,
			NotifySubscribers:       u.cfg.NotifySubscribers,
		},
	}
}

func (u *Uploader) tokenSource(ctx context.Context) oauth2.TokenSource {
	conf := &oauth2.Config{
		ClientID:     u.creds.ClientID,
		ClientSecret: u.creds.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeScope},
	}
	token := &oauth2.Token{
		RefreshToken: u.creds.RefreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}
	return conf.TokenSource(ctx, token)
}

// Publisher generates metadata for a finished video and uploads it
type Publisher struct {
	meta     *MetadataGenerator
	uploader *Uploader
}

func NewPublisher(meta *MetadataGenerator, uploader *Uploader) *Publisher {
	return &Publisher{meta: meta, uploader: uploader}
}

// Publish returns the watch URL of the uploaded video.
func (p *Publisher) Publish(ctx context.Context, story types.Story, videoFile string) (string, error) {
	md, err := p.meta.Metadata(ctx, story)
	if err != nil {
		return "", err
	}
	return p.uploader.Upload(ctx, videoFile, md)
}
