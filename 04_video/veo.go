package video

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"
)

// Veo renders clips with the Veo models through the Gemini API
type Veo struct {
	client *genai.Client
	model  string
}

func NewVeo(client *genai.Client, model string) *Veo {
	return &Veo{client: client, model: model}
}

func (v *Veo) Start(ctx context.Context, req JobRequest) (*Job, error) {
	cfg := &genai.GenerateVideosConfig{
		AspectRatio:     req.AspectRatio,
		DurationSeconds: genai.Ptr(int32(req.DurationSeconds)),
	}
	op, err := v.client.Models.GenerateVideos(ctx, v.model, req.Prompt, referenceImage(req.Reference), cfg)
	if err != nil {
		return nil, fmt.Errorf("start video job: %w", err)
	}
	return jobFromOperation(op), nil
}

func (v *Veo) Poll(ctx context.Context, job *Job) (*Job, error) {
	op, ok := job.Handle.(*genai.GenerateVideosOperation)
	if !ok {
		return nil, fmt.Errorf("job %s was not created by Veo", job.Name)
	}
	op, err := v.client.Operations.GetVideosOperation(ctx, op, nil)
	if err != nil {
		return nil, fmt.Errorf("poll video job %s: %w", job.Name, err)
	}
	return jobFromOperation(op), nil
}

func (v *Veo) Download(ctx context.Context, job *Job, dest string) error {
	op, ok := job.Handle.(*genai.GenerateVideosOperation)
	if !ok {
		return fmt.Errorf("job %s was not created by Veo", job.Name)
	}
	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 {
		if op.Response != nil && len(op.Response.RAIMediaFilteredReasons) > 0 {
			return fmt.Errorf("video filtered: %s", strings.Join(op.Response.RAIMediaFilteredReasons, "; "))
		}
		return fmt.Errorf("job %s returned no video", job.Name)
	}

	generated := op.Response.GeneratedVideos[0]
	if generated.Video != nil && len(generated.Video.VideoBytes) > 0 {
		return os.WriteFile(dest, generated.Video.VideoBytes, 0644)
	}

	data, err := v.client.Files.Download(ctx, genai.NewDownloadURIFromGeneratedVideo(generated), nil)
	if err != nil {
		return fmt.Errorf("download video: %w", err)
	}
	return os.WriteFile(dest, data, 0644)
}

// referenceImage is the starting frame of the clip, or nil for text-only jobs.
func referenceImage(ref *Reference) *genai.Image {
	if ref == nil || len(ref.Data) == 0 {
		return nil
	}
	return &genai.Image{ImageBytes: ref.Data, MIMEType: ref.MIMEType}
}

func jobFromOperation(op *genai.GenerateVideosOperation) *Job {
	job := &Job{Name: op.Name, Done: op.Done, Handle: op}
	if len(op.Error) > 0 {
		msg, _ := op.Error["message"].(string)
		if msg == "" {
			msg = fmt.Sprint(op.Error)
		}
		job.Err = fmt.Errorf("video job %s failed: %s", op.Name, msg)
	}
	return job
}
