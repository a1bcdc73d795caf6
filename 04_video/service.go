package video

import (
	"context"
)

// Reference is the scene image a job is conditioned on, sent inline with the request
type Reference struct {
	LocalPath string
	MIMEType  string
	Data      []byte
}

// JobRequest describes one clip to render
type JobRequest struct {
	Prompt          string
	Reference       *Reference
	DurationSeconds int
	AspectRatio     string
}

// Job is a remote generation job. Handle belongs to the Service that created it.
type Job struct {
	Name   string
	Done   bool
	Err    error
	Handle any
}

// Service is an asynchronous text-to-video backend
type Service interface {
	Start(ctx context.Context, req JobRequest) (*Job, error)
	Poll(ctx context.Context, job *Job) (*Job, error)
	Download(ctx context.Context, job *Job, dest string) error
}
