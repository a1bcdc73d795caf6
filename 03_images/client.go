package images

import (
	"context"
	"encoding/base64"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Image is what an image service hands back: a URL to fetch or the bytes themselves
type Image struct {
	URL  string
	Data []byte
}

// ImageClient turns one prompt into one image
type ImageClient interface {
	Generate(ctx context.Context, prompt string) (Image, error)
}

// NebiusClient talks to the OpenAI-compatible Nebius AI Studio images endpoint
type NebiusClient struct {
	client *openai.Client
	model  string
}

// NewNebiusClient creates a client for baseURL (e.g. https://api.studio.nebius.com/v1/)
func NewNebiusClient(apiKey, baseURL, model string) *NebiusClient {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &NebiusClient{client: openai.NewClientWithConfig(cfg), model: model}
}

func (n *NebiusClient) Generate(ctx context.Context, prompt string) (Image, error) {
	resp, err := n.client.CreateImage(ctx, openai.ImageRequest{
		Model:          n.model,
		Prompt:         prompt,
		N:              1,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return Image{}, fmt.Errorf("nebius image request: %w", err)
	}
	if len(resp.Data) == 0 {
		return Image{}, fmt.Errorf("no image returned by Nebius API")
	}

	d := resp.Data[0]
	if d.URL != "" {
		return Image{URL: d.URL}, nil
	}
	if d.B64JSON != "" {
		data, err := base64.StdEncoding.DecodeString(d.B64JSON)
		if err != nil {
			return Image{}, fmt.Errorf("decode b64 image: %w", err)
		}
		return Image{Data: data}, nil
	}
	return Image{}, fmt.Errorf("no image URL returned by Nebius API")
}
