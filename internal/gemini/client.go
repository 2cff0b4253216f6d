package gemini

import (
	"context"
	"io"
	"strings"

	"github.com/m2tx/manualchat/internal/model"
	"google.golang.org/genai"
)

// FileAPI is the subset of genai.Files used for uploads.
type FileAPI interface {
	Upload(ctx context.Context, r io.Reader, config *genai.UploadFileConfig) (*genai.File, error)
	Get(ctx context.Context, name string, config *genai.GetFileConfig) (*genai.File, error)
}

// CacheAPI is the subset of genai.Caches used for cached contexts.
type CacheAPI interface {
	Create(ctx context.Context, model string, config *genai.CreateCachedContentConfig) (*genai.CachedContent, error)
	Get(ctx context.Context, name string, config *genai.GetCachedContentConfig) (*genai.CachedContent, error)
	Delete(ctx context.Context, name string, config *genai.DeleteCachedContentConfig) (*genai.DeleteCachedContentResponse, error)
}

// ModelAPI is the subset of genai.Models used for generation.
type ModelAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Options configures generation.
type Options struct {
	Model       string
	Temperature float32
}

// Client bundles the Gemini services for one API key.
type Client struct {
	Uploader  *Uploader
	Caches    *Caches
	Generator *Generator
}

// NewClient connects to the Gemini API with apiKey. An empty key is a
// MissingCredential error.
func NewClient(ctx context.Context, apiKey string, opts Options) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, model.Errorf(model.KindMissingCredential, "gemini api key is empty")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, model.NewError(model.KindTransport, err)
	}

	return &Client{
		Uploader:  NewUploader(client.Files),
		Caches:    NewCaches(client.Caches),
		Generator: NewGenerator(client.Models, opts),
	}, nil
}
