package agent

import (
	"context"

	"github.com/m2tx/manualchat/internal/gemini"
	"github.com/m2tx/manualchat/internal/inline"
)

// GeminiBackend uploads documents to the Gemini Files API and answers from
// server-side cached contexts.
func GeminiBackend(opts gemini.Options) BackendFactory {
	return func(ctx context.Context, apiKey string) (*Backend, error) {
		client, err := gemini.NewClient(ctx, apiKey, opts)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Uploader:  client.Uploader,
			Caches:    client.Caches,
			Generator: client.Generator,
		}, nil
	}
}

// InlineBackend keeps document text in store and sends it with every
// generation call.
func InlineBackend(store *inline.Store, opts gemini.Options) BackendFactory {
	return func(ctx context.Context, apiKey string) (*Backend, error) {
		client, err := gemini.NewClient(ctx, apiKey, opts)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Uploader:  store,
			Caches:    store,
			Generator: client.Generator.WithInline(store),
		}, nil
	}
}
