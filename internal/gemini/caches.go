package gemini

import (
	"context"

	"github.com/m2tx/manualchat/internal/contextcache"
	"github.com/m2tx/manualchat/internal/model"
	"google.golang.org/genai"
)

// Caches implements contextcache.CacheService on the Gemini Caches API.
type Caches struct {
	caches CacheAPI
}

func NewCaches(caches CacheAPI) *Caches {
	return &Caches{caches: caches}
}

func (c *Caches) Create(ctx context.Context, req contextcache.CreateRequest) (model.CachedContext, error) {
	cc, err := c.caches.Create(ctx, req.Model, &genai.CreateCachedContentConfig{
		TTL:         req.TTL,
		DisplayName: req.Document,
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: req.Persona}},
		},
		Contents: []*genai.Content{
			{
				Role: genai.RoleUser,
				Parts: []*genai.Part{
					{FileData: &genai.FileData{FileURI: req.File.URI(), MIMEType: req.File.MIMEType()}},
				},
			},
		},
	})
	if err != nil {
		return model.CachedContext{}, classifyError(err)
	}

	out := toCachedContext(cc)
	out.Document = req.Document
	if out.Model == "" {
		out.Model = req.Model
	}
	return out, nil
}

func (c *Caches) Get(ctx context.Context, handle string) (model.CachedContext, error) {
	cc, err := c.caches.Get(ctx, handle, nil)
	if err != nil {
		return model.CachedContext{}, classifyCacheError(err)
	}
	return toCachedContext(cc), nil
}

func (c *Caches) Delete(ctx context.Context, handle string) error {
	if _, err := c.caches.Delete(ctx, handle, nil); err != nil {
		return classifyCacheError(err)
	}
	return nil
}

func toCachedContext(cc *genai.CachedContent) model.CachedContext {
	if cc == nil {
		return model.CachedContext{}
	}
	return model.CachedContext{
		Handle:    cc.Name,
		Model:     cc.Model,
		CreatedAt: cc.CreateTime,
		ExpiresAt: cc.ExpireTime,
	}
}
