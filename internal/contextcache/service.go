package contextcache

import (
	"context"
	"time"

	"github.com/m2tx/manualchat/internal/model"
)

// Uploader moves document bytes to the external file service.
type Uploader interface {
	// Upload stores data and returns the new file, normally still PENDING.
	Upload(ctx context.Context, name, mimeType string, data []byte) (model.RemoteFile, error)
	// State reports the current processing state of the file id.
	State(ctx context.Context, id string) (model.RemoteFile, error)
}

// CacheService creates and inspects cached contexts.
type CacheService interface {
	// Create binds persona and the processed file into a context living ttl.
	Create(ctx context.Context, req CreateRequest) (model.CachedContext, error)
	// Get returns the context behind handle, or a CacheExpired error when
	// it no longer exists.
	Get(ctx context.Context, handle string) (model.CachedContext, error)
	// Delete removes the context behind handle.
	Delete(ctx context.Context, handle string) error
}

// CreateRequest is everything a cached context is built from.
type CreateRequest struct {
	Model    string
	Document string
	Persona  string
	File     ReadyFile
	TTL      time.Duration
}

// ReadyFile is a RemoteFile that finished processing. Only this package can
// produce one, so a pending file never reaches CacheService.Create.
type ReadyFile struct {
	file model.RemoteFile
}

func (f ReadyFile) ID() string       { return f.file.ID }
func (f ReadyFile) URI() string      { return f.file.URI }
func (f ReadyFile) MIMEType() string { return f.file.MIMEType }
