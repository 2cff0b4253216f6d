// Package inline keeps the extracted document text in process so that every
// generation call can carry the whole document in its system instruction.
// It follows the same upload / ready / cached-context lifecycle as the
// remote cache, backed by an expiring LRU.
package inline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/m2tx/manualchat/internal/contextcache"
	"github.com/m2tx/manualchat/internal/docsource"
	"github.com/m2tx/manualchat/internal/model"
)

const (
	handlePrefix = "inline/"
	filePrefix   = "inline-files/"
	fileTTL      = 10 * time.Minute
)

type file struct {
	name string
	text string
}

type entry struct {
	document  string
	persona   string
	text      string
	createdAt time.Time
	expiresAt time.Time
}

// Store implements contextcache.Uploader, contextcache.CacheService and
// gemini.InlineSource.
type Store struct {
	files    *expirable.LRU[string, file]
	contexts *expirable.LRU[string, entry]
	now      func() time.Time
}

// NewStore keeps at most size contexts, each for at most ttl.
func NewStore(size int, ttl time.Duration) *Store {
	if size <= 0 {
		size = 16
	}
	if ttl <= 0 {
		ttl = contextcache.DefaultTTL
	}
	return &Store{
		files:    expirable.NewLRU[string, file](size, nil, fileTTL),
		contexts: expirable.NewLRU[string, entry](size, nil, ttl),
		now:      time.Now,
	}
}

// Upload extracts the text of the document. Unreadable or empty documents
// come back FAILED.
func (s *Store) Upload(ctx context.Context, name, mimeType string, data []byte) (model.RemoteFile, error) {
	id := filePrefix + uuid.NewString()
	rf := model.RemoteFile{ID: id, URI: id, MIMEType: mimeType}

	text, err := docsource.ExtractText(name, data)
	if err != nil {
		rf.State = model.FileStateFailed
		rf.Reason = err.Error()
		return rf, nil
	}
	if strings.TrimSpace(text) == "" {
		rf.State = model.FileStateFailed
		rf.Reason = "document has no extractable text"
		return rf, nil
	}

	s.files.Add(id, file{name: name, text: text})
	rf.State = model.FileStateReady
	return rf, nil
}

func (s *Store) State(ctx context.Context, id string) (model.RemoteFile, error) {
	if _, ok := s.files.Get(id); !ok {
		return model.RemoteFile{ID: id, State: model.FileStateFailed, Reason: "file expired"}, nil
	}
	return model.RemoteFile{ID: id, URI: id, State: model.FileStateReady}, nil
}

func (s *Store) Create(ctx context.Context, req contextcache.CreateRequest) (model.CachedContext, error) {
	f, ok := s.files.Get(req.File.ID())
	if !ok {
		return model.CachedContext{}, model.Errorf(model.KindUploadFailed, "file %q expired before use", req.File.ID())
	}
	s.files.Remove(req.File.ID())

	now := s.now()
	e := entry{
		document:  req.Document,
		persona:   req.Persona,
		text:      f.text,
		createdAt: now,
		expiresAt: now.Add(req.TTL),
	}
	handle := handlePrefix + uuid.NewString()
	s.contexts.Add(handle, e)

	return model.CachedContext{
		Handle:    handle,
		Document:  e.document,
		Model:     req.Model,
		CreatedAt: e.createdAt,
		ExpiresAt: e.expiresAt,
	}, nil
}

func (s *Store) Get(ctx context.Context, handle string) (model.CachedContext, error) {
	e, ok := s.lookup(handle)
	if !ok {
		return model.CachedContext{}, model.Errorf(model.KindCacheExpired, "inline context %q not found", handle)
	}
	return model.CachedContext{
		Handle:    handle,
		Document:  e.document,
		CreatedAt: e.createdAt,
		ExpiresAt: e.expiresAt,
	}, nil
}

func (s *Store) Delete(ctx context.Context, handle string) error {
	s.contexts.Remove(handle)
	return nil
}

// Lookup returns the persona and document text behind handle.
func (s *Store) Lookup(handle string) (string, string, bool) {
	e, ok := s.lookup(handle)
	if !ok {
		return "", "", false
	}
	return e.persona, e.text, true
}

func (s *Store) lookup(handle string) (entry, bool) {
	e, ok := s.contexts.Get(handle)
	if !ok {
		return entry{}, false
	}
	if !s.now().Before(e.expiresAt) {
		s.contexts.Remove(handle)
		return entry{}, false
	}
	return e, true
}
