package agent

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/m2tx/manualchat/internal/contextcache"
	"github.com/m2tx/manualchat/internal/conversation"
	"github.com/m2tx/manualchat/internal/docsource"
	"github.com/m2tx/manualchat/internal/model"
	"github.com/m2tx/manualchat/internal/poll"
	"github.com/m2tx/manualchat/internal/repository"
	"github.com/m2tx/manualchat/internal/session"
	"go.uber.org/zap"
)

const (
	backendCacheSize = 32
	backendCacheTTL  = 30 * time.Minute
)

// Backend is the set of remote services bound to one API credential.
type Backend struct {
	Uploader  contextcache.Uploader
	Caches    contextcache.CacheService
	Generator conversation.Generator
}

// BackendFactory connects to the services with apiKey.
type BackendFactory func(ctx context.Context, apiKey string) (*Backend, error)

// Config holds the settings shared by every session.
type Config struct {
	Model   string
	Persona string
	TTL     time.Duration
	Poll    poll.Config
	Safety  model.SafetyPolicy
}

// Snapshot is the presentable state of a session.
type Snapshot struct {
	SessionID  string               `json:"session_id"`
	Document   string               `json:"document,omitempty"`
	Context    *model.CachedContext `json:"context,omitempty"`
	Transcript []model.Turn         `json:"transcript"`
}

// Agent ties the document resolver, cache manager and conversation engine
// to the in-process sessions.
type Agent struct {
	docs     *docsource.Resolver
	sessions *session.Registry
	backend  BackendFactory
	cfg      Config
	archive  repository.TranscriptArchive
	backends *expirable.LRU[string, *Backend]
	logger   *zap.Logger
	now      func() time.Time
}

func New(docs *docsource.Resolver, sessions *session.Registry, backend BackendFactory, cfg Config, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = contextcache.DefaultTTL
	}
	if cfg.Safety == nil {
		cfg.Safety = model.StrictSafetyPolicy()
	}
	return &Agent{
		docs:     docs,
		sessions: sessions,
		backend:  backend,
		cfg:      cfg,
		backends: expirable.NewLRU[string, *Backend](backendCacheSize, nil, backendCacheTTL),
		logger:   logger,
		now:      time.Now,
	}
}

func NewWithArchive(docs *docsource.Resolver, sessions *session.Registry, backend BackendFactory, cfg Config, archive repository.TranscriptArchive, logger *zap.Logger) *Agent {
	a := New(docs, sessions, backend, cfg, logger)
	a.archive = archive
	return a
}

// Documents lists the documents the operator can choose from.
func (a *Agent) Documents() ([]model.Document, error) {
	return a.docs.List()
}

// NewSession starts an empty session.
func (a *Agent) NewSession() string {
	id := a.sessions.Create()
	a.logger.Info("session created", zap.String("session_id", id))
	return id
}

// SelectDocument binds the session to documentName, reusing the current
// cached context when it already belongs to that document.
func (a *Agent) SelectDocument(ctx context.Context, sessionID, apiKey, documentName string) (model.CachedContext, error) {
	doc, err := a.docs.Select(documentName)
	if err != nil {
		return model.CachedContext{}, err
	}

	var cc model.CachedContext
	err = a.sessions.With(sessionID, func(s *session.Session) error {
		backend, err := a.connect(ctx, apiKey)
		if err != nil {
			return err
		}
		manager := a.manager(backend)
		cc, err = manager.EnsureCache(ctx, s, doc, a.cfg.Persona, a.cfg.TTL)
		return err
	})
	return cc, err
}

// ContextStatus verifies the session's cached context with the service.
func (a *Agent) ContextStatus(ctx context.Context, sessionID, apiKey string) (model.CachedContext, error) {
	var cc model.CachedContext
	err := a.sessions.With(sessionID, func(s *session.Session) error {
		if s.ActiveDocument() == "" {
			return model.Errorf(model.KindNoDocumentSelected, "session %q has no document", sessionID)
		}
		backend, err := a.connect(ctx, apiKey)
		if err != nil {
			return err
		}
		cc, err = a.manager(backend).Status(ctx, s)
		return err
	})
	return cc, err
}

// Send asks prompt within the session and returns the assistant's answer.
func (a *Agent) Send(ctx context.Context, sessionID, apiKey, prompt string) (model.Turn, error) {
	var (
		turn     model.Turn
		document string
	)
	err := a.sessions.With(sessionID, func(s *session.Session) error {
		if s.ActiveDocument() == "" {
			return model.Errorf(model.KindNoDocumentSelected, "session %q has no document", sessionID)
		}
		backend, err := a.connect(ctx, apiKey)
		if err != nil {
			return err
		}
		engine := conversation.New(backend.Generator, a.logger)
		turn, err = engine.Converse(ctx, s, prompt, a.cfg.Safety)
		document = s.ActiveDocument()
		return err
	})
	if err != nil {
		return model.Turn{}, err
	}

	if a.archive != nil {
		exchange := model.Exchange{Document: document, Question: prompt, Answer: turn.Content, CreatedAt: a.now().UTC()}
		if saveErr := a.archive.Append(ctx, sessionID, exchange); saveErr != nil {
			a.logger.Warn("failed to archive exchange", zap.String("session_id", sessionID), zap.Error(saveErr))
		}
	}

	return turn, nil
}

// GetSession returns the current state of the session.
func (a *Agent) GetSession(sessionID string) (Snapshot, error) {
	var snap Snapshot
	err := a.sessions.With(sessionID, func(s *session.Session) error {
		snap = Snapshot{
			SessionID:  sessionID,
			Document:   s.ActiveDocument(),
			Transcript: s.Transcript(),
		}
		if h := s.Handle(); !h.Empty() {
			snap.Context = &h
		}
		return nil
	})
	return snap, err
}

// ResetSession clears the transcript and keeps the cached context.
func (a *Agent) ResetSession(sessionID string) error {
	return a.sessions.With(sessionID, func(s *session.Session) error {
		s.Reset()
		return nil
	})
}

// ClearSession forgets the session and its archived exchanges.
func (a *Agent) ClearSession(ctx context.Context, sessionID string) {
	a.sessions.Delete(sessionID)
	if a.archive != nil {
		if err := a.archive.Delete(ctx, sessionID); err != nil {
			a.logger.Warn("failed to delete archived transcript", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
}

// connect returns the backend for apiKey, reusing one built recently for the
// same key.
func (a *Agent) connect(ctx context.Context, apiKey string) (*Backend, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, model.Errorf(model.KindMissingCredential, "api key is required")
	}
	if b, ok := a.backends.Get(apiKey); ok {
		return b, nil
	}
	b, err := a.backend(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	a.backends.Add(apiKey, b)
	return b, nil
}

func (a *Agent) manager(b *Backend) *contextcache.Manager {
	return contextcache.New(a.docs, docsource.MIMEType, b.Uploader, b.Caches, contextcache.Config{
		Model: a.cfg.Model,
		Poll:  a.cfg.Poll,
	}, a.logger)
}
