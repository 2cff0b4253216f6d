package contextcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m2tx/manualchat/internal/model"
	"github.com/m2tx/manualchat/internal/poll"
	"github.com/m2tx/manualchat/internal/session"
	"go.uber.org/zap"
)

// DefaultTTL is how long a cached context lives after creation.
const DefaultTTL = 60 * time.Minute

// DocumentReader supplies the bytes of a selected document.
type DocumentReader interface {
	Read(doc model.Document) ([]byte, error)
}

// Config tunes a Manager.
type Config struct {
	Model string
	Poll  poll.Config
}

// Manager creates cached contexts once per document and reuses them until
// they expire or the document changes.
type Manager struct {
	docs     DocumentReader
	mimeType func(model.Document) string
	uploader Uploader
	caches   CacheService
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a Manager.
func New(docs DocumentReader, mimeType func(model.Document) string, uploader Uploader, caches CacheService, cfg Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Poll.MaxAttempts <= 0 {
		cfg.Poll = poll.DefaultConfig
	}
	return &Manager{
		docs:     docs,
		mimeType: mimeType,
		uploader: uploader,
		caches:   caches,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// EnsureCache returns a cached context for doc, creating it when the session
// is bound to another document, holds no handle or its handle has expired.
// A successful creation rebinds the session and clears its transcript. On
// failure the session is left unchanged.
func (m *Manager) EnsureCache(ctx context.Context, s *session.Session, doc model.Document, persona string, ttl time.Duration) (model.CachedContext, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	logger := m.logger.With(zap.String("session_id", s.ID), zap.String("document", doc.Name))

	if s.Bound(doc.Name) && !s.Handle().Expired(m.now()) {
		logger.Debug("reusing cached context", zap.String("handle", s.Handle().Handle))
		return s.Handle(), nil
	}

	data, err := m.docs.Read(doc)
	if err != nil {
		var kerr *model.Error
		if errors.As(err, &kerr) {
			return model.CachedContext{}, err
		}
		return model.CachedContext{}, model.NewError(model.KindUploadFailed, err)
	}

	file, err := m.uploader.Upload(ctx, doc.Name, m.mimeType(doc), data)
	if err != nil {
		return model.CachedContext{}, classify(model.KindUploadFailed, fmt.Errorf("upload %q: %w", doc.Name, err))
	}
	logger.Info("document uploaded", zap.String("file_id", file.ID), zap.Int("bytes", len(data)))

	ready, err := m.awaitReady(ctx, file)
	if err != nil {
		logger.Warn("document processing failed", zap.String("file_id", file.ID), zap.Error(err))
		return model.CachedContext{}, err
	}

	cc, err := m.caches.Create(ctx, CreateRequest{
		Model:    m.cfg.Model,
		Document: doc.Name,
		Persona:  persona,
		File:     ready,
		TTL:      ttl,
	})
	if err != nil {
		return model.CachedContext{}, classify(model.KindTransport, fmt.Errorf("create cached context: %w", err))
	}
	if cc.Document == "" {
		cc.Document = doc.Name
	}
	if cc.CreatedAt.IsZero() {
		cc.CreatedAt = m.now()
	}
	if cc.ExpiresAt.IsZero() {
		cc.ExpiresAt = cc.CreatedAt.Add(ttl)
	}

	previous := s.Handle()
	s.Rebind(doc.Name, cc)
	logger.Info("cached context created", zap.String("handle", cc.Handle), zap.Time("expires_at", cc.ExpiresAt))

	if !previous.Empty() && previous.Handle != cc.Handle {
		if err := m.caches.Delete(ctx, previous.Handle); err != nil {
			logger.Warn("failed to delete previous cached context", zap.String("handle", previous.Handle), zap.Error(err))
		}
	}

	return cc, nil
}

// Status checks the session's handle against the cache service. It never
// recreates anything; a handle found gone is dropped from the session so the
// next EnsureCache builds a new one.
func (m *Manager) Status(ctx context.Context, s *session.Session) (model.CachedContext, error) {
	handle := s.Handle()
	if s.Stale() {
		return model.CachedContext{}, model.Errorf(model.KindCacheExpired, "cached context for %q is gone", s.ActiveDocument())
	}
	if handle.Empty() {
		return model.CachedContext{}, model.Errorf(model.KindNoDocumentSelected, "session %q has no cached context", s.ID)
	}
	if handle.Expired(m.now()) {
		s.Invalidate()
		return handle, model.Errorf(model.KindCacheExpired, "cached context %q expired at %s", handle.Handle, handle.ExpiresAt.Format(time.RFC3339))
	}

	remote, err := m.caches.Get(ctx, handle.Handle)
	if err != nil {
		err = classify(model.KindTransport, err)
		if model.IsKind(err, model.KindCacheExpired) {
			s.Invalidate()
			m.logger.Info("cached context gone", zap.String("session_id", s.ID), zap.String("handle", handle.Handle))
		}
		return handle, err
	}
	if !remote.ExpiresAt.IsZero() {
		handle.ExpiresAt = remote.ExpiresAt
	}
	return handle, nil
}

func (m *Manager) awaitReady(ctx context.Context, file model.RemoteFile) (ReadyFile, error) {
	last, attempts, err := poll.Until(ctx, m.cfg.Poll, func(ctx context.Context) (model.RemoteFile, bool, error) {
		if file.State != model.FileStatePending && file.State != "" {
			// the upload response already carries a terminal state
			return file, true, nil
		}
		f, err := m.uploader.State(ctx, file.ID)
		if err != nil {
			return f, false, err
		}
		return f, f.State != model.FileStatePending, nil
	})
	if err != nil {
		if errors.Is(err, poll.ErrTimeout) {
			return ReadyFile{}, model.NewError(model.KindUploadFailed, fmt.Errorf("file %q still pending: %w", file.ID, err))
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return ReadyFile{}, model.NewError(model.KindUploadFailed, err)
		}
		return ReadyFile{}, classify(model.KindTransport, fmt.Errorf("file %q state: %w", file.ID, err))
	}

	m.logger.Debug("file processing finished", zap.String("file_id", last.ID), zap.String("state", string(last.State)), zap.Int("checks", attempts))

	if last.State != model.FileStateReady {
		reason := last.Reason
		if reason == "" {
			reason = string(last.State)
		}
		return ReadyFile{}, model.Errorf(model.KindUploadFailed, "file %q processing failed: %s", file.ID, reason)
	}
	return ReadyFile{file: last}, nil
}

// classify keeps an existing kind and otherwise tags err with fallback.
func classify(fallback model.ErrorKind, err error) error {
	var kerr *model.Error
	if errors.As(err, &kerr) {
		return err
	}
	return model.NewError(fallback, err)
}
