package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/m2tx/manualchat/internal/model"
	"github.com/m2tx/manualchat/internal/session"
	"go.uber.org/zap"
)

// Generator produces the next assistant message for a transcript against a
// cached context. Errors mean the provider could not be reached or refused
// the request; a policy block is reported through Generation instead.
type Generator interface {
	Generate(ctx context.Context, handle string, turns []model.Turn, policy model.SafetyPolicy) (model.Generation, error)
}

// Engine runs one question/answer exchange at a time against a session.
type Engine struct {
	generator Generator
	logger    *zap.Logger
	now       func() time.Time
}

// New creates an Engine.
func New(generator Generator, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{generator: generator, logger: logger, now: time.Now}
}

// Converse appends message to the transcript, asks the generator for an
// answer and appends it. When no usable answer comes back the user turn is
// retracted so the transcript ends on a complete exchange or is empty. A
// CacheExpired answer also drops the handle from the session.
func (e *Engine) Converse(ctx context.Context, s *session.Session, message string, policy model.SafetyPolicy) (model.Turn, error) {
	if strings.TrimSpace(message) == "" {
		return model.Turn{}, model.Errorf(model.KindInvalidInput, "message is empty")
	}

	handle := s.Handle()
	if s.Stale() {
		return model.Turn{}, model.Errorf(model.KindCacheExpired, "cached context for %q is gone", s.ActiveDocument())
	}
	if handle.Empty() {
		return model.Turn{}, model.Errorf(model.KindNoDocumentSelected, "session %q has no cached context", s.ID)
	}
	if handle.Expired(e.now()) {
		s.Invalidate()
		return model.Turn{}, model.Errorf(model.KindCacheExpired, "cached context %q expired", handle.Handle)
	}

	logger := e.logger.With(zap.String("session_id", s.ID), zap.String("handle", handle.Handle))

	s.AppendTurn(model.Turn{Role: model.RoleUser, Content: message})

	gen, err := e.generator.Generate(ctx, handle.Handle, s.Transcript(), policy)
	if err != nil {
		s.RetractLastIfUser()
		if model.IsKind(err, model.KindCacheExpired) {
			s.Invalidate()
		}
		logger.Warn("generation failed", zap.Error(err))
		var kerr *model.Error
		if errors.As(err, &kerr) {
			return model.Turn{}, err
		}
		return model.Turn{}, model.NewError(model.KindTransport, err)
	}

	if gen.Blocked() {
		s.RetractLastIfUser()
		reason := gen.BlockReason
		if reason == "" {
			reason = model.ReasonEmpty
		}
		logger.Info("generation blocked", zap.String("reason", reason))
		return model.Turn{}, &model.Error{Kind: model.KindBlocked, Reason: reason}
	}

	turn := model.Turn{Role: model.RoleAssistant, Content: gen.Text}
	s.AppendTurn(turn)
	logger.Debug("exchange completed", zap.Int("turns", s.Len()))
	return turn, nil
}
