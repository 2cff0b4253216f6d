package session

import (
	"github.com/m2tx/manualchat/internal/model"
)

// Session is the per-user conversation state: the document the cached context
// was built from, the context handle and the ordered transcript.
//
// A Session is not safe for concurrent use; Registry serializes access.
type Session struct {
	ID         string
	document   string
	handle     model.CachedContext
	transcript []model.Turn
}

// New returns an empty session.
func New(id string) *Session {
	return &Session{ID: id}
}

// ActiveDocument is the document the current handle was built from, or "".
func (s *Session) ActiveDocument() string {
	return s.document
}

// Handle returns the bound cached context; Empty() is true when none is bound.
func (s *Session) Handle() model.CachedContext {
	return s.handle
}

// Bound reports whether the session holds a handle for document.
func (s *Session) Bound(document string) bool {
	return !s.handle.Empty() && s.document == document
}

// Transcript returns a copy of the turns in chronological order.
func (s *Session) Transcript() []model.Turn {
	out := make([]model.Turn, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Len returns the number of turns.
func (s *Session) Len() int {
	return len(s.transcript)
}

// Reset clears the transcript and keeps the binding.
func (s *Session) Reset() {
	s.transcript = nil
}

// Rebind replaces the bound document and handle and clears the transcript.
func (s *Session) Rebind(document string, handle model.CachedContext) {
	s.document = document
	s.handle = handle
	s.transcript = nil
}

// Invalidate drops a handle the service no longer knows. The document and
// transcript stay so the next EnsureCache for the document recreates it.
func (s *Session) Invalidate() {
	s.handle = model.CachedContext{}
}

// Stale reports whether a document is selected but its handle was invalidated.
func (s *Session) Stale() bool {
	return s.document != "" && s.handle.Empty()
}

// Unbind drops the binding and clears the transcript.
func (s *Session) Unbind() {
	s.Rebind("", model.CachedContext{})
}

// AppendTurn adds t at the end of the transcript.
func (s *Session) AppendTurn(t model.Turn) {
	s.transcript = append(s.transcript, t)
}

// RetractLastIfUser removes the final turn iff it was written by the user.
func (s *Session) RetractLastIfUser() bool {
	n := len(s.transcript)
	if n == 0 || s.transcript[n-1].Role != model.RoleUser {
		return false
	}
	s.transcript = s.transcript[:n-1]
	return true
}
