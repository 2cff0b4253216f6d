package model

import "time"

// Role tags a transcript turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single message of the conversation transcript.
type Turn struct {
	Role    Role   `json:"role" bson:"role"`
	Content string `json:"content" bson:"content"`
}

// Exchange is a completed user question and the assistant answer to it.
type Exchange struct {
	Document  string    `json:"document" bson:"document"`
	Question  string    `json:"question" bson:"question"`
	Answer    string    `json:"answer" bson:"answer"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Document is a source file available to the process, identified by its filename.
type Document struct {
	Name string `json:"name"`
}

// FileState is the processing state of an uploaded file.
type FileState string

const (
	FileStatePending FileState = "PENDING"
	FileStateReady   FileState = "READY"
	FileStateFailed  FileState = "FAILED"
)

// RemoteFile is a document uploaded to the external service. It only lives
// while a cached context is being created.
type RemoteFile struct {
	ID       string
	URI      string
	MIMEType string
	State    FileState
	// Reason carries the service's explanation when State is FAILED.
	Reason string
}

// CachedContext is a server-side bundle of persona instruction and document
// content, valid until ExpiresAt.
type CachedContext struct {
	Handle    string    `json:"handle"`
	Document  string    `json:"document"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Empty reports whether c references no context.
func (c CachedContext) Empty() bool {
	return c.Handle == ""
}

// Expired reports whether the TTL has elapsed at now.
func (c CachedContext) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Generation is the tagged outcome of a generation call that reached the
// provider. Exactly one of Text or BlockReason is meaningful.
type Generation struct {
	Text        string
	BlockReason string
}

// Blocked reports whether the provider produced no usable content.
func (g Generation) Blocked() bool {
	return g.BlockReason != "" || g.Text == ""
}
