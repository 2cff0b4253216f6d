package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the chat flow can surface.
type ErrorKind string

const (
	KindNoDocumentsFound   ErrorKind = "NoDocumentsFound"
	KindUnknownDocument    ErrorKind = "UnknownDocument"
	KindNoDocumentSelected ErrorKind = "NoDocumentSelected"
	KindMissingCredential  ErrorKind = "MissingCredential"
	KindUploadFailed       ErrorKind = "UploadFailed"
	KindCacheExpired       ErrorKind = "CacheExpired"
	KindBlocked            ErrorKind = "Blocked"
	KindTransport          ErrorKind = "TransportError"
	KindInvalidInput       ErrorKind = "InvalidInput"
	KindSessionNotFound    ErrorKind = "SessionNotFound"
)

// ReasonEmpty is the block reason used when the provider returned nothing
// and gave no reason.
const ReasonEmpty = "EMPTY"

var notices = map[ErrorKind]string{
	KindNoDocumentsFound:   "No documents were found. Add a manual to the documents folder and try again.",
	KindUnknownDocument:    "The selected document is not available. Pick one from the list.",
	KindNoDocumentSelected: "Select a document before asking questions.",
	KindMissingCredential:  "Enter an API key to continue.",
	KindUploadFailed:       "The document could not be processed. Try loading it again.",
	KindCacheExpired:       "The document session has expired. Reload the document to continue.",
	KindBlocked:            "The answer was blocked by the content filter. Rephrase the question and try again.",
	KindTransport:          "The AI service returned an error. Try again in a moment.",
	KindInvalidInput:       "The request is missing required input.",
	KindSessionNotFound:    "The chat session has ended. Start a new one.",
}

// Notice returns the human readable message shown for kind.
func Notice(kind ErrorKind) string {
	if n, ok := notices[kind]; ok {
		return n
	}
	return "Unexpected error."
}

// Error is the structured failure returned by the cache manager, the
// conversation engine and the document resolver.
type Error struct {
	Kind ErrorKind
	// Reason is the provider's reason code for Blocked errors.
	Reason string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Reason != "" && e.Err != nil:
		return fmt.Sprintf("%s (%s): %v", e.Kind, e.Reason, e.Err)
	case e.Reason != "":
		return fmt.Sprintf("%s (%s)", e.Kind, e.Reason)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind so errors.Is(err, &Error{Kind: k}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Reason == "" || t.Reason == e.Reason)
}

// NewError builds an *Error of kind wrapping err.
func NewError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Errorf builds an *Error of kind with a formatted cause.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind carried by err, or KindTransport for anything
// unstructured.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransport
}

// IsKind reports whether err carries kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
