package repository

import (
	"context"

	"github.com/m2tx/manualchat/internal/model"
)

// TranscriptArchive records completed exchanges for later review. It is
// write-only from the chat's point of view: sessions are never restored from it.
type TranscriptArchive interface {
	// Append adds one exchange to the archive of sessionID.
	Append(ctx context.Context, sessionID string, exchange model.Exchange) error

	// Delete removes everything archived for sessionID.
	// Is a no-op if nothing was archived.
	Delete(ctx context.Context, sessionID string) error
}
