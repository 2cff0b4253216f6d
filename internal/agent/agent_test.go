package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m2tx/manualchat/internal/docsource"
	"github.com/m2tx/manualchat/internal/inline"
	"github.com/m2tx/manualchat/internal/model"
	"github.com/m2tx/manualchat/internal/poll"
	"github.com/m2tx/manualchat/internal/session"
	"github.com/stretchr/testify/require"
)

type scriptedGenerator struct {
	store   *inline.Store
	replies []model.Generation
	calls   int
}

func (g *scriptedGenerator) Generate(ctx context.Context, handle string, turns []model.Turn, policy model.SafetyPolicy) (model.Generation, error) {
	if _, _, ok := g.store.Lookup(handle); !ok {
		return model.Generation{}, model.Errorf(model.KindCacheExpired, "gone")
	}
	reply := g.replies[g.calls%len(g.replies)]
	g.calls++
	return reply, nil
}

type memArchive struct {
	exchanges map[string][]model.Exchange
	deleted   []string
	err       error
}

func (m *memArchive) Append(ctx context.Context, sessionID string, exchange model.Exchange) error {
	if m.err != nil {
		return m.err
	}
	m.exchanges[sessionID] = append(m.exchanges[sessionID], exchange)
	return nil
}

func (m *memArchive) Delete(ctx context.Context, sessionID string) error {
	m.deleted = append(m.deleted, sessionID)
	return nil
}

type fixture struct {
	agent     *Agent
	store     *inline.Store
	generator *scriptedGenerator
	archive   *memArchive
	connects  int
}

func newFixture(t *testing.T, files map[string]string, replies ...model.Generation) *fixture {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	if len(replies) == 0 {
		replies = []model.Generation{{Text: "answer"}}
	}

	store := inline.NewStore(8, time.Hour)
	f := &fixture{
		store:     store,
		generator: &scriptedGenerator{store: store, replies: replies},
		archive:   &memArchive{exchanges: map[string][]model.Exchange{}},
	}
	backend := func(ctx context.Context, apiKey string) (*Backend, error) {
		f.connects++
		return &Backend{Uploader: store, Caches: store, Generator: f.generator}, nil
	}
	f.agent = NewWithArchive(docsource.New(dir), session.NewRegistry(time.Hour), backend, Config{
		Model:   "gemini-2.5-flash",
		Persona: "You are the author.",
		TTL:     time.Hour,
		Poll:    poll.Config{Interval: time.Millisecond, MaxAttempts: 3},
	}, f.archive, nil)
	return f
}

func TestAgentConversationFlow(t *testing.T) {
	f := newFixture(t, map[string]string{"manual.txt": "Attendance rules."})
	ctx := context.Background()
	id := f.agent.NewSession()

	docs, err := f.agent.Documents()
	require.NoError(t, err)
	require.Equal(t, []model.Document{{Name: "manual.txt"}}, docs)

	cc, err := f.agent.SelectDocument(ctx, id, "key", "manual.txt")
	require.NoError(t, err)
	require.Equal(t, "manual.txt", cc.Document)

	turn, err := f.agent.Send(ctx, id, "key", "What are the attendance rules?")
	require.NoError(t, err)
	require.Equal(t, "answer", turn.Content)

	snap, err := f.agent.GetSession(id)
	require.NoError(t, err)
	require.Equal(t, "manual.txt", snap.Document)
	require.Equal(t, []model.Turn{
		{Role: model.RoleUser, Content: "What are the attendance rules?"},
		{Role: model.RoleAssistant, Content: "answer"},
	}, snap.Transcript)
	require.NotNil(t, snap.Context)

	require.Len(t, f.archive.exchanges[id], 1)
	require.Equal(t, "manual.txt", f.archive.exchanges[id][0].Document)

	status, err := f.agent.ContextStatus(ctx, id, "key")
	require.NoError(t, err)
	require.Equal(t, cc.Handle, status.Handle)

	require.NoError(t, f.agent.ResetSession(id))
	snap, err = f.agent.GetSession(id)
	require.NoError(t, err)
	require.Empty(t, snap.Transcript)
	require.Equal(t, cc.Handle, snap.Context.Handle)

	f.agent.ClearSession(ctx, id)
	_, err = f.agent.GetSession(id)
	require.True(t, model.IsKind(err, model.KindSessionNotFound))
	require.Equal(t, []string{id}, f.archive.deleted)
}

func TestAgentReselectSameDocumentKeepsTranscript(t *testing.T) {
	f := newFixture(t, map[string]string{"manual.txt": "A", "other.txt": "B"})
	ctx := context.Background()
	id := f.agent.NewSession()

	first, err := f.agent.SelectDocument(ctx, id, "key", "manual.txt")
	require.NoError(t, err)
	_, err = f.agent.Send(ctx, id, "key", "q")
	require.NoError(t, err)

	again, err := f.agent.SelectDocument(ctx, id, "key", "manual.txt")
	require.NoError(t, err)
	require.Equal(t, first.Handle, again.Handle)
	snap, _ := f.agent.GetSession(id)
	require.Len(t, snap.Transcript, 2)

	changed, err := f.agent.SelectDocument(ctx, id, "key", "other.txt")
	require.NoError(t, err)
	require.NotEqual(t, first.Handle, changed.Handle)
	snap, _ = f.agent.GetSession(id)
	require.Empty(t, snap.Transcript)
	require.Equal(t, "other.txt", snap.Document)
}

func TestAgentBlockedAnswerNotArchived(t *testing.T) {
	f := newFixture(t, map[string]string{"manual.txt": "A"}, model.Generation{BlockReason: "SAFETY"})
	ctx := context.Background()
	id := f.agent.NewSession()

	_, err := f.agent.SelectDocument(ctx, id, "key", "manual.txt")
	require.NoError(t, err)

	_, err = f.agent.Send(ctx, id, "key", "q")
	var kerr *model.Error
	require.True(t, errors.As(err, &kerr))
	require.Equal(t, model.KindBlocked, kerr.Kind)
	require.Equal(t, "SAFETY", kerr.Reason)

	snap, _ := f.agent.GetSession(id)
	require.Empty(t, snap.Transcript)
	require.Empty(t, f.archive.exchanges[id])
}

func TestAgentArchiveFailureDoesNotFailSend(t *testing.T) {
	f := newFixture(t, map[string]string{"manual.txt": "A"})
	f.archive.err = errors.New("mongo down")
	ctx := context.Background()
	id := f.agent.NewSession()

	_, err := f.agent.SelectDocument(ctx, id, "key", "manual.txt")
	require.NoError(t, err)
	_, err = f.agent.Send(ctx, id, "key", "q")
	require.NoError(t, err)
}

func TestAgentShortCircuits(t *testing.T) {
	ctx := context.Background()

	t.Run("no documents", func(t *testing.T) {
		f := newFixture(t, nil)
		id := f.agent.NewSession()
		_, err := f.agent.SelectDocument(ctx, id, "key", "manual.txt")
		require.True(t, model.IsKind(err, model.KindNoDocumentsFound))
		require.Zero(t, f.connects)
	})

	t.Run("missing credential", func(t *testing.T) {
		f := newFixture(t, map[string]string{"manual.txt": "A"})
		id := f.agent.NewSession()
		_, err := f.agent.SelectDocument(ctx, id, " ", "manual.txt")
		require.True(t, model.IsKind(err, model.KindMissingCredential))
		require.Zero(t, f.connects)
	})

	t.Run("send without document", func(t *testing.T) {
		f := newFixture(t, map[string]string{"manual.txt": "A"})
		id := f.agent.NewSession()
		_, err := f.agent.Send(ctx, id, "key", "q")
		require.True(t, model.IsKind(err, model.KindNoDocumentSelected))
		require.Zero(t, f.connects)
	})

	t.Run("unknown session", func(t *testing.T) {
		f := newFixture(t, map[string]string{"manual.txt": "A"})
		_, err := f.agent.Send(ctx, "nope", "key", "q")
		require.True(t, model.IsKind(err, model.KindSessionNotFound))
	})
}

func TestAgentReusesBackendPerKey(t *testing.T) {
	f := newFixture(t, map[string]string{"manual.txt": "A"})
	ctx := context.Background()
	id := f.agent.NewSession()

	_, err := f.agent.SelectDocument(ctx, id, "key", "manual.txt")
	require.NoError(t, err)
	_, err = f.agent.Send(ctx, id, " key ", "q")
	require.NoError(t, err)
	require.Equal(t, 1, f.connects)

	_, err = f.agent.ContextStatus(ctx, id, "other-key")
	require.NoError(t, err)
	require.Equal(t, 2, f.connects)
}

func TestAgentRecoversFromRemovedContext(t *testing.T) {
	f := newFixture(t, map[string]string{"manual.txt": "A"})
	ctx := context.Background()
	id := f.agent.NewSession()

	first, err := f.agent.SelectDocument(ctx, id, "key", "manual.txt")
	require.NoError(t, err)
	require.NoError(t, f.store.Delete(ctx, first.Handle))

	_, err = f.agent.Send(ctx, id, "key", "q")
	require.True(t, model.IsKind(err, model.KindCacheExpired))

	snap, err := f.agent.GetSession(id)
	require.NoError(t, err)
	require.Nil(t, snap.Context)
	require.Equal(t, "manual.txt", snap.Document)

	_, err = f.agent.Send(ctx, id, "key", "q")
	require.True(t, model.IsKind(err, model.KindCacheExpired))

	second, err := f.agent.SelectDocument(ctx, id, "key", "manual.txt")
	require.NoError(t, err)
	require.NotEqual(t, first.Handle, second.Handle)

	turn, err := f.agent.Send(ctx, id, "key", "q")
	require.NoError(t, err)
	require.Equal(t, "answer", turn.Content)
}
