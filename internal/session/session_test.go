package session

import (
	"sync"
	"testing"
	"time"

	"github.com/m2tx/manualchat/internal/model"
	"github.com/stretchr/testify/require"
)

func user(text string) model.Turn      { return model.Turn{Role: model.RoleUser, Content: text} }
func assistant(text string) model.Turn { return model.Turn{Role: model.RoleAssistant, Content: text} }

func TestRebindClearsTranscript(t *testing.T) {
	s := New("s1")
	s.AppendTurn(user("hi"))
	s.AppendTurn(assistant("hello"))

	handle := model.CachedContext{Handle: "cachedContents/1", Document: "manual.pdf"}
	s.Rebind("manual.pdf", handle)

	require.Equal(t, "manual.pdf", s.ActiveDocument())
	require.Equal(t, handle, s.Handle())
	require.Empty(t, s.Transcript())
	require.True(t, s.Bound("manual.pdf"))
	require.False(t, s.Bound("other.pdf"))
}

func TestResetKeepsBinding(t *testing.T) {
	s := New("s1")
	handle := model.CachedContext{Handle: "cachedContents/1"}
	s.Rebind("manual.pdf", handle)
	s.AppendTurn(user("hi"))

	s.Reset()

	require.Empty(t, s.Transcript())
	require.Equal(t, handle, s.Handle())
	require.Equal(t, "manual.pdf", s.ActiveDocument())
}

func TestUnbind(t *testing.T) {
	s := New("s1")
	s.Rebind("manual.pdf", model.CachedContext{Handle: "cachedContents/1"})
	s.AppendTurn(user("hi"))

	s.Unbind()

	require.True(t, s.Handle().Empty())
	require.Equal(t, "", s.ActiveDocument())
	require.Zero(t, s.Len())
}

func TestRetractLastIfUser(t *testing.T) {
	tests := []struct {
		name      string
		turns     []model.Turn
		retracted bool
		want      []model.Turn
	}{
		{name: "empty", turns: nil, retracted: false, want: []model.Turn{}},
		{name: "trailing user", turns: []model.Turn{user("q")}, retracted: true, want: []model.Turn{}},
		{
			name:      "trailing assistant",
			turns:     []model.Turn{user("q"), assistant("a")},
			retracted: false,
			want:      []model.Turn{user("q"), assistant("a")},
		},
		{
			name:      "user after exchange",
			turns:     []model.Turn{user("q"), assistant("a"), user("q2")},
			retracted: true,
			want:      []model.Turn{user("q"), assistant("a")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New("s")
			for _, turn := range tt.turns {
				s.AppendTurn(turn)
			}
			require.Equal(t, tt.retracted, s.RetractLastIfUser())
			require.Equal(t, tt.want, s.Transcript())
		})
	}
}

func TestTranscriptIsCopy(t *testing.T) {
	s := New("s")
	s.AppendTurn(user("q"))

	tr := s.Transcript()
	tr[0].Content = "changed"

	require.Equal(t, "q", s.Transcript()[0].Content)
}

func TestRegistryIsolatesSessions(t *testing.T) {
	r := NewRegistry(time.Hour)
	a := r.Create()
	b := r.Create()
	require.NotEqual(t, a, b)
	require.True(t, r.Exists(a))

	require.NoError(t, r.With(a, func(s *Session) error {
		s.AppendTurn(user("only in a"))
		return nil
	}))
	require.NoError(t, r.With(b, func(s *Session) error {
		require.Zero(t, s.Len())
		return nil
	}))

	r.Delete(a)
	require.False(t, r.Exists(a))
	require.Equal(t, 1, r.Count())
}

func TestRegistrySerializesCalls(t *testing.T) {
	r := NewRegistry(time.Hour)
	id := r.Create()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.With(id, func(s *Session) error {
				s.AppendTurn(user("q"))
				return nil
			})
		}()
	}
	wg.Wait()

	require.NoError(t, r.With(id, func(s *Session) error {
		require.Equal(t, 50, s.Len())
		return nil
	}))
}

func TestInvalidateKeepsDocumentAndTranscript(t *testing.T) {
	s := New("s1")
	s.Rebind("manual.pdf", model.CachedContext{Handle: "cachedContents/1"})
	s.AppendTurn(user("q"))
	require.False(t, s.Stale())

	s.Invalidate()

	require.True(t, s.Handle().Empty())
	require.True(t, s.Stale())
	require.False(t, s.Bound("manual.pdf"))
	require.Equal(t, "manual.pdf", s.ActiveDocument())
	require.Equal(t, 1, s.Len())
}

func TestRegistryWithUnknownSession(t *testing.T) {
	r := NewRegistry(time.Hour)
	called := false

	err := r.With("missing", func(s *Session) error {
		called = true
		return nil
	})

	require.True(t, model.IsKind(err, model.KindSessionNotFound))
	require.False(t, called)
	require.Zero(t, r.Count())
}
