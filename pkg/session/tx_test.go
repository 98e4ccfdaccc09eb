package session

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/matzehuels/lanegrid/pkg/errors"
	"github.com/matzehuels/lanegrid/pkg/model"
	"github.com/matzehuels/lanegrid/pkg/observability"
)

func TestSessionReleaseOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	s, err := Begin(ctx, store, "p")
	require.NoError(t, err)
	require.NoError(t, s.Commit(ctx))
	require.True(t, s.Closed())
	require.EqualValues(t, 1, s.Version())
	require.ErrorIs(t, s.Commit(ctx), ErrClosed)
	require.ErrorIs(t, s.Abort(), ErrClosed)

	s, err = Begin(ctx, store, "p")
	require.NoError(t, err)
	require.NoError(t, s.Abort())
	require.ErrorIs(t, s.Abort(), ErrClosed)
	require.ErrorIs(t, s.Commit(ctx), ErrClosed)
}

func TestSessionIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	s, err := Begin(ctx, store, "p")
	require.NoError(t, err)
	_, err = s.Model().Add(s.Model().Root, &model.Element{Kind: model.KindActivity, Name: "A"})
	require.NoError(t, err)

	doc, err := store.Load(ctx, "p")
	require.NoError(t, err)
	require.Equal(t, 1, doc.Model.Len(), "uncommitted change visible")
	require.NoError(t, s.Abort())
}

func TestCommitFailureStillReleases(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	s, err := Begin(ctx, store, "p")
	require.NoError(t, err)
	other, err := Begin(ctx, store, "p")
	require.NoError(t, err)
	require.NoError(t, other.Commit(ctx))

	require.ErrorIs(t, s.Commit(ctx), ErrConflict)
	require.ErrorIs(t, s.Commit(ctx), ErrClosed)
}

func TestRunPanicAborts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var sess *Session
	func() {
		defer func() {
			require.Equal(t, "boom", recover())
		}()
		_ = Run(ctx, store, "p", func(s *Session) error {
			sess = s
			panic("boom")
		})
	}()

	require.True(t, sess.Closed())
	doc, err := store.Load(ctx, "p")
	require.NoError(t, err)
	require.Zero(t, doc.Version)
}

func TestRunWrapsPlainErrors(t *testing.T) {
	plain := stderrors.New("plain")
	err := Run(context.Background(), NewMemoryStore(), "p", func(*Session) error { return plain })
	require.True(t, errors.Is(err, errors.ErrCodeInternal))
	require.ErrorIs(t, err, plain)
}

func TestRunLoadError(t *testing.T) {
	called := false
	err := Run(context.Background(), NewMemoryStore(), "../x", func(*Session) error {
		called = true
		return nil
	})
	require.Error(t, err)
	require.False(t, called, "fn ran without a session")
}

type recordingHooks struct {
	observability.NoopStoreHooks
	loads, saves, conflicts int
}

func (r *recordingHooks) OnLoad(context.Context, string, string, time.Duration, error) { r.loads++ }
func (r *recordingHooks) OnSave(context.Context, string, string, time.Duration, error) { r.saves++ }
func (r *recordingHooks) OnConflict(context.Context, string, string)                   { r.conflicts++ }

func TestObserve(t *testing.T) {
	observability.Reset()
	defer observability.Reset()
	hooks := &recordingHooks{}
	observability.SetStoreHooks(hooks)

	ctx := context.Background()
	s := Observe(NewMemoryStore(), BackendMemory)
	a, err := s.Load(ctx, "p")
	require.NoError(t, err)
	b, err := s.Load(ctx, "p")
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, a))
	require.ErrorIs(t, s.Save(ctx, b), ErrConflict)

	require.Equal(t, 2, hooks.loads)
	require.Equal(t, 2, hooks.saves)
	require.Equal(t, 1, hooks.conflicts)
}
