// Package sessiontest checks that a session.Store behaves like the rest.
//
//	func TestMyStore(t *testing.T) {
//	    sessiontest.Run(t, func(t *testing.T) session.Store { return newMyStore(t) })
//	}
package sessiontest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matzehuels/lanegrid/pkg/errors"
	"github.com/matzehuels/lanegrid/pkg/model"
	"github.com/matzehuels/lanegrid/pkg/session"
)

// Factory returns an empty store. Run closes it.
type Factory func(t *testing.T) session.Store

// Run runs the contract against stores from newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s session.Store)
	}{
		{"LoadMissing", testLoadMissing},
		{"SaveLoad", testSaveLoad},
		{"VersionConflict", testVersionConflict},
		{"StaleFirstSave", testStaleFirstSave},
		{"DeleteList", testDeleteList},
		{"InvalidProject", testInvalidProject},
		{"ConcurrentSaves", testConcurrentSaves},
		{"SessionRun", testSessionRun},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			defer s.Close()
			tt.fn(t, s)
		})
	}
}

func addActivity(t *testing.T, m *model.Model, name string) *model.Element {
	t.Helper()
	el, err := m.Add(m.Root, &model.Element{Kind: model.KindActivity, Name: name})
	require.NoError(t, err)
	return el
}

func testLoadMissing(t *testing.T, s session.Store) {
	doc, err := s.Load(context.Background(), "fresh")
	require.NoError(t, err)
	require.Equal(t, "fresh", doc.Project)
	require.Zero(t, doc.Version)
	require.NotNil(t, doc.Model)
	require.Equal(t, 1, doc.Model.Len(), "fresh model holds only the root package")
}

func testSaveLoad(t *testing.T, s session.Store) {
	ctx := context.Background()
	doc, err := s.Load(ctx, "orders")
	require.NoError(t, err)
	act := addActivity(t, doc.Model, "Import")

	require.NoError(t, s.Save(ctx, doc))
	require.EqualValues(t, 1, doc.Version)
	require.False(t, doc.UpdatedAt.IsZero())

	got, err := s.Load(ctx, "orders")
	require.NoError(t, err)
	require.EqualValues(t, 1, got.Version)
	require.True(t, doc.UpdatedAt.Equal(got.UpdatedAt))
	el, ok := got.Model.Get(act.ID)
	require.True(t, ok, "saved activity missing")
	require.Equal(t, "Import", el.Name)
	require.Equal(t, []string{"orders", "Import"}, got.Model.Path(act.ID))

	// Loaded models are private copies.
	el.Name = "changed"
	again, err := s.Load(ctx, "orders")
	require.NoError(t, err)
	el2, _ := again.Model.Get(act.ID)
	require.Equal(t, "Import", el2.Name)
}

func testVersionConflict(t *testing.T, s session.Store) {
	ctx := context.Background()
	doc, err := s.Load(ctx, "p")
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, doc))

	a, err := s.Load(ctx, "p")
	require.NoError(t, err)
	b, err := s.Load(ctx, "p")
	require.NoError(t, err)

	addActivity(t, a.Model, "A")
	require.NoError(t, s.Save(ctx, a))

	addActivity(t, b.Model, "B")
	err = s.Save(ctx, b)
	require.ErrorIs(t, err, session.ErrConflict)
	require.True(t, errors.Is(err, errors.ErrCodeConflict))
	require.EqualValues(t, 1, b.Version, "failed save must not bump the version")

	got, err := s.Load(ctx, "p")
	require.NoError(t, err)
	require.EqualValues(t, 2, got.Version)
	require.Nil(t, got.Model.Find(func(el *model.Element) bool { return el.Name == "B" }))
}

func testStaleFirstSave(t *testing.T, s session.Store) {
	ctx := context.Background()
	a, err := s.Load(ctx, "race")
	require.NoError(t, err)
	b, err := s.Load(ctx, "race")
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx, a))
	require.ErrorIs(t, s.Save(ctx, b), session.ErrConflict)
}

func testDeleteList(t *testing.T, s session.Store) {
	ctx := context.Background()
	names, err := s.List(ctx)
	require.NoError(t, err)
	require.Empty(t, names)

	for _, p := range []string{"zeta", "alpha", "mid"} {
		doc, err := s.Load(ctx, p)
		require.NoError(t, err)
		require.NoError(t, s.Save(ctx, doc))
	}
	names, err = s.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "mid", "zeta"}, names)

	require.NoError(t, s.Delete(ctx, "mid"))
	require.ErrorIs(t, s.Delete(ctx, "mid"), session.ErrNotFound)

	names, err = s.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "zeta"}, names)

	doc, err := s.Load(ctx, "mid")
	require.NoError(t, err)
	require.Zero(t, doc.Version, "deleted project loads as new")
}

func testInvalidProject(t *testing.T, s session.Store) {
	ctx := context.Background()
	for _, p := range []string{"", "../etc", ".hidden", "a/b"} {
		_, err := s.Load(ctx, p)
		require.True(t, errors.Is(err, errors.ErrCodeInvalidInput), "Load(%q) err = %v", p, err)
	}
	err := s.Save(ctx, &session.Document{Project: "ok"})
	require.True(t, errors.Is(err, errors.ErrCodeInvalidInput), "Save without model err = %v", err)
}

// testConcurrentSaves races writers on one version; exactly one may win.
func testConcurrentSaves(t *testing.T, s session.Store) {
	ctx := context.Background()
	const writers = 8

	docs := make([]*session.Document, writers)
	for i := range docs {
		doc, err := s.Load(ctx, "shared")
		require.NoError(t, err)
		docs[i] = doc
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for _, doc := range docs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Save(ctx, doc)
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			if !errors.Is(err, errors.ErrCodeConflict) {
				t.Errorf("unexpected save error: %v", err)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, wins)

	got, err := s.Load(ctx, "shared")
	require.NoError(t, err)
	require.EqualValues(t, 1, got.Version)
}

func testSessionRun(t *testing.T, s session.Store) {
	ctx := context.Background()

	var id string
	err := session.Run(ctx, s, "tx", func(sess *session.Session) error {
		id = addActivity(t, sess.Model(), "Kept").ID
		return nil
	})
	require.NoError(t, err)

	failure := errors.New(errors.ErrCodeParse, "boom")
	err = session.Run(ctx, s, "tx", func(sess *session.Session) error {
		addActivity(t, sess.Model(), "Dropped")
		return failure
	})
	require.Same(t, failure, err)

	doc, err := s.Load(ctx, "tx")
	require.NoError(t, err)
	require.EqualValues(t, 1, doc.Version)
	_, ok := doc.Model.Get(id)
	require.True(t, ok)
	require.Nil(t, doc.Model.Find(func(el *model.Element) bool { return el.Name == "Dropped" }))
}
