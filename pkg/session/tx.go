package session

import (
	"context"

	"github.com/matzehuels/lanegrid/pkg/errors"
	"github.com/matzehuels/lanegrid/pkg/model"
)

// Session is one transaction against a project. It is not safe for
// concurrent use.
type Session struct {
	store   Store
	project string
	version int64
	model   *model.Model
	closed  bool
}

// Begin loads project from store and returns a session over a private clone
// of its model.
func Begin(ctx context.Context, store Store, project string) (*Session, error) {
	doc, err := store.Load(ctx, project)
	if err != nil {
		return nil, err
	}
	return &Session{
		store:   store,
		project: doc.Project,
		version: doc.Version,
		model:   doc.Model.Clone(),
	}, nil
}

// Model returns the working copy. Changes are kept only by Commit.
func (s *Session) Model() *model.Model { return s.model }

// Project returns the project name.
func (s *Session) Project() string { return s.project }

// Version returns the version the session was opened at, or after a
// successful Commit the version it wrote.
func (s *Session) Version() int64 { return s.version }

// Closed reports whether Commit or Abort has been called.
func (s *Session) Closed() bool { return s.closed }

// Commit saves the working copy and releases the session. The session is
// released even when the save fails.
func (s *Session) Commit(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	doc := &Document{Project: s.project, Version: s.version, Model: s.model}
	if err := s.store.Save(ctx, doc); err != nil {
		return err
	}
	s.version = doc.Version
	return nil
}

// Abort releases the session without saving.
func (s *Session) Abort() error {
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	s.model = nil
	return nil
}

// Run opens a session, calls fn and commits if fn succeeds. If fn returns an
// error or panics the session is aborted; a panic is re-raised after the
// abort. Errors from fn that carry a code are returned unchanged, others are
// wrapped as INTERNAL_ERROR.
func Run(ctx context.Context, store Store, project string, fn func(*Session) error) (err error) {
	s, err := Begin(ctx, store, project)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			_ = s.Abort()
			panic(r)
		}
	}()

	if err := fn(s); err != nil {
		_ = s.Abort()
		if errors.GetCode(err) != "" {
			return err
		}
		return errors.Wrap(errors.ErrCodeInternal, err, "import into %s", project)
	}
	return s.Commit(ctx)
}
