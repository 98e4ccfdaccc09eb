// Package session persists model stores and scopes imports to transactions.
//
// # Documents
//
// Each project is one [Document]: a [model.Model] plus a version number.
// [Store.Load] returns a fresh, empty model at version 0 when the project does
// not exist yet. [Store.Save] only succeeds if the stored version still equals
// the document's version, then bumps it; otherwise it fails with
// [ErrConflict]. That optimistic check is the only coordination between
// concurrent importers.
//
// # Backends
//
//   - [MemoryStore]: a map, for tests and the API server without persistence
//   - [FileStore]: one JSON file per project, the CLI default
//   - [RedisStore]: WATCH/MULTI transactions, for shared deployments
//   - [MongoStore]: version-filtered replaces on a collection
//
// [Open] picks a backend from a [Config]. [Observe] wraps any store so that
// loads and saves are reported to the observability hooks.
//
// # Sessions
//
// A [Session] holds a private clone of a project's model. Changes become
// visible only through [Session.Commit]; [Session.Abort] drops them. Either
// call releases the session, and every later call returns [ErrClosed].
// [Run] wraps the whole lifecycle and guarantees release on every exit path,
// panics included:
//
//	err := session.Run(ctx, store, "orders", func(s *session.Session) error {
//	    b := &graph.Builder{Model: s.Model()}
//	    _, err := b.Build(activityID, rows)
//	    return err
//	})
package session

import (
	"context"
	"slices"
	"time"

	"github.com/matzehuels/lanegrid/pkg/errors"
	"github.com/matzehuels/lanegrid/pkg/model"
)

// Sentinel errors. Backends return them directly or wrapped.
var (
	ErrConflict = errors.New(errors.ErrCodeConflict, "project was modified concurrently")
	ErrNotFound = errors.New(errors.ErrCodeNotFound, "project not found")
	ErrClosed   = errors.New(errors.ErrCodeStore, "session already closed")
)

// Document is one stored project.
type Document struct {
	Project   string       `json:"project" bson:"_id"`
	Version   int64        `json:"version" bson:"version"`
	UpdatedAt time.Time    `json:"updated_at" bson:"updated_at"`
	Model     *model.Model `json:"model" bson:"model"`
}

// NewDocument returns the document of a project that was never saved.
func NewDocument(project string) *Document {
	return &Document{Project: project, Model: model.New(project)}
}

// Store persists documents. Implementations are safe for concurrent use.
type Store interface {
	// Load returns the project's document, or a NewDocument if it does not
	// exist.
	Load(ctx context.Context, project string) (*Document, error)
	// Save writes doc if the stored version equals doc.Version and then
	// increments doc.Version and sets doc.UpdatedAt. A mismatch returns
	// ErrConflict and leaves doc unchanged.
	Save(ctx context.Context, doc *Document) error
	// Delete removes a project. Missing projects give ErrNotFound.
	Delete(ctx context.Context, project string) error
	// List returns the stored project names, sorted.
	List(ctx context.Context) ([]string, error)
	Close() error
}

func checkProject(project string) error {
	return errors.ValidateProjectName(project)
}

func checkDocument(doc *Document) error {
	if doc == nil || doc.Model == nil {
		return errors.New(errors.ErrCodeInvalidInput, "document has no model")
	}
	return checkProject(doc.Project)
}

// committed returns the state doc moves to after a successful save.
func committed(doc *Document, now time.Time) (version int64, at time.Time) {
	return doc.Version + 1, now.UTC().Truncate(time.Millisecond)
}

func sortedNames(names []string) []string {
	slices.Sort(names)
	return names
}
