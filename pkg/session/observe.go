package session

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/matzehuels/lanegrid/pkg/observability"
)

type observed struct {
	Store
	backend string
}

// Observe reports every Load and Save of s to observability.Store(), labeled
// with backend.
func Observe(s Store, backend string) Store {
	return &observed{Store: s, backend: backend}
}

func (o *observed) Load(ctx context.Context, project string) (*Document, error) {
	start := time.Now()
	doc, err := o.Store.Load(ctx, project)
	observability.Store().OnLoad(ctx, o.backend, project, time.Since(start), err)
	return doc, err
}

func (o *observed) Save(ctx context.Context, doc *Document) error {
	start := time.Now()
	err := o.Store.Save(ctx, doc)
	project := ""
	if doc != nil {
		project = doc.Project
	}
	observability.Store().OnSave(ctx, o.backend, project, time.Since(start), err)
	if stderrors.Is(err, ErrConflict) {
		observability.Store().OnConflict(ctx, o.backend, project)
	}
	return err
}

func (o *observed) Unwrap() Store { return o.Store }

// Unwrap returns the backend under any Observe wrappers.
func Unwrap(s Store) Store {
	for {
		u, ok := s.(interface{ Unwrap() Store })
		if !ok {
			return s
		}
		s = u.Unwrap()
	}
}
