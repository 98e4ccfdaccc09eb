package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/matzehuels/lanegrid/pkg/errors"
)

// FileStore keeps one JSON file per project in a directory. The version
// check is serialized by a mutex, so it protects against concurrent
// importers in one process only.
type FileStore struct {
	mu      sync.Mutex
	baseDir string
}

// DefaultDir returns ~/.config/lanegrid/projects.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeIO, err, "get home dir")
	}
	return filepath.Join(home, ".config", "lanegrid", "projects"), nil
}

// NewFileStore creates a store in baseDir, or in DefaultDir when empty.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		baseDir = dir
	}
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "create project dir")
	}
	return &FileStore{baseDir: baseDir}, nil
}

// Path returns the base directory.
func (s *FileStore) Path() string { return s.baseDir }

// ProjectPath returns the file a project is stored in.
func (s *FileStore) ProjectPath(project string) string {
	return filepath.Join(s.baseDir, project+".json")
}

func (s *FileStore) Load(ctx context.Context, project string) (*Document, error) {
	if err := checkProject(project); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read(project)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return NewDocument(project), nil
	}
	return doc, nil
}

// read returns nil, nil for a missing project.
func (s *FileStore) read(project string) (*Document, error) {
	data, err := os.ReadFile(s.ProjectPath(project))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read project %s", project)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "decode project %s", project)
	}
	if doc.Model == nil {
		return nil, errors.New(errors.ErrCodeStore, "project %s has no model", project)
	}
	return &doc, nil
}

func (s *FileStore) Save(ctx context.Context, doc *Document) error {
	if err := checkDocument(doc); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.read(doc.Project)
	if err != nil {
		return err
	}
	var stored int64
	if cur != nil {
		stored = cur.Version
	}
	if stored != doc.Version {
		return ErrConflict
	}

	version, at := committed(doc, time.Now())
	next := Document{Project: doc.Project, Version: version, UpdatedAt: at, Model: doc.Model}
	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "encode project %s", doc.Project)
	}
	if err := writeAtomic(s.ProjectPath(doc.Project), data); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write project %s", doc.Project)
	}
	doc.Version, doc.UpdatedAt = version, at
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".project-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (s *FileStore) Delete(_ context.Context, project string) error {
	if err := checkProject(project); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.ProjectPath(project))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "remove project %s", project)
	}
	return nil
}

func (s *FileStore) List(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read project dir")
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			continue
		}
		names = append(names, strings.TrimSuffix(name, ".json"))
	}
	return sortedNames(names), nil
}

func (s *FileStore) Close() error { return nil }

var _ Store = (*FileStore)(nil)
