package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/lanegrid/pkg/cache"
	"github.com/matzehuels/lanegrid/pkg/errors"
)

// DefaultRedisPrefix namespaces project keys.
const DefaultRedisPrefix = "lanegrid:project:"

// RedisStore keeps each document as a JSON string. Saves run in a
// WATCH/MULTI transaction on the project key; a transaction aborted by a
// concurrent write is retried with backoff, and the version check then
// decides between success and ErrConflict.
type RedisStore struct {
	client  redis.UniversalClient
	prefix  string
	backoff cache.Backoff
	owned   bool
}

// RedisConfig configures NewRedisStore.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedisStore connects to Redis and pings it.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(errors.ErrCodeStore, err, "connect to redis at %s", cfg.Addr)
	}
	s := NewRedisStoreFromClient(client, cfg.Prefix)
	s.owned = true
	return s, nil
}

// NewRedisStoreFromClient wraps an existing client; Close leaves it open.
// An empty prefix means DefaultRedisPrefix.
func NewRedisStoreFromClient(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix, backoff: cache.DefaultBackoff}
}

func (s *RedisStore) key(project string) string { return s.prefix + project }

func (s *RedisStore) Load(ctx context.Context, project string) (*Document, error) {
	if err := checkProject(project); err != nil {
		return nil, err
	}
	doc, err := s.get(ctx, s.client, project)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return NewDocument(project), nil
	}
	return doc, nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// get returns nil, nil when the key does not exist.
func (s *RedisStore) get(ctx context.Context, c getter, project string) (*Document, error) {
	data, err := c.Get(ctx, s.key(project)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "get project %s", project)
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

func (s *RedisStore) Save(ctx context.Context, doc *Document) error {
	if err := checkDocument(doc); err != nil {
		return err
	}
	version, at := committed(doc, time.Now())
	data, err := json.Marshal(Document{Project: doc.Project, Version: version, UpdatedAt: at, Model: doc.Model})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "encode project %s", doc.Project)
	}
	key := s.key(doc.Project)

	txn := func(tx *redis.Tx) error {
		cur, err := s.get(ctx, tx, doc.Project)
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
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	err = s.backoff.Retry(ctx, func() error {
		err := s.client.Watch(ctx, txn, key)
		if stderrors.Is(err, redis.TxFailedErr) {
			return cache.Retryable(err)
		}
		return err
	})
	switch {
	case err == nil:
		doc.Version, doc.UpdatedAt = version, at
		return nil
	case stderrors.Is(err, ErrConflict):
		return ErrConflict
	case stderrors.Is(err, redis.TxFailedErr):
		return errors.Wrap(errors.ErrCodeConflict, err, "save project %s", doc.Project)
	case errors.GetCode(err) != "":
		return err
	}
	return errors.Wrap(errors.ErrCodeStore, err, "save project %s", doc.Project)
}

func (s *RedisStore) Delete(ctx context.Context, project string) error {
	if err := checkProject(project); err != nil {
		return err
	}
	n, err := s.client.Del(ctx, s.key(project)).Result()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "delete project %s", project)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	var names []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		names = append(names, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "scan projects")
	}
	return sortedNames(names), nil
}

// Close closes the client if the store created it.
func (s *RedisStore) Close() error {
	if s.owned {
		return s.client.Close()
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
