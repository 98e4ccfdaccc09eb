// Package cache stores rendered artifacts and provides retry helpers for the
// model stores.
//
// # Caches
//
// A [Cache] maps string keys to byte slices with an optional TTL. Three
// implementations are provided:
//
//   - [FileCache]: one JSON file per key under a directory, for the CLI
//   - [RedisCache]: a Redis keyspace, for the HTTP server
//   - [NullCache]: stores nothing, for tests or when caching is disabled
//
// # Keys
//
// A [Keyer] derives keys. Artifact keys hash the exported graph document
// together with the render options, so a change to either produces a new
// key and stale artifacts simply expire. [ScopedKeyer] prefixes every key
// with a project namespace.
//
// # Retries
//
// [RetryWithBackoff] re-runs a function while it fails with an error wrapped
// by [Retryable]. The Redis store uses it for optimistic transactions that
// lost a race.
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with expiring entries.
type Cache interface {
	// Get returns the value and true on a hit. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Keyer derives cache keys.
type Keyer interface {
	// ArtifactKey identifies a rendered artifact of a graph document.
	ArtifactKey(documentHash string, opts ArtifactKeyOpts) string
	// DocumentKey identifies the exported document of one activity at one
	// store version.
	DocumentKey(project, activityID string, version int64) string
}

// ArtifactKeyOpts holds every render option that changes the artifact.
type ArtifactKeyOpts struct {
	Format   string  `json:"format"`
	Detailed bool    `json:"detailed,omitempty"`
	NoPorts  bool    `json:"no_ports,omitempty"`
	Title    string  `json:"title,omitempty"`
	Scale    float64 `json:"scale,omitempty"`
}

// DefaultKeyer is the standard Keyer.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// ArtifactKey implements Keyer.
func (DefaultKeyer) ArtifactKey(documentHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", documentHash, opts)
}

// DocumentKey implements Keyer.
func (DefaultKeyer) DocumentKey(project, activityID string, version int64) string {
	return hashKey("document", project, activityID, version)
}
