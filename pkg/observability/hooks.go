// Package observability provides hooks for metrics and tracing.
//
// Libraries emit events through small hook interfaces; the binary decides
// where they go. Every interface has a no-op implementation, and the global
// registry starts out with those, so nothing is recorded unless main
// registers something. [NewPrometheus] returns one value implementing every
// interface.
//
// # Usage
//
// Register hooks at startup:
//
//	p := observability.NewPrometheus(prometheus.DefaultRegisterer)
//	observability.SetImportHooks(p)
//	observability.SetStoreHooks(p)
//
// Libraries call hooks around the work they do:
//
//	start := time.Now()
//	recs, err := rows.Parse(r, format, opts)
//	observability.Import().OnParseComplete(ctx, string(format), len(recs), time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Import Hooks
// =============================================================================

// ImportHooks receives events from the import pipeline.
type ImportHooks interface {
	OnParseStart(ctx context.Context, format string)
	OnParseComplete(ctx context.Context, format string, rows int, duration time.Duration, err error)

	// OnBuildComplete reports the node counts of one build.
	OnBuildComplete(ctx context.Context, project string, imported, reused, orphans int, duration time.Duration, err error)
	OnLayoutComplete(ctx context.Context, nodes int, duration time.Duration, err error)

	// OnCommit reports the end of the import's session, committed or not.
	OnCommit(ctx context.Context, project string, duration time.Duration, err error)

	OnRenderComplete(ctx context.Context, format string, duration time.Duration, err error)
}

// =============================================================================
// Store Hooks
// =============================================================================

// StoreHooks receives events from model store backends.
type StoreHooks interface {
	OnLoad(ctx context.Context, backend, project string, duration time.Duration, err error)
	OnSave(ctx context.Context, backend, project string, duration time.Duration, err error)
	// OnConflict records a save rejected because the stored version moved.
	OnConflict(ctx context.Context, backend, project string)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from artifact cache lookups.
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the API server.
type HTTPHooks interface {
	// OnResponse records a served request. route is the router pattern,
	// not the raw path.
	OnResponse(ctx context.Context, method, route string, status int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopImportHooks is a no-op implementation of ImportHooks.
type NoopImportHooks struct{}

func (NoopImportHooks) OnParseStart(context.Context, string)                               {}
func (NoopImportHooks) OnParseComplete(context.Context, string, int, time.Duration, error) {}
func (NoopImportHooks) OnBuildComplete(context.Context, string, int, int, int, time.Duration, error) {
}
func (NoopImportHooks) OnLayoutComplete(context.Context, int, time.Duration, error)    {}
func (NoopImportHooks) OnCommit(context.Context, string, time.Duration, error)         {}
func (NoopImportHooks) OnRenderComplete(context.Context, string, time.Duration, error) {}

// NoopStoreHooks is a no-op implementation of StoreHooks.
type NoopStoreHooks struct{}

func (NoopStoreHooks) OnLoad(context.Context, string, string, time.Duration, error) {}
func (NoopStoreHooks) OnSave(context.Context, string, string, time.Duration, error) {}
func (NoopStoreHooks) OnConflict(context.Context, string, string)                   {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	importHooks ImportHooks = NoopImportHooks{}
	storeHooks  StoreHooks  = NoopStoreHooks{}
	cacheHooks  CacheHooks  = NoopCacheHooks{}
	httpHooks   HTTPHooks   = NoopHTTPHooks{}
	hooksMu     sync.RWMutex
)

// SetImportHooks registers import hooks. Nil is ignored.
func SetImportHooks(h ImportHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		importHooks = h
	}
}

// SetStoreHooks registers store hooks. Nil is ignored.
func SetStoreHooks(h StoreHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		storeHooks = h
	}
}

// SetCacheHooks registers cache hooks. Nil is ignored.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers HTTP hooks. Nil is ignored.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Import returns the registered import hooks.
func Import() ImportHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return importHooks
}

// Store returns the registered store hooks.
func Store() StoreHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return storeHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	importHooks = NoopImportHooks{}
	storeHooks = NoopStoreHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
