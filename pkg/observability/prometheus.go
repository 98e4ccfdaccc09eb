package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/lanegrid/pkg/errors"
)

const namespace = "lanegrid"

// Prometheus records every hook event as Prometheus metrics. It implements
// ImportHooks, StoreHooks, CacheHooks and HTTPHooks.
type Prometheus struct {
	stageDuration *prometheus.HistogramVec
	stageErrors   *prometheus.CounterVec
	rowsParsed    prometheus.Counter
	nodes         *prometheus.CounterVec
	storeDuration *prometheus.HistogramVec
	storeErrors   *prometheus.CounterVec
	conflicts     *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	cacheBytes    *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// NewPrometheus creates the collectors and registers them with reg.
// It panics if a collector is already registered, like MustRegister.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "import_stage_duration_seconds",
			Help:      "Duration of import pipeline stages.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		stageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_stage_errors_total",
			Help:      "Failed import pipeline stages by error code.",
		}, []string{"stage", "code"}),
		rowsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_parsed_total",
			Help:      "Activity rows read from input files.",
		}),
		nodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_nodes_total",
			Help:      "Nodes produced by imports, by outcome.",
		}, []string{"outcome"}),
		storeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Duration of model store operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend", "op"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Failed model store operations.",
		}, []string{"backend", "op"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_conflicts_total",
			Help:      "Saves rejected by the version check.",
		}, []string{"backend"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Artifact cache lookups by result.",
		}, []string{"key_type", "result"}),
		cacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the artifact cache.",
		}, []string{"key_type"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(
		p.stageDuration, p.stageErrors, p.rowsParsed, p.nodes,
		p.storeDuration, p.storeErrors, p.conflicts,
		p.cacheLookups, p.cacheBytes, p.httpDuration,
	)
	return p
}

// Register installs p in the global hook registry.
func (p *Prometheus) Register() {
	SetImportHooks(p)
	SetStoreHooks(p)
	SetCacheHooks(p)
	SetHTTPHooks(p)
}

func (p *Prometheus) stage(name string, d time.Duration, err error) {
	p.stageDuration.WithLabelValues(name).Observe(d.Seconds())
	if err != nil {
		p.stageErrors.WithLabelValues(name, errorCode(err)).Inc()
	}
}

// =============================================================================
// ImportHooks
// =============================================================================

func (p *Prometheus) OnParseStart(context.Context, string) {}

func (p *Prometheus) OnParseComplete(_ context.Context, _ string, rows int, d time.Duration, err error) {
	p.stage("parse", d, err)
	p.rowsParsed.Add(float64(rows))
}

func (p *Prometheus) OnBuildComplete(_ context.Context, _ string, imported, reused, orphans int, d time.Duration, err error) {
	p.stage("build", d, err)
	p.nodes.WithLabelValues("created").Add(float64(imported - reused))
	p.nodes.WithLabelValues("reused").Add(float64(reused))
	p.nodes.WithLabelValues("orphaned").Add(float64(orphans))
}

func (p *Prometheus) OnLayoutComplete(_ context.Context, _ int, d time.Duration, err error) {
	p.stage("layout", d, err)
}

func (p *Prometheus) OnCommit(_ context.Context, _ string, d time.Duration, err error) {
	p.stage("commit", d, err)
}

func (p *Prometheus) OnRenderComplete(_ context.Context, _ string, d time.Duration, err error) {
	p.stage("render", d, err)
}

// =============================================================================
// StoreHooks
// =============================================================================

func (p *Prometheus) OnLoad(_ context.Context, backend, _ string, d time.Duration, err error) {
	p.storeOp(backend, "load", d, err)
}

func (p *Prometheus) OnSave(_ context.Context, backend, _ string, d time.Duration, err error) {
	p.storeOp(backend, "save", d, err)
}

func (p *Prometheus) OnConflict(_ context.Context, backend, _ string) {
	p.conflicts.WithLabelValues(backend).Inc()
}

func (p *Prometheus) storeOp(backend, op string, d time.Duration, err error) {
	p.storeDuration.WithLabelValues(backend, op).Observe(d.Seconds())
	if err != nil {
		p.storeErrors.WithLabelValues(backend, op).Inc()
	}
}

// =============================================================================
// CacheHooks and HTTPHooks
// =============================================================================

func (p *Prometheus) OnCacheHit(_ context.Context, keyType string) {
	p.cacheLookups.WithLabelValues(keyType, "hit").Inc()
}

func (p *Prometheus) OnCacheMiss(_ context.Context, keyType string) {
	p.cacheLookups.WithLabelValues(keyType, "miss").Inc()
}

func (p *Prometheus) OnCacheSet(_ context.Context, keyType string, size int) {
	p.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (p *Prometheus) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	p.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

func errorCode(err error) string {
	if code := errors.GetCode(err); code != "" {
		return string(code)
	}
	return "UNKNOWN"
}

var (
	_ ImportHooks = (*Prometheus)(nil)
	_ StoreHooks  = (*Prometheus)(nil)
	_ CacheHooks  = (*Prometheus)(nil)
	_ HTTPHooks   = (*Prometheus)(nil)
)
