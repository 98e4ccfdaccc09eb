package cli

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/matzehuels/lanegrid/internal/api"
	"github.com/matzehuels/lanegrid/pkg/cache"
	"github.com/matzehuels/lanegrid/pkg/errors"
	"github.com/matzehuels/lanegrid/pkg/observability"
	"github.com/matzehuels/lanegrid/pkg/pipeline"
	"github.com/matzehuels/lanegrid/pkg/session"
)

// artifactPrefix namespaces rendered artifacts when Redis backs the store.
const artifactPrefix = "lanegrid:artifact:"

// serveCommand runs the HTTP API until the command context is canceled.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		noMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if addr == "" {
				addr = c.Config.Server.Addr
			}
			runner, err := c.serverRunner(ctx)
			if err != nil {
				return err
			}
			defer runner.Close()

			opts := api.Options{
				Defaults:       c.pipelineOptions(ctx),
				MaxUploadBytes: int64(c.Config.Server.MaxUploadMiB) << 20,
				Logger:         loggerFromContext(ctx),
			}
			if !noMetrics {
				observability.NewPrometheus(prometheus.DefaultRegisterer).Register()
				opts.Metrics = promhttp.Handler()
			}

			printInfo("Serving on %s (store: %s)", addr, c.Config.Store.Backend)
			return api.New(runner, opts).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "do not expose /metrics")
	return cmd
}

// serverRunner shares one Redis client between the store and the artifact
// cache when the redis backend is configured.
func (c *CLI) serverRunner(ctx context.Context) (*pipeline.Runner, error) {
	cfg := c.Config.Store
	if cfg.Backend != session.BackendRedis {
		return c.newRunner(ctx, false)
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(errors.ErrCodeStore, err, "connect to redis at %s", cfg.RedisAddr)
	}
	store := session.Observe(session.NewRedisStoreFromClient(client, ""), session.BackendRedis)
	runner := pipeline.NewRunner(&closingStore{Store: store, client: client}, cache.NewRedisCache(client, artifactPrefix), nil, loggerFromContext(ctx))
	runner.TTL = c.Config.CacheTTL()
	return runner, nil
}

// closingStore closes the shared Redis client after the store.
type closingStore struct {
	session.Store
	client *redis.Client
}

func (s *closingStore) Close() error {
	err := s.Store.Close()
	if cerr := s.client.Close(); err == nil {
		err = cerr
	}
	return err
}

func (s *closingStore) Unwrap() session.Store { return s.Store }
