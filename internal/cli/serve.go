package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stemma/internal/server"
	"github.com/matzehuels/stemma/pkg/cache"
	"github.com/matzehuels/stemma/pkg/observability"
)

const (
	defaultAddr     = ":8080"
	shutdownTimeout = 10 * time.Second
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr        string // listen address
	redisURL    string // shared response cache; empty disables caching
	cachePrefix string // key namespace inside a shared Redis
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{addr: defaultAddr}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP collation service",
		Long: `Serve collates CollateX JSON posted to /collate and answers with the
alignment table and the transpositions found. /healthz reports liveness and
/metrics exposes Prometheus metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", opts.addr, "listen address")
	cmd.Flags().StringVar(&opts.redisURL, "redis-url", "", "Redis URL for the shared response cache (e.g. redis://localhost:6379/0)")
	cmd.Flags().StringVar(&opts.cachePrefix, "cache-prefix", "", "namespace for cache keys in a shared Redis")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewPrometheus(reg)
	observability.SetCollationHooks(metrics)
	observability.SetCacheHooks(metrics)
	observability.SetServerHooks(metrics)
	defer observability.Reset()

	var (
		store cache.Cache = cache.NewNullCache()
		keyer             = cache.NewDefaultKeyer()
	)
	if opts.redisURL != "" {
		rc, err := cache.NewRedisCache(ctx, opts.redisURL)
		if err != nil {
			return err
		}
		store = cache.WithHooks(rc)
		c.Logger.Info("using redis cache", "url", opts.redisURL)
	}
	if opts.cachePrefix != "" {
		keyer = cache.NewScopedKeyer(keyer, opts.cachePrefix)
	}

	srv := server.New(server.Config{Cache: store, Keyer: keyer, Logger: c.Logger, Gatherer: reg})
	defer srv.Close()

	ln, err := net.Listen("tcp", opts.addr)
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	printSuccess("Listening on %s", StyleLink.Render("http://"+ln.Addr().String()))
	printKeyValue("collate", "POST /collate")
	printKeyValue("health", "GET /healthz")
	printKeyValue("metrics", "GET /metrics")

	errc := make(chan error, 1)
	go func() { errc <- httpServer.Serve(ln) }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	c.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
