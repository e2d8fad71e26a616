package faas

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Run serves h through the JSON pipeline using cfg. It blocks until ctx is
// cancelled or the listener fails.
func Run[Req, Resp any](ctx context.Context, cfg Config, h Handler[Req, Resp]) error {
	rt, err := newApp(cfg)
	if err != nil {
		return err
	}
	return rt.run(ctx, New(h, rt.opts...))
}

// RunRaw serves h through the raw-body pipeline using cfg.
func RunRaw[Resp any](ctx context.Context, cfg Config, h Handler[*Request, Resp]) error {
	rt, err := newApp(cfg)
	if err != nil {
		return err
	}
	return rt.run(ctx, NewRaw(h, rt.opts...))
}

type app struct {
	cfg      Config
	logger   *slog.Logger
	registry *prometheus.Registry
	opts     []Option
}

func newApp(cfg Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, err := ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := NewLogger(os.Stderr, level)

	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	opts = append(opts, WithLogger(logger))

	rt := &app{cfg: cfg, logger: logger, opts: opts}
	if cfg.MetricsAddr != "" {
		rt.registry = prometheus.NewRegistry()
		rt.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		rt.opts = append(rt.opts, WithMetrics(NewMetrics(rt.registry, "faas")))
	}
	return rt, nil
}

func (rt *app) run(ctx context.Context, h http.Handler) error {
	if rt.registry != nil {
		go func() {
			if err := serveMetrics(ctx, rt.cfg, rt.registry, rt.logger); err != nil {
				rt.logger.Error("metrics server error", "err", err)
			}
		}()
	}
	return ListenAndServe(ctx, rt.cfg, h, rt.logger)
}

// ListenAndServe binds cfg.Addr and serves h on it.
func ListenAndServe(ctx context.Context, cfg Config, h http.Handler, logger *slog.Logger) error {
	logger.Info("starting service", "addr", cfg.Addr)

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", cfg.Addr)
	if err != nil {
		logger.Error("server error", "err", err)
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	return Serve(ctx, ln, cfg, h, logger)
}

// Serve accepts connections on ln until ctx is cancelled or accepting fails.
// Each connection and each request runs on its own goroutine; a failing
// request never stops the loop. On cancellation in-flight requests are given
// cfg.ShutdownTimeout to finish.
func Serve(ctx context.Context, ln net.Listener, cfg Config, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	logger.Info("server awaiting requests", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		logger.Error("server error", "err", err)
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		logger.Info("server stopped")
		return err
	}
}

func serveMetrics(ctx context.Context, cfg Config, g prometheus.Gatherer, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", MetricsHandler(g))

	srv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("metrics listening", "addr", cfg.MetricsAddr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
