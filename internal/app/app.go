package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/olienttech/portal/internal/authz"
	"github.com/olienttech/portal/internal/handler"
	"github.com/olienttech/portal/internal/session"
	"github.com/olienttech/portal/internal/upstream"
	"github.com/olienttech/portal/pkg/health"
	"github.com/olienttech/portal/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr), zap.String("upstream", cfg.UpstreamURL))

	client, err := upstream.NewClient(cfg.UpstreamURL,
		upstream.WithTelemetry(m.TracerProvider(), m.MeterProvider()))
	if err != nil {
		return errors.Wrap(err, "create upstream client")
	}

	enforcer, err := authz.New()
	if err != nil {
		return errors.Wrap(err, "create authz enforcer")
	}

	// Health check service: alive unless leaking goroutines, ready while the
	// upstream API answers.
	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddReadinessCheck("upstream", 5*time.Second,
		health.HTTPGetCheck(http.DefaultClient, cfg.UpstreamURL+"/health"))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	h := handler.New(
		handler.Config{ComposerTTL: cfg.ComposerTTL},
		client,
		session.NewVerifier([]byte(cfg.TokenSecret)),
		enforcer,
	)
	h.StartCleanup(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/", h.Routes())

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		// Logger injection comes first so the recovery and throttling
		// middlewares report through the request-scoped logger.
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Recovery(),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Limit:  cfg.RateLimit.Limit,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.LogRequests(),
		),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		// Graceful shutdown: flip readiness, let load balancers drain, then stop.
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		return nil
	})
	return g.Wait()
}
