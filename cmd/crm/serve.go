package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"crm/internal/adapters/cache"
	"crm/internal/adapters/email"
	web "crm/internal/adapters/http"
	"crm/internal/adapters/http/perf"
	"crm/internal/adapters/realtime"
	"crm/internal/adapters/storage"
	"crm/internal/adapters/token"
	"crm/internal/application/orchestrators"
	"crm/internal/domain/outbox"
)

// shutdownTimeout bounds graceful shutdown of in-flight requests.
const shutdownTimeout = 15 * time.Second

var staticDir string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server with the outbox worker and live ticket hub",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&staticDir, "static", "static", "directory served at /static/ (empty disables)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	collector := perf.NewCollector(perf.DefaultRingSize)
	stores := web.NewStores(storage.NewTimedDB(db, collector, cfg.SlowQuery()))
	if err := seedAdmin(ctx, stores); err != nil {
		return err
	}

	var c cache.Cache = cache.NewMemoryCache()
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   "crm:",
		})
		if err != nil {
			return err
		}
		defer rc.Close()
		c = rc
		slog.Info("cache_event", "event", "redis", "addr", cfg.Redis.Addr)
	}

	var tokens *token.Issuer
	if cfg.JWTSecret != "" {
		tokens, err = token.NewIssuer(cfg.JWTSecret, 12*time.Hour)
		if err != nil {
			return err
		}
	}

	sender := email.New(email.Config{ResendKey: cfg.Email.ResendKey, From: cfg.Email.From, ReplyTo: cfg.Email.ReplyTo})
	if cfg.Email.ResendKey == "" {
		slog.Warn("email_event", "event", "noop_sender", "production", cfg.IsProduction())
	}
	processor := orchestrators.NewOutboxProcessor(stores.OutboxStore, map[string]orchestrators.ActionExecutor{
		outbox.ActionTypeEmail: &orchestrators.EmailExecutor{Sender: sender},
	}, orchestrators.OutboxOptions{
		BaseDelay: cfg.Outbox.BaseDelay,
		MaxDelay:  cfg.Outbox.MaxDelay,
		BatchSize: cfg.Outbox.BatchSize,
	})

	hub := realtime.NewHub(originChecker(cfg.Origins))

	handler := web.NewMux(stores, web.Options{
		StaticDir:          staticDir,
		CSRFKey:            cfg.CSRFKeyBytes(),
		SecureCookies:      cfg.IsProduction(),
		TrustedOrigins:     cfg.Origins,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		SlowRequest:        cfg.SlowRequest(),
		BaseURL:            cfg.Email.BaseURL,
		DefaultRadiusKm:    cfg.Studio.DefaultRadiusKm,
		DashboardTTL:       cfg.DashboardCacheTTL,
		Cache:              c,
		Tokens:             tokens,
		Hub:                hub,
		Outbox:             processor,
		Perf:               collector,
	})
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	interval := cfg.Outbox.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	g.Go(func() error {
		processor.Run(gctx, interval)
		return nil
	})
	g.Go(func() error {
		slog.Info("server_event", "event", "listening", "addr", cfg.Addr, "version", version, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		slog.Info("server_event", "event", "shutting_down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// originChecker allows websocket upgrades from the request's own host and
// from the configured origins (host[:port]).
func originChecker(origins []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host || slices.Contains(origins, u.Host)
	}
}
