package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/clinic-scheduler/cmd/mainconfig"
	"github.com/wolfman30/clinic-scheduler/internal/api/router"
	"github.com/wolfman30/clinic-scheduler/internal/app/bootstrap"
	appconfig "github.com/wolfman30/clinic-scheduler/internal/config"
	"github.com/wolfman30/clinic-scheduler/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/clinic-scheduler/internal/http/middleware"
	"github.com/wolfman30/clinic-scheduler/internal/scheduling"
	"github.com/wolfman30/clinic-scheduler/internal/submission"
	"github.com/wolfman30/clinic-scheduler/internal/web"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

func main() {
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-scheduler API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var awsCfg *aws.Config
	if mainconfig.NeedsAWS(cfg) {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		awsCfg = &loaded
	}

	registry, metricsHandler := setupMetrics()
	rt, err := bootstrap.NewRuntime(ctx, cfg, logger, bootstrap.Options{
		AWS:                     awsCfg,
		Registerer:              registry,
		VerifyRedis:             true,
		// Without the in-process worker, reminders must reach a separate worker.
		RequireDurableReminders: !cfg.RunReminderWorker,
	})
	if err != nil {
		logger.Error("failed to build runtime", "error", err)
		os.Exit(1)
	}
	defer rt.Close()

	limiter := httpmiddleware.NewRateLimiter(cfg.ScheduleRateLimit, cfg.ScheduleRateBurst)
	defer limiter.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      buildRouter(rt, limiter, metricsHandler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if cfg.RunReminderWorker {
		worker := rt.NewWorker()
		go worker.Run(ctx)
		logger.Info("reminder worker running in-process", "interval", cfg.ReminderPollInterval)
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics returns a private registry with runtime collectors and its scrape handler.
func setupMetrics() (*prometheus.Registry, http.Handler) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry, promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

// buildRouter mounts the form, the scheduling API and the admin surface.
// The form submits through the same HTTP contract external clients use.
func buildRouter(rt *bootstrap.Runtime, limiter *httpmiddleware.RateLimiter, metricsHandler http.Handler) http.Handler {
	cfg := rt.Config
	client := submission.NewClient(submission.ClientConfig{
		BaseURL: cfg.SchedulerBaseURL,
		Timeout: cfg.SchedulerTimeout,
		Logger:  rt.Logger,
	})

	health := handlers.NewHealthHandler(rt.Logger)
	if rt.Redis != nil {
		health.WithCheck("redis", func(ctx context.Context) error {
			return rt.Redis.Ping(ctx).Err()
		})
	}
	if rt.Postgres != nil {
		health.WithCheck("postgres", rt.Postgres.Ping)
	}

	return router.New(&router.Config{
		Logger: rt.Logger,
		Web: web.NewHandler(web.Config{
			Scheduler:  client,
			ClinicName: cfg.ClinicName,
			Metrics:    rt.Metrics,
			Logger:     rt.Logger,
		}),
		Scheduling:         scheduling.NewHandler(rt.Scheduling, rt.Logger),
		Admin:              handlers.NewAdminHandler(rt.Appointments, rt.Reminders, rt.Logger),
		Health:             health,
		ScheduleLimiter:    limiter,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})
}
