package bootstrap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	appconfig "github.com/wolfman30/clinic-scheduler/internal/config"
	"github.com/wolfman30/clinic-scheduler/internal/messaging"
	"github.com/wolfman30/clinic-scheduler/internal/notify"
	"github.com/wolfman30/clinic-scheduler/internal/observability/metrics"
	"github.com/wolfman30/clinic-scheduler/internal/reminders"
	"github.com/wolfman30/clinic-scheduler/internal/scheduling"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildPostgresPool opens a pool when DATABASE_URL is set. It returns nil, nil otherwise.
func BuildPostgresPool(ctx context.Context, cfg *appconfig.Config) (*pgxpool.Pool, error) {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	return pool, nil
}

// BuildAppointmentRepository prefers Postgres, then DynamoDB, then memory.
func BuildAppointmentRepository(cfg *appconfig.Config, db appointments.DB, awsCfg *aws.Config, logger *logging.Logger) (appointments.Repository, string) {
	if logger == nil {
		logger = logging.Default()
	}
	if db != nil {
		return appointments.NewPostgresRepository(db), "postgres"
	}
	if cfg != nil && strings.TrimSpace(cfg.AppointmentsTable) != "" {
		if awsCfg != nil {
			return appointments.NewDynamoRepository(dynamodb.NewFromConfig(*awsCfg), cfg.AppointmentsTable), "dynamodb"
		}
		logger.Warn("appointments table configured without aws config; using memory", "table", cfg.AppointmentsTable)
	}
	return appointments.NewInMemoryRepository(), "memory"
}

// BuildReminderStore returns the Redis store when a client is available.
func BuildReminderStore(redisClient *redis.Client) (reminders.Store, string) {
	if redisClient == nil {
		return reminders.NewMemoryStore(), "memory"
	}
	return reminders.NewRedisStore(redisClient), "redis"
}

// BuildDispatcher wires the reminder transports that have credentials.
func BuildDispatcher(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (*reminders.Dispatcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	loc, err := cfg.ClinicLocation()
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	renderer, err := reminders.NewRenderer(cfg.ClinicName, loc)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: reminder templates: %w", err)
	}
	dcfg := reminders.DispatcherConfig{Renderer: renderer, Logger: logger}

	if strings.TrimSpace(cfg.TwilioAccountSID) != "" && strings.TrimSpace(cfg.TwilioAuthToken) != "" {
		twilio, err := messaging.NewTwilioClient(messaging.TwilioConfig{
			AccountSID:     cfg.TwilioAccountSID,
			AuthToken:      cfg.TwilioAuthToken,
			FromNumber:     cfg.TwilioFromNumber,
			WhatsAppNumber: cfg.TwilioWhatsAppNumber,
			Logger:         logger,
		})
		if err != nil {
			return nil, fmt.Errorf("bootstrap: twilio: %w", err)
		}
		dcfg.SMS = twilio
		dcfg.WhatsApp = twilio
		dcfg.Voice = twilio
	} else {
		logger.Warn("twilio credentials missing; sms, whatsapp and voice reminders disabled")
	}

	providerCfg := notify.ProviderConfig{
		Provider: cfg.EmailProvider,
		SendGrid: notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		},
		SES: notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.ClinicName,
		},
	}
	if awsCfg != nil && strings.TrimSpace(cfg.SESFromEmail) != "" {
		providerCfg.SESClient = sesv2.NewFromConfig(*awsCfg)
	}
	email, provider := notify.NewEmailSender(providerCfg, logger)
	dcfg.Email = email
	logger.Info("email provider selected", "provider", provider)

	return reminders.NewDispatcher(dcfg), nil
}

// Options carries the optional collaborators of a Runtime.
type Options struct {
	// AWS is required for DynamoDB and SES. Nil disables both.
	AWS        *aws.Config
	Registerer prometheus.Registerer
	// VerifyRedis pings Redis at startup. A configured but unreachable Redis
	// fails NewRuntime.
	VerifyRedis bool
	// RequireDurableReminders fails NewRuntime when reminders would only be held
	// in process memory, for processes that never run the worker themselves.
	RequireDurableReminders bool
}

// ErrNonDurableReminders is returned when reminders need a shared store but
// none is configured.
var ErrNonDurableReminders = errors.New("bootstrap: reminders require REDIS_ADDR when no in-process worker runs")

// Runtime is the fully wired scheduling backend shared by the binaries.
type Runtime struct {
	Config       *appconfig.Config
	Logger       *logging.Logger
	Metrics      *metrics.SchedulingMetrics
	Redis        *redis.Client
	Postgres     *pgxpool.Pool
	Appointments appointments.Repository
	Reminders    reminders.Store
	Scheduler    *reminders.Scheduler
	Dispatcher   *reminders.Dispatcher
	Scheduling   *scheduling.Service
}

// NewRuntime builds every backend component from configuration.
func NewRuntime(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, opts Options) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	loc, err := cfg.ClinicLocation()
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	rt := &Runtime{
		Config: cfg,
		Logger: logger,
	}

	pool, err := BuildPostgresPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	rt.Postgres = pool

	var db appointments.DB
	if pool != nil {
		db = pool
	}
	repo, repoKind := BuildAppointmentRepository(cfg, db, opts.AWS, logger)
	rt.Appointments = repo

	rt.Redis = BuildRedisClient(ctx, cfg, logger, opts.VerifyRedis)
	if rt.Redis == nil && strings.TrimSpace(cfg.RedisAddr) != "" {
		rt.Close()
		return nil, fmt.Errorf("bootstrap: redis at %s is unreachable", cfg.RedisAddr)
	}
	store, storeKind := BuildReminderStore(rt.Redis)
	if opts.RequireDurableReminders && rt.Redis == nil {
		rt.Close()
		return nil, ErrNonDurableReminders
	}
	rt.Reminders = store

	dispatcher, err := BuildDispatcher(cfg, opts.AWS, logger)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Dispatcher = dispatcher

	rt.Metrics = metrics.NewSchedulingMetrics(opts.Registerer)
	rt.Scheduler = reminders.NewScheduler(store, cfg.ReminderLead, logger)
	rt.Scheduling = scheduling.NewService(scheduling.Config{
		Repository: repo,
		Reminders:  rt.Scheduler,
		Location:   loc,
		Metrics:    rt.Metrics,
		Logger:     logger,
	})

	logger.Info("runtime ready",
		"appointments", repoKind,
		"reminders", storeKind,
		"timezone", loc.String(),
	)
	return rt, nil
}

// NewWorker returns a reminder worker tuned from configuration.
func (rt *Runtime) NewWorker() *reminders.Worker {
	return reminders.NewWorker(rt.Reminders, rt.Dispatcher, rt.Logger).
		WithMaxAttempts(rt.Config.ReminderMaxAttempts).
		WithBaseDelay(rt.Config.ReminderRetryBaseDelay).
		WithInterval(rt.Config.ReminderPollInterval).
		WithBatchSize(rt.Config.ReminderBatchSize).
		WithMetrics(rt.Metrics)
}

// Close releases connections held by the runtime.
func (rt *Runtime) Close() {
	if rt == nil {
		return
	}
	if rt.Redis != nil {
		if err := rt.Redis.Close(); err != nil {
			rt.Logger.Warn("failed to close redis", "error", err)
		}
	}
	if rt.Postgres != nil {
		rt.Postgres.Close()
	}
}
