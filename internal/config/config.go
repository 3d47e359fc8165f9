package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string

	// Submission client: where the form posts appointments.
	SchedulerBaseURL string
	SchedulerTimeout time.Duration

	// Scheduling service
	ClinicName     string
	ClinicTimezone string
	ReminderLead   time.Duration

	// Reminder worker
	RunReminderWorker      bool
	ReminderPollInterval   time.Duration
	ReminderBatchSize      int
	ReminderMaxAttempts    int
	ReminderRetryBaseDelay time.Duration

	// Storage
	DatabaseURL       string
	AppointmentsTable string
	RedisAddr         string
	RedisPassword     string
	RedisTLS          bool

	// Twilio (SMS, WhatsApp, voice)
	TwilioAccountSID     string
	TwilioAuthToken      string
	TwilioFromNumber     string
	TwilioWhatsAppNumber string

	// Email
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// HTTP surface
	AdminJWTSecret     string
	CORSAllowedOrigins []string
	ScheduleRateLimit  float64
	ScheduleRateBurst  int
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first without overriding the real environment.
func Load() *Config {
	_ = godotenv.Load()

	port := getEnv("PORT", "8080")
	return &Config{
		Port:          port,
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		SchedulerBaseURL: strings.TrimRight(getEnv("SCHEDULER_BASE_URL", "http://localhost:"+port), "/"),
		SchedulerTimeout: getEnvAsDuration("SCHEDULER_TIMEOUT", 15*time.Second),

		ClinicName:     getEnv("CLINIC_NAME", "Your Clinic"),
		ClinicTimezone: getEnv("CLINIC_TIMEZONE", "UTC"),
		ReminderLead:   getEnvAsDuration("REMINDER_LEAD", 24*time.Hour),

		RunReminderWorker:      getEnvAsBool("RUN_REMINDER_WORKER", true),
		ReminderPollInterval:   getEnvAsDuration("REMINDER_POLL_INTERVAL", 30*time.Second),
		ReminderBatchSize:      getEnvAsInt("REMINDER_BATCH_SIZE", 25),
		ReminderMaxAttempts:    getEnvAsInt("REMINDER_MAX_ATTEMPTS", 3),
		ReminderRetryBaseDelay: getEnvAsDuration("REMINDER_RETRY_BASE_DELAY", time.Minute),

		DatabaseURL:       getEnv("DATABASE_URL", ""),
		AppointmentsTable: getEnv("APPOINTMENTS_TABLE", ""),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisTLS:          getEnvAsBool("REDIS_TLS", false),

		TwilioAccountSID:     getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:      getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber:     getEnv("TWILIO_PHONE_NUMBER", ""),
		TwilioWhatsAppNumber: getEnv("TWILIO_WHATSAPP_NUMBER", ""),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "auto"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Your Clinic"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		ScheduleRateLimit:  getEnvAsFloat("SCHEDULE_RATE_LIMIT", 2),
		ScheduleRateBurst:  getEnvAsInt("SCHEDULE_RATE_BURST", 10),
	}
}

// Location resolves ClinicTimezone, falling back to UTC when it is unknown.
// Use ClinicLocation where an unknown zone must be reported.
func (c *Config) Location() *time.Location {
	loc, err := c.ClinicLocation()
	if err != nil {
		return time.UTC
	}
	return loc
}

// ClinicLocation resolves ClinicTimezone. An empty zone means UTC; an unknown
// one is an error, since naive appointment times would silently shift.
func (c *Config) ClinicLocation() (*time.Location, error) {
	if c == nil || strings.TrimSpace(c.ClinicTimezone) == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(strings.TrimSpace(c.ClinicTimezone))
	if err != nil {
		return nil, fmt.Errorf("config: invalid CLINIC_TIMEZONE %q: %w", c.ClinicTimezone, err)
	}
	return loc, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
