package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	"github.com/wolfman30/clinic-scheduler/internal/observability/metrics"
	"github.com/wolfman30/clinic-scheduler/internal/reminders"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// ReminderScheduler queues the reminder for a new appointment. A nil reminder
// with a nil error means the appointment was too soon for one.
type ReminderScheduler interface {
	Schedule(ctx context.Context, appt *appointments.Appointment) (*reminders.Reminder, error)
}

// Result is the outcome of a successful schedule request.
type Result struct {
	Message     string
	Appointment *appointments.Appointment
	Reminder    *reminders.Reminder
}

// Service accepts appointment requests, stores them and queues reminders.
type Service struct {
	repo      appointments.Repository
	reminders ReminderScheduler
	validator *appointments.Validator
	loc       *time.Location
	metrics   *metrics.SchedulingMetrics
	logger    *logging.Logger
	tracer    trace.Tracer
}

// Config wires a Service.
type Config struct {
	Repository appointments.Repository
	Reminders  ReminderScheduler
	// Location interprets appointment times sent without an offset.
	Location *time.Location
	Metrics  *metrics.SchedulingMetrics
	Logger   *logging.Logger
}

func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:      cfg.Repository,
		reminders: cfg.Reminders,
		validator: appointments.NewValidator(),
		loc:       loc,
		metrics:   cfg.Metrics,
		logger:    logger,
		tracer:    otel.Tracer("clinic.internal.scheduling"),
	}
}

// ConfirmationMessage is the text returned to the patient after scheduling.
func ConfirmationMessage(name string, at time.Time, channel appointments.Channel) string {
	return fmt.Sprintf("Appointment scheduled for %s at %s. Reminder set via %s.",
		name, appointments.FormatDisplay(at), channel)
}

// Schedule validates req, persists the appointment and queues its reminder.
// Errors wrapping *appointments.ValidationError carry a patient-facing message.
func (s *Service) Schedule(ctx context.Context, req appointments.Request) (*Result, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "scheduling.schedule")
	defer span.End()

	res, err := s.schedule(ctx, &req)
	outcome := "success"
	var verr *appointments.ValidationError
	switch {
	case errors.As(err, &verr):
		outcome = "invalid"
	case err != nil:
		outcome = "error"
		span.RecordError(err)
	}
	span.SetAttributes(
		attribute.String("clinic.channel", string(req.PreferredChannel)),
		attribute.String("clinic.outcome", outcome),
	)
	s.metrics.ObserveSchedule(outcome, string(req.PreferredChannel), time.Since(start).Seconds())
	return res, err
}

func (s *Service) schedule(ctx context.Context, req *appointments.Request) (*Result, error) {
	req.Normalize()
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	at, err := appointments.ParseTime(req.AppointmentTime, s.loc)
	if err != nil {
		return nil, &appointments.ValidationError{
			Field:   "appointment_time",
			Message: appointments.InvalidTimeMessage,
			Err:     err,
		}
	}

	appt := &appointments.Appointment{
		PatientName:      req.PatientName,
		AppointmentTime:  at,
		ContactNumber:    req.ContactNumber,
		WhatsAppNumber:   req.WhatsAppNumber,
		EmailAddress:     req.EmailAddress,
		PreferredChannel: req.PreferredChannel,
	}
	if err := s.repo.Create(ctx, appt); err != nil {
		s.logger.Error("failed to store appointment", "error", err)
		return nil, fmt.Errorf("scheduling: store appointment: %w", err)
	}

	var reminder *reminders.Reminder
	if s.reminders != nil {
		reminder, err = s.reminders.Schedule(ctx, appt)
		if err != nil {
			s.logger.Error("failed to queue reminder", "error", err, "appointment_id", appt.ID)
			return nil, fmt.Errorf("scheduling: queue reminder: %w", err)
		}
	}
	if !appt.PreferredChannel.Known() {
		s.logger.Warn("unknown reminder channel, sms will be used", "appointment_id", appt.ID, "channel", string(appt.PreferredChannel))
	}

	msg := ConfirmationMessage(appt.PatientName, at, appt.PreferredChannel)
	s.logger.Info("appointment scheduled",
		"appointment_id", appt.ID,
		"channel", string(appt.PreferredChannel),
		"appointment_time", at,
		"reminder_queued", reminder != nil,
	)
	return &Result{Message: msg, Appointment: appt, Reminder: reminder}, nil
}
