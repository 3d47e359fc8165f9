package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// DefaultLead is how long before the appointment a reminder goes out.
const DefaultLead = 24 * time.Hour

// Scheduler queues a reminder for each newly scheduled appointment.
type Scheduler struct {
	store  Store
	lead   time.Duration
	now    func() time.Time
	logger *logging.Logger
}

func NewScheduler(store Store, lead time.Duration, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	if lead <= 0 {
		lead = DefaultLead
	}
	return &Scheduler{store: store, lead: lead, now: time.Now, logger: logger}
}

// Schedule enqueues a reminder at appointment time minus the lead. It returns
// nil without error when that instant has already passed.
func (s *Scheduler) Schedule(ctx context.Context, appt *appointments.Appointment) (*Reminder, error) {
	remindAt := appt.AppointmentTime.Add(-s.lead)
	if !remindAt.After(s.now()) {
		s.logger.Warn("appointment is too soon, reminder not scheduled",
			"appointment_id", appt.ID,
			"appointment_time", appt.AppointmentTime,
			"lead", s.lead.String(),
		)
		return nil, nil
	}

	reminder := FromAppointment(appt, remindAt)
	if err := s.store.Enqueue(ctx, reminder); err != nil {
		return nil, fmt.Errorf("reminders: enqueue for appointment %s: %w", appt.ID, err)
	}
	s.logger.Info("reminder scheduled",
		"reminder_id", reminder.ID,
		"appointment_id", appt.ID,
		"channel", string(reminder.Channel),
		"remind_at", reminder.RemindAt,
	)
	return reminder, nil
}
