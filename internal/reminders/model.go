package reminders

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/clinic-scheduler/internal/appointments"
)

// Status tracks a reminder through delivery.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// ErrNotFound is returned when a reminder ID is unknown to the store.
var ErrNotFound = errors.New("reminders: not found")

// Reminder is a queued notification for an upcoming appointment.
type Reminder struct {
	ID              string               `json:"id"`
	AppointmentID   string               `json:"appointment_id"`
	PatientName     string               `json:"patient_name"`
	AppointmentTime time.Time            `json:"appointment_time"`
	ContactNumber   string               `json:"contact_number"`
	WhatsAppNumber  string               `json:"whatsapp_number,omitempty"`
	EmailAddress    string               `json:"email_address,omitempty"`
	Channel         appointments.Channel `json:"channel"`
	RemindAt        time.Time            `json:"remind_at"`
	Status          Status               `json:"status"`
	Attempts        int                  `json:"attempts"`
	LastError       string               `json:"last_error,omitempty"`
	SentAt          *time.Time           `json:"sent_at,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
}

// FromAppointment builds a pending reminder for appt due at remindAt.
func FromAppointment(appt *appointments.Appointment, remindAt time.Time) *Reminder {
	return &Reminder{
		ID:              uuid.NewString(),
		AppointmentID:   appt.ID,
		PatientName:     appt.PatientName,
		AppointmentTime: appt.AppointmentTime,
		ContactNumber:   appt.ContactNumber,
		WhatsAppNumber:  appt.WhatsAppNumber,
		EmailAddress:    appt.EmailAddress,
		Channel:         appt.PreferredChannel,
		RemindAt:        remindAt.UTC(),
		Status:          StatusPending,
		CreatedAt:       time.Now().UTC(),
	}
}

func prepare(r *Reminder) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
}
