package reminders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

func TestScheduler_QueuesReminderBeforeAppointment(t *testing.T) {
	store := NewMemoryStore()
	s := NewScheduler(store, 24*time.Hour, logging.New("error"))
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	appt := &appointments.Appointment{
		ID:               "appt-1",
		PatientName:      "Jane Doe",
		AppointmentTime:  now.Add(72 * time.Hour),
		ContactNumber:    "+15551234567",
		PreferredChannel: appointments.ChannelVoice,
	}
	rem, err := s.Schedule(context.Background(), appt)
	require.NoError(t, err)
	require.NotNil(t, rem)
	assert.Equal(t, now.Add(48*time.Hour), rem.RemindAt)
	assert.Equal(t, appointments.ChannelVoice, rem.Channel)
	assert.Equal(t, "appt-1", rem.AppointmentID)

	pending, err := store.List(context.Background(), StatusPending, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestScheduler_SkipsAppointmentsTooSoon(t *testing.T) {
	store := NewMemoryStore()
	s := NewScheduler(store, 24*time.Hour, logging.New("error"))
	now := time.Now()
	s.now = func() time.Time { return now }

	rem, err := s.Schedule(context.Background(), &appointments.Appointment{
		ID:              "appt-2",
		AppointmentTime: now.Add(2 * time.Hour),
	})
	require.NoError(t, err)
	assert.Nil(t, rem)

	all, err := store.List(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestNewScheduler_DefaultLead(t *testing.T) {
	s := NewScheduler(NewMemoryStore(), 0, nil)
	assert.Equal(t, DefaultLead, s.lead)
}
