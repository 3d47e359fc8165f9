package reminders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer("Glow Clinic", time.UTC)
	require.NoError(t, err)
	return r
}

func reminderAt(name string, at time.Time) *Reminder {
	return &Reminder{PatientName: name, AppointmentTime: at}
}

func TestRenderer_Text(t *testing.T) {
	rem := reminderAt("Jane Doe", time.Date(2025, 3, 4, 14, 30, 45, 0, time.UTC))
	body, err := testRenderer(t).Text(rem)
	require.NoError(t, err)
	assert.Equal(t, "Reminder: Jane Doe, your appointment is at 2025-03-04 14:30.", body)
}

func TestRenderer_TextUsesClinicTimezone(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	r, err := NewRenderer("Glow Clinic", loc)
	require.NoError(t, err)

	body, err := r.Text(reminderAt("Jane", time.Date(2025, 3, 4, 19, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, "Reminder: Jane, your appointment is at 2025-03-04 14:00.", body)
}

func TestRenderer_Email(t *testing.T) {
	rem := reminderAt("Jane <b>Doe</b>", time.Date(2025, 3, 4, 14, 30, 0, 0, time.UTC))
	subject, html, err := testRenderer(t).Email(rem)
	require.NoError(t, err)
	assert.Equal(t, "Appointment Reminder", subject)
	assert.Equal(t, "Dear Jane &lt;b&gt;Doe&lt;/b&gt;,<br><br>Your appointment is scheduled for 2025-03-04 14:30.<br><br>Best regards,<br>Glow Clinic", html)
}

func TestRenderer_TwiML(t *testing.T) {
	rem := reminderAt("Tom & Jerry", time.Date(2025, 3, 4, 9, 5, 0, 0, time.UTC))
	twiml, err := testRenderer(t).TwiML(rem)
	require.NoError(t, err)
	assert.Equal(t, "<Response><Say>Hello Tom &amp; Jerry, this is a reminder about your appointment at 2025-03-04 09:05.</Say></Response>", twiml)
}
