package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-scheduler/internal/appointments"
)

func newParser(t *testing.T, cli *CLI, out io.Writer) *kong.Kong {
	t.Helper()
	k, err := kong.New(cli,
		kong.Vars{"version": "test"},
		kong.Writers(out, out),
		kong.BindTo(out, (*io.Writer)(nil)),
	)
	require.NoError(t, err)
	return k
}

func TestScheduleCommandSubmits(t *testing.T) {
	var got appointments.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/schedule", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"Appointment scheduled for Jane Doe at 2030-03-04 14:30:00. Reminder set via email."}`))
	}))
	defer srv.Close()

	var cli CLI
	var out bytes.Buffer
	k := newParser(t, &cli, &out)
	kctx, err := k.Parse([]string{
		"schedule",
		"--url", srv.URL,
		"--name", "Jane Doe",
		"--time", "2030-03-04T14:30",
		"--contact", "+15551234567",
		"--email", "jane@example.com",
		"--channel", "email",
	})
	require.NoError(t, err)
	require.NoError(t, kctx.Run(&cli))

	assert.Equal(t, "Appointment scheduled for Jane Doe at 2030-03-04 14:30:00. Reminder set via email.\n", out.String())
	assert.Equal(t, "Jane Doe", got.PatientName)
	assert.Equal(t, "2030-03-04T14:30", got.AppointmentTime)
	assert.Equal(t, "jane@example.com", got.EmailAddress)
	assert.Equal(t, appointments.ChannelEmail, got.PreferredChannel)
}

func TestScheduleCommandReportsServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Invalid appointment time format. Use ISO format (YYYY-MM-DDTHH:MM:SS)."}`))
	}))
	defer srv.Close()

	cmd := &ScheduleCmd{
		URL:     srv.URL,
		Timeout: time.Second,
		Name:    "Jane Doe",
		Time:    "tomorrow",
		Contact: "+15551234567",
		Channel: "sms",
	}
	var out bytes.Buffer
	err := cmd.Run(&CLI{LogLevel: "error"}, &out)
	require.Error(t, err)
	assert.Equal(t, "Invalid appointment time format. Use ISO format (YYYY-MM-DDTHH:MM:SS).", err.Error())
	assert.Empty(t, out.String())
}

func TestScheduleCommandRequiresFields(t *testing.T) {
	var cli CLI
	var out bytes.Buffer
	k := newParser(t, &cli, &out)

	_, err := k.Parse([]string{"schedule", "--name", "Jane Doe"})
	assert.Error(t, err)

	_, err = k.Parse([]string{"schedule", "--name", "Jane", "--time", "2030-03-04T14:30", "--contact", "1", "--channel", "pager"})
	assert.Error(t, err)
}
