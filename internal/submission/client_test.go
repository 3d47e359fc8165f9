package submission

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{BaseURL: srv.URL + "/", Logger: logging.New("error")})
}

func TestClient_PostsAllSixFields(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, DefaultPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	})

	msg, err := client.Schedule(context.Background(), appointments.Request{
		PatientName:      "Jane Doe",
		AppointmentTime:  "2024-05-01T10:00:00",
		ContactNumber:    "555-1234",
		PreferredChannel: appointments.ChannelSMS,
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", msg)
	assert.Equal(t, map[string]any{
		"patient_name":      "Jane Doe",
		"appointment_time":  "2024-05-01T10:00:00",
		"contact_number":    "555-1234",
		"whatsapp_number":   "",
		"email_address":     "",
		"preferred_channel": "sms",
	}, got)
}

func TestClient_ServiceErrorMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"Slot unavailable"}`))
	})

	_, err := client.Schedule(context.Background(), appointments.Request{})
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, http.StatusConflict, svcErr.StatusCode)
	assert.Equal(t, "Slot unavailable", Message(err))
}

func TestClient_ServiceErrorWithoutMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"html body", "<html>Bad Gateway</html>"},
		{"json without message", `{"error":"boom"}`},
		{"empty body", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := client.Schedule(context.Background(), appointments.Request{})
			assert.Equal(t, "Request failed with status code 502", Message(err))
		})
	}
}

func TestClient_InvalidSuccessBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("scheduled!"))
	})
	_, err := client.Schedule(context.Background(), appointments.Request{})
	assert.ErrorIs(t, err, ErrInvalidResponse)
	assert.Equal(t, "invalid response from scheduling service", Message(err))
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := NewClient(ClientConfig{BaseURL: srv.URL, Logger: logging.New("error")})

	_, err := client.Schedule(context.Background(), appointments.Request{})
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, transportErr.Err.Error(), Message(err))
	assert.Contains(t, Message(err), "connection refused")
}

func TestClient_Endpoint(t *testing.T) {
	c := NewClient(ClientConfig{BaseURL: "http://localhost:8080/"})
	assert.Equal(t, "http://localhost:8080/.netlify/functions/appointment_scheduler/schedule", c.Endpoint())

	c = NewClient(ClientConfig{BaseURL: "http://localhost:8080", Path: "/schedule"})
	assert.Equal(t, "http://localhost:8080/schedule", c.Endpoint())
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "boom", Message(errors.New("boom")))
	assert.Equal(t, "Slot unavailable", Message(&ServiceError{StatusCode: 409, Message: "Slot unavailable"}))
}
