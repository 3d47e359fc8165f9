package scheduling

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

func newTestRouter(repo appointments.Repository) http.Handler {
	r := chi.NewRouter()
	NewHandler(newTestService(repo, nil), logging.New("error")).Mount(r)
	return r
}

func postSchedule(t *testing.T, h http.Handler, path, body string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec, resp
}

func TestHandler_ScheduleSuccess(t *testing.T) {
	body := `{"patient_name":"Jane Doe","appointment_time":"2030-03-04T14:30","contact_number":"+15551234567","whatsapp_number":"","email_address":"","preferred_channel":"sms"}`
	rec, resp := postSchedule(t, newTestRouter(appointments.NewInMemoryRepository()), SchedulePath, body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Appointment scheduled for Jane Doe at 2030-03-04 14:30:00. Reminder set via sms.", resp.Message)
	assert.NotEmpty(t, resp.AppointmentID)
}

func TestHandler_NetlifyPath(t *testing.T) {
	body := `{"patient_name":"Jane","appointment_time":"2030-03-04T14:30:00","contact_number":"555"}`
	rec, _ := postSchedule(t, newTestRouter(appointments.NewInMemoryRepository()), NetlifySchedulePath, body)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_InvalidTime(t *testing.T) {
	body := `{"patient_name":"Jane","appointment_time":"tomorrow","contact_number":"555"}`
	rec, resp := postSchedule(t, newTestRouter(appointments.NewInMemoryRepository()), SchedulePath, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid appointment time format. Use ISO format (YYYY-MM-DDTHH:MM:SS).", resp.Message)
	assert.Empty(t, resp.AppointmentID)
}

func TestHandler_MalformedBody(t *testing.T) {
	rec, resp := postSchedule(t, newTestRouter(appointments.NewInMemoryRepository()), SchedulePath, `{"patient_name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body.", resp.Message)
}

func TestHandler_StorageFailure(t *testing.T) {
	body := `{"patient_name":"Jane","appointment_time":"2030-03-04T14:30:00","contact_number":"555"}`
	rec, resp := postSchedule(t, newTestRouter(failingRepo{}), SchedulePath, body)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to schedule appointment.", resp.Message)
}
