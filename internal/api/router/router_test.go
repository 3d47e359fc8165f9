package router

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	"github.com/wolfman30/clinic-scheduler/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/clinic-scheduler/internal/http/middleware"
	"github.com/wolfman30/clinic-scheduler/internal/reminders"
	"github.com/wolfman30/clinic-scheduler/internal/scheduling"
	"github.com/wolfman30/clinic-scheduler/internal/submission"
	"github.com/wolfman30/clinic-scheduler/internal/web"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

const testAdminSecret = "admin-secret"

type testStack struct {
	server *httptest.Server
	repo   *appointments.InMemoryRepository
	store  *reminders.MemoryStore
}

// newTestStack wires the full router the way cmd/api does, with the web form
// posting back to the same server.
func newTestStack(t *testing.T) *testStack {
	t.Helper()
	logger := logging.New("error")
	repo := appointments.NewInMemoryRepository()
	store := reminders.NewMemoryStore()
	svc := scheduling.NewService(scheduling.Config{
		Repository: repo,
		Reminders:  reminders.NewScheduler(store, 24*time.Hour, logger),
		Location:   time.UTC,
		Logger:     logger,
	})

	var handler http.Handler
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	limiter := httpmiddleware.NewRateLimiter(100, 100)
	t.Cleanup(limiter.Stop)

	client := submission.NewClient(submission.ClientConfig{BaseURL: srv.URL, Logger: logger})
	handler = New(&Config{
		Logger:          logger,
		Web:             web.NewHandler(web.Config{Scheduler: client, Logger: logger}),
		Scheduling:      scheduling.NewHandler(svc, logger),
		Admin:           handlers.NewAdminHandler(repo, store, logger),
		ScheduleLimiter: limiter,
		AdminAuthSecret: testAdminSecret,
	})
	return &testStack{server: srv, repo: repo, store: store}
}

func TestRouterHealthEndpoint(t *testing.T) {
	stack := newTestStack(t)
	resp, err := http.Get(stack.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouterFormSubmitEndToEnd(t *testing.T) {
	stack := newTestStack(t)
	form := url.Values{
		"patient_name":      {"Jane Doe"},
		"appointment_time":  {"2030-05-01T10:00"},
		"contact_number":    {"555-1234"},
		"preferred_channel": {"sms"},
	}
	resp, err := http.PostForm(stack.server.URL+"/", form)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	buf := new(strings.Builder)
	_, _ = io.Copy(buf, resp.Body)
	assert.Contains(t, buf.String(), `<p class="success">Appointment scheduled for Jane Doe at 2030-05-01 10:00:00. Reminder set via sms.</p>`)

	list, err := stack.repo.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	pending, err := stack.store.List(context.Background(), reminders.StatusPending, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestRouterFormShowsServiceError(t *testing.T) {
	stack := newTestStack(t)
	form := url.Values{
		"patient_name":     {"Jane Doe"},
		"appointment_time": {"soon"},
		"contact_number":   {"555-1234"},
	}
	resp, err := http.PostForm(stack.server.URL+"/", form)
	require.NoError(t, err)
	defer resp.Body.Close()

	buf := new(strings.Builder)
	_, _ = io.Copy(buf, resp.Body)
	assert.Contains(t, buf.String(), `<p class="error">Invalid appointment time format. Use ISO format (YYYY-MM-DDTHH:MM:SS).</p>`)
	assert.Contains(t, buf.String(), `value="Jane Doe"`)
}

func TestRouterScheduleJSON(t *testing.T) {
	stack := newTestStack(t)
	body := `{"patient_name":"Jane","appointment_time":"2030-05-01T10:00:00","contact_number":"555"}`
	resp, err := http.Post(stack.server.URL+"/schedule", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func adminToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "staff",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	})
	signed, err := token.SignedString([]byte(testAdminSecret))
	require.NoError(t, err)
	return signed
}

func TestRouterAdminRequiresToken(t *testing.T) {
	stack := newTestStack(t)

	resp, err := http.Get(stack.server.URL + "/admin/appointments")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, stack.server.URL+"/admin/reminders", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+adminToken(t))
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouterAdminAbsentWithoutSecret(t *testing.T) {
	h := New(&Config{Admin: handlers.NewAdminHandler(appointments.NewInMemoryRepository(), reminders.NewMemoryStore(), nil)})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/appointments", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouterRateLimitIgnoresForwardedLoopback(t *testing.T) {
	logger := logging.New("error")
	limiter := httpmiddleware.NewRateLimiter(0.001, 1)
	t.Cleanup(limiter.Stop)
	client := submission.NewClient(submission.ClientConfig{BaseURL: "http://127.0.0.1:1", Logger: logger})
	h := New(&Config{
		Logger:          logger,
		Web:             web.NewHandler(web.Config{Scheduler: client, Logger: logger}),
		ScheduleLimiter: limiter,
	})

	codes := map[int]int{}
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.9:40000"
		req.Header.Set("X-Forwarded-For", "127.0.0.1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes[rec.Code]++
	}
	assert.Equal(t, map[int]int{http.StatusOK: 1, http.StatusTooManyRequests: 19}, codes)
}
