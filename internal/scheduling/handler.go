package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

const (
	// SchedulePath is the endpoint the scheduling form posts to.
	SchedulePath = "/schedule"
	// NetlifySchedulePath keeps the path used by the Netlify function deployment.
	NetlifySchedulePath = "/.netlify/functions/appointment_scheduler/schedule"

	// MsgInvalidBody is returned for bodies that are not a JSON object.
	MsgInvalidBody    = "Invalid request body."
	msgScheduleFailed = "Failed to schedule appointment."

	maxBodyBytes = 64 << 10
)

// Response is the JSON body of every schedule response.
type Response struct {
	Message       string `json:"message"`
	AppointmentID string `json:"appointment_id,omitempty"`
}

// Handler exposes the scheduling service over HTTP.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Mount registers the schedule routes on r.
func (h *Handler) Mount(r chi.Router) {
	r.Post(SchedulePath, h.Schedule)
	r.Post(NetlifySchedulePath, h.Schedule)
}

// Schedule handles POST /schedule.
func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	var req appointments.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.logger.Warn("failed to decode schedule request", "error", err)
		writeJSON(w, http.StatusBadRequest, Response{Message: MsgInvalidBody})
		return
	}

	status, resp := h.Process(r.Context(), req)
	writeJSON(w, status, resp)
}

// Process runs a decoded request through the service and maps the outcome to a
// status and response body. The Lambda entrypoint shares it.
func (h *Handler) Process(ctx context.Context, req appointments.Request) (int, Response) {
	result, err := h.service.Schedule(ctx, req)
	if err != nil {
		var verr *appointments.ValidationError
		if errors.As(err, &verr) {
			return http.StatusBadRequest, Response{Message: verr.Message}
		}
		h.logger.Error("schedule request failed", "error", err)
		return http.StatusInternalServerError, Response{Message: msgScheduleFailed}
	}
	return http.StatusOK, Response{Message: result.Message, AppointmentID: result.Appointment.ID}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
