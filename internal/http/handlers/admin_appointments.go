package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	"github.com/wolfman30/clinic-scheduler/internal/reminders"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// AdminHandler serves the staff read API over appointments and reminders.
type AdminHandler struct {
	appointments appointments.Repository
	reminders    reminders.Store
	logger       *logging.Logger
}

func NewAdminHandler(repo appointments.Repository, store reminders.Store, logger *logging.Logger) *AdminHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminHandler{appointments: repo, reminders: store, logger: logger}
}

// AppointmentsListResponse is the body of GET /admin/appointments.
type AppointmentsListResponse struct {
	Appointments []appointments.Appointment `json:"appointments"`
	Count        int                        `json:"count"`
	Limit        int                        `json:"limit"`
}

// RemindersListResponse is the body of GET /admin/reminders.
type RemindersListResponse struct {
	Reminders []reminders.Reminder `json:"reminders"`
	Count     int                  `json:"count"`
	Limit     int                  `json:"limit"`
	Status    string               `json:"status,omitempty"`
}

// Mount registers the admin routes on r. Authentication is the caller's job.
func (h *AdminHandler) Mount(r chi.Router) {
	r.Get("/appointments", h.ListAppointments)
	r.Get("/appointments/{id}", h.GetAppointment)
	r.Get("/reminders", h.ListReminders)
}

// ListAppointments handles GET /admin/appointments.
func (h *AdminHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r)
	list, err := h.appointments.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list appointments", "error", err)
		jsonError(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []appointments.Appointment{}
	}
	writeJSON(w, http.StatusOK, AppointmentsListResponse{Appointments: list, Count: len(list), Limit: limit})
}

// GetAppointment handles GET /admin/appointments/{id}.
func (h *AdminHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	appt, err := h.appointments.Get(r.Context(), id)
	if errors.Is(err, appointments.ErrNotFound) {
		jsonError(w, "appointment not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to get appointment", "error", err, "appointment_id", id)
		jsonError(w, "failed to get appointment", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// ListReminders handles GET /admin/reminders?status=pending|sent|failed.
func (h *AdminHandler) ListReminders(w http.ResponseWriter, r *http.Request) {
	status := reminders.Status(r.URL.Query().Get("status"))
	switch status {
	case "", reminders.StatusPending, reminders.StatusSent, reminders.StatusFailed:
	default:
		jsonError(w, "status must be pending, sent or failed", http.StatusBadRequest)
		return
	}

	limit := parseLimit(r)
	list, err := h.reminders.List(r.Context(), status, limit)
	if err != nil {
		h.logger.Error("failed to list reminders", "error", err)
		jsonError(w, "failed to list reminders", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []reminders.Reminder{}
	}
	writeJSON(w, http.StatusOK, RemindersListResponse{Reminders: list, Count: len(list), Limit: limit, Status: string(status)})
}
