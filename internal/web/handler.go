// Package web serves the appointment scheduling form.
package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	"github.com/wolfman30/clinic-scheduler/internal/observability/metrics"
	"github.com/wolfman30/clinic-scheduler/internal/submission"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

//go:embed templates/form.html
var templateFS embed.FS

var formTmpl = template.Must(template.ParseFS(templateFS, "templates/form.html"))

type channelOption struct {
	Value    string
	Label    string
	Selected bool
}

type pageData struct {
	ClinicName string
	Draft      submission.Draft
	Result     submission.Result
	Channels   []channelOption
}

// Handler renders the form and runs submissions posted from it.
type Handler struct {
	scheduler  submission.Scheduler
	clinicName string
	metrics    *metrics.SchedulingMetrics
	logger     *logging.Logger
}

// Config wires a Handler.
type Config struct {
	Scheduler  submission.Scheduler
	ClinicName string
	Metrics    *metrics.SchedulingMetrics
	Logger     *logging.Logger
}

func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		scheduler:  cfg.Scheduler,
		clinicName: cfg.ClinicName,
		metrics:    cfg.Metrics,
		logger:     logger,
	}
}

// Mount registers GET / and POST / on r.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/", h.Form)
	r.Post("/", h.Submit)
}

// Form renders an empty form.
func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	h.render(w, submission.NewDraft(), submission.Result{})
}

// Submit binds the posted fields into a fresh draft, submits it once and
// renders the outcome.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Warn("failed to parse form", "error", err)
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return
	}

	flow := submission.NewFlow(h.scheduler, h.logger).WithMetrics(h.metrics)
	for _, field := range submission.Fields() {
		value := r.PostForm.Get(field)
		if field == submission.FieldPreferredChannel && value == "" {
			continue
		}
		if err := flow.Set(field, value); err != nil {
			h.logger.Error("failed to bind form field", "field", field, "error", err)
		}
	}

	result := flow.Submit(r.Context())
	h.render(w, flow.Draft(), result)
}

func (h *Handler) render(w http.ResponseWriter, draft submission.Draft, result submission.Result) {
	options := make([]channelOption, 0, len(appointments.Channels()))
	for _, ch := range appointments.Channels() {
		options = append(options, channelOption{
			Value:    string(ch),
			Label:    ch.Label(),
			Selected: ch == draft.PreferredChannel,
		})
	}

	var buf bytes.Buffer
	err := formTmpl.Execute(&buf, pageData{
		ClinicName: h.clinicName,
		Draft:      draft,
		Result:     result,
		Channels:   options,
	})
	if err != nil {
		h.logger.Error("failed to render form", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
