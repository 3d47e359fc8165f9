package submission

import (
	"context"
	"fmt"
	"sync"

	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	"github.com/wolfman30/clinic-scheduler/internal/observability/metrics"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// Draft holds the form fields while the patient fills them in.
type Draft struct {
	PatientName      string
	AppointmentTime  string
	ContactNumber    string
	WhatsAppNumber   string
	EmailAddress     string
	PreferredChannel appointments.Channel
}

// NewDraft returns an empty draft with the default channel.
func NewDraft() Draft {
	return Draft{PreferredChannel: appointments.DefaultChannel}
}

// Reset clears every field and restores the default channel.
func (d *Draft) Reset() {
	*d = NewDraft()
}

// Request packages the draft as the wire request. Fields are sent as entered.
func (d Draft) Request() appointments.Request {
	return appointments.Request{
		PatientName:      d.PatientName,
		AppointmentTime:  d.AppointmentTime,
		ContactNumber:    d.ContactNumber,
		WhatsAppNumber:   d.WhatsAppNumber,
		EmailAddress:     d.EmailAddress,
		PreferredChannel: d.PreferredChannel,
	}
}

// Form field names, shared by the web page and the draft setter.
const (
	FieldPatientName      = "patient_name"
	FieldAppointmentTime  = "appointment_time"
	FieldContactNumber    = "contact_number"
	FieldWhatsAppNumber   = "whatsapp_number"
	FieldEmailAddress     = "email_address"
	FieldPreferredChannel = "preferred_channel"
)

// Fields lists the draft's field names in form order.
func Fields() []string {
	return []string{
		FieldPatientName,
		FieldAppointmentTime,
		FieldContactNumber,
		FieldWhatsAppNumber,
		FieldEmailAddress,
		FieldPreferredChannel,
	}
}

// Set updates one field by its form name.
func (d *Draft) Set(field, value string) error {
	switch field {
	case FieldPatientName:
		d.PatientName = value
	case FieldAppointmentTime:
		d.AppointmentTime = value
	case FieldContactNumber:
		d.ContactNumber = value
	case FieldWhatsAppNumber:
		d.WhatsAppNumber = value
	case FieldEmailAddress:
		d.EmailAddress = value
	case FieldPreferredChannel:
		d.PreferredChannel = appointments.Channel(value)
	default:
		return fmt.Errorf("submission: unknown field %q", field)
	}
	return nil
}

// State is where a submission stands.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the banner shown after a submission. At most one field is set.
type Result struct {
	Success string
	Error   string
}

// Scheduler sends an appointment request and returns the confirmation message.
type Scheduler interface {
	Schedule(ctx context.Context, req appointments.Request) (string, error)
}

// Flow owns one form session: the draft, the state and the current banner.
// Overlapping submissions are allowed and the last response to arrive wins.
type Flow struct {
	mu        sync.Mutex
	draft     Draft
	state     State
	result    Result
	scheduler Scheduler
	metrics   *metrics.SchedulingMetrics
	logger    *logging.Logger
}

func NewFlow(scheduler Scheduler, logger *logging.Logger) *Flow {
	if logger == nil {
		logger = logging.Default()
	}
	return &Flow{
		draft:     NewDraft(),
		scheduler: scheduler,
		logger:    logger,
	}
}

func (f *Flow) WithMetrics(m *metrics.SchedulingMetrics) *Flow {
	f.metrics = m
	return f
}

// Draft returns a copy of the current draft.
func (f *Flow) Draft() Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// Update mutates the draft under the flow's lock.
func (f *Flow) Update(fn func(d *Draft)) {
	f.mu.Lock()
	fn(&f.draft)
	f.mu.Unlock()
}

// Set updates one draft field by name.
func (f *Flow) Set(field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft.Set(field, value)
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) Result() Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result
}

// Submit sends the current draft once. The previous banner is cleared before
// the call goes out. On success the draft is reset; on failure it is kept.
func (f *Flow) Submit(ctx context.Context) Result {
	f.mu.Lock()
	f.result = Result{}
	f.state = StateSubmitting
	req := f.draft.Request()
	f.mu.Unlock()

	msg, err := f.scheduler.Schedule(ctx, req)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = StateFailed
		f.result = Result{Error: Message(err)}
		f.logger.Info("appointment submission failed", "error", err)
	} else {
		f.state = StateSuccess
		f.result = Result{Success: msg}
		f.draft.Reset()
		f.logger.Info("appointment submitted")
	}
	f.metrics.ObserveSubmission(f.state.String())
	return f.result
}
