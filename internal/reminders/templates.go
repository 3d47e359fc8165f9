package reminders

import (
	"bytes"
	"encoding/xml"
	"fmt"
	htmltemplate "html/template"
	"strings"
	"text/template"
	"time"

	"github.com/wolfman30/clinic-scheduler/internal/appointments"
)

const (
	emailSubject = "Appointment Reminder"

	textReminderTemplate  = "Reminder: {{.Name}}, your appointment is at {{.Time}}."
	voiceReminderTemplate = "Hello {{.Name}}, this is a reminder about your appointment at {{.Time}}."
	emailReminderTemplate = "Dear {{.Name}},<br><br>Your appointment is scheduled for {{.Time}}.<br><br>Best regards,<br>{{.Clinic}}"
)

type messageData struct {
	Name   string
	Time   string
	Clinic string
}

// Renderer produces the reminder texts for each channel.
type Renderer struct {
	clinic string
	loc    *time.Location
	text   *template.Template
	voice  *template.Template
	email  *htmltemplate.Template
}

// NewRenderer parses the reminder templates. Times are shown in loc.
func NewRenderer(clinicName string, loc *time.Location) (*Renderer, error) {
	if loc == nil {
		loc = time.UTC
	}
	text, err := template.New("text").Option("missingkey=error").Parse(textReminderTemplate)
	if err != nil {
		return nil, fmt.Errorf("reminders: parse text template: %w", err)
	}
	voice, err := template.New("voice").Option("missingkey=error").Parse(voiceReminderTemplate)
	if err != nil {
		return nil, fmt.Errorf("reminders: parse voice template: %w", err)
	}
	email, err := htmltemplate.New("email").Option("missingkey=error").Parse(emailReminderTemplate)
	if err != nil {
		return nil, fmt.Errorf("reminders: parse email template: %w", err)
	}
	return &Renderer{
		clinic: strings.TrimSpace(clinicName),
		loc:    loc,
		text:   text,
		voice:  voice,
		email:  email,
	}, nil
}

func (r *Renderer) data(rem *Reminder) messageData {
	return messageData{
		Name:   rem.PatientName,
		Time:   appointments.FormatReminder(rem.AppointmentTime.In(r.loc)),
		Clinic: r.clinic,
	}
}

// Text renders the SMS and WhatsApp reminder body.
func (r *Renderer) Text(rem *Reminder) (string, error) {
	var buf bytes.Buffer
	if err := r.text.Execute(&buf, r.data(rem)); err != nil {
		return "", fmt.Errorf("reminders: render text: %w", err)
	}
	return buf.String(), nil
}

// Speech renders the sentence read out on a voice call.
func (r *Renderer) Speech(rem *Reminder) (string, error) {
	var buf bytes.Buffer
	if err := r.voice.Execute(&buf, r.data(rem)); err != nil {
		return "", fmt.Errorf("reminders: render voice: %w", err)
	}
	return buf.String(), nil
}

// TwiML wraps the spoken reminder in a Twilio <Response><Say> document.
func (r *Renderer) TwiML(rem *Reminder) (string, error) {
	speech, err := r.Speech(rem)
	if err != nil {
		return "", err
	}
	var escaped bytes.Buffer
	if err := xml.EscapeText(&escaped, []byte(speech)); err != nil {
		return "", fmt.Errorf("reminders: escape twiml: %w", err)
	}
	return "<Response><Say>" + escaped.String() + "</Say></Response>", nil
}

// Email renders the reminder email subject and HTML body. The patient name and
// clinic are HTML-escaped.
func (r *Renderer) Email(rem *Reminder) (subject, html string, err error) {
	var buf bytes.Buffer
	if err := r.email.Execute(&buf, r.data(rem)); err != nil {
		return "", "", fmt.Errorf("reminders: render email: %w", err)
	}
	return emailSubject, buf.String(), nil
}
