package appointments

import (
	"strings"
	"time"
)

// Channel selects how the patient's reminder is delivered.
type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelEmail    Channel = "email"
	ChannelVoice    Channel = "voice"
)

// DefaultChannel is used when a request leaves preferred_channel empty.
const DefaultChannel = ChannelSMS

// Channels lists the supported channels in display order.
func Channels() []Channel {
	return []Channel{ChannelSMS, ChannelWhatsApp, ChannelEmail, ChannelVoice}
}

// Known reports whether c is one of the supported channels.
func (c Channel) Known() bool {
	switch c {
	case ChannelSMS, ChannelWhatsApp, ChannelEmail, ChannelVoice:
		return true
	}
	return false
}

// Label is the human name shown in the channel selector.
func (c Channel) Label() string {
	switch c {
	case ChannelSMS:
		return "SMS"
	case ChannelWhatsApp:
		return "WhatsApp"
	case ChannelEmail:
		return "Email"
	case ChannelVoice:
		return "Voice Call"
	default:
		return string(c)
	}
}

// Request is the wire shape posted by the scheduling form. Every field is text.
type Request struct {
	PatientName      string  `json:"patient_name" validate:"required"`
	AppointmentTime  string  `json:"appointment_time" validate:"required"`
	ContactNumber    string  `json:"contact_number" validate:"required"`
	WhatsAppNumber   string  `json:"whatsapp_number"`
	EmailAddress     string  `json:"email_address" validate:"omitempty,email"`
	PreferredChannel Channel `json:"preferred_channel"`
}

// Normalize trims whitespace and applies the default channel.
func (r *Request) Normalize() {
	r.PatientName = strings.TrimSpace(r.PatientName)
	r.AppointmentTime = strings.TrimSpace(r.AppointmentTime)
	r.ContactNumber = strings.TrimSpace(r.ContactNumber)
	r.WhatsAppNumber = strings.TrimSpace(r.WhatsAppNumber)
	r.EmailAddress = strings.TrimSpace(r.EmailAddress)
	r.PreferredChannel = Channel(strings.ToLower(strings.TrimSpace(string(r.PreferredChannel))))
	if r.PreferredChannel == "" {
		r.PreferredChannel = DefaultChannel
	}
}

// Appointment is a scheduled appointment as stored by the scheduling service.
type Appointment struct {
	ID               string    `json:"id" dynamodbav:"id"`
	PatientName      string    `json:"patient_name" dynamodbav:"patient_name"`
	AppointmentTime  time.Time `json:"appointment_time" dynamodbav:"appointment_time"`
	ContactNumber    string    `json:"contact_number" dynamodbav:"contact_number"`
	WhatsAppNumber   string    `json:"whatsapp_number,omitempty" dynamodbav:"whatsapp_number,omitempty"`
	EmailAddress     string    `json:"email_address,omitempty" dynamodbav:"email_address,omitempty"`
	PreferredChannel Channel   `json:"preferred_channel" dynamodbav:"preferred_channel"`
	CreatedAt        time.Time `json:"created_at" dynamodbav:"created_at"`
}
