package appointments

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() Request {
	return Request{
		PatientName:      "Jane Doe",
		AppointmentTime:  "2024-05-01T10:00:00",
		ContactNumber:    "555-1234",
		PreferredChannel: ChannelSMS,
	}
}

func TestNormalizeDefaultsChannel(t *testing.T) {
	req := Request{PatientName: "  Jane  ", PreferredChannel: " WhatsApp "}
	req.Normalize()
	assert.Equal(t, "Jane", req.PatientName)
	assert.Equal(t, ChannelWhatsApp, req.PreferredChannel)

	empty := Request{}
	empty.Normalize()
	assert.Equal(t, ChannelSMS, empty.PreferredChannel)
}

func TestValidateAcceptsMinimalRequest(t *testing.T) {
	req := validRequest()
	assert.NoError(t, NewValidator().Validate(&req))
}

func TestValidateReportsFirstMissingField(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Request)
		field   string
		message string
	}{
		{"missing name", func(r *Request) { r.PatientName = "" }, "patient_name", "Patient name is required."},
		{"missing contact", func(r *Request) { r.ContactNumber = "" }, "contact_number", "Contact number is required."},
		{"bad email", func(r *Request) { r.EmailAddress = "not-an-email" }, "email_address", "Email address is invalid."},
		{"whatsapp without number", func(r *Request) { r.PreferredChannel = ChannelWhatsApp }, "whatsapp_number", "WhatsApp number is required for WhatsApp reminders."},
		{"email without address", func(r *Request) { r.PreferredChannel = ChannelEmail }, "email_address", "Email address is required for email reminders."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			err := NewValidator().Validate(&req)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, tt.message, verr.Error())
		})
	}
}

func TestValidateAllowsUnknownChannel(t *testing.T) {
	req := validRequest()
	req.PreferredChannel = "pager"
	assert.NoError(t, NewValidator().Validate(&req))
	assert.False(t, req.PreferredChannel.Known())
}

func TestChannelLabels(t *testing.T) {
	labels := []string{}
	for _, c := range Channels() {
		labels = append(labels, c.Label())
	}
	assert.Equal(t, []string{"SMS", "WhatsApp", "Email", "Voice Call"}, labels)
}
