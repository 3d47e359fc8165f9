package appointments

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator checks appointment requests before they are scheduled.
type Validator struct {
	v *validator.Validate
}

// NewValidator builds a validator that reports fields by their JSON names.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

var fieldMessages = map[string]string{
	"patient_name/required":     "Patient name is required.",
	"appointment_time/required": "Appointment time is required.",
	"contact_number/required":   "Contact number is required.",
	"email_address/email":       "Email address is invalid.",
}

// Validate returns a *ValidationError describing the first problem found.
// The request is expected to be normalized already.
func (v *Validator) Validate(req *Request) error {
	if req == nil {
		return &ValidationError{Message: "Request body is required."}
	}
	if err := v.v.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			msg, ok := fieldMessages[first.Field()+"/"+first.Tag()]
			if !ok {
				msg = "Invalid value for " + first.Field() + "."
			}
			return &ValidationError{Field: first.Field(), Message: msg, Err: err}
		}
		return &ValidationError{Message: "Invalid appointment request.", Err: err}
	}

	switch req.PreferredChannel {
	case ChannelWhatsApp:
		if req.WhatsAppNumber == "" {
			return &ValidationError{Field: "whatsapp_number", Message: "WhatsApp number is required for WhatsApp reminders."}
		}
	case ChannelEmail:
		if req.EmailAddress == "" {
			return &ValidationError{Field: "email_address", Message: "Email address is required for email reminders."}
		}
	}
	return nil
}
