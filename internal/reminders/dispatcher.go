package reminders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	"github.com/wolfman30/clinic-scheduler/internal/notify"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// SMSSender sends a plain text message to a phone number.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// WhatsAppSender sends a WhatsApp message to a phone number.
type WhatsAppSender interface {
	SendWhatsApp(ctx context.Context, to, body string) error
}

// VoiceCaller places an outbound call that plays a TwiML document.
type VoiceCaller interface {
	PlaceCall(ctx context.Context, to, twiml string) error
}

// ErrChannelUnavailable is returned when the transport for a channel isn't configured.
var ErrChannelUnavailable = errors.New("reminders: channel transport not configured")

// Dispatcher delivers a reminder over the patient's preferred channel.
type Dispatcher struct {
	renderer *Renderer
	sms      SMSSender
	whatsapp WhatsAppSender
	voice    VoiceCaller
	email    notify.EmailSender
	logger   *logging.Logger
}

// DispatcherConfig wires the channel transports. Any of them may be nil.
type DispatcherConfig struct {
	Renderer *Renderer
	SMS      SMSSender
	WhatsApp WhatsAppSender
	Voice    VoiceCaller
	Email    notify.EmailSender
	Logger   *logging.Logger
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		renderer: cfg.Renderer,
		sms:      cfg.SMS,
		whatsapp: cfg.WhatsApp,
		voice:    cfg.Voice,
		email:    cfg.Email,
		logger:   logger,
	}
}

// Resolve returns the channel a reminder is actually delivered on. Unknown
// channels fall back to SMS.
func Resolve(ch appointments.Channel) appointments.Channel {
	if ch.Known() {
		return ch
	}
	return appointments.ChannelSMS
}

// Dispatch sends rem and returns the channel used.
func (d *Dispatcher) Dispatch(ctx context.Context, rem *Reminder) (appointments.Channel, error) {
	if d.renderer == nil {
		return "", errors.New("reminders: renderer not configured")
	}
	channel := Resolve(rem.Channel)
	if channel != rem.Channel {
		d.logger.Warn("unknown reminder channel, falling back to sms",
			"reminder_id", rem.ID, "channel", string(rem.Channel))
	}

	var err error
	switch channel {
	case appointments.ChannelWhatsApp:
		err = d.sendWhatsApp(ctx, rem)
	case appointments.ChannelEmail:
		err = d.sendEmail(ctx, rem)
	case appointments.ChannelVoice:
		err = d.call(ctx, rem)
	default:
		err = d.sendSMS(ctx, rem)
	}
	if err != nil {
		return channel, err
	}
	d.logger.Info("reminder dispatched", "reminder_id", rem.ID, "appointment_id", rem.AppointmentID, "channel", string(channel))
	return channel, nil
}

func requireDestination(channel appointments.Channel, dest string) error {
	if strings.TrimSpace(dest) == "" {
		return fmt.Errorf("reminders: no %s destination", channel)
	}
	return nil
}

func (d *Dispatcher) sendSMS(ctx context.Context, rem *Reminder) error {
	if d.sms == nil {
		return fmt.Errorf("%w: sms", ErrChannelUnavailable)
	}
	if err := requireDestination(appointments.ChannelSMS, rem.ContactNumber); err != nil {
		return err
	}
	body, err := d.renderer.Text(rem)
	if err != nil {
		return err
	}
	return d.sms.SendSMS(ctx, rem.ContactNumber, body)
}

func (d *Dispatcher) sendWhatsApp(ctx context.Context, rem *Reminder) error {
	if d.whatsapp == nil {
		return fmt.Errorf("%w: whatsapp", ErrChannelUnavailable)
	}
	if err := requireDestination(appointments.ChannelWhatsApp, rem.WhatsAppNumber); err != nil {
		return err
	}
	body, err := d.renderer.Text(rem)
	if err != nil {
		return err
	}
	return d.whatsapp.SendWhatsApp(ctx, rem.WhatsAppNumber, body)
}

func (d *Dispatcher) sendEmail(ctx context.Context, rem *Reminder) error {
	if d.email == nil {
		return fmt.Errorf("%w: email", ErrChannelUnavailable)
	}
	if err := requireDestination(appointments.ChannelEmail, rem.EmailAddress); err != nil {
		return err
	}
	subject, html, err := d.renderer.Email(rem)
	if err != nil {
		return err
	}
	return d.email.Send(ctx, notify.EmailMessage{
		To:      rem.EmailAddress,
		ToName:  rem.PatientName,
		Subject: subject,
		HTML:    html,
	})
}

func (d *Dispatcher) call(ctx context.Context, rem *Reminder) error {
	if d.voice == nil {
		return fmt.Errorf("%w: voice", ErrChannelUnavailable)
	}
	if err := requireDestination(appointments.ChannelVoice, rem.ContactNumber); err != nil {
		return err
	}
	twiml, err := d.renderer.TwiML(rem)
	if err != nil {
		return err
	}
	return d.voice.PlaceCall(ctx, rem.ContactNumber, twiml)
}
