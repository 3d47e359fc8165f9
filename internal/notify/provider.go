package notify

import (
	"strings"

	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// Provider names accepted by EMAIL_PROVIDER.
const (
	ProviderAuto     = "auto"
	ProviderSendGrid = "sendgrid"
	ProviderSES      = "ses"
	ProviderStub     = "stub"
)

// ProviderConfig selects and configures the email backend.
type ProviderConfig struct {
	Provider  string
	SendGrid  SendGridConfig
	SES       SESConfig
	SESClient SESAPI
}

// NewEmailSender picks an email backend. "auto" prefers SendGrid, then SES, and
// settles on the log-only stub when neither is configured. An explicitly
// requested provider that isn't configured also falls back to the stub.
func NewEmailSender(cfg ProviderConfig, logger *logging.Logger) (EmailSender, string) {
	if logger == nil {
		logger = logging.Default()
	}
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderAuto
	}

	if provider == ProviderAuto || provider == ProviderSendGrid {
		if sender := NewSendGridSender(cfg.SendGrid, logger); sender != nil {
			return sender, ProviderSendGrid
		}
	}
	if provider == ProviderAuto || provider == ProviderSES {
		if sender := NewSESSender(cfg.SESClient, cfg.SES, logger); sender != nil {
			return sender, ProviderSES
		}
	}
	if provider != ProviderAuto && provider != ProviderStub {
		logger.Warn("email provider not configured, using stub sender", "provider", provider)
	}
	return NewStubEmailSender(logger), ProviderStub
}
