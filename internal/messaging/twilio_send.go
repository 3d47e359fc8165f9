package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

var twilioTracer = otel.Tracer("clinic.internal.messaging.twilio")

const (
	defaultTwilioBaseURL = "https://api.twilio.com/2010-04-01"
	twilioMaxAttempts    = 3
	whatsAppPrefix       = "whatsapp:"
)

// TwilioConfig configures the Twilio REST client.
type TwilioConfig struct {
	AccountSID     string
	AuthToken      string
	FromNumber     string
	WhatsAppNumber string
	// BaseURL overrides the Twilio API root (for testing).
	BaseURL    string
	HTTPClient *http.Client
	Logger     *logging.Logger
}

// TwilioClient sends SMS and WhatsApp messages and places voice calls
// through Twilio's REST API.
type TwilioClient struct {
	accountSID   string
	authToken    string
	from         string
	whatsAppFrom string
	baseURL      string
	httpClient   *http.Client
	logger       *logging.Logger
	backoff      func(attempt int) time.Duration
}

// NewTwilioClient builds a client with sane defaults.
func NewTwilioClient(cfg TwilioConfig) (*TwilioClient, error) {
	if strings.TrimSpace(cfg.AccountSID) == "" || strings.TrimSpace(cfg.AuthToken) == "" {
		return nil, errors.New("messaging: twilio credentials missing")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultTwilioBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &TwilioClient{
		accountSID:   cfg.AccountSID,
		authToken:    cfg.AuthToken,
		from:         strings.TrimSpace(cfg.FromNumber),
		whatsAppFrom: strings.TrimSpace(cfg.WhatsAppNumber),
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   httpClient,
		logger:       logger,
		backoff: func(int) time.Duration {
			return time.Duration(200+rand.Intn(300)) * time.Millisecond
		},
	}, nil
}

// SendSMS delivers body to the patient's phone number.
func (c *TwilioClient) SendSMS(ctx context.Context, to, body string) error {
	if c.from == "" {
		return errors.New("messaging: twilio from number not configured")
	}
	if strings.TrimSpace(to) == "" {
		return errors.New("messaging: to required")
	}
	if strings.TrimSpace(body) == "" {
		return errors.New("messaging: body required")
	}
	form := url.Values{}
	form.Set("To", strings.TrimSpace(to))
	form.Set("From", c.from)
	form.Set("Body", body)
	sid, err := c.post(ctx, "messaging.twilio.sms", "Messages.json", form)
	if err != nil {
		return err
	}
	c.logger.Info("twilio sms sent", "to", to, "sid", sid)
	return nil
}

// SendWhatsApp delivers body over WhatsApp; both addresses get the whatsapp: prefix.
func (c *TwilioClient) SendWhatsApp(ctx context.Context, to, body string) error {
	if c.whatsAppFrom == "" {
		return errors.New("messaging: twilio whatsapp number not configured")
	}
	if strings.TrimSpace(to) == "" {
		return errors.New("messaging: to required")
	}
	if strings.TrimSpace(body) == "" {
		return errors.New("messaging: body required")
	}
	form := url.Values{}
	form.Set("To", whatsAppAddress(to))
	form.Set("From", whatsAppAddress(c.whatsAppFrom))
	form.Set("Body", body)
	sid, err := c.post(ctx, "messaging.twilio.whatsapp", "Messages.json", form)
	if err != nil {
		return err
	}
	c.logger.Info("twilio whatsapp message sent", "to", to, "sid", sid)
	return nil
}

// PlaceCall starts an outbound call that plays the given TwiML document.
func (c *TwilioClient) PlaceCall(ctx context.Context, to, twiml string) error {
	if c.from == "" {
		return errors.New("messaging: twilio from number not configured")
	}
	if strings.TrimSpace(to) == "" {
		return errors.New("messaging: to required")
	}
	if strings.TrimSpace(twiml) == "" {
		return errors.New("messaging: twiml required")
	}
	form := url.Values{}
	form.Set("To", strings.TrimSpace(to))
	form.Set("From", c.from)
	form.Set("Twiml", twiml)
	sid, err := c.post(ctx, "messaging.twilio.call", "Calls.json", form)
	if err != nil {
		return err
	}
	c.logger.Info("twilio voice call placed", "to", to, "sid", sid)
	return nil
}

// post submits form to an account resource and returns the created SID.
// Creates are not idempotent, so only 429s are retried here: Twilio rejected
// those before creating anything. Transport errors and 5xx responses may have
// sent the message and are left to the caller's retry policy.
func (c *TwilioClient) post(ctx context.Context, spanName, resource string, form url.Values) (string, error) {
	ctx, span := twilioTracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("clinic.to", form.Get("To")))

	endpoint := fmt.Sprintf("%s/Accounts/%s/%s", c.baseURL, c.accountSID, resource)
	payload := form.Encode()

	var lastErr error
	for attempt := 1; attempt <= twilioMaxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload))
		if err != nil {
			lastErr = err
			break
		}
		req.SetBasicAuth(c.accountSID, c.authToken)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("messaging: twilio request: %w", err)
			break
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			var parsed struct {
				SID string `json:"sid"`
			}
			_ = json.Unmarshal(body, &parsed)
			return parsed.SID, nil
		}
		lastErr = fmt.Errorf("messaging: twilio request failed: %s", formatTwilioError(resp.StatusCode, body))
		if resp.StatusCode != http.StatusTooManyRequests {
			break
		}

		if attempt < twilioMaxAttempts {
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				attempt = twilioMaxAttempts
			case <-time.After(c.backoff(attempt)):
			}
		}
	}

	span.RecordError(lastErr)
	return "", lastErr
}

func whatsAppAddress(number string) string {
	number = strings.TrimSpace(number)
	if strings.HasPrefix(number, whatsAppPrefix) {
		return number
	}
	return whatsAppPrefix + number
}

type twilioAPIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func formatTwilioError(status int, body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fmt.Sprintf("status %d", status)
	}
	var parsed twilioAPIError
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil && parsed.Message != "" {
		if parsed.Code != 0 {
			return fmt.Sprintf("status %d code %d: %s", status, parsed.Code, parsed.Message)
		}
		return fmt.Sprintf("status %d: %s", status, parsed.Message)
	}
	return fmt.Sprintf("status %d: %s", status, trimmed)
}
