package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// DefaultPath is where the scheduling service accepts appointment requests.
const DefaultPath = "/.netlify/functions/appointment_scheduler/schedule"

const maxResponseBytes = 64 << 10

// ErrInvalidResponse is returned when a 2xx response carries no JSON object.
var ErrInvalidResponse = errors.New("invalid response from scheduling service")

// ServiceError is a non-2xx response from the scheduling service. Message is
// the service's own message when it sent one.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// TransportError wraps a failure that produced no HTTP response at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Message returns the text shown to the patient for a failed submission.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Message
	}
	return err.Error()
}

type serviceResponse struct {
	Message *string `json:"message"`
}

// Client posts appointment requests to the scheduling service.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *logging.Logger
	tracer     trace.Tracer
}

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL string
	// Path defaults to DefaultPath.
	Path       string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logging.Logger
}

func NewClient(cfg ClientConfig) *Client {
	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + path,
		httpClient: httpClient,
		logger:     logger,
		tracer:     otel.Tracer("clinic.internal.submission"),
	}
}

// Endpoint is the full URL requests are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Schedule sends one request and returns the service's success message. It
// never retries.
func (c *Client) Schedule(ctx context.Context, req appointments.Request) (string, error) {
	ctx, span := c.tracer.Start(ctx, "submission.schedule", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("submission: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("submission: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		c.logger.Warn("scheduling service unreachable", "error", err, "endpoint", c.endpoint)
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		span.RecordError(err)
		return "", &TransportError{Err: err}
	}

	var parsed serviceResponse
	decodeErr := json.Unmarshal(body, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		svcErr := &ServiceError{StatusCode: resp.StatusCode}
		if decodeErr == nil && parsed.Message != nil {
			svcErr.Message = *parsed.Message
		} else {
			svcErr.Message = fmt.Sprintf("Request failed with status code %d", resp.StatusCode)
		}
		c.logger.Info("scheduling service rejected request", "status", resp.StatusCode, "message", svcErr.Message)
		return "", svcErr
	}

	if decodeErr != nil {
		span.RecordError(decodeErr)
		c.logger.Warn("undecodable scheduling response", "error", decodeErr, "status", resp.StatusCode)
		return "", ErrInvalidResponse
	}
	if parsed.Message == nil {
		return "", nil
	}
	return *parsed.Message, nil
}
