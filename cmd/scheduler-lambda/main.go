package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/wolfman30/clinic-scheduler/cmd/mainconfig"
	"github.com/wolfman30/clinic-scheduler/internal/app/bootstrap"
	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	appconfig "github.com/wolfman30/clinic-scheduler/internal/config"
	"github.com/wolfman30/clinic-scheduler/internal/scheduling"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	ctx := context.Background()

	var awsCfg *aws.Config
	if mainconfig.NeedsAWS(cfg) {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		awsCfg = &loaded
	}

	rt, err := newRuntime(ctx, cfg, logger, awsCfg)
	if err != nil {
		logger.Error("failed to build runtime", "error", err)
		os.Exit(1)
	}

	h := scheduling.NewHandler(rt.Scheduling, logger)
	lambda.Start(func(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		return handle(ctx, h, evt)
	})
}

// newRuntime builds the backend for the function. The function never runs the
// reminder worker, so reminders must go to a shared store.
func newRuntime(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, awsCfg *aws.Config) (*bootstrap.Runtime, error) {
	return bootstrap.NewRuntime(ctx, cfg, logger, bootstrap.Options{
		AWS:                     awsCfg,
		VerifyRedis:             true,
		RequireDurableReminders: true,
	})
}

func handle(ctx context.Context, h *scheduling.Handler, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = strings.TrimSpace(evt.RequestContext.HTTP.Path)
	}

	if path == "/health" || path == "/_health" {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusOK, Body: "ok"}, nil
	}

	switch path {
	case scheduling.SchedulePath, scheduling.NetlifySchedulePath:
	default:
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusNotFound}, nil
	}

	if method == http.MethodOptions {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusNoContent, Headers: corsHeaders(evt)}, nil
	}
	if method != http.MethodPost {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusMethodNotAllowed}, nil
	}

	var req appointments.Request
	body, err := decodeBody(evt)
	if err == nil {
		err = json.Unmarshal(body, &req)
	}
	if err != nil {
		return respond(evt, http.StatusBadRequest, scheduling.Response{Message: scheduling.MsgInvalidBody}), nil
	}

	status, resp := h.Process(ctx, req)
	return respond(evt, status, resp), nil
}

func respond(evt events.APIGatewayV2HTTPRequest, status int, body scheduling.Response) events.APIGatewayV2HTTPResponse {
	payload, _ := json.Marshal(body)
	headers := corsHeaders(evt)
	headers["content-type"] = "application/json"
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Body:       string(payload),
		Headers:    headers,
	}
}

// corsHeaders echoes the caller's origin so a statically hosted form can post cross-site.
func corsHeaders(evt events.APIGatewayV2HTTPRequest) map[string]string {
	headers := map[string]string{}
	if origin := strings.TrimSpace(headerValue(evt.Headers, "origin")); origin != "" {
		headers["access-control-allow-origin"] = origin
		headers["access-control-allow-methods"] = "POST, OPTIONS"
		headers["access-control-allow-headers"] = "Content-Type"
		headers["vary"] = "Origin"
	}
	return headers
}

func decodeBody(evt events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !evt.IsBase64Encoded {
		return []byte(evt.Body), nil
	}
	return base64.StdEncoding.DecodeString(evt.Body)
}

func headerValue(headers map[string]string, key string) string {
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}
