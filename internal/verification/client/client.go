// Package client talks to the verification service over HTTP. It is the only
// place that knows the wire format; callers receive models.Record values and
// errors from the models taxonomy.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"carebridge/internal/verification/metrics"
	"carebridge/internal/verification/models"
	id "carebridge/pkg/domain"
	dErrors "carebridge/pkg/domain-errors"
	"carebridge/pkg/platform/circuit"
	"carebridge/pkg/platform/httputil"
)

const (
	tracerName = "carebridge/verification/client"

	opList   = "list_therapists"
	opUpdate = "update_stage"

	maxResponseBytes = 4 << 20
)

// Client is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Client)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithBreaker replaces the default breaker (5 failures to open, 30s cooldown).
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		c.tracer = tp.Tracer(tracerName)
	}
}

// New builds a client for the service at baseURL, authenticating decisions with token.
func New(baseURL, token string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("verification service base URL is required")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base URL must be http or https, got %q", baseURL)
	}
	c := &Client{
		baseURL: u,
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
		breaker: circuit.New("verification-service"),
		logger:  slog.New(slog.DiscardHandler),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListTherapists returns every record regardless of account status.
func (c *Client) ListTherapists(ctx context.Context) ([]*models.Record, error) {
	return c.ListByStatus(ctx, "all")
}

// ListByStatus returns records whose account status matches status, or all for "all".
func (c *Client) ListByStatus(ctx context.Context, status string) ([]*models.Record, error) {
	ctx, span := c.tracer.Start(ctx, "verification.ListTherapists",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("therapist.status_filter", status)))
	defer span.End()

	q := url.Values{"status": []string{status}}
	var body []models.TherapistResponse
	if err := c.do(ctx, opList, http.MethodGet, "/api/therapists?"+q.Encode(), nil, &body); err != nil {
		endSpan(span, err)
		return nil, err
	}

	records := make([]*models.Record, 0, len(body))
	for _, item := range body {
		r, err := models.FromResponse(item)
		if err != nil {
			err = models.TransportError("verification service returned a malformed record", err)
			endSpan(span, err)
			return nil, err
		}
		records = append(records, r)
	}
	span.SetAttributes(attribute.Int("therapist.count", len(records)))
	return records, nil
}

// UpdateStage submits one decision and returns the record the service now holds.
func (c *Client) UpdateStage(ctx context.Context, therapistID id.TherapistID, stage models.Stage, decision models.Decision, notes string) (*models.Record, error) {
	ctx, span := c.tracer.Start(ctx, "verification.UpdateStage",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("therapist.id", therapistID.String()),
			attribute.String("verification.stage", string(stage)),
			attribute.String("verification.decision", string(decision)),
		))
	defer span.End()

	if !stage.IsDecidable() {
		err := dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("stage %q accepts no decision", stage))
		endSpan(span, err)
		return nil, err
	}

	req := models.NewDecisionRequest(stage, decision, notes)
	var body models.TherapistResponse
	path := "/api/therapists/" + url.PathEscape(therapistID.String()) + "/verification"
	if err := c.do(ctx, opUpdate, http.MethodPost, path, req, &body); err != nil {
		endSpan(span, err)
		return nil, err
	}

	r, err := models.FromResponse(body)
	if err != nil {
		err = models.TransportError("verification service returned a malformed record", err)
		endSpan(span, err)
		return nil, err
	}
	if r.ID != therapistID {
		err = models.TransportError("verification service returned a different therapist", nil)
		endSpan(span, err)
		return nil, err
	}
	return r, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	start := time.Now()
	result := "ok"
	defer func() {
		c.metrics.ObserveClientRequest(op, result, time.Since(start))
	}()

	if !c.breaker.Allow() {
		result = "circuit_open"
		return models.TransportError("verification service circuit open", nil)
	}

	var reqBody io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			result = "encode_error"
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode request")
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reqBody)
	if err != nil {
		result = "encode_error"
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		result = "network_error"
		c.recordFailure(ctx, op, err)
		return models.TransportError("verification service unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		result = "network_error"
		c.recordFailure(ctx, op, err)
		return models.TransportError("failed to read verification service response", err)
	}

	if resp.StatusCode >= 500 {
		result = "server_error"
		err := fmt.Errorf("status %d", resp.StatusCode)
		c.recordFailure(ctx, op, err)
		return models.TransportError("verification service failed", err)
	}
	c.breaker.RecordSuccess()

	if resp.StatusCode >= 400 {
		result = "rejected"
		return errorFromResponse(resp.StatusCode, raw)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			result = "decode_error"
			return models.TransportError("failed to decode verification service response", err)
		}
	}
	return nil
}

func (c *Client) recordFailure(ctx context.Context, op string, err error) {
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "verification service circuit opened",
			"operation", op,
			"breaker", c.breaker.Name(),
			"error", err,
		)
	}
}

// errorFromResponse maps a 4xx response to the models taxonomy. The service
// answers 409 with invalid_state for an out-of-order stage and conflict for a
// decision it is already applying.
func errorFromResponse(status int, raw []byte) error {
	var body httputil.ErrorResponse
	_ = json.Unmarshal(raw, &body)
	desc := body.ErrorDescription
	if desc == "" {
		desc = http.StatusText(status)
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return models.Unauthorized(desc)
	case http.StatusNotFound:
		return dErrors.New(dErrors.CodeNotFound, desc)
	case http.StatusConflict:
		if dErrors.Code(body.Error) == dErrors.CodeConflict {
			return dErrors.Wrap(models.ErrDecisionInProgress, dErrors.CodeConflict, desc)
		}
		return dErrors.Wrap(models.ErrStageNotActionable, dErrors.CodeInvalidState, desc)
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return models.TransportError(desc, nil)
	default:
		return dErrors.New(dErrors.CodeBadRequest, desc)
	}
}

func endSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
