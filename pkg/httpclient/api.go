package httpclient

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

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/utafrali/ecommerce-admin/pkg/errors"
	"github.com/utafrali/ecommerce-admin/pkg/logger"
	"github.com/utafrali/ecommerce-admin/pkg/tracing"
)

// maxResponseBody bounds how much of a successful response is read.
const maxResponseBody = 10 << 20

// Doer sends a prepared request. Both *Client and *CircuitBreakerClient satisfy it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Options describes one backend call.
type Options struct {
	// Method defaults to GET.
	Method string
	// Body is sent verbatim when it is a string, []byte or json.RawMessage,
	// and JSON-encoded otherwise. Nil sends no body.
	Body any
	// Headers are merged over the JSON defaults; caller values win.
	Headers http.Header
	// Query is appended to the endpoint's own query string.
	Query url.Values
	// Token, when set, is sent as "Authorization: Bearer <token>".
	Token string
}

// API issues JSON requests against the storefront backend and normalizes its
// failures into apperrors.RequestError. It never retries on its own.
type API struct {
	base   string
	doer   Doer
	logger *slog.Logger
	tracer trace.Tracer
}

// NewAPI returns an API rooted at baseURL (e.g. "http://localhost:8080/api/v1").
func NewAPI(baseURL string, doer Doer, logger *slog.Logger) (*API, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend base URL must be http or https, got %q", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("backend base URL must have a host, got %q", baseURL)
	}

	return &API{
		base:   strings.TrimRight(u.String(), "/"),
		doer:   doer,
		logger: logger,
		tracer: tracing.Tracer("github.com/utafrali/ecommerce-admin/pkg/httpclient"),
	}, nil
}

// BaseURL returns the normalized base URL.
func (a *API) BaseURL() string {
	return a.base
}

// Request performs the call and decodes a 2xx JSON body into out (which may
// be nil, or a *json.RawMessage to keep the body undecoded). A non-2xx answer
// returns *apperrors.RequestError; a transport failure wraps apperrors.ErrTransport.
func (a *API) Request(ctx context.Context, endpoint string, opts Options, out any) error {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	resource := resourceLabel(endpoint)

	target, err := a.resolve(endpoint, opts.Query)
	if err != nil {
		return err
	}

	body, err := encodeBody(opts.Body)
	if err != nil {
		return err
	}

	ctx, span := a.tracer.Start(ctx, method+" /"+resource,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.full", target),
		),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", method, err)
	}
	a.setHeaders(ctx, req, opts)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	log := logger.WithContext(ctx, a.logger)
	started := time.Now()

	resp, err := a.doer.Do(ctx, req)
	if err != nil {
		observe(method, resource, 0, started)
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		log.WarnContext(ctx, "backend request failed",
			slog.String("method", method),
			slog.String("url", target),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%s %s: %w: %w", method, endpoint, apperrors.ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	observe(method, resource, resp.StatusCode, started)
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reqErr := ParseResponseError(resp)
		if resp.StatusCode >= 500 {
			span.SetStatus(codes.Error, reqErr.Message)
		}
		log.WarnContext(ctx, "backend returned error",
			slog.String("method", method),
			slog.String("url", target),
			slog.Int("status", resp.StatusCode),
			slog.String("message", reqErr.Message),
		)
		return reqErr
	}

	log.DebugContext(ctx, "backend request",
		slog.String("method", method),
		slog.String("url", target),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(started)),
	)

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("read %s response: %w: %w", endpoint, apperrors.ErrTransport, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w: %w", endpoint, apperrors.ErrShapeMismatch, err)
	}
	return nil
}

// resolve joins a relative endpoint onto the base URL and merges query values.
// Absolute endpoints are used verbatim.
func (a *API) resolve(endpoint string, query url.Values) (string, error) {
	raw := endpoint
	if !isAbsolute(endpoint) {
		raw = a.base + "/" + strings.TrimLeft(endpoint, "/")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vals := range query {
			for _, v := range vals {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (a *API) setHeaders(ctx context.Context, req *http.Request, opts Options) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	for key, vals := range opts.Headers {
		req.Header.Del(key)
		for _, v := range vals {
			req.Header.Add(key, v)
		}
	}

	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}

	if req.Header.Get("X-Correlation-ID") == "" {
		id := logger.CorrelationIDFromContext(ctx)
		if id == "" {
			id = uuid.New().String()
		}
		req.Header.Set("X-Correlation-ID", id)
	}
}

// encodeBody turns Options.Body into a request body. Strings and raw bytes
// are assumed to be serialized already.
func encodeBody(body any) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case string:
		return strings.NewReader(b), nil
	case []byte:
		return bytes.NewReader(b), nil
	case json.RawMessage:
		return bytes.NewReader(b), nil
	case io.Reader:
		return nil, errors.New("request body must be a value, not a stream")
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		return bytes.NewReader(data), nil
	}
}

func isAbsolute(endpoint string) bool {
	return strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://")
}
