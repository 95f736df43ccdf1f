package chatwork

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	// DefaultMaxAttempts caps the total number of attempts for one call.
	DefaultMaxAttempts = 5
	// DefaultInitialDelay is the wait before the first retry. It doubles
	// after every 429.
	DefaultInitialDelay = 10 * time.Second

	maxResponseBytes = 10 << 20 // 10 MiB
	unavailable      = "unavailable"
)

// RequestFunc builds the HTTP request for one attempt. It is invoked once per
// attempt and must yield the same method, URL, headers and body every time.
type RequestFunc func(ctx context.Context) (*http.Request, error)

// Recorder receives executor events. Implementations must be safe for
// concurrent use.
type Recorder interface {
	RequestAttempt(op string)
	RateLimited(op string)
	RequestFailed(op, kind string)
}

type nopRecorder struct{}

func (nopRecorder) RequestAttempt(string)        {}
func (nopRecorder) RateLimited(string)           {}
func (nopRecorder) RequestFailed(string, string) {}

// RetryConfig controls the 429 backoff loop.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
}

func (c *RetryConfig) defaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = DefaultInitialDelay
	}
}

// Executor performs API calls with rate-limit-aware retry. It holds no
// per-call state: the attempt counter and delay live on the stack of execute,
// so one Executor serves any number of sequential or concurrent calls.
type Executor struct {
	http     *http.Client
	retry    RetryConfig
	limiter  *rate.Limiter // nil = no client-side pacing
	logger   *slog.Logger
	recorder Recorder
	tracer   trace.Tracer
	sleep    func(ctx context.Context, d time.Duration) error
}

// execute runs newRequest until it yields a non-429 response or the attempt
// cap is reached, then decodes a 2xx body into T.
func execute[T any](ctx context.Context, e *Executor, op string, newRequest RequestFunc) (T, error) {
	var zero T

	ctx, span := e.tracer.Start(ctx, "chatwork."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("chatwork.op", op)),
	)
	defer span.End()

	delay := e.retry.InitialDelay

	for attempt := range e.retry.MaxAttempts {
		e.logger.Info("chatwork: request attempt",
			"op", op,
			"attempt", attempt+1,
			"max_attempts", e.retry.MaxAttempts,
		)
		e.recorder.RequestAttempt(op)
		span.SetAttributes(attribute.Int("chatwork.attempts", attempt+1))

		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return zero, e.terminal(span, op, fmt.Errorf("chatwork: %s: waiting for rate limiter: %w", op, err))
			}
		}

		req, err := newRequest(ctx)
		if err != nil {
			return zero, e.terminal(span, op, fmt.Errorf("chatwork: create %s request: %w", op, err))
		}

		resp, err := e.http.Do(req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return zero, e.terminal(span, op, ctxErr)
			}
			return zero, e.terminal(span, op, fmt.Errorf("%w: %s: %w", ErrTransport, op, err))
		}
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			out, err := decodeBody[T](resp, op)
			if err != nil {
				return zero, e.terminal(span, op, err)
			}
			return out, nil

		case resp.StatusCode == http.StatusTooManyRequests:
			discardBody(resp)
			limits := rateLimitAttrs(resp.Header)

			if attempt == e.retry.MaxAttempts-1 {
				e.logger.Error("chatwork: rate limited on final attempt",
					append([]any{"op", op, "attempts", attempt + 1}, limits...)...,
				)
				return zero, e.terminal(span, op, fmt.Errorf("%w: %s after %d attempts", ErrRetriesExhausted, op, attempt+1))
			}

			e.recorder.RateLimited(op)
			e.logger.Warn("chatwork: rate limited, backing off",
				append([]any{"op", op, "attempt", attempt + 1, "delay", delay}, limits...)...,
			)
			span.AddEvent("rate_limited", trace.WithAttributes(
				attribute.Int("chatwork.attempt", attempt+1),
				attribute.String("chatwork.delay", delay.String()),
			))

			if err := e.sleep(ctx, delay); err != nil {
				return zero, e.terminal(span, op, err)
			}
			delay *= 2

		default:
			return zero, e.terminal(span, op, e.apiError(resp, op))
		}
	}

	// Only reachable with MaxAttempts <= 0, which defaults() rules out.
	return zero, e.terminal(span, op, fmt.Errorf("%w: %s", ErrRetriesExhausted, op))
}

// terminal records a final failure for op and returns err unchanged.
func (e *Executor) terminal(span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	kind := ErrorKind(err)
	if kind == "" {
		e.logger.Warn("chatwork: request aborted", "op", op, "error", err)
		return err
	}

	e.recorder.RequestFailed(op, kind)
	e.logger.Error("chatwork: request failed", "op", op, "kind", kind, "error", err)
	return err
}

// apiError drains a non-success response and converts it into an *APIError,
// logging everything needed to diagnose it.
func (e *Executor) apiError(resp *http.Response, op string) error {
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: %s: read error response (status %d): %w", ErrTransport, op, resp.StatusCode, err)
	}

	detail := parseErrors(raw)

	e.logger.Error("chatwork: API returned an error",
		append([]any{
			"op", op,
			"status", resp.StatusCode,
			"headers", resp.Header,
			"body", string(raw),
			"errors", detail,
		}, rateLimitAttrs(resp.Header)...)...,
	)

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("%s request failed: %s", op, detail),
	}
}

// decodeBody reads a 2xx body into T. An empty body (204 No Content, which
// Chatwork returns for a room with nothing new) yields the zero value.
func decodeBody[T any](resp *http.Response, op string) (T, error) {
	var out T
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return out, fmt.Errorf("%w: %s: read response: %w", ErrTransport, op, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%w: %s: %w", ErrDecode, op, err)
	}
	return out, nil
}

// parseErrors extracts the "errors" field of a Chatwork error payload.
// Anything unparsable yields "null" instead of failing.
func parseErrors(raw []byte) string {
	if !gjson.ValidBytes(raw) {
		return "null"
	}
	field := gjson.GetBytes(raw, "errors")
	if !field.Exists() {
		return "null"
	}
	return field.Raw
}

func rateLimitAttrs(h http.Header) []any {
	return []any{
		"x_ratelimit_limit", headerOr(h, "X-Ratelimit-Limit"),
		"x_ratelimit_remaining", headerOr(h, "X-Ratelimit-Remaining"),
		"x_ratelimit_reset", headerOr(h, "X-Ratelimit-Reset"),
	}
}

func headerOr(h http.Header, key string) string {
	if v := h.Get(key); v != "" {
		return v
	}
	return unavailable
}

// discardBody drains and closes the body so the connection can be reused.
func discardBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	_ = resp.Body.Close()
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
