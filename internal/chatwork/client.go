package chatwork

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the Chatwork API v2 root.
	DefaultBaseURL = "https://api.chatwork.com/v2"
	// DefaultTimeout bounds a single HTTP round-trip.
	DefaultTimeout = 30 * time.Second

	tokenHeader = "X-ChatWorkToken"
	tracerName  = "github.com/flemzord/chatwork-autoread/internal/chatwork"
)

// Operation names used in logs, metrics and span names.
const (
	OpFetchRooms    = "fetch_rooms"
	OpFetchMessages = "fetch_messages"
	OpMarkAsRead    = "mark_as_read"
)

// Client exposes the Chatwork endpoints used by the sweeper.
type Client struct {
	token   string
	baseURL string
	exec    Executor
}

// Option configures optional Client behavior.
type Option func(*Client)

// WithBaseURL overrides the API root (tests, proxies).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.exec.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.exec.http = &http.Client{Timeout: d}
		}
	}
}

// WithRetry overrides the 429 retry policy. Zero fields keep their defaults.
func WithRetry(cfg RetryConfig) Option {
	return func(c *Client) { c.exec.retry = cfg }
}

// WithRateLimit paces outgoing requests with a token bucket of rps requests
// per second shared by every call of this client. rps <= 0 disables pacing.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.exec.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithLogger injects a structured logger. When omitted, log output is discarded.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.exec.logger = l
		}
	}
}

// WithRecorder injects a metrics sink for executor events.
func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		if r != nil {
			c.exec.recorder = r
		}
	}
}

// WithTracerProvider sets the provider used for request spans. Defaults to
// the global otel provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		if tp != nil {
			c.exec.tracer = tp.Tracer(tracerName)
		}
	}
}

// NewClient creates a Chatwork client authenticated with token.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		token:   token,
		baseURL: DefaultBaseURL,
		exec: Executor{
			http:     &http.Client{Timeout: DefaultTimeout},
			logger:   slog.New(slog.DiscardHandler),
			recorder: nopRecorder{},
			tracer:   otel.Tracer(tracerName),
			sleep:    sleepContext,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.exec.retry.defaults()
	return c
}

// FetchRooms lists every room the token's account can see.
func (c *Client) FetchRooms(ctx context.Context) ([]Room, error) {
	c.exec.logger.Info("chatwork: fetching rooms")
	return execute[[]Room](ctx, &c.exec, OpFetchRooms, c.request(http.MethodGet, "/rooms", nil))
}

// FetchMessages lists the messages of one room, oldest first.
func (c *Client) FetchMessages(ctx context.Context, roomID int64) ([]Message, error) {
	c.exec.logger.Info("chatwork: fetching messages", "room_id", roomID)
	return execute[[]Message](ctx, &c.exec, OpFetchMessages, c.request(http.MethodGet, roomPath(roomID, "/messages"), nil))
}

// MarkMessageAsRead moves the room's read pointer to messageID.
func (c *Client) MarkMessageAsRead(ctx context.Context, roomID int64, messageID string) (ReadStatus, error) {
	c.exec.logger.Info("chatwork: marking message as read", "room_id", roomID, "message_id", messageID)
	form := url.Values{"message_id": {messageID}}
	return execute[ReadStatus](ctx, &c.exec, OpMarkAsRead, c.request(http.MethodPut, roomPath(roomID, "/messages/read"), form))
}

// request returns a RequestFunc producing an identical authenticated request
// on every call. A non-nil form is sent url-encoded.
func (c *Client) request(method, path string, form url.Values) RequestFunc {
	endpoint := c.baseURL + path
	var encoded string
	if form != nil {
		encoded = form.Encode()
	}

	return func(ctx context.Context) (*http.Request, error) {
		var body io.Reader
		if form != nil {
			body = strings.NewReader(encoded)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set(tokenHeader, c.token)
		req.Header.Set("Accept", "application/json")
		if form != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
		return req, nil
	}
}

func roomPath(roomID int64, suffix string) string {
	return "/rooms/" + strconv.FormatInt(roomID, 10) + suffix
}
