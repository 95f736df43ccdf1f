package chatwork

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

// newTestClient points a client at srv and records backoff delays instead of
// sleeping.
func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) (*Client, *[]time.Duration) {
	t.Helper()
	opts = append([]Option{WithBaseURL(srv.URL)}, opts...)
	c := NewClient("TEST_TOKEN", opts...)

	delays := &[]time.Duration{}
	c.exec.sleep = func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
	return c, delays
}

func TestNewClient_Defaults(t *testing.T) {
	t.Parallel()

	c := NewClient("tok")
	if c.baseURL != DefaultBaseURL {
		t.Errorf("baseURL = %q, want %q", c.baseURL, DefaultBaseURL)
	}
	if c.exec.retry.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", c.exec.retry.MaxAttempts)
	}
	if c.exec.retry.InitialDelay != 10*time.Second {
		t.Errorf("InitialDelay = %v, want 10s", c.exec.retry.InitialDelay)
	}
	if c.exec.http.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", c.exec.http.Timeout, DefaultTimeout)
	}
	if c.exec.limiter != nil {
		t.Error("limiter should be nil without WithRateLimit")
	}
}

func TestNewClient_Options(t *testing.T) {
	t.Parallel()

	c := NewClient("tok",
		WithBaseURL("http://localhost:9999/v2/"),
		WithTimeout(5*time.Second),
		WithRetry(RetryConfig{MaxAttempts: 2}),
		WithRateLimit(3),
	)
	if c.baseURL != "http://localhost:9999/v2" {
		t.Errorf("baseURL = %q, trailing slash should be trimmed", c.baseURL)
	}
	if c.exec.http.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", c.exec.http.Timeout)
	}
	if c.exec.retry.MaxAttempts != 2 {
		t.Errorf("MaxAttempts = %d, want 2", c.exec.retry.MaxAttempts)
	}
	if c.exec.retry.InitialDelay != DefaultInitialDelay {
		t.Errorf("InitialDelay = %v, zero field should keep default", c.exec.retry.InitialDelay)
	}
	if c.exec.limiter == nil {
		t.Error("limiter should be set with a positive rate")
	}
}

func TestFetchRooms(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/rooms" {
			t.Errorf("path = %s, want /rooms", r.URL.Path)
		}
		if got := r.Header.Get("X-ChatWorkToken"); got != "TEST_TOKEN" {
			t.Errorf("token header = %q, want TEST_TOKEN", got)
		}
		writeJSON(t, w, http.StatusOK, []map[string]any{
			{"room_id": 1, "name": "General", "type": "group", "unread_num": 3, "mention_num": 0},
			{"room_id": 2, "name": "Ops", "type": "group", "unread_num": 0, "mention_num": 1},
		})
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv)
	rooms, err := c.FetchRooms(context.Background())
	if err != nil {
		t.Fatalf("FetchRooms() error: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("len(rooms) = %d, want 2", len(rooms))
	}
	if rooms[0].RoomID != 1 || rooms[0].UnreadNum != 3 || rooms[0].Name != "General" {
		t.Errorf("rooms[0] = %+v", rooms[0])
	}
	if rooms[1].RoomID != 2 || rooms[1].MentionNum != 1 {
		t.Errorf("rooms[1] = %+v", rooms[1])
	}
}

func TestFetchMessages(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rooms/42/messages" {
			t.Errorf("path = %s, want /rooms/42/messages", r.URL.Path)
		}
		writeJSON(t, w, http.StatusOK, []map[string]any{
			{"message_id": "100", "body": "hello", "send_time": 1700000000, "account": map[string]any{"account_id": 7, "name": "Alice"}},
			{"message_id": "101", "body": "[toall] meeting"},
		})
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv)
	msgs, err := c.FetchMessages(context.Background(), 42)
	if err != nil {
		t.Fatalf("FetchMessages() error: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len(msgs) = %d, want 2", len(msgs))
	}
	if msgs[0].MessageID != "100" || msgs[0].Body != "hello" || msgs[0].Account.AccountID != 7 {
		t.Errorf("msgs[0] = %+v", msgs[0])
	}
	if msgs[1].MessageID != "101" {
		t.Errorf("msgs[1].MessageID = %q, want 101", msgs[1].MessageID)
	}
}

func TestFetchMessages_NoContent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv)
	msgs, err := c.FetchMessages(context.Background(), 42)
	if err != nil {
		t.Fatalf("FetchMessages() error: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("len(msgs) = %d, want 0", len(msgs))
	}
}

func TestMarkMessageAsRead(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		if r.URL.Path != "/rooms/42/messages/read" {
			t.Errorf("path = %s, want /rooms/42/messages/read", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("message_id"); got != "1234567890" {
			t.Errorf("message_id = %q, want 1234567890", got)
		}
		writeJSON(t, w, http.StatusOK, map[string]int{"unread_num": 2, "mention_num": 0})
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv)
	status, err := c.MarkMessageAsRead(context.Background(), 42, "1234567890")
	if err != nil {
		t.Fatalf("MarkMessageAsRead() error: %v", err)
	}
	if status.UnreadNum != 2 || status.MentionNum != 0 {
		t.Errorf("status = %+v, want {2 0}", status)
	}
}

func TestMarkMessageAsRead_BodyResentOnRetry(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.PostForm.Get("message_id"); got != "55" {
			t.Errorf("attempt %d: message_id = %q, want 55", n, got)
		}
		if got := r.Header.Get("X-ChatWorkToken"); got != "TEST_TOKEN" {
			t.Errorf("attempt %d: token header = %q", n, got)
		}
		if n < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]int{"unread_num": 0, "mention_num": 0})
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv)
	if _, err := c.MarkMessageAsRead(context.Background(), 1, "55"); err != nil {
		t.Fatalf("MarkMessageAsRead() error: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}
