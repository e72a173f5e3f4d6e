// Package push delivers rendered notifications to device push tokens.
// Every transport failure is normalized into a Result value — nothing here
// returns an error to the caller, so the orchestrator can always continue
// its batch.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Notification is the rendered content handed to the channel. ImageURL may
// be empty.
type Notification struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	ImageURL string `json:"image,omitempty"`
}

// Result is the normalized outcome of one send attempt.
type Result struct {
	Success   bool
	MessageID string
	Error     string
}

// Sender delivers one notification to one device token.
type Sender interface {
	Send(ctx context.Context, token string, n Notification) Result
}

// --------------------------------------------------------------------------
// HTTP sender
// --------------------------------------------------------------------------

// HTTPSender posts notifications to an FCM-style HTTP endpoint. Sends are
// rate-limited with a token bucket and bounded by a per-call timeout so a
// hung channel call cannot stall a whole run.
type HTTPSender struct {
	endpoint string
	apiKey   string
	timeout  time.Duration
	client   *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
}

var _ Sender = (*HTTPSender)(nil)

// NewHTTPSender creates a sender for the given endpoint.
func NewHTTPSender(endpoint, apiKey string, timeout time.Duration, sendsPerSec int, logger *slog.Logger) *HTTPSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if sendsPerSec <= 0 {
		sendsPerSec = 50
	}
	return &HTTPSender{
		endpoint: endpoint,
		apiKey:   apiKey,
		timeout:  timeout,
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Limit(sendsPerSec), sendsPerSec),
		logger:   logger,
	}
}

type sendRequest struct {
	Token        string       `json:"token"`
	Notification Notification `json:"notification"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error"`
}

// Send posts one notification. All failures (missing token, rate-limit
// interruption, transport error, non-2xx, unparsable body) come back as a
// failed Result.
func (s *HTTPSender) Send(ctx context.Context, token string, n Notification) Result {
	if token == "" {
		return Result{Error: "missing push token"}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return Result{Error: fmt.Sprintf("rate limiter: %v", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	payload, err := json.Marshal(sendRequest{Token: token, Notification: n})
	if err != nil {
		return Result{Error: fmt.Sprintf("encode payload: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Result{Error: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Result{Error: fmt.Sprintf("post notification: %v", err)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var parsed sendResponse
	_ = json.Unmarshal(body, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := parsed.Error
		if msg == "" {
			msg = fmt.Sprintf("push channel returned %d", resp.StatusCode)
		}
		return Result{Error: msg}
	}

	if parsed.MessageID == "" {
		// Delivered but the channel gave us nothing to correlate on.
		s.logger.Warn("push response missing message id", "status", resp.StatusCode)
	}
	return Result{Success: true, MessageID: parsed.MessageID}
}

// --------------------------------------------------------------------------
// Log sender
// --------------------------------------------------------------------------

// LogSender records sends to the log instead of calling a channel. Used when
// no push endpoint is configured (local development, staging smoke tests).
type LogSender struct {
	logger *slog.Logger
	seq    atomic.Int64
}

var _ Sender = (*LogSender)(nil)

// NewLogSender creates a log-only sender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the notification and reports success with a synthetic id.
func (s *LogSender) Send(ctx context.Context, token string, n Notification) Result {
	if token == "" {
		return Result{Error: "missing push token"}
	}
	id := fmt.Sprintf("log-%d", s.seq.Add(1))
	s.logger.Info("push send (log only)",
		"message_id", id, "title", n.Title, "body", n.Body, "image", n.ImageURL != "")
	return Result{Success: true, MessageID: id}
}
