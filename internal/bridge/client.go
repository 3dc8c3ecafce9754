package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kingrea/apiprobe/internal/resolver"
)

// DeliveryError reports an envelope the target surface refused.
type DeliveryError struct {
	StatusCode int
	Message    string
}

func (e *DeliveryError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("bridge: target answered %d", e.StatusCode)
	}
	return fmt.Sprintf("bridge: target answered %d: %s", e.StatusCode, e.Message)
}

// Client delivers resolved payloads to a target surface. Deliveries are never
// retried: dynamic values such as timestamps are not safe to replay.
type Client struct {
	target string
	http   *http.Client
	clock  func() time.Time
	newID  func() string
	logger Logger
}

// ClientOption customizes Client construction.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithClientClock controls the sent_at timestamp.
func WithClientClock(clock func() time.Time) ClientOption {
	return func(c *Client) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithMessageIDs replaces the message ID generator.
func WithMessageIDs(next func() string) ClientOption {
	return func(c *Client) {
		if next != nil {
			c.newID = next
		}
	}
}

// WithClientLogger records deliveries and failures.
func WithClientLogger(l Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient returns a client posting to settings.TargetURL().
func NewClient(settings Settings, opts ...ClientOption) *Client {
	settings.normalize()
	c := &Client{
		target: settings.TargetURL(),
		http:   &http.Client{Timeout: settings.SendTimeout},
		clock:  func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
		logger: nopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Target returns the base URL envelopes are posted to.
func (c *Client) Target() string {
	return c.target
}

// Envelope wraps payload for delivery without sending it.
func (c *Client) Envelope(category, api string, payload *resolver.Payload) Envelope {
	return Envelope{
		Version:   EnvelopeVersion,
		MessageID: c.newID(),
		Category:  category,
		API:       api,
		Params:    payload,
		SentAt:    c.clock().UTC(),
	}
}

// Send wraps payload in an envelope and posts it to the target's /messages endpoint.
func (c *Client) Send(ctx context.Context, category, api string, payload *resolver.Payload) (Receipt, error) {
	if payload == nil {
		return Receipt{}, fmt.Errorf("bridge: %s.%s: payload is required", category, api)
	}
	env := c.Envelope(category, api, payload)
	body, err := json.Marshal(env)
	if err != nil {
		return Receipt{}, fmt.Errorf("bridge: encode envelope: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.target+"/messages", bytes.NewReader(body))
	if err != nil {
		return Receipt{}, fmt.Errorf("bridge: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Printf("bridge: deliver %s.%s: %v", category, api, err)
		return Receipt{}, fmt.Errorf("bridge: deliver %s.%s: %w", category, api, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, DefaultMaxBodyBytes))
	if err != nil {
		return Receipt{}, fmt.Errorf("bridge: read response: %w", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		var failure errorResponse
		_ = json.Unmarshal(data, &failure)
		if failure.Error == "" {
			failure.Error = strings.TrimSpace(string(data))
		}
		c.logger.Printf("bridge: %s.%s refused with %d", category, api, resp.StatusCode)
		return Receipt{}, &DeliveryError{StatusCode: resp.StatusCode, Message: failure.Error}
	}
	var receipt Receipt
	if err := json.Unmarshal(data, &receipt); err != nil {
		return Receipt{}, fmt.Errorf("bridge: decode receipt: %w", err)
	}
	c.logger.Printf("bridge: delivered %s.%s as %s", category, api, receipt.MessageID)
	return receipt, nil
}
