// Package webhook provides an HTTP client for sending availability reports
// to webhook endpoints.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ccollicutt/availog/pkg/output"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// EventReport is the event name carried by every payload.
const EventReport = "availability_report"

// Client sends availability reports to webhook endpoints.
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the logger used to record delivery results.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// NewClient creates a new webhook client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendOptions configures a webhook request.
type SendOptions struct {
	URL     string
	Token   string        // Bearer token (optional)
	Timeout time.Duration // Request timeout (uses DefaultTimeout if zero)
}

// Response contains the result of a webhook request.
type Response struct {
	StatusCode int
	Body       string
	Duration   time.Duration
	Error      error
}

// Success returns true if the webhook was sent successfully (2xx status).
func (r *Response) Success() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Payload is the JSON document posted to webhooks.
type Payload struct {
	Event    string         `json:"event"`
	Breached bool           `json:"breached"`
	Report   *output.Report `json:"report"`
}

// Send posts an availability report to a webhook endpoint.
func (c *Client) Send(ctx context.Context, report *output.Report, opts SendOptions) *Response {
	start := time.Now()
	resp := &Response{}

	payload, err := json.Marshal(Payload{
		Event:    EventReport,
		Breached: report.HasBreaches(),
		Report:   report,
	})
	if err != nil {
		resp.Error = fmt.Errorf("failed to marshal report: %w", err)
		resp.Duration = time.Since(start)
		return resp
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.URL, bytes.NewReader(payload))
	if err != nil {
		resp.Error = fmt.Errorf("failed to create request: %w", err)
		resp.Duration = time.Since(start)
		return resp
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "availog-webhook")
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		resp.Error = fmt.Errorf("request failed: %w", err)
		resp.Duration = time.Since(start)
		return resp
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 1024*1024)) // Limit to 1MB
	if err != nil {
		resp.Error = fmt.Errorf("failed to read response: %w", err)
		resp.Duration = time.Since(start)
		return resp
	}

	resp.StatusCode = httpResp.StatusCode
	resp.Body = string(body)
	resp.Duration = time.Since(start)

	if resp.StatusCode >= 400 {
		resp.Error = fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return resp
}

// Check sends a HEAD request to see whether an endpoint is reachable. Any
// HTTP status counts as reachable: Error is set only when no response
// arrived, since many endpoints accept nothing but POST.
func (c *Client) Check(ctx context.Context, opts SendOptions) *Response {
	start := time.Now()
	resp := &Response{}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, opts.URL, nil)
	if err != nil {
		resp.Error = fmt.Errorf("failed to create request: %w", err)
		return resp
	}
	req.Header.Set("User-Agent", "availog-webhook")
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}

	httpResp, err := c.httpClient.Do(req)
	resp.Duration = time.Since(start)
	if err != nil {
		resp.Error = fmt.Errorf("request failed: %w", err)
		return resp
	}
	_ = httpResp.Body.Close()

	resp.StatusCode = httpResp.StatusCode
	return resp
}

// Target is a named webhook endpoint.
type Target struct {
	Name string
	SendOptions
}

// Result pairs a target with the outcome of sending to it.
type Result struct {
	Target   Target
	Response *Response
}

// Notify sends the report to every target concurrently. Delivery failures
// are reported in the results and logged, never returned.
func (c *Client) Notify(ctx context.Context, report *output.Report, targets []Target) []Result {
	results := make([]Result, len(targets))

	var g errgroup.Group
	for i, target := range targets {
		g.Go(func() error {
			resp := c.Send(ctx, report, target.SendOptions)
			results[i] = Result{Target: target, Response: resp}

			name := target.Name
			if name == "" {
				name = target.URL
			}
			if resp.Success() {
				c.logger.Info("webhook sent",
					zap.String("webhook", name),
					zap.Int("status", resp.StatusCode),
					zap.Duration("took", resp.Duration))
			} else {
				c.logger.Warn("webhook failed",
					zap.String("webhook", name),
					zap.Int("status", resp.StatusCode),
					zap.Error(resp.Error))
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
