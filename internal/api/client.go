// Package api is the HTTP client for the platform's workflow REST API.
//
// Every endpoint answers with the envelope {success, data, message}. The
// client unwraps it, decodes data into [model] types, and turns every failure
// into an [*APIError]: business errors (success=false) keep the server's
// message, transport errors get [DefaultMessage] for the user and keep the
// cause for the logs. Requests are never retried.
//
// Key types:
//   - [Client] issues requests under /api/v1/workflows
//   - [Config] holds the base URL, credentials and timeout
//   - [APIError] is the error type returned by every method
package api

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
)

// BasePath is the workflow API prefix appended to the configured base URL.
const BasePath = "/api/v1/workflows"

// DefaultTimeout bounds a single request when [Config.Timeout] is zero.
const DefaultTimeout = 30 * time.Second

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 10 << 20

// Request headers sent on every call.
const (
	HeaderRequestID = "X-Request-ID"
	HeaderTenantID  = "X-Tenant-ID"
)

// Config holds connection settings for [Client].
type Config struct {
	// BaseURL is the platform root, e.g. "https://api.example.com".
	BaseURL string

	// Token is sent as a Bearer token when non-empty.
	Token string

	// TenantID is sent as X-Tenant-ID when non-empty.
	TenantID string

	// Timeout bounds each request. Zero means [DefaultTimeout].
	Timeout time.Duration
}

// Client talks to the workflow API.
//
// Create with [New]. A Client is safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	tenantID   string
	httpClient *http.Client
	logger     *slog.Logger
	requestID  func() string
}

// New creates a [Client] from cfg. Logging is discarded until [Client.SetLogger]
// is called.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		tenantID:   cfg.TenantID,
		httpClient: &http.Client{Timeout: timeout},
		logger:     slog.New(slog.DiscardHandler),
		requestID:  uuid.NewString,
	}
}

// SetLogger configures the logger used for request diagnostics.
func (c *Client) SetLogger(logger *slog.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// ListTemplatesOptions filters [Client.ListTemplates].
type ListTemplatesOptions struct {
	// IsActive restricts the result to active (true) or inactive (false)
	// templates. Nil lists all.
	IsActive *bool
}

// ListInstancesOptions filters [Client.ListInstances].
type ListInstancesOptions struct {
	TemplateID string
	Status     string
}

// StatisticsOptions narrows [Client.Statistics] to a date range or period.
type StatisticsOptions struct {
	StartDate time.Time
	EndDate   time.Time
	Period    string
}

func (o StatisticsOptions) values() url.Values {
	q := url.Values{}
	if !o.StartDate.IsZero() {
		q.Set("start_date", o.StartDate.Format(time.DateOnly))
	}
	if !o.EndDate.IsZero() {
		q.Set("end_date", o.EndDate.Format(time.DateOnly))
	}
	if o.Period != "" {
		q.Set("period", o.Period)
	}
	return q
}

// ========== HTTP plumbing ==========

// call issues one request and returns the unwrapped data payload, which may
// be nil when the envelope carries none.
func (c *Client) call(ctx context.Context, op, method, path string, query url.Values, body any) (any, error) {
	target := c.baseURL + BasePath + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &APIError{Kind: KindTransport, Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, &APIError{Kind: KindTransport, Op: op, Err: fmt.Errorf("build request: %w", err)}
	}

	requestID := c.requestID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.tenantID != "" {
		req.Header.Set(HeaderTenantID, c.tenantID)
	}

	log := c.logger.With("op", op, "method", method, "path", path, "request_id", requestID)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("request failed", "error", err, "duration", time.Since(start))
		return nil, &APIError{Kind: KindTransport, Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := c.parseResponse(op, resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Kind == KindBusiness {
			log.Info("request rejected", "status", resp.StatusCode, "message", apiErr.Message, "duration", time.Since(start))
		} else {
			log.Warn("request failed", "status", resp.StatusCode, "error", err, "duration", time.Since(start))
		}
		return nil, err
	}

	log.Debug("request completed", "status", resp.StatusCode, "duration", time.Since(start))
	return data, nil
}

// parseResponse unwraps the envelope. Bodies without a success field are
// accepted on 2xx as bare payloads.
func (c *Client) parseResponse(op string, resp *http.Response) (any, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &APIError{Kind: KindTransport, Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300

	if len(bytes.TrimSpace(raw)) == 0 {
		if ok {
			return nil, nil
		}
		return nil, &APIError{Kind: KindTransport, Op: op, StatusCode: resp.StatusCode, Err: errors.New("empty error response")}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, &APIError{
			Kind:       KindTransport,
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("decode body: %w, body: %s", err, truncate(string(raw), 200)),
		}
	}

	obj, isObj := payload.(map[string]any)
	if isObj {
		if success, has := obj["success"].(bool); has {
			if !success {
				return nil, &APIError{Kind: KindBusiness, Op: op, StatusCode: resp.StatusCode, Message: envelopeMessage(obj)}
			}
			if !ok {
				return nil, &APIError{Kind: KindTransport, Op: op, StatusCode: resp.StatusCode, Err: errors.New("success envelope on error status")}
			}
			return obj["data"], nil
		}
		if !ok {
			if msg := envelopeMessage(obj); msg != "" {
				return nil, &APIError{Kind: KindBusiness, Op: op, StatusCode: resp.StatusCode, Message: msg}
			}
		}
	}

	if !ok {
		return nil, &APIError{Kind: KindTransport, Op: op, StatusCode: resp.StatusCode, Err: errors.New("error response without envelope")}
	}
	return payload, nil
}

func envelopeMessage(obj map[string]any) string {
	for _, key := range []string{"message", "detail", "error"} {
		if s, ok := obj[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// truncate shortens a string to maxLen characters, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func escape(id string) string {
	return url.PathEscape(id)
}
