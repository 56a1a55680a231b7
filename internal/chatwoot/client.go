// Package chatwoot is a small request-scoped client for the Chatwoot REST
// APIs (account, platform and public).
package chatwoot

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
	"strconv"
	"strings"
	"time"
)

// Scope selects which Chatwoot API a request targets.
type Scope int

const (
	// ScopeAccount targets /api/v1/accounts/{account_id}/...
	ScopeAccount Scope = iota
	// ScopePlatform targets /platform/api/v1/...
	ScopePlatform
	// ScopePublic targets /public/api/v1/...
	ScopePublic
)

func (s Scope) String() string {
	switch s {
	case ScopePlatform:
		return "platform"
	case ScopePublic:
		return "public"
	default:
		return "account"
	}
}

const (
	DefaultTimeout = 30 * time.Second
	maxBodyBytes   = 32 << 20
	userAgent      = "chatwoot-mcp"
)

// Request is one downstream call. Path is relative to the scope root, for
// example "/contacts/42". AccountID is required for ScopeAccount.
// ContentType labels a raw []byte body; it defaults to application/json.
type Request struct {
	Method      string
	Scope       Scope
	AccountID   int
	Path        string
	Query       url.Values
	Body        interface{}
	ContentType string
}

// Response is a successful downstream reply.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// JSON decodes the response body. An empty body decodes to nil.
func (r *Response) JSON() (interface{}, error) {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil, nil
	}
	var v interface{}
	if err := json.Unmarshal(r.Body, &v); err != nil {
		return nil, fmt.Errorf("decode chatwoot response: %w", err)
	}
	return v, nil
}

// APIError is returned for every non-2xx downstream reply. Body holds the
// raw response so the gateway can relay it verbatim.
type APIError struct {
	Status      int
	ContentType string
	Body        []byte
	Message     string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("chatwoot returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("chatwoot returned %d", e.Status)
}

// ErrMissingAccount is returned when an account-scoped request has no
// positive account id.
var ErrMissingAccount = errors.New("account_id is required")

// Config configures a Client.
type Config struct {
	BaseURL       string
	APIToken      string
	PlatformToken string
	Timeout       time.Duration
	HTTPClient    *http.Client
	Logger        *slog.Logger
}

// Client calls Chatwoot on behalf of the gateway. It holds no per-request
// state and is safe for concurrent use.
type Client struct {
	baseURL       *url.URL
	apiToken      string
	platformToken string
	http          *http.Client
	logger        *slog.Logger
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("chatwoot base url is required")
	}
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse chatwoot base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("chatwoot base url must be http or https, got %q", cfg.BaseURL)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:       u,
		apiToken:      cfg.APIToken,
		platformToken: cfg.PlatformToken,
		http:          hc,
		logger:        logger,
	}, nil
}

// URL builds the absolute downstream URL for req.
func (c *Client) URL(req Request) (string, error) {
	var root string
	switch req.Scope {
	case ScopeAccount:
		if req.AccountID <= 0 {
			return "", ErrMissingAccount
		}
		root = "/api/v1/accounts/" + strconv.Itoa(req.AccountID)
	case ScopePlatform:
		root = "/platform/api/v1"
	case ScopePublic:
		root = "/public/api/v1"
	default:
		return "", fmt.Errorf("unknown scope %d", req.Scope)
	}

	path := req.Path
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	u := *c.baseURL
	u.Path = c.baseURL.Path + root + path
	u.RawQuery = ""
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}
	return u.String(), nil
}

// Do performs req. Non-2xx replies return *APIError; transport failures are
// returned wrapped.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	target, err := c.URL(req)
	if err != nil {
		return nil, err
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		switch b := req.Body.(type) {
		case []byte:
			body = bytes.NewReader(b)
		case json.RawMessage:
			body = bytes.NewReader(b)
		default:
			encoded, err := json.Marshal(b)
			if err != nil {
				return nil, fmt.Errorf("encode request body: %w", err)
			}
			body = bytes.NewReader(encoded)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build chatwoot request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	if body != nil {
		ct := req.ContentType
		if ct == "" {
			ct = "application/json"
		}
		httpReq.Header.Set("Content-Type", ct)
	}
	if token := c.tokenFor(req.Scope); token != "" {
		httpReq.Header.Set("api_access_token", token)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chatwoot %s %s: %w", method, req.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read chatwoot response: %w", err)
	}

	c.logger.Debug("chatwoot call",
		"method", method,
		"scope", req.Scope.String(),
		"path", req.Path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	ct := resp.Header.Get("Content-Type")
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			Status:      resp.StatusCode,
			ContentType: ct,
			Body:        data,
			Message:     extractMessage(data),
		}
	}
	return &Response{Status: resp.StatusCode, ContentType: ct, Body: data}, nil
}

func (c *Client) tokenFor(scope Scope) string {
	if scope == ScopePlatform && c.platformToken != "" {
		return c.platformToken
	}
	return c.apiToken
}

// extractMessage pulls a human readable message out of a Chatwoot error body.
func extractMessage(body []byte) string {
	var v map[string]interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		msg := strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return msg
	}
	for _, k := range []string{"message", "error"} {
		if s, ok := v[k].(string); ok && s != "" {
			return s
		}
	}
	if errs, ok := v["errors"].([]interface{}); ok {
		parts := make([]string, 0, len(errs))
		for _, e := range errs {
			switch x := e.(type) {
			case string:
				parts = append(parts, x)
			case map[string]interface{}:
				if m, ok := x["message"].(string); ok {
					parts = append(parts, m)
				}
			}
		}
		return strings.Join(parts, "; ")
	}
	return ""
}
