// Package github adapts the go-github REST client to the provider ports
// deploybot needs: commits, refs, deployments, deployment statuses, file
// contents, pull requests, comments and collaborator permissions.
package github

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v75/github"
)

// DefaultBaseURL is the public GitHub API endpoint.
const DefaultBaseURL = "https://api.github.com"

// Client wraps a go-github client and converts its types to domain types.
type Client struct {
	gh     *gh.Client
	logger *slog.Logger
}

// Config holds GitHub client configuration.
type Config struct {
	BaseURL   string // API base URL, e.g. "https://github.example.com/api/v3" for Enterprise
	Token     string // Bearer token (app installation or personal access token)
	UserAgent string
	Timeout   time.Duration
}

// NewClient creates a new GitHub client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	client := gh.NewClient(&http.Client{Timeout: timeout})
	if cfg.Token != "" {
		client = client.WithAuthToken(cfg.Token)
	}

	baseURL, err := parseBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	client.BaseURL = baseURL

	client.UserAgent = cfg.UserAgent
	if client.UserAgent == "" {
		client.UserAgent = "deploybot"
	}

	return &Client{
		gh:     client,
		logger: logger.With("component", "github_client"),
	}, nil
}

// parseBaseURL returns the API root with the trailing slash go-github
// resolves request paths against.
func parseBaseURL(raw string) (*url.URL, error) {
	if raw == "" {
		raw = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(raw, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse GitHub API URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("GitHub API URL %q must be http or https", raw)
	}
	return u, nil
}

// BaseURL returns the API root requests are sent to.
func (c *Client) BaseURL() string {
	return c.gh.BaseURL.String()
}

// =============================================================================
// Errors
// =============================================================================

// APIError is returned for any non-successful API response.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// wrapError converts go-github response errors into an APIError. Transport
// and decoding errors are returned with op context only.
func wrapError(op string, resp *gh.Response, err error) error {
	if err == nil {
		return nil
	}

	var (
		errResp   *gh.ErrorResponse
		rateErr   *gh.RateLimitError
		abuseErr  *gh.AbuseRateLimitError
		accepted  *gh.AcceptedError
		httpResp  *http.Response
		message   string
		forceCode int
	)
	switch {
	case errors.As(err, &errResp):
		httpResp, message = errResp.Response, errResp.Message
	case errors.As(err, &rateErr):
		httpResp, message = rateErr.Response, rateErr.Message
	case errors.As(err, &abuseErr):
		httpResp, message = abuseErr.Response, abuseErr.Message
	case errors.As(err, &accepted):
		message = acceptedMessage(accepted.Raw)
		forceCode = http.StatusAccepted
		if resp != nil {
			httpResp = resp.Response
		}
	default:
		return fmt.Errorf("%s: %w", op, err)
	}

	apiErr := &APIError{StatusCode: forceCode, Message: message}
	if httpResp != nil {
		if apiErr.StatusCode == 0 {
			apiErr.StatusCode = httpResp.StatusCode
		}
		if httpResp.Request != nil {
			apiErr.Method = httpResp.Request.Method
			apiErr.Path = httpResp.Request.URL.Path
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(apiErr.StatusCode)
	}
	return apiErr
}

func acceptedMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Message != "" {
		return body.Message
	}
	return strings.TrimSpace(string(raw))
}
