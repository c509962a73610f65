// Package trudesk is a minimal client for the Trudesk helpdesk REST API.
package trudesk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"
)

const (
	// DefaultTimeout is the total request timeout.
	DefaultTimeout = 15 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 5 * time.Second
	// TLSHandshakeTimeout is the TLS negotiation timeout.
	TLSHandshakeTimeout = 5 * time.Second
	// ResponseHeaderTimeout is time to wait for response headers.
	ResponseHeaderTimeout = 10 * time.Second

	// HeaderAccessToken carries the session token on authenticated calls.
	HeaderAccessToken = "accessToken"

	maxResponseSize = 10 << 20
)

// NewHTTPClient creates an HTTP client for helpdesk calls.
// It has bounded timeouts and does not follow redirects. Unless allowPrivate
// is set, every dial re-checks the resolved address against BlockedCIDRs so a
// host that re-resolves to an internal IP after validation is still refused.
// The guarded client dials directly and ignores proxy settings.
func NewHTTPClient(timeout time.Duration, allowPrivate bool) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dialer := &net.Dialer{
		Timeout:   DialTimeout,
		KeepAlive: 30 * time.Second,
	}
	proxy := http.ProxyFromEnvironment
	if !allowPrivate {
		dialer.Control = guardDial
		proxy = nil
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:                 proxy,
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   TLSHandshakeTimeout,
			ResponseHeaderTimeout: ResponseHeaderTimeout,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// guardDial runs after name resolution with the concrete IP being dialed.
func guardDial(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || isBlockedIP(ip) {
		return fmt.Errorf("dial %s: %w", address, ErrPrivateIP)
	}
	return nil
}

// Client talks to one helpdesk instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for baseURL. The URL is validated first; pass
// allowPrivate to reach instances on internal networks.
func New(baseURL string, httpClient *http.Client, allowPrivate bool) (*Client, error) {
	if err := ValidateBaseURL(baseURL, allowPrivate); err != nil {
		return nil, fmt.Errorf("trudesk base url: %w", err)
	}
	if httpClient == nil {
		httpClient = NewHTTPClient(DefaultTimeout, allowPrivate)
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: httpClient,
	}, nil
}

// Login exchanges username and password for an access token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	body, err := json.Marshal(loginRequest{Username: username, Password: password})
	if err != nil {
		return "", fmt.Errorf("trudesk login: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/login", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("trudesk login: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out loginResponse
	if err := c.do(req, "login", &out); err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && (statusErr.StatusCode == http.StatusUnauthorized || statusErr.StatusCode == http.StatusForbidden) {
			return "", ErrLoginFailed
		}
		return "", err
	}

	if !out.Success || out.AccessToken == "" {
		return "", ErrLoginFailed
	}
	return out.AccessToken, nil
}

// TicketTypes lists ticket types with their priorities.
func (c *Client) TicketTypes(ctx context.Context, token string) ([]TicketType, error) {
	var out []TicketType
	if err := c.get(ctx, "/api/v1/tickets/types", "ticket types", token, &out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, &DecodeError{Op: "ticket types", Err: ErrUnexpectedShape}
	}
	return out, nil
}

// Groups lists customer groups.
func (c *Client) Groups(ctx context.Context, token string) ([]Group, error) {
	var out groupsResponse
	if err := c.get(ctx, "/api/v1/groups", "groups", token, &out); err != nil {
		return nil, err
	}
	if !out.Success || out.Groups == nil {
		return nil, &DecodeError{Op: "groups", Err: fmt.Errorf("%w: success=%t error=%q", ErrUnexpectedShape, out.Success, out.Error)}
	}
	return out.Groups, nil
}

// Users lists every account, agents and customers alike.
func (c *Client) Users(ctx context.Context, token string) ([]User, error) {
	var out []User
	if err := c.get(ctx, "/api/v1/users/all", "users", token, &out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, &DecodeError{Op: "users", Err: ErrUnexpectedShape}
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path, op, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("trudesk %s: %w", op, err)
	}
	req.Header.Set(HeaderAccessToken, token)
	return c.do(req, op, out)
}

func (c *Client) do(req *http.Request, op string, out any) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Flowbot-Trudesk/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("trudesk %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return &StatusError{Op: op, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(out); err != nil {
		return &DecodeError{Op: op, Err: err}
	}
	return nil
}
