package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// Common errors.
var (
	ErrNotFound     = errors.New("http: resource not found")
	ErrForbidden    = errors.New("http: access forbidden")
	ErrUnauthorized = errors.New("http: unauthorized")
	ErrServerError  = errors.New("http: server error")
	ErrEmptyBody    = errors.New("http: response has no body")
)

// StatusError is returned when the server answers with an unexpected status.
type StatusError struct {
	URL    string
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	if e.Status == "" {
		return fmt.Sprintf("http: %s returned status %d", e.URL, e.Code)
	}
	return fmt.Sprintf("http: %s returned status %s", e.URL, e.Status)
}

// Unwrap maps well-known status codes to the package sentinel errors.
func (e *StatusError) Unwrap() error {
	switch {
	case e.Code == http.StatusNotFound:
		return ErrNotFound
	case e.Code == http.StatusForbidden:
		return ErrForbidden
	case e.Code == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.Code >= 500:
		return ErrServerError
	default:
		return nil
	}
}

// ProtocolError is returned when the exchange with the server failed at the
// HTTP protocol level: malformed responses, unsupported schemes, redirect
// loops or a missing response body.
type ProtocolError struct {
	URL string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("http: protocol error for %s: %v", e.URL, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// Options configures the HTTP client.
type Options struct {
	// MaxIdleConnsPerHost sets the maximum idle connections per host.
	// Default: 4
	MaxIdleConnsPerHost int

	// Timeout for individual requests, including reading the body.
	// Zero means no timeout, which suits multi-gigabyte WARC files.
	Timeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		MaxIdleConnsPerHost: 4,
		UserAgent:           "warcfetch",
	}
}

// Client is a session-holding HTTP client for a WASAPI endpoint.
type Client struct {
	client *http.Client
	opts   Options
}

// NewClient creates a new HTTP client with the given options.
// Cookies set by Login are kept for subsequent requests.
func NewClient(opts Options) *Client {
	if opts.MaxIdleConnsPerHost <= 0 {
		opts.MaxIdleConnsPerHost = DefaultOptions().MaxIdleConnsPerHost
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
		MaxIdleConns:        opts.MaxIdleConnsPerHost * 2,
		IdleConnTimeout:     90 * time.Second,
		DisableCompression:  true, // checksums are computed over the raw bytes
	}

	// cookiejar.New only fails when given a PublicSuffixList that errors.
	jar, _ := cookiejar.New(nil)

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
			Jar:       jar,
		},
		opts: opts,
	}
}

// Login authenticates against authURL with a username/password form.
// The session cookie returned by the server is stored in the client.
func (c *Client) Login(ctx context.Context, authURL, username, password string) error {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("login: %w", statusError(authURL, resp))
	}
	return nil
}

// GetJSON fetches url and decodes the JSON body into v.
// An empty body leaves v untouched and is not an error.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(url, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// Download streams the body of url into w and returns the number of bytes
// written. Only a 200 response is accepted; any other status yields a
// *StatusError. Failures of the HTTP exchange itself yield a *ProtocolError.
// Network and body read failures are returned as plain wrapped errors.
func (c *Client) Download(ctx context.Context, url string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, &ProtocolError{URL: url, Err: err}
	}

	resp, err := c.do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, statusError(url, resp)
	}
	if resp.ContentLength == 0 {
		return 0, &ProtocolError{URL: url, Err: ErrEmptyBody}
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("read body of %s: %w", url, err)
	}
	if resp.ContentLength > 0 && n != resp.ContentLength {
		return n, fmt.Errorf("read body of %s: got %d of %d bytes: %w", url, n, resp.ContentLength, io.ErrUnexpectedEOF)
	}
	return n, nil
}

// do sends req, classifying transport failures. Network-level errors are
// returned wrapped; everything else the http.Client rejects is a protocol
// error.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err == nil {
		return resp, nil
	}

	if ctxErr := req.Context().Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if isNetworkError(err) {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}
	return nil, &ProtocolError{URL: req.URL.String(), Err: err}
}

// isNetworkError reports whether err, as returned by http.Client.Do, came
// from the network rather than from the HTTP protocol layer.
func isNetworkError(err error) bool {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		err = uerr.Err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

func statusError(url string, resp *http.Response) *StatusError {
	return &StatusError{URL: url, Code: resp.StatusCode, Status: resp.Status}
}
