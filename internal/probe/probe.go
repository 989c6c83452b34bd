package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/roach88/regcompat/internal/ident"
	"github.com/roach88/regcompat/internal/registry"
)

// DefaultTimeout bounds a single probe when the request does not set one.
const DefaultTimeout = time.Second

// DefaultMaxBodySize bounds how much of a response body is read.
const DefaultMaxBodySize int64 = 64 << 20

// Prober sends one request and returns the response.
type Prober interface {
	Send(ctx context.Context, req Request) (*Response, error)
}

// Request describes one HTTP interaction. Path is relative to the base URL
// and may carry a query string. An absolute http(s) URL is sent as is.
type Request struct {
	Method      string
	Path        string
	Header      http.Header
	Body        []byte
	Credentials *ident.AuthToken
	Timeout     time.Duration
}

// Response is a complete HTTP response. Header lookups through Get and
// Values are case-insensitive. URL is the request URL that produced it and
// is nil for responses not obtained through a Client.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	URL        *url.URL
}

// Location returns the Location header resolved against the request URL.
// It returns false when the header is missing or is not a URI reference.
func (r *Response) Location() (string, bool) {
	raw := r.Header.Get(registry.HeaderLocation)
	if raw == "" {
		return "", false
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if r.URL == nil {
		return raw, true
	}
	return r.URL.ResolveReference(ref).String(), true
}

// Client is the net/http backed Prober. It is safe for concurrent use; the
// underlying connection pool is shared by all calls.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	maxBody int64
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport client. Its redirect policy is
// overridden so that redirects are not followed, and an *http.Transport is
// cloned with compression disabled. Other round trippers are used as given.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		clone := *hc
		switch t := clone.Transport.(type) {
		case nil:
			clone.Transport = newTransport(http.DefaultTransport.(*http.Transport))
		case *http.Transport:
			clone.Transport = newTransport(t)
		}
		c.http = &clone
	}
}

// newTransport clones t without transparent gzip. Registry responses must
// be observed with the Content-Encoding, Content-Length and body bytes the
// server sent.
func newTransport(t *http.Transport) *http.Transport {
	clone := t.Clone()
	clone.DisableCompression = true
	return clone
}

// WithMaxBodySize bounds how many body bytes a call reads. A larger body is
// a malformed response.
func WithMaxBodySize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// WithTimeout sets the default per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used for debug traces of each call.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a Client for the registry at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid registry url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid registry url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid registry url %q: host is required", baseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")

	c := &Client{
		base:    u,
		http:    &http.Client{Transport: newTransport(http.DefaultTransport.(*http.Transport))},
		timeout: DefaultTimeout,
		maxBody: DefaultMaxBodySize,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return c, nil
}

// BaseURL returns the registry base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// URL appends an API path to the base URL, so a registry mounted under a
// path prefix keeps its prefix. Absolute URLs, such as a resolved Location,
// are used unchanged.
func (c *Client) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.base.String() + path
}

// Send performs the request. See the package documentation for the error
// contract.
func (c *Client) Send(ctx context.Context, req Request) (*Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.URL(req.Path), body)
	if err != nil {
		return nil, &TransportError{Kind: KindMalformed, Method: req.Method, Path: req.Path, Err: err}
	}
	for name, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}
	if req.Credentials != nil {
		httpReq.Header.Set(registry.HeaderAuthorization, req.Credentials.Authorization())
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, classify(ctx, req, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		terr := classify(ctx, req, err)
		if terr.Kind == KindConnection {
			terr.Kind = KindMalformed
		}
		return nil, terr
	}
	if int64(len(data)) > c.maxBody {
		return nil, &TransportError{
			Kind:   KindMalformed,
			Method: req.Method,
			Path:   req.Path,
			Err:    fmt.Errorf("response body exceeds %d bytes", c.maxBody),
		}
	}

	c.logger.Debug("probe",
		"method", req.Method,
		"path", req.Path,
		"status", resp.StatusCode,
		"bytes", len(data),
		"duration", time.Since(start),
	)

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       data,
		URL:        httpReq.URL,
	}, nil
}

// classify maps a net/http failure onto a transport error kind.
func classify(ctx context.Context, req Request, err error) *TransportError {
	terr := &TransportError{Kind: KindConnection, Method: req.Method, Path: req.Path, Err: err}

	var netErr interface{ Timeout() bool }
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		terr.Kind = KindTimeout
	case errors.Is(ctx.Err(), context.Canceled), errors.Is(err, context.Canceled):
		terr.Kind = KindCanceled
	case errors.As(err, &netErr) && netErr.Timeout():
		terr.Kind = KindTimeout
	case strings.Contains(err.Error(), "malformed HTTP"), errors.Is(err, io.ErrUnexpectedEOF):
		terr.Kind = KindMalformed
	}
	return terr
}
