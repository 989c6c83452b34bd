package provision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/roach88/regcompat/internal/ident"
	"github.com/roach88/regcompat/internal/probe"
	"github.com/roach88/regcompat/internal/registry"
)

// Defaults for asynchronous publication.
const (
	DefaultPollInterval      = 100 * time.Millisecond
	DefaultMaxProcessingTime = 10 * time.Second
)

// ErrProcessingTimeout means a 202 publication did not reach a terminal
// status in time.
var ErrProcessingTimeout = errors.New("release processing did not finish in time")

// Publisher provisions releases by publishing them. Confirmed releases are
// remembered, so a release shared by several scenarios is published once.
// Publisher is safe for concurrent use.
type Publisher struct {
	prober       probe.Prober
	credentials  *ident.AuthToken
	pollInterval time.Duration
	maxWait      time.Duration
	logger       *slog.Logger

	mu        sync.Mutex
	confirmed map[ident.PackageRelease]bool
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithCredentials authenticates publish requests.
func WithCredentials(token *ident.AuthToken) PublisherOption {
	return func(p *Publisher) {
		p.credentials = token
	}
}

// WithPolling sets the poll interval and the maximum processing time for
// asynchronous publication.
func WithPolling(interval, maxWait time.Duration) PublisherOption {
	return func(p *Publisher) {
		if interval > 0 {
			p.pollInterval = interval
		}
		if maxWait > 0 {
			p.maxWait = maxWait
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = l
	}
}

// NewPublisher creates a Publisher sending through prober.
func NewPublisher(prober probe.Prober, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		prober:       prober,
		pollInterval: DefaultPollInterval,
		maxWait:      DefaultMaxProcessingTime,
		logger:       slog.Default(),
		confirmed:    make(map[ident.PackageRelease]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// EnsureRelease implements Provisioner.
func (p *Publisher) EnsureRelease(ctx context.Context, r Release) error {
	p.mu.Lock()
	done := p.confirmed[r.Release]
	p.mu.Unlock()
	if done {
		return nil
	}

	if err := p.publish(ctx, r); err != nil {
		return &SetupError{Release: r.Release, Err: err}
	}

	p.mu.Lock()
	p.confirmed[r.Release] = true
	p.mu.Unlock()
	return nil
}

func (p *Publisher) publish(ctx context.Context, r Release) error {
	req, err := PublishRequest(r, p.credentials)
	if err != nil {
		return err
	}
	start := time.Now()
	resp, err := p.prober.Send(ctx, req)
	if err != nil {
		return err
	}
	p.logger.Debug("publish",
		"release", r.Release.String(),
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	switch resp.StatusCode {
	case http.StatusCreated:
		return nil
	case http.StatusConflict:
		p.logger.Debug("release already exists", "release", r.Release.String())
		return nil
	case http.StatusAccepted:
		location, ok := resp.Location()
		if !ok {
			return fmt.Errorf("publish returned 202 without a Location header")
		}
		final, err := AwaitProcessing(ctx, p.prober, location, p.credentials, p.pollInterval, p.maxWait)
		if err != nil {
			return err
		}
		if !ProcessingSucceeded(final.StatusCode) {
			return fmt.Errorf("release processing ended with status %d", final.StatusCode)
		}
		return nil
	default:
		return fmt.Errorf("publish returned status %d", resp.StatusCode)
	}
}

// PublishRequest builds the multipart PUT that publishes r.
func PublishRequest(r Release, credentials *ident.AuthToken) (probe.Request, error) {
	archive, err := os.ReadFile(r.ArchivePath)
	if err != nil {
		return probe.Request{}, fmt.Errorf("failed to read source archive: %w", err)
	}
	body, contentType, err := multipartBody(archive, r.Metadata)
	if err != nil {
		return probe.Request{}, err
	}
	return probe.Request{
		Method: http.MethodPut,
		Path:   registry.ReleasePath(r.Release),
		Header: http.Header{
			registry.HeaderAccept:      {registry.MediaTypeJSON},
			registry.HeaderContentType: {contentType},
		},
		Body:        body,
		Credentials: credentials,
	}, nil
}

func multipartBody(archive, metadata []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {`form-data; name="` + registry.PartSourceArchive + `"; filename="source-archive.zip"`},
		"Content-Type":        {registry.ContentTypeZip},
		"Content-Length":      {strconv.Itoa(len(archive))},
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to build publish request: %w", err)
	}
	if _, err := part.Write(archive); err != nil {
		return nil, "", fmt.Errorf("failed to build publish request: %w", err)
	}

	if len(metadata) > 0 {
		part, err := w.CreatePart(textproto.MIMEHeader{
			"Content-Disposition": {`form-data; name="` + registry.PartMetadata + `"`},
			"Content-Type":        {registry.ContentTypeJSON},
		})
		if err != nil {
			return nil, "", fmt.Errorf("failed to build publish request: %w", err)
		}
		if _, err := part.Write(metadata); err != nil {
			return nil, "", fmt.Errorf("failed to build publish request: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to build publish request: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// ProcessingSucceeded reports whether a status polled from a 202 Location
// means the release was published.
func ProcessingSucceeded(status int) bool {
	switch status {
	case http.StatusOK, http.StatusCreated, http.StatusMovedPermanently, http.StatusSeeOther:
		return true
	}
	return false
}

// AwaitProcessing polls location until it stops answering 202 Accepted and
// returns the first non-202 response. Retry-After, when present, overrides
// interval. It gives up with ErrProcessingTimeout after maxWait.
func AwaitProcessing(ctx context.Context, prober probe.Prober, location string, credentials *ident.AuthToken, interval, maxWait time.Duration) (*probe.Response, error) {
	deadline := time.Now().Add(maxWait)
	for {
		resp, err := prober.Send(ctx, probe.Request{
			Method:      http.MethodGet,
			Path:        location,
			Header:      http.Header{registry.HeaderAccept: {registry.MediaTypeJSON}},
			Credentials: credentials,
		})
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusAccepted {
			return resp, nil
		}

		wait := interval
		if s, err := strconv.Atoi(resp.Header.Get(registry.HeaderRetryAfter)); err == nil && s >= 0 {
			wait = time.Duration(s) * time.Second
		}
		if time.Now().Add(wait).After(deadline) {
			return nil, ErrProcessingTimeout
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
