package probe

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/regcompat/internal/ident"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, opts...)
	require.NoError(t, err)
	return c
}

func TestSendReturnsResponse(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mona/LinkedList", r.URL.Path)
		assert.Equal(t, "application/vnd.swift.registry.v1+json", r.Header.Get("Accept"))
		w.Header().Add("Link", `<a>; rel="first"`)
		w.Header().Add("Link", `<b>; rel="next"`)
		w.Header().Set("Content-Version", "1")
		_, _ = w.Write([]byte(`{"releases":{}}`))
	}))

	resp, err := c.Send(context.Background(), Request{
		Method: http.MethodGet,
		Path:   "/mona/LinkedList",
		Header: http.Header{"Accept": {"application/vnd.swift.registry.v1+json"}},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"releases":{}}`, string(resp.Body))
	assert.Equal(t, "1", resp.Header.Get("content-version"))
	assert.Equal(t, []string{`<a>; rel="first"`, `<b>; rel="next"`}, resp.Header.Values("LINK"))
}

func TestSendNotFoundIsNotAnError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"not found"}`))
	}))

	resp, err := c.Send(context.Background(), Request{Method: http.MethodGet, Path: "/x/y"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, `{"detail":"not found"}`, string(resp.Body))
}

func TestSendDoesNotFollowRedirects(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusSeeOther)
	}))

	resp, err := c.Send(context.Background(), Request{Method: http.MethodGet, Path: "/a"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/elsewhere", resp.Header.Get("Location"))
}

func TestSendCredentials(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Header.Get("Authorization")))
	}))

	tok, ok := ident.ParseAuthToken("bearer:s3cr:et")
	require.True(t, ok)

	resp, err := c.Send(context.Background(), Request{Method: http.MethodGet, Path: "/", Credentials: &tok})
	require.NoError(t, err)
	assert.Equal(t, "Bearer s3cr:et", string(resp.Body))
}

func TestSendTimeout(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))

	start := time.Now()
	_, err := c.Send(context.Background(), Request{Method: http.MethodGet, Path: "/slow", Timeout: 50 * time.Millisecond})
	require.Error(t, err)
	assert.True(t, IsTransportError(err))
	assert.True(t, IsTimeout(err), "got %v", err)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestSendCanceled(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Send(ctx, Request{Method: http.MethodGet, Path: "/", Timeout: 5 * time.Second})
	require.Error(t, err)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, KindCanceled, te.Kind)
}

func TestSendConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c, err := New("http://" + addr)
	require.NoError(t, err)

	_, err = c.Send(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	require.Error(t, err)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, KindConnection, te.Kind)
}

func TestSendMalformedResponse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 1024)
		_, _ = conn.Read(buf)
		_, _ = conn.Write([]byte("this is not http\r\n\r\n"))
	}()

	c, err := New("http://" + ln.Addr().String())
	require.NoError(t, err)

	_, err = c.Send(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	require.Error(t, err)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, KindMalformed, te.Kind)
}

func TestNewRejectsInvalidURL(t *testing.T) {
	for _, u := range []string{"", "ftp://example.com", "http://", "::"} {
		_, err := New(u)
		assert.Error(t, err, u)
	}
}

func TestURLTrimsTrailingSlash(t *testing.T) {
	c, err := New("https://registry.example.com/api/")
	require.NoError(t, err)
	assert.Equal(t, "https://registry.example.com/api/mona/LinkedList", c.URL("/mona/LinkedList"))
}

func TestSendAbsoluteURL(t *testing.T) {
	var hits int
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, "/status/1", r.URL.Path)
		w.WriteHeader(http.StatusAccepted)
	}))

	resp, err := c.Send(context.Background(), Request{Method: http.MethodGet, Path: c.BaseURL() + "/status/1"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, 1, hits)
}

func TestSendKeepsCompressedBody(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(strings.Repeat(`{"releases":{}}`, 20)))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	compressed := buf.Bytes()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Accept-Encoding"))
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Set("Content-Length", strconv.Itoa(len(compressed)))
		_, _ = w.Write(compressed)
	}))

	resp, err := c.Send(context.Background(), Request{Method: http.MethodGet, Path: "/mona/LinkedList"})
	require.NoError(t, err)
	assert.Equal(t, compressed, resp.Body)
	assert.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))
	assert.Equal(t, strconv.Itoa(len(compressed)), resp.Header.Get("Content-Length"))
}

func TestWithHTTPClientDisablesCompression(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Header.Get("Accept-Encoding")))
	}), WithHTTPClient(&http.Client{Timeout: time.Minute}))

	resp, err := c.Send(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	require.NoError(t, err)
	assert.Empty(t, resp.Body)
}

func TestSendRejectsOversizedBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("x"), 1024))
	}), WithMaxBodySize(512))

	_, err := c.Send(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	require.Error(t, err)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, KindMalformed, te.Kind)
	assert.Contains(t, err.Error(), "exceeds 512 bytes")
}

func TestSendAcceptsBodyAtLimit(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("x"), 512))
	}), WithMaxBodySize(512))

	resp, err := c.Send(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	require.NoError(t, err)
	assert.Len(t, resp.Body, 512)
}

func TestLocationResolvesAgainstMountedRegistry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/registry/mona/LinkedList/1.0.0":
			w.Header().Set("Location", "/registry/status/1")
			w.WriteHeader(http.StatusAccepted)
		case "/registry/status/1":
			w.WriteHeader(http.StatusCreated)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL + "/registry")
	require.NoError(t, err)

	accepted, err := c.Send(context.Background(), Request{Method: http.MethodPut, Path: "/mona/LinkedList/1.0.0"})
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, accepted.StatusCode)

	location, ok := accepted.Location()
	require.True(t, ok)
	assert.Equal(t, srv.URL+"/registry/status/1", location)

	final, err := c.Send(context.Background(), Request{Method: http.MethodGet, Path: location})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, final.StatusCode)
}

func TestLocationRelativeToRequest(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "status/1")
		w.WriteHeader(http.StatusAccepted)
	}))

	resp, err := c.Send(context.Background(), Request{Method: http.MethodPut, Path: "/mona/LinkedList/1.0.0"})
	require.NoError(t, err)
	location, ok := resp.Location()
	require.True(t, ok)
	assert.Equal(t, c.BaseURL()+"/mona/LinkedList/status/1", location)
}

func TestLocationMissing(t *testing.T) {
	resp := &Response{StatusCode: http.StatusAccepted, Header: http.Header{}}
	_, ok := resp.Location()
	assert.False(t, ok)
}
