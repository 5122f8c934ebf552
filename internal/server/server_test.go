package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	testlog "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"gitlab.com/deepdhamala/webtainer/internal/registry"
	"gitlab.com/deepdhamala/webtainer/internal/request"
	"gitlab.com/deepdhamala/webtainer/internal/response"
	"gitlab.com/deepdhamala/webtainer/internal/servlet"
	"gitlab.com/deepdhamala/webtainer/internal/testhelpers"
	"gitlab.com/deepdhamala/webtainer/metrics"
)

type hello struct{}

func (hello) DoGet(req *request.Request, resp *response.Response) error {
	_, err := fmt.Fprintf(resp.Writer(), "Hello, %s", req.Param("name"))
	return err
}

func (hello) DoPost(req *request.Request, resp *response.Response) error {
	_, err := fmt.Fprintf(resp.Writer(), "Posted, %s", req.Param("name"))
	return err
}

type readOnly struct{}

func (readOnly) DoGet(_ *request.Request, resp *response.Response) error {
	_, err := io.WriteString(resp.Writer(), "read only")
	return err
}

type failing struct {
	writeFirst bool
}

func (f failing) DoGet(_ *request.Request, resp *response.Response) error {
	if f.writeFirst {
		io.WriteString(resp.Writer(), "partial")
	}

	return errors.New("database is down")
}

type panicking struct{}

func (panicking) DoGet(*request.Request, *response.Response) error {
	panic("boom")
}

type redirecting struct{}

func (redirecting) DoGet(_ *request.Request, resp *response.Response) error {
	return resp.SendRedirect("/hello")
}

type injecting struct{}

func (injecting) DoGet(req *request.Request, resp *response.Response) error {
	return resp.SendRedirect(req.Param("next"))
}

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()

	reg := registry.New()
	for path, handler := range map[string]interface{}{
		"/hello":     hello{},
		"/readonly":  readOnly{},
		"/fail":      failing{},
		"/committed": failing{writeFirst: true},
		"/panic":     panicking{},
		"/redirect":  redirecting{},
		"/inject":    injecting{},
	} {
		require.NoError(t, reg.Register(path, servlet.NewHTTPServlet(handler)))
	}

	return New(reg, opts...)
}

func TestServeConn(t *testing.T) {
	tests := map[string]struct {
		raw        string
		statusLine string
		contains   []string
	}{
		"get_with_query": {
			raw:        "GET /hello?name=World HTTP/1.1\r\nHost: localhost\r\n\r\n",
			statusLine: "HTTP/1.1 200 OK",
			contains:   []string{"Content-Type: text/html\r\n", "\r\n\r\nHello, World"},
		},
		"post_with_body": {
			raw:        "POST /hello HTTP/1.1\r\nContent-Length: 9\r\n\r\nname=Jane",
			statusLine: "HTTP/1.1 200 OK",
			contains:   []string{"\r\n\r\nPosted, Jane"},
		},
		"not_found": {
			raw:        "GET /missing HTTP/1.1\r\n\r\n",
			statusLine: "HTTP/1.1 404 Not Found",
			contains: []string{
				"Content-Type: text/html; charset=UTF-8\r\n",
				"Connection: close\r\n",
				"HTTP Status 404 – Not Found",
			},
		},
		"malformed_request_line": {
			raw:        "INVALID\r\n\r\n",
			statusLine: "HTTP/1.1 400 Bad Request",
			contains:   []string{"HTTP Status 400 – Bad Request"},
		},
		"header_without_colon": {
			raw:        "GET /hello HTTP/1.1\r\nBadHeader\r\n\r\n",
			statusLine: "HTTP/1.1 400 Bad Request",
		},
		"malformed_query_parameter": {
			raw:        "GET /hello?a=b=c HTTP/1.1\r\n\r\n",
			statusLine: "HTTP/1.1 400 Bad Request",
		},
		"unsupported_method": {
			raw:        "PUT /hello HTTP/1.1\r\n\r\n",
			statusLine: "HTTP/1.1 501 Not Implemented",
			contains:   []string{"HTTP Status 501 – Not Implemented"},
		},
		"method_not_implemented": {
			raw:        "POST /readonly HTTP/1.1\r\n\r\n",
			statusLine: "HTTP/1.1 405 Method Not Allowed",
			contains:   []string{"Allow: GET\r\n"},
		},
		"servlet_error": {
			raw:        "GET /fail HTTP/1.1\r\n\r\n",
			statusLine: "HTTP/1.1 500 Internal Server Error",
			contains:   []string{"HTTP Status 500 – Internal Server Error"},
		},
		"servlet_error_after_commit": {
			raw:        "GET /committed HTTP/1.1\r\n\r\n",
			statusLine: "HTTP/1.1 200 OK",
			contains:   []string{"\r\n\r\npartial"},
		},
		"servlet_panic": {
			raw:        "GET /panic HTTP/1.1\r\n\r\n",
			statusLine: "HTTP/1.1 500 Internal Server Error",
		},
		"redirect": {
			raw:        "GET /redirect HTTP/1.1\r\n\r\n",
			statusLine: "HTTP/1.1 302 Found",
			contains:   []string{"Location: /hello\r\n"},
		},
		"redirect_header_injection": {
			raw:        "GET /inject?next=%2Fhello%0D%0ASet-Cookie%3A+a%3Db HTTP/1.1\r\n\r\n",
			statusLine: "HTTP/1.1 500 Internal Server Error",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			srv := newTestServer(t)

			out := testhelpers.RoundTrip(t, srv.serveConn, tt.raw)

			require.Equal(t, tt.statusLine, testhelpers.StatusLine(t, out))
			for _, want := range tt.contains {
				require.Contains(t, out, want)
			}
		})
	}
}

func TestServeConnSendsHeadersOnce(t *testing.T) {
	srv := newTestServer(t)

	out := testhelpers.RoundTrip(t, srv.serveConn, "GET /hello HTTP/1.1\r\n\r\n")

	require.Equal(t, 1, strings.Count(out, "HTTP/1.1 200 OK"))
	require.Equal(t, "HTTP/1.1 200 OK\r\nContent-Type: text/html\r\n\r\nHello, ", out)
}

func TestServeConnErrorAfterCommitKeepsResponse(t *testing.T) {
	srv := newTestServer(t)

	out := testhelpers.RoundTrip(t, srv.serveConn, "GET /committed HTTP/1.1\r\n\r\n")

	require.NotContains(t, out, "500")
	require.Equal(t, 1, strings.Count(out, "HTTP/1.1 "))
}

func TestServeConnCustomHeaders(t *testing.T) {
	srv := newTestServer(t, WithCustomHeaders([]Header{
		{Name: "X-Frame-Options", Value: "DENY"},
		{Name: "content-type", Value: "text/plain"},
	}))

	out := testhelpers.RoundTrip(t, srv.serveConn, "GET /hello HTTP/1.1\r\n\r\n")

	require.Contains(t, out, "X-Frame-Options: DENY\r\n")
	require.Contains(t, out, "Content-Type: text/plain\r\n")
	require.NotContains(t, out, "Content-Type: text/html")
}

func TestServeConnReadTimeout(t *testing.T) {
	srv := newTestServer(t, WithReadTimeout(50*time.Millisecond))

	// the blank line ending the headers never arrives
	out := testhelpers.RoundTrip(t, srv.serveConn, "GET /hello HTTP/1.1\r\n")

	require.Equal(t, "HTTP/1.1 408 Request Timeout", testhelpers.StatusLine(t, out))
}

func TestServeConnURITooLong(t *testing.T) {
	srv := newTestServer(t, WithMaxURILength(10))

	out := testhelpers.RoundTrip(t, srv.serveConn, "GET /hello?name=World HTTP/1.1\r\n\r\n")
	require.Equal(t, "HTTP/1.1 414 URI Too Long", testhelpers.StatusLine(t, out))

	out = testhelpers.RoundTrip(t, srv.serveConn, "GET /hello HTTP/1.1\r\n\r\n")
	require.Equal(t, "HTTP/1.1 200 OK", testhelpers.StatusLine(t, out))
}

func TestServeConnHeaderTooLarge(t *testing.T) {
	srv := newTestServer(t, WithMaxHeaderBytes(64))

	out := testhelpers.RoundTrip(t, srv.serveConn, "GET /hello HTTP/1.1\r\nX-Big: "+strings.Repeat("b", 100)+"\r\n\r\n")
	require.Equal(t, "HTTP/1.1 431 Request Header Fields Too Large", testhelpers.StatusLine(t, out))

	out = testhelpers.RoundTrip(t, srv.serveConn, "GET /"+strings.Repeat("a", 100)+" HTTP/1.1\r\n\r\n")
	require.Equal(t, "HTTP/1.1 414 URI Too Long", testhelpers.StatusLine(t, out))
}

func TestServeConnShortBodyDoesNotWaitForContentLength(t *testing.T) {
	srv := newTestServer(t, WithReadTimeout(2*time.Second))

	start := time.Now()
	// the client keeps the connection open after the short body
	out := testhelpers.RoundTrip(t, srv.serveConn, "POST /hello HTTP/1.1\r\nContent-Length: 100\r\n\r\nname=Ann")

	require.Equal(t, "HTTP/1.1 200 OK", testhelpers.StatusLine(t, out))
	require.Contains(t, out, "Posted, Ann")
	require.Less(t, time.Since(start), time.Second)
}

type noMethods struct{}

func TestServeConnNoAllowedMethods(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register("/none", servlet.NewHTTPServlet(noMethods{})))
	srv := New(reg)

	out := testhelpers.RoundTrip(t, srv.serveConn, "GET /none HTTP/1.1\r\n\r\n")

	require.Equal(t, "HTTP/1.1 405 Method Not Allowed", testhelpers.StatusLine(t, out))
	require.NotContains(t, out, "Allow:")
}

type denyAll struct {
	calls int32
}

func (d *denyAll) AddrAllowed(net.Addr) bool {
	atomic.AddInt32(&d.calls, 1)
	return false
}

func TestServeConnRateLimited(t *testing.T) {
	limiter := &denyAll{}
	srv := newTestServer(t, WithRateLimiter(limiter))

	out := testhelpers.RoundTrip(t, srv.serveConn, "GET /hello HTTP/1.1\r\n\r\n")

	require.Equal(t, "HTTP/1.1 429 Too Many Requests", testhelpers.StatusLine(t, out))
	require.Equal(t, int32(1), atomic.LoadInt32(&limiter.calls))
}

func TestServeConnAccessLog(t *testing.T) {
	hook := testlog.NewGlobal()
	srv := newTestServer(t)

	testhelpers.RoundTrip(t, srv.serveConn, "GET /hello?name=x HTTP/1.1\r\n\r\n")

	var access []map[string]interface{}
	for _, e := range hook.AllEntries() {
		if e.Message == "access" {
			access = append(access, e.Data)
		}
	}

	require.Len(t, access, 1)
	require.Equal(t, "GET", access[0]["method"])
	require.Equal(t, "/hello", access[0]["uri"])
	require.Equal(t, 200, access[0]["status"])
	require.NotEmpty(t, access[0]["correlation_id"])
}

func TestServeConnLogsPanic(t *testing.T) {
	hook := testlog.NewGlobal()
	srv := newTestServer(t)

	testhelpers.RoundTrip(t, srv.serveConn, "GET /panic HTTP/1.1\r\n\r\n")

	testhelpers.AssertLogContains(t, "Servlet panicked", hook.AllEntries())
}

func TestServeConnMetrics(t *testing.T) {
	notFound := metrics.RequestsTotal.WithLabelValues("404")
	badRequest := metrics.ParseErrors.WithLabelValues("request_line")

	notFoundBefore := testutil.ToFloat64(notFound)
	badRequestBefore := testutil.ToFloat64(badRequest)

	srv := newTestServer(t)
	testhelpers.RoundTrip(t, srv.serveConn, "GET /nowhere HTTP/1.1\r\n\r\n")
	testhelpers.RoundTrip(t, srv.serveConn, "BROKEN\r\n\r\n")

	require.Equal(t, notFoundBefore+1, testutil.ToFloat64(notFound))
	require.Equal(t, badRequestBefore+1, testutil.ToFloat64(badRequest))
}

type blocking struct {
	started   chan struct{}
	release   chan struct{}
	destroyed int32
}

func newBlocking() *blocking {
	return &blocking{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (b *blocking) DoGet(_ *request.Request, resp *response.Response) error {
	close(b.started)
	<-b.release

	_, err := io.WriteString(resp.Writer(), "done")
	return err
}

func (b *blocking) Destroy() error {
	atomic.AddInt32(&b.destroyed, 1)
	return nil
}

func startServer(t *testing.T, handler interface{}) (*Server, net.Listener, chan error) {
	t.Helper()

	reg := registry.New()
	require.NoError(t, reg.Register("/slow", servlet.NewHTTPServlet(handler)))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := New(reg)
	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()

	return srv, ln, errc
}

func sendRequest(t *testing.T, addr net.Addr) <-chan string {
	t.Helper()

	conn, err := net.Dial(addr.Network(), addr.String())
	require.NoError(t, err)
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	_, err = io.WriteString(conn, "GET /slow HTTP/1.1\r\n\r\n")
	require.NoError(t, err)

	out := make(chan string, 1)
	go func() {
		defer conn.Close()
		b, _ := io.ReadAll(conn)
		out <- string(b)
	}()

	return out
}

func TestShutdownDrainsInFlightConnections(t *testing.T) {
	b := newBlocking()
	srv, ln, errc := startServer(t, b)

	out := sendRequest(t, ln.Addr())
	<-b.started

	shutdown := make(chan error, 1)
	go func() {
		shutdown <- srv.Shutdown(context.Background())
	}()

	select {
	case err := <-errc:
		require.ErrorIs(t, err, ErrServerClosed)
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}

	select {
	case <-shutdown:
		t.Fatal("Shutdown returned with a connection in flight")
	case <-time.After(50 * time.Millisecond):
	}

	require.Zero(t, atomic.LoadInt32(&b.destroyed))

	close(b.release)

	require.NoError(t, <-shutdown)
	require.Equal(t, int32(1), atomic.LoadInt32(&b.destroyed))

	got := <-out
	require.Equal(t, "HTTP/1.1 200 OK", testhelpers.StatusLine(t, got))
	require.True(t, strings.HasSuffix(got, "done"))
}

func TestShutdownDeadline(t *testing.T) {
	b := newBlocking()
	srv, ln, errc := startServer(t, b)

	out := sendRequest(t, ln.Addr())
	<-b.started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := srv.Shutdown(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.ErrorIs(t, <-errc, ErrServerClosed)

	// still serving, so nothing may be destroyed yet
	time.Sleep(50 * time.Millisecond)
	require.Zero(t, atomic.LoadInt32(&b.destroyed))

	close(b.release)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&b.destroyed) == 1
	}, time.Second, 5*time.Millisecond)

	got := <-out
	require.True(t, strings.HasSuffix(got, "done"))
}

func TestServeAfterShutdown(t *testing.T) {
	srv := New(registry.New())
	require.NoError(t, srv.Shutdown(context.Background()))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	require.ErrorIs(t, srv.Serve(ln), ErrServerClosed)
}

func TestServeFreezesRegistry(t *testing.T) {
	reg := registry.New()
	srv := New(reg)
	require.NoError(t, srv.Shutdown(context.Background()))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	srv.Serve(ln)

	require.True(t, reg.Frozen())
	require.ErrorIs(t, reg.Register("/late", servlet.NewHTTPServlet(hello{})), registry.ErrRegistryFrozen)
}

func TestNextAcceptDelay(t *testing.T) {
	tests := []struct {
		current time.Duration
		want    time.Duration
	}{
		{current: 0, want: 5 * time.Millisecond},
		{current: 5 * time.Millisecond, want: 10 * time.Millisecond},
		{current: 640 * time.Millisecond, want: time.Second},
		{current: time.Second, want: time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.current.String(), func(t *testing.T) {
			require.Equal(t, tt.want, nextAcceptDelay(tt.current))
		})
	}
}
