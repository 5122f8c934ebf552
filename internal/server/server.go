package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"gitlab.com/gitlab-org/labkit/log"

	"gitlab.com/deepdhamala/webtainer/internal/httperrors"
	"gitlab.com/deepdhamala/webtainer/internal/registry"
	"gitlab.com/deepdhamala/webtainer/internal/request"
)

const (
	// DefaultReadTimeout bounds the time a client has to send its request
	DefaultReadTimeout = 5 * time.Second

	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// ErrServerClosed is returned by Serve after Shutdown was called
var ErrServerClosed = errors.New("server closed")

// RateLimiter decides whether a connection from addr may be served
type RateLimiter interface {
	AddrAllowed(addr net.Addr) bool
}

// Header is a response header preset on every servlet response
type Header struct {
	Name  string
	Value string
}

// Server accepts connections and dispatches each request to the servlet
// registered for its path. Every connection carries exactly one request and
// one response.
type Server struct {
	registry       *registry.Registry
	readTimeout    time.Duration
	writeTimeout   time.Duration
	maxBodySize    int64
	maxURILength   int
	maxHeaderBytes int
	customHeaders  []Header
	rateLimiter    RateLimiter

	inShutdown int32

	mu        sync.Mutex
	listeners map[net.Listener]struct{}
	conns     sync.WaitGroup
}

// New creates a Server dispatching to the servlets of reg
func New(reg *registry.Registry, opts ...Option) *Server {
	s := &Server{
		registry:       reg,
		readTimeout:    DefaultReadTimeout,
		maxBodySize:    request.DefaultMaxBodySize,
		maxHeaderBytes: request.DefaultMaxHeaderBytes,
		listeners:      make(map[net.Listener]struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Serve accepts connections on l and serves each one on its own goroutine.
// The registry is frozen before the first connection is accepted. Serve
// always returns a non-nil error; after Shutdown it returns ErrServerClosed.
func (s *Server) Serve(l net.Listener) error {
	s.registry.Freeze()

	if !s.trackListener(l, true) {
		return ErrServerClosed
	}
	defer s.trackListener(l, false)

	var delay time.Duration

	for {
		rwc, err := l.Accept()
		if err != nil {
			if s.shuttingDown() {
				return ErrServerClosed
			}

			var ne net.Error
			if errors.As(err, &ne) && ne.Temporary() {
				delay = nextAcceptDelay(delay)
				log.WithError(err).WithFields(log.Fields{
					"retry_in": delay.String(),
				}).Warn("Failed to accept connection")
				time.Sleep(delay)
				continue
			}

			return err
		}
		delay = 0

		if !s.trackConn() {
			go rejectConn(rwc)
			continue
		}

		go func() {
			defer s.conns.Done()
			s.serveConn(rwc)
		}()
	}
}

func nextAcceptDelay(delay time.Duration) time.Duration {
	if delay == 0 {
		return minAcceptDelay
	}

	delay *= 2
	if delay > maxAcceptDelay {
		delay = maxAcceptDelay
	}

	return delay
}

// Shutdown stops accepting new connections and waits for in-flight ones to
// finish or for ctx to end, whichever comes first. Connections are never
// closed by Shutdown. The servlets are destroyed once every connection is
// done. When ctx ends first, Shutdown returns ctx.Err() and the servlets are
// destroyed later, after the last connection finished.
func (s *Server) Shutdown(ctx context.Context) error {
	var result *multierror.Error

	s.mu.Lock()
	atomic.StoreInt32(&s.inShutdown, 1)
	for l := range s.listeners {
		if err := l.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		delete(s.listeners, l)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		log.WithError(ctx.Err()).Warn("Shutdown deadline reached with connections in flight")
		go s.destroyAfterDrain(done)

		return multierror.Append(result, ctx.Err()).ErrorOrNil()
	}

	if err := s.registry.DestroyAll(); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}

// destroyAfterDrain destroys the servlets once the last in-flight
// connection is done. Servlets are never destroyed while serving.
func (s *Server) destroyAfterDrain(done <-chan struct{}) {
	<-done

	if err := s.registry.DestroyAll(); err != nil {
		log.WithError(err).Error("Failed to destroy servlets after drain")
	}
}

func (s *Server) shuttingDown() bool {
	return atomic.LoadInt32(&s.inShutdown) != 0
}

func (s *Server) trackListener(l net.Listener, add bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !add {
		delete(s.listeners, l)
		return true
	}

	if s.shuttingDown() {
		return false
	}

	s.listeners[l] = struct{}{}
	return true
}

// trackConn registers an in-flight connection unless shutdown has started
func (s *Server) trackConn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shuttingDown() {
		return false
	}

	s.conns.Add(1)
	return true
}

// rejectConn answers a connection accepted while shutting down
func rejectConn(rwc net.Conn) {
	defer rwc.Close()

	if err := httperrors.Serve503(rwc); err != nil {
		log.WithError(err).Debug("Failed to reject connection")
	}
}
