package server

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"gitlab.com/gitlab-org/labkit/correlation"

	"gitlab.com/deepdhamala/webtainer/internal/errortracking"
	"gitlab.com/deepdhamala/webtainer/internal/httperrors"
	"gitlab.com/deepdhamala/webtainer/internal/logging"
	"gitlab.com/deepdhamala/webtainer/internal/request"
	"gitlab.com/deepdhamala/webtainer/internal/response"
	"gitlab.com/deepdhamala/webtainer/internal/servlet"
	"gitlab.com/deepdhamala/webtainer/metrics"
)

// conn is the state of a single served connection
type conn struct {
	srv           *Server
	rwc           net.Conn
	correlationID string
	logger        *logrus.Entry

	method string
	path   string
	// status of the response sent, 0 when nothing was sent
	status int
}

// serveConn handles the only request of rwc and closes it
func (s *Server) serveConn(rwc net.Conn) {
	start := time.Now()
	correlationID := correlation.SafeRandomID()

	// deadlines go first, reading the remote address of a PROXY protocol
	// connection blocks on the proxy header
	deadlineErr := s.setDeadlines(rwc, start)

	c := &conn{
		srv:           s,
		rwc:           rwc,
		correlationID: correlationID,
		logger:        logging.LogConn(rwc, correlationID),
	}

	if deadlineErr != nil {
		c.logger.WithError(deadlineErr).Debug("Failed to set connection deadlines")
	}

	metrics.ConnectionsAccepted.Inc()

	defer func() {
		if err := rwc.Close(); err != nil {
			c.logger.WithError(err).Debug("Failed to close connection")
		}

		c.finish(time.Since(start))
	}()

	c.serve()
}

func (c *conn) serve() {
	if c.srv.rateLimiter != nil && !c.srv.rateLimiter.AddrAllowed(c.rwc.RemoteAddr()) {
		c.logger.Debug("Source IP rate limited")
		c.writeError(response.StatusTooManyRequests, httperrors.Serve429)
		return
	}

	req, err := request.Parse(bufio.NewReader(c.rwc),
		request.WithMaxBodySize(c.srv.maxBodySize),
		request.WithMaxURILength(c.srv.maxURILength),
		request.WithMaxHeaderBytes(c.srv.maxHeaderBytes),
	)
	if err != nil {
		c.handleReadError(err)
		return
	}

	c.method = req.Method
	c.path = req.Path

	s, ok := c.srv.registry.Lookup(req.Path)
	if !ok {
		c.writeError(response.StatusNotFound, httperrors.Serve404)
		return
	}

	resp := response.New(c.rwc)
	for _, h := range c.srv.customHeaders {
		resp.SetHeader(h.Name, h.Value)
	}

	if err := c.service(s, req, resp); err != nil {
		if c.handleServletError(err, resp) {
			return
		}
	}

	c.status = resp.Status()
	if err := resp.Flush(); err != nil {
		c.logger.WithError(err).Debug("Failed to write response")
	}
}

func (s *Server) setDeadlines(rwc net.Conn, now time.Time) error {
	if s.readTimeout > 0 {
		if err := rwc.SetReadDeadline(now.Add(s.readTimeout)); err != nil {
			return err
		}
	}

	if s.writeTimeout > 0 {
		return rwc.SetWriteDeadline(now.Add(s.writeTimeout))
	}

	return nil
}

func (c *conn) handleReadError(err error) {
	if errors.Is(err, request.ErrURITooLong) {
		c.logger.WithError(err).Debug("Request URI too long")
		c.writeError(response.StatusRequestURITooLong, httperrors.Serve414)
		return
	}

	if errors.Is(err, request.ErrHeaderTooLarge) {
		c.logger.WithError(err).Debug("Request header too large")
		c.writeError(response.StatusHeaderTooLarge, httperrors.Serve431)
		return
	}

	if request.IsParseError(err) {
		metrics.ParseErrors.WithLabelValues(parseErrorKind(err)).Inc()
		c.logger.WithError(err).Debug("Malformed request")
		c.writeError(response.StatusBadRequest, httperrors.Serve400)
		return
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		c.logger.WithError(err).Debug("Timed out reading request")
		c.writeError(response.StatusRequestTimeout, httperrors.Serve408)
		return
	}

	// the peer is gone, there is nobody to answer
	c.logger.WithError(err).Debug("Failed to read request")
}

func parseErrorKind(err error) string {
	switch {
	case errors.Is(err, request.ErrMalformedRequestLine):
		return "request_line"
	case errors.Is(err, request.ErrMalformedHeaderLine):
		return "header_line"
	default:
		return "query_parameter"
	}
}

// service runs the servlet, turning a panic into an error
func (c *conn) service(s servlet.Servlet, req *request.Request, resp *response.Response) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errortracking.CapturePanic(r, c.correlationID,
				errortracking.WithField("method", req.Method),
				errortracking.WithField("path", req.Path),
			)
			c.logger.WithError(err).Error("Servlet panicked")
		}
	}()

	return s.Service(req, resp)
}

// handleServletError answers a failed servlet call. It returns true when an
// error page was written in place of resp.
func (c *conn) handleServletError(err error, resp *response.Response) bool {
	if resp.Committed() {
		c.logger.WithError(err).Error("Servlet failed after committing the response")
		return false
	}

	var methodErr *servlet.MethodError
	if errors.As(err, &methodErr) {
		c.logger.WithError(err).Debug("Method can not be dispatched")

		if errors.Is(err, servlet.ErrMethodNotSupported) {
			c.writeError(response.StatusNotImplemented, httperrors.Serve501)
		} else {
			allow := methodErr.AllowHeader()
			c.writeError(response.StatusMethodNotAllowed, func(w io.Writer) error {
				return httperrors.Serve405(w, allow)
			})
		}

		return true
	}

	c.logger.WithError(err).Error("Servlet failed")
	c.writeError(response.StatusInternalServerError, httperrors.Serve500)

	return true
}

func (c *conn) writeError(status int, serve func(io.Writer) error) {
	c.status = status

	if err := serve(c.rwc); err != nil {
		c.logger.WithError(err).Debug("Failed to write error page")
	}
}

func (c *conn) finish(duration time.Duration) {
	if c.status == 0 {
		return
	}

	code := strconv.Itoa(c.status)
	metrics.RequestsTotal.WithLabelValues(code).Inc()
	metrics.RequestDuration.WithLabelValues(code).Observe(duration.Seconds())

	logging.LogAccess(c.logger, logging.AccessEntry{
		Method:   c.method,
		Path:     c.path,
		Status:   c.status,
		Duration: duration,
	})
}
