package servlet

import (
	"gitlab.com/deepdhamala/webtainer/internal/request"
	"gitlab.com/deepdhamala/webtainer/internal/response"
)

// Servlet is a unit of request handling bound to a path. Init is called once
// when the servlet is registered, before any call to Service. Destroy is
// called once when the container shuts down. Service may be called
// concurrently, so servlets must guard their own state.
type Servlet interface {
	Init() error
	Service(req *request.Request, resp *response.Response) error
	Destroy() error
}

// Getter handles GET requests
type Getter interface {
	DoGet(req *request.Request, resp *response.Response) error
}

// Poster handles POST requests
type Poster interface {
	DoPost(req *request.Request, resp *response.Response) error
}

type initializer interface {
	Init() error
}

type destroyer interface {
	Destroy() error
}

// Base provides no-op lifecycle hooks and can be embedded by handlers that
// do not need them
type Base struct{}

// Init does nothing
func (Base) Init() error { return nil }

// Destroy does nothing
func (Base) Destroy() error { return nil }

// HTTPServlet turns a handler implementing Getter and/or Poster into a
// Servlet. Lifecycle hooks are forwarded when the handler has them.
type HTTPServlet struct {
	handler interface{}
}

// NewHTTPServlet wraps handler. The handler may implement any combination of
// Getter, Poster, Init() error and Destroy() error.
func NewHTTPServlet(handler interface{}) *HTTPServlet {
	return &HTTPServlet{handler: handler}
}

// Init calls the handler's Init hook if it has one
func (s *HTTPServlet) Init() error {
	if i, ok := s.handler.(initializer); ok {
		return i.Init()
	}

	return nil
}

// Service dispatches the request to DoGet or DoPost
func (s *HTTPServlet) Service(req *request.Request, resp *response.Response) error {
	return Dispatch(s.handler, req, resp)
}

// Destroy calls the handler's Destroy hook if it has one
func (s *HTTPServlet) Destroy() error {
	if d, ok := s.handler.(destroyer); ok {
		return d.Destroy()
	}

	return nil
}

// Handler returns the wrapped handler
func (s *HTTPServlet) Handler() interface{} {
	return s.handler
}
