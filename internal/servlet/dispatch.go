package servlet

import (
	"errors"
	"fmt"
	"strings"

	"gitlab.com/deepdhamala/webtainer/internal/request"
	"gitlab.com/deepdhamala/webtainer/internal/response"
)

// Method is an HTTP method understood by the dispatcher
type Method string

// Supported methods
const (
	MethodGet  Method = "GET"
	MethodPost Method = "POST"
)

var (
	// ErrMethodNotSupported is returned for method tokens other than GET and
	// POST
	ErrMethodNotSupported = errors.New("method not supported")
	// ErrNotImplemented is returned when the handler has no callback for a
	// supported method
	ErrNotImplemented = errors.New("method not implemented")
)

// MethodError describes a request that could not be dispatched because of
// its method
type MethodError struct {
	Method string
	// Allowed lists the methods the handler does implement
	Allowed []Method
	Err     error
}

func (e *MethodError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Method)
}

func (e *MethodError) Unwrap() error {
	return e.Err
}

// AllowHeader formats Allowed for an Allow response header
func (e *MethodError) AllowHeader() string {
	methods := make([]string, len(e.Allowed))
	for i, m := range e.Allowed {
		methods[i] = string(m)
	}

	return strings.Join(methods, ", ")
}

// ParseMethod resolves a request method token. Tokens are case-sensitive.
func ParseMethod(token string) (Method, error) {
	switch Method(token) {
	case MethodGet:
		return MethodGet, nil
	case MethodPost:
		return MethodPost, nil
	default:
		return "", ErrMethodNotSupported
	}
}

// AllowedMethods lists the methods handler implements
func AllowedMethods(handler interface{}) []Method {
	var methods []Method

	if _, ok := handler.(Getter); ok {
		methods = append(methods, MethodGet)
	}
	if _, ok := handler.(Poster); ok {
		methods = append(methods, MethodPost)
	}

	return methods
}

// Dispatch calls the callback of handler that matches the request method.
// The response is left untouched; the callback owns it entirely. Method
// failures are returned as *MethodError wrapping ErrMethodNotSupported or
// ErrNotImplemented.
func Dispatch(handler interface{}, req *request.Request, resp *response.Response) error {
	method, err := ParseMethod(req.Method)
	if err != nil {
		return &MethodError{Method: req.Method, Allowed: AllowedMethods(handler), Err: err}
	}

	switch method {
	case MethodGet:
		if g, ok := handler.(Getter); ok {
			return g.DoGet(req, resp)
		}
	case MethodPost:
		if p, ok := handler.(Poster); ok {
			return p.DoPost(req, resp)
		}
	}

	return &MethodError{Method: req.Method, Allowed: AllowedMethods(handler), Err: ErrNotImplemented}
}
