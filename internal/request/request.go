package request

import (
	"net/textproto"
	"sort"
)

// Request is a parsed HTTP request. It is created once per connection by
// Parse and is not modified afterwards.
type Request struct {
	Method  string
	Path    string
	Version string

	headers map[string]string
	params  map[string]string
}

func newRequest() *Request {
	return &Request{
		headers: make(map[string]string),
		params:  make(map[string]string),
	}
}

// Header returns the value of the named header or an empty string. Names are
// matched case-insensitively.
func (r *Request) Header(name string) string {
	return r.headers[textproto.CanonicalMIMEHeaderKey(name)]
}

// HasHeader reports whether the named header was sent
func (r *Request) HasHeader(name string) bool {
	_, ok := r.headers[textproto.CanonicalMIMEHeaderKey(name)]
	return ok
}

// Headers returns a copy of all request headers keyed by canonical name
func (r *Request) Headers() map[string]string {
	headers := make(map[string]string, len(r.headers))
	for k, v := range r.headers {
		headers[k] = v
	}

	return headers
}

// Param returns the value of a query or form parameter, or an empty string
func (r *Request) Param(name string) string {
	return r.params[name]
}

// LookupParam returns the value of a parameter and whether it was present
func (r *Request) LookupParam(name string) (string, bool) {
	v, ok := r.params[name]
	return v, ok
}

// ParamNames returns the sorted parameter names
func (r *Request) ParamNames() []string {
	names := make([]string, 0, len(r.params))
	for name := range r.params {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func (r *Request) setHeader(name, value string) {
	r.headers[textproto.CanonicalMIMEHeaderKey(name)] = value
}

func (r *Request) setParam(name, value string) {
	r.params[name] = value
}
