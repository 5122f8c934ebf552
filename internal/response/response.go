package response

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Version is the protocol version written in every status line
const Version = "HTTP/1.1"

const defaultContentType = "text/html"

// ErrInvalidHeader is returned when a header value would break the header
// block, e.g. a redirect location containing CR or LF
var ErrInvalidHeader = errors.New("invalid response header")

var newlineToSpace = strings.NewReplacer("\r", " ", "\n", " ")

type header struct {
	name  string
	value string
}

// Response buffers the status and headers of a reply until the body is first
// needed. It is owned by a single connection and is not safe for concurrent
// use.
type Response struct {
	status  int
	reason  string
	headers []header
	sent    bool
	w       *bufio.Writer
}

// New creates a Response writing to w with status 200
func New(w io.Writer) *Response {
	return &Response{
		status: StatusOK,
		reason: StatusText(StatusOK),
		w:      bufio.NewWriter(w),
	}
}

// Status returns the current status code
func (r *Response) Status() int {
	return r.status
}

// Reason returns the reason phrase of the current status code
func (r *Response) Reason() string {
	return r.reason
}

// SetStatus changes the status code. It has no effect once headers were sent.
func (r *Response) SetStatus(code int) {
	if r.sent {
		return
	}

	r.status = code
	r.reason = StatusText(code)
}

// SetHeader sets a header, replacing any previous value while keeping its
// original position. It has no effect once headers were sent. Headers with an
// invalid name are dropped and CR or LF in values are sent as spaces.
func (r *Response) SetHeader(name, value string) {
	if r.sent || !httpguts.ValidHeaderFieldName(name) {
		return
	}

	value = newlineToSpace.Replace(value)
	name = textproto.CanonicalMIMEHeaderKey(name)
	for i := range r.headers {
		if r.headers[i].name == name {
			r.headers[i].value = value
			return
		}
	}

	r.headers = append(r.headers, header{name: name, value: value})
}

// Header returns the value of a header set on the response
func (r *Response) Header(name string) string {
	name = textproto.CanonicalMIMEHeaderKey(name)
	for _, h := range r.headers {
		if h.name == name {
			return h.value
		}
	}

	return ""
}

// Committed reports whether the status line and headers were sent
func (r *Response) Committed() bool {
	return r.sent
}

// Writer returns the body writer. The first call sends the status line and
// headers; later calls return the same writer without sending them again.
func (r *Response) Writer() io.Writer {
	r.writeHeaders()

	return r.w
}

// Write writes body bytes, sending the headers first if needed
func (r *Response) Write(p []byte) (int, error) {
	return r.Writer().Write(p)
}

// SendRedirect sends a 302 response pointing to location. No body is
// written. A location that is not a valid header value is rejected with
// ErrInvalidHeader and nothing is sent.
func (r *Response) SendRedirect(location string) error {
	if !httpguts.ValidHeaderFieldValue(location) {
		return fmt.Errorf("%w: Location %q", ErrInvalidHeader, location)
	}

	r.SetStatus(StatusFound)
	r.SetHeader("Location", location)

	return r.writeHeaders()
}

// Flush writes buffered body bytes to the underlying writer. Headers are
// committed if nothing was sent yet, but never sent twice.
func (r *Response) Flush() error {
	if err := r.writeHeaders(); err != nil {
		return err
	}

	return r.w.Flush()
}

func (r *Response) writeHeaders() error {
	if r.sent {
		return nil
	}
	r.sent = true

	if r.Header("Content-Type") == "" {
		r.headers = append(r.headers, header{name: "Content-Type", value: defaultContentType})
	}

	fmt.Fprintf(r.w, "%s %d %s\r\n", Version, r.status, r.reason)
	for _, h := range r.headers {
		fmt.Fprintf(r.w, "%s: %s\r\n", h.name, h.value)
	}
	_, err := io.WriteString(r.w, "\r\n")

	return err
}
