package request

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
)

// DefaultMaxBodySize is the largest POST body read by Parse unless
// configured otherwise with WithMaxBodySize
const DefaultMaxBodySize = 1 << 20

// DefaultMaxHeaderBytes bounds the request line and header block unless
// configured otherwise with WithMaxHeaderBytes
const DefaultMaxHeaderBytes = 1 << 20

const requestLineParts = 3

var (
	// ErrMalformedRequestLine is returned when the request line is missing,
	// blank or does not consist of method, target and version
	ErrMalformedRequestLine = errors.New("malformed request line")
	// ErrMalformedHeaderLine is returned for header lines without a name
	// separated by a colon
	ErrMalformedHeaderLine = errors.New("malformed header line")
	// ErrMalformedQueryParameter is returned for key=value pairs that can not
	// be parsed, either in the query string or in a form body
	ErrMalformedQueryParameter = errors.New("malformed query parameter")
	// ErrURITooLong is returned when the request target exceeds the limit
	// set with WithMaxURILength
	ErrURITooLong = errors.New("request URI too long")
	// ErrHeaderTooLarge is returned when the header block exceeds the limit
	// set with WithMaxHeaderBytes
	ErrHeaderTooLarge = errors.New("request header too large")
)

// IsParseError reports whether err was caused by malformed request syntax
// rather than by the underlying connection
func IsParseError(err error) bool {
	return errors.Is(err, ErrMalformedRequestLine) ||
		errors.Is(err, ErrMalformedHeaderLine) ||
		errors.Is(err, ErrMalformedQueryParameter)
}

// Option configures Parse
type Option func(*parser)

// WithMaxBodySize limits the number of body bytes read for POST requests
func WithMaxBodySize(size int64) Option {
	return func(p *parser) {
		p.maxBodySize = size
	}
}

// WithMaxURILength rejects request targets longer than length bytes. Zero
// means no limit.
func WithMaxURILength(length int) Option {
	return func(p *parser) {
		p.maxURILength = length
	}
}

// WithMaxHeaderBytes limits the bytes read for the request line and the
// headers together. A request line over the limit fails with ErrURITooLong,
// a header block over it with ErrHeaderTooLarge. Zero means no limit.
func WithMaxHeaderBytes(size int) Option {
	return func(p *parser) {
		p.maxHeaderBytes = size
	}
}

type parser struct {
	br             *bufio.Reader
	maxBodySize    int64
	maxURILength   int
	maxHeaderBytes int

	// headerBytes counts the bytes read for the request line and headers
	headerBytes int
}

// Parse reads a single request from r. Either a fully populated Request or
// an error is returned, never both.
func Parse(r *bufio.Reader, opts ...Option) (*Request, error) {
	p := &parser{
		br:             r,
		maxBodySize:    DefaultMaxBodySize,
		maxHeaderBytes: DefaultMaxHeaderBytes,
	}

	for _, opt := range opts {
		opt(p)
	}

	req := newRequest()
	if err := p.parse(req); err != nil {
		return nil, err
	}

	return req, nil
}

func (p *parser) parse(req *Request) error {
	if err := p.readRequestLine(req); err != nil {
		return err
	}

	if err := p.readHeaders(req); err != nil {
		return err
	}

	if req.Method != "POST" {
		return nil
	}

	return p.readBody(req)
}

func (p *parser) readRequestLine(req *Request) error {
	line, err := p.readLine(ErrURITooLong)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty request", ErrMalformedRequestLine)
		}
		return err
	}

	if strings.TrimSpace(line) == "" {
		return fmt.Errorf("%w: empty request", ErrMalformedRequestLine)
	}

	fields := strings.Fields(line)
	if len(fields) != requestLineParts {
		return fmt.Errorf("%w: %q", ErrMalformedRequestLine, line)
	}

	req.Method = fields[0]
	req.Version = fields[2]

	target := fields[1]
	if p.maxURILength > 0 && len(target) > p.maxURILength {
		return fmt.Errorf("%w: %d bytes", ErrURITooLong, len(target))
	}

	idx := strings.IndexByte(target, '?')
	if idx < 0 {
		req.Path = target
		return nil
	}

	req.Path = target[:idx]
	return parseParams(req, target[idx+1:])
}

func (p *parser) readHeaders(req *Request) error {
	for {
		line, err := p.readLine(ErrHeaderTooLarge)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if line == "" {
			return nil
		}

		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			return fmt.Errorf("%w: %q", ErrMalformedHeaderLine, line)
		}

		name := strings.TrimSpace(line[:colon])
		if name == "" {
			return fmt.Errorf("%w: %q", ErrMalformedHeaderLine, line)
		}

		req.setHeader(name, strings.TrimSpace(line[colon+1:]))
	}
}

// readLine reads one line without its CRLF or LF terminator. Lines are read
// in buffer sized fragments so a line over the header budget fails with
// tooLarge before it is held in memory. A final line cut short by EOF is
// returned as is.
func (p *parser) readLine(tooLarge error) (string, error) {
	var line []byte

	for {
		frag, err := p.br.ReadSlice('\n')

		p.headerBytes += len(frag)
		if p.maxHeaderBytes > 0 && p.headerBytes > p.maxHeaderBytes {
			return "", fmt.Errorf("%w: over %d bytes", tooLarge, p.maxHeaderBytes)
		}

		line = append(line, frag...)

		if err == nil {
			break
		}

		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}

		if errors.Is(err, io.EOF) && len(line) > 0 {
			break
		}

		return "", err
	}

	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))

	return string(line), nil
}

func (p *parser) readBody(req *Request) error {
	if !req.HasHeader("Content-Length") {
		return nil
	}

	raw := req.Header("Content-Length")
	length, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: invalid Content-Length %q", ErrMalformedHeaderLine, raw)
	}

	if length <= 0 {
		return nil
	}

	if length > p.maxBodySize {
		length = p.maxBodySize
	}

	// the body is what is buffered once the headers end, or what one read of
	// the connection returns when nothing is; Content-Length only bounds it
	body := make([]byte, length)
	n, err := p.br.Read(body)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	if n == 0 {
		return nil
	}

	return parseParams(req, string(body[:n]))
}

// parseParams decodes &-separated key=value pairs into the request
// parameters. A bare key maps to an empty value.
func parseParams(req *Request, raw string) error {
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}

		var key, value string
		switch parts := strings.Split(pair, "="); len(parts) {
		case 1:
			key = parts[0]
		case 2:
			key, value = parts[0], parts[1]
		default:
			return fmt.Errorf("%w: %q", ErrMalformedQueryParameter, pair)
		}

		decodedKey, err := url.QueryUnescape(key)
		if err != nil {
			return fmt.Errorf("%w: %q: %v", ErrMalformedQueryParameter, pair, err)
		}

		decodedValue, err := url.QueryUnescape(value)
		if err != nil {
			return fmt.Errorf("%w: %q: %v", ErrMalformedQueryParameter, pair, err)
		}

		req.setParam(decodedKey, decodedValue)
	}

	return nil
}
