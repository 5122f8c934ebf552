package server

import "time"

// Option configures a Server
type Option func(*Server)

// WithReadTimeout sets the deadline for reading the request. Zero disables
// it.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.readTimeout = d
	}
}

// WithWriteTimeout sets the deadline for writing the response. Zero disables
// it.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.writeTimeout = d
	}
}

// WithMaxBodySize limits the POST body bytes read per request
func WithMaxBodySize(size int64) Option {
	return func(s *Server) {
		s.maxBodySize = size
	}
}

// WithCustomHeaders presets headers on every servlet response
func WithCustomHeaders(headers []Header) Option {
	return func(s *Server) {
		s.customHeaders = headers
	}
}

// WithRateLimiter rejects connections rl does not allow with 429
func WithRateLimiter(rl RateLimiter) Option {
	return func(s *Server) {
		s.rateLimiter = rl
	}
}

// WithMaxURILength answers requests whose target is longer than length
// bytes with 414. Zero means no limit.
func WithMaxURILength(length int) Option {
	return func(s *Server) {
		s.maxURILength = length
	}
}

// WithMaxHeaderBytes answers requests whose request line and headers take
// more than size bytes with 414 or 431. Zero means no limit.
func WithMaxHeaderBytes(size int) Option {
	return func(s *Server) {
		s.maxHeaderBytes = size
	}
}
