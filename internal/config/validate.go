package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	servletspkg "gitlab.com/deepdhamala/webtainer/internal/servlets"
)

var (
	// ErrNoListener is returned when neither listen-http nor listen-proxy is set
	ErrNoListener = errors.New("no listener defined, please specify at least one --listen-* flag")
	// ErrInvalidMaxConns is returned for a non positive max-conns
	ErrInvalidMaxConns = errors.New("max-conns must be greater than 0")
	// ErrInvalidMaxBodySize is returned for a negative max-body-size
	ErrInvalidMaxBodySize = errors.New("max-body-size must not be negative")
	// ErrInvalidMaxURILength is returned for a negative max-uri-length
	ErrInvalidMaxURILength = errors.New("max-uri-length must not be negative")
	// ErrInvalidMaxHeaderBytes is returned for a negative max-header-bytes
	ErrInvalidMaxHeaderBytes = errors.New("max-header-bytes must not be negative")
	// ErrInvalidTimeout is returned for negative server timeouts
	ErrInvalidTimeout = errors.New("server timeouts must not be negative")
	// ErrInvalidRateLimit is returned for negative rate limit settings
	ErrInvalidRateLimit = errors.New("rate-limit-source-ip and rate-limit-source-ip-burst must not be negative")
	// ErrInvalidStatusPath is returned when status-path is not an absolute path
	ErrInvalidStatusPath = errors.New("status-path must start with /")
)

func validateConfig(config *Config) error {
	var result *multierror.Error

	if len(config.Listeners.HTTP) == 0 && len(config.Listeners.Proxy) == 0 {
		result = multierror.Append(result, ErrNoListener)
	}

	if config.General.MaxConns <= 0 {
		result = multierror.Append(result, ErrInvalidMaxConns)
	}

	if config.Server.MaxBodySize < 0 {
		result = multierror.Append(result, ErrInvalidMaxBodySize)
	}

	if config.Server.MaxURILength < 0 {
		result = multierror.Append(result, ErrInvalidMaxURILength)
	}

	if config.Server.MaxHeaderBytes < 0 {
		result = multierror.Append(result, ErrInvalidMaxHeaderBytes)
	}

	if config.Server.ReadTimeout < 0 || config.Server.WriteTimeout < 0 || config.Server.ShutdownTimeout < 0 {
		result = multierror.Append(result, ErrInvalidTimeout)
	}

	if config.RateLimit.SourceIPLimitPerSecond < 0 || config.RateLimit.SourceIPBurst < 0 {
		result = multierror.Append(result, ErrInvalidRateLimit)
	}

	if config.General.StatusPath != "" && !strings.HasPrefix(config.General.StatusPath, "/") {
		result = multierror.Append(result, ErrInvalidStatusPath)
	}

	if _, err := ParseHeaderString(config.General.CustomHeaders); err != nil {
		result = multierror.Append(result, err)
	}

	result = multierror.Append(result, validateServletMappings(config.Servlets.Mappings))

	return result.ErrorOrNil()
}

func validateServletMappings(mappings []string) error {
	var result *multierror.Error
	factory := servletspkg.DefaultFactory()
	seen := make(map[string]bool, len(mappings))

	for _, entry := range mappings {
		m, err := servletspkg.ParseMapping(entry)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}

		if _, ok := factory[m.Name]; !ok {
			result = multierror.Append(result, fmt.Errorf("%w: %q", servletspkg.ErrUnknownServlet, m.Name))
		}

		if seen[m.Path] {
			result = multierror.Append(result, fmt.Errorf("servlet path %q mapped more than once", m.Path))
		}
		seen[m.Path] = true
	}

	return result.ErrorOrNil()
}
