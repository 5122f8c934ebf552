package config

import (
	"time"

	"github.com/namsral/flag"

	"gitlab.com/deepdhamala/webtainer/internal/ratelimiter"
	"gitlab.com/deepdhamala/webtainer/internal/request"
	"gitlab.com/deepdhamala/webtainer/internal/server"
)

const (
	// DefaultMaxConns is the number of connections served at once unless
	// configured otherwise
	DefaultMaxConns = 5000
	// DefaultServletMapping is used when no servlet flag is given
	DefaultServletMapping = "/=welcome"
)

var (
	maxConns = flag.Int("max-conns", DefaultMaxConns, "Limit on the number of concurrent connections to the HTTP and proxy listeners, further clients wait in the accept queue")

	// server timeouts
	serverReadTimeout     = flag.Duration("server-read-timeout", server.DefaultReadTimeout, "The maximum duration for reading the entire request, including the body. Zero means there will be no timeout.")
	serverWriteTimeout    = flag.Duration("server-write-timeout", 0, "The maximum duration before timing out writes of the response. Zero means there will be no timeout.")
	serverShutdownTimeout = flag.Duration("server-shutdown-timeout", 30*time.Second, "Time to wait for in-flight requests before the servlets are destroyed on shutdown")
	maxBodySize           = flag.Int64("max-body-size", request.DefaultMaxBodySize, "The maximum number of POST body bytes read per request")
	maxURILength          = flag.Int("max-uri-length", 1024, "Limit the length of URI, 0 for unlimited.")
	maxHeaderBytes        = flag.Int("max-header-bytes", request.DefaultMaxHeaderBytes, "Limit the size of the request line and headers together, 0 for unlimited.")

	statusPath = flag.String("status-path", "", "The url path for a status page, e.g., /-/healthcheck")

	// source IP rate limits
	rateLimitSourceIP      = flag.Float64("rate-limit-source-ip", 0.0, "Rate limit connections per second from a single IP, 0 means is disabled")
	rateLimitSourceIPBurst = flag.Int("rate-limit-source-ip-burst", ratelimiter.DefaultSourceIPBurstSize, "Rate limit connections from a single IP, maximum burst allowed per second")

	metricsAddress    = flag.String("metrics-address", "", "The address to listen on for metrics requests")
	sentryDSN         = flag.String("sentry-dsn", "", "The address for sending sentry crash reporting to")
	sentryEnvironment = flag.String("sentry-environment", "", "The environment for sentry crash reporting")
	logFormat         = flag.String("log-format", "json", "The log output format: 'text' or 'json'")
	logVerbose        = flag.Bool("log-verbose", false, "Verbose logging")

	showVersion = flag.Bool("version", false, "Show version")

	// See initFlags()
	listenHTTP  = MultiStringFlag{separator: ","}
	listenProxy = MultiStringFlag{separator: ","}
	servlets    = MultiStringFlag{separator: ","}

	header = MultiStringFlag{separator: ";;"}
)

// initFlags will be called from LoadConfig
func initFlags() {
	flag.Var(&listenHTTP, "listen-http", "The address(es) or unix socket paths to listen on for HTTP requests")
	flag.Var(&listenProxy, "listen-proxy", "The address(es) or unix socket paths to listen on for requests behind a PROXY protocol v1/v2 load balancer (https://www.haproxy.org/download/1.8/doc/proxy-protocol.txt)")
	flag.Var(&servlets, "servlet", "The servlet mapping(s) as path=name, e.g. /=welcome (default \""+DefaultServletMapping+"\")")
	flag.Var(&header, "header", "The additional http header(s) that should be send to the client, e.g. 'X-Frame-Options: DENY'")

	// read from -config=/path/to/webtainer-config
	flag.String(flag.DefaultConfigFlagname, "", "path to config file")

	flag.Parse()
}
