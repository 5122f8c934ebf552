package config

import (
	"time"

	"github.com/namsral/flag"
	log "github.com/sirupsen/logrus"
)

// Config stores all the config options relevant to Webtainer.
type Config struct {
	General   General
	Listeners Listeners
	Server    Server
	Servlets  Servlets
	RateLimit RateLimit
	Log       Log
	Sentry    Sentry
}

// General groups settings that are general to Webtainer and can not
// be categorized under other head.
type General struct {
	MaxConns       int
	MetricsAddress string
	StatusPath     string
	ShowVersion    bool

	CustomHeaders []string
}

// Listeners groups the addresses to accept connections on
type Listeners struct {
	HTTP  []string
	Proxy []string
}

// Server groups settings related to serving a single connection
type Server struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodySize     int64
	MaxURILength    int
	MaxHeaderBytes  int
}

// Servlets groups the servlet mappings to load at startup
type Servlets struct {
	// Mappings are path=name entries
	Mappings []string
}

// RateLimit config struct
type RateLimit struct {
	SourceIPLimitPerSecond float64
	SourceIPBurst          int
}

// Log groups settings related to configuring logging
type Log struct {
	Format  string
	Verbose bool
}

// Sentry groups settings related to configuring Sentry
type Sentry struct {
	DSN         string
	Environment string
}

func loadConfig() (*Config, error) {
	config := &Config{
		General: General{
			MaxConns:       *maxConns,
			MetricsAddress: *metricsAddress,
			StatusPath:     *statusPath,
			ShowVersion:    *showVersion,
			CustomHeaders:  header.Split(),
		},
		Listeners: Listeners{
			HTTP:  listenHTTP.Split(),
			Proxy: listenProxy.Split(),
		},
		Server: Server{
			ReadTimeout:     *serverReadTimeout,
			WriteTimeout:    *serverWriteTimeout,
			ShutdownTimeout: *serverShutdownTimeout,
			MaxBodySize:     *maxBodySize,
			MaxURILength:    *maxURILength,
			MaxHeaderBytes:  *maxHeaderBytes,
		},
		Servlets: Servlets{
			Mappings: servlets.SplitOr(DefaultServletMapping),
		},
		RateLimit: RateLimit{
			SourceIPLimitPerSecond: *rateLimitSourceIP,
			SourceIPBurst:          *rateLimitSourceIPBurst,
		},
		Log: Log{
			Format:  *logFormat,
			Verbose: *logVerbose,
		},
		Sentry: Sentry{
			DSN:         *sentryDSN,
			Environment: *sentryEnvironment,
		},
	}

	// the status servlet is mapped like any other servlet
	if config.General.StatusPath != "" {
		config.Servlets.Mappings = append(config.Servlets.Mappings, config.General.StatusPath+"=status")
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// LogConfig logs the effective configuration at debug level
func LogConfig(config *Config) {
	log.WithFields(log.Fields{
		"default-config-filename":    flag.DefaultConfigFlagname,
		"header":                     header.String(),
		"listen-http":                config.Listeners.HTTP,
		"listen-proxy":               config.Listeners.Proxy,
		"log-format":                 config.Log.Format,
		"log-verbose":                config.Log.Verbose,
		"max-body-size":              config.Server.MaxBodySize,
		"max-conns":                  config.General.MaxConns,
		"max-header-bytes":           config.Server.MaxHeaderBytes,
		"max-uri-length":             config.Server.MaxURILength,
		"metrics-address":            config.General.MetricsAddress,
		"rate-limit-source-ip":       config.RateLimit.SourceIPLimitPerSecond,
		"rate-limit-source-ip-burst": config.RateLimit.SourceIPBurst,
		"sentry-environment":         config.Sentry.Environment,
		"server-read-timeout":        config.Server.ReadTimeout,
		"server-shutdown-timeout":    config.Server.ShutdownTimeout,
		"server-write-timeout":       config.Server.WriteTimeout,
		"servlet":                    config.Servlets.Mappings,
		"status-path":                config.General.StatusPath,
	}).Debug("Start daemon with configuration")
}

// LoadConfig parses configuration settings passed as command line arguments or
// via config file, and populates a Config object with those values
func LoadConfig() (*Config, error) {
	initFlags()

	return loadConfig()
}
