package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	cfg "gitlab.com/deepdhamala/webtainer/internal/config"
	"gitlab.com/deepdhamala/webtainer/internal/feature"
	"gitlab.com/deepdhamala/webtainer/internal/ratelimiter"
	"gitlab.com/deepdhamala/webtainer/internal/registry"
	"gitlab.com/deepdhamala/webtainer/internal/server"
	"gitlab.com/deepdhamala/webtainer/internal/servlets"
)

type theApp struct {
	config   *cfg.Config
	registry *registry.Registry
	server   *server.Server
}

func newApp(config *cfg.Config, factory servlets.Factory) (*theApp, error) {
	reg := registry.New()

	if err := servlets.Load(reg, config.Servlets.Mappings, factory); err != nil {
		// servlets loaded before the failure were already initialized
		if destroyErr := reg.DestroyAll(); destroyErr != nil {
			log.WithError(destroyErr).Warn("Failed to destroy loaded servlets")
		}

		return nil, fmt.Errorf("loading servlets: %w", err)
	}

	log.WithFields(log.Fields{
		"count": reg.Len(),
		"paths": reg.Paths(),
	}).Info("Servlets loaded")

	opts, err := serverOptions(config)
	if err != nil {
		return nil, err
	}

	return &theApp{
		config:   config,
		registry: reg,
		server:   server.New(reg, opts...),
	}, nil
}

func serverOptions(config *cfg.Config) ([]server.Option, error) {
	headers, err := cfg.ParseHeaderString(config.General.CustomHeaders)
	if err != nil {
		return nil, err
	}

	customHeaders := make([]server.Header, 0, len(headers))
	for _, h := range headers {
		customHeaders = append(customHeaders, server.Header{Name: h.Name, Value: h.Value})
	}

	opts := []server.Option{
		server.WithReadTimeout(config.Server.ReadTimeout),
		server.WithWriteTimeout(config.Server.WriteTimeout),
		server.WithMaxBodySize(config.Server.MaxBodySize),
		server.WithMaxURILength(config.Server.MaxURILength),
		server.WithMaxHeaderBytes(config.Server.MaxHeaderBytes),
		server.WithCustomHeaders(customHeaders),
	}

	if config.RateLimit.SourceIPLimitPerSecond > 0 {
		opts = append(opts, server.WithRateLimiter(ratelimiter.New(
			ratelimiter.WithSourceIPLimitPerSecond(config.RateLimit.SourceIPLimitPerSecond),
			ratelimiter.WithSourceIPBurstSize(config.RateLimit.SourceIPBurst),
			ratelimiter.WithEnforce(feature.EnforceIPRateLimits.Enabled()),
		)))
	}

	return opts, nil
}

// Run serves every listener until ctx is done or a listener fails, then
// shuts the server down gracefully
func (a *theApp) Run(ctx context.Context, listeners []listener) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, l := range listeners {
		l := l

		g.Go(func() error {
			defer l.Close()

			log.WithFields(log.Fields{
				"listener": l.Addr().String(),
				"type":     l.kind,
			}).Info("Listening")

			if err := a.server.Serve(l); !errors.Is(err, server.ErrServerClosed) {
				return fmt.Errorf("serving %s listener %s: %w", l.kind, l.Addr(), err)
			}

			return nil
		})
	}

	metricsServer := a.metricsServer()
	if metricsServer != nil {
		g.Go(func() error {
			log.WithFields(log.Fields{
				"listener": metricsServer.Addr,
			}).Info("Serving metrics")

			if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serving metrics: %w", err)
			}

			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()

		return a.shutdown(metricsServer)
	})

	return g.Wait()
}

func (a *theApp) shutdown(metricsServer *http.Server) error {
	log.WithFields(log.Fields{
		"timeout": a.config.Server.ShutdownTimeout.String(),
	}).Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer cancel()

	var result *multierror.Error

	if err := a.server.Shutdown(ctx); err != nil {
		result = multierror.Append(result, err)
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

func (a *theApp) metricsServer() *http.Server {
	if a.config.General.MetricsAddress == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &http.Server{
		Addr:    a.config.General.MetricsAddress,
		Handler: mux,
	}
}

func runApp(ctx context.Context, config *cfg.Config) error {
	a, err := newApp(config, servlets.DefaultFactory())
	if err != nil {
		return err
	}

	listeners, err := createListeners(config)
	if err != nil {
		if destroyErr := a.registry.DestroyAll(); destroyErr != nil {
			log.WithError(destroyErr).Warn("Failed to destroy servlets")
		}

		return err
	}

	return a.Run(ctx, listeners)
}
