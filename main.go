package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	cfg "gitlab.com/deepdhamala/webtainer/internal/config"
	"gitlab.com/deepdhamala/webtainer/internal/errortracking"
	"gitlab.com/deepdhamala/webtainer/internal/logging"
	"gitlab.com/deepdhamala/webtainer/internal/validateargs"
	"gitlab.com/deepdhamala/webtainer/metrics"
)

// VERSION stores the information about the semantic version of application
var VERSION = "dev"

// REVISION stores the information about the git revision of application
var REVISION = "HEAD"

func initErrorReporting(sentryDSN, sentryEnvironment string) error {
	return errortracking.Initialize(sentryDSN, sentryEnvironment, fmt.Sprintf("%s-%s", VERSION, REVISION))
}

func appMain() {
	config, err := cfg.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("Failed to load config")
	}

	printVersion(config.General.ShowVersion, VERSION)

	if err := logging.ConfigureLogging(config.Log.Format, config.Log.Verbose); err != nil {
		log.WithError(err).Fatal("Failed to initialize logging")
	}

	if config.Sentry.DSN != "" {
		if err := initErrorReporting(config.Sentry.DSN, config.Sentry.Environment); err != nil {
			log.WithError(err).Warn("Failed to initialize error reporting")
		}
	}

	log.WithFields(log.Fields{
		"version":  VERSION,
		"revision": REVISION,
	}).Print("Webtainer")

	if err := validateargs.Secrets(os.Args); err != nil {
		log.WithError(err).Warn("Using secrets on the command line")
	}

	cfg.LogConfig(config)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runApp(ctx, config); err != nil {
		fatal(err, "could not run webtainer")
	}

	log.Info("Webtainer stopped")
}

func printVersion(showVersion bool, version string) {
	if showVersion {
		fmt.Fprintf(os.Stdout, "%s\n", version)
		os.Exit(0)
	}
}

func fatal(err error, message string) {
	errortracking.CaptureErrWithStackTrace(err)
	log.WithError(err).Fatal(message)
}

func main() {
	log.SetOutput(os.Stderr)

	appMain()
}
