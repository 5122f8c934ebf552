package errortracking

import (
	"context"
	"fmt"

	"gitlab.com/gitlab-org/labkit/correlation"
	"gitlab.com/gitlab-org/labkit/errortracking"
)

// Initialize sets up Sentry crash reporting for the given release
func Initialize(dsn, environment, release string) error {
	return errortracking.Initialize(
		errortracking.WithSentryDSN(dsn),
		errortracking.WithVersion(release),
		errortracking.WithLoggerName("webtainer"),
		errortracking.WithSentryEnvironment(environment))
}

// CaptureOption alias to avoid importing labkit/errortracking in internal packages
type CaptureOption = errortracking.CaptureOption

// WithField alias to avoid importing labkit/errortracking in internal packages
func WithField(key, value string) CaptureOption {
	return errortracking.WithField(key, value)
}

// CaptureErrWithCorrelationAndStackTrace calls labkit's errortracking function and attaches the correlation ID, stack trace and any additional fields
func CaptureErrWithCorrelationAndStackTrace(err error, correlationID string, fields ...CaptureOption) {
	ctx := correlation.ContextWithCorrelation(context.Background(), correlationID)

	opts := append(
		fields,
		errortracking.WithContext(ctx),
		errortracking.WithStackTrace(),
	)

	errortracking.Capture(err, opts...)
}

// CaptureErrWithStackTrace calls labkit's errortracking function and attaches the stack trace and any additional fields
func CaptureErrWithStackTrace(err error, fields ...CaptureOption) {
	opts := append(
		fields,
		errortracking.WithStackTrace(),
	)

	errortracking.Capture(err, opts...)
}

// CapturePanic reports a recovered panic value
func CapturePanic(recovered interface{}, correlationID string, fields ...CaptureOption) error {
	err, ok := recovered.(error)
	if !ok {
		err = fmt.Errorf("panic: %v", recovered)
	}

	CaptureErrWithCorrelationAndStackTrace(err, correlationID, fields...)

	return err
}
