package logging

import (
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"gitlab.com/gitlab-org/labkit/log"
)

// ConfigureLogging will initialize the system logger.
func ConfigureLogging(format string, verbose bool) error {
	var levelOption log.LoggerOption

	if format == "" {
		format = "json"
	}

	if verbose {
		levelOption = log.WithLogLevel("trace")
	} else {
		levelOption = log.WithLogLevel("info")
	}

	_, err := log.Initialize(
		log.WithFormatter(format),
		levelOption,
	)
	return err
}

// LogConn will inject the connection addresses and correlation ID to the
// logged messages
func LogConn(conn net.Conn, correlationID string) *logrus.Entry {
	return log.WithFields(connFields(conn, correlationID))
}

func connFields(conn net.Conn, correlationID string) log.Fields {
	fields := log.Fields{
		"correlation_id": correlationID,
	}

	if addr := conn.RemoteAddr(); addr != nil {
		fields["remote_addr"] = addr.String()
	}

	if addr := conn.LocalAddr(); addr != nil {
		fields["local_addr"] = addr.String()
	}

	return fields
}

// AccessEntry describes one served request
type AccessEntry struct {
	Method   string
	Path     string
	Status   int
	Duration time.Duration
}

// LogAccess writes the access log line of a served request
func LogAccess(entry *logrus.Entry, access AccessEntry) {
	entry.WithFields(log.Fields{
		"method":      access.Method,
		"uri":         access.Path,
		"status":      access.Status,
		"duration_ms": float64(access.Duration) / float64(time.Millisecond),
	}).Info("access")
}
