package testhelpers

import (
	"bufio"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// AssertLogContains checks that wantLogEntry is contained in at least one of the log entries
func AssertLogContains(t *testing.T, wantLogEntry string, entries []*logrus.Entry) {
	t.Helper()

	if wantLogEntry != "" {
		messages := make([]string, len(entries))
		for k, entry := range entries {
			messages[k] = entry.Message
		}

		require.Contains(t, messages, wantLogEntry)
	}
}

// RoundTrip writes raw to a new in-memory connection served by serve and
// returns everything written back until the server side is closed
func RoundTrip(t *testing.T, serve func(net.Conn), raw string) string {
	t.Helper()

	client, server := net.Pipe()
	done := make(chan struct{})

	go func() {
		defer close(done)
		serve(server)
	}()

	require.NoError(t, client.SetDeadline(time.Now().Add(5*time.Second)))

	go func() {
		// the server may stop reading early, e.g. on a malformed request line
		io.WriteString(client, raw)
	}()

	out, err := io.ReadAll(client)
	require.NoError(t, err)
	client.Close()

	<-done

	return string(out)
}

// StatusLine returns the first line of a raw response without its line
// terminator
func StatusLine(t *testing.T, raw string) string {
	t.Helper()

	line, err := bufio.NewReader(strings.NewReader(raw)).ReadString('\n')
	require.NoError(t, err, "response has no status line: %q", raw)

	return strings.TrimRight(line, "\r\n")
}
