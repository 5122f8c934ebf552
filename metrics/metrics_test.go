package metrics

import (
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsCanBeScraped(t *testing.T) {
	reg := prometheus.NewRegistry()
	MustRegister(reg)

	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	testServer := httptest.NewServer(handler)
	defer testServer.Close()

	// vectors only show up after a label has been set
	RequestsTotal.WithLabelValues("404").Inc()
	RequestDuration.WithLabelValues("404").Observe(0.01)
	ParseErrors.WithLabelValues("request_line").Inc()

	c, err := RequestsTotal.GetMetricWithLabelValues("404")
	require.NoError(t, err)
	require.Equal(t, float64(1), testutil.ToFloat64(c))

	res, err := http.Get(testServer.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	body, _ := ioutil.ReadAll(res.Body)

	require.Contains(t, string(body), `webtainer_requests_total{status_code="404"}`)
	require.Contains(t, string(body), `webtainer_request_duration_seconds_count{status_code="404"}`)
	require.Contains(t, string(body), `webtainer_parse_errors_total{kind="request_line"}`)
	require.Contains(t, string(body), "webtainer_connections_accepted_total")
	require.Contains(t, string(body), "webtainer_limit_listener_max_conns")
}
