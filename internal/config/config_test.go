package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setFlags(t *testing.T) {
	t.Helper()

	oldHTTP, oldServlets, oldHeader := listenHTTP, servlets, header
	oldStatusPath, oldMaxConns, oldReadTimeout := *statusPath, *maxConns, *serverReadTimeout

	t.Cleanup(func() {
		listenHTTP, servlets, header = oldHTTP, oldServlets, oldHeader
		*statusPath, *maxConns, *serverReadTimeout = oldStatusPath, oldMaxConns, oldReadTimeout
	})

	listenHTTP = MultiStringFlag{separator: ","}
	servlets = MultiStringFlag{separator: ","}
	header = MultiStringFlag{separator: ";;"}
}

func TestLoadConfigDefaults(t *testing.T) {
	setFlags(t)
	require.NoError(t, listenHTTP.Set("127.0.0.1:8080,127.0.0.1:8081"))

	cfg, err := loadConfig()
	require.NoError(t, err)

	require.Equal(t, []string{"127.0.0.1:8080", "127.0.0.1:8081"}, cfg.Listeners.HTTP)
	require.Empty(t, cfg.Listeners.Proxy)
	require.Equal(t, []string{DefaultServletMapping}, cfg.Servlets.Mappings)
	require.Equal(t, DefaultMaxConns, cfg.General.MaxConns)
	require.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	require.Zero(t, cfg.Server.WriteTimeout)
	require.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	require.Equal(t, int64(1<<20), cfg.Server.MaxBodySize)
	require.Equal(t, 1024, cfg.Server.MaxURILength)
	require.Equal(t, 1<<20, cfg.Server.MaxHeaderBytes)
	require.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfigServletsAndStatusPath(t *testing.T) {
	setFlags(t)
	require.NoError(t, listenHTTP.Set("127.0.0.1:8080"))
	require.NoError(t, servlets.Set("/home=welcome"))
	require.NoError(t, header.Set("X-Frame-Options: DENY;;Tk: N"))
	*statusPath = "/-/healthcheck"

	cfg, err := loadConfig()
	require.NoError(t, err)

	require.Equal(t, []string{"/home=welcome", "/-/healthcheck=status"}, cfg.Servlets.Mappings)
	require.Equal(t, []string{"X-Frame-Options: DENY", "Tk: N"}, cfg.General.CustomHeaders)
}

func TestLoadConfigInvalid(t *testing.T) {
	setFlags(t)
	*maxConns = 0

	_, err := loadConfig()
	require.ErrorIs(t, err, ErrNoListener)
	require.ErrorIs(t, err, ErrInvalidMaxConns)
}

func TestLoadConfigStatusPathClash(t *testing.T) {
	setFlags(t)
	require.NoError(t, listenHTTP.Set("127.0.0.1:8080"))
	*statusPath = "/"

	_, err := loadConfig()
	require.Error(t, err)
	require.Contains(t, err.Error(), `servlet path "/" mapped more than once`)
}
