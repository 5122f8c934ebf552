package main

import (
	"net"
	"strings"

	proxyproto "github.com/pires/go-proxyproto"
	log "github.com/sirupsen/logrus"

	cfg "gitlab.com/deepdhamala/webtainer/internal/config"
	"gitlab.com/deepdhamala/webtainer/internal/netutil"
	"gitlab.com/deepdhamala/webtainer/metrics"
)

const (
	listenerHTTP  = "http"
	listenerProxy = "proxy"
)

// listener is a net.Listener labeled with the flag it was created from
type listener struct {
	net.Listener
	kind string
}

// createListeners opens every configured listener. All of them share one
// connection limiter.
func createListeners(config *cfg.Config) ([]listener, error) {
	limiter := netutil.NewLimiter(
		config.General.MaxConns,
		metrics.LimitListenerMaxConns,
		metrics.LimitListenerConcurrentConns,
		metrics.LimitListenerWaitingConns,
	)

	var listeners []listener

	for _, group := range []struct {
		kind  string
		addrs []string
	}{
		{listenerHTTP, config.Listeners.HTTP},
		{listenerProxy, config.Listeners.Proxy},
	} {
		for _, addr := range group.addrs {
			l, err := listen(addr, group.kind, limiter)
			if err != nil {
				closeAll(listeners)
				return nil, err
			}

			log.WithFields(log.Fields{
				"listener": addr,
				"type":     group.kind,
			}).Debug("Set up listener")

			listeners = append(listeners, l)
		}
	}

	return listeners, nil
}

func listen(addr, kind string, limiter *netutil.Limiter) (listener, error) {
	l, err := net.Listen(network(addr), addr)
	if err != nil {
		return listener{}, err
	}

	l = netutil.LimitListener(l, limiter)

	if kind == listenerProxy {
		l = &proxyproto.Listener{
			Listener: l,
			Policy: func(upstream net.Addr) (proxyproto.Policy, error) {
				return proxyproto.REQUIRE, nil
			},
		}
	}

	return listener{Listener: l, kind: kind}, nil
}

// network returns "unix" for socket paths and "tcp" for host:port addresses
func network(addr string) string {
	if strings.HasPrefix(addr, "/") || strings.HasPrefix(addr, "./") {
		return "unix"
	}

	return "tcp"
}

func closeAll(listeners []listener) {
	for _, l := range listeners {
		l.Close()
	}
}
