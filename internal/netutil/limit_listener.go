package netutil

import (
	"net"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Limiter is a pool of connection slots that can be shared by several
// listeners. Use NewLimiter to create an instance.
type Limiter struct {
	slots      chan struct{}
	concurrent prometheus.Gauge
	waiting    prometheus.Gauge
}

// NewLimiter creates a Limiter allowing n connections to be served at once.
// The gauges report the configured maximum, the connections being served and
// the accept calls waiting for a free slot.
func NewLimiter(n int, max, concurrent, waiting prometheus.Gauge) *Limiter {
	max.Set(float64(n))

	return &Limiter{
		slots:      make(chan struct{}, n),
		concurrent: concurrent,
		waiting:    waiting,
	}
}

// Cap returns the number of slots
func (l *Limiter) Cap() int {
	return cap(l.slots)
}

// InUse returns the number of slots held by open connections
func (l *Limiter) InUse() int {
	return len(l.slots)
}

// LimitListener returns a Listener that only accepts a connection once the
// limiter has a free slot. The slot is released when the connection is
// closed. While all slots are taken new clients wait in the kernel accept
// queue.
func LimitListener(listener net.Listener, limiter *Limiter) net.Listener {
	return &limitListener{
		Listener: listener,
		limiter:  limiter,
		done:     make(chan struct{}),
	}
}

type limitListener struct {
	net.Listener
	limiter   *Limiter
	closeOnce sync.Once
	done      chan struct{} // closed by Close
}

// acquire blocks until a slot is free. It returns false when the listener
// was closed while waiting.
func (l *limitListener) acquire() bool {
	l.limiter.waiting.Inc()
	defer l.limiter.waiting.Dec()

	select {
	case <-l.done:
		return false
	case l.limiter.slots <- struct{}{}:
		l.limiter.concurrent.Inc()
		return true
	}
}

func (l *limitListener) release() {
	<-l.limiter.slots
	l.limiter.concurrent.Dec()
}

func (l *limitListener) Accept() (net.Conn, error) {
	acquired := l.acquire()

	// a closed listener returns an error right away
	c, err := l.Listener.Accept()
	if err != nil {
		if acquired {
			l.release()
		}
		return nil, err
	}

	if !acquired {
		c.Close()
		return nil, net.ErrClosed
	}

	return &limitListenerConn{Conn: c, release: l.release}, nil
}

func (l *limitListener) Close() error {
	err := l.Listener.Close()
	l.closeOnce.Do(func() { close(l.done) })
	return err
}

type limitListenerConn struct {
	net.Conn
	releaseOnce sync.Once
	release     func()
}

func (c *limitListenerConn) Close() error {
	err := c.Conn.Close()
	c.releaseOnce.Do(c.release)
	return err
}
