package transport

import (
	"context"
	"net"
	"time"

	"github.com/objectfs/readpath/pkg/errors"
)

// SocketFactory produces the raw connections a transport runs on.
type SocketFactory interface {
	DialContext(ctx context.Context, network, addr string) (net.Conn, error)
}

// TLSSocketFactory additionally produces layered TLS connections.
type TLSSocketFactory interface {
	SocketFactory
	DialTLSContext(ctx context.Context, network, addr string) (net.Conn, error)
}

// keepAliveConn is satisfied by *net.TCPConn.
type keepAliveConn interface {
	SetKeepAlive(keepalive bool) error
	SetKeepAlivePeriod(d time.Duration) error
}

// NetSocketFactory dials plain TCP sockets.
type NetSocketFactory struct {
	Dialer *net.Dialer
}

// DialContext implements SocketFactory.
func (f *NetSocketFactory) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	d := f.Dialer
	if d == nil {
		d = &net.Dialer{}
	}
	return d.DialContext(ctx, network, addr)
}

// KeepAliveSocketFactory decorates another factory so that every socket it returns, plain or
// layered, has TCP keep-alive enabled.
type KeepAliveSocketFactory struct {
	base   SocketFactory
	period time.Duration
}

// keepAliveTLSSocketFactory is returned when the base factory also dials TLS.
type keepAliveTLSSocketFactory struct {
	*KeepAliveSocketFactory
	tlsBase TLSSocketFactory
}

// WithKeepAlive wraps base. A non-positive period keeps the operating system default interval.
// The result implements TLSSocketFactory exactly when base does.
func WithKeepAlive(base SocketFactory, period time.Duration) SocketFactory {
	f := &KeepAliveSocketFactory{base: base, period: period}
	if tlsBase, ok := base.(TLSSocketFactory); ok {
		return &keepAliveTLSSocketFactory{KeepAliveSocketFactory: f, tlsBase: tlsBase}
	}
	return f
}

// Base returns the wrapped factory.
func (f *KeepAliveSocketFactory) Base() SocketFactory {
	return f.base
}

// DialContext implements SocketFactory.
func (f *KeepAliveSocketFactory) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	conn, err := f.base.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	return f.enable(conn, addr)
}

// DialTLSContext implements TLSSocketFactory.
func (f *keepAliveTLSSocketFactory) DialTLSContext(ctx context.Context, network, addr string) (net.Conn, error) {
	conn, err := f.tlsBase.DialTLSContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	return f.enable(conn, addr)
}

func (f *KeepAliveSocketFactory) enable(conn net.Conn, addr string) (net.Conn, error) {
	if err := EnableKeepAlive(conn, f.period); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(errors.ErrCodeIO, err, "failed to enable keep-alive").
			WithComponent("transport").
			WithOperation("dial").
			WithContext("address", addr)
	}
	return conn, nil
}

// EnableKeepAlive turns on TCP keep-alive for conn, looking through TLS layers via NetConn.
// Connections with no TCP socket underneath, such as in-memory pipes, are left untouched.
func EnableKeepAlive(conn net.Conn, period time.Duration) error {
	for conn != nil {
		if ka, ok := conn.(keepAliveConn); ok {
			if err := ka.SetKeepAlive(true); err != nil {
				return err
			}
			if period > 0 {
				return ka.SetKeepAlivePeriod(period)
			}
			return nil
		}
		layered, ok := conn.(interface{ NetConn() net.Conn })
		if !ok {
			return nil
		}
		conn = layered.NetConn()
	}
	return nil
}
