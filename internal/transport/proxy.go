package transport

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/objectfs/readpath/pkg/errors"
)

// ProxyAddress is a validated proxy endpoint. The port is always explicit.
type ProxyAddress struct {
	Scheme string // "", "http" or "https"
	Host   string
	Port   int
}

// ParseProxyAddress validates a proxy address of the form [scheme://]host:port.
// An empty address means no proxy and yields (nil, nil).
func ParseProxyAddress(address string) (*ProxyAddress, error) {
	if address == "" {
		return nil, nil
	}

	normalized := address
	if !strings.Contains(normalized, "//") {
		normalized = "//" + normalized
	}

	u, err := url.Parse(normalized)
	if err != nil {
		return nil, invalidProxy(address, err.Error())
	}

	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return nil, invalidProxy(address, fmt.Sprintf("scheme %q is not http or https", u.Scheme))
	}

	host := u.Hostname()
	if host == "" {
		return nil, invalidProxy(address, "host must not be empty")
	}

	portStr := u.Port()
	if portStr == "" {
		return nil, invalidProxy(address, "port must be specified")
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return nil, invalidProxy(address, fmt.Sprintf("port %q is out of range", portStr))
	}

	proxy := &ProxyAddress{Scheme: u.Scheme, Host: host, Port: port}

	// Anything beyond scheme, host and port (user info, path, query, fragment) fails here.
	if canonical := proxy.canonical(); canonical != normalized {
		return nil, invalidProxy(address, fmt.Sprintf("must be [scheme://]host:port, got extra components (canonical form %q)", strings.TrimPrefix(canonical, "//")))
	}

	return proxy, nil
}

func invalidProxy(address, reason string) error {
	return errors.Newf(errors.ErrCodeInvalidProxyAddress, "invalid proxy address %q: %s", address, reason).
		WithComponent("transport").
		WithContext("proxy_address", address)
}

// HostPort returns host:port, bracketing IPv6 literals.
func (p *ProxyAddress) HostPort() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// EffectiveScheme returns the scheme used to reach the proxy, http when none was given.
func (p *ProxyAddress) EffectiveScheme() string {
	if p.Scheme == "" {
		return "http"
	}
	return p.Scheme
}

// String returns the address in the form it was accepted.
func (p *ProxyAddress) String() string {
	if p.Scheme == "" {
		return p.HostPort()
	}
	return p.Scheme + "://" + p.HostPort()
}

// URL returns the proxy URL handed to net/http, without credentials.
func (p *ProxyAddress) URL() *url.URL {
	return &url.URL{Scheme: p.EffectiveScheme(), Host: p.HostPort()}
}

func (p *ProxyAddress) canonical() string {
	u := url.URL{Scheme: p.Scheme, Host: p.HostPort()}
	s := u.String()
	if p.Scheme == "" && !strings.HasPrefix(s, "//") {
		s = "//" + s
	}
	return s
}
