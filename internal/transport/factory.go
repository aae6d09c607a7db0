// Package transport builds the HTTP transports every request to the object store runs on:
// proxy traversal with optional credentials, TLS verification against the platform trust
// store, and TCP keep-alive on every socket.
package transport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/http2"

	"github.com/objectfs/readpath/pkg/errors"
)

// Kind selects the HTTP transport implementation.
type Kind string

const (
	// KindPooled is a tuned connection pool with HTTP/2 negotiation.
	KindPooled Kind = "pooled"
	// KindSimple speaks HTTP/1.1 only with default pool sizes.
	KindSimple Kind = "simple"

	DefaultKind = KindSimple
)

// ParseKind parses a kind name. Empty selects DefaultKind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultKind, nil
	case KindPooled:
		return KindPooled, nil
	case KindSimple:
		return KindSimple, nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidArgument, "unknown transport kind %q", s).
			WithComponent("transport")
	}
}

// Options configure New. Zero values select defaults.
type Options struct {
	Kind Kind

	ProxyAddress  string
	ProxyUsername string
	ProxyPassword Secret

	// CredentialLookup supplies proxy credentials when ProxyUsername is empty. A lookup
	// shared between transports is asked for this transport's proxy host and port only.
	CredentialLookup CredentialLookup

	ConnectTimeout        time.Duration
	KeepAlivePeriod       time.Duration
	IdleConnTimeout       time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	MaxIdleConns          int
	MaxIdleConnsPerHost   int

	// CACertFile is an extra PEM bundle appended to the platform trust store.
	CACertFile string

	SocketFactory SocketFactory
	TrustStore    TrustStoreLoader
	Logger        *slog.Logger
}

const (
	defaultConnectTimeout      = 30 * time.Second
	defaultKeepAlivePeriod     = 30 * time.Second
	defaultIdleConnTimeout     = 90 * time.Second
	defaultTLSHandshakeTimeout = 10 * time.Second
	defaultMaxIdleConns        = 100
	pooledMaxIdleConnsPerHost  = 32
)

// Transport is an immutable, goroutine-safe http.RoundTripper.
type Transport struct {
	kind        Kind
	proxy       *ProxyAddress
	factory     SocketFactory
	credentials CredentialLookup
	http        *http.Transport
	logger      *slog.Logger
}

// New validates opts and builds a Transport. All argument checks happen before any trust
// store or socket work.
func New(opts Options) (*Transport, error) {
	if err := validateCredentials(opts); err != nil {
		return nil, err
	}

	proxy, err := ParseProxyAddress(opts.ProxyAddress)
	if err != nil {
		return nil, err
	}

	kind := opts.Kind
	if kind == "" {
		kind = DefaultKind
	}
	if kind != KindPooled && kind != KindSimple {
		return nil, errors.Newf(errors.ErrCodeInvalidArgument, "unknown transport kind %q", kind).
			WithComponent("transport")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "transport", "kind", string(kind))

	roots, err := loadTrustStore(opts.TrustStore, opts.CACertFile)
	if err != nil {
		return nil, err
	}

	base := opts.SocketFactory
	if base == nil {
		base = &NetSocketFactory{Dialer: &net.Dialer{
			Timeout:   durationOr(opts.ConnectTimeout, defaultConnectTimeout),
			KeepAlive: durationOr(opts.KeepAlivePeriod, defaultKeepAlivePeriod),
		}}
	}
	factory := WithKeepAlive(base, durationOr(opts.KeepAlivePeriod, defaultKeepAlivePeriod))

	t := &Transport{
		kind:    kind,
		proxy:   proxy,
		factory: factory,
		logger:  logger,
	}

	switch {
	case proxy != nil && opts.CredentialLookup != nil:
		t.credentials = opts.CredentialLookup
	case proxy != nil && opts.ProxyUsername != "":
		creds := Credentials{Username: opts.ProxyUsername, Password: opts.ProxyPassword}
		switch kind {
		case KindPooled:
			store := NewScopedCredentials()
			store.Set(proxy.Host, proxy.Port, creds)
			t.credentials = store
		case KindSimple:
			t.credentials = NewProxyAuthenticator(proxy.Host, proxy.Port, creds)
		}
	}

	switch kind {
	case KindPooled:
		t.http, err = t.buildPooled(opts, roots)
	case KindSimple:
		t.http = t.buildSimple(opts, roots)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeTransportInit, err, "failed to build transport").
			WithComponent("transport")
	}

	logger.Info("Transport created",
		"proxy", proxyString(proxy),
		"proxy_username", opts.ProxyUsername,
		"proxy_password", opts.ProxyPassword,
		"extra_ca", opts.CACertFile != "")

	return t, nil
}

func validateCredentials(opts Options) error {
	hasUser := opts.ProxyUsername != ""
	hasPassword := opts.ProxyPassword != ""

	if opts.ProxyAddress == "" && (hasUser || hasPassword) {
		return errors.NewError(errors.ErrCodeInvalidArgument,
			"proxy credentials must not be set when no proxy address is configured").
			WithComponent("transport")
	}
	if opts.ProxyAddress == "" && opts.CredentialLookup != nil {
		return errors.NewError(errors.ErrCodeInvalidArgument,
			"a credential lookup must not be set when no proxy address is configured").
			WithComponent("transport")
	}
	if hasUser && opts.CredentialLookup != nil {
		return errors.NewError(errors.ErrCodeInvalidArgument,
			"proxy username and credential lookup are mutually exclusive").
			WithComponent("transport")
	}
	if hasUser != hasPassword {
		return errors.NewError(errors.ErrCodeInvalidArgument,
			"proxy username and password must be set together").
			WithComponent("transport")
	}
	return nil
}

func (t *Transport) buildPooled(opts Options, roots *x509.CertPool) (*http.Transport, error) {
	ht := &http.Transport{
		Proxy:                 t.proxyFunc(),
		DialContext:           t.factory.DialContext,
		MaxIdleConns:          intOr(opts.MaxIdleConns, defaultMaxIdleConns),
		MaxIdleConnsPerHost:   intOr(opts.MaxIdleConnsPerHost, pooledMaxIdleConnsPerHost),
		IdleConnTimeout:       durationOr(opts.IdleConnTimeout, defaultIdleConnTimeout),
		TLSHandshakeTimeout:   durationOr(opts.TLSHandshakeTimeout, defaultTLSHandshakeTimeout),
		ResponseHeaderTimeout: opts.ResponseHeaderTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			RootCAs:    roots,
			MinVersion: tls.VersionTLS12,
		},
	}
	if tf, ok := t.factory.(TLSSocketFactory); ok {
		ht.DialTLSContext = tf.DialTLSContext
	}
	if err := http2.ConfigureTransport(ht); err != nil {
		return nil, fmt.Errorf("failed to enable HTTP/2: %w", err)
	}
	return ht, nil
}

func (t *Transport) buildSimple(opts Options, roots *x509.CertPool) *http.Transport {
	ht := &http.Transport{
		Proxy:                 t.proxyFunc(),
		DialContext:           t.factory.DialContext,
		MaxIdleConns:          intOr(opts.MaxIdleConns, defaultMaxIdleConns),
		MaxIdleConnsPerHost:   opts.MaxIdleConnsPerHost,
		IdleConnTimeout:       durationOr(opts.IdleConnTimeout, defaultIdleConnTimeout),
		TLSHandshakeTimeout:   durationOr(opts.TLSHandshakeTimeout, defaultTLSHandshakeTimeout),
		ResponseHeaderTimeout: opts.ResponseHeaderTimeout,
		TLSClientConfig: &tls.Config{
			RootCAs:    roots,
			MinVersion: tls.VersionTLS12,
		},
		// A non-nil empty map disables HTTP/2.
		TLSNextProto: map[string]func(string, *tls.Conn) http.RoundTripper{},
	}
	if tf, ok := t.factory.(TLSSocketFactory); ok {
		ht.DialTLSContext = tf.DialTLSContext
	}
	return ht
}

// proxyFunc consults the credential lookup on every connection attempt. net/http only
// authenticates to the proxy, so the requestor is always this transport's proxy. The host and
// port scoping matters for a caller-supplied lookup holding credentials for several proxies;
// the built-in lookups are bound to this proxy and always match.
func (t *Transport) proxyFunc() func(*http.Request) (*url.URL, error) {
	if t.proxy == nil {
		return nil
	}
	proxy := t.proxy
	lookup := t.credentials
	return func(*http.Request) (*url.URL, error) {
		u := proxy.URL()
		if lookup == nil {
			return u, nil
		}
		if creds, ok := lookup.Lookup(Requestor{Kind: RequestorProxy, Host: proxy.Host, Port: proxy.Port}); ok {
			u.User = url.UserPassword(creds.Username, creds.Password.Reveal())
		}
		return u, nil
	}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.http.RoundTrip(req)
}

// Client returns an http.Client using this transport.
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t}
}

// Kind returns the selected implementation.
func (t *Transport) Kind() Kind {
	return t.kind
}

// Proxy returns the configured proxy, or nil.
func (t *Transport) Proxy() *ProxyAddress {
	return t.proxy
}

// SocketFactory returns the keep-alive factory every connection is dialed through.
func (t *Transport) SocketFactory() SocketFactory {
	return t.factory
}

// Credentials returns the proxy credential lookup, or nil when none is configured.
func (t *Transport) Credentials() CredentialLookup {
	return t.credentials
}

// CloseIdleConnections closes idle pooled connections.
func (t *Transport) CloseIdleConnections() {
	t.http.CloseIdleConnections()
	t.logger.Debug("Closed idle connections")
}

func proxyString(p *ProxyAddress) string {
	if p == nil {
		return "none"
	}
	return p.String()
}

func durationOr(v, def time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return def
}

func intOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
