package transport

import (
	"log/slog"
	"strconv"
	"strings"
	"sync"
)

const redacted = "<redacted>"

// Secret holds a credential that must never appear in logs or error messages.
type Secret string

// String implements fmt.Stringer.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

// GoString implements fmt.GoStringer so %#v stays redacted too.
func (s Secret) GoString() string {
	return "transport.Secret(" + strconv.Quote(s.String()) + ")"
}

// LogValue implements slog.LogValuer.
func (s Secret) LogValue() slog.Value {
	return slog.StringValue(s.String())
}

// MarshalText keeps secrets out of serialized configuration dumps.
func (s Secret) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Reveal returns the plain value. Only the proxy function calls it.
func (s Secret) Reveal() string {
	return string(s)
}

// Credentials are a proxy username/password pair.
type Credentials struct {
	Username string
	Password Secret
}

// RequestorKind distinguishes proxy authentication challenges from origin server ones.
type RequestorKind int

// RequestorProxy marks a proxy challenge. The zero kind stands for an origin server and is
// never answered by the lookups in this package.
const RequestorProxy RequestorKind = 1

// Requestor describes who is asking for credentials.
type Requestor struct {
	Kind RequestorKind
	Host string
	Port int
}

// CredentialLookup answers credential requests during connection setup.
type CredentialLookup interface {
	Lookup(req Requestor) (Credentials, bool)
}

// AuthScope is the host:port a set of credentials is valid for.
type AuthScope struct {
	Host string
	Port int
}

func scopeOf(host string, port int) AuthScope {
	return AuthScope{Host: strings.ToLower(host), Port: port}
}

// ScopedCredentials is a credential store keyed by scope, used by the pooled transport.
type ScopedCredentials struct {
	mu    sync.RWMutex
	creds map[AuthScope]Credentials
}

// NewScopedCredentials creates an empty store.
func NewScopedCredentials() *ScopedCredentials {
	return &ScopedCredentials{creds: make(map[AuthScope]Credentials)}
}

// Set stores credentials for host:port.
func (s *ScopedCredentials) Set(host string, port int, c Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[scopeOf(host, port)] = c
}

// Lookup implements CredentialLookup. Only proxy requestors are answered.
func (s *ScopedCredentials) Lookup(req Requestor) (Credentials, bool) {
	if req.Kind != RequestorProxy {
		return Credentials{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.creds[scopeOf(req.Host, req.Port)]
	return c, ok
}

// ProxyAuthenticator answers a single proxy's challenges, used by the simple transport.
type ProxyAuthenticator struct {
	host  string
	port  int
	creds Credentials
}

// NewProxyAuthenticator binds credentials to one proxy host and port.
func NewProxyAuthenticator(host string, port int, creds Credentials) *ProxyAuthenticator {
	return &ProxyAuthenticator{host: host, port: port, creds: creds}
}

// Lookup implements CredentialLookup.
func (a *ProxyAuthenticator) Lookup(req Requestor) (Credentials, bool) {
	if req.Kind == RequestorProxy && strings.EqualFold(req.Host, a.host) && req.Port == a.port {
		return a.creds, true
	}
	return Credentials{}, false
}
