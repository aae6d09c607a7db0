package transport

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecretNeverPrints(t *testing.T) {
	s := Secret("hunter2")

	for _, out := range []string{
		s.String(),
		fmt.Sprintf("%v", s),
		fmt.Sprintf("%s", s),
		fmt.Sprintf("%#v", s),
		fmt.Sprintf("%+v", Credentials{Username: "alice", Password: s}),
	} {
		assert.NotContains(t, out, "hunter2")
	}

	var buf bytes.Buffer
	slog.New(slog.NewJSONHandler(&buf, nil)).Info("creds", "password", s)
	assert.NotContains(t, buf.String(), "hunter2")
	assert.Contains(t, buf.String(), redacted)

	text, err := s.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, redacted, string(text))

	assert.Equal(t, "hunter2", s.Reveal())
	assert.Equal(t, "", Secret("").String())
}

func TestProxyAuthenticator(t *testing.T) {
	creds := Credentials{Username: "alice", Password: "pw"}
	auth := NewProxyAuthenticator("Proxy.Example.com", 3128, creds)

	tests := []struct {
		name string
		req  Requestor
		want bool
	}{
		{"matching proxy", Requestor{Kind: RequestorProxy, Host: "proxy.example.com", Port: 3128}, true},
		{"other port", Requestor{Kind: RequestorProxy, Host: "proxy.example.com", Port: 8080}, false},
		{"other host", Requestor{Kind: RequestorProxy, Host: "evil.example.com", Port: 3128}, false},
		{"origin server", Requestor{Host: "proxy.example.com", Port: 3128}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := auth.Lookup(tt.req)
			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.Equal(t, creds, got)
			} else {
				assert.Equal(t, Credentials{}, got)
			}
		})
	}
}

func TestScopedCredentials(t *testing.T) {
	store := NewScopedCredentials()
	store.Set("Proxy.Example.com", 3128, Credentials{Username: "bob", Password: "pw"})

	got, ok := store.Lookup(Requestor{Kind: RequestorProxy, Host: "proxy.example.com", Port: 3128})
	assert.True(t, ok)
	assert.Equal(t, "bob", got.Username)

	_, ok = store.Lookup(Requestor{Kind: RequestorProxy, Host: "proxy.example.com", Port: 3129})
	assert.False(t, ok)

	_, ok = store.Lookup(Requestor{Host: "proxy.example.com", Port: 3128})
	assert.False(t, ok)
}
