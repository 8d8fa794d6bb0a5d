package transport

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest(t *testing.T, raw string) *http.Request {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return &http.Request{URL: u, Header: make(http.Header)}
}

func TestAuthenticators(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		req := newRequest(t, "https://example.com")
		(&NoAuth{}).Apply(req, "secret")
		assert.Empty(t, req.Header)
	})

	t.Run("bearer", func(t *testing.T) {
		req := newRequest(t, "https://example.com")
		(&BearerAuth{}).Apply(req, "secret")
		assert.Equal(t, "Bearer secret", req.Header.Get("Authorization"))
	})

	t.Run("header", func(t *testing.T) {
		req := newRequest(t, "https://example.com")
		(&HeaderAuth{Header: "X-Api-Key"}).Apply(req, "secret")
		assert.Equal(t, "secret", req.Header.Get("X-Api-Key"))
		assert.Empty(t, req.Header.Get("Authorization"))
	})

	t.Run("query keeps existing params", func(t *testing.T) {
		req := newRequest(t, "https://example.com/tasks?limit=5")
		(&QueryAuth{Param: "token"}).Apply(req, "secret")
		assert.Equal(t, "secret", req.URL.Query().Get("token"))
		assert.Equal(t, "5", req.URL.Query().Get("limit"))

		(&QueryAuth{Param: "token"}).Apply(&http.Request{Header: make(http.Header)}, "secret")
	})
}

func TestParseAuth(t *testing.T) {
	tests := []struct {
		spec    string
		want    Authenticator
		wantErr bool
	}{
		{"", &BearerAuth{}, false},
		{"bearer", &BearerAuth{}, false},
		{"none", &NoAuth{}, false},
		{"header:X-Api-Key", &HeaderAuth{Header: "X-Api-Key"}, false},
		{"query:token", &QueryAuth{Param: "token"}, false},
		{"header", nil, true},
		{"oauth", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := ParseAuth(tt.spec)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
