package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/fedlens/errors"
)

func TestNewDefaults(t *testing.T) {
	c := New(Options{})

	assert.Equal(t, 30*time.Second, c.Timeout)
	assert.Equal(t, 10, c.maxRedirects)
	assert.False(t, c.allowPrivate)
	assert.Equal(t, []string{"http", "https"}, c.allowedSchemes)
	assert.NotNil(t, c.Transport, "private blocking installs a dialer")

	c = New(Options{AllowPrivate: true, Timeout: time.Second})
	assert.Nil(t, c.Transport)
	assert.Equal(t, time.Second, c.Timeout)
}

func TestValidateURL(t *testing.T) {
	strict := New(Options{})
	relaxed := New(Options{AllowPrivate: true})

	tests := []struct {
		name       string
		url        string
		strictErr  bool
		relaxedErr bool
	}{
		{"https", "https://example.com/rest", false, false},
		{"http", "http://example.com", false, false},
		{"file scheme", "file:///etc/passwd", true, true},
		{"ftp scheme", "ftp://example.com", true, true},
		{"userinfo", "http://evil.example@localhost/", true, true},
		{"missing host", "http:///rest", true, true},
		{"localhost", "http://localhost:8080/rest", true, false},
		{"sub localhost", "http://fedora.localhost/rest", true, false},
		{"loopback", "http://127.0.0.1:8080/rest", true, false},
		{"rfc1918", "http://10.1.2.3/rest", true, false},
		{"ipv6 loopback", "http://[::1]:8080/rest", true, false},
		{"ipv6 ula", "http://[fd00::1]/rest", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := strict.ValidateURL(tt.url)
			assert.Equal(t, tt.strictErr, err != nil, "strict: %v", err)
			if err != nil {
				assert.True(t, errors.Is(err, ErrBlocked))
			}
			_, err = relaxed.ValidateURL(tt.url)
			assert.Equal(t, tt.relaxedErr, err != nil, "relaxed: %v", err)
		})
	}
}

func TestIsPrivate(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"8.8.8.8", false},
		{"93.184.216.34", false},
		{"2606:4700::1111", false},
		{"127.0.0.1", true},
		{"10.0.0.1", true},
		{"172.16.5.4", true},
		{"192.168.1.1", true},
		{"169.254.1.1", true},
		{"0.1.2.3", true},
		{"224.0.0.1", true},
		{"250.0.0.1", true},
		{"::1", true},
		{"fe80::1", true},
		{"fec0::1", true},
		{"fd12::1", true},
		{"2001:db8::1", true},
		{"::ffff:10.0.0.1", true},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.want, isPrivate(netip.MustParseAddr(tt.addr)))
		})
	}
}

func TestDoBlocksLoopbackServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Options{Logger: zaptest.NewLogger(t).Sugar()})
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	_, err = c.Do(req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBlocked))

	c = New(Options{AllowPrivate: true, Logger: zaptest.NewLogger(t).Sugar()})
	resp, err := c.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRedirectLimit(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+"/again", http.StatusFound)
	}))
	defer srv.Close()

	c := New(Options{AllowPrivate: true, MaxRedirects: 2})
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	_, err = c.Do(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stopped after 2 redirects")
}

func TestWrap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := Wrap(srv.Client())
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := c.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	c := New(Options{AllowPrivate: true, RequestsPerSecond: 0.001})
	require.NotNil(t, c.limiter)

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := c.Do(req)
	require.NoError(t, err, "the first request uses the burst")
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Do(req.WithContext(ctx))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")

	assert.Nil(t, New(Options{}).limiter)
}
