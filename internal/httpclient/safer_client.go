// Package httpclient provides the outbound HTTP client used to talk to LDP
// repositories. It restricts schemes and redirects and, unless told
// otherwise, refuses to dial private or loopback addresses.
package httpclient

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/fedlens/errors"
)

// ErrBlocked is returned when a request target fails the client's policy.
var ErrBlocked = errors.New("request blocked")

// Options configures a SaferClient. Zero values select the defaults.
type Options struct {
	Timeout        time.Duration // default 30s
	AllowedSchemes []string      // default http, https
	MaxRedirects   int           // default 10
	// AllowPrivate permits loopback and private targets. Local Fedora
	// instances listen on localhost, so repository configs usually set it.
	AllowPrivate bool
	// RequestsPerSecond caps outbound requests; 0 means unlimited.
	RequestsPerSecond float64
	Logger            *zap.SugaredLogger
}

// SaferClient wraps http.Client with a target policy.
type SaferClient struct {
	*http.Client
	allowedSchemes []string
	allowPrivate   bool
	maxRedirects   int
	limiter        *rate.Limiter
	logger         *zap.SugaredLogger
}

// New builds a client from opts.
func New(opts Options) *SaferClient {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = 10
	}
	if len(opts.AllowedSchemes) == 0 {
		opts.AllowedSchemes = []string{"http", "https"}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}

	c := &SaferClient{
		Client:         &http.Client{Timeout: opts.Timeout},
		allowedSchemes: opts.AllowedSchemes,
		allowPrivate:   opts.AllowPrivate,
		maxRedirects:   opts.MaxRedirects,
		logger:         opts.Logger,
	}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= c.maxRedirects {
			return errors.Newf("stopped after %d redirects", c.maxRedirects)
		}
		if err := c.check(req.URL); err != nil {
			return errors.Wrap(err, "redirect blocked")
		}
		return nil
	}

	if !c.allowPrivate {
		dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
		c.Transport = &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				host, _, err := net.SplitHostPort(addr)
				if err != nil {
					return nil, errors.Wrap(err, "invalid address")
				}
				// resolve here so a DNS answer cannot smuggle in a private address
				ips, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
				if err != nil {
					return nil, errors.Wrapf(err, "failed to resolve host %q", host)
				}
				for _, ip := range ips {
					if isPrivate(ip) {
						return nil, errors.Wrapf(ErrBlocked, "private address %s", ip)
					}
				}
				return dialer.DialContext(ctx, network, addr)
			},
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
	}

	return c
}

// Wrap adopts an existing http.Client (typically httptest's) with private
// targets allowed.
func Wrap(client *http.Client) *SaferClient {
	return &SaferClient{
		Client:         client,
		allowedSchemes: []string{"http", "https"},
		allowPrivate:   true,
		maxRedirects:   10,
		logger:         zap.NewNop().Sugar(),
	}
}

// ValidateURL parses raw and checks it against the client's policy.
func (c *SaferClient) ValidateURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(err, "invalid URL")
	}
	if err := c.check(u); err != nil {
		return nil, err
	}
	return u, nil
}

// Do validates the request target then sends it.
func (c *SaferClient) Do(req *http.Request) (*http.Response, error) {
	if err := c.check(req.URL); err != nil {
		c.logger.Warnw("outbound request blocked", "method", req.Method, "url", req.URL.Redacted(), "error", err)
		return nil, err
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, errors.Wrap(err, "rate limit")
		}
	}
	c.logger.Debugw("outbound request", "method", req.Method, "url", req.URL.Redacted())
	return c.Client.Do(req)
}

func (c *SaferClient) check(u *url.URL) error {
	scheme := strings.ToLower(u.Scheme)
	if !slices.Contains(c.allowedSchemes, scheme) {
		return errors.Wrapf(ErrBlocked, "scheme %q not allowed (allowed: %v)", scheme, c.allowedSchemes)
	}
	if u.User != nil {
		// http://evil.example@localhost/ style confusion
		return errors.Wrap(ErrBlocked, "URL carries userinfo")
	}
	host := u.Hostname()
	if host == "" {
		return errors.Wrap(ErrBlocked, "URL missing hostname")
	}
	if c.allowPrivate {
		return nil
	}
	if isLocalhost(host) {
		return errors.Wrap(ErrBlocked, "localhost access blocked")
	}
	if ip, err := netip.ParseAddr(host); err == nil && isPrivate(ip) {
		return errors.Wrapf(ErrBlocked, "private address %s", host)
	}
	return nil
}

var documentation = netip.MustParsePrefix("2001:db8::/32")

func isPrivate(ip netip.Addr) bool {
	ip = ip.Unmap()
	switch {
	case ip.IsLoopback(), ip.IsPrivate(), ip.IsUnspecified(),
		ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast(), ip.IsMulticast():
		return true
	case ip.Is4():
		b := ip.As4()
		// 0.0.0.0/8 and 240.0.0.0/4
		return b[0] == 0 || b[0] >= 240
	default:
		b := ip.As16()
		// deprecated site-local fec0::/10
		if b[0] == 0xfe && b[1]&0xc0 == 0xc0 {
			return true
		}
		return documentation.Contains(ip)
	}
}

func isLocalhost(host string) bool {
	host = strings.ToLower(host)
	return host == "localhost" || host == "localhost.localdomain" || strings.HasSuffix(host, ".localhost")
}
