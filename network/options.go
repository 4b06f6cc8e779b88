package network

import (
	"crypto/tls"
	"crypto/x509"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/luca-patrignani/mental-poker-channel/referee"
)

type ServerOption func(*Server)

func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// WithRefereeOptions applies opts to the referee of every game created.
func WithRefereeOptions(opts ...referee.Option) ServerOption {
	return func(s *Server) { s.refOpts = append(s.refOpts, opts...) }
}

// DefaultRetryTimeout bounds the retries of a request that could not reach
// the server.
const DefaultRetryTimeout = 5 * time.Second

type clientConfig struct {
	http   *http.Client
	dialer *websocket.Dialer
	logger *slog.Logger
	retry  time.Duration
}

func newClientConfig(opts []ClientOption) clientConfig {
	dialer := *websocket.DefaultDialer
	c := clientConfig{
		http:   &http.Client{Timeout: 30 * time.Second},
		dialer: &dialer,
		logger: slog.New(slog.DiscardHandler),
		retry:  DefaultRetryTimeout,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

type ClientOption func(*clientConfig)

func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *clientConfig) { c.logger = l }
}

// WithRetryTimeout sets how long unreachable requests are retried. Zero
// disables retries.
func WithRetryTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) { c.retry = d }
}

// WithCertPool trusts the certificates in pool, for servers running with a
// self signed certificate.
func WithCertPool(pool *x509.CertPool) ClientOption {
	return func(c *clientConfig) {
		cfg := &tls.Config{RootCAs: pool}
		c.http = &http.Client{Timeout: c.http.Timeout, Transport: &http.Transport{TLSClientConfig: cfg}}
		c.dialer.TLSClientConfig = cfg
	}
}

// WithHTTPClient replaces the client used for requests.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *clientConfig) { c.http = h }
}
