package client

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

const (
	// DialTimeout limits opening of a new connection.
	DialTimeout = 3 * time.Second
	// KeepAlive is the interval between TCP keep-alive probes.
	KeepAlive = 10 * time.Second
	// TLSHandshakeTimeout limits the TLS handshake.
	TLSHandshakeTimeout = 5 * time.Second
	// ResponseHeaderTimeout limits waiting for the response headers, the whole request is limited by the rest.RequestTimeout.
	ResponseHeaderTimeout = 20 * time.Second
	// IdleConnTimeout is how long an idle connection is kept open.
	IdleConnTimeout = 90 * time.Second
	// MaxConnectionsPerHost limits open connections to one host, for example media.giphy.com.
	MaxConnectionsPerHost = 32
	// HTTP2PingTimeout is the read idle timeout and the ping timeout of the HTTP2 health check.
	HTTP2PingTimeout = 3 * time.Second
)

// DefaultTransport is an http.Transport upgraded to the HTTP2, if the server supports it.
// The HTTP2 connections are checked by pings, so a dead connection is not reused.
func DefaultTransport() http.RoundTripper {
	t := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           Dialer().DialContext,
		TLSHandshakeTimeout:   TLSHandshakeTimeout,
		ResponseHeaderTimeout: ResponseHeaderTimeout,
		IdleConnTimeout:       IdleConnTimeout,
		MaxConnsPerHost:       MaxConnectionsPerHost,
		MaxIdleConnsPerHost:   MaxConnectionsPerHost,
	}
	if t2, err := http2.ConfigureTransports(t); err == nil {
		configureHTTP2(t2)
	} else {
		t.ForceAttemptHTTP2 = true
	}
	return t
}

// HTTP2Transport speaks only the HTTP2 over TLS.
func HTTP2Transport() http.RoundTripper {
	dialer := Dialer()
	t := &http2.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string, cfg *tls.Config) (net.Conn, error) {
			tlsDialer := &tls.Dialer{NetDialer: dialer, Config: cfg}
			return tlsDialer.DialContext(ctx, network, addr)
		},
	}
	configureHTTP2(t)
	return t
}

// Dialer with the DialTimeout and KeepAlive.
func Dialer() *net.Dialer {
	return &net.Dialer{Timeout: DialTimeout, KeepAlive: KeepAlive}
}

func configureHTTP2(t *http2.Transport) {
	t.ReadIdleTimeout = HTTP2PingTimeout
	t.PingTimeout = HTTP2PingTimeout
	t.WriteByteTimeout = HTTP2PingTimeout
}
