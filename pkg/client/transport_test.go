package client_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"

	"github.com/giphy-random/go-client/pkg/client"
)

func TestDefaultTransport(t *testing.T) {
	t.Parallel()

	transport, ok := client.DefaultTransport().(*http.Transport)
	require.True(t, ok)
	assert.Contains(t, transport.TLSNextProto, "h2")
	assert.Equal(t, client.TLSHandshakeTimeout, transport.TLSHandshakeTimeout)
	assert.Equal(t, client.ResponseHeaderTimeout, transport.ResponseHeaderTimeout)
	assert.Equal(t, client.MaxConnectionsPerHost, transport.MaxConnsPerHost)
	assert.NotNil(t, transport.DialContext)
}

func TestHTTP2Transport(t *testing.T) {
	t.Parallel()

	transport, ok := client.HTTP2Transport().(*http2.Transport)
	require.True(t, ok)
	assert.Equal(t, client.HTTP2PingTimeout, transport.PingTimeout)
	assert.Equal(t, client.HTTP2PingTimeout, transport.ReadIdleTimeout)
	assert.NotNil(t, transport.DialTLSContext)
}

func TestDialer(t *testing.T) {
	t.Parallel()

	dialer := client.Dialer()
	assert.Equal(t, client.DialTimeout, dialer.Timeout)
	assert.Equal(t, client.KeepAlive, dialer.KeepAlive)
}
