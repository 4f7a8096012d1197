package decode_test

import (
	"bytes"
	"compress/gzip"
	"io"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giphy-random/go-client/pkg/client/decode"
)

type closeRecorder struct {
	io.Reader
	closed bool
}

func (r *closeRecorder) Close() error {
	r.closed = true
	return nil
}

func TestDecode(t *testing.T) {
	t.Parallel()

	var gzipBody bytes.Buffer
	gw := gzip.NewWriter(&gzipBody)
	_, _ = gw.Write([]byte("gzip content"))
	require.NoError(t, gw.Close())

	var brBody bytes.Buffer
	bw := brotli.NewWriter(&brBody)
	_, _ = bw.Write([]byte("br content"))
	require.NoError(t, bw.Close())

	cases := []struct {
		encoding string
		body     []byte
		expected string
	}{
		{encoding: "", body: []byte("plain content"), expected: "plain content"},
		{encoding: "identity", body: []byte("plain content"), expected: "plain content"},
		{encoding: "GZIP", body: gzipBody.Bytes(), expected: "gzip content"},
		{encoding: "br", body: brBody.Bytes(), expected: "br content"},
	}
	for _, tc := range cases {
		body := &closeRecorder{Reader: bytes.NewReader(tc.body)}
		r, err := decode.Decode(body, tc.encoding)
		require.NoError(t, err, tc.encoding)
		out, err := io.ReadAll(r)
		require.NoError(t, err, tc.encoding)
		assert.Equal(t, tc.expected, string(out), tc.encoding)
		require.NoError(t, r.Close(), tc.encoding)
		assert.True(t, body.closed, tc.encoding)
	}
}

func TestDecode_InvalidGzip(t *testing.T) {
	t.Parallel()
	_, err := decode.Decode(io.NopCloser(bytes.NewReader([]byte("foo"))), "gzip")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot decode gzip:")
}
