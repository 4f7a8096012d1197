// Package decode decompresses a response body by its Content-Encoding header.
package decode

import (
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
)

// Decode wraps the body by a decompressing reader. Closing the returned reader closes the body.
// An unknown or empty encoding returns the body unchanged.
func Decode(body io.ReadCloser, contentEncoding string) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "gzip", "x-gzip":
		r, err := gzip.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("cannot decode gzip: %w", err)
		}
		return &readCloser{Reader: r, close: []func() error{r.Close, body.Close}}, nil
	case "deflate":
		r := flate.NewReader(body)
		return &readCloser{Reader: r, close: []func() error{r.Close, body.Close}}, nil
	case "br":
		return &readCloser{Reader: brotli.NewReader(body), close: []func() error{body.Close}}, nil
	default:
		return body, nil
	}
}

type readCloser struct {
	io.Reader
	close []func() error
}

func (r *readCloser) Close() error {
	var firstErr error
	for _, fn := range r.close {
		if err := fn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
