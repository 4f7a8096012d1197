// Package counter wraps a request/response body to count and optionally limit read bytes.
package counter

import (
	"errors"
	"io"
)

// ErrLimitExceeded is returned by the Read method if more bytes than the limit have been read.
var ErrLimitExceeded = errors.New("read limit exceeded")

// ReadCloser counts bytes read from a request or response body.
type ReadCloser struct {
	wrapped io.ReadCloser
	onClose OnClose
	limit   int64
	bytes   int64
	readErr error
}

// OnClose is called on Close with the read bytes and the first read error, or the close error.
// The io.EOF is not reported.
type OnClose func(bytes int64, err error)

// NewLimitedReadCloser returns ErrLimitExceeded when more than limit bytes are read, limit <= 0 means unlimited.
// The onClose callback is optional.
func NewLimitedReadCloser(wrapped io.ReadCloser, limit int64, onClose OnClose) *ReadCloser {
	return &ReadCloser{wrapped: wrapped, onClose: onClose, limit: limit}
}

// Bytes returns the number of bytes read so far, at most the limit.
func (w *ReadCloser) Bytes() int64 {
	return w.bytes
}

func (w *ReadCloser) Read(b []byte) (int, error) {
	if errors.Is(w.readErr, ErrLimitExceeded) {
		return 0, w.readErr
	}
	n, err := w.wrapped.Read(b)
	w.bytes += int64(n)
	if w.limit > 0 && w.bytes > w.limit {
		// Return only bytes up to the limit
		n -= int(w.bytes - w.limit)
		w.bytes = w.limit
		err = ErrLimitExceeded
	}
	w.readErr = err
	return n, err
}

func (w *ReadCloser) Close() error {
	closeErr := w.wrapped.Close()
	if w.onClose != nil {
		err := closeErr
		if w.readErr != nil && !errors.Is(w.readErr, io.EOF) {
			err = w.readErr
		}
		w.onClose(w.bytes, err)
	}
	return closeErr
}
