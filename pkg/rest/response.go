package rest

import (
	"context"
	"io"
	"net/http"
)

// Transport represents an HTTP client, the client.Client is a default implementation using the standard net/http package.
type Transport interface {
	// Do sends one request defined by the options.
	// An error is returned on a network failure, timeout or if the status is rejected by the options.ValidateStatus.
	Do(ctx context.Context, options TransportOptions) (*Response, error)
}

// Response of a Transport.
type Response struct {
	StatusCode int
	Header     http.Header
	// Data is the decoded body, it is the Options.Result if it has been set.
	Data any
	// Body is set only for the ResponseTypeStream and must be closed by the caller.
	Body io.ReadCloser
	// Request is the standard HTTP request, if the Transport uses it.
	Request *http.Request
	Options TransportOptions
}

// IsSuccess returns true if HTTP status `code >= 200 and <= 299` otherwise false.
func (r *Response) IsSuccess() bool {
	return DefaultValidateStatus(r.StatusCode)
}

// ContentType returns the Content-Type response header.
func (r *Response) ContentType() string {
	return r.Header.Get("Content-Type")
}
