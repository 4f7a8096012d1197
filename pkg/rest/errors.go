package rest

import (
	"fmt"
	"net/http"
)

// RestError wraps any failure of a Dispatcher request: network error, timeout or rejected status.
type RestError struct {
	Err error
}

func (e *RestError) Error() string {
	return e.Err.Error()
}

func (e *RestError) Unwrap() error {
	return e.Err
}

// StatusError is returned by a Transport if the status code is rejected by the ValidateStatus predicate.
type StatusError struct {
	Method   string
	URL      string
	Response *Response
	// Err is the ErrorResult with the decoded response body, if any.
	Err error
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf(`request %s "%s" failed: %d %s`, e.Method, e.URL, e.StatusCode(), http.StatusText(e.StatusCode()))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

func (e *StatusError) StatusCode() int {
	if e.Response == nil {
		return 0
	}
	return e.Response.StatusCode
}

// ContentLengthError is returned by a Transport if the response body exceeds the MaxContentLength.
type ContentLengthError struct {
	Method string
	URL    string
	Limit  int64
}

func (e *ContentLengthError) Error() string {
	return fmt.Sprintf(`request %s "%s" failed: response body exceeds the limit of %d bytes`, e.Method, e.URL, e.Limit)
}

// ErrorHandler converts a Transport failure to the error returned to the caller.
type ErrorHandler func(err error, options Options) error

// GenericErrorHandler wraps the error into a RestError, nothing is classified or retried.
func GenericErrorHandler(err error, _ Options) error {
	return &RestError{Err: err}
}

// errorWithResponse is implemented by an ErrorResult interested in the rejected response.
type errorWithResponse interface {
	error
	SetResponse(response *Response)
}
