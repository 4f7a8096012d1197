package giphy

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/giphy-random/go-client/pkg/rest"
)

const (
	apiKeyParam   = "api_key"
	redactedValue = "REDACTED"
)

// Error represents the structure of the Giphy API error.
// It is returned wrapped in the rest.RestError and rest.StatusError, use errors.As to get it.
type Error struct {
	Meta     Meta   `json:"meta"`
	Message  string `json:"message"`
	response *rest.Response
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Meta.Msg
	}
	if msg == "" {
		msg = http.StatusText(e.StatusCode())
	}
	out := fmt.Sprintf(`giphy api error[%d]: %s`, e.StatusCode(), msg)
	if e.Meta.ResponseID != "" {
		out += fmt.Sprintf(`, responseId: "%s"`, e.Meta.ResponseID)
	}
	return out
}

// ErrorUserMessage returns error message for end user.
func (e *Error) ErrorUserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Meta.Msg
}

// StatusCode returns HTTP status code, or the status from the response meta if the response is not set.
func (e *Error) StatusCode() int {
	if e.response != nil {
		return e.response.StatusCode
	}
	return e.Meta.Status
}

// SetResponse method allows injection of the response to the error, it is called by the rest.CheckStatus.
func (e *Error) SetResponse(response *rest.Response) {
	e.response = response
}

// redactedError masks the API key in the error message.
type redactedError struct {
	err    error
	secret string
}

func (e *redactedError) Error() string {
	return strings.ReplaceAll(e.err.Error(), e.secret, redactedValue)
}

func (e *redactedError) Unwrap() error {
	return e.err
}

// redactedErrorHandler wraps the error into the rest.RestError, the API key is masked in the message and in the StatusError.URL.
func redactedErrorHandler(apiKey string) rest.ErrorHandler {
	return func(err error, options rest.Options) error {
		if apiKey == "" {
			return rest.GenericErrorHandler(err, options)
		}
		var statusErr *rest.StatusError
		if errors.As(err, &statusErr) {
			statusErr.URL = strings.ReplaceAll(statusErr.URL, apiKey, redactedValue)
		}
		return rest.GenericErrorHandler(&redactedError{err: err, secret: apiKey}, options)
	}
}
