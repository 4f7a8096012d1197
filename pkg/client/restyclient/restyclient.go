// Package restyclient provides a rest.Transport implementation based on the go-resty/resty/v2 client.
//
// The resty client builds and sends the request, the response body is read, limited
// and decoded the same way as by the client.Client.
// Cookies are disabled by default, a jar set by the WithCookieJar option is used for all requests.
// Tracing hooks are not supported, use the client.Client if they are needed.
package restyclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/giphy-random/go-client/pkg/client"
	"github.com/giphy-random/go-client/pkg/client/counter"
	"github.com/giphy-random/go-client/pkg/client/decode"
	"github.com/giphy-random/go-client/pkg/rest"
)

// Transport sends requests by a resty.Client.
type Transport struct {
	client *resty.Client
}

type Option func(c *resty.Client)

// WithBaseURL sets the base URL of relative request URLs.
func WithBaseURL(v string) Option {
	return func(c *resty.Client) {
		c.SetBaseURL(v)
	}
}

// WithHeader sets a header sent with all requests.
func WithHeader(key, value string) Option {
	return func(c *resty.Client) {
		c.SetHeader(key, value)
	}
}

// WithTransport sets the HTTP transport, the client.DefaultTransport is used by default.
func WithTransport(transport http.RoundTripper) Option {
	return func(c *resty.Client) {
		c.SetTransport(transport)
	}
}

// WithCookieJar sets the cookie jar.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *resty.Client) {
		c.SetCookieJar(jar)
	}
}

// New creates the Transport with a new resty.Client.
func New(opts ...Option) Transport {
	c := resty.New().
		SetTransport(client.DefaultTransport()).
		SetCookieJar(nil).
		SetHeader("User-Agent", client.UserAgent).
		SetHeader("Accept-Encoding", "gzip, br")
	for _, o := range opts {
		o(c)
	}
	return Transport{client: c}
}

// Resty returns the underlying resty.Client.
func (t Transport) Resty() *resty.Client {
	return t.client
}

// Do method sends HTTP request and returns the response, it implements the rest.Transport interface.
func (t Transport) Do(ctx context.Context, options rest.TransportOptions) (*rest.Response, error) {
	if t.client == nil {
		panic(fmt.Errorf("transport value is not initialized"))
	}
	if options.Method == "" {
		return nil, fmt.Errorf("request method is not set")
	}

	// Timeout, the context is canceled when the response is processed or when the stream is closed
	cancel := context.CancelFunc(func() {})
	if options.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
	}
	cancelOnReturn := true
	defer func() {
		if cancelOnReturn {
			cancel()
		}
	}()

	// Body, a transform may modify the request headers
	header := options.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	data, err := rest.ApplyTransforms(options.Data, header, options.TransformRequest)
	if err != nil {
		return nil, fmt.Errorf(`request %s "%s": cannot prepare request body: %w`, options.Method, options.URL, err)
	}
	body, err := rest.BodyReader(data)
	if err != nil {
		return nil, fmt.Errorf(`request %s "%s": cannot prepare request body: %w`, options.Method, options.URL, err)
	}

	// Build request, the body is processed below
	req := t.client.R().
		SetContext(ctx).
		SetQueryParamsFromValues(options.Params).
		SetHeaderMultiValues(header).
		SetDoNotParseResponse(true)
	if body != nil {
		req.SetBody(body)
	}

	// Send
	restyRes, err := req.Execute(options.Method, options.URL)
	if err != nil {
		return nil, fmt.Errorf(`request %s "%s" failed: %w`, options.Method, options.URL, err)
	}
	httpRes := restyRes.RawResponse
	httpReq := httpRes.Request
	if httpReq == nil {
		httpReq = restyRes.Request.RawRequest
	}
	res := &rest.Response{
		StatusCode: restyRes.StatusCode(),
		Header:     restyRes.Header(),
		Request:    httpReq,
		Options:    options,
	}
	method, reqURL := options.Method, options.URL
	if httpReq != nil {
		method, reqURL = httpReq.Method, httpReq.URL.String()
	}

	// Check Content-Length header before the body is read
	limit := options.MaxContentLength
	if limit > 0 && httpRes.ContentLength > limit {
		_ = httpRes.Body.Close()
		return nil, &rest.ContentLengthError{Method: method, URL: reqURL, Limit: limit}
	}

	// Decode content encoding and limit the body size
	decoded, err := decode.Decode(httpRes.Body, httpRes.Header.Get("Content-Encoding"))
	if err != nil {
		_ = httpRes.Body.Close()
		return nil, fmt.Errorf(`cannot process request %s "%s": %w`, method, reqURL, err)
	}
	limited := counter.NewLimitedReadCloser(decoded, limit, nil)

	// Stream is read by the caller, rejected status is processed as usual
	validate := options.ValidateStatus
	if validate == nil {
		validate = rest.DefaultValidateStatus
	}
	if options.ResponseType == rest.ResponseTypeStream && validate(res.StatusCode) {
		cancelOnReturn = false
		res.Body = client.CancelOnClose(limited, cancel)
		return res, nil
	}

	// Read and process body
	defer func() { _ = limited.Close() }()
	bodyBytes, err := io.ReadAll(limited)
	if errors.Is(err, counter.ErrLimitExceeded) {
		return nil, &rest.ContentLengthError{Method: method, URL: reqURL, Limit: limit}
	} else if err != nil {
		return nil, fmt.Errorf(`request %s "%s" failed: cannot read response body: %w`, method, reqURL, err)
	}
	if err := rest.CheckStatus(res, bodyBytes, options); err != nil {
		return nil, err
	}
	res.Data, err = rest.DecodeData(bodyBytes, res.ContentType(), options)
	if err != nil {
		return nil, fmt.Errorf(`cannot process request %s "%s": %w`, method, reqURL, err)
	}
	return res, nil
}
