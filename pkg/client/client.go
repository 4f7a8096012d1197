// Package client provides the default rest.Transport implementation based on the standard net/http package.
//
// Client resolves the request URL against a base URL, runs the request body transform chain,
// applies the timeout, validates the response status and decodes the response body.
// Nothing is retried.
//
// The Client supports tracing/telemetry hooks, see the trace package and the AndTrace method.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptrace"
	"net/url"
	"strings"
	"time"

	otelMetric "go.opentelemetry.io/otel/metric"
	otelTrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/net/publicsuffix"

	"github.com/giphy-random/go-client/pkg/client/counter"
	"github.com/giphy-random/go-client/pkg/client/decode"
	"github.com/giphy-random/go-client/pkg/client/trace"
	"github.com/giphy-random/go-client/pkg/client/trace/otel"
	"github.com/giphy-random/go-client/pkg/rest"
)

// UserAgent is the default User-Agent header.
const UserAgent = "giphy-random-go-client"

// Client is a default and configurable implementation of the rest.Transport interface by Go native http.Client.
// Client is immutable, all With* methods return a modified clone.
type Client struct {
	transport      http.RoundTripper
	baseURL        *url.URL
	header         http.Header
	jar            http.CookieJar
	traceFactories []trace.Factory
}

// New creates new HTTP Client.
func New() Client {
	c := Client{transport: DefaultTransport(), header: make(http.Header), jar: NewCookieJar()}
	c.header.Set("User-Agent", UserAgent)
	c.header.Set("Accept-Encoding", "gzip, br")
	return c
}

// NewCookieJar creates a cookie jar with the public suffix list.
// Cookies are sent only if the request has set the WithCredentials option.
func NewCookieJar() http.CookieJar {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		panic(fmt.Errorf("cannot create cookie jar: %w", err))
	}
	return jar
}

// WithBaseURL returns a clone of the Client with base url set.
func (c Client) WithBaseURL(baseURLStr string) Client {
	baseURL, err := url.Parse(baseURLStr)
	if err != nil {
		panic(fmt.Errorf(`base url "%s" is not valid: %w`, baseURLStr, err))
	}
	c.baseURL = baseURL
	return c
}

// WithUserAgent returns a clone of the Client with user agent set.
func (c Client) WithUserAgent(v string) Client {
	return c.WithHeader("User-Agent", v)
}

// WithHeader returns a clone of the Client with common header set.
func (c Client) WithHeader(key, value string) Client {
	c.header = c.header.Clone()
	c.header.Set(key, value)
	return c
}

// WithHeaders returns a clone of the Client with common headers set.
func (c Client) WithHeaders(headers map[string]string) Client {
	c.header = c.header.Clone()
	for k, v := range headers {
		c.header.Set(k, v)
	}
	return c
}

// WithTransport returns a clone of the Client with a HTTP transport set.
func (c Client) WithTransport(transport http.RoundTripper) Client {
	if transport == nil {
		panic(fmt.Errorf("transport cannot be nil"))
	}
	c.transport = transport
	return c
}

// WithCookieJar returns a clone of the Client with the cookie jar set, nil disables cookies.
func (c Client) WithCookieJar(jar http.CookieJar) Client {
	c.jar = jar
	return c
}

// WithTrace returns a clone of the Client with Trace hooks set.
// It replaces all previous traces.
func (c Client) WithTrace(fn trace.Factory) Client {
	c.traceFactories = nil
	if fn != nil {
		c.traceFactories = []trace.Factory{fn}
	}
	return c
}

// AndTrace returns a clone of the Client with Trace hooks added.
// Hooks of all traces are called in registration order.
func (c Client) AndTrace(fn trace.Factory) Client {
	c.traceFactories = append(append([]trace.Factory{}, c.traceFactories...), fn)
	return c
}

// WithTelemetry returns a clone of the Client with OpenTelemetry tracing and metrics added.
func (c Client) WithTelemetry(tracerProvider otelTrace.TracerProvider, meterProvider otelMetric.MeterProvider, opts ...otel.Option) Client {
	return c.AndTrace(otel.NewTrace(tracerProvider, meterProvider, opts...))
}

// Do method sends HTTP request and returns the response, it implements the rest.Transport interface.
func (c Client) Do(ctx context.Context, options rest.TransportOptions) (res *rest.Response, err error) {
	// Method cannot be called on an empty value
	if c.transport == nil {
		panic(fmt.Errorf("client value is not initialized"))
	}

	// Init trace
	var clientTrace *trace.ClientTrace
	for _, factory := range c.traceFactories {
		var t *trace.ClientTrace
		ctx, t = factory(ctx, options)
		if t != nil {
			t.Compose(clientTrace)
			clientTrace = t
		}
	}
	if clientTrace != nil {
		ctx = httptrace.WithClientTrace(ctx, &clientTrace.ClientTrace)
		if clientTrace.RequestProcessed != nil {
			defer func() {
				var result any
				if res != nil {
					result = res.Data
				}
				clientTrace.RequestProcessed(result, err)
			}()
		}
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

	// Create request
	req, err := c.newRequest(ctx, options)
	if err != nil {
		return nil, err
	}

	// Setup native client
	nativeClient := http.Client{
		Transport: roundTripper{trace: clientTrace, wrapped: c.transport}, // wrapped transport for trace
	}
	if options.WithCredentials {
		nativeClient.Jar = c.jar
	}

	// Send request
	startedAt := time.Now()
	httpRes, err := nativeClient.Do(req)
	if err != nil {
		return nil, handleSendError(startedAt, req, err)
	}

	res = &rest.Response{
		StatusCode: httpRes.StatusCode,
		Header:     httpRes.Header,
		Request:    req,
		Options:    options,
	}

	// Check Content-Length header before the body is read
	limit := options.MaxContentLength
	if limit > 0 && httpRes.ContentLength > limit {
		_ = httpRes.Body.Close()
		return nil, &rest.ContentLengthError{Method: req.Method, URL: req.URL.String(), Limit: limit}
	}

	// Decode content encoding and limit the body size
	body, err := decode.Decode(httpRes.Body, httpRes.Header.Get("Content-Encoding"))
	if err != nil {
		_ = httpRes.Body.Close()
		return nil, fmt.Errorf(`cannot process request %s "%s": %w`, req.Method, req.URL.String(), err)
	}
	if clientTrace != nil && clientTrace.BodyParseStart != nil {
		clientTrace.BodyParseStart(httpRes)
	}
	var parseErr error
	countedBody := counter.NewLimitedReadCloser(body, limit, func(bytes int64, _ error) {
		if clientTrace != nil && clientTrace.BodyParseDone != nil {
			clientTrace.BodyParseDone(httpRes, res.Data, bytes, parseErr)
		}
	})

	// Stream is read by the caller, rejected status is processed as usual
	validate := options.ValidateStatus
	if validate == nil {
		validate = rest.DefaultValidateStatus
	}
	if options.ResponseType == rest.ResponseTypeStream && validate(httpRes.StatusCode) {
		cancelOnReturn = false
		res.Body = CancelOnClose(countedBody, cancel)
		return res, nil
	}

	// Read body
	bodyBytes, readErr := io.ReadAll(countedBody)
	if errors.Is(readErr, counter.ErrLimitExceeded) {
		parseErr = &rest.ContentLengthError{Method: req.Method, URL: req.URL.String(), Limit: limit}
	} else if readErr != nil {
		parseErr = handleSendError(startedAt, req, fmt.Errorf(`cannot read response body: %w`, readErr))
	}

	// Process body
	if parseErr == nil {
		if statusErr := rest.CheckStatus(res, bodyBytes, options); statusErr != nil {
			parseErr = statusErr
		} else if data, decodeErr := rest.DecodeData(bodyBytes, res.ContentType(), options); decodeErr != nil {
			parseErr = fmt.Errorf(`cannot process request %s "%s": %w`, req.Method, req.URL.String(), decodeErr)
		} else {
			res.Data = data
		}
	}

	_ = countedBody.Close()
	if parseErr != nil {
		return nil, parseErr
	}
	return res, nil
}

func (c Client) newRequest(ctx context.Context, options rest.TransportOptions) (*http.Request, error) {
	if options.Method == "" {
		return nil, fmt.Errorf("request method is not set")
	}

	// Convert to absolute url
	var reqURL *url.URL
	var err error
	if c.baseURL == nil {
		reqURL, err = url.Parse(options.URL)
	} else {
		reqURL, err = c.baseURL.Parse(options.URL)
	}
	if err != nil {
		return nil, err
	}

	// Add query parameters
	if len(options.Params) > 0 {
		query := reqURL.Query()
		for k, values := range options.Params {
			for _, v := range values {
				query.Add(k, v)
			}
		}
		reqURL.RawQuery = query.Encode()
	}

	// Transform body, a transform may modify the request headers
	header := options.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	data, err := rest.ApplyTransforms(options.Data, header, options.TransformRequest)
	if err != nil {
		return nil, fmt.Errorf(`request %s "%s": cannot prepare request body: %w`, options.Method, reqURL.String(), err)
	}
	body, err := rest.BodyReader(data)
	if err != nil {
		return nil, fmt.Errorf(`request %s "%s": cannot prepare request body: %w`, options.Method, reqURL.String(), err)
	}

	// Create request
	req, err := http.NewRequestWithContext(ctx, options.Method, reqURL.String(), body)
	if err != nil {
		return nil, err
	}

	// Global headers
	for k, values := range c.header {
		for _, v := range values {
			req.Header.Set(k, v)
		}
	}

	// Request headers
	for k, values := range header {
		req.Header.Del(k) // clear global values
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	return req, nil
}

func handleSendError(startedAt time.Time, req *http.Request, err error) error {
	// Timeout
	var netErr net.Error
	if deadline, ok := req.Context().Deadline(); ok && errors.Is(err, context.DeadlineExceeded) {
		err = urlError(req, fmt.Errorf("timeout after %s", deadline.Sub(startedAt)))
	} else if errors.Is(err, context.Canceled) {
		err = urlError(req, fmt.Errorf("canceled after %s", time.Since(startedAt)))
	} else if errors.As(err, &netErr) && netErr.Timeout() {
		err = urlError(req, fmt.Errorf("timeout after %s", time.Since(startedAt)))
	}

	// Url error
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = fmt.Errorf(`request %s "%s" failed: %w`, strings.ToUpper(urlErr.Op), urlErr.URL, urlErr.Err)
	} else {
		err = fmt.Errorf(`request %s "%s" failed: %w`, req.Method, req.URL.String(), err)
	}

	return err
}

// roundTripper wraps a http.RoundTripper and adds trace functionality.
type roundTripper struct {
	trace   *trace.ClientTrace
	wrapped http.RoundTripper
}

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	// Trace request start
	if rt.trace != nil && rt.trace.HTTPRequestStart != nil {
		rt.trace.HTTPRequestStart(req)
	}

	// Send
	res, err := rt.wrapped.RoundTrip(req)

	// Trace request done
	if rt.trace != nil && rt.trace.HTTPRequestDone != nil {
		rt.trace.HTTPRequestDone(res, err)
	}

	return res, err
}

// CancelOnClose wraps a streamed body, the request context is released when the body is closed.
func CancelOnClose(body io.ReadCloser, cancel context.CancelFunc) io.ReadCloser {
	return &cancelOnClose{ReadCloser: body, cancel: cancel}
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *cancelOnClose) Close() error {
	defer r.cancel()
	return r.ReadCloser.Close()
}

func urlError(req *http.Request, err error) *url.Error {
	return &url.Error{Op: req.Method, URL: req.URL.String(), Err: err}
}
