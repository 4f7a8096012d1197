package rest

import (
	"context"
	"fmt"
	"net/http"
)

// Dispatcher sends requests by a Transport, every failure is converted by the ErrorHandler.
// Dispatcher is immutable, it is safe for concurrent use.
type Dispatcher struct {
	transport    Transport
	errorHandler ErrorHandler
}

// NewDispatcher creates a Dispatcher with the GenericErrorHandler.
func NewDispatcher(transport Transport) Dispatcher {
	if transport == nil {
		panic(fmt.Errorf("transport cannot be nil"))
	}
	return Dispatcher{transport: transport, errorHandler: GenericErrorHandler}
}

// WithErrorHandler returns a clone of the Dispatcher with the error handler set.
func (d Dispatcher) WithErrorHandler(fn ErrorHandler) Dispatcher {
	if fn == nil {
		fn = GenericErrorHandler
	}
	d.errorHandler = fn
	return d
}

// Transport returns the underlying Transport.
func (d Dispatcher) Transport() Transport {
	return d.transport
}

// Request merges the options with the defaults, see BuildOptions, and sends the request.
// Any failure is returned as the ErrorHandler result, by default a *RestError.
func (d Dispatcher) Request(ctx context.Context, options Options) (*Response, error) {
	// Method cannot be called on an empty value
	if d.transport == nil {
		panic(fmt.Errorf("dispatcher value is not initialized"))
	}

	transportOptions, _ := BuildOptions(options)
	res, err := d.transport.Do(ctx, transportOptions)
	if err != nil {
		return nil, d.errorHandler(err, options)
	}
	return res, nil
}

// Get sends a GET request.
func (d Dispatcher) Get(ctx context.Context, url string, opts ...Option) (*Response, error) {
	return d.Request(ctx, GetOptions(url, opts...))
}

// Delete sends a DELETE request.
func (d Dispatcher) Delete(ctx context.Context, url string, opts ...Option) (*Response, error) {
	return d.Request(ctx, DeleteOptions(url, opts...))
}

// Post sends a POST request with a JSON body and credentials.
func (d Dispatcher) Post(ctx context.Context, url string, body any, opts ...Option) (*Response, error) {
	return d.Request(ctx, PostOptions(url, body, opts...))
}

// Put sends a PUT request with a JSON body.
func (d Dispatcher) Put(ctx context.Context, url string, body any, opts ...Option) (*Response, error) {
	return d.Request(ctx, PutOptions(url, body, opts...))
}

// Prepare defines a request, it is sent later by the Call.Send method.
func (d Dispatcher) Prepare(options Options) Call {
	return Call{dispatcher: d, options: options}
}

// GetOptions returns Options of a GET request, the method and URL cannot be overridden by the opts.
func GetOptions(url string, opts ...Option) Options {
	o := NewOptions(opts...)
	o.Method = http.MethodGet
	o.URL = url
	return o
}

// DeleteOptions returns Options of a DELETE request, the method and URL cannot be overridden by the opts.
func DeleteOptions(url string, opts ...Option) Options {
	o := NewOptions(opts...)
	o.Method = http.MethodDelete
	o.URL = url
	return o
}

// PostOptions returns Options of a POST request.
// The "Content-Type: application/json" header is set, the opts can override it.
// Credentials are always enabled.
func PostOptions(url string, body any, opts ...Option) Options {
	o := withJSONBody(NewOptions(opts...), http.MethodPost, url, body)
	o.WithCredentials = true
	return o
}

// PutOptions returns Options of a PUT request.
// The "Content-Type: application/json" header is set, the opts can override it.
func PutOptions(url string, body any, opts ...Option) Options {
	return withJSONBody(NewOptions(opts...), http.MethodPut, url, body)
}

func withJSONBody(o Options, method, url string, body any) Options {
	o.Method = method
	o.URL = url
	o.Data = body
	o.Header = mergeHeader(http.Header{"Content-Type": []string{ContentTypeApplicationJSON}}, o.Header)
	return o
}

// Call is a request prepared by the Dispatcher.Prepare. It implements the Sendable interface.
type Call struct {
	dispatcher Dispatcher
	options    Options
	listeners  []func(ctx context.Context, response *Response, err error) error
}

// Options returns the caller Options of the request.
func (c Call) Options() Options {
	return c.options
}

// WithOnComplete registers a callback executed when the request is completed.
func (c Call) WithOnComplete(fn func(ctx context.Context, response *Response, err error) error) Call {
	c.listeners = append(append([]func(context.Context, *Response, error) error{}, c.listeners...), fn)
	return c
}

// WithOnSuccess registers a callback executed when the request is completed without an error.
func (c Call) WithOnSuccess(fn func(ctx context.Context, response *Response) error) Call {
	return c.WithOnComplete(func(ctx context.Context, response *Response, err error) error {
		if err == nil {
			return fn(ctx, response)
		}
		return err
	})
}

// WithOnError registers a callback executed when the request fails.
func (c Call) WithOnError(fn func(ctx context.Context, err error) error) Call {
	return c.WithOnComplete(func(ctx context.Context, response *Response, err error) error {
		if err != nil {
			return fn(ctx, err)
		}
		return nil
	})
}

// Send sends the request and invokes the listeners.
func (c Call) Send(ctx context.Context) (*Response, error) {
	// Stop if context has been cancelled
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := c.dispatcher.Request(ctx, c.options)
	for _, fn := range c.listeners {
		// Stop if context has been cancelled
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		err = fn(ctx, res, err)
	}
	return res, err
}

func (c Call) SendOrErr(ctx context.Context) error {
	_, err := c.Send(ctx)
	return err
}
