// Package trace extends the httptrace.ClientTrace and adds additional request hooks.
// A custom ClientTrace definition can be registered in the client.Client by the AndTrace method.
package trace

import (
	"context"
	"net/http"
	"net/http/httptrace"
	"reflect"

	"github.com/giphy-random/go-client/pkg/rest"
)

// Factory creates ClientTrace hooks for a request.
// The returned context is used for the request, it may contain a span, for example.
type Factory func(ctx context.Context, options rest.TransportOptions) (context.Context, *ClientTrace)

// ClientTrace is a set of hooks to run at various stages of an outgoing request.
type ClientTrace struct {
	httptrace.ClientTrace // native, low level trace
	// HTTPRequestStart is called when the request begins. It includes redirects.
	HTTPRequestStart func(request *http.Request)
	// HTTPRequestDone is called when the response headers are received. It includes redirects.
	HTTPRequestDone func(response *http.Response, err error)
	// BodyParseStart is called before the response body is read.
	BodyParseStart func(response *http.Response)
	// BodyParseDone is called when the response body is read and decoded.
	BodyParseDone func(response *http.Response, result any, readBytes int64, err error)
	// RequestProcessed is called when the Do method of the client is done.
	RequestProcessed func(result any, err error)
}

// Compose modifies t such that it respects the previously-registered hooks in old.
// The old hook is called first. Hooks of the embedded httptrace.ClientTrace are composed too.
// Based on httptrace.compose.
func (t *ClientTrace) Compose(old *ClientTrace) {
	if old == nil {
		return
	}
	compose(reflect.ValueOf(t).Elem(), reflect.ValueOf(old).Elem())
}

func compose(tv, ov reflect.Value) {
	structType := tv.Type()
	for i := 0; i < structType.NumField(); i++ {
		tf := tv.Field(i)
		hookType := tf.Type()

		// Embedded httptrace.ClientTrace
		if hookType.Kind() == reflect.Struct {
			compose(tf, ov.Field(i))
			continue
		}

		if hookType.Kind() != reflect.Func {
			continue
		}
		of := ov.Field(i)
		if of.IsNil() {
			continue
		}
		if tf.IsNil() {
			tf.Set(of)
			continue
		}

		// Make a copy of tf for tf to call. (Otherwise it
		// creates a recursive call cycle and stack overflows)
		tfCopy := reflect.ValueOf(tf.Interface())

		// We need to call both tf and of in some order.
		newFunc := reflect.MakeFunc(hookType, func(args []reflect.Value) []reflect.Value {
			of.Call(args)
			return tfCopy.Call(args)
		})
		tf.Set(newFunc)
	}
}
