package otel

import (
	"strings"

	"go.opentelemetry.io/otel/propagation"

	"github.com/giphy-random/go-client/pkg/client/trace"
)

// Same as in the otelhttptrace.
var defaultRedactedHeaders = []string{ //nolint:gochecknoglobals
	"authorization",
	"www-authenticate",
	"proxy-authenticate",
	"proxy-authorization",
	"cookie",
	"set-cookie",
}

type config struct {
	propagators         propagation.TextMapPropagator
	redactedQueryParams keySet
	redactedHeaders     keySet
}

// Option configures the NewTrace.
type Option func(*config)

// WithPropagators sets propagators used to inject the trace context into the request headers.
func WithPropagators(v propagation.TextMapPropagator) Option {
	return func(c *config) {
		c.propagators = v
	}
}

// WithRedactedQueryParam masks values of the query params in span and metric attributes,
// in addition to the trace.DefaultRedactedQueryParams.
func WithRedactedQueryParam(params ...string) Option {
	return func(c *config) {
		c.redactedQueryParams.add(params...)
	}
}

// WithRedactedHeaders masks values of the headers in span attributes,
// in addition to the authorization and cookie headers.
func WithRedactedHeaders(headers ...string) Option {
	return func(c *config) {
		c.redactedHeaders.add(headers...)
	}
}

func newConfig(opts []Option) config {
	cfg := config{redactedQueryParams: keySet{}, redactedHeaders: keySet{}}
	cfg.redactedQueryParams.add(trace.DefaultRedactedQueryParams...)
	cfg.redactedHeaders.add(defaultRedactedHeaders...)
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// keySet is a case-insensitive set of names.
type keySet map[string]struct{}

func (s keySet) add(keys ...string) {
	for _, k := range keys {
		s[strings.ToLower(k)] = struct{}{}
	}
}

func (s keySet) has(key string) bool {
	_, found := s[strings.ToLower(key)]
	return found
}
