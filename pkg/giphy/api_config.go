package giphy

import (
	otelMetric "go.opentelemetry.io/otel/metric"
	otelTrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/giphy-random/go-client/pkg/client"
	"github.com/giphy-random/go-client/pkg/rest"
)

type apiConfig struct {
	client            *client.Client
	transport         rest.Transport
	baseURL           string
	rating            string
	lang              string
	randomConcurrency int64
	logger            *zap.Logger
	tracerProvider    otelTrace.TracerProvider
	meterProvider     otelMetric.MeterProvider
}

type APIOption func(c *apiConfig)

func newAPIConfig(opts []APIOption) apiConfig {
	cfg := apiConfig{baseURL: DefaultBaseURL, randomConcurrency: DefaultRandomConcurrency}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithClient sets the HTTP client, the client.New is used by default.
func WithClient(cl *client.Client) APIOption {
	return func(c *apiConfig) {
		c.client = cl
	}
}

// WithTransport sets a custom rest.Transport, for example the restyclient.Transport.
// Logger and telemetry options are ignored, they need the client.Client.
func WithTransport(transport rest.Transport) APIOption {
	return func(c *apiConfig) {
		c.transport = transport
	}
}

// WithBaseURL overrides the DefaultBaseURL.
func WithBaseURL(v string) APIOption {
	return func(c *apiConfig) {
		c.baseURL = v
	}
}

// WithRating sets the default content rating filter of the Search, Trending and Random requests.
func WithRating(v string) APIOption {
	return func(c *apiConfig) {
		c.rating = v
	}
}

// WithLang sets the default language of the Search request.
func WithLang(v string) APIOption {
	return func(c *apiConfig) {
		c.lang = v
	}
}

// WithRandomConcurrency sets the maximum number of parallel requests sent by the RandomN.
func WithRandomConcurrency(v int64) APIOption {
	return func(c *apiConfig) {
		c.randomConcurrency = v
	}
}

// WithLogger logs all requests by the trace.ZapTracer.
func WithLogger(v *zap.Logger) APIOption {
	return func(c *apiConfig) {
		c.logger = v
	}
}

// WithTelemetry enables OpenTelemetry tracing and metrics of all requests.
func WithTelemetry(tracerProvider otelTrace.TracerProvider, meterProvider otelMetric.MeterProvider) APIOption {
	return func(c *apiConfig) {
		c.tracerProvider = tracerProvider
		c.meterProvider = meterProvider
	}
}
