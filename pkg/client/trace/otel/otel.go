// Package otel provides OpenTelemetry tracing and metrics for HTTP client requests.
//
// Telemetry is provided on three levels:
//
// Request level, one "giphy.go.client.request" span for each request sent by the rest.Dispatcher.
// The span wraps all redirects together, the "http.request.body.parse" child span tracks reading
// and decoding of the final response body. Metric names start with "giphy.go.client.".
//
// HTTP level, one "http.request" span for each sent HTTP request, including redirects.
// Metric names start with "giphy.go.http.".
//
// Connection level, short spans for the phases reported by the net/http/httptrace package,
// for example "http.dns", "http.getconn", "http.tls". No metrics.
//
// See the meters struct for the full list of metrics.
// Values of the "api_key" query parameter and of the authorization headers are masked.
package otel

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelMetric "go.opentelemetry.io/otel/metric"
	metricNoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	otelTrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/giphy-random/go-client/pkg/client/trace"
	"github.com/giphy-random/go-client/pkg/rest"
)

const (
	instrumentationName = "github.com/giphy-random/go-client"

	clientPrefix = "giphy.go.client."
	httpPrefix   = "giphy.go.http."

	clientRequestSpanName   = clientPrefix + "request"
	httpRequestSpanName     = "http.request"
	httpReceiveSpanName     = "http.receive"
	clientBodyParseSpanName = "http.request.body.parse"

	attrResourceName = attribute.Key("resource.name")
	attrReadBytes    = attribute.Key("http.read_bytes")
	attrRedirects    = attribute.Key("http.redirects_count")
	// Span kind and type are also set as attributes, some backends, for example DataDog, read them.
	attrSpanKind = attribute.Key("span.kind")
	attrSpanType = attribute.Key("span.type")
)

// NewTrace creates a trace.Factory with OpenTelemetry spans and metrics.
// A nil provider is replaced by the noop implementation.
func NewTrace(tracerProvider otelTrace.TracerProvider, meterProvider otelMetric.MeterProvider, opts ...Option) trace.Factory {
	cfg := newConfig(opts)
	if tracerProvider == nil {
		tracerProvider = noop.NewTracerProvider()
	}
	if meterProvider == nil {
		meterProvider = metricNoop.NewMeterProvider()
	}
	tracer := tracerProvider.Tracer(instrumentationName)
	m := newMeters(meterProvider.Meter(instrumentationName))

	return func(ctx context.Context, options rest.TransportOptions) (context.Context, *trace.ClientTrace) {
		rt := &requestTrace{
			cfg:     cfg,
			tracer:  tracer,
			meters:  m,
			attrs:   newAttributes(cfg, options),
			secrets: trace.NewSecrets(options, cfg.redactedQueryParams.has),
		}
		ctx = rt.start(ctx)

		tc := &trace.ClientTrace{
			HTTPRequestStart: rt.httpRequestStart,
			HTTPRequestDone:  rt.httpRequestDone,
			BodyParseStart:   rt.bodyParseStart,
			BodyParseDone:    rt.bodyParseDone,
			RequestProcessed: rt.requestProcessed,
		}
		tc.GotFirstResponseByte = rt.gotFirstResponseByte
		rt.registerConnectionSpans(tc)
		return ctx, tc
	}
}

// requestTrace holds the state of one request, it may consist of multiple HTTP requests (redirects).
// Hooks of one request are never called concurrently.
type requestTrace struct {
	cfg     config
	tracer  otelTrace.Tracer
	meters  *meters
	attrs   *attributes
	secrets *trace.Secrets

	rootCtx   context.Context
	rootSpan  otelTrace.Span
	startTime time.Time
	redirects int

	// the current HTTP request
	httpCtx     context.Context
	httpSpan    otelTrace.Span
	httpStart   time.Time
	receiveSpan otelTrace.Span

	parseSpan  otelTrace.Span
	parseStart time.Time
	parseAttrs []attribute.KeyValue
}

func (rt *requestTrace) start(ctx context.Context) context.Context {
	rt.startTime = time.Now()
	rt.meters.client.inFlight.Add(ctx, 1, otelMetric.WithAttributes(rt.attrs.definition...))

	rt.rootCtx, rt.rootSpan = rt.tracer.Start(
		ctx,
		clientRequestSpanName,
		otelTrace.WithSpanKind(otelTrace.SpanKindClient),
		otelTrace.WithAttributes(attrResourceName.String(rt.attrs.definitionPath)),
		otelTrace.WithAttributes(spanKindAttrs()...),
		otelTrace.WithAttributes(rt.attrs.definition...),
		otelTrace.WithAttributes(rt.attrs.definitionExtra...),
	)
	rt.httpCtx = rt.rootCtx
	return rt.rootCtx
}

func (rt *requestTrace) requestProcessed(_ any, err error) {
	// Dimensions of the in-flight counter must match the +1 in the start method
	rt.meters.client.inFlight.Add(rt.rootCtx, -1, otelMetric.WithAttributes(rt.attrs.definition...))
	rt.meters.client.duration.Record(
		rt.rootCtx,
		sinceMs(rt.startTime),
		otelMetric.WithAttributes(rt.attrs.definition...),
		otelMetric.WithAttributes(rt.attrs.httpResponse...),
		otelMetric.WithAttributes(rt.attrs.httpResponseError...),
	)

	// The body has not been parsed, for example on a decode error
	if rt.parseSpan == nil {
		rt.endHTTPSpan()
	}

	rt.rootSpan.SetAttributes(rt.attrs.httpResponse...)
	rt.rootSpan.SetAttributes(rt.attrs.httpResponseExtra...)
	rt.rootSpan.SetAttributes(attrRedirects.Int(rt.redirects))
	if err == nil {
		rt.rootSpan.End()
		return
	}
	rt.recordError(rt.rootSpan, err)
	rt.rootSpan.End(otelTrace.WithStackTrace(true))
}

func (rt *requestTrace) httpRequestStart(req *http.Request) {
	rt.httpStart = time.Now()
	rt.httpCtx, rt.httpSpan = rt.tracer.Start(
		rt.rootCtx,
		httpRequestSpanName,
		otelTrace.WithSpanKind(otelTrace.SpanKindClient),
		otelTrace.WithAttributes(spanKindAttrs()...),
	)

	if rt.cfg.propagators != nil {
		rt.cfg.propagators.Inject(rt.httpCtx, propagation.HeaderCarrier(req.Header))
	}

	rt.secrets.AddQuery(req.URL.Query(), rt.cfg.redactedQueryParams.has)
	rt.attrs.SetFromRequest(req)
	rt.meters.http.inFlight.Add(rt.rootCtx, 1, otelMetric.WithAttributes(rt.attrs.httpRequest...))
	rt.httpSpan.SetAttributes(attrResourceName.String(rt.attrs.httpRequestPath))
	rt.httpSpan.SetAttributes(rt.attrs.httpRequest...)
	rt.httpSpan.SetAttributes(rt.attrs.httpRequestExtra...)
}

func (rt *requestTrace) gotFirstResponseByte() {
	_, rt.receiveSpan = rt.tracer.Start(rt.httpCtx, httpReceiveSpanName, otelTrace.WithSpanKind(otelTrace.SpanKindClient))
}

func (rt *requestTrace) httpRequestDone(res *http.Response, err error) {
	rt.attrs.SetFromResponse(res, err)

	// Dimensions of the in-flight counter must match the +1 in the httpRequestStart method
	rt.meters.http.inFlight.Add(rt.rootCtx, -1, otelMetric.WithAttributes(rt.attrs.httpRequest...))
	rt.meters.http.duration.Record(
		rt.rootCtx,
		sinceMs(rt.httpStart),
		otelMetric.WithAttributes(rt.attrs.httpRequest...),
		otelMetric.WithAttributes(rt.attrs.httpResponse...),
	)

	if rt.httpSpan != nil {
		rt.httpSpan.SetAttributes(rt.attrs.httpResponse...)
		rt.httpSpan.SetAttributes(rt.attrs.httpResponseExtra...)
		if err != nil {
			rt.recordError(rt.httpSpan, err)
		} else if res != nil && res.StatusCode >= http.StatusBadRequest {
			rt.recordError(rt.httpSpan, fmt.Errorf(`HTTP status code: %d %s`, res.StatusCode, http.StatusText(res.StatusCode)))
		}
	}
	if rt.receiveSpan != nil && err != nil {
		rt.recordError(rt.receiveSpan, err)
	}

	switch {
	case err != nil:
		rt.endHTTPSpan()
	case isRedirection(res):
		rt.redirects++
		rt.meters.http.redirects.Add(rt.rootCtx, 1, otelMetric.WithAttributes(rt.attrs.definition...))
		rt.endHTTPSpan()
	default:
		// The span of the final response lasts until the body is parsed
	}
}

func (rt *requestTrace) bodyParseStart(_ *http.Response) {
	rt.parseStart = time.Now()
	rt.parseAttrs = append(append([]attribute.KeyValue{}, rt.attrs.definition...), rt.attrs.httpResponse...)
	rt.meters.parse.inFlight.Add(rt.rootCtx, 1, otelMetric.WithAttributes(rt.parseAttrs...))

	_, rt.parseSpan = rt.tracer.Start(
		rt.httpCtx,
		clientBodyParseSpanName,
		otelTrace.WithSpanKind(otelTrace.SpanKindClient),
		otelTrace.WithAttributes(rt.attrs.httpRequest...),
		otelTrace.WithAttributes(rt.attrs.httpResponse...),
	)
}

func (rt *requestTrace) bodyParseDone(_ *http.Response, _ any, readBytes int64, err error) {
	rt.meters.parse.inFlight.Add(rt.rootCtx, -1, otelMetric.WithAttributes(rt.parseAttrs...))
	rt.meters.parse.duration.Record(rt.rootCtx, sinceMs(rt.parseStart), otelMetric.WithAttributes(rt.parseAttrs...))
	rt.meters.responseSize.Record(rt.rootCtx, float64(readBytes), otelMetric.WithAttributes(rt.parseAttrs...))

	if rt.parseSpan != nil {
		rt.parseSpan.SetAttributes(attrReadBytes.Int64(readBytes))
		if err != nil {
			rt.recordError(rt.parseSpan, err)
		}
		rt.parseSpan.End()
	}
	if rt.receiveSpan != nil {
		rt.receiveSpan.SetAttributes(attrReadBytes.Int64(readBytes))
	}
	rt.endHTTPSpan()
}

func (rt *requestTrace) endHTTPSpan() {
	if rt.receiveSpan != nil {
		rt.receiveSpan.End()
		rt.receiveSpan = nil
	}
	if rt.httpSpan != nil {
		rt.httpSpan.End()
		rt.httpSpan = nil
	}
}

func spanKindAttrs() []attribute.KeyValue {
	return []attribute.KeyValue{attrSpanKind.String("client"), attrSpanType.String("http")}
}

// recordError sets the error status, values of the redacted query params are masked in the error message.
func (rt *requestTrace) recordError(span otelTrace.Span, err error) {
	err = rt.secrets.RedactError(err, maskedAttrValue)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func sinceMs(t time.Time) float64 {
	return float64(time.Since(t)) / float64(time.Millisecond)
}

func isSuccess(r *http.Response, err error) bool {
	return err == nil && r != nil && r.StatusCode < http.StatusBadRequest
}

func isRedirection(r *http.Response) bool {
	return r != nil && r.StatusCode >= http.StatusMultipleChoices && r.StatusCode < http.StatusBadRequest
}
