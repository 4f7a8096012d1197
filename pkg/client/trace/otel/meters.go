package otel

import otelMetric "go.opentelemetry.io/otel/metric"

// meters of all levels, durations are in milliseconds.
//
//	giphy.go.client.request.in_flight        requests sent by the dispatcher
//	giphy.go.client.request.duration         whole request, including redirects and body parsing
//	giphy.go.client.request.parse.in_flight  responses being read and decoded
//	giphy.go.client.request.parse.duration   reading and decoding of the final response body
//	giphy.go.client.response.size            read bytes of the final response body
//	giphy.go.http.request.in_flight          sent HTTP requests, including redirects
//	giphy.go.http.request.duration           until the response headers are received
//	giphy.go.http.redirects                  followed redirects
type meters struct {
	client       stageMeters
	http         httpMeters
	parse        stageMeters
	responseSize otelMetric.Float64Histogram
}

type stageMeters struct {
	inFlight otelMetric.Int64UpDownCounter
	duration otelMetric.Float64Histogram
}

type httpMeters struct {
	stageMeters
	redirects otelMetric.Int64Counter
}

func newMeters(meter otelMetric.Meter) *meters {
	return &meters{
		client: newStageMeters(meter, clientPrefix+"request", "Dispatcher request"),
		http: httpMeters{
			stageMeters: newStageMeters(meter, httpPrefix+"request", "HTTP request, without body parsing"),
			redirects: mustInstrument(meter.Int64Counter(
				httpPrefix+"redirects",
				otelMetric.WithDescription("HTTP request: followed redirects."),
			)),
		},
		parse: newStageMeters(meter, clientPrefix+"request.parse", "Response body parsing"),
		responseSize: mustInstrument(meter.Float64Histogram(
			clientPrefix+"response.size",
			otelMetric.WithDescription("Response body: read bytes."),
			otelMetric.WithUnit("By"),
		)),
	}
}

func newStageMeters(meter otelMetric.Meter, name, desc string) stageMeters {
	return stageMeters{
		inFlight: mustInstrument(meter.Int64UpDownCounter(
			name+".in_flight",
			otelMetric.WithDescription(desc+": in flight."),
		)),
		duration: mustInstrument(meter.Float64Histogram(
			name+".duration",
			otelMetric.WithDescription(desc+": duration."),
			otelMetric.WithUnit("ms"),
		)),
	}
}

func mustInstrument[T any](instrument T, err error) T {
	if err != nil {
		panic(err)
	}
	return instrument
}
