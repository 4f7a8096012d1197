package otel

import (
	"crypto/tls"
	"net/http/httptrace"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	otelTrace "go.opentelemetry.io/otel/trace"

	"github.com/giphy-random/go-client/pkg/client/trace"
)

const (
	httpDNSSpanName          = "http.dns"
	httpGetConnSpanName      = "http.getconn"
	httpConnectSpanName      = "http.connect"
	httpTLSHandshakeSpanName = "http.tls"
	httpHeadersSpanName      = "http.headers"
	httpSendSpanName         = "http.send"

	attrNetHostName            = semconv.NetHostNameKey
	attrDNSAddresses           = attribute.Key("http.dns.addrs")
	attrRemoteAddr             = attribute.Key("http.remote")
	attrLocalAddr              = attribute.Key("http.local")
	attrConnectionReused       = attribute.Key("http.conn.reused")
	attrConnectionWasIdle      = attribute.Key("http.conn.wasidle")
	attrConnectionIdleTime     = attribute.Key("http.conn.idletime")
	attrConnectionStartNetwork = attribute.Key("http.conn.start.network")
	attrConnectionDoneNetwork  = attribute.Key("http.conn.done.network")
	attrConnectionDoneAddr     = attribute.Key("http.conn.done.addr")
)

// phaseSpan is a child span of the current HTTP request span, for one connection phase.
type phaseSpan struct {
	rt   *requestTrace
	name string
	span otelTrace.Span
}

func (p *phaseSpan) start(attrs ...attribute.KeyValue) {
	_, p.span = p.rt.tracer.Start(
		p.rt.httpCtx,
		p.name,
		otelTrace.WithSpanKind(otelTrace.SpanKindClient),
		otelTrace.WithAttributes(attrs...),
	)
}

func (p *phaseSpan) end(err error, attrs ...attribute.KeyValue) {
	if p.span == nil {
		return
	}
	p.span.SetAttributes(attrs...)
	if err != nil {
		p.rt.recordError(p.span, err)
	}
	p.span.End()
	p.span = nil
}

// registerConnectionSpans adds spans for the httptrace events.
// The otelhttptrace package from the contrib module is not used, it does not end spans:
// https://github.com/open-telemetry/opentelemetry-go-contrib/issues/399
func (rt *requestTrace) registerConnectionSpans(tc *trace.ClientTrace) {
	dns := &phaseSpan{rt: rt, name: httpDNSSpanName}
	tc.DNSStart = func(info httptrace.DNSStartInfo) {
		dns.start(attrNetHostName.String(info.Host))
	}
	tc.DNSDone = func(info httptrace.DNSDoneInfo) {
		addrs := make([]string, 0, len(info.Addrs))
		for _, addr := range info.Addrs {
			addrs = append(addrs, addr.String())
		}
		dns.end(info.Err, attrDNSAddresses.String(strings.Join(addrs, ";")))
	}

	getConn := &phaseSpan{rt: rt, name: httpGetConnSpanName}
	tc.GetConn = func(host string) {
		getConn.start(attrNetHostName.String(host))
	}
	tc.GotConn = func(info httptrace.GotConnInfo) {
		attrs := []attribute.KeyValue{
			attrConnectionReused.Bool(info.Reused),
			attrConnectionWasIdle.Bool(info.WasIdle),
		}
		if info.Conn != nil {
			attrs = append(attrs,
				attrRemoteAddr.String(info.Conn.RemoteAddr().String()),
				attrLocalAddr.String(info.Conn.LocalAddr().String()),
			)
		}
		if info.WasIdle {
			attrs = append(attrs, attrConnectionIdleTime.String(info.IdleTime.String()))
		}
		getConn.end(nil, attrs...)
	}

	connect := &phaseSpan{rt: rt, name: httpConnectSpanName}
	tc.ConnectStart = func(network, addr string) {
		connect.start(attrRemoteAddr.String(addr), attrConnectionStartNetwork.String(network))
	}
	tc.ConnectDone = func(network, addr string, err error) {
		connect.end(err, attrConnectionDoneAddr.String(addr), attrConnectionDoneNetwork.String(network))
	}

	// Not reported if the http2.Transport is used directly, without an upgrade from the http.Transport
	handshake := &phaseSpan{rt: rt, name: httpTLSHandshakeSpanName}
	tc.TLSHandshakeStart = func() {
		handshake.start()
	}
	tc.TLSHandshakeDone = func(_ tls.ConnectionState, err error) {
		handshake.end(err)
	}

	headers := &phaseSpan{rt: rt, name: httpHeadersSpanName}
	send := &phaseSpan{rt: rt, name: httpSendSpanName}
	tc.WroteHeaderField = func(_ string, _ []string) {
		if headers.span == nil {
			headers.start()
		}
	}
	tc.WroteHeaders = func() {
		headers.end(nil)
		send.start()
	}
	tc.WroteRequest = func(info httptrace.WroteRequestInfo) {
		send.end(info.Err)
	}
}
