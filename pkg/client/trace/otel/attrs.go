package otel

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	"github.com/giphy-random/go-client/pkg/rest"
)

const (
	maskedAttrValue = "****"
	attrHTTPHost    = attribute.Key("http.host")
)

type attributes struct {
	config config
	// definition attributes for span and metrics
	definition []attribute.KeyValue
	// definitionExtra attributes for span only
	definitionExtra []attribute.KeyValue
	// definitionPath is used as the resource name of the root span
	definitionPath string
	// httpRequest attributes for span and metrics
	httpRequest []attribute.KeyValue
	// httpRequestExtra attributes for span only
	httpRequestExtra []attribute.KeyValue
	// httpRequestPath is used as the resource name of the HTTP request span
	httpRequestPath string
	// httpResponse attributes for span and metrics
	httpResponse []attribute.KeyValue
	// httpResponseExtra attributes for span only
	httpResponseExtra []attribute.KeyValue
	// httpResponseError attributes for metrics
	httpResponseError []attribute.KeyValue
}

func newAttributes(cfg config, options rest.TransportOptions) *attributes {
	out := &attributes{config: cfg}

	var resultType string
	if v := reflect.TypeOf(options.Result); v != nil {
		resultType = v.String()
	}

	defURL, err := url.Parse(options.URL)
	if err != nil {
		defURL = &url.URL{Path: options.URL}
	}
	if len(options.Params) > 0 {
		query := defURL.Query()
		for k, values := range options.Params {
			for _, v := range values {
				query.Add(k, v)
			}
		}
		defURL.RawQuery = query.Encode()
	}
	out.definitionPath = defURL.Path

	// Definition base
	out.definition = []attribute.KeyValue{
		attribute.String("definition.method", options.Method),
		attribute.String("definition.result.type", resultType),
		attribute.String("definition.response.type", string(options.ResponseType)),
		attribute.String("definition.url.path", mustURLPathUnescape(defURL.Path)),
	}

	// Definition params
	out.definitionExtra = append(out.definitionExtra, attribute.String("definition.url.full", out.redactURL(defURL)))
	out.definitionExtra = append(out.definitionExtra, out.headerAttrs("definition.header.", options.Header, false)...)
	var queryAttrs []attribute.KeyValue
	for k, values := range options.Params {
		value := strings.Join(values, ";")
		if cfg.redactedQueryParams.has(k) {
			value = maskedAttrValue
		}
		queryAttrs = append(queryAttrs, attribute.String("definition.params.query."+k, value))
	}
	sortAttrs(queryAttrs)
	out.definitionExtra = append(out.definitionExtra, queryAttrs...)

	return out
}

func (v *attributes) SetFromRequest(req *http.Request) {
	if req == nil {
		v.httpRequest = nil
		v.httpRequestExtra = nil
		v.httpRequestPath = ""
		return
	}

	// Base
	v.httpRequestPath = req.URL.Path
	v.httpRequest = []attribute.KeyValue{
		semconv.HTTPMethodKey.String(req.Method),
		semconv.HTTPURLKey.String(v.redactURL(req.URL)),
		attrHTTPHost.String(req.URL.Host),
		semconv.HTTPSchemeKey.String(req.URL.Scheme),
	}

	// Extra
	var attrs []attribute.KeyValue
	if ua := req.UserAgent(); ua != "" {
		attrs = append(attrs, semconv.HTTPUserAgentKey.String(ua))
	}
	if req.ContentLength > 0 {
		attrs = append(attrs, semconv.HTTPRequestContentLengthKey.Int64(req.ContentLength))
	}
	v.httpRequestExtra = append(attrs, v.headerAttrs("http.header.", req.Header, true)...)
}

func (v *attributes) SetFromResponse(res *http.Response, err error) {
	if res == nil {
		v.httpResponse = nil
		v.httpResponseExtra = nil
	} else {
		v.httpResponse = []attribute.KeyValue{semconv.HTTPStatusCodeKey.Int(res.StatusCode)}
		var attrs []attribute.KeyValue
		if res.ContentLength > 0 {
			attrs = append(attrs, semconv.HTTPResponseContentLengthKey.Int64(res.ContentLength))
		}
		v.httpResponseExtra = append(attrs, v.headerAttrs("http.response.header.", res.Header, true)...)
	}

	// Error
	var netErr net.Error
	errors.As(err, &netErr)
	v.httpResponseError = []attribute.KeyValue{
		attribute.Bool("http.response.isSuccess", isSuccess(res, err)),
		attribute.Bool("http.response.error.has", err != nil),
		attribute.Bool("http.response.error.net", netErr != nil),
		attribute.Bool("http.response.error.timeout", netErr != nil && netErr.Timeout()),
		attribute.Bool("http.response.error.cancelled", errors.Is(err, context.Canceled)),
		attribute.Bool("http.response.error.deadline_exceeded", errors.Is(err, context.DeadlineExceeded)),
	}
}

func (v *attributes) headerAttrs(prefix string, header http.Header, skipUserAgent bool) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	for key, values := range header {
		key = strings.ToLower(key)
		if skipUserAgent && key == "user-agent" {
			// Skip, it is already present as the http.user_agent
			continue
		}
		value := strings.Join(values, ";")
		if v.config.redactedHeaders.has(key) {
			value = maskedAttrValue
		} else if key == "referer" {
			// Previous URL of a redirect
			if refererURL, err := url.Parse(value); err == nil {
				value = v.redactURL(refererURL)
			}
		}
		attrs = append(attrs, attribute.String(prefix+key, value))
	}
	sortAttrs(attrs)
	return attrs
}

func (v *attributes) redactURL(in *url.URL) string {
	out := *in
	if out.RawQuery != "" {
		query := out.Query()
		for k := range query {
			if v.config.redactedQueryParams.has(k) {
				query.Set(k, maskedAttrValue)
			}
		}
		out.RawQuery = query.Encode()
	}
	return mustURLPathUnescape(out.String())
}

func sortAttrs(attrs []attribute.KeyValue) {
	sort.SliceStable(attrs, func(i, j int) bool {
		return attrs[i].Key < attrs[j].Key
	})
}

func mustURLPathUnescape(in string) string {
	out, err := url.PathUnescape(in)
	if err != nil {
		return in
	}
	return out
}
