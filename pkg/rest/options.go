package rest

import (
	"net/http"
	"net/url"
	"reflect"
	"time"
)

// RequestTimeout is the default request timeout.
const RequestTimeout = 30 * time.Second

// SlowRequestTimeout is the request timeout used when the Slow flag is set.
const SlowRequestTimeout = 120 * time.Second

// MaxContentLength is the default maximum size of a response body in bytes.
const MaxContentLength = 1_000_000

const (
	ContentTypeApplicationJSON = "application/json"
	ContentTypeFormURLEncoded  = "application/x-www-form-urlencoded"
)

// ResponseType defines how the Transport decodes a response body.
type ResponseType string

const (
	// ResponseTypeJSON decodes the body as JSON, an undecodable non-JSON body is returned as a string.
	ResponseTypeJSON = ResponseType("json")
	// ResponseTypeText returns the body as a string.
	ResponseTypeText = ResponseType("text")
	// ResponseTypeBytes returns the body as []byte.
	ResponseTypeBytes = ResponseType("bytes")
	// ResponseTypeStream leaves the body unread, the caller must close Response.Body.
	ResponseTypeStream = ResponseType("stream")
)

// Options are caller-supplied settings of one request.
// A zero value of a field means "not set", so a lower layer applies, see Merge.
type Options struct {
	Method string
	URL    string
	// Params are added to the URL query.
	Params url.Values
	Header http.Header
	// Data is the request body before the TransformRequest chain is applied.
	Data             any
	Timeout          time.Duration
	MaxContentLength int64
	ResponseType     ResponseType
	// ValidateStatus decides which status codes are successful, nil means DefaultValidateStatus.
	ValidateStatus   StatusPredicate
	TransformRequest []TransformFunc
	// WithCredentials enables cookies of the Transport, if it has a cookie jar.
	WithCredentials bool
	// Result is a target for the decoded body of a successful response.
	Result any
	// ErrorResult is a target for the decoded body of a rejected response.
	ErrorResult error

	// Slow selects the SlowRequestTimeout. It is consumed by BuildOptions and never sent.
	Slow bool
	// NoCache forces the no-cache headers, nil means true. It is consumed by BuildOptions and never sent.
	NoCache *bool
	// OKStatuses extend the ValidateStatus predicate. They are consumed by BuildOptions and never sent.
	OKStatuses []int
}

// TransportOptions are the merged Options without the internal-only fields.
type TransportOptions struct {
	Method           string
	URL              string
	Params           url.Values
	Header           http.Header
	Data             any
	Timeout          time.Duration
	MaxContentLength int64
	ResponseType     ResponseType
	ValidateStatus   StatusPredicate
	TransformRequest []TransformFunc
	WithCredentials  bool
	Result           any
	ErrorResult      error
}

// Option modifies the Options.
type Option func(o *Options)

// NewOptions applies the opts to empty Options.
func NewOptions(opts ...Option) Options {
	o := Options{}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func WithHeader(key, value string) Option {
	return func(o *Options) {
		o.Header = o.Header.Clone()
		if o.Header == nil {
			o.Header = make(http.Header)
		}
		o.Header.Set(key, value)
	}
}

func WithHeaders(headers map[string]string) Option {
	return func(o *Options) {
		for k, v := range headers {
			WithHeader(k, v)(o)
		}
	}
}

func WithParam(key, value string) Option {
	return func(o *Options) {
		o.Params = cloneValues(o.Params)
		o.Params.Set(key, value)
	}
}

func WithParams(params map[string]string) Option {
	return func(o *Options) {
		for k, v := range params {
			WithParam(k, v)(o)
		}
	}
}

func WithData(data any) Option {
	return func(o *Options) {
		o.Data = data
	}
}

func WithTimeout(v time.Duration) Option {
	return func(o *Options) {
		o.Timeout = v
	}
}

func WithMaxContentLength(v int64) Option {
	return func(o *Options) {
		o.MaxContentLength = v
	}
}

func WithResponseType(v ResponseType) Option {
	return func(o *Options) {
		o.ResponseType = v
	}
}

func WithValidateStatus(fn StatusPredicate) Option {
	return func(o *Options) {
		o.ValidateStatus = fn
	}
}

// WithTransformRequest replaces the whole default transform chain.
func WithTransformRequest(fns ...TransformFunc) Option {
	return func(o *Options) {
		o.TransformRequest = fns
	}
}

func WithCredentials() Option {
	return func(o *Options) {
		o.WithCredentials = true
	}
}

// WithResult registers a pointer for the decoded body of a successful response.
func WithResult(result any) Option {
	return func(o *Options) {
		o.Result = result
	}
}

// WithErrorResult registers a pointer for the decoded body of a rejected response.
func WithErrorResult(err error) Option {
	return func(o *Options) {
		o.ErrorResult = err
	}
}

func WithSlow() Option {
	return func(o *Options) {
		o.Slow = true
	}
}

func WithNoCache(v bool) Option {
	return func(o *Options) {
		o.NoCache = &v
	}
}

// WithOKStatuses adds non-2xx status codes accepted as a success.
func WithOKStatuses(statuses ...int) Option {
	return func(o *Options) {
		o.OKStatuses = append(append([]int{}, o.OKStatuses...), statuses...)
	}
}

// Merge merges the layers into new Options, a later layer has a higher precedence.
// Each non-zero field of a layer replaces the field from the lower layers,
// except Header and Params, which are merged per key.
// The layers are not modified.
func Merge(layers ...Options) Options {
	out := Options{Header: make(http.Header)}
	for _, l := range layers {
		if l.Method != "" {
			out.Method = l.Method
		}
		if l.URL != "" {
			out.URL = l.URL
		}
		if len(l.Params) > 0 {
			out.Params = mergeValues(out.Params, l.Params)
		}
		out.Header = mergeHeader(out.Header, l.Header)
		if !isNil(l.Data) {
			out.Data = l.Data
		}
		if l.Timeout != 0 {
			out.Timeout = l.Timeout
		}
		if l.MaxContentLength != 0 {
			out.MaxContentLength = l.MaxContentLength
		}
		if l.ResponseType != "" {
			out.ResponseType = l.ResponseType
		}
		if l.ValidateStatus != nil {
			out.ValidateStatus = l.ValidateStatus
		}
		if l.TransformRequest != nil {
			out.TransformRequest = append([]TransformFunc{}, l.TransformRequest...)
		}
		if l.WithCredentials {
			out.WithCredentials = true
		}
		if l.Result != nil {
			out.Result = l.Result
		}
		if l.ErrorResult != nil {
			out.ErrorResult = l.ErrorResult
		}
		if l.Slow {
			out.Slow = true
		}
		if l.NoCache != nil {
			v := *l.NoCache
			out.NoCache = &v
		}
		if l.OKStatuses != nil {
			out.OKStatuses = append([]int{}, l.OKStatuses...)
		}
	}
	return out
}

// BuildOptions merges user Options with the defaults.
//
// Layers in the order of increasing precedence:
//  1. internal defaults: no OKStatuses, NoCache enabled,
//  2. transport defaults: Timeout (RequestTimeout or SlowRequestTimeout), MaxContentLength,
//     ResponseTypeJSON and TransformRequest with TransformURLEncoded before DefaultTransformRequest,
//  3. user Options.
//
// Non-empty OKStatuses widen ValidateStatus, NoCache sets the no-cache headers over any user value.
// It returns the TransportOptions and the complete merged Options.
func BuildOptions(user Options) (TransportOptions, Options) {
	merged := Merge(internalDefaults(), transportDefaults(user.Slow), user)

	if len(merged.OKStatuses) > 0 {
		previous := merged.ValidateStatus
		if previous == nil {
			previous = DefaultValidateStatus
		}
		merged.ValidateStatus = Or(StatusIn(merged.OKStatuses...), previous)
	}

	if merged.NoCache == nil || *merged.NoCache {
		merged.Header.Set("Cache-Control", "no-cache")
		merged.Header.Set("Pragma", "no-cache")
	}

	return merged.transportOptions(), merged
}

func internalDefaults() Options {
	noCache := true
	return Options{OKStatuses: []int{}, NoCache: &noCache}
}

func transportDefaults(slow bool) Options {
	timeout := RequestTimeout
	if slow {
		timeout = SlowRequestTimeout
	}
	return Options{
		Timeout:          timeout,
		MaxContentLength: MaxContentLength,
		ResponseType:     ResponseTypeJSON,
		TransformRequest: append([]TransformFunc{TransformURLEncoded}, DefaultTransformRequest...),
	}
}

func (o Options) transportOptions() TransportOptions {
	return TransportOptions{
		Method:           o.Method,
		URL:              o.URL,
		Params:           o.Params,
		Header:           o.Header,
		Data:             o.Data,
		Timeout:          o.Timeout,
		MaxContentLength: o.MaxContentLength,
		ResponseType:     o.ResponseType,
		ValidateStatus:   o.ValidateStatus,
		TransformRequest: o.TransformRequest,
		WithCredentials:  o.WithCredentials,
		Result:           o.Result,
		ErrorResult:      o.ErrorResult,
	}
}

func mergeHeader(dst, src http.Header) http.Header {
	out := dst.Clone()
	if out == nil {
		out = make(http.Header)
	}
	for k, values := range src {
		out[http.CanonicalHeaderKey(k)] = append([]string{}, values...)
	}
	return out
}

func mergeValues(dst, src url.Values) url.Values {
	out := cloneValues(dst)
	for k, values := range src {
		out[k] = append([]string{}, values...)
	}
	return out
}

func cloneValues(in url.Values) url.Values {
	out := make(url.Values, len(in))
	for k, values := range in {
		out[k] = append([]string{}, values...)
	}
	return out
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
