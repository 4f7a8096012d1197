package trace

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"sync/atomic"
	"time"

	"github.com/giphy-random/go-client/pkg/rest"
)

// requestLog writes lines of one request, each prefixed by the request ID.
type requestLog struct {
	wr       io.Writer
	id       uint64
	redacted func(key string) bool
	secrets  *Secrets

	method      string
	url         string
	connStart   time.Time
	sentAt      time.Time
	headersAt   time.Time
	statusCode  int
	requestSent bool
}

// LogTracer writes one line for each stage of a request, the DefaultRedactedQueryParams are masked.
func LogTracer(wr io.Writer) Factory {
	redacted := redactedSet(DefaultRedactedQueryParams)
	var lastID uint64
	return func(ctx context.Context, options rest.TransportOptions) (context.Context, *ClientTrace) {
		l := &requestLog{wr: wr, id: atomic.AddUint64(&lastID, 1), redacted: redacted}
		l.secrets = NewSecrets(options, redacted)
		return ctx, &ClientTrace{
			ClientTrace: httptrace.ClientTrace{
				ConnectStart: func(string, string) { l.connStart = time.Now() },
				GotConn:      l.gotConn,
			},
			HTTPRequestStart: l.httpRequestStart,
			HTTPRequestDone:  l.httpRequestDone,
			RequestProcessed: l.requestProcessed,
		}
	}
}

func (l *requestLog) gotConn(info httptrace.GotConnInfo) {
	switch {
	case !info.Reused:
		l.printf(`CONN  %s "%s" | new conn | %s`, l.method, l.url, time.Since(l.connStart))
	case info.WasIdle:
		l.printf(`CONN  %s "%s" | reused conn`, l.method, l.url)
	default:
		l.printf(`CONN  %s "%s" | reused conn (was idle=%s)`, l.method, l.url, info.IdleTime)
	}
}

func (l *requestLog) httpRequestStart(r *http.Request) {
	l.requestSent = true
	l.method = r.Method
	l.secrets.AddQuery(r.URL.Query(), l.redacted)
	l.url = redactURL(r.URL, l.redacted)
	l.sentAt = time.Now()
	l.printf(`START %s "%s"`, l.method, l.url)
}

func (l *requestLog) httpRequestDone(r *http.Response, err error) {
	l.headersAt = time.Now()
	if err != nil {
		l.printf(`DONE  %s "%s" | %d | %s | error=%s`, l.method, l.url, l.statusCode, l.headersAt.Sub(l.sentAt), err)
		return
	}
	l.statusCode = r.StatusCode
	l.printf(`DONE  %s "%s" | %d | %s`, l.method, l.url, l.statusCode, l.headersAt.Sub(l.sentAt))
}

func (l *requestLog) requestProcessed(_ any, err error) {
	switch {
	case !l.requestSent:
		// For example, the request body cannot be encoded.
		l.printf(`FAIL  | error=%s`, err)
	case err != nil:
		l.printf(`BODY  %s "%s" | %s | error=%s`, l.method, l.url, time.Since(l.headersAt), err)
	default:
		l.printf(`BODY  %s "%s" | %s`, l.method, l.url, time.Since(l.headersAt))
	}
}

// printf writes the line, secret values in errors are masked.
func (l *requestLog) printf(format string, a ...any) {
	for i, v := range a {
		if err, ok := v.(error); ok {
			a[i] = l.secrets.RedactError(err, redactedValue)
		}
	}
	_, _ = fmt.Fprintf(l.wr, "HTTP_REQUEST[%04d] "+format+"\n", append([]any{l.id}, a...)...)
}
