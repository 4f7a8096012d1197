package trace

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/giphy-random/go-client/pkg/rest"
)

// ZapTracer logs requests by a zap.Logger.
// Sent requests, including redirects, are logged at the debug level, the processed request at the info level.
// A failed request is logged at the warn level.
// Values of the redactedQueryParams, DefaultRedactedQueryParams if empty, are masked in URLs and errors.
func ZapTracer(logger *zap.Logger, redactedQueryParams ...string) Factory {
	if len(redactedQueryParams) == 0 {
		redactedQueryParams = DefaultRedactedQueryParams
	}
	redacted := redactedSet(redactedQueryParams)

	var idGenerator uint64
	return func(ctx context.Context, options rest.TransportOptions) (context.Context, *ClientTrace) {
		log := logger.With(zap.Uint64("request.id", atomic.AddUint64(&idGenerator, 1)))
		secrets := NewSecrets(options, redacted)

		var startTime time.Time
		var lastURL string
		var statusCode int

		t := &ClientTrace{}
		t.HTTPRequestStart = func(r *http.Request) {
			startTime = time.Now()
			secrets.AddQuery(r.URL.Query(), redacted)
			lastURL = redactURL(r.URL, redacted)
			log.Debug("http request started", zap.String("http.method", r.Method), zap.String("http.url", lastURL))
		}
		t.HTTPRequestDone = func(r *http.Response, err error) {
			fields := []zap.Field{zap.String("http.url", lastURL), zap.Duration("duration", time.Since(startTime))}
			if r != nil {
				statusCode = r.StatusCode
				fields = append(fields, zap.Int("http.status_code", r.StatusCode))
			}
			if err != nil {
				fields = append(fields, zap.Error(secrets.RedactError(err, redactedValue)))
			}
			log.Debug("http request done", fields...)
		}
		t.RequestProcessed = func(_ any, err error) {
			fields := []zap.Field{
				zap.String("http.method", options.Method),
				zap.String("http.url", lastURL),
				zap.Int("http.status_code", statusCode),
				zap.Duration("duration", time.Since(startTime)),
			}
			if err != nil {
				log.Warn("request failed", append(fields, zap.Error(secrets.RedactError(err, redactedValue)))...)
				return
			}
			log.Info("request processed", fields...)
		}
		return ctx, t
	}
}
