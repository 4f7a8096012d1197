package trace

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"os"
	"strings"
	"time"

	"github.com/giphy-random/go-client/pkg/client/decode"
	"github.com/giphy-random/go-client/pkg/rest"
)

const (
	dumpMaxLength  = 2000
	dumpFullEnv    = "HTTP_DUMP_TRACE_FULL"
	dumpSeparator  = "------"
	dumpStartLine  = ">>>>>> HTTP DUMP"
	dumpEndLine    = "<<<<<< HTTP DUMP END"
	dumpResultLine = ">>>>>> HTTP REQUEST PROCESSED"
)

// requestDump collects the state of one request for the DumpTracer.
type requestDump struct {
	wr      io.Writer
	options rest.TransportOptions

	method     string
	uri        string
	request    []byte
	statusCode int
	err        error
	startedAt  time.Time
	headersAt  time.Time
}

// DumpTracer dumps HTTP requests and responses to the writer.
// A streamed response body is not dumped.
// Output may contain unmasked tokens, do not use it in production!
func DumpTracer(wr io.Writer) Factory {
	return func(ctx context.Context, options rest.TransportOptions) (context.Context, *ClientTrace) {
		d := &requestDump{wr: wr, options: options}
		return ctx, &ClientTrace{
			HTTPRequestStart: d.httpRequestStart,
			HTTPRequestDone:  d.httpRequestDone,
			RequestProcessed: d.requestProcessed,
		}
	}
}

func (d *requestDump) httpRequestStart(r *http.Request) {
	d.startedAt = time.Now()
	d.method = r.Method
	d.uri = r.URL.RequestURI()
	d.request, _ = httputil.DumpRequestOut(r, true)
}

func (d *requestDump) httpRequestDone(r *http.Response, err error) {
	d.err = err
	// The response is nil on a network error
	if r != nil {
		d.statusCode = r.StatusCode
		d.headersAt = time.Now()
	}

	d.println()
	d.println(dumpStartLine)
	d.block(string(d.request))
	d.println(dumpSeparator)
	if err != nil {
		d.println("ERROR: ", err)
	} else {
		d.response(r)
	}
	d.println(dumpEndLine)
}

func (d *requestDump) response(r *http.Response) {
	if headers, err := httputil.DumpResponse(r, false); err == nil {
		d.println(strings.TrimSpace(string(headers)))
	} else {
		d.println("cannot dump response headers: ", err)
	}

	if r.Body == nil || r.Body == http.NoBody || d.options.ResponseType == rest.ResponseTypeStream {
		return
	}

	// The raw body is buffered and set back to the response, so it can be processed by the client.
	var raw bytes.Buffer
	decoded, err := readDecoded(io.TeeReader(r.Body, &raw), r.Header.Get("Content-Encoding"))
	_, _ = io.Copy(&raw, r.Body) // unread rest, for example after a decode error
	_ = r.Body.Close()
	r.Body = io.NopCloser(&raw)
	if err != nil {
		d.println("cannot read response body: ", err)
	}
	d.println(dumpSeparator)
	d.block(decoded)
}

func (d *requestDump) requestProcessed(_ any, err error) {
	if err != nil {
		d.err = err
	}
	d.println()
	d.println(
		dumpResultLine, "| ", d.method, d.uri, d.statusCode,
		"| ERROR:", d.err,
		"| HEADERS AT:", d.headersAt.Sub(d.startedAt),
		"| DONE AT:", time.Since(d.startedAt),
	)
}

// block writes the text, shortened to dumpMaxLength, if the env variable dumpFullEnv is not "true".
func (d *requestDump) block(text string) {
	text = strings.TrimSpace(text)
	if len(text) <= dumpMaxLength || os.Getenv(dumpFullEnv) == "true" { //nolint:forbidigo
		d.println(text)
		return
	}
	d.println(text[:dumpMaxLength])
	d.println(fmt.Sprintf("... (set env %s=true to see full output)", dumpFullEnv))
}

func (d *requestDump) println(a ...any) {
	_, _ = fmt.Fprintln(d.wr, a...)
}

func readDecoded(r io.Reader, encoding string) (string, error) {
	body, err := decode.Decode(io.NopCloser(r), encoding)
	if err != nil {
		return "", err
	}
	var out strings.Builder
	_, err = io.Copy(&out, body)
	return out.String(), err
}
