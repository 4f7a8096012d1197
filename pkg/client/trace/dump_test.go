package trace_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/keboola/go-utils/pkg/wildcards"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giphy-random/go-client/pkg/client"
	"github.com/giphy-random/go-client/pkg/client/trace"
	"github.com/giphy-random/go-client/pkg/rest"
)

func TestDumpTracer(t *testing.T) {
	t.Parallel()

	// Mocked response
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", `https://example.com`, func(request *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("OK"))}, nil
	})

	// Logs for trace testing
	var logs strings.Builder

	// Create client
	ctx := context.Background()
	c := client.New().
		WithTransport(transport).
		AndTrace(trace.DumpTracer(&logs))

	// Expected trace
	expected := `
>>>>>> HTTP DUMP
GET / HTTP/1.1
Host: example.com
User-Agent: giphy-random-go-client
Accept-Encoding: gzip, br
Cache-Control: no-cache
Pragma: no-cache
------
HTTP/0.0 200 OK
%A
------
OK
<<<<<< HTTP DUMP END

>>>>>> HTTP REQUEST PROCESSED |  GET / 200 | ERROR: <nil> | HEADERS AT: %s | DONE AT: %s
`

	// Test
	res, err := rest.NewDispatcher(c).Get(ctx, "https://example.com", rest.WithResponseType(rest.ResponseTypeText))
	require.NoError(t, err)

	// Body has been buffered by the tracer, it is still available
	assert.Equal(t, "OK", res.Data)
	wildcards.Assert(t, strings.TrimSpace(expected), strings.TrimSpace(strings.ReplaceAll(logs.String(), "\r\n", "\n")))
}
