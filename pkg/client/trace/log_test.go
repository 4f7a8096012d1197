package trace_test

import (
	"context"
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

func TestLogTracer(t *testing.T) {
	t.Parallel()

	// Mocked response
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", `https://example.com`, httpmock.NewStringResponder(http.StatusOK, "OK"))
	transport.RegisterResponder("GET", `https://example.com/missing`, httpmock.NewStringResponder(http.StatusNotFound, "Not Found"))

	// Logs for trace testing
	var logs strings.Builder

	// Create client
	ctx := context.Background()
	c := client.New().
		WithTransport(transport).
		AndTrace(trace.LogTracer(&logs))
	d := rest.NewDispatcher(c)

	// Expected trace
	expected := `
HTTP_REQUEST[0001] START GET "https://example.com"
HTTP_REQUEST[0001] DONE  GET "https://example.com" | 200 | %s
HTTP_REQUEST[0001] BODY  GET "https://example.com" | %s
HTTP_REQUEST[0002] START GET "https://example.com/missing"
HTTP_REQUEST[0002] DONE  GET "https://example.com/missing" | 404 | %s
HTTP_REQUEST[0002] BODY  GET "https://example.com/missing" | %s | error=request GET "https://example.com/missing" failed: 404 Not Found
`

	// Test
	res, err := d.Get(ctx, "https://example.com", rest.WithResponseType(rest.ResponseTypeText))
	require.NoError(t, err)
	assert.Equal(t, "OK", res.Data)
	_, err = d.Get(ctx, "https://example.com/missing")
	require.Error(t, err)
	wildcards.Assert(t, strings.TrimLeft(expected, "\n"), logs.String())
}

func TestLogTracer_RedactedQuery(t *testing.T) {
	t.Parallel()

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", `https://example.com/search`, httpmock.NewStringResponder(http.StatusOK, "OK"))
	transport.RegisterResponder("GET", `https://example.com/missing`, httpmock.NewStringResponder(http.StatusNotFound, "Not Found"))

	var logs strings.Builder
	c := client.New().WithTransport(transport).AndTrace(trace.LogTracer(&logs))

	_, err := rest.NewDispatcher(c).Get(
		context.Background(),
		"https://example.com/search",
		rest.WithParam("api_key", "my-secret"),
		rest.WithParam("q", "cat"),
		rest.WithResponseType(rest.ResponseTypeText),
	)
	require.NoError(t, err)
	assert.NotContains(t, logs.String(), "my-secret")
	assert.Contains(t, logs.String(), `START GET "https://example.com/search?api_key=REDACTED&q=cat"`)

	// The error contains the request URL
	_, err = rest.NewDispatcher(c).Get(context.Background(), "https://example.com/missing", rest.WithParam("api_key", "my-secret"))
	require.Error(t, err)
	assert.NotContains(t, logs.String(), "my-secret")
	assert.Contains(t, logs.String(), `| error=request GET "https://example.com/missing?api_key=REDACTED" failed: 404 Not Found`)
}
