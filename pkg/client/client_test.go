package client_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giphy-random/go-client/pkg/client"
	"github.com/giphy-random/go-client/pkg/rest"
)

type testStruct struct {
	Foo string `json:"foo"`
}

type testError struct {
	ErrorMsg string `json:"error"`
	response *rest.Response
}

func (e *testError) Error() string {
	return e.ErrorMsg
}

func (e *testError) SetResponse(response *rest.Response) {
	e.response = response
}

func newDispatcher(c client.Client) rest.Dispatcher {
	return rest.NewDispatcher(c)
}

func TestNew(t *testing.T) {
	t.Parallel()
	c := client.New()
	assert.NotNil(t, c)
}

func TestRequest(t *testing.T) {
	t.Parallel()

	// Mocked response
	c, transport := client.NewMockedClient()
	transport.RegisterResponder("GET", `https://example.com`, httpmock.NewStringResponder(200, "test"))

	res, err := newDispatcher(c).Get(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "test", res.Data)
	assert.Equal(t, 1, transport.GetCallCountInfo()["GET https://example.com"])
}

func TestJSONMapResult(t *testing.T) {
	t.Parallel()

	// Mocked response
	c, transport := client.NewMockedClient()
	transport.RegisterResponder("GET", `https://example.com`, httpmock.NewJsonResponderOrPanic(200, map[string]any{"foo": "bar"}))

	// Generic data
	res, err := newDispatcher(c).Get(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"foo": "bar"}, res.Data)

	// Result target
	resultDef := make(map[string]any)
	res, err = newDispatcher(c).Get(context.Background(), "https://example.com", rest.WithResult(&resultDef))
	require.NoError(t, err)
	assert.Same(t, &resultDef, res.Data)
	assert.Equal(t, map[string]any{"foo": "bar"}, resultDef)
}

func TestJSONStructResult(t *testing.T) {
	t.Parallel()

	// Mocked response
	c, transport := client.NewMockedClient()
	transport.RegisterResponder("GET", `https://example.com`, httpmock.NewJsonResponderOrPanic(200, map[string]any{"foo": "bar"}))

	resultDef := &testStruct{}
	res, err := newDispatcher(c).Get(context.Background(), "https://example.com", rest.WithResult(resultDef))
	require.NoError(t, err)
	assert.Same(t, resultDef, res.Data)
	assert.Equal(t, &testStruct{Foo: "bar"}, resultDef)
}

func TestInvalidJSONResult(t *testing.T) {
	t.Parallel()

	// Mocked response
	c, transport := client.NewMockedClient()
	transport.RegisterResponder("GET", `https://example.com`, func(request *http.Request) (*http.Response, error) {
		res := httpmock.NewStringResponse(200, "{invalid")
		res.Header.Set("Content-Type", "application/json")
		return res, nil
	})

	_, err := newDispatcher(c).Get(context.Background(), "https://example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `cannot process request GET "https://example.com": cannot decode JSON result:`)
}

func TestTextAndBytesResult(t *testing.T) {
	t.Parallel()

	// Mocked response
	c, transport := client.NewMockedClient()
	transport.RegisterResponder("GET", `https://example.com`, httpmock.NewJsonResponderOrPanic(200, map[string]any{"foo": "bar"}))
	d := newDispatcher(c)

	res, err := d.Get(context.Background(), "https://example.com", rest.WithResponseType(rest.ResponseTypeText))
	require.NoError(t, err)
	assert.Equal(t, `{"foo":"bar"}`, res.Data)

	var out []byte
	res, err = d.Get(context.Background(), "https://example.com", rest.WithResponseType(rest.ResponseTypeBytes), rest.WithResult(&out))
	require.NoError(t, err)
	assert.Same(t, &out, res.Data)
	assert.Equal(t, []byte(`{"foo":"bar"}`), out)
}

func TestStreamResult(t *testing.T) {
	t.Parallel()

	// Mocked response
	c, transport := client.NewMockedClient()
	transport.RegisterResponder("GET", `https://example.com/image.gif`, httpmock.NewBytesResponder(200, []byte("GIF89a...")))

	res, err := newDispatcher(c).Get(context.Background(), "https://example.com/image.gif", rest.WithResponseType(rest.ResponseTypeStream))
	require.NoError(t, err)
	require.NotNil(t, res.Body)
	assert.Nil(t, res.Data)

	// Body is read by the caller, after the Do method
	content, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, "GIF89a...", string(content))
	require.NoError(t, res.Body.Close())
}

func TestStreamResult_RejectedStatus(t *testing.T) {
	t.Parallel()

	// Mocked response
	c, transport := client.NewMockedClient()
	transport.RegisterResponder("GET", `https://example.com/image.gif`, httpmock.NewStringResponder(404, "not found"))

	_, err := newDispatcher(c).Get(context.Background(), "https://example.com/image.gif", rest.WithResponseType(rest.ResponseTypeStream))
	var statusErr *rest.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode())
	assert.Equal(t, "not found", statusErr.Response.Data)
}

func TestJSONErrorResult(t *testing.T) {
	t.Parallel()

	// Mocked response
	c, transport := client.NewMockedClient()
	transport.RegisterResponder("GET", `https://example.com`, httpmock.NewJsonResponderOrPanic(400, map[string]any{"error": "error message"}))

	errDef := &testError{}
	_, err := newDispatcher(c).Get(context.Background(), "https://example.com", rest.WithErrorResult(errDef))
	require.Error(t, err)
	assert.Equal(t, `request GET "https://example.com" failed: 400 Bad Request: error message`, err.Error())

	// Error result is filled and can be unwrapped
	var target *testError
	require.ErrorAs(t, err, &target)
	assert.Same(t, errDef, target)
	assert.Equal(t, "error message", target.ErrorMsg)
	require.NotNil(t, target.response)
	assert.Equal(t, http.StatusBadRequest, target.response.StatusCode)
}

func TestWithBaseURL(t *testing.T) {
	t.Parallel()

	// Mocked response
	c, transport := client.NewMockedClient()
	transport.RegisterResponder("GET", "https://example.com/baz", httpmock.NewStringResponder(200, "test"))

	_, err := newDispatcher(c.WithBaseURL("https://example.com")).Get(context.Background(), "baz")
	require.NoError(t, err)
	assert.Equal(t, 1, transport.GetCallCountInfo()["GET https://example.com/baz"])
}

func TestQueryParams(t *testing.T) {
	t.Parallel()

	// Mocked response
	c, transport := client.NewMockedClient()
	transport.RegisterResponder("GET", "https://example.com/search", func(request *http.Request) (*http.Response, error) {
		assert.Equal(t, "a=1&b=2&q=funny+cats", request.URL.RawQuery)
		return httpmock.NewStringResponse(200, "test"), nil
	})

	_, err := newDispatcher(c).Get(context.Background(), "https://example.com/search?b=2", rest.WithParam("q", "funny cats"), rest.WithParam("a", "1"))
	require.NoError(t, err)
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestRequestContext(t *testing.T) {
	t.Parallel()

	// Mocked response
	c, transport := client.NewMockedClient()
	transport.RegisterResponder("GET", `https://example.com`, func(request *http.Request) (*http.Response, error) {
		// Request context should be used by HTTP request
		assert.Equal(t, "testValue", request.Context().Value("testKey"))
		return httpmock.NewStringResponse(200, "test"), nil
	})
	//lint:ignore SA1029 it is ok to use "testKey" without custom type in this test
	ctx := context.WithValue(context.Background(), "testKey", "testValue") //nolint:staticcheck
	_, err := newDispatcher(c).Get(ctx, "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, transport.GetCallCountInfo()["GET https://example.com"])
}

func TestDefaultHeaders(t *testing.T) {
	t.Parallel()

	// Mocked response
	c, transport := client.NewMockedClient()
	transport.RegisterResponder("GET", "https://example.com", func(request *http.Request) (*http.Response, error) {
		assert.Equal(t, http.Header{
			"User-Agent":      []string{"giphy-random-go-client"},
			"Accept-Encoding": []string{"gzip, br"},
			"Cache-Control":   []string{"no-cache"},
			"Pragma":          []string{"no-cache"},
		}, request.Header)
		return httpmock.NewStringResponse(200, "test"), nil
	})

	_, err := newDispatcher(c).Get(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, transport.GetCallCountInfo()["GET https://example.com"])
}

func TestWithUserAgentAndHeaders(t *testing.T) {
	t.Parallel()

	// Mocked response
	c, transport := client.NewMockedClient()
	transport.RegisterResponder("GET", `https://example.com`, func(request *http.Request) (*http.Response, error) {
		assert.Equal(t, http.Header{
			"User-Agent":      []string{"my-user-agent"},
			"Accept-Encoding": []string{"gzip, br"},
			"My-Header":       []string{"request-value"},
			"Key1":            []string{"value1"},
			"Key2":            []string{"value2"},
		}, request.Header)
		return httpmock.NewStringResponse(200, "test"), nil
	})

	c = c.
		WithUserAgent("my-user-agent").
		WithHeader("my-header", "my-value").
		WithHeaders(map[string]string{"key1": "value1", "key2": "value2"})

	// Request header overrides the client header
	_, err := newDispatcher(c).Get(context.Background(), "https://example.com", rest.WithNoCache(false), rest.WithHeader("My-Header", "request-value"))
	require.NoError(t, err)
	assert.Equal(t, 1, transport.GetCallCountInfo()["GET https://example.com"])
}

func TestClientIsImmutable(t *testing.T) {
	t.Parallel()

	// Mocked response
	c, transport := client.NewMockedClient()
	transport.RegisterResponder("GET", `https://example.com`, func(request *http.Request) (*http.Response, error) {
		assert.Empty(t, request.Header.Get("My-Header"))
		return httpmock.NewStringResponse(200, "test"), nil
	})

	_ = c.WithHeader("my-header", "my-value")
	_, err := newDispatcher(c).Get(context.Background(), "https://example.com")
	require.NoError(t, err)
}

func TestJSONBody(t *testing.T) {
	t.Parallel()

	// Mocked response
	c, transport := client.NewMockedClient()
	transport.RegisterResponder("POST", `https://example.com/items`, func(request *http.Request) (*http.Response, error) {
		body, err := io.ReadAll(request.Body)
		assert.NoError(t, err)
		assert.Equal(t, `{"a":1}`, string(body))
		assert.Equal(t, "application/json", request.Header.Get("Content-Type"))
		return httpmock.NewJsonResponse(201, map[string]any{"id": "abc"})
	})

	res, err := newDispatcher(c).Post(context.Background(), "https://example.com/items", map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, map[string]any{"id": "abc"}, res.Data)
}

func TestFormBody(t *testing.T) {
	t.Parallel()

	// Mocked response
	c, transport := client.NewMockedClient()
	transport.RegisterResponder("PUT", `https://example.com/items`, func(request *http.Request) (*http.Response, error) {
		body, err := io.ReadAll(request.Body)
		assert.NoError(t, err)
		assert.Equal(t, `a=1&b=2`, string(body))
		assert.Equal(t, "application/x-www-form-urlencoded", request.Header.Get("Content-Type"))
		return httpmock.NewStringResponse(204, ""), nil
	})

	res, err := newDispatcher(c).Put(
		context.Background(),
		"https://example.com/items",
		map[string]any{"a": 1, "b": 2},
		rest.WithHeader("Content-Type", "application/x-www-form-urlencoded"),
	)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	assert.Nil(t, res.Data)
}

func TestInvalidBody(t *testing.T) {
	t.Parallel()

	c, transport := client.NewMockedClient()
	_, err := newDispatcher(c).Post(context.Background(), "https://example.com", map[string]any{"fn": func() {}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `request POST "https://example.com": cannot prepare request body: cannot encode JSON body:`)
	assert.Equal(t, 0, transport.GetTotalCallCount())
}

func TestGzipResponse(t *testing.T) {
	t.Parallel()

	var body bytes.Buffer
	w := gzip.NewWriter(&body)
	_, _ = w.Write([]byte(`{"foo":"bar"}`))
	require.NoError(t, w.Close())

	// Mocked response
	c, transport := client.NewMockedClient()
	transport.RegisterResponder("GET", `https://example.com`, func(request *http.Request) (*http.Response, error) {
		res := httpmock.NewBytesResponse(200, body.Bytes())
		res.Header.Set("Content-Type", "application/json")
		res.Header.Set("Content-Encoding", "gzip")
		return res, nil
	})

	resultDef := &testStruct{}
	_, err := newDispatcher(c).Get(context.Background(), "https://example.com", rest.WithResult(resultDef))
	require.NoError(t, err)
	assert.Equal(t, "bar", resultDef.Foo)
}

func TestMaxContentLength(t *testing.T) {
	t.Parallel()

	// Mocked response
	c, transport := client.NewMockedClient()
	transport.RegisterResponder("GET", `https://example.com`, httpmock.NewStringResponder(200, strings.Repeat("x", 100)))
	d := newDispatcher(c)

	_, err := d.Get(context.Background(), "https://example.com", rest.WithMaxContentLength(10))
	var lengthErr *rest.ContentLengthError
	require.ErrorAs(t, err, &lengthErr)
	assert.Equal(t, `request GET "https://example.com" failed: response body exceeds the limit of 10 bytes`, err.Error())

	// Stream is limited too
	res, err := d.Get(context.Background(), "https://example.com", rest.WithMaxContentLength(100), rest.WithResponseType(rest.ResponseTypeStream))
	require.NoError(t, err)
	content, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Len(t, content, 100)
	require.NoError(t, res.Body.Close())
}

func TestRequestTimeout(t *testing.T) {
	t.Parallel()

	// Mocked response
	c, transport := client.NewMockedClient()
	transport.RegisterResponder("GET", "https://example.com", func(request *http.Request) (*http.Response, error) {
		time.Sleep(100 * time.Millisecond) // <<<<<<<
		return httpmock.NewStringResponse(200, "test"), nil
	})

	_, err := newDispatcher(c).Get(context.Background(), "https://example.com", rest.WithTimeout(5*time.Millisecond))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `request GET "https://example.com" failed: timeout after`)
}

func TestContext_Canceled(t *testing.T) {
	t.Parallel()

	// Mocked response
	c, transport := client.NewMockedClient()
	transport.RegisterResponder("GET", "https://example.com", func(request *http.Request) (*http.Response, error) {
		time.Sleep(100 * time.Millisecond) // <<<<<<<
		return httpmock.NewStringResponse(200, "test"), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	wg := rest.NewWaitGroup(ctx)
	wg.Send(newDispatcher(c).Prepare(rest.GetOptions("https://example.com")))

	time.Sleep(50 * time.Millisecond)
	cancel()

	err := wg.Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `request GET "https://example.com" failed: canceled after`)
}

func TestCookies_WithCredentials(t *testing.T) {
	t.Parallel()

	// Mocked response
	c, transport := client.NewMockedClient()
	transport.RegisterResponder("POST", "https://example.com/login", func(request *http.Request) (*http.Response, error) {
		res := httpmock.NewStringResponse(200, "OK")
		res.Header.Set("Set-Cookie", "session=abc; Path=/")
		return res, nil
	})
	var cookies []string
	transport.RegisterResponder("POST", "https://example.com/items", func(request *http.Request) (*http.Response, error) {
		cookies = append(cookies, request.Header.Get("Cookie"))
		return httpmock.NewStringResponse(200, "OK"), nil
	})
	transport.RegisterResponder("GET", "https://example.com/items", func(request *http.Request) (*http.Response, error) {
		cookies = append(cookies, request.Header.Get("Cookie"))
		return httpmock.NewStringResponse(200, "OK"), nil
	})
	d := newDispatcher(c)
	ctx := context.Background()

	// POST always includes credentials, GET doesn't
	_, err := d.Post(ctx, "https://example.com/login", nil)
	require.NoError(t, err)
	_, err = d.Post(ctx, "https://example.com/items", nil)
	require.NoError(t, err)
	_, err = d.Get(ctx, "https://example.com/items")
	require.NoError(t, err)
	_, err = d.Get(ctx, "https://example.com/items", rest.WithCredentials())
	require.NoError(t, err)
	assert.Equal(t, []string{"session=abc", "", "session=abc"}, cookies)
}

func TestCancelOnClose(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	body := client.CancelOnClose(io.NopCloser(strings.NewReader("GIF89a")), cancel)

	content, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "GIF89a", string(content))
	require.NoError(t, ctx.Err())

	require.NoError(t, body.Close())
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
