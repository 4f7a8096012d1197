package rest_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/keboola/go-utils/pkg/orderedmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giphy-random/go-client/pkg/rest"
)

func formHeader() http.Header {
	return http.Header{"Content-Type": []string{"application/x-www-form-urlencoded"}}
}

func TestTransformURLEncoded_Map(t *testing.T) {
	t.Parallel()

	out, err := rest.TransformURLEncoded(map[string]any{"a": 1, "b": 2}, formHeader())
	require.NoError(t, err)
	assert.Equal(t, "a=1&b=2", out)
}

func TestTransformURLEncoded_ContentTypeCaseInsensitive(t *testing.T) {
	t.Parallel()

	header := http.Header{}
	header.Set("content-type", "Application/X-WWW-Form-URLEncoded")
	out, err := rest.TransformURLEncoded(map[string]any{"a": 1}, header)
	require.NoError(t, err)
	assert.Equal(t, "a=1", out)
}

func TestTransformURLEncoded_Identity(t *testing.T) {
	t.Parallel()

	data := map[string]any{"a": 1}

	// JSON content type
	out, err := rest.TransformURLEncoded(data, http.Header{"Content-Type": []string{"application/json"}})
	require.NoError(t, err)
	assert.Equal(t, data, out)

	// No content type
	out, err = rest.TransformURLEncoded(data, http.Header{})
	require.NoError(t, err)
	assert.Equal(t, data, out)

	// Content type with parameters is not an exact match
	out, err = rest.TransformURLEncoded(data, http.Header{"Content-Type": []string{"application/x-www-form-urlencoded; charset=utf-8"}})
	require.NoError(t, err)
	assert.Equal(t, data, out)

	// Scalar values
	for _, scalar := range []any{"a=1", []byte("a=1"), 123, nil} {
		out, err = rest.TransformURLEncoded(scalar, formHeader())
		require.NoError(t, err)
		assert.Equal(t, scalar, out)
	}
}

func TestTransformURLEncoded_Escaping(t *testing.T) {
	t.Parallel()

	data := orderedmap.New()
	data.Set("q", "funny cats & dogs")
	data.Set("emoji", "ü")
	data.Set("unreserved", "-_.!~*'()")
	data.Set("a/b", "c=d")
	out, err := rest.TransformURLEncoded(data, formHeader())
	require.NoError(t, err)
	assert.Equal(t, "q=funny%20cats%20%26%20dogs&emoji=%C3%BC&unreserved=-_.!~*'()&a%2Fb=c%3Dd", out)
}

func TestTransformURLEncoded_Struct(t *testing.T) {
	t.Parallel()

	type Embedded struct {
		Offset int `json:"offset"`
	}
	type params struct {
		Query  string `json:"q"`
		Limit  int    `json:"limit"`
		Rating string `json:"rating,omitempty"`
		Ignore string `json:"-"`
		Embedded
		Flag bool
	}
	out, err := rest.TransformURLEncoded(&params{Query: "cats", Limit: 5, Ignore: "x", Embedded: Embedded{Offset: 10}, Flag: true}, formHeader())
	require.NoError(t, err)
	assert.Equal(t, "q=cats&limit=5&offset=10&Flag=true", out)
}

func TestTransformURLEncoded_NestedAndSlices(t *testing.T) {
	t.Parallel()

	out, err := rest.TransformURLEncoded(map[string]any{"ids": []string{"a", "b"}, "n": nil}, formHeader())
	require.NoError(t, err)
	assert.Equal(t, "ids=a%2Cb&n=", out)

	// Nested lists are flattened, nested objects are encoded as JSON
	out, err = rest.TransformURLEncoded(map[string]any{"a": 1, "b": []any{[]int{2, 3}, 4}, "c": map[string]int{"d": 5}}, formHeader())
	require.NoError(t, err)
	assert.Equal(t, "a=1&b=2%2C3%2C4&c=%7B%22d%22%3A5%7D", out)

	out, err = rest.TransformURLEncoded([]string{"x", "y"}, formHeader())
	require.NoError(t, err)
	assert.Equal(t, "0=x&1=y", out)

	out, err = rest.TransformURLEncoded(url.Values{"b": {"2", "3"}, "a": {"1"}}, formHeader())
	require.NoError(t, err)
	assert.Equal(t, "a=1&b=2&b=3", out)
}

func TestTransformJSON(t *testing.T) {
	t.Parallel()

	// Composite value is encoded, content type is set
	header := http.Header{}
	out, err := rest.TransformJSON(map[string]any{"a": 1}, header)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), out)
	assert.Equal(t, "application/json", header.Get("Content-Type"))

	// Existing content type is kept
	header = http.Header{"Content-Type": []string{"application/vnd.api+json"}}
	_, err = rest.TransformJSON(map[string]any{"a": 1}, header)
	require.NoError(t, err)
	assert.Equal(t, "application/vnd.api+json", header.Get("Content-Type"))

	// Passthrough
	header = http.Header{}
	out, err = rest.TransformJSON("a=1", header)
	require.NoError(t, err)
	assert.Equal(t, "a=1", out)
	assert.Empty(t, header.Get("Content-Type"))

	reader := strings.NewReader("raw")
	out, err = rest.TransformJSON(reader, header)
	require.NoError(t, err)
	assert.Same(t, reader, out)

	out, err = rest.TransformJSON(nil, header)
	require.NoError(t, err)
	assert.Nil(t, out)

	// Form values
	header = http.Header{}
	out, err = rest.TransformJSON(url.Values{"a": {"1"}}, header)
	require.NoError(t, err)
	assert.Equal(t, "a=1", out)
	assert.Equal(t, "application/x-www-form-urlencoded", header.Get("Content-Type"))
}

func TestApplyTransforms_DefaultChain(t *testing.T) {
	t.Parallel()

	transportOpts, _ := rest.BuildOptions(rest.NewOptions(rest.WithHeader("Content-Type", "application/x-www-form-urlencoded")))
	out, err := rest.ApplyTransforms(map[string]any{"a": 1, "b": 2}, transportOpts.Header, transportOpts.TransformRequest)
	require.NoError(t, err)
	assert.Equal(t, "a=1&b=2", out)

	transportOpts, _ = rest.BuildOptions(rest.Options{})
	out, err = rest.ApplyTransforms(map[string]any{"a": 1}, transportOpts.Header, transportOpts.TransformRequest)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), out)
	assert.Equal(t, "application/json", transportOpts.Header.Get("Content-Type"))
}

func TestBodyReader(t *testing.T) {
	t.Parallel()

	r, err := rest.BodyReader(nil)
	require.NoError(t, err)
	assert.Nil(t, r)

	r, err = rest.BodyReader("foo")
	require.NoError(t, err)
	assert.NotNil(t, r)

	_, err = rest.BodyReader(map[string]string{"a": "b"})
	assert.EqualError(t, err, `unsupported request body type "map[string]string", add a TransformFunc to encode it`)
}
