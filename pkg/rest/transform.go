package rest

import (
	"bytes"
	"encoding"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/keboola/go-utils/pkg/orderedmap"
	"github.com/spf13/cast"
)

// TransformFunc transforms an outgoing request body. It may modify the header.
type TransformFunc func(data any, header http.Header) (any, error)

// DefaultTransformRequest is the transform chain of the Transport, it runs after TransformURLEncoded.
var DefaultTransformRequest = []TransformFunc{TransformJSON} //nolint:gochecknoglobals

// ApplyTransforms runs the chain, the output of one function is the input of the next one.
func ApplyTransforms(data any, header http.Header, chain []TransformFunc) (any, error) {
	var err error
	for _, fn := range chain {
		if data, err = fn(data, header); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// TransformURLEncoded encodes a composite body (map, struct, slice, ordered map, url.Values)
// as "k1=v1&k2=v2", if the Content-Type header is "application/x-www-form-urlencoded".
// Otherwise, the data is returned unchanged.
//
// Keys and values are percent-encoded by the encodeURIComponent rules.
// Keys of an ordered map and fields of a struct keep their order, map keys are sorted.
func TransformURLEncoded(data any, header http.Header) (any, error) {
	if !strings.EqualFold(header.Get("Content-Type"), ContentTypeFormURLEncoded) {
		return data, nil
	}
	pairs, ok := formPairs(data)
	if !ok {
		return data, nil
	}
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, EncodeURIComponent(p.key)+"="+EncodeURIComponent(castToString(p.value)))
	}
	return strings.Join(out, "&"), nil
}

// TransformJSON encodes a composite body as JSON and sets the "application/json" content type, if it is not set.
// Strings, bytes and readers are returned unchanged,
// url.Values are encoded as a form with the "application/x-www-form-urlencoded" content type, if it is not set.
func TransformJSON(data any, header http.Header) (any, error) {
	if isNil(data) {
		return nil, nil
	}
	switch v := data.(type) {
	case string, []byte, io.Reader:
		return data, nil
	case url.Values:
		setContentTypeIfEmpty(header, ContentTypeFormURLEncoded)
		return v.Encode(), nil
	default:
		body, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf(`cannot encode JSON body: %w`, err)
		}
		setContentTypeIfEmpty(header, ContentTypeApplicationJSON)
		return body, nil
	}
}

// BodyReader converts the transformed body to a reader.
func BodyReader(data any) (io.Reader, error) {
	if isNil(data) {
		return nil, nil
	}
	switch v := data.(type) {
	case string:
		return strings.NewReader(v), nil
	case []byte:
		return bytes.NewReader(v), nil
	case io.Reader:
		return v, nil
	default:
		return nil, fmt.Errorf(`unsupported request body type "%T", add a TransformFunc to encode it`, data)
	}
}

// EncodeURIComponent escapes everything except A-Z a-z 0-9 - _ . ! ~ * ' ( ).
func EncodeURIComponent(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreservedURIComponent(c) {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func isUnreservedURIComponent(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}

func setContentTypeIfEmpty(header http.Header, contentType string) {
	if header != nil && header.Get("Content-Type") == "" {
		header.Set("Content-Type", contentType)
	}
}

type formPair struct {
	key   string
	value any
}

// formPairs returns key/value pairs of a composite value, ok is false for a scalar value.
func formPairs(data any) (pairs []formPair, ok bool) {
	switch v := data.(type) {
	case nil, string, []byte, io.Reader, encoding.TextMarshaler:
		return nil, false
	case *orderedmap.OrderedMap:
		for _, k := range v.Keys() {
			value, _ := v.Get(k)
			pairs = append(pairs, formPair{key: k, value: value})
		}
		return pairs, true
	case url.Values:
		for _, k := range sortedKeys(v) {
			for _, value := range v[k] {
				pairs = append(pairs, formPair{key: k, value: value})
			}
		}
		return pairs, true
	}

	rv := reflect.ValueOf(data)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[cast.ToString(iter.Key().Interface())] = iter.Value().Interface()
		}
		for _, k := range sortedKeys(out) {
			pairs = append(pairs, formPair{key: k, value: out[k]})
		}
		return pairs, true
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			pairs = append(pairs, formPair{key: strconv.Itoa(i), value: rv.Index(i).Interface()})
		}
		return pairs, true
	case reflect.Struct:
		m := StructToMap(rv.Interface())
		for _, k := range m.Keys() {
			value, _ := m.Get(k)
			pairs = append(pairs, formPair{key: k, value: value})
		}
		return pairs, true
	default:
		return nil, false
	}
}

// StructToMap converts a struct to an ordered map of its exported fields.
//
// Field name is read from the "json" tag, the Go field name is used as fallback.
// Field with tag `json:"-"` is ignored, field with the "omitempty" option is ignored if its value is empty.
func StructToMap(in any) *orderedmap.OrderedMap {
	out := orderedmap.New()
	structToMap(reflect.ValueOf(in), out)
	return out
}

func structToMap(in reflect.Value, out *orderedmap.OrderedMap) {
	for in.Kind() == reflect.Ptr || in.Kind() == reflect.Interface {
		if in.IsNil() {
			return
		}
		in = in.Elem()
	}
	t := in.Type()
	for i := range t.NumField() {
		field := t.Field(i)
		fieldValue := in.Field(i)

		// Process embedded type
		if field.Anonymous && fieldValue.Kind() == reflect.Struct {
			structToMap(fieldValue, out)
			continue
		}

		if !field.IsExported() || !fieldValue.CanInterface() {
			continue
		}

		tag := strings.Split(field.Tag.Get("json"), ",")
		fieldName := field.Name
		if tag[0] == "-" {
			continue
		} else if tag[0] != "" {
			fieldName = tag[0]
		}

		if len(tag) > 1 && strings.Contains(strings.Join(tag[1:], ","), "omitempty") && fieldValue.IsZero() {
			continue
		}

		out.Set(fieldName, fieldValue.Interface())
	}
}

// castToString converts a form value to string.
// Nested lists are joined by a comma, for example "2,3", other nested composite values are encoded as JSON.
func castToString(v any) string {
	if isNil(v) {
		return ""
	}
	if pairs, composite := formPairs(v); composite {
		if isList(v) {
			items := make([]string, len(pairs))
			for i, p := range pairs {
				items[i] = castToString(p.value)
			}
			return strings.Join(items, ",")
		}
		if out, err := json.Marshal(v); err == nil {
			return string(out)
		}
	}
	if out, err := cast.ToStringE(v); err == nil {
		return out
	}
	return fmt.Sprint(v)
}

func isList(v any) bool {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	return rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
