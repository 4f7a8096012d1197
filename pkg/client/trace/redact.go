package trace

import (
	"net/url"
	"sort"
	"strings"

	"github.com/giphy-random/go-client/pkg/rest"
)

const redactedValue = "REDACTED"

// DefaultRedactedQueryParams are masked in URLs and errors logged by the LogTracer and the ZapTracer.
var DefaultRedactedQueryParams = []string{"api_key"} //nolint:gochecknoglobals

// Secrets are values of the redacted query params of one request.
// Errors may contain the request URL, so the values are masked in any logged text.
type Secrets struct {
	values []string
}

// NewSecrets collects redacted values from the query params and the URL of the request definition.
func NewSecrets(options rest.TransportOptions, isRedacted func(key string) bool) *Secrets {
	secrets := &Secrets{}
	secrets.AddQuery(options.Params, isRedacted)
	if u, err := url.Parse(options.URL); err == nil {
		secrets.AddQuery(u.Query(), isRedacted)
	}
	return secrets
}

// AddQuery adds values of the query params for which the isRedacted returns true.
func (s *Secrets) AddQuery(query url.Values, isRedacted func(key string) bool) {
	for key, values := range query {
		if !isRedacted(key) {
			continue
		}
		for _, v := range values {
			s.add(v)
			s.add(url.QueryEscape(v))
			s.add(url.PathEscape(v))
		}
	}
	// Longer values first, one value may be a part of another
	sort.SliceStable(s.values, func(i, j int) bool { return len(s.values[i]) > len(s.values[j]) })
}

func (s *Secrets) add(v string) {
	if v == "" {
		return
	}
	for _, existing := range s.values {
		if existing == v {
			return
		}
	}
	s.values = append(s.values, v)
}

// Redact replaces all secret values in the text by the mask.
func (s *Secrets) Redact(text, mask string) string {
	for _, v := range s.values {
		text = strings.ReplaceAll(text, v, mask)
	}
	return text
}

// RedactError returns the err with secret values in the message replaced by the mask.
// The original error is still available by errors.Is/As.
func (s *Secrets) RedactError(err error, mask string) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if redacted := s.Redact(msg, mask); redacted != msg {
		return &redactedError{err: err, msg: redacted}
	}
	return err
}

type redactedError struct {
	err error
	msg string
}

func (e *redactedError) Error() string {
	return e.msg
}

func (e *redactedError) Unwrap() error {
	return e.err
}

func redactedSet(params []string) func(key string) bool {
	set := make(map[string]struct{}, len(params))
	for _, p := range params {
		set[strings.ToLower(p)] = struct{}{}
	}
	return func(key string) bool {
		_, found := set[strings.ToLower(key)]
		return found
	}
}

func redactURL(in *url.URL, isRedacted func(key string) bool) string {
	if in == nil {
		return ""
	}
	out := *in
	query := out.Query()
	for k := range query {
		if isRedacted(k) {
			query.Set(k, redactedValue)
		}
	}
	out.RawQuery = query.Encode()
	return out.String()
}
