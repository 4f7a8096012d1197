package rest

import (
	"fmt"
	"regexp"
	"strings"
)

const ContentTypeApplicationJSONRegexp = `^application/([a-zA-Z0-9\.\-]+\+)?json$`

var jsonContentTypeRegexp = regexp.MustCompile(ContentTypeApplicationJSONRegexp)

// IsJSONContentType returns true for "application/json" and "application/*+json" media types, parameters are ignored.
func IsJSONContentType(contentType string) bool {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return jsonContentTypeRegexp.MatchString(strings.TrimSpace(strings.ToLower(mediaType)))
}

// DecodeData decodes a successful response body by the options.ResponseType.
// The Result target, if any, is filled and returned.
func DecodeData(body []byte, contentType string, options TransportOptions) (any, error) {
	switch options.ResponseType {
	case ResponseTypeText:
		if v, ok := options.Result.(*string); ok {
			*v = string(body)
			return v, nil
		}
		return string(body), nil
	case ResponseTypeBytes:
		if v, ok := options.Result.(*[]byte); ok {
			*v = body
			return v, nil
		}
		return body, nil
	case ResponseTypeJSON, "":
		if len(body) == 0 {
			return nil, nil
		}
		if options.Result != nil {
			if err := json.Unmarshal(body, options.Result); err != nil {
				return nil, fmt.Errorf(`cannot decode JSON result: %w`, err)
			}
			return options.Result, nil
		}
		var data any
		if err := json.Unmarshal(body, &data); err != nil {
			if IsJSONContentType(contentType) {
				return nil, fmt.Errorf(`cannot decode JSON result: %w`, err)
			}
			// Not a JSON response, keep it as a text
			return string(body), nil
		}
		return data, nil
	default:
		return nil, fmt.Errorf(`unexpected response type "%s"`, options.ResponseType)
	}
}

// CheckStatus returns a StatusError if the status code is rejected by the options.ValidateStatus.
// A JSON body is decoded into the options.ErrorResult, if defined.
func CheckStatus(res *Response, body []byte, options TransportOptions) error {
	validate := options.ValidateStatus
	if validate == nil {
		validate = DefaultValidateStatus
	}
	if validate(res.StatusCode) {
		return nil
	}

	statusErr := &StatusError{Method: options.Method, URL: options.URL, Response: res}
	if res.Request != nil {
		statusErr.Method = res.Request.Method
		statusErr.URL = res.Request.URL.String()
	}
	if options.ErrorResult != nil && len(body) > 0 && IsJSONContentType(res.ContentType()) {
		if err := json.Unmarshal(body, options.ErrorResult); err == nil {
			if v, ok := options.ErrorResult.(errorWithResponse); ok {
				v.SetResponse(res)
			}
			statusErr.Err = options.ErrorResult
		}
	}
	res.Data = string(body)
	return statusErr
}
