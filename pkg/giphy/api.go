// Package giphy contains requests of the Giphy GIF search API.
// Requests are sent by a rest.Dispatcher, the client.Client is used by default, see the NewAPI function.
//
// Each request is independent, nothing is cached or retried.
package giphy

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/giphy-random/go-client/pkg/client"
	"github.com/giphy-random/go-client/pkg/client/trace"
	"github.com/giphy-random/go-client/pkg/client/trace/otel"
	"github.com/giphy-random/go-client/pkg/rest"
)

const (
	// DefaultBaseURL of the Giphy API.
	DefaultBaseURL = "https://api.giphy.com"
	// DefaultRandomConcurrency is the default maximum of parallel requests sent by the RandomN.
	DefaultRandomConcurrency = 8
	// MaxLimit of GIFs in one page.
	MaxLimit = 50
	// MaxIDs in one GetByIDs request.
	MaxIDs = 100
)

// ErrNotFound is returned by the Random request if no GIF matches the tag.
var ErrNotFound = errors.New("no gif found")

type API struct {
	dispatcher        rest.Dispatcher
	baseURL           string
	apiKey            string
	rating            string
	lang              string
	randomConcurrency int64
}

// NewAPI creates the API client authorized by the apiKey.
func NewAPI(apiKey string, opts ...APIOption) *API {
	cfg := newAPIConfig(opts)

	transport := cfg.transport
	if transport == nil {
		var c client.Client
		if cfg.client != nil {
			c = *cfg.client
		} else {
			c = client.New()
		}
		if cfg.logger != nil {
			c = c.AndTrace(trace.ZapTracer(cfg.logger))
		}
		if cfg.tracerProvider != nil || cfg.meterProvider != nil {
			c = c.WithTelemetry(cfg.tracerProvider, cfg.meterProvider, otel.WithRedactedQueryParam(apiKeyParam))
		}
		transport = c
	}

	if cfg.randomConcurrency < 1 {
		cfg.randomConcurrency = 1
	}

	return &API{
		dispatcher:        rest.NewDispatcher(transport).WithErrorHandler(redactedErrorHandler(apiKey)),
		baseURL:           strings.TrimRight(cfg.baseURL, "/"),
		apiKey:            apiKey,
		rating:            cfg.rating,
		lang:              cfg.lang,
		randomConcurrency: cfg.randomConcurrency,
	}
}

// NewAPIFromConfig creates the API client from a validated Config.
func NewAPIFromConfig(cfg Config, opts ...APIOption) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	defaults := []APIOption{WithBaseURL(cfg.BaseURL), WithRating(cfg.Rating), WithLang(cfg.Lang)}
	if cfg.RandomConcurrency > 0 {
		defaults = append(defaults, WithRandomConcurrency(cfg.RandomConcurrency))
	}
	return NewAPI(cfg.APIKey, append(defaults, opts...)...), nil
}

// Dispatcher returns the underlying rest.Dispatcher.
func (a *API) Dispatcher() rest.Dispatcher {
	return a.dispatcher
}

// Search GIFs by a query.
func (a *API) Search(ctx context.Context, params SearchParams) (*ListResponse, error) {
	if params.Rating == "" {
		params.Rating = a.rating
	}
	if params.Lang == "" {
		params.Lang = a.lang
	}
	if err := validate("search params", params); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("q", params.Query)
	setPage(query, params.Limit, params.Offset)
	setIfNotEmpty(query, "rating", params.Rating)
	setIfNotEmpty(query, "lang", params.Lang)
	setIfNotEmpty(query, "bundle", params.Bundle)

	result := &ListResponse{}
	if err := a.get(ctx, "/v1/gifs/search", query, result, &result.Meta); err != nil {
		return nil, err
	}
	return result, nil
}

// Trending returns the most popular GIFs.
func (a *API) Trending(ctx context.Context, params TrendingParams) (*ListResponse, error) {
	if params.Rating == "" {
		params.Rating = a.rating
	}
	if err := validate("trending params", params); err != nil {
		return nil, err
	}

	query := url.Values{}
	setPage(query, params.Limit, params.Offset)
	setIfNotEmpty(query, "rating", params.Rating)
	setIfNotEmpty(query, "bundle", params.Bundle)

	result := &ListResponse{}
	if err := a.get(ctx, "/v1/gifs/trending", query, result, &result.Meta); err != nil {
		return nil, err
	}
	return result, nil
}

// Random returns a random GIF, optionally limited to the tag.
// ErrNotFound is returned if no GIF matches the tag.
func (a *API) Random(ctx context.Context, tag string) (*GIF, error) {
	params := RandomParams{Tag: tag, Rating: a.rating}
	if err := validate("random params", params); err != nil {
		return nil, err
	}

	query := url.Values{}
	setIfNotEmpty(query, "tag", params.Tag)
	setIfNotEmpty(query, "rating", params.Rating)

	result := &randomResponse{}
	if err := a.get(ctx, "/v1/gifs/random", query, result, &result.Meta); err != nil {
		return nil, err
	}
	return result.gif(tag)
}

// RandomN returns n random GIFs, requests are sent in parallel.
// The first error stops the remaining requests.
// GIFs are not de-duplicated, the same GIF may be returned more than once.
func (a *API) RandomN(ctx context.Context, tag string, n int) ([]*GIF, error) {
	if err := validateVar("random count", n, "min=1,max=50"); err != nil {
		return nil, err
	}

	out := make([]*GIF, n)
	grp := rest.NewRunGroupWithLimit(ctx, a.randomConcurrency)
	for i := range out {
		grp.Add(rest.SendFunc(func(ctx context.Context) error {
			gif, err := a.Random(ctx, tag)
			if err != nil {
				return err
			}
			out[i] = gif
			return nil
		}))
	}
	if err := grp.RunAndWait(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID returns the GIF by the ID.
func (a *API) GetByID(ctx context.Context, id string) (*GIF, error) {
	if err := validateVar("gif id", id, "required,alphanum"); err != nil {
		return nil, err
	}

	result := &SingleResponse{}
	if err := a.get(ctx, "/v1/gifs/"+url.PathEscape(id), url.Values{}, result, &result.Meta); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// GetByIDs returns GIFs by the IDs, unknown IDs are skipped by the API.
func (a *API) GetByIDs(ctx context.Context, ids ...string) (*ListResponse, error) {
	if err := validateVar("gif ids", ids, "required,min=1,max=100,dive,required,alphanum"); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))

	result := &ListResponse{}
	if err := a.get(ctx, "/v1/gifs", query, result, &result.Meta); err != nil {
		return nil, err
	}
	return result, nil
}

func (a *API) get(ctx context.Context, path string, query url.Values, result any, meta *Meta) error {
	query.Set(apiKeyParam, a.apiKey)
	opts := rest.Options{
		Params:      query,
		Result:      result,
		ErrorResult: &Error{},
	}
	if _, err := a.dispatcher.Request(ctx, rest.Merge(rest.GetOptions(a.baseURL+path), opts)); err != nil {
		return err
	}
	// The API may report an error in the body of a successful response
	if meta.Status >= 400 {
		return &Error{Meta: *meta}
	}
	return nil
}

func setPage(query url.Values, limit, offset int) {
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		query.Set("offset", strconv.Itoa(offset))
	}
}

func setIfNotEmpty(query url.Values, key, value string) {
	if value != "" {
		query.Set(key, value)
	}
}

func (r *randomResponse) gif(tag string) (*GIF, error) {
	// The API returns an empty array if no GIF matches the tag
	data := strings.TrimSpace(string(r.Data))
	if data == "" || data == "[]" || data == "null" || data == "{}" {
		return nil, fmt.Errorf(`%w for tag "%s"`, ErrNotFound, tag)
	}
	gif := &GIF{}
	if err := json.Unmarshal(r.Data, gif); err != nil {
		return nil, fmt.Errorf("cannot decode random gif: %w", err)
	}
	return gif, nil
}
