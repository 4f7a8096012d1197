// Package archive stores GIF renditions to a blob storage.
//
// Any gocloud bucket can be used, see Open, OpenS3, OpenGCS and OpenAzure.
// Renditions are downloaded by the rest.Dispatcher and streamed to the bucket without buffering.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"gocloud.dev/blob"

	"github.com/giphy-random/go-client/pkg/client/counter"
	"github.com/giphy-random/go-client/pkg/giphy"
	"github.com/giphy-random/go-client/pkg/rest"
)

const (
	// DefaultRendition is saved if no rendition name is specified.
	DefaultRendition = "original"
	// DefaultMaxSize of one downloaded rendition in bytes.
	DefaultMaxSize = 50_000_000
	// DefaultConcurrency of the SaveAll method.
	DefaultConcurrency = 4
)

// ErrRenditionNotFound is returned if the GIF has no such rendition.
var ErrRenditionNotFound = errors.New("rendition not found")

// Archive saves GIF renditions to a bucket.
type Archive struct {
	bucket      *blob.Bucket
	dispatcher  rest.Dispatcher
	prefix      string
	maxSize     int64
	concurrency int64
}

type config struct {
	prefix      string
	maxSize     int64
	concurrency int64
}

// Option for the New function.
type Option func(c *config)

// WithPrefix sets the prefix of all keys, for example "gifs/".
func WithPrefix(v string) Option {
	return func(c *config) {
		c.prefix = v
	}
}

// WithMaxSize sets the maximum size of one rendition.
func WithMaxSize(v int64) Option {
	return func(c *config) {
		c.maxSize = v
	}
}

// WithConcurrency sets the maximum number of parallel downloads of the SaveAll method.
func WithConcurrency(v int64) Option {
	return func(c *config) {
		c.concurrency = v
	}
}

// New creates the Archive. The caller owns the bucket, use Close to close it.
func New(bucket *blob.Bucket, dispatcher rest.Dispatcher, opts ...Option) *Archive {
	cfg := config{maxSize: DefaultMaxSize, concurrency: DefaultConcurrency}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.concurrency < 1 {
		cfg.concurrency = 1
	}
	return &Archive{
		bucket:      bucket,
		dispatcher:  dispatcher,
		prefix:      cfg.prefix,
		maxSize:     cfg.maxSize,
		concurrency: cfg.concurrency,
	}
}

// NewFromConfig opens the bucket from the Config.ArchiveURL, renditions are downloaded by the API dispatcher.
func NewFromConfig(ctx context.Context, cfg giphy.Config, api *giphy.API, opts ...Option) (*Archive, error) {
	if cfg.ArchiveURL == "" {
		return nil, errors.New("archive url is not set")
	}
	bucket, err := Open(ctx, cfg.ArchiveURL)
	if err != nil {
		return nil, err
	}
	return New(bucket, api.Dispatcher(), opts...), nil
}

// Bucket returns the underlying bucket.
func (a *Archive) Bucket() *blob.Bucket {
	return a.bucket
}

// Close the bucket.
func (a *Archive) Close() error {
	return a.bucket.Close()
}

// Key returns the bucket key of the rendition, for example "<prefix><id>/original.gif".
func (a *Archive) Key(gif *giphy.GIF, rendition string) (string, error) {
	if rendition == "" {
		rendition = DefaultRendition
	}
	_, source, ok := sourceURL(gif, rendition)
	if !ok {
		return "", fmt.Errorf(`%w: "%s" of the GIF "%s"`, ErrRenditionNotFound, rendition, gif.ID)
	}
	return a.key(gif.ID, rendition, source), nil
}

// Save downloads the rendition of the GIF and writes it to the bucket.
// The bucket key is returned.
func (a *Archive) Save(ctx context.Context, gif *giphy.GIF, rendition string) (string, error) {
	if rendition == "" {
		rendition = DefaultRendition
	}
	r, source, ok := sourceURL(gif, rendition)
	if !ok {
		return "", fmt.Errorf(`%w: "%s" of the GIF "%s"`, ErrRenditionNotFound, rendition, gif.ID)
	}
	key := a.key(gif.ID, rendition, source)

	res, err := a.dispatcher.Get(
		ctx,
		source,
		rest.WithSlow(),
		rest.WithResponseType(rest.ResponseTypeStream),
		rest.WithMaxContentLength(a.maxSize),
		rest.WithNoCache(false),
	)
	if err != nil {
		return "", err
	}
	defer func() { _ = res.Body.Close() }()

	// Cancellation of the writer context aborts the write
	writeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := a.bucket.NewWriter(writeCtx, key, &blob.WriterOptions{
		ContentType: contentType(res.ContentType(), source),
		Metadata:    metadata(gif, rendition, r, source),
	})
	if err != nil {
		return "", fmt.Errorf(`cannot open blob "%s": %w`, key, err)
	}

	if _, err := io.Copy(w, res.Body); err != nil {
		cancel()
		_ = w.Close()
		if errors.Is(err, counter.ErrLimitExceeded) {
			return "", &rest.ContentLengthError{Method: http.MethodGet, URL: source, Limit: a.maxSize}
		}
		return "", fmt.Errorf(`cannot write blob "%s": %w`, key, err)
	}

	if err := w.Close(); err != nil {
		return "", fmt.Errorf(`cannot close blob "%s": %w`, key, err)
	}
	return key, nil
}

// SaveAll saves the rendition of all GIFs in parallel.
// Keys are returned in the order of the GIFs, a failed GIF has an empty key.
// All errors are returned together.
func (a *Archive) SaveAll(ctx context.Context, gifs []*giphy.GIF, rendition string) ([]string, error) {
	keys := make([]string, len(gifs))
	wg := rest.NewWaitGroupWithLimit(ctx, a.concurrency)
	for i, gif := range gifs {
		wg.Send(rest.SendFunc(func(ctx context.Context) error {
			key, err := a.Save(ctx, gif, rendition)
			keys[i] = key
			return err
		}))
	}
	return keys, wg.Wait()
}

// Keys lists all keys in the archive, with the prefix.
func (a *Archive) Keys(ctx context.Context) ([]string, error) {
	var out []string
	iter := a.bucket.List(&blob.ListOptions{Prefix: a.prefix})
	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, fmt.Errorf("cannot list archive: %w", err)
		}
		out = append(out, obj.Key)
	}
	return out, nil
}

func (a *Archive) key(id, rendition, source string) string {
	return a.prefix + id + "/" + rendition + extension(source)
}

// sourceURL picks the first available format of the rendition: GIF, MP4, WebP.
func sourceURL(gif *giphy.GIF, name string) (giphy.Rendition, string, bool) {
	r, ok := gif.Images.ByName(name)
	if !ok {
		return r, "", false
	}
	for _, u := range []string{r.URL, r.MP4, r.Webp} {
		if u != "" {
			return r, u, true
		}
	}
	return r, "", false
}

func extension(source string) string {
	p := source
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return strings.ToLower(path.Ext(p))
}

func contentType(header, source string) string {
	if header != "" {
		return header
	}
	if v := mime.TypeByExtension(extension(source)); v != "" {
		return v
	}
	return "application/octet-stream"
}

func metadata(gif *giphy.GIF, rendition string, r giphy.Rendition, source string) map[string]string {
	out := map[string]string{
		"giphy-id":  gif.ID,
		"rendition": rendition,
		"source":    source,
	}
	if gif.Title != "" {
		out["title"] = gif.Title
	}
	if gif.Rating != "" {
		out["rating"] = gif.Rating
	}
	if r.Width > 0 && r.Height > 0 {
		out["dimensions"] = fmt.Sprintf("%dx%d", r.Width, r.Height)
	}
	return out
}
