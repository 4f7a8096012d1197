package giphy

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cast"
)

// GIF object of the Giphy API.
type GIF struct {
	Type             string `json:"type"`
	ID               string `json:"id"`
	Slug             string `json:"slug"`
	URL              string `json:"url"`
	BitlyURL         string `json:"bitly_url"`
	EmbedURL         string `json:"embed_url"`
	Username         string `json:"username"`
	Source           string `json:"source"`
	SourceTLD        string `json:"source_tld"`
	SourcePostURL    string `json:"source_post_url"`
	Title            string `json:"title"`
	AltText          string `json:"alt_text"`
	Rating           string `json:"rating"`
	IsSticker        Flag   `json:"is_sticker"`
	ImportDatetime   Time   `json:"import_datetime"`
	TrendingDatetime Time   `json:"trending_datetime"`
	Images           Images `json:"images"`
	User             *User  `json:"user,omitempty"`
}

// User is the author of a GIF.
type User struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	ProfileURL  string `json:"profile_url"`
	AvatarURL   string `json:"avatar_url"`
	IsVerified  bool   `json:"is_verified"`
}

// Images contains renditions of the GIF in various sizes and formats.
type Images struct {
	Original               Rendition `json:"original"`
	OriginalStill          Rendition `json:"original_still"`
	OriginalMP4            Rendition `json:"original_mp4"`
	Downsized              Rendition `json:"downsized"`
	DownsizedLarge         Rendition `json:"downsized_large"`
	DownsizedMedium        Rendition `json:"downsized_medium"`
	DownsizedSmall         Rendition `json:"downsized_small"`
	DownsizedStill         Rendition `json:"downsized_still"`
	FixedHeight            Rendition `json:"fixed_height"`
	FixedHeightDownsampled Rendition `json:"fixed_height_downsampled"`
	FixedHeightSmall       Rendition `json:"fixed_height_small"`
	FixedHeightSmallStill  Rendition `json:"fixed_height_small_still"`
	FixedHeightStill       Rendition `json:"fixed_height_still"`
	FixedWidth             Rendition `json:"fixed_width"`
	FixedWidthDownsampled  Rendition `json:"fixed_width_downsampled"`
	FixedWidthSmall        Rendition `json:"fixed_width_small"`
	FixedWidthSmallStill   Rendition `json:"fixed_width_small_still"`
	FixedWidthStill        Rendition `json:"fixed_width_still"`
	Looping                Rendition `json:"looping"`
	Preview                Rendition `json:"preview"`
	PreviewGIF             Rendition `json:"preview_gif"`
	PreviewWebp            Rendition `json:"preview_webp"`
}

// Rendition is one size/format of the GIF.
// The API encodes numbers as strings, both forms are accepted.
type Rendition struct {
	URL      string `json:"url"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Size     int64  `json:"size"`
	Frames   int    `json:"frames"`
	MP4      string `json:"mp4"`
	MP4Size  int64  `json:"mp4_size"`
	Webp     string `json:"webp"`
	WebpSize int64  `json:"webp_size"`
	Hash     string `json:"hash"`
}

// Pagination of a list response.
type Pagination struct {
	TotalCount int `json:"total_count"`
	Count      int `json:"count"`
	Offset     int `json:"offset"`
}

// Meta of a response.
type Meta struct {
	Status     int    `json:"status"`
	Msg        string `json:"msg"`
	ResponseID string `json:"response_id"`
}

// ListResponse of the Search, Trending and GetByIDs requests.
type ListResponse struct {
	Data       []*GIF     `json:"data"`
	Pagination Pagination `json:"pagination"`
	Meta       Meta       `json:"meta"`
}

// SingleResponse of the GetByID request.
type SingleResponse struct {
	Data *GIF `json:"data"`
	Meta Meta `json:"meta"`
}

// randomResponse data is an object, or an empty array if nothing has been found.
type randomResponse struct {
	Data jsoniter.RawMessage `json:"data"`
	Meta Meta                `json:"meta"`
}

// Flag is a boolean encoded by the API as 0/1, a string or a bool.
type Flag bool

// UnmarshalJSON implements JSON decoding.
func (f *Flag) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if n, ok := v.(float64); ok {
		*f = n != 0
		return nil
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return fmt.Errorf(`invalid flag value %s: %w`, string(data), err)
	}
	*f = Flag(b)
	return nil
}

type renditionJSON struct {
	URL      string `json:"url"`
	Width    any    `json:"width"`
	Height   any    `json:"height"`
	Size     any    `json:"size"`
	Frames   any    `json:"frames"`
	MP4      string `json:"mp4"`
	MP4Size  any    `json:"mp4_size"`
	Webp     string `json:"webp"`
	WebpSize any    `json:"webp_size"`
	Hash     string `json:"hash"`
}

// UnmarshalJSON implements JSON decoding.
func (r *Rendition) UnmarshalJSON(data []byte) (err error) {
	raw := renditionJSON{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := Rendition{URL: raw.URL, MP4: raw.MP4, Webp: raw.Webp, Hash: raw.Hash}
	if out.Width, err = toInt(raw.Width, "width"); err != nil {
		return err
	}
	if out.Height, err = toInt(raw.Height, "height"); err != nil {
		return err
	}
	if out.Frames, err = toInt(raw.Frames, "frames"); err != nil {
		return err
	}
	if out.Size, err = toInt64(raw.Size, "size"); err != nil {
		return err
	}
	if out.MP4Size, err = toInt64(raw.MP4Size, "mp4_size"); err != nil {
		return err
	}
	if out.WebpSize, err = toInt64(raw.WebpSize, "webp_size"); err != nil {
		return err
	}
	*r = out
	return nil
}

// ByName returns the rendition by the JSON key, for example "fixed_height".
func (v Images) ByName(name string) (Rendition, bool) {
	r, found := v.all()[name]
	if !found || r.URL == "" && r.MP4 == "" && r.Webp == "" {
		return Rendition{}, false
	}
	return r, true
}

func (v Images) all() map[string]Rendition {
	return map[string]Rendition{
		"original":                 v.Original,
		"original_still":           v.OriginalStill,
		"original_mp4":             v.OriginalMP4,
		"downsized":                v.Downsized,
		"downsized_large":          v.DownsizedLarge,
		"downsized_medium":         v.DownsizedMedium,
		"downsized_small":          v.DownsizedSmall,
		"downsized_still":          v.DownsizedStill,
		"fixed_height":             v.FixedHeight,
		"fixed_height_downsampled": v.FixedHeightDownsampled,
		"fixed_height_small":       v.FixedHeightSmall,
		"fixed_height_small_still": v.FixedHeightSmallStill,
		"fixed_height_still":       v.FixedHeightStill,
		"fixed_width":              v.FixedWidth,
		"fixed_width_downsampled":  v.FixedWidthDownsampled,
		"fixed_width_small":        v.FixedWidthSmall,
		"fixed_width_small_still":  v.FixedWidthSmallStill,
		"fixed_width_still":        v.FixedWidthStill,
		"looping":                  v.Looping,
		"preview":                  v.Preview,
		"preview_gif":              v.PreviewGIF,
		"preview_webp":             v.PreviewWebp,
	}
}

func toInt(v any, field string) (int, error) {
	out, err := cast.ToIntE(emptyToNil(v))
	if err != nil {
		return 0, fmt.Errorf(`invalid rendition %s: %w`, field, err)
	}
	return out, nil
}

func toInt64(v any, field string) (int64, error) {
	out, err := cast.ToInt64E(emptyToNil(v))
	if err != nil {
		return 0, fmt.Errorf(`invalid rendition %s: %w`, field, err)
	}
	return out, nil
}

func emptyToNil(v any) any {
	if s, ok := v.(string); ok && s == "" {
		return nil
	}
	return v
}
