package giphy

// Ratings accepted by the API.
const (
	RatingG    = "g"
	RatingPG   = "pg"
	RatingPG13 = "pg-13"
	RatingR    = "r"
)

// SearchParams of the Search request.
// A zero Limit/Offset is not sent, the API defaults apply.
type SearchParams struct {
	Query  string `param:"q" validate:"required,max=50"`
	Limit  int    `param:"limit" validate:"omitempty,min=1,max=50"`
	Offset int    `param:"offset" validate:"min=0,max=4999"`
	Rating string `param:"rating" validate:"omitempty,oneof=g pg pg-13 r"`
	Lang   string `param:"lang" validate:"omitempty,min=2,max=5"`
	Bundle string `param:"bundle" validate:"omitempty,oneof=clips_grid_picker messaging_non_clips sticker_layering low_bandwidth"`
}

// TrendingParams of the Trending request.
type TrendingParams struct {
	Limit  int    `param:"limit" validate:"omitempty,min=1,max=50"`
	Offset int    `param:"offset" validate:"min=0,max=499"`
	Rating string `param:"rating" validate:"omitempty,oneof=g pg pg-13 r"`
	Bundle string `param:"bundle" validate:"omitempty,oneof=clips_grid_picker messaging_non_clips sticker_layering low_bandwidth"`
}

// RandomParams of the Random request.
type RandomParams struct {
	Tag    string `param:"tag" validate:"max=50"`
	Rating string `param:"rating" validate:"omitempty,oneof=g pg pg-13 r"`
}
