package domain

// RawReview is one NDJSON line as loaded, before any transformation.
// Style and Image keep their decoded JSON shape (object / list / scalar / nil).
type RawReview struct {
	ReviewerID     *string
	ASIN           *string
	ReviewerName   *string
	Vote           *int64
	Style          any
	ReviewText     *string
	Overall        *float64
	Summary        *string
	UnixReviewTime *int64
	ReviewTime     *string
	Image          any
}

// Empty reports whether every field is absent.
func (r RawReview) Empty() bool {
	return r.ReviewerID == nil && r.ASIN == nil && r.ReviewerName == nil &&
		r.Vote == nil && r.Style == nil && r.ReviewText == nil &&
		r.Overall == nil && r.Summary == nil && r.UnixReviewTime == nil &&
		r.ReviewTime == nil && r.Image == nil
}

// RawTable keeps load order.
type RawTable []RawReview

// Review is a finalized row as handed to the sinks.
type Review struct {
	ReviewerID     *string  `json:"reviewerID"`
	ASIN           *string  `json:"asin"`
	ReviewerName   *string  `json:"reviewerName"`
	Vote           *int64   `json:"vote"`
	Style          *string  `json:"style"` // "Format:" value
	ReviewText     string   `json:"reviewText"`
	Overall        *float64 `json:"overall"`
	Summary        string   `json:"summary"`
	UnixReviewTime *int64   `json:"unixReviewTime"`
	ReviewTime     *string  `json:"reviewTime"`
	Image          *string  `json:"image"` // "; " joined
}

// Table is the finalized, read-only review table.
type Table []Review

// Columns is the fixed column order shared by the relational and CSV sinks.
var Columns = []string{
	"reviewerID", "asin", "reviewerName", "vote", "style", "reviewText",
	"overall", "summary", "unixReviewTime", "reviewTime", "image",
}

// Summary is what the daily report carries.
type Summary struct {
	HardcoverASINs []string `json:"hardcover_asins"`
	TopASIN        *string  `json:"top_asin"`
	TopCount       int      `json:"top_count"`
}
