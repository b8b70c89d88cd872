package domain

import "context"

type ReviewRepository interface {
	// Write path: creates the table if needed and replaces its full contents.
	ReplaceAll(ctx context.Context, t Table) error

	// Read paths
	Summary(ctx context.Context) (Summary, error)
	ListByASIN(ctx context.Context, asin string, pg PageQuery) (ReviewsPage, error)
}

type TableWriter interface {
	Write(ctx context.Context, t Table) error
}

type Mailer interface {
	Send(ctx context.Context, subject, body string) error
}

type CategoryClient interface {
	ListCategories(ctx context.Context) ([]map[string]any, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
	DelPrefix(ctx context.Context, prefix string) error
}

type PageQuery struct {
	Limit int
}

type ReviewsPage struct {
	Items []Review `json:"items"`
}
