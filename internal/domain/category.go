package domain

// Category is one flattened row of the store-directory category API.
type Category struct {
	ID              string
	Name            string
	Slug            string
	ParentID        *string
	MetaTitle       string
	MetaDescription string
	PageTitle       string
	PageDescription string
	Highlighted     bool
	Position        int64
	Pinned          bool
	Sponsored       bool
	Published       bool
	PublishedByCash bool
	BannerImageURL  string
	IsCollection    bool
}
