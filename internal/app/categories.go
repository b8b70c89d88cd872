package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"review_ingest/internal/adapters/observability"
	"review_ingest/internal/domain"
)

// CategoryHeader is the column order of both category CSV files.
var CategoryHeader = []string{
	"id", "name", "slug", "parent_id", "meta_title", "meta_description",
	"page_title", "page_description", "highlighted", "position", "pinned",
	"sponsored", "published", "published_by_cash", "banner_image_url", "is_collection",
}

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns the value at path as text, or "" when absent or null.
func lookupStr(m map[string]any, path string) string {
	s := scalarString(lookupAny(m, path))
	if s == nil {
		return ""
	}
	return *s
}

func lookupBool(m map[string]any, path string) bool {
	switch v := lookupAny(m, path).(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

func lookupInt(m map[string]any, path string) int64 {
	switch v := lookupAny(m, path).(type) {
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n
	default:
		return 0
	}
}

// scalarString renders strings and JSON numbers; nil for null/absent/composite.
func scalarString(v any) *string {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(t)
	default:
		return nil
	}
	return &s
}

// HTMLText returns the text content of an HTML fragment, trimmed.
// Input that fails to tokenize is returned trimmed as-is.
func HTMLText(fragment string) string {
	if fragment == "" {
		return ""
	}
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.StartTagToken:
			if name, _ := z.TagName(); isRawText(name) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); isRawText(name) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func isRawText(tag []byte) bool {
	s := string(tag)
	return s == "script" || s == "style"
}

// parentID is nil only for an explicit JSON null; a missing key reads as ""
// so the row is not taken for a top-level category.
func parentID(item map[string]any) *string {
	attrs, _ := item["attributes"].(map[string]any)
	v, ok := attrs["parent_id"]
	if !ok {
		empty := ""
		return &empty
	}
	if v == nil {
		return nil
	}
	if s := scalarString(v); s != nil {
		return s
	}
	empty := ""
	return &empty
}

// FlattenCategories turns API items ({id, attributes}) into rows, in input order.
func FlattenCategories(items []map[string]any) []domain.Category {
	out := make([]domain.Category, 0, len(items))
	for _, it := range items {
		id := ""
		if s := scalarString(it["id"]); s != nil {
			id = *s
		}
		out = append(out, domain.Category{
			ID:              id,
			Name:            lookupStr(it, "attributes.name"),
			Slug:            lookupStr(it, "attributes.slug"),
			ParentID:        parentID(it),
			MetaTitle:       lookupStr(it, "attributes.meta_title"),
			MetaDescription: lookupStr(it, "attributes.meta_description"),
			PageTitle:       lookupStr(it, "attributes.page_title"),
			PageDescription: HTMLText(lookupStr(it, "attributes.page_description")),
			Highlighted:     lookupBool(it, "attributes.highlighted"),
			Position:        lookupInt(it, "attributes.position"),
			Pinned:          lookupBool(it, "attributes.pinned"),
			Sponsored:       lookupBool(it, "attributes.sponsored"),
			Published:       lookupBool(it, "attributes.published"),
			PublishedByCash: lookupBool(it, "attributes.published_by_cash"),
			BannerImageURL:  lookupStr(it, "attributes.banner_image_url"),
			IsCollection:    lookupBool(it, "attributes.is_collection"),
		})
	}
	return out
}

// Parents keeps the top-level categories (explicit null parent_id).
func Parents(cs []domain.Category) []domain.Category {
	var out []domain.Category
	for _, c := range cs {
		if c.ParentID == nil {
			out = append(out, c)
		}
	}
	return out
}

// CategoryRecords renders rows in CategoryHeader order.
func CategoryRecords(cs []domain.Category) [][]string {
	rows := make([][]string, 0, len(cs))
	for _, c := range cs {
		parent := ""
		if c.ParentID != nil {
			parent = *c.ParentID
		}
		rows = append(rows, []string{
			c.ID, c.Name, c.Slug, parent, c.MetaTitle, c.MetaDescription,
			c.PageTitle, c.PageDescription,
			strconv.FormatBool(c.Highlighted), strconv.FormatInt(c.Position, 10),
			strconv.FormatBool(c.Pinned), strconv.FormatBool(c.Sponsored),
			strconv.FormatBool(c.Published), strconv.FormatBool(c.PublishedByCash),
			c.BannerImageURL, strconv.FormatBool(c.IsCollection),
		})
	}
	return rows
}

// RecordWriter persists a header and rows to a named file.
type RecordWriter func(path string, header []string, rows [][]string) error

// CategoryService exports the category listing to the all/parents CSV pair.
type CategoryService struct {
	client domain.CategoryClient
	write  RecordWriter
	log    zerolog.Logger
}

func NewCategoryService(c domain.CategoryClient, w RecordWriter, l zerolog.Logger) *CategoryService {
	return &CategoryService{client: c, write: w, log: l}
}

// Export fetches, flattens and writes both files. A failure writing one file
// does not stop the other; the joined write errors are returned.
func (s *CategoryService) Export(ctx context.Context, allPath, parentsPath string) error {
	start := time.Now()
	items, err := s.client.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("%w: list categories: %w", domain.ErrTransport, err)
	}
	cats := FlattenCategories(items)
	observability.ObserveStage("categories", len(cats), time.Since(start))
	s.log.Info().Int("categories", len(cats)).Msg("categories flattened")

	var errs []error
	if err := s.write(allPath, CategoryHeader, CategoryRecords(cats)); err != nil {
		s.log.Error().Err(err).Str("path", allPath).Msg("write categories")
		errs = append(errs, err)
	} else {
		s.log.Info().Str("path", allPath).Msg("categories saved")
	}
	parents := Parents(cats)
	if err := s.write(parentsPath, CategoryHeader, CategoryRecords(parents)); err != nil {
		s.log.Error().Err(err).Str("path", parentsPath).Msg("write parents")
		errs = append(errs, err)
	} else {
		s.log.Info().Str("path", parentsPath).Int("parents", len(parents)).Msg("parents saved")
	}
	return errors.Join(errs...)
}
