package app_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"review_ingest/internal/app"
	"review_ingest/internal/domain"
)

func raw(id, asin string, overall float64, name *string, text string) domain.RawReview {
	return domain.RawReview{
		ReviewerID:   ptr(id),
		ASIN:         ptr(asin),
		ReviewerName: name,
		Overall:      pfloat(overall),
		ReviewText:   ptr(text),
		Summary:      ptr("Summary: " + text),
	}
}

func TestDedup_KeepsFirstPerKey(t *testing.T) {
	in := domain.RawTable{
		raw("R1", "A1", 5, ptr("X"), "first"),
		raw("R1", "A1", 5, ptr("X"), "second"), // dup
		raw("R1", "A1", 4, ptr("X"), "other rating"),
		raw("R1", "A1", 5, nil, "null name"),
		raw("R1", "A1", 5, nil, "null name again"), // dup: nulls compare equal
		{}, // empty row
		raw("R2", "A1", 5, ptr("X"), "other reviewer"),
	}
	require.Equal(t, []int{0, 2, 3, 6}, app.Dedup(in))
}

func TestTransform_EndToEndDuplicate(t *testing.T) {
	in := domain.RawTable{
		raw("R1", "A1", 5, ptr("X"), "The FIRST review!"),
		raw("R1", "A1", 5, ptr("X"), "A different text"),
	}
	tr := app.NewTransformer(app.NewCleaner(), 4, zerolog.Nop())
	out, err := tr.Transform(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "the first review", out[0].ReviewText)
	require.Equal(t, "summary the first review", out[0].Summary)
}

func TestTransform_FlattensStyleAndImage(t *testing.T) {
	r := raw("R1", "A1", 5, nil, "x")
	r.Style = map[string]any{"Format:": " Hardcover", "Size:": "Large"}
	r.Image = []any{"http://a", "http://b"}
	r2 := raw("R2", "A2", 3, nil, "y")
	r2.Style = "not a map"
	r2.Image = "solo"
	r3 := raw("R3", "A3", 1, nil, "z")
	r3.ReviewText, r3.Summary = nil, nil

	tr := app.NewTransformer(nil, 2, zerolog.Nop())
	out, err := tr.Transform(context.Background(), domain.RawTable{r, r2, r3})
	require.NoError(t, err)
	require.Len(t, out, 3)

	require.Equal(t, " Hardcover", *out[0].Style)
	require.Equal(t, "http://a; http://b", *out[0].Image)
	require.Nil(t, out[1].Style)
	require.Equal(t, "solo", *out[1].Image)
	require.Nil(t, out[2].Image)
	require.Equal(t, "", out[2].ReviewText)
	require.Equal(t, "", out[2].Summary)
}

func TestTransform_EveryRowHasStyleAndImage(t *testing.T) {
	var in domain.RawTable
	for i := 0; i < 3000; i++ {
		r := raw(fmt.Sprintf("R%d", i), "A1", 5, nil, "x")
		r.Style = map[string]any{"Format:": fmt.Sprintf(" F%d", i)}
		r.Image = []any{fmt.Sprintf("http://img/%d", i)}
		in = append(in, r)
	}
	tr := app.NewTransformer(nil, 4, zerolog.Nop())
	out, err := tr.Transform(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, out, len(in))
	for i, r := range out {
		require.NotNil(t, r.Style, "row %d", i)
		require.Equal(t, fmt.Sprintf(" F%d", i), *r.Style)
		require.NotNil(t, r.Image, "row %d", i)
		require.Equal(t, fmt.Sprintf("http://img/%d", i), *r.Image)
	}
}

// Dedup only looks at raw key columns, so the result must not depend on
// whether text was cleaned first.
func TestTransform_DedupIndependentOfCleaning(t *testing.T) {
	var in domain.RawTable
	for i := 0; i < 5000; i++ {
		in = append(in, raw(fmt.Sprintf("R%d", i%700), fmt.Sprintf("A%d", i%13), float64(i%5+1), nil, fmt.Sprintf("Text #%d!", i)))
	}
	tr := app.NewTransformer(app.NewCleaner(), 8, zerolog.Nop())
	out, err := tr.Transform(context.Background(), in)
	require.NoError(t, err)

	keep := app.Dedup(in)
	require.Len(t, out, len(keep))

	seen := map[string]bool{}
	for i, r := range out {
		k := fmt.Sprintf("%s|%s|%v", *r.ReviewerID, *r.ASIN, *r.Overall)
		require.False(t, seen[k], "duplicate key %s", k)
		seen[k] = true
		require.Equal(t, *in[keep[i]].ReviewerID, *r.ReviewerID)
		require.Equal(t, fmt.Sprintf("text %d", keep[i]), r.ReviewText)
	}
}

func TestTransform_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	in := make(domain.RawTable, 10_000)
	tr := app.NewTransformer(nil, 1, zerolog.Nop())
	if _, err := tr.Transform(ctx, in); err == nil {
		t.Fatalf("expected context error")
	}
}
