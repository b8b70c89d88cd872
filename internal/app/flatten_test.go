package app_test

import (
	"testing"

	"review_ingest/internal/app"
)

func TestExtractFormat(t *testing.T) {
	if got := app.ExtractFormat(map[string]any{"Format:": "Hardcover"}); got == nil || *got != "Hardcover" {
		t.Fatalf("expected Hardcover, got %v", got)
	}
	if got := app.ExtractFormat(map[string]any{"Color:": "Red"}); got != nil {
		t.Fatalf("missing key should be nil, got %q", *got)
	}
	for _, in := range []any{nil, "Hardcover", 3.0, []any{"Format:"}} {
		if got := app.ExtractFormat(in); got != nil {
			t.Fatalf("non-object %#v should yield nil, got %q", in, *got)
		}
	}
}

func TestJoinIfList(t *testing.T) {
	if got := app.JoinIfList([]any{"a", "b", "c"}); got != "a; b; c" {
		t.Fatalf("got %#v", got)
	}
	if got := app.JoinIfList([]string{"x"}); got != "x" {
		t.Fatalf("got %#v", got)
	}
	if got := app.JoinIfList("solo"); got != "solo" {
		t.Fatalf("got %#v", got)
	}
	if got := app.JoinIfList(nil); got != nil {
		t.Fatalf("got %#v", got)
	}
	if got := app.JoinIfList(7.0); got != 7.0 {
		t.Fatalf("got %#v", got)
	}
}
