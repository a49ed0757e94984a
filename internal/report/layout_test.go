package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/yourusername/sentinel-safe/internal/visitor"
)

func sampleRows(n int) []visitor.Visitor {
	rows := make([]visitor.Visitor, n)
	for i := range rows {
		rows[i] = visitor.Visitor{
			ID:          int64(i + 1),
			Name:        "John Smith",
			Date:        "2025-05-01",
			Time:        "14:30",
			Reason:      "Maintenance",
			ActionTaken: visitor.ActionCheckedIn,
		}
	}
	return rows
}

func decodeLayout(t *testing.T, raw []byte) layoutDocument {
	t.Helper()
	var doc layoutDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("failed to parse layout: %v", err)
	}
	return doc
}

func TestBuildLayoutSinglePage(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	raw, err := buildLayout(sampleRows(3), visitor.ListFilter{}, now)
	if err != nil {
		t.Fatalf("buildLayout returned error: %v", err)
	}

	doc := decodeLayout(t, raw)
	if doc.Paper != "A4" {
		t.Fatalf("unexpected paper: %s", doc.Paper)
	}
	if len(doc.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(doc.Pages))
	}
	// 見出し3行 + データ3行
	if got := len(doc.Pages["1"].Content.Text); got != 6 {
		t.Fatalf("unexpected text count: %d", got)
	}
}

func TestBuildLayoutPagination(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	raw, err := buildLayout(sampleRows(85), visitor.ListFilter{}, now)
	if err != nil {
		t.Fatalf("buildLayout returned error: %v", err)
	}

	doc := decodeLayout(t, raw)
	if len(doc.Pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(doc.Pages))
	}
	if got := len(doc.Pages["1"].Content.Text); got != 43 {
		t.Fatalf("unexpected first page text count: %d", got)
	}
	if got := len(doc.Pages["3"].Content.Text); got != 8 {
		t.Fatalf("unexpected last page text count: %d", got)
	}
	if !strings.Contains(doc.Pages["3"].Content.Text[1].Value, "page 3/3") {
		t.Fatalf("expected page marker in subtitle: %q", doc.Pages["3"].Content.Text[1].Value)
	}
}

func TestBuildLayoutEmptyResultStillHasOnePage(t *testing.T) {
	raw, err := buildLayout(nil, visitor.ListFilter{}, time.Now())
	if err != nil {
		t.Fatalf("buildLayout returned error: %v", err)
	}

	doc := decodeLayout(t, raw)
	if len(doc.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(doc.Pages))
	}
	if got := len(doc.Pages["1"].Content.Text); got != 3 {
		t.Fatalf("expected headers only, got %d texts", got)
	}
}

func TestBuildLayoutSubtitleIncludesFilter(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	raw, err := buildLayout(sampleRows(1), visitor.ListFilter{Search: "smith", Action: visitor.ActionReported}, now)
	if err != nil {
		t.Fatalf("buildLayout returned error: %v", err)
	}

	doc := decodeLayout(t, raw)
	subtitle := doc.Pages["1"].Content.Text[1].Value
	if !strings.Contains(subtitle, "search: smith") || !strings.Contains(subtitle, "filter: reported") {
		t.Fatalf("unexpected subtitle: %q", subtitle)
	}
}

func TestClip(t *testing.T) {
	if got := clip("short", 24); got != "short" {
		t.Fatalf("clip = %q", got)
	}
	if got := clip("a very long visitor name that overflows", 24); got != "a very long visitor n..." || len(got) != 24 {
		t.Fatalf("clip = %q", got)
	}
}
