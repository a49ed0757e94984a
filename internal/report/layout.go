package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/yourusername/sentinel-safe/internal/visitor"
)

// レポート1件あたりの上限行数とページあたりの行数。
const (
	maxReportRows = 2000
	rowsPerPage   = 40

	pageTopMargin  = 60.0
	pageLeftMargin = 40.0
	rowHeight      = 16.0
)

// pdfcpu の create 用レイアウトJSONを構成する型。
type layoutText struct {
	Value  string     `json:"value"`
	Anchor string     `json:"anchor"`
	Dx     float64    `json:"dx"`
	Dy     float64    `json:"dy"`
	Font   layoutFont `json:"font"`
}

type layoutFont struct {
	Name string  `json:"name"`
	Size float64 `json:"size"`
}

type layoutContent struct {
	Text []layoutText `json:"text"`
}

type layoutPage struct {
	Content layoutContent `json:"content"`
}

type layoutDocument struct {
	Paper string                `json:"paper"`
	Pages map[string]layoutPage `json:"pages"`
}

// buildLayout は来訪者記録をページ分割したレイアウトJSONへ変換します。
func buildLayout(rows []visitor.Visitor, filter visitor.ListFilter, now time.Time) ([]byte, error) {
	doc := layoutDocument{
		Paper: "A4",
		Pages: map[string]layoutPage{},
	}

	pageCount := (len(rows) + rowsPerPage - 1) / rowsPerPage
	if pageCount == 0 {
		pageCount = 1
	}

	for page := 0; page < pageCount; page++ {
		texts := []layoutText{
			header("Sentinel Safe - Visitor Log", 14, 0),
			header(subtitle(filter, now, page+1, pageCount), 9, 1),
			header(fmt.Sprintf("%-24s %-12s %-7s %-34s %s", "Name", "Date", "Time", "Reason", "Status"), 9, 2),
		}

		start := page * rowsPerPage
		end := start + rowsPerPage
		if end > len(rows) {
			end = len(rows)
		}
		for i, v := range rows[start:end] {
			texts = append(texts, layoutText{
				Value:  fmt.Sprintf("%-24s %-12s %-7s %-34s %s", clip(v.Name, 24), v.Date, v.Time, clip(v.Reason, 34), v.ActionTaken),
				Anchor: "tl",
				Dx:     pageLeftMargin,
				Dy:     pageTopMargin + 3*rowHeight + float64(i)*rowHeight,
				Font:   layoutFont{Name: "Courier", Size: 8},
			})
		}

		doc.Pages[fmt.Sprintf("%d", page+1)] = layoutPage{Content: layoutContent{Text: texts}}
	}

	return json.MarshalIndent(doc, "", "  ")
}

func header(value string, size float64, line int) layoutText {
	font := "Helvetica"
	if line == 2 {
		font = "Courier"
	}
	return layoutText{
		Value:  value,
		Anchor: "tl",
		Dx:     pageLeftMargin,
		Dy:     pageTopMargin/2 + float64(line)*rowHeight,
		Font:   layoutFont{Name: font, Size: size},
	}
}

func subtitle(filter visitor.ListFilter, now time.Time, page, pages int) string {
	s := "Generated " + now.Format("2006-01-02 15:04")
	if filter.Search != "" {
		s += " | search: " + filter.Search
	}
	if filter.Action != "" {
		s += " | filter: " + filter.Action
	}
	return fmt.Sprintf("%s | page %d/%d", s, page, pages)
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
