package engines

import (
	"net/url"
	"strconv"
	"strings"

	"searchparser/search"

	"github.com/PuerkitoBio/goquery"
)

type Google struct{}

var googleSelectors = search.Selectors{
	Block:       "div.g",
	Title:       "h3",
	Link:        "a[href]",
	Description: "div.VwiC3b, span.aCOpRe, div.IsZvec",
	Extras: map[string]string{
		"display_url": "cite",
	},
}

func (Google) Metadata() search.Metadata {
	return search.Metadata{
		Name:      "Google",
		BaseURL:   "https://www.google.com",
		SearchURL: "https://www.google.com/search",
		Summary: "The most widely used web search engine, handling several billion queries a day " +
			"across more than a hundred languages.",
		PageSize:        10,
		BlockSignatures: []string{"id=\"captcha-form\"", "/recaptcha/api"},
	}
}

func (Google) BuildParams(q search.Query) url.Values {
	v := url.Values{
		"q":     {q.Text},
		"start": {strconv.Itoa((q.Page-1)*10 + q.Offset)},
		"num":   {"10"},
	}
	if hl := q.Extra["hl"]; hl != "" {
		v.Set("hl", hl)
	}
	return v
}

func (Google) LocateBlocks(doc *goquery.Document) *goquery.Selection {
	// Nested div.g blocks belong to their outer result.
	return doc.Find(googleSelectors.Block).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.ParentsFiltered(googleSelectors.Block).Length() == 0
	})
}

func (g Google) ExtractItem(block *goquery.Selection, level search.DetailLevel) (search.Item, bool) {
	base := g.Metadata().BaseURL
	return search.Extract(block, level, googleSelectors, func(raw string) string {
		if strings.HasPrefix(raw, "/url?") {
			if target, ok := queryTarget(raw, "q"); ok {
				return absolute(base, target)
			}
			return ""
		}
		if strings.HasPrefix(raw, "/search?") {
			return ""
		}
		return absolute(base, raw)
	})
}

func init() {
	search.Register("google", Google{})
}
