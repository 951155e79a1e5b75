package engines

import (
	"net/url"
	"strconv"

	"searchparser/search"

	"github.com/PuerkitoBio/goquery"
)

// DuckDuckGo parses the JavaScript-free html endpoint.
type DuckDuckGo struct{}

var duckDuckGoSelectors = search.Selectors{
	Block:       "div.result",
	Title:       "h2.result__title",
	Link:        "a.result__a",
	Description: ".result__snippet",
	Extras: map[string]string{
		"display_url": "a.result__url",
	},
}

func (DuckDuckGo) Metadata() search.Metadata {
	return search.Metadata{
		Name:      "DuckDuckGo",
		BaseURL:   "https://www.duckduckgo.com",
		SearchURL: "https://www.duckduckgo.com/html/",
		Summary: "A privacy focused engine that does not track or profile its users. " +
			"Its pages are light on ads and it answers tens of millions of queries a day.",
		PageSize:        30,
		BlockSignatures: []string{"anomaly-modal", "If this error persists, please let us know"},
	}
}

// BuildParams maps page to DuckDuckGo's row offset: the first page starts
// at 0, later pages at (page-1)*50-20.
func (DuckDuckGo) BuildParams(q search.Query) url.Values {
	s := 0
	if q.Page >= 2 {
		s = (q.Page-1)*50 - 20
	}
	v := url.Values{
		"q":   {q.Text},
		"s":   {strconv.Itoa(s)},
		"o":   {"json"},
		"api": {"d.js"},
	}
	if q.Offset > 0 {
		v.Set("dc", strconv.Itoa(q.Offset))
	}
	if kl := q.Extra["kl"]; kl != "" {
		v.Set("kl", kl)
	}
	return v
}

func (DuckDuckGo) LocateBlocks(doc *goquery.Document) *goquery.Selection {
	return doc.Find(duckDuckGoSelectors.Block).Not(".result--ad")
}

func (d DuckDuckGo) ExtractItem(block *goquery.Selection, level search.DetailLevel) (search.Item, bool) {
	base := d.Metadata().BaseURL
	return search.Extract(block, level, duckDuckGoSelectors, func(raw string) string {
		link := absolute(base, raw)
		if target, ok := queryTarget(link, "uddg"); ok {
			return absolute(base, target)
		}
		return link
	})
}

func init() {
	search.Register("duckduckgo", DuckDuckGo{})
}
