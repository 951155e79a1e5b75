package engines

import (
	"net/url"
	"strconv"

	"searchparser/search"

	"github.com/PuerkitoBio/goquery"
)

type Brave struct{}

var braveSelectors = search.Selectors{
	Block:       `div.snippet[data-type="web"]`,
	Title:       ".title",
	Link:        "a[href]",
	Description: ".snippet-description, .generic-snippet .content",
	Extras: map[string]string{
		"site_name": ".sitename",
	},
}

func (Brave) Metadata() search.Metadata {
	return search.Metadata{
		Name:            "Brave",
		BaseURL:         "https://search.brave.com",
		SearchURL:       "https://search.brave.com/search",
		Summary:         "An independent engine built on its own index, without user tracking or profiling.",
		PageSize:        20,
		BlockSignatures: []string{"pow-captcha", "captcha-container"},
	}
}

// BuildParams uses Brave's zero-based page offset.
func (Brave) BuildParams(q search.Query) url.Values {
	v := url.Values{
		"q":      {q.Text},
		"offset": {strconv.Itoa(q.Page - 1 + q.Offset)},
		"source": {"web"},
	}
	if country := q.Extra["country"]; country != "" {
		v.Set("country", country)
	}
	return v
}

func (Brave) LocateBlocks(doc *goquery.Document) *goquery.Selection {
	return doc.Find(braveSelectors.Block)
}

func (b Brave) ExtractItem(block *goquery.Selection, level search.DetailLevel) (search.Item, bool) {
	base := b.Metadata().BaseURL
	return search.Extract(block, level, braveSelectors, func(raw string) string {
		return absolute(base, raw)
	})
}

func init() {
	search.Register("brave", Brave{})
}
