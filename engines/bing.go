package engines

import (
	"net/url"
	"strconv"

	"searchparser/search"

	"github.com/PuerkitoBio/goquery"
)

type Bing struct{}

var bingSelectors = search.Selectors{
	Block:       "li.b_algo",
	Title:       "h2",
	Link:        "h2 a[href]",
	Description: "div.b_caption p, p.b_lineclamp2, p",
	Extras: map[string]string{
		"cite": "cite",
	},
}

func (Bing) Metadata() search.Metadata {
	return search.Metadata{
		Name:            "Bing",
		BaseURL:         "https://www.bing.com",
		SearchURL:       "https://www.bing.com/search",
		Summary:         "Microsoft's web search engine. It also powers the results of several other engines.",
		PageSize:        10,
		BlockSignatures: []string{"b_captcha", "challenges.cloudflare.com"},
	}
}

func (Bing) BuildParams(q search.Query) url.Values {
	v := url.Values{
		"q":     {q.Text},
		"first": {strconv.Itoa((q.Page-1)*10 + 1 + q.Offset)},
	}
	if cc := q.Extra["cc"]; cc != "" {
		v.Set("cc", cc)
	}
	return v
}

func (Bing) LocateBlocks(doc *goquery.Document) *goquery.Selection {
	return doc.Find(bingSelectors.Block)
}

func (b Bing) ExtractItem(block *goquery.Selection, level search.DetailLevel) (search.Item, bool) {
	base := b.Metadata().BaseURL
	return search.Extract(block, level, bingSelectors, func(raw string) string {
		link := absolute(base, raw)
		if target, ok := bingTarget(link); ok {
			return absolute(base, target)
		}
		return link
	})
}

func init() {
	search.Register("bing", Bing{})
}
