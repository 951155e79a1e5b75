package engines

import (
	"net/url"
	"strconv"

	"searchparser/search"

	"github.com/PuerkitoBio/goquery"
)

type Yahoo struct{}

var yahooSelectors = search.Selectors{
	Block:       "div.algo",
	Title:       "h3.title",
	Link:        "h3.title a[href], a[href]",
	Description: "div.compText p, p.fz-ms",
}

func (Yahoo) Metadata() search.Metadata {
	return search.Metadata{
		Name:            "Yahoo",
		BaseURL:         "https://search.yahoo.com",
		SearchURL:       "https://search.yahoo.com/search",
		Summary:         "One of the oldest web portals. Its organic results are served from Bing's index.",
		PageSize:        10,
		BlockSignatures: []string{"/recaptcha/", "Please enable Javascript to verify you are human"},
	}
}

func (Yahoo) BuildParams(q search.Query) url.Values {
	return url.Values{
		"p": {q.Text},
		"b": {strconv.Itoa((q.Page-1)*10 + 1 + q.Offset)},
	}
}

func (Yahoo) LocateBlocks(doc *goquery.Document) *goquery.Selection {
	return doc.Find(yahooSelectors.Block)
}

func (y Yahoo) ExtractItem(block *goquery.Selection, level search.DetailLevel) (search.Item, bool) {
	base := y.Metadata().BaseURL
	return search.Extract(block, level, yahooSelectors, func(raw string) string {
		link := absolute(base, raw)
		if target, ok := yahooTarget(link); ok {
			return absolute(base, target)
		}
		return link
	})
}

func init() {
	search.Register("yahoo", Yahoo{})
}
