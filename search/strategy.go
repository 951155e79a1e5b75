package search

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Metadata is the read-only description of an engine.
type Metadata struct {
	Name      string `json:"name"`
	BaseURL   string `json:"base_url"`
	SearchURL string `json:"search_url"`
	Summary   string `json:"summary"`
	// PageSize is the most results one page of this engine holds.
	PageSize int `json:"page_size"`
	// BlockSignatures are body fragments that identify a block page.
	BlockSignatures []string `json:"-"`
}

// Query is the logical request a strategy turns into wire parameters.
// Page is 1-based.
type Query struct {
	Text   string
	Page   int
	Offset int
	Extra  map[string]string
}

// Strategy is the per-engine parsing logic. Implementations must be
// stateless and safe for concurrent use.
type Strategy interface {
	Metadata() Metadata
	// BuildParams is a pure function of q.
	BuildParams(q Query) url.Values
	// LocateBlocks returns one node per result; an empty selection when the
	// page has none.
	LocateBlocks(doc *goquery.Document) *goquery.Selection
	// ExtractItem returns false when the block has no usable link.
	ExtractItem(block *goquery.Selection, level DetailLevel) (Item, bool)
}

// Selectors is the markup description of an engine's result blocks.
type Selectors struct {
	Block       string
	Title       string
	Link        string
	LinkAttr    string
	Description string
	// Extras maps an extra field name to the selector holding its text.
	Extras map[string]string
}

// LinkFunc turns a raw link attribute into the result URL; "" discards it.
type LinkFunc func(raw string) string

// Extract builds an Item from a block using sel. The link is always
// resolved, whatever the level, because a block without one is dropped.
func Extract(block *goquery.Selection, level DetailLevel, sel Selectors, normalize LinkFunc) (Item, bool) {
	attr := sel.LinkAttr
	if attr == "" {
		attr = "href"
	}
	linkNode := block
	if sel.Link != "" {
		linkNode = block.Find(sel.Link).First()
	}
	raw, ok := linkNode.Attr(attr)
	if !ok {
		return Item{}, false
	}
	link := strings.TrimSpace(raw)
	if normalize != nil {
		link = normalize(link)
	}
	if link == "" {
		return Item{}, false
	}

	item := Item{Link: link}
	if level.Includes(FieldTitles) && sel.Title != "" {
		item.Title = Text(block.Find(sel.Title).First())
	}
	if level.Includes(FieldDescriptions) && sel.Description != "" {
		item.Description = Text(block.Find(sel.Description).First())
	}
	if level == Full && len(sel.Extras) > 0 {
		for name, s := range sel.Extras {
			if v := Text(block.Find(s).First()); v != "" {
				if item.Extra == nil {
					item.Extra = make(map[string]string, len(sel.Extras))
				}
				item.Extra[name] = v
			}
		}
	}
	return item, true
}

// Text returns the whitespace-collapsed text of a selection.
func Text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}
