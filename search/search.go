package search

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"maps"
	"strings"
	"time"
)

// Field is the logical, provider-independent name of a result field.
type Field string

const (
	FieldTitles       Field = "titles"
	FieldLinks        Field = "links"
	FieldDescriptions Field = "descriptions"
)

// DetailLevel selects which fields a strategy extracts from each result block.
type DetailLevel int

const (
	Full DetailLevel = iota
	Titles
	Links
	Descriptions
)

func (d DetailLevel) String() string {
	switch d {
	case Full:
		return "full"
	case Titles:
		return "titles"
	case Links:
		return "links"
	case Descriptions:
		return "descriptions"
	}
	return fmt.Sprintf("detail(%d)", int(d))
}

// Includes reports whether fields of kind f are populated at this level.
func (d DetailLevel) Includes(f Field) bool {
	switch d {
	case Full:
		return true
	case Titles:
		return f == FieldTitles
	case Links:
		return f == FieldLinks
	case Descriptions:
		return f == FieldDescriptions
	}
	return false
}

func (d DetailLevel) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// ParseDetailLevel maps a user supplied name to a DetailLevel.
func ParseDetailLevel(s string) (DetailLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "full":
		return Full, nil
	case "titles", "title":
		return Titles, nil
	case "links", "link":
		return Links, nil
	case "descriptions", "description":
		return Descriptions, nil
	}
	return Full, &ConfigurationError{Field: "type", Reason: fmt.Sprintf("unknown detail level %q", s)}
}

// Item is one extracted search result. Link is always set on items
// produced by a strategy; Title and Description depend on the detail level.
type Item struct {
	Title       string            `json:"titles,omitempty"`
	Link        string            `json:"links"`
	Description string            `json:"descriptions,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

func (i Item) clone() Item {
	i.Extra = maps.Clone(i.Extra)
	return i
}

// Get returns the value stored under a logical field name or an extra key.
func (i Item) Get(f Field) (string, bool) {
	switch f {
	case FieldTitles:
		return i.Title, i.Title != ""
	case FieldLinks:
		return i.Link, i.Link != ""
	case FieldDescriptions:
		return i.Description, i.Description != ""
	}
	v, ok := i.Extra[string(f)]
	return v, ok
}

// ErrRankOutOfRange is returned by ResultSet.At for a rank outside the set.
var ErrRankOutOfRange = errors.New("rank out of range")

// ResultSet holds the items of one engine/query/page in provider rank order.
type ResultSet struct {
	Engine    string
	Query     string
	Page      int
	Detail    DetailLevel
	FromCache bool
	FetchedAt time.Time

	items []Item
}

func newResultSet(engine, query string, page int, detail DetailLevel, items []Item) *ResultSet {
	return &ResultSet{
		Engine: engine,
		Query:  query,
		Page:   page,
		Detail: detail,
		items:  items,
	}
}

func (rs *ResultSet) Len() int {
	return len(rs.items)
}

// Empty reports a structurally valid page that held no results.
func (rs *ResultSet) Empty() bool {
	return len(rs.items) == 0
}

// Items returns a copy of the items in rank order.
func (rs *ResultSet) Items() []Item {
	out := make([]Item, len(rs.items))
	for i, item := range rs.items {
		out[i] = item.clone()
	}
	return out
}

// All iterates over the items in rank order.
func (rs *ResultSet) All() iter.Seq2[int, Item] {
	return func(yield func(int, Item) bool) {
		for i, item := range rs.items {
			if !yield(i, item.clone()) {
				return
			}
		}
	}
}

// At returns the item at a 0-based rank.
func (rs *ResultSet) At(rank int) (Item, error) {
	if rank < 0 || rank >= len(rs.items) {
		return Item{}, fmt.Errorf("%w: rank %d, %d results", ErrRankOutOfRange, rank, len(rs.items))
	}
	return rs.items[rank].clone(), nil
}

// Field projects one field across all items. Items lacking the field
// contribute an empty string so the projection stays rank aligned.
func (rs *ResultSet) Field(f Field) []string {
	out := make([]string, len(rs.items))
	for i, item := range rs.items {
		out[i], _ = item.Get(f)
	}
	return out
}

func (rs *ResultSet) Titles() []string       { return rs.Field(FieldTitles) }
func (rs *ResultSet) Links() []string        { return rs.Field(FieldLinks) }
func (rs *ResultSet) Descriptions() []string { return rs.Field(FieldDescriptions) }

type resultSetJSON struct {
	Engine    string      `json:"engine"`
	Query     string      `json:"query"`
	Page      int         `json:"page"`
	Detail    DetailLevel `json:"detail"`
	FromCache bool        `json:"from_cache"`
	FetchedAt time.Time   `json:"fetched_at"`
	Results   []Item      `json:"results"`
}

func (rs *ResultSet) MarshalJSON() ([]byte, error) {
	items := rs.items
	if items == nil {
		items = []Item{}
	}
	return json.Marshal(resultSetJSON{
		Engine:    rs.Engine,
		Query:     rs.Query,
		Page:      rs.Page,
		Detail:    rs.Detail,
		FromCache: rs.FromCache,
		FetchedAt: rs.FetchedAt,
		Results:   items,
	})
}
