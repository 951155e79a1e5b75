package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"searchparser/search"

	"github.com/charmbracelet/lipgloss"
)

const separator = "-----------------------------------------------------"

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	headerStyle = lipgloss.NewStyle().Bold(true)
)

func printItem(w io.Writer, item search.Item) {
	if item.Title != "" {
		fmt.Fprintf(w, "\t%s\n", titleStyle.Render(item.Title))
	}
	if item.Link != "" {
		fmt.Fprintf(w, "\t%s\n", item.Link)
		fmt.Fprintf(w, "\t%s\n", separator)
	}
	if item.Description != "" {
		fmt.Fprintln(w, item.Description)
	}
	keys := make([]string, 0, len(item.Extra))
	for k := range item.Extra {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s : %s\n", strings.TrimSpace(k), item.Extra[k])
	}
	fmt.Fprint(w, "\n\n")
}

// printResults prints every item of rs, or only the one at rank when
// rank is not negative.
func printResults(w io.Writer, rs *search.ResultSet, rank int) error {
	if rs.Empty() {
		fmt.Fprintf(w, "No results for %q on page %d\n", rs.Query, rs.Page)
		return nil
	}
	if rank >= 0 {
		item, err := rs.At(rank)
		if err != nil {
			return err
		}
		printItem(w, item)
		return nil
	}
	for _, item := range rs.All() {
		printItem(w, item)
	}
	return nil
}

func printJSON(w io.Writer, results []*search.ResultSet, rank int) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if rank >= 0 {
		items := make([]search.Item, 0, len(results))
		for _, rs := range results {
			item, err := rs.At(rank)
			if err != nil {
				return err
			}
			items = append(items, item)
		}
		return enc.Encode(items)
	}
	if len(results) == 1 {
		return enc.Encode(results[0])
	}
	return enc.Encode(results)
}

func printSummary(w io.Writer, meta search.Metadata) {
	fmt.Fprintf(w, "\t%s\n", titleStyle.Render(meta.Name))
	fmt.Fprintf(w, "\t%s\n", separator)
	fmt.Fprintf(w, "\t%s\n", meta.Summary)
}

func printEngine(w io.Writer, id string, meta search.Metadata) {
	fmt.Fprintf(w, "%-12s %s  %s\n", id, headerStyle.Render(meta.Name), meta.BaseURL)
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "\n %s\n", errorStyle.Render(err.Error()))
}
