package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"searchparser/search"
	"searchparser/transport"
)

type pageFetcher string

func (p pageFetcher) Fetch(ctx context.Context, req transport.Request) (*transport.Response, error) {
	return &transport.Response{StatusCode: 200, Body: []byte(p)}, nil
}

func resultSet(t *testing.T, page string) *search.ResultSet {
	t.Helper()
	sr, err := search.New("duckduckgo", search.WithFetcher(pageFetcher(page)), search.WithCache(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rs, err := sr.Search(context.Background(), "golang", search.Request{Page: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return rs
}

const page = `<html><body>
<div class="result"><h2 class="result__title"><a class="result__a" href="https://go.dev/">The Go Programming Language</a></h2><a class="result__url" href="https://go.dev/">go.dev</a><a class="result__snippet">Build simple, secure, scalable systems.</a></div>
<div class="result"><h2 class="result__title"><a class="result__a" href="https://pkg.go.dev/">Go Packages</a></h2></div>
</body></html>`

func TestPrintResults(t *testing.T) {
	rs := resultSet(t, page)

	var buf bytes.Buffer
	if err := printResults(&buf, rs, -1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"The Go Programming Language", "https://go.dev/", "display_url : go.dev", "Go Packages", separator} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := printResults(&buf, rs, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(buf.String(), "The Go Programming Language") || !strings.Contains(buf.String(), "https://pkg.go.dev/") {
		t.Errorf("expected only rank 1, got:\n%s", buf.String())
	}

	if err := printResults(&buf, rs, 7); !errors.Is(err, search.ErrRankOutOfRange) {
		t.Errorf("expected rank out of range, got %v", err)
	}
}

func TestPrintResults_Empty(t *testing.T) {
	rs := resultSet(t, "<html><body><p>No results.</p></body></html>")

	var buf bytes.Buffer
	if err := printResults(&buf, rs, -1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `No results for "golang" on page 1`) {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestPrintJSON(t *testing.T) {
	rs := resultSet(t, page)

	var buf bytes.Buffer
	if err := printJSON(&buf, []*search.ResultSet{rs}, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var items []search.Item
	if err := json.Unmarshal(buf.Bytes(), &items); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].Link != "https://go.dev/" {
		t.Errorf("unexpected items %+v", items)
	}
}
