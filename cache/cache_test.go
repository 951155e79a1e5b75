package cache

import (
	"bytes"
	"net/url"
	"path/filepath"
	"testing"
	"time"
)

func backends(t *testing.T) map[string]Cache {
	t.Helper()
	b, err := OpenBolt(filepath.Join(t.TempDir(), "nested", "cache.db"))
	if err != nil {
		t.Fatalf("failed to open bolt cache: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return map[string]Cache{
		"Memory": NewMemory(),
		"Bolt":   b,
	}
}

func TestCache_PutGet(t *testing.T) {
	fetchedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := c.Get("google", "k1"); err != nil || ok {
				t.Fatalf("expected a miss, got ok=%v err=%v", ok, err)
			}

			body := []byte("<html>results</html>")
			if err := c.Put("google", "k1", Entry{Body: body, FetchedAt: fetchedAt}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			body[0] = 'X'

			e, ok, err := c.Get("google", "k1")
			if err != nil || !ok {
				t.Fatalf("expected a hit, got ok=%v err=%v", ok, err)
			}
			if !bytes.Equal(e.Body, []byte("<html>results</html>")) {
				t.Errorf("unexpected body %q", e.Body)
			}
			if !e.FetchedAt.Equal(fetchedAt) {
				t.Errorf("expected fetch time %v, got %v", fetchedAt, e.FetchedAt)
			}
		})
	}
}

func TestCache_ClearIsScoped(t *testing.T) {
	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			entry := Entry{Body: []byte("page"), FetchedAt: time.Now()}
			if err := c.Put("google", "k", entry); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := c.Put("bing", "k", entry); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if err := c.Clear("google"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, ok, _ := c.Get("google", "k"); ok {
				t.Error("expected google entry to be cleared")
			}
			if _, ok, _ := c.Get("bing", "k"); !ok {
				t.Error("clearing google must not touch bing")
			}

			if err := c.Clear("google"); err != nil {
				t.Errorf("clearing an empty scope should succeed: %v", err)
			}
			if err := c.Clear("never-used"); err != nil {
				t.Errorf("clearing an unknown scope should succeed: %v", err)
			}
		})
	}
}

func TestBolt_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	b, err := OpenBolt(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Put("yahoo", "k", Entry{Body: []byte("kept"), FetchedAt: time.Unix(1700000000, 0)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reopened, err := OpenBolt(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer reopened.Close()

	e, ok, err := reopened.Get("yahoo", "k")
	if err != nil || !ok {
		t.Fatalf("expected a hit after reopen, got ok=%v err=%v", ok, err)
	}
	if string(e.Body) != "kept" || e.FetchedAt.Unix() != 1700000000 {
		t.Errorf("unexpected entry %q at %v", e.Body, e.FetchedAt)
	}
}

func TestDecodeEntry_Corrupt(t *testing.T) {
	if _, err := decodeEntry([]byte{1, 2, 3}); err == nil {
		t.Error("expected an error for a short entry")
	}
}

func TestKey(t *testing.T) {
	params := url.Values{"q": {"rust"}, "start": {"0"}}
	reordered := url.Values{"start": {"0"}, "q": {"rust"}}

	base := Key("google", "https://www.google.com/search", params)
	if base != Key("google", "https://www.google.com/search", reordered) {
		t.Error("equal parameter sets must give equal keys")
	}

	testCases := []struct {
		name   string
		engine string
		target string
		params url.Values
	}{
		{"OtherEngine", "bing", "https://www.google.com/search", params},
		{"OtherTarget", "google", "https://www.google.de/search", params},
		{"OtherPage", "google", "https://www.google.com/search", url.Values{"q": {"rust"}, "start": {"10"}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if Key(tc.engine, tc.target, tc.params) == base {
				t.Error("expected a different key")
			}
		})
	}
}

func TestMemory_Len(t *testing.T) {
	m := NewMemory()
	m.Put("brave", "a", Entry{})
	m.Put("brave", "b", Entry{})
	if m.Len("brave") != 2 {
		t.Errorf("expected 2 entries, got %d", m.Len("brave"))
	}
	m.Clear("brave")
	if m.Len("brave") != 0 {
		t.Errorf("expected 0 entries, got %d", m.Len("brave"))
	}
}
