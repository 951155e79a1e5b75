package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestRequest_FullURL(t *testing.T) {
	testCases := []struct {
		name    string
		req     Request
		want    string
		wantErr bool
	}{
		{"NoParams", Request{URL: "https://www.bing.com/search"}, "https://www.bing.com/search", false},
		{"Params", Request{URL: "https://www.bing.com/search", Params: url.Values{"q": {"go lang"}, "first": {"11"}}}, "https://www.bing.com/search?first=11&q=go+lang", false},
		{"MergesExisting", Request{URL: "https://search.yahoo.com/search?ei=UTF-8", Params: url.Values{"p": {"go"}}}, "https://search.yahoo.com/search?ei=UTF-8&p=go", false},
		{"MissingScheme", Request{URL: "www.bing.com/search"}, "", true},
		{"Garbage", Request{URL: "://nope"}, "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.req.FullURL()
			if (err != nil) != tc.wantErr {
				t.Fatalf("expected error %v, got %v", tc.wantErr, err)
			}
			if got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestProxy_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		proxy   *Proxy
		wantErr bool
	}{
		{"Nil", nil, false},
		{"Empty", &Proxy{}, false},
		{"Complete", &Proxy{Address: "http://10.0.0.1:3128", Username: "u", Password: "p"}, false},
		{"NoScheme", &Proxy{Address: "10.0.0.1:3128", Username: "u", Password: "p"}, false},
		{"Socks", &Proxy{Address: "socks5://127.0.0.1:9050", Username: "u", Password: "p"}, false},
		{"MissingPassword", &Proxy{Address: "http://10.0.0.1:3128", Username: "u"}, true},
		{"MissingUsername", &Proxy{Address: "http://10.0.0.1:3128", Password: "p"}, true},
		{"CredentialsOnly", &Proxy{Username: "u", Password: "p"}, true},
		{"BadScheme", &Proxy{Address: "ftp://10.0.0.1", Username: "u", Password: "p"}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.proxy.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("expected error %v, got %v", tc.wantErr, err)
			}
			if err != nil && !errors.Is(err, ErrInvalidProxy) {
				t.Errorf("expected ErrInvalidProxy, got %v", err)
			}
		})
	}
}

func TestNewTransport(t *testing.T) {
	direct, err := newTransport(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if direct.DialContext != nil {
		t.Error("expected the default dialer without a proxy")
	}

	socks, err := newTransport(&Proxy{Address: "socks5://127.0.0.1:9050", Username: "u", Password: "p"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if socks.DialContext == nil || socks.Proxy != nil {
		t.Error("expected a SOCKS5 dialer and no http proxy")
	}

	httpProxy, err := newTransport(&Proxy{Address: "http://10.0.0.1:3128", Username: "u", Password: "p"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req, _ := http.NewRequest(http.MethodGet, "https://www.google.com/search", nil)
	u, err := httpProxy.Proxy(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Host != "10.0.0.1:3128" || u.User.Username() != "u" {
		t.Errorf("unexpected proxy url %v", u)
	}
}

func TestTransportPool_ReusesPerProxy(t *testing.T) {
	var pool transportPool
	p := &Proxy{Address: "http://10.0.0.1:3128", Username: "u", Password: "p"}

	a, _ := pool.get(p)
	b, _ := pool.get(&Proxy{Address: "http://10.0.0.1:3128", Username: "u", Password: "p"})
	c, _ := pool.get(nil)
	if a != b {
		t.Error("expected the same transport for the same proxy")
	}
	if a == c {
		t.Error("expected a different transport without a proxy")
	}
}

func TestMergeHeaders(t *testing.T) {
	base := http.Header{"User-Agent": {"a"}, "Accept": {"text/html"}}
	out := MergeHeaders(base, http.Header{"user-agent": {"b"}})

	if out.Get("User-Agent") != "b" || out.Get("Accept") != "text/html" {
		t.Errorf("unexpected merge %v", out)
	}
	if base.Get("User-Agent") != "a" {
		t.Error("base must not be modified")
	}
}

func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/limited":
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte("slow down"))
		case "/slow":
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte("late"))
		default:
			w.Header().Set("X-Query", r.URL.Query().Get("q"))
			w.Write([]byte("ua=" + r.UserAgent() + " lang=" + r.Header.Get("Accept-Language")))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func fetchers(opts ...Option) map[string]Fetcher {
	return map[string]Fetcher{
		"HTTP":  NewHTTPFetcher(opts...),
		"Colly": NewCollyFetcher(opts...),
	}
}

func TestFetch_HeadersAndParams(t *testing.T) {
	srv := echoServer(t)

	for name, f := range fetchers() {
		t.Run(name, func(t *testing.T) {
			resp, err := f.Fetch(context.Background(), Request{
				URL:    srv.URL + "/search",
				Params: url.Values{"q": {"rust ownership"}},
				Header: http.Header{"Accept-Language": {"de-DE"}},
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.StatusCode != http.StatusOK {
				t.Errorf("expected 200, got %d", resp.StatusCode)
			}
			body := string(resp.Body)
			if !strings.Contains(body, "ua="+defaultUserAgent) {
				t.Errorf("expected the default user agent, got %q", body)
			}
			if !strings.Contains(body, "lang=de-DE") {
				t.Errorf("expected the overridden language, got %q", body)
			}
			if resp.Header.Get("X-Query") != "rust ownership" {
				t.Errorf("expected the query to be sent, got %q", resp.Header.Get("X-Query"))
			}
		})
	}
}

func TestFetch_ErrorStatusIsData(t *testing.T) {
	srv := echoServer(t)

	for name, f := range fetchers() {
		t.Run(name, func(t *testing.T) {
			resp, err := f.Fetch(context.Background(), Request{URL: srv.URL + "/limited"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.StatusCode != http.StatusTooManyRequests {
				t.Errorf("expected 429, got %d", resp.StatusCode)
			}
			if string(resp.Body) != "slow down" {
				t.Errorf("unexpected body %q", resp.Body)
			}
		})
	}
}

func TestFetch_Timeout(t *testing.T) {
	srv := echoServer(t)

	for name, f := range fetchers(WithTimeout(20 * time.Millisecond)) {
		t.Run(name, func(t *testing.T) {
			if _, err := f.Fetch(context.Background(), Request{URL: srv.URL + "/slow"}); err == nil {
				t.Fatal("expected a timeout error")
			}
		})
	}
}

func TestFetch_Cancelled(t *testing.T) {
	srv := echoServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewHTTPFetcher().Fetch(ctx, Request{URL: srv.URL}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation, got %v", err)
	}
}

func TestFetch_InvalidProxySkipsNetwork(t *testing.T) {
	hit := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
	}))
	defer srv.Close()

	for name, f := range fetchers() {
		t.Run(name, func(t *testing.T) {
			_, err := f.Fetch(context.Background(), Request{
				URL:   srv.URL,
				Proxy: &Proxy{Address: srv.URL},
			})
			if !errors.Is(err, ErrInvalidProxy) {
				t.Errorf("expected ErrInvalidProxy, got %v", err)
			}
		})
	}
	if hit {
		t.Error("expected no request to reach the server")
	}
}

func TestHTTPFetcher_ThroughProxy(t *testing.T) {
	var gotAuth, gotHost string
	proxySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Proxy-Authorization")
		gotHost = r.URL.Host
		w.Write([]byte("via proxy"))
	}))
	defer proxySrv.Close()

	f := NewHTTPFetcher()
	defer f.Close()
	resp, err := f.Fetch(context.Background(), Request{
		URL:   "http://search.example/html",
		Proxy: &Proxy{Address: proxySrv.URL, Username: "user", Password: "secret"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Body) != "via proxy" {
		t.Errorf("unexpected body %q", resp.Body)
	}
	if gotHost != "search.example" {
		t.Errorf("expected the proxy to receive search.example, got %q", gotHost)
	}
	if !strings.HasPrefix(gotAuth, "Basic ") {
		t.Errorf("expected basic proxy credentials, got %q", gotAuth)
	}
}

func TestHTTPFetcher_MaxBodyBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer srv.Close()

	resp, err := NewHTTPFetcher(WithMaxBodyBytes(10)).Fetch(context.Background(), Request{URL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Body) != 10 {
		t.Errorf("expected 10 bytes, got %d", len(resp.Body))
	}
}

func TestNew(t *testing.T) {
	testCases := []struct {
		kind    string
		wantErr bool
	}{
		{"", false},
		{"http", false},
		{"colly", false},
		{"chromedp", true},
	}

	for _, tc := range testCases {
		t.Run(tc.kind, func(t *testing.T) {
			_, err := New(tc.kind)
			if (err != nil) != tc.wantErr {
				t.Errorf("expected error %v, got %v", tc.wantErr, err)
			}
		})
	}
}
