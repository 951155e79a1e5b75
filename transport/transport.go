package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const (
	defaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultMaxBodyBytes = int64(5 << 20)
)

// Request is a single outbound GET.
type Request struct {
	URL    string
	Params url.Values
	Proxy  *Proxy
	Header http.Header
}

// FullURL merges Params into the query string of URL.
func (r Request) FullURL() (string, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", r.URL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid url %q: missing scheme or host", r.URL)
	}
	if len(r.Params) > 0 {
		q := u.Query()
		for k, vs := range r.Params {
			q[k] = append([]string(nil), vs...)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Response carries the status and body of a completed request. Error
// statuses are data, not errors.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// Fetcher performs exactly one request per call and never retries.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Response, error)
}

// DefaultHeaders is a browser-like header set.
func DefaultHeaders() http.Header {
	return http.Header{
		"User-Agent":      {defaultUserAgent},
		"Accept":          {"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
		"Accept-Language": {"en-US,en;q=0.9"},
	}
}

// MergeHeaders returns base overlaid with override.
func MergeHeaders(base, override http.Header) http.Header {
	out := base.Clone()
	if out == nil {
		out = http.Header{}
	}
	for k, vs := range override {
		out[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
	return out
}

type options struct {
	timeout      time.Duration
	maxBodyBytes int64
	logger       *zap.Logger
}

// Option configures a fetcher.
type Option func(*options)

// WithTimeout bounds a whole request. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithMaxBodyBytes caps how much of a response body is read.
func WithMaxBodyBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBodyBytes = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		maxBodyBytes: defaultMaxBodyBytes,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New returns the fetcher registered under kind: "http" (default) or "colly".
func New(kind string, opts ...Option) (Fetcher, error) {
	switch kind {
	case "", "http":
		return NewHTTPFetcher(opts...), nil
	case "colly":
		return NewCollyFetcher(opts...), nil
	}
	return nil, fmt.Errorf("unknown fetcher %q", kind)
}
