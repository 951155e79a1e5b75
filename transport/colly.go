package transport

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// CollyFetcher fetches pages through a colly collector. A collector is
// built per call so concurrent fetches never share callbacks.
type CollyFetcher struct {
	opts options
	pool transportPool
}

func NewCollyFetcher(opts ...Option) *CollyFetcher {
	return &CollyFetcher{opts: newOptions(opts)}
}

func (f *CollyFetcher) Fetch(ctx context.Context, req Request) (*Response, error) {
	if err := req.Proxy.Validate(); err != nil {
		return nil, err
	}
	target, err := req.FullURL()
	if err != nil {
		return nil, err
	}
	transport, err := f.pool.get(req.Proxy)
	if err != nil {
		return nil, err
	}

	headers := MergeHeaders(DefaultHeaders(), req.Header)
	c := colly.NewCollector(
		colly.UserAgent(headers.Get("User-Agent")),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
		colly.MaxBodySize(int(f.opts.maxBodyBytes)),
	)
	c.ParseHTTPErrorResponse = true
	c.WithTransport(&contextRoundTripper{ctx: ctx, next: transport})
	if f.opts.timeout > 0 {
		c.SetRequestTimeout(f.opts.timeout)
	}

	c.OnRequest(func(r *colly.Request) {
		for k, vs := range headers {
			(*r.Headers)[k] = append([]string(nil), vs...)
		}
	})

	var resp *Response
	c.OnResponse(func(r *colly.Response) {
		var hdr http.Header
		if r.Headers != nil {
			hdr = r.Headers.Clone()
		}
		resp = &Response{
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
			Header:     hdr,
		}
	})

	if err := c.Visit(target); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("request failed: no response for %s", target)
	}

	f.opts.logger.Debug("fetched",
		zap.String("url", target),
		zap.String("fetcher", "colly"),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(resp.Body)),
		zap.Bool("proxy", req.Proxy.Enabled()))
	return resp, nil
}

func (f *CollyFetcher) Close() {
	f.pool.closeIdle()
}

// contextRoundTripper binds colly's requests to the caller's context so a
// cancelled search aborts the in-flight fetch.
type contextRoundTripper struct {
	ctx  context.Context
	next http.RoundTripper
}

func (t *contextRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	return t.next.RoundTrip(r.WithContext(t.ctx))
}
