package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// HTTPFetcher fetches pages with net/http.
type HTTPFetcher struct {
	opts options
	pool transportPool
}

func NewHTTPFetcher(opts ...Option) *HTTPFetcher {
	return &HTTPFetcher{opts: newOptions(opts)}
}

// Fetch performs one GET. The proxy is validated before any network call.
func (f *HTTPFetcher) Fetch(ctx context.Context, req Request) (*Response, error) {
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

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header = MergeHeaders(DefaultHeaders(), req.Header)

	client := &http.Client{Transport: transport, Timeout: f.opts.timeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	f.opts.logger.Debug("fetched",
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Bool("proxy", req.Proxy.Enabled()))

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Header:     resp.Header.Clone(),
	}, nil
}

// Close releases idle connections held for reuse.
func (f *HTTPFetcher) Close() {
	f.pool.closeIdle()
}
