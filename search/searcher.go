package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"searchparser/cache"
	"searchparser/transport"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// MaxPage is the deepest page a search may request.
	MaxPage = 10

	defaultParallelism = 4
)

// Request holds the per-call parameters of a search.
type Request struct {
	Page   int
	Detail DetailLevel
	// URL overrides the engine's search URL, e.g. a regional domain.
	URL   string
	Proxy *transport.Proxy
	// Refresh skips the cache lookup and always fetches.
	Refresh bool
	Offset  int
	Extra   map[string]string
}

// Searcher runs searches against one engine. It is safe for concurrent use.
type Searcher struct {
	id          string
	strategy    Strategy
	meta        Metadata
	fetcher     transport.Fetcher
	cache       cache.Cache
	logger      *zap.Logger
	retry       RetryPolicy
	header      http.Header
	parallelism int
	rotator     Rotator
	now         func() time.Time
}

// Rotator changes the outbound identity between retries of a blocked
// fetch, e.g. a Tor circuit.
type Rotator interface {
	Rotate(ctx context.Context) error
}

// Option configures a Searcher.
type Option func(*Searcher)

func WithFetcher(f transport.Fetcher) Option {
	return func(s *Searcher) { s.fetcher = f }
}

// WithCache sets the cache backend. A nil cache disables caching.
func WithCache(c cache.Cache) Option {
	return func(s *Searcher) { s.cache = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Searcher) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithRetry(p RetryPolicy) Option {
	return func(s *Searcher) { s.retry = p }
}

// WithHeader adds headers sent on every fetch, overriding the defaults.
func WithHeader(h http.Header) Option {
	return func(s *Searcher) { s.header = transport.MergeHeaders(s.header, h) }
}

// WithRotator rotates the outbound identity before each retry.
func WithRotator(r Rotator) Option {
	return func(s *Searcher) { s.rotator = r }
}

// WithParallelism bounds concurrent fetches in SearchPages.
func WithParallelism(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// New resolves engine in the registry once and builds a Searcher for it.
func New(engine string, opts ...Option) (*Searcher, error) {
	strategy, err := Lookup(engine)
	if err != nil {
		return nil, err
	}
	s := NewWithStrategy(strategy, opts...)
	s.id = strings.ToLower(strings.TrimSpace(engine))
	return s, nil
}

// NewWithStrategy builds a Searcher around an unregistered strategy.
func NewWithStrategy(strategy Strategy, opts ...Option) *Searcher {
	meta := strategy.Metadata()
	s := &Searcher{
		id:          strings.ToLower(meta.Name),
		strategy:    strategy,
		meta:        meta,
		cache:       cache.NewMemory(),
		logger:      zap.NewNop(),
		retry:       NoRetry,
		header:      http.Header{},
		parallelism: defaultParallelism,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fetcher == nil {
		s.fetcher = transport.NewHTTPFetcher(transport.WithLogger(s.logger))
	}
	s.logger = s.logger.With(zap.String("engine", s.id))
	return s
}

// Engine returns the registry id of the engine.
func (s *Searcher) Engine() string { return s.id }

func (s *Searcher) Metadata() Metadata { return s.meta }

// ClearCache drops every cached response of this engine.
func (s *Searcher) ClearCache() error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Clear(s.id); err != nil {
		return fmt.Errorf("failed to clear %s cache: %w", s.id, err)
	}
	s.logger.Debug("cache cleared")
	return nil
}

// ValidateRank rejects a rank the engine's single page can never hold.
func (s *Searcher) ValidateRank(rank int) error {
	if rank < 0 || (s.meta.PageSize > 0 && rank >= s.meta.PageSize) {
		return &ConfigurationError{
			Field:  "rank",
			Reason: fmt.Sprintf("rank %d outside one page of %s results (0-%d), request a different page instead", rank, s.meta.Name, s.meta.PageSize-1),
		}
	}
	return nil
}

func (s *Searcher) validate(query string, req Request) error {
	if strings.TrimSpace(query) == "" {
		return &ConfigurationError{Field: "query", Reason: "query cannot be empty"}
	}
	if req.Page < 1 || req.Page > MaxPage {
		return &ConfigurationError{Field: "page", Reason: fmt.Sprintf("page %d outside 1-%d", req.Page, MaxPage)}
	}
	if req.Detail < Full || req.Detail > Descriptions {
		return &ConfigurationError{Field: "type", Reason: fmt.Sprintf("unknown detail level %d", int(req.Detail))}
	}
	if req.URL != "" {
		u, err := url.Parse(req.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return &ConfigurationError{Field: "url", Reason: fmt.Sprintf("search url %q must be an absolute http(s) url", req.URL)}
		}
	}
	if err := req.Proxy.Validate(); err != nil {
		return &ConfigurationError{Field: "proxy", Err: err}
	}
	return nil
}

// Search fetches one results page and extracts its items. A page without
// results yields an empty ResultSet and a nil error; blocked responses
// yield a *BlockedOrNoResultsError.
func (s *Searcher) Search(ctx context.Context, query string, req Request) (*ResultSet, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if err := s.validate(query, req); err != nil {
		return nil, err
	}
	if RequestID(ctx) == "" {
		ctx = WithRequestID(ctx, "")
	}
	logger := ContextLogger(ctx, s.logger).With(zap.Int("page", req.Page))

	params := s.strategy.BuildParams(Query{
		Text:   query,
		Page:   req.Page,
		Offset: req.Offset,
		Extra:  req.Extra,
	})
	target := req.URL
	if target == "" {
		target = s.meta.SearchURL
	}
	key := cache.Key(s.id, target, params)

	var (
		body      []byte
		doc       *goquery.Document
		fetchedAt time.Time
		fromCache bool
	)
	if !req.Refresh && s.cache != nil {
		entry, ok, err := s.cache.Get(s.id, key)
		if err != nil {
			logger.Warn("cache lookup failed", zap.Error(err))
		} else if ok {
			body, fetchedAt, fromCache = entry.Body, entry.FetchedAt, true
			logger.Debug("cache hit", zap.String("key", key))
		}
	}

	if fromCache {
		var err error
		if doc, err = s.document(body); err != nil {
			return nil, err
		}
	} else {
		var err error
		body, doc, err = s.fetch(ctx, logger, transport.Request{
			URL:    target,
			Params: params,
			Proxy:  req.Proxy,
			Header: s.header,
		})
		if err != nil {
			return nil, err
		}
		fetchedAt = s.now()
		if s.cache != nil {
			if err := s.cache.Put(s.id, key, cache.Entry{Body: body, FetchedAt: fetchedAt}); err != nil {
				logger.Warn("cache store failed", zap.Error(err))
			}
		}
	}

	rs := s.parse(logger, query, req, doc)
	rs.FromCache = fromCache
	rs.FetchedAt = fetchedAt
	logger.Info("search completed",
		zap.String("query", query),
		zap.Int("results", rs.Len()),
		zap.Bool("from_cache", fromCache))
	return rs, nil
}

// fetch performs the transport call, retrying blocked responses per the
// retry policy, and returns a body classified as ok with its document.
func (s *Searcher) fetch(ctx context.Context, logger *zap.Logger, tr transport.Request) ([]byte, *goquery.Document, error) {
	attempts := s.retry.attempts()
	for attempt := 1; ; attempt++ {
		resp, err := s.fetcher.Fetch(ctx, tr)
		if err != nil {
			if errors.Is(err, transport.ErrInvalidProxy) {
				return nil, nil, &ConfigurationError{Field: "proxy", Err: err}
			}
			logger.Warn("fetch failed", zap.Int("attempt", attempt), zap.Error(err))
			return nil, nil, &TransportError{URL: tr.URL, Err: err}
		}
		// A fetch that raced a cancellation is discarded, never cached.
		if err := ctx.Err(); err != nil {
			return nil, nil, &TransportError{URL: tr.URL, Err: err}
		}

		var doc *goquery.Document
		located := 0
		if resp.StatusCode >= 200 && resp.StatusCode < 300 && len(bytes.TrimSpace(resp.Body)) > 0 {
			if doc, err = s.document(resp.Body); err != nil {
				return nil, nil, err
			}
			located = s.strategy.LocateBlocks(doc).Length()
		}
		outcome := Classify(resp.StatusCode, resp.Body, located, s.meta.BlockSignatures)
		if outcome == OutcomeOK {
			return resp.Body, doc, nil
		}

		blocked := &BlockedOrNoResultsError{
			Engine:     s.meta.Name,
			Reason:     outcome.reason(),
			StatusCode: resp.StatusCode,
			Attempts:   attempt,
		}
		if outcome != OutcomeBlocked || attempt >= attempts {
			logger.Warn("no usable response",
				zap.String("outcome", outcome.String()),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt))
			return nil, nil, blocked
		}

		wait := s.retry.delay(attempt)
		logger.Warn("blocked, retrying",
			zap.Int("status", resp.StatusCode),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Duration("backoff", wait))
		if err := sleep(ctx, wait); err != nil {
			return nil, nil, &TransportError{URL: tr.URL, Err: err}
		}
		if s.rotator != nil {
			if err := s.rotator.Rotate(ctx); err != nil {
				if ctx.Err() != nil {
					return nil, nil, &TransportError{URL: tr.URL, Err: ctx.Err()}
				}
				logger.Warn("identity rotation failed", zap.Error(err))
			}
		}
	}
}

func (s *Searcher) document(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", s.meta.Name, err)
	}
	return doc, nil
}

func (s *Searcher) parse(logger *zap.Logger, query string, req Request, doc *goquery.Document) *ResultSet {
	blocks := s.strategy.LocateBlocks(doc)
	items := make([]Item, 0, blocks.Length())
	discarded := 0
	blocks.EachWithBreak(func(i int, block *goquery.Selection) bool {
		item, ok := s.strategy.ExtractItem(block, req.Detail)
		if !ok {
			discarded++
			return true
		}
		items = append(items, item)
		return s.meta.PageSize <= 0 || len(items) < s.meta.PageSize
	})
	if discarded > 0 {
		logger.Debug("discarded blocks without a link", zap.Int("count", discarded))
	}
	return newResultSet(s.id, query, req.Page, req.Detail, items)
}

// SearchPages fetches several pages concurrently. Results are returned in
// the order of pages; the first failure cancels the remaining fetches.
func (s *Searcher) SearchPages(ctx context.Context, query string, pages []int, req Request) ([]*ResultSet, error) {
	pages = slices.Clone(pages)
	for i, p := range pages {
		if p == 0 {
			pages[i] = 1
		}
	}
	for _, p := range pages {
		r := req
		r.Page = p
		if err := s.validate(query, r); err != nil {
			return nil, err
		}
	}

	results := make([]*ResultSet, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, p := range pages {
		r := req
		r.Page = p
		g.Go(func() error {
			rs, err := s.Search(gctx, query, r)
			if err != nil {
				return fmt.Errorf("page %d: %w", p, err)
			}
			results[i] = rs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
