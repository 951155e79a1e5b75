package main

import (
	"fmt"
	"io"

	"searchparser/cache"
	"searchparser/config"
	"searchparser/search"
	"searchparser/transport"

	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}
	zc.Level = level
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// wiring holds the dependencies shared by every searcher of one process.
type wiring struct {
	cfg     *config.Config
	logger  *zap.Logger
	cache   cache.Cache
	fetcher transport.Fetcher
	rotator search.Rotator
	closers []io.Closer
}

func newWiring(cfg *config.Config, logger *zap.Logger) (*wiring, error) {
	d := &wiring{cfg: cfg, logger: logger}

	switch cfg.Cache.Backend {
	case "bolt":
		b, err := cache.OpenBolt(cfg.Cache.Path)
		if err != nil {
			return nil, err
		}
		d.cache = b
		d.closers = append(d.closers, b)
	default:
		d.cache = cache.NewMemory()
	}

	fetcher, err := transport.New(cfg.Fetcher,
		transport.WithTimeout(cfg.Timeout),
		transport.WithLogger(logger.Named("transport")))
	if err != nil {
		d.Close()
		return nil, err
	}
	d.fetcher = fetcher

	if cfg.Tor.ControlAddr != "" {
		d.rotator = transport.NewTorController(cfg.Tor.ControlAddr, cfg.Tor.Password, logger.Named("tor"))
	}
	return d, nil
}

func (d *wiring) searcher(engine string) (*search.Searcher, error) {
	opts := []search.Option{
		search.WithFetcher(d.fetcher),
		search.WithCache(d.cache),
		search.WithLogger(d.logger.Named("search")),
		search.WithRetry(d.cfg.RetryPolicy()),
		search.WithHeader(d.cfg.Header()),
	}
	if d.rotator != nil {
		opts = append(opts, search.WithRotator(d.rotator))
	}
	return search.New(engine, opts...)
}

func (d *wiring) Close() {
	for _, c := range d.closers {
		if err := c.Close(); err != nil {
			d.logger.Warn("failed to close", zap.Error(err))
		}
	}
}
