package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"searchparser/api"
	"searchparser/config"
	_ "searchparser/engines"
	"searchparser/search"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "0.1.0"

type searchFlags struct {
	engine        string
	showSummary   bool
	url           string
	pages         []int
	detail        string
	clearCache    bool
	refresh       bool
	rank          int
	proxy         string
	proxyUser     string
	proxyPassword string
	fetcher       string
	timeout       time.Duration
	json          bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var configPath, logLevel string

	rootCmd := &cobra.Command{
		Use:           "searchparser",
		Short:         "Search engine result page parser",
		Long:          "Fetches a search engine results page and extracts titles, links and descriptions.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")

	load := func(cmd *cobra.Command, apply func(*config.Config)) (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if cmd.Flags().Changed("log-level") {
			cfg.Log.Level = logLevel
		}
		if apply != nil {
			apply(cfg)
		}
		if err := cfg.Validate(); err != nil {
			return nil, &search.ConfigurationError{Field: "config", Err: err}
		}
		return cfg, nil
	}

	rootCmd.AddCommand(
		searchCommand(load),
		enginesCommand(),
		serveCommand(load),
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("searchparser v%s\n", version)
			},
		},
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

type loader func(cmd *cobra.Command, apply func(*config.Config)) (*config.Config, error)

func searchCommand(load loader) *cobra.Command {
	f := searchFlags{}
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search an engine and print the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.showSummary {
				strategy, err := search.Lookup(engineOr(f.engine, cmd, load))
				if err != nil {
					return err
				}
				printSummary(os.Stdout, strategy.Metadata())
				return nil
			}

			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return &search.ConfigurationError{Field: "query", Reason: "--show-summary or a query must be given"}
			}

			cfg, err := load(cmd, f.apply(cmd))
			if err != nil {
				return err
			}
			return runSearch(cmd.Context(), cfg, f, query)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.engine, "engine", "e", "", "Engine to use, e.g. duckduckgo, google, bing, yahoo, brave (default from config)")
	fl.BoolVar(&f.showSummary, "show-summary", false, "Show the summary of an engine")
	fl.StringVarP(&f.url, "url", "u", "", "Custom search URL, e.g. https://www.google.de/search")
	fl.IntSliceVarP(&f.pages, "page", "p", []int{1}, "Page(s) of results to return, fetched concurrently when several")
	fl.StringVarP(&f.detail, "type", "t", "full", "Detail to return: full, titles, links or descriptions")
	fl.BoolVar(&f.clearCache, "clear-cache", false, "Clear the engine cache before searching")
	fl.BoolVar(&f.refresh, "refresh", false, "Skip the cache for this search")
	fl.IntVarP(&f.rank, "rank", "r", -1, "Rank of the single result to show, 0-based")
	fl.StringVar(&f.proxy, "proxy", "", "Proxy address (http://, https:// or socks5://)")
	fl.StringVar(&f.proxyUser, "proxy-user", "", "Proxy user, required with --proxy")
	fl.StringVar(&f.proxyPassword, "proxy-password", "", "Proxy password, required with --proxy")
	fl.StringVar(&f.fetcher, "fetcher", "", "Fetcher backend: http or colly")
	fl.DurationVar(&f.timeout, "timeout", 0, "Request timeout, e.g. 20s")
	fl.BoolVar(&f.json, "json", false, "Print results as JSON")
	return cmd
}

// apply copies explicitly set flags over the loaded configuration.
func (f *searchFlags) apply(cmd *cobra.Command) func(*config.Config) {
	return func(cfg *config.Config) {
		fl := cmd.Flags()
		if fl.Changed("engine") {
			cfg.Engine = f.engine
		}
		if fl.Changed("url") {
			cfg.URL = f.url
		}
		if fl.Changed("proxy") {
			cfg.Proxy.Address = f.proxy
		}
		if fl.Changed("proxy-user") {
			cfg.Proxy.Username = f.proxyUser
		}
		if fl.Changed("proxy-password") {
			cfg.Proxy.Password = f.proxyPassword
		}
		if fl.Changed("fetcher") {
			cfg.Fetcher = f.fetcher
		}
		if fl.Changed("timeout") {
			cfg.Timeout = f.timeout
		}
	}
}

func engineOr(flagValue string, cmd *cobra.Command, load loader) string {
	if flagValue != "" {
		return flagValue
	}
	if cfg, err := load(cmd, nil); err == nil {
		return cfg.Engine
	}
	return config.Default().Engine
}

func runSearch(ctx context.Context, cfg *config.Config, f searchFlags, query string) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	detail, err := search.ParseDetailLevel(f.detail)
	if err != nil {
		return err
	}

	deps, err := newWiring(cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	sr, err := deps.searcher(cfg.Engine)
	if err != nil {
		return err
	}
	if f.rank >= 0 {
		if err := sr.ValidateRank(f.rank); err != nil {
			return err
		}
	}
	if f.clearCache {
		if err := sr.ClearCache(); err != nil {
			return err
		}
	}

	req := search.Request{
		Detail:  detail,
		URL:     cfg.URL,
		Proxy:   cfg.ProxyOrNil(),
		Refresh: f.refresh,
	}
	ctx = search.WithRequestID(ctx, "")

	start := time.Now()
	var results []*search.ResultSet
	if len(f.pages) == 1 {
		req.Page = f.pages[0]
		rs, err := sr.Search(ctx, query, req)
		if err != nil {
			return err
		}
		results = []*search.ResultSet{rs}
	} else {
		results, err = sr.SearchPages(ctx, query, f.pages, req)
		if err != nil {
			return err
		}
	}
	duration := time.Since(start)
	logger.Debug("search finished", zap.Duration("duration", duration))

	if f.json {
		return printJSON(os.Stdout, results, f.rank)
	}
	for _, rs := range results {
		if err := printResults(os.Stdout, rs, f.rank); err != nil {
			return err
		}
	}
	fmt.Printf("Total search took -> %s\n", duration)
	return nil
}

func enginesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "engines",
		Short: "List the supported engines",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range search.Engines() {
				strategy, err := search.Lookup(id)
				if err != nil {
					return err
				}
				printEngine(os.Stdout, id, strategy.Metadata())
			}
			return nil
		},
	}
}

func serveCommand(load loader) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd, func(cfg *config.Config) {
				if cmd.Flags().Changed("port") {
					cfg.APIPort = port
				}
			})
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			deps, err := newWiring(cfg, logger)
			if err != nil {
				return err
			}
			defer deps.Close()

			searchers := make(map[string]*search.Searcher)
			for _, id := range search.Engines() {
				sr, err := deps.searcher(id)
				if err != nil {
					return err
				}
				searchers[id] = sr
			}

			server := api.NewServer(searchers, cfg.Engine, cfg.APIPort, logger)
			server.Proxy = cfg.ProxyOrNil()
			return server.Start(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (default from config)")
	return cmd
}
