package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"searchparser/search"
	"searchparser/transport"

	"go.uber.org/zap"
)

// Server exposes the searchers over HTTP.
type Server struct {
	searchers     map[string]*search.Searcher
	defaultEngine string
	port          int
	logger        *zap.Logger
	httpServer    *http.Server

	// Proxy, when set, routes every search through it.
	Proxy *transport.Proxy
}

// NewServer creates a new API server. Searchers are keyed by engine id.
func NewServer(searchers map[string]*search.Searcher, defaultEngine string, port int, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		searchers:     searchers,
		defaultEngine: defaultEngine,
		port:          port,
		logger:        logger,
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/search", s.SearchHandler)
	mux.HandleFunc("/api/engines", s.EnginesHandler)
	mux.HandleFunc("/api/cache/clear", s.ClearCacheHandler)

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return mux
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              ":" + strconv.Itoa(s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting API server", zap.Int("port", s.port))
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down API server")
		return s.httpServer.Shutdown(shutdownCtx)
	}
}
