package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"searchparser/search"

	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type rankResponse struct {
	Engine string      `json:"engine"`
	Query  string      `json:"query"`
	Page   int         `json:"page"`
	Rank   int         `json:"rank"`
	Result search.Item `json:"result"`
}

type engineInfo struct {
	ID string `json:"id"`
	search.Metadata
}

func (s *Server) searcher(r *http.Request) (*search.Searcher, error) {
	id := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("engine")))
	if id == "" {
		id = s.defaultEngine
	}
	sr, ok := s.searchers[id]
	if !ok {
		_, err := search.Lookup(id)
		if err == nil {
			err = &search.ConfigurationError{Field: "engine", Reason: "engine " + id + " is not enabled"}
		}
		return nil, err
	}
	return sr, nil
}

// SearchHandler handles GET /api/search?q=...&engine=...&page=...&type=...&rank=...
func (s *Server) SearchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sr, err := s.searcher(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	q := r.URL.Query()
	// Search URLs come from the engine registry only; a caller-chosen URL
	// would be fetched with the server's network access and proxy.
	if q.Has("url") {
		s.writeError(w, &search.ConfigurationError{Field: "url", Reason: "url overrides are not accepted over HTTP"})
		return
	}
	req := search.Request{Page: 1, Proxy: s.Proxy}
	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, &search.ConfigurationError{Field: "page", Reason: "page must be a number"})
			return
		}
		req.Page = page
	}
	if req.Detail, err = search.ParseDetailLevel(q.Get("type")); err != nil {
		s.writeError(w, err)
		return
	}
	req.Refresh, _ = strconv.ParseBool(q.Get("refresh"))

	rank := -1
	if v := q.Get("rank"); v != "" {
		if rank, err = strconv.Atoi(v); err != nil {
			s.writeError(w, &search.ConfigurationError{Field: "rank", Reason: "rank must be a number"})
			return
		}
		if err := sr.ValidateRank(rank); err != nil {
			s.writeError(w, err)
			return
		}
	}

	ctx := search.WithRequestID(r.Context(), r.Header.Get("X-Request-Id"))
	rs, err := sr.Search(ctx, q.Get("q"), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if rank >= 0 {
		item, err := rs.At(rank)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rankResponse{
			Engine: rs.Engine,
			Query:  rs.Query,
			Page:   rs.Page,
			Rank:   rank,
			Result: item,
		})
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

// EnginesHandler lists the enabled engines and their metadata.
func (s *Server) EnginesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	engines := make([]engineInfo, 0, len(s.searchers))
	for id, sr := range s.searchers {
		engines = append(engines, engineInfo{ID: id, Metadata: sr.Metadata()})
	}
	sort.Slice(engines, func(i, j int) bool { return engines[i].ID < engines[j].ID })
	writeJSON(w, http.StatusOK, engines)
}

// ClearCacheHandler handles POST /api/cache/clear?engine=...
func (s *Server) ClearCacheHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sr, err := s.searcher(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := sr.ClearCache(); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, kind := classifyError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("search request failed", zap.String("kind", kind), zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

func classifyError(err error) (int, string) {
	var (
		ce *search.ConfigurationError
		te *search.TransportError
		be *search.BlockedOrNoResultsError
	)
	switch {
	case errors.As(err, &ce):
		return http.StatusBadRequest, "configuration"
	case errors.As(err, &be):
		return http.StatusServiceUnavailable, "blocked_or_no_results"
	case errors.As(err, &te):
		return http.StatusBadGateway, "transport"
	case errors.Is(err, search.ErrRankOutOfRange):
		return http.StatusNotFound, "rank_out_of_range"
	}
	return http.StatusInternalServerError, "internal"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
