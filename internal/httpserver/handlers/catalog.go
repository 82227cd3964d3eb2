package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MrSnakeDoc/linkdeck/internal/domain"
	"github.com/MrSnakeDoc/linkdeck/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdeck/internal/index"
	"github.com/MrSnakeDoc/linkdeck/internal/logger"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

type catalogResponse struct {
	Sections    []index.SectionView `json:"sections"`
	RefreshedAt *time.Time          `json:"refreshed_at,omitempty"`
}

// Catalog serves the visible sections with their links.
func Catalog(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := catalogResponse{Sections: d.MemoryIndex.Catalog()}
		if t := d.MemoryIndex.LastRefresh(); !t.IsZero() {
			resp.RefreshedAt = &t
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type searchResult struct {
	Link  domain.Link `json:"link"`
	Score float64     `json:"score"`
}

type searchResponse struct {
	Query   string         `json:"query"`
	Results []searchResult `json:"results"`
}

// Search ranks the visible links against ?q=. An empty query returns no
// results.
func Search(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := strings.TrimSpace(r.URL.Query().Get("q"))

		limit := defaultSearchLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				writeError(w, nil, &badRequest{msg: "limit must be a positive integer"})
				return
			}
			limit = min(n, maxSearchLimit)
		}

		resp := searchResponse{Query: query, Results: []searchResult{}}
		if query == "" {
			writeJSON(w, http.StatusOK, resp)
			return
		}

		for _, m := range d.MemoryIndex.Search(query, limit) {
			resp.Results = append(resp.Results, searchResult{Link: *m.Link, Score: m.Score})
		}

		d.Logger.Debug("search request",
			logger.String("query", query),
			logger.Int("results", len(resp.Results)))

		writeJSON(w, http.StatusOK, resp)
	}
}
