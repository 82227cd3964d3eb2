package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/linkdeck/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdeck/internal/importer"
)

type componentStatus struct {
	OK          bool           `json:"ok"`
	Sections    *int           `json:"sections,omitempty"`
	Links       *int           `json:"links,omitempty"`
	LastRefresh string         `json:"last_refresh,omitempty"`
	Model       string         `json:"model,omitempty"`
	State       importer.State `json:"state,omitempty"`
	Impact      string         `json:"impact,omitempty"`
	Error       string         `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

// Infra reports the state of each component.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sections, links := d.MemoryIndex.Counts()
		lastRefresh := d.MemoryIndex.LastRefresh()
		lastRefreshStr := "never"
		if !lastRefresh.IsZero() {
			lastRefreshStr = lastRefresh.Format("2006-01-02 15:04:05")
		}

		components := map[string]componentStatus{
			"catalog": {
				OK:          !lastRefresh.IsZero(),
				Sections:    &sections,
				Links:       &links,
				LastRefresh: lastRefreshStr,
			},
			"redis": checkRedis(r.Context(), d),
			"extraction": {
				OK:    d.Model != "",
				Model: d.Model,
			},
			"import": {
				OK:    true,
				State: d.Importer.State(),
			},
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Mode:       determineMode(components),
			Components: components,
		})
	}
}

// determineMode is "critical" when nothing can be served, "degraded" when
// reads work but imports cannot.
func determineMode(components map[string]componentStatus) string {
	if c, ok := components["catalog"]; ok && !c.OK {
		return "critical"
	}
	if c, ok := components["redis"]; ok && !c.OK {
		return "degraded"
	}
	return "ok"
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if d.Store == nil {
		return componentStatus{
			Impact: "imports-disabled",
			Error:  "client not initialized",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.Store.Ping(ctx); err != nil {
		return componentStatus{
			Impact: "imports-disabled",
			Error:  err.Error(),
		}
	}

	// Stored totals can run ahead of the in-memory catalog until the next refresh
	sections, links, err := d.Store.Counts(ctx)
	if err != nil {
		return componentStatus{OK: true, Error: err.Error()}
	}
	s, l := int(sections), int(links)
	return componentStatus{OK: true, Sections: &s, Links: &l}
}
