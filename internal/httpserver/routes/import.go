package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkdeck/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdeck/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/linkdeck/internal/httpserver/mw"
)

func init() { Register(registerImport) }

// Import routes carry no request timeout: extraction and commit run under
// their own deadlines and survive the client going away.
func registerImport(r chi.Router, d deps.Deps) {
	r.Route("/admin/import", func(r chi.Router) {
		r.Use(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))
		r.Use(mw.EnforceHost(d.AllowedHosts, d.Logger))

		r.Get("/", handlers.ImportView(d))
		r.With(mw.RateLimit(d.ExtractRateLimit, d.Logger)).Post("/extract", handlers.ImportExtract(d))
		r.Post("/selection", handlers.ImportSelection(d))
		r.Post("/candidates", handlers.ImportAddCandidate(d))
		r.Patch("/candidates/{index}", handlers.ImportEditCandidate(d))
		r.Delete("/candidates/{index}", handlers.ImportRemoveCandidate(d))
		r.Put("/editing", handlers.ImportEditing(d))
		r.Put("/mappings", handlers.ImportMapping(d))
		r.Post("/commit", handlers.ImportCommit(d))
		r.Post("/reset", handlers.ImportReset(d))
	})
}
