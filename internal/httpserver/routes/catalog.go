package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/linkdeck/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdeck/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/linkdeck/internal/httpserver/mw"
)

func init() { Register(registerCatalog) }

// The catalog API is public and read-only.
func registerCatalog(r chi.Router, d deps.Deps) {
	r.Route("/api", func(r chi.Router) {
		r.Use(mw.CORS(d.CORSOrigins))
		r.Use(middleware.Timeout(d.RequestTimeout))

		r.Get("/catalog", handlers.Catalog(d))
		r.Get("/search", handlers.Search(d))
	})
}
