package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkdeck/internal/httpserver/deps"
)

// Registrar mounts one group of routes. Each group applies its own
// middlewares (CIDR, host, timeout) so public and admin routes differ.
type Registrar func(r chi.Router, d deps.Deps)

var registry []Registrar

// Register adds a route group. Called from init in each routes file.
func Register(reg Registrar) {
	registry = append(registry, reg)
}

// RegisterAll mounts every group. Called once from httpserver.NewRouter.
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, reg := range registry {
		reg(r, d)
	}
}
