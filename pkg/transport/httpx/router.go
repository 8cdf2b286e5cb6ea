// Package httpx backs the admin surface with a chi mux behind a minimal
// router contract.
package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Router is the contract the admin surface needs: mountable GET routes,
// middleware, and the assembled handler.
type Router interface {
	Get(path string, h http.Handler)
	Use(mw ...func(http.Handler) http.Handler)
	Mux() http.Handler
}

type chiRouter struct{ r *chi.Mux }

// NewChi returns a chi-backed Router.
func NewChi() Router { return &chiRouter{r: chi.NewRouter()} }

func (c *chiRouter) Get(path string, h http.Handler)           { c.r.Method(http.MethodGet, path, h) }
func (c *chiRouter) Use(mw ...func(http.Handler) http.Handler) { c.r.Use(mw...) }
func (c *chiRouter) Mux() http.Handler                         { return c.r }
