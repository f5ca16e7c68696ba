// Package httpapi exposes the vault over the JSON API the client consumes:
// authentication plus per-table CRUD keyed by record identifier.
package httpapi

import (
	"net/http"
	"time"

	"github.com/avolkova/keepsafe/internal/logging"
	"github.com/avolkova/keepsafe/internal/server/auth"
	"github.com/avolkova/keepsafe/internal/server/repositories/rows"
	"github.com/avolkova/keepsafe/internal/server/repositories/users"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handler bundles the API's dependencies.
type Handler struct {
	users     users.Repository
	rows      rows.Repository
	logger    logging.Logger
	secretKey []byte
	tokenTTL  time.Duration
}

func NewHandler(u users.Repository, r rows.Repository, logger logging.Logger, secretKey []byte, tokenTTL time.Duration) *Handler {
	return &Handler{users: u, rows: r, logger: logger, secretKey: secretKey, tokenTTL: tokenTTL}
}

// Router assembles the chi router with the standard middleware stack.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", h.ping)
		r.Post("/auth/signup", h.signUp)
		r.Post("/auth/signin", h.signIn)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(h.secretKey))

			r.Get("/auth/session", h.session)
			r.Get("/{table}", h.list)
			r.Put("/{table}/{id}", h.upsert)
			r.Patch("/{table}/{id}", h.update)
			r.Delete("/{table}/{id}", h.delete)
		})
	})

	return r
}
