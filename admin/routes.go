package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// NewRouter builds the admin router without the /admin prefix
func NewRouter(handlers *AdminHandlers) chi.Router {
	r := chi.NewRouter()

	r.Route("/server_config", func(r chi.Router) {
		r.Use(chiAuthMiddleware)
		r.Get("/", handlers.handleListServers)
		r.Post("/", handlers.handleInsertServer)
		r.Get("/stats", handlers.handleStats)
		r.Get("/{id}", handlers.handleGetServer)
		r.Put("/{id}", handlers.handlePutServer)
		r.Delete("/{id}", handlers.handleDeleteServer)
	})

	return r
}

// RegisterRoutes registers all admin API routes using chi router
func RegisterRoutes(mux *http.ServeMux, handlers *AdminHandlers) {
	r := NewRouter(handlers)

	// Mount chi router under /admin
	mux.Handle("/admin", http.RedirectHandler("/admin/", http.StatusMovedPermanently))
	mux.Handle("/admin/", http.StripPrefix("/admin", r))

	log.Info().Msg("Admin endpoints enabled at /admin/server_config/*")
}

// chiAuthMiddleware adapts AuthMiddleware for chi
func chiAuthMiddleware(next http.Handler) http.Handler {
	return AuthMiddleware(next)
}
