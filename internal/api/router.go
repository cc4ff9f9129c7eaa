package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func SetupUIRouter(apiHandler *APIHandler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", apiHandler.ServeWebUI)
	r.Get("/healthz", apiHandler.HandleHealth)
	r.Get("/ws", apiHandler.HandleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", apiHandler.HandleState)
		r.Get("/chart", apiHandler.HandleChart)
	})

	return r
}
