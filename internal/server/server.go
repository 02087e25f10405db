package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"dermaCareAi/internal/analyses"
)

// New constructs the HTTP server with routes and middleware.
func New(port string, handler analyses.Handler, mediaFS http.Handler) *http.Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(allowCORS)

	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":                       "ok",
			"background_removal_available": handler.Remover.Available(),
		})
	})

	router.Route("/api", func(r chi.Router) {
		r.Route("/analyses", func(r chi.Router) {
			r.Get("/", handler.List)
			r.Post("/", handler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", handler.Get)
				r.Delete("/", handler.Delete)
			})
		})
		r.Get("/events", handler.StreamEvents)
		r.Route("/products", func(r chi.Router) {
			r.Post("/image", handler.ProductImage)
			r.Post("/image/processed", handler.ProductImageProcessed)
		})
		r.Post("/remove-background", handler.RemoveBackground)
	})

	if mediaFS != nil {
		router.Handle("/media/*", http.StripPrefix("/media/", mediaFS))
	}

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	log.Println("server ready on", srv.Addr)
	return srv
}

// allowCORS lets the browser frontend call the API from another origin.
func allowCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
