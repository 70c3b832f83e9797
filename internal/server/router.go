package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/halcyondata/recall/internal/api"
	"github.com/halcyondata/recall/internal/api/handlers"
	"github.com/halcyondata/recall/internal/api/middleware"
)

// DefaultMaxBodyBytes caps request bodies when the daemon config does not
// override it.
const DefaultMaxBodyBytes int64 = 5 * 1024 * 1024

type RouterConfig struct {
	AuthValidator  middleware.AuthValidator
	AuthHandler    *handlers.AuthHandler
	ItemHandler    *handlers.ItemHandler
	ChunkHandler   *handlers.ChunkHandler
	SearchHandler  *handlers.SearchHandler
	SessionHandler *handlers.SessionHandler
	GraphHandler   *handlers.GraphHandler
	ExportHandler  *handlers.ExportHandler
	MaxBodyBytes   int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

			r.Post("/search", cfg.SearchHandler.Search)
			r.Post("/search/{searchID}/feedback", cfg.SearchHandler.Feedback)

			r.Route("/items", func(r chi.Router) {
				r.Post("/", cfg.ItemHandler.Create)
				r.Get("/", cfg.ItemHandler.List)
				r.Get("/{itemID}", cfg.ItemHandler.Get)
				r.Put("/{itemID}", cfg.ItemHandler.Update)
				r.Delete("/{itemID}", cfg.ItemHandler.Delete)

				r.Post("/{itemID}/chunks", cfg.ChunkHandler.Insert)
				r.Get("/{itemID}/chunks", cfg.ChunkHandler.ListByItem)
			})

			r.Route("/sessions", func(r chi.Router) {
				r.Post("/", cfg.SessionHandler.Create)
				r.Get("/", cfg.SessionHandler.List)
				r.Get("/{sessionID}", cfg.SessionHandler.Get)
				r.Post("/{sessionID}/end", cfg.SessionHandler.End)
				r.Post("/{sessionID}/checkpoints", cfg.SessionHandler.AppendCheckpoint)
				r.Get("/{sessionID}/checkpoints", cfg.SessionHandler.ListCheckpoints)
				r.Get("/{sessionID}/checkpoints/latest", cfg.SessionHandler.LatestCheckpoint)
			})

			r.Route("/graph", func(r chi.Router) {
				r.Post("/edges", cfg.GraphHandler.AddEdges)
				r.Get("/edges", cfg.GraphHandler.ListByCaller)
				r.Post("/paths", cfg.GraphHandler.Paths)
			})

			r.Post("/export", cfg.ExportHandler.Export)
		})

		r.Post("/tenants", cfg.AuthHandler.CreateTenant)
		r.Post("/apikeys", cfg.AuthHandler.CreateAPIKey)
		r.Post("/auth/validate", cfg.AuthHandler.Validate)
	})

	return r
}
