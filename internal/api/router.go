package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	apimiddleware "github.com/wordvault/wordvault/internal/api/middleware"
	"github.com/wordvault/wordvault/internal/service/auth"
	"github.com/wordvault/wordvault/internal/store"
)

// NewRouter assembles the sync server's HTTP surface: public account
// endpoints, the authenticated sync endpoints, and a health check.
func NewRouter(
	users store.UserStore,
	records store.RecordStore,
	tokens auth.TokenService,
	passwords *auth.BcryptHasher,
	logger *slog.Logger,
) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(apimiddleware.NewRequestLogger(logger))
	r.Use(chimiddleware.Recoverer)

	authHandler := NewAuthHandler(users, tokens, passwords, passwords, logger)
	syncHandler := NewSyncHandler(records, logger)
	authMiddleware := apimiddleware.NewAuthMiddleware(tokens)

	r.Route("/v1", func(r chi.Router) {
		// Account endpoints (public)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.Refresh)

		// Sync endpoints
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Get("/sync/{collection}", syncHandler.List)
			r.Post("/sync/{collection}/batch", syncHandler.Upload)
			r.Get("/sync/{collection}/count", syncHandler.Count)
			r.Delete("/sync/{collection}/{word}", syncHandler.Remove)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
