package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/bricabrac/listings-api/internal/auth"
	"github.com/bricabrac/listings-api/internal/config"
	"github.com/bricabrac/listings-api/internal/httputil"
	"github.com/bricabrac/listings-api/internal/listing"
	"github.com/bricabrac/listings-api/internal/logging"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	cfg *config.Config,
	authHandler *auth.Handler,
	authMiddleware *auth.Middleware,
	listingHandler *listing.Handler,
	logger *logging.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	// Global middleware
	r.Use(SecurityHeaders)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Compress(5))

	// Public routes
	r.Get("/health", handleHealth)

	// Swagger UI - only in development
	if cfg.Server.IsDevelopment() {
		logger.Info("swagger ui enabled", "path", "/swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	// Stored images are public by URL; the filesystem backend serves them
	// directly, the s3 backend serves from its own endpoint.
	if cfg.Storage.Backend == config.StorageBackendFilesystem {
		serveArtifacts(r, cfg.Storage.PublicPath, http.Dir(cfg.Storage.Dir))
	}

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
	})

	// Listing routes: every operation, reads included, requires a token.
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)

		r.Route("/listings", func(r chi.Router) {
			r.Get("/", listingHandler.List)
			r.Post("/", listingHandler.Create)
			r.Get("/{id}", listingHandler.Get)
			r.Put("/{id}", listingHandler.Update)
			r.Delete("/{id}", listingHandler.Delete)
		})
	})

	return r
}

// serveArtifacts mounts a static file server for stored artifacts.
// Directory listings are refused.
func serveArtifacts(r chi.Router, publicPath string, root http.FileSystem) {
	prefix := strings.TrimSuffix(publicPath, "/")
	fs := http.StripPrefix(prefix+"/", http.FileServer(root))

	r.Get(prefix+"/*", func(w http.ResponseWriter, req *http.Request) {
		if strings.HasSuffix(req.URL.Path, "/") {
			http.NotFound(w, req)
			return
		}
		fs.ServeHTTP(w, req)
	})
}

// handleHealth is a simple health check endpoint
// @Summary      Health check
// @Description  Check if the API is running
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "api is running"}, http.StatusOK)
}
