package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "campusmarket/docs"
	"campusmarket/internal/moderation"
	"campusmarket/internal/service"
	"campusmarket/internal/storage"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Log *zap.Logger

	Auth      *service.AuthService
	Listings  *service.ListingService
	Threads   *service.ThreadService
	Favorites *service.FavoriteService
	Reports   *service.ReportService
	Users     *service.UserService

	Images storage.ImageStore
	// LocalImages is set when images live on local disk and are served by
	// this process.
	LocalImages *storage.LocalStore
	// Moderator is nil when no AI backend is configured.
	Moderator moderation.Moderator
	Metrics   *Metrics

	CORSOrigins    []string
	RequestTimeout time.Duration
	Version        string
}

// NewRouter constructs the main HTTP router and wires routes and middleware.
func NewRouter(d Deps) http.Handler {
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 60 * time.Second
	}
	if d.Metrics == nil {
		d.Metrics = NewMetrics()
	}
	log := d.Log

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(d.Metrics.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(d.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "Campus Market API",
			"version": d.Version,
			"docs":    "/docs/index.html",
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	requireAuth := RequireAuth(d.Auth, log)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/email", handleRequestSignIn(d.Auth, log))
			r.Get("/callback", handleSignInCallback(d.Auth, log))
		})

		r.Route("/listings", func(r chi.Router) {
			r.With(OptionalAuth(d.Auth, log)).Get("/", handleSearchListings(d.Listings, log))
			r.With(OptionalAuth(d.Auth, log)).Get("/{id}", handleGetListing(d.Listings, log))
			r.With(requireAuth).Post("/", handleCreateListing(d.Listings, log))
			r.With(requireAuth).Patch("/{id}", handleUpdateListing(d.Listings, log))
			r.With(requireAuth).Delete("/{id}", handleDeleteListing(d.Listings, log))
		})

		r.Mount("/uploads", UploadRoutes(d.Images, d.LocalImages, d.Auth, log))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Route("/me", func(r chi.Router) {
				r.Get("/", handleMe(d.Users, log))
				r.Patch("/", handleUpdateMe(d.Users, log))
				r.Get("/listings", handleMyListings(d.Listings, log))
			})

			r.Route("/favorites", func(r chi.Router) {
				r.Get("/", handleListFavorites(d.Favorites, log))
				r.Post("/", handleAddFavorite(d.Favorites, log))
				r.Delete("/{listingID}", handleRemoveFavorite(d.Favorites, log))
			})

			r.Post("/reports", handleCreateReport(d.Reports, log))

			r.Route("/threads", func(r chi.Router) {
				r.Get("/", handleListThreads(d.Threads, log))
				r.Post("/", handleOpenThread(d.Threads, log))
				r.Get("/{id}/messages", handleThreadDetail(d.Threads, log))
				r.Post("/{id}/messages", handleSendMessage(d.Threads, log))
			})

			r.Post("/moderation", handleModeration(d.Moderator, log))

			// Admin checks live in the services; these routes only need a
			// signed-in caller.
			r.Route("/admin", func(r chi.Router) {
				r.Get("/reports", handleListReports(d.Reports, log))
				r.Patch("/reports/{id}", handleResolveReport(d.Reports, log))
				r.Patch("/users/{id}", handleSetRole(d.Users, log))
			})
		})
	})

	return r
}
