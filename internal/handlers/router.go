package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"fleamarket/internal/config"
	"fleamarket/internal/ipauth"
	"fleamarket/internal/storage"
)

// Deps carries everything the router's handlers need.
type Deps struct {
	DB    *gorm.DB
	Store storage.Store
	Log   *zap.Logger
	Cfg   *config.Config
}

// NewRouter builds the chi router: public reads, identity-protected and
// rate-limited mutations, static upload serving for the disk backend and an
// optional SPA fallback for a built frontend bundle.
func NewRouter(d Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondData(w, http.StatusOK, "ok", nil)
	})

	identity := ipauth.Middleware(d.DB, d.Cfg.Auth.ExpiryDays, d.Log)
	limit := httprate.Limit(
		d.Cfg.RateLimit.PerMinute,
		1*time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
	)
	maxUpload := d.Cfg.Upload.MaxFileSize

	r.Route("/api", func(api chi.Router) {
		api.Route("/items", func(items chi.Router) {
			items.Get("/", func(w http.ResponseWriter, r *http.Request) {
				ListItems(w, r, d.DB, d.Log)
			})
			items.Get("/user/{userID}", func(w http.ResponseWriter, r *http.Request) {
				ListUserItems(w, r, d.DB, d.Log)
			})
			items.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
				GetItem(w, r, d.DB, d.Log)
			})

			items.Group(func(protected chi.Router) {
				protected.Use(identity)
				protected.Use(limit)
				protected.Post("/", func(w http.ResponseWriter, r *http.Request) {
					CreateItem(w, r, d.DB, d.Store, d.Log, maxUpload)
				})
				protected.Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
					UpdateItem(w, r, d.DB, d.Store, d.Log, maxUpload)
				})
				protected.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
					DeleteItem(w, r, d.DB, d.Store, d.Log)
				})
			})
		})

		api.Route("/users", func(users chi.Router) {
			users.Get("/user/{id}", func(w http.ResponseWriter, r *http.Request) {
				GetUserByID(w, r, d.DB, d.Log)
			})

			users.Group(func(protected chi.Router) {
				protected.Use(identity)
				protected.Get("/me", func(w http.ResponseWriter, r *http.Request) {
					GetCurrentUser(w, r, d.DB, d.Log)
				})
				protected.Put("/me", func(w http.ResponseWriter, r *http.Request) {
					UpdateCurrentUser(w, r, d.DB, d.Log)
				})
			})
		})
	})

	if disk, ok := d.Store.(*storage.DiskStore); ok {
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(disk.Dir())))
		r.Handle("/uploads/*", fs)
	}

	if d.Cfg.FrontendDir != "" {
		r.NotFound(spaHandler(d.Cfg.FrontendDir))
	}

	return r
}

// spaHandler serves a built single-page frontend: existing files directly,
// everything else falls back to index.html for client-side routing.
func spaHandler(dir string) http.HandlerFunc {
	fs := http.FileServer(http.Dir(dir))
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		path := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			fs.ServeHTTP(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join(dir, "index.html"))
	}
}
