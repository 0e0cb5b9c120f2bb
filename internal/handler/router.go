package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/handlers"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-tracker-api/internal/middleware"
	"github.com/BuzzLyutic/task-tracker-api/pkg/respond"
)

type RouterConfig struct {
	Auth        *AuthHandler
	Tasks       *TaskHandler
	Tokens      middleware.TokenParser
	Version     string
	CORSOrigins []string
	// AccessLog enables chi's request logger. Tests leave it off.
	AccessLog bool
	// Logger receives recovered panics. Nil discards them.
	Logger *zap.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter() // Создаем роутер
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	if cfg.AccessLog {
		r.Use(chimw.Logger)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r.Use(middleware.Recover(logger))

	// Обработчики 404/405 задаются до монтирования подроутеров, чтобы те их унаследовали
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, r, http.StatusNotFound, "Not found - "+r.URL.RequestURI())
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, r, http.StatusMethodNotAllowed, "Method not allowed - "+r.Method+" "+r.URL.RequestURI())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", Health(cfg.Version))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", cfg.Auth.Register)
			r.Post("/login", cfg.Auth.Login)
			r.With(middleware.Authenticate(cfg.Tokens)).Get("/me", cfg.Auth.Me)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Use(middleware.Authenticate(cfg.Tokens))

			r.Get("/", cfg.Tasks.List)
			r.Post("/", cfg.Tasks.Create)
			r.Get("/{id}", cfg.Tasks.Get)
			r.Put("/{id}", cfg.Tasks.Update)
			r.Delete("/{id}", cfg.Tasks.Delete)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/admin/all-tasks", cfg.Tasks.ListAll)
				r.Get("/admin/stats", cfg.Tasks.Stats)
			})
		})
	})

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type", "Idempotency-Key"}),
		handlers.ExposedHeaders([]string{"Location"}),
	)
	return cors(r)
}
