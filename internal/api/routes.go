package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	CORSAllowedOrigins []string
	RateLimitRPM       int
	RequestTimeout     time.Duration
	// MetricsHandler is served at /metrics when set.
	MetricsHandler http.Handler
}

func (h *Handler) Routes(m *Middleware, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(m.RequestID)
	r.Use(m.RequestLogger)
	r.Use(m.Recoverer)
	r.Use(m.SecurityHeaders)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(m.CORS(cfg.CORSAllowedOrigins))
	r.Use(m.RateLimit(cfg.RateLimitRPM))

	// Set before mounting so sub-routers inherit them.
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	// Health endpoints
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		// Live updates hold the connection open, so they skip the timeout
		// and compression wrappers, which hide Flusher and Hijacker.
		r.Get("/stream", h.HandleSSE)
		r.Get("/ws", h.HandleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Compress(5, "application/json"))
			r.Use(m.Timeout(cfg.RequestTimeout))

			r.Get("/", h.GetEndpoints)

			r.Route("/topics", func(r chi.Router) {
				r.Get("/", h.ListTopics)
				r.Post("/", h.CreateTopic)
			})

			r.Route("/articles", func(r chi.Router) {
				r.Get("/", h.ListArticles)
				r.Post("/", h.CreateArticle)

				r.Route("/{article_id}", func(r chi.Router) {
					r.Get("/", h.GetArticle)
					r.Patch("/", h.VoteArticle)
					r.Delete("/", h.DeleteArticle)
					r.Get("/comments", h.ListComments)
					r.Post("/comments", h.CreateComment)
				})
			})

			r.Route("/comments/{comment_id}", func(r chi.Router) {
				r.Patch("/", h.VoteComment)
				r.Delete("/", h.DeleteComment)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", h.ListUsers)
				r.Get("/{username}", h.GetUser)
			})
		})
	})

	return r
}
