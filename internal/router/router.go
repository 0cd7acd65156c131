package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"interview-backend/internal/handlers"
	"interview-backend/internal/middleware"
	"interview-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	startLimiter *middleware.RateLimiter,
	healthHandler *handlers.HealthHandler,
	interviewHandler *handlers.InterviewHandler,
	cvHandler *handlers.CVHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	r.Get("/health", healthHandler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Interview Routes ────
		r.Route("/interviews", func(r chi.Router) {
			r.Get("/questions", interviewHandler.Questions) // Public

			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Get("/", interviewHandler.History)
				r.Get("/{id}", interviewHandler.Get)
				r.Get("/{id}/report", interviewHandler.Report)

				r.Route("/sessions", func(r chi.Router) {
					r.With(startLimiter.Middleware).Post("/", interviewHandler.Start)
					r.Get("/{id}", interviewHandler.GetSession)
					r.Post("/{id}/end", interviewHandler.End)
					r.Post("/{id}/mic", interviewHandler.ToggleMic)
					r.Post("/{id}/camera", interviewHandler.ToggleCamera)
					r.Delete("/{id}", interviewHandler.Abandon)
				})
			})
		})

		// ──── CV Routes ────
		r.Route("/cv", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", cvHandler.Upload)
			r.Get("/", cvHandler.Latest)
			r.Get("/file", cvHandler.Download)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
