package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"studymate-bot/internal/handlers"
	"studymate-bot/internal/middleware"
	"studymate-bot/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	adminHandler *handlers.AdminHandler,
	wsHub *websocket.Hub,
	log *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log.Named("http")))

	// 5 login attempts per minute per IP
	loginLimiter := middleware.NewRateLimiter(5, time.Minute)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/admin", func(r chi.Router) {
			r.With(loginLimiter.Middleware).Post("/login", adminHandler.Login)

			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Get("/sessions/{userID}", adminHandler.GetSession)
				r.Get("/memory/{userID}/{tier}", adminHandler.GetMemory)
				r.Get("/stats", adminHandler.Stats)
			})
		})

		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
