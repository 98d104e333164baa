package routes

import (
	"time"

	"github.com/Meshu-webDEV/singularity-api/handlers"
	"github.com/Meshu-webDEV/singularity-api/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Config struct {
	JWTSecretKey string
	ClientOrigin string
}

func SetupRoutes(
	router *chi.Mux,
	cfg Config,
	eventHandler *handlers.EventHandler,
	webhookHandler *handlers.WebhookHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.ClientOrigin},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(cfg.JWTSecretKey)

	// Round updates are organizer-clicked buttons, the leaderboard is polled
	// by chat bots; both get a per-caller admission limit.
	updateLimiter := middleware.NewRateLimiter(10*time.Second, 1, "round updates are limited to one request per 10 seconds")
	scoresLimiter := middleware.NewRateLimiter(5*time.Second, 1, "the leaderboard is limited to one request per 5 seconds")

	router.Route("/v1/events", func(r chi.Router) {
		// Public surface.
		r.Get("/auto-update-status", eventHandler.AutoStart)
		r.Get("/auto-end", eventHandler.AutoEnd)
		r.Post("/explore", eventHandler.Explore)
		r.Post("/by-organizer/{id}", eventHandler.ByOrganizer)
		r.Get("/live", eventHandler.LiveEvents)
		r.Post("/get-by-dates", eventHandler.EventsBetween)
		r.Get("/count", eventHandler.CountEvents)
		r.Get("/{uniqueid}/public", eventHandler.GetPublicEvent)
		r.With(scoresLimiter.Limit).Get("/{uniqueid}/bot-scores", eventHandler.BotScores)
		r.Get("/{uniqueid}/live", webSocketHandler.ServeLive)

		// Authenticated surface.
		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/new", eventHandler.CreateEvent)
			r.Delete("/delete/{uniqueid}", eventHandler.DeleteEvent)
			r.With(updateLimiter.Limit).Patch("/update/{uniqueid}/{criteria}", eventHandler.UpdateCriteria)
			r.Patch("/start/{uniqueid}", eventHandler.StartEvent)
			r.Patch("/end/{uniqueid}", eventHandler.EndEvent)
			r.With(updateLimiter.Limit).Patch("/progress/{uniqueid}/{round}/update", eventHandler.UpdateRoundTable)
			r.Patch("/progress/{uniqueid}/{round}/end", eventHandler.EndRound)
			r.Post("/my-events", eventHandler.MyEvents)
			r.Get("/{uniqueid}", eventHandler.GetEvent)
			r.Get("/{uniqueid}/lobby-code", eventHandler.GetLobbyCode)
		})
	})

	router.Route("/v1/webhooks", func(r chi.Router) {
		r.Use(authenticate)

		r.Post("/new", webhookHandler.CreateWebhook)
		r.Get("/", webhookHandler.ListWebhooks)
		r.Patch("/{uniqueid}", webhookHandler.UpdateWebhook)
		r.Delete("/{uniqueid}", webhookHandler.DeleteWebhook)
		r.Get("/{uniqueid}/ping", webhookHandler.PingWebhook)
	})
}
