package botapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	auditsvc "github.com/tikhomirovv/tg-moderator-ai/internal/services/audit"
	"github.com/tikhomirovv/tg-moderator-ai/internal/transport/http/handlers"
)

type Dependencies struct {
	Bots       handlers.BotResolver
	BotList    handlers.BotLister
	Rules      handlers.RuleLister
	Contexts   handlers.ContextReader
	Dispatcher handlers.Dispatcher
	Audit      *auditsvc.Service
	Logger     *zap.Logger
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	webhookHandler := handlers.NewWebhookHandler(deps.Bots, deps.Dispatcher, deps.Logger)
	botsHandler := handlers.NewBotsHandler(deps.BotList, deps.Logger)
	rulesHandler := handlers.NewRulesHandler(deps.Rules, deps.Logger)
	usersHandler := handlers.NewUsersHandler(deps.Contexts, deps.Logger)
	logsHandler := handlers.NewLogsHandler(deps.Audit, deps.Logger)
	statisticsHandler := handlers.NewStatisticsHandler(deps.Audit, deps.Logger)

	r.Get("/health", healthHandler.Handle)
	r.Post("/webhook/{botID}", webhookHandler.Handle)

	r.Route("/api", func(r chi.Router) {
		r.Get("/rules", rulesHandler.Handle)
		r.Get("/bots", botsHandler.Handle)
		r.Route("/bots/{botID}", func(r chi.Router) {
			r.Get("/logs", logsHandler.Handle)
			r.Route("/chats/{chatID}", func(r chi.Router) {
				r.Get("/statistics", statisticsHandler.Handle)
				r.Get("/banned", usersHandler.HandleBanned)
				r.Get("/users/{userID}", usersHandler.HandleUser)
			})
		})
	})
}
