package routes

import (
	"siamplay/controllers/agentadmin"
	"siamplay/controllers/game"
	"siamplay/controllers/notify"
	"siamplay/controllers/wallet"
	"siamplay/database"
	"siamplay/middlewares"

	"github.com/gofiber/fiber/v2"
)

func Setup(app *fiber.App, registry *database.Registry, gateway *middlewares.Gateway) {
	tenant := middlewares.Tenant(registry)

	// SMS forwarder ingress
	notifyRoutes := app.Group("/notify", tenant, gateway.Auth())
	notifyRoutes.Post("/webhook", notify.WebhookHandler)
	notifyRoutes.Get("/webhook", notify.WebhookHandler)
	notifyRoutes.Get("/webhook/test", notify.WebhookTestHandler)

	// player wallet
	walletRoutes := app.Group("/wallet", tenant, gateway.Auth())
	walletRoutes.Post("/deposit", wallet.DepositHandler)
	walletRoutes.Post("/withdraw", wallet.WithdrawHandler)
	walletRoutes.Post("/manual", wallet.ManualAdjustHandler)
	walletRoutes.Post("/refresh-balance", wallet.RefreshBalanceHandler)

	// game launch
	gameRoutes := app.Group("/games", tenant, gateway.Auth())
	gameRoutes.Post("/start", game.LaunchHandler)

	// agent administration
	adminRoutes := app.Group("/admin/agents", tenant, gateway.Auth())
	adminRoutes.Get("/", agentadmin.ListHandler)
	adminRoutes.Post("/:id/test", agentadmin.TestHandler)
	adminRoutes.Get("/:id/providers", agentadmin.ProvidersHandler)
	adminRoutes.Get("/:id/games", agentadmin.GamesHandler)
}
