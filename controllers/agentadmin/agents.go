package agentadmin

import (
	"errors"
	"strconv"

	"siamplay/agents"
	"siamplay/helpers"
	"siamplay/middlewares"
	"siamplay/models"

	"github.com/gofiber/fiber/v2"
)

// ListHandler returns the configured agents, credentials stripped by the
// model's json tags.
func ListHandler(c *fiber.Ctx) error {
	var configs []models.AgentConfig
	if err := middlewares.TenantDB(c).Order("id asc").Find(&configs).Error; err != nil {
		return helpers.JSONError(c, "FAILED_TO_LIST_AGENTS")
	}
	return helpers.JSONSuccess(c, "Agents", configs)
}

// TestHandler probes one agent's connectivity and reports the wallet balance
// we hold with it.
func TestHandler(c *fiber.Ctx) error {
	client, cfg, err := resolveFromParam(c)
	if err != nil {
		return helpers.JSONError(c, "AGENT_NOT_CONFIGURED")
	}

	if err := client.CheckStatus(c.UserContext()); err != nil {
		return helpers.JSONSuccess(c, "Connection test", fiber.Map{
			"agent":  cfg.Code,
			"online": false,
			"error":  err.Error(),
		})
	}

	balance, err := client.GetAgentBalance(c.UserContext())
	if err != nil {
		return helpers.JSONError(c, "FAILED_TO_FETCH_AGENT_BALANCE")
	}

	return helpers.JSONSuccess(c, "Connection test", fiber.Map{
		"agent":   cfg.Code,
		"online":  true,
		"balance": balance,
	})
}

func ProvidersHandler(c *fiber.Ctx) error {
	client, cfg, err := resolveFromParam(c)
	if err != nil {
		return helpers.JSONError(c, "AGENT_NOT_CONFIGURED")
	}

	providers, err := client.ListProviders(c.UserContext())
	if err != nil {
		return helpers.JSONError(c, "FAILED_TO_LIST_PROVIDERS")
	}
	return helpers.JSONSuccess(c, "Providers", fiber.Map{
		"agent":     cfg.Code,
		"providers": providers,
	})
}

func GamesHandler(c *fiber.Ctx) error {
	provider := c.Query("provider")
	if provider == "" {
		return helpers.JSONError(c, "PROVIDER_REQUIRED")
	}

	client, cfg, err := resolveFromParam(c)
	if err != nil {
		return helpers.JSONError(c, "AGENT_NOT_CONFIGURED")
	}

	games, err := client.ListGames(c.UserContext(), provider)
	if err != nil {
		return helpers.JSONError(c, "FAILED_TO_LIST_GAMES")
	}
	return helpers.JSONSuccess(c, "Games", fiber.Map{
		"agent": cfg.Code,
		"games": games,
	})
}

func resolveFromParam(c *fiber.Ctx) (agents.Client, *models.AgentConfig, error) {
	factory := agents.NewFactory(middlewares.TenantDB(c))

	idParam := c.Params("id")
	if idParam == "" || idParam == "main" {
		return factory.ResolveMain()
	}
	id, err := strconv.ParseUint(idParam, 10, 32)
	if err != nil {
		return nil, nil, errors.New("bad agent id")
	}
	return factory.Resolve(uint(id))
}
