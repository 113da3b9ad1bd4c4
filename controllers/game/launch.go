package game

import (
	"errors"

	"siamplay/agents"
	"siamplay/helpers"
	"siamplay/middlewares"
	"siamplay/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type LaunchRequest struct {
	UserID       uint   `json:"user_id"`
	AgentID      uint   `json:"agent_id"`
	ProviderCode string `json:"provider_code"`
	GameCode     string `json:"game_code"`
	Lang         string `json:"lang"`
}

// LaunchHandler produces a game entry URL. The player is registered with the
// agent lazily: the first launch against an agent creates the external
// sub-account and stores the mapping.
func LaunchHandler(c *fiber.Ctx) error {
	var req LaunchRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	if req.UserID == 0 || req.ProviderCode == "" {
		return helpers.JSONError(c, "USER_ID_AND_PROVIDER_REQUIRED")
	}

	db := middlewares.TenantDB(c)
	factory := agents.NewFactory(db)

	var (
		client agents.Client
		cfg    *models.AgentConfig
		err    error
	)
	if req.AgentID != 0 {
		client, cfg, err = factory.Resolve(req.AgentID)
	} else {
		client, cfg, err = factory.ResolveMain()
	}
	if err != nil {
		if errors.Is(err, agents.ErrAgentNotConfigured) {
			return helpers.JSONError(c, "AGENT_NOT_CONFIGURED")
		}
		return helpers.JSONError(c, "FAILED_TO_RESOLVE_AGENT")
	}

	var user models.User
	if err := db.Where("id = ? AND is_active = true", req.UserID).First(&user).Error; err != nil {
		return helpers.JSONError(c, "USER_NOT_FOUND")
	}

	account, err := ensureExternalAccount(c, db, client, cfg, &user)
	if err != nil {
		return helpers.JSONError(c, "AGENT_REGISTRATION_FAILED")
	}

	url, err := client.LaunchGame(c.UserContext(), account.ExternalUsername, req.ProviderCode, req.GameCode, req.Lang)
	if err != nil {
		return helpers.JSONError(c, "FAILED_TO_LAUNCH_GAME")
	}

	return helpers.JSONSuccess(c, "Game launched", fiber.Map{
		"launch_url": url,
		"agent":      cfg.Code,
	})
}

func ensureExternalAccount(c *fiber.Ctx, db *gorm.DB, client agents.Client, cfg *models.AgentConfig, user *models.User) (*models.ExternalAccount, error) {
	var account models.ExternalAccount
	err := db.Where("user_id = ? AND agent_id = ?", user.ID, cfg.ID).First(&account).Error
	if err == nil {
		return &account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	creds, err := client.Register(c.UserContext(), user.ID, user.Phone)
	if err != nil {
		return nil, err
	}

	account = models.ExternalAccount{
		UserID:           user.ID,
		AgentID:          cfg.ID,
		ExternalUsername: creds.Username,
		ExternalPassword: creds.Password,
	}
	if err := db.Create(&account).Error; err != nil {
		// A concurrent launch may have created it first.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if err := db.Where("user_id = ? AND agent_id = ?", user.ID, cfg.ID).First(&account).Error; err != nil {
				return nil, err
			}
			return &account, nil
		}
		return nil, err
	}
	return &account, nil
}
