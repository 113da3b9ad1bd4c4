package agents

import (
	"errors"
	"fmt"
	"strings"

	"siamplay/models"

	"gorm.io/gorm"
)

const (
	BrandBetflix = "BETFLIX"
	BrandNexus   = "NEXUS"
)

// Factory maps persisted AgentConfig rows to brand adapters. Credentials are
// read fresh from the database on every resolution, so an operator edit takes
// effect on the next call without any cache bust.
type Factory struct {
	db *gorm.DB
}

func NewFactory(db *gorm.DB) *Factory {
	return &Factory{db: db}
}

// Resolve returns an adapter for an explicit agent id.
func (f *Factory) Resolve(agentID uint) (Client, *models.AgentConfig, error) {
	var cfg models.AgentConfig
	err := f.db.Where("id = ? AND is_active = true", agentID).First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: id %d", ErrAgentNotConfigured, agentID)
		}
		return nil, nil, err
	}
	client, err := f.build(&cfg)
	return client, &cfg, err
}

// ResolveMain returns the adapter for the config flagged is_main. Legacy
// single-config deployments have no flag set; the oldest active row wins then.
func (f *Factory) ResolveMain() (Client, *models.AgentConfig, error) {
	var cfg models.AgentConfig
	err := f.db.Where("is_main = true AND is_active = true").First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = f.db.Where("is_active = true").Order("id asc").First(&cfg).Error
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrAgentNotConfigured
		}
		return nil, nil, err
	}
	client, err := f.build(&cfg)
	return client, &cfg, err
}

// ActiveConfigs lists every active agent, for the sync scheduler.
func (f *Factory) ActiveConfigs() ([]models.AgentConfig, error) {
	var configs []models.AgentConfig
	err := f.db.Where("is_active = true").Order("id asc").Find(&configs).Error
	return configs, err
}

func (f *Factory) build(cfg *models.AgentConfig) (Client, error) {
	switch strings.ToUpper(cfg.Code) {
	case BrandBetflix:
		return NewBetflixClient(cfg), nil
	case BrandNexus:
		return NewNexusClient(cfg), nil
	default:
		return nil, fmt.Errorf("%w: unknown brand %q", ErrAgentNotConfigured, cfg.Code)
	}
}
