package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model

	Username    string          `gorm:"uniqueIndex;size:32" json:"username"`
	Phone       string          `gorm:"size:16" json:"phone"`
	Balance     decimal.Decimal `gorm:"type:decimal(20,2)" json:"balance"`
	BankName    string          `gorm:"size:64" json:"bank_name"`
	BankAccount string          `gorm:"size:32" json:"bank_account"`
	IsActive    bool            `json:"is_active"`

	Transactions     []Transaction     `gorm:"foreignKey:UserID"`
	ExternalAccounts []ExternalAccount `gorm:"foreignKey:UserID"`
}

// ExternalAccount is the player's sub-account on one external agent, created
// lazily on first registration. Balance is a cached mirror, never
// authoritative.
type ExternalAccount struct {
	gorm.Model

	UserID           uint            `gorm:"uniqueIndex:idx_user_agent" json:"user_id"`
	AgentID          uint            `gorm:"uniqueIndex:idx_user_agent" json:"agent_id"`
	ExternalUsername string          `gorm:"size:64;index" json:"external_username"`
	ExternalPassword string          `gorm:"size:64" json:"-"`
	Balance          decimal.Decimal `gorm:"type:decimal(20,2)" json:"balance"`
}
