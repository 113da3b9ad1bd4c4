package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	NotifyMatched     = "MATCHED"
	NotifyNoMatch     = "NO_MATCH"
	NotifyParseFailed = "PARSE_FAILED"
	NotifyAgentFailed = "AGENT_FAILED"
)

// NotificationLog is append-only: one row per distinct inbound bank message.
// The unique MessageHash is the concurrency-safe dedupe point for at-least-once
// webhook delivery.
type NotificationLog struct {
	gorm.Model

	MessageHash   string          `gorm:"uniqueIndex;size:32" json:"message_hash"`
	RawMessage    string          `gorm:"size:1024" json:"raw_message"`
	ParsedFields  datatypes.JSON  `json:"parsed_fields,omitempty"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2)" json:"amount"`
	DestAccount   string          `gorm:"size:8" json:"dest_account"`
	SourceBank    string          `gorm:"size:16" json:"source_bank"`
	SourceAccount string          `gorm:"size:8" json:"source_account"`
	SourceName    string          `gorm:"size:128" json:"source_name"`
	Status        string          `gorm:"size:16;index" json:"status"`
	MatchedUserID *uint           `json:"matched_user_id,omitempty"`
	TransactionID *uint           `json:"transaction_id,omitempty"`
	Error         string          `gorm:"size:255" json:"error,omitempty"`
}
