package models

import "gorm.io/gorm"

// BankAccount is a system-owned deposit account. Inbound transfer
// notifications are resolved against the last digits of AccountNumber.
type BankAccount struct {
	gorm.Model

	BankName      string `gorm:"size:64" json:"bank_name"`
	AccountNumber string `gorm:"size:32" json:"account_number"`
	AccountName   string `gorm:"size:64" json:"account_name"`
	Type          string `gorm:"size:16;default:deposit" json:"type"`
	IsActive      bool   `json:"is_active"`
}
