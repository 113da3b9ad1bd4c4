package models

import "gorm.io/gorm"

// AgentConfig holds one external agent brand's credentials. At most one row
// may be flagged IsMain; the factory falls back to the oldest active row when
// none is.
type AgentConfig struct {
	gorm.Model

	Code        string `gorm:"uniqueIndex;size:32" json:"code"`
	DisplayName string `gorm:"size:64" json:"display_name"`
	BaseURL     string `gorm:"size:255" json:"base_url"`
	APIKey      string `gorm:"size:128" json:"-"`
	APISecret   string `gorm:"size:128" json:"-"`
	Upline      string `gorm:"size:64" json:"upline"`
	IsMain      bool   `gorm:"default:false" json:"is_main"`
	IsActive    bool   `json:"is_active"`
}
