package models

import "gorm.io/gorm"

// Tenant lives in the master database only. It is a routing key: the code
// never changes after creation, the connection string may rotate.
type Tenant struct {
	gorm.Model

	Code             string `gorm:"uniqueIndex;size:32" json:"code"`
	Name             string `gorm:"size:64" json:"name"`
	ConnectionString string `gorm:"size:255" json:"-"`
	Domains          string `gorm:"size:255" json:"domains"`
	IsActive         bool   `json:"is_active"`
}
