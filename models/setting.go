package models

import "gorm.io/gorm"

// Setting is a keyed value row. Sync cursors live at "agent:<code>:last_log_id",
// the gateway signing secret at "jwt_secret".
type Setting struct {
	gorm.Model

	Key   string `gorm:"uniqueIndex;size:64" json:"key"`
	Value string `gorm:"size:255" json:"value"`
}
