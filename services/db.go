package services

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate takes a row lock where the dialect has one. SQLite (used by the
// test suites) serializes writers on its own and rejects FOR UPDATE.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
