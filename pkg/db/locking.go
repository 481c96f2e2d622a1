package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ForUpdate takes a row lock on every row the query returns
// (SELECT ... FOR UPDATE). The SQLite dialect drops the clause; there the
// single-writer transaction provides the same exclusion.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// ForUpdateSkipLocked locks the returned rows and skips rows another
// transaction already holds, for queue style consumers.
func ForUpdateSkipLocked(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
}
