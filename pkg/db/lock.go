package db

import "gorm.io/gorm"

// RowLockClause returns the SELECT suffix that takes a row-level write lock.
// SQLite serializes writers on its own and rejects FOR UPDATE, so the clause
// is empty there; in-memory test databases rely on that.
func RowLockClause(tx *gorm.DB) string {
	if tx == nil {
		return ""
	}
	switch tx.Dialector.Name() {
	case "sqlite", "sqlite3":
		return ""
	default:
		return " FOR UPDATE"
	}
}
