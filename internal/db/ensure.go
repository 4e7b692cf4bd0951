package db

import (
	"fmt"

	"gorm.io/gorm"
)

// EnsureColumn adds a column when missing. Re-running it against a schema
// that already carries the column is a no-op, never an error.
func EnsureColumn(db *gorm.DB, table, column, ddl string) error {
	if db.Migrator().HasColumn(table, column) {
		return nil
	}
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, ddl)
	if err := db.Exec(stmt).Error; err != nil {
		// A concurrent or earlier run may have added it between the check
		// and the ALTER; verify before failing.
		if db.Migrator().HasColumn(table, column) {
			return nil
		}
		return err
	}
	return nil
}
