package store

import (
	"database/sql"
	"fmt"

	"offnitro/internal/logging"
)

// migration adds a column to an existing table. Catalogs created before the
// column existed are upgraded in place; fresh databases already carry the
// full schema and skip every entry.
type migration struct {
	Table  string
	Column string
	Def    string
}

var pendingMigrations = []migration{
	// Source path tracking (added when the watch command landed, so runs can
	// be traced back to the inbox file that triggered them).
	{"runs", "source_path", "TEXT DEFAULT ''"},
	// Valence angle capture on geometries (added when the report output grew
	// beyond the improper angle).
	{"geometries", "valence_json", "TEXT DEFAULT ''"},
}

// runMigrations applies column migrations for catalogs created by older
// versions of the tool.
func runMigrations(db *sql.DB) error {
	applied := 0
	for _, m := range pendingMigrations {
		if !tableExists(db, m.Table) {
			continue
		}
		if columnExists(db, m.Table, m.Column) {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %s.%s failed: %w", m.Table, m.Column, err)
		}
		applied++
	}
	if applied > 0 {
		logging.Store("Applied %d catalog migrations", applied)
	}
	return nil
}

func tableExists(db *sql.DB, table string) bool {
	var name string
	err := db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
	return err == nil
}

func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}
