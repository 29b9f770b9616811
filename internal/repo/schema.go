package repo

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const papersTable = "papers"

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS papers (
		id TEXT PRIMARY KEY,
		title TEXT,
		authors TEXT,
		tags TEXT,
		date TEXT,
		paperLink TEXT,
		sections TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_papers_date ON papers(date)`,
}

func ensureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
