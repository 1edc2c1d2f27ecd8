package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createSearchHistory() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "003_create_search_history",
		Migrate: func(tx *gorm.DB) error {
			err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS search_history (
					id UUID PRIMARY KEY,
					user_id VARCHAR(200) NOT NULL,
					query TEXT NOT NULL,
					results_count INTEGER NOT NULL DEFAULT 0,
					created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
				);
			`).Error
			if err != nil {
				return err
			}

			return tx.Exec(
				"CREATE INDEX IF NOT EXISTS idx_search_history_user_created ON search_history(user_id, created_at DESC);",
			).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec("DROP TABLE IF EXISTS search_history;").Error
		},
	}
}
