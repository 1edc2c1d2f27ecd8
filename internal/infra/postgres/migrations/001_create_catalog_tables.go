package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// createCatalogTables creates the publishers and items tables.
func createCatalogTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "001_create_catalog_tables",
		Migrate: func(tx *gorm.DB) error {
			err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS publishers (
					id VARCHAR(64) PRIMARY KEY,
					title VARCHAR(500) NOT NULL,
					description TEXT,
					handle VARCHAR(200),
					published_at TIMESTAMPTZ,
					thumbnail_url TEXT,
					thumbnail_width INTEGER DEFAULT 0,
					thumbnail_height INTEGER DEFAULT 0,

					-- Metrics
					view_count BIGINT DEFAULT 0,
					subscriber_count BIGINT DEFAULT 0,
					item_count BIGINT DEFAULT 0,

					created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
					updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
				);
			`).Error
			if err != nil {
				return err
			}

			err = tx.Exec(`
				CREATE TABLE IF NOT EXISTS items (
					id VARCHAR(64) PRIMARY KEY,
					publisher_id VARCHAR(64) NOT NULL REFERENCES publishers(id) ON DELETE CASCADE,
					title VARCHAR(500) NOT NULL,
					description TEXT,
					tags TEXT[],
					published_at TIMESTAMPTZ NOT NULL,
					thumbnail_url TEXT,
					thumbnail_width INTEGER DEFAULT 0,
					thumbnail_height INTEGER DEFAULT 0,

					-- Metrics
					view_count BIGINT DEFAULT 0,
					like_count BIGINT DEFAULT 0,
					comment_count BIGINT DEFAULT 0,
					duration_seconds BIGINT,

					created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
					updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
				);
			`).Error
			if err != nil {
				return err
			}

			indexes := []string{
				"CREATE INDEX IF NOT EXISTS idx_items_publisher_id ON items(publisher_id);",
				"CREATE INDEX IF NOT EXISTS idx_items_published_at ON items(published_at DESC);",
			}
			for _, idx := range indexes {
				if err := tx.Exec(idx).Error; err != nil {
					return err
				}
			}

			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			if err := tx.Exec("DROP TABLE IF EXISTS items;").Error; err != nil {
				return err
			}

			return tx.Exec("DROP TABLE IF EXISTS publishers;").Error
		},
	}
}
