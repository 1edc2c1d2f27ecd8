package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// createSavedItems creates the per-user bookmarks. A bookmark disappears
// with its item.
func createSavedItems() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "004_create_saved_items",
		Migrate: func(tx *gorm.DB) error {
			err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS saved_items (
					id UUID PRIMARY KEY,
					user_id VARCHAR(200) NOT NULL,
					item_id VARCHAR(64) NOT NULL REFERENCES items(id) ON DELETE CASCADE,
					created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
					CONSTRAINT uq_saved_items_user_item UNIQUE (user_id, item_id)
				);
			`).Error
			if err != nil {
				return err
			}

			return tx.Exec(
				"CREATE INDEX IF NOT EXISTS idx_saved_items_user_created ON saved_items(user_id, created_at DESC);",
			).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec("DROP TABLE IF EXISTS saved_items;").Error
		},
	}
}
