package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// createScoreSnapshots creates the append-only score history.
// Rows are never updated; every search that returns an item adds one.
func createScoreSnapshots() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "002_create_score_snapshots",
		Migrate: func(tx *gorm.DB) error {
			err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS score_snapshots (
					id UUID PRIMARY KEY,
					item_id VARCHAR(64) NOT NULL REFERENCES items(id) ON DELETE CASCADE,
					publisher_id VARCHAR(64) NOT NULL,
					viral_score INTEGER NOT NULL,
					multiplier DOUBLE PRECISION DEFAULT 0,
					engagement_rate DOUBLE PRECISION DEFAULT 0,

					-- Breakdown
					subscriber_impact INTEGER DEFAULT 0,
					view_velocity INTEGER DEFAULT 0,
					engagement_score INTEGER DEFAULT 0,
					freshness_bonus INTEGER DEFAULT 0,

					-- Metrics at scoring time
					view_count BIGINT DEFAULT 0,
					subscriber_count BIGINT DEFAULT 0,

					potential VARCHAR(100),
					created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
				);
			`).Error
			if err != nil {
				return err
			}

			return tx.Exec(
				"CREATE INDEX IF NOT EXISTS idx_score_snapshots_item_created ON score_snapshots(item_id, created_at DESC);",
			).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec("DROP TABLE IF EXISTS score_snapshots;").Error
		},
	}
}
