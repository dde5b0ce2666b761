package treo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/deepakkuma24/atrocore/internal/migration"
)

// unitMeasureAndPortal makes unit names unique per measure and replaces the
// portal_user and account_portal_user join tables with columns on user.
type unitMeasureAndPortal struct{}

func (unitMeasureAndPortal) Up(ctx context.Context, db migration.DB) error {
	if err := dropDuplicateUnits(ctx, db); err != nil {
		return err
	}

	execAll(ctx, db,
		"ALTER TABLE `unit` DROP INDEX UNIQ_DCBB0C535E237E06EB3B4E33, ADD INDEX IDX_NAME (name, deleted)",
		"DROP INDEX UNIQ_DCBB0C5333E7211DEB3B4E33 ON `unit`",
		"CREATE UNIQUE INDEX UNIQ_DCBB0C535DA37D005E237E06EB3B4E33 ON `unit` (measure_id, name, deleted)",
		"ALTER TABLE `user` ADD portal_id VARCHAR(24) DEFAULT NULL COLLATE utf8mb4_unicode_ci",
		"CREATE INDEX IDX_PORTAL_ID ON `user` (portal_id)",
	)
	if err := copyLinks(ctx, db,
		"SELECT portal_id, user_id FROM `portal_user` WHERE deleted=0",
		"UPDATE `user` SET portal_id=? WHERE id=?"); err != nil {
		return err
	}
	execAll(ctx, db,
		"DROP TABLE portal_user",
		"ALTER TABLE `user` ADD account_id VARCHAR(24) DEFAULT NULL COLLATE utf8mb4_unicode_ci",
		"CREATE INDEX IDX_ACCOUNT_ID ON `user` (account_id)",
	)
	if err := copyLinks(ctx, db,
		"SELECT account_id, user_id FROM `account_portal_user` WHERE deleted=0",
		"UPDATE `user` SET account_id=? WHERE id=?"); err != nil {
		return err
	}
	execAll(ctx, db, "DROP TABLE account_portal_user")
	return nil
}

func (unitMeasureAndPortal) Down(ctx context.Context, db migration.DB) error {
	execAll(ctx, db,
		"CREATE TABLE `portal_user` (`id` INT AUTO_INCREMENT NOT NULL UNIQUE COLLATE utf8mb4_unicode_ci, `portal_id` VARCHAR(24) DEFAULT NULL COLLATE utf8mb4_unicode_ci, `user_id` VARCHAR(24) DEFAULT NULL COLLATE utf8mb4_unicode_ci, `deleted` TINYINT(1) DEFAULT '0' COLLATE utf8mb4_unicode_ci, INDEX `IDX_76511E4B887E1DD` (portal_id), INDEX `IDX_76511E4A76ED395` (user_id), UNIQUE INDEX `UNIQ_76511E4B887E1DDA76ED395` (portal_id, user_id), PRIMARY KEY(id)) DEFAULT CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci ENGINE = InnoDB",
		"CREATE TABLE `account_portal_user` (`id` INT AUTO_INCREMENT NOT NULL UNIQUE COLLATE utf8mb4_unicode_ci, `user_id` VARCHAR(24) DEFAULT NULL COLLATE utf8mb4_unicode_ci, `account_id` VARCHAR(24) DEFAULT NULL COLLATE utf8mb4_unicode_ci, `deleted` TINYINT(1) DEFAULT '0' COLLATE utf8mb4_unicode_ci, INDEX `IDX_D622EDE7A76ED395` (user_id), INDEX `IDX_D622EDE79B6B5FBA` (account_id), UNIQUE INDEX `UNIQ_D622EDE7A76ED3959B6B5FBA` (user_id, account_id), PRIMARY KEY(id)) DEFAULT CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci ENGINE = InnoDB",
		"ALTER TABLE `unit` DROP INDEX IDX_NAME, ADD UNIQUE INDEX UNIQ_DCBB0C535E237E06EB3B4E33 (name, deleted)",
		"DROP INDEX UNIQ_DCBB0C535DA37D005E237E06EB3B4E33 ON `unit`",
		"CREATE UNIQUE INDEX UNIQ_DCBB0C5333E7211DEB3B4E33 ON `unit` (name_de_de, deleted)",
	)
	return nil
}

// dropDuplicateUnits keeps the first unit of every (measure, name) pair so
// the new unique index can be created.
func dropDuplicateUnits(ctx context.Context, db migration.DB) error {
	rows, err := db.QueryContext(ctx, "SELECT id, measure_id, name FROM `unit` WHERE deleted=0")
	if err != nil {
		return fmt.Errorf("failed to read units: %w", err)
	}

	seen := make(map[string]bool)
	var duplicates []string
	for rows.Next() {
		var id string
		var measure, name sql.NullString
		if err := rows.Scan(&id, &measure, &name); err != nil {
			_ = rows.Close()
			return fmt.Errorf("failed to read units: %w", err)
		}
		key := measure.String + "_" + name.String
		if seen[key] {
			duplicates = append(duplicates, id)
		}
		seen[key] = true
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range duplicates {
		if _, err := db.ExecContext(ctx, "DELETE FROM `unit` WHERE id=?", id); err != nil {
			return fmt.Errorf("failed to delete unit %s: %w", id, err)
		}
	}
	return nil
}
