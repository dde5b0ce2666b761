package treo

import (
	"context"

	"github.com/deepakkuma24/atrocore/internal/migration"
)

// unitArrayValue drops the array_value table
type unitArrayValue struct{}

func (unitArrayValue) Up(ctx context.Context, db migration.DB) error {
	execAll(ctx, db, "DROP TABLE array_value")
	return nil
}

func (unitArrayValue) Down(ctx context.Context, db migration.DB) error {
	_, err := db.ExecContext(ctx, "CREATE TABLE array_value (id VARCHAR(24) NOT NULL COLLATE `utf8mb4_unicode_ci`, deleted TINYINT(1) DEFAULT '0' COLLATE `utf8mb4_unicode_ci`, value VARCHAR(255) DEFAULT NULL COLLATE `utf8mb4_unicode_ci`, attribute VARCHAR(255) DEFAULT NULL COLLATE `utf8mb4_unicode_ci`, entity_id VARCHAR(24) DEFAULT NULL COLLATE `utf8mb4_unicode_ci`, entity_type VARCHAR(100) DEFAULT NULL COLLATE `utf8mb4_unicode_ci`, INDEX IDX_ENTITY (entity_id, entity_type), INDEX IDX_ENTITY_TYPE_VALUE (entity_type, value), INDEX IDX_ENTITY_VALUE (entity_type, entity_id, value), PRIMARY KEY(id)) DEFAULT CHARACTER SET utf8 COLLATE `utf8_unicode_ci` ENGINE = InnoDB")
	return err
}
