package treo

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/deepakkuma24/atrocore/internal/migration"
)

var q = regexp.QuoteMeta

func TestRegisteredVersions(t *testing.T) {
	assert.Equal(t, []migration.Version{{Major: 1, Minor: 4}, {Major: 1, Minor: 5, Patch: 39}}, migration.Default.Versions(Module))
}

func TestUpgradeTo140(t *testing.T) {
	sqlDB, mk, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mk.ExpectQuery(q("SELECT id, measure_id, name FROM `unit` WHERE deleted=0")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "measure_id", "name"}).
			AddRow("u1", "length", "cm").
			AddRow("u2", "length", "cm").
			AddRow("u3", "weight", "cm"))
	mk.ExpectExec(q("DELETE FROM `unit` WHERE id=?")).WithArgs("u2").WillReturnResult(sqlmock.NewResult(0, 1))
	mk.ExpectExec(q("ALTER TABLE `unit` DROP INDEX UNIQ_DCBB0C535E237E06EB3B4E33")).WillReturnResult(sqlmock.NewResult(0, 0))
	mk.ExpectExec(q("DROP INDEX UNIQ_DCBB0C5333E7211DEB3B4E33 ON `unit`")).WillReturnError(errors.New("index does not exist"))
	mk.ExpectExec(q("CREATE UNIQUE INDEX UNIQ_DCBB0C535DA37D005E237E06EB3B4E33")).WillReturnResult(sqlmock.NewResult(0, 0))
	mk.ExpectExec(q("ALTER TABLE `user` ADD portal_id")).WillReturnResult(sqlmock.NewResult(0, 0))
	mk.ExpectExec(q("CREATE INDEX IDX_PORTAL_ID")).WillReturnResult(sqlmock.NewResult(0, 0))
	mk.ExpectQuery(q("FROM `portal_user`")).
		WillReturnRows(sqlmock.NewRows([]string{"portal_id", "user_id"}).AddRow("p1", "john"))
	mk.ExpectExec(q("UPDATE `user` SET portal_id=? WHERE id=?")).WithArgs("p1", "john").WillReturnResult(sqlmock.NewResult(0, 1))
	mk.ExpectExec(q("DROP TABLE portal_user")).WillReturnResult(sqlmock.NewResult(0, 0))
	mk.ExpectExec(q("ALTER TABLE `user` ADD account_id")).WillReturnResult(sqlmock.NewResult(0, 0))
	mk.ExpectExec(q("CREATE INDEX IDX_ACCOUNT_ID")).WillReturnResult(sqlmock.NewResult(0, 0))
	mk.ExpectQuery(q("FROM `account_portal_user`")).WillReturnError(errors.New("table does not exist"))
	mk.ExpectExec(q("DROP TABLE account_portal_user")).WillReturnResult(sqlmock.NewResult(0, 0))

	runner := migration.NewRunner(migration.Default, sqlDB, zaptest.NewLogger(t))
	ran, err := runner.Run(context.Background(), Module, "1.3.9", "1.4.0")
	require.NoError(t, err)
	assert.True(t, ran)
	assert.NoError(t, mk.ExpectationsWereMet())
}

func TestUpgradeFailsWithoutUnitTable(t *testing.T) {
	sqlDB, mk, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mk.ExpectQuery(q("FROM `unit`")).WillReturnError(errors.New("table does not exist"))

	_, err = migration.NewRunner(migration.Default, sqlDB, nil).Run(context.Background(), Module, "1.3.9", "1.5.39")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "V1Dot4Dot0")
	assert.NoError(t, mk.ExpectationsWereMet())
}

func TestDowngradeFrom1539(t *testing.T) {
	sqlDB, mk, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mk.ExpectExec(q("CREATE TABLE array_value")).WillReturnResult(sqlmock.NewResult(0, 0))

	ran, err := migration.NewRunner(migration.Default, sqlDB, nil).Run(context.Background(), Module, "1.5.39", "1.4.0")
	require.NoError(t, err)
	assert.True(t, ran)
	assert.NoError(t, mk.ExpectationsWereMet())
}
