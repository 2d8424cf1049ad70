package postgres

import (
	"context"
	"errors"
	"io"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMigrations = fstest.MapFS{
	"001_create_users_table.up.sql":   {Data: []byte("CREATE TABLE IF NOT EXISTS users (id UUID PRIMARY KEY);")},
	"001_create_users_table.down.sql": {Data: []byte("DROP TABLE IF EXISTS users;")},
	"002_add_index.up.sql":            {Data: []byte("CREATE INDEX idx ON users (id);")},
	"002_add_index.down.sql":          {Data: []byte("DROP INDEX idx;")},
	"README.md":                       {Data: []byte("ignored")},
	"seed.up.sql":                     {Data: []byte("ignored, no version")},
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestLoadMigrations(t *testing.T) {
	migrations, err := LoadMigrations(testMigrations)
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "create_users_table", migrations[0].Name)
	assert.Contains(t, migrations[0].Up, "CREATE TABLE")
	assert.Contains(t, migrations[0].Down, "DROP TABLE")
	assert.Equal(t, 2, migrations[1].Version)
}

func TestMigratorUpSkipsApplied(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	migrations, err := LoadMigrations(testMigrations)
	require.NoError(t, err)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT version FROM schema_migrations`).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE INDEX idx`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO schema_migrations`).
		WithArgs(2, "add_index", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := NewMigrator(db, quietLogger()).Up(context.Background(), migrations)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigratorUpRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	migrations, err := LoadMigrations(testMigrations)
	require.NoError(t, err)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT version FROM schema_migrations`).WillReturnRows(sqlmock.NewRows([]string{"version"}))
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS users`).WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	n, err := NewMigrator(db, quietLogger()).Up(context.Background(), migrations)
	assert.Error(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigratorDownOneStep(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	migrations, err := LoadMigrations(testMigrations)
	require.NoError(t, err)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT version FROM schema_migrations`).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(1).AddRow(2))
	mock.ExpectBegin()
	mock.ExpectExec(`DROP INDEX idx`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM schema_migrations`).WithArgs(2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := NewMigrator(db, quietLogger()).Down(context.Background(), migrations, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
